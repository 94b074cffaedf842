package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const sheetsSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "columns"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "columns": {"type": "array", "items": {"type": "string"}}
    }
  }
}`

const rowsSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "array",
    "items": {"type": ["string", "number", "boolean", "null"]}
  }
}`

var (
	sheetsSchema = mustCompile("sheets", sheetsSchemaJSON)
	rowsSchema   = mustCompile("rows", rowsSchemaJSON)
)

func mustCompile(name, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://sheetview.schemas.local/provider/%s.schema.json", name)
	if err := c.AddResource(schemaURL, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("provider schema load failed: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// validate 先按 schema 校验，再解码到目标结构
// 任何不符合都归为 ProviderProtocolError，而不是崩溃
func validate(schema *jsonschema.Schema, stdout []byte, target any) error {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return protocolError("empty output", nil)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return protocolError("output is not valid JSON", err)
	}
	if dec.More() {
		return protocolError("unexpected trailing data after JSON document", nil)
	}
	if err := schema.Validate(doc); err != nil {
		return protocolError("output does not match the expected schema", err)
	}
	if err := json.Unmarshal(trimmed, target); err != nil {
		return protocolError("output could not be decoded", err)
	}
	return nil
}

// DecodeSheets 解析 --list-sheets 的输出
func DecodeSheets(stdout []byte) ([]entity.SheetDescriptor, error) {
	var sheets []entity.SheetDescriptor
	if err := validate(sheetsSchema, stdout, &sheets); err != nil {
		return nil, err
	}

	// 工作表名在一个文件内必须唯一
	seen := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		if seen[s.Name] {
			return nil, protocolError(fmt.Sprintf("duplicate sheet name %q", s.Name), nil)
		}
		seen[s.Name] = true
	}
	return sheets, nil
}

// DecodeRows 解析 --read 的输出
func DecodeRows(stdout []byte) (entity.PageResult, error) {
	var rows []entity.Row
	if err := validate(rowsSchema, stdout, &rows); err != nil {
		return entity.PageResult{}, err
	}
	return entity.PageResult{Rows: rows}, nil
}

// failureReason 提取失败原因
// stderr 优先原样使用；为空时兼容旧版提供者写在 stdout 的 [{"error": msg}] / [["Error", msg]]
func failureReason(stderr, stdout []byte) string {
	if reason := strings.TrimSpace(string(stderr)); reason != "" {
		return reason
	}

	trimmed := bytes.TrimSpace(stdout)
	var objects []struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &objects); err == nil && len(objects) > 0 && objects[0].Error != "" {
		return objects[0].Error
	}
	var rows [][]any
	if err := json.Unmarshal(trimmed, &rows); err == nil && len(rows) > 0 && len(rows[0]) == 2 {
		if tag, ok := rows[0][0].(string); ok && tag == "Error" {
			if msg, ok := rows[0][1].(string); ok {
				return msg
			}
		}
	}
	return "data provider failed without a reason"
}

func protocolError(reason string, err error) error {
	if err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err)
	}
	return domainErrors.NewProviderError(domainErrors.KindProviderProtocolError, reason, err)
}
