package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"
)

// 进程被杀掉后等待输出管道关闭的最长时间
const waitDelay = 2 * time.Second

// ExecDataSource 通过外部命令实现 DataSource
// 输出必须在进程退出前完整写入 stdout，这里不做流式读取
type ExecDataSource struct {
	command string
	args    []string
}

// NewExecDataSource 根据命令行创建，例如 "sheet-provider" 或 "python3 read_excel.py"
func NewExecDataSource(commandLine string) (*ExecDataSource, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("provider command is empty")
	}
	return &ExecDataSource{command: fields[0], args: fields[1:]}, nil
}

// ListSheets 实现 DataSource
func (d *ExecDataSource) ListSheets(ctx context.Context, filePath string) ([]entity.SheetDescriptor, error) {
	if err := CheckFile(filePath); err != nil {
		return nil, err
	}

	stdout, err := d.run(ctx, FlagListSheets, filePath)
	if err != nil {
		return nil, err
	}
	return DecodeSheets(stdout)
}

// ReadPage 实现 DataSource
func (d *ExecDataSource) ReadPage(ctx context.Context, req entity.PageRequest) (entity.PageResult, error) {
	if err := CheckFormat(req.FilePath); err != nil {
		return entity.PageResult{}, err
	}
	if err := req.Validate(); err != nil {
		return entity.PageResult{}, err
	}

	stdout, err := d.run(ctx, FlagRead, req.FilePath,
		FlagSheet, req.SheetName,
		FlagPage, strconv.Itoa(req.PageNumber),
		FlagSize, strconv.Itoa(req.PageSize))
	if err != nil {
		return entity.PageResult{}, err
	}
	return DecodeRows(stdout)
}

// run 执行一次往返，返回完整的 stdout
func (d *ExecDataSource) run(ctx context.Context, args ...string) ([]byte, error) {
	argv := append(append([]string{}, d.args...), args...)
	cmd := exec.CommandContext(ctx, d.command, argv...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			log.Printf("[Provider] ⏱️ %s 超时 (%v)", args[0], elapsed)
			return nil, domainErrors.NewProviderError(domainErrors.KindTimeout,
				fmt.Sprintf("data provider did not respond within %v", elapsed.Round(time.Millisecond)), ctxErr)
		}
		return nil, ctxErr
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			reason := failureReason(stderr.Bytes(), stdout.Bytes())
			log.Printf("[Provider] ❌ %s 退出码 %d: %s", args[0], code, reason)
			return nil, domainErrors.NewProviderError(KindForExitCode(code), reason, err)
		}
		log.Printf("[Provider] ❌ 无法启动提供者 %s: %v", d.command, err)
		return nil, domainErrors.NewProviderError(domainErrors.KindProviderLaunchError,
			fmt.Sprintf("cannot start data provider %q: %v", d.command, err), err)
	}

	log.Printf("[Provider] ✅ %s 完成, %d 字节, 耗时 %v", args[0], stdout.Len(), elapsed)
	return stdout.Bytes(), nil
}
