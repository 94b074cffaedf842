// Package provider 定义数据提供者契约（DataSource），并提供基于外部进程的实现。
//
// 每次调用都是一次完整参数化的往返，提供者在两次调用之间不保存任何状态。
package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sheetview-go-server/domain/entity"
	domainErrors "sheetview-go-server/domain/errors"
)

// DataSource 数据提供者端口
type DataSource interface {
	// ListSheets 列出文件中的工作表
	// 失败类别：FileNotFound / UnsupportedFormat / ParseError（以及进程层面的错误）
	ListSheets(ctx context.Context, filePath string) ([]entity.SheetDescriptor, error)

	// ReadPage 读取一页数据，空 Rows 表示没有更多数据
	// 失败类别：SheetNotFound / IOError / Timeout（以及进程层面的错误）
	ReadPage(ctx context.Context, req entity.PageRequest) (entity.PageResult, error)
}

// 命令行契约
const (
	FlagListSheets = "--list-sheets"
	FlagRead       = "--read"
	FlagSheet      = "--sheet"
	FlagPage       = "--page"
	FlagSize       = "--size"
)

// 退出码约定：0 成功，其余为失败，原因写在 stderr
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitFileNotFound      = 2
	ExitUnsupportedFormat = 3
	ExitParseError        = 4
	ExitSheetNotFound     = 5
	ExitIOError           = 6
)

// KindForExitCode 退出码映射到错误类别
func KindForExitCode(code int) domainErrors.Kind {
	switch code {
	case ExitFileNotFound:
		return domainErrors.KindFileNotFound
	case ExitUnsupportedFormat:
		return domainErrors.KindUnsupportedFormat
	case ExitParseError:
		return domainErrors.KindParseError
	case ExitSheetNotFound:
		return domainErrors.KindSheetNotFound
	case ExitIOError:
		return domainErrors.KindIOError
	default:
		return domainErrors.KindProviderExitNonZero
	}
}

// ExitCodeForKind KindForExitCode 的反向映射，供参考提供者使用
func ExitCodeForKind(kind domainErrors.Kind) int {
	switch kind {
	case domainErrors.KindFileNotFound:
		return ExitFileNotFound
	case domainErrors.KindUnsupportedFormat:
		return ExitUnsupportedFormat
	case domainErrors.KindParseError:
		return ExitParseError
	case domainErrors.KindSheetNotFound:
		return ExitSheetNotFound
	case domainErrors.KindIOError:
		return ExitIOError
	default:
		return ExitFailure
	}
}

// SupportedExtensions 支持的文件扩展名
var SupportedExtensions = []string{".xls", ".xlsx"}

// CheckFormat 扩展名不支持时直接拒绝，不调用提供者
func CheckFormat(filePath string) error {
	if strings.TrimSpace(filePath) == "" {
		return domainErrors.Cancelled()
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return nil
		}
	}
	return domainErrors.NewProviderError(domainErrors.KindUnsupportedFormat,
		fmt.Sprintf("unsupported file type %q (expected .xls or .xlsx)", ext), nil)
}

// CheckFile 扩展名 + 文件存在性检查
func CheckFile(filePath string) error {
	if err := CheckFormat(filePath); err != nil {
		return err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domainErrors.NewProviderError(domainErrors.KindFileNotFound,
				fmt.Sprintf("file not found: %s", filePath), err)
		}
		return domainErrors.NewProviderError(domainErrors.KindIOError, err.Error(), err)
	}
	if info.IsDir() {
		return domainErrors.NewProviderError(domainErrors.KindUnsupportedFormat,
			fmt.Sprintf("%s is a directory", filePath), nil)
	}
	return nil
}

// ListSheetsWithin 在 timeout 内列出工作表，超时归为 Timeout
func ListSheetsWithin(ctx context.Context, ds DataSource, filePath string, timeout time.Duration) ([]entity.SheetDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sheets, err := ds.ListSheets(ctx, filePath)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && domainErrors.KindOf(err) != domainErrors.KindTimeout {
			return nil, domainErrors.NewProviderError(domainErrors.KindTimeout,
				"data provider did not respond within "+timeout.String(), err)
		}
		return nil, err
	}
	return sheets, nil
}
