// Command sheet-provider 参考数据提供者：按命令行契约列出工作表或读取一页，
// 结果以 JSON 写到 stdout，失败原因写到 stderr 并以对应退出码退出。
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	domainErrors "sheetview-go-server/domain/errors"
	"sheetview-go-server/internal/provider"
	"sheetview-go-server/internal/workbook"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute 返回进程退出码
func execute(args []string, stdout, stderr io.Writer) int {
	var (
		listSheets bool
		read       bool
		sheet      string
		page       int
		size       int
	)

	rootCmd := &cobra.Command{
		Use:           "sheet-provider (--list-sheets | --read --sheet NAME) <path>",
		Short:         "List sheets or read one page of an .xlsx workbook as JSON",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			switch {
			case listSheets == read:
				return fmt.Errorf("exactly one of --list-sheets or --read is required")
			case listSheets:
				return runListSheets(path, stdout)
			default:
				if sheet == "" {
					return fmt.Errorf("--sheet is required with --read")
				}
				return runRead(path, sheet, page, size, stdout)
			}
		},
	}

	rootCmd.Flags().BoolVar(&listSheets, "list-sheets", false, "List sheets with their header columns")
	rootCmd.Flags().BoolVar(&read, "read", false, "Read one page of rows")
	rootCmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (with --read)")
	rootCmd.Flags().IntVar(&page, "page", 1, "1-based page number (with --read)")
	rootCmd.Flags().IntVar(&size, "size", 50, "Rows per page (with --read)")

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stderr)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, domainErrors.ReasonOf(err))
		return provider.ExitCodeForKind(domainErrors.KindOf(err))
	}
	return provider.ExitOK
}

func runListSheets(path string, stdout io.Writer) error {
	r, err := workbook.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	sheets, err := r.Sheets()
	if err != nil {
		return err
	}
	return json.NewEncoder(stdout).Encode(sheets)
}

func runRead(path, sheet string, page, size int, stdout io.Writer) error {
	r, err := workbook.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	rows, err := r.Page(sheet, page, size)
	if err != nil {
		return err
	}
	return json.NewEncoder(stdout).Encode(rows)
}
