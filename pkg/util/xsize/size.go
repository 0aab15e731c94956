package xsize

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
	"github.com/dustin/go-humanize"
)

// Parse 解析文件大小表达式，返回字节数。
//
// 错误信息与日志框架的状态输出保持一致：
//   - 结果不大于 0: "File size must be > 0"
//   - 无法识别: "Unsupported file size expression '<expr>'"
func Parse(expr string) (int64, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return 0, unsupported(expr)
	}
	// 逗号小数点（"10,5 MB"）统一为点号
	s = strings.ReplaceAll(s, ",", ".")
	// go-units 允许数字与单位之间最多一个空格
	s = collapseSpace(s)

	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, unsupported(expr)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: File size must be > 0", ErrNotPositive)
	}
	return n, nil
}

// ParseOr 解析失败时返回 def。
func ParseOr(expr string, def int64) int64 {
	n, err := Parse(expr)
	if err != nil {
		return def
	}
	return n
}

// MustParse 解析失败时 panic，仅用于常量初始化。
func MustParse(expr string) int64 {
	n, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return n
}

// Format 以 1024 进制输出人类可读的大小，如 "10 MiB"。
func Format(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

func unsupported(expr string) error {
	return fmt.Errorf("%w: Unsupported file size expression '%s'", ErrUnsupported, expr)
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	default:
		return fields[0] + " " + strings.Join(fields[1:], "")
	}
}
