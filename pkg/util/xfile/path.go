package xfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func containsNullByte(path string) bool {
	return strings.ContainsRune(path, 0)
}

// hasDotDotSegment 检测 ".." 是否作为独立路径段出现。
// "app..2024.log" 这类文件名不算穿越。'/' 与 '\' 都视为分隔符。
func hasDotDotSegment(path string) bool {
	i := 0
	for i < len(path) {
		if path[i] == '/' || path[i] == '\\' {
			i++
			continue
		}
		j := i
		for j < len(path) && path[j] != '/' && path[j] != '\\' {
			j++
		}
		if j-i == 2 && path[i] == '.' && path[i+1] == '.' {
			return true
		}
		i = j
	}
	return false
}

// SanitizePath 对文件路径做格式净化并返回规范化结果。
//
// 拒绝空路径、空字节、相对路径穿越以及以分隔符结尾的目录路径。
// 绝对路径中的 ".." 由 filepath.Clean 正常解析，不视为穿越。
func SanitizePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required: %w", ErrEmptyPath)
	}
	if containsNullByte(filename) {
		return "", fmt.Errorf("filename contains null byte: %w", ErrNullByte)
	}
	// Clean 会移除尾部分隔符，必须先检查
	if strings.HasSuffix(filename, "/") || strings.HasSuffix(filename, "\\") {
		return "", fmt.Errorf("path is a directory: %w", ErrInvalidPath)
	}

	cleaned := filepath.Clean(filename)
	if !filepath.IsAbs(cleaned) && hasDotDotSegment(cleaned) {
		return "", fmt.Errorf("path traversal in filename: %w", ErrPathTraversal)
	}

	base := filepath.Base(cleaned)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("no file name specified: %w", ErrInvalidPath)
	}
	return cleaned, nil
}

// Canonical 返回文件的规范路径：绝对化并解析已存在部分的符号链接。
//
// 文件本身可以不存在（首次创建前），此时解析其父目录后再拼回文件名。
// 同一物理文件的不同写法（相对路径、经由符号链接）得到相同结果。
func Canonical(filename string) (string, error) {
	cleaned, err := SanitizePath(filename)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("xfile: abs %s: %w", cleaned, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	dir, name := filepath.Split(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(resolved, name), nil
	}
	return abs, nil
}

// SplitExt 按给定扩展名集合拆分文件名。
//
// 匹配最长的已知扩展名；没有匹配时返回原名和空串。
//
//	SplitExt("app.log.gz", ".gz", ".zip") // "app.log", ".gz"
func SplitExt(name string, exts ...string) (string, string) {
	best := ""
	for _, ext := range exts {
		if ext != "" && len(ext) > len(best) && strings.HasSuffix(name, ext) && len(name) > len(ext) {
			best = ext
		}
	}
	return strings.TrimSuffix(name, best), best
}

// Exists 报告路径是否存在。除 "不存在" 以外的 stat 错误一律按存在处理，
// 调用方据此不会覆盖无法确认状态的文件。
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !os.IsNotExist(err)
}
