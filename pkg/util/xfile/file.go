package xfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// uniqueTimeFormat 冲突消歧使用的时间格式，不含 ':' 以兼容 Windows 文件名
const uniqueTimeFormat = "20060102T150405.000"

// maxUniqueAttempts 同一毫秒内的计数后缀上限
const maxUniqueAttempts = 1000

// ModTime 返回文件修改时间。文件不存在时返回零值和 nil。
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Size 返回文件大小。文件不存在时返回 0 和 nil。
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}

// UniqueName 返回一个当前不存在的文件名。
//
// path 不存在时原样返回；否则在扩展名前插入时间戳（exts 指定需要保留在末尾的
// 扩展名，如 ".gz"），仍冲突时追加递增计数：
//
//	app.log      -> app-20240102T150405.000.log
//	app.log.gz   -> app.log-20240102T150405.000.gz   (exts 含 ".gz")
//	             -> app.log-20240102T150405.000-1.gz
func UniqueName(path string, t time.Time, exts ...string) (string, error) {
	return UniqueNameFunc(path, t, Exists, exts...)
}

// UniqueNameFunc 与 [UniqueName] 相同，但由 taken 判断名称是否已被占用，
// 便于调用方把尚未落盘的计划（如待执行的重命名）一并考虑。
func UniqueNameFunc(path string, t time.Time, taken func(string) bool, exts ...string) (string, error) {
	if !taken(path) {
		return path, nil
	}
	dir, name := filepath.Split(path)
	stem, ext := SplitExt(name, exts...)
	if ext == "" {
		ext = filepath.Ext(stem)
		stem = strings.TrimSuffix(stem, ext)
	}
	prefix := stem + "-" + t.Format(uniqueTimeFormat)
	candidate := filepath.Join(dir, prefix+ext)
	for i := 1; taken(candidate); i++ {
		if i > maxUniqueAttempts {
			return "", fmt.Errorf("%w: %s", ErrNoUniqueName, path)
		}
		candidate = filepath.Join(dir, prefix+"-"+strconv.Itoa(i)+ext)
	}
	return candidate, nil
}

// CopyFile 将 src 的内容复制到 dst（截断或新建），保留 src 的权限位。
// 用于 rename 跨设备失败时的回退。dst 写入失败时会被删除。
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src) //nolint:gosec // 路径由调用方控制
	if err != nil {
		return err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := EnsureDir(dst); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()) //nolint:gosec // 路径由调用方控制
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err = out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}
