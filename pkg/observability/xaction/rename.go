package xaction

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/omeyang/xroll/pkg/util/xfile"
)

// 重命名重试默认值
const (
	DefaultRenameAttempts = 3
	DefaultRenameDelay    = 10 * time.Millisecond
)

// FileRename 重命名动作
//
// 空文件默认直接删除而不是重命名（RenameEmptyFiles 为 false 时），
// 避免留下没有内容的归档。
// rename 失败（如跨设备、被其他进程占用）时按重试策略重试，
// 仍失败则回退为复制后截断源文件。
type FileRename struct {
	Source           string
	Target           string
	RenameEmptyFiles bool

	// Attempts 总尝试次数，0 使用 DefaultRenameAttempts
	Attempts uint
	// Delay 重试间隔，0 使用 DefaultRenameDelay
	Delay time.Duration
}

var _ Action = (*FileRename)(nil)

// Execute 实现 Action。源文件不存在返回 (false, nil)。
func (r *FileRename) Execute(ctx context.Context) (bool, error) {
	info, err := os.Stat(r.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if info.Size() == 0 && !r.RenameEmptyFiles {
		if err := os.Remove(r.Source); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("xaction: remove empty %s: %w", r.Source, err)
		}
		return true, nil
	}

	if err := xfile.EnsureDir(r.Target); err != nil {
		return false, fmt.Errorf("xaction: prepare %s: %w", r.Target, err)
	}

	attempts := r.Attempts
	if attempts == 0 {
		attempts = DefaultRenameAttempts
	}
	delay := r.Delay
	if delay == 0 {
		delay = DefaultRenameDelay
	}

	err = retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// 源文件消失不是暂时性错误
			return !errors.Is(err, fs.ErrNotExist)
		}),
	).Do(func() error {
		return os.Rename(r.Source, r.Target)
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) || ctx.Err() != nil {
		return false, fmt.Errorf("xaction: rename %s to %s: %w", r.Source, r.Target, err)
	}

	if cerr := copyAndTruncate(r.Source, r.Target); cerr != nil {
		return false, fmt.Errorf("xaction: rename %s to %s: %w", r.Source, r.Target, errors.Join(err, cerr))
	}
	return true, nil
}

// copyAndTruncate 复制源文件后截断，源文件句柄仍被他人持有时也能腾出内容
func copyAndTruncate(src, dst string) error {
	if err := xfile.CopyFile(src, dst); err != nil {
		return err
	}
	return os.Truncate(src, 0)
}

// String 便于日志输出
func (r *FileRename) String() string {
	return fmt.Sprintf("FileRename[%s -> %s]", r.Source, r.Target)
}

// FileDelete 删除单个文件
type FileDelete struct {
	Path string
}

var _ Action = (*FileDelete)(nil)

// Execute 实现 Action。文件不存在返回 (false, nil)。
func (d *FileDelete) Execute(context.Context) (bool, error) {
	if err := os.Remove(d.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("xaction: delete %s: %w", d.Path, err)
	}
	return true, nil
}

// String 便于日志输出
func (d *FileDelete) String() string {
	return "FileDelete[" + d.Path + "]"
}
