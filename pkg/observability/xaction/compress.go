package xaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/omeyang/xroll/pkg/util/xfile"
)

// TempSuffix 压缩过程中临时文件的后缀
const TempSuffix = ".tmp"

// Compress 压缩动作
type Compress struct {
	Source string
	Target string
	Codec  Codec
	// Level 压缩级别，LevelDefault 使用编码器默认值
	Level int
	// KeepSource 为 true 时压缩后保留源文件
	KeepSource bool
}

var _ Action = (*Compress)(nil)

// NewCompress 按目标文件扩展名从 reg 查找编码器（reg 为 nil 时用默认注册表）
func NewCompress(source, target string, level int, reg *Registry) (*Compress, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	c, ok := reg.ForFile(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCodec, target)
	}
	return &Compress{Source: source, Target: target, Codec: c, Level: level}, nil
}

// Execute 实现 Action。源文件不存在返回 (false, nil)。
//
// 先写 Target+".tmp"，成功后重命名为 Target 再删除源文件。
// 失败时清理临时文件，源文件保持不变。
func (c *Compress) Execute(ctx context.Context) (bool, error) {
	if c.Codec == nil {
		return false, fmt.Errorf("%w: %s", ErrNoCodec, c.Target)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	in, err := os.Open(c.Source) //nolint:gosec // 路径来自文件模式
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	info, err := in.Stat()
	if err != nil {
		_ = in.Close()
		return false, err
	}

	err = transcode(ctx, in, c.Target, info.Mode().Perm(), func(w io.Writer) (io.WriteCloser, error) {
		return c.Codec.NewWriter(w, filepath.Base(c.Source), c.Level)
	})
	// 源文件需在删除前关闭（Windows）
	_ = in.Close()
	if err != nil {
		return false, fmt.Errorf("xaction: %s compress %s: %w", c.Codec.Name(), c.Source, err)
	}

	if c.KeepSource {
		return true, nil
	}
	if err := os.Remove(c.Source); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return true, fmt.Errorf("%w: %s: %w", ErrDeleteSource, c.Source, err)
	}
	return true, nil
}

// String 便于日志输出
func (c *Compress) String() string {
	name := "?"
	if c.Codec != nil {
		name = c.Codec.Name()
	}
	return fmt.Sprintf("Compress[%s %s -> %s]", name, c.Source, c.Target)
}

// Decompress 解压动作，与 Compress 对称
type Decompress struct {
	Source     string
	Target     string
	Codec      Codec
	KeepSource bool
}

var _ Action = (*Decompress)(nil)

// Execute 实现 Action。源文件不存在返回 (false, nil)。
func (d *Decompress) Execute(ctx context.Context) (bool, error) {
	if d.Codec == nil {
		return false, fmt.Errorf("%w: %s", ErrNoCodec, d.Source)
	}
	in, err := os.Open(d.Source) //nolint:gosec // 路径由调用方控制
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	info, err := in.Stat()
	if err != nil {
		_ = in.Close()
		return false, err
	}
	rc, err := d.Codec.NewReader(in)
	if err != nil {
		_ = in.Close()
		return false, fmt.Errorf("xaction: %s open %s: %w", d.Codec.Name(), d.Source, err)
	}

	err = transcode(ctx, rc, d.Target, info.Mode().Perm(), func(w io.Writer) (io.WriteCloser, error) {
		return nopWriteCloser{w}, nil
	})
	err = errors.Join(err, rc.Close())
	_ = in.Close()
	if err != nil {
		return false, fmt.Errorf("xaction: %s decompress %s: %w", d.Codec.Name(), d.Source, err)
	}
	if !d.KeepSource {
		if err := os.Remove(d.Source); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return true, fmt.Errorf("%w: %s: %w", ErrDeleteSource, d.Source, err)
		}
	}
	return true, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// ctxReader 在每次 Read 前检查 ctx，使长时间压缩可被取消
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// transcode 把 src 经 wrap 写入 target+".tmp"，成功后重命名为 target
func transcode(ctx context.Context, src io.Reader, target string, perm fs.FileMode,
	wrap func(io.Writer) (io.WriteCloser, error)) (err error) {
	if err := xfile.EnsureDir(target); err != nil {
		return err
	}
	tmp := target + TempSuffix
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // 权限沿用源文件
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	w, err := wrap(out)
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, ctxReader{ctx: ctx, r: src}); err != nil {
		_ = w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err = os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
