package xaction

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

var (
	_ Codec = GzipCodec{}
	_ Codec = ZipCodec{}
	_ Codec = DeflateCodec{}
	_ Codec = Bzip2Codec{}
	_ Codec = XZCodec{}
	_ Codec = ZstdCodec{}
	_ Codec = LZ4Codec{}
	_ Codec = SnappyCodec{}
	_ Codec = Pack200Codec{}
)

func validLevel(level int) bool {
	return level == LevelDefault || (level >= 0 && level <= 9)
}

func levelError(name string, level int) error {
	return fmt.Errorf("xaction: %s: invalid compression level %d", name, level)
}

// =============================================================================
// gzip
// =============================================================================

// GzipCodec .gz
type GzipCodec struct{}

// Name 实现 Codec
func (GzipCodec) Name() string { return "gzip" }

// Extension 实现 Codec
func (GzipCodec) Extension() string { return ".gz" }

// NewWriter 实现 Codec，条目名写入 gzip 头
func (GzipCodec) NewWriter(w io.Writer, entryName string, level int) (io.WriteCloser, error) {
	if !validLevel(level) {
		return nil, levelError("gzip", level)
	}
	gw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, err
	}
	gw.Name = entryName
	gw.ModTime = time.Now()
	return gw, nil
}

// NewReader 实现 Codec
func (GzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// =============================================================================
// zip
// =============================================================================

// ZipCodec .zip，单条目归档
type ZipCodec struct{}

// Name 实现 Codec
func (ZipCodec) Name() string { return "zip" }

// Extension 实现 Codec
func (ZipCodec) Extension() string { return ".zip" }

// NewWriter 实现 Codec
func (ZipCodec) NewWriter(w io.Writer, entryName string, level int) (io.WriteCloser, error) {
	if !validLevel(level) {
		return nil, levelError("zip", level)
	}
	zw := zip.NewWriter(w)
	if level != LevelDefault {
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}
	if entryName == "" {
		entryName = "log"
	}
	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entryName,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		_ = zw.Close()
		return nil, err
	}
	return &zipEntryWriter{Writer: entry, zw: zw}, nil
}

type zipEntryWriter struct {
	io.Writer
	zw *zip.Writer
}

func (z *zipEntryWriter) Close() error {
	return z.zw.Close()
}

// NewReader 实现 Codec，读取第一个条目。zip 需要随机访问，内容会整体读入内存。
func (ZipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("xaction: zip: empty archive")
	}
	return zr.File[0].Open()
}

// =============================================================================
// deflate（zlib 封装）
// =============================================================================

// DeflateCodec .deflate，使用 zlib 封装格式
type DeflateCodec struct{}

// Name 实现 Codec
func (DeflateCodec) Name() string { return "deflate" }

// Extension 实现 Codec
func (DeflateCodec) Extension() string { return ".deflate" }

// NewWriter 实现 Codec
func (DeflateCodec) NewWriter(w io.Writer, _ string, level int) (io.WriteCloser, error) {
	if !validLevel(level) {
		return nil, levelError("deflate", level)
	}
	return zlib.NewWriterLevel(w, level)
}

// NewReader 实现 Codec
func (DeflateCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(r)
}

// =============================================================================
// bzip2
// =============================================================================

// Bzip2Codec .bz2
type Bzip2Codec struct{}

// Name 实现 Codec
func (Bzip2Codec) Name() string { return "bzip2" }

// Extension 实现 Codec
func (Bzip2Codec) Extension() string { return ".bz2" }

// NewWriter 实现 Codec。bzip2 级别范围 1~9，0 按 1 处理。
func (Bzip2Codec) NewWriter(w io.Writer, _ string, level int) (io.WriteCloser, error) {
	if !validLevel(level) {
		return nil, levelError("bzip2", level)
	}
	conf := &bzip2.WriterConfig{Level: bzip2.DefaultCompression}
	if level != LevelDefault {
		conf.Level = max(level, bzip2.BestSpeed)
	}
	return bzip2.NewWriter(w, conf)
}

// NewReader 实现 Codec
func (Bzip2Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return bzip2.NewReader(r, nil)
}

// =============================================================================
// xz
// =============================================================================

// XZCodec .xz，忽略压缩级别
type XZCodec struct{}

// Name 实现 Codec
func (XZCodec) Name() string { return "xz" }

// Extension 实现 Codec
func (XZCodec) Extension() string { return ".xz" }

// NewWriter 实现 Codec
func (XZCodec) NewWriter(w io.Writer, _ string, level int) (io.WriteCloser, error) {
	if !validLevel(level) {
		return nil, levelError("xz", level)
	}
	return xz.NewWriter(w)
}

// NewReader 实现 Codec
func (XZCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

// =============================================================================
// zstd
// =============================================================================

// ZstdCodec .zst
type ZstdCodec struct{}

// Name 实现 Codec
func (ZstdCodec) Name() string { return "zstd" }

// Extension 实现 Codec
func (ZstdCodec) Extension() string { return ".zst" }

// NewWriter 实现 Codec，0~9 映射到 zstd 的等级
func (ZstdCodec) NewWriter(w io.Writer, _ string, level int) (io.WriteCloser, error) {
	if !validLevel(level) {
		return nil, levelError("zstd", level)
	}
	var opts []zstd.EOption
	if level != LevelDefault {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(max(level, 1))))
	}
	return zstd.NewWriter(w, opts...)
}

// NewReader 实现 Codec
func (ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

// =============================================================================
// lz4
// =============================================================================

// LZ4Codec .lz4（frame 格式）
type LZ4Codec struct{}

// Name 实现 Codec
func (LZ4Codec) Name() string { return "lz4" }

// Extension 实现 Codec
func (LZ4Codec) Extension() string { return ".lz4" }

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// NewWriter 实现 Codec
func (LZ4Codec) NewWriter(w io.Writer, _ string, level int) (io.WriteCloser, error) {
	if !validLevel(level) {
		return nil, levelError("lz4", level)
	}
	zw := lz4.NewWriter(w)
	if level != LevelDefault {
		if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
			return nil, err
		}
	}
	return zw, nil
}

// NewReader 实现 Codec
func (LZ4Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

// =============================================================================
// snappy（s2 兼容模式）
// =============================================================================

// SnappyCodec .sz，输出 snappy framing 格式
type SnappyCodec struct{}

// Name 实现 Codec
func (SnappyCodec) Name() string { return "snappy" }

// Extension 实现 Codec
func (SnappyCodec) Extension() string { return ".sz" }

// NewWriter 实现 Codec。snappy 没有级别，level>=7 时启用 s2 的 better 模式。
func (SnappyCodec) NewWriter(w io.Writer, _ string, level int) (io.WriteCloser, error) {
	if !validLevel(level) {
		return nil, levelError("snappy", level)
	}
	opts := []s2.WriterOption{s2.WriterSnappyCompat(), s2.WriterConcurrency(1)}
	if level >= 7 {
		opts = append(opts, s2.WriterBetterCompression())
	}
	return s2.NewWriter(w, opts...), nil
}

// NewReader 实现 Codec
func (SnappyCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(r)), nil
}

// =============================================================================
// pack200（仅识别）
// =============================================================================

// Pack200Codec .pack200。该格式是 jar 专用变换，对日志没有意义，
// 只登记扩展名，读写都返回 ErrUnsupportedCodec；压缩动作因此失败并保留源文件。
type Pack200Codec struct{}

// Name 实现 Codec
func (Pack200Codec) Name() string { return "pack200" }

// Extension 实现 Codec
func (Pack200Codec) Extension() string { return ".pack200" }

// NewWriter 实现 Codec
func (Pack200Codec) NewWriter(io.Writer, string, int) (io.WriteCloser, error) {
	return nil, fmt.Errorf("%w: pack200", ErrUnsupportedCodec)
}

// NewReader 实现 Codec
func (Pack200Codec) NewReader(io.Reader) (io.ReadCloser, error) {
	return nil, fmt.Errorf("%w: pack200", ErrUnsupportedCodec)
}
