package xaction

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// LevelDefault 使用编码器自身的默认压缩级别
const LevelDefault = -1

// Codec 压缩编码器
type Codec interface {
	// Name 返回编码器名称，如 "gzip"
	Name() string

	// Extension 返回带点的文件扩展名，如 ".gz"
	Extension() string

	// NewWriter 包装 w。entryName 为归档内条目名（zip 等容器格式使用）；
	// level 为 0~9 的压缩级别，LevelDefault 表示默认值。
	// 调用方关闭返回的 WriteCloser 后负责关闭 w。
	NewWriter(w io.Writer, entryName string, level int) (io.WriteCloser, error)

	// NewReader 返回解压读取器，关闭它不会关闭 r
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// Registry 编码器注册表，按扩展名索引，并发安全
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry 创建注册表
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Register 注册编码器，同扩展名覆盖旧值。nil 被忽略。
func (r *Registry) Register(c Codec) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[strings.ToLower(c.Extension())] = c
}

// Lookup 按扩展名（可不带点）查找编码器
func (r *Registry) Lookup(ext string) (Codec, bool) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[ext]
	return c, ok
}

// MustLookup 查找失败时返回 ErrNoCodec
func (r *Registry) MustLookup(ext string) (Codec, error) {
	c, ok := r.Lookup(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoCodec, ext)
	}
	return c, nil
}

// ForFile 返回与文件名后缀匹配的编码器（最长扩展名优先）
func (r *Registry) ForFile(name string) (Codec, bool) {
	lower := strings.ToLower(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best Codec
	for ext, c := range r.codecs {
		if strings.HasSuffix(lower, ext) && len(lower) > len(ext) {
			if best == nil || len(ext) > len(best.Extension()) {
				best = c
			}
		}
	}
	return best, best != nil
}

// Extensions 返回已注册扩展名，按字典序
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry 返回包含全部内置编码器的共享注册表，另登记仅识别的 .pack200
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(append(BuiltinCodecs(), Pack200Codec{})...)
	})
	return defaultRegistry
}

// BuiltinCodecs 返回全部可用的内置编码器
func BuiltinCodecs() []Codec {
	return []Codec{
		GzipCodec{},
		ZipCodec{},
		DeflateCodec{},
		Bzip2Codec{},
		XZCodec{},
		ZstdCodec{},
		LZ4Codec{},
		SnappyCodec{},
	}
}
