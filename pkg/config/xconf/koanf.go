package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Source 配置源，持有解析后的 koanf 实例。
// 从文件创建的 Source 可以 Reload 和 Watch。
type Source struct {
	k        atomic.Pointer[koanf.Koanf]
	reloadMu sync.Mutex
	path     string
	format   Format
	opts     *Options
	isBytes  bool
}

// Open 从文件路径创建配置源。
// 根据文件扩展名自动检测格式（.yaml/.yml 或 .json）。
func Open(path string, opts ...Option) (*Source, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	s := &Source{path: path, format: format, opts: applyOptions(opts)}
	k, err := s.parse(data)
	if err != nil {
		return nil, err
	}
	s.k.Store(k)
	return s, nil
}

// OpenBytes 从字节数据创建配置源，需要显式指定格式，适用于 K8s ConfigMap 等场景。
// 空数据创建空配置源。
func OpenBytes(data []byte, format Format, opts ...Option) (*Source, error) {
	if !isValidFormat(format) {
		return nil, ErrUnsupportedFormat
	}
	s := &Source{format: format, opts: applyOptions(opts), isBytes: true}
	k, err := s.parse(data)
	if err != nil {
		return nil, err
	}
	s.k.Store(k)
	return s, nil
}

// Load 读取并解码配置文件。
func Load(path string, opts ...Option) (*Config, error) {
	s, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return s.Config()
}

// LoadBytes 解码字节数据形式的配置。
func LoadBytes(data []byte, format Format, opts ...Option) (*Config, error) {
	s, err := OpenBytes(data, format, opts...)
	if err != nil {
		return nil, err
	}
	return s.Config()
}

// Client 返回当前的 koanf 实例。
// Reload 后旧指针仍可用，但指向旧配置。
func (s *Source) Client() *koanf.Koanf {
	return s.k.Load()
}

// Unmarshal 将指定路径的配置反序列化到目标结构体，path 为空时反序列化整个配置。
func (s *Source) Unmarshal(path string, target any) error {
	if err := s.k.Load().UnmarshalWithConf(path, target, koanf.UnmarshalConf{
		Tag: s.opts.Tag,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Config 解码为 [Config] 并校验
func (s *Source) Config() (*Config, error) {
	var cfg Config
	if err := s.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Reload 重新读取配置文件。解析失败时保留原配置。
func (s *Source) Reload() error {
	if s.isBytes {
		return ErrNotReloadable
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := s.parse(data)
	if err != nil {
		return err
	}
	s.k.Store(k)
	return nil
}

// Path 返回配置文件路径，从字节数据创建时为空。
func (s *Source) Path() string {
	return s.path
}

// Format 返回配置格式。
func (s *Source) Format() Format {
	return s.format
}

func (s *Source) parse(data []byte) (*koanf.Koanf, error) {
	k := koanf.New(s.opts.Delim)
	if len(data) == 0 {
		return k, nil
	}
	if err := loadData(k, data, s.format); err != nil {
		return nil, err
	}
	return k, nil
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// detectFormat 根据文件扩展名检测配置格式。
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

// isValidFormat 检查格式是否有效。
func isValidFormat(format Format) bool {
	switch format {
	case FormatYAML, FormatJSON:
		return true
	default:
		return false
	}
}

// loadData 加载数据到 koanf 实例。
func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return ErrUnsupportedFormat
	}

	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}
