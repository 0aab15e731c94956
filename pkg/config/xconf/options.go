package xconf

import (
	"github.com/omeyang/xroll/pkg/observability/xrotate"
	"github.com/omeyang/xroll/pkg/observability/xstatus"
)

// Options 定义配置加载选项。
type Options struct {
	// Delim 配置键的分隔符，默认为 "."。
	Delim string

	// Tag 结构体标签名，用于 Unmarshal，默认为 "koanf"。
	Tag string
}

// Option 定义配置选项函数类型。
type Option func(*Options)

// defaultOptions 返回默认配置选项。
func defaultOptions() *Options {
	return &Options{
		Delim: ".",
		Tag:   "koanf",
	}
}

func applyOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithDelim 设置配置键分隔符。
// 默认为 "."，例如 "appenders.0.file_name"。空字符串被忽略。
func WithDelim(delim string) Option {
	return func(o *Options) {
		if delim != "" {
			o.Delim = delim
		}
	}
}

// WithTag 设置结构体标签名。
// 默认为 "koanf"，用于 Unmarshal 时的字段映射。空字符串被忽略。
func WithTag(tag string) Option {
	return func(o *Options) {
		if tag != "" {
			o.Tag = tag
		}
	}
}

// =============================================================================
// Runtime 选项
// =============================================================================

type runtimeOptions struct {
	registry *xrotate.Registry
	status   *xstatus.StatusLogger
	manager  []xrotate.Option
}

// RuntimeOption Runtime 配置选项
type RuntimeOption func(*runtimeOptions)

// WithRegistry 指定管理器注册表，默认 [xrotate.DefaultRegistry]
func WithRegistry(reg *xrotate.Registry) RuntimeOption {
	return func(o *runtimeOptions) {
		if reg != nil {
			o.registry = reg
		}
	}
}

// WithStatusLogger 使用外部状态日志，忽略配置中的 status 段。
// 外部传入的状态日志不随 Runtime 关闭。
func WithStatusLogger(l *xstatus.StatusLogger) RuntimeOption {
	return func(o *runtimeOptions) {
		if l != nil {
			o.status = l
		}
	}
}

// WithManagerOptions 追加到每个 appender 的管理器选项之前（配置项优先）
func WithManagerOptions(opts ...xrotate.Option) RuntimeOption {
	return func(o *runtimeOptions) {
		o.manager = append(o.manager, opts...)
	}
}
