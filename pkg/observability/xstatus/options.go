package xstatus

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// 默认配置
const (
	// DefaultCapacity 环形缓冲区默认容量
	DefaultCapacity = 256

	// DefaultFileMaxSizeMB 状态文件默认轮转大小
	DefaultFileMaxSizeMB = 10

	// DefaultFileMaxBackups 状态文件默认保留份数
	DefaultFileMaxBackups = 3
)

// FileConfig 状态文件配置
type FileConfig struct {
	// Path 状态文件路径
	Path string `koanf:"path"`

	// MaxSizeMB 单文件最大大小（MB），0 使用默认值
	MaxSizeMB int `koanf:"max_size_mb"`

	// MaxBackups 保留的历史文件数量，0 使用默认值
	MaxBackups int `koanf:"max_backups"`

	// MaxAgeDays 历史文件保留天数，0 表示不按天数清理
	MaxAgeDays int `koanf:"max_age_days"`

	// Compress 是否 gzip 压缩历史文件
	Compress bool `koanf:"compress"`
}

type config struct {
	level    Level
	format   string
	output   io.Writer
	file     *FileConfig
	capacity int
	name     string
	err      error
}

// Option 配置选项
type Option func(*config)

func defaultConfig() config {
	return config{
		level:    LevelWarn,
		format:   "text",
		output:   os.Stderr,
		capacity: DefaultCapacity,
	}
}

// WithLevel 设置最低输出级别，默认 WARN
func WithLevel(l Level) Option {
	return func(c *config) {
		c.level = l
	}
}

// WithFormat 设置输出格式：text 或 json
func WithFormat(format string) Option {
	return func(c *config) {
		f := strings.ToLower(strings.TrimSpace(format))
		switch f {
		case "":
			c.format = "text"
		case "text", "json":
			c.format = f
		default:
			c.err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
		}
	}
}

// WithOutput 设置输出目标，默认 os.Stderr。传入 nil 被忽略。
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithFile 输出到按大小轮转的状态文件，覆盖 WithOutput
func WithFile(fc FileConfig) Option {
	return func(c *config) {
		cp := fc
		c.file = &cp
	}
}

// WithCapacity 设置环形缓冲区容量，小于 1 时关闭缓冲
func WithCapacity(n int) Option {
	return func(c *config) {
		c.capacity = n
	}
}

// WithName 设置来源名称，作为固定属性 "component" 输出
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}
