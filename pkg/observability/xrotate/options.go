package xrotate

import (
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xroll/pkg/observability/xpattern"
	"github.com/omeyang/xroll/pkg/observability/xstatus"
)

// Manager 默认配置值
const (
	// DefaultFileMode 新建日志文件的默认权限
	DefaultFileMode os.FileMode = 0o600

	// DefaultBufferSize 默认写缓冲大小
	DefaultBufferSize = 8 * 1024

	// DefaultDrainTimeout 等待异步动作完成的默认上限
	DefaultDrainTimeout = 30 * time.Second

	// maxBufferSize 写缓冲上限
	maxBufferSize = 64 << 20
)

type config struct {
	policy         TriggeringPolicy
	strategy       RolloverStrategy
	fileMode       os.FileMode
	bufferSize     int
	immediateFlush bool
	createOnDemand bool
	append         bool
	drainTimeout   time.Duration
	clock          func() time.Time
	status         xstatus.Logger
	meterProvider  metric.MeterProvider
	patternOpts    []xpattern.Option
}

// Option Manager 配置选项
type Option func(*config)

func defaultConfig() config {
	return config{
		fileMode:       DefaultFileMode,
		bufferSize:     DefaultBufferSize,
		immediateFlush: true,
		append:         true,
		drainTimeout:   DefaultDrainTimeout,
		clock:          time.Now,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (c *config) validate() error {
	if c.policy == nil {
		return ErrNilPolicy
	}
	if c.fileMode&^os.FileMode(0o777) != 0 {
		return fmt.Errorf("%w: got %04o, only permission bits (0000~0777) allowed",
			ErrInvalidFileMode, c.fileMode)
	}
	if c.bufferSize < 0 || c.bufferSize > maxBufferSize {
		return fmt.Errorf("%w: %d", ErrInvalidBufferSize, c.bufferSize)
	}
	return nil
}

// WithPolicy 设置触发策略（必需）
func WithPolicy(p TriggeringPolicy) Option {
	return func(c *config) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithStrategy 设置轮转策略，默认 [NewDefaultStrategy] 的默认配置
func WithStrategy(s RolloverStrategy) Option {
	return func(c *config) {
		if s != nil {
			c.strategy = s
		}
	}
}

// WithFileMode 设置新建文件权限，仅允许低 9 位，默认 0600
func WithFileMode(mode os.FileMode) Option {
	return func(c *config) {
		c.fileMode = mode
	}
}

// WithBufferSize 设置写缓冲大小，0 表示不缓冲
func WithBufferSize(n int) Option {
	return func(c *config) {
		c.bufferSize = n
	}
}

// WithImmediateFlush 每次写入后是否立即刷新缓冲，默认 true
func WithImmediateFlush(flush bool) Option {
	return func(c *config) {
		c.immediateFlush = flush
	}
}

// WithCreateOnDemand 首次写入时才创建文件（轮转后同样延迟到下一次写入）
func WithCreateOnDemand(onDemand bool) Option {
	return func(c *config) {
		c.createOnDemand = onDemand
	}
}

// WithAppend 启动时是否追加到已有文件，默认 true；false 时截断
func WithAppend(appendMode bool) Option {
	return func(c *config) {
		c.append = appendMode
	}
}

// WithDrainTimeout 设置等待异步动作的上限（轮转许可等待与关闭时排空共用）
func WithDrainTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.drainTimeout = d
		}
	}
}

// WithClock 注入时钟，用于测试
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithStatus 设置状态日志，默认 [xstatus.Default]
func WithStatus(l xstatus.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.status = l
		}
	}
}

// WithMeterProvider 设置指标 MeterProvider，默认 otel 全局
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// WithPatternOptions 传递给文件模式解析（时区、区域）
func WithPatternOptions(opts ...xpattern.Option) Option {
	return func(c *config) {
		c.patternOpts = append(c.patternOpts, opts...)
	}
}
