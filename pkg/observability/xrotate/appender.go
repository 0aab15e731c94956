package xrotate

import (
	"context"
	"sync/atomic"
	"time"
)

// AppenderConfig appender 配置
type AppenderConfig struct {
	// Name appender 名称，用于日志
	Name string

	// FileName 活动文件路径，直写策略时为空
	FileName string

	// Pattern 归档文件模式
	Pattern string

	// IgnoreErrors 为 true 时写入错误只记录状态日志，Write 仍报告成功
	IgnoreErrors bool
}

// Appender 绑定到共享 [Manager] 的写入端
//
// 多个 appender 可以指向同一文件，通过 [Registry] 共享管理器；
// 关闭 appender 只释放引用，最后一个引用释放时管理器才关闭。
type Appender struct {
	cfg    AppenderConfig
	reg    *Registry
	m      *Manager
	closed atomic.Bool
}

// NewAppender 从注册表获取管理器并创建 appender，reg 为 nil 时使用 [DefaultRegistry]
func NewAppender(reg *Registry, cfg AppenderConfig, opts ...Option) (*Appender, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	m, err := reg.Acquire(cfg.FileName, cfg.Pattern, opts...)
	if err != nil {
		return nil, err
	}
	return &Appender{cfg: cfg, reg: reg, m: m}, nil
}

// Name 返回 appender 名称
func (a *Appender) Name() string {
	return a.cfg.Name
}

// Manager 返回共享的管理器
func (a *Appender) Manager() *Manager {
	return a.m
}

// Write 实现 io.Writer
func (a *Appender) Write(p []byte) (int, error) {
	return a.Append(time.Time{}, p)
}

// Append 以事件时间写入一条记录
func (a *Appender) Append(t time.Time, p []byte) (int, error) {
	if a.closed.Load() {
		return 0, ErrClosed
	}
	n, err := a.m.WriteEvent(p, t)
	if err != nil && a.cfg.IgnoreErrors {
		a.m.Status().Error(context.Background(), "append failed",
			"appender", a.cfg.Name, "file", a.m.FileName(), "error", err)
		return len(p), nil
	}
	return n, err
}

// Rotate 实现 Rotator
func (a *Appender) Rotate() error {
	if a.closed.Load() {
		return ErrClosed
	}
	return a.m.Rotate()
}

// Close 实现 Rotator
func (a *Appender) Close() error {
	return a.CloseContext(context.Background())
}

// CloseContext 释放管理器引用，重复调用返回 [ErrClosed]
func (a *Appender) CloseContext(ctx context.Context) error {
	if !a.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return a.reg.Release(ctx, a.m)
}
