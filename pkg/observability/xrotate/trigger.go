package xrotate

import (
	"context"
	"errors"
	"time"
)

// Event 一次触发评估的输入
type Event struct {
	// Time 事件时间（写入时为日志时间，缺省为管理器时钟）
	Time time.Time

	// Size 即将写入的字节数，启动评估时为 0
	Size int64

	// Startup 为 true 表示管理器初始化时的一次性评估
	Startup bool
}

// TriggeringPolicy 触发策略
//
// IsTriggeringEvent 在管理器锁内、每次写入前调用，必须快速且无阻塞 I/O。
// 实现不应 panic；即使 panic 也会被管理器恢复并视为不触发。
type TriggeringPolicy interface {
	// Initialize 在管理器打开文件后调用一次
	Initialize(m *Manager) error

	// IsTriggeringEvent 报告是否需要在本次写入前轮转
	IsTriggeringEvent(m *Manager, ev Event) bool
}

// RolloverObserver 可选能力：每次轮转尝试（无论成败）后在锁内调用
type RolloverObserver interface {
	OnRollover(m *Manager, now time.Time)
}

// Stopper 可选能力：管理器关闭或替换策略时调用，在获取管理器锁之前执行
type Stopper interface {
	Stop(ctx context.Context) error
}

// =============================================================================
// CompositeTrigger
// =============================================================================

// CompositeTrigger 按声明顺序对子策略取逻辑或，遇到第一个 true 即返回。
// 初始化、轮转通知与停止会分发给全部子策略。
type CompositeTrigger struct {
	policies []TriggeringPolicy
}

var (
	_ TriggeringPolicy = (*CompositeTrigger)(nil)
	_ RolloverObserver = (*CompositeTrigger)(nil)
	_ Stopper          = (*CompositeTrigger)(nil)
)

// NewCompositeTrigger 组合多个策略，nil 被忽略
func NewCompositeTrigger(policies ...TriggeringPolicy) *CompositeTrigger {
	c := &CompositeTrigger{}
	for _, p := range policies {
		if p != nil {
			c.policies = append(c.policies, p)
		}
	}
	return c
}

// Policies 返回子策略副本
func (c *CompositeTrigger) Policies() []TriggeringPolicy {
	return append([]TriggeringPolicy(nil), c.policies...)
}

// Initialize 实现 TriggeringPolicy。
// 任一子策略失败时停止已初始化的子策略并返回错误。
func (c *CompositeTrigger) Initialize(m *Manager) error {
	for i, p := range c.policies {
		if err := p.Initialize(m); err != nil {
			stopAll(context.Background(), c.policies[:i])
			return err
		}
	}
	return nil
}

// IsTriggeringEvent 实现 TriggeringPolicy
func (c *CompositeTrigger) IsTriggeringEvent(m *Manager, ev Event) bool {
	for _, p := range c.policies {
		if p.IsTriggeringEvent(m, ev) {
			return true
		}
	}
	return false
}

// OnRollover 实现 RolloverObserver
func (c *CompositeTrigger) OnRollover(m *Manager, now time.Time) {
	for _, p := range c.policies {
		if o, ok := p.(RolloverObserver); ok {
			o.OnRollover(m, now)
		}
	}
}

// Stop 实现 Stopper
func (c *CompositeTrigger) Stop(ctx context.Context) error {
	return stopAll(ctx, c.policies)
}

func stopAll(ctx context.Context, policies []TriggeringPolicy) error {
	var errs []error
	for _, p := range policies {
		if s, ok := p.(Stopper); ok {
			if err := s.Stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// stopPolicy 停止单个策略（若支持）
func stopPolicy(ctx context.Context, p TriggeringPolicy) error {
	if s, ok := p.(Stopper); ok {
		return s.Stop(ctx)
	}
	return nil
}
