package xrotate

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// TimeTrigger 当事件时间到达下一周期起点时触发
//
// 周期由文件模式中日期的最小单位决定，interval 为跨越的单位数。
// modulate 为 true 时边界对齐到 interval 的整数倍（如每 6 小时落在 0/6/12/18 点）。
// maxRandomDelay 为每次计算出的边界追加 [0, maxRandomDelay) 的随机延迟，
// 错开大量进程在同一时刻的轮转。
type TimeTrigger struct {
	interval       int
	modulate       bool
	maxRandomDelay time.Duration

	next atomic.Int64 // UnixNano
}

var (
	_ TriggeringPolicy = (*TimeTrigger)(nil)
	_ RolloverObserver = (*TimeTrigger)(nil)
)

// NewTimeTrigger 创建时间触发策略，interval 为 0 时按 1 处理
func NewTimeTrigger(interval int, modulate bool, maxRandomDelay time.Duration) (*TimeTrigger, error) {
	if interval < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidInterval, interval)
	}
	if maxRandomDelay < 0 {
		return nil, fmt.Errorf("%w: negative random delay %s", ErrInvalidInterval, maxRandomDelay)
	}
	return &TimeTrigger{
		interval:       max(interval, 1),
		modulate:       modulate,
		maxRandomDelay: maxRandomDelay,
	}, nil
}

// Initialize 实现 TriggeringPolicy，以当前文件时间计算第一个边界
func (t *TimeTrigger) Initialize(m *Manager) error {
	p := m.PatternProcessor()
	if !p.HasDate() {
		return fmt.Errorf("%w: %s", ErrNoDateInPattern, p.Pattern())
	}
	from := m.FileTime()
	if from.IsZero() {
		from = m.now()
	}
	t.recompute(m, from)
	return nil
}

// IsTriggeringEvent 实现 TriggeringPolicy。空文件不触发。
func (t *TimeTrigger) IsTriggeringEvent(m *Manager, ev Event) bool {
	if ev.Startup || m.FileSize() == 0 {
		return false
	}
	return ev.Time.UnixNano() >= t.next.Load()
}

// OnRollover 实现 RolloverObserver，以轮转时刻重新计算边界
func (t *TimeTrigger) OnRollover(m *Manager, now time.Time) {
	t.recompute(m, now)
}

// NextRollover 返回下一次轮转边界
func (t *TimeTrigger) NextRollover() time.Time {
	return time.Unix(0, t.next.Load())
}

func (t *TimeTrigger) recompute(m *Manager, from time.Time) {
	next := m.PatternProcessor().NextTime(from, t.interval, t.modulate)
	if t.maxRandomDelay > 0 {
		next = next.Add(time.Duration(rand.Int64N(int64(t.maxRandomDelay)))) //nolint:gosec // 仅用于错峰
	}
	t.next.Store(next.UnixNano())
}

// String 便于日志输出
func (t *TimeTrigger) String() string {
	return fmt.Sprintf("TimeTrigger[interval=%d modulate=%t next=%s]",
		t.interval, t.modulate, t.NextRollover().Format(time.RFC3339))
}
