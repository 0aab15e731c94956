package xrotate

import (
	"sync/atomic"
	"time"
)

// processStart 进程启动时间，作为启动触发的默认边界
var processStart = time.Now()

// OnStartupTrigger 在管理器初始化时最多触发一次：
// 已有文件不小于 minSize 且最后修改时间早于边界。
type OnStartupTrigger struct {
	minSize  int64
	boundary time.Time
	fired    atomic.Bool
}

var _ TriggeringPolicy = (*OnStartupTrigger)(nil)

// NewOnStartupTrigger 创建启动触发策略。
// minSize 小于 0 按 0 处理（0 表示空文件也轮转）；boundary 为零值时使用进程启动时间。
func NewOnStartupTrigger(minSize int64, boundary time.Time) *OnStartupTrigger {
	if boundary.IsZero() {
		boundary = processStart
	}
	return &OnStartupTrigger{minSize: max(minSize, 0), boundary: boundary}
}

// Initialize 实现 TriggeringPolicy
func (s *OnStartupTrigger) Initialize(*Manager) error {
	return nil
}

// IsTriggeringEvent 实现 TriggeringPolicy
func (s *OnStartupTrigger) IsTriggeringEvent(m *Manager, ev Event) bool {
	if !ev.Startup || s.fired.Load() {
		return false
	}
	ft := m.FileTime()
	if ft.IsZero() || !ft.Before(s.boundary) || m.FileSize() < s.minSize {
		return false
	}
	return s.fired.CompareAndSwap(false, true)
}
