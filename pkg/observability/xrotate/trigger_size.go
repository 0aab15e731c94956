package xrotate

import (
	"fmt"

	"github.com/omeyang/xroll/pkg/util/xsize"
)

// DefaultMaxFileSize 大小触发的默认阈值（10 MB）
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// SizeTrigger 当前文件非空且写入后将超过阈值时触发
type SizeTrigger struct {
	maxSize int64
}

var _ TriggeringPolicy = (*SizeTrigger)(nil)

// NewSizeTrigger 创建大小触发策略，maxSize 必须大于 0
func NewSizeTrigger(maxSize int64) (*SizeTrigger, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFileSize, maxSize)
	}
	return &SizeTrigger{maxSize: maxSize}, nil
}

// ParseSizeTrigger 按大小表达式（如 "10 MB"、"10,5 KB"）创建大小触发策略
func ParseSizeTrigger(expr string) (*SizeTrigger, error) {
	n, err := xsize.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFileSize, err)
	}
	return &SizeTrigger{maxSize: n}, nil
}

// MaxSize 返回阈值
func (s *SizeTrigger) MaxSize() int64 {
	return s.maxSize
}

// Initialize 实现 TriggeringPolicy
func (s *SizeTrigger) Initialize(*Manager) error {
	return nil
}

// IsTriggeringEvent 实现 TriggeringPolicy。
// 空文件从不触发，单条超大写入落到新文件而不是无限轮转。
func (s *SizeTrigger) IsTriggeringEvent(m *Manager, ev Event) bool {
	if ev.Startup {
		return false
	}
	size := m.FileSize()
	return size > 0 && size+ev.Size > s.maxSize
}

// String 便于日志输出
func (s *SizeTrigger) String() string {
	return "SizeTrigger[" + xsize.Format(s.maxSize) + "]"
}
