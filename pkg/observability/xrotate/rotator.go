package xrotate

import "io"

// 编译时断言：Rotator 接口是 io.WriteCloser 的超集
var (
	_ io.WriteCloser = (Rotator)(nil)
	_ Rotator        = (*Manager)(nil)
	_ Rotator        = (*Appender)(nil)
)

// Rotator 日志轮转器接口
//
// 隐式实现 [io.WriteCloser]，可直接用于任何接受 io.Writer 或
// io.WriteCloser 的场景（如 slog.NewJSONHandler 的输出目标）。
// 额外提供 Rotate 方法用于手动触发轮转。
// 所有实现都必须是并发安全的。
//
// 实现约定：
//   - Close 后调用 Write 或 Rotate 返回 [ErrClosed]
//   - 重复 Close 返回 [ErrClosed]
//   - Rotate 可以在任意时刻调用
type Rotator interface {
	// Write 写入日志数据，满足触发条件时先轮转再写入
	Write(p []byte) (n int, err error)

	// Close 关闭轮转器，等待在途的归档动作完成
	Close() error

	// Rotate 手动触发轮转
	Rotate() error
}
