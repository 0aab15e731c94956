// Package xstatus 提供滚动文件子系统的状态（诊断）日志通道。
//
// 轮转失败、压缩失败、触发策略异常等内部事件不会返回给写入方，
// 而是通过 [Logger] 接口上报。[StatusLogger] 是默认实现：
//
//   - 基于 log/slog，支持 text/json 格式和动态级别
//   - 保留最近 N 条记录的环形缓冲区（[StatusLogger.Entries]），便于测试与诊断
//   - 可注册监听器（[StatusLogger.AddListener]），监听器 panic 被隔离
//   - 可输出到按大小轮转的独立状态文件（lumberjack）
//
// 状态文件永远不经过被监控的文件管理器，避免 "写失败 → 上报 → 再写" 的递归。
//
// Logger 只要求四个级别方法，任何基于 slog 的日志器都可以简单适配。
package xstatus
