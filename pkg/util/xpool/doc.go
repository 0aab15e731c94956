// Package xpool 提供泛型 worker pool，用作滚动文件管理器的异步动作执行器。
//
// 每个文件管理器持有一个单 worker 的 Pool，压缩、清理等异步动作按提交顺序
// 串行执行，不占用写入路径的锁。
//
// 特性：
//   - 泛型任务类型
//   - worker 数量 [1, 65536]，队列大小 [1, 16777216]
//   - Submit 非阻塞，队列满返回 [ErrQueueFull]
//   - SubmitWait 阻塞直到入队或 ctx 结束，用于不可丢弃的任务
//   - 优雅关闭：Close 处理完队列中的任务后返回
//   - 超时关闭：Shutdown(ctx) 到期后立即返回，残留 worker 可通过 Done() 等待
//   - panic 恢复：单个任务失败不影响 pool，日志默认只记录 task 类型
//
// # 注意事项
//
//   - Close/Shutdown 不可在 handler 内调用，否则会死锁
//   - panic 的任务不会被重试
//   - New 创建后自动启动 worker
//
// 设计决策: New 返回 *Pool[T] 而非接口。xpool 不需要多实现替换，
// 编译期通过 io.Closer 断言确保关闭契约。
package xpool
