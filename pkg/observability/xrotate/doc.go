// Package xrotate 提供滚动日志文件的管理与轮转触发。
//
// # 组成
//
//   - [Manager]: 持有唯一的活动文件句柄，用一把互斥锁串行化写入与轮转
//   - [TriggeringPolicy]: 决定何时轮转，内置 [SizeTrigger]、[TimeTrigger]、
//     [CronTrigger]、[OnStartupTrigger] 与 [CompositeTrigger]
//   - [RolloverStrategy]: 决定轮转产出什么，内置 [DefaultStrategy]（按序号归档）
//     与 [DirectWriteStrategy]（文件名本身包含日期/序号，不重命名）
//   - [Registry]: 按规范化路径共享 Manager，引用计数，最后一个释放者关闭文件
//   - [Appender]: 面向调用方的写入端，可选择吞掉写入错误
//
// # 轮转流程
//
// 写入时在锁内评估触发策略；触发后计算 [RolloverDescription]，
// 刷新并关闭当前文件，执行同步动作（重命名），重新打开活动文件，
// 然后把异步动作（压缩、按条件删除）交给管理器的单 worker 执行器。
//
// 异步动作执行期间持有轮转许可（容量为 1 的信号量），下一次轮转会排队
// 等待，避免重命名与正在压缩的同名归档竞争。
//
// 轮转是尽力而为的：策略或动作失败只记录状态日志，写入继续落到当前文件。
//
// # 监听器
//
// [RolloverListener] 的 RolloverTriggered 在锁内、切换文件前调用；
// RolloverComplete 在异步动作完成后调用。监听器 panic 会被隔离。
// 监听器不得同步写入同一个 Manager。
package xrotate
