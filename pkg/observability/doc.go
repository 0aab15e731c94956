// Package observability 提供日志文件滚动相关的子包。
//
// 子包列表：
//   - xpattern: 文件模式解析（%d{...} 日期、%i 序号），计算下一个滚动时刻
//   - xrotate: 滚动文件管理器、触发策略、轮转策略、共享注册表与 appender
//   - xaction: 滚动动作，重命名、压缩/解压、按条件删除
//   - xstatus: 子系统自身的状态日志，基于 log/slog
//
// 依赖方向：xrotate 依赖 xpattern、xaction、xstatus；xaction 只依赖 xstatus。
//
// 设计原则：
//   - 活动文件句柄只在管理器锁内访问，轮转期间写入阻塞而不丢失
//   - 压缩与删除在后台执行，不阻塞写入路径
//   - 指标遵循 OpenTelemetry 语义规范
package observability
