// Package xconf 加载滚动文件子系统的配置，并据此构建、热更新 appender。
//
// # 配置源
//
// Source 基于 koanf，支持 YAML（.yaml/.yml）与 JSON（.json）：
//   - Open / OpenBytes 创建配置源，Load / LoadBytes 直接解码为 [Config]
//   - Client() 暴露底层 koanf 实例，Reload() 重新读取文件
//   - Reload 通过互斥锁串行化，解析成功后原子替换 koanf 实例；解析失败保留旧配置
//
// 解码使用 mapstructure，允许弱类型转换（"8080" 可转为 int），
// 时长字段接受 "30s" 形式。
//
// # 构建
//
// Build 把单个 [AppenderConfig] 转换为触发策略、轮转策略和删除动作，
// 再通过 xrotate.Registry 获取共享管理器：
//   - policies 中配置多个策略时组合为任一触发
//   - strategy.type 为 default（按序号重命名）或 direct（直写）
//   - strategy.delete 条件可嵌套：file_name、last_modified、accumulated_size、
//     accumulated_count、all、any、not
//
// # 运行时
//
// Runtime.Apply 先获取新配置的全部 appender，成功后才释放旧的。
// 指向同一文件的 appender 在整个过程中共享同一个管理器，
// 活动文件不会被关闭，只替换触发策略与轮转策略。
// 任一 appender 构建失败时新配置整体作废，旧 appender 继续工作。
//
// 状态日志（status 段）在首次 Apply 时创建；之后只有级别可以热更新。
//
// # 配置监视
//
// Watch 基于 fsnotify 监视配置文件所在目录，内置防抖，支持 vim/emacs 原子写入。
// 配合 Runtime.OnChange 即可热加载：
//
//	w, err := xconf.Watch(src, rt.OnChange(ctx))
//	if err != nil {
//	    return err
//	}
//	w.StartAsync()
//	defer w.Stop()
//
// 从字节数据创建的 Source 不支持监视。Stop 返回后不再有新的回调开始执行。
package xconf
