// Package xfile 提供滚动文件管理所需的文件系统工具。
//
// # 路径
//
//   - [SanitizePath]: 格式净化（空路径、空字节、相对路径穿越、目录路径）
//   - [Canonical]: 绝对路径 + 符号链接解析，用作文件管理器的共享键
//   - [SplitExt]: 拆分多段扩展名（"app.log.gz" -> "app.log", ".gz"）
//
// # 文件
//
//   - [EnsureDir]: 创建父目录（默认 0750）
//   - [Exists]、[ModTime]: 基础探测，不存在不视为错误
//   - [UniqueName]: 目标已存在时追加时间戳生成不冲突的名字
//   - [CopyFile]: 跨设备重命名失败时的复制回退
//
// 所有函数都不持有状态，可并发调用。
package xfile
