// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xfile: 文件操作工具，目录创建、路径校验、跨设备重命名
//   - xpool: 泛型 Worker Pool，可配置 worker/队列大小、优雅关闭
//   - xsize: 文件大小表达式解析与格式化
//
// 设计原则：
//   - 安全处理路径遍历和符号链接
//   - 跨平台兼容
package util
