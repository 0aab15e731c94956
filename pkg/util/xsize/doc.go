// Package xsize 提供文件大小表达式的解析与格式化。
//
// 表达式形如 "10 MB"、"512KB"、"1.5 GB"、"1024"，单位按 1024 进制换算，
// 小数点可写作 "." 或 ","（"10,5 MB" 等价于 "10.5 MB"）。
//
//	n, err := xsize.Parse("10.75 MB") // 11272192
//
// 解析结果必须大于 0，否则返回 [ErrNotPositive]。
// 无法识别的表达式返回 [ErrUnsupported]，错误信息携带原始表达式。
package xsize
