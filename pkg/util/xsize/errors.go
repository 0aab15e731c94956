package xsize

import "errors"

var (
	// ErrUnsupported 表达式格式无法识别
	ErrUnsupported = errors.New("xsize: unsupported expression")

	// ErrNotPositive 解析结果不大于 0
	ErrNotPositive = errors.New("xsize: size must be positive")
)
