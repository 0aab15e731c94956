package xpattern

import "errors"

var (
	// ErrEmptyPattern 模式为空
	ErrEmptyPattern = errors.New("xpattern: pattern is empty")

	// ErrMultipleDates 模式包含多个日期
	ErrMultipleDates = errors.New("xpattern: pattern contains more than one date")

	// ErrMultipleIndexes 模式包含多个序号
	ErrMultipleIndexes = errors.New("xpattern: pattern contains more than one index")

	// ErrBadDateFormat 日期格式无效
	ErrBadDateFormat = errors.New("xpattern: invalid date format")

	// ErrUnknownZone 时区 ID 无法识别
	ErrUnknownZone = errors.New("xpattern: unknown time zone")

	// ErrUnknownConverter 未知的 % 转换符
	ErrUnknownConverter = errors.New("xpattern: unknown converter")

	// ErrUnclosedOption 选项缺少右花括号
	ErrUnclosedOption = errors.New("xpattern: unclosed option")
)
