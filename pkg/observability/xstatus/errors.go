package xstatus

import "errors"

var (
	// ErrUnknownLevel 无法识别的级别字符串
	ErrUnknownLevel = errors.New("xstatus: unknown level")

	// ErrUnknownFormat 无法识别的输出格式
	ErrUnknownFormat = errors.New("xstatus: unknown format")

	// ErrInvalidFileConfig 状态文件配置无效
	ErrInvalidFileConfig = errors.New("xstatus: invalid status file config")
)
