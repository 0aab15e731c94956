package xaction

import "errors"

var (
	// ErrNoCodec 没有与扩展名匹配的编码器
	ErrNoCodec = errors.New("xaction: no codec for extension")

	// ErrInvalidCondition 删除条件配置无效
	ErrInvalidCondition = errors.New("xaction: invalid condition")

	// ErrInvalidAge 时长表达式无效
	ErrInvalidAge = errors.New("xaction: invalid age")

	// ErrDeleteSource 压缩成功但源文件删除失败
	ErrDeleteSource = errors.New("xaction: cannot delete source")

	// ErrUnsupportedCodec 扩展名可识别但不提供实现（如 .pack200）
	ErrUnsupportedCodec = errors.New("xaction: unsupported codec")

	// ErrEmptyBasePath 删除动作未指定根目录
	ErrEmptyBasePath = errors.New("xaction: base path is required")
)
