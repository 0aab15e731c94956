package xrotate

import "errors"

// 配置校验错误
var (
	// ErrEmptyFilename 文件名为空（非直写策略必须指定活动文件名）
	ErrEmptyFilename = errors.New("xrotate: filename is required")

	// ErrEmptyPattern 归档文件模式为空
	ErrEmptyPattern = errors.New("xrotate: file pattern is required")

	// ErrFilenameWithDirectWrite 直写策略下不允许指定活动文件名
	ErrFilenameWithDirectWrite = errors.New("xrotate: filename must be empty with a direct write strategy")

	// ErrNilPolicy 未配置触发策略
	ErrNilPolicy = errors.New("xrotate: triggering policy is required")

	// ErrInvalidFileMode FileMode 包含非权限位（仅允许低 9 位 0000~0777）
	ErrInvalidFileMode = errors.New("xrotate: invalid FileMode")

	// ErrInvalidBufferSize 缓冲区大小无效
	ErrInvalidBufferSize = errors.New("xrotate: invalid buffer size")

	// ErrInvalidFileSize 文件大小表达式无效或不大于 0
	ErrInvalidFileSize = errors.New("xrotate: invalid file size")

	// ErrInvalidCron cron 表达式无效
	ErrInvalidCron = errors.New("xrotate: invalid cron expression")

	// ErrInvalidInterval 时间触发间隔无效
	ErrInvalidInterval = errors.New("xrotate: invalid interval")

	// ErrNoDateInPattern 时间触发要求文件模式包含日期
	ErrNoDateInPattern = errors.New("xrotate: file pattern contains no date")

	// ErrInvalidIndexRange 序号范围无效
	ErrInvalidIndexRange = errors.New("xrotate: invalid index range")

	// ErrInvalidMaxFiles 直写策略保留文件数无效
	ErrInvalidMaxFiles = errors.New("xrotate: invalid max files")

	// ErrInvalidCompressionLevel 压缩级别不在 0~9 范围内
	ErrInvalidCompressionLevel = errors.New("xrotate: invalid compression level")

	// ErrStrategyMismatch 重新配置时不能在直写与非直写策略之间切换
	ErrStrategyMismatch = errors.New("xrotate: cannot switch between direct write and rename strategies")

	// ErrUnknownIndexMode 未知的序号方案
	ErrUnknownIndexMode = errors.New("xrotate: unknown index mode")
)

// 运行时错误
var (
	// ErrClosed 管理器已关闭
	ErrClosed = errors.New("xrotate: manager is closed")

	// ErrRolloverBusy 在等待时间内未能获得轮转许可（上一次轮转的异步动作仍在执行）
	ErrRolloverBusy = errors.New("xrotate: previous rollover still in progress")

	// ErrNotRegistered 管理器不属于该注册表
	ErrNotRegistered = errors.New("xrotate: manager not registered")
)
