package xconf

import "errors"

// 配置加载和解析相关错误。
var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty config path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 表示配置加载失败。
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrUnmarshalFailed 表示配置反序列化失败。
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")

	// ErrNotReloadable 表示从字节数据创建的配置源不能重载或监视。
	ErrNotReloadable = errors.New("xconf: source created from bytes cannot be reloaded")
)

// appender 配置校验与构建相关错误。
var (
	// ErrInvalidConfig 表示配置内容不合法，具体原因见包装信息。
	ErrInvalidConfig = errors.New("xconf: invalid config")

	// ErrEmptyName 表示 appender 名称为空。
	ErrEmptyName = errors.New("xconf: empty appender name")

	// ErrDuplicateName 表示 appender 名称重复。
	ErrDuplicateName = errors.New("xconf: duplicate appender name")

	// ErrNoPolicy 表示 appender 未配置任何触发策略。
	ErrNoPolicy = errors.New("xconf: appender has no triggering policy")

	// ErrUnknownStrategy 表示未知的轮转策略类型。
	ErrUnknownStrategy = errors.New("xconf: unknown strategy type")

	// ErrUnknownCondition 表示未知的删除条件类型。
	ErrUnknownCondition = errors.New("xconf: unknown delete condition")

	// ErrInvalidPermissions 表示文件权限表达式不合法。
	ErrInvalidPermissions = errors.New("xconf: invalid file permissions")

	// ErrRuntimeClosed 表示运行时已关闭。
	ErrRuntimeClosed = errors.New("xconf: runtime closed")
)
