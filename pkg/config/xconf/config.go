package xconf

import (
	"fmt"
	"time"

	"github.com/omeyang/xroll/pkg/observability/xstatus"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	// FormatYAML YAML 格式（推荐用于 K8s ConfigMap）。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// Config 滚动文件子系统的完整配置
//
//	status:
//	  level: info
//	appenders:
//	  - name: app
//	    file_name: /var/log/app/app.log
//	    file_pattern: /var/log/app/app-%d{yyyy-MM-dd}-%i.log.gz
//	    policies:
//	      size: 100MB
//	      time: {interval: 1}
//	    strategy:
//	      max: 10
//	      delete:
//	        - base_path: /var/log/app
//	          conditions:
//	            - {type: file_name, glob: "app-*.log.gz"}
//	            - {type: last_modified, age: 30d}
type Config struct {
	Status    StatusConfig     `koanf:"status"`
	Appenders []AppenderConfig `koanf:"appenders"`
}

// StatusConfig 状态日志配置
type StatusConfig struct {
	// Level 最低输出级别：debug/info/warn/error，默认 warn
	Level string `koanf:"level"`

	// Format text 或 json
	Format string `koanf:"format"`

	// File 状态文件，Path 为空时输出到 stderr
	File xstatus.FileConfig `koanf:"file"`
}

// AppenderConfig 单个 appender 配置
type AppenderConfig struct {
	Name        string `koanf:"name"`
	FileName    string `koanf:"file_name"`
	FilePattern string `koanf:"file_pattern"`

	// Append 启动时追加已有文件，默认 true
	Append *bool `koanf:"append"`

	// BufferSize 写缓冲大小表达式（如 "8KB"），"0" 表示不缓冲
	BufferSize string `koanf:"buffer_size"`

	// ImmediateFlush 每次写入后刷新，默认 true
	ImmediateFlush *bool `koanf:"immediate_flush"`

	CreateOnDemand bool `koanf:"create_on_demand"`

	// FilePermissions 八进制（"0640"）或符号形式（"rw-r-----"）
	FilePermissions string `koanf:"file_permissions"`

	IgnoreErrors bool `koanf:"ignore_errors"`

	Policies PoliciesConfig `koanf:"policies"`
	Strategy StrategyConfig `koanf:"strategy"`
}

// PoliciesConfig 触发策略配置，配置多个时组合为任一触发
type PoliciesConfig struct {
	// Size 大小阈值表达式（如 "10MB"）
	Size      string         `koanf:"size"`
	Time      *TimeConfig    `koanf:"time"`
	Cron      *CronConfig    `koanf:"cron"`
	OnStartup *StartupConfig `koanf:"on_startup"`
}

// TimeConfig 时间触发配置
type TimeConfig struct {
	// Interval 以文件模式最小时间单位计的间隔，默认 1
	Interval       int           `koanf:"interval"`
	Modulate       bool          `koanf:"modulate"`
	MaxRandomDelay time.Duration `koanf:"max_random_delay"`
}

// CronConfig cron 触发配置
type CronConfig struct {
	Schedule          string `koanf:"schedule"`
	EvaluateOnStartup bool   `koanf:"evaluate_on_startup"`
}

// StartupConfig 启动触发配置
type StartupConfig struct {
	// MinSize 已有文件达到该大小才轮转，默认 "1"（非空即轮转）
	MinSize string `koanf:"min_size"`
}

// 策略类型
const (
	StrategyDefault = "default"
	StrategyDirect  = "direct"
)

// StrategyConfig 轮转策略配置
type StrategyConfig struct {
	// Type default（默认）或 direct
	Type string `koanf:"type"`

	// Min/Max 序号窗口，未设置时使用默认值 1 和 7
	Min *int `koanf:"min"`
	Max *int `koanf:"max"`

	// FileIndex max/min/nomax
	FileIndex string `koanf:"file_index"`

	CompressionLevel *int `koanf:"compression_level"`

	// MaxFiles 直写策略保留的文件数
	MaxFiles int `koanf:"max_files"`

	RenameEmptyFiles         *bool `koanf:"rename_empty_files"`
	StopCustomActionsOnError *bool `koanf:"stop_custom_actions_on_error"`

	Delete []DeleteConfig `koanf:"delete"`
}

// DeleteConfig 轮转后执行的删除动作
type DeleteConfig struct {
	BasePath    string            `koanf:"base_path"`
	MaxDepth    int               `koanf:"max_depth"`
	FollowLinks bool              `koanf:"follow_links"`
	TestMode    bool              `koanf:"test_mode"`
	Conditions  []ConditionConfig `koanf:"conditions"`
}

// 删除条件类型
const (
	ConditionFileName         = "file_name"
	ConditionLastModified     = "last_modified"
	ConditionAccumulatedSize  = "accumulated_size"
	ConditionAccumulatedCount = "accumulated_count"
	ConditionAll              = "all"
	ConditionAny              = "any"
	ConditionNot              = "not"
)

// ConditionConfig 删除条件，Nested 对叶子条件是附加条件，对组合条件是成员
type ConditionConfig struct {
	Type string `koanf:"type"`

	// file_name
	Glob  string `koanf:"glob"`
	Regex string `koanf:"regex"`

	// last_modified，支持 "36h"、"7d"、"P7D"
	Age string `koanf:"age"`

	// accumulated_size 使用大小表达式，accumulated_count 使用整数
	Exceeds string `koanf:"exceeds"`

	Nested []ConditionConfig `koanf:"nested"`
}

// Validate 校验 appender 名称。各 appender 的细节在构建时校验。
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Appenders))
	for i, a := range c.Appenders {
		if a.Name == "" {
			return fmt.Errorf("%w: appenders[%d]", ErrEmptyName, i)
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	return nil
}

// Appender 按名称查找 appender 配置
func (c *Config) Appender(name string) (AppenderConfig, bool) {
	for _, a := range c.Appenders {
		if a.Name == name {
			return a, true
		}
	}
	return AppenderConfig{}, false
}
