package xconf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/omeyang/xroll/pkg/observability/xaction"
	"github.com/omeyang/xroll/pkg/observability/xrotate"
	"github.com/omeyang/xroll/pkg/observability/xstatus"
	"github.com/omeyang/xroll/pkg/util/xsize"
)

// Build 按配置从注册表获取管理器并创建 appender。
// status 为 nil 时使用 [xstatus.Default]；base 在配置项之前应用，配置中显式设置的项覆盖 base。
func Build(reg *xrotate.Registry, ac AppenderConfig, status xstatus.Logger, base ...xrotate.Option) (*xrotate.Appender, error) {
	status = xstatus.OrDefault(status)
	opts, err := managerOptions(ac, status)
	if err != nil {
		return nil, err
	}
	all := make([]xrotate.Option, 0, len(base)+len(opts)+1)
	all = append(all, base...)
	all = append(all, xrotate.WithStatus(status))
	all = append(all, opts...)
	return xrotate.NewAppender(reg, xrotate.AppenderConfig{
		Name:         ac.Name,
		FileName:     ac.FileName,
		Pattern:      ac.FilePattern,
		IgnoreErrors: ac.IgnoreErrors,
	}, all...)
}

// ManagerOptions 将 appender 配置转换为管理器选项，删除动作的状态输出到 [xstatus.Default]
func ManagerOptions(ac AppenderConfig) ([]xrotate.Option, error) {
	return managerOptions(ac, xstatus.Default())
}

func managerOptions(ac AppenderConfig, status xstatus.Logger) ([]xrotate.Option, error) {
	policy, err := buildPolicy(ac.Policies)
	if err != nil {
		return nil, fmt.Errorf("appender %q: %w", ac.Name, err)
	}
	strategy, err := buildStrategy(ac.Strategy, status)
	if err != nil {
		return nil, fmt.Errorf("appender %q: %w", ac.Name, err)
	}

	opts := []xrotate.Option{
		xrotate.WithPolicy(policy),
		xrotate.WithStrategy(strategy),
		xrotate.WithCreateOnDemand(ac.CreateOnDemand),
	}
	if ac.Append != nil {
		opts = append(opts, xrotate.WithAppend(*ac.Append))
	}
	if ac.ImmediateFlush != nil {
		opts = append(opts, xrotate.WithImmediateFlush(*ac.ImmediateFlush))
	}
	if ac.BufferSize != "" {
		n, err := parseBufferSize(ac.BufferSize)
		if err != nil {
			return nil, fmt.Errorf("appender %q: %w", ac.Name, err)
		}
		opts = append(opts, xrotate.WithBufferSize(n))
	}
	if ac.FilePermissions != "" {
		mode, err := ParsePermissions(ac.FilePermissions)
		if err != nil {
			return nil, fmt.Errorf("appender %q: %w", ac.Name, err)
		}
		opts = append(opts, xrotate.WithFileMode(mode))
	}
	return opts, nil
}

// =============================================================================
// 触发策略
// =============================================================================

func buildPolicy(pc PoliciesConfig) (xrotate.TriggeringPolicy, error) {
	var policies []xrotate.TriggeringPolicy

	if pc.OnStartup != nil {
		minSize := int64(1)
		if pc.OnStartup.MinSize != "" {
			n, err := parseCount(pc.OnStartup.MinSize)
			if err != nil {
				return nil, fmt.Errorf("%w: on_startup.min_size: %w", ErrInvalidConfig, err)
			}
			minSize = n
		}
		policies = append(policies, xrotate.NewOnStartupTrigger(minSize, time.Time{}))
	}
	if pc.Size != "" {
		p, err := xrotate.ParseSizeTrigger(pc.Size)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	if pc.Time != nil {
		p, err := xrotate.NewTimeTrigger(pc.Time.Interval, pc.Time.Modulate, pc.Time.MaxRandomDelay)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	if pc.Cron != nil {
		p, err := xrotate.NewCronTrigger(pc.Cron.Schedule, pc.Cron.EvaluateOnStartup)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}

	switch len(policies) {
	case 0:
		return nil, ErrNoPolicy
	case 1:
		return policies[0], nil
	default:
		return xrotate.NewCompositeTrigger(policies...), nil
	}
}

// =============================================================================
// 轮转策略
// =============================================================================

func buildStrategy(sc StrategyConfig, status xstatus.Logger) (xrotate.RolloverStrategy, error) {
	var opts []xrotate.StrategyOption
	if sc.Min != nil {
		opts = append(opts, xrotate.WithMinIndex(*sc.Min))
	}
	if sc.Max != nil {
		opts = append(opts, xrotate.WithMaxIndex(*sc.Max))
	}
	if sc.FileIndex != "" {
		mode, err := xrotate.ParseIndexMode(sc.FileIndex)
		if err != nil {
			return nil, err
		}
		opts = append(opts, xrotate.WithIndexMode(mode))
	}
	if sc.CompressionLevel != nil {
		opts = append(opts, xrotate.WithCompressionLevel(*sc.CompressionLevel))
	}
	if sc.MaxFiles != 0 {
		opts = append(opts, xrotate.WithMaxFiles(sc.MaxFiles))
	}
	if sc.RenameEmptyFiles != nil {
		opts = append(opts, xrotate.WithRenameEmptyFiles(*sc.RenameEmptyFiles))
	}
	if sc.StopCustomActionsOnError != nil {
		opts = append(opts, xrotate.WithStopCustomActionsOnError(*sc.StopCustomActionsOnError))
	}
	for i, dc := range sc.Delete {
		d, err := buildDelete(dc, status)
		if err != nil {
			return nil, fmt.Errorf("strategy.delete[%d]: %w", i, err)
		}
		opts = append(opts, xrotate.WithCustomActions(d))
	}

	switch strings.ToLower(strings.TrimSpace(sc.Type)) {
	case "", StrategyDefault:
		return xrotate.NewDefaultStrategy(opts...)
	case StrategyDirect:
		return xrotate.NewDirectWriteStrategy(opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, sc.Type)
	}
}

func buildDelete(dc DeleteConfig, status xstatus.Logger) (*xaction.Delete, error) {
	if dc.BasePath == "" {
		return nil, fmt.Errorf("%w: delete requires base_path", ErrInvalidConfig)
	}
	if len(dc.Conditions) == 0 {
		return nil, fmt.Errorf("%w: delete requires at least one condition", ErrInvalidConfig)
	}
	conds, err := buildConditions(dc.Conditions)
	if err != nil {
		return nil, err
	}
	return &xaction.Delete{
		BasePath:    dc.BasePath,
		MaxDepth:    dc.MaxDepth,
		FollowLinks: dc.FollowLinks,
		TestMode:    dc.TestMode,
		Conditions:  conds,
		Status:      status,
	}, nil
}

func buildConditions(ccs []ConditionConfig) ([]xaction.PathCondition, error) {
	out := make([]xaction.PathCondition, 0, len(ccs))
	for _, cc := range ccs {
		c, err := buildCondition(cc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func buildCondition(cc ConditionConfig) (xaction.PathCondition, error) {
	nested, err := buildConditions(cc.Nested)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(cc.Type)) {
	case ConditionFileName:
		return xaction.NewIfFileName(cc.Glob, cc.Regex, nested...)
	case ConditionLastModified:
		age, err := xaction.ParseAge(cc.Age)
		if err != nil {
			return nil, err
		}
		return &xaction.IfLastModified{Age: age, Nested: nested}, nil
	case ConditionAccumulatedSize:
		n, err := xsize.Parse(cc.Exceeds)
		if err != nil {
			return nil, fmt.Errorf("%w: accumulated_size: %w", ErrInvalidConfig, err)
		}
		return &xaction.IfAccumulatedFileSize{Threshold: n, Nested: nested}, nil
	case ConditionAccumulatedCount:
		n, err := strconv.Atoi(strings.TrimSpace(cc.Exceeds))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: accumulated_count exceeds %q", ErrInvalidConfig, cc.Exceeds)
		}
		return &xaction.IfAccumulatedFileCount{Threshold: n, Nested: nested}, nil
	case ConditionAll:
		return &xaction.IfAll{Components: nested}, nil
	case ConditionAny:
		return &xaction.IfAny{Components: nested}, nil
	case ConditionNot:
		if len(nested) != 1 {
			return nil, fmt.Errorf("%w: not requires exactly one nested condition", ErrInvalidConfig)
		}
		return &xaction.IfNot{Negate: nested[0]}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, cc.Type)
	}
}

// =============================================================================
// 数值解析
// =============================================================================

// ParsePermissions 解析文件权限，支持八进制（"0640"、"640"）与符号形式（"rw-r-----"）
func ParsePermissions(s string) (os.FileMode, error) {
	s = strings.TrimSpace(s)
	if len(s) == 9 && strings.Trim(s, "rwx-") == "" {
		var mode os.FileMode
		for i, ch := range s {
			want := "rwx"[i%3]
			switch {
			case ch == rune(want):
				mode |= 1 << uint(8-i)
			case ch != '-':
				return 0, fmt.Errorf("%w: %q", ErrInvalidPermissions, s)
			}
		}
		return mode, nil
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil || n > 0o777 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPermissions, s)
	}
	return os.FileMode(n), nil
}

// parseBufferSize 接受 "0" 关闭缓冲，其余按大小表达式解析
func parseBufferSize(s string) (int, error) {
	n, err := parseCount(s)
	if err != nil {
		return 0, fmt.Errorf("%w: buffer_size: %w", ErrInvalidConfig, err)
	}
	return int(n), nil
}

// parseCount 解析非负字节数，"0" 合法
func parseCount(s string) (int64, error) {
	if strings.TrimSpace(s) == "0" {
		return 0, nil
	}
	return xsize.Parse(s)
}
