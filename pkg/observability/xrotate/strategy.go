package xrotate

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/omeyang/xroll/pkg/observability/xaction"
	"github.com/omeyang/xroll/pkg/observability/xpattern"
)

// RolloverDescription 一次轮转的产出，由策略创建，管理器消费一次
type RolloverDescription struct {
	// ActiveFileName 轮转后的活动文件名，空表示沿用当前文件名
	ActiveFileName string

	// Append 为 true 时以追加方式打开活动文件，否则截断
	Append bool

	// Synchronous 在锁内、重新打开文件前执行（通常是重命名）
	Synchronous xaction.Action

	// Asynchronous 在锁释放后由执行器运行（压缩、按条件删除）
	Asynchronous xaction.Action
}

// RolloverStrategy 轮转策略。返回 nil 描述表示本次不做任何事。
//
// Rollover 在管理器锁内调用，可以扫描目录，但不应修改文件：
// 文件操作放进描述中的动作里。
type RolloverStrategy interface {
	Rollover(m *Manager) (*RolloverDescription, error)
}

// DirectWriter 直写策略的可选能力：活动文件名本身由模式生成
type DirectWriter interface {
	CurrentFileName(m *Manager) string
}

// StrategyFunc 函数适配器，用于自定义策略
type StrategyFunc func(m *Manager) (*RolloverDescription, error)

// Rollover 实现 RolloverStrategy
func (f StrategyFunc) Rollover(m *Manager) (*RolloverDescription, error) {
	return f(m)
}

// =============================================================================
// 策略选项
// =============================================================================

// 默认序号窗口
const (
	DefaultMinIndex = 1
	DefaultMaxIndex = 7
)

type strategyConfig struct {
	minIndex    int
	maxIndex    int
	mode        IndexMode
	level       int
	custom      []xaction.Action
	stopOnError bool
	codecs      *xaction.Registry
	maxFiles    int
	renameEmpty bool
}

// StrategyOption 策略配置选项
type StrategyOption func(*strategyConfig)

func defaultStrategyConfig() strategyConfig {
	return strategyConfig{
		minIndex: DefaultMinIndex,
		maxIndex: DefaultMaxIndex,
		mode:     IndexMax,
		level:    xaction.LevelDefault,
	}
}

func applyStrategyOptions(opts []StrategyOption) strategyConfig {
	cfg := defaultStrategyConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.codecs == nil {
		cfg.codecs = xaction.DefaultRegistry()
	}
	return cfg
}

// WithMinIndex 设置最小序号，默认 1
func WithMinIndex(n int) StrategyOption {
	return func(c *strategyConfig) {
		c.minIndex = n
	}
}

// WithMaxIndex 设置最大序号，默认 7
func WithMaxIndex(n int) StrategyOption {
	return func(c *strategyConfig) {
		c.maxIndex = n
	}
}

// WithIndexMode 设置序号方案，默认 [IndexMax]
func WithIndexMode(mode IndexMode) StrategyOption {
	return func(c *strategyConfig) {
		c.mode = mode
	}
}

// WithCompressionLevel 设置压缩级别（0~9），默认由编码器决定
func WithCompressionLevel(level int) StrategyOption {
	return func(c *strategyConfig) {
		c.level = level
	}
}

// WithCustomActions 追加在压缩之后执行的异步动作（如 [xaction.Delete]）
func WithCustomActions(actions ...xaction.Action) StrategyOption {
	return func(c *strategyConfig) {
		for _, a := range actions {
			if a != nil {
				c.custom = append(c.custom, a)
			}
		}
	}
}

// WithStopCustomActionsOnError 自定义动作失败时是否停止后续动作
func WithStopCustomActionsOnError(stop bool) StrategyOption {
	return func(c *strategyConfig) {
		c.stopOnError = stop
	}
}

// WithCodecs 设置压缩编码器注册表，默认 [xaction.DefaultRegistry]
func WithCodecs(reg *xaction.Registry) StrategyOption {
	return func(c *strategyConfig) {
		if reg != nil {
			c.codecs = reg
		}
	}
}

// WithMaxFiles 直写策略保留的归档文件数，0 表示不清理
func WithMaxFiles(n int) StrategyOption {
	return func(c *strategyConfig) {
		c.maxFiles = n
	}
}

// WithRenameEmptyFiles 是否重命名空文件（默认直接删除空文件）
func WithRenameEmptyFiles(rename bool) StrategyOption {
	return func(c *strategyConfig) {
		c.renameEmpty = rename
	}
}

// compressionFor 返回模式末尾对应的编码器（若有）
func (c *strategyConfig) compressionFor(p *xpattern.Processor) (xaction.Codec, bool) {
	return c.codecs.ForFile(p.Pattern())
}

// asyncActions 组装异步动作：压缩（可选）在前，自定义动作在后
func (c *strategyConfig) asyncActions(compress xaction.Action, extra ...xaction.Action) xaction.Action {
	var custom xaction.Action
	if len(c.custom) > 0 {
		custom = xaction.NewComposite(c.stopOnError, c.custom...)
	}
	actions := append([]xaction.Action{compress}, extra...)
	actions = append(actions, custom)
	return xaction.Chain(false, actions...)
}

// =============================================================================
// 候选文件索引
// =============================================================================

// EligibleFile 匹配文件模式的已有文件
type EligibleFile struct {
	// Path 与模式同形的路径（可直接用于重命名）
	Path string
	// Ext 匹配到的压缩扩展名，未压缩为空
	Ext     string
	ModTime time.Time
}

// EligibleFiles 序号到文件的有序映射。
// 同一序号可能同时存在未压缩与已压缩的文件（压缩进行中）。
type EligibleFiles struct {
	byIndex map[int][]EligibleFile
	keys    []int
}

// ScanEligible 按模式扫描已有文件。
//
// anyDate 为 false 时只匹配日期等于 t 的文件。".tmp" 临时文件被忽略。
// 目录不存在时返回空索引。
func ScanEligible(ctx context.Context, p *xpattern.Processor, t time.Time, anyDate bool, exts []string) (*EligibleFiles, error) {
	matcher, err := p.Matcher(t, anyDate, exts...)
	if err != nil {
		return nil, err
	}
	walker := &xaction.Delete{BasePath: p.BaseDir(), MaxDepth: p.Depth()}
	paths, err := walker.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("xrotate: scan %s: %w", p.BaseDir(), err)
	}

	ef := &EligibleFiles{byIndex: make(map[int][]EligibleFile)}
	for _, pi := range paths {
		if strings.HasSuffix(pi.Rel, xaction.TempSuffix) {
			continue
		}
		shaped := p.JoinBase(pi.Rel)
		idx, ext, ok := matcher.Match(shaped)
		if !ok {
			continue
		}
		if _, seen := ef.byIndex[idx]; !seen {
			ef.keys = append(ef.keys, idx)
		}
		ef.byIndex[idx] = append(ef.byIndex[idx], EligibleFile{Path: shaped, Ext: ext, ModTime: pi.Info.ModTime()})
	}
	slices.Sort(ef.keys)
	return ef, nil
}

// Len 返回不同序号的数量
func (e *EligibleFiles) Len() int {
	return len(e.keys)
}

// Indexes 返回升序的序号列表副本
func (e *EligibleFiles) Indexes() []int {
	return slices.Clone(e.keys)
}

// Files 返回某个序号下的文件
func (e *EligibleFiles) Files(index int) []EligibleFile {
	return e.byIndex[index]
}

// Lowest 返回最小序号，空索引返回 false
func (e *EligibleFiles) Lowest() (int, bool) {
	if len(e.keys) == 0 {
		return 0, false
	}
	return e.keys[0], true
}

// Highest 返回最大序号，空索引返回 false
func (e *EligibleFiles) Highest() (int, bool) {
	if len(e.keys) == 0 {
		return 0, false
	}
	return e.keys[len(e.keys)-1], true
}

// nameFor 生成指定序号与压缩扩展名的文件名
func nameFor(p *xpattern.Processor, t time.Time, index int, compressExt, ext string) string {
	return strings.TrimSuffix(p.Format(t, index), compressExt) + ext
}
