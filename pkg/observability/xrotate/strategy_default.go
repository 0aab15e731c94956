package xrotate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/xroll/pkg/observability/xaction"
	"github.com/omeyang/xroll/pkg/observability/xpattern"
	"github.com/omeyang/xroll/pkg/util/xfile"
)

// IndexMode 序号归档方案
type IndexMode int

const (
	// IndexMax 最新归档使用最大序号；窗口已满时删除最小序号，其余整体前移
	// 窗口外的残留（低于 min 或缩小窗口后超出 max）在下一次轮转时清理或重编号
	IndexMax IndexMode = iota

	// IndexMin 固定窗口：最新归档使用最小序号，已有归档按降序后移一位，超出上限的删除
	IndexMin

	// IndexNoMax 序号持续递增、从不重命名；数量达到窗口大小时删除最小序号
	IndexNoMax
)

// String 返回配置中使用的名称
func (m IndexMode) String() string {
	switch m {
	case IndexMax:
		return "max"
	case IndexMin:
		return "min"
	case IndexNoMax:
		return "nomax"
	default:
		return fmt.Sprintf("IndexMode(%d)", int(m))
	}
}

// ParseIndexMode 解析 "max"、"min"、"nomax"（大小写不敏感），空串为 IndexMax
func ParseIndexMode(s string) (IndexMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "max":
		return IndexMax, nil
	case "min":
		return IndexMin, nil
	case "nomax":
		return IndexNoMax, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownIndexMode, s)
	}
}

// DefaultStrategy 按序号（或日期）重命名活动文件的策略
//
// 模式以已注册的压缩扩展名结尾时，同步阶段先重命名为去掉扩展名的归档，
// 异步阶段再压缩。计算出的目标已存在时，取下一个空闲序号；
// 仅有日期的模式则在文件名中插入时间戳，从不覆盖已有文件。
type DefaultStrategy struct {
	cfg strategyConfig
}

var _ RolloverStrategy = (*DefaultStrategy)(nil)

// NewDefaultStrategy 创建默认策略
func NewDefaultStrategy(opts ...StrategyOption) (*DefaultStrategy, error) {
	cfg := applyStrategyOptions(opts)
	if cfg.minIndex < 0 || cfg.maxIndex < cfg.minIndex {
		return nil, fmt.Errorf("%w: min=%d max=%d", ErrInvalidIndexRange, cfg.minIndex, cfg.maxIndex)
	}
	if err := validateLevel(cfg.level); err != nil {
		return nil, err
	}
	switch cfg.mode {
	case IndexMax, IndexMin, IndexNoMax:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndexMode, int(cfg.mode))
	}
	return &DefaultStrategy{cfg: cfg}, nil
}

func validateLevel(level int) error {
	if level != xaction.LevelDefault && (level < 0 || level > 9) {
		return fmt.Errorf("%w: %d", ErrInvalidCompressionLevel, level)
	}
	return nil
}

// MinIndex 返回最小序号
func (s *DefaultStrategy) MinIndex() int { return s.cfg.minIndex }

// MaxIndex 返回最大序号
func (s *DefaultStrategy) MaxIndex() int { return s.cfg.maxIndex }

// Mode 返回序号方案
func (s *DefaultStrategy) Mode() IndexMode { return s.cfg.mode }

// Rollover 实现 RolloverStrategy
func (s *DefaultStrategy) Rollover(m *Manager) (*RolloverDescription, error) {
	p := m.PatternProcessor()
	now := m.now()
	fileTime := m.FileTime()
	if fileTime.IsZero() {
		fileTime = now
	}

	compressExt := ""
	codec, compress := s.cfg.compressionFor(p)
	if compress {
		compressExt = codec.Extension()
	}

	var (
		target string
		steps  []xaction.Action
		err    error
	)
	if p.HasIndex() {
		target, steps, err = s.planIndexed(m.ctx(), p, fileTime, compressExt, now)
	} else {
		name := nameFor(p, fileTime, 0, compressExt, "")
		target, err = uniqueArchive(name, compressExt, now, diskTaken)
	}
	if err != nil {
		return nil, err
	}

	steps = append(steps, &xaction.FileRename{
		Source:           m.FileName(),
		Target:           target,
		RenameEmptyFiles: s.cfg.renameEmpty,
	})

	var compressAction xaction.Action
	if compress {
		compressAction = &xaction.Compress{
			Source: target,
			Target: target + compressExt,
			Codec:  codec,
			Level:  s.cfg.level,
		}
	}
	return &RolloverDescription{
		Append:       true,
		Synchronous:  xaction.Chain(true, steps...),
		Asynchronous: s.cfg.asyncActions(compressAction),
	}, nil
}

// planIndexed 计算清理/移位步骤与活动文件的归档名（不含压缩扩展名）
func (s *DefaultStrategy) planIndexed(ctx context.Context, p *xpattern.Processor, t time.Time,
	compressExt string, now time.Time) (string, []xaction.Action, error) {
	ef, err := ScanEligible(ctx, p, t, false, s.cfg.codecs.Extensions())
	if err != nil {
		return "", nil, err
	}

	plan := newRenamePlan(ef)
	minIdx, maxIdx := s.cfg.minIndex, s.cfg.maxIndex
	window := maxIdx - minIdx + 1
	keys := ef.Indexes()

	idx := minIdx
	switch s.cfg.mode {
	case IndexMax:
		// 序号越大越新。低于 min 的残留删除，其余只保留最新的 window-1 个，
		// 再从 min 起连续重编号，归档序号始终落在 min..max（含缩小窗口后）
		var kept []int
		for _, k := range keys {
			if k < minIdx {
				plan.remove(ef.Files(k))
				continue
			}
			kept = append(kept, k)
		}
		for len(kept) > window-1 {
			plan.remove(ef.Files(kept[0]))
			kept = kept[1:]
		}
		// 升序移动，目标序号总是已删除或已移走
		for i, k := range kept {
			want := minIdx + i
			if want == k {
				continue
			}
			for _, f := range ef.Files(k) {
				plan.move(f, nameFor(p, t, want, compressExt, f.Ext))
			}
		}
		idx = minIdx + len(kept)
	case IndexMin:
		for i := len(keys) - 1; i >= 0; i-- {
			k := keys[i]
			if k < minIdx {
				continue
			}
			if k+1 > maxIdx {
				plan.remove(ef.Files(k))
				continue
			}
			for _, f := range ef.Files(k) {
				plan.move(f, nameFor(p, t, k+1, compressExt, f.Ext))
			}
		}
	case IndexNoMax:
		for len(keys) >= window {
			plan.remove(ef.Files(keys[0]))
			keys = keys[1:]
		}
		if len(keys) > 0 {
			idx = keys[len(keys)-1] + 1
		}
	}

	// 目标被占用（重启残留、外部文件）时向后找空闲序号，序号用尽再插入时间戳
	limit := maxIdx
	if s.cfg.mode == IndexNoMax {
		limit = idx + maxIndexLookahead
	}
	for i := idx; i <= limit; i++ {
		name := nameFor(p, t, i, compressExt, "")
		if !plan.taken(name) && !plan.taken(name+compressExt) {
			return name, plan.steps, nil
		}
	}
	name, err := uniqueArchive(nameFor(p, t, idx, compressExt, ""), compressExt, now, plan.taken)
	if err != nil {
		return "", nil, err
	}
	return name, plan.steps, nil
}

// maxIndexLookahead nomax 方案下向后探测空闲序号的次数
const maxIndexLookahead = 1000

// renamePlan 记录清理/移位步骤及执行后的文件占用情况
type renamePlan struct {
	steps    []xaction.Action
	occupied map[string]bool
	known    map[string]bool
}

func newRenamePlan(ef *EligibleFiles) *renamePlan {
	rp := &renamePlan{occupied: make(map[string]bool), known: make(map[string]bool)}
	for _, k := range ef.keys {
		for _, f := range ef.Files(k) {
			rp.occupied[f.Path] = true
			rp.known[f.Path] = true
		}
	}
	return rp
}

func (rp *renamePlan) remove(files []EligibleFile) {
	for _, f := range files {
		rp.steps = append(rp.steps, tolerateMissing(&xaction.FileDelete{Path: f.Path}))
		delete(rp.occupied, f.Path)
	}
}

func (rp *renamePlan) move(f EligibleFile, target string) {
	rp.steps = append(rp.steps, tolerateMissing(&xaction.FileRename{
		Source:           f.Path,
		Target:           target,
		RenameEmptyFiles: true,
	}))
	delete(rp.occupied, f.Path)
	rp.occupied[target] = true
}

// taken 报告计划执行后 name 是否被占用；计划外的文件按磁盘状态判断
func (rp *renamePlan) taken(name string) bool {
	if rp.occupied[name] {
		return true
	}
	if rp.known[name] {
		return false
	}
	return diskTaken(name)
}

// diskTaken 文件或其压缩临时文件存在即视为占用
func diskTaken(name string) bool {
	return xfile.Exists(name) || xfile.Exists(name+xaction.TempSuffix)
}

// uniqueArchive 返回未压缩名与压缩名都空闲的归档名（不含压缩扩展名）
func uniqueArchive(name, compressExt string, now time.Time, taken func(string) bool) (string, error) {
	both := func(c string) bool {
		base := strings.TrimSuffix(c, compressExt)
		return taken(base) || taken(base+compressExt)
	}
	var exts []string
	if compressExt != "" {
		exts = []string{compressExt}
	}
	u, err := xfile.UniqueNameFunc(name+compressExt, now, both, exts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(u, compressExt), nil
}

// tolerateMissing 把 "源文件不存在" 视为成功，使清理步骤不会中断后续重命名；
// 真正的 I/O 错误仍然中断。
func tolerateMissing(a xaction.Action) xaction.Action {
	return xaction.ActionFunc(func(ctx context.Context) (bool, error) {
		_, err := a.Execute(ctx)
		return err == nil, err
	})
}
