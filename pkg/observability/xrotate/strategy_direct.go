package xrotate

import (
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/xroll/pkg/observability/xaction"
	"github.com/omeyang/xroll/pkg/observability/xpattern"
)

// DirectWriteStrategy 直写策略：活动文件名由模式直接生成，轮转时不重命名
//
// 轮转只是关闭当前文件、打开按新时间（及下一个空闲序号）生成的文件；
// 关闭的文件在异步阶段压缩（模式以压缩扩展名结尾时），
// 随后按 maxFiles 清理任意日期的旧文件。
// 启动时优先追加到当前周期内最新的未压缩文件，避免重启产生重复文件。
type DirectWriteStrategy struct {
	cfg strategyConfig
}

var (
	_ RolloverStrategy = (*DirectWriteStrategy)(nil)
	_ DirectWriter     = (*DirectWriteStrategy)(nil)
)

// NewDirectWriteStrategy 创建直写策略
func NewDirectWriteStrategy(opts ...StrategyOption) (*DirectWriteStrategy, error) {
	cfg := applyStrategyOptions(opts)
	if cfg.maxFiles < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxFiles, cfg.maxFiles)
	}
	if err := validateLevel(cfg.level); err != nil {
		return nil, err
	}
	return &DirectWriteStrategy{cfg: cfg}, nil
}

// MaxFiles 返回保留的文件数（0 表示不清理）
func (s *DirectWriteStrategy) MaxFiles() int {
	return s.cfg.maxFiles
}

// CurrentFileName 实现 DirectWriter，返回启动时应写入的文件
func (s *DirectWriteStrategy) CurrentFileName(m *Manager) string {
	p := m.PatternProcessor()
	t := p.CurrentFileTime()
	if t.IsZero() {
		t = m.now()
	}
	compressExt := s.compressExt(p)
	if !p.HasIndex() {
		return nameFor(p, t, 0, compressExt, "")
	}
	ef, err := ScanEligible(m.ctx(), p, t, false, s.cfg.codecs.Extensions())
	if err != nil {
		m.status.Warn(m.ctx(), "scan for current file failed", "pattern", p.Pattern(), "error", err)
		return nameFor(p, t, DefaultMinIndex, compressExt, "")
	}
	// 最新的未压缩文件继续追加；已压缩的序号不再复用
	keys := ef.Indexes()
	for i := len(keys) - 1; i >= 0; i-- {
		for _, f := range ef.Files(keys[i]) {
			if f.Ext == "" {
				return f.Path
			}
		}
		break
	}
	idx := DefaultMinIndex
	if hi, ok := ef.Highest(); ok {
		idx = hi + 1
	}
	return nameFor(p, t, idx, compressExt, "")
}

// Rollover 实现 RolloverStrategy
func (s *DirectWriteStrategy) Rollover(m *Manager) (*RolloverDescription, error) {
	p := m.PatternProcessor()
	now := m.now()
	closed := m.FileName()
	compressExt := s.compressExt(p)

	next, err := s.nextFileName(m, p, now, closed, compressExt)
	if err != nil {
		return nil, err
	}

	var compressAction xaction.Action
	if codec, ok := s.cfg.compressionFor(p); ok {
		compressAction = &xaction.Compress{
			Source: closed,
			Target: closed + compressExt,
			Codec:  codec,
			Level:  s.cfg.level,
		}
	}
	var purge xaction.Action
	if s.cfg.maxFiles > 0 {
		matcher, err := p.Matcher(now, true, s.cfg.codecs.Extensions()...)
		if err != nil {
			return nil, err
		}
		purge = &xaction.Delete{
			BasePath: p.BaseDir(),
			MaxDepth: p.Depth(),
			Conditions: []xaction.PathCondition{&patternCondition{
				p:       p,
				matcher: matcher,
				exclude: next,
				Nested:  []xaction.PathCondition{&xaction.IfAccumulatedFileCount{Threshold: s.cfg.maxFiles}},
			}},
			Status: m.status,
		}
	}
	return &RolloverDescription{
		ActiveFileName: next,
		Append:         true,
		Asynchronous:   s.cfg.asyncActions(compressAction, purge),
	}, nil
}

// nextFileName 计算新活动文件：新周期取该周期的下一个空闲序号；
// 无序号模式下与刚关闭的文件同名时插入时间戳。
func (s *DirectWriteStrategy) nextFileName(m *Manager, p *xpattern.Processor, now time.Time,
	closed, compressExt string) (string, error) {
	taken := func(name string) bool {
		return name == closed || diskTaken(name)
	}
	if !p.HasIndex() {
		return uniqueArchive(nameFor(p, now, 0, compressExt, ""), compressExt, now, taken)
	}
	ef, err := ScanEligible(m.ctx(), p, now, false, s.cfg.codecs.Extensions())
	if err != nil {
		return "", err
	}
	idx := DefaultMinIndex
	if hi, ok := ef.Highest(); ok {
		idx = hi + 1
	}
	for off := 0; off < maxIndexLookahead; off++ {
		name := nameFor(p, now, idx+off, compressExt, "")
		if !taken(name) && !taken(name+compressExt) {
			return name, nil
		}
	}
	return uniqueArchive(nameFor(p, now, idx, compressExt, ""), compressExt, now, taken)
}

func (s *DirectWriteStrategy) compressExt(p *xpattern.Processor) string {
	if codec, ok := s.cfg.compressionFor(p); ok {
		return codec.Extension()
	}
	return ""
}

// patternCondition 接受由文件模式生成、且不是当前活动文件的路径
type patternCondition struct {
	p       *xpattern.Processor
	matcher *xpattern.Matcher
	exclude string
	Nested  []xaction.PathCondition
}

var _ xaction.PathCondition = (*patternCondition)(nil)

// Accept 实现 xaction.PathCondition
func (c *patternCondition) Accept(base string, pi xaction.PathInfo) bool {
	if strings.HasSuffix(pi.Rel, xaction.TempSuffix) {
		return false
	}
	shaped := c.p.JoinBase(pi.Rel)
	if shaped == c.exclude {
		return false
	}
	if _, _, ok := c.matcher.Match(shaped); !ok {
		return false
	}
	for _, n := range c.Nested {
		if !n.Accept(base, pi) {
			return false
		}
	}
	return true
}

// BeforeFileTreeWalk 实现 xaction.PathCondition
func (c *patternCondition) BeforeFileTreeWalk() {
	for _, n := range c.Nested {
		n.BeforeFileTreeWalk()
	}
}
