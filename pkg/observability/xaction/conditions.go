package xaction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	_ PathCondition = (*IfFileName)(nil)
	_ PathCondition = (*IfLastModified)(nil)
	_ PathCondition = (*IfAccumulatedFileSize)(nil)
	_ PathCondition = (*IfAccumulatedFileCount)(nil)
	_ PathCondition = (*IfAll)(nil)
	_ PathCondition = (*IfAny)(nil)
	_ PathCondition = (*IfNot)(nil)
)

func resetAll(conds []PathCondition) {
	for _, c := range conds {
		c.BeforeFileTreeWalk()
	}
}

// =============================================================================
// IfFileName
// =============================================================================

// IfFileName 按相对路径匹配。Glob 支持 "**"；Regex 需匹配整个相对路径。
// 外层接受后才评估 Nested。
type IfFileName struct {
	glob   string
	re     *regexp.Regexp
	Nested []PathCondition
}

// NewIfFileName 创建文件名条件，glob 与 regex 必须且只能指定一个
func NewIfFileName(glob, regex string, nested ...PathCondition) (*IfFileName, error) {
	switch {
	case glob == "" && regex == "":
		return nil, fmt.Errorf("%w: IfFileName requires glob or regex", ErrInvalidCondition)
	case glob != "" && regex != "":
		return nil, fmt.Errorf("%w: IfFileName accepts only one of glob and regex", ErrInvalidCondition)
	}
	c := &IfFileName{Nested: nested}
	if glob != "" {
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("%w: bad glob %q", ErrInvalidCondition, glob)
		}
		c.glob = glob
		return c, nil
	}
	re, err := regexp.Compile(`^(?:` + regex + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w: bad regex %q: %w", ErrInvalidCondition, regex, err)
	}
	c.re = re
	return c, nil
}

// Accept 实现 PathCondition
func (c *IfFileName) Accept(base string, p PathInfo) bool {
	rel := relSlash(p.Rel)
	var ok bool
	if c.re != nil {
		ok = c.re.MatchString(rel)
	} else {
		ok, _ = doublestar.Match(c.glob, rel)
	}
	return ok && acceptAll(base, p, c.Nested)
}

// BeforeFileTreeWalk 实现 PathCondition
func (c *IfFileName) BeforeFileTreeWalk() {
	resetAll(c.Nested)
}

// =============================================================================
// IfLastModified
// =============================================================================

// IfLastModified 接受修改时间早于 Age 之前的文件
type IfLastModified struct {
	Age    time.Duration
	Nested []PathCondition
	// Now 时钟，nil 使用 time.Now
	Now func() time.Time
}

// Accept 实现 PathCondition
func (c *IfLastModified) Accept(base string, p PathInfo) bool {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if now().Sub(p.Info.ModTime()) < c.Age {
		return false
	}
	return acceptAll(base, p, c.Nested)
}

// BeforeFileTreeWalk 实现 PathCondition
func (c *IfLastModified) BeforeFileTreeWalk() {
	resetAll(c.Nested)
}

// =============================================================================
// 累计条件
// =============================================================================

// IfAccumulatedFileSize 按遍历顺序累计文件大小，超过阈值后接受后续文件
type IfAccumulatedFileSize struct {
	Threshold   int64
	Nested      []PathCondition
	accumulated atomic.Int64
}

// Accept 实现 PathCondition
func (c *IfAccumulatedFileSize) Accept(base string, p PathInfo) bool {
	total := c.accumulated.Add(p.Info.Size())
	if total <= c.Threshold {
		return false
	}
	return acceptAll(base, p, c.Nested)
}

// BeforeFileTreeWalk 实现 PathCondition
func (c *IfAccumulatedFileSize) BeforeFileTreeWalk() {
	c.accumulated.Store(0)
	resetAll(c.Nested)
}

// IfAccumulatedFileCount 按遍历顺序计数，超过阈值后接受后续文件
type IfAccumulatedFileCount struct {
	Threshold int
	Nested    []PathCondition
	count     atomic.Int64
}

// Accept 实现 PathCondition
func (c *IfAccumulatedFileCount) Accept(base string, p PathInfo) bool {
	if c.count.Add(1) <= int64(c.Threshold) {
		return false
	}
	return acceptAll(base, p, c.Nested)
}

// BeforeFileTreeWalk 实现 PathCondition
func (c *IfAccumulatedFileCount) BeforeFileTreeWalk() {
	c.count.Store(0)
	resetAll(c.Nested)
}

// =============================================================================
// 组合条件
// =============================================================================

// IfAll 全部接受才接受（短路）
type IfAll struct {
	Components []PathCondition
}

// Accept 实现 PathCondition
func (c *IfAll) Accept(base string, p PathInfo) bool {
	return acceptAll(base, p, c.Components)
}

// BeforeFileTreeWalk 实现 PathCondition
func (c *IfAll) BeforeFileTreeWalk() {
	resetAll(c.Components)
}

// IfAny 任一接受即接受（短路）
type IfAny struct {
	Components []PathCondition
}

// Accept 实现 PathCondition
func (c *IfAny) Accept(base string, p PathInfo) bool {
	for _, sub := range c.Components {
		if sub.Accept(base, p) {
			return true
		}
	}
	return false
}

// BeforeFileTreeWalk 实现 PathCondition
func (c *IfAny) BeforeFileTreeWalk() {
	resetAll(c.Components)
}

// IfNot 取反
type IfNot struct {
	Negate PathCondition
}

// Accept 实现 PathCondition
func (c *IfNot) Accept(base string, p PathInfo) bool {
	return !c.Negate.Accept(base, p)
}

// BeforeFileTreeWalk 实现 PathCondition
func (c *IfNot) BeforeFileTreeWalk() {
	c.Negate.BeforeFileTreeWalk()
}

// =============================================================================
// 时长解析
// =============================================================================

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseAge 解析时长表达式，支持：
//
//	Go 时长      "36h"、"90m"、"1h30m"
//	天数后缀    "7d"、"30D"
//	ISO-8601   "P7D"、"PT12H"、"P1DT2H30M"
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAge)
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative %q", ErrInvalidAge, s)
		}
		return d, nil
	}
	if last := s[len(s)-1]; last == 'd' || last == 'D' {
		if n, err := strconv.Atoi(s[:len(s)-1]); err == nil && n >= 0 {
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	upper := strings.ToUpper(s)
	m := isoDuration.FindStringSubmatch(upper)
	if m == nil || upper == "P" || upper == "PT" || strings.HasSuffix(upper, "T") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAge, s)
	}
	var d time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute}
	for i, unit := range units {
		if m[i+1] != "" {
			n, err := strconv.Atoi(m[i+1])
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalidAge, s)
			}
			d += time.Duration(n) * unit
		}
	}
	if m[4] != "" {
		f, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAge, s)
		}
		d += time.Duration(f * float64(time.Second))
	}
	return d, nil
}
