package xpattern

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"
)

type segKind int

const (
	segLiteral segKind = iota
	segDate
	segIndex
)

type segment struct {
	kind segKind
	lit  string
	date *dateFormat
	loc  *time.Location // 日期自带时区，nil 表示使用 Processor 时区
}

type options struct {
	loc    *time.Location
	locale language.Tag
	hasTag bool
}

// Option Processor 配置选项
type Option func(*options)

// WithLocation 设置日期计算与格式化的时区，默认 time.Local。
// 日期自带的时区选项（%d{..}{UTC}）优先。
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithLocale 设置区域，决定一周的第一天和第一周最少天数。
// 默认从 LC_ALL / LC_TIME / LANG 环境变量推断。
func WithLocale(tag language.Tag) Option {
	return func(o *options) {
		o.locale = tag
		o.hasTag = true
	}
}

// Processor 解析后的文件名模式
type Processor struct {
	pattern  string
	segs     []segment
	date     *segment
	hasIndex bool
	loc      *time.Location
	week     weekRules

	// 文件时间（UnixNano，0 表示未设置）
	currentFileTime atomic.Int64
	prevFileTime    atomic.Int64
}

// Parse 解析文件名模式
func Parse(pattern string, opts ...Option) (*Processor, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, ErrEmptyPattern
	}
	o := options{loc: time.Local}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if !o.hasTag {
		o.locale = environmentLocale()
	}

	p := &Processor{
		pattern: pattern,
		loc:     o.loc,
		week:    rulesFor(o.locale),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	for i := range p.segs {
		if p.segs[i].kind == segDate {
			p.date = &p.segs[i]
		}
	}
	return p, nil
}

// MustParse 解析失败时 panic，用于测试和常量模式
func MustParse(pattern string, opts ...Option) *Processor {
	p, err := Parse(pattern, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Processor) parse() error {
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			p.segs = append(p.segs, segment{kind: segLiteral, lit: lit.String()})
			lit.Reset()
		}
	}
	s := p.pattern
	dates := 0
	for i := 0; i < len(s); {
		if s[i] != '%' {
			lit.WriteByte(s[i])
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			lit.WriteByte('%')
			i += 2
			continue
		}
		name, rest := converterName(s[i+1:])
		i += 1 + len(name)
		switch name {
		case "d", "date":
			opts, n, err := readOptions(rest)
			if err != nil {
				return err
			}
			i += n
			dates++
			if dates > 1 {
				return fmt.Errorf("%w: %q", ErrMultipleDates, p.pattern)
			}
			seg, err := dateSegment(opts)
			if err != nil {
				return err
			}
			flush()
			p.segs = append(p.segs, seg)
		case "i", "index":
			if p.hasIndex {
				return fmt.Errorf("%w: %q", ErrMultipleIndexes, p.pattern)
			}
			p.hasIndex = true
			flush()
			p.segs = append(p.segs, segment{kind: segIndex})
		default:
			return fmt.Errorf("%w: %%%s in %q", ErrUnknownConverter, name, p.pattern)
		}
	}
	flush()
	return nil
}

// converterName 取 % 之后的转换符名称，优先匹配长名称
func converterName(s string) (string, string) {
	for _, name := range []string{"date", "index", "d", "i"} {
		if strings.HasPrefix(s, name) {
			return name, s[len(name):]
		}
	}
	j := 0
	for j < len(s) && isASCIILetter(s[j]) {
		j++
	}
	return s[:j], s[j:]
}

// readOptions 读取紧随其后的 {..}{..} 选项，返回选项和消耗的字节数
func readOptions(s string) ([]string, int, error) {
	var opts []string
	n := 0
	for n < len(s) && s[n] == '{' {
		end := strings.IndexByte(s[n:], '}')
		if end < 0 {
			return nil, 0, fmt.Errorf("%w: %q", ErrUnclosedOption, s)
		}
		opts = append(opts, s[n+1:n+end])
		n += end + 1
	}
	return opts, n, nil
}

func dateSegment(opts []string) (segment, error) {
	layout := ""
	if len(opts) > 0 {
		layout = strings.TrimSpace(opts[0])
	}
	df, err := compileDateFormat(layout)
	if err != nil {
		return segment{}, err
	}
	seg := segment{kind: segDate, date: df}
	if len(opts) > 1 && strings.TrimSpace(opts[1]) != "" {
		loc, err := time.LoadLocation(strings.TrimSpace(opts[1]))
		if err != nil {
			return segment{}, fmt.Errorf("%w: %s", ErrUnknownZone, opts[1])
		}
		seg.loc = loc
	}
	return seg, nil
}

// Pattern 返回原始模式
func (p *Processor) Pattern() string {
	return p.pattern
}

// HasDate 报告模式是否包含日期
func (p *Processor) HasDate() bool {
	return p.date != nil
}

// HasIndex 报告模式是否包含序号
func (p *Processor) HasIndex() bool {
	return p.hasIndex
}

// Frequency 返回日期格式中最小的时间单位；无日期时为 FreqNone
func (p *Processor) Frequency() Frequency {
	if p.date == nil {
		return FreqNone
	}
	return p.date.date.freq
}

// Location 返回日期计算使用的时区
func (p *Processor) Location() *time.Location {
	if p.date != nil && p.date.loc != nil {
		return p.date.loc
	}
	return p.loc
}

// FirstDayOfWeek 返回区域设置的一周第一天
func (p *Processor) FirstDayOfWeek() time.Weekday {
	return p.week.firstDay
}

// Format 用时间 t 和序号 index 生成文件名
func (p *Processor) Format(t time.Time, index int) string {
	var b strings.Builder
	for _, seg := range p.segs {
		switch seg.kind {
		case segLiteral:
			b.WriteString(seg.lit)
		case segDate:
			b.WriteString(seg.date.format(t.In(p.Location()), p.week))
		case segIndex:
			b.WriteString(strconv.Itoa(index))
		}
	}
	return b.String()
}

// splitBase 把模式拆成静态前缀（含末尾分隔符）和其余部分
func (p *Processor) splitBase() (prefix, rest string) {
	lead := ""
	if len(p.segs) > 0 && p.segs[0].kind == segLiteral {
		lead = p.segs[0].lit
	}
	i := strings.LastIndexAny(lead, `/\`)
	if i < 0 {
		return "", p.pattern
	}
	return p.pattern[:i+1], p.pattern[i+1:]
}

// BaseDir 返回第一个转换符之前的静态目录，目录遍历从这里开始
func (p *Processor) BaseDir() string {
	prefix, _ := p.splitBase()
	if prefix == "" {
		return "."
	}
	if len(prefix) == 1 {
		return prefix
	}
	return filepath.Clean(prefix[:len(prefix)-1])
}

// JoinBase 把相对 BaseDir 的路径拼回与模式同形的路径，供 [Matcher] 匹配
func (p *Processor) JoinBase(rel string) string {
	prefix, _ := p.splitBase()
	return prefix + rel
}

// Depth 返回 BaseDir 以下模式涉及的目录层数（文件本身计 1）
func (p *Processor) Depth() int {
	_, rest := p.splitBase()
	return strings.Count(filepath.ToSlash(rest), "/") + 1
}

// =============================================================================
// 文件时间
// =============================================================================

// SetCurrentFileTime 设置当前文件所属周期的时间
func (p *Processor) SetCurrentFileTime(t time.Time) {
	p.currentFileTime.Store(t.UnixNano())
}

// CurrentFileTime 返回当前文件时间，未设置时返回零值
func (p *Processor) CurrentFileTime() time.Time {
	return fromNano(p.currentFileTime.Load())
}

// PrevFileTime 返回上一个文件时间，未设置时返回零值
func (p *Processor) PrevFileTime() time.Time {
	return fromNano(p.prevFileTime.Load())
}

// AdvanceFileTime 将当前文件时间移入 prev 并设置新的当前文件时间
func (p *Processor) AdvanceFileTime(t time.Time) {
	p.prevFileTime.Store(p.currentFileTime.Load())
	p.currentFileTime.Store(t.UnixNano())
}

func fromNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// =============================================================================
// 文件匹配
// =============================================================================

// Matcher 匹配由模式生成的文件名并提取序号
type Matcher struct {
	re         *regexp.Regexp
	indexGroup int
	extGroup   int
}

// Matcher 构造文件匹配器。
//
// anyDate 为 false 时日期部分必须等于 t 的格式化结果，否则匹配任意日期。
// exts 为可选的压缩扩展名：模式本身以其中之一结尾时会先去掉，
// 然后以可选分组追加，使压缩前后的文件都能匹配。
func (p *Processor) Matcher(t time.Time, anyDate bool, exts ...string) (*Matcher, error) {
	var b strings.Builder
	b.WriteString("^")
	group := 0
	indexGroup := -1
	last := len(p.segs) - 1
	for i, seg := range p.segs {
		switch seg.kind {
		case segLiteral:
			lit := filepath.ToSlash(seg.lit)
			if i == last {
				for _, ext := range exts {
					if ext != "" && strings.HasSuffix(lit, ext) {
						lit = strings.TrimSuffix(lit, ext)
						break
					}
				}
			}
			b.WriteString(regexp.QuoteMeta(lit))
		case segDate:
			if anyDate {
				b.WriteString("(?:" + seg.date.regexp() + ")")
			} else {
				b.WriteString(regexp.QuoteMeta(seg.date.format(t.In(p.Location()), p.week)))
			}
		case segIndex:
			group++
			indexGroup = group
			b.WriteString(`(\d+)`)
		}
	}
	extGroup := -1
	var alts []string
	for _, ext := range exts {
		if ext != "" {
			alts = append(alts, regexp.QuoteMeta(ext))
		}
	}
	if len(alts) > 0 {
		group++
		extGroup = group
		b.WriteString("(" + strings.Join(alts, "|") + ")?")
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("xpattern: build matcher for %q: %w", p.pattern, err)
	}
	return &Matcher{re: re, indexGroup: indexGroup, extGroup: extGroup}, nil
}

// Match 匹配路径，返回序号（无序号模式为 0）与匹配到的压缩扩展名
func (m *Matcher) Match(path string) (index int, ext string, ok bool) {
	sub := m.re.FindStringSubmatch(filepath.ToSlash(path))
	if sub == nil {
		return 0, "", false
	}
	if m.indexGroup > 0 {
		n, err := strconv.Atoi(sub[m.indexGroup])
		if err != nil {
			return 0, "", false
		}
		index = n
	}
	if m.extGroup > 0 {
		ext = sub[m.extGroup]
	}
	return index, ext, true
}

// String 返回正则表达式
func (m *Matcher) String() string {
	return m.re.String()
}
