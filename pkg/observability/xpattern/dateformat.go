package xpattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDateFormat 未指定格式时使用的日期格式
const DefaultDateFormat = "yyyy-MM-dd"

// namedFormats 命名日期格式
var namedFormats = map[string]string{
	"DEFAULT":       "yyyy-MM-dd HH:mm:ss,SSS",
	"ISO8601":       "yyyy-MM-dd'T'HH:mm:ss,SSS",
	"ISO8601_BASIC": "yyyyMMdd'T'HHmmss,SSS",
	"ABSOLUTE":      "HH:mm:ss,SSS",
	"DATE":          "dd MMM yyyy HH:mm:ss,SSS",
	"COMPACT":       "yyyyMMddHHmmssSSS",
}

const formatCacheSize = 128

// maxRepeat regexp 允许的最大重复次数
const maxRepeat = 1000

// formatCache 已编译日期格式缓存，按原始格式串索引
var formatCache, _ = lru.New[string, *dateFormat](formatCacheSize)

// field 日期格式中的一个片段：字面量或重复的格式字母
type field struct {
	letter byte // 0 表示字面量
	count  int
	lit    string
}

// dateFormat 编译后的 Java 风格日期格式
type dateFormat struct {
	layout string
	fields []field
	freq   Frequency
}

// compileDateFormat 编译日期格式，命名格式先展开。结果被缓存。
func compileDateFormat(layout string) (*dateFormat, error) {
	if layout == "" {
		layout = DefaultDateFormat
	}
	if named, ok := namedFormats[layout]; ok {
		layout = named
	}
	if df, ok := formatCache.Get(layout); ok {
		return df, nil
	}

	df := &dateFormat{layout: layout}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			df.fields = append(df.fields, field{lit: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(layout); {
		c := layout[i]
		switch {
		case c == '\'':
			// '' 表示单引号；'...' 内为字面量
			if i+1 < len(layout) && layout[i+1] == '\'' {
				lit.WriteByte('\'')
				i += 2
				continue
			}
			end := i + 1
			for {
				if end >= len(layout) {
					return nil, fmt.Errorf("%w: unterminated quote in %q", ErrBadDateFormat, layout)
				}
				if layout[end] == '\'' {
					if end+1 < len(layout) && layout[end+1] == '\'' {
						lit.WriteByte('\'')
						end += 2
						continue
					}
					break
				}
				lit.WriteByte(layout[end])
				end++
			}
			i = end + 1
		case isASCIILetter(c):
			if !supportedLetter(c) {
				return nil, fmt.Errorf("%w: illegal pattern character '%c' in %q", ErrBadDateFormat, c, layout)
			}
			j := i
			for j < len(layout) && layout[j] == c {
				j++
			}
			flush()
			df.fields = append(df.fields, field{letter: c, count: j - i})
			if f := letterFrequency(c); f.finer(df.freq) {
				df.freq = f
			}
			i = j
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()

	formatCache.Add(layout, df)
	return df, nil
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func supportedLetter(c byte) bool {
	return strings.IndexByte("GyYMLwWDdFEuaHkKhmsSzZX", c) >= 0
}

// format 按 Java 语义格式化 t（t 应已转换到目标时区）
func (df *dateFormat) format(t time.Time, wk weekRules) string {
	var b strings.Builder
	for _, f := range df.fields {
		if f.letter == 0 {
			b.WriteString(f.lit)
			continue
		}
		b.WriteString(formatField(f, t, wk))
	}
	return b.String()
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func formatField(f field, t time.Time, wk weekRules) string {
	switch f.letter {
	case 'G':
		if t.Year() <= 0 {
			return "BC"
		}
		return "AD"
	case 'y':
		if f.count == 2 {
			return pad(t.Year()%100, 2)
		}
		return pad(t.Year(), f.count)
	case 'Y':
		y, _ := wk.weekOfYear(t)
		if f.count == 2 {
			return pad(y%100, 2)
		}
		return pad(y, f.count)
	case 'M', 'L':
		switch {
		case f.count >= 4:
			return t.Month().String()
		case f.count == 3:
			return t.Month().String()[:3]
		default:
			return pad(int(t.Month()), f.count)
		}
	case 'w':
		_, w := wk.weekOfYear(t)
		return pad(w, f.count)
	case 'W':
		return pad(wk.weekOfMonth(t), f.count)
	case 'D':
		return pad(t.YearDay(), f.count)
	case 'd':
		return pad(t.Day(), f.count)
	case 'F':
		return pad((t.Day()-1)/7+1, f.count)
	case 'E':
		if f.count >= 4 {
			return t.Weekday().String()
		}
		return t.Weekday().String()[:3]
	case 'u':
		wd := int(t.Weekday())
		if wd == 0 {
			wd = 7
		}
		return pad(wd, f.count)
	case 'a':
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case 'H':
		return pad(t.Hour(), f.count)
	case 'k':
		h := t.Hour()
		if h == 0 {
			h = 24
		}
		return pad(h, f.count)
	case 'K':
		return pad(t.Hour()%12, f.count)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, f.count)
	case 'm':
		return pad(t.Minute(), f.count)
	case 's':
		return pad(t.Second(), f.count)
	case 'S':
		return pad(t.Nanosecond()/int(time.Millisecond), f.count)
	case 'z':
		name, _ := t.Zone()
		return name
	case 'Z':
		return zoneOffset(t, false, false)
	case 'X':
		_, off := t.Zone()
		if off == 0 {
			return "Z"
		}
		switch f.count {
		case 1:
			return zoneOffset(t, false, true)
		case 2:
			return zoneOffset(t, false, false)
		default:
			return zoneOffset(t, true, false)
		}
	}
	return ""
}

// zoneOffset 格式化时区偏移：+0800、+08:00 或 +08
func zoneOffset(t time.Time, colon, hoursOnly bool) string {
	_, off := t.Zone()
	sign := "+"
	if off < 0 {
		sign = "-"
		off = -off
	}
	h, m := off/3600, (off%3600)/60
	switch {
	case hoursOnly:
		return sign + pad(h, 2)
	case colon:
		return sign + pad(h, 2) + ":" + pad(m, 2)
	default:
		return sign + pad(h, 2) + pad(m, 2)
	}
}

// regexp 返回匹配任意日期的正则片段
func (df *dateFormat) regexp() string {
	var b strings.Builder
	for _, f := range df.fields {
		if f.letter == 0 {
			b.WriteString(regexp.QuoteMeta(f.lit))
			continue
		}
		switch f.letter {
		case 'G', 'a', 'E':
			b.WriteString(`[A-Za-z]+`)
		case 'M', 'L':
			if f.count >= 3 {
				b.WriteString(`[A-Za-z]+`)
			} else {
				fmt.Fprintf(&b, `\d{%d,}`, min(f.count, maxRepeat))
			}
		case 'z':
			b.WriteString(`[A-Za-z0-9+\-]+`)
		case 'Z', 'X':
			b.WriteString(`(?:Z|[+\-]\d{2}:?(?:\d{2})?)`)
		case 'y', 'Y':
			if f.count == 2 {
				b.WriteString(`\d{2}`)
			} else {
				fmt.Fprintf(&b, `-?\d{%d,}`, min(f.count, maxRepeat))
			}
		default:
			fmt.Fprintf(&b, `\d{%d,}`, min(f.count, maxRepeat))
		}
	}
	return b.String()
}
