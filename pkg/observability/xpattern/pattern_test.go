package xpattern

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// =============================================================================
// 解析
// =============================================================================

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr error
	}{
		{name: "空模式", pattern: "  ", wantErr: ErrEmptyPattern},
		{name: "两个日期", pattern: "app-%d-%date.log", wantErr: ErrMultipleDates},
		{name: "两个序号", pattern: "app-%i-%index.log", wantErr: ErrMultipleIndexes},
		{name: "选项未闭合", pattern: "app-%d{yyyy.log", wantErr: ErrUnclosedOption},
		{name: "未知转换符", pattern: "app-%x.log", wantErr: ErrUnknownConverter},
		{name: "非法日期字母", pattern: "app-%d{qq}.log", wantErr: ErrBadDateFormat},
		{name: "引号未闭合", pattern: "app-%d{yyyy'T}.log", wantErr: ErrBadDateFormat},
		{name: "未知时区", pattern: "app-%d{yyyy}{Nowhere/Zone}.log", wantErr: ErrUnknownZone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.pattern)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_Tokens(t *testing.T) {
	tests := []struct {
		pattern   string
		hasDate   bool
		hasIndex  bool
		frequency Frequency
	}{
		{pattern: "app.log", frequency: FreqNone},
		{pattern: "app-%i.log", hasIndex: true, frequency: FreqNone},
		{pattern: "app-%d.log", hasDate: true, frequency: FreqDay},
		{pattern: "app-%date{yyyy-MM}-%index.log", hasDate: true, hasIndex: true, frequency: FreqMonth},
		{pattern: "app-%d{yyyy-ww}.log", hasDate: true, frequency: FreqWeek},
		{pattern: "app-%d{yyyy-MM-dd-HH}.log", hasDate: true, frequency: FreqHour},
		{pattern: "app-%d{HH-mm}.log", hasDate: true, frequency: FreqMinute},
		{pattern: "app-%d{ISO8601}.log", hasDate: true, frequency: FreqMillisecond},
		{pattern: "app-%d{yyyy'-MM-'dd}.log", hasDate: true, frequency: FreqDay},
		{pattern: "%%d-%i.log", hasIndex: true, frequency: FreqNone},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := Parse(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.hasDate, p.HasDate())
			assert.Equal(t, tt.hasIndex, p.HasIndex())
			assert.Equal(t, tt.frequency, p.Frequency(), tt.frequency.String())
			assert.Equal(t, tt.pattern, p.Pattern())
		})
	}
}

// =============================================================================
// 格式化
// =============================================================================

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.UTC) // 周二
	tests := []struct {
		pattern string
		index   int
		want    string
	}{
		{pattern: "app-%d{yyyy-MM-dd}-%i.log.gz", index: 3, want: "app-2024-03-05-3.log.gz"},
		{pattern: "app-%d.log", want: "app-2024-03-05.log"},
		{pattern: "%d{yy.M.d}", want: "24.3.5"},
		{pattern: "%d{MMM}", want: "Mar"},
		{pattern: "%d{MMMM EEEE}", want: "March Tuesday"},
		{pattern: "%d{EEE}", want: "Tue"},
		{pattern: "%d{DDD}", want: "065"},
		{pattern: "%d{h a k K}", want: "7 AM 7 7"},
		{pattern: "%d{u F}", want: "2 1"},
		{pattern: "%d{ISO8601}", want: "2024-03-05T07:08:09,123"},
		{pattern: "%d{ISO8601_BASIC}", want: "20240305T070809,123"},
		{pattern: "%d{COMPACT}", want: "20240305070809123"},
		{pattern: "%d{ABSOLUTE}", want: "07:08:09,123"},
		{pattern: "%d{DATE}", want: "05 Mar 2024 07:08:09,123"},
		{pattern: "%d{DEFAULT}", want: "2024-03-05 07:08:09,123"},
		{pattern: "%d{Z XXX}", want: "+0000 Z"},
		{pattern: "%d{'T'HH''mm}", want: "T07'08"},
		{pattern: "100%%-%i", index: 7, want: "100%-7"},
		{pattern: "%d{yyyy-MM-dd}{Asia/Shanghai}", want: "2024-03-05"},
		{pattern: "%d{G}", want: "AD"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := Parse(tt.pattern, WithLocation(time.UTC))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Format(ts, tt.index))
		})
	}
}

func TestFormat_ZoneOption(t *testing.T) {
	p := MustParse("%d{yyyy-MM-dd HH}{Asia/Shanghai}", WithLocation(time.UTC))
	ts := time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-06 04", p.Format(ts, 0))
	assert.Equal(t, "Asia/Shanghai", p.Location().String())

	fixed := time.FixedZone("X", 5*3600+30*60)
	q := MustParse("%d{Z|XXX|X}", WithLocation(fixed))
	assert.Equal(t, "+0530|+05:30|+05", q.Format(ts, 0))
}

func TestFormat_WeekOfYearByLocale(t *testing.T) {
	ts := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC) // 周五

	fr := MustParse("%d{YYYY-ww}", WithLocation(time.UTC), WithLocale(language.MustParse("fr-FR")))
	assert.Equal(t, "2020-53", fr.Format(ts, 0))
	assert.Equal(t, time.Monday, fr.FirstDayOfWeek())

	us := MustParse("%d{YYYY-ww}", WithLocation(time.UTC), WithLocale(language.AmericanEnglish))
	assert.Equal(t, "2021-01", us.Format(ts, 0))
	assert.Equal(t, time.Sunday, us.FirstDayOfWeek())

	eg := MustParse("%d{w}", WithLocale(language.MustParse("ar-EG")))
	assert.Equal(t, time.Saturday, eg.FirstDayOfWeek())

	und := MustParse("%d{w}", WithLocale(language.Und))
	assert.Equal(t, time.Monday, und.FirstDayOfWeek())
}

// =============================================================================
// 目录与匹配
// =============================================================================

func TestBaseDir(t *testing.T) {
	tests := []struct {
		pattern string
		base    string
		depth   int
		rel     string
		joined  string
	}{
		{pattern: "logs/app-%i.log", base: "logs", depth: 1, rel: "app-1.log", joined: "logs/app-1.log"},
		{pattern: "app-%i.log", base: ".", depth: 1, rel: "app-1.log", joined: "app-1.log"},
		{pattern: "/var/log/app/%d{yyyy-MM}/x-%i.log", base: "/var/log/app", depth: 2, rel: "2024-03/x-1.log", joined: "/var/log/app/2024-03/x-1.log"},
		{pattern: "./logs/app-%i.log", base: "logs", depth: 1, rel: "app-1.log", joined: "./logs/app-1.log"},
		{pattern: "/app-%i.log", base: "/", depth: 1, rel: "app-1.log", joined: "/app-1.log"},
		{pattern: "logs/app.log", base: "logs", depth: 1, rel: "app.log", joined: "logs/app.log"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p := MustParse(tt.pattern)
			assert.Equal(t, tt.base, p.BaseDir())
			assert.Equal(t, tt.depth, p.Depth())
			assert.Equal(t, tt.joined, p.JoinBase(tt.rel))
		})
	}
}

func TestMatcher(t *testing.T) {
	p := MustParse("logs/app-%d{yyyy-MM-dd}-%i.log.gz", WithLocation(time.UTC))
	ts := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	m, err := p.Matcher(ts, false, ".gz", ".zip")
	require.NoError(t, err)

	tests := []struct {
		path    string
		index   int
		ext     string
		matched bool
	}{
		{path: "logs/app-2024-03-05-3.log", index: 3, matched: true},
		{path: "logs/app-2024-03-05-12.log.gz", index: 12, ext: ".gz", matched: true},
		{path: "logs/app-2024-03-05-2.log.zip", index: 2, ext: ".zip", matched: true},
		{path: "logs/app-2024-03-04-1.log", matched: false},
		{path: "logs/app-2024-03-05-1.log.gz.tmp", matched: false},
		{path: "logs/app-2024-03-05-x.log", matched: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			idx, ext, ok := m.Match(tt.path)
			assert.Equal(t, tt.matched, ok, m.String())
			if tt.matched {
				assert.Equal(t, tt.index, idx)
				assert.Equal(t, tt.ext, ext)
			}
		})
	}

	anyDate, err := p.Matcher(ts, true, ".gz")
	require.NoError(t, err)
	idx, _, ok := anyDate.Match("logs/app-2024-03-04-1.log")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	noIndex := MustParse("app-%d{yyyy-MMM}.log")
	nm, err := noIndex.Matcher(ts, true)
	require.NoError(t, err)
	idx, ext, ok := nm.Match("app-2024-Mar.log")
	assert.True(t, ok)
	assert.Zero(t, idx)
	assert.Empty(t, ext)
}

func TestFileTime(t *testing.T) {
	p := MustParse("app-%d.log")
	assert.True(t, p.CurrentFileTime().IsZero())
	assert.True(t, p.PrevFileTime().IsZero())

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.AddDate(0, 0, 1)
	p.SetCurrentFileTime(t1)
	assert.True(t, t1.Equal(p.CurrentFileTime()))
	p.AdvanceFileTime(t2)
	assert.True(t, t1.Equal(p.PrevFileTime()))
	assert.True(t, t2.Equal(p.CurrentFileTime()))
}

func FuzzParse(f *testing.F) {
	f.Add("logs/app-%d{yyyy-MM-dd}-%i.log.gz")
	f.Add("%d{'x''y'}")
	f.Add("%%%")
	f.Add("%d{")
	f.Fuzz(func(t *testing.T, pattern string) {
		p, err := Parse(pattern, WithLocation(time.UTC), WithLocale(language.Und))
		if err != nil {
			return
		}
		now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		_ = p.Format(now, 1)
		if p.Frequency() != FreqNone {
			if next := p.NextTime(now, 1, true); !next.After(now) {
				t.Fatalf("NextTime(%s) = %s not after now", pattern, next)
			}
		}
		if _, err := p.Matcher(now, true, ".gz"); err != nil {
			t.Fatalf("Matcher(%q): %v", pattern, err)
		}
	})
}
