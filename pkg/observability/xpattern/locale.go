package xpattern

import (
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// weekRules 区域相关的周定义
type weekRules struct {
	firstDay time.Weekday
	minDays  int // 一年第一周至少包含的天数
}

// 区域周数据（CLDR weekData）
var (
	sundayFirst = regionSet("AG AS BD BR BS BT BW BZ CA CN CO DM DO ET GT GU HK HN ID IL IN JM JP KE KH KR LA MH MM MO MT MX MZ NI NP PA PE PH PK PR PT PY SA SG SV TH TT TW UM US VE VI WS YE ZA ZW")

	saturdayFirst = regionSet("AE AF BH DJ DZ EG IQ IR JO KW LY OM QA SD SY")

	minDays4 = regionSet("AD AN AT AX BE BG CH CZ DE DK EE ES FI FJ FO FR GB GF GG GI GP GR HU IE IM IS IT JE LI LT LU MC MQ NL NO PL RE RU SE SJ SK SM VA")
)

func regionSet(list string) map[string]struct{} {
	m := make(map[string]struct{})
	for _, r := range strings.Fields(list) {
		m[r] = struct{}{}
	}
	return m
}

// rulesFor 返回语言标签对应的周定义。无法确定地区时按周一开始、最少 1 天。
func rulesFor(tag language.Tag) weekRules {
	wr := weekRules{firstDay: time.Monday, minDays: 1}
	region, conf := tag.Region()
	if conf == language.No {
		return wr
	}
	code := region.String()
	if _, ok := sundayFirst[code]; ok {
		wr.firstDay = time.Sunday
	} else if _, ok := saturdayFirst[code]; ok {
		wr.firstDay = time.Saturday
	}
	if _, ok := minDays4[code]; ok {
		wr.minDays = 4
	}
	return wr
}

// environmentLocale 从 LC_ALL / LC_TIME / LANG 推断区域，如 "en_US.UTF-8"
func environmentLocale() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		if tag, err := language.Parse(strings.ReplaceAll(v, "_", "-")); err == nil {
			return tag
		}
	}
	return language.Und
}

// dayNumber 返回日历日期对应的连续天数，与时区和夏令时无关
func dayNumber(y int, m time.Month, d int) int {
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func dayNumberOf(t time.Time) int {
	y, m, d := t.Date()
	return dayNumber(y, m, d)
}

// daysBack 返回 t 所在周起点距 t 的天数
func (wr weekRules) daysBack(t time.Time) int {
	return (int(t.Weekday()) - int(wr.firstDay) + 7) % 7
}

// weekStart 返回 t 所在周第一天 00:00（t 所在时区）
func (wr weekRules) weekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-wr.daysBack(t), 0, 0, 0, 0, t.Location())
}

// firstWeekDay 返回 year 第一周起点的天数编号
func (wr weekRules) firstWeekDay(year int, minDays int) int {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := wr.daysBack(jan1)
	start := dayNumber(year, time.January, 1) - offset
	if 7-offset < minDays {
		start += 7
	}
	return start
}

// weekOfYear 按区域规则返回 (周所属年份, 周序号)
func (wr weekRules) weekOfYear(t time.Time) (int, int) {
	return wr.weekOfYearMin(t, wr.minDays)
}

func (wr weekRules) weekOfYearMin(t time.Time, minDays int) (int, int) {
	day := dayNumberOf(t) - wr.daysBack(t)
	year := t.Year()
	if next := wr.firstWeekDay(year+1, minDays); day >= next {
		return year + 1, 1
	}
	first := wr.firstWeekDay(year, minDays)
	if day < first {
		year--
		first = wr.firstWeekDay(year, minDays)
	}
	return year, (day-first)/7 + 1
}

// weekOfMonth 按区域规则返回月内周序号；不足 minDays 的首周记为第 0 周
func (wr weekRules) weekOfMonth(t time.Time) int {
	y, m, _ := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	offset := wr.daysBack(first)
	start := dayNumber(y, m, 1) - offset
	if 7-offset < wr.minDays {
		start += 7
	}
	day := dayNumberOf(t) - wr.daysBack(t)
	if day < start {
		return 0
	}
	return (day-start)/7 + 1
}
