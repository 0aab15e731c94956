package xpattern

import "time"

// Frequency 滚动频率，按时间单位从小到大排列
type Frequency int

// 频率常量
const (
	FreqNone Frequency = iota
	FreqMillisecond
	FreqSecond
	FreqMinute
	FreqHour
	FreqDay
	FreqWeek
	FreqMonth
	FreqYear
)

var freqNames = [...]string{"none", "millisecond", "second", "minute", "hour", "day", "week", "month", "year"}

// String 返回频率名称
func (f Frequency) String() string {
	if f < 0 || int(f) >= len(freqNames) {
		return "unknown"
	}
	return freqNames[f]
}

// fixed 返回固定长度单位的时长；天及以上单位返回 0
func (f Frequency) fixed() time.Duration {
	switch f {
	case FreqMillisecond:
		return time.Millisecond
	case FreqSecond:
		return time.Second
	case FreqMinute:
		return time.Minute
	case FreqHour:
		return time.Hour
	default:
		return 0
	}
}

// finer 报告 f 是否比 other 更细（时间单位更小）。FreqNone 不比任何频率更细。
func (f Frequency) finer(other Frequency) bool {
	if f == FreqNone {
		return false
	}
	return other == FreqNone || f < other
}

// letterFrequency 返回日期字母对应的时间单位
func letterFrequency(c byte) Frequency {
	switch c {
	case 'S':
		return FreqMillisecond
	case 's':
		return FreqSecond
	case 'm':
		return FreqMinute
	case 'H', 'K', 'h', 'k':
		return FreqHour
	case 'D', 'd', 'F', 'E', 'u':
		return FreqDay
	case 'w', 'W':
		return FreqWeek
	case 'M', 'L':
		return FreqMonth
	case 'y', 'Y':
		return FreqYear
	default:
		return FreqNone
	}
}
