package xpattern

import "time"

// NextTime 返回 now 之后下一个滚动周期的起点。
//
// increment 为周期跨越的单位数（小于 1 按 1 处理）。modulate 为 true 时
// 对齐到单位字段的 increment 倍数，例如小时频率、increment=4 时边界落在
// 0、4、8... 点。对齐使用的字段值：年、从 0 开始的月、周序号、
// 从 1 开始的年内天数、小时、分、秒、毫秒。
//
// 无日期的模式返回零值。返回值总是严格晚于 now。
func (p *Processor) NextTime(now time.Time, increment int, modulate bool) time.Time {
	freq := p.Frequency()
	if freq == FreqNone {
		return time.Time{}
	}
	if increment < 1 {
		increment = 1
	}
	t := now.In(p.Location())
	loc := t.Location()
	step := func(cur int) int {
		if !modulate {
			return increment
		}
		return increment - mod(cur, increment)
	}

	var next time.Time
	switch freq {
	case FreqYear:
		next = time.Date(t.Year()+step(t.Year()), time.January, 1, 0, 0, 0, 0, loc)
	case FreqMonth:
		next = time.Date(t.Year(), t.Month()+time.Month(step(int(t.Month())-1)), 1, 0, 0, 0, 0, loc)
	case FreqWeek:
		// 周序号按 "第一周必须完整" 计算
		_, w := p.week.weekOfYearMin(t, 7)
		start := p.week.weekStart(t)
		next = time.Date(start.Year(), start.Month(), start.Day()+7*step(w), 0, 0, 0, 0, loc)
	case FreqDay:
		next = time.Date(t.Year(), t.Month(), t.Day()+step(t.YearDay()), 0, 0, 0, 0, loc)
	default:
		unit := freq.fixed()
		start := truncateLocal(t, unit)
		next = start.Add(time.Duration(step(fieldValue(t, freq))) * unit)
	}

	// 夏令时跳变可能让日历计算落在 now 之前，按未对齐步长推进
	for !next.After(now) {
		next = p.advance(next, freq, increment)
	}
	return next.In(loc)
}

// PeriodStart 返回 t 所在周期（increment=1）的起点
func (p *Processor) PeriodStart(t time.Time) time.Time {
	freq := p.Frequency()
	t = t.In(p.Location())
	loc := t.Location()
	switch freq {
	case FreqNone:
		return t
	case FreqYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
	case FreqMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	case FreqWeek:
		return p.week.weekStart(t)
	case FreqDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	default:
		return truncateLocal(t, freq.fixed())
	}
}

// PrevTime 返回 now 所在周期之前一个周期的起点，用于命名已结束周期的归档
func (p *Processor) PrevTime(now time.Time) time.Time {
	start := p.PeriodStart(now)
	return p.PeriodStart(start.Add(-time.Nanosecond))
}

func (p *Processor) advance(t time.Time, freq Frequency, n int) time.Time {
	switch freq {
	case FreqYear:
		return t.AddDate(n, 0, 0)
	case FreqMonth:
		return t.AddDate(0, n, 0)
	case FreqWeek:
		return t.AddDate(0, 0, 7*n)
	case FreqDay:
		return t.AddDate(0, 0, n)
	default:
		return t.Add(time.Duration(n) * freq.fixed())
	}
}

// truncateLocal 按 t 所在时区的当前偏移截断到 unit
func truncateLocal(t time.Time, unit time.Duration) time.Time {
	_, off := t.Zone()
	shift := time.Duration(off) * time.Second
	return t.Add(shift).Truncate(unit).Add(-shift).In(t.Location())
}

func fieldValue(t time.Time, freq Frequency) int {
	switch freq {
	case FreqHour:
		return t.Hour()
	case FreqMinute:
		return t.Minute()
	case FreqSecond:
		return t.Second()
	case FreqMillisecond:
		return t.Nanosecond() / int(time.Millisecond)
	default:
		return 0
	}
}

func mod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
