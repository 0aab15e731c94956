// Package xpattern 解析滚动文件名模式并计算时间边界。
//
// 模式语法：
//
//	%d / %date            日期，默认格式 yyyy-MM-dd
//	%d{yyyy-MM-dd-HH}     Java SimpleDateFormat 风格格式
//	%d{HH:mm}{UTC}        第二个选项为时区 ID
//	%d{ISO8601}           命名格式：DEFAULT ISO8601 ISO8601_BASIC ABSOLUTE DATE COMPACT
//	%i / %index           滚动序号
//	%%                    字面量 '%'
//
// 一个模式最多包含一个日期和一个序号，例如：
//
//	logs/app-%d{yyyy-MM-dd}-%i.log.gz
//
// 日期格式中最小的时间单位决定滚动频率（[Processor.Frequency]），
// [Processor.NextTime] 按该频率计算下一个周期的起点：
//
//	p, _ := xpattern.Parse("app-%d{yyyy-MM}.log")
//	p.NextTime(time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC), 1, false)
//	// 2025-01-01 00:00:00
//
// 周频率的周起点取决于区域设置（[WithLocale]）：美国为周日，法国为周一。
//
// 设计决策: 天及以上单位按所在时区的日历日期计算；小时及以下单位按当前时区偏移
// 截断后累加绝对时长，夏令时切换时保持配置的时长不变。
//
// Processor 除文件时间外不可变，可在多个 goroutine 间共享。
package xpattern
