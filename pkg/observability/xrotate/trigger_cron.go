package xrotate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser 支持可选秒字段与 @daily 等描述符
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CronTrigger 按 cron 表达式在后台定时轮转
//
// 轮转由调度 goroutine 推送（调用 [Manager.Rollover]，与写入争用同一把锁），
// 写入路径上从不触发。evaluateOnStartup 为 true 时，若文件最后修改后
// 已错过至少一次调度时刻，则在初始化时轮转一次。
type CronTrigger struct {
	expr              string
	schedule          cron.Schedule
	evaluateOnStartup bool

	mu     sync.Mutex
	runner *cron.Cron
}

var (
	_ TriggeringPolicy = (*CronTrigger)(nil)
	_ Stopper          = (*CronTrigger)(nil)
)

// NewCronTrigger 解析表达式（5 或 6 段，或 @every / @daily 等描述符）
func NewCronTrigger(expr string, evaluateOnStartup bool) (*CronTrigger, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidCron, expr, err)
	}
	return &CronTrigger{expr: expr, schedule: sched, evaluateOnStartup: evaluateOnStartup}, nil
}

// Initialize 实现 TriggeringPolicy，启动调度 goroutine。
// 时区取文件模式的日期时区。重复初始化会先停止旧的调度。
func (c *CronTrigger) Initialize(m *Manager) error {
	runner := cron.New(
		cron.WithLocation(m.PatternProcessor().Location()),
		cron.WithParser(cronParser),
	)
	runner.Schedule(c.schedule, cron.FuncJob(func() {
		if err := m.rollover(context.Background(), reasonCron); err != nil {
			m.status.Debug(context.Background(), "cron rollover skipped",
				"file", m.FileName(), "cron", c.expr, "error", err)
		}
	}))

	c.mu.Lock()
	old := c.runner
	c.runner = runner
	c.mu.Unlock()
	if old != nil {
		<-old.Stop().Done()
	}
	runner.Start()
	return nil
}

// IsTriggeringEvent 实现 TriggeringPolicy
func (c *CronTrigger) IsTriggeringEvent(m *Manager, ev Event) bool {
	if !ev.Startup || !c.evaluateOnStartup {
		return false
	}
	ft := m.FileTime()
	if ft.IsZero() || m.FileSize() == 0 {
		return false
	}
	return !c.schedule.Next(ft).After(ev.Time)
}

// Stop 实现 Stopper，等待正在执行的轮转结束或 ctx 到期
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.runner
	c.runner = nil
	c.mu.Unlock()
	if runner == nil {
		return nil
	}
	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next 返回 t 之后的下一个调度时刻
func (c *CronTrigger) Next(t time.Time) time.Time {
	return c.schedule.Next(t)
}

// String 便于日志输出
func (c *CronTrigger) String() string {
	return "CronTrigger[" + c.expr + "]"
}
