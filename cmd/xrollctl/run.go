package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xroll/pkg/config/xconf"
	"github.com/omeyang/xroll/pkg/observability/xrotate"
	"github.com/omeyang/xroll/pkg/util/xsize"
)

func createRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "按配置文件创建 appender 并并发写入，用于演练滚动与清理",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Required: true, Usage: "配置文件（.yaml/.yml/.json）"},
			&cli.IntFlag{Name: "writers", Aliases: []string{"w"}, Value: 4, Usage: "并发写入协程数"},
			&cli.IntFlag{Name: "lines", Aliases: []string{"n"}, Value: 1000, Usage: "每个协程写入的行数，0 表示直到中断"},
			&cli.StringFlag{Name: "line-size", Value: "128B", Usage: "每行大小"},
			&cli.DurationFlag{Name: "interval", Usage: "每行之间的间隔"},
			&cli.BoolFlag{Name: "watch", Usage: "监视配置文件并热加载"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := runOptionsFrom(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()
			return cmdRun(ctx, cmd, opts)
		},
	}
}

type runOptions struct {
	config   string
	writers  int
	lines    int
	lineSize int
	interval time.Duration
	watch    bool
}

func runOptionsFrom(cmd *cli.Command) (runOptions, error) {
	o := runOptions{
		config:   cmd.String("config"),
		writers:  cmd.Int("writers"),
		lines:    cmd.Int("lines"),
		interval: cmd.Duration("interval"),
		watch:    cmd.Bool("watch"),
	}
	if o.writers < 1 {
		return o, usagef("--writers 必须大于 0")
	}
	if o.lines < 0 {
		return o, usagef("--lines 不能为负数")
	}
	n, err := xsize.Parse(cmd.String("line-size"))
	if err != nil {
		return o, usagef("--line-size: %v", err)
	}
	o.lineSize = int(min(n, 1<<20))
	return o, nil
}

// runStats 写入统计
type runStats struct {
	lines atomic.Int64
	bytes atomic.Int64
}

func cmdRun(ctx context.Context, cmd *cli.Command, o runOptions) (err error) {
	src, err := xconf.Open(o.config)
	if err != nil {
		return err
	}
	cfg, err := src.Config()
	if err != nil {
		return err
	}
	if len(cfg.Appenders) == 0 {
		return usagef("配置 %s 中没有 appender", o.config)
	}

	rt := xconf.NewRuntime()
	defer func() {
		// 取消后仍需等待归档动作完成
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultDrain)
		defer cancel()
		err = errors.Join(err, rt.Close(closeCtx))
	}()
	if err := rt.Apply(ctx, cfg); err != nil {
		return err
	}

	if o.watch {
		w, err := xconf.Watch(src, rt.OnChange(ctx))
		if err != nil {
			return err
		}
		w.StartAsync()
		defer func() { _ = w.Stop() }()
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "appenders: %s\n", strings.Join(rt.Names(), ", "))

	start := time.Now()
	var stats runStats
	g, gctx := errgroup.WithContext(ctx)
	for id := range o.writers {
		g.Go(func() error {
			return writeLoop(gctx, rt, id, o, &stats)
		})
	}
	werr := g.Wait()

	elapsed := time.Since(start)
	fmt.Fprintf(out, "wrote %d lines (%s) in %s, config generation %d\n",
		stats.lines.Load(), xsize.Format(stats.bytes.Load()),
		elapsed.Round(time.Millisecond), rt.Generation())
	return werr
}

// writeLoop 轮流向各 appender 写入。每次写入前重新获取 appender，
// 热加载替换后的 appender 立即生效；context 结束视为正常停止。
func writeLoop(ctx context.Context, rt *xconf.Runtime, id int, o runOptions, stats *runStats) error {
	var timer *time.Timer
	if o.interval > 0 {
		timer = time.NewTimer(o.interval)
		defer timer.Stop()
	}
	for seq := 0; o.lines == 0 || seq < o.lines; seq++ {
		if ctx.Err() != nil {
			return nil
		}
		names := rt.Names()
		if len(names) == 0 {
			return errors.New("xrollctl: no appender configured")
		}
		name := names[(id+seq)%len(names)]
		line := formatLine(id, seq, name, o.lineSize)
		if err := writeTo(rt, name, line); err != nil {
			return fmt.Errorf("writer %d: %w", id, err)
		}
		stats.lines.Add(1)
		stats.bytes.Add(int64(len(line)))

		if timer != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
				timer.Reset(o.interval)
			}
		}
	}
	return nil
}

// writeTo 写入命名 appender；写入期间恰好被热加载替换时重试一次
func writeTo(rt *xconf.Runtime, name string, line []byte) error {
	for attempt := 0; ; attempt++ {
		a, ok := rt.Appender(name)
		if !ok {
			// 已从配置中移除
			return nil
		}
		_, err := a.Write(line)
		if errors.Is(err, xrotate.ErrClosed) && attempt == 0 {
			continue
		}
		return err
	}
}

// formatLine 生成定长日志行，以换行结尾
func formatLine(id, seq int, name string, size int) []byte {
	head := fmt.Sprintf("%s writer=%d seq=%d appender=%s ",
		time.Now().Format(time.RFC3339Nano), id, seq, name)
	size = max(size, len(head)+1)
	buf := make([]byte, size)
	copy(buf, head)
	for i := len(head); i < size-1; i++ {
		buf[i] = byte('a' + (i-len(head))%26)
	}
	buf[size-1] = '\n'
	return buf
}
