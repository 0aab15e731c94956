package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/language"

	"github.com/omeyang/xroll/pkg/observability/xaction"
	"github.com/omeyang/xroll/pkg/observability/xpattern"
	"github.com/omeyang/xroll/pkg/util/xsize"
)

// exitError 表示需要非零退出码但已完成输出的场景。
// 命令内部已完成所有输出，main 只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 参数错误，退出码 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// isCLIUsageError 识别 urfave/cli 的参数解析错误。
// cli 没有导出错误类型，只能按消息判断。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"flag provided but not defined",
		"No help topic for",
		"invalid value",
		"Required flag",
		"flag needs an argument",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createNextTimeCommand(),
		createSizeCommand(),
		createCompressCommand(),
		createDecompressCommand(),
		createPurgeCommand(),
		createRunCommand(),
	}
}

// withTimeout 应用全局 --timeout
func withTimeout(ctx context.Context, cmd *cli.Command) (context.Context, context.CancelFunc) {
	if d := cmd.Root().Duration("timeout"); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// =============================================================================
// next-time
// =============================================================================

func createNextTimeCommand() *cli.Command {
	return &cli.Command{
		Name:      "next-time",
		Aliases:   []string{"nt"},
		Usage:     "计算文件模式接下来的滚动时刻及对应文件名",
		ArgsUsage: "<pattern>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "起始时间（RFC3339），默认当前时间"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1, Usage: "输出的滚动时刻个数"},
			&cli.IntFlag{Name: "interval", Aliases: []string{"i"}, Value: 1, Usage: "周期跨越的单位数"},
			&cli.BoolFlag{Name: "modulate", Aliases: []string{"m"}, Usage: "对齐到 interval 的整数倍"},
			&cli.StringFlag{Name: "tz", Usage: "时区（IANA 名称），默认本地时区"},
			&cli.StringFlag{Name: "locale", Usage: "区域设置（BCP 47），影响周的起始日"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usagef("next-time 需要一个 <pattern> 参数")
			}
			return cmdNextTime(cmd, cmd.Args().First())
		},
	}
}

func cmdNextTime(cmd *cli.Command, pattern string) error {
	var opts []xpattern.Option
	if tz := cmd.String("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return usagef("无效时区 %q: %v", tz, err)
		}
		opts = append(opts, xpattern.WithLocation(loc))
	}
	if l := cmd.String("locale"); l != "" {
		tag, err := language.Parse(l)
		if err != nil {
			return usagef("无效区域设置 %q: %v", l, err)
		}
		opts = append(opts, xpattern.WithLocale(tag))
	}
	p, err := xpattern.Parse(pattern, opts...)
	if err != nil {
		return usagef("%v", err)
	}
	if !p.HasDate() {
		return usagef("模式 %q 不含日期转换符", pattern)
	}

	now := time.Now()
	if from := cmd.String("from"); from != "" {
		if now, err = time.Parse(time.RFC3339, from); err != nil {
			return usagef("无效起始时间 %q: %v", from, err)
		}
	}
	count := cmd.Int("count")
	if count < 1 {
		return usagef("--count 必须大于 0")
	}

	w := cmd.Root().Writer
	fmt.Fprintf(w, "frequency: %s\n", p.Frequency())
	t := now
	for range count {
		t = p.NextTime(t, cmd.Int("interval"), cmd.Bool("modulate"))
		// 滚动时刻生成的是上一周期的文件名
		fmt.Fprintf(w, "%s  %s\n", t.Format(time.RFC3339), p.Format(p.PrevTime(t), 1))
	}
	return nil
}

// =============================================================================
// size
// =============================================================================

func createSizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "size",
		Usage:     "解析文件大小表达式（如 \"10 MB\"、\"10,5KB\"）",
		ArgsUsage: "<expr>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return usagef("size 需要一个 <expr> 参数")
			}
			// 允许不加引号的 "10 MB"
			expr := strings.Join(cmd.Args().Slice(), " ")
			n, err := xsize.Parse(expr)
			if err != nil {
				return usagef("%v", err)
			}
			fmt.Fprintf(cmd.Root().Writer, "%d bytes (%s, %s)\n", n, xsize.Format(n), humanize.Comma(n))
			return nil
		},
	}
}

// =============================================================================
// compress / decompress
// =============================================================================

func createCompressCommand() *cli.Command {
	return &cli.Command{
		Name:      "compress",
		Usage:     "压缩文件，编码器按目标扩展名选择",
		ArgsUsage: "<src> [dst]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "level", Aliases: []string{"l"}, Value: xaction.LevelDefault, Usage: "压缩级别（-1 使用编码器默认值）"},
			&cli.BoolFlag{Name: "keep", Aliases: []string{"k"}, Usage: "保留源文件"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() < 1 || args.Len() > 2 {
				return usagef("compress 需要 <src> [dst] 参数")
			}
			src := args.Get(0)
			dst := args.Get(1)
			if dst == "" {
				dst = src + ".gz"
			}
			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()
			return cmdCompress(ctx, cmd, src, dst)
		},
	}
}

func cmdCompress(ctx context.Context, cmd *cli.Command, src, dst string) error {
	c, err := xaction.NewCompress(src, dst, cmd.Int("level"), nil)
	if err != nil {
		return usagef("%v（支持: %s）", err, strings.Join(xaction.DefaultRegistry().Extensions(), " "))
	}
	c.KeepSource = cmd.Bool("keep")
	done, err := c.Execute(ctx)
	if err != nil {
		return err
	}
	if !done {
		return fmt.Errorf("源文件不存在: %s", src)
	}
	return printTransform(cmd, c.Codec.Name(), src, dst)
}

func createDecompressCommand() *cli.Command {
	return &cli.Command{
		Name:      "decompress",
		Usage:     "解压文件，编码器按源扩展名选择",
		ArgsUsage: "<src> [dst]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "keep", Aliases: []string{"k"}, Usage: "保留源文件"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() < 1 || args.Len() > 2 {
				return usagef("decompress 需要 <src> [dst] 参数")
			}
			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()
			return cmdDecompress(ctx, cmd, args.Get(0), args.Get(1))
		},
	}
}

func cmdDecompress(ctx context.Context, cmd *cli.Command, src, dst string) error {
	codec, ok := xaction.DefaultRegistry().ForFile(src)
	if !ok {
		return usagef("无法识别压缩格式: %s（支持: %s）", src,
			strings.Join(xaction.DefaultRegistry().Extensions(), " "))
	}
	if dst == "" {
		dst = src[:len(src)-len(codec.Extension())]
	}
	if dst == "" || dst == src {
		return usagef("无法推断目标文件名，请显式指定 [dst]")
	}
	d := &xaction.Decompress{Source: src, Target: dst, Codec: codec, KeepSource: cmd.Bool("keep")}
	done, err := d.Execute(ctx)
	if err != nil {
		return err
	}
	if !done {
		return fmt.Errorf("源文件不存在: %s", src)
	}
	return printTransform(cmd, codec.Name(), src, dst)
}

func printTransform(cmd *cli.Command, codec, src, dst string) error {
	info, err := os.Stat(dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "%s: %s -> %s (%s)\n", codec, src, dst, xsize.Format(info.Size()))
	return nil
}

// =============================================================================
// purge
// =============================================================================

func createPurgeCommand() *cli.Command {
	return &cli.Command{
		Name:      "purge",
		Usage:     "按条件清理目录下的归档文件（最新的文件优先保留）",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "glob", Aliases: []string{"g"}, Usage: "相对路径 glob（支持 **），与 --regex 二选一"},
			&cli.StringFlag{Name: "regex", Aliases: []string{"r"}, Usage: "相对路径正则"},
			&cli.StringFlag{Name: "age", Aliases: []string{"a"}, Usage: "只删除早于该时长的文件（如 30d、PT12H）"},
			&cli.IntFlag{Name: "keep-count", Usage: "保留最新的 N 个文件"},
			&cli.StringFlag{Name: "keep-size", Usage: "保留最新文件的总大小（如 1GB）"},
			&cli.IntFlag{Name: "depth", Aliases: []string{"d"}, Value: 1, Usage: "最大遍历深度"},
			&cli.BoolFlag{Name: "follow-links", Usage: "跟随符号链接"},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "只列出将被删除的文件"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usagef("purge 需要一个 <dir> 参数")
			}
			d, err := purgeAction(cmd, cmd.Args().First())
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()
			return cmdPurge(ctx, cmd, d)
		},
	}
}

// purgeAction 把命令行条件组装为 xaction.Delete：
// 文件名条件在外层，其余条件嵌套其中，只对匹配的文件计数累计。
func purgeAction(cmd *cli.Command, dir string) (*xaction.Delete, error) {
	var nested []xaction.PathCondition
	if keep := cmd.Int("keep-count"); keep > 0 {
		nested = append(nested, &xaction.IfAccumulatedFileCount{Threshold: keep})
	}
	if s := cmd.String("keep-size"); s != "" {
		n, err := xsize.Parse(s)
		if err != nil {
			return nil, usagef("--keep-size: %v", err)
		}
		nested = append(nested, &xaction.IfAccumulatedFileSize{Threshold: n})
	}
	if s := cmd.String("age"); s != "" {
		age, err := xaction.ParseAge(s)
		if err != nil {
			return nil, usagef("--age: %v", err)
		}
		nested = append(nested, &xaction.IfLastModified{Age: age})
	}

	glob, regex := cmd.String("glob"), cmd.String("regex")
	if glob == "" && regex == "" {
		if len(nested) == 0 {
			return nil, usagef("purge 至少需要一个条件（--glob/--regex/--age/--keep-count/--keep-size）")
		}
		glob = "**"
	}
	name, err := xaction.NewIfFileName(glob, regex, nested...)
	if err != nil {
		return nil, usagef("%v", err)
	}
	return &xaction.Delete{
		BasePath:    dir,
		MaxDepth:    cmd.Int("depth"),
		FollowLinks: cmd.Bool("follow-links"),
		Conditions:  []xaction.PathCondition{name},
	}, nil
}

func cmdPurge(ctx context.Context, cmd *cli.Command, d *xaction.Delete) error {
	info, err := os.Stat(d.BasePath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return usagef("%s 不是目录", d.BasePath)
	}
	paths, err := d.Collect(ctx)
	if err != nil {
		return err
	}
	selected := d.Select(paths)

	w := cmd.Root().Writer
	dryRun := cmd.Bool("dry-run")
	verb := "delete"
	if dryRun {
		verb = "would delete"
	}
	var total int64
	for _, p := range selected {
		total += p.Info.Size()
		fmt.Fprintf(w, "%s %s (%s, %s)\n", verb, filepath.ToSlash(p.Rel),
			xsize.Format(p.Info.Size()), humanize.Time(p.Info.ModTime()))
	}
	fmt.Fprintf(w, "%d of %d files, %s\n", len(selected), len(paths), xsize.Format(total))
	if dryRun || len(selected) == 0 {
		return nil
	}
	_, err = d.Execute(ctx)
	return err
}

// =============================================================================
// 信号处理
// =============================================================================

// setupSignalHandler 第一次 SIGINT/SIGTERM 取消 context，第二次立即退出
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		<-sigCh
		os.Exit(130)
	}()
}
