// xrollctl 是滚动文件子系统的命令行工具。
//
// 用法:
//
//	xrollctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-t, --timeout  单个命令的超时时间 (默认: 0，不限制)
//
// 命令:
//
//	next-time <pattern>     计算文件模式接下来的滚动时刻
//	size <expr>             解析文件大小表达式
//	compress <src> [dst]    压缩文件（按目标扩展名选择编码器）
//	decompress <src> [dst]  解压文件
//	purge <dir>             按条件清理归档文件
//	run                     按配置文件驱动 appender 写入（压测/演练）
//	help                    显示帮助信息
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败
//	2: 参数错误（缺少参数、无效表达式、未知命令等）
//
// 示例:
//
//	xrollctl next-time 'logs/app-%d{yyyy-MM-dd-HH}.log.gz' -n 3
//	xrollctl size "10,5 MB"
//	xrollctl compress logs/app-1.log logs/app-1.log.zst --level 3
//	xrollctl purge logs --glob 'app-*.log.gz' --age 30d --dry-run
//	xrollctl run -c xroll.yaml --writers 8 --lines 10000 --watch
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xrollctl",
		Usage:     "滚动文件子系统命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "单个命令的超时时间，0 表示不限制",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		Authors: []any{
			"XRoll Team",
		},
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	return exitCode(app.Run(ctx, args), stderr)
}

// exitCode 将命令错误映射为退出码，并输出错误信息
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		// flag 解析器已输出详情
		return 2
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "已取消")
		return 1
	}
	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintf(stderr, "超时: %v\n", err)
		return 1
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

// defaultDrain 关闭 appender 时等待异步动作的上限
const defaultDrain = 30 * time.Second
