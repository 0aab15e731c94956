package xrotate_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/omeyang/xroll/pkg/observability/xrotate"
	"github.com/omeyang/xroll/pkg/observability/xstatus"
)

func Example() {
	dir, _ := os.MkdirTemp("", "xrotate-example")
	defer os.RemoveAll(dir)

	size, _ := xrotate.ParseSizeTrigger("1 KB")
	strategy, _ := xrotate.NewDefaultStrategy(xrotate.WithMaxIndex(3))
	m, err := xrotate.NewManager(
		filepath.Join(dir, "app.log"),
		filepath.Join(dir, "app-%i.log.gz"),
		xrotate.WithPolicy(size),
		xrotate.WithStrategy(strategy),
		xrotate.WithStatus(xstatus.Discard()),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	logger := slog.New(slog.NewTextHandler(m, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	for i := range 100 {
		logger.Info("request served", "seq", i, "path", "/api/orders")
	}
	fmt.Println(m.Close())

	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	fmt.Println(strings.Join(names, " "))
	// Output:
	// <nil>
	// app-1.log.gz app-2.log.gz app-3.log.gz app.log
}

func ExampleManager_AddRolloverListener() {
	dir, _ := os.MkdirTemp("", "xrotate-listener")
	defer os.RemoveAll(dir)

	m, err := xrotate.NewManager(
		filepath.Join(dir, "app.log"),
		filepath.Join(dir, "app-%i.log"),
		xrotate.WithPolicy(xrotate.NewCompositeTrigger()),
		xrotate.WithStatus(xstatus.Discard()),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer m.Close()

	m.AddRolloverListener(xrotate.ListenerFuncs{
		Triggered: func(name string) { fmt.Println("triggered", filepath.Base(name)) },
		Complete:  func(name string) { fmt.Println("complete", filepath.Base(name)) },
	})
	_, _ = m.Write([]byte("hello\n"))
	_ = m.Rollover(context.Background())
	// Output:
	// triggered app.log
	// complete app.log
}

func ExampleRegistry() {
	dir, _ := os.MkdirTemp("", "xrotate-registry")
	defer os.RemoveAll(dir)

	reg := xrotate.NewRegistry()
	cfg := xrotate.AppenderConfig{
		Name:     "audit",
		FileName: filepath.Join(dir, "app.log"),
		Pattern:  filepath.Join(dir, "app-%d{yyyy-MM-dd}.log"),
	}
	size, _ := xrotate.NewSizeTrigger(xrotate.DefaultMaxFileSize)
	a, _ := xrotate.NewAppender(reg, cfg, xrotate.WithPolicy(size), xrotate.WithStatus(xstatus.Discard()))
	cfg.Name = "access"
	b, _ := xrotate.NewAppender(reg, cfg)

	fmt.Println(a.Manager() == b.Manager(), reg.Len())
	_ = a.Close()
	_ = b.Close()
	fmt.Println(reg.Len())
	// Output:
	// true 1
	// 0
}
