package xrotate

import (
	"io"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/omeyang/xroll/pkg/observability/xstatus"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// policyFunc 测试用触发策略
type policyFunc func(m *Manager, ev Event) bool

func (f policyFunc) Initialize(*Manager) error { return nil }

func (f policyFunc) IsTriggeringEvent(m *Manager, ev Event) bool { return f(m, ev) }

// never 从不触发，只通过 Rollover 手动轮转
var never = policyFunc(func(*Manager, Event) bool { return false })

func quietStatus(t *testing.T) *xstatus.StatusLogger {
	t.Helper()
	s, err := xstatus.New(xstatus.WithOutput(io.Discard), xstatus.WithLevel(xstatus.LevelDebug))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newTestManager 创建管理器，测试结束时关闭
func newTestManager(t *testing.T, fileName, pattern string, opts ...Option) *Manager {
	t.Helper()
	base := []Option{
		WithStatus(quietStatus(t)),
		WithMeterProvider(noop.NewMeterProvider()),
	}
	m, err := NewManager(fileName, pattern, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// writeString 写入并断言成功
func writeString(t *testing.T, w io.Writer, s string) {
	t.Helper()
	_, err := io.WriteString(w, s)
	require.NoError(t, err)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// listDir 返回目录下的文件名（有序）
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// waitComplete 注册监听器，返回等待 n 次 RolloverComplete 的函数
func waitComplete(t *testing.T, m *Manager) func(n int) {
	t.Helper()
	ch := make(chan string, 64)
	remove := m.AddRolloverListener(ListenerFuncs{Complete: func(name string) { ch <- name }})
	t.Cleanup(remove)
	return func(n int) {
		t.Helper()
		for range n {
			select {
			case <-ch:
			case <-time.After(10 * time.Second):
				t.Fatal("timed out waiting for rollover completion")
			}
		}
	}
}
