package xstatus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xroll/pkg/util/xfile"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 状态日志接口
//
// 所有方法必须并发安全，且不得阻塞调用方太久：
// 文件管理器会在持锁期间上报轮转事件。
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

// Entry 一条状态记录
type Entry struct {
	Time  time.Time
	Level Level
	Msg   string
	Attrs map[string]any
}

// Err 返回记录中 "error" 属性携带的错误（若有）
func (e Entry) Err() error {
	if v, ok := e.Attrs["error"]; ok {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// Listener 状态监听器，在调用方 goroutine 内同步执行
type Listener func(Entry)

var (
	_ Logger    = (*StatusLogger)(nil)
	_ io.Closer = (*StatusLogger)(nil)
)

// StatusLogger 默认状态日志实现
type StatusLogger struct {
	handler  slog.Handler
	levelVar *slog.LevelVar
	closer   io.Closer

	mu    sync.Mutex
	ring  []Entry
	next  int
	count int

	listeners atomic.Pointer[[]listenerEntry]
	listenSeq atomic.Uint64
	closed    atomic.Bool
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// New 创建状态日志
func New(opts ...Option) (*StatusLogger, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	out := cfg.output
	var closer io.Closer
	if cfg.file != nil {
		lj, err := newFileSink(*cfg.file)
		if err != nil {
			return nil, err
		}
		out, closer = lj, lj
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.Level(cfg.level))
	hopts := &slog.HandlerOptions{Level: levelVar}

	var h slog.Handler
	if cfg.format == "json" {
		h = slog.NewJSONHandler(out, hopts)
	} else {
		h = slog.NewTextHandler(out, hopts)
	}
	if cfg.name != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("component", cfg.name)})
	}

	s := &StatusLogger{
		handler:  h,
		levelVar: levelVar,
		closer:   closer,
	}
	if cfg.capacity > 0 {
		s.ring = make([]Entry, cfg.capacity)
	}
	return s, nil
}

func newFileSink(fc FileConfig) (*lumberjack.Logger, error) {
	path, err := xfile.SanitizePath(fc.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFileConfig, err)
	}
	if fc.MaxSizeMB < 0 || fc.MaxBackups < 0 || fc.MaxAgeDays < 0 {
		return nil, fmt.Errorf("%w: negative limits", ErrInvalidFileConfig)
	}
	if err := xfile.EnsureDir(path); err != nil {
		return nil, err
	}
	if fc.MaxSizeMB == 0 {
		fc.MaxSizeMB = DefaultFileMaxSizeMB
	}
	if fc.MaxBackups == 0 {
		fc.MaxBackups = DefaultFileMaxBackups
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fc.MaxSizeMB,
		MaxBackups: fc.MaxBackups,
		MaxAge:     fc.MaxAgeDays,
		Compress:   fc.Compress,
		LocalTime:  true,
	}, nil
}

// SetLevel 动态调整输出级别。环形缓冲区与监听器不受级别过滤。
func (s *StatusLogger) SetLevel(l Level) {
	s.levelVar.Set(slog.Level(l))
}

// Level 返回当前输出级别
func (s *StatusLogger) Level() Level {
	return Level(s.levelVar.Level())
}

// Debug 记录调试信息
func (s *StatusLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.log(ctx, LevelDebug, msg, args)
}

// Info 记录一般信息
func (s *StatusLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, LevelInfo, msg, args)
}

// Warn 记录警告
func (s *StatusLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, LevelWarn, msg, args)
}

// Error 记录错误
func (s *StatusLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, LevelError, msg, args)
}

func (s *StatusLogger) log(ctx context.Context, level Level, msg string, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	r := slog.NewRecord(time.Now(), slog.Level(level), msg, 0)
	r.Add(args...)

	entry := Entry{Time: r.Time, Level: level, Msg: msg}
	if r.NumAttrs() > 0 {
		entry.Attrs = make(map[string]any, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			entry.Attrs[a.Key] = a.Value.Any()
			return true
		})
	}
	s.remember(entry)
	s.notify(entry)

	if s.closed.Load() || !s.handler.Enabled(ctx, r.Level) {
		return
	}
	// 输出失败无处上报，丢弃
	_ = s.handler.Handle(ctx, r) //nolint:errcheck
}

func (s *StatusLogger) remember(e Entry) {
	if len(s.ring) == 0 {
		return
	}
	s.mu.Lock()
	s.ring[s.next] = e
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}
	s.mu.Unlock()
}

func (s *StatusLogger) notify(e Entry) {
	p := s.listeners.Load()
	if p == nil {
		return
	}
	for _, l := range *p {
		func() {
			defer func() { recover() }() //nolint:errcheck // 监听器 panic 不影响上报方
			l.fn(e)
		}()
	}
}

// Entries 按时间顺序返回缓冲区中的记录副本
func (s *StatusLogger) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, s.count)
	start := (s.next - s.count + len(s.ring)) % max(len(s.ring), 1)
	for i := range s.count {
		out = append(out, s.ring[(start+i)%len(s.ring)])
	}
	return out
}

// EntriesAtLeast 返回级别不低于 l 的记录
func (s *StatusLogger) EntriesAtLeast(l Level) []Entry {
	all := s.Entries()
	out := all[:0]
	for _, e := range all {
		if e.Level >= l {
			out = append(out, e)
		}
	}
	return out
}

// Clear 清空缓冲区
func (s *StatusLogger) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ring)
	s.next, s.count = 0, 0
}

// AddListener 注册监听器，返回注销函数
func (s *StatusLogger) AddListener(fn Listener) (remove func()) {
	if fn == nil {
		return func() {}
	}
	id := s.listenSeq.Add(1)
	for {
		old := s.listeners.Load()
		var next []listenerEntry
		if old != nil {
			next = append(next, *old...)
		}
		next = append(next, listenerEntry{id: id, fn: fn})
		if s.listeners.CompareAndSwap(old, &next) {
			break
		}
	}
	return func() { s.removeListener(id) }
}

func (s *StatusLogger) removeListener(id uint64) {
	for {
		old := s.listeners.Load()
		if old == nil {
			return
		}
		next := make([]listenerEntry, 0, len(*old))
		for _, l := range *old {
			if l.id != id {
				next = append(next, l)
			}
		}
		if s.listeners.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Close 关闭状态文件（若有）。关闭后记录仍进入缓冲区和监听器，但不再输出。
func (s *StatusLogger) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// =============================================================================
// 便捷实现
// =============================================================================

type discard struct{}

func (discard) Debug(context.Context, string, ...any) {}
func (discard) Info(context.Context, string, ...any)  {}
func (discard) Warn(context.Context, string, ...any)  {}
func (discard) Error(context.Context, string, ...any) {}

// Discard 返回丢弃一切的 Logger
func Discard() Logger {
	return discard{}
}

var (
	defaultOnce   sync.Once
	defaultLogger *StatusLogger
)

// Default 返回进程级默认状态日志（stderr，WARN 级别）
func Default() *StatusLogger {
	defaultOnce.Do(func() {
		l, err := New()
		if err != nil {
			panic(errors.Join(errors.New("xstatus: default logger"), err))
		}
		defaultLogger = l
	})
	return defaultLogger
}

// OrDefault 在 l 为 nil 时返回 [Default]
func OrDefault(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}
