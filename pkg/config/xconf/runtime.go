package xconf

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/omeyang/xroll/pkg/observability/xrotate"
	"github.com/omeyang/xroll/pkg/observability/xstatus"
)

// Runtime 持有按配置构建的 appender，并在配置变更时原地替换
//
// Apply 先按新配置获取全部 appender，成功后才释放旧的，
// 新旧配置指向同一文件时注册表中的管理器引用不会归零，活动文件保持打开，
// 只更新触发策略与轮转策略。
type Runtime struct {
	opts runtimeOptions

	mu         sync.RWMutex
	appenders  map[string]*xrotate.Appender
	status     *xstatus.StatusLogger
	statusCfg  StatusConfig
	ownStatus  bool
	generation int
	closed     bool
}

// NewRuntime 创建运行时，需调用 Apply 加载配置
func NewRuntime(opts ...RuntimeOption) *Runtime {
	o := runtimeOptions{registry: xrotate.DefaultRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Runtime{opts: o, appenders: map[string]*xrotate.Appender{}}
}

// Apply 应用配置。构建任一 appender 失败时保留原有 appender 并返回错误。
func (r *Runtime) Apply(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRuntimeClosed
	}
	if err := r.applyStatusLocked(ctx, cfg.Status); err != nil {
		return err
	}

	next := make(map[string]*xrotate.Appender, len(cfg.Appenders))
	for _, ac := range cfg.Appenders {
		a, err := Build(r.opts.registry, ac, r.status, r.opts.manager...)
		if err != nil {
			errs := []error{err}
			for _, b := range next {
				errs = append(errs, b.CloseContext(ctx))
			}
			r.status.Error(ctx, "configuration rejected", "appender", ac.Name, "error", err)
			return errors.Join(errs...)
		}
		next[ac.Name] = a
	}

	old := r.appenders
	r.appenders = next
	r.generation++

	var errs []error
	for _, a := range old {
		errs = append(errs, a.CloseContext(ctx))
	}
	r.status.Info(ctx, "configuration applied",
		"generation", r.generation, "appenders", len(next))
	return errors.Join(errs...)
}

func (r *Runtime) applyStatusLocked(ctx context.Context, sc StatusConfig) error {
	level := xstatus.LevelWarn
	if sc.Level != "" {
		l, err := xstatus.ParseLevel(sc.Level)
		if err != nil {
			return fmt.Errorf("%w: status.level: %w", ErrInvalidConfig, err)
		}
		level = l
	}

	if r.status == nil {
		if r.opts.status != nil {
			r.status = r.opts.status
			r.statusCfg = sc
			return nil
		}
		opts := []xstatus.Option{
			xstatus.WithLevel(level),
			xstatus.WithFormat(sc.Format),
			xstatus.WithName("xroll"),
		}
		if sc.File.Path != "" {
			opts = append(opts, xstatus.WithFile(sc.File))
		}
		s, err := xstatus.New(opts...)
		if err != nil {
			return fmt.Errorf("%w: status: %w", ErrInvalidConfig, err)
		}
		r.status, r.statusCfg, r.ownStatus = s, sc, true
		return nil
	}

	if !r.ownStatus {
		return nil
	}
	r.status.SetLevel(level)
	if sc.Format != r.statusCfg.Format || sc.File != r.statusCfg.File {
		r.status.Warn(ctx, "status format and file changes take effect after restart")
	}
	r.statusCfg.Level = sc.Level
	return nil
}

// Appender 按名称返回 appender
func (r *Runtime) Appender(name string) (*xrotate.Appender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appenders[name]
	return a, ok
}

// Names 返回当前 appender 名称（有序）
func (r *Runtime) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.appenders))
	for name := range r.appenders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generation 返回成功应用的配置次数
func (r *Runtime) Generation() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Status 返回运行时的状态日志，Apply 之前为 nil
func (r *Runtime) Status() *xstatus.StatusLogger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Close 释放全部 appender，关闭自建的状态日志。重复调用返回 [ErrRuntimeClosed]。
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRuntimeClosed
	}
	r.closed = true

	var errs []error
	for _, a := range r.appenders {
		errs = append(errs, a.CloseContext(ctx))
	}
	r.appenders = map[string]*xrotate.Appender{}
	if r.ownStatus && r.status != nil {
		errs = append(errs, r.status.Close())
	}
	return errors.Join(errs...)
}
