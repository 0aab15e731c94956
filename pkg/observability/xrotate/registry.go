package xrotate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/omeyang/xroll/pkg/util/xfile"
)

// Registry 按活动文件共享 [Manager]，引用计数归零时关闭。
//
// 键为规范化后的活动文件路径；直写策略没有固定文件名，键为 "pattern:" 加模式的绝对路径。
// 多个 appender 指向同一文件时共享一个管理器，保证同一文件只有一个写入者。
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	byMgr   map[*Manager]string
}

type registryEntry struct {
	m    *Manager
	refs int
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		byMgr:   make(map[*Manager]string),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry 返回进程级共享注册表
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Key 返回 (fileName, pattern) 对应的注册表键
func Key(fileName, pattern string) (string, error) {
	if fileName != "" {
		return xfile.Canonical(fileName)
	}
	if pattern == "" {
		return "", ErrEmptyPattern
	}
	abs, err := filepath.Abs(pattern)
	if err != nil {
		return "", fmt.Errorf("xrotate: resolve pattern: %w", err)
	}
	return "pattern:" + abs, nil
}

// Acquire 获取或创建管理器并增加引用计数。
//
// 已存在时 opts 中的触发策略与轮转策略通过 [Manager.Reconfigure] 应用到共享管理器，
// 其余选项（文件权限、缓冲等）只在创建时生效。
func (r *Registry) Acquire(fileName, pattern string, opts ...Option) (*Manager, error) {
	key, err := Key(fileName, pattern)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		cfg := applyOptions(opts)
		if cfg.policy != nil || cfg.strategy != nil {
			if err := e.m.Reconfigure(context.Background(), cfg.policy, cfg.strategy); err != nil {
				return nil, err
			}
		}
		e.refs++
		return e.m, nil
	}

	m, err := NewManager(fileName, pattern, opts...)
	if err != nil {
		return nil, err
	}
	r.entries[key] = &registryEntry{m: m, refs: 1}
	r.byMgr[m] = key
	return m, nil
}

// Release 减少引用计数，归零时从注册表移除并关闭管理器
func (r *Registry) Release(ctx context.Context, m *Manager) error {
	r.mu.Lock()
	key, ok := r.byMgr[m]
	if !ok {
		r.mu.Unlock()
		return ErrNotRegistered
	}
	e := r.entries[key]
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, key)
	delete(r.byMgr, m)
	r.mu.Unlock()
	return m.CloseContext(ctx)
}

// Len 返回注册的管理器数量
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RefCount 返回键的引用计数，不存在时为 0
func (r *Registry) RefCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.refs
	}
	return 0
}

// Keys 返回已注册的键（有序）
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Shutdown 关闭全部管理器，忽略引用计数
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.entries))
	for _, e := range r.entries {
		managers = append(managers, e.m)
	}
	r.entries = make(map[string]*registryEntry)
	r.byMgr = make(map[*Manager]string)
	r.mu.Unlock()

	var errs []error
	for _, m := range managers {
		if err := m.CloseContext(ctx); err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
