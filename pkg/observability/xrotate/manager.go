package xrotate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/omeyang/xroll/pkg/observability/xpattern"
	"github.com/omeyang/xroll/pkg/observability/xstatus"
	"github.com/omeyang/xroll/pkg/util/xfile"
	"github.com/omeyang/xroll/pkg/util/xpool"
)

// State 管理器状态
type State int32

const (
	// StateOpen 正常写入
	StateOpen State = iota
	// StateRolling 轮转中（锁内），写入等待
	StateRolling
	// StateClosed 已关闭，终态
	StateClosed
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateRolling:
		return "rolling"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// asyncQueueSize 异步动作队列容量；轮转许可保证同一时刻最多一个在途
const asyncQueueSize = 4

// Manager 滚动文件管理器
//
// 一把互斥锁串行化尺寸计数、策略评估、轮转与写入：轮转前写入的字节全部
// 落在旧文件，之后的全部落在新文件。异步动作在锁外由单 worker 执行器运行，
// 期间持有轮转许可，下一次轮转排队等待（上限为 drain timeout）。
type Manager struct {
	cfg     config
	pattern *xpattern.Processor
	direct  bool
	status  xstatus.Logger
	metrics *rollMetrics

	mu       sync.Mutex
	policy   TriggeringPolicy
	strategy RolloverStrategy
	file     *os.File
	buf      *bufio.Writer
	out      io.Writer

	// appendNext 延迟打开（按需创建、重新打开失败）时使用的打开方式
	appendNext bool

	name     atomic.Pointer[string]
	size     atomic.Int64
	fileTime atomic.Int64 // UnixNano
	state    atomic.Int32
	closing  atomic.Bool
	stalled  atomic.Bool

	listeners listenerSet

	sem    *semaphore.Weighted
	exec   *xpool.Pool[func()]
	base   context.Context
	cancel context.CancelFunc
}

// NewManager 创建管理器并打开活动文件。
//
// fileName 为活动文件路径；使用直写策略（实现 [DirectWriter]）时必须为空，
// 活动文件名由 pattern 生成。初始化完成后以 Startup 事件评估一次触发策略。
func NewManager(fileName, pattern string, opts ...Option) (*Manager, error) {
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	proc, err := xpattern.Parse(pattern, cfg.patternOpts...)
	if err != nil {
		return nil, fmt.Errorf("xrotate: parse pattern: %w", err)
	}
	if cfg.strategy == nil {
		s, err := NewDefaultStrategy()
		if err != nil {
			return nil, err
		}
		cfg.strategy = s
	}
	_, direct := cfg.strategy.(DirectWriter)
	switch {
	case direct && fileName != "":
		return nil, ErrFilenameWithDirectWrite
	case !direct && fileName == "":
		return nil, ErrEmptyFilename
	case !direct:
		if fileName, err = xfile.SanitizePath(fileName); err != nil {
			return nil, fmt.Errorf("xrotate: %w", err)
		}
	}

	metrics, err := newRollMetrics(cfg.meterProvider, pattern)
	if err != nil {
		return nil, err
	}
	exec, err := xpool.New(1, asyncQueueSize, func(task func()) { task() }, xpool.WithName("xrotate"))
	if err != nil {
		return nil, err
	}
	base, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		pattern:  proc,
		direct:   direct,
		status:   xstatus.OrDefault(cfg.status),
		metrics:  metrics,
		policy:   cfg.policy,
		strategy: cfg.strategy,
		sem:      semaphore.NewWeighted(1),
		exec:     exec,
		base:     base,
		cancel:   cancel,

		appendNext: cfg.append,
	}

	now := m.now()
	proc.SetCurrentFileTime(now)
	if direct {
		fileName = cfg.strategy.(DirectWriter).CurrentFileName(m)
	}
	m.name.Store(&fileName)

	if err := m.loadFileState(now); err != nil {
		m.abort()
		return nil, err
	}
	if !cfg.createOnDemand {
		if err := m.openLocked(cfg.append); err != nil {
			m.abort()
			return nil, err
		}
	}
	if err := m.policy.Initialize(m); err != nil {
		m.abort()
		return nil, fmt.Errorf("xrotate: initialize policy: %w", err)
	}
	m.state.Store(int32(StateOpen))

	m.mu.Lock()
	if m.shouldRollover(Event{Time: now, Startup: true}) {
		_ = m.rolloverLocked(m.base, reasonStartup) //nolint:errcheck // 已记录状态日志
	}
	m.mu.Unlock()
	return m, nil
}

// loadFileState 读取已有文件的大小与修改时间，文件不存在时以 now 作为文件时间
func (m *Manager) loadFileState(now time.Time) error {
	name := m.FileName()
	mt, err := xfile.ModTime(name)
	if err != nil {
		return fmt.Errorf("xrotate: stat %s: %w", name, err)
	}
	size, err := xfile.Size(name)
	if err != nil {
		return fmt.Errorf("xrotate: stat %s: %w", name, err)
	}
	if mt.IsZero() {
		mt = now
	}
	m.setFileTime(mt)
	m.size.Store(size)
	return nil
}

// abort 释放构造失败时已创建的资源
func (m *Manager) abort() {
	_ = m.closeFileLocked() //nolint:errcheck // 构造失败路径
	_ = m.exec.Close()      //nolint:errcheck // 无在途任务
	m.cancel()
}

// =============================================================================
// 访问器
// =============================================================================

// FileName 返回当前活动文件名
func (m *Manager) FileName() string {
	if p := m.name.Load(); p != nil {
		return *p
	}
	return ""
}

// FileSize 返回当前文件大小（含缓冲区中尚未刷新的字节）
func (m *Manager) FileSize() int64 {
	return m.size.Load()
}

// FileTime 返回当前文件所属周期的时间：已有文件为其修改时间，轮转后为轮转时刻
func (m *Manager) FileTime() time.Time {
	n := m.fileTime.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (m *Manager) setFileTime(t time.Time) {
	m.fileTime.Store(t.UnixNano())
	m.pattern.SetCurrentFileTime(t)
}

// State 返回当前状态
func (m *Manager) State() State {
	return State(m.state.Load())
}

// PatternProcessor 返回文件模式
func (m *Manager) PatternProcessor() *xpattern.Processor {
	return m.pattern
}

// Policy 返回当前触发策略
func (m *Manager) Policy() TriggeringPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}

// Strategy 返回当前轮转策略
func (m *Manager) Strategy() RolloverStrategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strategy
}

// Status 返回状态日志
func (m *Manager) Status() xstatus.Logger {
	return m.status
}

func (m *Manager) now() time.Time {
	return m.cfg.clock()
}

// ctx 管理器生命周期上下文，关闭排空超时后取消
func (m *Manager) ctx() context.Context {
	return m.base
}

// =============================================================================
// 写入
// =============================================================================

// Write 实现 io.Writer，事件时间取管理器时钟
func (m *Manager) Write(p []byte) (int, error) {
	return m.WriteEvent(p, time.Time{})
}

// WriteEvent 以指定事件时间写入，零值时间取管理器时钟。
//
// 轮转失败不会返回错误；只有活动文件本身的写入错误会返回。
func (m *Manager) WriteEvent(p []byte, t time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() == StateClosed {
		return 0, ErrClosed
	}
	if t.IsZero() {
		t = m.now()
	}
	if m.shouldRollover(Event{Time: t, Size: int64(len(p))}) {
		_ = m.rolloverLocked(m.base, reasonPolicy) //nolint:errcheck // 轮转尽力而为，已记录状态日志
	}
	return m.writeLocked(p)
}

func (m *Manager) writeLocked(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if m.out == nil {
		if err := m.openLocked(m.appendNext); err != nil {
			return 0, err
		}
	}
	n, err := m.out.Write(p)
	m.size.Add(int64(n))
	if err == nil && m.buf != nil && m.cfg.immediateFlush {
		err = m.buf.Flush()
	}
	m.metrics.wrote(m.base, n)
	return n, err
}

// Flush 刷新写缓冲
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() == StateClosed {
		return ErrClosed
	}
	if m.buf != nil {
		return m.buf.Flush()
	}
	return nil
}

// openLocked 打开活动文件并重置尺寸计数
func (m *Manager) openLocked(appendMode bool) error {
	name := m.FileName()
	if err := xfile.EnsureDir(name); err != nil {
		return fmt.Errorf("xrotate: prepare %s: %w", name, err)
	}
	flag := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	f, err := os.OpenFile(name, flag, m.cfg.fileMode) //nolint:gosec // 路径已规范化
	if err != nil {
		return fmt.Errorf("xrotate: open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("xrotate: stat %s: %w", name, err)
	}
	// umask 可能收窄权限，按配置修正；失败不影响写入
	if info.Mode().Perm() != m.cfg.fileMode {
		if err := f.Chmod(m.cfg.fileMode); err != nil {
			m.status.Warn(m.base, "adjust file mode failed", "file", name, "error", err)
		}
	}

	m.file = f
	m.out = f
	if m.cfg.bufferSize > 0 {
		if m.buf == nil {
			m.buf = bufio.NewWriterSize(f, m.cfg.bufferSize)
		} else {
			m.buf.Reset(f)
		}
		m.out = m.buf
	}
	m.size.Store(info.Size())
	return nil
}

// closeFileLocked 刷新并关闭活动文件
func (m *Manager) closeFileLocked() error {
	if m.file == nil {
		return nil
	}
	var errs []error
	if m.buf != nil {
		errs = append(errs, m.buf.Flush())
	}
	errs = append(errs, m.file.Close())
	m.file = nil
	m.out = nil
	return errors.Join(errs...)
}

// =============================================================================
// 轮转
// =============================================================================

// Rollover 立即轮转。返回策略或同步动作的错误、[ErrClosed] 或 [ErrRolloverBusy]。
func (m *Manager) Rollover(ctx context.Context) error {
	return m.rollover(ctx, reasonManual)
}

// Rotate 实现 Rotator
func (m *Manager) Rotate() error {
	return m.Rollover(context.Background())
}

func (m *Manager) rollover(ctx context.Context, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rolloverLocked(ctx, reason)
}

// shouldRollover 评估触发策略，panic 视为不触发
func (m *Manager) shouldRollover(ev Event) (fire bool) {
	defer func() {
		if r := recover(); r != nil {
			m.status.Warn(m.base, "triggering policy panicked", "file", m.FileName(), "panic", r)
			fire = false
		}
	}()
	return m.policy.IsTriggeringEvent(m, ev)
}

// computeRollover 调用策略，panic 转为错误
func (m *Manager) computeRollover() (desc *RolloverDescription, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xrotate: rollover strategy panicked: %v", r)
		}
	}()
	return m.strategy.Rollover(m)
}

// acquireRollover 获取轮转许可。上一次异步动作未完成时最多等待 drain timeout；
// 超时后写入路径不再等待，直到许可空闲。
func (m *Manager) acquireRollover(ctx context.Context, reason string) bool {
	if m.sem.TryAcquire(1) {
		m.stalled.Store(false)
		return true
	}
	if reason == reasonPolicy && m.stalled.Load() {
		return false
	}
	wctx, cancel := context.WithTimeout(ctx, m.cfg.drainTimeout)
	defer cancel()
	if err := m.sem.Acquire(wctx, 1); err != nil {
		m.stalled.Store(true)
		return false
	}
	m.stalled.Store(false)
	return true
}

func (m *Manager) rolloverLocked(ctx context.Context, reason string) error {
	if m.State() != StateOpen {
		return ErrClosed
	}
	if !m.acquireRollover(ctx, reason) {
		m.status.Warn(ctx, "rollover skipped, previous asynchronous actions still running",
			"file", m.FileName(), "reason", reason)
		m.metrics.rollover(ctx, resultBusy, reason, 0)
		return ErrRolloverBusy
	}

	start := time.Now()
	closed := m.FileName()
	m.state.Store(int32(StateRolling))
	m.notifyTriggered(closed)

	desc, err := m.computeRollover()
	now := m.now()
	if err != nil || desc == nil {
		m.observeRollover(now)
		m.state.Store(int32(StateOpen))
		m.sem.Release(1)
		// 每次 Triggered 都对应一次 Complete，失败或无操作也不例外
		m.notifyComplete(closed)
		if err != nil {
			m.status.Warn(ctx, "rollover failed, continuing with current file",
				"file", closed, "reason", reason, "error", err)
			m.metrics.rollover(ctx, resultFailure, reason, 0)
			return err
		}
		m.metrics.rollover(ctx, resultNoop, reason, 0)
		return nil
	}

	if err := m.closeFileLocked(); err != nil {
		m.status.Warn(ctx, "close before rollover failed", "file", closed, "error", err)
	}

	archived := true
	var syncErr error
	if desc.Synchronous != nil {
		ok, err := desc.Synchronous.Execute(ctx)
		if err != nil {
			syncErr = fmt.Errorf("xrotate: synchronous rollover action: %w", err)
			m.status.Warn(ctx, "synchronous rollover action failed, continuing with current file",
				"file", closed, "action", desc.Synchronous, "error", err)
			m.metrics.actionFailed(ctx, "sync")
		}
		archived = ok && err == nil
	}
	switched := desc.ActiveFileName != "" && desc.ActiveFileName != closed
	if switched {
		next := desc.ActiveFileName
		m.name.Store(&next)
	}

	m.appendNext = desc.Append
	if m.cfg.createOnDemand {
		size, _ := xfile.Size(m.FileName()) //nolint:errcheck // 不存在视为 0
		m.size.Store(size)
	} else if err := m.openLocked(desc.Append); err != nil {
		// 下一次写入会重试打开
		m.status.Error(ctx, "reopen after rollover failed", "file", m.FileName(), "error", err)
	}
	if archived || switched {
		m.fileTime.Store(now.UnixNano())
		m.pattern.AdvanceFileTime(now)
	}
	m.observeRollover(now)
	m.state.Store(int32(StateOpen))

	result := resultSuccess
	if syncErr != nil {
		result = resultFailure
	}
	m.metrics.rollover(ctx, result, reason, time.Since(start))
	m.status.Debug(ctx, "rolled over", "file", closed, "next", m.FileName(), "reason", reason)

	if desc.Asynchronous == nil || (!archived && !switched) {
		m.sem.Release(1)
		m.notifyComplete(closed)
		return syncErr
	}
	async := desc.Asynchronous
	task := func() {
		defer m.notifyComplete(closed)
		defer m.sem.Release(1)
		if _, err := async.Execute(m.base); err != nil {
			m.status.Warn(m.base, "asynchronous rollover action failed",
				"file", closed, "action", async, "error", err)
			m.metrics.actionFailed(m.base, "async")
		}
	}
	if err := m.exec.Submit(task); err != nil {
		// 执行器已停止（关闭中），就地执行
		task()
	}
	return syncErr
}

// observeRollover 通知策略一次轮转尝试已结束
func (m *Manager) observeRollover(now time.Time) {
	if o, ok := m.policy.(RolloverObserver); ok {
		defer func() {
			if r := recover(); r != nil {
				m.status.Warn(m.base, "triggering policy panicked", "file", m.FileName(), "panic", r)
			}
		}()
		o.OnRollover(m, now)
	}
}

// =============================================================================
// 重新配置与关闭
// =============================================================================

// Reconfigure 替换触发策略和/或轮转策略（nil 表示保持不变），活动文件保持打开。
// 直写与非直写策略之间不能切换。
func (m *Manager) Reconfigure(ctx context.Context, policy TriggeringPolicy, strategy RolloverStrategy) error {
	if m.State() == StateClosed {
		return ErrClosed
	}
	if strategy != nil {
		if _, direct := strategy.(DirectWriter); direct != m.direct {
			return ErrStrategyMismatch
		}
	}

	m.mu.Lock()
	old := m.policy
	m.mu.Unlock()
	replace := policy != nil && !samePolicy(policy, old)
	// 旧策略的后台调度可能正在等待锁，必须在持锁前停止
	if replace {
		if err := stopPolicy(ctx, old); err != nil {
			m.status.Warn(ctx, "stop previous triggering policy failed", "file", m.FileName(), "error", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() == StateClosed {
		return ErrClosed
	}
	if strategy != nil {
		m.strategy = strategy
	}
	if replace {
		if err := policy.Initialize(m); err != nil {
			if rerr := old.Initialize(m); rerr != nil {
				m.status.Error(ctx, "restore previous triggering policy failed", "file", m.FileName(), "error", rerr)
			}
			return fmt.Errorf("xrotate: initialize policy: %w", err)
		}
		m.policy = policy
	}
	return nil
}

// samePolicy 报告是否为同一策略实例；不可比较的动态类型（如函数）视为不同
func samePolicy(a, b TriggeringPolicy) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || (ta != nil && !ta.Comparable()) {
		return false
	}
	return a == b
}

// Close 关闭管理器，等待在途异步动作（上限为 drain timeout）
func (m *Manager) Close() error {
	return m.CloseContext(context.Background())
}

// CloseContext 关闭管理器：先停止后台调度，再在锁内刷新并关闭文件，
// 最后等待在途异步动作完成（上限为 drain timeout 与 ctx 中较早者）。
// 重复调用返回 [ErrClosed]。
func (m *Manager) CloseContext(ctx context.Context) error {
	if !m.closing.CompareAndSwap(false, true) {
		return ErrClosed
	}
	dctx, cancel := context.WithTimeout(ctx, m.cfg.drainTimeout)
	defer cancel()

	var errs []error
	m.mu.Lock()
	policy := m.policy
	m.mu.Unlock()
	if err := stopPolicy(dctx, policy); err != nil {
		errs = append(errs, fmt.Errorf("xrotate: stop policy: %w", err))
	}

	m.mu.Lock()
	m.state.Store(int32(StateClosed))
	if err := m.closeFileLocked(); err != nil {
		errs = append(errs, fmt.Errorf("xrotate: close %s: %w", m.FileName(), err))
	}
	m.mu.Unlock()

	if err := m.sem.Acquire(dctx, 1); err != nil {
		errs = append(errs, fmt.Errorf("xrotate: drain asynchronous actions: %w", err))
	} else {
		m.sem.Release(1)
	}
	if err := m.exec.Shutdown(dctx); err != nil {
		errs = append(errs, fmt.Errorf("xrotate: shutdown executor: %w", err))
	}
	m.cancel()
	return errors.Join(errs...)
}
