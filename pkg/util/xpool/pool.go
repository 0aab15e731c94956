package xpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

const (
	maxWorkers   = 1 << 16
	maxQueueSize = 1 << 24
)

var _ io.Closer = (*Pool[int])(nil)

// Pool 泛型 worker pool。
type Pool[T any] struct {
	opts    options
	handler func(T)
	queue   chan T
	wg      sync.WaitGroup

	// mu 保护 closed 与向 queue 发送，保证关闭 queue 后不再有发送者
	mu      sync.RWMutex
	closed  bool
	pending atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
	workers   int
}

// New 创建并启动 worker pool。
func New[T any](workers, queueSize int, handler func(T), opts ...Option) (*Pool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 || queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	p := &Pool[T]{
		opts:    o,
		handler: handler,
		queue:   make(chan T, queueSize),
		done:    make(chan struct{}),
		workers: workers,
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool[T]) run(task T) {
	defer p.pending.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			attrs := []any{"panic", r, "stack", string(debug.Stack())}
			if p.opts.name != "" {
				attrs = append(attrs, "pool", p.opts.name)
			}
			if p.opts.logTaskValue {
				attrs = append(attrs, "task", task)
			} else {
				attrs = append(attrs, "task_type", fmt.Sprintf("%T", task))
			}
			p.opts.logger.Error("xpool: worker panic recovered", attrs...)
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。队列满返回 [ErrQueueFull]，已关闭返回 [ErrPoolStopped]。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}
	p.pending.Add(1)
	select {
	case p.queue <- task:
		return nil
	default:
		p.pending.Add(-1)
		p.opts.logger.Warn("xpool: queue full, task rejected", slog.String("pool", p.opts.name))
		return ErrQueueFull
	}
}

// SubmitWait 阻塞提交任务，直到入队成功、pool 关闭或 ctx 结束。
//
// 等待期间持有读锁，Close 会等到本次提交结束后才关闭队列。
func (p *Pool[T]) SubmitWait(ctx context.Context, task T) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}
	// 先计数，避免 worker 先完成导致 pending 短暂为负
	p.pending.Add(1)
	select {
	case p.queue <- task:
		return nil
	case <-ctx.Done():
		p.pending.Add(-1)
		return ctx.Err()
	}
}

// Pending 返回已提交但尚未执行完的任务数。
func (p *Pool[T]) Pending() int64 {
	return p.pending.Load()
}

// Workers 返回 worker 数量。
func (p *Pool[T]) Workers() int {
	return p.workers
}

// QueueSize 返回队列容量。
func (p *Pool[T]) QueueSize() int {
	return cap(p.queue)
}

// Done 返回在所有 worker 退出后关闭的 channel。
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}

// Close 停止接收新任务并等待队列中的任务全部完成。
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 停止接收新任务并等待队列耗尽，ctx 结束时提前返回 ctx 错误。
// 提前返回后残留 worker 仍会处理完剩余任务，可通过 [Pool.Done] 等待。
// 重复调用是安全的。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.closeOnce.Do(func() {
		// 写锁等待所有在途 SubmitWait 结束
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
