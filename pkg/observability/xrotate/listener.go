package xrotate

import (
	"context"
	"sync/atomic"
)

// RolloverListener 轮转监听器
type RolloverListener interface {
	// RolloverTriggered 在切换文件之前调用，参数为即将关闭的文件。
	// 调用时持有 Manager 的写锁（不可重入），实现中不得写入同一 Manager
	// 或其 Appender，也不得调用 Rollover，否则死锁。
	RolloverTriggered(fileName string)

	// RolloverComplete 在同步与异步动作都完成后调用；策略失败、返回 nil
	// 或 panic 时同样调用，与 RolloverTriggered 一一对应。
	// 没有异步动作时仍在锁内调用，有异步动作时在执行器 goroutine 上调用，
	// 同样不得同步写入同一 Manager。
	RolloverComplete(fileName string)
}

// ListenerFuncs 函数形式的监听器，nil 字段被忽略
type ListenerFuncs struct {
	Triggered func(fileName string)
	Complete  func(fileName string)
}

var _ RolloverListener = ListenerFuncs{}

// RolloverTriggered 实现 RolloverListener
func (l ListenerFuncs) RolloverTriggered(fileName string) {
	if l.Triggered != nil {
		l.Triggered(fileName)
	}
}

// RolloverComplete 实现 RolloverListener
func (l ListenerFuncs) RolloverComplete(fileName string) {
	if l.Complete != nil {
		l.Complete(fileName)
	}
}

type listenerEntry struct {
	id uint64
	l  RolloverListener
}

// listenerSet 写时复制的监听器列表
type listenerSet struct {
	list atomic.Pointer[[]listenerEntry]
	seq  atomic.Uint64
}

func (s *listenerSet) add(l RolloverListener) (remove func()) {
	id := s.seq.Add(1)
	for {
		old := s.list.Load()
		var next []listenerEntry
		if old != nil {
			next = append(next, *old...)
		}
		next = append(next, listenerEntry{id: id, l: l})
		if s.list.CompareAndSwap(old, &next) {
			break
		}
	}
	return func() { s.remove(id) }
}

func (s *listenerSet) remove(id uint64) {
	for {
		old := s.list.Load()
		if old == nil {
			return
		}
		next := make([]listenerEntry, 0, len(*old))
		for _, e := range *old {
			if e.id != id {
				next = append(next, e)
			}
		}
		if s.list.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (s *listenerSet) each(fn func(RolloverListener)) {
	p := s.list.Load()
	if p == nil {
		return
	}
	for _, e := range *p {
		fn(e.l)
	}
}

// AddRolloverListener 注册监听器，返回的函数用于注销。nil 被忽略。
func (m *Manager) AddRolloverListener(l RolloverListener) (remove func()) {
	if l == nil {
		return func() {}
	}
	return m.listeners.add(l)
}

func (m *Manager) notifyTriggered(fileName string) {
	m.listeners.each(func(l RolloverListener) {
		m.safeCall("RolloverTriggered", func() { l.RolloverTriggered(fileName) })
	})
}

func (m *Manager) notifyComplete(fileName string) {
	m.listeners.each(func(l RolloverListener) {
		m.safeCall("RolloverComplete", func() { l.RolloverComplete(fileName) })
	})
}

// safeCall 隔离监听器 panic
func (m *Manager) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.status.Warn(context.Background(), "rollover listener panicked",
				"callback", what, "file", m.FileName(), "panic", r)
		}
	}()
	fn()
}
