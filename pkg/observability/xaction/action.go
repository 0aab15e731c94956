package xaction

import (
	"context"
	"errors"
	"fmt"
)

// Action 轮转动作
type Action interface {
	// Execute 执行动作。返回 false 且无错误表示无事可做（如源文件不存在）。
	Execute(ctx context.Context) (bool, error)
}

// ActionFunc 函数适配器
type ActionFunc func(ctx context.Context) (bool, error)

// Execute 实现 Action
func (f ActionFunc) Execute(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Composite 顺序执行的动作组
type Composite struct {
	Actions     []Action
	StopOnError bool
}

var _ Action = (*Composite)(nil)

// NewComposite 创建动作组，nil 动作被忽略
func NewComposite(stopOnError bool, actions ...Action) *Composite {
	c := &Composite{StopOnError: stopOnError}
	for _, a := range actions {
		if a != nil {
			c.Actions = append(c.Actions, a)
		}
	}
	return c
}

// Execute 依次执行所有动作。
//
// StopOnError 为 true 时，遇到错误或返回 false 的动作立即停止；
// 否则继续执行并汇总所有错误。ctx 取消后不再开始新的动作。
func (c *Composite) Execute(ctx context.Context) (bool, error) {
	allOK := true
	var errs []error
	for i, a := range c.Actions {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return false, errors.Join(errs...)
		}
		ok, err := a.Execute(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", i, err))
			allOK = false
			if c.StopOnError {
				return false, errors.Join(errs...)
			}
			continue
		}
		if !ok {
			allOK = false
			if c.StopOnError {
				return false, errors.Join(errs...)
			}
		}
	}
	return allOK, errors.Join(errs...)
}

// Len 返回动作数量
func (c *Composite) Len() int {
	return len(c.Actions)
}

// Chain 合并多个动作：全部为 nil 时返回 nil，只有一个时原样返回
func Chain(stopOnError bool, actions ...Action) Action {
	c := NewComposite(stopOnError, actions...)
	switch c.Len() {
	case 0:
		return nil
	case 1:
		return c.Actions[0]
	default:
		return c
	}
}
