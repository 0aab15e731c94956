package xpool

import "errors"

// 参数错误
var (
	// ErrNilHandler New 未提供任务处理函数
	ErrNilHandler = errors.New("xpool: handler cannot be nil")

	// ErrInvalidWorkers worker 数量不在 [1, 65536] 内
	ErrInvalidWorkers = errors.New("xpool: invalid worker count")

	// ErrInvalidQueueSize 队列容量不在 [1, 16777216] 内
	ErrInvalidQueueSize = errors.New("xpool: invalid queue size")

	// ErrNilContext SubmitWait/Shutdown 传入 nil context
	ErrNilContext = errors.New("xpool: nil context")
)

// 提交错误
var (
	// ErrPoolStopped Close/Shutdown 之后提交任务
	ErrPoolStopped = errors.New("xpool: pool is stopped")

	// ErrQueueFull 非阻塞提交时队列已满，调用方可改用 SubmitWait 或同步执行
	ErrQueueFull = errors.New("xpool: queue is full")
)
