package xpool_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/omeyang/xroll/pkg/util/xpool"
)

func Example() {
	var sum atomic.Int64

	pool, err := xpool.New(4, 100, func(n int) {
		sum.Add(int64(n))
	})
	if err != nil {
		panic(err)
	}

	for i := 1; i <= 10; i++ {
		if err := pool.Submit(i); err != nil {
			fmt.Println("Submit error:", err)
		}
	}

	// Close 等待所有任务完成
	if err := pool.Close(); err != nil {
		panic(err)
	}
	fmt.Println("Sum:", sum.Load())
	// Output:
	// Sum: 55
}

func ExamplePool_Shutdown() {
	pool, err := xpool.New(1, 10, func(string) {})
	if err != nil {
		panic(err)
	}
	_ = pool.SubmitWait(context.Background(), "compress app-1.log")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		fmt.Println("Shutdown error:", err)
	}
	fmt.Println("drained")
	// Output:
	// drained
}
