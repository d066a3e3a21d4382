package service

// fetchResult 单个并发调用的结果
type fetchResult[T any] struct {
	index int
	value T
	err   error
}

// gather 并发执行 n 个相互独立的调用，全部成功时按下标顺序返回结果
// 任一调用失败立即返回该错误；其余调用继续运行至结束，结果被丢弃。
// 结果通道按 n 分配缓冲，被放弃的调用不会阻塞。
func gather[T any](n int, fn func(i int) (T, error)) ([]T, error) {
	values := make([]T, n)
	if n == 0 {
		return values, nil
	}

	results := make(chan fetchResult[T], n)
	for i := 0; i < n; i++ {
		go func(i int) {
			v, err := fn(i)
			results <- fetchResult[T]{index: i, value: v, err: err}
		}(i)
	}

	for received := 0; received < n; received++ {
		r := <-results
		if r.err != nil {
			return nil, r.err
		}
		values[r.index] = r.value
	}
	return values, nil
}
