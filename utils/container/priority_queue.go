package container

import "container/heap"

// pqItem 优先队列元素
type pqItem[T any] struct {
	value    T
	priority float64
}

// pqHeap 最小堆，实现heap.Interface
type pqHeap[T any] []pqItem[T]

func (h pqHeap[T]) Len() int           { return len(h) }
func (h pqHeap[T]) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h pqHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *pqHeap[T]) Push(x any) {
	*h = append(*h, x.(pqItem[T]))
}

func (h *pqHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	var zero pqItem[T]
	old[n-1] = zero // 避免内存泄漏
	*h = old[:n-1]
	return it
}

// PriorityQueue 优先级数值越小越先出队的优先队列
// 说明：用于车道图上的最短路搜索
type PriorityQueue[T any] struct {
	h pqHeap[T]
}

// NewPriorityQueue 创建优先队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{h: make(pqHeap[T], 0)}
}

// Len 队列长度
func (q *PriorityQueue[T]) Len() int {
	return q.h.Len()
}

// HeapPush 入队
func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.h, pqItem[T]{value: value, priority: priority})
}

// HeapPop 弹出优先级数值最小的元素
func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	it := heap.Pop(&q.h).(pqItem[T])
	return it.value, it.priority
}
