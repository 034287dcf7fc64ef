package container

import (
	"sync"
)

// IRegistryItem 有序注册表中的元素
// 功能：元素需要提供唯一名称作为键
type IRegistryItem interface {
	Name() string
}

// OrderedRegistry 按插入顺序维护的名称→元素注册表，支持延迟增删
// 功能：在tick内部的增删请求进入缓冲区，直到Prepare时统一生效
// 说明：与按索引交换删除不同，Prepare后剩余元素的相对顺序保持不变，
// 从而保证迭代顺序在多次运行间可复现
type OrderedRegistry[T IRegistryItem] struct {
	data  []T          // 按插入顺序排列的元素
	index map[string]T // 名称索引

	add         []T        // 待添加
	remove      []string   // 待删除
	addMutex    sync.Mutex // 添加缓冲区锁
	removeMutex sync.Mutex // 删除缓冲区锁
}

// NewOrderedRegistry 创建有序注册表
func NewOrderedRegistry[T IRegistryItem]() *OrderedRegistry[T] {
	return &OrderedRegistry[T]{
		data:   make([]T, 0),
		index:  make(map[string]T),
		add:    make([]T, 0),
		remove: make([]string, 0),
	}
}

// Len 当前已生效的元素数量
func (r *OrderedRegistry[T]) Len() int {
	return len(r.data)
}

// Data 按插入顺序返回已生效的元素
// 说明：返回内部切片，调用方不得修改
func (r *OrderedRegistry[T]) Data() []T {
	return r.data
}

// Names 按插入顺序返回名称
func (r *OrderedRegistry[T]) Names() []string {
	names := make([]string, len(r.data))
	for i, v := range r.data {
		names[i] = v.Name()
	}
	return names
}

// Get 按名称查找已生效的元素
func (r *OrderedRegistry[T]) Get(name string) (T, bool) {
	v, ok := r.index[name]
	return v, ok
}

// Has 名称是否已生效或已在待添加缓冲区中
func (r *OrderedRegistry[T]) Has(name string) bool {
	if _, ok := r.index[name]; ok && !r.IsRemovalPending(name) {
		return true
	}
	return r.IsAddPending(name)
}

// IsAddPending 名称是否在待添加缓冲区中
func (r *OrderedRegistry[T]) IsAddPending(name string) bool {
	r.addMutex.Lock()
	defer r.addMutex.Unlock()
	for _, v := range r.add {
		if v.Name() == name {
			return true
		}
	}
	return false
}

// IsRemovalPending 名称是否在待删除缓冲区中
func (r *OrderedRegistry[T]) IsRemovalPending(name string) bool {
	r.removeMutex.Lock()
	defer r.removeMutex.Unlock()
	for _, n := range r.remove {
		if n == name {
			return true
		}
	}
	return false
}

// Add 增加元素（等到Prepare时才会真正增加）
func (r *OrderedRegistry[T]) Add(value T) {
	r.addMutex.Lock()
	defer r.addMutex.Unlock()
	r.add = append(r.add, value)
}

// Remove 删除元素（等到Prepare时才会真正删除）
// 说明：同时撤销该名称尚未生效的添加请求
func (r *OrderedRegistry[T]) Remove(name string) {
	r.addMutex.Lock()
	kept := r.add[:0]
	for _, v := range r.add {
		if v.Name() != name {
			kept = append(kept, v)
		}
	}
	r.add = kept
	r.addMutex.Unlock()
	if _, ok := r.index[name]; !ok {
		return
	}
	r.removeMutex.Lock()
	defer r.removeMutex.Unlock()
	r.remove = append(r.remove, name)
}

// Pending 待处理的增删数量
func (r *OrderedRegistry[T]) Pending() (adds, removes int) {
	r.addMutex.Lock()
	adds = len(r.add)
	r.addMutex.Unlock()
	r.removeMutex.Lock()
	removes = len(r.remove)
	r.removeMutex.Unlock()
	return
}

// Prepare 执行缓冲的增删操作
// 算法说明：
// 1. 先按请求顺序处理删除：从索引中移除，并以一次过滤保持剩余元素的顺序
// 2. 再按请求顺序追加新元素；已存在的名称被忽略并返回
// 返回：因重名被丢弃的元素
func (r *OrderedRegistry[T]) Prepare() (dropped []T) {
	r.removeMutex.Lock()
	removes := r.remove
	r.remove = make([]string, 0)
	r.removeMutex.Unlock()
	r.addMutex.Lock()
	adds := r.add
	r.add = make([]T, 0)
	r.addMutex.Unlock()

	if len(removes) > 0 {
		gone := make(map[string]struct{}, len(removes))
		for _, name := range removes {
			if _, ok := r.index[name]; ok {
				gone[name] = struct{}{}
				delete(r.index, name)
			}
		}
		if len(gone) > 0 {
			kept := r.data[:0]
			for _, v := range r.data {
				if _, ok := gone[v.Name()]; !ok {
					kept = append(kept, v)
				}
			}
			// 清理尾部引用，避免内存泄漏
			var zero T
			for i := len(kept); i < len(r.data); i++ {
				r.data[i] = zero
			}
			r.data = kept
		}
	}
	for _, v := range adds {
		if _, ok := r.index[v.Name()]; ok {
			dropped = append(dropped, v)
			continue
		}
		r.index[v.Name()] = v
		r.data = append(r.data, v)
	}
	return
}
