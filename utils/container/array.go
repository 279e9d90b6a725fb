package container

import (
	"sync"
)

// DeferredArray 延迟追加数组
// 功能：支持并发安全的延迟追加，在Prepare时统一并入主数组
// 说明：模拟实体（如运行中途加入的车辆）在一步内提交，下一步开始前生效，
// 保证一步之内各遍历看到的集合一致
type DeferredArray[T any] struct {
	data     []T        // 主数据数组
	pending  []T        // 待并入的元素列表
	addMutex sync.Mutex // 追加操作的互斥锁
}

// NewDeferredArray 创建延迟追加数组
func NewDeferredArray[T any]() *DeferredArray[T] {
	return &DeferredArray[T]{
		data:    make([]T, 0),
		pending: make([]T, 0),
	}
}

// Len 获取主数组当前长度（不含待并入元素）
func (a *DeferredArray[T]) Len() int {
	return len(a.data)
}

// Data 获取主数组
// 说明：返回的是当前已并入所有延迟元素的数据，调用方不得修改
func (a *DeferredArray[T]) Data() []T {
	return a.data
}

// Add 追加元素（等到Prepare时才会真正并入）
func (a *DeferredArray[T]) Add(value T) {
	a.addMutex.Lock()
	defer a.addMutex.Unlock()
	a.pending = append(a.pending, value)
}

// Prepare 执行延迟并入
// 说明：每个模拟步的准备阶段调用一次
func (a *DeferredArray[T]) Prepare() {
	a.addMutex.Lock()
	defer a.addMutex.Unlock()
	if len(a.pending) == 0 {
		return
	}
	a.data = append(a.data, a.pending...)
	a.pending = a.pending[:0]
}
