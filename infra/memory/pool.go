// Package memory provides the allocation side of the engine: a typed order
// pool plus epoch-based reclamation so snapshot readers never observe a
// recycled order.
package memory

import "sync"

// Pool is a typed object pool. Type-safe for normal use; PutAny lets it
// participate in type-erased reclamation.
type Pool[T any] struct {
	p *sync.Pool
}

func NewPool[T any](ctor func() *T) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	p.p.Put(v)
}

// PutAny adapts Pool[T] to ReclaimablePool.
func (p *Pool[T]) PutAny(v any) {
	obj, ok := v.(*T)
	if !ok {
		panic("memory.Pool: PutAny received wrong type")
	}
	p.Put(obj)
}
