package buffer

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/mzenz/CircularBuffer/errors"
)

// Allocator provides the contiguous slot blocks a RingBuffer stores its elements in.
//
// Allocate returns a block whose length is the number of slots actually granted; a grant
// shorter than n is treated by the buffer as an allocation failure. Release hands a block back
// once the buffer no longer references any live element in it. Allocators may be shared by
// several buffers and must be safe for concurrent use.
type Allocator[T any] interface {
	Allocate(n int) ([]T, error)
	Release(block []T)
}

// HeapAllocator allocates every block from the Go heap.
type HeapAllocator[T any] struct{}

// Allocate returns a new zeroed block of n slots.
func (HeapAllocator[T]) Allocate(n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", errors.ErrInvalidCapacity, n)
	}
	return make([]T, n), nil
}

// Release zeroes the block so it no longer pins the elements it held.
func (HeapAllocator[T]) Release(block []T) {
	clear(block)
}

// PoolAllocator recycles blocks through one sync.Pool per power-of-two size class.
// Buffers that are created and discarded at a high rate avoid re-allocating their storage.
type PoolAllocator[T any] struct {
	mu      sync.Mutex
	classes map[int]*sync.Pool
}

// NewPoolAllocator creates an empty pool allocator.
func NewPoolAllocator[T any]() *PoolAllocator[T] {
	return &PoolAllocator[T]{classes: make(map[int]*sync.Pool)}
}

// sizeClass rounds n up to the next power of two.
func sizeClass(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func (p *PoolAllocator[T]) pool(class int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	sp, ok := p.classes[class]
	if !ok {
		sp = &sync.Pool{
			New: func() any {
				block := make([]T, class)
				return &block
			},
		}
		p.classes[class] = sp
	}
	return sp
}

// Allocate returns a zeroed block of exactly n slots backed by a pooled array.
func (p *PoolAllocator[T]) Allocate(n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", errors.ErrInvalidCapacity, n)
	}
	if n == 0 {
		return []T{}, nil
	}
	block := p.pool(sizeClass(n)).Get().(*[]T)
	return (*block)[:n], nil
}

// Release zeroes the block and returns it to its size class.
// Blocks whose capacity is not a size class were not issued by this allocator and are dropped.
func (p *PoolAllocator[T]) Release(block []T) {
	c := cap(block)
	if c == 0 || c != sizeClass(c) {
		return
	}
	block = block[:c]
	clear(block)
	p.pool(c).Put(&block)
}

// LimitedAllocator caps the total number of slots outstanding across all blocks it granted.
type LimitedAllocator[T any] struct {
	next Allocator[T]

	mu       sync.Mutex
	maxSlots int
	inUse    int
}

// NewLimitedAllocator wraps next with a budget of maxSlots. A nil next uses the heap.
func NewLimitedAllocator[T any](next Allocator[T], maxSlots int) *LimitedAllocator[T] {
	if next == nil {
		next = HeapAllocator[T]{}
	}
	return &LimitedAllocator[T]{next: next, maxSlots: maxSlots}
}

// Allocate grants n slots if the budget allows it.
func (l *LimitedAllocator[T]) Allocate(n int) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 {
		return nil, fmt.Errorf("%w: %d", errors.ErrInvalidCapacity, n)
	}
	if l.inUse+n > l.maxSlots {
		return nil, fmt.Errorf("%w: requested %d slots with %d of %d in use",
			errors.ErrAllocationFailed, n, l.inUse, l.maxSlots)
	}

	block, err := l.next.Allocate(n)
	if err != nil {
		return nil, err
	}
	l.inUse += len(block)
	return block, nil
}

// Release returns the block's slots to the budget.
func (l *LimitedAllocator[T]) Release(block []T) {
	l.mu.Lock()
	l.inUse -= len(block)
	if l.inUse < 0 {
		l.inUse = 0
	}
	l.mu.Unlock()

	l.next.Release(block)
}

// InUse returns the number of slots currently granted.
func (l *LimitedAllocator[T]) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}
