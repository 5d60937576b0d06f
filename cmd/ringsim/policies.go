package main

import (
	"fmt"

	"github.com/mzenz/CircularBuffer/errors"
	"github.com/mzenz/CircularBuffer/pkg/buffer"
)

type constructor func(capacity int, opts ...buffer.Option[int]) (buffer.Buffer[int], error)

// build instantiates a RingBuffer for one policy pair behind the Buffer interface.
func build[G buffer.GrowthPolicy, B buffer.BoundaryPolicy](capacity int, opts ...buffer.Option[int]) (buffer.Buffer[int], error) {
	rb, err := buffer.New[int, G, B](capacity, opts...)
	if err != nil {
		return nil, err
	}
	return rb, nil
}

// constructors maps growth, then boundary, to the matching instantiation.
var constructors = map[string]map[string]constructor{
	"fixed": {
		"checked":   build[buffer.Fixed, buffer.Checked],
		"unchecked": build[buffer.Fixed, buffer.Unchecked],
	},
	"grow_by_one": {
		"checked":   build[buffer.GrowByOne, buffer.Checked],
		"unchecked": build[buffer.GrowByOne, buffer.Unchecked],
	},
	"grow_by_doubling": {
		"checked":   build[buffer.GrowByDoubling, buffer.Checked],
		"unchecked": build[buffer.GrowByDoubling, buffer.Unchecked],
	},
}

func newBuffer(cfg Config, opts ...buffer.Option[int]) (buffer.Buffer[int], error) {
	ctor, ok := constructors[cfg.Growth][cfg.Boundary]
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: no buffer for growth %q and boundary %q", errors.ErrInvalidConfig, cfg.Growth, cfg.Boundary),
			"Workload", "newBuffer", "select policies")
	}
	return ctor(cfg.Capacity, opts...)
}

func newAllocator(cfg Config) buffer.Allocator[int] {
	var alloc buffer.Allocator[int] = buffer.HeapAllocator[int]{}
	if cfg.Allocator == "pool" {
		alloc = buffer.NewPoolAllocator[int]()
	}
	if cfg.MaxSlots > 0 {
		alloc = buffer.NewLimitedAllocator[int](alloc, cfg.MaxSlots)
	}
	return alloc
}
