package buffer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/mzenz/CircularBuffer/errors"
)

// drain pops until the buffer reports empty and returns what came out.
func drain[T any](t *testing.T, buf Buffer[T]) []T {
	t.Helper()

	var out []T
	for !buf.IsEmpty() {
		v, err := buf.Pop()
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

// shortAllocator grants one slot fewer than requested.
type shortAllocator[T any] struct {
	released int
}

func (a *shortAllocator[T]) Allocate(n int) ([]T, error) {
	if n == 0 {
		return []T{}, nil
	}
	return make([]T, n-1), nil
}

func (a *shortAllocator[T]) Release([]T) { a.released++ }

func TestBufferInterface(t *testing.T) {
	testCases := []struct {
		name string
		buf  func() (Buffer[int], error)
	}{
		{"Fixed", func() (Buffer[int], error) { return NewFixed[int](5) }},
		{"Growable", func() (Buffer[int], error) { return NewGrowable[int](5) }},
		{"Overwriting", func() (Buffer[int], error) { return NewOverwriting[int](5) }},
		{"GrowByOneUnchecked", func() (Buffer[int], error) { return New[int, GrowByOne, Unchecked](5) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := tc.buf()
			require.NoError(t, err)
			defer buf.Close()

			if buf.Count() != 0 {
				t.Errorf("Expected initial count 0, got %d", buf.Count())
			}
			if buf.Size() != 5 {
				t.Errorf("Expected capacity 5, got %d", buf.Size())
			}
			if !buf.IsEmpty() {
				t.Error("Expected buffer to be empty initially")
			}
			if buf.IsFull() {
				t.Error("Expected buffer not to be full initially")
			}
		})
	}
}

func TestNew_InvalidCapacity(t *testing.T) {
	buf, err := NewFixed[int](-1)
	require.Error(t, err)
	assert.Nil(t, buf)
	assert.True(t, cerrors.IsInvalid(err))
	assert.ErrorIs(t, err, cerrors.ErrInvalidCapacity)
}

func TestFixedChecked_Scenario(t *testing.T) {
	buf, err := NewFixed[int](3)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, buf.Push(i))
	}

	err = buf.Push(4)
	require.Error(t, err)
	assert.True(t, cerrors.IsOverflow(err))
	assert.True(t, cerrors.IsTransient(err))
	assert.Equal(t, 3, buf.Count(), "failed push must not mutate")
	assert.Equal(t, 3, buf.Size())

	for want := 1; want <= 3; want++ {
		got, err := buf.Pop()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = buf.Pop()
	require.Error(t, err)
	assert.True(t, cerrors.IsUnderflow(err))
	assert.Equal(t, 0, buf.Count())

	assert.Equal(t, int64(1), buf.Stats().Overflows())
	assert.Equal(t, int64(1), buf.Stats().Underflows())
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 7, 64} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			buf, err := NewFixed[string](n)
			require.NoError(t, err)

			pushed := make([]string, n)
			for i := range pushed {
				pushed[i] = fmt.Sprintf("item-%d", i)
				require.NoError(t, buf.Push(pushed[i]))
			}
			assert.True(t, buf.IsFull())

			assert.Equal(t, pushed, drain[string](t, buf))
		})
	}
}

func TestCountTracksPushesAndPops(t *testing.T) {
	buf, err := NewFixed[int](4)
	require.NoError(t, err)

	pushes, pops := 0, 0
	// Interleave so head and tail wrap several times
	for round := 0; round < 10; round++ {
		for i := 0; i < 3; i++ {
			require.NoError(t, buf.Push(round*10+i))
			pushes++
			assert.Equal(t, pushes-pops, buf.Count())
			assert.Equal(t, buf.Count() == 0, buf.IsEmpty())
			assert.Equal(t, buf.Count() == buf.Size(), buf.IsFull())
		}
		for i := 0; i < 3; i++ {
			v, err := buf.Pop()
			require.NoError(t, err)
			assert.Equal(t, round*10+i, v)
			pops++
			assert.Equal(t, pushes-pops, buf.Count())
		}
	}
}

func TestZeroCapacity(t *testing.T) {
	t.Run("checked fixed overflows", func(t *testing.T) {
		buf, err := NewFixed[int](0)
		require.NoError(t, err)

		assert.True(t, buf.IsEmpty())
		assert.True(t, buf.IsFull())

		err = buf.Push(1)
		assert.True(t, cerrors.IsOverflow(err))
		assert.Equal(t, 0, buf.Count())
	})

	t.Run("doubling grows to one", func(t *testing.T) {
		buf, err := NewGrowable[int](0)
		require.NoError(t, err)

		require.NoError(t, buf.Push(1))
		assert.Equal(t, 1, buf.Size())
		require.NoError(t, buf.Push(2))
		assert.Equal(t, 2, buf.Size())
		assert.Equal(t, []int{1, 2}, drain[int](t, buf))
	})

	t.Run("grow by one", func(t *testing.T) {
		buf, err := New[int, GrowByOne, Checked](0)
		require.NoError(t, err)

		require.NoError(t, buf.Push(9))
		assert.Equal(t, 1, buf.Size())
	})

	t.Run("overwriting drops the pushed value", func(t *testing.T) {
		var dropped []int
		buf, err := NewOverwriting[int](0, WithDropCallback[int](func(v int) { dropped = append(dropped, v) }))
		require.NoError(t, err)

		require.NoError(t, buf.Push(5))
		assert.Equal(t, 0, buf.Count())
		assert.Equal(t, []int{5}, dropped)
		assert.Equal(t, int64(1), buf.Stats().Pushes())
		assert.Equal(t, 1.0, buf.Stats().DropRate())

		v, err := buf.Pop()
		require.NoError(t, err)
		assert.Equal(t, 0, v)
	})
}

func TestGrowByDoubling(t *testing.T) {
	buf, err := New[int, GrowByDoubling, Unchecked](1)
	require.NoError(t, err)

	for i := 1; i <= 7; i++ {
		require.NoError(t, buf.Push(i))
	}

	assert.GreaterOrEqual(t, buf.Size(), 7)
	assert.Equal(t, 8, buf.Size())
	assert.Equal(t, 7, buf.Count())
	assert.Equal(t, int64(3), buf.Stats().Resizes(), "1 -> 2 -> 4 -> 8")
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, drain[int](t, buf))
}

func TestGrowByDoubling_AfterWrap(t *testing.T) {
	buf, err := NewGrowable[int](4)
	require.NoError(t, err)

	// Leave head in the middle so growth has to split the contents
	for i := 0; i < 4; i++ {
		require.NoError(t, buf.Push(i))
	}
	for i := 0; i < 2; i++ {
		_, err := buf.Pop()
		require.NoError(t, err)
	}
	for i := 4; i < 9; i++ {
		require.NoError(t, buf.Push(i))
	}

	assert.Equal(t, 8, buf.Size())
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8}, drain[int](t, buf))
}

func TestGrowByOne(t *testing.T) {
	buf, err := New[int, GrowByOne, Checked](2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, buf.Push(i))
	}

	assert.Equal(t, 5, buf.Size())
	assert.True(t, buf.IsFull())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, drain[int](t, buf))
}

func TestOverwriting_EvictsOldest(t *testing.T) {
	var dropped []int
	buf, err := NewOverwriting[int](3, WithDropCallback[int](func(v int) { dropped = append(dropped, v) }))
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, buf.Push(i))
	}

	assert.Equal(t, 3, buf.Count())
	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, []int{1, 2}, dropped)
	assert.Equal(t, int64(2), buf.Stats().Drops())
	assert.Equal(t, int64(5), buf.Stats().Pushes())
	assert.Equal(t, []int{3, 4, 5}, drain[int](t, buf))
}

func TestUnchecked_PopEmpty(t *testing.T) {
	buf, err := NewOverwriting[string](2)
	require.NoError(t, err)

	v, err := buf.Pop()
	assert.NoError(t, err)
	assert.Equal(t, "", v)
	assert.Equal(t, 0, buf.Count())
}

func TestResize(t *testing.T) {
	t.Run("grow full buffer", func(t *testing.T) {
		buf, err := NewFixed[int](5)
		require.NoError(t, err)
		for i := 1; i <= 5; i++ {
			require.NoError(t, buf.Push(i))
		}

		require.NoError(t, buf.Resize(10))
		assert.Equal(t, 10, buf.Size())
		assert.Equal(t, 5, buf.Count())
		assert.Equal(t, []int{1, 2, 3, 4, 5}, drain[int](t, buf))
	})

	t.Run("shrink after pops", func(t *testing.T) {
		buf, err := NewFixed[int](5)
		require.NoError(t, err)
		for i := 1; i <= 5; i++ {
			require.NoError(t, buf.Push(i))
		}
		for i := 0; i < 2; i++ {
			_, err := buf.Pop()
			require.NoError(t, err)
		}

		require.NoError(t, buf.Resize(3))
		assert.Equal(t, 3, buf.Size())
		assert.True(t, buf.IsFull())
		assert.Equal(t, []int{3, 4, 5}, drain[int](t, buf))
	})

	t.Run("grow then shrink", func(t *testing.T) {
		buf, err := NewFixed[int](5)
		require.NoError(t, err)
		for i := 1; i <= 5; i++ {
			require.NoError(t, buf.Push(i))
		}
		require.NoError(t, buf.Resize(10))
		for i := 0; i < 2; i++ {
			_, err := buf.Pop()
			require.NoError(t, err)
		}

		require.NoError(t, buf.Resize(3))
		assert.Equal(t, []int{3, 4, 5}, drain[int](t, buf))
	})

	t.Run("wrapped contents", func(t *testing.T) {
		buf, err := NewFixed[int](5)
		require.NoError(t, err)
		for i := 1; i <= 5; i++ {
			require.NoError(t, buf.Push(i))
		}
		for i := 0; i < 3; i++ {
			_, err := buf.Pop()
			require.NoError(t, err)
		}
		require.NoError(t, buf.Push(6))
		require.NoError(t, buf.Push(7))
		// Live: 4,5 at the back of storage and 6,7 at the front

		require.NoError(t, buf.Resize(8))
		require.NoError(t, buf.Push(8))
		assert.Equal(t, []int{4, 5, 6, 7, 8}, drain[int](t, buf))
	})

	t.Run("contiguous contents keep their slots", func(t *testing.T) {
		buf, err := NewFixed[int](6)
		require.NoError(t, err)
		for i := 1; i <= 4; i++ {
			require.NoError(t, buf.Push(i))
		}
		_, err = buf.Pop()
		require.NoError(t, err)
		// Live: slots 1..3

		require.NoError(t, buf.Resize(4))
		assert.Equal(t, 2, *buf.Peek(1))
		assert.Equal(t, 4, *buf.Peek(3))
		require.NoError(t, buf.Push(5))
		assert.Equal(t, []int{2, 3, 4, 5}, drain[int](t, buf))
	})

	t.Run("contiguous contents are packed when they do not fit", func(t *testing.T) {
		buf, err := NewFixed[int](8)
		require.NoError(t, err)
		for i := 1; i <= 6; i++ {
			require.NoError(t, buf.Push(i))
		}
		for i := 0; i < 4; i++ {
			_, err := buf.Pop()
			require.NoError(t, err)
		}
		// Live: slots 4..5

		require.NoError(t, buf.Resize(2))
		assert.True(t, buf.IsFull())
		assert.Equal(t, 5, *buf.Peek(0))
		assert.Equal(t, []int{5, 6}, drain[int](t, buf))
	})

	t.Run("empty buffer resets indices", func(t *testing.T) {
		buf, err := NewFixed[int](4)
		require.NoError(t, err)
		require.NoError(t, buf.Push(1))
		_, err = buf.Pop()
		require.NoError(t, err)

		require.NoError(t, buf.Resize(0))
		assert.Equal(t, 0, buf.Size())
		require.NoError(t, buf.Resize(2))
		require.NoError(t, buf.Push(7))
		assert.Equal(t, 7, *buf.Peek(0))
	})

	t.Run("same capacity is a no-op", func(t *testing.T) {
		buf, err := NewFixed[int](3)
		require.NoError(t, err)

		require.NoError(t, buf.Resize(3))
		assert.Equal(t, int64(0), buf.Stats().Resizes())
	})

	t.Run("below count is rejected", func(t *testing.T) {
		buf, err := NewFixed[int](4)
		require.NoError(t, err)
		for i := 1; i <= 3; i++ {
			require.NoError(t, buf.Push(i))
		}

		err = buf.Resize(2)
		require.Error(t, err)
		assert.True(t, cerrors.IsInvalid(err))
		assert.Equal(t, 4, buf.Size())
		assert.Equal(t, []int{1, 2, 3}, drain[int](t, buf))

		assert.True(t, cerrors.IsInvalid(buf.Resize(-1)))
	})
}

func TestAllocationFailure(t *testing.T) {
	t.Run("construct", func(t *testing.T) {
		alloc := NewLimitedAllocator[int](nil, 4)
		buf, err := NewFixed[int](5, WithAllocator[int](alloc))

		require.Error(t, err)
		assert.Nil(t, buf)
		assert.True(t, cerrors.IsAllocationFailure(err))
		assert.True(t, cerrors.IsFatal(err))
		assert.Equal(t, 0, alloc.InUse())
	})

	t.Run("short grant", func(t *testing.T) {
		alloc := &shortAllocator[int]{}
		buf, err := NewFixed[int](3, WithAllocator[int](alloc))

		require.Error(t, err)
		assert.Nil(t, buf)
		assert.True(t, cerrors.IsAllocationFailure(err))
		assert.Equal(t, 1, alloc.released, "short block must be handed back")
	})

	t.Run("resize leaves buffer intact", func(t *testing.T) {
		alloc := NewLimitedAllocator[int](nil, 6)
		buf, err := NewFixed[int](3, WithAllocator[int](alloc))
		require.NoError(t, err)
		for i := 1; i <= 3; i++ {
			require.NoError(t, buf.Push(i))
		}

		err = buf.Resize(4)
		require.Error(t, err)
		assert.True(t, cerrors.IsAllocationFailure(err))
		assert.Equal(t, 3, buf.Size())
		assert.Equal(t, 3, buf.Count())
		assert.Equal(t, int64(1), buf.Stats().AllocationFailures())
		assert.Equal(t, []int{1, 2, 3}, drain[int](t, buf))
	})

	t.Run("growth on push leaves buffer intact", func(t *testing.T) {
		alloc := NewLimitedAllocator[int](nil, 5)
		buf, err := NewGrowable[int](2, WithAllocator[int](alloc))
		require.NoError(t, err)
		require.NoError(t, buf.Push(1))
		require.NoError(t, buf.Push(2))

		// 2 slots in use, doubling needs 4 more
		err = buf.Push(3)
		require.Error(t, err)
		assert.True(t, cerrors.IsAllocationFailure(err))
		assert.False(t, cerrors.IsOverflow(err))
		assert.Equal(t, 2, buf.Size())
		assert.Equal(t, []int{1, 2}, drain[int](t, buf))
	})

	t.Run("old block released after resize", func(t *testing.T) {
		alloc := NewLimitedAllocator[int](nil, 16)
		buf, err := NewGrowable[int](2, WithAllocator[int](alloc))
		require.NoError(t, err)

		require.NoError(t, buf.Resize(8))
		assert.Equal(t, 8, alloc.InUse())

		require.NoError(t, buf.Close())
		assert.Equal(t, 0, alloc.InUse())
	})
}

func TestPeek(t *testing.T) {
	buf, err := NewFixed[string](3)
	require.NoError(t, err)

	require.NoError(t, buf.Push("a"))
	require.NoError(t, buf.Push("b"))

	assert.Equal(t, "a", *buf.Peek(0))
	assert.Equal(t, "b", *buf.Peek(1))
	assert.Equal(t, "", *buf.Peek(2), "dead slot holds the zero value")

	*buf.Peek(1) = "B"
	_, err = buf.Pop()
	require.NoError(t, err)
	v, err := buf.Pop()
	require.NoError(t, err)
	assert.Equal(t, "B", v)

	assert.Equal(t, "", *buf.Peek(0), "popped slot is cleared")
	assert.Panics(t, func() { buf.Peek(3) })
}

func TestPopBatch(t *testing.T) {
	buf, err := NewFixed[int](5)
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		require.NoError(t, buf.Push(i))
	}

	batch, err := buf.PopBatch(2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, batch)

	batch, err = buf.PopBatch(10)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, batch)

	batch, err = buf.PopBatch(0)
	assert.NoError(t, err)
	assert.Nil(t, batch)

	_, err = buf.PopBatch(1)
	assert.True(t, cerrors.IsUnderflow(err))

	unchecked, err := NewOverwriting[int](2)
	require.NoError(t, err)
	batch, err = unchecked.PopBatch(3)
	assert.NoError(t, err)
	assert.Empty(t, batch)
}

func TestClear(t *testing.T) {
	buf, err := NewFixed[int](4)
	require.NoError(t, err)

	buf.Clear()
	assert.True(t, buf.IsEmpty())

	for i := 0; i < 4; i++ {
		require.NoError(t, buf.Push(i))
	}
	_, err = buf.Pop()
	require.NoError(t, err)
	require.NoError(t, buf.Push(4))

	buf.Clear()
	assert.True(t, buf.IsEmpty())
	assert.Equal(t, 4, buf.Size())
	stats := buf.Stats()
	assert.Equal(t, int64(5), stats.Pushes())
	assert.Equal(t, int64(5), stats.Pops(), "cleared elements count as popped")
	assert.Equal(t, int64(buf.Count()), stats.Pushes()-stats.Pops()-stats.Drops())
	for i := 0; i < buf.Size(); i++ {
		assert.Equal(t, 0, *buf.Peek(i))
	}

	require.NoError(t, buf.Push(10))
	v, err := buf.Pop()
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestClose(t *testing.T) {
	alloc := NewLimitedAllocator[int](nil, 8)
	buf, err := NewGrowable[int](4, WithAllocator[int](alloc))
	require.NoError(t, err)
	require.NoError(t, buf.Push(1))

	require.NoError(t, buf.Close())
	assert.Equal(t, 0, buf.Size())
	assert.Equal(t, 0, buf.Count())
	assert.Equal(t, 0, alloc.InUse())

	require.NoError(t, buf.Close(), "second close is a no-op")

	// A closed buffer behaves as a capacity-0 buffer
	require.NoError(t, buf.Push(2))
	assert.Equal(t, 1, buf.Size())
}

func TestClose_AfterRegrowth(t *testing.T) {
	alloc := NewLimitedAllocator[int](nil, 10)
	buf, err := New[int, GrowByDoubling, Checked](2, WithAllocator[int](alloc))
	require.NoError(t, err)

	require.NoError(t, buf.Close())
	require.NoError(t, buf.Push(1))
	require.NoError(t, buf.Push(2))
	require.Equal(t, 2, alloc.InUse())

	require.NoError(t, buf.Close())
	assert.Equal(t, 0, alloc.InUse(), "storage grown after Close must be released")
	assert.Equal(t, 0, buf.Size())
	assert.Equal(t, 0, buf.Count())
	assert.Equal(t, int64(2), buf.Stats().Pops())

	require.NoError(t, buf.Close())
	assert.Equal(t, 0, alloc.InUse())
}
