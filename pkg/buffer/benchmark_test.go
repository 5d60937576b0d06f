package buffer

import (
	"fmt"
	"testing"
)

// BenchmarkPush benchmarks Push into a buffer that is drained whenever it fills.
func BenchmarkPush(b *testing.B) {
	for _, size := range []int{16, 1024} {
		b.Run(fmt.Sprintf("Checked_%d", size), func(b *testing.B) {
			buf, err := NewFixed[int](size)
			if err != nil {
				b.Fatal(err)
			}
			defer buf.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if buf.IsFull() {
					buf.Clear()
				}
				_ = buf.Push(i)
			}
		})

		b.Run(fmt.Sprintf("Overwriting_%d", size), func(b *testing.B) {
			buf, err := NewOverwriting[int](size)
			if err != nil {
				b.Fatal(err)
			}
			defer buf.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = buf.Push(i)
			}
		})
	}
}

// BenchmarkPushPop benchmarks a steady state of one push followed by one pop.
func BenchmarkPushPop(b *testing.B) {
	benchmarks := []struct {
		name string
		buf  func() (Buffer[int], error)
	}{
		{"Fixed", func() (Buffer[int], error) { return NewFixed[int](64) }},
		{"Overwriting", func() (Buffer[int], error) { return NewOverwriting[int](64) }},
		{"Growable", func() (Buffer[int], error) { return NewGrowable[int](64) }},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			buf, err := bm.buf()
			if err != nil {
				b.Fatal(err)
			}
			defer buf.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = buf.Push(i)
				_, _ = buf.Pop()
			}
		})
	}
}

// BenchmarkGrowth benchmarks filling a buffer from empty under each growth policy.
func BenchmarkGrowth(b *testing.B) {
	const n = 4096

	b.Run("Doubling", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf, _ := New[int, GrowByDoubling, Unchecked](0)
			for j := 0; j < n; j++ {
				_ = buf.Push(j)
			}
		}
	})

	b.Run("DoublingPooled", func(b *testing.B) {
		alloc := NewPoolAllocator[int]()
		for i := 0; i < b.N; i++ {
			buf, _ := New[int, GrowByDoubling, Unchecked](0, WithAllocator[int](alloc))
			for j := 0; j < n; j++ {
				_ = buf.Push(j)
			}
			_ = buf.Close()
		}
	})

	b.Run("GrowByOne", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf, _ := New[int, GrowByOne, Unchecked](0)
			for j := 0; j < n/16; j++ {
				_ = buf.Push(j)
			}
		}
	})
}

// BenchmarkPopBatch benchmarks batch draining.
func BenchmarkPopBatch(b *testing.B) {
	for _, batch := range []int{1, 16, 256} {
		b.Run(fmt.Sprintf("Batch_%d", batch), func(b *testing.B) {
			buf, err := NewFixed[int](1024)
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if buf.IsEmpty() {
					b.StopTimer()
					for j := 0; j < buf.Size(); j++ {
						_ = buf.Push(j)
					}
					b.StartTimer()
				}
				_, _ = buf.PopBatch(batch)
			}
		})
	}
}
