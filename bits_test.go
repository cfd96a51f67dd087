package seedbloom

import (
	"errors"
	"sync"
	"testing"
)

func bitArrays(t *testing.T, capacity int) map[string]BitArray {
	t.Helper()
	a, err := NewAtomicBits(capacity)
	if err != nil {
		t.Fatalf("NewAtomicBits: %v", err)
	}
	b, err := NewBitset(capacity)
	if err != nil {
		t.Fatalf("NewBitset: %v", err)
	}
	return map[string]BitArray{"atomic": a, "bitset": b}
}

func TestBitArraySetTest(t *testing.T) {
	for name, arr := range bitArrays(t, 130) {
		t.Run(name, func(t *testing.T) {
			if arr.Cap() != 130 {
				t.Errorf("Cap() = %d, want 130", arr.Cap())
			}

			for _, i := range []int{0, 1, 63, 64, 127, 129} {
				set, err := arr.Test(i)
				if err != nil || set {
					t.Fatalf("Test(%d) before Set = %v, %v", i, set, err)
				}
				if err := arr.Set(i); err != nil {
					t.Fatalf("Set(%d): %v", i, err)
				}
				set, err = arr.Test(i)
				if err != nil || !set {
					t.Fatalf("Test(%d) after Set = %v, %v", i, set, err)
				}
			}

			if arr.Count() != 6 {
				t.Errorf("Count() = %d, want 6", arr.Count())
			}

			// Neighbours stay clear.
			if set, _ := arr.Test(2); set {
				t.Error("bit 2 unexpectedly set")
			}
		})
	}
}

func TestBitArrayOutOfRange(t *testing.T) {
	const capacity = 100
	for name, arr := range bitArrays(t, capacity) {
		t.Run(name, func(t *testing.T) {
			for _, i := range []int{-1, capacity, capacity + 64, -1000} {
				if err := arr.Set(i); !errors.Is(err, ErrOutOfRange) {
					t.Errorf("Set(%d) error = %v, want ErrOutOfRange", i, err)
				}
				if _, err := arr.Test(i); !errors.Is(err, ErrOutOfRange) {
					t.Errorf("Test(%d) error = %v, want ErrOutOfRange", i, err)
				}
			}
			if arr.Count() != 0 {
				t.Errorf("rejected sets changed Count() to %d", arr.Count())
			}
		})
	}
}

func TestBitArraySetIdempotent(t *testing.T) {
	for name, arr := range bitArrays(t, 64) {
		t.Run(name, func(t *testing.T) {
			for range 3 {
				if err := arr.Set(10); err != nil {
					t.Fatal(err)
				}
			}
			if arr.Count() != 1 {
				t.Errorf("Count() = %d, want 1", arr.Count())
			}
		})
	}
}

func TestBitArrayInvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := NewAtomicBits(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("NewAtomicBits(%d) error = %v", capacity, err)
		}
		if _, err := NewBitset(capacity); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("NewBitset(%d) error = %v", capacity, err)
		}
	}
}

func TestAtomicBitsConcurrent(t *testing.T) {
	const capacity = 1 << 12
	arr, err := NewAtomicBits(capacity)
	if err != nil {
		t.Fatal(err)
	}

	const numGoroutines = 8
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for g := range numGoroutines {
		go func(offset int) {
			defer wg.Done()
			// Goroutines share words, so lost updates would show up here.
			for i := offset; i < capacity; i += numGoroutines {
				if err := arr.Set(i); err != nil {
					t.Error(err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	if arr.Count() != capacity {
		t.Errorf("Count() = %d, want %d", arr.Count(), capacity)
	}
}

func TestAtomicBitsAlignment(t *testing.T) {
	arr, err := NewAtomicBits(1000)
	if err != nil {
		t.Fatal(err)
	}
	addr := uintptr(unsafePointer(&arr.words[0]))
	if addr%cacheLineSize != 0 {
		t.Errorf("AtomicBits words not 64-byte aligned: address %x", addr)
	}
}
