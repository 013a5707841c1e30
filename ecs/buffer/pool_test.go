package buffer

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
)

func TestPoolAppendAndEach(t *testing.T) {
	pool := NewPool(2, 8)
	pool.Lane(0).Append([]byte("abc"))
	pool.Lane(1).Append([]byte("wxyz"))
	pool.Lane(0).Append([]byte("defgh"))

	if pool.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", pool.Len())
	}
	if pool.Lane(0).Bytes() != 8 {
		t.Fatalf("expected 8 bytes in lane 0, got %d", pool.Lane(0).Bytes())
	}

	var got []string
	pool.Each(func(lane int, item []byte) bool {
		got = append(got, fmt.Sprintf("%d:%s", lane, item))
		return true
	})
	want := []string{"0:abc", "0:defgh", "1:wxyz"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("unexpected items %v, want %v", got, want)
	}
}

func TestPoolEachStopsEarly(t *testing.T) {
	pool := NewPool(2, 16)
	for i := 0; i < 3; i++ {
		pool.Lane(0).Append([]byte{byte(i)})
		pool.Lane(1).Append([]byte{byte(i)})
	}
	visited := 0
	pool.Each(func(int, []byte) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Fatalf("expected to stop after 2 items, visited %d", visited)
	}
}

func TestLaneItemsDoNotSpanBlocks(t *testing.T) {
	pool := NewPool(1, 4)
	lane := pool.Lane(0)
	lane.Append([]byte("ab"))
	lane.Append([]byte("cde"))      // does not fit after "ab", starts a new block
	lane.Append([]byte("oversize")) // larger than a block, gets its own

	if lane.Item(0)[0] != 'a' || string(lane.Item(1)) != "cde" || string(lane.Item(2)) != "oversize" {
		t.Fatalf("unexpected items %q %q %q", lane.Item(0), lane.Item(1), lane.Item(2))
	}
	if lane.Capacity() != 4+4+8 {
		t.Fatalf("expected three blocks totalling 16 bytes, got %d", lane.Capacity())
	}
}

func TestLaneItemsAreCapped(t *testing.T) {
	pool := NewPool(1, 64)
	lane := pool.Lane(0)
	lane.Append([]byte("first"))
	lane.Append([]byte("second"))

	grown := append(lane.Item(0), 'X')
	_ = grown
	if string(lane.Item(1)) != "second" {
		t.Fatalf("appending to an item must not clobber its neighbour, got %q", lane.Item(1))
	}
}

func TestPoolResetKeepsCapacity(t *testing.T) {
	pool := NewPool(2, 8)
	for i := 0; i < 10; i++ {
		pool.Lane(i % 2).Append([]byte("12345"))
	}
	capacity := pool.Capacity()
	if capacity == 0 {
		t.Fatalf("expected blocks to be allocated")
	}

	pool.Reset()
	if pool.Len() != 0 || pool.Lane(0).Bytes() != 0 {
		t.Fatalf("expected empty pool after reset")
	}
	if pool.Capacity() != capacity {
		t.Fatalf("reset must keep backing blocks: %d != %d", pool.Capacity(), capacity)
	}
	visited := false
	pool.Each(func(int, []byte) bool { visited = true; return true })
	if visited {
		t.Fatalf("reset pool must not expose stale items")
	}

	for i := 0; i < 10; i++ {
		pool.Lane(i % 2).Append([]byte("67890"))
	}
	if pool.Capacity() != capacity {
		t.Fatalf("refilling to the same size must reuse blocks: %d != %d", pool.Capacity(), capacity)
	}
	pool.Each(func(_ int, item []byte) bool {
		if !bytes.Equal(item, []byte("67890")) {
			t.Fatalf("unexpected item after refill: %q", item)
		}
		return true
	})
}

func TestPoolResetIdempotent(t *testing.T) {
	pool := NewPool(3, 8)
	pool.Lane(1).Append([]byte("x"))
	pool.Reset()
	first := pool.Capacity()
	pool.Reset()
	if pool.Len() != 0 || pool.Capacity() != first {
		t.Fatalf("second reset changed pool state")
	}
}

func TestPoolResetFreshAndNil(t *testing.T) {
	fresh := NewPool(4, 0)
	fresh.Reset()
	fresh.Reset()
	if fresh.Len() != 0 || fresh.Capacity() != 0 {
		t.Fatalf("fresh pool should stay empty")
	}

	var nilPool *Pool
	nilPool.Reset()
	if nilPool.Len() != 0 || nilPool.Lanes() != 0 || nilPool.Capacity() != 0 {
		t.Fatalf("nil pool should read empty")
	}
	nilPool.Each(func(int, []byte) bool {
		t.Fatalf("nil pool has no items")
		return false
	})
}

func TestLaneAppendFuncWritesInPlace(t *testing.T) {
	pool := NewPool(1, 32)
	lane := pool.Lane(0)
	lane.AppendFunc(4, func(dst []byte) {
		copy(dst, "ping")
	})
	lane.AppendFunc(0, nil)
	if lane.Len() != 2 || string(lane.Item(0)) != "ping" || len(lane.Item(1)) != 0 {
		t.Fatalf("unexpected lane contents")
	}
}

func TestLaneAppendDoesNotAllocateAfterWarmup(t *testing.T) {
	pool := NewPool(1, 256)
	lane := pool.Lane(0)
	payload := []byte("0123456789abcdef")
	frame := func() {
		pool.Reset()
		for i := 0; i < 64; i++ {
			lane.Append(payload)
		}
	}
	frame()
	if allocs := testing.AllocsPerRun(20, frame); allocs != 0 {
		t.Fatalf("expected zero allocations per warm frame, got %v", allocs)
	}
}

func TestPoolLanesWrittenConcurrently(t *testing.T) {
	const lanes = 4
	pool := NewPool(lanes, 64)
	var wg sync.WaitGroup
	for i := 0; i < lanes; i++ {
		wg.Add(1)
		go func(lane int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pool.Lane(lane).Append([]byte{byte(lane), byte(j)})
			}
		}(i)
	}
	wg.Wait()

	if pool.Len() != lanes*100 {
		t.Fatalf("expected %d items, got %d", lanes*100, pool.Len())
	}
	pool.Each(func(lane int, item []byte) bool {
		if int(item[0]) != lane {
			t.Fatalf("item %v found in lane %d", item, lane)
		}
		return true
	})
}
