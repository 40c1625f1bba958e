// ring_test.go: Shared Trace Buffer correctness tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

import (
	"sync"
	"testing"
)

// TestCanPushTruthTable exhaustively checks canPush against the source truth
// table at mask=3 for n in {1,2,3}.
func TestCanPushTruthTable(t *testing.T) {
	const mask = 3
	tests := []struct {
		r, w uint32
		n    int
		want bool
	}{
		{0, 0, 1, true}, {0, 1, 1, true}, {0, 2, 1, true}, {0, 3, 1, false},
		{1, 0, 1, false}, {1, 1, 1, true}, {1, 2, 1, true}, {1, 3, 1, true},
		{2, 0, 1, true}, {2, 1, 1, false}, {2, 2, 1, true}, {2, 3, 1, true},
		{3, 0, 1, true}, {3, 1, 1, true}, {3, 2, 1, false}, {3, 3, 1, true},

		{0, 0, 2, true}, {0, 1, 2, true}, {0, 2, 2, false}, {0, 3, 2, false},
		{1, 0, 2, false}, {1, 1, 2, true}, {1, 2, 2, true}, {1, 3, 2, false},
		{2, 0, 2, false}, {2, 1, 2, false}, {2, 2, 2, true}, {2, 3, 2, true},
		{3, 0, 2, true}, {3, 1, 2, false}, {3, 2, 2, false}, {3, 3, 2, true},

		{0, 0, 3, true}, {0, 1, 3, false}, {0, 2, 3, false}, {0, 3, 3, false},
		{1, 0, 3, false}, {1, 1, 3, true}, {1, 2, 3, false}, {1, 3, 3, false},
		{2, 0, 3, false}, {2, 1, 3, false}, {2, 2, 3, true}, {2, 3, 3, false},
		{3, 0, 3, false}, {3, 1, 3, false}, {3, 2, 3, false}, {3, 3, 3, true},
	}
	for _, tt := range tests {
		if got := canPush(tt.r, tt.w, tt.n, mask); got != tt.want {
			t.Errorf("canPush(%d,%d,%d,mask=3) = %v, want %v", tt.r, tt.w, tt.n, got, tt.want)
		}
	}
}

// TestCanPopTruthTable exhaustively checks canPop against the source truth
// table at mask=3 for n in {1,2,3}.
func TestCanPopTruthTable(t *testing.T) {
	const mask = 3
	tests := []struct {
		r, w uint32
		n    int
		want bool
	}{
		{0, 0, 1, false}, {0, 1, 1, true}, {0, 2, 1, true}, {0, 3, 1, true},
		{1, 0, 1, true}, {1, 1, 1, false}, {1, 2, 1, true}, {1, 3, 1, true},
		{2, 0, 1, true}, {2, 1, 1, true}, {2, 2, 1, false}, {2, 3, 1, true},
		{3, 0, 1, true}, {3, 1, 1, true}, {3, 2, 1, true}, {3, 3, 1, false},

		{0, 0, 2, false}, {0, 1, 2, false}, {0, 2, 2, true}, {0, 3, 2, true},
		{1, 0, 2, true}, {1, 1, 2, false}, {1, 2, 2, false}, {1, 3, 2, true},
		{2, 0, 2, true}, {2, 1, 2, true}, {2, 2, 2, false}, {2, 3, 2, false},
		{3, 0, 2, false}, {3, 1, 2, true}, {3, 2, 2, true}, {3, 3, 2, false},

		{0, 0, 3, false}, {0, 1, 3, false}, {0, 2, 3, false}, {0, 3, 3, true},
		{1, 0, 3, true}, {1, 1, 3, false}, {1, 2, 3, false}, {1, 3, 3, false},
		{2, 0, 3, false}, {2, 1, 3, true}, {2, 2, 3, false}, {2, 3, 3, false},
		{3, 0, 3, false}, {3, 1, 3, false}, {3, 2, 3, true}, {3, 3, 3, false},
	}
	for _, tt := range tests {
		if got := canPop(tt.r, tt.w, tt.n, mask); got != tt.want {
			t.Errorf("canPop(%d,%d,%d,mask=3) = %v, want %v", tt.r, tt.w, tt.n, got, tt.want)
		}
	}
}

// TestPushPopRoundTrip verifies a pushed sequence comes back exactly as
// pushed.
func TestPushPopRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    []byte
	}{
		{"single byte", []byte{0x42}},
		{"nine bytes", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"max in progress minus one", make([]byte, maxInProgress-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newSTBuf()
			if !r.tryPush(tt.v) {
				t.Fatalf("tryPush failed on empty ring")
			}
			got, ok := r.tryPop(len(tt.v))
			if !ok {
				t.Fatalf("tryPop failed after successful push")
			}
			if string(got) != string(tt.v) {
				t.Errorf("tryPop = %v, want %v", got, tt.v)
			}
		})
	}
}

// TestEmptyPopFails covers the Empty non-error case.
func TestEmptyPopFails(t *testing.T) {
	r := newSTBuf()
	if _, ok := r.tryPop(1); ok {
		t.Fatalf("tryPop on empty ring should fail")
	}
}

// TestOversizePushAlwaysFull verifies n > MAX_IN_PROGRESS always returns
// Full, never deadlocks.
func TestOversizePushAlwaysFull(t *testing.T) {
	r := newSTBuf()
	if r.tryPush(make([]byte, maxInProgress+1)) {
		t.Fatalf("push larger than maxInProgress should fail")
	}
}

// TestRingFull verifies that repeatedly pushing without popping eventually
// saturates the 256-byte ring.
func TestRingFull(t *testing.T) {
	r := newSTBuf()
	n := 10
	pushes := 0
	for i := 0; i < ringBufSize/n+5; i++ {
		if !r.tryPush(make([]byte, n)) {
			break
		}
		pushes++
	}
	if want := ringBufSize / n; pushes != want {
		t.Fatalf("got %d successful pushes of size %d, want %d", pushes, n, want)
	}
	if r.tryPush(make([]byte, n)) {
		t.Fatalf("push should fail once ring is full")
	}
	ws := unpackWriteState(r.write.Load())
	if ws.pending != 0 {
		t.Errorf("W_pending = %d, want 0 once producers have quiesced", ws.pending)
	}
}

// TestConcurrentProducers verifies that, with many producers pushing
// single-byte tags concurrently, the consumer never pops more bytes than were
// committed.
func TestConcurrentProducers(t *testing.T) {
	r := newSTBuf()
	const producers = 8
	const pushesPerProducer = 200

	var wg sync.WaitGroup
	var committed int64Counter
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		tag := byte(p)
		go func(tag byte) {
			defer wg.Done()
			for i := 0; i < pushesPerProducer; i++ {
				if r.tryPush([]byte{tag}) {
					committed.add(1)
				}
			}
		}(tag)
	}

	producersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(producersDone)
	}()

	popped := 0
	for {
		if _, ok := r.tryPop(1); ok {
			popped++
			continue
		}
		select {
		case <-producersDone:
			// One more drain pass: a commit may have landed between our
			// last failed pop and producers finishing.
			for {
				if _, ok := r.tryPop(1); !ok {
					if int64(popped) > committed.get() {
						t.Fatalf("popped %d bytes but only %d were committed", popped, committed.get())
					}
					return
				}
				popped++
			}
		default:
		}
	}
}

// int64Counter is a tiny mutex-guarded counter local to this test file; ring.go's
// own atomics are all uint32/uint64 words sized for the ring state, not a
// free-standing counter, so the test keeps its own.
type int64Counter struct {
	mu sync.Mutex
	v  int64
}

func (c *int64Counter) add(n int64) {
	c.mu.Lock()
	c.v += n
	c.mu.Unlock()
}

func (c *int64Counter) get() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}
