// store.go: global staging store (GSS), process-wide byte ring aggregating
// framed packets ahead of transmission.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

import (
	"sync"

	"github.com/agilira/pulse/internal/wire"
)

// Default GSS thresholds. Config can override them for tests or for
// deployments with a different memory ceiling.
const (
	defaultGlobalCapacity        = 500_000_000
	defaultCleanupThresholdRatio = 0.9
	defaultCleanupBottom         = 350_000_000
	defaultFlushThreshold        = 5_000_000
)

// globalStore is the single process-wide staging ring. One mutex guards both
// the byte ring and the skipped-header list; every operation under it is a
// memcpy and a handful of integer ops, so the critical section stays short
// even though the harvester (pushBuf) and the sender (tryTakeBuf,
// takeFailedPages) both contend on it.
type globalStore struct {
	mu sync.Mutex

	ring       []byte
	head, tail int // [head, tail) holds valid bytes, mod len(ring)
	occupied   int

	cleanupThreshold int
	cleanupBottom    int
	flushThreshold   int

	skippedHeaders []wire.LocalPacketHeader

	onDrop func(droppedBytes, skippedPackets int)

	threadsMu sync.Mutex
	threads   []*Handle

	finalize     finalizeFlag
	finalizeOnce sync.Once
	sender       *senderLoop
	harvestStop  chan struct{}
	harvestDone  chan struct{}
}

func newGlobalStore(cfg Config) *globalStore {
	capacity := cfg.globalCapacity()
	gs := &globalStore{
		ring:             make([]byte, capacity),
		cleanupThreshold: int(float64(capacity) * defaultCleanupThresholdRatio),
		cleanupBottom:    cfg.cleanupBottom(),
		flushThreshold:   cfg.flushThreshold(),
		onDrop:           cfg.OnDrop,
	}
	return gs
}

// pushBuf appends one frame, [header_len u64be][header][body], to the
// ring. Never blocks, never fails; if the push leaves the ring over the
// cleanup threshold it immediately runs a drop pass to bring occupancy back
// under the bottom threshold.
func (gs *globalStore) pushBuf(header *wire.LocalPacketHeader, body []byte) {
	encodedHeader := wire.EncodeHeader(header)
	frame := wire.PutU64BE(make([]byte, 0, 8+len(encodedHeader)+len(body)), uint64(len(encodedHeader)))
	frame = append(frame, encodedHeader...)
	frame = append(frame, body...)

	gs.mu.Lock()
	defer gs.mu.Unlock()

	gs.writeBytes(frame)

	if gs.occupied > gs.cleanupThreshold {
		before := gs.occupied
		skipped := 0
		for gs.occupied > gs.cleanupBottom {
			lenBuf := gs.readBytes(8)
			headerLen, _ := wire.GetU64BE(lenBuf)
			headerBytes := gs.readBytes(int(headerLen))
			hdr, err := wire.DecodeHeader(headerBytes)
			if err != nil {
				// A corrupt header here means the ring's frame alignment broke,
				// an invariant violation, not a recoverable runtime condition.
				panic("pulse: GSS frame misalignment during drop pass: " + err.Error())
			}
			gs.skip(int(hdr.BufLength))
			gs.skippedHeaders = append(gs.skippedHeaders, *hdr)
			skipped++
		}
		if gs.onDrop != nil {
			gs.onDrop(before-gs.occupied, skipped)
		}
	}
}

// takeFailedPages returns and clears the skipped-header list.
func (gs *globalStore) takeFailedPages() []wire.LocalPacketHeader {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if len(gs.skippedHeaders) == 0 {
		return nil
	}
	out := gs.skippedHeaders
	gs.skippedHeaders = nil
	return out
}

// tryTakeBuf atomically snapshots the ring's contiguous-pair view and resets
// it to empty, if occupancy exceeds the relevant threshold. takeEverything
// forces a threshold of zero, used by finalize to drain every remaining
// byte.
func (gs *globalStore) tryTakeBuf(takeEverything bool) (a, b []byte, ok bool) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	threshold := gs.flushThreshold
	if takeEverything {
		threshold = 0
	}
	if gs.occupied <= threshold {
		return nil, nil, false
	}

	a, b = gs.slices()
	gs.head, gs.tail, gs.occupied = 0, 0, 0
	return a, b, true
}

// slices returns the (at most two) contiguous byte slices backing the ring's
// current contents, in logical order.
func (gs *globalStore) slices() (a, b []byte) {
	if gs.occupied == 0 {
		return nil, nil
	}
	if gs.head < gs.tail {
		a = append([]byte(nil), gs.ring[gs.head:gs.tail]...)
		return a, nil
	}
	a = append([]byte(nil), gs.ring[gs.head:]...)
	b = append([]byte(nil), gs.ring[:gs.tail]...)
	return a, b
}

// writeBytes appends p to the ring, overwriting nothing: callers are
// responsible for keeping occupied+len(p) within capacity. The drop pass
// above runs synchronously under the same lock and targets a bottom
// threshold comfortably below capacity, so in practice there's always
// enough headroom for one more frame before the next drop pass runs.
func (gs *globalStore) writeBytes(p []byte) {
	n := len(gs.ring)
	for i := 0; i < len(p); i++ {
		gs.ring[gs.tail] = p[i]
		gs.tail = (gs.tail + 1) % n
	}
	gs.occupied += len(p)
}

// readBytes consumes and returns n bytes from the head of the ring. Used
// only by the drop pass, which always operates on data it just verified is
// present.
func (gs *globalStore) readBytes(n int) []byte {
	out := make([]byte, n)
	ringLen := len(gs.ring)
	for i := 0; i < n; i++ {
		out[i] = gs.ring[gs.head]
		gs.head = (gs.head + 1) % ringLen
	}
	gs.occupied -= n
	return out
}

// skip discards n bytes from the head without copying them out.
func (gs *globalStore) skip(n int) {
	ringLen := len(gs.ring)
	gs.head = (gs.head + n) % ringLen
	gs.occupied -= n
}

func (gs *globalStore) registerThread(h *Handle) {
	gs.threadsMu.Lock()
	gs.threads = append(gs.threads, h)
	gs.threadsMu.Unlock()
}

func (gs *globalStore) snapshotThreads() []*Handle {
	gs.threadsMu.Lock()
	defer gs.threadsMu.Unlock()
	out := make([]*Handle, len(gs.threads))
	copy(out, gs.threads)
	return out
}
