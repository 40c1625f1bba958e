// thread.go: per-thread producer handle and event registration
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

import (
	"sync"
	"sync/atomic"

	"github.com/agilira/pulse/internal/wire"
)

// Handle is a thread-local producer context: one Shared Trace Buffer, one
// local event id-store, and the bookkeeping the harvester needs to turn
// drained bytes into a LocalPacketHeader. Application code obtains one via
// Open and reuses it for every subsequent Emit call on that goroutine/OS
// thread.
type Handle struct {
	name string
	id   uint64

	ring *stbuf

	mu       sync.Mutex // guards idStore; registration is rare, emit is not
	idStore  wire.IDStore
	initial  atomic.Uint64
	lastSeen atomic.Uint64

	store *globalStore
}

// Open registers a new thread with the process-wide trace store, creating
// the store on first use. name is a human label; id should be a stable
// identifier for the calling OS thread (e.g. the result of a
// platform-specific gettid helper). pulse does not invent one on the
// caller's behalf since Go has no portable native-thread-id primitive in
// the standard library.
func Open(name string, id uint64) *Handle {
	h := &Handle{
		name:    name,
		id:      id,
		ring:    newSTBuf(),
		idStore: make(wire.IDStore, 8),
		store:   defaultStore(),
	}
	h.store.registerThread(h)
	return h
}

// RegisterEvent binds a packet-local event id to a display name and kind.
// Idempotent; last registration for a given id wins.
func (h *Handle) RegisterEvent(id uint8, name string, kind wire.EventKind) {
	h.mu.Lock()
	h.idStore[id] = wire.EventDescriptor{Name: name, Kind: kind}
	h.mu.Unlock()
}

// EmitPoint enqueues an instantaneous event at timestampNs. Returns false if
// the thread's STB is full; that's a dropped event, not an error.
func (h *Handle) EmitPoint(id uint8, timestampNs uint64) bool {
	h.touch(timestampNs)
	return h.ring.tryPush(wire.EncodePointRecord(id, timestampNs))
}

// EmitRange enqueues a duration event starting at timestampNs. Returns false
// if the thread's STB is full.
func (h *Handle) EmitRange(id uint8, timestampNs uint64, durationNs uint32) bool {
	h.touch(timestampNs)
	return h.ring.tryPush(wire.EncodeRangeRecord(id, timestampNs, durationNs))
}

// Emit enqueues a pre-encoded payload under the given event id. The record
// (id byte plus payload) must fit within maxInProgress bytes, so payloads
// longer than 79 bytes are rejected and Emit returns false. EmitPoint/
// EmitRange are convenience wrappers that build the
// payload for the two fixed record kinds pulse ships with; Emit lets a
// caller push any raw record so long as the registered kind's
// RecordSize-1 matches len(payload).
func (h *Handle) Emit(id uint8, timestampNs uint64, payload []byte) bool {
	h.touch(timestampNs)
	rec := make([]byte, 1+len(payload))
	rec[0] = id
	copy(rec[1:], payload)
	return h.ring.tryPush(rec)
}

func (h *Handle) touch(timestampNs uint64) {
	h.initial.CompareAndSwap(0, timestampNs)
	h.lastSeen.Store(timestampNs)
}

func (h *Handle) snapshotIDStore() wire.IDStore {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := make(wire.IDStore, len(h.idStore))
	for k, v := range h.idStore {
		cp[k] = v
	}
	return cp
}
