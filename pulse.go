// pulse.go: process-wide trace store lifecycle and public entry points
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package pulse is a low-overhead, in-process tracing library. Application
// goroutines call Open once per logical thread, then Emit/EmitPoint/
// EmitRange to push timestamped events onto that thread's lock-free ring
// buffer. A background harvester batches drained events into a process-wide
// staging ring; a sender goroutine streams framed packets to a receiver
// process over TCP (see cmd/pulse-receiver), which converts them into a
// Chrome/Perfetto-compatible JSON trace.
//
// Quick start:
//
//	h := pulse.Open("worker-0", 1)
//	h.RegisterEvent(1, "work", wire.KindRange)
//	h.EmitRange(1, startNs, durationNs)
//	...
//	pulse.Finalize()
package pulse

import (
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

var (
	globalMu    sync.Mutex
	global      *globalStore
	globalClock *timecache.TimeCache
)

// defaultStore returns the process-wide GlobalStore, initialising it (and
// its harvester + sender goroutines) on first use under a mutex.
func defaultStore() *globalStore {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return global
	}

	return initStoreLocked(NewConfigWithDefaults())
}

// Init explicitly (re-)configures the process-wide store before the first
// Open call. Calling it after the store has already been lazily created by
// Open is a no-op; whichever call runs first wins the race to initialise.
func Init(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return
	}
	initStoreLocked(cfg)
}

func initStoreLocked(cfg Config) *globalStore {
	globalClock = timecache.NewWithResolution(time.Microsecond)

	gs := newGlobalStore(cfg)
	gs.sender = startSenderLoop(gs, cfg)

	harvestStop := make(chan struct{})
	harvestDone := make(chan struct{})
	gs.harvestStop = harvestStop
	gs.harvestDone = harvestDone
	go gs.runHarvester(cfg.harvestTick(), harvestStop, harvestDone)

	global = gs
	return gs
}

// Now returns the shared cached clock's current reading in nanoseconds since
// the Unix epoch. It's the time source Emit/EmitPoint/EmitRange
// callers should use to avoid a time.Now() call in the hot path.
func Now() uint64 {
	globalMu.Lock()
	clock := globalClock
	globalMu.Unlock()
	if clock == nil {
		defaultStore() // force lazy init so Now() is usable before any Open
		globalMu.Lock()
		clock = globalClock
		globalMu.Unlock()
	}
	return uint64(clock.CachedTime().UnixNano())
}

// Finalize sets the process-wide FINALIZE flag, which causes the sender
// loop to drain every remaining byte from the GSS on its next tick and
// exit, then joins it. Safe to call more than once; a second call is a
// silent no-op.
func Finalize() {
	globalMu.Lock()
	gs := global
	globalMu.Unlock()

	if gs == nil {
		return
	}

	gs.finalizeOnce.Do(func() {
		// Stop the harvester first and wait for its last drain so every
		// already-emitted event reaches the GSS before the sender takes its
		// final, everything-included snapshot.
		if gs.harvestStop != nil {
			close(gs.harvestStop)
			<-gs.harvestDone
		}
		gs.finalize.trigger()
		if gs.sender != nil {
			gs.sender.join()
		}
	})
}
