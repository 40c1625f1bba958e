// harvester.go: drains per-thread STBs into the global staging store
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

import (
	"time"

	"github.com/agilira/pulse/internal/wire"
)

// runHarvester is the background conveyor: every tick it walks each
// registered thread's STB, draining every complete record it can pop into
// one packet body, then hands the resulting (header, body) to the GSS.
// One record at a time is popped because the STB only exposes a
// fixed-size try_pop and the record width depends on the event id's kind:
// the harvester peeks the id byte, resolves the kind from that thread's
// local id-store, then pops the remaining bytes.
func (gs *globalStore) runHarvester(tick time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			gs.harvestOnce()
			return
		case <-ticker.C:
			gs.harvestOnce()
		}
	}
}

func (gs *globalStore) harvestOnce() {
	for _, th := range gs.snapshotThreads() {
		gs.drainThread(th)
	}
}

func (gs *globalStore) drainThread(th *Handle) {
	idStore := th.snapshotIDStore()

	var body []byte
	for {
		idByte, ok := th.ring.tryPop(1)
		if !ok {
			break
		}
		id := idByte[0]
		desc, known := idStore[id]
		kind := wire.KindPoint
		if known {
			kind = desc.Kind
		}
		remaining := wire.RecordSize(kind) - 1

		rest, ok := th.ring.tryPop(remaining)
		if !ok {
			// The id byte was popped but its payload hasn't committed yet,
			// and the ring offers no way to push it back. The record is
			// lost. This only happens if a producer's commit is still in
			// flight at the exact moment the harvester raced ahead of it,
			// which maxInProgress bounds to a vanishingly small window.
			break
		}

		body = append(body, id)
		body = append(body, rest...)
	}

	if len(body) == 0 {
		return
	}

	header := &wire.LocalPacketHeader{
		ThreadName:       th.name,
		ThreadID:         th.id,
		InitialTimestamp: th.initial.Load(),
		EndTimestamp:     th.lastSeen.Load(),
		IDStore:          idStore,
		BufLength:        uint64(len(body)),
	}
	gs.pushBuf(header, body)
}
