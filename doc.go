// doc.go: package documentation
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package pulse provides a low-overhead, in-process tracing library: the
// producer side of a tracing pipeline whose receiver lives in
// cmd/pulse-receiver.
//
// # Architecture
//
// Four cooperating pieces, leaves first:
//
//   - The Shared Trace Buffer (ring.go): a fixed-size, lock-free byte ring
//     per producer thread. Concurrent try_push, cooperative try_pop, a
//     bounded in-progress-writer window so the consumer never has to track
//     individual reservations.
//   - The Global Staging Store (store.go): one process-wide byte ring that
//     aggregates framed per-thread packets, with a drop-oldest policy when
//     it grows past its cleanup threshold.
//   - The harvester (harvester.go): a background goroutine that drains each
//     thread's STB into the GSS.
//   - The sender (sender.go): a background goroutine that streams the GSS's
//     contents to a receiver process over TCP, tick by tick, until
//     Finalize drains and stops it.
//
// # Quick start
//
//	h := pulse.Open("worker-0", 1)
//	h.RegisterEvent(1, "work", wire.KindRange)
//
//	start := pulse.Now()
//	// ... do work ...
//	h.EmitRange(1, start, uint32(pulse.Now()-start))
//
//	pulse.Finalize()
//
// Run cmd/pulse-receiver before the producer process starts, so the
// sender's initial dial succeeds:
//
//	pulse-receiver -listen 127.0.0.1:4302 -out trace.json
package pulse
