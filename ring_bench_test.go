// ring_bench_test.go: Shared Trace Buffer hot-path benchmarks
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

import "testing"

// BenchmarkTryPush measures single-producer push throughput on a ring that
// is drained concurrently, so pushes never see Full.
func BenchmarkTryPush(b *testing.B) {
	r := newSTBuf()
	rec := []byte{1, 0, 0, 0, 0, 0, 0, 0, 0} // one Point record
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				r.tryPop(len(rec))
			}
		}
	}()
	defer close(done)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.tryPush(rec)
	}
}

// BenchmarkTryPushParallel measures push throughput under contention from
// multiple producer goroutines writing into the same STB.
func BenchmarkTryPushParallel(b *testing.B) {
	r := newSTBuf()
	rec := []byte{2, 0, 0, 0, 0, 0, 0, 0, 0}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				r.tryPop(len(rec))
			}
		}
	}()
	defer close(done)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r.tryPush(rec)
		}
	})
}

// BenchmarkTryPop measures single-consumer pop throughput against a ring
// kept full by a concurrent producer.
func BenchmarkTryPop(b *testing.B) {
	r := newSTBuf()
	rec := []byte{3, 0, 0, 0, 0, 0, 0, 0, 0}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				r.tryPush(rec)
			}
		}
	}()
	defer close(done)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.tryPop(len(rec))
	}
}
