// pulse_test.go: end-to-end producer → receiver scenarios
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

import (
	"net"
	"testing"
	"time"

	"github.com/agilira/pulse/internal/receiver"
	"github.com/agilira/pulse/internal/wire"
)

// startLoopbackReceiver binds an ephemeral listener, accepts exactly one
// connection, and runs the wire-reading state machine against it, sending
// the resulting trace back on the returned channel once the connection
// reaches a clean EOF or errors out.
func startLoopbackReceiver(t *testing.T) (addr string, traceCh <-chan *receiver.TraceFile) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ch := make(chan *receiver.TraceFile, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(ch)
			return
		}
		defer conn.Close()
		defer ln.Close()

		trace := receiver.NewTraceFile()
		_ = receiver.Run(conn, trace)
		ch <- trace
	}()

	return ln.Addr().String(), ch
}

// TestScenarioS1SingleRangeEvent checks a single Range event round-trips
// through the full pipeline with its name, timestamp, and duration intact,
// alongside exactly one thread-name record.
func TestScenarioS1SingleRangeEvent(t *testing.T) {
	resetGlobalForTest()
	defer resetGlobalForTest()

	addr, traceCh := startLoopbackReceiver(t)
	Init(Config{ListenAddr: addr, SenderTick: 10 * time.Millisecond, HarvestTick: 2 * time.Millisecond})

	h := Open("main", 1)
	h.RegisterEvent(1, "work", wire.KindRange)
	h.EmitRange(1, 1_000_000, 500_000)

	Finalize()

	trace := waitForTrace(t, traceCh)

	var ranges, names int
	for _, ev := range trace.TraceEvents {
		switch e := ev.(type) {
		case receiver.RangeEvent:
			ranges++
			if e.Name != "work" || e.Ts != 1000.0 || e.Dur != 500.0 {
				t.Errorf("range event = %+v, want name=work ts=1000 dur=500", e)
			}
		case receiver.ThreadNameMeta:
			names++
			if e.Args["name"] != "main" {
				t.Errorf("thread name meta args.name = %q, want %q", e.Args["name"], "main")
			}
		}
	}
	if ranges != 1 {
		t.Errorf("got %d range events, want 1", ranges)
	}
	if names != 1 {
		t.Errorf("got %d thread-name metadata records, want 1", names)
	}
}

// TestScenarioS2TwoThreadsInterleaved checks that two threads, each binding
// event id 5 to its own name, deliver all four point events, and that each
// thread contributes exactly one thread-name record.
func TestScenarioS2TwoThreadsInterleaved(t *testing.T) {
	resetGlobalForTest()
	defer resetGlobalForTest()

	addr, traceCh := startLoopbackReceiver(t)
	Init(Config{ListenAddr: addr, SenderTick: 10 * time.Millisecond, HarvestTick: 2 * time.Millisecond})

	alpha := Open("alpha", 1)
	alpha.RegisterEvent(5, "tickA", wire.KindPoint)
	alpha.EmitPoint(5, 10)
	alpha.EmitPoint(5, 20)

	beta := Open("beta", 2)
	beta.RegisterEvent(5, "tickB", wire.KindPoint)
	beta.EmitPoint(5, 30)
	beta.EmitPoint(5, 40)

	Finalize()

	trace := waitForTrace(t, traceCh)

	points, names := 0, 0
	for _, ev := range trace.TraceEvents {
		switch ev.(type) {
		case receiver.PointEvent:
			points++
		case receiver.ThreadNameMeta:
			names++
		}
	}
	if points != 4 {
		t.Errorf("got %d point events, want 4", points)
	}
	if names != 2 {
		t.Errorf("got %d thread-name metadata records, want 2", names)
	}
}

// TestScenarioS4FinalizeDrains checks that Finalize flushes the outstanding
// event to the receiver before the connection closes. The event is far
// below the flush threshold, so only the finalize drain sends it.
func TestScenarioS4FinalizeDrains(t *testing.T) {
	resetGlobalForTest()
	defer resetGlobalForTest()

	addr, traceCh := startLoopbackReceiver(t)
	Init(Config{ListenAddr: addr, SenderTick: 200 * time.Millisecond, HarvestTick: 2 * time.Millisecond})

	h := Open("solo", 1)
	h.RegisterEvent(1, "once", wire.KindPoint)
	h.EmitPoint(1, 99)

	Finalize()

	trace := waitForTrace(t, traceCh)
	if len(trace.TraceEvents) == 0 {
		t.Fatalf("expected at least the emitted point event and thread-name record")
	}
}

func waitForTrace(t *testing.T, ch <-chan *receiver.TraceFile) *receiver.TraceFile {
	t.Helper()
	select {
	case trace, ok := <-ch:
		if !ok || trace == nil {
			t.Fatalf("receiver connection closed without producing a trace")
		}
		return trace
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for receiver trace")
		return nil
	}
}
