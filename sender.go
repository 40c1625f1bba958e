// sender.go: background task that streams GSS contents to the receiver
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/pulse/internal/wire"
)

// finalizeFlag is the process-wide shutdown signal: set once, observed by
// the sender loop on its next tick, which then drains everything and exits.
type finalizeFlag struct {
	set atomic.Bool
}

func (f *finalizeFlag) trigger() { f.set.Store(true) }
func (f *finalizeFlag) isSet() bool { return f.set.Load() }

// senderLoop owns the TCP connection to the receiver and the goroutine that
// drains the GSS on a fixed tick. Started once, alongside the GSS, and
// joined by finalize().
type senderLoop struct {
	gs   *globalStore
	addr string
	tick time.Duration

	onError func(error)

	done chan struct{}
	wg   sync.WaitGroup
}

func startSenderLoop(gs *globalStore, cfg Config) *senderLoop {
	s := &senderLoop{
		gs:      gs,
		addr:    cfg.listenAddr(),
		tick:    cfg.senderTick(),
		onError: cfg.OnSenderError,
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// run dials once (a failure here is fatal to the sender, not the process),
// then every tick drains failed-page headers and, if finalize was observed
// or the flush threshold was crossed, the batch slices too; it exits after
// observing finalize and flushing one last time.
func (s *senderLoop) run() {
	defer s.wg.Done()

	conn, err := net.Dial("tcp", s.addr)
	if err != nil {
		s.reportError(err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		<-ticker.C

		finalizing := s.gs.finalize.isSet()

		failedPages := s.gs.takeFailedPages()
		a, b, ok := s.gs.tryTakeBuf(finalizing)

		if ok {
			if err := s.writeBatch(conn, a, b); err != nil {
				s.reportError(err)
				return
			}
		}

		for i := range failedPages {
			if err := s.writeDropped(conn, &failedPages[i]); err != nil {
				s.reportError(err)
				return
			}
		}

		if finalizing {
			return
		}
	}
}

func (s *senderLoop) writeBatch(conn net.Conn, a, b []byte) error {
	totalLen := uint64(len(a) + len(b))
	out := make([]byte, 0, 1+8+len(a)+len(b))
	out = append(out, wire.TagBatch)
	out = wire.PutU64BE(out, totalLen)
	out = append(out, a...)
	out = append(out, b...)
	_, err := conn.Write(out)
	return err
}

func (s *senderLoop) writeDropped(conn net.Conn, header *wire.LocalPacketHeader) error {
	encoded := wire.EncodeHeader(header)
	out := make([]byte, 0, 1+8+len(encoded))
	out = append(out, wire.TagDropped)
	out = wire.PutU64BE(out, uint64(len(encoded)))
	out = append(out, encoded...)
	_, err := conn.Write(out)
	return err
}

func (s *senderLoop) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// join waits for the sender goroutine to exit, e.g. after finalize() has
// set the flag. Safe to call multiple times.
func (s *senderLoop) join() {
	s.wg.Wait()
}
