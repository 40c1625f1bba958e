// receiver.go: wire-reading state machine and packet conversion
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package receiver

import (
	"fmt"
	"io"

	"github.com/agilira/pulse/internal/wire"
)

// Run reads frames from r until a clean EOF or a protocol error, converting
// every event it decodes into trace. It reads one tag byte at a time, then
// dispatches to a batch frame (0x01) or a dropped-packet notice (0x02); any
// other tag is fatal.
func Run(r io.Reader, trace *TraceFile) error {
	seenThread := make(map[uint64]bool)

	for {
		tagBuf := make([]byte, 1)
		if _, err := io.ReadFull(r, tagBuf); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("receiver: reading tag: %w", err)
		}

		switch tagBuf[0] {
		case wire.TagBatch:
			if err := readBatch(r, trace, seenThread); err != nil {
				return err
			}
		case wire.TagDropped:
			if err := readDropped(r, trace, seenThread); err != nil {
				return err
			}
		default:
			return fmt.Errorf("receiver: unknown frame tag 0x%02x", tagBuf[0])
		}
	}
}

func readBatch(r io.Reader, trace *TraceFile, seenThread map[uint64]bool) error {
	totalLen, err := readU64BE(r)
	if err != nil {
		return fmt.Errorf("receiver: reading batch length: %w", err)
	}

	buf := make([]byte, totalLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("receiver: reading batch payload: %w", err)
	}

	return parseBatch(buf, trace, seenThread)
}

// parseBatch loops reading (header_len, header, body) triples until the
// buffer is exhausted.
func parseBatch(buf []byte, trace *TraceFile, seenThread map[uint64]bool) error {
	off := 0
	for off < len(buf) {
		if len(buf[off:]) < 8 {
			return fmt.Errorf("receiver: truncated header length in batch")
		}
		headerLen, err := wire.GetU64BE(buf[off:])
		if err != nil {
			return fmt.Errorf("receiver: %w", err)
		}
		off += 8

		if len(buf[off:]) < int(headerLen) {
			return fmt.Errorf("receiver: truncated header in batch")
		}
		header, err := wire.DecodeHeader(buf[off : off+int(headerLen)])
		if err != nil {
			return fmt.Errorf("receiver: decoding packet header: %w", err)
		}
		off += int(headerLen)

		if len(buf[off:]) < int(header.BufLength) {
			return fmt.Errorf("receiver: truncated body in batch")
		}
		body := buf[off : off+int(header.BufLength)]
		off += int(header.BufLength)

		emitThreadName(trace, seenThread, header)
		if err := walkBody(trace, header, body); err != nil {
			return err
		}
	}
	return nil
}

// walkBody resolves each record's event id through the packet's id-store to
// learn its kind and width, then emits the matching JSON event.
func walkBody(trace *TraceFile, header *wire.LocalPacketHeader, body []byte) error {
	off := 0
	for off < len(body) {
		id := body[off]
		desc, ok := header.IDStore[id]
		if !ok {
			return fmt.Errorf("receiver: event id %d not present in packet id-store", id)
		}

		size := wire.RecordSize(desc.Kind)
		if len(body[off:]) < size {
			return fmt.Errorf("receiver: truncated event record for id %d", id)
		}
		payload := body[off+1 : off+size]

		switch desc.Kind {
		case wire.KindPoint:
			ts := wire.DecodePointRecord(payload)
			trace.AddPointEvent(desc.Name, uint64(id), ts)
		case wire.KindRange:
			ts, dur := wire.DecodeRangeRecord(payload)
			trace.AddRangeEvent(desc.Name, uint64(id), ts, dur)
		}

		off += size
	}
	return nil
}

func readDropped(r io.Reader, trace *TraceFile, seenThread map[uint64]bool) error {
	headerLen, err := readU64BE(r)
	if err != nil {
		return fmt.Errorf("receiver: reading dropped header length: %w", err)
	}

	buf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("receiver: reading dropped header: %w", err)
	}

	header, err := wire.DecodeHeader(buf)
	if err != nil {
		return fmt.Errorf("receiver: decoding dropped packet header: %w", err)
	}

	emitThreadName(trace, seenThread, header)

	// Emit no event body for a dropped packet, but surface the coverage gap
	// with a marker Range event spanning the packet's recorded time span.
	durationNs := uint32(0)
	if header.EndTimestamp > header.InitialTimestamp {
		durationNs = uint32(header.EndTimestamp - header.InitialTimestamp)
	}
	trace.AddRangeEvent("<dropped>", header.ThreadID, header.InitialTimestamp, durationNs)
	return nil
}

func emitThreadName(trace *TraceFile, seenThread map[uint64]bool, header *wire.LocalPacketHeader) {
	if seenThread[header.ThreadID] {
		return
	}
	seenThread[header.ThreadID] = true
	trace.SetThreadName(header.ThreadID, header.ThreadName)
}

func readU64BE(r io.Reader) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return mustU64BE(buf), nil
}

func mustU64BE(buf []byte) uint64 {
	v, _ := wire.GetU64BE(buf)
	return v
}
