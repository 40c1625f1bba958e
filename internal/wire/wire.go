// wire.go: shared binary codec for packet headers and stream frames
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package wire defines the one binary contract that the producer side (the
// global staging store) and the receiver agree on: how a LocalPacketHeader
// is serialised, and how frames are tagged on the TCP stream. Keeping both
// ends against a single codec removes the "equivalent serialisation" hand-wave
// and guarantees producer and receiver never drift apart.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame tags, as placed on the wire ahead of a frame's length-prefixed body.
const (
	TagBatch   byte = 0x01 // payload batch: u64be total_len, then total_len bytes
	TagDropped byte = 0x02 // dropped packet notice: u64be header_len, then header
)

// EventKind distinguishes a Range (duration) record from a Point (instant) one.
type EventKind uint8

const (
	KindRange EventKind = 0
	KindPoint EventKind = 1
)

func (k EventKind) String() string {
	if k == KindPoint {
		return "Point"
	}
	return "Range"
}

// EventDescriptor is one entry of a packet's id-store: the human name and
// kind bound to a small integer event id for the lifetime of that packet.
type EventDescriptor struct {
	Name string
	Kind EventKind
}

// IDStore maps a packet-local event id to its descriptor.
type IDStore map[uint8]EventDescriptor

// LocalPacketHeader is the metadata that precedes one thread's drained event
// body: its identity, the time span it covers, the id-store needed to walk
// its body, and the body's length.
type LocalPacketHeader struct {
	ThreadName       string
	ThreadID         uint64
	InitialTimestamp uint64
	EndTimestamp     uint64
	IDStore          IDStore
	BufLength        uint64
}

// errTruncated is returned when a buffer ends before a length-prefixed field
// it promised to hold. It never escapes a well-formed stream; it marks a
// protocol/data corruption bug in the caller.
var errTruncated = errors.New("wire: truncated header")

// EncodeHeader serialises h using a stable, deterministic, little-endian
// layout:
//
//	u16le name_len, name_len bytes      (ThreadName, UTF-8)
//	u64le ThreadID
//	u64le InitialTimestamp
//	u64le EndTimestamp
//	u32le id_store_count
//	  for each entry, ascending by event id:
//	    u8    event_id
//	    u8    kind           (0 = Range, 1 = Point)
//	    u16le name_len, name_len bytes (event name, UTF-8)
//	u64le BufLength
func EncodeHeader(h *LocalPacketHeader) []byte {
	size := 2 + len(h.ThreadName) + 8 + 8 + 8 + 4 + 8
	ids := sortedIDs(h.IDStore)
	for _, id := range ids {
		size += 1 + 1 + 2 + len(h.IDStore[id].Name)
	}

	buf := make([]byte, size)
	off := 0

	off += putString(buf[off:], h.ThreadName)
	binary.LittleEndian.PutUint64(buf[off:], h.ThreadID)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.InitialTimestamp)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.EndTimestamp)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(ids)))
	off += 4
	for _, id := range ids {
		desc := h.IDStore[id]
		buf[off] = id
		off++
		buf[off] = byte(desc.Kind)
		off++
		off += putString(buf[off:], desc.Name)
	}
	binary.LittleEndian.PutUint64(buf[off:], h.BufLength)
	off += 8

	return buf[:off]
}

// DecodeHeader is the inverse of EncodeHeader.
func DecodeHeader(buf []byte) (*LocalPacketHeader, error) {
	h := &LocalPacketHeader{}
	off := 0

	name, n, err := getString(buf[off:])
	if err != nil {
		return nil, err
	}
	h.ThreadName = name
	off += n

	if len(buf[off:]) < 8+8+8+4 {
		return nil, errTruncated
	}
	h.ThreadID = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.InitialTimestamp = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.EndTimestamp = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	count := binary.LittleEndian.Uint32(buf[off:])
	off += 4

	store := make(IDStore, count)
	for i := uint32(0); i < count; i++ {
		if len(buf[off:]) < 2 {
			return nil, errTruncated
		}
		id := buf[off]
		off++
		kind := EventKind(buf[off])
		off++
		evName, n, err := getString(buf[off:])
		if err != nil {
			return nil, err
		}
		off += n
		store[id] = EventDescriptor{Name: evName, Kind: kind}
	}
	h.IDStore = store

	if len(buf[off:]) < 8 {
		return nil, errTruncated
	}
	h.BufLength = binary.LittleEndian.Uint64(buf[off:])
	off += 8

	return h, nil
}

func putString(dst []byte, s string) int {
	binary.LittleEndian.PutUint16(dst, uint16(len(s)))
	copy(dst[2:], s)
	return 2 + len(s)
}

func getString(src []byte) (string, int, error) {
	if len(src) < 2 {
		return "", 0, errTruncated
	}
	n := int(binary.LittleEndian.Uint16(src))
	if len(src[2:]) < n {
		return "", 0, errTruncated
	}
	return string(src[2 : 2+n]), 2 + n, nil
}

func sortedIDs(store IDStore) []uint8 {
	ids := make([]uint8, 0, len(store))
	for id := range store {
		ids = append(ids, id)
	}
	// insertion sort: id-store entries are always small (≤255 events per packet)
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// PutU64BE appends n as a big-endian u64 to dst. Length prefixes on the
// wire are always big-endian; numeric fields inside an encoded header are
// little-endian.
func PutU64BE(dst []byte, n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return append(dst, b[:]...)
}

// GetU64BE reads a big-endian u64 from the front of src.
func GetU64BE(src []byte) (uint64, error) {
	if len(src) < 8 {
		return 0, fmt.Errorf("wire: short read for u64be (%d bytes)", len(src))
	}
	return binary.BigEndian.Uint64(src), nil
}
