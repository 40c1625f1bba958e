// record.go: event body record encoding
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package wire

import "encoding/binary"

// Record sizes in bytes, including the leading event-id byte. A Point is an
// instant (timestamp only); a Range additionally carries a duration.
const (
	PointRecordSize = 1 + 8     // event_id, timestamp_ns
	RangeRecordSize = 1 + 8 + 4 // event_id, timestamp_ns, duration_ns
)

// RecordSize returns the body-record width for kind, the value the harvester
// needs before it can pop the matching number of bytes out of a thread's
// ring buffer (the "id's descriptor determines record length" contract from
// the event body encoding).
func RecordSize(kind EventKind) int {
	if kind == KindPoint {
		return PointRecordSize
	}
	return RangeRecordSize
}

// EncodePointRecord writes an event-id + timestamp record.
func EncodePointRecord(eventID uint8, timestampNs uint64) []byte {
	buf := make([]byte, PointRecordSize)
	buf[0] = eventID
	binary.LittleEndian.PutUint64(buf[1:], timestampNs)
	return buf
}

// EncodeRangeRecord writes an event-id + timestamp + duration record.
func EncodeRangeRecord(eventID uint8, timestampNs uint64, durationNs uint32) []byte {
	buf := make([]byte, RangeRecordSize)
	buf[0] = eventID
	binary.LittleEndian.PutUint64(buf[1:], timestampNs)
	binary.LittleEndian.PutUint32(buf[9:], durationNs)
	return buf
}

// DecodePointRecord reads a timestamp out of a (PointRecordSize-1)-length
// buffer. The leading event-id byte is assumed already consumed by the caller.
func DecodePointRecord(body []byte) (timestampNs uint64) {
	return binary.LittleEndian.Uint64(body)
}

// DecodeRangeRecord reads a timestamp and duration out of a
// (RangeRecordSize-1)-length buffer. The leading event-id byte is assumed
// already consumed by the caller.
func DecodeRangeRecord(body []byte) (timestampNs uint64, durationNs uint32) {
	timestampNs = binary.LittleEndian.Uint64(body)
	durationNs = binary.LittleEndian.Uint32(body[8:])
	return
}
