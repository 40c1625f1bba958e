// perfetto.go: JSON trace-event output format
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package receiver implements the wire-reading state machine and JSON
// conversion for pulse's receiver process.
package receiver

// TraceFile is the output document: a flat array of untagged events plus a
// tid → name lookup, consumable by Chrome's about:tracing and Perfetto.
type TraceFile struct {
	TraceEvents []interface{}      `json:"traceEvents"`
	ThreadNames map[uint64]string `json:"threadNames"`
}

// NewTraceFile returns an empty TraceFile ready to accumulate events.
func NewTraceFile() *TraceFile {
	return &TraceFile{
		TraceEvents: make([]interface{}, 0, 256),
		ThreadNames: make(map[uint64]string),
	}
}

// RangeEvent is a timestamped interval with duration.
type RangeEvent struct {
	Name string  `json:"name"`
	Cat  string  `json:"cat"`
	Ph   string  `json:"ph"`
	Ts   float64 `json:"ts"`
	Dur  float64 `json:"dur"`
	Tid  uint64  `json:"tid"`
}

// PointEvent is an instantaneous timestamped marker.
type PointEvent struct {
	Name string  `json:"name"`
	Cat  string  `json:"cat"`
	Ph   string  `json:"ph"`
	Ts   float64 `json:"ts"`
	Tid  uint64  `json:"tid"`
}

// ThreadNameMeta is the once-per-thread metadata record binding a tid to a
// human name.
type ThreadNameMeta struct {
	Name string            `json:"name"`
	Ph   string            `json:"ph"`
	Tid  uint64            `json:"tid"`
	Args map[string]string `json:"args"`
}

// nsToUs converts nanoseconds to fractional microseconds, the unit the
// viewer format expects.
func nsToUs(ns uint64) float64 {
	return float64(ns) / 1000.0
}

// AddRangeEvent appends a Range event. The "tid" channel is indexed by
// event id, not by thread id, this is the viewer-grouping convention the
// trace format uses.
func (t *TraceFile) AddRangeEvent(name string, eventID uint64, timestampNs uint64, durationNs uint32) {
	t.TraceEvents = append(t.TraceEvents, RangeEvent{
		Name: name,
		Cat:  "Range",
		Ph:   "X",
		Ts:   nsToUs(timestampNs),
		Dur:  nsToUs(uint64(durationNs)),
		Tid:  eventID,
	})
}

// AddPointEvent appends a Point event.
func (t *TraceFile) AddPointEvent(name string, eventID uint64, timestampNs uint64) {
	t.TraceEvents = append(t.TraceEvents, PointEvent{
		Name: name,
		Cat:  "Point",
		Ph:   "i",
		Ts:   nsToUs(timestampNs),
		Tid:  eventID,
	})
}

// SetThreadName records the once-per-thread metadata event and the
// threadNames lookup entry, keyed by thread id. Range/Point events use the
// event id as their "tid" channel (the viewer-lane convention); the
// thread-name record itself is keyed by the thread's own id so exactly one
// is emitted per thread regardless of how many event ids that thread used
// (see DESIGN.md for the reasoning behind this choice). Safe to call more
// than once for the same tid; a repeat just emits a second record.
func (t *TraceFile) SetThreadName(tid uint64, name string) {
	t.TraceEvents = append(t.TraceEvents, ThreadNameMeta{
		Name: "thread_name",
		Ph:   "M",
		Tid:  tid,
		Args: map[string]string{"name": name},
	})
	t.ThreadNames[tid] = name
}
