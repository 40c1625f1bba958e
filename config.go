// config.go: pulse configuration
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

import (
	"time"

	"github.com/agilira/pulse/internal/sizeutil"
)

// Config configures the process-wide trace store. Every zero or empty field
// falls back to its default, so a partially filled Config is usable;
// NewConfigWithDefaults spells the defaults out explicitly.
type Config struct {
	// ListenAddr is the receiver endpoint the sender loop dials. Defaults to
	// "127.0.0.1:4302".
	ListenAddr string

	// GlobalCapacityStr overrides the GSS ring size, e.g. "500MB". Empty
	// keeps the default of 500,000,000 bytes.
	GlobalCapacityStr string

	// CleanupBottomStr overrides CLEANUP_BOTTOM_THRESHOLD, e.g. "350MB".
	CleanupBottomStr string

	// FlushThresholdStr overrides FLUSH_THRESHOLD, e.g. "5MB".
	FlushThresholdStr string

	// SenderTick overrides the sender loop's poll interval. Defaults to
	// 100ms.
	SenderTick time.Duration

	// SenderTickStr is a string-based alternative to SenderTick, e.g. "100ms",
	// parsed through sizeutil.ParseDuration. Takes precedence over SenderTick
	// when non-empty.
	SenderTickStr string

	// HarvestTick overrides how often the harvester drains per-thread ring
	// buffers into the GSS. Defaults to 10ms.
	HarvestTick time.Duration

	// HarvestTickStr is a string-based alternative to HarvestTick, parsed
	// through sizeutil.ParseDuration. Takes precedence over HarvestTick when
	// non-empty.
	HarvestTickStr string

	// OnDrop is called synchronously from whichever goroutine triggered a
	// GSS drop pass, with the number of bytes freed and packets skipped.
	// May be nil.
	OnDrop func(droppedBytes, skippedPackets int)

	// OnSenderError is called when the sender's TCP connection fails or a
	// write error terminates the sender goroutine. This never blocks or
	// notifies producers; it exists purely for observability. May be nil.
	OnSenderError func(error)
}

// NewConfigWithDefaults returns a Config with every field at its production
// default: 100ms sender tick, 127.0.0.1:4302, and the 500MB/450MB/350MB/5MB
// GSS thresholds.
func NewConfigWithDefaults() Config {
	return Config{
		ListenAddr:  "127.0.0.1:4302",
		SenderTick:  100 * time.Millisecond,
		HarvestTick: 10 * time.Millisecond,
	}
}

func (c Config) listenAddr() string {
	if c.ListenAddr == "" {
		return "127.0.0.1:4302"
	}
	return c.ListenAddr
}

func (c Config) senderTick() time.Duration {
	if c.SenderTickStr != "" {
		if d, err := sizeutil.ParseDuration(c.SenderTickStr); err == nil && d > 0 {
			return d
		}
	}
	if c.SenderTick <= 0 {
		return 100 * time.Millisecond
	}
	return c.SenderTick
}

func (c Config) harvestTick() time.Duration {
	if c.HarvestTickStr != "" {
		if d, err := sizeutil.ParseDuration(c.HarvestTickStr); err == nil && d > 0 {
			return d
		}
	}
	if c.HarvestTick <= 0 {
		return 10 * time.Millisecond
	}
	return c.HarvestTick
}

func (c Config) globalCapacity() int {
	if c.GlobalCapacityStr == "" {
		return defaultGlobalCapacity
	}
	n, err := sizeutil.ParseSize(c.GlobalCapacityStr)
	if err != nil || n <= 0 {
		return defaultGlobalCapacity
	}
	return int(n)
}

func (c Config) cleanupBottom() int {
	if c.CleanupBottomStr == "" {
		return defaultCleanupBottom
	}
	n, err := sizeutil.ParseSize(c.CleanupBottomStr)
	if err != nil || n <= 0 {
		return defaultCleanupBottom
	}
	return int(n)
}

func (c Config) flushThreshold() int {
	if c.FlushThresholdStr == "" {
		return defaultFlushThreshold
	}
	n, err := sizeutil.ParseSize(c.FlushThresholdStr)
	if err != nil || n <= 0 {
		return defaultFlushThreshold
	}
	return int(n)
}
