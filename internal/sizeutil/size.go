// size.go: human-friendly size/duration string parsing
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package sizeutil parses the "100MB" / "7d"-style strings pulse.Config
// accepts for its byte-threshold and interval overrides.
package sizeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseSize converts size strings like "500MB", "1GB" to bytes. Plain
// numbers are taken as bytes. Case-insensitive, supports K/M/G/T and
// KB/MB/GB/TB suffixes.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("sizeutil: empty size string")
	}

	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		return val, nil
	}

	upper := strings.ToUpper(s)

	var multiplier int64
	var numStr string
	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier, numStr = 1024, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "MB"):
		multiplier, numStr = 1024*1024, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "GB"):
		multiplier, numStr = 1024*1024*1024, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "TB"):
		multiplier, numStr = 1024*1024*1024*1024, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "K"):
		multiplier, numStr = 1024, upper[:len(upper)-1]
	case strings.HasSuffix(upper, "M"):
		multiplier, numStr = 1024*1024, upper[:len(upper)-1]
	case strings.HasSuffix(upper, "G"):
		multiplier, numStr = 1024*1024*1024, upper[:len(upper)-1]
	case strings.HasSuffix(upper, "T"):
		multiplier, numStr = 1024*1024*1024*1024, upper[:len(upper)-1]
	default:
		return 0, fmt.Errorf("sizeutil: unknown size suffix in %q (supported: KB/K, MB/M, GB/G, TB/T)", s)
	}

	val, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sizeutil: invalid size number in %q: %w", s, err)
	}

	result := val * multiplier
	if result < 0 {
		return 0, fmt.Errorf("sizeutil: size %q too large", s)
	}
	return result, nil
}

// ParseDuration converts duration strings, extending time.ParseDuration with
// a "d" (day) suffix.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("sizeutil: empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	lower := strings.ToLower(s)
	if strings.HasSuffix(lower, "d") {
		numStr := lower[:len(lower)-1]
		days, err := strconv.ParseInt(numStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("sizeutil: invalid duration %q: %w", s, err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("sizeutil: invalid duration %q", s)
}
