// testhooks_test.go: process-wide singleton reset for test isolation
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

// resetGlobalForTest tears down any previously initialised process-wide
// store (finalizing it first so its goroutines exit cleanly) and clears the
// singleton, so each test that calls Init/Open gets its own isolated store.
func resetGlobalForTest() {
	Finalize()
	globalMu.Lock()
	global = nil
	globalClock = nil
	globalMu.Unlock()
}
