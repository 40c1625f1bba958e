// errors.go: sentinel errors
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package pulse

import "errors"

// errAlreadyFinalized names the already-finalized condition. It is
// package-private and never returned: a second Finalize call is a silent
// no-op rather than an error to the caller.
var errAlreadyFinalized = errors.New("pulse: store already finalized")
