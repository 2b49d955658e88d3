// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package channel

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// newSessionID generates the ULID stamped on every message of one channel
// session. A reconnected host gets a fresh session id, so stale in-flight
// calls from the torn-down channel are distinguishable.
func newSessionID() string {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
