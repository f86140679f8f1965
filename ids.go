package governance

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Clock returns the current time. Tests swap it for a fixed or stepping clock.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// newOrderRef returns a lexicographically sortable reference for a signature session.
func newOrderRef(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

func newID() string {
	return uuid.NewString()
}
