package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Now reads c in UTC, truncated to millisecond precision so the value
// survives a BSON round trip unchanged.
func Now(c clockwork.Clock) time.Time {
	return c.Now().UTC().Truncate(time.Millisecond)
}
