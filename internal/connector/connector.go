package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fathomcrm/fathom-backend/internal/types"
)

// ErrNotConnected means the user has no usable authorization for the
// provider. It is never retried; the caller must tell the user to
// (re)connect rather than try again later.
var ErrNotConnected = errors.New("provider not connected")

// ErrFetchFailed marks a provider-side fetch failure after retries were
// exhausted. Callers can map it without knowing provider specifics; unlike
// ErrNotConnected the right user action is to try again later, not
// reconnect.
var ErrFetchFailed = errors.New("provider fetch failed")

// FetchFailed tags err with ErrFetchFailed, once.
func FetchFailed(err error) error {
	if err == nil || errors.Is(err, ErrFetchFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetchFailed, err)
}

// Event is one provider-native artifact, untouched beyond transport decode.
type Event struct {
	SourceID   string
	OccurredAt time.Time
	Payload    map[string]any
	Meta       map[string]any
}

// Page is one fetch result. An empty NextCursor means the window is drained.
type Page struct {
	Events     []Event
	NextCursor string
}

// Window bounds a fetch. A zero Since means unbounded below.
type Window struct {
	Since time.Time
	Until time.Time
}

// Connector fetches provider events for a connected user, one page at a
// time. Implementations live at the edge of the system; the ingestion
// service only ever sees this contract.
type Connector interface {
	Provider() string
	FetchPage(ctx context.Context, conn *types.UserConnection, window Window, cursor string) (*Page, error)
}
