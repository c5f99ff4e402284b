// Package store reads and writes the remote journal file under optimistic
// concurrency: every write names the revision it was based on.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/TobiSchelling/stockdiary/internal/observation"
)

var (
	// ErrConflict means the file changed since the revision a write was based on.
	ErrConflict = errors.New("revision conflict: the file changed since it was read")
	// ErrNoToken means a write was attempted without credentials.
	ErrNoToken = errors.New("no access token configured")
)

// Snapshot is the journal as of one revision. An empty Revision means the
// file does not exist yet.
type Snapshot struct {
	Observations []observation.Observation
	Revision     string
}

// Store is the remote journal file.
type Store interface {
	Read(ctx context.Context) (*Snapshot, error)
	// Write replaces the file if it is still at revision and returns the new one.
	Write(ctx context.Context, obs []observation.Observation, revision string) (string, error)
}

// APIError carries a failed remote call's status and message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store request failed: HTTP %d", e.Status)
	}
	return fmt.Sprintf("store request failed: HTTP %d: %s", e.Status, e.Message)
}
