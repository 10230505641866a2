package stratigraphie

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrIntegrity    = errors.New("stratigraphie: relation set is inconsistent")
	ErrDiffRejected = errors.New("stratigraphie: diff rejected, graph rolled back")
)

// IntegrityError names the first relation that could not join a graph
// that was expected to be consistent.
type IntegrityError struct {
	RelationID string
	Reason     Reason
	Cause      error // ErrIntegrity or ErrDiffRejected
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: relation %q: %s", e.Cause, e.RelationID, e.Reason)
}

func (e *IntegrityError) Unwrap() error { return e.Cause }

// Store defines the contract for persisting the caller snapshot a graph is
// rebuilt from on every cold start.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Snapshots (replace semantics)
	SaveSnapshot(ctx context.Context, siteID string, snap *Snapshot) error
	LoadSnapshot(ctx context.Context, siteID string) (*Snapshot, error)
	DeleteSnapshot(ctx context.Context, siteID string) error
}
