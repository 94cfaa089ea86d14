package storage

import "context"

// ResultStore abstracts persistence of finished games. Implementations can be
// swapped for testing or for a different backend.
type ResultStore interface {
	RecordResult(ctx context.Context, r Result) error
	Recent(ctx context.Context, limit int) ([]Result, error)
	Close()
}

// Ensure *Store implements ResultStore at compile time.
var _ ResultStore = (*Store)(nil)
