// Package store persists document checklists. One row per application; the
// generation coordinator is the only writer.
package store

import (
	"context"

	"visadesk/internal/checklist"
)

// Store is the checklist persistence contract.
type Store interface {
	// Get fetches the checklist for an application. Returns
	// sentinel.ErrNotFound when absent.
	Get(ctx context.Context, applicationID string) (*checklist.DocumentChecklist, error)

	// Put upserts the whole record. The coordinator calls this exactly once
	// per generation attempt, never incrementally.
	Put(ctx context.Context, record *checklist.DocumentChecklist) error

	// Update replaces the record only if it still exists, atomically.
	// Returns sentinel.ErrNotFound when it does not, so a result for an
	// application deleted mid-generation is discarded instead of
	// resurrecting the row.
	Update(ctx context.Context, record *checklist.DocumentChecklist) error

	// Delete removes the record; used when the owning application is
	// deleted. Deleting an absent record is not an error.
	Delete(ctx context.Context, applicationID string) error
}
