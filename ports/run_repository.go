package ports

import (
	"context"

	"gospike/domain/core"
	"gospike/domain/ue"
)

// RunRepository defines the interface for analysis run storage operations
type RunRepository interface {
	// Core CRUD operations
	Create(ctx context.Context, run *ue.Run) error
	GetByID(ctx context.Context, id core.RunID) (*ue.Run, error)
	List(ctx context.Context, limit, offset int) ([]ue.RunSummary, error)
	Delete(ctx context.Context, id core.RunID) error

	// Special queries
	GetByFingerprint(ctx context.Context, fp core.DatasetFingerprint) ([]ue.RunSummary, error)
}
