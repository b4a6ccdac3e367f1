package domain

import (
	"context"

	"github.com/google/uuid"
)

// SnapshotStore persists knowledge base documents by name.
type SnapshotStore interface {
	Save(ctx context.Context, name string, doc *Document) error
	Load(ctx context.Context, name string) (*Document, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// CaseStore persists the analogical case library. FindNearest retrieves
// candidate source cases by fingerprint distance; callers still apply the
// exact attribute-overlap similarity before transfer.
type CaseStore interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	List(ctx context.Context, limit int) ([]Case, error)
	FindNearest(ctx context.Context, fingerprint []float32, k int) ([]CaseWithScore, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
