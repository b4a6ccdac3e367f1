package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

var (
	ErrSnapshotNameEmpty    = errors.New("snapshot name is required")
	ErrSnapshotStoreMissing = errors.New("snapshots require a database")
)

// SnapshotService persists and restores knowledge base documents.
type SnapshotService struct {
	base   *kb.KnowledgeBase
	store  domain.SnapshotStore
	logger *zap.Logger
}

func NewSnapshotService(base *kb.KnowledgeBase, store domain.SnapshotStore, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{base: base, store: store, logger: logger}
}

func (s *SnapshotService) Save(ctx context.Context, name string) (*domain.Document, error) {
	if name == "" {
		return nil, ErrSnapshotNameEmpty
	}
	if s.store == nil {
		return nil, ErrSnapshotStoreMissing
	}
	doc := s.base.Snapshot()
	if err := s.store.Save(ctx, name, doc); err != nil {
		return nil, err
	}
	s.logger.Info("snapshot saved",
		zap.String("name", name),
		zap.Int("facts", len(doc.Facts)),
		zap.Int("rules", len(doc.Rules)+len(doc.DefeasibleRules)))
	return doc, nil
}

// Restore loads the named snapshot and replaces the live base's contents.
func (s *SnapshotService) Restore(ctx context.Context, name string) error {
	if name == "" {
		return ErrSnapshotNameEmpty
	}
	if s.store == nil {
		return ErrSnapshotStoreMissing
	}
	doc, err := s.store.Load(ctx, name)
	if err != nil {
		return err
	}
	return s.base.Restore(doc)
}

func (s *SnapshotService) List(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, ErrSnapshotStoreMissing
	}
	return s.store.List(ctx)
}

func (s *SnapshotService) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrSnapshotNameEmpty
	}
	if s.store == nil {
		return ErrSnapshotStoreMissing
	}
	return s.store.Delete(ctx, name)
}
