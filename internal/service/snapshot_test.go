package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
	"github.com/syllog-ai/syllog/internal/store"
)

// mockSnapshotStore implements domain.SnapshotStore for testing.
type mockSnapshotStore struct {
	docs map[string]*domain.Document
}

func newMockSnapshotStore() *mockSnapshotStore {
	return &mockSnapshotStore{docs: make(map[string]*domain.Document)}
}

func (m *mockSnapshotStore) Save(ctx context.Context, name string, doc *domain.Document) error {
	m.docs[name] = doc
	return nil
}

func (m *mockSnapshotStore) Load(ctx context.Context, name string) (*domain.Document, error) {
	doc, ok := m.docs[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (m *mockSnapshotStore) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m.docs))
	for name := range m.docs {
		names = append(names, name)
	}
	return names, nil
}

func (m *mockSnapshotStore) Delete(ctx context.Context, name string) error {
	if _, ok := m.docs[name]; !ok {
		return store.ErrNotFound
	}
	delete(m.docs, name)
	return nil
}

func TestSnapshotService_SaveRestoreRoundTrip(t *testing.T) {
	logger := zap.NewNop()
	base := kb.New(logger)
	if err := base.AddFact("rain", true); err != nil {
		t.Fatal(err)
	}
	r := domain.MustRule([]domain.Proposition{domain.Prop("rain")}, domain.Prop("wet_ground"), 0.9)
	if err := base.AddRule(r); err != nil {
		t.Fatal(err)
	}

	mock := newMockSnapshotStore()
	svc := NewSnapshotService(base, mock, logger)

	doc, err := svc.Save(context.Background(), "nightly")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(doc.Facts) != 1 || len(doc.Rules) != 1 {
		t.Fatalf("snapshot incomplete: %+v", doc)
	}

	// Restore into an empty base and verify the content survives.
	other := kb.New(logger)
	restoreSvc := NewSnapshotService(other, mock, logger)
	if err := restoreSvc.Restore(context.Background(), "nightly"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if v, known := other.FactValue("rain"); !known || !v {
		t.Fatal("restored base missing fact")
	}
	if len(other.Rules()) != 1 {
		t.Fatal("restored base missing rule")
	}
}

func TestSnapshotService_RestoreUnknownName(t *testing.T) {
	logger := zap.NewNop()
	svc := NewSnapshotService(kb.New(logger), newMockSnapshotStore(), logger)
	if err := svc.Restore(context.Background(), "missing"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotService_NameRequired(t *testing.T) {
	logger := zap.NewNop()
	svc := NewSnapshotService(kb.New(logger), newMockSnapshotStore(), logger)
	if _, err := svc.Save(context.Background(), ""); err != ErrSnapshotNameEmpty {
		t.Fatal("expected ErrSnapshotNameEmpty")
	}
	if err := svc.Delete(context.Background(), ""); err != ErrSnapshotNameEmpty {
		t.Fatal("expected ErrSnapshotNameEmpty")
	}
}
