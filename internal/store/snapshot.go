package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syllog-ai/syllog/internal/domain"
)

type SnapshotStore struct {
	db *pgxpool.Pool
}

func NewSnapshotStore(db *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save upserts the document under name. The document is stored whole as
// jsonb so a snapshot round-trips byte-for-byte through Load.
func (s *SnapshotStore) Save(ctx context.Context, name string, doc *domain.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot %q: %w", name, err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO kb_snapshots (name, document)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE
		 SET document = EXCLUDED.document, updated_at = NOW()`,
		name, payload,
	)
	return err
}

func (s *SnapshotStore) Load(ctx context.Context, name string) (*domain.Document, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT document FROM kb_snapshots WHERE name = $1`,
		name,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	doc := &domain.Document{}
	if err := json.Unmarshal(payload, doc); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %q: %w", name, err)
	}
	return doc, nil
}

func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name FROM kb_snapshots ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SnapshotStore) Delete(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM kb_snapshots WHERE name = $1`,
		name,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
