package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/syllog-ai/syllog/internal/domain"
)

type CaseStore struct {
	db *pgxpool.Pool
}

func NewCaseStore(db *pgxpool.Pool) *CaseStore {
	return &CaseStore{db: db}
}

func (s *CaseStore) Create(ctx context.Context, c *domain.Case) error {
	fingerprint := pgvector.NewVector(c.Fingerprint())
	return s.db.QueryRow(ctx,
		`INSERT INTO reasoning_cases (name, attributes, outcome, fingerprint)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		c.Name, c.Attributes, c.Outcome, fingerprint,
	).Scan(&c.ID, &c.CreatedAt)
}

func (s *CaseStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Case, error) {
	c := &domain.Case{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, attributes, outcome, created_at
		 FROM reasoning_cases WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Attributes, &c.Outcome, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *CaseStore) List(ctx context.Context, limit int) ([]domain.Case, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, name, attributes, outcome, created_at
		 FROM reasoning_cases
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(&c.ID, &c.Name, &c.Attributes, &c.Outcome, &c.CreatedAt); err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// FindNearest retrieves the k cases closest to the fingerprint by cosine
// distance. Scores are 1 - distance, so identical fingerprints score 1.
func (s *CaseStore) FindNearest(ctx context.Context, fingerprint []float32, k int) ([]domain.CaseWithScore, error) {
	if k <= 0 {
		k = 5
	}
	vec := pgvector.NewVector(fingerprint)
	rows, err := s.db.Query(ctx,
		`SELECT id, name, attributes, outcome, created_at,
		        1 - (fingerprint <=> $1) AS score
		 FROM reasoning_cases
		 ORDER BY fingerprint <=> $1
		 LIMIT $2`,
		vec, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []domain.CaseWithScore
	for rows.Next() {
		var c domain.CaseWithScore
		if err := rows.Scan(&c.ID, &c.Name, &c.Attributes, &c.Outcome, &c.CreatedAt, &c.Score); err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (s *CaseStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM reasoning_cases WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
