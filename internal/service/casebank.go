package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
	"github.com/syllog-ai/syllog/internal/store"
)

var (
	ErrCaseNameEmpty      = errors.New("case name is required")
	ErrCaseAttributesNone = errors.New("case attributes are required")
	ErrCaseStoreMissing   = errors.New("case retrieval requires a database")
)

const (
	// DefaultNearestK is how many stored cases a retrieval considers.
	DefaultNearestK = 5
	// DefaultCasePreload caps how many cases load into a fresh base.
	DefaultCasePreload = 500
)

// CaseService manages the analogical case library: durable storage plus the
// in-memory copy the analogical strategy reads.
type CaseService struct {
	base   *kb.KnowledgeBase
	store  domain.CaseStore
	logger *zap.Logger
}

func NewCaseService(base *kb.KnowledgeBase, store domain.CaseStore, logger *zap.Logger) *CaseService {
	return &CaseService{base: base, store: store, logger: logger}
}

// Create validates and stores a case, then mirrors it into the base.
func (s *CaseService) Create(ctx context.Context, name string, attributes map[string]any, outcome string) (*domain.Case, error) {
	if name == "" {
		return nil, ErrCaseNameEmpty
	}
	if len(attributes) == 0 {
		return nil, ErrCaseAttributesNone
	}
	c, err := domain.NewCase(name, attributes)
	if err != nil {
		return nil, err
	}
	c.Outcome = outcome
	if s.store != nil {
		if err := s.store.Create(ctx, c); err != nil {
			return nil, err
		}
	}
	s.base.AddCase(c)
	s.logger.Debug("case created", zap.String("name", name))
	return c, nil
}

func (s *CaseService) Get(ctx context.Context, id uuid.UUID) (*domain.Case, error) {
	if s.store == nil {
		for _, c := range s.base.Cases() {
			if c.ID == id {
				return c, nil
			}
		}
		return nil, store.ErrNotFound
	}
	return s.store.GetByID(ctx, id)
}

// Nearest retrieves the k stored cases closest to the attribute map by
// fingerprint distance.
func (s *CaseService) Nearest(ctx context.Context, attributes map[string]any, k int) ([]domain.CaseWithScore, error) {
	if len(attributes) == 0 {
		return nil, ErrCaseAttributesNone
	}
	if k <= 0 {
		k = DefaultNearestK
	}
	if s.store == nil {
		return nil, ErrCaseStoreMissing
	}
	return s.store.FindNearest(ctx, domain.AttributeFingerprint(attributes), k)
}

// Preload mirrors the stored case library into the base, typically at boot.
func (s *CaseService) Preload(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	cases, err := s.store.List(ctx, DefaultCasePreload)
	if err != nil {
		return 0, err
	}
	for i := range cases {
		c := cases[i]
		s.base.AddCase(&c)
	}
	s.logger.Info("case library preloaded", zap.Int("cases", len(cases)))
	return len(cases), nil
}

func (s *CaseService) Delete(ctx context.Context, id uuid.UUID) error {
	if s.store == nil {
		return nil
	}
	return s.store.Delete(ctx, id)
}
