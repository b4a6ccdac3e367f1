package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
	"github.com/syllog-ai/syllog/internal/reason"
)

var (
	ErrFactNameEmpty   = errors.New("fact name is required")
	ErrRuleEmpty       = errors.New("rule is required")
	ErrStrategyMissing = errors.New("strategy is required")
	ErrGoalNameEmpty   = errors.New("goal name is required")
)

const (
	// DefaultReasonTimeout bounds a single strategy run.
	DefaultReasonTimeout = 30 * time.Second
)

// EngineService fronts the knowledge base and the strategy registry for the
// collaborator surface: validation, timeouts and logging live here so the
// handlers stay thin.
type EngineService struct {
	base     *kb.KnowledgeBase
	registry *reason.Registry
	logger   *zap.Logger

	ReasonTimeout time.Duration

	mu           sync.Mutex
	applications map[string]int64
}

func NewEngineService(base *kb.KnowledgeBase, registry *reason.Registry, logger *zap.Logger) *EngineService {
	return &EngineService{
		base:          base,
		registry:      registry,
		logger:        logger,
		ReasonTimeout: DefaultReasonTimeout,
		applications:  make(map[string]int64),
	}
}

func (s *EngineService) Base() *kb.KnowledgeBase { return s.base }

func (s *EngineService) AddFact(name string, value bool) error {
	if name == "" {
		return ErrFactNameEmpty
	}
	return s.base.AddFact(name, value)
}

func (s *EngineService) RetractFact(name string) error {
	if name == "" {
		return ErrFactNameEmpty
	}
	s.base.RetractFact(name)
	return nil
}

// AddRule parses and commits a rule in its canonical rendered form.
func (s *EngineService) AddRule(rendered string, exceptions []string, priority int, bidirectional bool) (*domain.Rule, error) {
	if rendered == "" {
		return nil, ErrRuleEmpty
	}
	r, err := domain.ParseRule(rendered)
	if err != nil {
		return nil, err
	}
	if len(exceptions) > 0 {
		r.Exceptions = exceptions
	}
	r.Priority = priority
	r.Bidirectional = bidirectional
	if err := s.base.AddRule(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *EngineService) AddProbabilisticFact(name string, probability float64) error {
	if name == "" {
		return ErrFactNameEmpty
	}
	f, err := domain.NewProbabilisticFact(domain.Prop(name), probability)
	if err != nil {
		return err
	}
	return s.base.AddProbabilisticFact(f)
}

func (s *EngineService) AddTemporalFact(name string, value bool, at time.Time) error {
	if name == "" {
		return ErrFactNameEmpty
	}
	return s.base.AddTemporalFact(name, value, at)
}

func (s *EngineService) AddContextFact(context, name string, value bool) error {
	if name == "" {
		return ErrFactNameEmpty
	}
	return s.base.AddContextFact(context, name, value)
}

func (s *EngineService) AddExample(e domain.Example) {
	s.base.AddExample(e)
}

// QueryResult is the resolved truth of a proposition.
type QueryResult struct {
	Name       string            `json:"name"`
	Value      domain.TruthValue `json:"value"`
	Confidence float64           `json:"confidence"`
}

func (s *EngineService) Query(name string, opts kb.QueryOpts) (*QueryResult, error) {
	if name == "" {
		return nil, ErrFactNameEmpty
	}
	value, confidence := s.base.QueryWith(name, opts)
	return &QueryResult{Name: name, Value: value, Confidence: confidence}, nil
}

// Reason runs the named strategy against the base under the service timeout.
func (s *EngineService) Reason(ctx context.Context, strategy string, goal *domain.Proposition) (*reason.Result, error) {
	if strategy == "" {
		return nil, ErrStrategyMissing
	}
	st, err := s.registry.Get(strategy)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.ReasonTimeout)
	defer cancel()

	started := time.Now()
	result, err := st.Reason(ctx, s.base, goal)
	if err != nil {
		s.logger.Warn("reasoning failed",
			zap.String("strategy", strategy),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return nil, err
	}
	s.mu.Lock()
	s.applications[strategy]++
	s.mu.Unlock()

	s.logger.Info("reasoning complete",
		zap.String("strategy", strategy),
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("proved", result.Proved))
	return result, nil
}

// StrategyApplications reports how many times each strategy has completed.
func (s *EngineService) StrategyApplications() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.applications))
	for k, v := range s.applications {
		out[k] = v
	}
	return out
}

func (s *EngineService) Strategies() []string {
	return s.registry.Kinds()
}

func (s *EngineService) Statistics() domain.Statistics {
	stats := s.base.Statistics()
	stats.StrategyApplications = s.StrategyApplications()
	return stats
}
