package reason

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const DefaultMaxModelSize = 20

// ModelChecker proves a goal by enumerating truth assignments over the
// propositions relevant to it, keeping only assignments consistent with all
// known facts and rules, and declaring the goal proved only if it holds in
// every valid model. Partial assignments that already break a rule are
// pruned during backtracking, and their fingerprints are cached so symmetric
// branches are skipped.
type ModelChecker struct {
	logger *zap.Logger

	MaxModelSize int
	// RecordModels keeps the valid models in the trace for explanation.
	RecordModels bool
}

func NewModelChecker(logger *zap.Logger) *ModelChecker {
	return &ModelChecker{logger: logger, MaxModelSize: DefaultMaxModelSize, RecordModels: true}
}

func (m *ModelChecker) Kind() Kind { return KindModelChecking }

func (m *ModelChecker) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	if goal == nil {
		return nil, domain.ErrMissingGoal
	}
	vars := m.relevantProps(base, goal.Name)
	if len(vars) > m.MaxModelSize {
		return nil, &domain.LimitError{Kind: domain.LimitModelSize, Limit: m.MaxModelSize}
	}

	result := &Result{Kind: m.Kind()}
	facts := base.Facts()
	rules := base.Rules()
	contradictions := make(map[string]struct{})

	var models []map[string]bool
	var enumerate func(idx int, assignment map[string]bool) error
	enumerate = func(idx int, assignment map[string]bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !m.consistent(assignment, facts, rules) {
			contradictions[fingerprint(assignment)] = struct{}{}
			return nil
		}
		if idx == len(vars) {
			model := make(map[string]bool, len(assignment))
			for k, v := range assignment {
				model[k] = v
			}
			models = append(models, model)
			return nil
		}
		name := vars[idx]
		for _, value := range []bool{true, false} {
			assignment[name] = value
			if _, pruned := contradictions[fingerprint(assignment)]; !pruned {
				if err := enumerate(idx+1, assignment); err != nil {
					return err
				}
			}
			delete(assignment, name)
		}
		return nil
	}
	if err := enumerate(0, make(map[string]bool, len(vars))); err != nil {
		return nil, err
	}

	if m.RecordModels {
		result.Trace.Models = models
	}
	if len(models) == 0 {
		// A contradictory base proves nothing.
		result.Proved = false
		return result, nil
	}
	result.Proved = true
	for _, model := range models {
		if !model[goal.Name] {
			result.Proved = false
			break
		}
	}
	m.logger.Debug("model check complete",
		zap.String("goal", goal.Name),
		zap.Int("variables", len(vars)),
		zap.Int("models", len(models)),
		zap.Bool("proved", result.Proved))
	return result, nil
}

// consistent rejects a (possibly partial) assignment that contradicts a
// fixed fact or falsifies a fully assigned rule (¬premises ∨ conclusion).
func (m *ModelChecker) consistent(assignment map[string]bool, facts map[string]bool, rules []*domain.Rule) bool {
	for name, v := range assignment {
		if fixed, known := facts[name]; known && fixed != v {
			return false
		}
	}
	for _, r := range rules {
		violated := true
		for _, p := range r.Premises {
			v, assigned := assignment[p.Name]
			if !assigned || v != (p.Value != domain.TruthFalse) {
				violated = false
				break
			}
		}
		if !violated {
			continue
		}
		want := r.Conclusion.Value != domain.TruthFalse
		if v, assigned := assignment[r.Conclusion.Name]; assigned && v != want {
			return false
		}
	}
	return true
}

// relevantProps collects every proposition appearing in facts or in rules
// transitively connected to the goal.
func (m *ModelChecker) relevantProps(base *kb.KnowledgeBase, goal string) []string {
	relevant := map[string]struct{}{goal: {}}
	rules := base.Rules()
	for changed := true; changed; {
		changed = false
		for _, r := range rules {
			touches := false
			if _, ok := relevant[r.Conclusion.Name]; ok {
				touches = true
			}
			for _, p := range r.Premises {
				if _, ok := relevant[p.Name]; ok {
					touches = true
				}
			}
			if !touches {
				continue
			}
			if _, ok := relevant[r.Conclusion.Name]; !ok {
				relevant[r.Conclusion.Name] = struct{}{}
				changed = true
			}
			for _, p := range r.Premises {
				if _, ok := relevant[p.Name]; !ok {
					relevant[p.Name] = struct{}{}
					changed = true
				}
			}
		}
	}
	for name := range base.Facts() {
		relevant[name] = struct{}{}
	}
	out := make([]string, 0, len(relevant))
	for name := range relevant {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// fingerprint canonicalizes a partial assignment for the contradiction cache.
func fingerprint(assignment map[string]bool) string {
	keys := make([]string, 0, len(assignment))
	for k := range assignment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%t;", k, assignment[k])
	}
	return b.String()
}
