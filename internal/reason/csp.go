package reason

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
)

const DefaultMaxBacktracks = 1000

// Variable ordering heuristics.
type VarOrder string

const (
	OrderMRV       VarOrder = "mrv"        // minimum remaining values
	OrderMaxDegree VarOrder = "max_degree" // most constraints first
)

// Value ordering heuristics.
type ValOrder string

const (
	OrderLCV    ValOrder = "lcv" // least constraining value
	OrderRandom ValOrder = "random"
)

// ConstraintSolver treats the base as a boolean CSP: known facts become
// fixed singleton domains, every other proposition mentioned by a rule is a
// free two-valued variable, and each rule contributes the constraint
// ¬premises ∨ conclusion. Solving backtracks under a budget, with optional
// forward checking and AC-3 preprocessing.
type ConstraintSolver struct {
	logger *zap.Logger

	MaxBacktracks   int
	VarOrder        VarOrder
	ValOrder        ValOrder
	ForwardChecking bool
	UseAC3          bool
	Rand            *rand.Rand

	// solutions caches assignments by variable set, constraint count and
	// base version.
	solutions map[string]map[string]bool
}

func NewConstraintSolver(logger *zap.Logger) *ConstraintSolver {
	return &ConstraintSolver{
		logger:        logger,
		MaxBacktracks: DefaultMaxBacktracks,
		VarOrder:      OrderMRV,
		ValOrder:      OrderLCV,
		solutions:     make(map[string]map[string]bool),
	}
}

func (s *ConstraintSolver) Kind() Kind { return KindConstraintSatisfaction }

type cspProblem struct {
	vars        []string
	domains     map[string][]bool
	constraints []*domain.Rule
	neighbors   map[string][]string
	degree      map[string]int
}

func (s *ConstraintSolver) Reason(ctx context.Context, base *kb.KnowledgeBase, goal *domain.Proposition) (*Result, error) {
	problem := buildProblem(base)
	if len(problem.vars) == 0 {
		return &Result{Kind: s.Kind(), Assignment: map[string]bool{}}, nil
	}

	result := &Result{Kind: s.Kind()}
	cacheID := s.cacheID(problem, base.Version())
	if solution, ok := s.solutions[cacheID]; ok {
		result.Assignment = solution
		result.Trace.CacheHit = true
		return result, nil
	}

	if s.UseAC3 {
		if !s.ac3(problem) {
			// Arc consistency emptied a domain: no solution exists.
			return result, nil
		}
	}

	assignment := make(map[string]bool)
	for _, v := range problem.vars {
		if len(problem.domains[v]) == 1 {
			assignment[v] = problem.domains[v][0]
		}
	}
	if !s.consistentAssignment(problem, assignment) {
		// The fixed facts already violate a constraint.
		return result, nil
	}

	backtracks := 0
	solved, err := s.backtrack(ctx, problem, assignment, &backtracks)
	result.Trace.Backtracks = backtracks
	if err != nil {
		return nil, err
	}
	if !solved {
		// Unsatisfiable is an empty result, not an error.
		return result, nil
	}

	solution := make(map[string]bool, len(assignment))
	for k, v := range assignment {
		solution[k] = v
	}
	result.Assignment = solution
	s.solutions[cacheID] = solution
	s.logger.Debug("csp solved",
		zap.Int("variables", len(problem.vars)),
		zap.Int("backtracks", backtracks))
	return result, nil
}

func buildProblem(base *kb.KnowledgeBase) *cspProblem {
	p := &cspProblem{
		domains:   make(map[string][]bool),
		neighbors: make(map[string][]string),
		degree:    make(map[string]int),
	}
	add := func(name string, fixed *bool) {
		if _, ok := p.domains[name]; ok {
			return
		}
		if fixed != nil {
			p.domains[name] = []bool{*fixed}
		} else {
			p.domains[name] = []bool{true, false}
		}
		p.vars = append(p.vars, name)
	}
	for name, value := range base.Facts() {
		v := value
		add(name, &v)
	}
	for _, r := range base.Rules() {
		p.constraints = append(p.constraints, r)
		names := make([]string, 0, len(r.Premises)+1)
		for _, prem := range r.Premises {
			add(prem.Name, nil)
			names = append(names, prem.Name)
		}
		add(r.Conclusion.Name, nil)
		names = append(names, r.Conclusion.Name)
		for _, a := range names {
			p.degree[a] += len(names) - 1
			for _, b := range names {
				if a != b {
					p.neighbors[a] = append(p.neighbors[a], b)
				}
			}
		}
	}
	sort.Strings(p.vars)
	return p
}

func (s *ConstraintSolver) backtrack(ctx context.Context, p *cspProblem, assignment map[string]bool, backtracks *int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name, done := s.selectVariable(p, assignment)
	if done {
		return true, nil
	}

	for _, value := range s.orderValues(p, assignment, name) {
		assignment[name] = value
		if s.consistentAssignment(p, assignment) {
			pruned, ok := s.checkForward(p, assignment, name)
			if ok {
				solved, err := s.backtrack(ctx, p, assignment, backtracks)
				if err != nil {
					return false, err
				}
				if solved {
					return true, nil
				}
			}
			restoreDomains(p, pruned)
		}
		delete(assignment, name)
		*backtracks++
		if *backtracks > s.MaxBacktracks {
			return false, &domain.LimitError{Kind: domain.LimitBacktracks, Limit: s.MaxBacktracks}
		}
	}
	return false, nil
}

// selectVariable applies the configured ordering over unassigned variables.
func (s *ConstraintSolver) selectVariable(p *cspProblem, assignment map[string]bool) (string, bool) {
	best := ""
	for _, v := range p.vars {
		if _, assigned := assignment[v]; assigned {
			continue
		}
		if best == "" {
			best = v
			continue
		}
		switch s.VarOrder {
		case OrderMaxDegree:
			if p.degree[v] > p.degree[best] {
				best = v
			}
		default: // MRV, ties broken by degree
			dv, db := len(p.domains[v]), len(p.domains[best])
			if dv < db || (dv == db && p.degree[v] > p.degree[best]) {
				best = v
			}
		}
	}
	return best, best == ""
}

// orderValues applies LCV (value ruling out fewest neighbor options first)
// or a random shuffle.
func (s *ConstraintSolver) orderValues(p *cspProblem, assignment map[string]bool, name string) []bool {
	values := append([]bool(nil), p.domains[name]...)
	if len(values) < 2 {
		return values
	}
	if s.ValOrder == OrderRandom && s.Rand != nil {
		s.Rand.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
		return values
	}
	ruled := func(value bool) int {
		assignment[name] = value
		defer delete(assignment, name)
		count := 0
		for _, n := range p.neighbors[name] {
			if _, assigned := assignment[n]; assigned {
				continue
			}
			for _, nv := range p.domains[n] {
				assignment[n] = nv
				if !s.consistentAssignment(p, assignment) {
					count++
				}
				delete(assignment, n)
			}
		}
		return count
	}
	sort.SliceStable(values, func(i, j int) bool { return ruled(values[i]) < ruled(values[j]) })
	return values
}

// consistentAssignment checks every fully assigned constraint.
func (s *ConstraintSolver) consistentAssignment(p *cspProblem, assignment map[string]bool) bool {
	for _, r := range p.constraints {
		fired := true
		for _, prem := range r.Premises {
			v, assigned := assignment[prem.Name]
			if !assigned || v != (prem.Value != domain.TruthFalse) {
				fired = false
				break
			}
		}
		if !fired {
			continue
		}
		want := r.Conclusion.Value != domain.TruthFalse
		if v, assigned := assignment[r.Conclusion.Name]; assigned && v != want {
			return false
		}
	}
	return true
}

type domainPrune struct {
	name  string
	saved []bool
}

// checkForward prunes neighbor domains after an assignment and fails fast on
// an emptied domain. Disabled solvers return no prunes and success.
func (s *ConstraintSolver) checkForward(p *cspProblem, assignment map[string]bool, name string) ([]domainPrune, bool) {
	if !s.ForwardChecking {
		return nil, true
	}
	var prunes []domainPrune
	for _, n := range p.neighbors[name] {
		if _, assigned := assignment[n]; assigned {
			continue
		}
		var kept []bool
		for _, nv := range p.domains[n] {
			assignment[n] = nv
			if s.consistentAssignment(p, assignment) {
				kept = append(kept, nv)
			}
			delete(assignment, n)
		}
		if len(kept) < len(p.domains[n]) {
			prunes = append(prunes, domainPrune{name: n, saved: p.domains[n]})
			p.domains[n] = kept
		}
		if len(kept) == 0 {
			return prunes, false
		}
	}
	return prunes, true
}

func restoreDomains(p *cspProblem, prunes []domainPrune) {
	for i := len(prunes) - 1; i >= 0; i-- {
		p.domains[prunes[i].name] = prunes[i].saved
	}
}

// ac3 enforces arc consistency over the binary projections of the rule
// constraints. Returns false when a domain empties.
func (s *ConstraintSolver) ac3(p *cspProblem) bool {
	type arc struct{ x, y string }
	var queue []arc
	for x, ns := range p.neighbors {
		for _, y := range ns {
			queue = append(queue, arc{x, y})
		}
	}
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		if s.revise(p, a.x, a.y) {
			if len(p.domains[a.x]) == 0 {
				return false
			}
			for _, z := range p.neighbors[a.x] {
				if z != a.y {
					queue = append(queue, arc{z, a.x})
				}
			}
		}
	}
	return true
}

// revise removes values of x with no supporting value of y.
func (s *ConstraintSolver) revise(p *cspProblem, x, y string) bool {
	assignment := make(map[string]bool, 2)
	var kept []bool
	for _, xv := range p.domains[x] {
		assignment[x] = xv
		supported := false
		for _, yv := range p.domains[y] {
			assignment[y] = yv
			if s.consistentAssignment(p, assignment) {
				supported = true
			}
			delete(assignment, y)
			if supported {
				break
			}
		}
		delete(assignment, x)
		if supported {
			kept = append(kept, xv)
		}
	}
	if len(kept) != len(p.domains[x]) {
		p.domains[x] = kept
		return true
	}
	return false
}

func (s *ConstraintSolver) cacheID(p *cspProblem, version uint64) string {
	return fmt.Sprintf("%s|%d|%d", strings.Join(p.vars, ","), len(p.constraints), version)
}
