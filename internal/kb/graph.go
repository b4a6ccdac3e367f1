package kb

// graph is the dependency adjacency map maintained on every rule addition:
// an edge premise → conclusion means the conclusion depends on the premise.
// It backs both cycle detection before a rule commits and transitive cache
// invalidation after a write.
type graph struct {
	out map[string]map[string]struct{}
}

func newGraph() *graph {
	return &graph{out: make(map[string]map[string]struct{})}
}

func (g *graph) addEdge(from, to string) {
	if g.out[from] == nil {
		g.out[from] = make(map[string]struct{})
	}
	g.out[from][to] = struct{}{}
}

// wouldCycle reports whether adding from → to closes a cycle, i.e. whether
// `from` is already reachable starting at `to`.
func (g *graph) wouldCycle(from, to string) bool {
	if from == to {
		return true
	}
	return g.reaches(to, from, make(map[string]struct{}))
}

func (g *graph) reaches(start, target string, visited map[string]struct{}) bool {
	if _, ok := visited[start]; ok {
		return false
	}
	visited[start] = struct{}{}
	for next := range g.out[start] {
		if next == target || g.reaches(next, target, visited) {
			return true
		}
	}
	return false
}

// dependents returns name plus everything transitively depending on it.
func (g *graph) dependents(name string) map[string]struct{} {
	result := map[string]struct{}{name: {}}
	g.collect(name, result)
	return result
}

func (g *graph) collect(name string, result map[string]struct{}) {
	for next := range g.out[name] {
		if _, seen := result[next]; seen {
			continue
		}
		result[next] = struct{}{}
		g.collect(next, result)
	}
}
