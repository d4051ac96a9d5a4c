// Package plan implements the BuildSet dependency planner: a pure function
// turning a builder -> prerequisites mapping into an ordered sequence of
// cohorts, generalizing the cycle-breaking graph code in distri's
// internal/batch (which builds a gonum directed graph of packages and runs
// topo.Sort over it) into cycle *reporting* rather than cycle breaking.
package plan

import (
	"sort"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Cohort is a maximal set of builders that may run concurrently: a builder
// appears in cohort k only after every one of its prerequisites appears in
// some cohort < k. A Cohort of length 1 is a singleton; of length >1, a
// parallel cohort. Ordering within a cohort carries no meaning.
type Cohort []string

// Parallel reports whether the cohort has more than one member.
func (c Cohort) Parallel() bool { return len(c) > 1 }

type namedNode struct {
	id   int64
	name string
}

func (n *namedNode) ID() int64 { return n.id }

// graphOf builds a directed graph with one node per distinct key of dep, and
// an edge builder -> prerequisite for every (builder, prerequisite) pair
// whose prerequisite is itself a key of dep. A prerequisite that is never a
// key of dep is, by this package's decision on the source's missing-keys
// ambiguity, treated as already satisfied: it gets no node and can never
// block a cohort.
func graphOf(dep map[string][]string) (*simple.DirectedGraph, map[string]*namedNode) {
	g := simple.NewDirectedGraph()
	nodes := make(map[string]*namedNode, len(dep))
	var nextID int64
	nodeFor := func(name string) *namedNode {
		n, ok := nodes[name]
		if !ok {
			n = &namedNode{id: nextID, name: name}
			nextID++
			nodes[name] = n
			g.AddNode(n)
		}
		return n
	}
	for b := range dep {
		nodeFor(b)
	}
	for b, prereqs := range dep {
		from := nodes[b]
		for _, p := range prereqs {
			if _, isKey := dep[p]; !isKey {
				continue
			}
			g.SetEdge(g.NewEdge(from, nodeFor(p)))
		}
	}
	return g, nodes
}

// Plan partitions dep into an ordered sequence of cohorts such that a
// builder appears in cohort k only after all of its prerequisites appear in
// cohorts < k. Plan is pure: it never submits anything and never mutates
// dep.
func Plan(dep map[string][]string) ([]Cohort, error) {
	g, nodes := graphOf(dep)

	if _, err := topo.Sort(g); err != nil {
		uo, ok := err.(topo.Unorderable)
		if !ok {
			return nil, xerrors.Errorf("plan: %w", err)
		}
		var names []string
		for _, component := range uo {
			for _, n := range component {
				names = append(names, n.(*namedNode).name)
			}
		}
		sort.Strings(names)
		return nil, &CyclicDependencyError{Pending: names}
	}

	pending := make(map[string]bool, len(dep))
	for b := range dep {
		pending[b] = true
	}
	done := make(map[string]bool, len(dep))

	var result []Cohort
	for len(pending) > 0 {
		var ready []string
		for b := range pending {
			n := nodes[b]
			satisfied := true
			for from := g.From(n.ID()); from.Next(); {
				dep := from.Node().(*namedNode)
				if !done[dep.name] {
					satisfied = false
					break
				}
			}
			if satisfied {
				ready = append(ready, b)
			}
		}
		if len(ready) == 0 {
			remaining := make([]string, 0, len(pending))
			for b := range pending {
				remaining = append(remaining, b)
			}
			sort.Strings(remaining)
			return nil, &CyclicDependencyError{Pending: remaining}
		}
		sort.Strings(ready) // deterministic; cohort-internal order is unspecified by spec
		cohort := make(Cohort, len(ready))
		copy(cohort, ready)
		result = append(result, cohort)
		for _, b := range ready {
			delete(pending, b)
			done[b] = true
		}
	}
	return result, nil
}

// Ancestors returns the transitive prerequisite closure of item, in
// topological order (prerequisites before dependents). When includeSelf is
// true the order ends with item; otherwise item is excluded.
func Ancestors(item string, dep map[string][]string, includeSelf bool) ([]string, error) {
	if _, ok := dep[item]; !ok {
		return nil, &UnknownBuilderError{Builder: item}
	}
	g, nodes := graphOf(dep)

	var order []string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		onStack[name] = true
		n := nodes[name]
		for from := g.From(n.ID()); from.Next(); {
			dn := from.Node().(*namedNode)
			if onStack[dn.name] {
				return &CyclicDependencyError{From: name, To: dn.name}
			}
			if !visited[dn.name] {
				if err := visit(dn.name); err != nil {
					return err
				}
			}
		}
		onStack[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	if err := visit(item); err != nil {
		return nil, err
	}
	if !includeSelf {
		order = order[:len(order)-1]
	}
	return order, nil
}
