// Package monorepo implements the coordinated monorepo publish: a
// dependency graph over discovered packages and the coordinator that
// plans and executes a topologically-ordered, retry-and-failure-aware
// publish run against those packages.
package monorepo

import (
	"sort"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
)

// DiscoveredPackage is one workspace member as discovered by the (out of
// scope) workspace scanner: name, version, location, and the workspace
// package names it depends on.
type DiscoveredPackage struct {
	Name            string
	Version         string
	Path            string
	ManifestPath    string
	Ecosystem       string
	Private         bool
	WorkspaceDeps   []string
}

// Graph is a directed acyclic graph over package names, built from each
// package's WorkspaceDeps.
type Graph struct {
	nodes map[string]bool
	edges map[string][]string // name -> deps (edges point from dependent to dependency)
}

// Build constructs a Graph from packages. It does not reject cycles itself
// (see Sorted, which detects them during the topological walk) so callers
// can inspect a cyclic graph's raw edges if needed.
func Build(packages []DiscoveredPackage) *Graph {
	g := &Graph{
		nodes: make(map[string]bool, len(packages)),
		edges: make(map[string][]string, len(packages)),
	}
	for _, p := range packages {
		g.nodes[p.Name] = true
	}
	for _, p := range packages {
		var deps []string
		for _, d := range p.WorkspaceDeps {
			if g.nodes[d] {
				deps = append(deps, d)
			}
		}
		g.edges[p.Name] = deps
	}
	return g
}

// Sorted returns a deterministic topological order over the graph's nodes
// using Kahn's algorithm: among nodes with no unsatisfied dependency, the
// alphabetically smallest name is emitted next. Returns a CycleDetected
// error naming every node that never became ready if the graph has a
// cycle.
func (g *Graph) Sorted() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for name := range g.nodes {
		inDegree[name] = 0
	}
	for name, deps := range g.edges {
		inDegree[name] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Strings(ready)
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		next := dependents[name]
		sort.Strings(next)
		for _, dependent := range next {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(g.nodes) {
		remaining := make([]string, 0, len(g.nodes)-len(order))
		done := make(map[string]bool, len(order))
		for _, n := range order {
			done[n] = true
		}
		for name := range g.nodes {
			if !done[name] {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, cerrors.CycleDetectedError(remaining)
	}

	return order, nil
}
