// Package catalog implements the dependency-graph engine over a parsed
// catalog manifest: containment and dependency edges, root detection,
// cycle detection, transitive closures, the browsable hierarchy
// projections, and selection resolution.
//
// Everything in this package is synchronous, CPU-bound and deterministic
// given its inputs. Graphs are derived on demand and never persisted.
package catalog

import (
	"sort"
	"strings"

	"github.com/packhouse/packhouse/pkg/manifest"
)

// ContainsEdge is a pack→page containment relationship.
type ContainsEdge struct {
	Pack string `json:"pack"`
	Page string `json:"page"`
}

// DependsEdge is a pack→pack dependency relationship.
type DependsEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the derived dependency structure of a catalog. It is
// recomputed on demand from the manifest's pack definitions.
type Graph struct {
	// ContainsEdges holds one edge per (pack, page), ordered by pack id
	// and then by the pack's declared page order. Blank page names are
	// skipped; declared duplicates are preserved.
	ContainsEdges []ContainsEdge

	// DependsEdges holds one edge per (pack, dependency) with
	// self-references dropped. Edges to unknown pack ids are preserved;
	// they do not create nodes.
	DependsEdges []DependsEdge

	// Roots lists every known pack id that is never the target of a
	// dependency edge, sorted lexicographically.
	Roots []string

	// HasCycle reports whether the dependency edges contain a cycle.
	HasCycle bool

	packs   map[string]*manifest.PackDefinition
	deps    map[string][]string // pack id -> direct dependency ids, declared order
	pages   map[string][]string // pack id -> contained page names, declared order
	closure map[string][]string // pack id -> transitive dependency closure
	reverse map[string][]string // pack id -> direct dependents
}

// BuildGraph computes the dependency graph for a set of pack
// definitions. Packs with a blank id are skipped entirely.
func BuildGraph(packs []*manifest.PackDefinition) *Graph {
	g := &Graph{
		packs:   make(map[string]*manifest.PackDefinition),
		deps:    make(map[string][]string),
		pages:   make(map[string][]string),
		closure: make(map[string][]string),
		reverse: make(map[string][]string),
	}

	for _, pack := range packs {
		if pack == nil || strings.TrimSpace(pack.ID) == "" {
			continue
		}
		g.packs[pack.ID] = pack
	}

	ids := make([]string, 0, len(g.packs))
	for id := range g.packs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		pack := g.packs[id]

		for _, page := range pack.Pages {
			page = strings.TrimSpace(page)
			if page == "" {
				continue
			}
			g.ContainsEdges = append(g.ContainsEdges, ContainsEdge{Pack: id, Page: page})
			g.pages[id] = append(g.pages[id], page)
		}

		for _, dep := range pack.DependsOn {
			dep = strings.TrimSpace(dep)
			if dep == "" || dep == id {
				continue
			}
			g.DependsEdges = append(g.DependsEdges, DependsEdge{From: id, To: dep})
			g.deps[id] = append(g.deps[id], dep)
			g.reverse[dep] = append(g.reverse[dep], id)
		}
	}

	g.Roots = g.computeRoots(ids)
	g.HasCycle = g.detectCycle(ids)

	for _, id := range ids {
		g.closure[id] = g.computeClosure(id)
	}

	return g
}

// computeRoots returns every known pack id that never appears as the
// target of a dependency edge. Unknown dependency targets are not nodes
// and therefore never roots.
func (g *Graph) computeRoots(ids []string) []string {
	targeted := make(map[string]bool, len(g.reverse))
	for dep := range g.reverse {
		targeted[dep] = true
	}

	var roots []string
	for _, id := range ids {
		if !targeted[id] {
			roots = append(roots, id)
		}
	}
	return roots
}

// detectCycle runs a three-color depth-first search over the dependency
// edges. Self-dependencies were already dropped, so a bare self-reference
// never flags a cycle.
func (g *Graph) detectCycle(ids []string) bool {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.packs))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, dep := range g.deps[id] {
			switch color[dep] {
			case white:
				dfs(dep)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for _, id := range ids {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return true
			}
		}
	}
	return false
}

// computeClosure walks the dependency edges breadth-first so direct
// dependencies appear before deeper ones, without duplicates. Unknown
// dependency ids appear in the closure but contribute no further edges.
func (g *Graph) computeClosure(id string) []string {
	var closure []string
	seen := map[string]bool{id: true}
	frontier := g.deps[id]

	for len(frontier) > 0 {
		var next []string
		for _, dep := range frontier {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			closure = append(closure, dep)
			next = append(next, g.deps[dep]...)
		}
		frontier = next
	}
	return closure
}

// KnownPack reports whether id belongs to a pack that survived graph
// construction.
func (g *Graph) KnownPack(id string) bool {
	_, ok := g.packs[id]
	return ok
}

// Pack returns the definition behind a graph node, or nil for unknown ids.
func (g *Graph) Pack(id string) *manifest.PackDefinition {
	return g.packs[id]
}

// PackIDs returns all known pack ids in lexicographic order.
func (g *Graph) PackIDs() []string {
	ids := make([]string, 0, len(g.packs))
	for id := range g.packs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pages returns the contained page names of a pack in declared order,
// after blank-name filtering.
func (g *Graph) Pages(id string) []string {
	return g.pages[id]
}

// DirectDepends returns a pack's direct dependency ids in declared order.
func (g *Graph) DirectDepends(id string) []string {
	return g.deps[id]
}

// TransitiveDepends returns the full dependency closure of a pack:
// every id reachable via dependency edges, direct dependencies first,
// without duplicates. Returns nil for unknown packs.
func (g *Graph) TransitiveDepends(id string) []string {
	return g.closure[id]
}

// ReverseDepends returns the direct dependents of a pack: every pack
// whose dependency edges point at id, sorted lexicographically.
func (g *Graph) ReverseDepends(id string) []string {
	dependents := append([]string(nil), g.reverse[id]...)
	sort.Strings(dependents)
	return dependents
}

// IsRoot reports whether id is a root pack (nothing depends on it).
func (g *Graph) IsRoot(id string) bool {
	for _, root := range g.Roots {
		if root == id {
			return true
		}
	}
	return false
}
