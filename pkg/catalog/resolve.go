package catalog

import (
	"sort"

	"github.com/packhouse/packhouse/pkg/manifest"
)

// Resolution is the expanded form of a requested pack selection: the
// full dependency closure and every page those packs declare, both
// sorted and deduplicated.
type Resolution struct {
	Packs []string `json:"packs"`
	Pages []string `json:"pages"`
}

// LockState classifies a pack in a resolution preview.
type LockState string

const (
	// LockRequested marks a pack the user chose directly.
	LockRequested LockState = "requested"
	// LockLocked marks a pack included only because another pack in the
	// selection requires it. Locked packs cannot be deselected manually.
	LockLocked LockState = "locked"
)

// PreviewEntry annotates one pack of a resolution with why it is present.
type PreviewEntry struct {
	ID         string    `json:"id"`
	Status     LockState `json:"status"`
	RequiredBy []string  `json:"required_by,omitempty"`
}

// Preview is the locked-vs-requested view of a resolution, for UIs that
// disable manual deselection of locked packs.
type Preview struct {
	Entries []PreviewEntry `json:"entries"`
	Pages   []string       `json:"pages"`
}

// Resolve expands requested pack ids into their full dependency closure
// plus the pages that closure implies. Requested ids are preserved even
// when no pack definition exists for them; unknown ids contribute no
// pages. Resolve is idempotent: resolving a resolution's pack set yields
// the same resolution.
func Resolve(packs []*manifest.PackDefinition, requested []string) Resolution {
	g := BuildGraph(packs)
	return resolveOn(g, requested)
}

// ResolveOn is Resolve against an already-built graph, for callers that
// reuse one graph across several expansions.
func ResolveOn(g *Graph, requested []string) Resolution {
	return resolveOn(g, requested)
}

func resolveOn(g *Graph, requested []string) Resolution {
	packSet := make(map[string]bool)
	for _, id := range requested {
		if id == "" {
			continue
		}
		packSet[id] = true
		for _, dep := range g.TransitiveDepends(id) {
			packSet[dep] = true
		}
	}

	pageSet := make(map[string]bool)
	for id := range packSet {
		for _, page := range g.Pages(id) {
			pageSet[page] = true
		}
	}

	return Resolution{
		Packs: sortedKeys(packSet),
		Pages: sortedKeys(pageSet),
	}
}

// ResolveWithLocks computes the same closure as Resolve but annotates
// each pack as requested or locked, recording which selected packs pull
// a locked pack in.
func ResolveWithLocks(packs []*manifest.PackDefinition, requested []string) Preview {
	g := BuildGraph(packs)
	return ResolveWithLocksOn(g, requested)
}

// ResolveWithLocksOn is ResolveWithLocks against an already-built graph.
func ResolveWithLocksOn(g *Graph, requested []string) Preview {
	requestedSet := make(map[string]bool, len(requested))
	for _, id := range requested {
		if id != "" {
			requestedSet[id] = true
		}
	}

	resolution := resolveOn(g, requested)

	// requiredBy[dep] = requested packs whose closure contains dep
	requiredBy := make(map[string][]string)
	for id := range requestedSet {
		for _, dep := range g.TransitiveDepends(id) {
			requiredBy[dep] = append(requiredBy[dep], id)
		}
	}

	preview := Preview{Pages: resolution.Pages}
	for _, id := range resolution.Packs {
		entry := PreviewEntry{ID: id, Status: LockRequested}
		if !requestedSet[id] {
			entry.Status = LockLocked
			entry.RequiredBy = dedupeSorted(requiredBy[id])
		}
		preview.Entries = append(preview.Entries, entry)
	}
	return preview
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dedupeSorted(values []string) []string {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return sortedKeys(set)
}
