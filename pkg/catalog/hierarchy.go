package catalog

import (
	"time"

	"github.com/packhouse/packhouse/pkg/manifest"
)

// NodeKind distinguishes pack nodes from page leaves in the hierarchy.
type NodeKind string

// Hierarchy node kinds.
const (
	KindPack NodeKind = "pack"
	KindPage NodeKind = "page"
)

// NodeID returns the prefixed identifier used by the flat view model,
// "pack:<id>" or "page:<name>".
func NodeID(kind NodeKind, name string) string {
	return string(kind) + ":" + name
}

// Stats counts the descendants beneath a hierarchy node. A pack or page
// reachable through multiple dependency paths is counted once.
type Stats struct {
	PacksBeneath int `json:"packs_beneath"`
	PagesBeneath int `json:"pages_beneath"`
}

// Node is one entry in the nested browse tree. A pack node's children
// are its declared pages (as leaves) followed by its direct dependency
// packs, recursively expanded, merging containment and dependency
// relationships into a single containment view.
type Node struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Kind        NodeKind `json:"kind"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Children    []*Node  `json:"children,omitempty"`
	Stats       Stats    `json:"stats"`
}

// TreeMeta carries catalog-level counts alongside the tree.
type TreeMeta struct {
	PackCount int       `json:"pack_count"`
	PageCount int       `json:"page_count"`
	Timestamp time.Time `json:"timestamp"`
}

// Tree is the nested display hierarchy of a catalog.
//
// For a catalog containing any dependency cycle the root list is empty:
// the builder does not isolate the acyclic remainder. Callers must treat
// empty roots together with Graph.HasCycle as "catalog invalid for
// browsing".
type Tree struct {
	Roots []*Node  `json:"root_nodes"`
	Meta  TreeMeta `json:"meta"`
}

// ViewNode is one entry in the flat view-model projection.
type ViewNode struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Kind         NodeKind `json:"kind"`
	Version      string   `json:"version,omitempty"`
	PacksBeneath int      `json:"packsBeneath"`
	PagesBeneath int      `json:"pagesBeneath"`
	Children     []string `json:"children,omitempty"`
}

// ViewModel is the flat projection of the same hierarchy: one node per
// unique pack/page keyed by its prefixed id, for consumers that want
// direct lookup instead of nested recursion. Root membership and counts
// agree with the nested tree.
type ViewModel struct {
	Nodes     map[string]*ViewNode `json:"nodes"`
	Roots     []string             `json:"roots"`
	PackCount int                  `json:"pack_count"`
	PageCount int                  `json:"page_count"`
}

// builder shares one traversal between the two projections.
type builder struct {
	graph    *Graph
	manifest *manifest.Manifest

	// memoized descendant sets per pack id
	packSets map[string]map[string]bool
	pageSets map[string]map[string]bool
}

// BuildTree computes the nested display hierarchy for a manifest.
func BuildTree(m *manifest.Manifest) *Tree {
	b := newBuilder(m)
	tree := &Tree{
		Meta: TreeMeta{
			PackCount: len(m.Packs),
			PageCount: len(m.Pages),
			Timestamp: time.Now().UTC(),
		},
	}

	if b.graph.HasCycle {
		return tree
	}

	for _, root := range b.graph.Roots {
		tree.Roots = append(tree.Roots, b.node(root))
	}
	return tree
}

// BuildViewModel computes the flat node-map projection for a manifest.
func BuildViewModel(m *manifest.Manifest) *ViewModel {
	b := newBuilder(m)
	vm := &ViewModel{
		Nodes:     make(map[string]*ViewNode),
		PackCount: len(m.Packs),
		PageCount: len(m.Pages),
	}

	if b.graph.HasCycle {
		return vm
	}

	for _, root := range b.graph.Roots {
		vm.Roots = append(vm.Roots, NodeID(KindPack, root))
	}
	for _, id := range b.graph.PackIDs() {
		b.flatten(id, vm)
	}
	return vm
}

func newBuilder(m *manifest.Manifest) *builder {
	return &builder{
		graph:    BuildGraph(m.PackList()),
		manifest: m,
		packSets: make(map[string]map[string]bool),
		pageSets: make(map[string]map[string]bool),
	}
}

// node expands one pack into a tree node. Dependency ids without a
// matching definition contribute no child. Only called on acyclic
// graphs, so the recursion terminates.
func (b *builder) node(id string) *Node {
	def := b.graph.Pack(id)
	n := &Node{
		ID:          id,
		Label:       id,
		Kind:        KindPack,
		Description: def.Description,
		Version:     def.Version,
		DependsOn:   append([]string(nil), def.DependsOn...),
	}

	for _, page := range b.graph.Pages(id) {
		n.Children = append(n.Children, &Node{
			ID:    page,
			Label: page,
			Kind:  KindPage,
		})
	}
	for _, dep := range b.graph.DirectDepends(id) {
		if !b.graph.KnownPack(dep) {
			continue
		}
		n.Children = append(n.Children, b.node(dep))
	}

	n.Stats = Stats{
		PacksBeneath: len(b.packsBeneath(id)),
		PagesBeneath: len(b.pagesBeneath(id)),
	}
	return n
}

// packsBeneath returns the deduplicated set of descendant pack ids
// beneath a pack (its known transitive dependencies).
func (b *builder) packsBeneath(id string) map[string]bool {
	if set, ok := b.packSets[id]; ok {
		return set
	}
	set := make(map[string]bool)
	for _, dep := range b.graph.TransitiveDepends(id) {
		if b.graph.KnownPack(dep) {
			set[dep] = true
		}
	}
	b.packSets[id] = set
	return set
}

// pagesBeneath returns the deduplicated set of page names beneath a
// pack: its own pages plus every page of its transitive dependencies.
func (b *builder) pagesBeneath(id string) map[string]bool {
	if set, ok := b.pageSets[id]; ok {
		return set
	}
	set := make(map[string]bool)
	for _, page := range b.graph.Pages(id) {
		set[page] = true
	}
	for dep := range b.packsBeneath(id) {
		for _, page := range b.graph.Pages(dep) {
			set[page] = true
		}
	}
	b.pageSets[id] = set
	return set
}

// flatten records a pack and its pages in the view model.
func (b *builder) flatten(id string, vm *ViewModel) {
	def := b.graph.Pack(id)
	node := &ViewNode{
		ID:           NodeID(KindPack, id),
		Label:        id,
		Kind:         KindPack,
		Version:      def.Version,
		PacksBeneath: len(b.packsBeneath(id)),
		PagesBeneath: len(b.pagesBeneath(id)),
	}

	for _, page := range b.graph.Pages(id) {
		pageID := NodeID(KindPage, page)
		node.Children = append(node.Children, pageID)
		if _, ok := vm.Nodes[pageID]; !ok {
			vm.Nodes[pageID] = &ViewNode{ID: pageID, Label: page, Kind: KindPage}
		}
	}
	for _, dep := range b.graph.DirectDepends(id) {
		if b.graph.KnownPack(dep) {
			node.Children = append(node.Children, NodeID(KindPack, dep))
		}
	}
	vm.Nodes[node.ID] = node
}
