package catalog

import (
	"reflect"
	"testing"

	"github.com/packhouse/packhouse/pkg/manifest"
)

func pack(id, version string, pages, deps []string) *manifest.PackDefinition {
	return &manifest.PackDefinition{ID: id, Version: version, Pages: pages, DependsOn: deps}
}

func TestBuildGraphRoots(t *testing.T) {
	g := BuildGraph([]*manifest.PackDefinition{
		pack("bundle", "1.0", nil, []string{"core"}),
		pack("core", "1.0", []string{"Core Home"}, nil),
		pack("solo", "2.0", nil, nil),
	})

	want := []string{"bundle", "solo"}
	if !reflect.DeepEqual(g.Roots, want) {
		t.Fatalf("Roots = %v, want %v", g.Roots, want)
	}
	if g.HasCycle {
		t.Fatal("HasCycle = true for acyclic catalog")
	}
	if !g.IsRoot("bundle") || g.IsRoot("core") {
		t.Fatal("IsRoot disagrees with Roots")
	}
}

func TestBuildGraphCycle(t *testing.T) {
	g := BuildGraph([]*manifest.PackDefinition{
		pack("a", "1", nil, []string{"b"}),
		pack("b", "1", nil, []string{"a"}),
	})

	if !g.HasCycle {
		t.Fatal("HasCycle = false for a <-> b")
	}
	if len(g.Roots) != 0 {
		t.Fatalf("Roots = %v, want none (every pack is depended on)", g.Roots)
	}
}

func TestSelfDependencyDropped(t *testing.T) {
	g := BuildGraph([]*manifest.PackDefinition{
		pack("a", "1", nil, []string{"a"}),
	})

	if g.HasCycle {
		t.Fatal("self-dependency flagged as cycle")
	}
	if len(g.DependsEdges) != 0 {
		t.Fatalf("DependsEdges = %v, want none", g.DependsEdges)
	}
	if !g.IsRoot("a") {
		t.Fatal("a should remain a root")
	}
}

func TestTransitiveDependsDiamond(t *testing.T) {
	// top -> left,right -> base
	g := BuildGraph([]*manifest.PackDefinition{
		pack("top", "1", nil, []string{"left", "right"}),
		pack("left", "1", nil, []string{"base"}),
		pack("right", "1", nil, []string{"base"}),
		pack("base", "1", nil, nil),
	})

	got := g.TransitiveDepends("top")
	want := []string{"left", "right", "base"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TransitiveDepends(top) = %v, want %v", got, want)
	}

	// Closure is closed: every member's dependencies are members too.
	members := map[string]bool{"top": true}
	for _, id := range got {
		members[id] = true
	}
	for _, id := range got {
		for _, dep := range g.DirectDepends(id) {
			if !members[dep] {
				t.Fatalf("closure not closed: %s depends on %s", id, dep)
			}
		}
	}
}

func TestUnknownDependencyTarget(t *testing.T) {
	g := BuildGraph([]*manifest.PackDefinition{
		pack("a", "1", nil, []string{"ghost"}),
	})

	if len(g.DependsEdges) != 1 || g.DependsEdges[0].To != "ghost" {
		t.Fatalf("DependsEdges = %v, want a -> ghost", g.DependsEdges)
	}
	if g.KnownPack("ghost") {
		t.Fatal("ghost should not be a node")
	}
	for _, root := range g.Roots {
		if root == "ghost" {
			t.Fatal("ghost should not be a root")
		}
	}
	if got := g.TransitiveDepends("a"); !reflect.DeepEqual(got, []string{"ghost"}) {
		t.Fatalf("TransitiveDepends(a) = %v, want [ghost]", got)
	}
}

func TestContainsEdges(t *testing.T) {
	g := BuildGraph([]*manifest.PackDefinition{
		pack("b", "1", []string{"Two", "Two"}, nil),
		pack("a", "1", []string{"One", "  ", ""}, nil),
	})

	want := []ContainsEdge{
		{Pack: "a", Page: "One"},
		{Pack: "b", Page: "Two"},
		{Pack: "b", Page: "Two"},
	}
	if !reflect.DeepEqual(g.ContainsEdges, want) {
		t.Fatalf("ContainsEdges = %v, want %v", g.ContainsEdges, want)
	}
}

func TestReverseDepends(t *testing.T) {
	g := BuildGraph([]*manifest.PackDefinition{
		pack("x", "1", nil, []string{"base"}),
		pack("y", "1", nil, []string{"base"}),
		pack("base", "1", nil, nil),
	})

	if got := g.ReverseDepends("base"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("ReverseDepends(base) = %v, want [x y]", got)
	}
	if got := g.ReverseDepends("x"); len(got) != 0 {
		t.Fatalf("ReverseDepends(x) = %v, want none", got)
	}
}

func TestBlankPackSkipped(t *testing.T) {
	g := BuildGraph([]*manifest.PackDefinition{
		pack("  ", "1", nil, nil),
		nil,
		pack("ok", "1", nil, nil),
	})

	if got := g.PackIDs(); !reflect.DeepEqual(got, []string{"ok"}) {
		t.Fatalf("PackIDs = %v, want [ok]", got)
	}
}
