package catalog

import (
	"reflect"
	"testing"

	"github.com/packhouse/packhouse/pkg/manifest"
)

func testManifest() *manifest.Manifest {
	return &manifest.Manifest{
		SchemaVersion: "1",
		Packs: map[string]*manifest.PackDefinition{
			"bundle": pack("bundle", "1.0", []string{"Bundle Home"}, []string{"core"}),
			"core":   pack("core", "1.0", []string{"Core Home", "Core Setup"}, nil),
		},
		Pages: map[string]*manifest.PageDefinition{
			"Bundle Home": {Name: "Bundle Home", File: "bundle.md"},
			"Core Home":   {Name: "Core Home", File: "core.md"},
			"Core Setup":  {Name: "Core Setup", File: "setup.md"},
		},
	}
}

func TestBuildTree(t *testing.T) {
	tree := BuildTree(testManifest())

	if len(tree.Roots) != 1 || tree.Roots[0].ID != "bundle" {
		t.Fatalf("roots = %v, want [bundle]", tree.Roots)
	}

	bundle := tree.Roots[0]
	if bundle.Stats.PacksBeneath != 1 {
		t.Errorf("bundle.PacksBeneath = %d, want 1", bundle.Stats.PacksBeneath)
	}
	if bundle.Stats.PagesBeneath != 3 {
		t.Errorf("bundle.PagesBeneath = %d, want 3", bundle.Stats.PagesBeneath)
	}

	// Children: own page first, then the expanded dependency.
	if len(bundle.Children) != 2 {
		t.Fatalf("bundle has %d children, want 2", len(bundle.Children))
	}
	if bundle.Children[0].Kind != KindPage || bundle.Children[0].ID != "Bundle Home" {
		t.Errorf("first child = %+v, want page Bundle Home", bundle.Children[0])
	}
	core := bundle.Children[1]
	if core.Kind != KindPack || core.ID != "core" {
		t.Fatalf("second child = %+v, want pack core", core)
	}
	if core.Stats.PagesBeneath != 2 {
		t.Errorf("core.PagesBeneath = %d, want 2", core.Stats.PagesBeneath)
	}

	if tree.Meta.PackCount != 2 || tree.Meta.PageCount != 3 {
		t.Errorf("meta = %+v, want 2 packs / 3 pages", tree.Meta)
	}
}

func TestBuildTreeDiamondCountsOnce(t *testing.T) {
	m := &manifest.Manifest{
		SchemaVersion: "1",
		Packs: map[string]*manifest.PackDefinition{
			"top":   pack("top", "1", nil, []string{"left", "right"}),
			"left":  pack("left", "1", []string{"Shared"}, []string{"base"}),
			"right": pack("right", "1", nil, []string{"base"}),
			"base":  pack("base", "1", []string{"Shared"}, nil),
		},
	}

	tree := BuildTree(m)
	if len(tree.Roots) != 1 {
		t.Fatalf("roots = %v, want [top]", tree.Roots)
	}

	top := tree.Roots[0]
	if top.Stats.PacksBeneath != 3 {
		t.Errorf("top.PacksBeneath = %d, want 3 (base counted once)", top.Stats.PacksBeneath)
	}
	if top.Stats.PagesBeneath != 1 {
		t.Errorf("top.PagesBeneath = %d, want 1 (Shared counted once)", top.Stats.PagesBeneath)
	}
}

func TestBuildTreeCyclicCatalog(t *testing.T) {
	m := &manifest.Manifest{
		SchemaVersion: "1",
		Packs: map[string]*manifest.PackDefinition{
			"a": pack("a", "1", nil, []string{"b"}),
			"b": pack("b", "1", nil, []string{"a"}),
		},
	}

	tree := BuildTree(m)
	if len(tree.Roots) != 0 {
		t.Fatalf("roots = %v, want none for cyclic catalog", tree.Roots)
	}
	if tree.Meta.PackCount != 2 {
		t.Errorf("meta.PackCount = %d, want 2", tree.Meta.PackCount)
	}
}

func TestBuildViewModel(t *testing.T) {
	vm := BuildViewModel(testManifest())

	if !reflect.DeepEqual(vm.Roots, []string{"pack:bundle"}) {
		t.Fatalf("roots = %v, want [pack:bundle]", vm.Roots)
	}

	bundle := vm.Nodes["pack:bundle"]
	if bundle == nil {
		t.Fatal("missing node pack:bundle")
	}
	wantChildren := []string{"page:Bundle Home", "pack:core"}
	if !reflect.DeepEqual(bundle.Children, wantChildren) {
		t.Errorf("bundle children = %v, want %v", bundle.Children, wantChildren)
	}
	if bundle.PagesBeneath != 3 {
		t.Errorf("bundle.PagesBeneath = %d, want 3", bundle.PagesBeneath)
	}

	if vm.Nodes["page:Core Setup"] == nil {
		t.Error("missing page node page:Core Setup")
	}
	// Every pack appears even when reachable from a root.
	if vm.Nodes["pack:core"] == nil {
		t.Error("missing node pack:core")
	}
}

func TestBuildViewModelCyclicCatalog(t *testing.T) {
	m := &manifest.Manifest{
		SchemaVersion: "1",
		Packs: map[string]*manifest.PackDefinition{
			"a": pack("a", "1", nil, []string{"b"}),
			"b": pack("b", "1", nil, []string{"a"}),
		},
	}

	vm := BuildViewModel(m)
	if len(vm.Roots) != 0 || len(vm.Nodes) != 0 {
		t.Fatalf("view model not empty for cyclic catalog: %+v", vm)
	}
}
