package catalog

import (
	"reflect"
	"testing"

	"github.com/packhouse/packhouse/pkg/manifest"
)

func resolvePacks() []*manifest.PackDefinition {
	return []*manifest.PackDefinition{
		pack("app", "1", []string{"App Home"}, []string{"lib"}),
		pack("lib", "1", []string{"Lib Home"}, []string{"base"}),
		pack("base", "1", []string{"Base Home"}, nil),
		pack("other", "1", []string{"Other Home"}, nil),
	}
}

func TestResolveClosure(t *testing.T) {
	r := Resolve(resolvePacks(), []string{"app"})

	if !reflect.DeepEqual(r.Packs, []string{"app", "base", "lib"}) {
		t.Fatalf("Packs = %v", r.Packs)
	}
	if !reflect.DeepEqual(r.Pages, []string{"App Home", "Base Home", "Lib Home"}) {
		t.Fatalf("Pages = %v", r.Pages)
	}
}

func TestResolveIdempotent(t *testing.T) {
	packs := resolvePacks()
	first := Resolve(packs, []string{"app"})
	second := Resolve(packs, first.Packs)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolution not idempotent: %v vs %v", first, second)
	}
}

func TestResolveUnknownID(t *testing.T) {
	r := Resolve(resolvePacks(), []string{"ghost", "other"})

	if !reflect.DeepEqual(r.Packs, []string{"ghost", "other"}) {
		t.Fatalf("Packs = %v, want [ghost other]", r.Packs)
	}
	if !reflect.DeepEqual(r.Pages, []string{"Other Home"}) {
		t.Fatalf("Pages = %v, want [Other Home] (ghost contributes none)", r.Pages)
	}
}

func TestResolveEmptyRequest(t *testing.T) {
	r := Resolve(resolvePacks(), nil)
	if len(r.Packs) != 0 || len(r.Pages) != 0 {
		t.Fatalf("empty request resolved to %v", r)
	}
}

func TestResolveWithLocks(t *testing.T) {
	p := ResolveWithLocks(resolvePacks(), []string{"app"})

	byID := make(map[string]PreviewEntry)
	for _, e := range p.Entries {
		byID[e.ID] = e
	}

	if byID["app"].Status != LockRequested {
		t.Errorf("app status = %s, want requested", byID["app"].Status)
	}
	if byID["lib"].Status != LockLocked {
		t.Errorf("lib status = %s, want locked", byID["lib"].Status)
	}
	if !reflect.DeepEqual(byID["lib"].RequiredBy, []string{"app"}) {
		t.Errorf("lib required by %v, want [app]", byID["lib"].RequiredBy)
	}
	if !reflect.DeepEqual(byID["base"].RequiredBy, []string{"app"}) {
		t.Errorf("base required by %v, want [app]", byID["base"].RequiredBy)
	}
}

func TestResolveWithLocksSharedDependency(t *testing.T) {
	packs := []*manifest.PackDefinition{
		pack("x", "1", nil, []string{"shared"}),
		pack("y", "1", nil, []string{"shared"}),
		pack("shared", "1", nil, nil),
	}

	p := ResolveWithLocks(packs, []string{"x", "y"})
	for _, e := range p.Entries {
		if e.ID == "shared" {
			if !reflect.DeepEqual(e.RequiredBy, []string{"x", "y"}) {
				t.Fatalf("shared required by %v, want [x y]", e.RequiredBy)
			}
			return
		}
	}
	t.Fatal("shared missing from preview")
}
