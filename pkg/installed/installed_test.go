package installed

import (
	"context"
	"testing"

	"github.com/packhouse/packhouse/pkg/executor"
	"github.com/packhouse/packhouse/pkg/session"
)

func TestStaticLookup(t *testing.T) {
	ctx := context.Background()
	l := StaticLookup{"docs": "1.0"}

	v, ok, err := l.CurrentVersion(ctx, "any-ref", "docs")
	if err != nil || !ok || v != "1.0" {
		t.Fatalf("CurrentVersion(docs) = (%q, %v, %v)", v, ok, err)
	}
	if _, ok, _ := l.CurrentVersion(ctx, "any-ref", "ghost"); ok {
		t.Error("unknown pack reported installed")
	}
}

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	if _, ok, _ := r.CurrentVersion(ctx, "ref", "docs"); ok {
		t.Fatal("empty registry reported an install")
	}

	if err := r.Record(ctx, "ref", "docs", "1.0"); err != nil {
		t.Fatal(err)
	}
	v, ok, _ := r.CurrentVersion(ctx, "ref", "docs")
	if !ok || v != "1.0" {
		t.Fatalf("CurrentVersion = (%q, %v)", v, ok)
	}

	// Records are scoped per ref.
	if _, ok, _ := r.CurrentVersion(ctx, "other-ref", "docs"); ok {
		t.Error("record leaked across refs")
	}

	// Re-recording overwrites.
	_ = r.Record(ctx, "ref", "docs", "2.0")
	if v, _, _ := r.CurrentVersion(ctx, "ref", "docs"); v != "2.0" {
		t.Errorf("version after update = %q", v)
	}

	if err := r.Remove(ctx, "ref", "docs"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := r.CurrentVersion(ctx, "ref", "docs"); ok {
		t.Error("record survived remove")
	}
	// Removing from an unknown ref is not an error.
	if err := r.Remove(ctx, "ghost-ref", "docs"); err != nil {
		t.Errorf("Remove(ghost-ref) = %v", err)
	}
}

func TestRegistryApplier(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	a := NewRegistryApplier(r)
	list := &executor.ActionList{RefID: "ref"}

	install := executor.PackAction{Pack: "docs", Action: session.ActionInstall, TargetVersion: "1.0"}
	if err := a.ApplyAction(ctx, list, install); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := r.CurrentVersion(ctx, "ref", "docs"); v != "1.0" {
		t.Fatalf("after install: %q", v)
	}

	update := executor.PackAction{Pack: "docs", Action: session.ActionUpdate, CurrentVersion: "1.0", TargetVersion: "2.0"}
	if err := a.ApplyAction(ctx, list, update); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := r.CurrentVersion(ctx, "ref", "docs"); v != "2.0" {
		t.Fatalf("after update: %q", v)
	}

	remove := executor.PackAction{Pack: "docs", Action: session.ActionRemove}
	if err := a.ApplyAction(ctx, list, remove); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := r.CurrentVersion(ctx, "ref", "docs"); ok {
		t.Error("record survived remove action")
	}

	bogus := executor.PackAction{Pack: "docs", Action: session.ActionUnchanged}
	if err := a.ApplyAction(ctx, list, bogus); err == nil {
		t.Error("unchanged action accepted by applier")
	}
}
