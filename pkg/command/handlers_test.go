package command

import (
	"context"
	"testing"

	"github.com/packhouse/packhouse/pkg/catalog"
	pherrors "github.com/packhouse/packhouse/pkg/errors"
	"github.com/packhouse/packhouse/pkg/executor"
	"github.com/packhouse/packhouse/pkg/installed"
	"github.com/packhouse/packhouse/pkg/manifest"
	"github.com/packhouse/packhouse/pkg/session"
)

// captureExecutor records submitted action lists.
type captureExecutor struct {
	lists []*executor.ActionList
}

func (e *captureExecutor) Execute(ctx context.Context, list *executor.ActionList) error {
	e.lists = append(e.lists, list)
	return nil
}

func testManifest() *manifest.Manifest {
	return &manifest.Manifest{
		SchemaVersion: "1",
		Packs: map[string]*manifest.PackDefinition{
			"app":  {ID: "app", Version: "1.0", Pages: []string{"App Home"}, DependsOn: []string{"lib"}},
			"lib":  {ID: "lib", Version: "2.0", Pages: []string{"Lib Home"}},
			"solo": {ID: "solo", Version: "1.0", Pages: []string{"Solo Home"}},
		},
	}
}

func testContext() Context {
	return Context{UserID: "user", RefID: "ref", RepoURL: "https://example.com/wiki", Ref: "main"}
}

func newTestEngine(lookup installed.Lookup) (*Engine, *captureExecutor) {
	exec := &captureExecutor{}
	return NewEngine(lookup, exec, nil), exec
}

func TestInit(t *testing.T) {
	e, _ := newTestEngine(installed.StaticLookup{"app": "1.0"})

	result, err := e.Handle(context.Background(), CommandInit, nil, testManifest(), nil, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if !result.Save {
		t.Error("init should save")
	}

	state := result.State
	if len(state.Packs) != 3 {
		t.Fatalf("packs = %d, want 3", len(state.Packs))
	}

	app := state.Pack("app")
	if !app.Selected || app.Action != session.ActionUnchanged {
		t.Errorf("installed app: selected=%v action=%s", app.Selected, app.Action)
	}

	// lib is pulled in by app's dependency.
	lib := state.Pack("lib")
	if !lib.AutoSelected || lib.Selected {
		t.Errorf("lib: auto=%v selected=%v, want auto only", lib.AutoSelected, lib.Selected)
	}
	if lib.AutoSelectedReason != "required by app" {
		t.Errorf("lib reason = %q", lib.AutoSelectedReason)
	}
	if lib.Action != session.ActionInstall {
		t.Errorf("lib action = %s, want install", lib.Action)
	}

	solo := state.Pack("solo")
	if solo.Selected || solo.AutoSelected {
		t.Error("solo should be unselected")
	}
}

func TestInitRequiresManifest(t *testing.T) {
	e, _ := newTestEngine(nil)
	_, err := e.Handle(context.Background(), CommandInit, nil, nil, nil, testContext())
	if !pherrors.Is(err, pherrors.ErrCodeInvalidManifest) {
		t.Fatalf("err = %v, want INVALID_MANIFEST", err)
	}
}

func TestRefreshWithoutPriorBehavesLikeInit(t *testing.T) {
	e, _ := newTestEngine(nil)
	result, err := e.Handle(context.Background(), CommandRefresh, nil, testManifest(), nil, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.State.Packs) != 3 {
		t.Fatalf("packs = %d, want 3", len(result.State.Packs))
	}
}

func TestRefreshReconciles(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(installed.StaticLookup{"lib": "1.0"})

	prior := session.NewState("ref", "user")
	prior.SetPack("gone", session.CreatePackState("gone",
		&manifest.PackDefinition{ID: "gone", Version: "1.0"}, ""))
	prior.SetPack("lib", session.CreatePackState("lib",
		&manifest.PackDefinition{ID: "lib", Version: "1.0", Pages: []string{"Lib Home"}}, "1.0"))

	result, err := e.Handle(ctx, CommandRefresh, prior, testManifest(), nil, testContext())
	if err != nil {
		t.Fatal(err)
	}

	state := result.State
	if state.Pack("gone") != nil {
		t.Error("dropped pack survived refresh")
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v, want one for the dropped pack", result.Warnings)
	}
	if state.Pack("app") == nil || state.Pack("solo") == nil {
		t.Error("new catalog packs missing after refresh")
	}

	// lib was installed at 1.0 and the catalog moved to 2.0.
	lib := state.Pack("lib")
	if lib.TargetVersion != "2.0" || lib.Action != session.ActionUpdate {
		t.Errorf("lib after refresh: target=%s action=%s", lib.TargetVersion, lib.Action)
	}

	// The prior state is not mutated.
	if prior.Pack("gone") == nil {
		t.Error("refresh mutated the prior state")
	}
}

func TestClearResetsDecisions(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(installed.StaticLookup{"app": "1.0"})

	initResult, err := e.Handle(ctx, CommandInit, nil, testManifest(), nil, testContext())
	if err != nil {
		t.Fatal(err)
	}
	state := initResult.State
	if err := state.SelectPack("solo"); err != nil {
		t.Fatal(err)
	}

	result, err := e.Handle(ctx, CommandClear, state, testManifest(), nil, testContext())
	if err != nil {
		t.Fatal(err)
	}

	cleared := result.State
	if cleared.Pack("solo").Selected {
		t.Error("clear kept a pending selection")
	}
	if !cleared.Pack("app").Selected || cleared.Pack("app").Action != session.ActionUnchanged {
		t.Error("clear lost the installed baseline")
	}
	if cleared.HasActionableChanges() {
		t.Error("cleared session still actionable")
	}
}

func TestSetPrefix(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(nil)
	m := testManifest()

	if _, err := e.Handle(ctx, CommandSetPrefix, nil, m, Params{"pack_name": "app", "prefix": "X"}, testContext()); !pherrors.Is(err, pherrors.ErrCodeStateRequired) {
		t.Fatalf("no state: err = %v, want STATE_REQUIRED", err)
	}

	initResult, _ := e.Handle(ctx, CommandInit, nil, m, nil, testContext())
	state := initResult.State

	cases := []struct {
		name   string
		params Params
		code   pherrors.Code
	}{
		{"missing pack_name", Params{"prefix": "X"}, pherrors.ErrCodeMissingField},
		{"missing prefix", Params{"pack_name": "app"}, pherrors.ErrCodeMissingField},
		{"wrong type", Params{"pack_name": 7, "prefix": "X"}, pherrors.ErrCodeWrongType},
		{"trailing separator", Params{"pack_name": "app", "prefix": "X/"}, pherrors.ErrCodeInvalidInput},
		{"unknown pack", Params{"pack_name": "ghost", "prefix": "X"}, pherrors.ErrCodePackNotFound},
	}
	for _, tc := range cases {
		if _, err := e.Handle(ctx, CommandSetPrefix, state, m, tc.params, testContext()); !pherrors.Is(err, tc.code) {
			t.Errorf("%s: err = %v, want %s", tc.name, err, tc.code)
		}
	}

	result, err := e.Handle(ctx, CommandSetPrefix, state, m,
		Params{"pack_name": "app", "prefix": "Wiki/App"}, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if got := result.State.Pack("app").Pages["App Home"].FinalTitle; got != "Wiki/App/App Home" {
		t.Errorf("FinalTitle = %q", got)
	}
	if state.Pack("app").Prefix != "" {
		t.Error("set_prefix mutated the prior state")
	}
}

func TestRenamePage(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(nil)
	m := testManifest()

	initResult, _ := e.Handle(ctx, CommandInit, nil, m, nil, testContext())
	state := initResult.State

	cases := []struct {
		name   string
		params Params
		code   pherrors.Code
	}{
		{"missing title", Params{"pack_name": "app", "page_name": "App Home"}, pherrors.ErrCodeMissingField},
		{"blank title", Params{"pack_name": "app", "page_name": "App Home", "new_title": "  "}, pherrors.ErrCodeInvalidInput},
		{"unknown pack", Params{"pack_name": "ghost", "page_name": "App Home", "new_title": "T"}, pherrors.ErrCodePackNotFound},
		{"unknown page", Params{"pack_name": "app", "page_name": "Nope", "new_title": "T"}, pherrors.ErrCodePageNotFound},
	}
	for _, tc := range cases {
		if _, err := e.Handle(ctx, CommandRenamePage, state, m, tc.params, testContext()); !pherrors.Is(err, tc.code) {
			t.Errorf("%s: err = %v, want %s", tc.name, err, tc.code)
		}
	}

	result, err := e.Handle(ctx, CommandRenamePage, state, m,
		Params{"pack_name": "app", "page_name": "App Home", "new_title": "Start Here"}, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if got := result.State.Pack("app").Pages["App Home"].FinalTitle; got != "Start Here" {
		t.Errorf("FinalTitle = %q", got)
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	e, exec := newTestEngine(installed.StaticLookup{"solo": "0.9"})
	m := testManifest()
	cc := testContext()

	if _, err := e.Handle(ctx, CommandApply, nil, m, Params{"state_hash": "x"}, cc); !pherrors.Is(err, pherrors.ErrCodeStateRequired) {
		t.Fatalf("no state: err = %v, want STATE_REQUIRED", err)
	}

	initResult, _ := e.Handle(ctx, CommandInit, nil, m, nil, cc)
	state := initResult.State

	if _, err := e.Handle(ctx, CommandApply, state, m, Params{}, cc); !pherrors.Is(err, pherrors.ErrCodeMissingField) {
		t.Fatalf("missing hash: err = %v, want MISSING_FIELD", err)
	}
	if _, err := e.Handle(ctx, CommandApply, state, m, Params{"state_hash": "stale"}, cc); !pherrors.Is(err, pherrors.ErrCodeHashMismatch) {
		t.Fatalf("stale hash: err = %v, want HASH_MISMATCH", err)
	}

	// solo is installed and outdated, so its update is actionable. Remove
	// it from the picture to exercise NO_CHANGES first.
	if err := state.SyncPack("solo", m.Pack("solo"), "1.0"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Handle(ctx, CommandApply, state, m, Params{"state_hash": state.Hash}, cc); !pherrors.Is(err, pherrors.ErrCodeNoChanges) {
		t.Fatalf("baseline: err = %v, want NO_CHANGES", err)
	}

	if err := state.SelectPack("app"); err != nil {
		t.Fatal(err)
	}
	SyncAutoSelection(state, catalog.BuildGraph(m.PackList()))
	if err := state.DeselectPack("solo"); err != nil {
		t.Fatal(err)
	}
	_ = state.SetPageFinalTitle("app", "App Home", "Start Here")

	result, err := e.Handle(ctx, CommandApply, state, m, Params{"state_hash": state.Hash}, cc)
	if err != nil {
		t.Fatal(err)
	}
	if result.Save {
		t.Error("apply should not re-save the session")
	}

	if len(exec.lists) != 1 {
		t.Fatalf("executed %d lists, want 1", len(exec.lists))
	}
	list := exec.lists[0]
	if list.RefID != cc.RefID || list.UserID != cc.UserID || list.RepoURL != cc.RepoURL {
		t.Errorf("list identity = %+v", list)
	}
	if list.ID == "" {
		t.Error("list has no id")
	}

	if len(list.Actions) != 3 {
		t.Fatalf("actions = %+v, want app install, lib install, solo remove", list.Actions)
	}
	app, lib, solo := list.Actions[0], list.Actions[1], list.Actions[2]

	if app.Pack != "app" || app.Action != session.ActionInstall {
		t.Errorf("action[0] = %+v", app)
	}
	if len(app.Pages) != 1 || app.Pages[0].Title != "Start Here" {
		t.Errorf("app pages = %+v, want the renamed title", app.Pages)
	}
	if lib.Pack != "lib" || lib.Action != session.ActionInstall {
		t.Errorf("action[1] = %+v (auto-selected dependency must be included)", lib)
	}
	if solo.Pack != "solo" || solo.Action != session.ActionRemove || len(solo.Pages) != 0 {
		t.Errorf("action[2] = %+v, want a bare remove", solo)
	}
}

func TestSyncAutoSelectionSharedDependency(t *testing.T) {
	m := &manifest.Manifest{
		SchemaVersion: "1",
		Packs: map[string]*manifest.PackDefinition{
			"x":      {ID: "x", Version: "1", DependsOn: []string{"shared"}},
			"y":      {ID: "y", Version: "1", DependsOn: []string{"shared"}},
			"shared": {ID: "shared", Version: "1"},
		},
	}
	g := catalog.BuildGraph(m.PackList())

	state := session.NewState("ref", "user")
	for id, def := range m.Packs {
		state.SetPack(id, session.CreatePackState(id, def, ""))
	}
	_ = state.SelectPack("x")
	_ = state.SelectPack("y")
	SyncAutoSelection(state, g)

	if got := state.Pack("shared").AutoSelectedReason; got != "required by x, y" {
		t.Fatalf("reason = %q", got)
	}

	// Dropping one dependent keeps the dependency with a recomputed reason.
	_ = state.DeselectPack("y")
	SyncAutoSelection(state, g)
	shared := state.Pack("shared")
	if !shared.AutoSelected || shared.AutoSelectedReason != "required by x" {
		t.Fatalf("shared after deselect: auto=%v reason=%q", shared.AutoSelected, shared.AutoSelectedReason)
	}

	// Dropping the last dependent releases it.
	_ = state.DeselectPack("x")
	SyncAutoSelection(state, g)
	if state.Pack("shared").AutoSelected {
		t.Fatal("shared still auto-selected with no dependents")
	}
}

func TestParseCommand(t *testing.T) {
	if _, err := ParseCommand("destroy"); !pherrors.Is(err, pherrors.ErrCodeInvalidCommand) {
		t.Fatalf("err = %v, want INVALID_COMMAND", err)
	}
	if cmd, err := ParseCommand("set_prefix"); err != nil || cmd != CommandSetPrefix {
		t.Fatalf("ParseCommand(set_prefix) = (%v, %v)", cmd, err)
	}
}

func TestLookupFailureSurfacesAsStoreError(t *testing.T) {
	e, _ := newTestEngine(failingLookup{})
	_, err := e.Handle(context.Background(), CommandInit, nil, testManifest(), nil, testContext())
	if !pherrors.Is(err, pherrors.ErrCodeStore) {
		t.Fatalf("err = %v, want STORE_ERROR", err)
	}
}

type failingLookup struct{}

func (failingLookup) CurrentVersion(ctx context.Context, refID, pack string) (string, bool, error) {
	return "", false, context.DeadlineExceeded
}
