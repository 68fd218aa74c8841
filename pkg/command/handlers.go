package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/packhouse/packhouse/pkg/catalog"
	pherrors "github.com/packhouse/packhouse/pkg/errors"
	"github.com/packhouse/packhouse/pkg/executor"
	"github.com/packhouse/packhouse/pkg/manifest"
	"github.com/packhouse/packhouse/pkg/session"
)

// handleInit builds a fresh session from the catalog and the installed
// registry: one pack state per catalog pack, installed packs selected,
// dependencies of the selection auto-selected.
func (e *Engine) handleInit(ctx context.Context, m *manifest.Manifest, cc Context) (*Result, error) {
	if m == nil {
		return nil, pherrors.New(pherrors.ErrCodeInvalidManifest, "no catalog manifest available")
	}

	state := session.NewState(cc.RefID, cc.UserID)
	for _, id := range m.PackIDs() {
		current, _, err := e.lookup.CurrentVersion(ctx, cc.RefID, id)
		if err != nil {
			return nil, pherrors.Wrap(pherrors.ErrCodeStore, err, "look up installed version of %s", id)
		}
		state.SetPack(id, session.CreatePackState(id, m.Pack(id), current))
	}

	SyncAutoSelection(state, catalog.BuildGraph(m.PackList()))

	e.logger.Debug("session initialized",
		"ref", cc.RefID, "user", cc.UserID, "packs", len(state.Packs))
	return &Result{State: state, Save: true}, nil
}

// handleRefresh reconciles an existing session with the current catalog:
// new packs appear, packs dropped from the catalog disappear (with a
// warning), versions and actions are re-derived, and the auto-selection
// set is recomputed. Without a prior session it behaves like init.
func (e *Engine) handleRefresh(ctx context.Context, prior *session.State, m *manifest.Manifest, cc Context) (*Result, error) {
	if prior == nil {
		return e.handleInit(ctx, m, cc)
	}
	if m == nil {
		return nil, pherrors.New(pherrors.ErrCodeInvalidManifest, "no catalog manifest available")
	}

	state, err := prior.Clone()
	if err != nil {
		return nil, err
	}

	var warnings []string
	for _, name := range trackedPackNames(state) {
		if m.Pack(name) == nil {
			state.RemovePack(name)
			warnings = append(warnings, fmt.Sprintf("pack %q is no longer in the catalog; removed from session", name))
		}
	}

	for _, id := range m.PackIDs() {
		current, _, err := e.lookup.CurrentVersion(ctx, cc.RefID, id)
		if err != nil {
			return nil, pherrors.Wrap(pherrors.ErrCodeStore, err, "look up installed version of %s", id)
		}
		if state.Pack(id) == nil {
			state.SetPack(id, session.CreatePackState(id, m.Pack(id), current))
			continue
		}
		if err := state.SyncPack(id, m.Pack(id), current); err != nil {
			return nil, pherrors.Wrap(pherrors.ErrCodeInternal, err, "sync pack %s", id)
		}
	}

	SyncAutoSelection(state, catalog.BuildGraph(m.PackList()))

	e.logger.Debug("session refreshed",
		"ref", cc.RefID, "user", cc.UserID, "packs", len(state.Packs), "warnings", len(warnings))
	return &Result{State: state, Warnings: warnings, Save: true}, nil
}

// handleClear resets every pending decision back to the installed
// baseline. Without a prior session it builds the baseline from scratch,
// which is exactly what init produces.
func (e *Engine) handleClear(ctx context.Context, prior *session.State, m *manifest.Manifest, cc Context) (*Result, error) {
	if prior == nil {
		return e.handleInit(ctx, m, cc)
	}

	state, err := prior.Clone()
	if err != nil {
		return nil, err
	}
	state.ResetToBaseline()

	e.logger.Debug("session cleared", "ref", cc.RefID, "user", cc.UserID)
	return &Result{State: state, Save: true}, nil
}

// handleSetPrefix changes one pack's title prefix, recomputing default
// titles and carrying non-customized final titles along.
func (e *Engine) handleSetPrefix(prior *session.State, params Params) (*Result, error) {
	if prior == nil {
		return nil, pherrors.New(pherrors.ErrCodeStateRequired, "no active session; run init first")
	}

	packName, err := params.String("pack_name")
	if err != nil {
		return nil, err
	}
	prefix, err := params.String("prefix")
	if err != nil {
		return nil, err
	}
	if err := pherrors.ValidatePrefix(prefix); err != nil {
		return nil, err
	}

	state, err := prior.Clone()
	if err != nil {
		return nil, err
	}
	if err := state.SetPackPrefix(packName, prefix); err != nil {
		return nil, pherrors.New(pherrors.ErrCodePackNotFound, "unknown pack: %s", packName)
	}

	return &Result{State: state, Save: true}, nil
}

// handleRenamePage overrides one page's final title.
func (e *Engine) handleRenamePage(prior *session.State, params Params) (*Result, error) {
	if prior == nil {
		return nil, pherrors.New(pherrors.ErrCodeStateRequired, "no active session; run init first")
	}

	packName, err := params.String("pack_name")
	if err != nil {
		return nil, err
	}
	pageName, err := params.String("page_name")
	if err != nil {
		return nil, err
	}
	title, err := params.String("new_title")
	if err != nil {
		return nil, err
	}
	if err := pherrors.ValidateTitle(title); err != nil {
		return nil, err
	}

	state, err := prior.Clone()
	if err != nil {
		return nil, err
	}
	if state.Pack(packName) == nil {
		return nil, pherrors.New(pherrors.ErrCodePackNotFound, "unknown pack: %s", packName)
	}
	if err := state.SetPageFinalTitle(packName, pageName, title); err != nil {
		return nil, pherrors.New(pherrors.ErrCodePageNotFound, "unknown page %s in pack %s", pageName, packName)
	}

	return &Result{State: state, Save: true}, nil
}

// handleApply turns the session's pending decisions into an action list
// and hands it to the executor. The caller must present the hash of the
// state it last saw; a mismatch means the session changed underneath it.
// The session itself is not mutated and not re-saved.
func (e *Engine) handleApply(ctx context.Context, prior *session.State, params Params, cc Context) (*Result, error) {
	if prior == nil {
		return nil, pherrors.New(pherrors.ErrCodeStateRequired, "no active session; run init first")
	}

	stateHash, err := params.String("state_hash")
	if err != nil {
		return nil, err
	}
	if stateHash != prior.Hash {
		return nil, pherrors.New(pherrors.ErrCodeHashMismatch,
			"session changed since it was loaded (have %s, want %s); refresh and retry", stateHash, prior.Hash)
	}
	if !prior.HasActionableChanges() {
		return nil, pherrors.New(pherrors.ErrCodeNoChanges, "nothing to apply")
	}

	list := BuildActionList(prior, cc)
	if err := e.exec.Execute(ctx, list); err != nil {
		return nil, pherrors.Wrap(pherrors.ErrCodeExecutor, err, "submit action list %s", list.ID)
	}

	e.logger.Info("action list submitted",
		"id", list.ID, "ref", cc.RefID, "user", cc.UserID, "actions", len(list.Actions))
	return &Result{State: prior, Save: false}, nil
}

// BuildActionList collects the session's actionable decisions into an
// executor action list: installs and updates of active packs (with the
// final page titles to write) and every pending removal, in pack-name
// order.
func BuildActionList(state *session.State, cc Context) *executor.ActionList {
	list := executor.NewActionList(cc.RefID, cc.UserID, cc.RepoURL, cc.Ref)

	for _, name := range trackedPackNames(state) {
		p := state.Pack(name)

		switch p.Action {
		case session.ActionInstall, session.ActionUpdate:
			if !p.Active() {
				continue
			}
		case session.ActionRemove:
			// Removals apply regardless of selection.
		default:
			continue
		}

		action := executor.PackAction{
			Pack:           name,
			Action:         p.Action,
			CurrentVersion: p.CurrentVersion,
			TargetVersion:  p.TargetVersion,
		}
		if p.Action != session.ActionRemove {
			pageNames := make([]string, 0, len(p.Pages))
			for pg := range p.Pages {
				pageNames = append(pageNames, pg)
			}
			sort.Strings(pageNames)
			for _, pg := range pageNames {
				action.Pages = append(action.Pages, executor.PageAction{
					Name:  pg,
					Title: p.Pages[pg].FinalTitle,
				})
			}
		}
		list.Actions = append(list.Actions, action)
	}

	return list
}

// SyncAutoSelection reconciles the session's auto-selected set with the
// dependency closure of the user's selection: dependencies of selected
// packs become auto-selected with a reason naming their requesters, and
// auto-selections no longer required are cleared.
func SyncAutoSelection(state *session.State, g *catalog.Graph) {
	requiredBy := make(map[string][]string)
	for _, name := range state.UserSelectedPackNames() {
		for _, dep := range g.TransitiveDepends(name) {
			requiredBy[dep] = append(requiredBy[dep], name)
		}
	}

	for _, name := range trackedPackNames(state) {
		p := state.Pack(name)
		requesters := requiredBy[name]

		if len(requesters) > 0 && !p.Selected {
			sort.Strings(requesters)
			_ = state.AutoSelectPack(name, "required by "+strings.Join(requesters, ", "))
			continue
		}
		if p.AutoSelected && len(requesters) == 0 {
			_ = state.ClearAutoSelect(name)
		}
	}
}

func trackedPackNames(state *session.State) []string {
	names := make([]string, 0, len(state.Packs))
	for name := range state.Packs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
