// Package session holds the per-user, per-ref selection session: which
// packs a user has chosen to install, update or remove, which packs were
// pulled in automatically to satisfy dependencies, and per-page title
// customizations.
//
// The State entity is mutable and content-hashed: every mutator
// recomputes the hash and timestamp before returning, so a caller always
// observes a hash that is a pure function of (refID, userID, packs).
// States round-trip losslessly through Snapshot/FromSnapshot for storage
// in a keyed, TTL-bounded store (see Store).
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/packhouse/packhouse/pkg/manifest"
)

// Sentinel errors for session mutations.
var (
	// ErrUnknownPack is returned when a mutator references a pack name
	// absent from the session.
	ErrUnknownPack = errors.New("unknown pack")

	// ErrUnknownPage is returned when a mutator references a page name
	// absent from its pack.
	ErrUnknownPage = errors.New("unknown page")
)

// Action is the pending decision for one pack.
type Action string

// Pack actions.
const (
	ActionInstall   Action = "install"
	ActionUpdate    Action = "update"
	ActionRemove    Action = "remove"
	ActionUnchanged Action = "unchanged"
)

// PageState tracks one page's title customization within a pack.
type PageState struct {
	Name         string `json:"name"`
	DefaultTitle string `json:"default_title"`
	FinalTitle   string `json:"final_title"`
	HasConflict  bool   `json:"has_conflict,omitempty"`
	ConflictType string `json:"conflict_type,omitempty"`
}

// Customized reports whether the page's final title has diverged from
// its computed default.
func (p *PageState) Customized() bool {
	return p.FinalTitle != p.DefaultTitle
}

// PackState tracks one pack's selection, pending action, versions,
// title prefix and page map within a session.
type PackState struct {
	Selected           bool                  `json:"selected"`
	AutoSelected       bool                  `json:"auto_selected"`
	AutoSelectedReason string                `json:"auto_selected_reason,omitempty"`
	Action             Action                `json:"action"`
	CurrentVersion     string                `json:"current_version,omitempty"`
	TargetVersion      string                `json:"target_version,omitempty"`
	Prefix             string                `json:"prefix,omitempty"`
	Pages              map[string]*PageState `json:"pages"`
}

// Active reports whether the pack is part of the current selection,
// either by user action or automatically.
func (p *PackState) Active() bool {
	return p.Selected || p.AutoSelected
}

// deriveAction applies the version rule: no current version means the
// pack would be installed; a version behind the target means updated;
// otherwise there is nothing to do. ActionRemove is never derived here;
// it is set explicitly when an installed pack is deselected.
func (p *PackState) deriveAction() {
	switch {
	case p.CurrentVersion == "":
		p.Action = ActionInstall
	case p.CurrentVersion != p.TargetVersion:
		p.Action = ActionUpdate
	default:
		p.Action = ActionUnchanged
	}
}

// DefaultTitle computes a page's default title from a pack prefix:
// "prefix/name", or the bare name when the prefix is empty.
func DefaultTitle(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// CreatePackState builds the initial state of one pack from its catalog
// definition and the installed version reported by the registry lookup
// (empty string when not installed). Installed packs start selected.
func CreatePackState(name string, def *manifest.PackDefinition, currentVersion string) *PackState {
	p := &PackState{
		CurrentVersion: currentVersion,
		TargetVersion:  def.Version,
		Selected:       currentVersion != "",
		Pages:          make(map[string]*PageState, len(def.Pages)),
	}
	p.deriveAction()

	for _, page := range def.Pages {
		if page == "" {
			continue
		}
		title := DefaultTitle(p.Prefix, page)
		p.Pages[page] = &PageState{
			Name:         page,
			DefaultTitle: title,
			FinalTitle:   title,
		}
	}
	return p
}

// State is one user's selection session for one catalog ref.
type State struct {
	RefID     string                `json:"ref_id"`
	UserID    string                `json:"user_id"`
	Packs     map[string]*PackState `json:"packs"`
	Hash      string                `json:"hash"`
	Timestamp time.Time             `json:"timestamp"`
}

// NewState creates an empty session for (refID, userID) with a valid
// hash and timestamp.
func NewState(refID, userID string) *State {
	s := &State{
		RefID:  refID,
		UserID: userID,
		Packs:  make(map[string]*PackState),
	}
	s.Touch()
	return s
}

// Pack returns a pack's state, or nil if the session does not track it.
func (s *State) Pack(name string) *PackState {
	return s.Packs[name]
}

// SetPack inserts or replaces a pack's state and rehashes.
func (s *State) SetPack(name string, p *PackState) {
	s.Packs[name] = p
	s.Touch()
}

// RemovePack drops a pack from the session and rehashes. Removing an
// untracked pack is a no-op.
func (s *State) RemovePack(name string) {
	if _, ok := s.Packs[name]; !ok {
		return
	}
	delete(s.Packs, name)
	s.Touch()
}

// SelectPack marks a pack as directly selected by the user. A manual
// action always overrides an automatic one, so auto-selection is
// cleared.
func (s *State) SelectPack(name string) error {
	p, ok := s.Packs[name]
	if !ok {
		return ErrUnknownPack
	}
	p.Selected = true
	p.AutoSelected = false
	p.AutoSelectedReason = ""
	p.deriveAction()
	s.Touch()
	return nil
}

// DeselectPack clears a pack's selection. Deselecting an installed pack
// marks it for removal; deselecting a pending install makes it inert.
func (s *State) DeselectPack(name string) error {
	p, ok := s.Packs[name]
	if !ok {
		return ErrUnknownPack
	}
	p.Selected = false
	p.AutoSelected = false
	p.AutoSelectedReason = ""
	if p.CurrentVersion != "" {
		p.Action = ActionRemove
	} else {
		p.deriveAction()
	}
	s.Touch()
	return nil
}

// AutoSelectPack marks a pack as pulled in to satisfy another pack's
// dependency, recording why. The user-facing Selected flag is not
// touched.
func (s *State) AutoSelectPack(name, reason string) error {
	p, ok := s.Packs[name]
	if !ok {
		return ErrUnknownPack
	}
	p.AutoSelected = true
	p.AutoSelectedReason = reason
	p.deriveAction()
	s.Touch()
	return nil
}

// ClearAutoSelect removes a pack's automatic selection and re-derives
// its action from the remaining selection state.
func (s *State) ClearAutoSelect(name string) error {
	p, ok := s.Packs[name]
	if !ok {
		return ErrUnknownPack
	}
	p.AutoSelected = false
	p.AutoSelectedReason = ""
	if !p.Selected && p.CurrentVersion != "" {
		p.Action = ActionRemove
	} else if !p.Selected {
		p.deriveAction()
	}
	s.Touch()
	return nil
}

// SetPageFinalTitle overwrites one page's final title. No other page is
// recomputed.
func (s *State) SetPageFinalTitle(pack, page, title string) error {
	p, ok := s.Packs[pack]
	if !ok {
		return ErrUnknownPack
	}
	pg, ok := p.Pages[page]
	if !ok {
		return ErrUnknownPage
	}
	pg.FinalTitle = title
	s.Touch()
	return nil
}

// SetPackPrefix updates a pack's title prefix and recomputes every
// page's default title. A page whose final title still equals its old
// default follows the new default; a customized final title is left
// untouched.
func (s *State) SetPackPrefix(pack, prefix string) error {
	p, ok := s.Packs[pack]
	if !ok {
		return ErrUnknownPack
	}

	for _, pg := range p.Pages {
		oldDefault := pg.DefaultTitle
		newDefault := DefaultTitle(prefix, pg.Name)
		pg.DefaultTitle = newDefault
		if pg.FinalTitle == oldDefault {
			pg.FinalTitle = newDefault
		}
	}
	p.Prefix = prefix
	s.Touch()
	return nil
}

// SyncPack reconciles one pack against its current catalog definition
// and installed version. Versions are refreshed and the pending action
// re-derived (a pending removal survives); the page map follows the
// definition, keeping title customizations for pages that still exist.
func (s *State) SyncPack(name string, def *manifest.PackDefinition, currentVersion string) error {
	p, ok := s.Packs[name]
	if !ok {
		return ErrUnknownPack
	}

	p.CurrentVersion = currentVersion
	p.TargetVersion = def.Version
	if p.Action != ActionRemove {
		p.deriveAction()
	}

	declared := make(map[string]bool, len(def.Pages))
	for _, page := range def.Pages {
		if page == "" {
			continue
		}
		declared[page] = true
		if _, ok := p.Pages[page]; ok {
			continue
		}
		title := DefaultTitle(p.Prefix, page)
		p.Pages[page] = &PageState{
			Name:         page,
			DefaultTitle: title,
			FinalTitle:   title,
		}
	}
	for page := range p.Pages {
		if !declared[page] {
			delete(p.Pages, page)
		}
	}

	s.Touch()
	return nil
}

// ResetToBaseline discards every pending decision: installed packs
// return to a selected, unchanged state at their installed version,
// everything else becomes a plain deselected candidate. Title prefixes
// and page customizations are kept.
func (s *State) ResetToBaseline() {
	for _, p := range s.Packs {
		p.AutoSelected = false
		p.AutoSelectedReason = ""
		if p.CurrentVersion != "" {
			p.Selected = true
			p.TargetVersion = p.CurrentVersion
		} else {
			p.Selected = false
		}
		p.deriveAction()
	}
	s.Touch()
}

// SelectedPackNames returns every pack in the current selection, user
// and automatic, sorted.
func (s *State) SelectedPackNames() []string {
	return s.packNames(func(p *PackState) bool { return p.Active() })
}

// UserSelectedPackNames returns the packs the user chose directly,
// sorted.
func (s *State) UserSelectedPackNames() []string {
	return s.packNames(func(p *PackState) bool { return p.Selected })
}

// AutoSelectedPackNames returns the packs present only to satisfy
// dependencies, sorted.
func (s *State) AutoSelectedPackNames() []string {
	return s.packNames(func(p *PackState) bool { return p.AutoSelected })
}

// HasActionableChanges reports whether applying the session would do
// anything: an active pack pending install or update, or any pack
// pending removal.
func (s *State) HasActionableChanges() bool {
	for _, p := range s.Packs {
		switch p.Action {
		case ActionInstall, ActionUpdate:
			if p.Active() {
				return true
			}
		case ActionRemove:
			return true
		}
	}
	return false
}

// Touch recomputes the content hash and updates the mutation timestamp.
// Mutators call this before returning; callers constructing pack states
// directly must call it themselves.
func (s *State) Touch() {
	s.Hash = s.computeHash()
	s.Timestamp = time.Now().UTC()
}

// hashPayload is the canonical hashed content: identity plus the full
// packs mapping, excluding hash and timestamp themselves.
type hashPayload struct {
	RefID  string                `json:"ref_id"`
	UserID string                `json:"user_id"`
	Packs  map[string]*PackState `json:"packs"`
}

// computeHash derives the short content fingerprint. encoding/json
// serializes map keys in sorted order, making the digest deterministic.
func (s *State) computeHash() string {
	data, _ := json.Marshal(hashPayload{
		RefID:  s.RefID,
		UserID: s.UserID,
		Packs:  s.Packs,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func (s *State) packNames(keep func(*PackState) bool) []string {
	var names []string
	for name, p := range s.Packs {
		if keep(p) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
