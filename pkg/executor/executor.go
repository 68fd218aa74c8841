// Package executor defines the resolved action list produced by a
// successful Apply command and the port through which it is handed to
// the asynchronous installer.
//
// The engine's only obligation toward the installer is to emit a
// self-consistent, complete action list exactly once per successful
// Apply; retry and partial-failure handling live behind the Executor
// port.
package executor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/packhouse/packhouse/pkg/session"
)

// PageAction carries the final target title for one page of a pack.
type PageAction struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// PackAction is one resolved decision: install, update or remove a pack
// at a specific version, writing its pages under their final titles.
type PackAction struct {
	Pack           string         `json:"pack"`
	Action         session.Action `json:"action"`
	CurrentVersion string         `json:"current_version,omitempty"`
	TargetVersion  string         `json:"target_version,omitempty"`
	Pages          []PageAction   `json:"pages,omitempty"`
}

// ActionList is the complete outcome of one Apply: every pending
// decision of one session, identified for idempotent downstream
// processing.
type ActionList struct {
	ID        string       `json:"id"`
	RefID     string       `json:"ref_id"`
	UserID    string       `json:"user_id"`
	RepoURL   string       `json:"repo_url,omitempty"`
	Ref       string       `json:"ref,omitempty"`
	Actions   []PackAction `json:"actions"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewActionList creates an empty list with a fresh id.
func NewActionList(refID, userID, repoURL, ref string) *ActionList {
	return &ActionList{
		ID:        uuid.NewString(),
		RefID:     refID,
		UserID:    userID,
		RepoURL:   repoURL,
		Ref:       ref,
		CreatedAt: time.Now().UTC(),
	}
}

// Executor accepts a resolved action list for asynchronous execution.
type Executor interface {
	Execute(ctx context.Context, list *ActionList) error
}

// Applier performs one pack action. The queue executor drives an
// Applier per action with retry; the installed-pack registries
// implement it to keep version bookkeeping consistent.
type Applier interface {
	ApplyAction(ctx context.Context, list *ActionList, action PackAction) error
}
