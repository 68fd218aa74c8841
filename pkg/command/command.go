// Package command implements the selection-session state machine: the
// six commands that create, resync, reset, customize and apply a user's
// pack selection against a catalog manifest.
//
// Handlers are synchronous and deterministic. Each takes an optional
// prior state, a manifest, loosely-typed request parameters and the
// request context, and returns a new state, warnings for the user, and
// whether the caller should persist the state. Handlers never touch the
// session store themselves; load and write-back belong to the calling
// layer, scoped per invocation.
//
// All failures are coded (*errors.Error): parameter problems are
// rejected before any mutation, as are state-consistency problems
// (missing state, stale hash, nothing to apply).
package command

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	pherrors "github.com/packhouse/packhouse/pkg/errors"
	"github.com/packhouse/packhouse/pkg/executor"
	"github.com/packhouse/packhouse/pkg/installed"
	"github.com/packhouse/packhouse/pkg/manifest"
	"github.com/packhouse/packhouse/pkg/observability"
	"github.com/packhouse/packhouse/pkg/session"
)

// Command names the six session operations.
type Command string

// Session commands.
const (
	CommandInit       Command = "init"
	CommandRefresh    Command = "refresh"
	CommandClear      Command = "clear"
	CommandSetPrefix  Command = "set_prefix"
	CommandRenamePage Command = "rename_page"
	CommandApply      Command = "apply"
)

// ParseCommand validates a raw command name.
func ParseCommand(raw string) (Command, error) {
	switch Command(raw) {
	case CommandInit, CommandRefresh, CommandClear, CommandSetPrefix, CommandRenamePage, CommandApply:
		return Command(raw), nil
	default:
		return "", pherrors.New(pherrors.ErrCodeInvalidCommand, "unknown command: %q", raw)
	}
}

// Context identifies whose session a command operates on.
type Context struct {
	UserID  string
	RepoURL string
	Ref     string
	RefID   string
}

// Params is the loosely-typed parameter envelope of a command request.
// Typed accessors convert entries, surfacing missing keys and wrong
// value types as coded errors before any mutation happens.
type Params map[string]any

// String returns a required string parameter.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", pherrors.New(pherrors.ErrCodeMissingField, "%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", pherrors.New(pherrors.ErrCodeWrongType, "%s must be a string", key)
	}
	return s, nil
}

// Result is a handler's outcome: the state to return to the caller,
// user-facing warnings, and whether the state should be persisted.
type Result struct {
	State    *session.State
	Warnings []string
	Save     bool
}

// Engine wires the handlers to their collaborator ports.
type Engine struct {
	lookup installed.Lookup
	exec   executor.Executor
	logger *log.Logger
}

// NewEngine creates a command engine. A nil lookup treats every pack as
// not installed, a nil executor logs and discards action lists, a nil
// logger discards.
func NewEngine(lookup installed.Lookup, exec executor.Executor, logger *log.Logger) *Engine {
	if lookup == nil {
		lookup = installed.StaticLookup{}
	}
	if exec == nil {
		exec = executor.NewLogExecutor(nil)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{lookup: lookup, exec: exec, logger: logger}
}

// Handle dispatches one command.
func (e *Engine) Handle(ctx context.Context, cmd Command, prior *session.State, m *manifest.Manifest, params Params, cc Context) (result *Result, err error) {
	if params == nil {
		params = Params{}
	}

	start := time.Now()
	observability.Command().OnCommandStart(ctx, string(cmd), cc.RefID)
	defer func() {
		observability.Command().OnCommandComplete(ctx, string(cmd), cc.RefID, time.Since(start), err)
	}()

	switch cmd {
	case CommandInit:
		return e.handleInit(ctx, m, cc)
	case CommandRefresh:
		return e.handleRefresh(ctx, prior, m, cc)
	case CommandClear:
		return e.handleClear(ctx, prior, m, cc)
	case CommandSetPrefix:
		return e.handleSetPrefix(prior, params)
	case CommandRenamePage:
		return e.handleRenamePage(prior, params)
	case CommandApply:
		return e.handleApply(ctx, prior, params, cc)
	default:
		return nil, pherrors.New(pherrors.ErrCodeInvalidCommand, "unknown command: %q", cmd)
	}
}
