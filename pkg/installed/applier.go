package installed

import (
	"context"
	"fmt"

	"github.com/packhouse/packhouse/pkg/executor"
	"github.com/packhouse/packhouse/pkg/session"
)

// Recorder is the write side of an installed-pack registry.
type Recorder interface {
	Record(ctx context.Context, refID, pack, version string) error
	Remove(ctx context.Context, refID, pack string) error
}

// RegistryApplier adapts a registry's write side to the executor's
// Applier port: install and update record the target version, remove
// drops the record. The actual page writes are performed by the wiki
// installer in front of this bookkeeping step.
type RegistryApplier struct {
	recorder Recorder
}

// NewRegistryApplier wraps a recorder as an Applier.
func NewRegistryApplier(recorder Recorder) *RegistryApplier {
	return &RegistryApplier{recorder: recorder}
}

// ApplyAction records the outcome of one pack action.
func (a *RegistryApplier) ApplyAction(ctx context.Context, list *executor.ActionList, action executor.PackAction) error {
	switch action.Action {
	case session.ActionInstall, session.ActionUpdate:
		return a.recorder.Record(ctx, list.RefID, action.Pack, action.TargetVersion)
	case session.ActionRemove:
		return a.recorder.Remove(ctx, list.RefID, action.Pack)
	default:
		return fmt.Errorf("unexpected action %q for pack %s", action.Action, action.Pack)
	}
}

// Ensure RegistryApplier implements Applier.
var _ executor.Applier = (*RegistryApplier)(nil)
