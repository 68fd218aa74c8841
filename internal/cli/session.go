package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/packhouse/packhouse/pkg/cache"
	"github.com/packhouse/packhouse/pkg/catalog"
	"github.com/packhouse/packhouse/pkg/command"
	"github.com/packhouse/packhouse/pkg/executor"
	"github.com/packhouse/packhouse/pkg/manifest"
	"github.com/packhouse/packhouse/pkg/session"
)

// sessionOpts holds the flags shared by every session subcommand.
type sessionOpts struct {
	catalog string // path to the catalog manifest
	user    string // session owner
	noCache bool   // discard the local session store
}

// sessionEnv bundles everything a session subcommand needs: the local
// store, the command engine, the parsed catalog and the session context.
type sessionEnv struct {
	store    *session.Store
	engine   *command.Engine
	manifest *manifest.Manifest
	graph    *catalog.Graph
	cc       command.Context
	backend  cache.Cache
}

// sessionCommand creates the local session command group. Sessions are
// kept in the file cache under the user's cache directory; apply logs
// the action list instead of driving a wiki installer.
func (c *CLI) sessionCommand() *cobra.Command {
	opts := sessionOpts{user: "local"}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Plan pack installations in a local session",
	}

	cmd.PersistentFlags().StringVar(&opts.catalog, "catalog", "", "path to the catalog manifest (required)")
	cmd.PersistentFlags().StringVar(&opts.user, "user", opts.user, "session owner")
	cmd.PersistentFlags().BoolVar(&opts.noCache, "no-cache", false, "do not persist the session")
	_ = cmd.MarkPersistentFlagRequired("catalog")

	cmd.AddCommand(c.sessionRunCommand(&opts, command.CommandInit, "init", "Start a session from the catalog"))
	cmd.AddCommand(c.sessionRunCommand(&opts, command.CommandRefresh, "refresh", "Reconcile the session with the catalog"))
	cmd.AddCommand(c.sessionRunCommand(&opts, command.CommandClear, "clear", "Reset all pending decisions"))
	cmd.AddCommand(c.sessionShowCommand(&opts))
	cmd.AddCommand(c.sessionSelectCommand(&opts, true))
	cmd.AddCommand(c.sessionSelectCommand(&opts, false))
	cmd.AddCommand(c.sessionSetPrefixCommand(&opts))
	cmd.AddCommand(c.sessionRenamePageCommand(&opts))
	cmd.AddCommand(c.sessionApplyCommand(&opts))

	return cmd
}

// newSessionEnv loads the catalog and opens the local session store.
func (c *CLI) newSessionEnv(opts *sessionOpts) (*sessionEnv, error) {
	m, err := loadCatalog(opts.catalog)
	if err != nil {
		return nil, err
	}

	backend, err := newSessionCache(opts.noCache)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(opts.catalog)
	if err != nil {
		abs = opts.catalog
	}

	return &sessionEnv{
		store:    session.NewStore(backend, nil, 0),
		engine:   command.NewEngine(nil, executor.NewLogExecutor(c.Logger), c.Logger),
		manifest: m,
		graph:    catalog.BuildGraph(m.PackList()),
		cc: command.Context{
			UserID: opts.user,
			RefID:  cache.Hash([]byte(abs))[:12],
		},
		backend: backend,
	}, nil
}

func (e *sessionEnv) close() {
	_ = e.backend.Close()
}

// sessionRunCommand builds a subcommand that dispatches one engine
// command with no parameters (init, refresh, clear).
func (c *CLI) sessionRunCommand(opts *sessionOpts, cmdName command.Command, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSessionCommand(cmd, opts, cmdName, nil)
		},
	}
}

func (c *CLI) runSessionCommand(cmd *cobra.Command, opts *sessionOpts, cmdName command.Command, params command.Params) error {
	env, err := c.newSessionEnv(opts)
	if err != nil {
		return err
	}
	defer env.close()

	ctx := cmd.Context()
	prior, err := env.store.Get(ctx, env.cc.UserID, env.cc.RefID)
	if err != nil {
		return err
	}

	result, err := env.engine.Handle(ctx, cmdName, prior, env.manifest, params, env.cc)
	if err != nil {
		return err
	}
	if result.Save {
		if err := env.store.Set(ctx, result.State); err != nil {
			return err
		}
	}

	for _, w := range result.Warnings {
		printWarning("%s", w)
	}
	printState(result.State)
	return nil
}

// sessionShowCommand creates the "session show" subcommand.
func (c *CLI) sessionShowCommand(opts *sessionOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.newSessionEnv(opts)
			if err != nil {
				return err
			}
			defer env.close()

			state, err := env.store.Get(cmd.Context(), env.cc.UserID, env.cc.RefID)
			if err != nil {
				return err
			}
			if state == nil {
				printInfo("no session; run %s first", StyleHighlight.Render("packhouse session init"))
				return nil
			}
			printState(state)
			return nil
		},
	}
}

// sessionSelectCommand creates "session select" or "session deselect".
func (c *CLI) sessionSelectCommand(opts *sessionOpts, selecting bool) *cobra.Command {
	use, short := "select [packs...]", "Select packs for installation"
	if !selecting {
		use, short = "deselect [packs...]", "Deselect packs (installed packs get marked for removal)"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.newSessionEnv(opts)
			if err != nil {
				return err
			}
			defer env.close()

			ctx := cmd.Context()
			state, err := env.store.Get(ctx, env.cc.UserID, env.cc.RefID)
			if err != nil {
				return err
			}
			if state == nil {
				return errors.New("no session; run \"packhouse session init\" first")
			}

			for _, name := range args {
				if selecting {
					err = state.SelectPack(name)
				} else {
					err = state.DeselectPack(name)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			command.SyncAutoSelection(state, env.graph)

			if err := env.store.Set(ctx, state); err != nil {
				return err
			}
			printState(state)
			return nil
		},
	}
}

// sessionSetPrefixCommand creates the "session set-prefix" subcommand.
func (c *CLI) sessionSetPrefixCommand(opts *sessionOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "set-prefix [pack] [prefix]",
		Short: "Set a pack's page title prefix",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSessionCommand(cmd, opts, command.CommandSetPrefix, command.Params{
				"pack_name": args[0],
				"prefix":    args[1],
			})
		},
	}
}

// sessionRenamePageCommand creates the "session rename-page" subcommand.
func (c *CLI) sessionRenamePageCommand(opts *sessionOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-page [pack] [page] [title]",
		Short: "Override a page's final title",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSessionCommand(cmd, opts, command.CommandRenamePage, command.Params{
				"pack_name": args[0],
				"page_name": args[1],
				"new_title": args[2],
			})
		},
	}
}

// sessionApplyCommand creates the "session apply" subcommand.
func (c *CLI) sessionApplyCommand(opts *sessionOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply the session's pending changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.newSessionEnv(opts)
			if err != nil {
				return err
			}
			defer env.close()

			ctx := cmd.Context()
			state, err := env.store.Get(ctx, env.cc.UserID, env.cc.RefID)
			if err != nil {
				return err
			}

			var hash string
			if state != nil {
				hash = state.Hash
			}

			sp := newSpinner("Applying changes…")
			sp.Start()
			_, err = env.engine.Handle(ctx, command.CommandApply, state, env.manifest,
				command.Params{"state_hash": hash}, env.cc)
			if err != nil {
				sp.StopWithError("apply failed")
				return err
			}
			sp.StopWithSuccess("Changes submitted")
			return nil
		},
	}
}

// printState prints a session summary: every pack with its selection
// marker, pending action and versions, then the fingerprint footer.
func printState(state *session.State) {
	for _, name := range sortedPackNames(state) {
		p := state.Pack(name)

		marker := StyleDim.Render("·")
		switch {
		case p.Selected:
			marker = styleIconSuccess.Render(iconSuccess)
		case p.AutoSelected:
			marker = StyleHighlight.Render("+")
		}

		line := marker + " " + stylePack.Render(name)
		if p.TargetVersion != "" {
			line += " " + styleVersion.Render("v"+p.TargetVersion)
		}
		if p.Action != session.ActionUnchanged {
			line += " " + styleForAction(string(p.Action)).Render(string(p.Action))
		}
		if p.AutoSelectedReason != "" {
			line += " " + StyleDim.Render(p.AutoSelectedReason)
		}
		fmt.Println(line)
	}
	printDetail("session %s · %s", state.Hash, state.Timestamp.Format("15:04:05"))
}

func sortedPackNames(state *session.State) []string {
	names := make([]string, 0, len(state.Packs))
	for name := range state.Packs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
