package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/packhouse/packhouse/pkg/catalog"
)

// catalogCommand creates the catalog inspection command group.
func (c *CLI) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect a pack catalog",
	}

	cmd.AddCommand(c.catalogTreeCommand())
	cmd.AddCommand(c.catalogGraphCommand())
	cmd.AddCommand(c.catalogResolveCommand())

	return cmd
}

// catalogTreeCommand creates the "catalog tree" subcommand.
func (c *CLI) catalogTreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [catalog]",
		Short: "Print the catalog as a nested pack/page tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadCatalog(args[0])
			if err != nil {
				return err
			}

			tree := catalog.BuildTree(m)
			if len(tree.Roots) == 0 {
				g := catalog.BuildGraph(m.PackList())
				if g.HasCycle {
					printWarning("catalog contains a dependency cycle; no tree to show")
					return nil
				}
				printInfo("catalog is empty")
				return nil
			}

			fmt.Println(StyleTitle.Render(m.Name))
			for _, root := range tree.Roots {
				printNode(root, "")
			}
			printDetail("%d packs · %d pages", tree.Meta.PackCount, tree.Meta.PageCount)
			return nil
		},
	}
}

// printNode prints one tree node and recurses into its children.
func printNode(n *catalog.Node, indent string) {
	switch n.Kind {
	case catalog.KindPage:
		fmt.Println(indent + stylePage.Render(n.Label))
		return
	default:
		line := indent + stylePack.Render(n.Label)
		if n.Version != "" {
			line += " " + styleVersion.Render("v"+n.Version)
		}
		line += " " + StyleDim.Render(fmt.Sprintf("(%d packs, %d pages)",
			n.Stats.PacksBeneath, n.Stats.PagesBeneath))
		fmt.Println(line)
	}

	for _, child := range n.Children {
		printNode(child, indent+"  ")
	}
}

// catalogGraphCommand creates the "catalog graph" subcommand.
func (c *CLI) catalogGraphCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "graph [catalog]",
		Short: "Print the catalog dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadCatalog(args[0])
			if err != nil {
				return err
			}

			p := newProgress(c.Logger)
			g := catalog.BuildGraph(m.PackList())
			p.done(fmt.Sprintf("Built graph: %d packs, %d dependency edges",
				len(g.PackIDs()), len(g.DependsEdges)))

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"roots":     g.Roots,
					"has_cycle": g.HasCycle,
					"contains":  g.ContainsEdges,
					"depends":   g.DependsEdges,
				})
			}

			if g.HasCycle {
				printWarning("catalog contains a dependency cycle")
			}
			printKeyValue("roots", strings.Join(g.Roots, ", "))
			for _, e := range g.DependsEdges {
				fmt.Println("  " + stylePack.Render(e.From) + " " + StyleDim.Render(iconArrow) + " " + stylePack.Render(e.To))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the graph as JSON")
	return cmd
}

// catalogResolveCommand creates the "catalog resolve" subcommand.
func (c *CLI) catalogResolveCommand() *cobra.Command {
	var locks bool

	cmd := &cobra.Command{
		Use:   "resolve [catalog] [packs...]",
		Short: "Expand a pack selection into its dependency closure",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadCatalog(args[0])
			if err != nil {
				return err
			}
			requested := args[1:]

			if locks {
				preview := catalog.ResolveWithLocks(m.PackList(), requested)
				for _, entry := range preview.Entries {
					switch entry.Status {
					case catalog.LockRequested:
						fmt.Println("  " + stylePack.Render(entry.ID))
					default:
						fmt.Println("  " + stylePack.Render(entry.ID) + " " +
							StyleDim.Render("locked, required by "+strings.Join(entry.RequiredBy, ", ")))
					}
				}
				printDetail("%d packs · %d pages", len(preview.Entries), len(preview.Pages))
				return nil
			}

			resolution := catalog.Resolve(m.PackList(), requested)
			for _, id := range resolution.Packs {
				fmt.Println("  " + stylePack.Render(id))
			}
			printDetail("%d packs · %d pages", len(resolution.Packs), len(resolution.Pages))
			return nil
		},
	}

	cmd.Flags().BoolVar(&locks, "locks", false, "annotate locked dependencies")
	return cmd
}
