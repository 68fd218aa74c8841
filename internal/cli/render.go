package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/packhouse/packhouse/pkg/catalog"
	"github.com/packhouse/packhouse/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output file path (or base path for multiple formats)
	formats string // output formats: "svg", "png", "dot" (comma-separated)
	pages   bool   // include page nodes and containment edges
}

// renderCommand creates the render command for generating graph
// visualizations from a catalog.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [catalog]",
		Short: "Render the catalog dependency graph to SVG, PNG, or DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "svg", "output format(s): svg (default), png, dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.pages, "pages", false, "include page nodes")

	return cmd
}

func (c *CLI) runRender(path string, opts *renderOpts) error {
	m, err := loadCatalog(path)
	if err != nil {
		return err
	}

	g := catalog.BuildGraph(m.PackList())
	if g.HasCycle {
		printWarning("catalog contains a dependency cycle; rendering anyway")
	}
	dot := render.ToDOT(g, render.Options{Pages: opts.pages, Versions: true})

	base := opts.output
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	formats := strings.Split(opts.formats, ",")
	for _, format := range formats {
		format = strings.TrimSpace(format)

		out := base
		if len(formats) > 1 || opts.output == "" {
			out = base + "." + format
		}

		var data []byte
		switch format {
		case "dot":
			data = []byte(dot)
		case "svg", "png":
			sp := newSpinner(fmt.Sprintf("Rendering %s…", format))
			sp.Start()
			if format == "svg" {
				data, err = render.RenderSVG(dot)
			} else {
				data, err = render.RenderPNG(dot)
			}
			if err != nil {
				sp.StopWithError(fmt.Sprintf("render %s failed", format))
				return err
			}
			sp.Stop()
		default:
			return fmt.Errorf("unknown format: %q", format)
		}

		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		printFile(out)
	}

	printSuccess("Rendered %d pack(s)", len(g.PackIDs()))
	return nil
}
