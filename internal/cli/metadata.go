package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/etftools/etf/pkg/errors"
	pkgio "github.com/etftools/etf/pkg/io"
	"github.com/etftools/etf/pkg/render/nodelink"
	"github.com/etftools/etf/pkg/taxonomy"
)

// Output formats of "metadata tree".
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// metadataCommand creates the metadata command group.
func (c *CLI) metadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Query the reference metadata",
	}

	cmd.AddCommand(c.metadataFindCommand())
	cmd.AddCommand(c.metadataTreeCommand())
	cmd.AddCommand(c.metadataBrowseCommand())

	return cmd
}

// metadataFindCommand creates the "metadata find" subcommand.
func (c *CLI) metadataFindCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find <query>",
		Short: "Find taxonomy nodes by code, uid, alias or name",
		Long: `Find taxonomy nodes by code, uid, alias or name.

The first interpretation that matches wins: an exact code or uid, a sector
alias, an exact name, and finally a case-insensitive substring of the name.
Navigation entries of the reporting tool are searched as well.`,
		Example: `  etf metadata find 1.A.1
  etf metadata find energy
  etf metadata find "cereal"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			if err := errors.ValidateQuery(query); err != nil {
				return err
			}
			tax, err := c.taxonomy(cmd.Context())
			if err != nil {
				return err
			}
			r := c.newResolver(tax)

			ids, step := r.ResolveStep(query)
			navs := r.FindNavigation(query)
			if len(ids) == 0 && len(navs) == 0 {
				return errors.SectorNotFound(query)
			}

			if len(ids) > 0 {
				printSuccess(c.Err, "%d %s for %q (%s match)", len(ids), plural(len(ids), "node", "nodes"), query, step)
			}
			for _, id := range ids {
				n := tax.Node(id)
				fmt.Fprintln(c.Out, StyleTitle.Render(n.FullName()))
				printKeyValue(c.Out, "code", n.Code)
				printKeyValue(c.Out, "uid", n.UID)
				if n.TemplateUID != "" {
					printKeyValue(c.Out, "template", n.TemplateUID)
				}
				printKeyValue(c.Out, "path", tax.Path(id))
				if vars := tax.VariablesOf([]taxonomy.ID{id}); len(vars) > 0 {
					printKeyValue(c.Out, "variables", fmt.Sprint(len(vars)))
				}
			}

			if len(navs) > 0 {
				printSuccess(c.Err, "%d navigation %s", len(navs), plural(len(navs), "entry", "entries"))
			}
			for _, nav := range navs {
				fmt.Fprintln(c.Out, StyleHighlight.Render(nav.Name))
				printKeyValue(c.Out, "uid", nav.UID)
				printKeyValue(c.Out, "json path", nav.Path)
			}
			return nil
		},
	}
}

// treeOpts holds options for the "metadata tree" subcommand.
type treeOpts struct {
	format   string
	output   string
	detailed bool
	depth    int
}

// metadataTreeCommand creates the "metadata tree" subcommand.
func (c *CLI) metadataTreeCommand() *cobra.Command {
	opts := treeOpts{format: FormatDOT, output: pkgio.StdStream}

	cmd := &cobra.Command{
		Use:   "tree <query>",
		Short: "Draw the taxonomy subtree of a sector",
		Example: `  etf metadata tree 3.F -o cereals.dot
  etf metadata tree agriculture --format svg --depth 2 -o agriculture.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTree(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot, svg, png")
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output file (- for stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show uids, variable counts and grids")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "levels to draw below the sector (0 = all)")

	return cmd
}

func (c *CLI) runTree(cmd *cobra.Command, query string, opts treeOpts) error {
	if opts.depth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "depth must not be negative")
	}
	format := strings.ToLower(opts.format)
	switch format {
	case FormatDOT, FormatSVG, FormatPNG:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (use dot, svg or png)", opts.format)
	}

	tax, err := c.taxonomy(cmd.Context())
	if err != nil {
		return err
	}
	roots, err := c.newResolver(tax).ResolveSector(query)
	if err != nil {
		return err
	}

	dot := nodelink.ToDOT(tax, roots, nodelink.Options{Detailed: opts.detailed, MaxDepth: opts.depth})
	var out []byte
	switch format {
	case FormatDOT:
		out = []byte(dot)
	case FormatSVG:
		out, err = nodelink.RenderSVG(dot)
	case FormatPNG:
		out, err = nodelink.RenderPNG(dot)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
	}

	if opts.output == pkgio.StdStream {
		_, err := c.Out.Write(out)
		return err
	}
	if err := os.WriteFile(opts.output, out, 0644); err != nil {
		return err
	}
	printSuccess(c.Err, "Rendered %d %s", len(roots), plural(len(roots), "subtree", "subtrees"))
	printFile(c.Err, opts.output)
	return nil
}

// metadataBrowseCommand creates the "metadata browse" subcommand.
func (c *CLI) metadataBrowseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [query]",
		Short: "Pick a taxonomy node interactively and print its uid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.Interactive {
				return errors.New(errors.ErrCodeInvalidInput, "browse needs a terminal")
			}
			tax, err := c.taxonomy(cmd.Context())
			if err != nil {
				return err
			}

			var ids []taxonomy.ID
			if len(args) == 1 {
				if ids, err = c.newResolver(tax).ResolveSector(args[0]); err != nil {
					return err
				}
			}

			p := tea.NewProgram(NewNodeListModel(tax, ids),
				tea.WithContext(cmd.Context()),
				tea.WithOutput(c.Err),
			)
			final, err := p.Run()
			if err != nil {
				return err
			}
			if m, ok := final.(NodeListModel); ok && m.Selected != nil {
				fmt.Fprintln(c.Out, m.Selected.UID)
				printNextStep(c.Err, "Filter a data file to this node", "etf data filter -s "+m.Selected.Code+" data.json")
			}
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
