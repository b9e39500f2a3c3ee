package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/etftools/etf/pkg/crt"
	"github.com/etftools/etf/pkg/errors"
	"github.com/etftools/etf/pkg/filter"
	"github.com/etftools/etf/pkg/fix"
	pkgio "github.com/etftools/etf/pkg/io"
	"github.com/etftools/etf/pkg/observability"
	"github.com/etftools/etf/pkg/stats"
)

// dataCommand creates the data command group.
func (c *CLI) dataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Process data exchange files",
		Long: `Process data exchange files.

Input and output files are positional and default to stdin and stdout;
"-" names the standard stream explicitly. Gzip and zstd compressed input
is accepted. Output is only written when the whole operation succeeded.`,
	}

	cmd.AddCommand(c.dataFilterCommand())
	cmd.AddCommand(c.dataFixCommand())
	cmd.AddCommand(c.dataStatsCommand())

	return cmd
}

// dataFilterCommand creates the "data filter" subcommand.
func (c *CLI) dataFilterCommand() *cobra.Command {
	var sector string

	cmd := &cobra.Command{
		Use:   "filter -s <sector> [input] [output]",
		Short: "Keep only the data of one sector",
		Example: `  etf data filter -s energy data.json energy.json
  etf data filter -s 3.F.1.b < data.json > barley.json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateQuery(sector); err != nil {
				return err
			}
			logger := loggerFromContext(cmd.Context())
			tax, err := c.taxonomy(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := c.readDocument(ioPath(args, 0))
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			hooks := observability.Pipeline()
			hooks.OnFilterStart(cmd.Context(), sector)
			res, err := filter.BySector(doc, c.newResolver(tax), sector, logger)
			removed := 0
			if res != nil {
				removed = res.Removed.Nodes
			}
			hooks.OnFilterComplete(cmd.Context(), sector, removed, prog.elapsed(), err)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Filtered sector %q", sector))

			if err := c.writeDocument(doc, ioPath(args, 1)); err != nil {
				return err
			}
			if res.Kept == 0 {
				printWarning(c.Err, "No data nodes belong to sector %q", sector)
			}
			printSuccess(c.Err, "Kept %d nodes (%d containers), removed %d nodes, %d variables, %d grids, %d line descriptions, %d values",
				res.Kept, res.Scaffolding, res.Removed.Nodes, res.Removed.Variables, res.Removed.Grids,
				res.Removed.LineDescriptions, res.Removed.Values)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sector, "sector", "s", "", "sector code, uid, alias or name")
	_ = cmd.MarkFlagRequired("sector")
	_ = cmd.RegisterFlagCompletionFunc("sector", c.completeSectors)

	return cmd
}

// dataFixCommand creates the "data fix" subcommand.
func (c *CLI) dataFixCommand() *cobra.Command {
	var rules []string

	cmd := &cobra.Command{
		Use:   "fix -r <rule> [input] [output]",
		Short: "Repair structural problems that block the import",
		Long: fmt.Sprintf(`Repair structural problems that block the import.

Rules (run in this order, -r may be repeated):
  PARENTS  nest country-specific nodes under their parent node
  GRIDS    add the template grid to nodes created from a template
  %s      every rule`, fix.All),
		Example: `  etf data fix -r ALL data.json fixed.json
  etf data fix -r parents -r grids < data.json > fixed.json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			// Reject unknown rules before any file is read.
			if _, err := fix.Select(rules...); err != nil {
				return err
			}
			tax, err := c.taxonomy(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := c.readDocument(ioPath(args, 0))
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			report, err := fix.New(tax, logger).FixContext(cmd.Context(), doc, rules...)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Applied %s", strings.Join(ruleNames(report), ", ")))

			if err := c.writeDocument(doc, ioPath(args, 1)); err != nil {
				return err
			}
			for _, a := range report.Applied {
				printSuccess(c.Err, "%s: %d %s fixed", a.Rule, len(a.Locations), plural(len(a.Locations), "node", "nodes"))
				for _, loc := range a.Locations {
					logger.Debug("fixed", "rule", a.Rule, "uid", loc.UID, "path", loc.Path, "target", loc.Target)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&rules, "rule", "r", nil, "rule to apply: PARENTS, GRIDS or ALL (repeatable)")
	_ = cmd.MarkFlagRequired("rule")
	_ = cmd.RegisterFlagCompletionFunc("rule", completeRules)

	return cmd
}

func ruleNames(r *fix.Report) []string {
	names := make([]string, len(r.Applied))
	for i, a := range r.Applied {
		names[i] = a.Rule
	}
	return names
}

// dataStatsCommand creates the "data stats" subcommand.
func (c *CLI) dataStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [input]",
		Short: "Count the objects in each part of a data file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.readDocument(ioPath(args, 0))
			if err != nil {
				return err
			}
			points, err := stats.Summarize(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.Out, renderStats(points))
			return nil
		},
	}
}

// readDocument reads a data file, or c.In for "-".
func (c *CLI) readDocument(path string) (*crt.Document, error) {
	if path == pkgio.StdStream {
		return crt.Read(c.In)
	}
	return crt.ReadFile(path)
}

// writeDocument writes doc to a file, or to c.Out for "-".
func (c *CLI) writeDocument(doc *crt.Document, path string) error {
	if path == pkgio.StdStream {
		return doc.Write(c.Out)
	}
	if err := doc.WriteFile(path); err != nil {
		return err
	}
	printFile(c.Err, path)
	return nil
}
