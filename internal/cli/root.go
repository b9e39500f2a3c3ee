package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/etftools/etf/internal/config"
	"github.com/etftools/etf/pkg/buildinfo"
	"github.com/etftools/etf/pkg/fix"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Before any subcommand runs, the configuration file is loaded and the
// logger level is set: -v wins over log_level, which wins over the info
// default. The logger is attached to the command context.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "etf reduces and repairs GHG inventory data exchange files",
		Long: `etf works with the JSON data exchange files of the greenhouse gas
inventory reporting tool: it looks up reporting categories in the reference
metadata, reduces data files to one sector, and repairs the structural
problems that make the tool reject an import.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.flags.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg

			level, _ := cfg.Level()
			if c.flags.verbose {
				level = LogDebug
			}
			c.SetLogLevel(level)
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.Out)
	root.SetErr(c.Err)
	root.SetIn(c.In)

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&c.flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/etf/config.toml)")
	pf.StringVarP(&c.flags.metadata, "metadata-file", "m", "", "metadata file to use instead of the bundled one")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "do not read or write the snapshot cache")

	root.AddCommand(c.metadataCommand())
	root.AddCommand(c.dataCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand creates the "version" subcommand.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version, metadata release and fix rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(c.Out, buildinfo.String())
			tax, err := c.taxonomy(cmd.Context())
			if err != nil {
				return err
			}
			v := tax.Version()
			fmt.Fprintf(c.Out, "metadata: %s %s (%s)\n", v.Name, v.ID, v.Published)
			fmt.Fprintf(c.Out, "rules: %v\n", fix.Rules())
			return nil
		},
	}
}
