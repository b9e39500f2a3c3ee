package cli

import (
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/etftools/etf/pkg/fix"
	"github.com/etftools/etf/pkg/resolve"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for etf.

To load completions:

Bash:
  $ source <(etf completion bash)

  # To load completions for each session, execute once:
  $ etf completion bash > /etc/bash_completion.d/etf

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ etf completion zsh > "${fpath[1]}/_etf"

Fish:
  $ etf completion fish | source

  # To load completions for each session, execute once:
  $ etf completion fish > ~/.config/fish/completions/etf.fish

PowerShell:
  PS> etf completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(c.Out)
			case "zsh":
				return cmd.Root().GenZshCompletion(c.Out)
			case "fish":
				return cmd.Root().GenFishCompletion(c.Out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(c.Out)
			}
			return nil
		},
	}

	return cmd
}

// completeRules completes the values of "data fix -r".
func completeRules(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(append(fix.Rules(), fix.All), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeSectors completes sector aliases, the built-in ones and those of
// the config file.
func (c *CLI) completeSectors(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := slices.Collect(maps.Keys(resolve.DefaultAliases))
	for alias := range c.cfg.Aliases {
		if !slices.Contains(names, alias) {
			names = append(names, alias)
		}
	}
	slices.Sort(names)
	return matchPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func matchPrefix(candidates []string, prefix string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), strings.ToLower(prefix)) {
			out = append(out, c)
		}
	}
	return out
}
