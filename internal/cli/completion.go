package cli

import (
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/rmon/internal/errors"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion scripts for rmon. Host names for -H are
completed from ~/.ssh/config.

Examples:
  # Bash
  rmon completion bash > /etc/bash_completion.d/rmon

  # Zsh
  rmon completion zsh > "${fpath[1]}/_rmon"

  # Fish
  rmon completion fish > ~/.config/fish/completions/rmon.fish`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return errors.New(errors.ErrConfig,
					"Unknown shell: "+args[0],
					"Supported shells: bash, zsh, fish, powershell")
			}
		},
	}
}
