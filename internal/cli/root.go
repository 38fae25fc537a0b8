package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/ui"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// app carries the process-wide collaborators the commands share. Tests build
// their own with fake streams and a fake dialer.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	dial  dialFunc
	store PasswordStore

	// pickHost is shown when no host was configured and a terminal is attached.
	pickHost func(entries []sshutil.SSHHostEntry) (string, error)

	// Prompts default to huh forms on stderr.
	promptUser     func(host string) (string, error)
	promptPassword func(user, host string) (string, error)

	// programOptions replace the real terminal for the dashboard in tests.
	programOptions []tea.ProgramOption

	// machineMode suppresses the human error printout after JSON output.
	machineMode bool
}

func newApp() *app {
	a := &app{
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		dial:           dialSSH,
		store:          NewKeyringStore(keyringService),
		promptUser:     huhUserPrompt,
		promptPassword: huhPasswordPrompt,
	}
	a.pickHost = func(entries []sshutil.SSHHostEntry) (string, error) {
		return ui.PickHost(entries, a.stdin, a.stderr)
	}
	return a
}

// newRootCmd builds the full command tree bound to a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rmon",
		Short: "Live CPU, memory and disk usage of a remote host over SSH",
		Long: `rmon connects to one machine over SSH and reports its CPU, memory and
disk usage using only standard shell tools on the remote side. Nothing is
installed on the target.

Use 'rmon status' for a one-shot reading and 'rmon monitor' for a live
dashboard.

Configuration is read from ~/.config/rmon/config.yaml (or --config), then
RMON_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	addGlobalFlags(root)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.New(errors.ErrConfig,
			err.Error(),
			fmt.Sprintf("Run '%s --help' for usage.", cmd.CommandPath()))
	})

	root.AddCommand(
		newStatusCmd(a),
		newMonitorCmd(a),
		newVersionCmd(),
		newCompletionCmd(),
	)
	return root
}

// Execute runs the CLI and exits with a code derived from the error.
func Execute() {
	os.Exit(run(context.Background(), newApp(), os.Args[1:]))
}

// run executes args against a fresh command tree and returns the exit code.
func run(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return errors.ExitOK
	}

	if isUsageError(err) {
		err = errors.New(errors.ErrConfig,
			err.Error(),
			"Run 'rmon --help' to see the available commands.")
	}

	if !a.machineMode {
		fmt.Fprint(a.stderr, formatError(err))
	}
	return errors.ExitCode(err)
}

// formatError renders an error for the terminal. Structured errors carry
// their own layout; anything else gets the same leading marker.
func formatError(err error) string {
	msg := err.Error()
	if !strings.HasPrefix(msg, ui.SymbolFail) {
		msg = ui.SymbolFail + " " + msg
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return msg
}

// isUsageError reports whether cobra rejected the command line itself.
// Cobra returns these as plain errors, so they are matched by prefix.
func isUsageError(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"invalid argument",
		"accepts ",
		"requires at least",
	} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
