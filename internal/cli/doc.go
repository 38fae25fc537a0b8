// Package cli implements the rmon command-line interface.
//
// Commands are built per invocation by newRootCmd around an app value that
// carries the I/O streams, the SSH dialer and the password store, so tests
// can run the real command tree against fakes.
//
// # Command Structure
//
//	rmon status  -H host [-o table|json|yaml]  - One sample, then exit
//	rmon monitor -H host [-i secs] [--graph]   - Live dashboard until q
//	rmon version [--short]                     - Build information
//	rmon completion <shell>                    - Shell completion script
//
// # Configuration
//
// loadConfig layers defaults, ~/.config/rmon/config.yaml (or --config),
// RMON_* environment variables and explicitly set flags through viper, then
// validates the result. --insecure turns off strict host key checking.
//
// # Connecting
//
// connect dials with agent auth first and a password second. Usernames and
// passwords are prompted with huh forms on stderr when a terminal is
// attached. With --keyring a stored password is tried before prompting, a
// prompted password is saved after the server accepts it, and a rejected
// stored password is removed.
//
// # Exit Codes
//
// Execute maps the returned error to a process exit code with
// errors.ExitCode: 0 ok, 1 generic, 2 config or usage, 3 auth,
// 4 network or SSH, 5 terminal.
package cli
