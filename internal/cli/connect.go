package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// session is an authenticated SSH connection.
type session interface {
	sshutil.SSHClient
	UsedPassword() bool
}

// dialFunc opens a session. sshutil.Dial in production.
type dialFunc func(ctx context.Context, opts sshutil.DialOptions) (session, error)

func dialSSH(ctx context.Context, opts sshutil.DialOptions) (session, error) {
	c, err := sshutil.Dial(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// connect dials cfg.Host, saves or forgets keyring passwords depending on the
// outcome, and detects the remote dialect.
func (a *app) connect(ctx context.Context, cfg *config.Config, log logger.Logger, beforePrompt func()) (session, monitor.Dialect, error) {
	creds := &credentials{
		interactive:    a.interactive(),
		promptUser:     a.promptUser,
		promptPassword: a.promptPassword,
		beforePrompt:   beforePrompt,
		log:            log,
	}
	if cfg.Keyring {
		creds.store = a.store
	}

	opts := sshutil.DialOptions{
		Host:                  cfg.Host,
		User:                  cfg.User,
		Port:                  cfg.Port,
		StrictHostKeyChecking: cfg.StrictHostKeyChecking,
		Logger:                log,
	}
	if creds.interactive {
		opts.UserFunc = creds.User
	}
	if creds.interactive || creds.store != nil {
		opts.PasswordFunc = creds.Password
	}

	client, err := a.dial(ctx, opts)
	if err != nil {
		if errors.IsCode(err, errors.ErrAuth) {
			creds.Forget()
		}
		return nil, "", err
	}
	creds.Remember(client.UsedPassword())

	dialect := monitor.DetectDialect(ctx, client, cfg.CommandTimeout)
	log.Debug("connected to %s (%s)", client.GetAddress(), dialect)
	return client, dialect, nil
}

// resolveHost fills cfg.Host from the picker when nothing was configured and
// a terminal is attached.
func (a *app) resolveHost(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Host) != "" || !a.interactive() || a.pickHost == nil {
		return config.RequireHost(cfg)
	}

	entries, err := sshutil.ParseSSHConfig()
	if err != nil || len(entries) == 0 {
		return config.RequireHost(cfg)
	}

	alias, err := a.pickHost(entries)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrTerminal,
			"Host picker failed",
			"Pass the host with -H <host>")
	}
	cfg.Host = alias
	return config.RequireHost(cfg)
}

// interactive reports whether prompts can be shown: stdin and stderr are both terminals.
func (a *app) interactive() bool {
	return isTerminal(a.stdin) && isTerminal(a.stderr)
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalSize returns the size of w, or 80x24 when it is not a terminal.
func terminalSize(w io.Writer) (int, int) {
	if f, ok := w.(*os.File); ok {
		if width, height, err := term.GetSize(int(f.Fd())); err == nil && width > 0 && height > 0 {
			return width, height
		}
	}
	return 80, 24
}

// newLogger picks the log sink for a command. While the dashboard owns the
// terminal, logs go to the configured file or nowhere; one-shot commands log
// to stderr unless a file is configured.
func newLogger(cfg *config.Config, component string, stderr io.Writer, dashboard bool) (logger.Logger, func(), error) {
	if cfg.LogFile == "" {
		if dashboard {
			return logger.Noop(), func() {}, nil
		}
		return logger.NewConsole(stderr, component, cfg.Debug), func() {}, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't open log file "+cfg.LogFile,
			"Check the directory exists and is writable, or drop --log-file")
	}
	return logger.New(f, component, cfg.Debug), func() { f.Close() }, nil
}
