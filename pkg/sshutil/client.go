package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultDialTimeout bounds the TCP connect when DialOptions.Timeout is zero.
const DefaultDialTimeout = 10 * time.Second

// PasswordFunc supplies a password for user@host. It is only called when
// agent authentication is unavailable or was rejected by the server.
type PasswordFunc func(user, host string) (string, error)

// UserFunc supplies a login name when none was given and ssh_config has none.
type UserFunc func(host string) (string, error)

// DialOptions controls how Dial connects and authenticates.
type DialOptions struct {
	// Host can be an SSH config alias, a hostname, user@hostname or hostname:port.
	Host string

	// User and Port override anything resolved from Host or ~/.ssh/config.
	User string
	Port int

	Timeout time.Duration

	// StrictHostKeyChecking verifies the server key against KnownHostsPath.
	StrictHostKeyChecking bool
	KnownHostsPath        string

	// SSHConfigPath defaults to ~/.ssh/config.
	SSHConfigPath string

	// Agent overrides the SSH_AUTH_SOCK agent.
	Agent agent.Agent

	PasswordFunc PasswordFunc
	UserFunc     UserFunc

	// HostKeyCallback replaces known_hosts verification entirely.
	HostKeyCallback ssh.HostKeyCallback

	// Logger defaults to stderr, with debug output when RMON_DEBUG is set.
	Logger logger.Logger
}

// Client wraps an SSH connection with additional metadata.
// Exec calls are serialized; at most one remote command runs at a time.
type Client struct {
	conn    *ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
	User    string

	mu           sync.Mutex
	closeOnce    sync.Once
	closeErr     error
	closed       atomic.Bool
	agentConn    net.Conn
	passwordUsed bool
	log          logger.Logger

	// running counts session.Run calls that haven't returned yet.
	running atomic.Int32
}

// Target is the resolved destination for a connection.
type Target struct {
	Alias    string
	Hostname string
	Port     int
	User     string
}

// Address returns the host:port string for dialing.
func (t Target) Address() string {
	return net.JoinHostPort(t.Hostname, strconv.Itoa(t.Port))
}

// ResolveTarget parses the host string and resolves settings from the SSH config.
// Explicit user and port (non-empty, non-zero) take precedence over everything else,
// then user@ and :port written into host, then ~/.ssh/config.
func ResolveTarget(host, user string, port int, sshConfigPath string) Target {
	t := Target{Port: 22}

	if atIdx := strings.Index(host, "@"); atIdx != -1 {
		t.User = host[:atIdx]
		host = host[atIdx+1:]
	}

	inlinePort := false
	if colonIdx := strings.LastIndex(host, ":"); colonIdx != -1 {
		if p, err := strconv.Atoi(host[colonIdx+1:]); err == nil && p > 0 {
			t.Port = p
			host = host[:colonIdx]
			inlinePort = true
		}
	}

	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	t.Alias = host
	t.Hostname = host

	if sshConfigPath == "" {
		sshConfigPath = filepath.Join(homeDir(), ".ssh", "config")
	}
	// The kevinburke/ssh_config library doesn't support Match, so only the
	// content before the first Match block is parsed.
	if content, _, err := preprocessSSHConfig(sshConfigPath); err == nil {
		if cfg, err := ssh_config.Decode(bytes.NewReader(content)); err == nil {
			if hostname, _ := cfg.Get(host, "HostName"); hostname != "" {
				t.Hostname = hostname
			}
			if p, _ := cfg.Get(host, "Port"); p != "" && !inlinePort {
				if n, err := strconv.Atoi(p); err == nil {
					t.Port = n
				}
			}
			if u, _ := cfg.Get(host, "User"); u != "" && t.User == "" {
				t.User = u
			}
		}
	}

	if user != "" {
		t.User = user
	}
	if port > 0 {
		t.Port = port
	}
	return t
}

// Dial establishes an authenticated SSH connection.
//
// Authentication is attempted in a fixed order: the SSH agent first, then a
// password from opts.PasswordFunc. A rejected agent key is never reported on
// its own; only the combined failure surfaces as an auth error.
func Dial(ctx context.Context, opts DialOptions) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewEnvLogger("ssh")
	}

	target := ResolveTarget(opts.Host, opts.User, opts.Port, opts.SSHConfigPath)
	if target.User == "" {
		if opts.UserFunc != nil {
			u, err := opts.UserFunc(target.Alias)
			if err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrAuth,
					"No username to log in with",
					"Pass one with -u <user>, or set User in ~/.ssh/config")
			}
			target.User = u
		} else {
			target.User = currentUser()
		}
	}

	client := &Client{
		Host:    opts.Host,
		Address: target.Address(),
		User:    target.User,
		log:     log,
	}

	config, err := client.buildSSHConfig(target, opts)
	if err != nil {
		client.closeAgent()
		var rmErr *errors.Error
		if stderrors.As(err, &rmErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", opts.Host),
			"Check ~/.ssh/known_hosts is readable, or pass --insecure")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	log.Debug("dialing %s as %s", client.Address, target.User)
	conn, err := dialer.DialContext(ctx, "tcp", client.Address)
	if err != nil {
		client.closeAgent()
		return nil, errors.WrapWithCode(err, errors.ErrNetwork,
			fmt.Sprintf("Can't reach '%s' at %s", opts.Host, client.Address),
			suggestionForDialError(err))
	}

	// The handshake may block on a password prompt, so it is bounded by ctx
	// rather than a fixed deadline.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, client.Address, config)
	stop()
	if err != nil {
		conn.Close()
		client.closeAgent()
		return nil, classifyHandshakeError(err, opts.Host)
	}

	client.conn = ssh.NewClient(sshConn, chans, reqs)
	log.Debug("connected to %s (password auth: %v)", client.Address, client.passwordUsed)
	return client, nil
}

// classifyHandshakeError maps a failed handshake onto a structured error.
func classifyHandshakeError(err error, host string) error {
	var hostKeyErr *HostKeyMismatchError
	if stderrors.As(err, &hostKeyErr) {
		return errors.New(errors.ErrSSH, hostKeyErr.Error(), hostKeyErr.Suggestion())
	}

	var rmErr *errors.Error
	if stderrors.As(err, &rmErr) {
		return rmErr
	}

	if isAuthError(err) {
		return errors.WrapWithCode(err, errors.ErrAuth,
			fmt.Sprintf("Authentication to '%s' failed", host),
			suggestionForHandshakeError(err))
	}

	return errors.WrapWithCode(err, errors.ErrSSH,
		fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
		suggestionForHandshakeError(err))
}

func isAuthError(err error) bool {
	s := err.Error()
	return strings.Contains(s, "unable to authenticate") || strings.Contains(s, "no supported methods")
}

// Close closes the SSH connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		// Not under mu: closing the transport unblocks an in-flight Exec.
		c.closed.Store(true)
		if c.conn != nil {
			c.closeErr = c.conn.Close()
		}
		c.closeAgent()
	})
	return c.closeErr
}

func (c *Client) closeAgent() {
	if c.agentConn != nil {
		c.agentConn.Close()
		c.agentConn = nil
	}
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// UsedPassword reports whether the session was authenticated by password.
func (c *Client) UsedPassword() bool {
	return c.passwordUsed
}

// buildSSHConfig creates an SSH client config with the agent-then-password auth chain.
func (c *Client) buildSSHConfig(target Target, opts DialOptions) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if agentAuth := c.sshAgentAuth(opts.Agent); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}

	if opts.PasswordFunc != nil {
		authMethods = append(authMethods, ssh.PasswordCallback(func() (string, error) {
			c.log.Debug("agent auth unavailable or rejected, asking for password")
			pw, err := opts.PasswordFunc(target.User, target.Alias)
			if err == nil {
				c.passwordUsed = true
			}
			return pw, err
		}))
	}

	if len(authMethods) == 0 {
		return nil, errors.New(errors.ErrAuth,
			"No SSH auth methods available",
			"Load a key into your agent (ssh-add) or run from an interactive terminal to enter a password")
	}

	hostKeyCallback := opts.HostKeyCallback
	if hostKeyCallback == nil {
		if opts.StrictHostKeyChecking {
			knownHostsPath := opts.KnownHostsPath
			if knownHostsPath == "" {
				knownHostsPath = filepath.Join(homeDir(), ".ssh", "known_hosts")
			}
			var err error
			hostKeyCallback, err = createHostKeyCallback(knownHostsPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load known_hosts: %w", err)
			}
		} else {
			hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // User explicitly disabled host key checking
		}
	}

	return &ssh.ClientConfig{
		User:            target.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
	}, nil
}

// sshAgentAuth returns an auth method using the SSH agent if available.
// Returns nil if there is no agent or it has no keys loaded.
func (c *Client) sshAgentAuth(ag agent.Agent) ssh.AuthMethod {
	if ag == nil {
		socket := os.Getenv("SSH_AUTH_SOCK")
		if socket == "" {
			return nil
		}
		conn, err := net.Dial("unix", socket)
		if err != nil {
			c.log.Debug("ssh agent unreachable: %v", err)
			return nil
		}
		c.agentConn = conn
		ag = agent.NewClient(conn)
	}

	// An empty agent causes auth failures when placed before other methods.
	signers, err := ag.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeysCallback(ag.Signers)
}

// Helper functions

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "no such host") {
		return "The hostname didn't resolve. Check for typos or add it to ~/.ssh/config."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		return "Neither your agent keys nor the password were accepted. Check: ssh-add -l, and the username"
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the server was reinstalled, remove the old entry:\n"+
			"    ssh-keygen -R %s",
		wantStr, e.ReceivedType, host)
}

// preprocessSSHConfig reads the SSH config and returns content up to the first Match directive.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

// createHostKeyCallback wraps the knownhosts callback to provide better error messages.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		dir := filepath.Dir(knownHostsPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err != nil {
			var keyErr *knownhosts.KeyError
			if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
				return &HostKeyMismatchError{
					Hostname:     hostname,
					ReceivedType: key.Type(),
					KnownHosts:   knownHostsPath,
					Want:         keyErr.Want,
				}
			}
			if stderrors.As(err, &keyErr) {
				return fmt.Errorf("host key for %s is not in %s: %w", hostname, knownHostsPath, err)
			}
		}
		return err
	}, nil
}
