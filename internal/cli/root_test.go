package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
	sshtest "github.com/rileyhilliard/rmon/pkg/sshutil/testing"
)

const (
	topOutput = `top - 10:30:45 up 12 days,  3:04,  1 user,  load average: 0.52, 0.58, 0.59
Tasks: 231 total,   1 running, 230 sleeping,   0 stopped,   0 zombie
%Cpu(s): 20.0 us,  5.0 sy,  0.0 ni, 75.0 id,  0.0 wa,  0.0 hi,  0.0 si,  0.0 st`

	freeOutput = `               total        used        free      shared  buff/cache   available
Mem:      8000000000  2000000000  1000000000   364990464  5000000000  5500000000
Swap:     2147479552           0  2147479552`

	dfOutput = `Filesystem        1-blocks        Used   Available Capacity Mounted on
/dev/sda1      100000000000 40000000000 60000000000      40% /`
)

// fakeSession adds UsedPassword to the mock client.
type fakeSession struct {
	*sshtest.MockClient
	usedPassword bool
}

func (f *fakeSession) UsedPassword() bool { return f.usedPassword }

// healthyLinuxClient answers every inspection command for a Linux host.
func healthyLinuxClient(host string) *sshtest.MockClient {
	client := sshtest.NewMockClient(host)
	sshtest.WithStdout(client, map[string]string{
		monitor.DialectLinux.CPUCommand():     topOutput,
		monitor.DialectLinux.MemoryCommand():  freeOutput,
		monitor.DialectLinux.DiskCommand("/"): dfOutput,
	})
	return client
}

// memoryStore is an in-memory PasswordStore.
type memoryStore struct {
	mu        sync.Mutex
	passwords map[string]string
	sets      int
	deletes   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{passwords: make(map[string]string)}
}

func (m *memoryStore) Get(user, host string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pw, ok := m.passwords[keyringAccount(user, host)]
	if !ok {
		return "", ErrPasswordNotFound
	}
	return pw, nil
}

func (m *memoryStore) Set(user, host, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.passwords[keyringAccount(user, host)] = password
	return nil
}

func (m *memoryStore) Delete(user, host string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if _, ok := m.passwords[keyringAccount(user, host)]; !ok {
		return ErrPasswordNotFound
	}
	delete(m.passwords, keyringAccount(user, host))
	return nil
}

// newTestApp returns an app with buffered streams, an isolated HOME and a
// dialer that fails the test unless replaced.
func newTestApp(t *testing.T) (*app, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"RMON_HOST", "RMON_DEBUG", "RMON_LOG_FILE", "RMON_INTERVAL"} {
		t.Setenv(key, "")
	}

	var stdout, stderr bytes.Buffer
	a := &app{
		stdin:  strings.NewReader(""),
		stdout: &stdout,
		stderr: &stderr,
		store:  newMemoryStore(),
		dial: func(ctx context.Context, opts sshutil.DialOptions) (session, error) {
			t.Errorf("unexpected dial to %s", opts.Host)
			return nil, stderrors.New("unexpected dial")
		},
		promptUser: func(host string) (string, error) {
			return "", stderrors.New("no prompts in tests")
		},
		promptPassword: func(user, host string) (string, error) {
			return "", stderrors.New("no prompts in tests")
		},
	}
	return a, &stdout, &stderr
}

// dialTo makes a dial into client and records the options it was given.
func dialTo(client *sshtest.MockClient, got *sshutil.DialOptions) dialFunc {
	return func(ctx context.Context, opts sshutil.DialOptions) (session, error) {
		if got != nil {
			*got = opts
		}
		return &fakeSession{MockClient: client}, nil
	}
}

func TestRun_NoArgsPrintsHelp(t *testing.T) {
	a, stdout, _ := newTestApp(t)

	code := run(context.Background(), a, nil)
	assert.Equal(t, errors.ExitOK, code)
	assert.Contains(t, stdout.String(), "rmon status")
	assert.Contains(t, stdout.String(), "monitor")
}

func TestRun_UsageErrorsExitTwo(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"unknown flag", []string{"status", "--frobnicate"}},
		{"bad flag value", []string{"status", "-P", "abc"}},
		{"extra args", []string{"version", "extra"}},
		{"bad shell", []string{"completion", "tcsh"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, stderr := newTestApp(t)

			code := run(context.Background(), a, tt.args)
			assert.Equal(t, errors.ExitConfig, code)
			assert.True(t, strings.HasPrefix(stderr.String(), "✗ "), "got %q", stderr.String())
		})
	}
}

func TestRun_MissingHostIsConfigError(t *testing.T) {
	a, _, stderr := newTestApp(t)

	code := run(context.Background(), a, []string{"status"})
	assert.Equal(t, errors.ExitConfig, code)
	assert.Contains(t, stderr.String(), "No host to connect to")
}

func TestRun_ExitCodeFollowsErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth", errors.New(errors.ErrAuth, "Authentication to 'web1' failed", ""), errors.ExitAuth},
		{"network", errors.New(errors.ErrNetwork, "Can't reach 'web1'", ""), errors.ExitNetwork},
		{"ssh", errors.New(errors.ErrSSH, "handshake", ""), errors.ExitNetwork},
		{"plain", stderrors.New("boom"), errors.ExitGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, stderr := newTestApp(t)
			a.dial = func(ctx context.Context, opts sshutil.DialOptions) (session, error) {
				return nil, tt.err
			}

			code := run(context.Background(), a, []string{"status", "-H", "web1"})
			assert.Equal(t, tt.want, code)
			assert.Contains(t, stderr.String(), "✗")
		})
	}
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "✗ boom\n", formatError(stderrors.New("boom")))

	structured := errors.New(errors.ErrConfig, "Bad port", "Use 1-65535")
	assert.Equal(t, structured.Error(), formatError(structured))
}

func TestIsUsageError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{`unknown command "foo" for "rmon"`, true},
		{"unknown flag: --foo", true},
		{"unknown shorthand flag: 'x' in -x", true},
		{`invalid argument "tcsh" for "rmon completion"`, true},
		{"accepts 1 arg(s), received 0", true},
		{"connection failed", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isUsageError(stderrors.New(tt.msg)))
		})
	}
}

func TestNewRootCmd_Commands(t *testing.T) {
	a, _, _ := newTestApp(t)
	root := newRootCmd(a)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"status", "monitor", "version", "completion"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "debug", "log-file", "no-color", "insecure", "keyring", "command-timeout"} {
		require.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}
