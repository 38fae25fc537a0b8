package testing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error

	// Delay simulates a slow command. Exec honors ctx while waiting.
	Delay time.Duration
}

type rule struct {
	pattern   string
	re        *regexp.Regexp
	responses []CommandResponse
	next      int
}

// MockClient simulates an SSH connection for testing.
// Commands are matched against registered patterns in registration order;
// exact matches win over regex matches.
type MockClient struct {
	mu         sync.Mutex
	host       string
	address    string
	uname      string
	closed     bool
	closeCount int
	rules      []*rule
	calls      []string
	inFlight   int
	maxFlight  int
}

var _ sshutil.SSHClient = (*MockClient)(nil)

// NewMockClient creates a new mock SSH client that reports itself as Linux.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:    host,
		address: host + ":22",
		uname:   "Linux",
	}
}

// SetOS sets the answer to `uname -s` when no rule matches it.
func (m *MockClient) SetOS(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uname = name
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern. Registering the
// same pattern again replaces the earlier response.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.SetCommandSequence(pattern, resp)
}

// SetCommandSequence registers responses returned one per call, in order.
// Once exhausted, the last response repeats.
func (m *MockClient) SetCommandSequence(pattern string, resps ...CommandResponse) {
	if len(resps) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	re, _ := regexp.Compile(pattern)
	for _, r := range m.rules {
		if r.pattern == pattern {
			r.re = re
			r.responses = resps
			r.next = 0
			return
		}
	}
	m.rules = append(m.rules, &rule{pattern: pattern, re: re, responses: resps})
}

// Exec returns the registered response for cmd.
func (m *MockClient) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errors.New("connection closed")
	}
	m.calls = append(m.calls, cmd)
	resp, ok := m.match(cmd)
	m.inFlight++
	if m.inFlight > m.maxFlight {
		m.maxFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, nil, -1, ctx.Err()
		}
	}

	if !ok {
		return nil, []byte(fmt.Sprintf("sh: %s: command not found\n", cmd)), 127, nil
	}
	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
}

// match finds the response for cmd. Caller holds m.mu.
func (m *MockClient) match(cmd string) (CommandResponse, bool) {
	var hit *rule
	for _, r := range m.rules {
		if r.pattern == cmd {
			hit = r
			break
		}
	}
	if hit == nil {
		for _, r := range m.rules {
			if r.re != nil && r.re.MatchString(cmd) {
				hit = r
				break
			}
		}
	}

	if hit == nil {
		if cmd == "uname -s" {
			return CommandResponse{Stdout: []byte(m.uname + "\n")}, true
		}
		return CommandResponse{}, false
	}

	resp := hit.responses[hit.next]
	if hit.next < len(hit.responses)-1 {
		hit.next++
	}
	return resp, true
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCount++
	return nil
}

// IsClosed reports whether Close has been called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CloseCount returns how many times Close was called.
func (m *MockClient) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

// Calls returns every command passed to Exec, in order.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// MaxConcurrent returns the highest number of Exec calls seen running at once.
func (m *MockClient) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFlight
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}
