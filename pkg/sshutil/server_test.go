package sshutil

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// testServer is a minimal in-process SSH server. It accepts one user with a
// password, optionally one public key, and answers "exec" requests from a
// canned command table.
type testServer struct {
	addr    string
	hostKey ssh.Signer

	publicKeyTries atomic.Int32
	passwordTries  atomic.Int32

	mu       sync.Mutex
	commands map[string]cannedOutput

	stop chan struct{}
}

type cannedOutput struct {
	stdout string
	stderr string
	status uint32
	hang   bool
}

func newSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

// startTestServer listens on 127.0.0.1 and serves until the test ends.
// acceptKey may be nil to reject every public key.
func startTestServer(t *testing.T, user, password string, acceptKey ssh.PublicKey) *testServer {
	t.Helper()

	s := &testServer{
		hostKey:  newSigner(t),
		commands: make(map[string]cannedOutput),
		stop:     make(chan struct{}),
	}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			s.passwordTries.Add(1)
			if c.User() == user && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %s", c.User())
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			s.publicKeyTries.Add(1)
			if acceptKey != nil && c.User() == user && bytes.Equal(key.Marshal(), acceptKey.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("key rejected")
		},
	}
	cfg.AddHostKey(s.hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.addr = ln.Addr().String()

	t.Cleanup(func() {
		close(s.stop)
		ln.Close()
	})

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serveConn(nc, cfg)
		}
	}()

	return s
}

func (s *testServer) setCommand(cmd string, out cannedOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[cmd] = out
}

func (s *testServer) serveConn(nc net.Conn, cfg *ssh.ServerConfig) {
	defer nc.Close()
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "only sessions")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.serveSession(ch, requests)
	}
}

func (s *testServer) serveSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()
	for req := range requests {
		if req.Type != "exec" {
			req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			req.Reply(false, nil)
			return
		}
		req.Reply(true, nil)

		s.mu.Lock()
		out, ok := s.commands[payload.Command]
		s.mu.Unlock()
		if !ok {
			out = cannedOutput{stderr: "sh: command not found\n", status: 127}
		}

		if out.hang {
			select {
			case <-s.stop:
			case <-time.After(10 * time.Second):
			}
			return
		}

		ch.Write([]byte(out.stdout))
		ch.Stderr().Write([]byte(out.stderr))
		ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{out.status}))
		return
	}
}
