package sshutil

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/rmon/internal/errors"
	"golang.org/x/crypto/ssh"
)

// abandonGrace bounds how long Exec waits for a cancelled command to unwind
// after its session is closed.
var abandonGrace = 2 * time.Second

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all.
//
// Each call opens its own session. Calls are serialized, so a second Exec
// waits for the first to finish. If ctx is done before the command exits,
// the session is closed, Exec waits up to abandonGrace for the command to
// unwind so the next call doesn't overlap it, and an ErrExec error is
// returned.
func (c *Client) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() || c.conn == nil {
		return nil, nil, -1, errors.New(errors.ErrSSH,
			"SSH connection is closed",
			"Reconnect to the host and try again.")
	}

	session, err := c.conn.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	done := make(chan error, 1)
	c.running.Add(1)
	go func() {
		runErr := session.Run(cmd)
		c.running.Add(-1)
		done <- runErr
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		session.Close()
		select {
		case <-done:
		case <-time.After(abandonGrace):
			c.log.Warn("command %q still running %s after its session was closed", cmd, abandonGrace)
		}
		c.log.Warn("command %q abandoned: %v", cmd, ctx.Err())
		return nil, nil, -1, errors.WrapWithCode(ctx.Err(), errors.ErrExec,
			fmt.Sprintf("Command didn't finish in time: %s", cmd),
			"The host may be overloaded. Raise --command-timeout or check the host.")
	}

	exitCode = 0
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
		} else {
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("Failed to execute command: %s", cmd),
				"Check if the command exists on the remote host.")
		}
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, nil
}
