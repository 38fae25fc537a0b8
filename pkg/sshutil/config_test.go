package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseSSHConfigFile(t *testing.T) {
	path := writeSSHConfig(t, `
Host web1
    HostName 192.168.1.100
    User deploy
    Port 22
    IdentityFile ~/.ssh/id_web1

Host db
    HostName db.internal
    ProxyJump bastion

Host bastion !blocked
    HostName bastion.example.com

Host *
    User fallback
    ServerAliveInterval 60

Host work-?? staging-*
    User workuser
`)

	hosts, err := ParseSSHConfigFile(path)
	require.NoError(t, err)

	want := []SSHHostEntry{
		{Alias: "bastion", Hostname: "bastion.example.com", User: "fallback"},
		{Alias: "db", Hostname: "db.internal", User: "fallback", ProxyJump: "bastion"},
		{Alias: "web1", Hostname: "192.168.1.100", User: "deploy", Port: "22"},
	}
	assert.Equal(t, want, hosts, "wildcard and negated patterns are skipped, inherited values kept")
}

func TestParseSSHConfigFile_Edges(t *testing.T) {
	tests := []struct {
		name    string
		content string
		aliases []string
	}{
		{name: "empty", content: "", aliases: []string{}},
		{name: "comments only", content: "# one\n\n# two\n", aliases: []string{}},
		{
			name:    "duplicate alias keeps first block",
			content: "Host dup\n  HostName first\n\nHost dup\n  HostName second\n",
			aliases: []string{"dup"},
		},
		{
			name:    "several aliases on one line",
			content: "Host s3 s1 s2\n  Port 2222\n",
			aliases: []string{"s1", "s2", "s3"},
		},
		{
			name:    "stops at Match",
			content: "Host before\n  HostName a\n\nMatch host *.example.com\n  User m\n\nHost after\n  HostName b\n",
			aliases: []string{"before"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hosts, err := ParseSSHConfigFile(writeSSHConfig(t, tt.content))
			require.NoError(t, err)
			got := []string{}
			for _, h := range hosts {
				got = append(got, h.Alias)
			}
			assert.Equal(t, tt.aliases, got)
		})
	}

	t.Run("duplicate resolves to first HostName", func(t *testing.T) {
		hosts, err := ParseSSHConfigFile(writeSSHConfig(t, "Host dup\n  HostName first\n\nHost dup\n  HostName second\n"))
		require.NoError(t, err)
		require.Len(t, hosts, 1)
		assert.Equal(t, "first", hosts[0].Hostname)
	})
}

func TestParseSSHConfigFile_Missing(t *testing.T) {
	hosts, err := ParseSSHConfigFile("/nonexistent/config")
	assert.NoError(t, err)
	assert.Nil(t, hosts)
}

func TestSSHHostEntry_Description(t *testing.T) {
	tests := []struct {
		name  string
		entry SSHHostEntry
		want  string
	}{
		{"alias only", SSHHostEntry{Alias: "web1"}, "web1"},
		{"hostname", SSHHostEntry{Alias: "web1", Hostname: "10.0.0.1"}, "10.0.0.1"},
		{"user", SSHHostEntry{Alias: "web1", User: "deploy"}, "deploy@web1"},
		{"default port hidden", SSHHostEntry{Alias: "web1", Hostname: "10.0.0.1", Port: "22"}, "10.0.0.1"},
		{"custom port", SSHHostEntry{Alias: "web1", Hostname: "10.0.0.1", User: "deploy", Port: "2222"}, "deploy@10.0.0.1:2222"},
		{"ipv6 with port", SSHHostEntry{Alias: "v6", Hostname: "fe80::1", Port: "2200"}, "[fe80::1]:2200"},
		{"jump host", SSHHostEntry{Alias: "db", Hostname: "db.internal", ProxyJump: "bastion"}, "db.internal via bastion"},
		{"jump disabled", SSHHostEntry{Alias: "db", ProxyJump: "none"}, "db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Description())
		})
	}
}
