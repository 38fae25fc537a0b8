package sshutil

import (
	"bytes"
	"cmp"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// SSHHostEntry is one concrete Host alias from ~/.ssh/config, with the
// values ssh would resolve for it.
type SSHHostEntry struct {
	Alias     string
	Hostname  string
	User      string
	Port      string
	ProxyJump string
}

// Target renders the entry the way it would be typed on the ssh command
// line: [user@]host[:port]. The default port is left off.
func (h SSHHostEntry) Target() string {
	host := h.Hostname
	if host == "" {
		host = h.Alias
	}
	if h.Port != "" && h.Port != "22" {
		host = net.JoinHostPort(host, h.Port)
	}
	if h.User != "" {
		host = h.User + "@" + host
	}
	return host
}

// Description is the picker and completion hint for the entry.
func (h SSHHostEntry) Description() string {
	desc := h.Target()
	if h.ProxyJump != "" && h.ProxyJump != "none" {
		desc += " via " + h.ProxyJump
	}
	return desc
}

// ParseSSHConfig lists the host aliases in ~/.ssh/config.
func ParseSSHConfig() ([]SSHHostEntry, error) {
	return ParseSSHConfigFile(filepath.Join(homeDir(), ".ssh", "config"))
}

// ParseSSHConfigFile lists the concrete aliases in configPath sorted by
// name. Wildcard and negated patterns only contribute settings. A missing
// file yields no entries.
func ParseSSHConfigFile(configPath string) ([]SSHHostEntry, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	byAlias := make(map[string]SSHHostEntry)
	for _, host := range cfg.Hosts {
		for _, p := range host.Patterns {
			alias := p.String()
			if !concreteAlias(alias) {
				continue
			}
			if _, dup := byAlias[alias]; dup {
				continue
			}
			byAlias[alias] = resolveEntry(cfg, alias)
		}
	}

	entries := make([]SSHHostEntry, 0, len(byAlias))
	for _, e := range byAlias {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b SSHHostEntry) int {
		return cmp.Compare(a.Alias, b.Alias)
	})
	return entries, nil
}

func concreteAlias(pattern string) bool {
	return pattern != "" && !strings.HasPrefix(pattern, "!") && !strings.ContainsAny(pattern, "*?")
}

// resolveEntry asks the decoded config what ssh would use for alias, so
// values inherited from wildcard blocks are included.
func resolveEntry(cfg *ssh_config.Config, alias string) SSHHostEntry {
	get := func(key string) string {
		v, _ := cfg.Get(alias, key)
		return strings.TrimSpace(v)
	}
	return SSHHostEntry{
		Alias:     alias,
		Hostname:  get("HostName"),
		User:      get("User"),
		Port:      get("Port"),
		ProxyJump: get("ProxyJump"),
	}
}
