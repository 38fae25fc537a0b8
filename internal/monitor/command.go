package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// Dialect is the family of remote tools the sampler talks to.
type Dialect string

const (
	// DialectLinux uses procps top, free and GNU df.
	DialectLinux Dialect = "linux"
	// DialectDarwin uses BSD top, vm_stat, sysctl and df.
	DialectDarwin Dialect = "darwin"
)

// DetectCommand identifies the remote OS once after connecting.
const DetectCommand = "uname -s"

// localePrefix pins tool output to the C locale so decimal points and
// column headers are stable.
const localePrefix = "LC_ALL=C "

// ParseDialect maps `uname -s` output to a Dialect.
// Anything that isn't Darwin falls back to Linux.
func ParseDialect(unameOutput string) Dialect {
	if strings.TrimSpace(unameOutput) == "Darwin" {
		return DialectDarwin
	}
	return DialectLinux
}

// DetectDialect asks the remote host for its OS name, giving up after
// timeout (zero means no bound). Any failure, including a timeout, falls
// back to Linux.
func DetectDialect(ctx context.Context, client sshutil.SSHClient, timeout time.Duration) Dialect {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	stdout, _, code, err := client.Exec(ctx, DetectCommand)
	if err != nil || code != 0 {
		return DialectLinux
	}
	return ParseDialect(string(stdout))
}

// CPUCommand returns the command for one CPU snapshot.
func (d Dialect) CPUCommand() string {
	if d == DialectDarwin {
		return localePrefix + "top -l 1 -n 0"
	}
	return localePrefix + "top -bn1 | head -n 5"
}

// MemoryCommand returns the memory inspection command.
func (d Dialect) MemoryCommand() string {
	if d == DialectDarwin {
		return localePrefix + "vm_stat; sysctl hw.memsize"
	}
	return localePrefix + "free -b"
}

// DiskCommand returns the df invocation for path.
func (d Dialect) DiskCommand(path string) string {
	if d == DialectDarwin {
		return localePrefix + "df -P -k " + shellQuote(path)
	}
	return localePrefix + "df -P -B1 " + shellQuote(path)
}

// DiskBlockSize is the byte size of one block in DiskCommand output.
func (d Dialect) DiskBlockSize() int64 {
	if d == DialectDarwin {
		return 1024
	}
	return 1
}

// ParseMemory parses MemoryCommand output.
func (d Dialect) ParseMemory(output string) (parsers.MemoryUsage, error) {
	if d == DialectDarwin {
		return parsers.ParseVMStatMemory(output)
	}
	return parsers.ParseFreeMemory(output)
}

// shellQuote wraps s in single quotes for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
