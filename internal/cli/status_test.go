package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
	sshtest "github.com/rileyhilliard/rmon/pkg/sshutil/testing"
)

func TestStatus_Table(t *testing.T) {
	a, stdout, stderr := newTestApp(t)
	client := healthyLinuxClient("web1")
	var opts sshutil.DialOptions
	a.dial = dialTo(client, &opts)

	code := run(context.Background(), a, []string{"status", "-H", "web1", "-u", "deploy", "-P", "2222"})
	require.Equal(t, errors.ExitOK, code, stderr.String())

	assert.Equal(t, "web1", opts.Host)
	assert.Equal(t, "deploy", opts.User)
	assert.Equal(t, 2222, opts.Port)
	assert.True(t, opts.StrictHostKeyChecking)
	assert.Nil(t, opts.PasswordFunc, "no prompt or keyring without a terminal")
	assert.Nil(t, opts.UserFunc)

	out := ansi.Strip(stdout.String())
	assert.Contains(t, out, "web1 (linux)")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "1.9 GiB / 7.5 GiB")
	assert.Contains(t, out, "37 GiB / 93 GiB on /")
	assert.Contains(t, out, "40.0%")
	assert.NotContains(t, out, "n/a")

	assert.Contains(t, ansi.Strip(stderr.String()), "Connecting to web1")
	assert.Equal(t, 1, client.CloseCount(), "session closed on exit")
}

func TestStatus_JSON(t *testing.T) {
	a, stdout, stderr := newTestApp(t)
	a.dial = dialTo(healthyLinuxClient("web1"), nil)

	code := run(context.Background(), a, []string{"status", "-H", "web1", "-o", "json"})
	require.Equal(t, errors.ExitOK, code, stderr.String())
	assert.Empty(t, stderr.String(), "spinner stays quiet for machine output")

	var env struct {
		Success bool         `json:"success"`
		Data    StatusReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "web1", env.Data.Host)
	assert.Equal(t, "linux", env.Data.Dialect)
	require.NotNil(t, env.Data.CPUPercent)
	assert.InDelta(t, 25.0, *env.Data.CPUPercent, 0.001)
	require.NotNil(t, env.Data.Memory)
	assert.Equal(t, int64(2000000000), env.Data.Memory.UsedBytes)
	assert.Equal(t, int64(8000000000), env.Data.Memory.TotalBytes)
	require.NotNil(t, env.Data.Disk)
	assert.Equal(t, "/", env.Data.Disk.Path)
	assert.InDelta(t, 40.0, env.Data.Disk.Percent, 0.001)
	assert.Empty(t, env.Data.Errors)
}

func TestStatus_YAML(t *testing.T) {
	a, stdout, stderr := newTestApp(t)
	a.dial = dialTo(healthyLinuxClient("web1"), nil)

	code := run(context.Background(), a, []string{"status", "-H", "web1", "-o", "YAML"})
	require.Equal(t, errors.ExitOK, code, stderr.String())

	var report StatusReport
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, "web1", report.Host)
	require.NotNil(t, report.CPUPercent)
	assert.InDelta(t, 25.0, *report.CPUPercent, 0.001)
	require.NotNil(t, report.Disk)
	assert.Equal(t, "/", report.Disk.Path)
	assert.Contains(t, stdout.String(), "used_bytes: 2000000000")
}

func TestStatus_PartialSampleWarnsAndExitsZero(t *testing.T) {
	a, stdout, stderr := newTestApp(t)
	client := healthyLinuxClient("web1")
	sshtest.WithFailure(client, monitor.DialectLinux.DiskCommand("/"), 1, "df: /: No such file or directory")
	a.dial = dialTo(client, nil)

	code := run(context.Background(), a, []string{"status", "-H", "web1", "-o", "json"})
	require.Equal(t, errors.ExitOK, code)
	assert.Contains(t, stderr.String(), "disk unavailable")

	var env struct {
		Data StatusReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &env))
	assert.NotNil(t, env.Data.CPUPercent)
	assert.NotNil(t, env.Data.Memory)
	assert.Nil(t, env.Data.Disk)
	require.Len(t, env.Data.Errors, 1)
	assert.Equal(t, "disk", env.Data.Errors[0].Metric)
	assert.Contains(t, stdout.String(), `"disk": null`)
}

func TestStatus_PartialSampleTableShowsNA(t *testing.T) {
	a, stdout, _ := newTestApp(t)
	client := healthyLinuxClient("web1")
	client.SetCommandResponse(monitor.DialectLinux.CPUCommand(), sshtest.CommandResponse{Stdout: []byte("garbage")})
	a.dial = dialTo(client, nil)

	code := run(context.Background(), a, []string{"status", "-H", "web1"})
	require.Equal(t, errors.ExitOK, code)

	out := ansi.Strip(stdout.String())
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "25.0%", "memory still shown")
}

func TestStatus_AllMetricsFailing(t *testing.T) {
	a, stdout, stderr := newTestApp(t)
	a.dial = dialTo(sshtest.NewMockClient("web1"), nil)

	code := run(context.Background(), a, []string{"status", "-H", "web1", "-o", "json"})
	assert.Equal(t, errors.ExitGeneric, code)
	assert.Empty(t, stderr.String(), "JSON mode reports the error on stdout only")

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeCommandFailed, env.Error.Code)
	assert.Equal(t, errors.ExitGeneric, env.Error.ExitCode)
}

func TestStatus_UnknownFormat(t *testing.T) {
	a, _, stderr := newTestApp(t)

	code := run(context.Background(), a, []string{"status", "-H", "web1", "-o", "xml"})
	assert.Equal(t, errors.ExitConfig, code)
	assert.Contains(t, stderr.String(), "Unknown output format 'xml'")
}

func TestStatus_InsecureAndDiskPath(t *testing.T) {
	a, stdout, stderr := newTestApp(t)
	client := healthyLinuxClient("web1")
	sshtest.WithStdout(client, map[string]string{
		monitor.DialectLinux.DiskCommand("/var"): strings.Replace(dfOutput, " /", " /var", 1),
	})
	var opts sshutil.DialOptions
	a.dial = dialTo(client, &opts)

	code := run(context.Background(), a, []string{"status", "-H", "web1", "--insecure", "--disk-path", "/var", "-o", "json"})
	require.Equal(t, errors.ExitOK, code, stderr.String())
	assert.False(t, opts.StrictHostKeyChecking)
	assert.Contains(t, stdout.String(), `"path": "/var"`)
}

func TestStatus_ConfigFile(t *testing.T) {
	a, stdout, stderr := newTestApp(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "rmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: db1\nuser: admin\nport: 2200\n"), 0o644))

	var opts sshutil.DialOptions
	a.dial = dialTo(healthyLinuxClient("db1"), &opts)

	code := run(context.Background(), a, []string{"status", "--config", path, "-o", "json"})
	require.Equal(t, errors.ExitOK, code, stderr.String())
	assert.Equal(t, "db1", opts.Host)
	assert.Equal(t, "admin", opts.User)
	assert.Equal(t, 2200, opts.Port)
	assert.Contains(t, stdout.String(), `"host": "db1"`)
}

func TestNewStatusReport(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := monitor.EmptySample(ts)
	s.CPUPercent = 12.5
	partial := &monitor.PartialSampleError{Failures: []monitor.MetricFailure{
		{Metric: monitor.MetricMemory, Err: errors.New(errors.ErrParse, "couldn't parse memory output", "")},
		{Metric: monitor.MetricDisk, Err: assert.AnError},
	}}

	r := newStatusReport("web1", "web1:22", "", monitor.DialectDarwin, s, partial)
	assert.Equal(t, "darwin", r.Dialect)
	assert.Equal(t, ts, r.Timestamp)
	require.NotNil(t, r.CPUPercent)
	assert.Equal(t, 12.5, *r.CPUPercent)
	assert.Nil(t, r.Memory)
	assert.Nil(t, r.Disk)
	assert.Equal(t, []MetricReport{
		{Metric: "memory", Message: "couldn't parse memory output"},
		{Metric: "disk", Message: assert.AnError.Error()},
	}, r.Errors)
}

func TestRenderStatusTable_Thresholds(t *testing.T) {
	cpu := 95.0
	r := StatusReport{
		Host:       "web1",
		Address:    "10.0.0.1:22",
		Dialect:    "linux",
		CPUPercent: &cpu,
		Errors:     []MetricReport{{Metric: "memory", Message: "free: not found"}},
	}

	out := ansi.Strip(renderStatusTable(r, config.DefaultConfig().Thresholds))
	assert.Contains(t, out, "web1 (linux) 10.0.0.1:22")
	assert.NotContains(t, out, " at ", "no timestamp without a sample")
	assert.Contains(t, out, "95.0%")
	assert.Contains(t, out, "free: not found")
	assert.Equal(t, 2, strings.Count(out, "n/a"))
}
