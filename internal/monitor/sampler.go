package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// Sampler collects CPU, memory and disk usage from one remote host.
type Sampler struct {
	client   sshutil.SSHClient
	dialect  Dialect
	diskPath string
	timeout  time.Duration
	log      logger.Logger
	now      func() time.Time
}

// NewSampler creates a sampler issuing dialect's commands over client.
// An empty diskPath means "/".
func NewSampler(client sshutil.SSHClient, dialect Dialect, diskPath string) *Sampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Sampler{
		client:   client,
		dialect:  dialect,
		diskPath: diskPath,
		log:      logger.Noop(),
		now:      time.Now,
	}
}

// SetTimeout bounds each remote command. Zero means no bound.
func (s *Sampler) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// SetLogger sets the logger used for per-command diagnostics.
func (s *Sampler) SetLogger(l logger.Logger) {
	if l == nil {
		l = logger.Noop()
	}
	s.log = l
}

// Dialect returns the dialect the sampler was built for.
func (s *Sampler) Dialect() Dialect {
	return s.dialect
}

// Sample runs the CPU, memory and disk commands in that order.
//
// A failure in one command only marks that metric Unavailable. The returned
// error is nil when all three succeed and a *PartialSampleError otherwise;
// the Sample is always usable.
func (s *Sampler) Sample(ctx context.Context) (Sample, error) {
	sample := EmptySample(s.now())
	var failures []MetricFailure

	if out, err := s.run(ctx, MetricCPU, s.dialect.CPUCommand()); err != nil {
		failures = append(failures, MetricFailure{Metric: MetricCPU, Err: err})
	} else if cpu, err := parsers.ParseTopCPU(out); err != nil {
		failures = append(failures, MetricFailure{Metric: MetricCPU, Err: parseError(MetricCPU, err)})
	} else {
		sample.CPUPercent = cpu
	}

	if out, err := s.run(ctx, MetricMemory, s.dialect.MemoryCommand()); err != nil {
		failures = append(failures, MetricFailure{Metric: MetricMemory, Err: err})
	} else if mem, err := s.dialect.ParseMemory(out); err != nil {
		failures = append(failures, MetricFailure{Metric: MetricMemory, Err: parseError(MetricMemory, err)})
	} else {
		sample.MemoryUsedBytes = mem.UsedBytes
		sample.MemoryTotalBytes = mem.TotalBytes
	}

	if out, err := s.run(ctx, MetricDisk, s.dialect.DiskCommand(s.diskPath)); err != nil {
		failures = append(failures, MetricFailure{Metric: MetricDisk, Err: err})
	} else if disk, err := parsers.ParseDF(out, s.dialect.DiskBlockSize()); err != nil {
		failures = append(failures, MetricFailure{Metric: MetricDisk, Err: parseError(MetricDisk, err)})
	} else {
		sample.DiskUsedBytes = disk.UsedBytes
		sample.DiskTotalBytes = disk.TotalBytes
	}

	if len(failures) > 0 {
		for _, f := range failures {
			s.log.Warn("%s sample failed on %s: %v", f.Metric, s.client.GetHost(), f.Err)
		}
		return sample, &PartialSampleError{Failures: failures}
	}
	return sample, nil
}

// run executes one command under the per-command timeout.
// Transport errors and non-zero exits both come back as ErrExec.
func (s *Sampler) run(ctx context.Context, metric Metric, cmd string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	stdout, stderr, code, err := s.client.Exec(ctx, cmd)
	s.log.Debug("%s: %q exit=%d in %s", metric, cmd, code, time.Since(start).Round(time.Millisecond))

	if err != nil {
		if errors.IsCode(err, errors.ErrExec) || errors.IsCode(err, errors.ErrSSH) {
			return "", err
		}
		return "", errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("%s command failed", metric),
			"Check that the SSH connection is still alive")
	}
	if code != 0 {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = "no output on stderr"
		}
		return "", errors.New(errors.ErrExec,
			fmt.Sprintf("%s command exited with status %d: %s", metric, code, msg),
			fmt.Sprintf("Run `%s` on the remote host to see what went wrong", cmd))
	}
	return string(stdout), nil
}

func parseError(metric Metric, err error) error {
	return errors.WrapWithCode(err, errors.ErrParse,
		fmt.Sprintf("couldn't parse %s output", metric),
		"The remote tools print an unexpected format; run with --debug to see the commands")
}
