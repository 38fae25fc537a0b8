package parsers

import (
	"bufio"
	"strconv"
	"strings"
)

// parseDarwinCPUUsage extracts user + sys from top's CPU usage line.
// Format: "CPU usage: 5.26% user, 10.52% sys, 84.21% idle"
func parseDarwinCPUUsage(line string) (float64, error) {
	var user, sys float64
	var haveUser bool

	rest := strings.TrimPrefix(line, "CPU usage:")
	for _, part := range strings.Split(rest, ",") {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
		if err != nil {
			return 0, malformed("CPU field %q is not a number", strings.TrimSpace(part))
		}
		switch fields[1] {
		case "user":
			user, haveUser = v, true
		case "sys":
			sys = v
		}
	}

	if !haveUser {
		return 0, malformed("CPU usage line has no user time: %q", line)
	}
	return ClampPercent(user + sys), nil
}

// ParseVMStatMemory parses `vm_stat; sysctl hw.memsize` output.
//
// Used memory is active + wired + compressed + speculative pages. Total comes
// from hw.memsize; when that line is missing it is approximated from the page
// counts.
func ParseVMStatMemory(output string) (MemoryUsage, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))

	// Default page size on macOS is 16384 bytes on Apple Silicon, 4096 on Intel.
	pageSize := int64(16384)
	var memsize int64
	var pagesActive, pagesWired, pagesInactive, pagesSpeculative, pagesFree, pagesCompressed int64
	seen := 0

	for scanner.Scan() {
		line := scanner.Text()

		// "Mach Virtual Memory Statistics: (page size of 16384 bytes)"
		if start := strings.Index(line, "page size of"); start >= 0 {
			fields := strings.Fields(line[start+len("page size of"):])
			if len(fields) >= 1 {
				if size, err := strconv.ParseInt(fields[0], 10, 64); err == nil && size > 0 {
					pageSize = size
				}
			}
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:colonIdx])
		valStr := strings.TrimSuffix(strings.TrimSpace(line[colonIdx+1:]), ".")

		if key == "hw.memsize" {
			v, err := parseBytes(valStr, "hw.memsize")
			if err != nil {
				return MemoryUsage{}, err
			}
			memsize = v
			continue
		}

		val, err := strconv.ParseInt(valStr, 10, 64)
		if err != nil || val < 0 {
			continue
		}

		switch key {
		case "Pages active":
			pagesActive = val
		case "Pages wired down":
			pagesWired = val
		case "Pages inactive":
			pagesInactive = val
		case "Pages speculative":
			pagesSpeculative = val
		case "Pages free":
			pagesFree = val
		case "Pages occupied by compressor":
			pagesCompressed = val
		default:
			continue
		}
		seen++
	}

	if seen == 0 {
		return MemoryUsage{}, malformed("no page counts in vm_stat output")
	}

	used, err := mulBytes(pagesActive+pagesWired+pagesCompressed+pagesSpeculative, pageSize, "memory used")
	if err != nil {
		return MemoryUsage{}, err
	}

	total := memsize
	if total == 0 {
		allPages := pagesActive + pagesWired + pagesCompressed + pagesSpeculative + pagesInactive + pagesFree
		if total, err = mulBytes(allPages, pageSize, "memory total"); err != nil {
			return MemoryUsage{}, err
		}
	}

	return MemoryUsage{UsedBytes: used, TotalBytes: total}, nil
}
