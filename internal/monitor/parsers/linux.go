package parsers

import (
	"bufio"
	"strconv"
	"strings"
)

// ParseTopCPU returns user + system CPU percent from one snapshot of top.
//
// Accepted formats:
//
//	%Cpu(s):  3.1 us,  1.0 sy,  0.0 ni, 95.6 id, ...   (procps-ng: top -bn1)
//	Cpu(s):  3.1%us,  1.0%sy,  0.0%ni, 95.6%id, ...    (older procps)
//	CPU usage: 5.26% user, 10.52% sys, 84.21% idle     (Darwin: top -l 1 -n 0)
//
// The result is clamped to [0, 100].
func ParseTopCPU(topOutput string) (float64, error) {
	scanner := bufio.NewScanner(strings.NewReader(topOutput))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "CPU usage:") {
			return parseDarwinCPUUsage(line)
		}
		if idx := strings.Index(line, "Cpu(s)"); idx >= 0 && idx <= 1 {
			return parseProcpsCPULine(line)
		}
	}
	return 0, malformed("no CPU summary line in top output")
}

// parseProcpsCPULine handles both "3.1 us," and "3.1%us," styles.
func parseProcpsCPULine(line string) (float64, error) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return 0, malformed("CPU line has no values: %q", line)
	}

	values := make(map[string]float64)
	for _, part := range strings.Split(line[colon+1:], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var num, label string
		if pct := strings.Index(part, "%"); pct >= 0 {
			num, label = part[:pct], part[pct+1:]
		} else {
			fields := strings.Fields(part)
			if len(fields) != 2 {
				continue
			}
			num, label = fields[0], fields[1]
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, malformed("CPU field %q is not a number", part)
		}
		values[strings.TrimSpace(label)] = v
	}

	user, ok := values["us"]
	if !ok {
		return 0, malformed("CPU line has no user time: %q", line)
	}
	return ClampPercent(user + values["sy"]), nil
}

// ParseFreeMemory parses the Mem: row of `free -b`.
// Total is the first numeric column and used the second.
func ParseFreeMemory(freeOutput string) (MemoryUsage, error) {
	scanner := bufio.NewScanner(strings.NewReader(freeOutput))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "Mem:" {
			continue
		}
		if len(fields) < 3 {
			return MemoryUsage{}, malformed("Mem: row has %d fields, want at least 3", len(fields))
		}

		total, err := parseBytes(fields[1], "memory total")
		if err != nil {
			return MemoryUsage{}, err
		}
		used, err := parseBytes(fields[2], "memory used")
		if err != nil {
			return MemoryUsage{}, err
		}
		return MemoryUsage{UsedBytes: used, TotalBytes: total}, nil
	}
	return MemoryUsage{}, malformed("no Mem: row in free output")
}

// ParseDF parses POSIX `df -P` output for a single path.
// Sizes are reported in blocks of blockSize bytes. Columns are located
// relative to the capacity field, so both the filesystem name and the mount
// point may contain spaces.
func ParseDF(dfOutput string, blockSize int64) (DiskUsage, error) {
	var last string
	scanner := bufio.NewScanner(strings.NewReader(dfOutput))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "Filesystem") {
			continue
		}
		last = line
	}
	if last == "" {
		return DiskUsage{}, malformed("no data line in df output")
	}

	// Filesystem...  blocks  used  available  capacity  mounted-on...
	fields := strings.Fields(last)
	capIdx := capacityField(fields)
	if capIdx < 0 {
		return DiskUsage{}, malformed("no capacity column in df line: %q", last)
	}
	if capIdx == len(fields)-1 {
		return DiskUsage{}, malformed("no mount point in df line: %q", last)
	}

	totalBlocks, err := parseBytes(fields[capIdx-3], "disk total")
	if err != nil {
		return DiskUsage{}, err
	}
	usedBlocks, err := parseBytes(fields[capIdx-2], "disk used")
	if err != nil {
		return DiskUsage{}, err
	}

	total, err := mulBytes(totalBlocks, blockSize, "disk total")
	if err != nil {
		return DiskUsage{}, err
	}
	used, err := mulBytes(usedBlocks, blockSize, "disk used")
	if err != nil {
		return DiskUsage{}, err
	}

	if used > total {
		return DiskUsage{}, malformed("df reports %d bytes used of %d", used, total)
	}

	mount := strings.Join(fields[capIdx+1:], " ")
	return DiskUsage{UsedBytes: used, TotalBytes: total, MountPoint: mount}, nil
}

// capacityField returns the index of the first "NN%" field that has a
// filesystem name and three size columns before it, or -1.
func capacityField(fields []string) int {
	for i := 4; i < len(fields); i++ {
		f := fields[i]
		if !strings.HasSuffix(f, "%") {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimSuffix(f, "%")); err == nil {
			return i
		}
	}
	return -1
}
