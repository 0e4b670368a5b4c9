package task

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ProcessStat resolves a PID's creation timestamp and liveness. It is the
// injection seam documented in spec.md §4.4: the recycled-PID path is
// unit-testable without real process churn by swapping this function.
type ProcessStat func(pid int) (createdOn time.Time, alive bool, err error)

// DefaultProcessStat reads /proc/<pid>/stat for the process start time
// (field 22, jiffies since boot) and combines it with the host boot time
// read from /proc/stat, matching how `ps`/`sacct`-adjacent tooling derive
// a stable process identity on Linux.
func DefaultProcessStat(pid int) (time.Time, bool, error) {
	if err := syscall.Kill(pid, 0); err != nil {
		if err == syscall.ESRCH {
			return time.Time{}, false, nil
		}
		if err == syscall.EPERM {
			// Process exists but isn't ours to signal; still alive.
		} else {
			return time.Time{}, false, fmt.Errorf("probing pid %d: %w", pid, err)
		}
	}

	startTicks, err := readStartTicks(pid)
	if err != nil {
		return time.Time{}, false, err
	}

	boot, err := bootTime()
	if err != nil {
		return time.Time{}, false, err
	}

	ticksPerSecond := int64(100) // USER_HZ on virtually all Linux kernels
	created := boot.Add(time.Duration(startTicks/ticksPerSecond) * time.Second)
	return created, true, nil
}

func readStartTicks(pid int) (int64, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, fmt.Errorf("reading /proc/%d/stat: %w", pid, err)
	}

	// Field 2 (comm) may itself contain spaces, so split after its
	// closing paren rather than on every space.
	closeParen := strings.LastIndex(string(data), ")")
	if closeParen < 0 {
		return 0, fmt.Errorf("malformed /proc/%d/stat", pid)
	}
	fields := strings.Fields(string(data)[closeParen+1:])
	// fields[0] is field 3 (state); start time is field 22, i.e. index 19
	// in this post-comm slice.
	const startTimeIndex = 19
	if len(fields) <= startTimeIndex {
		return 0, fmt.Errorf("malformed /proc/%d/stat: too few fields", pid)
	}
	return strconv.ParseInt(fields[startTimeIndex], 10, 64)
}

func bootTime() (time.Time, error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return time.Time{}, fmt.Errorf("reading /proc/stat: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "btime ") {
			secs, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "btime ")), 10, 64)
			if err != nil {
				return time.Time{}, fmt.Errorf("parsing btime: %w", err)
			}
			return time.Unix(secs, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("btime not found in /proc/stat")
}

// childPIDs returns the direct child process IDs of pid by scanning
// /proc for matching PPid entries.
func childPIDs(pid int) []int {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}

	var children []int
	for _, e := range entries {
		childPID, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ppid, err := readPPid(childPID)
		if err != nil {
			continue
		}
		if ppid == pid {
			children = append(children, childPID)
		}
	}
	return children
}

func readPPid(pid int) (int, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, err
	}
	closeParen := strings.LastIndex(string(data), ")")
	if closeParen < 0 {
		return 0, fmt.Errorf("malformed /proc/%d/stat", pid)
	}
	fields := strings.Fields(string(data)[closeParen+1:])
	// fields[0] is state; fields[1] is ppid.
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed /proc/%d/stat: too few fields", pid)
	}
	return strconv.Atoi(fields[1])
}

// descendants returns every transitive child of pid, deepest first, so a
// caller can terminate leaves before their ancestors.
func descendants(pid int) []int {
	var out []int
	var walk func(int)
	walk = func(p int) {
		for _, c := range childPIDs(p) {
			walk(c)
			out = append(out, c)
		}
	}
	walk(pid)
	return out
}
