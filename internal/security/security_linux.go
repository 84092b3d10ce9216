//go:build linux

package security

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"

	"github.com/hbrueckner/cpm/internal/cpmerr"
)

// maxProtections is the ceiling checkSecurity compares the engaged count
// against, per spec.md §4.11's closing paragraph. Linux is the only
// platform where every one of the eight steps can engage.
const maxProtections = 8

// defaultMemlockFloorKB is MEMLOCK_LIMIT from spec.md §4.11 step 3.
const defaultMemlockFloorKB = 5 * 1024

// Harden runs the process-hardening sequence of spec.md §4.11 in order,
// aborting immediately on any step documented there as fatal. Soft
// failures (ptrace pin, group drop, memory locking) are collected as
// warnings rather than aborting, matching the original's fprintf-and-
// continue behaviour for those specific steps.
func Harden(memlockFloorKB int64) (Report, error) {
	if memlockFloorKB <= 0 {
		memlockFloorKB = defaultMemlockFloorKB
	}

	var report Report
	var warnings *multierror.Error

	if selfPin() {
		report.Flags.PtraceSafe = true
	} else {
		warnings = multierror.Append(warnings, fmt.Errorf("security: ptrace self-pin could not be established"))
	}

	if err := dropGroupPrivileges(); err != nil {
		warnings = multierror.Append(warnings, err)
	} else {
		report.Flags.GroupDropped = true
	}

	if safe, err := lockMemory(memlockFloorKB); err != nil {
		warnings = multierror.Append(warnings, err)
	} else {
		report.Flags.MemorySafe = safe
	}

	if err := dropUserPrivileges(); err != nil {
		return report, cpmerr.WrapErrorf(err, "security: failed to drop user privileges")
	}
	report.Flags.PrivilegesDropped = true

	if err := disableCoreDumps(); err != nil {
		return report, cpmerr.WrapErrorf(err, "security: failed to disable core dumps")
	}
	report.Flags.CoreDumpDisabled = true

	unix.Umask(0022)
	report.Flags.UmaskSet = true

	if err := checkFDSanity(); err != nil {
		return report, cpmerr.WrapErrorf(err, "security: file descriptor sanity check failed")
	}
	report.Flags.FDSane = true

	if err := scrubEnvironment(); err != nil {
		// Surfaced verbatim, not wrapped: the message already names the
		// offending variable and its value.
		return report, err
	}
	report.Flags.EnvScrubbed = true

	if warnings != nil && warnings.Len() > 0 {
		for _, e := range warnings.Errors {
			report.Warnings = append(report.Warnings, e.Error())
		}
	}
	return report, nil
}

func dropGroupPrivileges() error {
	gid := unix.Getgid()
	if err := unix.Setgid(gid); err != nil {
		return fmt.Errorf("security: setgid: %w", err)
	}
	if err := unix.Setgid(gid); err != nil {
		return fmt.Errorf("security: setgid (second pass): %w", err)
	}
	unix.Setfsgid(gid)
	unix.Setfsgid(gid)
	return nil
}

func dropUserPrivileges() error {
	uid := unix.Getuid()
	euid := unix.Geteuid()
	if euid != 0 {
		return nil // nothing to drop
	}

	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("setuid: %w", err)
	}
	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("setuid (second pass): %w", err)
	}
	unix.Setfsuid(uid)
	unix.Setfsuid(uid)

	if uid != 0 {
		if unix.Setuid(0) == nil {
			return fmt.Errorf("regaining root succeeded after dropping privileges")
		}
	}
	return nil
}

func disableCoreDumps() error {
	rl := unix.Rlimit{Cur: 0, Max: 0}
	if err := unix.Setrlimit(unix.RLIMIT_CORE, &rl); err != nil {
		return fmt.Errorf("setrlimit(RLIMIT_CORE): %w", err)
	}
	var check unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_CORE, &check); err != nil {
		return fmt.Errorf("getrlimit(RLIMIT_CORE): %w", err)
	}
	if check.Cur != 0 || check.Max != 0 {
		return fmt.Errorf("RLIMIT_CORE did not take effect (cur=%d max=%d)", check.Cur, check.Max)
	}
	return nil
}

func checkFDSanity() error {
	fd, err := unix.Dup(0)
	if err != nil {
		return fmt.Errorf("dup(0): %w", err)
	}
	defer unix.Close(fd)
	if fd < 3 {
		return fmt.Errorf("stdin/stdout/stderr are not all open (dup returned fd %d)", fd)
	}
	return nil
}

// lockMemory implements spec.md §4.11 step 3: when RLIMIT_MEMLOCK is
// unlimited, the process is root, or the hard limit reaches the floor, it
// raises the soft limit to the hard limit and calls
// mlockall(CURRENT|FUTURE). Otherwise (e.g. rlimit too low for a non-root
// user) it returns false with an error and locks nothing; Harden records
// that error as a warning rather than aborting.
func lockMemory(floorKB int64) (bool, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rl); err != nil {
		return false, fmt.Errorf("getrlimit(RLIMIT_MEMLOCK): %w", err)
	}

	floor := uint64(floorKB * 1024)
	euid := unix.Geteuid()

	canRaise := rl.Cur == unixRlimInfinity || euid == 0 || rl.Max >= floor
	if !canRaise {
		return false, fmt.Errorf("RLIMIT_MEMLOCK is below the configured floor and cannot be raised")
	}

	if rl.Cur != unixRlimInfinity && rl.Cur < rl.Max {
		raised := unix.Rlimit{Cur: rl.Max, Max: rl.Max}
		if err := unix.Setrlimit(unix.RLIMIT_MEMLOCK, &raised); err != nil {
			return false, fmt.Errorf("setrlimit(RLIMIT_MEMLOCK): %w", err)
		}
	}

	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return false, fmt.Errorf("mlockall: %w", err)
	}
	return true, nil
}

const unixRlimInfinity = ^uint64(0)
