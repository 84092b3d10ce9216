//go:build !linux

package security

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// maxProtections is lower off Linux: ptrace self-pin and mlockall-based
// memory locking are not attempted there, per spec.md §4.11 step 1/3
// ("Linux-like systems only").
const maxProtections = 6

// IsPtraceHelper never applies outside Linux; there is no watcher
// process to re-exec into.
func IsPtraceHelper() (ppid int, ok bool) { return 0, false }

// RunPtraceHelper is unreachable outside Linux.
func RunPtraceHelper(ppid int) {}

// Harden runs the subset of spec.md §4.11's hardening sequence that is
// portable: privilege drop, core dump suppression, umask, fd sanity and
// environment scrub. Ptrace self-pin and mlockall are skipped outright.
func Harden(memlockFloorKB int64) (Report, error) {
	var report Report

	gid := unix.Getgid()
	if unix.Setgid(gid) == nil && unix.Setgid(gid) == nil {
		report.Flags.GroupDropped = true
	}

	if err := dropUserPrivileges(); err != nil {
		return report, fmt.Errorf("security: failed to drop user privileges: %w", err)
	}
	report.Flags.PrivilegesDropped = true

	if err := disableCoreDumps(); err != nil {
		return report, fmt.Errorf("security: failed to disable core dumps: %w", err)
	}
	report.Flags.CoreDumpDisabled = true

	setUmask()
	report.Flags.UmaskSet = true

	if err := checkFDSanity(); err != nil {
		return report, fmt.Errorf("security: file descriptor sanity check failed: %w", err)
	}
	report.Flags.FDSane = true

	if err := scrubEnvironment(); err != nil {
		// Surfaced verbatim, not wrapped: the message already names the
		// offending variable and its value.
		return report, err
	}
	report.Flags.EnvScrubbed = true

	return report, nil
}
