// Package security implements C11: the process-hardening sequence of
// spec.md §4.11, run once at startup before anything else of interest.
package security

import (
	"fmt"
	"strings"
)

// Flags records which hardening steps actually took effect. The exact
// set of steps that can succeed is platform-dependent (ptrace self-pin
// and mlockall are Linux-only); Max reports the ceiling for the current
// platform so checkSecurity can compare against it.
type Flags struct {
	PtraceSafe        bool
	GroupDropped      bool
	MemorySafe        bool
	PrivilegesDropped bool
	CoreDumpDisabled  bool
	UmaskSet          bool
	FDSane            bool
	EnvScrubbed       bool
}

// Count returns the number of hardening steps currently engaged.
func (f Flags) Count() int {
	n := 0
	for _, b := range []bool{f.PtraceSafe, f.GroupDropped, f.MemorySafe, f.PrivilegesDropped,
		f.CoreDumpDisabled, f.UmaskSet, f.FDSane, f.EnvScrubbed} {
		if b {
			n++
		}
	}
	return n
}

// Report is the outcome of Harden: which protections engaged, and any
// non-fatal warnings encountered along the way.
type Report struct {
	Flags    Flags
	Warnings []string
}

// String renders the per-flag breakdown the original's checkSecurity
// printed one line per protection before its own summary line
// (original_source/security.c), followed by the "X/MAX protections
// engaged" summary.
func (r Report) String() string {
	lines := []string{
		droppedLine("privileges", r.Flags.PrivilegesDropped),
		droppedLine("group privileges", r.Flags.GroupDropped),
		enabledLine("ptrace protection", r.Flags.PtraceSafe),
		enabledLine("memory lock", r.Flags.MemorySafe),
		disabledLine("core dump", r.Flags.CoreDumpDisabled),
		enabledLine("umask hardening", r.Flags.UmaskSet),
		enabledLine("file descriptor sanity", r.Flags.FDSane),
		enabledLine("environment scrub", r.Flags.EnvScrubbed),
	}
	out := strings.Join(lines, "\n")
	return fmt.Sprintf("%s\n%d/%d protections engaged", out, r.Flags.Count(), maxProtections)
}

func droppedLine(label string, engaged bool) string {
	if engaged {
		return fmt.Sprintf("%s: dropped", label)
	}
	return fmt.Sprintf("%s: not dropped", label)
}

func disabledLine(label string, engaged bool) string {
	if engaged {
		return fmt.Sprintf("%s: disabled", label)
	}
	return fmt.Sprintf("%s: enabled", label)
}

func enabledLine(label string, engaged bool) string {
	if engaged {
		return fmt.Sprintf("%s: enabled", label)
	}
	return fmt.Sprintf("%s: disabled", label)
}

// BelowMaximum reports whether fewer than the platform maximum of
// protections engaged, the condition under which spec.md §4.11 has the
// session warn the user and offer to abort before unlocking the database.
func (r Report) BelowMaximum() bool {
	return r.Flags.Count() < maxProtections
}
