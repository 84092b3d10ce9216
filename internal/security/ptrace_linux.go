//go:build linux

package security

import (
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

// ptraceHelperEnv flags a re-exec of this binary as the ptrace watcher
// child described in spec.md §4.11 step 1, rather than a normal run.
// cmd/cpm checks for it before doing anything else and, if set, calls
// RunPtraceHelper instead of starting a session.
const ptraceHelperEnv = "CPM_PTRACE_HELPER_PPID"

// IsPtraceHelper reports whether this process was re-exec'd to act as
// the ptrace watcher child, and returns the pid it should attach to.
func IsPtraceHelper() (ppid int, ok bool) {
	v := os.Getenv(ptraceHelperEnv)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// selfPin re-execs the current binary as a watcher that PTRACE_ATTACHes
// to this process, making it unattachable by anything else (including
// root). Grounded on original_source/security.c's fork+PTRACE_ATTACH
// self-pin, adapted to Go's cooperative-scheduler-unsafe fork() by
// re-executing a fresh process image instead of calling fork(2) directly.
func selfPin() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), ptraceHelperEnv+"="+strconv.Itoa(os.Getpid()))
	if err := cmd.Start(); err != nil {
		return false
	}
	return true
}

// RunPtraceHelper is the watcher child's entire job: make itself
// unattachable, attach to ppid, then loop PTRACE_SYSCALL+wait4 until the
// parent is gone. It never returns under normal operation.
func RunPtraceHelper(ppid int) {
	unix.Syscall(unix.SYS_PRCTL, unix.PR_SET_DUMPABLE, 0, 0)

	if err := unix.PtraceAttach(ppid); err != nil {
		os.Exit(1)
	}

	var status unix.WaitStatus
	for {
		if err := unix.PtraceSyscall(ppid, 0); err == nil {
			unix.Wait4(ppid, &status, 0, nil)
		}
		if unix.Kill(ppid, 0) == unix.ESRCH {
			os.Exit(0)
		}
	}
}
