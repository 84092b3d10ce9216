//go:build !linux

package security

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func dropUserPrivileges() error {
	uid := unix.Getuid()
	if unix.Geteuid() != 0 {
		return nil
	}
	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("setuid: %w", err)
	}
	if err := unix.Setuid(uid); err != nil {
		return fmt.Errorf("setuid (second pass): %w", err)
	}
	if uid != 0 && unix.Setuid(0) == nil {
		return fmt.Errorf("regaining root succeeded after dropping privileges")
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
		return fmt.Errorf("RLIMIT_CORE did not take effect")
	}
	return nil
}

func setUmask() { unix.Umask(0022) }

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
