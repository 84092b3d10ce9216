package store

import (
	"os"
	"time"

	"github.com/nightlyone/lockfile"
	"golang.org/x/sys/unix"

	"github.com/hbrueckner/cpm/internal/cpmerr"
)

// lockRetries/lockRetryDelay implement spec.md §5's "5x1s retry-on-EAGAIN"
// acquisition policy, grounded on the teacher's use of
// github.com/nightlyone/lockfile in container.go (OpenFSPrivateKeyContainer).
const (
	lockRetries    = 5
	lockRetryDelay = time.Second
)

// temporary is satisfied by lockfile's contention error, the same
// interface container.go type-asserts against.
type temporary interface {
	Temporary() bool
}

// ReclaimDecision is asked whether a pre-existing lock file should be
// reclaimed. ownerPID is the pid recorded in the lock file; stale reports
// whether that process no longer exists.
type ReclaimDecision func(ownerPID int, stale bool) bool

// acquireLock implements spec.md §4.10 "Locking": create FILE.lock
// exclusively and stamp it with this process's pid. If it already
// exists, retry briefly, then offer the caller (via decide) the choice
// to reclaim a lock whose owner is confirmed dead, falling back to
// read-only mode if reclaim is declined or fails.
func acquireLock(path string, decide ReclaimDecision) (lockfile.Lockfile, bool, error) {
	lock, err := lockfile.New(path + ".lock")
	if err != nil {
		return lockfile.Lockfile(""), false, cpmerr.WrapErrorf(err, "store: invalid lock path for %s", path)
	}

	var lockErr error
	for attempt := 0; attempt < lockRetries; attempt++ {
		lockErr = lock.TryLock()
		if lockErr == nil {
			return lock, false, nil
		}
		if t, ok := lockErr.(temporary); !ok || !t.Temporary() {
			break
		}
		time.Sleep(lockRetryDelay)
	}
	if lockErr == nil {
		return lock, false, nil
	}

	ownerPID := 0
	if proc, ownerErr := lock.GetOwner(); ownerErr == nil {
		ownerPID = proc.Pid
	}
	stale := ownerPID != 0 && !processAlive(ownerPID)

	if decide == nil || !decide(ownerPID, stale) {
		return lockfile.Lockfile(""), true, nil // caller proceeds read-only
	}

	if !stale {
		return lockfile.Lockfile(""), true, cpmerr.LockedErrorf("store: refusing to reclaim lock held by live process %d", ownerPID)
	}
	if err := os.Remove(string(lock)); err != nil {
		// The stale file is removed directly, since lockfile's Unlock only
		// removes a lock this process owns; an error here means the
		// reclaim failed and read-only is used.
		return lockfile.Lockfile(""), true, nil
	}
	if err := lock.TryLock(); err != nil {
		return lockfile.Lockfile(""), true, nil
	}
	return lock, false, nil
}

// processAlive reports whether pid names a running process, using
// kill(pid, 0): ESRCH means the process is gone, any other outcome
// (success, or EPERM for a process we don't own) means it is alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

func releaseLock(lock lockfile.Lockfile) error {
	if lock == "" {
		return nil
	}
	if err := lock.Unlock(); err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to release lock %s", string(lock))
	}
	return nil
}
