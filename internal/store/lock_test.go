package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProcessAliveRecognisesSelf(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Fatalf("processAlive(self) should be true")
	}
}

func TestProcessAliveRejectsImplausiblePID(t *testing.T) {
	if processAlive(999999999) {
		t.Fatalf("processAlive(implausible pid) should be false")
	}
}

func TestAcquireLockSucceedsWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.cpm")

	lock, readOnly, err := acquireLock(path, nil)
	if err != nil {
		t.Fatalf("acquireLock: %v", err)
	}
	if readOnly {
		t.Fatalf("a fresh lock should not fall back to read-only")
	}
	if err := releaseLock(lock); err != nil {
		t.Fatalf("releaseLock: %v", err)
	}
}
