package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesEmptyDocumentWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.cpm")

	s, err := Open(path, false, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	now := time.Now()
	doc, upgraded, recipients, _, err := s.Load(1, now, []string{"Service", "Account", "Password"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if upgraded {
		t.Fatalf("a freshly created document should not report an upgrade")
	}
	if len(recipients) != 0 {
		t.Fatalf("a freshly created document should have no recipient ids")
	}
	if doc.Root == nil {
		t.Fatalf("fresh document should have a root node")
	}
}

func TestSaveAndLoadRoundTripUnencrypted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.cpm")

	s, err := Open(path, false, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	now := time.Now()
	doc, _, _, _, err := s.Load(1, now, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := doc.AddChild("github", 1, now); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if err := s.Save(doc, 1, now, nil, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file should exist: %v", err)
	}

	reloaded, _, _, _, err := s.Load(1, now, nil)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if !reloaded.ChildExists("github") {
		t.Fatalf("reloaded document is missing the saved child")
	}
}

func TestSaveCreatesBackupOfPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.cpm")

	s, err := Open(path, false, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	now := time.Now()
	doc, _, _, _, _ := s.Load(1, now, nil)
	doc.AddChild("first", 1, now)
	if err := s.Save(doc, 1, now, nil, nil); err != nil {
		t.Fatalf("Save #1: %v", err)
	}

	doc.AddChild("second", 1, now)
	if err := s.Save(doc, 1, now, nil, nil); err != nil {
		t.Fatalf("Save #2: %v", err)
	}

	if _, err := os.Stat(path + "~"); err != nil {
		t.Fatalf("backup file should exist after the second save: %v", err)
	}
}

func TestSaveRejectedWhenReadOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.cpm")

	s, err := Open(path, false, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	s.ForceReadOnly()

	now := time.Now()
	doc, _, _, _, _ := s.Load(1, now, nil)
	if err := s.Save(doc, 1, now, nil, nil); err == nil {
		t.Fatalf("Save should fail once the session is forced read-only")
	}
}
