package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRC(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cpmrc")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFileParsesKnownDirectives(t *testing.T) {
	path := writeRC(t, `
AskToQuit = true
Compression = 4
DatabaseFile = "/home/user/.cpm.db"
SearchPattern = ["<Service> <Account>", "<Password>"]
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !cfg.AskToQuit {
		t.Fatalf("AskToQuit not parsed")
	}
	if cfg.Compression != 4 {
		t.Fatalf("Compression = %d, want 4", cfg.Compression)
	}
	if cfg.DatabaseFile != "/home/user/.cpm.db" {
		t.Fatalf("DatabaseFile = %q", cfg.DatabaseFile)
	}
	if len(cfg.SearchPattern) != 2 {
		t.Fatalf("SearchPattern = %v", cfg.SearchPattern)
	}
}

func TestLoadFileRejectsUnknownDirective(t *testing.T) {
	path := writeRC(t, `NotARealDirective = true`)
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected rejection of an unknown directive")
	}
}

func TestLoadFileClampsCompressionOutOfRange(t *testing.T) {
	path := writeRC(t, `Compression = 99`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Compression != bestCompression {
		t.Fatalf("Compression = %d, want clamp to %d", cfg.Compression, bestCompression)
	}
}

func TestLoadFileRejectsShortPasswordLength(t *testing.T) {
	path := writeRC(t, `PasswordLength = 3`)
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected rejection of PasswordLength below 5")
	}
}

func TestApplyOverridesTakePrecedence(t *testing.T) {
	cfg := Default()
	cfg.DatabaseFile = "/resource/file/path"
	ignore := true
	merged := cfg.Apply(Overrides{DatabaseFile: "/cli/path", IgnoreCase: &ignore})
	if merged.DatabaseFile != "/cli/path" {
		t.Fatalf("DatabaseFile override not applied: %q", merged.DatabaseFile)
	}
	if merged.MatchCaseSensitive {
		t.Fatalf("IgnoreCase override should clear MatchCaseSensitive")
	}
}
