package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hbrueckner/cpm/internal/crypto"
	"github.com/hbrueckner/cpm/internal/keyring"
	"github.com/hbrueckner/cpm/internal/store"
)

func openUnencrypted(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path, false, nil, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return s
}

func echoValidator(query string) (string, error) { return query, nil }

func TestHardenSkipsToHardenedState(t *testing.T) {
	c := New(Options{SkipHardening: true}, nil, nil, nil)
	if err := c.Harden(); err != nil {
		t.Fatalf("Harden: %v", err)
	}
	if c.State() != StateHardened {
		t.Fatalf("state = %v, want %v", c.State(), StateHardened)
	}
}

func TestLifecycleUnencryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db")

	str := openUnencrypted(t, path)
	ring := keyring.New(echoValidator)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := New(Options{
		EditorUID:        1,
		Now:              now,
		DefaultTemplates: []string{"Service", "Account", "Password"},
		SkipHardening:    true,
	}, nil, str, ring)

	if err := c.Harden(); err != nil {
		t.Fatalf("Harden: %v", err)
	}
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.State() != StateLoaded {
		t.Fatalf("state = %v, want %v", c.State(), StateLoaded)
	}

	doc := c.Document()
	if _, err := doc.AddChild("github", 1, now); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	c.MarkChanged()
	if !c.DataChanged() {
		t.Fatalf("DataChanged() = false after mutation")
	}

	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.DataChanged() {
		t.Fatalf("DataChanged() = true after a successful save")
	}
	if err := c.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected database file at %s: %v", path, err)
	}

	str2 := openUnencrypted(t, path)
	c2 := New(Options{EditorUID: 1, Now: now, SkipHardening: true}, nil, str2, keyring.New(echoValidator))
	if err := c2.Load(); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !c2.Document().ChildExists("github") {
		t.Fatalf("reloaded document is missing the saved child")
	}
	c2.Teardown()
}

func TestCheckQuitSkipsRecipientGuardWithoutEncryption(t *testing.T) {
	ring := keyring.New(echoValidator)
	c := &Controller{ring: ring, dataChanged: true}
	q := c.CheckQuit(func() bool { return false })
	if q.Blocked {
		t.Fatalf("unencrypted session should never block quit on recipients")
	}
	if !q.NeedsSavePrompt {
		t.Fatalf("expected a save prompt when data changed")
	}
}

func TestCheckQuitBlocksOnDeclinedNoRecipientsConfirm(t *testing.T) {
	ring := keyring.New(echoValidator)
	engine := crypto.New(nil, nil)
	c := &Controller{ring: ring, engine: engine}
	q := c.CheckQuit(func() bool { return false })
	if !q.Blocked {
		t.Fatalf("expected quit to be blocked when the no-recipients guard is declined")
	}
}

func TestCheckQuitWarnsWithoutOwnSecretKey(t *testing.T) {
	ring := keyring.New(echoValidator)
	ring.Restore("DEADBEEF someone <a@b.com>")
	engine := crypto.New(nil, nil)
	c := &Controller{ring: ring, engine: engine}
	q := c.CheckQuit(func() bool { return true })
	if q.Blocked {
		t.Fatalf("quit should not be blocked once a recipient exists")
	}
	found := false
	for _, w := range q.Warnings {
		if w != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a warning about missing own secret key, got %v", q.Warnings)
	}
}

func TestClassifySignals(t *testing.T) {
	cases := []struct {
		sig         os.Signal
		dataChanged bool
		want        Action
	}{
		{os.Interrupt, false, ActionTerminate},
		{os.Interrupt, true, ActionTerminate},
	}
	for _, tc := range cases {
		if got := Classify(tc.sig, tc.dataChanged); got != tc.want {
			t.Fatalf("Classify(%v, %v) = %v, want %v", tc.sig, tc.dataChanged, got, tc.want)
		}
	}
}
