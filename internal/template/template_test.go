package template

import "testing"

func TestGetFallsBackToDefaultsThenSynthesised(t *testing.T) {
	r := NewRegistry([]string{"Service", "Account", "Password"})

	if title, static := r.Get(1); title != "Service" || !static {
		t.Fatalf("Get(1) = (%q, %v), want (Service, true)", title, static)
	}
	if title, static := r.Get(4); title != "level 4" || static {
		t.Fatalf("Get(4) = (%q, %v), want (level 4, false)", title, static)
	}
}

func TestSetOverridesDefault(t *testing.T) {
	r := NewRegistry([]string{"Service", "Account", "Password"})
	if err := r.Set(3, "Secret", StatusPassword); err != nil {
		t.Fatalf("Set: %v", err)
	}
	title, static := r.Get(3)
	if title != "Secret" || !static {
		t.Fatalf("Get(3) = (%q, %v), want (Secret, true)", title, static)
	}
	if !r.IsPassword(3) {
		t.Fatalf("level 3 should be flagged password")
	}
}

func TestIDOfResolvesExplicitAndDefault(t *testing.T) {
	r := NewRegistry([]string{"Service", "Account", "Password"})
	r.Set(4, "Notes", StatusNormal)

	if lvl, ok := r.IDOf("Account"); !ok || lvl != 2 {
		t.Fatalf("IDOf(Account) = (%d, %v), want (2, true)", lvl, ok)
	}
	if lvl, ok := r.IDOf("Notes"); !ok || lvl != 4 {
		t.Fatalf("IDOf(Notes) = (%d, %v), want (4, true)", lvl, ok)
	}
	if _, ok := r.IDOf("Nonexistent"); ok {
		t.Fatalf("IDOf(Nonexistent) should fail")
	}
}

func TestSetRejectsNonPositiveLevel(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Set(0, "x", StatusNormal); err == nil {
		t.Fatalf("Set(0, ...) should fail")
	}
}
