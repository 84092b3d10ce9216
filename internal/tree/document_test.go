package tree

import (
	"testing"
	"time"
)

func TestAddChildAndNavigate(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	doc := New(1, now, []string{"Service", "Account", "Password"})

	if _, err := doc.AddChild("github", 1, now); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if err := doc.NodeDown("github"); err != nil {
		t.Fatalf("NodeDown: %v", err)
	}
	later := now.Add(time.Second)
	if _, err := doc.AddChild("alice", 1, later); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if err := doc.NodeDown("alice"); err != nil {
		t.Fatalf("NodeDown: %v", err)
	}

	children := doc.ListChildren()
	if len(children) != 0 {
		t.Fatalf("fresh node should have no children, got %v", children)
	}

	if err := doc.NodeUp(); err != nil {
		t.Fatalf("NodeUp: %v", err)
	}
	if got := doc.ListChildren(); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("ListChildren() = %v, want [alice]", got)
	}
}

func TestAddChildRejectsDuplicateSibling(t *testing.T) {
	now := time.Now()
	doc := New(1, now, nil)
	if _, err := doc.AddChild("a", 1, now); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if _, err := doc.AddChild("a", 1, now); err == nil {
		t.Fatalf("AddChild should reject duplicate sibling label")
	}
}

func TestDeleteChildDiscardsSubtree(t *testing.T) {
	now := time.Now()
	doc := New(1, now, nil)
	doc.AddChild("a", 1, now)
	doc.NodeDown("a")
	doc.AddChild("b", 1, now)
	doc.NodeUp()

	if err := doc.DeleteChild("a", 1, now); err != nil {
		t.Fatalf("DeleteChild: %v", err)
	}
	if doc.ChildExists("a") {
		t.Fatalf("child should be gone after DeleteChild")
	}
}

func TestSetCommentEmptyRemoves(t *testing.T) {
	now := time.Now()
	doc := New(1, now, nil)
	doc.AddChild("a", 1, now)
	if err := doc.SetComment("a", "secret\nmore", 1, now); err != nil {
		t.Fatalf("SetComment: %v", err)
	}
	if c, _ := doc.GetComment("a"); c != "secret\nmore" {
		t.Fatalf("GetComment() = %q", c)
	}
	if err := doc.SetComment("a", "", 1, now); err != nil {
		t.Fatalf("SetComment: %v", err)
	}
	if c, _ := doc.GetComment("a"); c != "" {
		t.Fatalf("comment should be empty after clearing, got %q", c)
	}
}

func TestModificationBubblesToAncestors(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := New(1, t0, nil)
	doc.AddChild("cat", 1, t0)
	doc.NodeDown("cat")
	doc.AddChild("host", 1, t0)
	doc.NodeDown("host")

	later := t0.Add(time.Hour)
	doc.AddChild("secret", 1, later)

	catNode, _ := doc.Root.childByLabel("cat", true)
	if !catNode.ModifiedAt.Equal(later) {
		t.Fatalf("ancestor 'cat' ModifiedAt = %v, want %v", catNode.ModifiedAt, later)
	}
	if !doc.Root.ModifiedAt.Equal(later) {
		t.Fatalf("root ModifiedAt = %v, want %v", doc.Root.ModifiedAt, later)
	}
}

func TestEditorAddIdempotent(t *testing.T) {
	now := time.Now()
	table := NewEditorTable()
	uid1 := table.Add("harry", now)
	uid2 := table.Add("harry", now)
	if uid1 != uid2 {
		t.Fatalf("editor_add not idempotent: %d != %d", uid1, uid2)
	}
}

func TestCaseSensitivityMode(t *testing.T) {
	now := time.Now()
	doc := New(1, now, nil)
	doc.CaseSensitive = false
	if _, err := doc.AddChild("GitHub", 1, now); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if _, err := doc.AddChild("github", 1, now); err == nil {
		t.Fatalf("case-insensitive mode should reject a same-folded sibling")
	}
}
