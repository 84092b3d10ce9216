package search

import (
	"reflect"
	"testing"
	"time"

	"github.com/hbrueckner/cpm/internal/pattern"
	"github.com/hbrueckner/cpm/internal/tree"
)

func buildTree(t *testing.T) *tree.Document {
	t.Helper()
	now := time.Now()
	doc := tree.New(1, now, []string{"Service", "Account", "Password"})
	doc.AddChild("github", 1, now)
	doc.NodeDown("github")
	doc.AddChild("alice", 1, now)
	doc.NodeDown("alice")
	doc.AddChild("x", 1, now)
	doc.NodeUp()
	doc.NodeUp()
	doc.AddChild("bob", 1, now)
	doc.NodeDown("bob")
	doc.AddChild("y", 1, now)
	doc.NodeUp()
	return doc
}

func compilePair(t *testing.T, search, result string, names map[string]int) Pair {
	t.Helper()
	resolve := func(name string) (int, bool) {
		level, ok := names[name]
		return level, ok
	}
	s, err := pattern.Compile(search, resolve)
	if err != nil {
		t.Fatalf("Compile(search): %v", err)
	}
	r, err := pattern.Compile(result, resolve)
	if err != nil {
		t.Fatalf("Compile(result): %v", err)
	}
	return Pair{Search: s, Result: r}
}

func TestRunLiteralSearch(t *testing.T) {
	doc := buildTree(t)
	names := map[string]int{"Service": 1, "Account": 2, "Password": 3}
	pair := compilePair(t, "<Service> <Account>", "<Password>", names)

	got, err := Run(doc, []Pair{pair}, "github alice", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("Run() = %v, want [x]", got)
	}
}

func TestRunRegexIgnoreCase(t *testing.T) {
	doc := buildTree(t)
	names := map[string]int{"Service": 1, "Account": 2, "Password": 3}
	pair := compilePair(t, "<Service>", "<Password>", names)

	got, err := Run(doc, []Pair{pair}, "^GIT", Options{Regex: true, IgnoreCase: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("Run() = %v, want [x]", got)
	}
}

func TestRunDeduplicatesAcrossPairs(t *testing.T) {
	doc := buildTree(t)
	names := map[string]int{"Service": 1, "Account": 2, "Password": 3}
	pairA := compilePair(t, "<Service>", "<Password>", names)
	pairB := compilePair(t, "<Account>", "<Password>", names)

	got, err := Run(doc, []Pair{pairA, pairB}, "i", Options{Regex: true, IgnoreCase: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// "github" matches pairA's <Service> and "alice" matches pairB's
	// <Account> on the same path, so both pairs yield "x"; it must appear
	// only once. Results are also sorted regardless of pair order.
	if !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("Run() = %v, want [x]", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("Run() output not sorted: %v", got)
		}
	}
}

func TestRunSkipsShallowPaths(t *testing.T) {
	doc := buildTree(t)
	names := map[string]int{"Service": 1, "Account": 2, "Password": 3}
	pair := compilePair(t, "<Password>", "<Password>", names)

	got, err := Run(doc, []Pair{pair}, "github", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Run() = %v, want no matches (category/account levels are shallower than Password)", got)
	}
}
