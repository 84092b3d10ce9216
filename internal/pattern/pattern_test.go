package pattern

import "testing"

func resolver(names map[string]int) TemplateResolver {
	return func(name string) (int, bool) {
		level, ok := names[name]
		return level, ok
	}
}

func TestCompileAndProject(t *testing.T) {
	resolve := resolver(map[string]int{"Service": 1, "Account": 2})
	c, err := Compile(`<Service>: <Account>@host`, resolve)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := c.Project([]string{"github", "alice"})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if want := "github: alice@host"; got != want {
		t.Fatalf("Project() = %q, want %q", got, want)
	}
}

func TestCompileRejectsUnclosedTag(t *testing.T) {
	if _, err := Compile("text<Service", resolver(nil)); err == nil {
		t.Fatalf("expected error for unclosed tag")
	}
}

func TestCompileRejectsUnopenedTag(t *testing.T) {
	if _, err := Compile("text>Service", resolver(nil)); err == nil {
		t.Fatalf("expected error for unopened tag")
	}
}

func TestCompileRejectsUnknownTemplate(t *testing.T) {
	if _, err := Compile("<Bogus>", resolver(map[string]int{"Service": 1})); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestCompileRejectsUnterminatedEscape(t *testing.T) {
	if _, err := Compile(`literal\`, resolver(nil)); err == nil {
		t.Fatalf("expected error for trailing escape")
	}
}

func TestCompileHandlesEscapedAngleBrackets(t *testing.T) {
	c, err := Compile(`literal \< and \>`, resolver(nil))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := c.Project(nil)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if want := "literal < and >"; got != want {
		t.Fatalf("Project() = %q, want %q", got, want)
	}
}

func TestProjectRejectsShallowPath(t *testing.T) {
	resolve := resolver(map[string]int{"Password": 3})
	c, err := Compile("<Password>", resolve)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := c.Project([]string{"github"}); err == nil {
		t.Fatalf("expected error when path is shallower than referenced level")
	}
}

func TestDeepestLevel(t *testing.T) {
	resolve := resolver(map[string]int{"A": 1, "B": 4})
	c, err := Compile("<A>x<B>", resolve)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := c.DeepestLevel(); got != 4 {
		t.Fatalf("DeepestLevel() = %d, want 4", got)
	}
}

func TestStringDump(t *testing.T) {
	resolve := resolver(map[string]int{"A": 1})
	c, err := Compile("x<A>", resolve)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got, want := c.String(), `pattern -> string "x" -> template 1`; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
