// Package search implements C8: the CLI search driver of spec.md §4.8,
// projecting configured pattern pairs over every path in the tree and
// matching the projected search string against the user's query.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hbrueckner/cpm/internal/pattern"
	"github.com/hbrueckner/cpm/internal/tree"
)

// Pair is one configured (search_pattern, result_pattern) pair, both
// already compiled (internal/pattern.Compile).
type Pair struct {
	Search *pattern.Compiled
	Result *pattern.Compiled
}

// Options selects the query's matching mode (spec.md §6: -i/--ignore,
// --noignore, -r/--regex, --regular).
type Options struct {
	Regex      bool
	IgnoreCase bool
}

// matcher reports whether s satisfies the query under opts.
func newMatcher(query string, opts Options) (func(s string) bool, error) {
	if opts.Regex {
		expr := query
		if opts.IgnoreCase {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("search: invalid regular expression %q: %w", query, err)
		}
		return re.MatchString, nil
	}

	needle := query
	if opts.IgnoreCase {
		needle = strings.ToLower(needle)
	}
	return func(s string) bool {
		if opts.IgnoreCase {
			s = strings.ToLower(s)
		}
		return strings.Contains(s, needle)
	}, nil
}

// Run walks doc's tree depth-first for every configured pair, and returns
// the deduplicated, sorted set of result-pattern projections whose
// search-pattern projection matches query.
func Run(doc *tree.Document, pairs []Pair, query string, opts Options) ([]string, error) {
	match, err := newMatcher(query, opts)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string

	visit := func(path []string) {
		for _, pair := range pairs {
			searchStr, err := pair.Search.Project(path)
			if err != nil {
				continue // path shallower than the deepest template reference
			}
			if !match(searchStr) {
				continue
			}
			resultStr, err := pair.Result.Project(path)
			if err != nil {
				continue
			}
			if !seen[resultStr] {
				seen[resultStr] = true
				out = append(out, resultStr)
			}
		}
	}

	walk(doc.Root, nil, visit)

	sort.Strings(out)
	return out, nil
}

func walk(n *tree.Node, path []string, visit func([]string)) {
	for _, c := range n.ChildNodes() {
		childPath := append(append([]string(nil), path...), c.Label)
		visit(childPath)
		walk(c, childPath, visit)
	}
}
