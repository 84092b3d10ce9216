package docxml

import "fmt"

// Problem is one structural deviation found while validating a parsed
// document. Fatal problems abort the load; non-fatal ones are collected
// for the caller to report (spec.md §4.5: "pedantic, non-network,
// no-CDATA mode" -- parsing is strict, but a handful of shape violations
// are tolerated and merely reported, mirroring a permissive DTD
// validator rather than a rejecting one).
type Problem struct {
	Message string
	Fatal   bool
}

func (p Problem) Error() string { return p.Message }

// validate checks shape constraints encoding/xml's struct decoding cannot
// express on its own: required attributes, and uniqueness constraints
// implied by the DTD's key-like attributes (node label, title level,
// user uid).
func validate(x *xmlDoc) []Problem {
	var problems []Problem

	if x.Version == "" {
		problems = append(problems, Problem{Message: "root element missing required version attribute", Fatal: true})
	}

	problems = append(problems, validateNodes(x.Nodes, "")...)

	if x.Templates != nil {
		seen := make(map[int]bool)
		for _, t := range x.Templates.Titles {
			if seen[t.Level] {
				problems = append(problems, Problem{Message: fmt.Sprintf("duplicate template level %d", t.Level)})
			}
			seen[t.Level] = true
		}
	}

	if x.Editors != nil {
		seen := make(map[uint32]bool)
		for _, u := range x.Editors.Users {
			if seen[u.UID] {
				problems = append(problems, Problem{Message: fmt.Sprintf("duplicate editor uid %d", u.UID)})
			}
			seen[u.UID] = true
		}
	}

	return problems
}

func validateNodes(nodes []xmlNode, path string) []Problem {
	var problems []Problem
	seen := make(map[string]bool)
	for _, n := range nodes {
		if n.Label == "" {
			problems = append(problems, Problem{Message: fmt.Sprintf("node under %q missing required label attribute", path), Fatal: true})
			continue
		}
		if seen[n.Label] {
			problems = append(problems, Problem{Message: fmt.Sprintf("duplicate sibling label %q under %q", n.Label, path)})
		}
		seen[n.Label] = true
		problems = append(problems, validateNodes(n.Nodes, path+"/"+n.Label)...)
	}
	return problems
}

// firstFatal returns the first fatal problem, if any.
func firstFatal(problems []Problem) error {
	for _, p := range problems {
		if p.Fatal {
			return p
		}
	}
	return nil
}
