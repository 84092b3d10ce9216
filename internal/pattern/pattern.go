// Package pattern implements C7: compiling the "text<Template>text..."
// search/result pattern DSL of spec.md §4.8 into a flat segment list, and
// projecting a compiled pattern against a tree path.
//
// Grounded on original_source/patternparser.c's patternCreate: a
// single-pass scanner over the pattern string with an escape flag and an
// in-tag flag, emitting a PATTERN_STRING segment whenever literal text
// accumulates and a PATTERN_TEMPLATE segment whenever a tag closes.
package pattern

import (
	"fmt"
	"strings"
)

// maxPatternLength mirrors patternparser.c's PATTERNLENGTH guard against
// runaway input.
const maxPatternLength = 1024

// SegmentKind classifies one compiled segment.
type SegmentKind int

const (
	Literal SegmentKind = iota
	TemplateRef
)

// Segment is one piece of a compiled pattern.
type Segment struct {
	Kind  SegmentKind
	Text  string // set when Kind == Literal
	Level int    // set when Kind == TemplateRef (1-based tree depth)
}

// Compiled is a parsed pattern ready for projection against a path.
type Compiled struct {
	segments []Segment
	source   string
}

// TemplateResolver maps a template name to its level, the way
// template.Registry.IDOf does.
type TemplateResolver func(name string) (level int, ok bool)

// Compile parses raw into a Compiled pattern, resolving each <Tag> against
// resolve.
func Compile(raw string, resolve TemplateResolver) (*Compiled, error) {
	if len(raw) > maxPatternLength {
		return nil, fmt.Errorf("pattern: %q exceeds maximum length of %d", raw, maxPatternLength)
	}

	var segments []Segment
	var buf strings.Builder
	escaped := false
	inTag := false

	flushLiteral := func() {
		if buf.Len() > 0 {
			segments = append(segments, Segment{Kind: Literal, Text: buf.String()})
			buf.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case escaped:
			buf.WriteRune(r)
			escaped = false
		case r == '<':
			if inTag {
				return nil, fmt.Errorf("pattern: tag not closed in pattern %q", raw)
			}
			flushLiteral()
			inTag = true
		case r == '>':
			if !inTag {
				return nil, fmt.Errorf("pattern: tag not opened in pattern %q", raw)
			}
			name := buf.String()
			buf.Reset()
			inTag = false
			if name == "" {
				continue
			}
			level, ok := resolve(name)
			if !ok {
				return nil, fmt.Errorf("pattern: unknown template %q in pattern %q", name, raw)
			}
			segments = append(segments, Segment{Kind: TemplateRef, Level: level})
		case r == '\\':
			escaped = true
		default:
			buf.WriteRune(r)
		}
	}

	if inTag {
		return nil, fmt.Errorf("pattern: tag not closed in pattern %q", raw)
	}
	if escaped {
		return nil, fmt.Errorf("pattern: string not terminated in pattern %q", raw)
	}
	flushLiteral()

	return &Compiled{segments: segments, source: raw}, nil
}

// DeepestLevel returns the highest template level referenced, or 0 if the
// pattern has no template references. Used to enforce spec.md §8
// invariant 7: a pattern cannot project against a path shallower than the
// deepest level it references.
func (c *Compiled) DeepestLevel() int {
	max := 0
	for _, s := range c.segments {
		if s.Kind == TemplateRef && s.Level > max {
			max = s.Level
		}
	}
	return max
}

// Project fills the pattern's template references from path (1-based:
// path[0] is level 1) and concatenates the result. Fails if path is
// shallower than the pattern's deepest reference.
func (c *Compiled) Project(path []string) (string, error) {
	if need := c.DeepestLevel(); need > len(path) {
		return "", fmt.Errorf("pattern: path depth %d is shallower than referenced level %d", len(path), need)
	}

	var out strings.Builder
	for _, s := range c.segments {
		switch s.Kind {
		case Literal:
			out.WriteString(s.Text)
		case TemplateRef:
			out.WriteString(path[s.Level-1])
		}
	}
	return out.String(), nil
}

// String renders a debug dump of the compiled segment list, e.g.
// `pattern -> string "host: " -> template 2`, for pattern introspection
// (SPEC_FULL.md supplemented feature). No command-line flag prints it.
func (c *Compiled) String() string {
	var b strings.Builder
	b.WriteString("pattern")
	for _, s := range c.segments {
		switch s.Kind {
		case Literal:
			fmt.Fprintf(&b, " -> string %q", s.Text)
		case TemplateRef:
			fmt.Fprintf(&b, " -> template %d", s.Level)
		}
	}
	return b.String()
}
