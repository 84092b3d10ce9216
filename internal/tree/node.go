// Package tree implements C4: the in-memory hierarchical document plus a
// path cursor ("walk list") over it, and the editor table that tracks
// who authored or last touched each node.
//
// It follows the teacher's style of modelling a persistent on-disk
// structure (there, a private-key container; here, a secret tree) as a
// plain Go struct whose mutation methods stamp provenance. The struct
// fields are exported, so a direct field write is not stamped.
package tree

import "time"

// TimestampLayout is the on-disk timestamp format of spec.md §4.4.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders t the way the XML serialiser writes it to disk.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp in the on-disk layout.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// Node is the unit of content of spec.md §3. Children are kept in
// insertion order for serialisation stability; callers that want the
// alphabetical display order should use Document.ListChildren.
type Node struct {
	Label   string
	Comment string // decoded; escape sequences are a serialisation concern

	CreatedBy uint32
	CreatedAt time.Time

	ModifiedBy uint32
	ModifiedAt time.Time

	Parent   *Node
	Children []*Node
}

// newNode builds a freshly created node, stamped as both created and
// modified by editor at the given time (spec.md §4.4: "Adding a node
// stamps created_by/at on the new node").
func newNode(label string, editor uint32, now time.Time) *Node {
	return &Node{
		Label:      label,
		CreatedBy:  editor,
		CreatedAt:  now,
		ModifiedBy: editor,
		ModifiedAt: now,
	}
}

// RestoreNode builds a node from stamps read off disk, bypassing the
// stamping newNode performs for freshly created nodes. Used by the XML
// deserialiser.
func RestoreNode(label, comment string, createdBy uint32, createdAt time.Time, modifiedBy uint32, modifiedAt time.Time) *Node {
	return &Node{
		Label:      label,
		Comment:    comment,
		CreatedBy:  createdBy,
		CreatedAt:  createdAt,
		ModifiedBy: modifiedBy,
		ModifiedAt: modifiedAt,
	}
}

// AppendRestored links child under n without touching either node's
// provenance stamps, for use by the XML deserialiser.
func (n *Node) AppendRestored(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// ChildNodes returns the node's children in insertion order, for
// serialisers that need stable output independent of display sorting.
func (n *Node) ChildNodes() []*Node { return n.Children }

// childByLabel returns the child with the given label, comparing under
// the given case-sensitivity mode.
func (n *Node) childByLabel(label string, caseSensitive bool) (*Node, int) {
	for i, c := range n.Children {
		if labelsEqual(c.Label, label, caseSensitive) {
			return c, i
		}
	}
	return nil, -1
}

func labelsEqual(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return len(a) == len(b) && equalFold(a, b)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
