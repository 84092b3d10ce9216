package tree

import (
	"fmt"
	"sort"
	"time"

	"github.com/hbrueckner/cpm/internal/template"
)

// Document is the root of spec.md §3: the tree plus its distinguished
// template registry and editor table, and a path cursor ("walk list")
// recording the UI's current position.
type Document struct {
	VersionMajor int
	VersionMinor int

	Root       *Node
	Editors    *EditorTable
	Templates  *template.Registry
	CaseSensitive bool

	CreatedBy uint32
	CreatedAt time.Time

	ModifiedBy uint32
	ModifiedAt time.Time

	cursor []*Node // path from root (exclusive) to current node
}

// CurrentVersion is this implementation's document version, used both to
// stamp freshly created documents and to drive the upgrade check of
// spec.md §4.5.1.
const (
	CurrentVersionMajor = 0
	CurrentVersionMinor = 3
)

// New returns an empty document, stamped as created by editor at now --
// "Document created on first save of an empty store" (spec.md §3
// Lifecycle) is handled by the caller deciding when to call New.
func New(editor uint32, now time.Time, defaultTemplates []string) *Document {
	return &Document{
		VersionMajor: CurrentVersionMajor,
		VersionMinor: CurrentVersionMinor,
		Root:         &Node{Label: ""},
		Editors:      NewEditorTable(),
		Templates:    template.NewRegistry(defaultTemplates),
		CreatedBy:    editor,
		CreatedAt:    now,
		ModifiedBy:   editor,
		ModifiedAt:   now,
	}
}

// Restore builds a document from stamps and a version read off disk,
// bypassing the fresh-creation stamping New performs. The caller (the
// docxml package) populates Root, Editors and Templates afterwards.
func Restore(major, minor int, createdBy uint32, createdAt time.Time, modifiedBy uint32, modifiedAt time.Time, caseSensitive bool) *Document {
	return &Document{
		VersionMajor:  major,
		VersionMinor:  minor,
		Root:          &Node{Label: ""},
		Editors:       NewEditorTable(),
		Templates:     template.NewRegistry(nil),
		CaseSensitive: caseSensitive,
		CreatedBy:     createdBy,
		CreatedAt:     createdAt,
		ModifiedBy:    modifiedBy,
		ModifiedAt:    modifiedAt,
	}
}

// versionEncoded packs major/minor per the REDESIGN FLAGS note in spec.md
// §9: (major<<16)|minor.
func versionEncoded(major, minor int) int {
	return major<<16 | minor
}

// NeedsCreationStampSweep reports whether a document loaded at this
// version predates 0.2 and therefore needs the one-time creation-stamp
// sweep of spec.md §4.5.1.
func (d *Document) NeedsCreationStampSweep() bool {
	return versionEncoded(d.VersionMajor, d.VersionMinor) < versionEncoded(0, 2)
}

// current returns the node the cursor points to (the root if the cursor
// is empty).
func (d *Document) current() *Node {
	if len(d.cursor) == 0 {
		return d.Root
	}
	return d.cursor[len(d.cursor)-1]
}

// Depth returns the number of NodeDown calls needed to reach the current
// position from the root; children created at the current position take
// template level Depth()+1 (see TemplateLevel).
func (d *Document) Depth() int { return len(d.cursor) }

// NodeDown pushes the named child onto the cursor.
func (d *Document) NodeDown(label string) error {
	cur := d.current()
	child, _ := cur.childByLabel(label, d.CaseSensitive)
	if child == nil {
		return fmt.Errorf("tree: no child %q at current position", label)
	}
	d.cursor = append(d.cursor, child)
	return nil
}

// NodeUp pops the cursor by one level. Popping past the root is an error.
func (d *Document) NodeUp() error {
	if len(d.cursor) == 0 {
		return fmt.Errorf("tree: already at root")
	}
	d.cursor = d.cursor[:len(d.cursor)-1]
	return nil
}

// NodeLabelAt returns the label of the cursor entry at the given level
// (1-based, root excluded), mirroring the original walk list's indexing.
func (d *Document) NodeLabelAt(level int) (string, bool) {
	if level < 1 || level > len(d.cursor) {
		return "", false
	}
	return d.cursor[level-1].Label, true
}

// Path returns the full label path from the root to the current node.
func (d *Document) Path() []string {
	out := make([]string, len(d.cursor))
	for i, n := range d.cursor {
		out[i] = n.Label
	}
	return out
}

// ListChildren returns the labels of the current node's children, sorted
// for display (spec.md §3: "displayed alphabetically by label").
func (d *Document) ListChildren() []string {
	cur := d.current()
	out := make([]string, len(cur.Children))
	for i, c := range cur.Children {
		out[i] = c.Label
	}
	sort.Strings(out)
	return out
}

// ChildExists reports whether the current node has a child with this
// label.
func (d *Document) ChildExists(label string) bool {
	_, idx := d.current().childByLabel(label, d.CaseSensitive)
	return idx >= 0
}

// GetComment returns the comment text of the named child.
func (d *Document) GetComment(label string) (string, bool) {
	child, idx := d.current().childByLabel(label, d.CaseSensitive)
	if idx < 0 {
		return "", false
	}
	return child.Comment, true
}

// GetCreation returns the editor name and timestamp that created the
// named child.
func (d *Document) GetCreation(label string) (editorName string, at time.Time, ok bool) {
	child, idx := d.current().childByLabel(label, d.CaseSensitive)
	if idx < 0 {
		return "", time.Time{}, false
	}
	name, _ := d.Editors.FindByID(child.CreatedBy)
	return name, child.CreatedAt, true
}

// GetModification returns the editor name and timestamp of the named
// child's last modification. A node that has never been modified past
// creation still reports its creation stamp (creation implies an initial
// modification in this model).
func (d *Document) GetModification(label string) (editorName string, at time.Time, ok bool) {
	child, idx := d.current().childByLabel(label, d.CaseSensitive)
	if idx < 0 {
		return "", time.Time{}, false
	}
	name, _ := d.Editors.FindByID(child.ModifiedBy)
	return name, child.ModifiedAt, true
}

// AddChild creates a new child under the current node, stamped as
// created and modified by editor. Fails if a sibling already has this
// label (spec.md §3 invariant 3).
func (d *Document) AddChild(label string, editor uint32, now time.Time) (*Node, error) {
	if label == "" {
		return nil, fmt.Errorf("tree: label must not be empty")
	}
	cur := d.current()
	if _, idx := cur.childByLabel(label, d.CaseSensitive); idx >= 0 {
		return nil, fmt.Errorf("tree: sibling %q already exists", label)
	}
	child := newNode(label, editor, now)
	child.Parent = cur
	cur.Children = append(cur.Children, child)
	d.touchAncestors(now, editor)
	return child, nil
}

// RenameChild renames a child, preserving its subtree and provenance
// except for the modification stamp.
func (d *Document) RenameChild(oldLabel, newLabel string, editor uint32, now time.Time) error {
	cur := d.current()
	child, _ := cur.childByLabel(oldLabel, d.CaseSensitive)
	if child == nil {
		return fmt.Errorf("tree: no child %q", oldLabel)
	}
	if _, idx := cur.childByLabel(newLabel, d.CaseSensitive); idx >= 0 && !labelsEqual(oldLabel, newLabel, d.CaseSensitive) {
		return fmt.Errorf("tree: sibling %q already exists", newLabel)
	}
	child.Label = newLabel
	child.ModifiedBy = editor
	child.ModifiedAt = now
	d.touchAncestors(now, editor)
	return nil
}

// DeleteChild unlinks a child (and its whole subtree).
func (d *Document) DeleteChild(label string, editor uint32, now time.Time) error {
	cur := d.current()
	_, idx := cur.childByLabel(label, d.CaseSensitive)
	if idx < 0 {
		return fmt.Errorf("tree: no child %q", label)
	}
	cur.Children = append(cur.Children[:idx], cur.Children[idx+1:]...)
	d.touchAncestors(now, editor)
	return nil
}

// SetComment sets (or, given empty text, removes) the comment of a
// child.
func (d *Document) SetComment(label, text string, editor uint32, now time.Time) error {
	child, idx := d.current().childByLabel(label, d.CaseSensitive)
	if idx < 0 {
		return fmt.Errorf("tree: no child %q", label)
	}
	child.Comment = text
	child.ModifiedBy = editor
	child.ModifiedAt = now
	d.touchAncestors(now, editor)
	return nil
}

// touchAncestors bumps ModifiedAt/By on every node on the path from the
// root to (and including) the current cursor position, implementing
// spec.md §8 invariant 2: an internal node's modified_at is never older
// than a descendant's.
func (d *Document) touchAncestors(now time.Time, editor uint32) {
	d.touchNode(d.Root, now, editor)
	for _, n := range d.cursor {
		d.touchNode(n, now, editor)
	}
}

func (d *Document) touchNode(n *Node, now time.Time, editor uint32) {
	if now.After(n.ModifiedAt) {
		n.ModifiedAt = now
		n.ModifiedBy = editor
	}
}

// Touch unconditionally stamps the root's modification record, the first
// step of Store.Save ("Stamp root modification"), which runs on every save
// regardless of whether a mutation occurred this session.
func (d *Document) Touch(editor uint32, now time.Time) {
	d.Root.ModifiedBy = editor
	d.Root.ModifiedAt = now
	d.ModifiedBy = editor
	d.ModifiedAt = now
}

// TemplateLevel returns the template level that applies to children
// created at the current cursor position.
func (d *Document) TemplateLevel() int { return len(d.cursor) + 1 }

// Walk calls fn for every node in the tree (root excluded), depth-first,
// in insertion order. Used by the loader's one-time creation-stamp sweep.
func (d *Document) Walk(fn func(*Node)) {
	walkChildren(d.Root, fn)
}

func walkChildren(n *Node, fn func(*Node)) {
	for _, c := range n.Children {
		fn(c)
		walkChildren(c, fn)
	}
}
