package tree

import "time"

// UnknownEditor is the reserved uid meaning "unknown", per spec.md §3.
const UnknownEditor uint32 = 0

// Editor is an authorship record (spec.md §3 "Editor").
type Editor struct {
	UID       uint32
	Name      string
	CreatedAt time.Time
}

// EditorTable is the document's editor registry. Uids are monotonically
// assigned and stable for the life of the file; names are unique
// case-sensitively.
type EditorTable struct {
	byUID   map[uint32]*Editor
	byName  map[string]*Editor
	nextUID uint32
}

// NewEditorTable returns an empty editor table.
func NewEditorTable() *EditorTable {
	return &EditorTable{
		byUID:   make(map[uint32]*Editor),
		byName:  make(map[string]*Editor),
		nextUID: 1,
	}
}

// Add registers name if new and returns its uid; repeated calls with the
// same name return the same uid (spec.md §8 invariant 4).
func (t *EditorTable) Add(name string, now time.Time) uint32 {
	if ed, ok := t.byName[name]; ok {
		return ed.UID
	}
	ed := &Editor{UID: t.nextUID, Name: name, CreatedAt: now}
	t.byUID[ed.UID] = ed
	t.byName[name] = ed
	t.nextUID++
	return ed.UID
}

// FindByID returns the editor name for uid, if any.
func (t *EditorTable) FindByID(uid uint32) (string, bool) {
	if uid == UnknownEditor {
		return "", false
	}
	ed, ok := t.byUID[uid]
	if !ok {
		return "", false
	}
	return ed.Name, true
}

// restore registers an editor loaded verbatim from disk, preserving its
// uid and creation time rather than minting a new one. Used by the XML
// deserialiser.
func (t *EditorTable) restore(ed Editor) {
	t.byUID[ed.UID] = &ed
	t.byName[ed.Name] = &ed
	if ed.UID >= t.nextUID {
		t.nextUID = ed.UID + 1
	}
}

// List returns all editors ordered by uid, for serialisation.
func (t *EditorTable) List() []Editor {
	out := make([]Editor, 0, len(t.byUID))
	for _, ed := range t.byUID {
		out = append(out, *ed)
	}
	sortEditorsByUID(out)
	return out
}

func sortEditorsByUID(editors []Editor) {
	for i := 1; i < len(editors); i++ {
		for j := i; j > 0 && editors[j].UID < editors[j-1].UID; j-- {
			editors[j], editors[j-1] = editors[j-1], editors[j]
		}
	}
}

// Restore exposes restore to the docxml package without making the
// EditorTable's loading path part of the general mutation API.
func (t *EditorTable) Restore(ed Editor) { t.restore(ed) }
