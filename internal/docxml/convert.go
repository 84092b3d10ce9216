package docxml

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hbrueckner/cpm/internal/template"
	"github.com/hbrueckner/cpm/internal/tree"
)

func formatUID(uid uint32) string {
	if uid == tree.UnknownEditor {
		return ""
	}
	return strconv.FormatUint(uint64(uid), 10)
}

func parseUID(s string) uint32 {
	if s == "" {
		return tree.UnknownEditor
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return tree.UnknownEditor
	}
	return uint32(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return tree.FormatTimestamp(t)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := tree.ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// toXML flattens a document into its serialisable shape. Editors and
// templates are emitted before the node tree, per the supplemented
// serialisation order of SPEC_FULL.md (the original writes the lookup
// tables a reader needs before the content that references them).
func toXML(doc *tree.Document) *xmlDoc {
	out := &xmlDoc{
		Version:       strconv.Itoa(doc.VersionMajor<<16 | doc.VersionMinor),
		CreatedBy:     formatUID(doc.CreatedBy),
		CreatedAt:     formatTime(doc.CreatedAt),
		ModifiedBy:    formatUID(doc.ModifiedBy),
		ModifiedAt:    formatTime(doc.ModifiedAt),
		CaseSensitive: strconv.FormatBool(doc.CaseSensitive),
	}

	if editors := doc.Editors.List(); len(editors) > 0 {
		table := &xmlEditorTable{}
		for _, ed := range editors {
			table.Users = append(table.Users, xmlUser{
				UID:       ed.UID,
				CreatedAt: formatTime(ed.CreatedAt),
				Value:     ed.Name,
			})
		}
		out.Editors = table
	}

	if templates := doc.Templates.List(); len(templates) > 0 {
		table := &xmlTemplateTable{}
		for _, e := range templates {
			status := ""
			if e.Status == template.StatusPassword {
				status = "password"
			}
			table.Titles = append(table.Titles, xmlTitle{Level: e.Level, Status: status, Value: e.Title})
		}
		out.Templates = table
	}

	out.Nodes = childrenToXML(doc.Root)
	return out
}

func childrenToXML(n *tree.Node) []xmlNode {
	children := n.ChildNodes()
	out := make([]xmlNode, 0, len(children))
	for _, c := range children {
		xn := xmlNode{
			Label:      c.Label,
			CreatedBy:  formatUID(c.CreatedBy),
			CreatedAt:  formatTime(c.CreatedAt),
			ModifiedBy: formatUID(c.ModifiedBy),
			ModifiedAt: formatTime(c.ModifiedAt),
			Nodes:      childrenToXML(c),
		}
		if c.Comment != "" {
			xn.Comment = &xmlComment{Value: encodeComment(c.Comment)}
		}
		out = append(out, xn)
	}
	return out
}

// fromXML rebuilds a document from its serialised shape, copying the
// stamps it finds without adding or changing any. The one-time
// creation-stamp sweep (spec.md §4.5.1) is run afterwards by Load when
// the document needs it.
func fromXML(x *xmlDoc) (*tree.Document, error) {
	version, err := strconv.Atoi(x.Version)
	if err != nil {
		return nil, fmt.Errorf("docxml: invalid version attribute %q", x.Version)
	}
	major, minor := version>>16, version&0xffff

	doc := tree.Restore(
		major, minor,
		parseUID(x.CreatedBy), parseTime(x.CreatedAt),
		parseUID(x.ModifiedBy), parseTime(x.ModifiedAt),
		x.CaseSensitive == "true",
	)

	if x.Editors != nil {
		for _, u := range x.Editors.Users {
			doc.Editors.Restore(tree.Editor{UID: u.UID, Name: u.Value, CreatedAt: parseTime(u.CreatedAt)})
		}
	}

	if x.Templates != nil {
		for _, t := range x.Templates.Titles {
			status := template.StatusNormal
			if t.Status == "password" {
				status = template.StatusPassword
			}
			doc.Templates.Restore(t.Level, t.Value, status)
		}
	}

	if err := appendChildren(doc.Root, x.Nodes); err != nil {
		return nil, err
	}
	return doc, nil
}

func appendChildren(parent *tree.Node, nodes []xmlNode) error {
	for _, xn := range nodes {
		if xn.Label == "" {
			return fmt.Errorf("docxml: node element missing required label attribute")
		}
		comment := ""
		if xn.Comment != nil {
			comment = decodeComment(xn.Comment.Value)
		}
		child := tree.RestoreNode(
			xn.Label, comment,
			parseUID(xn.CreatedBy), parseTime(xn.CreatedAt),
			parseUID(xn.ModifiedBy), parseTime(xn.ModifiedAt),
		)
		parent.AppendRestored(child)
		if err := appendChildren(child, xn.Nodes); err != nil {
			return err
		}
	}
	return nil
}
