package docxml

import "encoding/xml"

// The on-disk element shapes of spec.md §4.5. Every attribute these types
// write is declared in the DTD fragments of dtd.go; encoding/xml enforces
// most of the element nesting the DTD declares, and validate (validate.go)
// covers what the type system alone cannot.

type xmlDoc struct {
	XMLName xml.Name `xml:"root"`

	Version string `xml:"version,attr"`

	CreatedBy string `xml:"created_by,attr,omitempty"`
	CreatedAt string `xml:"created_at,attr,omitempty"`

	ModifiedBy string `xml:"modified_by,attr,omitempty"`
	ModifiedAt string `xml:"modified_at,attr,omitempty"`

	CaseSensitive string `xml:"case_sensitive,attr,omitempty"`

	Templates *xmlTemplateTable `xml:"template"`
	Editors   *xmlEditorTable   `xml:"editor"`
	Nodes     []xmlNode         `xml:"node"`
}

type xmlTemplateTable struct {
	Titles []xmlTitle `xml:"title"`
}

type xmlTitle struct {
	Level  int    `xml:"level,attr"`
	Status string `xml:"status,attr,omitempty"`
	Value  string `xml:",chardata"`
}

type xmlEditorTable struct {
	Users []xmlUser `xml:"user"`
}

type xmlUser struct {
	UID       uint32 `xml:"uid,attr"`
	CreatedAt string `xml:"created_at,attr,omitempty"`
	Value     string `xml:",chardata"`
}

type xmlNode struct {
	Label string `xml:"label,attr"`

	CreatedBy string `xml:"created_by,attr,omitempty"`
	CreatedAt string `xml:"created_at,attr,omitempty"`

	ModifiedBy string `xml:"modified_by,attr,omitempty"`
	ModifiedAt string `xml:"modified_at,attr,omitempty"`

	Comment *xmlComment `xml:"comment"`
	Nodes   []xmlNode   `xml:"node"`
}

type xmlComment struct {
	Value string `xml:",chardata"`
}
