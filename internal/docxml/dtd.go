package docxml

import "github.com/bwesterb/byteswriter"

// The three DTD fragments of spec.md §4.5, assembled at write time into a
// single inline DTD. Splitting them mirrors the teacher's pattern of
// writing fixed, precomputed pieces into a single buffer (container.go's
// fsKeyHeader/fsCacheHeader via byteswriter.NewWriter).
const (
	dtdElements = `<!ELEMENT root (template?,editor?,node*)>
<!ELEMENT node (comment?,node*)>
<!ATTLIST node label CDATA #REQUIRED>
<!ELEMENT comment (#PCDATA)>
<!ELEMENT template (title*)>
<!ELEMENT title (#PCDATA)>
<!ATTLIST title level CDATA #REQUIRED>
<!ELEMENT editor (user*)>
<!ELEMENT user (#PCDATA)>
<!ATTLIST user uid CDATA #REQUIRED>
`
	dtdCreationGroup = `<!ATTLIST root created_by CDATA #IMPLIED created_at CDATA #IMPLIED>
<!ATTLIST node created_by CDATA #IMPLIED created_at CDATA #IMPLIED>
`
	dtdModificationGroup = `<!ATTLIST root modified_by CDATA #IMPLIED modified_at CDATA #IMPLIED version CDATA #REQUIRED case_sensitive CDATA #IMPLIED>
<!ATTLIST node modified_by CDATA #IMPLIED modified_at CDATA #IMPLIED>
<!ATTLIST title created_at CDATA #IMPLIED modified_at CDATA #IMPLIED status CDATA #IMPLIED>
<!ATTLIST editor created_at CDATA #IMPLIED>
<!ATTLIST user created_at CDATA #IMPLIED>
`
)

// buildDTD assembles the three fragments into one inline <!DOCTYPE root [...]>
// block, written through a byteswriter.Writer the way container.go writes
// fixed-layout headers into a preallocated buffer.
func buildDTD() []byte {
	fragments := []string{dtdElements, dtdCreationGroup, dtdModificationGroup}
	total := 0
	for _, f := range fragments {
		total += len(f)
	}
	buf := make([]byte, total)
	w := byteswriter.NewWriter(buf)
	for _, f := range fragments {
		if _, err := w.Write([]byte(f)); err != nil {
			// byteswriter only errors if the buffer is too small, which
			// cannot happen here since we sized it exactly above.
			panic(err)
		}
	}
	return append([]byte("<!DOCTYPE root [\n"), append(buf, []byte("]>\n")...)...)
}
