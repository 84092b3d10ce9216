// Package keyring implements C9: the ordered set of recipient identifiers
// a document is encrypted to.
package keyring

import (
	"fmt"
	"sort"
)

// Validator canonicalises a recipient query into its
// "KEYID NAME (COMMENT) <EMAIL>" identifier, the role internal/crypto's
// Engine.ValidateRecipient plays. Defined narrowly here so this package
// does not need to import the crypto engine type.
type Validator func(query string) (string, error)

// Ring is the ordered, case-sensitively-sorted recipient set of spec.md
// §4.9.
type Ring struct {
	validate Validator
	entries  []string

	// readOnly is forced on when a decrypted document names a recipient
	// whose public key is not held locally: the session cannot
	// re-encrypt completely and must not pretend otherwise.
	readOnly bool
}

// New returns an empty ring using validate to canonicalise additions.
func New(validate Validator) *Ring {
	return &Ring{validate: validate}
}

// Add canonicalises query and inserts it if not already present,
// preserving sorted order. Returns the canonical identifier.
func (r *Ring) Add(query string) (string, error) {
	canonical, err := r.validate(query)
	if err != nil {
		return "", err
	}
	idx := sort.SearchStrings(r.entries, canonical)
	if idx < len(r.entries) && r.entries[idx] == canonical {
		return canonical, nil
	}
	r.entries = append(r.entries, "")
	copy(r.entries[idx+1:], r.entries[idx:])
	r.entries[idx] = canonical
	return canonical, nil
}

// Change replaces the recipient at index with query's canonicalisation.
func (r *Ring) Change(index int, query string) error {
	if index < 0 || index >= len(r.entries) {
		return fmt.Errorf("keyring: index %d out of range", index)
	}
	canonical, err := r.validate(query)
	if err != nil {
		return err
	}
	r.entries = append(r.entries[:index], r.entries[index+1:]...)
	idx := sort.SearchStrings(r.entries, canonical)
	r.entries = append(r.entries, "")
	copy(r.entries[idx+1:], r.entries[idx:])
	r.entries[idx] = canonical
	return nil
}

// Delete removes the recipient at index.
func (r *Ring) Delete(index int) error {
	if index < 0 || index >= len(r.entries) {
		return fmt.Errorf("keyring: index %d out of range", index)
	}
	r.entries = append(r.entries[:index], r.entries[index+1:]...)
	return nil
}

// Count returns the number of recipients.
func (r *Ring) Count() int { return len(r.entries) }

// List returns the recipients in sorted order.
func (r *Ring) List() []string {
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

// Restore adds a recipient identifier verbatim, bypassing validate -- the
// identifier is trusted to already be canonical. The session controller
// uses it for the recipient key IDs a decrypted file names.
func (r *Ring) Restore(canonical string) {
	idx := sort.SearchStrings(r.entries, canonical)
	if idx < len(r.entries) && r.entries[idx] == canonical {
		return
	}
	r.entries = append(r.entries, "")
	copy(r.entries[idx+1:], r.entries[idx:])
	r.entries[idx] = canonical
}

// NoteUnresolvedRecipient records that a decrypted document named a
// recipient with no matching local public key, forcing the session
// read-only per spec.md §4.9.
func (r *Ring) NoteUnresolvedRecipient() { r.readOnly = true }

// ReadOnly reports whether the ring has been forced read-only.
func (r *Ring) ReadOnly() bool { return r.readOnly }

// AddRealmHint appends realm (typically the editor's own identity) to the
// ring after a successful decryption, so a reader of the file can always
// re-encrypt to themselves -- spec.md §4.9: "adding a new realm after
// decryption automatically appends the realm hint to the defaults".
func (r *Ring) AddRealmHint(realm string) (string, error) {
	return r.Add(realm)
}
