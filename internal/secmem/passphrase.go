package secmem

import "fmt"

// MaxPassphraseLen is the maximum passphrase length, not counting the NUL
// terminator cpm's C ancestor always budgeted for.
const MaxPassphraseLen = 256

// Passphrase is the process-scoped passphrase buffer of spec.md §3
// ("Runtime state"). It is fixed-size so that the backing region never
// needs to be reallocated (and therefore never leaves a stale copy behind
// in a freed-and-reused heap block).
type Passphrase struct {
	region *Region
	length int
}

// NewPassphrase allocates an empty passphrase buffer.
func NewPassphrase() (*Passphrase, error) {
	r, err := Alloc(MaxPassphraseLen + 1)
	if err != nil {
		return nil, err
	}
	return &Passphrase{region: r}, nil
}

// Set copies s into the buffer. It refuses to store more than
// MaxPassphraseLen bytes.
func (p *Passphrase) Set(s string) error {
	if len(s) > MaxPassphraseLen {
		return fmt.Errorf("secmem: passphrase exceeds %d bytes", MaxPassphraseLen)
	}
	buf := p.region.Bytes()
	volatileZero(buf)
	copy(buf, s)
	p.length = len(s)
	return nil
}

// String returns the stored passphrase. Callers should not retain the
// returned string beyond the current crypto call: it is a private Go
// string that secmem cannot zeroise on Clear.
func (p *Passphrase) String() string {
	return string(p.region.Bytes()[:p.length])
}

// Len returns the number of bytes currently stored.
func (p *Passphrase) Len() int { return p.length }

// Clear zeroises the buffer. final mirrors the C ancestor's
// clear_passphrase(final): the caller should pass true on any lifecycle
// transition where the keep_passphrase policy does not apply (retry
// exhausted, realm changed, session teardown) and false when caching
// across crypto calls is in effect and should be preserved.
func (p *Passphrase) Clear(final bool, keepPassphrase bool) {
	if !final && keepPassphrase {
		return
	}
	volatileZero(p.region.Bytes())
	p.length = 0
}

// Free releases the underlying region. Clear(true, false) is implied.
func (p *Passphrase) Free() error {
	p.length = 0
	return p.region.Free()
}
