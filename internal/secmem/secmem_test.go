package secmem

import "testing"

func TestRegionZeroOnFree(t *testing.T) {
	r, err := Alloc(64)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	buf := r.Bytes()
	for i := range buf {
		buf[i] = 0xff
	}
	if err := r.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
}

func TestLiveAllocationsAccounting(t *testing.T) {
	before := LiveAllocations()

	r, err := Alloc(32)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if got := LiveAllocations(); got != before+1 {
		t.Fatalf("LiveAllocations() = %d, want %d", got, before+1)
	}
	if err := r.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if got := LiveAllocations(); got != before {
		t.Fatalf("LiveAllocations() = %d, want %d", got, before)
	}
}

func TestPassphraseClearFinal(t *testing.T) {
	p, err := NewPassphrase()
	if err != nil {
		t.Fatalf("NewPassphrase: %v", err)
	}
	defer p.Free()

	if err := p.Set("hunter2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if p.String() != "hunter2" {
		t.Fatalf("String() = %q, want hunter2", p.String())
	}

	p.Clear(true, false)
	if p.Len() != 0 {
		t.Fatalf("Len() = %d after Clear(true, ...), want 0", p.Len())
	}
	for _, b := range p.region.Bytes() {
		if b != 0 {
			t.Fatalf("buffer not zeroised after Clear(true, ...)")
		}
	}
}

func TestPassphraseClearKeepsCacheUnlessFinal(t *testing.T) {
	p, err := NewPassphrase()
	if err != nil {
		t.Fatalf("NewPassphrase: %v", err)
	}
	defer p.Free()

	if err := p.Set("s3cr3t"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	p.Clear(false, true) // keep_passphrase policy on, not a final transition
	if p.Len() != 6 {
		t.Fatalf("passphrase was cleared despite keep_passphrase policy")
	}
}

func TestPassphraseRejectsOversize(t *testing.T) {
	p, err := NewPassphrase()
	if err != nil {
		t.Fatalf("NewPassphrase: %v", err)
	}
	defer p.Free()

	over := make([]byte, MaxPassphraseLen+1)
	if err := p.Set(string(over)); err == nil {
		t.Fatalf("Set() accepted an oversize passphrase")
	}
}
