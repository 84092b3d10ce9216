package crypto

import (
	"testing"

	gocrypto "golang.org/x/crypto/openpgp"
)

func newTestEntity(t *testing.T, name, email string) *gocrypto.Entity {
	t.Helper()
	ent, err := gocrypto.NewEntity(name, "", email, nil)
	if err != nil {
		t.Fatalf("NewEntity(%s): %v", name, err)
	}
	return ent
}

func TestEncryptSignDecryptVerifyRoundTrip(t *testing.T) {
	alice := newTestEntity(t, "Alice", "alice@example.com")
	bob := newTestEntity(t, "Bob", "bob@example.com")

	secretRing := gocrypto.EntityList{alice, bob}
	publicRing := gocrypto.EntityList{alice, bob}

	engine := New(secretRing, publicRing)

	aliceFP, ok := engine.FindFingerprint("alice", true)
	if !ok {
		t.Fatalf("FindFingerprint(alice) failed")
	}
	bobFP, ok := engine.FindFingerprint("bob", true)
	if !ok {
		t.Fatalf("FindFingerprint(bob) failed")
	}

	recipient, err := engine.ValidateRecipient("bob")
	if err != nil {
		t.Fatalf("ValidateRecipient: %v", err)
	}
	if recipient == "" {
		t.Fatalf("ValidateRecipient returned empty identifier")
	}

	plain := []byte("super secret database contents")
	cipher, err := engine.EncryptSign(plain, []string{bobFP}, []string{aliceFP})
	if err != nil {
		t.Fatalf("EncryptSign: %v", err)
	}

	gotPlain, recipients, sig, err := engine.DecryptVerify(cipher)
	if err != nil {
		t.Fatalf("DecryptVerify: %v", err)
	}
	if string(gotPlain) != string(plain) {
		t.Fatalf("round trip mismatch: got %q want %q", gotPlain, plain)
	}
	if len(recipients) != 1 {
		t.Fatalf("expected exactly one recipient key id, got %d", len(recipients))
	}
	if dev := sig.Evaluate(); dev != DeviationNone {
		t.Fatalf("signature evaluated to deviation %q, want none", dev)
	}
}

func TestEncryptSignRequiresSigner(t *testing.T) {
	alice := newTestEntity(t, "Alice", "alice@example.com")
	engine := New(gocrypto.EntityList{alice}, gocrypto.EntityList{alice})

	if _, err := engine.EncryptSign([]byte("x"), nil, nil); err == nil {
		t.Fatalf("EncryptSign with no signers should fail")
	}
}

func TestIsSecretKey(t *testing.T) {
	alice := newTestEntity(t, "Alice", "alice@example.com")
	bob := newTestEntity(t, "Bob", "bob@example.com")

	engine := New(gocrypto.EntityList{alice}, gocrypto.EntityList{alice, bob})
	if !engine.IsSecretKey("alice") {
		t.Fatalf("alice should be a secret key")
	}
	if engine.IsSecretKey("bob") {
		t.Fatalf("bob should not be a secret key")
	}
}
