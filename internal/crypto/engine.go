package crypto

import (
	"bytes"
	"crypto"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	gocrypto "golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/packet"
)

// PassphraseFunc supplies a passphrase for the given retry attempt and
// realm. It mirrors the polymorphic passphrase_fn of spec.md §9: one
// implementation lives in the TUI frontend, one in the CLI frontend.
type PassphraseFunc func(retry int, realm string) (string, error)

// maxRetries bounds how many times a bad passphrase may be retried before
// the cache is cleared for good, per spec.md §4.2.
const maxRetries = 3

// Engine is the concrete CryptoEngine adapter (C2), backed by
// golang.org/x/crypto/openpgp. Recipient/signer identification, signature
// policy evaluation, and encrypt/decrypt both go through it.
type Engine struct {
	SecretRing gocrypto.EntityList
	PublicRing gocrypto.EntityList

	passphraseFunc PassphraseFunc
	keepPassphrase bool

	cachedPassphrase string
	cachedRealm      string
	haveCached       bool
	retries          int
}

// New constructs an Engine over the given key rings. If GPG_AGENT_INFO is
// present in the environment and contains a colon, per spec.md §4.2 the
// agent is assumed to own passphrase prompting and no callback is
// installed here.
func New(secretRing, publicRing gocrypto.EntityList) *Engine {
	e := &Engine{SecretRing: secretRing, PublicRing: publicRing}
	if agent, ok := os.LookupEnv("GPG_AGENT_INFO"); ok && strings.Contains(agent, ":") {
		e.passphraseFunc = nil
	}
	return e
}

// SetPassphraseFunc installs the passphrase callback, unless an agent has
// already claimed the role (see New).
func (e *Engine) SetPassphraseFunc(fn PassphraseFunc, keepPassphrase bool) {
	if agent, ok := os.LookupEnv("GPG_AGENT_INFO"); ok && strings.Contains(agent, ":") {
		return
	}
	e.passphraseFunc = fn
	e.keepPassphrase = keepPassphrase
}

// promptFor asks the configured callback for a passphrase, honoring the
// keep_passphrase cache as long as the realm has not changed.
func (e *Engine) promptFor(realm string) (string, error) {
	if e.passphraseFunc == nil {
		return "", fmt.Errorf("crypto: no passphrase callback installed (agent expected to provide one)")
	}
	if e.keepPassphrase && e.haveCached && e.cachedRealm == realm {
		return e.cachedPassphrase, nil
	}
	if e.cachedRealm != realm {
		e.retries = 0
		e.haveCached = false
	}
	if e.retries >= maxRetries {
		return "", fmt.Errorf("crypto: too many failed passphrase attempts for realm %q", realm)
	}
	pass, err := e.passphraseFunc(e.retries, realm)
	if err != nil {
		e.retries++
		return "", err
	}
	if e.keepPassphrase {
		e.cachedPassphrase = pass
		e.cachedRealm = realm
		e.haveCached = true
	}
	return pass, nil
}

// invalidateCache is called on a failed decryption attempt: per spec.md
// §4.2 a bad passphrase clears the cache and the retry counter advances.
func (e *Engine) invalidateCache() {
	e.haveCached = false
	e.retries++
}

// usable reports whether an entity can be used, per spec.md §4.2:
// "can_encrypt && !disabled && !expired && !invalid && !revoked".
func usable(ent *gocrypto.Entity) bool {
	if ent == nil || ent.PrimaryKey == nil {
		return false
	}
	self, ok := ent.Identities[primaryIdentity(ent)]
	if !ok {
		return false
	}
	if self.SelfSignature == nil || self.SelfSignature.SigType != packet.SigTypePositiveCert {
		return false
	}
	if self.SelfSignature.RevocationReason != nil {
		return false
	}
	if self.SelfSignature.KeyExpired(ent.PrimaryKey.CreationTime) {
		return false
	}
	// A key with an encryption-capable subkey or primary key is usable.
	// Keys with no key-flag subpacket at all predate RFC 4880's flag
	// system and are treated as usable, matching GnuPG's own default.
	hasFlags := self.SelfSignature.FlagsValid
	canEncrypt := hasFlags && self.SelfSignature.FlagEncryptCommunications
	for _, sub := range ent.Subkeys {
		if sub.Sig == nil {
			continue
		}
		hasFlags = hasFlags || sub.Sig.FlagsValid
		if sub.Sig.FlagsValid && sub.Sig.FlagEncryptCommunications {
			canEncrypt = true
		}
	}
	return canEncrypt || !hasFlags
}

func primaryIdentity(ent *gocrypto.Entity) string {
	for name := range ent.Identities {
		return name
	}
	return ""
}

// IsSecretKey reports whether query resolves to a key for which the
// secret part is held locally.
func (e *Engine) IsSecretKey(query string) bool {
	_, ok := e.findIn(e.SecretRing, query)
	return ok
}

// FindFingerprint resolves query (a key ID, email, or name fragment) to
// the canonical hex fingerprint of a usable key. secretOnly restricts the
// search to keys for which the secret part is held locally -- required
// for signers.
func (e *Engine) FindFingerprint(query string, secretOnly bool) (string, bool) {
	ring := e.PublicRing
	if secretOnly {
		ring = e.SecretRing
	}
	ent, ok := e.findIn(ring, query)
	if !ok || !usable(ent) {
		return "", false
	}
	return fmt.Sprintf("%X", ent.PrimaryKey.Fingerprint), true
}

func (e *Engine) findIn(ring gocrypto.EntityList, query string) (*gocrypto.Entity, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false
	}
	upper := strings.ToUpper(query)
	for _, ent := range ring {
		if ent.PrimaryKey == nil {
			continue
		}
		fp := fmt.Sprintf("%X", ent.PrimaryKey.Fingerprint)
		keyID := fmt.Sprintf("%X", ent.PrimaryKey.Fingerprint[12:])
		if fp == upper || keyID == upper {
			return ent, true
		}
		for name := range ent.Identities {
			if strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
				return ent, true
			}
		}
	}
	return nil, false
}

// ValidateRecipient canonicalises query into the
// "KEYID NAME (COMMENT) <EMAIL>" recipient identifier of the glossary.
// Empty or unparsable input is rejected.
func (e *Engine) ValidateRecipient(query string) (string, error) {
	ent, ok := e.findIn(e.PublicRing, query)
	if !ok {
		return "", fmt.Errorf("crypto: no key found for %q", query)
	}
	keyID := fmt.Sprintf("%X", ent.PrimaryKey.Fingerprint[12:])
	for name, identity := range ent.Identities {
		if identity.UserId == nil {
			continue
		}
		comment := identity.UserId.Comment
		email := identity.UserId.Email
		realName := identity.UserId.Name
		if realName == "" {
			realName = name
		}
		if comment != "" {
			return fmt.Sprintf("%s %s (%s) <%s>", keyID, realName, comment, email), nil
		}
		return fmt.Sprintf("%s %s <%s>", keyID, realName, email), nil
	}
	return "", fmt.Errorf("crypto: key %s has no identity", keyID)
}

// envelope is this engine's on-disk wire format for an encrypted+signed
// message: one inline-signed OpenPGP encrypted block (the "primary"
// signer, which an unmodified OpenPGP reader can still verify) plus zero
// or more additional detached signatures from any further signers, each
// length-prefixed. Spec.md treats the OpenPGP implementation itself as
// abstract; this framing is how this engine satisfies "result must carry
// exactly as many signatures as signers provided" without requiring
// multi-signature inline packet construction.
const envelopeMagic = "CPME"

func writeEnvelope(w io.Writer, primary []byte, extra [][]byte) error {
	if _, err := w.Write([]byte(envelopeMagic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(primary))); err != nil {
		return err
	}
	if _, err := w.Write(primary); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(extra))); err != nil {
		return err
	}
	for _, sig := range extra {
		if err := binary.Write(w, binary.BigEndian, uint32(len(sig))); err != nil {
			return err
		}
		if _, err := w.Write(sig); err != nil {
			return err
		}
	}
	return nil
}

func readEnvelope(r io.Reader) (primary []byte, extra [][]byte, err error) {
	magic := make([]byte, len(envelopeMagic))
	if _, err = io.ReadFull(r, magic); err != nil {
		return nil, nil, fmt.Errorf("crypto: truncated envelope: %w", err)
	}
	if string(magic) != envelopeMagic {
		return nil, nil, fmt.Errorf("crypto: not a recognised ciphertext envelope")
	}
	var n uint32
	if err = binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, nil, err
	}
	primary = make([]byte, n)
	if _, err = io.ReadFull(r, primary); err != nil {
		return nil, nil, err
	}
	var count uint32
	if err = binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, nil, err
	}
	for i := uint32(0); i < count; i++ {
		if err = binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, nil, err
		}
		sig := make([]byte, n)
		if _, err = io.ReadFull(r, sig); err != nil {
			return nil, nil, err
		}
		extra = append(extra, sig)
	}
	return primary, extra, nil
}

// EncryptSign encrypts plain to recipients and signs it with signers.
// Requires at least one signer. Always-trust encryption, per spec.md §4.2.
func (e *Engine) EncryptSign(plain []byte, recipients, signers []string) ([]byte, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("crypto: encrypt requires at least one signer")
	}

	toEntities := make([]*gocrypto.Entity, 0, len(recipients))
	for _, r := range recipients {
		ent, ok := e.findIn(e.PublicRing, r)
		if !ok {
			return nil, fmt.Errorf("crypto: unknown recipient %q", r)
		}
		toEntities = append(toEntities, ent)
	}

	signerEntities := make([]*gocrypto.Entity, 0, len(signers))
	for _, s := range signers {
		ent, ok := e.findIn(e.SecretRing, s)
		if !ok {
			return nil, fmt.Errorf("crypto: unknown signer %q", s)
		}
		signerEntities = append(signerEntities, ent)
	}

	cfg := &packet.Config{DefaultCompressionAlgo: packet.CompressionNone}

	var primaryBuf bytes.Buffer
	wc, err := gocrypto.Encrypt(&primaryBuf, toEntities, signerEntities[0], nil, cfg)
	if err != nil {
		return nil, fmt.Errorf("crypto: encrypt: %w", err)
	}
	if _, err := wc.Write(plain); err != nil {
		return nil, fmt.Errorf("crypto: encrypt write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return nil, fmt.Errorf("crypto: encrypt close: %w", err)
	}

	extra := make([][]byte, 0, len(signerEntities)-1)
	for _, ent := range signerEntities[1:] {
		var sigBuf bytes.Buffer
		if err := gocrypto.DetachSign(&sigBuf, ent, bytes.NewReader(plain), cfg); err != nil {
			return nil, fmt.Errorf("crypto: detached sign: %w", err)
		}
		extra = append(extra, sigBuf.Bytes())
	}

	var out bytes.Buffer
	if err := writeEnvelope(&out, primaryBuf.Bytes(), extra); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecryptVerify decrypts cipher and verifies its primary signature,
// returning the recipient key IDs the message was encrypted to and the
// result of evaluating that signature against spec.md §4.2's policy.
func (e *Engine) DecryptVerify(cipher []byte) (plain []byte, recipientIDs []string, sig SignatureResult, err error) {
	primary, extra, err := readEnvelope(bytes.NewReader(cipher))
	if err != nil {
		return nil, nil, SignatureResult{}, err
	}

	md, err := gocrypto.ReadMessage(bytes.NewReader(primary), e.SecretRing,
		func(keys []gocrypto.Key, symmetric bool) ([]byte, error) {
			realm := "cpm"
			if len(keys) > 0 {
				realm = primaryIdentity(keys[0].Entity)
			}
			pass, err := e.promptFor(realm)
			if err != nil {
				e.invalidateCache()
				return nil, err
			}
			return []byte(pass), nil
		}, nil)
	if err != nil {
		return nil, nil, SignatureResult{}, fmt.Errorf("crypto: decrypt: %w", err)
	}

	for _, key := range md.EncryptedToKeyIds {
		recipientIDs = append(recipientIDs, fmt.Sprintf("%X", key))
	}

	plain, err = ioutil.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, recipientIDs, SignatureResult{}, fmt.Errorf("crypto: reading body: %w", err)
	}

	if md.SignatureError != nil {
		return plain, recipientIDs, SignatureResult{Summary: SigSumRed}, fmt.Errorf("crypto: %w", md.SignatureError)
	}
	if md.Signature == nil || md.SignedBy == nil {
		return plain, recipientIDs, SignatureResult{Summary: SigSumKeyMissing}, fmt.Errorf("crypto: message is not signed")
	}

	result := evaluateSignature(md.Signature, md.SignedByKeyId, md.SignedBy)

	for _, sigBytes := range extra {
		if _, err := gocrypto.CheckDetachedSignature(e.PublicRing, bytes.NewReader(plain), bytes.NewReader(sigBytes)); err != nil {
			return plain, recipientIDs, result, fmt.Errorf("crypto: additional signature check failed: %w", err)
		}
	}

	return plain, recipientIDs, result, nil
}

func evaluateSignature(sig *packet.Signature, keyID uint64, signedBy *gocrypto.Key) SignatureResult {
	res := SignatureResult{
		Fingerprint: fmt.Sprintf("%X", keyID),
		Summary:     SigSumValid | SigSumGreen,
		Validity:    ValidityFull,
		SigClass:    int(sig.SigType),
	}
	switch sig.Hash {
	case crypto.SHA1:
		res.Hash = HashAlgoSHA1
	case crypto.SHA256:
		res.Hash = HashAlgoSHA256
	case crypto.SHA384:
		res.Hash = HashAlgoSHA384
	case crypto.SHA512:
		res.Hash = HashAlgoSHA512
	}
	switch sig.PubKeyAlgo {
	case packet.PubKeyAlgoRSA, packet.PubKeyAlgoRSASignOnly:
		res.Pubkey = PubkeyAlgoRSA
	case packet.PubKeyAlgoDSA:
		res.Pubkey = PubkeyAlgoDSA
	}
	if signedBy != nil && signedBy.Entity != nil {
		self, ok := signedBy.Entity.Identities[primaryIdentity(signedBy.Entity)]
		if ok && self.SelfSignature != nil {
			if self.SelfSignature.KeyExpired(signedBy.PublicKey.CreationTime) {
				res.Summary |= SigSumKeyExpired
			}
			if self.SelfSignature.RevocationReason != nil {
				res.Summary |= SigSumKeyRevoked
			}
		}
	}
	return res
}
