// Package crypto implements C2, the CryptoEngine adapter. The concrete
// implementation wraps golang.org/x/crypto/openpgp; the vocabulary of
// signature summaries and key validity follows GPGME's, since that is the
// OpenPGP backend cpm's C ancestor was actually written against.
package crypto

import "fmt"

// SigSum mirrors gpgme's GPGME_SIGSUM_* bitmask describing a checked
// signature.
type SigSum int

const (
	SigSumValid      SigSum = 1 << iota // the signature is fully valid
	SigSumGreen                         // the signature is good (green)
	SigSumRed                           // the signature is bad (red)
	SigSumKeyRevoked                    // the key has been revoked
	SigSumKeyExpired                    // the key has expired
	SigSumSigExpired                    // the signature has expired
	SigSumKeyMissing                    // the key was not found locally
	SigSumCRLMissing                    // a CRL is missing
	SigSumCRLTooOld                     // a CRL is too old
	SigSumBadPolicy                     // a policy was not met
	SigSumSysError                      // a system error occurred
)

// Validity mirrors gpgme's GPGME_VALIDITY_* enum.
type Validity int

const (
	ValidityUnknown Validity = iota
	ValidityUndefined
	ValidityNever
	ValidityMarginal
	ValidityFull
	ValidityUltimate
)

// PubkeyAlgo identifies the public-key algorithm used by a signing key.
type PubkeyAlgo int

const (
	PubkeyAlgoUnknown PubkeyAlgo = iota
	PubkeyAlgoRSA
	PubkeyAlgoDSA
)

// HashAlgo identifies the hash algorithm used by a signature.
type HashAlgo int

const (
	HashAlgoUnknown HashAlgo = iota
	HashAlgoSHA1
	HashAlgoSHA256
	HashAlgoSHA384
	HashAlgoSHA512
)

// SignatureResult is the outcome of verifying a single signature, using the
// same fields spec.md §4.2 requires the read path to evaluate: summary,
// validity, key status, hash/pubkey algorithm and signature class.
type SignatureResult struct {
	Fingerprint string
	Summary     SigSum
	Validity    Validity
	Hash        HashAlgo
	Pubkey      PubkeyAlgo
	SigClass    int
	WrongKeyUsage bool
}

// acceptableHashes and acceptablePubkeyAlgos enumerate the policy of
// spec.md §4.2: "acceptable hash ∈ {SHA1, SHA256, SHA384, SHA512},
// acceptable pubkey algorithm ∈ {DSA, RSA}".
var acceptableHashes = map[HashAlgo]bool{
	HashAlgoSHA1:   true,
	HashAlgoSHA256: true,
	HashAlgoSHA384: true,
	HashAlgoSHA512: true,
}

var acceptablePubkeyAlgos = map[PubkeyAlgo]bool{
	PubkeyAlgoDSA: true,
	PubkeyAlgoRSA: true,
}

// Deviation names the specific way a signature failed policy, so callers
// can build the "naming the offending key fingerprint and the specific
// deviation" error spec.md §4.2 requires.
type Deviation string

const (
	DeviationNone           Deviation = ""
	DeviationExpired        Deviation = "expired"
	DeviationRevoked        Deviation = "revoked"
	DeviationMissingKey     Deviation = "missing key"
	DeviationCRL            Deviation = "CRL"
	DeviationPolicy         Deviation = "policy"
	DeviationBadSignature   Deviation = "bad signature"
	DeviationWrongKeyUsage  Deviation = "wrong key usage"
	DeviationUnacceptableHash Deviation = "unacceptable hash algorithm"
	DeviationUnacceptablePubkey Deviation = "unacceptable pubkey algorithm"
	DeviationUnknown        Deviation = "unknown"
)

// Evaluate applies the acceptance policy of spec.md §4.2 to a signature
// result and returns the first deviation found, or DeviationNone if the
// signature is acceptable (valid+green, full validity, known status, no
// wrong key usage, acceptable hash and pubkey algorithm, signature class 0).
func (r SignatureResult) Evaluate() Deviation {
	switch {
	case r.Summary&SigSumKeyRevoked != 0:
		return DeviationRevoked
	case r.Summary&SigSumKeyExpired != 0, r.Summary&SigSumSigExpired != 0:
		return DeviationExpired
	case r.Summary&SigSumKeyMissing != 0:
		return DeviationMissingKey
	case r.Summary&SigSumCRLMissing != 0, r.Summary&SigSumCRLTooOld != 0:
		return DeviationCRL
	case r.Summary&SigSumBadPolicy != 0:
		return DeviationPolicy
	case r.Summary&SigSumRed != 0:
		return DeviationBadSignature
	case r.WrongKeyUsage:
		return DeviationWrongKeyUsage
	case r.Validity != ValidityFull:
		return DeviationPolicy
	case r.Summary&(SigSumValid|SigSumGreen) != SigSumValid|SigSumGreen:
		return DeviationUnknown
	case !acceptableHashes[r.Hash]:
		return DeviationUnacceptableHash
	case !acceptablePubkeyAlgos[r.Pubkey]:
		return DeviationUnacceptablePubkey
	case r.SigClass != 0:
		return DeviationPolicy
	default:
		return DeviationNone
	}
}

// Error returns the user-facing message for a deviation, naming the
// offending key, matching the wording of spec.md scenario S5.
func (d Deviation) Error(fingerprint string) error {
	switch d {
	case DeviationExpired:
		return fmt.Errorf("Signature valid but key %s has expired.", fingerprint)
	case DeviationRevoked:
		return fmt.Errorf("Signature valid but key %s has been revoked.", fingerprint)
	case DeviationMissingKey:
		return fmt.Errorf("No public key found for signature by %s.", fingerprint)
	default:
		return fmt.Errorf("Signature by %s rejected: %s.", fingerprint, string(d))
	}
}
