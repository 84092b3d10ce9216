package crypto

import (
	"os"
	"path/filepath"

	gocrypto "golang.org/x/crypto/openpgp"

	"github.com/hbrueckner/cpm/internal/cpmerr"
)

// LoadKeyRings reads the classic GnuPG keyring files (secring.gpg,
// pubring.gpg) out of gnupgHome. A missing file yields an empty ring
// rather than an error, since a fresh GNUPGHOME with only a public key
// imported is a normal starting state.
func LoadKeyRings(gnupgHome string) (secret, public gocrypto.EntityList, err error) {
	secret, err = readRingFile(filepath.Join(gnupgHome, "secring.gpg"))
	if err != nil {
		return nil, nil, cpmerr.WrapKindErrorf(cpmerr.KindCrypto, err, "crypto: loading secret keyring")
	}
	public, err = readRingFile(filepath.Join(gnupgHome, "pubring.gpg"))
	if err != nil {
		return nil, nil, cpmerr.WrapKindErrorf(cpmerr.KindCrypto, err, "crypto: loading public keyring")
	}
	return secret, public, nil
}

func readRingFile(path string) (gocrypto.EntityList, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gocrypto.ReadKeyRing(f)
}
