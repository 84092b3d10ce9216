// Package store implements C10: the read and write pipelines of
// spec.md §4.10, tying together the crypto engine (C2), the gzip codec
// (C3), and the XML serialiser (C5) around a locked on-disk file.
package store

import (
	"os"
	"time"

	"github.com/nightlyone/lockfile"

	"github.com/hbrueckner/cpm/internal/cpmerr"
	"github.com/hbrueckner/cpm/internal/crypto"
	"github.com/hbrueckner/cpm/internal/docxml"
	"github.com/hbrueckner/cpm/internal/gzipcodec"
	"github.com/hbrueckner/cpm/internal/tree"
)

// Store binds a document file on disk to the crypto engine and recipient
// list used to read and write it.
type Store struct {
	path      string
	encrypted bool
	engine    *crypto.Engine

	lock     lockfile.Lockfile
	readOnly bool
	level    gzipcodec.Level
}

// Open acquires the companion lock file for path and returns a Store
// ready for Load/Save. decide is consulted only if the lock is already
// held; a nil decide always falls back to read-only rather than
// reclaiming.
func Open(path string, encrypted bool, engine *crypto.Engine, decide ReclaimDecision) (*Store, error) {
	lock, readOnly, err := acquireLock(path, decide)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, encrypted: encrypted, engine: engine, lock: lock, readOnly: readOnly, level: gzipcodec.BestCompression}, nil
}

// SetCompression overrides the gzip level Save uses, per the resource
// file's Compression directive (spec.md §4.3 defaults to "best").
func (s *Store) SetCompression(level gzipcodec.Level) { s.level = level }

// ReadOnly reports whether this session is running without the lock
// (either because reclaim was declined/failed, or because a later
// decryption discovered unresolvable recipients -- see ForceReadOnly).
func (s *Store) ReadOnly() bool { return s.readOnly }

// ForceReadOnly is called by the session controller once it discovers a
// condition -- e.g. an unresolvable recipient (spec.md §4.9) -- that
// makes re-encryption impossible even though the lock was acquired.
func (s *Store) ForceReadOnly() { s.readOnly = true }

// Close releases the lock, if held.
func (s *Store) Close() error {
	if err := releaseLock(s.lock); err != nil {
		return err
	}
	s.lock = ""
	return nil
}

// Load implements spec.md §4.10's read pipeline. editorUID/now identify
// the loading session, used both to stamp a freshly created empty
// document and to drive docxml's creation-stamp sweep on an old-format
// file. recipientIDs lists the key IDs the file was encrypted to, for
// the key-ring manager to reconcile against local public keys.
func (s *Store) Load(editorUID uint32, now time.Time, defaultTemplates []string) (doc *tree.Document, upgraded bool, recipientIDs []string, sig crypto.SignatureResult, err error) {
	raw, statErr := os.ReadFile(s.path)
	if os.IsNotExist(statErr) {
		doc = tree.New(editorUID, now, defaultTemplates)
		return doc, false, nil, crypto.SignatureResult{}, nil
	}
	if statErr != nil {
		return nil, false, nil, crypto.SignatureResult{}, cpmerr.WrapErrorf(statErr, "store: failed to read %s", s.path)
	}

	plain := raw
	if s.encrypted {
		if s.engine == nil {
			return nil, false, nil, crypto.SignatureResult{}, cpmerr.Errorf("store: file is encrypted but no crypto engine is configured")
		}
		var decErr error
		plain, recipientIDs, sig, decErr = s.engine.DecryptVerify(raw)
		if decErr != nil {
			return nil, false, recipientIDs, sig, cpmerr.WrapErrorf(decErr, "store: decrypt/verify %s", s.path)
		}
	} else {
		cpmerr.Logf("store: reading %s unencrypted", s.path)
	}

	if gzipcodec.LooksCompressed(plain) {
		decompressed, decErr := gzipcodec.Decompress(plain)
		if decErr != nil {
			return nil, false, recipientIDs, sig, cpmerr.WrapErrorf(decErr, "store: decompress %s", s.path)
		}
		plain = decompressed
	}

	doc, upgraded, loadErr := docxml.Load(plain, editorUID, now)
	if loadErr != nil {
		return nil, false, recipientIDs, sig, loadErr
	}
	return doc, upgraded, recipientIDs, sig, nil
}

// Save implements spec.md §4.10's write pipeline. recipients/signers
// name the current key-ring contents; both are required when s.encrypted.
func (s *Store) Save(doc *tree.Document, editorUID uint32, now time.Time, recipients, signers []string) error {
	if s.readOnly {
		return cpmerr.Errorf("store: session is read-only, refusing to save %s", s.path)
	}

	doc.Touch(editorUID, now)

	serialised, err := docxml.Save(doc)
	if err != nil {
		return err
	}

	var body []byte
	if s.encrypted {
		body, err = gzipcodec.Compress(serialised, int(s.level))
		if err != nil {
			return cpmerr.WrapErrorf(err, "store: compress %s", s.path)
		}
	} else {
		body = serialised
	}

	final := body
	if s.encrypted {
		if s.engine == nil {
			return cpmerr.Errorf("store: file is encrypted but no crypto engine is configured")
		}
		final, err = s.engine.EncryptSign(body, recipients, signers)
		if err != nil {
			return cpmerr.WrapErrorf(err, "store: encrypt/sign %s", s.path)
		}
	}

	if err := backupFile(s.path); err != nil {
		return err
	}
	return atomicReplace(s.path, final)
}
