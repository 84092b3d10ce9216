package store

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/hbrueckner/cpm/internal/cpmerr"
)

// atomicReplace writes data to path without ever leaving a half-written
// file in its place: write a temp file, fsync it, rename it over path,
// then fsync the parent directory so the rename itself is durable.
// Grounded directly on the teacher's container.go writeKeyFile.
func atomicReplace(path string, data []byte) error {
	tmpPath := path + ".tmp"
	tmpFile, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to create temporary file for %s", path)
	}

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return cpmerr.WrapErrorf(err, "store: failed to write temporary file for %s", path)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return cpmerr.WrapErrorf(err, "store: failed to sync temporary file for %s", path)
	}
	if err := tmpFile.Close(); err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to close temporary file for %s", path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to replace %s", path)
	}

	dirName := filepath.Dir(path)
	dirFd, err := unix.Open(dirName, unix.O_DIRECTORY|unix.O_RDONLY, 0)
	if err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to open parent directory of %s", path)
	}
	if err := unix.Fsync(dirFd); err != nil {
		unix.Close(dirFd)
		return cpmerr.WrapErrorf(err, "store: failed to sync parent directory of %s", path)
	}
	if err := unix.Close(dirFd); err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to close parent directory fd for %s", path)
	}
	return nil
}
