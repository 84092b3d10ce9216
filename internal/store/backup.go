package store

import (
	"io"
	"os"

	"github.com/cespare/xxhash"
	"golang.org/x/sys/unix"

	"github.com/hbrueckner/cpm/internal/cpmerr"
)

// permMask restricts a backup's mode bits to rwx for user/group/other,
// per spec.md §4.10 step 5 ("preserve mode bits masked to rwx
// user/group/other").
const permMask = os.FileMode(0777)

// backupFile copies path to path+"~", refusing to follow a symlink at
// path and truncating any pre-existing backup, then verifies the copy's
// integrity with an xxhash checksum -- the teacher's container.go does
// not itself need a backup step, but this mirrors its care around
// syscall-level file handling (fsync, explicit flag sets) for a
// durability-sensitive write.
func backupFile(path string) error {
	src, err := os.OpenFile(path, os.O_RDONLY|unix.O_NOFOLLOW, 0)
	if os.IsNotExist(err) {
		return nil // nothing to back up yet
	}
	if err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to open %s for backup", path)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to stat %s", path)
	}

	dst, err := os.OpenFile(path+"~", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode()&permMask)
	if err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to create backup of %s", path)
	}
	defer dst.Close()

	srcHash := xxhash.New()
	dstHash := xxhash.New()

	if _, err := io.Copy(io.MultiWriter(dst, dstHash), io.TeeReader(src, srcHash)); err != nil {
		return cpmerr.WrapErrorf(err, "store: failed to copy backup of %s", path)
	}
	if srcHash.Sum64() != dstHash.Sum64() {
		return cpmerr.Errorf("store: backup of %s failed integrity check", path)
	}
	return nil
}
