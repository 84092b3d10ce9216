// Package secmem implements C1: allocation of memory that is zeroised on
// release and, where the platform allows it, locked out of swap.
//
// It mirrors the teacher's container/lockfile idiom of "acquire a system
// resource, guarantee its release path, count what leaked": here the
// resource is a page of memory instead of a file lock.
package secmem

import (
	"fmt"
	"sync/atomic"

	mmap "github.com/edsrzf/mmap-go"
)

// liveAllocations counts regions that have been allocated but not yet
// freed. A nonzero value at process shutdown indicates a leak.
var liveAllocations int64

// LiveAllocations returns the number of secmem regions currently allocated.
func LiveAllocations() int64 {
	return atomic.LoadInt64(&liveAllocations)
}

// Region is a byte buffer backed by its own memory mapping so it can be
// mlock'd independently of the Go heap, and that is guaranteed to be
// overwritten with zeroes when Free is called.
type Region struct {
	buf    mmap.MMap
	locked bool
	freed  bool
}

// Alloc allocates a zero-filled region of the given size. If mlock is
// available on this platform it locks the region into RAM; failure to lock
// is not fatal, it only means this region won't benefit from whole-process
// mlockall either.
func Alloc(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secmem: invalid size %d", size)
	}
	m, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("secmem: mmap: %w", err)
	}
	r := &Region{buf: m}
	if err := r.buf.Lock(); err == nil {
		r.locked = true
	}
	atomic.AddInt64(&liveAllocations, 1)
	return r, nil
}

// Bytes returns the underlying buffer. The caller must not retain slices
// of it past Free.
func (r *Region) Bytes() []byte { return []byte(r.buf) }

// Locked reports whether the region was successfully pinned into RAM.
func (r *Region) Locked() bool { return r.locked }

// Realloc grows or shrinks the region, preserving the overlapping prefix
// and zeroising the old region before releasing it.
func (r *Region) Realloc(newSize int) (*Region, error) {
	n, err := Alloc(newSize)
	if err != nil {
		return nil, err
	}
	copy(n.Bytes(), r.Bytes())
	if err := r.Free(); err != nil {
		return n, err
	}
	return n, nil
}

// Zero overwrites the region with zero bytes using a write path the
// compiler is not permitted to elide.
func (r *Region) Zero() {
	volatileZero(r.Bytes())
}

// Free zeroises and releases the region. It is safe to call Free more than
// once; subsequent calls are no-ops.
func (r *Region) Free() error {
	if r.freed {
		return nil
	}
	r.Zero()
	if r.locked {
		_ = r.buf.Unlock()
	}
	err := r.buf.Unmap()
	r.freed = true
	atomic.AddInt64(&liveAllocations, -1)
	return err
}

// volatileZero writes zero to every byte of buf through a path the
// compiler cannot prove is dead, so the store cannot be optimised away.
//
//go:noinline
func volatileZero(buf []byte) {
	for i := range buf {
		*(*byte)(noescape(&buf[i])) = 0
	}
}

//go:noinline
func noescape(p *byte) *byte { return p }
