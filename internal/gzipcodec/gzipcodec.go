// Package gzipcodec implements C3: gzip compression with format
// autodetection on read, grounded in the teacher's magic-byte header
// checks (container.go's FS_CONTAINER_KEY_MAGIC/FS_CONTAINER_CACHE_MAGIC).
package gzipcodec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Magic is the two-byte gzip header cpm's C ancestor sniffs for on read.
var Magic = [2]byte{0x1f, 0x8b}

// workingBufferSize is the streaming chunk size of spec.md §4.3: "a 10 KiB
// working buffer, growing the output buffer by that increment on each
// deflate/inflate iteration until the stream ends".
const workingBufferSize = 10 * 1024

// Level selects a compression effort 0-9; spec.md §4.3 default is "best".
type Level int

const (
	NoCompression      Level = gzip.NoCompression
	BestSpeed          Level = gzip.BestSpeed
	BestCompression    Level = gzip.BestCompression
	DefaultCompression Level = gzip.DefaultCompression
)

// LooksCompressed reports whether buf begins with the gzip magic.
func LooksCompressed(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == Magic[0] && buf[1] == Magic[1]
}

// Compress gzip-compresses src at the given level, feeding the compressor
// workingBufferSize bytes at a time. The output buffer starts with
// workingBufferSize bytes of capacity and grows as bytes.Buffer grows.
func Compress(src []byte, level int) ([]byte, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("gzipcodec: invalid level %d", level)
	}
	out := bytes.NewBuffer(make([]byte, 0, workingBufferSize))
	w, err := gzip.NewWriterLevel(out, level)
	if err != nil {
		return nil, fmt.Errorf("gzipcodec: NewWriterLevel: %w", err)
	}
	chunk := make([]byte, workingBufferSize)
	r := bytes.NewReader(src)
	for {
		n, rerr := r.Read(chunk)
		if n > 0 {
			if _, werr := w.Write(chunk[:n]); werr != nil {
				return nil, fmt.Errorf("gzipcodec: deflate: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("gzipcodec: read: %w", rerr)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzipcodec: close: %w", err)
	}
	return out.Bytes(), nil
}

// Decompress gunzips src. Callers should first check LooksCompressed; per
// spec.md §4.3 a buffer without the gzip magic is passed through unchanged
// by the caller instead of being handed to Decompress.
func Decompress(src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("gzipcodec: NewReader: %w", err)
	}
	defer r.Close()

	out := bytes.NewBuffer(make([]byte, 0, workingBufferSize))
	chunk := make([]byte, workingBufferSize)
	for {
		n, rerr := r.Read(chunk)
		if n > 0 {
			out.Write(chunk[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("gzipcodec: inflate: %w", rerr)
		}
	}
	return out.Bytes(), nil
}
