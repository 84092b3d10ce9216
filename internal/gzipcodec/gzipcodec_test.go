package gzipcodec

import (
	"bytes"
	"testing"
)

func TestRoundTripAllLevels(t *testing.T) {
	src := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 500)
	for level := 1; level <= 6; level++ {
		compressed, err := Compress(src, level)
		if err != nil {
			t.Fatalf("Compress(level=%d): %v", level, err)
		}
		if !LooksCompressed(compressed) {
			t.Fatalf("Compress(level=%d) output missing gzip magic", level)
		}
		got, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress(level=%d): %v", level, err)
		}
		if !bytes.Equal(got, src) {
			t.Fatalf("round trip mismatch at level=%d", level)
		}
	}
}

func TestLooksCompressedRejectsPlainText(t *testing.T) {
	if LooksCompressed([]byte("<xml></xml>")) {
		t.Fatalf("plain XML incorrectly detected as gzip")
	}
}
