// Package objdeflate wraps the zlib streams used for loose objects and
// individual pack entries. It is a thin shim over klauspost/compress, which
// the rest of the retrieval pack's higher-throughput Git reimplementation
// (antgroup/hugescm) adopts in place of the standard library for the same
// compression-heavy paths.
package objdeflate

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Compress returns the zlib-compressed form of b at the default compression
// level, matching git's own loose-object and pack-entry encoding.
func Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress inflates a complete zlib stream.
func Decompress(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// NewReader wraps r as a streaming zlib reader, used by the pack parser to
// inflate entries in place without buffering the whole pack.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(r)
}
