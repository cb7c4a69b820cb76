// Package pktline implements the pkt-line framing primitive used throughout
// the smart-HTTP wire protocol (spec §4.J): a packet is a 4-byte lowercase
// hex length of the whole packet followed by that many payload bytes, plus
// the flush (0000) and delimiter (0001) control packets.
package pktline

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxPayload is the largest payload a single data packet may carry
// (65516 = 65520 - 4 header bytes).
const MaxPayload = 65516

// flush and delim are the zero-length control packets.
var (
	flush = []byte("0000")
	delim = []byte("0001")
)

// ErrInvalid is returned for malformed framing.
var ErrInvalid = errors.New("pktline: invalid packet")

// Encode writes a single data packet. len(payload) must not exceed MaxPayload.
func Encode(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: payload too large (%d bytes)", ErrInvalid, len(payload))
	}
	n := len(payload) + 4
	if _, err := fmt.Fprintf(w, "%04x", n); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// EncodeString is a convenience wrapper for textual lines.
func EncodeString(w io.Writer, s string) error {
	return Encode(w, []byte(s))
}

// Flush writes the flush packet (0000).
func Flush(w io.Writer) error {
	_, err := w.Write(flush)
	return err
}

// Delim writes the delimiter packet (0001).
func Delim(w io.Writer) error {
	_, err := w.Write(delim)
	return err
}

// Packet is one decoded unit: either Flush/Delim (Payload is nil) or a data
// packet (Payload holds its content, Flush/Delim both false).
type Packet struct {
	Flush   bool
	Delim   bool
	Payload []byte
}

// Reader decodes a pkt-line stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for pkt-line decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next reads and decodes one packet. io.EOF is returned when the underlying
// stream ends cleanly before any bytes of a new packet are read.
func (pr *Reader) Next() (Packet, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(pr.r, lenBuf[:]); err != nil {
		return Packet{}, err
	}
	var n int
	if _, err := fmt.Sscanf(string(lenBuf[:]), "%04x", &n); err != nil {
		return Packet{}, fmt.Errorf("%w: bad length %q", ErrInvalid, lenBuf)
	}
	switch n {
	case 0:
		return Packet{Flush: true}, nil
	case 1:
		return Packet{Delim: true}, nil
	}
	if n < 4 {
		return Packet{}, fmt.Errorf("%w: length %d too small", ErrInvalid, n)
	}
	payload := make([]byte, n-4)
	if _, err := io.ReadFull(pr.r, payload); err != nil {
		return Packet{}, fmt.Errorf("%w: truncated payload: %v", ErrInvalid, err)
	}
	return Packet{Payload: payload}, nil
}

// ReadLines reads data packets until a flush, returning each payload with
// any trailing newline stripped.
func ReadLines(r io.Reader) ([]string, error) {
	pr := NewReader(r)
	var out []string
	for {
		pkt, err := pr.Next()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		if pkt.Flush {
			return out, nil
		}
		if pkt.Delim {
			continue
		}
		out = append(out, string(bytes.TrimSuffix(pkt.Payload, []byte("\n"))))
	}
}
