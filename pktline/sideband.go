package pktline

import "io"

// Side-band-64k channel numbers (spec §4.J).
const (
	ChannelData     = 1
	ChannelProgress = 2
	ChannelError    = 3
)

// sidebandMaxChunk leaves room for the channel byte inside a pkt-line of at
// most MaxPayload payload bytes (65520 bytes in total with its header).
const sidebandMaxChunk = MaxPayload - 1

// WriteSideband splits data into side-band-64k packets on the given channel,
// each wrapped as a pkt-line whose payload is the channel byte followed by
// up to sidebandMaxChunk bytes of data.
func WriteSideband(w io.Writer, channel byte, data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > sidebandMaxChunk {
			n = sidebandMaxChunk
		}
		chunk := make([]byte, n+1)
		chunk[0] = channel
		copy(chunk[1:], data[:n])
		if err := Encode(w, chunk); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
