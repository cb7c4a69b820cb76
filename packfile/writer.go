package packfile

import (
	"bytes"
	"encoding/binary"

	"github.com/chr33s/git/objdeflate"
	"github.com/chr33s/git/objects"
)

// Source provides the raw bytes for each object the writer emits.
type Source interface {
	Read(oid objects.OID) (objects.Kind, []byte, error)
}

// Write emits a pack containing exactly the given OIDs, in the order given,
// as literal (non-delta) entries — this writer never searches for deltas
// (spec §4.G: "no delta computation in this implementation"), which keeps
// its output deterministic per input.
func Write(w *bytes.Buffer, src Source, oids []objects.OID) error {
	w.Write(signature[:])
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], Version)
	w.Write(hdr[:])
	binary.BigEndian.PutUint32(hdr[:], uint32(len(oids)))
	w.Write(hdr[:])

	for _, oid := range oids {
		kind, data, err := src.Read(oid)
		if err != nil {
			return err
		}
		if err := writeEntry(w, kind, data); err != nil {
			return err
		}
	}

	sum := checksum(w.Bytes())
	w.Write(sum)
	return nil
}

func writeEntry(w *bytes.Buffer, kind objects.Kind, data []byte) error {
	writeEntryHeader(w, fromObjectKind(kind), len(data))

	compressed, err := objdeflate.Compress(data)
	if err != nil {
		return err
	}
	w.Write(compressed)
	return nil
}

func writeEntryHeader(w *bytes.Buffer, kind entryKind, size int) {
	b0 := byte(kind)<<4 | byte(size&0x0f)
	size >>= 4
	for size > 0 {
		w.WriteByte(b0 | 0x80)
		b0 = byte(size & 0x7f)
		size >>= 7
	}
	w.WriteByte(b0)
}
