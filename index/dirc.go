package index

import (
	"bytes"
	"crypto"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/chr33s/git/githash"
	"github.com/chr33s/git/objects"
)

var (
	signature = [4]byte{'D', 'I', 'R', 'C'}
	// ErrCorrupt is returned when the DIRC header or trailer do not match.
	ErrCorrupt = errors.New("index: corrupt DIRC file")
)

const version = 2

// entryHeaderSize is every fixed-width field before the variable-length
// name: two timespecs, dev, ino, mode, uid, gid, size, 20-byte oid, flags.
const entryHeaderSize = 4*2 + 4*2 + 4 + 4 + 4 + 4 + 4 + 4 + githash.Size + 2

// Encode writes idx in DIRC v2 format to w.
func Encode(w io.Writer, idx *Index) error {
	h := githash.New(crypto.SHA1)
	mw := io.MultiWriter(w, h)

	if err := binary.Write(mw, binary.BigEndian, signature); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.BigEndian, uint32(version)); err != nil {
		return err
	}
	if err := binary.Write(mw, binary.BigEndian, uint32(len(idx.Entries))); err != nil {
		return err
	}

	offset := uint64(12)
	entries := append([]Entry(nil), idx.Entries...)
	sortEntries(entries)

	for _, e := range entries {
		n, err := encodeEntry(mw, e, offset)
		if err != nil {
			return err
		}
		offset += uint64(n)
	}

	sum := h.Sum(nil)
	_, err := w.Write(sum)
	return err
}

func encodeEntry(w io.Writer, e Entry, offset uint64) (int, error) {
	var buf bytes.Buffer

	sec := uint32(e.Mtime.Unix())
	nsec := uint32(e.Mtime.Nanosecond())
	if e.Mtime.IsZero() {
		sec, nsec = 0, 0
	}

	fields := []uint32{
		0, 0, // ctime sec, nsec (unused; no real working tree)
		sec, nsec, // mtime
		0, // dev
		0, // ino
		modeBits(e.Mode),
		0, // uid
		0, // gid
		e.Size,
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.BigEndian, f); err != nil {
			return 0, err
		}
	}

	oidBytes, err := e.OID.Bytes()
	if err != nil {
		return 0, err
	}
	buf.Write(oidBytes)

	nameLen := len(e.Path)
	flags := uint16(nameLen)
	if nameLen > 0xFFF {
		flags = 0xFFF
	}
	if err := binary.Write(&buf, binary.BigEndian, flags); err != nil {
		return 0, err
	}
	buf.WriteString(e.Path)

	total := int(offset) + buf.Len()
	pad := 8 - (total % 8)
	if pad == 0 {
		pad = 8
	}
	// The entry must be NUL-terminated and padded so that it ends on a
	// multiple of 8 bytes of the running file offset (12-byte header
	// included), not just of the name length.
	buf.Write(make([]byte, pad))

	if _, err := w.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

func modeBits(m objects.FileMode) uint32 {
	switch m {
	case objects.ModeFile:
		return 0o100644
	case objects.ModeExecutable:
		return 0o100755
	case objects.ModeSymlink:
		return 0o120000
	case objects.ModeDir:
		return 0o40000
	default:
		return 0o100644
	}
}

func modeFromBits(v uint32) objects.FileMode {
	switch v {
	case 0o100755:
		return objects.ModeExecutable
	case 0o120000:
		return objects.ModeSymlink
	case 0o40000:
		return objects.ModeDir
	default:
		return objects.ModeFile
	}
}

// Decode parses a DIRC v2 index file. A missing file is represented by the
// caller passing an empty reader's worth of bytes is NOT supported here;
// callers should treat a missing index file as index.New() directly (spec
// §4.E: "A missing index file is equivalent to zero entries").
func Decode(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 12+githash.Size {
		return nil, fmt.Errorf("%w: truncated", ErrCorrupt)
	}

	body := data[:len(data)-githash.Size]
	trailer := data[len(data)-githash.Size:]

	h := githash.New(crypto.SHA1)
	h.Write(body)
	if !bytes.Equal(h.Sum(nil), trailer) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	if !bytes.Equal(body[:4], signature[:]) {
		return nil, fmt.Errorf("%w: bad signature", ErrCorrupt)
	}
	ver := binary.BigEndian.Uint32(body[4:8])
	if ver != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, ver)
	}
	count := binary.BigEndian.Uint32(body[8:12])

	idx := &Index{Entries: make([]Entry, 0, count)}
	offset := uint64(12)
	pos := 12
	for i := uint32(0); i < count; i++ {
		e, n, err := decodeEntry(body[pos:], offset)
		if err != nil {
			return nil, err
		}
		idx.Entries = append(idx.Entries, e)
		pos += n
		offset += uint64(n)
	}
	sortEntries(idx.Entries)
	return idx, nil
}

func decodeEntry(b []byte, offset uint64) (Entry, int, error) {
	if len(b) < entryHeaderSize {
		return Entry{}, 0, fmt.Errorf("%w: truncated entry", ErrCorrupt)
	}
	fields := make([]uint32, 10)
	for i := range fields {
		fields[i] = binary.BigEndian.Uint32(b[i*4 : i*4+4])
	}
	mtimeSec, mtimeNsec := fields[2], fields[3]
	mode := fields[6]
	size := fields[9]

	oidOff := 10 * 4
	oidBytes := b[oidOff : oidOff+githash.Size]
	oid := objects.NewOID(oidBytes)

	flagsOff := oidOff + githash.Size
	flags := binary.BigEndian.Uint16(b[flagsOff : flagsOff+2])
	nameLen := int(flags & 0x0FFF)

	nameOff := flagsOff + 2
	if len(b) < nameOff+nameLen {
		return Entry{}, 0, fmt.Errorf("%w: truncated name", ErrCorrupt)
	}
	name := string(b[nameOff : nameOff+nameLen])

	total := int(offset) + nameOff + nameLen
	pad := 8 - (total % 8)
	if pad == 0 {
		pad = 8
	}
	entryLen := nameOff + nameLen + pad

	var mtime time.Time
	if mtimeSec != 0 || mtimeNsec != 0 {
		mtime = time.Unix(int64(mtimeSec), int64(mtimeNsec)).UTC()
	}

	return Entry{
		Path:  name,
		OID:   oid,
		Mode:  modeFromBits(mode),
		Size:  size,
		Mtime: mtime,
	}, entryLen, nil
}

func sortEntries(e []Entry) {
	sort.Slice(e, func(i, j int) bool { return e[i].Path < e[j].Path })
}
