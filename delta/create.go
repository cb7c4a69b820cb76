package delta

import (
	"github.com/chr33s/git/bytesutil"
	"github.com/chr33s/git/varint"
)

// Create builds a delta that reconstructs target from source. It indexes
// source with a hash of every window-sized chunk, then greedily
// extends matches found at each target position, falling back to an INSERT
// buffer (split at 127 bytes per instruction) for unmatched runs.
func Create(source, target []byte) []byte {
	header := varint.Write(nil, uint64(len(source)))
	header = varint.Write(header, uint64(len(target)))

	out := bytesutil.NewBuilder(len(header) + len(target)/2)
	out.Write(header)

	index := indexChunks(source)

	var insertBuf []byte
	flush := func() {
		for len(insertBuf) > 0 {
			n := len(insertBuf)
			if n > maxInsert {
				n = maxInsert
			}
			out.WriteByte(byte(n))
			out.Write(insertBuf[:n])
			insertBuf = insertBuf[n:]
		}
	}

	i := 0
	for i < len(target) {
		if i+window <= len(target) {
			h := hashChunk(target[i : i+window])
			if candidates, ok := index[h]; ok {
				if off, length, ok := bestMatch(source, target, candidates, i); ok {
					flush()
					emitCopy(out, off, length)
					i += length
					continue
				}
			}
		}
		insertBuf = append(insertBuf, target[i])
		i++
	}
	flush()

	return out.Bytes()
}

func indexChunks(source []byte) map[uint64][]int {
	index := make(map[uint64][]int)
	if len(source) < window {
		return index
	}
	for i := 0; i+window <= len(source); i++ {
		h := hashChunk(source[i : i+window])
		index[h] = append(index[h], i)
	}
	return index
}

// hashChunk is a simple FNV-1a hash of one window, recomputed in full for
// each window (not rolling); it need not be cryptographic, only good enough
// to bucket candidate offsets.
func hashChunk(b []byte) uint64 {
	var h uint64 = 1469598103934665603
	for _, c := range b {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return h
}

// bestMatch extends every candidate source offset as far as possible against
// target starting at ti, and returns the longest extension found.
func bestMatch(source, target []byte, candidates []int, ti int) (offset, length int, ok bool) {
	best := -1
	bestLen := 0
	for _, so := range candidates {
		l := 0
		for so+l < len(source) && ti+l < len(target) && l < maxCopySize && source[so+l] == target[ti+l] {
			l++
		}
		if l > bestLen {
			bestLen = l
			best = so
		}
	}
	if best < 0 || bestLen < window {
		return 0, 0, false
	}
	return best, bestLen, true
}

func emitCopy(out *bytesutil.Builder, offset, size int) {
	for size > 0 {
		n := size
		if n > maxCopySize {
			n = maxCopySize
		}
		encodeCopy(out, offset, n)
		offset += n
		size -= n
	}
}

func encodeCopy(out *bytesutil.Builder, offset, size int) {
	op := byte(0x80)
	var extra []byte

	if offset&0xff != 0 {
		extra = append(extra, byte(offset))
		op |= 0x01
	}
	if offset&0xff00 != 0 {
		extra = append(extra, byte(offset>>8))
		op |= 0x02
	}
	if offset&0xff0000 != 0 {
		extra = append(extra, byte(offset>>16))
		op |= 0x04
	}
	if offset&0xff000000 != 0 {
		extra = append(extra, byte(offset>>24))
		op |= 0x08
	}

	encSize := size
	if encSize == maxCopySize {
		encSize = 0
	}
	if encSize&0xff != 0 {
		extra = append(extra, byte(encSize))
		op |= 0x10
	}
	if encSize&0xff00 != 0 {
		extra = append(extra, byte(encSize>>8))
		op |= 0x20
	}
	if encSize&0xff0000 != 0 {
		extra = append(extra, byte(encSize>>16))
		op |= 0x40
	}

	out.WriteByte(op)
	out.Write(extra)
}
