package ondisk

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/xerrors"
)

// MaxFilenameLen is the number of bytes available for a directory entry's
// name; it is NUL-padded, not NUL-terminated, when exactly MaxFilenameLen
// bytes long (spec §3).
const MaxFilenameLen = 32

// DirItem is the 64-byte directory slot described in spec §3. A slot is
// live iff Magic == DirItemMagic.
type DirItem struct {
	Magic     uint64
	RawName   [MaxFilenameLen]byte
	Inode     uint64
	Hash      uint64
	NextChunk uint64
}

// DecodeDirItem parses a DirItemSize-byte buffer.
func DecodeDirItem(b []byte) (DirItem, error) {
	var d DirItem
	if len(b) < DirItemSize {
		return d, xerrors.Errorf("ondisk: dir item buffer too short: got %d, want %d", len(b), DirItemSize)
	}
	if err := binary.Read(bytes.NewReader(b[:DirItemSize]), binary.LittleEndian, &d); err != nil {
		return d, xerrors.Errorf("ondisk: decode dir item: %w", err)
	}
	return d, nil
}

// Encode serializes the item to exactly DirItemSize bytes.
func (d *DirItem) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, DirItemSize))
	_ = binary.Write(buf, binary.LittleEndian, d)
	out := buf.Bytes()
	if len(out) != DirItemSize {
		panic("ondisk: dir item encoded to unexpected size")
	}
	return out
}

// Live reports whether the slot is occupied by a real entry.
func (d *DirItem) Live() bool { return d.Magic == DirItemMagic }

// Name returns the entry's name, trimmed of trailing NUL padding.
func (d *DirItem) Name() string {
	n := bytes.IndexByte(d.RawName[:], 0)
	if n == -1 {
		n = len(d.RawName)
	}
	return string(d.RawName[:n])
}

// SetName stores name truncated/padded to MaxFilenameLen bytes. Callers are
// responsible for rejecting names that are too long if that should be an
// error rather than silent truncation.
func (d *DirItem) SetName(name string) {
	var raw [MaxFilenameLen]byte
	copy(raw[:], name)
	d.RawName = raw
}
