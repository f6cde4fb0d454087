package ondisk

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/xerrors"
)

// SuperBlock is the 512-byte record described in spec §3. Version is split
// into two uint16 fields rather than a [2]uint16 array so callers can name
// VersionMajor/VersionMinor directly; the wire layout is identical either
// way since encoding/binary serializes fields in declared order.
type SuperBlock struct {
	BootJump [16]byte
	Magic    uint64
	VersionMajor uint16
	VersionMinor uint16
	DirtyLevel   uint32
	BlockSize    uint64
	BlockCount   uint64

	PtrSpaceMap uint64
	BlkSpaceMap uint64

	PtrJournal uint64
	BlkJournal uint64

	PtrLabelDirectory uint64
	PtrRootInode      uint64

	BootCode [416]byte
}

// DecodeSuperBlock parses a SuperBlockSize-byte buffer.
func DecodeSuperBlock(b []byte) (SuperBlock, error) {
	var sb SuperBlock
	if len(b) < SuperBlockSize {
		return sb, xerrors.Errorf("ondisk: superblock buffer too short: got %d, want %d", len(b), SuperBlockSize)
	}
	if err := binary.Read(bytes.NewReader(b[:SuperBlockSize]), binary.LittleEndian, &sb); err != nil {
		return sb, xerrors.Errorf("ondisk: decode superblock: %w", err)
	}
	return sb, nil
}

// Encode serializes the superblock to exactly SuperBlockSize bytes.
func (sb *SuperBlock) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, SuperBlockSize))
	// binary.Write against a bytes.Buffer never fails for fixed-size values.
	_ = binary.Write(buf, binary.LittleEndian, sb)
	out := buf.Bytes()
	if len(out) != SuperBlockSize {
		panic("ondisk: superblock encoded to unexpected size")
	}
	return out
}

// Valid reports whether the superblock's magic matches SuperBlockMagic.
func (sb *SuperBlock) Valid() bool {
	return sb.Magic == SuperBlockMagic
}
