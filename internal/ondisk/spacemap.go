package ondisk

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/xerrors"
)

// SpaceMapEntry classifies a single device block (spec §3).
type SpaceMapEntry struct {
	BlockType BlockType
	ItemsLeft uint8
}

// DecodeSpaceMapEntry parses a SpaceMapEntrySize-byte buffer.
func DecodeSpaceMapEntry(b []byte) (SpaceMapEntry, error) {
	var e SpaceMapEntry
	if len(b) < SpaceMapEntrySize {
		return e, xerrors.Errorf("ondisk: space-map entry buffer too short: got %d, want %d", len(b), SpaceMapEntrySize)
	}
	if err := binary.Read(bytes.NewReader(b[:SpaceMapEntrySize]), binary.LittleEndian, &e); err != nil {
		return e, xerrors.Errorf("ondisk: decode space-map entry: %w", err)
	}
	return e, nil
}

// Encode serializes the entry to exactly SpaceMapEntrySize bytes.
func (e SpaceMapEntry) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, SpaceMapEntrySize))
	_ = binary.Write(buf, binary.LittleEndian, &e)
	return buf.Bytes()
}
