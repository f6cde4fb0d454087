package ondisk

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/xerrors"
)

// JournalItem is the 32-byte reserved journal record from spec §3. The
// journal region is zero-filled at mkfs time and never mutated afterwards
// (spec §9, "No journaling despite reserved region"); this type exists so
// the reserved layout is documented and testable even though nothing in
// this implementation writes a live entry.
type JournalItem struct {
	Magic    uint64
	TransID  uint64
	Order    uint64
	PtrBlock uint64
}

// DecodeJournalItem parses a JournalItemSize-byte buffer.
func DecodeJournalItem(b []byte) (JournalItem, error) {
	var j JournalItem
	if len(b) < JournalItemSize {
		return j, xerrors.Errorf("ondisk: journal item buffer too short: got %d, want %d", len(b), JournalItemSize)
	}
	if err := binary.Read(bytes.NewReader(b[:JournalItemSize]), binary.LittleEndian, &j); err != nil {
		return j, xerrors.Errorf("ondisk: decode journal item: %w", err)
	}
	return j, nil
}

// Encode serializes the item to exactly JournalItemSize bytes.
func (j *JournalItem) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, JournalItemSize))
	_ = binary.Write(buf, binary.LittleEndian, j)
	out := buf.Bytes()
	if len(out) != JournalItemSize {
		panic("ondisk: journal item encoded to unexpected size")
	}
	return out
}
