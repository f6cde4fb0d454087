package ondisk

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/xerrors"
)

// Inode is the 128-byte record described in spec §3. The two on-disk unions
// (size vs. devMajor/devMinor, and contents vs. the direct/indirect pointer
// table) are not representable as Go unions, so they are stored as their raw
// wire bytes (SizeOrDev, PointerUnion) and exposed through the accessor
// methods below; encoding/binary still serializes the struct in one pass
// because every field is a fixed-size value in declared order.
type Inode struct {
	Mode  uint32
	Nlink uint64
	Uid   uint32
	Gid   uint32

	SizeOrDev uint64

	CreateSec  int64
	CreateNsec int32
	ModifySec  int64
	ModifyNsec int32
	ChangeSec  int64
	ChangeNsec int32

	PointerUnion [64]byte
}

// DecodeInode parses an InodeSize-byte buffer.
func DecodeInode(b []byte) (Inode, error) {
	var in Inode
	if len(b) < InodeSize {
		return in, xerrors.Errorf("ondisk: inode buffer too short: got %d, want %d", len(b), InodeSize)
	}
	if err := binary.Read(bytes.NewReader(b[:InodeSize]), binary.LittleEndian, &in); err != nil {
		return in, xerrors.Errorf("ondisk: decode inode: %w", err)
	}
	return in, nil
}

// Encode serializes the inode to exactly InodeSize bytes.
func (in *Inode) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, InodeSize))
	_ = binary.Write(buf, binary.LittleEndian, in)
	out := buf.Bytes()
	if len(out) != InodeSize {
		panic("ondisk: inode encoded to unexpected size")
	}
	return out
}

// FileType returns the POSIX file-type bits of Mode (the ModeTypeMask
// subset).
func (in *Inode) FileType() uint32 {
	return in.Mode & ModeTypeMask
}

// IsDir reports whether the inode is a directory.
func (in *Inode) IsDir() bool {
	return in.FileType() == ModeDir
}

// IsRegular reports whether the inode is a regular file.
func (in *Inode) IsRegular() bool {
	return in.FileType() == ModeRegular
}

// Size returns the regular-file/directory size field of the union.
func (in *Inode) Size() uint64 { return in.SizeOrDev }

// SetSize sets the size field of the union.
func (in *Inode) SetSize(size uint64) { in.SizeOrDev = size }

// DevMajor returns the device-node major number.
func (in *Inode) DevMajor() uint32 { return uint32(in.SizeOrDev) }

// DevMinor returns the device-node minor number.
func (in *Inode) DevMinor() uint32 { return uint32(in.SizeOrDev >> 32) }

// SetDev sets the device-node major/minor pair.
func (in *Inode) SetDev(major, minor uint32) {
	in.SizeOrDev = uint64(major) | uint64(minor)<<32
}

// Contents returns the 64 inline bytes used when Size() <= InlineThreshold.
func (in *Inode) Contents() []byte { return in.PointerUnion[:] }

// PtrDirect returns direct block pointer k (0..DirectPointers-1).
func (in *Inode) PtrDirect(k int) uint64 {
	return binary.LittleEndian.Uint64(in.PointerUnion[k*8:])
}

// SetPtrDirect sets direct block pointer k.
func (in *Inode) SetPtrDirect(k int, v uint64) {
	binary.LittleEndian.PutUint64(in.PointerUnion[k*8:], v)
}

// PtrIndirect1 returns the first-level index block pointer.
func (in *Inode) PtrIndirect1() uint64 {
	return binary.LittleEndian.Uint64(in.PointerUnion[32:])
}

// SetPtrIndirect1 sets the first-level index block pointer.
func (in *Inode) SetPtrIndirect1(v uint64) {
	binary.LittleEndian.PutUint64(in.PointerUnion[32:], v)
}

// PtrIndirect2, PtrIndirect3, and PtrIndirect4 are reserved: the format
// defines them but no operation in this implementation reads or writes
// them (spec §9, "Higher indirection unused").
func (in *Inode) PtrIndirect2() uint64 { return binary.LittleEndian.Uint64(in.PointerUnion[40:]) }
func (in *Inode) PtrIndirect3() uint64 { return binary.LittleEndian.Uint64(in.PointerUnion[48:]) }
func (in *Inode) PtrIndirect4() uint64 { return binary.LittleEndian.Uint64(in.PointerUnion[56:]) }
