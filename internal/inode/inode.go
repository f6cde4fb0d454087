// Package inode implements inode record I/O and block-index resolution
// (spec §4.4/§4.5): reading and writing 128-byte inode records by number,
// translating the host interface's reserved root inode 1, and resolving a
// logical file-block index to a physical block number through the direct
// and first-level indirect pointers.
package inode

import (
	"encoding/binary"

	"github.com/m13253/dogefs/internal/device"
	"github.com/m13253/dogefs/internal/dogeerr"
	"github.com/m13253/dogefs/internal/geometry"
	"github.com/m13253/dogefs/internal/ondisk"
	"github.com/m13253/dogefs/internal/spacemap"
)

// Store binds inode record I/O and block-index resolution to one mounted
// device. It holds no inode-shaped state itself: every method takes the
// inode number or value it needs, per the "thread a Filesystem value"
// guidance over ambient globals.
type Store struct {
	Dev          *device.Device
	Geom         geometry.Geometry
	SpaceMap     *spacemap.SpaceMap
	PtrRootInode uint64
}

// Resolve translates the host interface's reserved root inode number (1)
// to the superblock's actual root inode number. Every entry point that
// accepts an inode number from the host interface must call this first.
func (s *Store) Resolve(ino uint64) uint64 {
	if ino == 1 {
		return s.PtrRootInode
	}
	return ino
}

// Read loads the inode record at number ino (already Resolve'd).
func (s *Store) Read(ino uint64) (*ondisk.Inode, error) {
	buf := make([]byte, ondisk.InodeSize)
	if err := s.Dev.ReadAt(s.Geom.InodeOffset(ino), buf); err != nil {
		return nil, err
	}
	in, err := ondisk.DecodeInode(buf)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// Write persists the inode record at number ino (already Resolve'd).
func (s *Store) Write(ino uint64, in *ondisk.Inode) error {
	return s.Dev.WriteAt(s.Geom.InodeOffset(ino), in.Encode())
}

func (s *Store) readIndexBlock(ptr uint64) ([]uint64, error) {
	raw := make([]byte, s.Geom.BlockSize)
	if err := s.Dev.ReadAt(s.Geom.BlockOffset(ptr), raw); err != nil {
		return nil, err
	}
	idx := make([]uint64, s.Geom.IndicesPerIndexBlock)
	for i := range idx {
		idx[i] = binary.LittleEndian.Uint64(raw[i*8 : i*8+8])
	}
	return idx, nil
}

func (s *Store) writeIndexBlock(ptr uint64, idx []uint64) error {
	raw := make([]byte, s.Geom.BlockSize)
	for i, v := range idx {
		binary.LittleEndian.PutUint64(raw[i*8:i*8+8], v)
	}
	return s.Dev.WriteAt(s.Geom.BlockOffset(ptr), raw)
}

// allocZeroedBlock claims a whole block of the given type and zeroes it.
func (s *Store) allocZeroedBlock(t ondisk.BlockType) (uint64, error) {
	b, err := s.SpaceMap.AllocateWholeBlock(t)
	if err != nil {
		return 0, err
	}
	if b == 0 {
		return 0, dogeerr.Wrap(dogeerr.NoSpace, "inode: no space for a new %s block", t)
	}
	if err := s.Dev.ZeroAt(s.Geom.BlockOffset(b), int64(s.Geom.BlockSize)); err != nil {
		return 0, err
	}
	return b, nil
}

// GetIndexForRead resolves logical block k of in to a physical block
// number, or 0 for a sparse hole or an index beyond what this format
// addresses (spec §4.4, getIndexForRead). It never mutates anything.
func (s *Store) GetIndexForRead(in *ondisk.Inode, k uint64) (uint64, error) {
	if k < ondisk.DirectPointers {
		return in.PtrDirect(int(k)), nil
	}
	limit := ondisk.DirectPointers + s.Geom.IndicesPerIndexBlock
	if k < limit {
		ptr := in.PtrIndirect1()
		if ptr == 0 {
			return 0, nil
		}
		idx, err := s.readIndexBlock(ptr)
		if err != nil {
			return 0, err
		}
		return idx[k-ondisk.DirectPointers], nil
	}
	return 0, nil
}

// GetIndexForWrite resolves logical block k of in to a physical block
// number, materializing any missing direct slot, index block, or index
// slot along the way (spec §4.4, getIndexForWrite). in is mutated in
// place; the caller is responsible for persisting it afterward.
func (s *Store) GetIndexForWrite(in *ondisk.Inode, k uint64) (uint64, error) {
	if k < ondisk.DirectPointers {
		if ptr := in.PtrDirect(int(k)); ptr != 0 {
			return ptr, nil
		}
		b, err := s.allocZeroedBlock(ondisk.BlockFile)
		if err != nil {
			return 0, err
		}
		in.SetPtrDirect(int(k), b)
		return b, nil
	}

	limit := ondisk.DirectPointers + s.Geom.IndicesPerIndexBlock
	if k >= limit {
		return 0, dogeerr.Wrap(dogeerr.NoSpace, "inode: logical block %d exceeds addressable range", k)
	}

	ptr := in.PtrIndirect1()
	if ptr == 0 {
		b, err := s.allocZeroedBlock(ondisk.BlockIndex)
		if err != nil {
			return 0, err
		}
		in.SetPtrIndirect1(b)
		ptr = b
	}

	idx, err := s.readIndexBlock(ptr)
	if err != nil {
		return 0, err
	}
	slot := k - ondisk.DirectPointers
	if idx[slot] != 0 {
		return idx[slot], nil
	}
	b, err := s.allocZeroedBlock(ondisk.BlockFile)
	if err != nil {
		return 0, err
	}
	idx[slot] = b
	if err := s.writeIndexBlock(ptr, idx); err != nil {
		return 0, err
	}
	return b, nil
}
