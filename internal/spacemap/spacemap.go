// Package spacemap implements the space-map allocator (spec §4.3): scanning
// the contiguous run of space-map blocks to classify, claim, and sub-allocate
// device blocks. There is no release path: nothing here returns a block or
// slot to the free pool (see DESIGN.md's "No release path for space-map
// items").
package spacemap

import (
	"github.com/m13253/dogefs/internal/device"
	"github.com/m13253/dogefs/internal/geometry"
	"github.com/m13253/dogefs/internal/ondisk"
)

// SpaceMap is a handle onto the space-map run of one mounted device.
type SpaceMap struct {
	Dev      *device.Device
	Geom     geometry.Geometry
	PtrStart uint64 // first block of the space-map run
	BlkCount uint64 // length of the space-map run, in blocks
}

// New returns a SpaceMap bound to the space-map run [ptrStart, ptrStart+blkCount).
func New(dev *device.Device, geom geometry.Geometry, ptrStart, blkCount uint64) *SpaceMap {
	return &SpaceMap{Dev: dev, Geom: geom, PtrStart: ptrStart, BlkCount: blkCount}
}

// entryLocation returns which space-map block and slot within it describes
// device block b (spec §3: linear indexing, spacemap block i, slot j, where
// i*entriesPerBlock+j == b).
func (sm *SpaceMap) entryLocation(b uint64) (block, slot uint64) {
	return b / sm.Geom.EntriesPerSpaceMapBlock, b % sm.Geom.EntriesPerSpaceMapBlock
}

// readBlock loads one raw space-map block's bytes.
func (sm *SpaceMap) readBlock(blockIdx uint64) ([]byte, error) {
	buf := make([]byte, sm.Geom.BlockSize)
	if err := sm.Dev.ReadAt(sm.Geom.BlockOffset(sm.PtrStart+blockIdx), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (sm *SpaceMap) writeBlock(blockIdx uint64, buf []byte) error {
	return sm.Dev.WriteAt(sm.Geom.BlockOffset(sm.PtrStart+blockIdx), buf)
}

func entryAt(buf []byte, slot uint64) (ondisk.SpaceMapEntry, error) {
	off := slot * ondisk.SpaceMapEntrySize
	return ondisk.DecodeSpaceMapEntry(buf[off : off+ondisk.SpaceMapEntrySize])
}

func putEntryAt(buf []byte, slot uint64, e ondisk.SpaceMapEntry) {
	off := slot * ondisk.SpaceMapEntrySize
	copy(buf[off:off+ondisk.SpaceMapEntrySize], e.Encode())
}

// GetEntry reads the space-map entry describing device block b, without
// mutating anything.
func (sm *SpaceMap) GetEntry(b uint64) (ondisk.SpaceMapEntry, error) {
	blockIdx, slot := sm.entryLocation(b)
	buf, err := sm.readBlock(blockIdx)
	if err != nil {
		return ondisk.SpaceMapEntry{}, err
	}
	return entryAt(buf, slot)
}

// itemsLeftFor returns the initial ItemsLeft value for a freshly allocated
// whole block of the given type (spec §4.3's Allocate-whole-block table).
func (sm *SpaceMap) itemsLeftFor(t ondisk.BlockType) uint8 {
	clamp := func(v uint64) uint8 {
		if v > 255 {
			return 255
		}
		return uint8(v)
	}
	switch t {
	case ondisk.BlockInode:
		return clamp(sm.Geom.InodesPerInodeBlock - 1)
	case ondisk.BlockDir:
		return clamp(sm.Geom.ItemsPerDirBlock - 1)
	default:
		return uint8(t)
	}
}

// AllocateWholeBlock scans the space-map run for the first UNUSED entry,
// claims it for blockType, and returns its global block number. Returns 0
// (ENOSPC) if no UNUSED block remains.
func (sm *SpaceMap) AllocateWholeBlock(blockType ondisk.BlockType) (uint64, error) {
	for blockIdx := uint64(0); blockIdx < sm.BlkCount; blockIdx++ {
		buf, err := sm.readBlock(blockIdx)
		if err != nil {
			return 0, err
		}
		dirty := false
		var claimed uint64
		found := false
		for slot := uint64(0); slot < sm.Geom.EntriesPerSpaceMapBlock; slot++ {
			e, err := entryAt(buf, slot)
			if err != nil {
				return 0, err
			}
			if e.BlockType != ondisk.BlockUnused {
				continue
			}
			e.BlockType = blockType
			e.ItemsLeft = sm.itemsLeftFor(blockType)
			putEntryAt(buf, slot, e)
			claimed = blockIdx*sm.Geom.EntriesPerSpaceMapBlock + slot
			dirty = true
			found = true
			break
		}
		if !found {
			continue
		}
		if err := sm.writeBlock(blockIdx, buf); err != nil {
			return 0, err
		}
		_ = dirty
		return claimed, nil
	}
	return 0, nil
}

// AllocateInode scans for an INODE block with a free slot and claims one,
// falling back to allocating a fresh INODE block when none has room (spec
// §4.3, Allocate-inode).
func (sm *SpaceMap) AllocateInode() (uint64, error) {
	for blockIdx := uint64(0); blockIdx < sm.BlkCount; blockIdx++ {
		buf, err := sm.readBlock(blockIdx)
		if err != nil {
			return 0, err
		}
		for slot := uint64(0); slot < sm.Geom.EntriesPerSpaceMapBlock; slot++ {
			e, err := entryAt(buf, slot)
			if err != nil {
				return 0, err
			}
			if e.BlockType != ondisk.BlockInode || e.ItemsLeft == 0 {
				continue
			}
			k := e.ItemsLeft
			e.ItemsLeft = k - 1
			putEntryAt(buf, slot, e)
			if err := sm.writeBlock(blockIdx, buf); err != nil {
				return 0, err
			}
			b := blockIdx*sm.Geom.EntriesPerSpaceMapBlock + slot
			return (b+1)*sm.Geom.InodesPerInodeBlock - uint64(k), nil
		}
	}

	b, err := sm.AllocateWholeBlock(ondisk.BlockInode)
	if err != nil {
		return 0, err
	}
	if b == 0 {
		return 0, nil
	}
	return b * sm.Geom.InodesPerInodeBlock, nil
}

// SetItemsLeft overwrites the ItemsLeft hint for blockNumber's space-map
// entry without touching its BlockType. Used by directory creation to
// account for the two slots "." and ".." consume before any entry goes
// through AllocateDirItem (see DESIGN.md, "Directory itemsLeft accounting").
func (sm *SpaceMap) SetItemsLeft(blockNumber uint64, itemsLeft uint8) error {
	blockIdx, slot := sm.entryLocation(blockNumber)
	buf, err := sm.readBlock(blockIdx)
	if err != nil {
		return err
	}
	e, err := entryAt(buf, slot)
	if err != nil {
		return err
	}
	e.ItemsLeft = itemsLeft
	putEntryAt(buf, slot, e)
	return sm.writeBlock(blockIdx, buf)
}

// AllocateDirItem claims one free slot in the DIR-typed block blockNumber
// and returns its absolute dir-item index, or 0 if the block has no room
// (spec §4.3, Allocate-dir-item).
func (sm *SpaceMap) AllocateDirItem(blockNumber uint64) (uint64, error) {
	blockIdx, slot := sm.entryLocation(blockNumber)
	buf, err := sm.readBlock(blockIdx)
	if err != nil {
		return 0, err
	}
	e, err := entryAt(buf, slot)
	if err != nil {
		return 0, err
	}
	if e.BlockType != ondisk.BlockDir || e.ItemsLeft == 0 {
		return 0, nil
	}
	k := e.ItemsLeft
	e.ItemsLeft = k - 1
	putEntryAt(buf, slot, e)
	if err := sm.writeBlock(blockIdx, buf); err != nil {
		return 0, err
	}
	return (blockNumber+1)*sm.Geom.ItemsPerDirBlock - uint64(k), nil
}
