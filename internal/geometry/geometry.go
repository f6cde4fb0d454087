// Package geometry derives byte offsets from block numbers and
// block-relative slot indices given a loaded superblock (spec §4.2). It is
// pure arithmetic: no device access happens here.
package geometry

import "github.com/m13253/dogefs/internal/ondisk"

// Geometry caches the per-block-size constants derived from a superblock so
// callers don't recompute a division on every call.
type Geometry struct {
	BlockSize uint64

	EntriesPerSpaceMapBlock uint64
	InodesPerInodeBlock     uint64
	ItemsPerDirBlock        uint64
	IndicesPerIndexBlock    uint64
}

// New derives a Geometry from a superblock's block size.
func New(blockSize uint64) Geometry {
	return Geometry{
		BlockSize:               blockSize,
		EntriesPerSpaceMapBlock: blockSize / ondisk.SpaceMapEntrySize,
		InodesPerInodeBlock:     blockSize / ondisk.InodeSize,
		ItemsPerDirBlock:        blockSize / ondisk.DirItemSize,
		IndicesPerIndexBlock:    blockSize / 8,
	}
}

// BlockOffset returns the byte offset of device block b.
func (g Geometry) BlockOffset(b uint64) int64 {
	return int64(b * g.BlockSize)
}

// InodeOffset returns the byte offset of inode number n.
func (g Geometry) InodeOffset(n uint64) int64 {
	return int64(n * ondisk.InodeSize)
}

// DirItemOffset returns the byte offset of absolute dir-item index id.
func (g Geometry) DirItemOffset(id uint64) int64 {
	return int64(id * ondisk.DirItemSize)
}

// SpaceMapBlockCount returns ceil(blockCount / EntriesPerSpaceMapBlock), the
// number of blocks the space-map run occupies.
func (g Geometry) SpaceMapBlockCount(blockCount uint64) uint64 {
	return CeilDiv(blockCount, g.EntriesPerSpaceMapBlock)
}

// CeilDiv computes ceil(a/b) for positive integers, the same helper
// original_source/common/utils.h names ceilDiv.
func CeilDiv(a, b uint64) uint64 {
	return (a-1)/b + 1
}
