package spacemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m13253/dogefs/internal/device"
	"github.com/m13253/dogefs/internal/geometry"
	"github.com/m13253/dogefs/internal/ondisk"
	"github.com/stretchr/testify/require"
)

// newTestSpaceMap builds a one-block space map (2048 entries at blockSize
// 4096) with every entry UNUSED except entry 0, which is reserved as
// SPECIAL for the space-map block itself, mirroring the layout every other
// package's test helper hand-builds.
func newTestSpaceMap(t *testing.T) *SpaceMap {
	t.Helper()
	geom := geometry.New(4096)
	blockCount := uint64(64)
	path := filepath.Join(t.TempDir(), "image")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(int64(blockCount*geom.BlockSize)))
	require.NoError(t, f.Close())
	dev, err := device.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	unused := make([]byte, geom.BlockSize)
	entry := ondisk.SpaceMapEntry{BlockType: ondisk.BlockUnused}.Encode()
	for i := uint64(0); i < geom.EntriesPerSpaceMapBlock; i++ {
		copy(unused[i*2:i*2+2], entry)
	}
	require.NoError(t, dev.WriteAt(0, unused))
	reserved := ondisk.SpaceMapEntry{BlockType: ondisk.BlockSpecial}.Encode()
	require.NoError(t, dev.WriteAt(0, reserved))

	return New(dev, geom, 0, 1)
}

func TestAllocateWholeBlockClaimsFirstUnused(t *testing.T) {
	sm := newTestSpaceMap(t)
	b, err := sm.AllocateWholeBlock(ondisk.BlockFile)
	require.NoError(t, err)
	require.EqualValues(t, 1, b)

	e, err := sm.GetEntry(1)
	require.NoError(t, err)
	require.Equal(t, ondisk.BlockFile, e.BlockType)

	// The next allocation claims the next free entry, not the same one.
	b2, err := sm.AllocateWholeBlock(ondisk.BlockFile)
	require.NoError(t, err)
	require.EqualValues(t, 2, b2)
}

func TestAllocateWholeBlockSetsItemsLeftByType(t *testing.T) {
	sm := newTestSpaceMap(t)

	inodeBlock, err := sm.AllocateWholeBlock(ondisk.BlockInode)
	require.NoError(t, err)
	e, err := sm.GetEntry(inodeBlock)
	require.NoError(t, err)
	require.EqualValues(t, sm.Geom.InodesPerInodeBlock-1, e.ItemsLeft)

	dirBlock, err := sm.AllocateWholeBlock(ondisk.BlockDir)
	require.NoError(t, err)
	e, err = sm.GetEntry(dirBlock)
	require.NoError(t, err)
	require.EqualValues(t, sm.Geom.ItemsPerDirBlock-1, e.ItemsLeft)

	fileBlock, err := sm.AllocateWholeBlock(ondisk.BlockFile)
	require.NoError(t, err)
	e, err = sm.GetEntry(fileBlock)
	require.NoError(t, err)
	require.EqualValues(t, uint8(ondisk.BlockFile), e.ItemsLeft)
}

func TestAllocateWholeBlockExhaustion(t *testing.T) {
	sm := newTestSpaceMap(t)
	var last uint64
	for i := uint64(0); i < sm.Geom.EntriesPerSpaceMapBlock-1; i++ {
		b, err := sm.AllocateWholeBlock(ondisk.BlockFile)
		require.NoError(t, err)
		require.NotZero(t, b)
		last = b
	}
	require.EqualValues(t, sm.Geom.EntriesPerSpaceMapBlock-1, last)

	b, err := sm.AllocateWholeBlock(ondisk.BlockFile)
	require.NoError(t, err)
	require.Zero(t, b, "allocator must return 0 (ENOSPC) once every entry is claimed")
}

func TestAllocateInodeWithinOneBlock(t *testing.T) {
	sm := newTestSpaceMap(t)

	first, err := sm.AllocateInode()
	require.NoError(t, err)
	require.NotZero(t, first)

	second, err := sm.AllocateInode()
	require.NoError(t, err)
	require.Equal(t, first+1, second, "inodes within a block are handed out in increasing order")
}

func TestAllocateInodeFallsBackToNewBlock(t *testing.T) {
	sm := newTestSpaceMap(t)
	for i := uint64(0); i < sm.Geom.InodesPerInodeBlock; i++ {
		_, err := sm.AllocateInode()
		require.NoError(t, err)
	}
	// The first inode block is now full; the next call must claim a fresh
	// INODE block rather than returning 0.
	next, err := sm.AllocateInode()
	require.NoError(t, err)
	require.NotZero(t, next)
}

func TestAllocateDirItemWithinBlock(t *testing.T) {
	sm := newTestSpaceMap(t)
	dirBlock, err := sm.AllocateWholeBlock(ondisk.BlockDir)
	require.NoError(t, err)

	id, err := sm.AllocateDirItem(dirBlock)
	require.NoError(t, err)
	require.Equal(t, dirBlock*sm.Geom.ItemsPerDirBlock+1, id)

	id2, err := sm.AllocateDirItem(dirBlock)
	require.NoError(t, err)
	require.Equal(t, id+1, id2)
}

func TestAllocateDirItemExhaustion(t *testing.T) {
	sm := newTestSpaceMap(t)
	dirBlock, err := sm.AllocateWholeBlock(ondisk.BlockDir)
	require.NoError(t, err)
	require.NoError(t, sm.SetItemsLeft(dirBlock, 1))

	id, err := sm.AllocateDirItem(dirBlock)
	require.NoError(t, err)
	require.NotZero(t, id)

	id2, err := sm.AllocateDirItem(dirBlock)
	require.NoError(t, err)
	require.Zero(t, id2, "allocator must return 0 once the directory block's hinted slots are exhausted")
}

func TestAllocateDirItemWrongTypeFails(t *testing.T) {
	sm := newTestSpaceMap(t)
	fileBlock, err := sm.AllocateWholeBlock(ondisk.BlockFile)
	require.NoError(t, err)

	id, err := sm.AllocateDirItem(fileBlock)
	require.NoError(t, err)
	require.Zero(t, id)
}
