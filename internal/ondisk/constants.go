// Package ondisk defines the byte-exact, little-endian, packed on-disk
// structures that make up a DogeFS image: the superblock, space-map entries,
// inodes, directory items, and journal items. All of them are fixed size and
// encode/decode by straight field-order serialization with
// encoding/binary, the same technique internal/squashfs in the distri
// project uses for its own superblock and inode records.
package ondisk

import "golang.org/x/sys/unix"

// Struct sizes, asserted by the tests in this package.
const (
	SuperBlockSize   = 512
	SpaceMapEntrySize = 2
	InodeSize        = 128
	DirItemSize      = 64
	JournalItemSize  = 32
)

// Magic values identifying the three kinds of live on-disk records.
const (
	SuperBlockMagic  uint64 = 6000595048440531660
	DirItemMagic     uint64 = 2322280074159983117
	JournalItemMagic uint64 = 2322287779482569229
)

// BlockType classifies a single device block in the space map.
type BlockType uint8

const (
	BlockBad     BlockType = 0x00
	BlockIndex   BlockType = 0x11
	BlockInode   BlockType = 0x22
	BlockSuper   BlockType = 0x33
	BlockDir     BlockType = 0x44
	BlockUnused  BlockType = 0x55
	BlockFile    BlockType = 0x66
	BlockJournal BlockType = 0x77
	BlockSpecial BlockType = 0xCC
)

func (t BlockType) String() string {
	switch t {
	case BlockBad:
		return "bad"
	case BlockIndex:
		return "index"
	case BlockInode:
		return "inode"
	case BlockSuper:
		return "super"
	case BlockDir:
		return "dir"
	case BlockUnused:
		return "unused"
	case BlockFile:
		return "file"
	case BlockJournal:
		return "journal"
	case BlockSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// POSIX file-type bits carried in Inode.Mode, as used throughout §3/§4.
// Sourced from golang.org/x/sys/unix rather than hand-copied octal literals,
// so the on-disk format agrees with the same S_IF* constants the adapter
// and the host kernel use.
const (
	ModeTypeMask = unix.S_IFMT
	ModeDir      = unix.S_IFDIR
	ModeRegular  = unix.S_IFREG
	ModeCharDev  = unix.S_IFCHR
	ModeBlockDev = unix.S_IFBLK
	ModeFIFO     = unix.S_IFIFO
	ModeSocket   = unix.S_IFSOCK
	ModeSymlink  = unix.S_IFLNK

	ModeSetUID = unix.S_ISUID
	ModeSetGID = unix.S_ISGID
)

// InlineThreshold is the largest regular-file size stored inline in an
// inode's content union rather than in external blocks (§3, Inlining rule).
const InlineThreshold = 64

// DirectPointers is the number of direct block pointers in an inode.
const DirectPointers = 4

// SuperBlockReplicationStride is the block-number stride at which the
// formatter replicates the superblock (§3).
const SuperBlockReplicationStride = 256
