// Package fileio implements regular-file Read/Write against resolved block
// indices (spec §4.7): inline storage for files no larger than
// ondisk.InlineThreshold, direct/indirect blocks beyond that, sparse holes
// read as zero, and the inline→external transition on growth.
package fileio

import (
	"time"

	"github.com/m13253/dogefs/internal/device"
	"github.com/m13253/dogefs/internal/geometry"
	"github.com/m13253/dogefs/internal/inode"
	"github.com/m13253/dogefs/internal/ondisk"
)

// FileIO binds file data I/O to one mounted device's geometry and inode
// store.
type FileIO struct {
	Dev    *device.Device
	Geom   geometry.Geometry
	Inodes *inode.Store
}

// Read implements spec §4.7 Read.
func (fio *FileIO) Read(ino uint64, off int64, size int) ([]byte, error) {
	in, err := fio.Inodes.Read(ino)
	if err != nil {
		return nil, err
	}
	fileSize := int64(in.Size())
	if off >= fileSize {
		return nil, nil
	}
	if off+int64(size) > fileSize {
		size = int(fileSize - off)
	}
	if size == 0 {
		return nil, nil
	}

	if fileSize <= ondisk.InlineThreshold {
		return append([]byte(nil), in.Contents()[off:off+int64(size)]...), nil
	}

	out := make([]byte, size)
	bs := int64(fio.Geom.BlockSize)
	firstK := off / bs
	lastK := (off + int64(size) - 1) / bs
	for k := firstK; k <= lastK; k++ {
		blockStart := k * bs
		begin := off
		if blockStart > begin {
			begin = blockStart
		}
		end := off + int64(size)
		if blockStart+bs < end {
			end = blockStart + bs
		}

		index, err := fio.Inodes.GetIndexForRead(in, uint64(k))
		if err != nil {
			return nil, err
		}
		dst := out[begin-off : end-off]
		if index == 0 {
			for i := range dst {
				dst[i] = 0
			}
			continue
		}
		if err := fio.Dev.ReadAt(fio.Geom.BlockOffset(index)+(begin-blockStart), dst); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Write implements spec §4.7 Write.
func (fio *FileIO) Write(ino uint64, off int64, buf []byte) (int, error) {
	in, err := fio.Inodes.Read(ino)
	if err != nil {
		return 0, err
	}

	t := time.Now()
	in.ModifySec, in.ModifyNsec = t.Unix(), int32(t.Nanosecond())

	oldSize := int64(in.Size())
	newSize := oldSize
	if off+int64(len(buf)) > newSize {
		newSize = off + int64(len(buf))
	}

	switch {
	case newSize <= ondisk.InlineThreshold:
		copy(in.Contents()[off:], buf)
		in.SetSize(uint64(newSize))

	case oldSize <= ondisk.InlineThreshold:
		// Inline -> external transition: move existing inline bytes into a
		// freshly allocated block before writing the new bytes.
		var inlineCopy [ondisk.InlineThreshold]byte
		copy(inlineCopy[:oldSize], in.Contents()[:oldSize])
		// The inline bytes share storage with the pointer table; clear it so
		// they are not taken for block pointers.
		in.PointerUnion = [64]byte{}
		blk, err := fio.Inodes.GetIndexForWrite(in, 0)
		if err != nil {
			return 0, err
		}
		if err := fio.Dev.WriteAt(fio.Geom.BlockOffset(blk), inlineCopy[:oldSize]); err != nil {
			return 0, err
		}
		in.SetSize(uint64(newSize))
		if err := fio.writeBlocks(in, off, buf); err != nil {
			return 0, err
		}

	default:
		in.SetSize(uint64(newSize))
		if err := fio.writeBlocks(in, off, buf); err != nil {
			return 0, err
		}
	}

	if err := fio.Inodes.Write(ino, in); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// writeBlocks scatters buf across the direct/indirect blocks of in starting
// at byte offset off, materializing blocks on demand.
func (fio *FileIO) writeBlocks(in *ondisk.Inode, off int64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	bs := int64(fio.Geom.BlockSize)
	firstK := off / bs
	lastK := (off + int64(len(buf)) - 1) / bs
	for k := firstK; k <= lastK; k++ {
		blockStart := k * bs
		begin := off
		if blockStart > begin {
			begin = blockStart
		}
		end := off + int64(len(buf))
		if blockStart+bs < end {
			end = blockStart + bs
		}

		index, err := fio.Inodes.GetIndexForWrite(in, uint64(k))
		if err != nil {
			return err
		}
		src := buf[begin-off : end-off]
		if err := fio.Dev.WriteAt(fio.Geom.BlockOffset(index)+(begin-blockStart), src); err != nil {
			return err
		}
	}
	return nil
}
