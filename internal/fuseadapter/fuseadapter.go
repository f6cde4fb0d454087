// Package fuseadapter implements the jacobsa/fuse FileSystem interface on
// top of internal/filesystem (spec §6): lookup, getattr, setattr, readdir,
// mkdir, unlink, rmdir, open, read, write, create. It is the host
// interface's only entry point, so it alone performs the reserved root
// inode 1 → S.ptrRootInode translation (spec §4.5) before calling into
// internal/dirfs/internal/fileio.
package fuseadapter

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/m13253/dogefs/internal/dirfs"
	"github.com/m13253/dogefs/internal/dogeerr"
	"github.com/m13253/dogefs/internal/filesystem"
	"github.com/m13253/dogefs/internal/ondisk"
)

// entryTTL is the FUSE attribute/entry cache lifetime (spec §6: "1 second").
const entryTTL = time.Second

// FS adapts a mounted Filesystem to fuseutil.FileSystem. Operations not
// named in spec §6 fall through to NotImplementedFileSystem.
type FS struct {
	fuseutil.NotImplementedFileSystem

	Filesystem *filesystem.Filesystem
}

var _ fuseutil.FileSystem = (*FS)(nil)

// toErrno maps a dogeerr.Kind to the errno jacobsa/fuse expects, per
// SPEC_FULL.md's error-kind/errno table.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case dogeerr.Is(err, dogeerr.IoError):
		return fuse.EIO
	case dogeerr.Is(err, dogeerr.NoSpace):
		return syscall.ENOSPC
	case dogeerr.Is(err, dogeerr.NotDir):
		return syscall.ENOTDIR
	case dogeerr.Is(err, dogeerr.NotFound):
		return syscall.ENOENT
	default:
		return fuse.EIO
	}
}

func (fs *FS) resolve(ino fuseops.InodeID) uint64 {
	return fs.Filesystem.Inodes.Resolve(uint64(ino))
}

func toAttributes(in *ondisk.Inode) fuseops.InodeAttributes {
	attr := fuseops.InodeAttributes{
		Nlink: uint32(in.Nlink),
		Mode:  toGoMode(in),
		Atime: timeFrom(in.ModifySec, in.ModifyNsec), // atime is not tracked; report mtime (spec §9)
		Mtime: timeFrom(in.ModifySec, in.ModifyNsec),
		Ctime: timeFrom(in.ChangeSec, in.ChangeNsec),
		Uid:   in.Uid,
		Gid:   in.Gid,
	}
	if in.IsDir() || in.IsRegular() {
		attr.Size = in.Size()
	} else {
		attr.Rdev = uint32(in.DevMajor())<<16 | uint32(in.DevMinor())
	}
	return attr
}

func toGoMode(in *ondisk.Inode) os.FileMode {
	mode := os.FileMode(in.Mode & 0o7777)
	switch in.FileType() {
	case ondisk.ModeDir:
		mode |= os.ModeDir
	case ondisk.ModeCharDev:
		mode |= os.ModeCharDevice
	case ondisk.ModeBlockDev:
		mode |= os.ModeDevice
	case ondisk.ModeFIFO:
		mode |= os.ModeNamedPipe
	case ondisk.ModeSocket:
		mode |= os.ModeSocket
	case ondisk.ModeSymlink:
		mode |= os.ModeSymlink
	}
	if in.Mode&ondisk.ModeSetUID != 0 {
		mode |= os.ModeSetuid
	}
	if in.Mode&ondisk.ModeSetGID != 0 {
		mode |= os.ModeSetgid
	}
	return mode
}

func timeFrom(sec int64, nsec int32) time.Time {
	return time.Unix(sec, int64(nsec))
}

func childEntry(ino uint64, in *ondisk.Inode) fuseops.ChildInodeEntry {
	now := time.Now()
	return fuseops.ChildInodeEntry{
		Child:                fuseops.InodeID(ino),
		Attributes:           toAttributes(in),
		AttributesExpiration: now.Add(entryTTL),
		EntryExpiration:      now.Add(entryTTL),
	}
}

func (fs *FS) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	ino, in, err := fs.Filesystem.Dirs.Lookup(fs.resolve(op.Parent), op.Name)
	if err != nil {
		return toErrno(err)
	}
	op.Entry = childEntry(ino, in)
	return nil
}

func (fs *FS) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	in, err := fs.Filesystem.Inodes.Read(fs.resolve(op.Inode))
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = toAttributes(in)
	op.AttributesExpiration = time.Now().Add(entryTTL)
	return nil
}

func (fs *FS) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	var req dirfs.SetattrRequest
	if op.Mode != nil {
		req.Valid |= dirfs.SetMode
		req.Mode = uint32(*op.Mode) & 0o7777
	}
	if op.Size != nil {
		req.Valid |= dirfs.SetSize
		req.Size = *op.Size
	}
	if op.Mtime != nil {
		req.Valid |= dirfs.SetMtime
		req.Mtime = *op.Mtime
	}

	in, err := fs.Filesystem.Dirs.Setattr(fs.resolve(op.Inode), req)
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = toAttributes(in)
	op.AttributesExpiration = time.Now().Add(entryTTL)
	return nil
}

func (fs *FS) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	return nil
}

func (fs *FS) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	entries, err := fs.Filesystem.Dirs.Readdir(fs.resolve(op.Inode))
	if err != nil {
		return toErrno(err)
	}

	var dirents []fuseutil.Dirent
	for i, e := range entries {
		typ := fuseutil.DT_File
		if e.IsDir {
			typ = fuseutil.DT_Directory
		}
		dirents = append(dirents, fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(e.Ino),
			Name:   e.Name,
			Type:   typ,
		})
	}

	if int(op.Offset) > len(dirents) {
		return fuse.EIO
	}
	for _, d := range dirents[op.Offset:] {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], d)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *FS) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	// dogefs_open performs no checks against the on-disk structures
	// (spec §9, "open() is a no-op").
	return nil
}

func (fs *FS) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	data, err := fs.Filesystem.Files.Read(fs.resolve(op.Inode), op.Offset, len(op.Dst))
	if err != nil {
		return toErrno(err)
	}
	op.BytesRead = copy(op.Dst, data)
	return nil
}

func (fs *FS) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	_, err := fs.Filesystem.Files.Write(fs.resolve(op.Inode), op.Offset, op.Data)
	return toErrno(err)
}

func (fs *FS) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	ino, in, err := fs.Filesystem.Dirs.CreateDirectory(fs.resolve(op.Parent), op.Name, uint32(op.Mode)&0o7777)
	if err != nil {
		return toErrno(err)
	}
	op.Entry = childEntry(ino, in)
	return nil
}

func (fs *FS) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	ino, in, err := fs.Filesystem.Dirs.CreateRegular(fs.resolve(op.Parent), op.Name, uint32(op.Mode)&0o7777)
	if err != nil {
		return toErrno(err)
	}
	op.Entry = childEntry(ino, in)
	return nil
}

func (fs *FS) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	return toErrno(fs.Filesystem.Dirs.Unlink(fs.resolve(op.Parent), op.Name))
}

func (fs *FS) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	return toErrno(fs.Filesystem.Dirs.Rmdir(fs.resolve(op.Parent), op.Name))
}
