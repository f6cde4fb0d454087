// Package dirfs implements the namespace operations of spec §4.6: lookup,
// directory listing, file/directory creation, unlink/rmdir, and setattr.
// Every method takes already-resolved inode numbers; translating the host
// interface's reserved root inode happens one layer up, in fuseadapter.
package dirfs

import (
	"time"

	"github.com/m13253/dogefs/internal/device"
	"github.com/m13253/dogefs/internal/dogeerr"
	"github.com/m13253/dogefs/internal/geometry"
	"github.com/m13253/dogefs/internal/inode"
	"github.com/m13253/dogefs/internal/ondisk"
	"github.com/m13253/dogefs/internal/spacemap"
)

// DirFS threads a device, its geometry, its space map, and its inode store
// through the namespace operations below. Holding these as a value (rather
// than as package-level globals) is the "Filesystem value" design spec §9
// asks for in place of the original's global device/superblock state.
type DirFS struct {
	Dev      *device.Device
	Geom     geometry.Geometry
	SpaceMap *spacemap.SpaceMap
	Inodes   *inode.Store
}

// Entry describes one live directory slot, resolved enough for the host
// interface to build a stat-carrying dirent without a second inode read.
type Entry struct {
	Name  string
	Ino   uint64
	IsDir bool
}

func now() (sec int64, nsec int32) {
	t := time.Now()
	return t.Unix(), int32(t.Nanosecond())
}

func (fs *DirFS) readDirBlock(ptr uint64) ([]byte, error) {
	buf := make([]byte, fs.Geom.BlockSize)
	if err := fs.Dev.ReadAt(fs.Geom.BlockOffset(ptr), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func dirItemAt(buf []byte, slot uint64) (ondisk.DirItem, error) {
	off := slot * ondisk.DirItemSize
	return ondisk.DecodeDirItem(buf[off : off+ondisk.DirItemSize])
}

// requireDir reads ino and fails NotDir unless it is a directory.
func (fs *DirFS) requireDir(ino uint64) (*ondisk.Inode, error) {
	in, err := fs.Inodes.Read(ino)
	if err != nil {
		return nil, err
	}
	if !in.IsDir() {
		return nil, dogeerr.Wrap(dogeerr.NotDir, "dirfs: inode %d is not a directory", ino)
	}
	return in, nil
}

// Lookup resolves name within parent, spec §4.6 Lookup.
func (fs *DirFS) Lookup(parent uint64, name string) (uint64, *ondisk.Inode, error) {
	parentIn, err := fs.requireDir(parent)
	if err != nil {
		return 0, nil, err
	}
	buf, err := fs.readDirBlock(parentIn.PtrDirect(0))
	if err != nil {
		return 0, nil, err
	}
	for slot := uint64(0); slot < fs.Geom.ItemsPerDirBlock; slot++ {
		d, err := dirItemAt(buf, slot)
		if err != nil {
			return 0, nil, err
		}
		if !d.Live() || d.Name() != name {
			continue
		}
		childIn, err := fs.Inodes.Read(d.Inode)
		if err != nil {
			return 0, nil, err
		}
		return d.Inode, childIn, nil
	}
	return 0, nil, dogeerr.Wrap(dogeerr.NotFound, "dirfs: %q not found in directory %d", name, parent)
}

// Readdir lists every live slot of ino's directory block in on-disk slot
// order (spec §4.6 Readdir; offset/size clamping of the serialized form is
// the host interface's job, not this package's).
func (fs *DirFS) Readdir(ino uint64) ([]Entry, error) {
	in, err := fs.requireDir(ino)
	if err != nil {
		return nil, err
	}
	buf, err := fs.readDirBlock(in.PtrDirect(0))
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for slot := uint64(0); slot < fs.Geom.ItemsPerDirBlock; slot++ {
		d, err := dirItemAt(buf, slot)
		if err != nil {
			return nil, err
		}
		if !d.Live() {
			continue
		}
		childIn, err := fs.Inodes.Read(d.Inode)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: d.Name(), Ino: d.Inode, IsDir: childIn.IsDir()})
	}
	return entries, nil
}

// insertDirItem allocates a dir-item slot in parent's single directory
// block and writes item into it.
func (fs *DirFS) insertDirItem(parentDirBlock uint64, item ondisk.DirItem) error {
	id, err := fs.SpaceMap.AllocateDirItem(parentDirBlock)
	if err != nil {
		return err
	}
	if id == 0 {
		return dogeerr.Wrap(dogeerr.NoSpace, "dirfs: directory block %d is full", parentDirBlock)
	}
	return fs.Dev.WriteAt(fs.Geom.DirItemOffset(id), item.Encode())
}

// CreateRegular implements spec §4.6 Create-regular.
func (fs *DirFS) CreateRegular(parent uint64, name string, mode uint32) (uint64, *ondisk.Inode, error) {
	parentIn, err := fs.requireDir(parent)
	if err != nil {
		return 0, nil, err
	}

	childIno, err := fs.SpaceMap.AllocateInode()
	if err != nil {
		return 0, nil, err
	}
	if childIno == 0 {
		return 0, nil, dogeerr.Wrap(dogeerr.NoSpace, "dirfs: no free inode for %q", name)
	}

	sec, nsec := now()
	var child ondisk.Inode
	child.Mode = ondisk.ModeRegular | (mode & 0o7777)
	child.Nlink = 1
	child.CreateSec, child.CreateNsec = sec, nsec
	child.ModifySec, child.ModifyNsec = sec, nsec
	child.ChangeSec, child.ChangeNsec = sec, nsec
	if err := fs.Inodes.Write(childIno, &child); err != nil {
		return 0, nil, err
	}

	var item ondisk.DirItem
	item.Magic = ondisk.DirItemMagic
	item.SetName(name)
	item.Inode = childIno
	if err := fs.insertDirItem(parentIn.PtrDirect(0), item); err != nil {
		return 0, nil, err
	}

	parentIn.Nlink++
	parentIn.ModifySec, parentIn.ModifyNsec = sec, nsec
	if err := fs.Inodes.Write(parent, parentIn); err != nil {
		return 0, nil, err
	}

	return childIno, &child, nil
}

// CreateDirectory implements spec §4.6 Create-directory.
func (fs *DirFS) CreateDirectory(parent uint64, name string, mode uint32) (uint64, *ondisk.Inode, error) {
	parentIn, err := fs.requireDir(parent)
	if err != nil {
		return 0, nil, err
	}

	childIno, err := fs.SpaceMap.AllocateInode()
	if err != nil {
		return 0, nil, err
	}
	if childIno == 0 {
		return 0, nil, dogeerr.Wrap(dogeerr.NoSpace, "dirfs: no free inode for %q", name)
	}

	dirBlock, err := fs.SpaceMap.AllocateWholeBlock(ondisk.BlockDir)
	if err != nil {
		return 0, nil, err
	}
	if dirBlock == 0 {
		return 0, nil, dogeerr.Wrap(dogeerr.NoSpace, "dirfs: no free block for directory %q", name)
	}
	// Slots 0 and 1 are pre-written below, outside AllocateDirItem's
	// accounting, so correct the hint to match (see spacemap.SetItemsLeft).
	if err := fs.SpaceMap.SetItemsLeft(dirBlock, uint8(fs.Geom.ItemsPerDirBlock-2)); err != nil {
		return 0, nil, err
	}

	buf := make([]byte, fs.Geom.BlockSize)
	var dot, dotdot ondisk.DirItem
	dot.Magic, dotdot.Magic = ondisk.DirItemMagic, ondisk.DirItemMagic
	dot.SetName(".")
	dot.Inode = childIno
	dotdot.SetName("..")
	dotdot.Inode = parent
	copy(buf[0*ondisk.DirItemSize:], dot.Encode())
	copy(buf[1*ondisk.DirItemSize:], dotdot.Encode())
	if err := fs.Dev.WriteAt(fs.Geom.BlockOffset(dirBlock), buf); err != nil {
		return 0, nil, err
	}

	sec, nsec := now()
	var child ondisk.Inode
	child.Mode = ondisk.ModeDir | (mode & 0o7777)
	child.Nlink = 2
	child.SetSize(fs.Geom.BlockSize)
	child.SetPtrDirect(0, dirBlock)
	child.CreateSec, child.CreateNsec = sec, nsec
	child.ModifySec, child.ModifyNsec = sec, nsec
	child.ChangeSec, child.ChangeNsec = sec, nsec
	if err := fs.Inodes.Write(childIno, &child); err != nil {
		return 0, nil, err
	}

	var item ondisk.DirItem
	item.Magic = ondisk.DirItemMagic
	item.SetName(name)
	item.Inode = childIno
	if err := fs.insertDirItem(parentIn.PtrDirect(0), item); err != nil {
		return 0, nil, err
	}

	parentIn.Nlink++
	parentIn.ModifySec, parentIn.ModifyNsec = sec, nsec
	if err := fs.Inodes.Write(parent, parentIn); err != nil {
		return 0, nil, err
	}

	return childIno, &child, nil
}

// dirIsEmpty reports whether ino's directory block contains only the
// mandatory "." and ".." entries.
func (fs *DirFS) dirIsEmpty(in *ondisk.Inode) (bool, error) {
	buf, err := fs.readDirBlock(in.PtrDirect(0))
	if err != nil {
		return false, err
	}
	live := 0
	for slot := uint64(0); slot < fs.Geom.ItemsPerDirBlock; slot++ {
		d, err := dirItemAt(buf, slot)
		if err != nil {
			return false, err
		}
		if d.Live() {
			live++
		}
	}
	return live <= 2, nil
}

// remove is the shared Unlink/Rmdir implementation. Unlike the original
// source (spec §9, "Unlink semantics"), it stops at the first matching
// name, and when rmdir is true it refuses to remove a non-empty directory
// and only decrements the parent's nlink on success.
func (fs *DirFS) remove(parent uint64, name string, rmdir bool) error {
	parentIn, err := fs.requireDir(parent)
	if err != nil {
		return err
	}
	dirBlock := parentIn.PtrDirect(0)
	buf, err := fs.readDirBlock(dirBlock)
	if err != nil {
		return err
	}

	for slot := uint64(0); slot < fs.Geom.ItemsPerDirBlock; slot++ {
		d, err := dirItemAt(buf, slot)
		if err != nil {
			return err
		}
		if !d.Live() || d.Name() != name {
			continue
		}

		childIn, err := fs.Inodes.Read(d.Inode)
		if err != nil {
			return err
		}
		if rmdir {
			if !childIn.IsDir() {
				return dogeerr.Wrap(dogeerr.NotDir, "dirfs: %q is not a directory", name)
			}
			empty, err := fs.dirIsEmpty(childIn)
			if err != nil {
				return err
			}
			if !empty {
				return dogeerr.Wrap(dogeerr.Invalid, "dirfs: directory %q is not empty", name)
			}
		} else if childIn.IsDir() {
			return dogeerr.Wrap(dogeerr.Invalid, "dirfs: %q is a directory", name)
		}

		var tombstone ondisk.DirItem
		if err := fs.Dev.WriteAt(fs.Geom.DirItemOffset(dirBlock*fs.Geom.ItemsPerDirBlock+slot), tombstone.Encode()); err != nil {
			return err
		}

		sec, nsec := now()
		parentIn.Nlink--
		parentIn.ModifySec, parentIn.ModifyNsec = sec, nsec
		return fs.Inodes.Write(parent, parentIn)
	}
	return dogeerr.Wrap(dogeerr.NotFound, "dirfs: %q not found in directory %d", name, parent)
}

// Unlink removes a non-directory entry (spec §4.6).
func (fs *DirFS) Unlink(parent uint64, name string) error { return fs.remove(parent, name, false) }

// Rmdir removes an empty directory entry (spec §4.6).
func (fs *DirFS) Rmdir(parent uint64, name string) error { return fs.remove(parent, name, true) }

// Setattr field flags, mirroring the host interface's SetInodeAttributes
// request shape (spec §4.6 Setattr).
const (
	SetMode = 1 << iota
	SetUid
	SetGid
	SetSize
	SetMtime
	SetMtimeNow
)

// SetattrRequest carries only the recognized fields; ATIME is accepted by
// the host interface but ignored here (spec §9, "atime↔mtime confusion").
type SetattrRequest struct {
	Valid uint32
	Mode  uint32
	Uid   uint32
	Gid   uint32
	Size  uint64
	Mtime time.Time
}

// Setattr implements spec §4.6 Setattr in its corrected form: read first,
// stamp ctime, then apply fields, then write (the original's ordering bug
// stamped an uninitialized buffer before the read, discarding the stamp).
func (fs *DirFS) Setattr(ino uint64, req SetattrRequest) (*ondisk.Inode, error) {
	in, err := fs.Inodes.Read(ino)
	if err != nil {
		return nil, err
	}

	sec, nsec := now()
	in.ChangeSec, in.ChangeNsec = sec, nsec

	if req.Valid&SetMode != 0 {
		in.Mode = (in.Mode &^ 0o7777) | (req.Mode & 0o7777)
	}
	if req.Valid&SetUid != 0 {
		in.Uid = req.Uid
		in.Mode &^= ondisk.ModeSetUID
	}
	if req.Valid&SetGid != 0 {
		in.Gid = req.Gid
		in.Mode &^= ondisk.ModeSetGID
	}
	if req.Valid&SetSize != 0 {
		in.SetSize(req.Size)
	}
	if req.Valid&SetMtime != 0 {
		in.ModifySec = req.Mtime.Unix()
		in.ModifyNsec = int32(req.Mtime.Nanosecond())
	}
	if req.Valid&SetMtimeNow != 0 {
		in.ModifySec, in.ModifyNsec = sec, nsec
	}

	if err := fs.Inodes.Write(ino, in); err != nil {
		return nil, err
	}
	return in, nil
}
