// Package filesystem composes the device, geometry, space map, inode
// store, directory operations, and file I/O of one mounted DogeFS image
// into a single value, instead of the package-level globals the original
// host interface used (spec §9, "Global mutable state").
package filesystem

import (
	"github.com/m13253/dogefs/internal/device"
	"github.com/m13253/dogefs/internal/dirfs"
	"github.com/m13253/dogefs/internal/dogeerr"
	"github.com/m13253/dogefs/internal/fileio"
	"github.com/m13253/dogefs/internal/geometry"
	"github.com/m13253/dogefs/internal/inode"
	"github.com/m13253/dogefs/internal/ondisk"
	"github.com/m13253/dogefs/internal/spacemap"
)

// Filesystem is a fully mounted DogeFS image, ready to service host
// interface operations.
type Filesystem struct {
	Dev        *device.Device
	Super      ondisk.SuperBlock
	Geom       geometry.Geometry
	SpaceMap   *spacemap.SpaceMap
	Inodes     *inode.Store
	Dirs       *dirfs.DirFS
	Files      *fileio.FileIO
}

// Mount opens path, validates its superblock, and wires up every layer
// above it. It fails with Invalid if the device's magic does not match a
// DogeFS image.
func Mount(path string) (*Filesystem, error) {
	dev, err := device.Open(path)
	if err != nil {
		return nil, err
	}

	sbBuf := make([]byte, ondisk.SuperBlockSize)
	if err := dev.ReadAt(0, sbBuf); err != nil {
		dev.Close()
		return nil, err
	}
	super, err := ondisk.DecodeSuperBlock(sbBuf)
	if err != nil {
		dev.Close()
		return nil, err
	}
	if !super.Valid() {
		dev.Close()
		return nil, dogeerr.Wrap(dogeerr.Invalid, "filesystem: %q is not a DogeFS device", path)
	}

	geom := geometry.New(super.BlockSize)
	sm := spacemap.New(dev, geom, super.PtrSpaceMap, super.BlkSpaceMap)
	inodes := &inode.Store{Dev: dev, Geom: geom, SpaceMap: sm, PtrRootInode: super.PtrRootInode}
	dirs := &dirfs.DirFS{Dev: dev, Geom: geom, SpaceMap: sm, Inodes: inodes}
	files := &fileio.FileIO{Dev: dev, Geom: geom, Inodes: inodes}

	return &Filesystem{
		Dev:      dev,
		Super:    super,
		Geom:     geom,
		SpaceMap: sm,
		Inodes:   inodes,
		Dirs:     dirs,
		Files:    files,
	}, nil
}

// Unmount flushes pending writes and closes the backing device.
func (fs *Filesystem) Unmount() error {
	if err := fs.Dev.Flush(); err != nil {
		return err
	}
	return fs.Dev.Close()
}
