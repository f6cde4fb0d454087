package fuseadapter

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/require"

	"github.com/m13253/dogefs/internal/filesystem"
	"github.com/m13253/dogefs/internal/mkfs"
)

func newTestFS(t *testing.T) *FS {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(16*1024*1024))
	require.NoError(t, f.Close())
	require.NoError(t, mkfs.Format(path, nil))

	fs, err := filesystem.Mount(path)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Unmount() })

	return &FS{Filesystem: fs}
}

func TestLookUpInodeRootDot(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "."}
	require.NoError(t, fs.LookUpInode(ctx, op))
	// "." names the root by its on-disk inode number; only incoming ids are
	// translated from RootInodeID.
	require.Equal(t, fuseops.InodeID(fs.Filesystem.Super.PtrRootInode), op.Entry.Child)
}

func TestLookUpInodeMissingReturnsENOENT(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "nope"}
	err := fs.LookUpInode(ctx, op)
	require.Error(t, err)
	require.Equal(t, syscall.ENOENT, err)
}

func TestCreateFileThenReadWriteThenLookup(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	createOp := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "hello.txt", Mode: 0o644}
	require.NoError(t, fs.CreateFile(ctx, createOp))
	ino := createOp.Entry.Child

	writeOp := &fuseops.WriteFileOp{Inode: ino, Offset: 0, Data: []byte("doge")}
	require.NoError(t, fs.WriteFile(ctx, writeOp))

	readOp := &fuseops.ReadFileOp{Inode: ino, Offset: 0, Dst: make([]byte, 64)}
	require.NoError(t, fs.ReadFile(ctx, readOp))
	require.Equal(t, "doge", string(readOp.Dst[:readOp.BytesRead]))

	lookupOp := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "hello.txt"}
	require.NoError(t, fs.LookUpInode(ctx, lookupOp))
	require.Equal(t, ino, lookupOp.Entry.Child)
}

func TestMkDirThenReadDir(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	mkdirOp := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "sub", Mode: os.ModeDir | 0o755}
	require.NoError(t, fs.MkDir(ctx, mkdirOp))

	openOp := &fuseops.OpenDirOp{Inode: fuseops.RootInodeID}
	require.NoError(t, fs.OpenDir(ctx, openOp))

	readOp := &fuseops.ReadDirOp{Inode: fuseops.RootInodeID, Offset: 0, Dst: make([]byte, 4096)}
	require.NoError(t, fs.ReadDir(ctx, readOp))
	require.Greater(t, readOp.BytesRead, 0)
}

func TestUnlinkRemovesFile(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	createOp := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "gone.txt", Mode: 0o644}
	require.NoError(t, fs.CreateFile(ctx, createOp))

	require.NoError(t, fs.Unlink(ctx, &fuseops.UnlinkOp{Parent: fuseops.RootInodeID, Name: "gone.txt"}))

	lookupOp := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "gone.txt"}
	require.Error(t, fs.LookUpInode(ctx, lookupOp))
}

func TestSetInodeAttributesAppliesSize(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	createOp := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "sized.txt", Mode: 0o644}
	require.NoError(t, fs.CreateFile(ctx, createOp))
	ino := createOp.Entry.Child

	var size uint64 = 128
	setOp := &fuseops.SetInodeAttributesOp{Inode: ino, Size: &size}
	require.NoError(t, fs.SetInodeAttributes(ctx, setOp))
	require.EqualValues(t, 128, setOp.Attributes.Size)
}
