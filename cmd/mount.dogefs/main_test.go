package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// These exercise cobra's argument validation and serve's rejection of a
// device that is not a DogeFS image, which fails before any FUSE mount is
// attempted; actually mounting
// requires a working /dev/fuse and is covered end-to-end by
// internal/fuseadapter's tests, which drive the same FileSystem
// implementation without going through the kernel.

func TestRootCmdRejectsMissingArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "image")})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error when MOUNTPOINT is omitted")
	}
}

func TestRootCmdRejectsTooManyArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"a", "b", "c"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for an extra positional argument")
	}
}

func TestServeRejectsNonDogeFSImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Truncate(16 * 1024 * 1024); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := serve(nil, path, t.TempDir()); err == nil {
		t.Fatal("expected serve to reject a device with no valid superblock")
	}
}
