// Package dogeerr defines the error kinds shared by every layer of DogeFS.
//
// Every core operation produces at most one of these, wrapped with
// golang.org/x/xerrors so callers can still see the offending device offset
// or inode number in the message while testing the kind with errors.Is.
package dogeerr

import "golang.org/x/xerrors"

// Kind is one of the five error kinds from the on-disk format's error model.
type Kind struct {
	name string
}

func (k *Kind) Error() string { return k.name }

var (
	// IoError means a positioned read or write against the backing device
	// returned short or failed outright.
	IoError = &Kind{"dogefs: I/O error"}
	// NoSpace means an allocator scanned the whole space map / block without
	// finding a free slot.
	NoSpace = &Kind{"dogefs: no space left on device"}
	// NotDir means an operation that requires a directory inode was given
	// one whose mode's file-type bits are not S_IFDIR.
	NotDir = &Kind{"dogefs: not a directory"}
	// NotFound means a directory scan completed without finding the
	// requested name.
	NotFound = &Kind{"dogefs: not found"}
	// Invalid means the device's superblock magic did not match
	// SuperBlockMagic at mount time. It is also returned when the formatter
	// finds the device too small, and by Unlink/Rmdir for an entry of the
	// wrong kind (a directory to Unlink, a non-empty directory to Rmdir).
	Invalid = &Kind{"dogefs: not a DogeFS device"}
)

// Wrap returns an error carrying the formatted message that wraps kind, so
// errors.Is (and Is) report kind for it.
func Wrap(kind *Kind, format string, args ...interface{}) error {
	args = append(args, kind)
	return xerrors.Errorf(format+": %w", args...)
}

// Is reports whether err (or anything it wraps) is kind.
func Is(err error, kind *Kind) bool {
	return xerrors.Is(err, kind)
}
