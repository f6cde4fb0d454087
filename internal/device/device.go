// Package device implements the three positioned-I/O primitives every
// higher DogeFS layer is built on (spec §4.1): read_at, write_at, and
// zero_at against the backing device seen as a flat byte sequence, plus
// flush for a durable fsync-equivalent before clean unmount. There is no
// caching here, by design: every call goes straight to the backing file.
package device

import (
	"os"

	"github.com/m13253/dogefs/internal/dogeerr"
)

// Device is a raw, writable, seekable byte sequence backing a DogeFS image.
type Device struct {
	f *os.File
}

// Open opens path read/write for use as a DogeFS backing device.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, dogeerr.Wrap(dogeerr.IoError, "device: open %q", path)
	}
	return &Device{f: f}, nil
}

// Size returns the device's total byte length.
func (d *Device) Size() (int64, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, dogeerr.Wrap(dogeerr.IoError, "device: stat")
	}
	return fi.Size(), nil
}

// ReadAt fills buf with exactly len(buf) bytes starting at offset. A
// length-zero request succeeds without touching the device.
func (d *Device) ReadAt(offset int64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	n, err := d.f.ReadAt(buf, offset)
	if err != nil || n != len(buf) {
		return dogeerr.Wrap(dogeerr.IoError, "device: short read at %d (%d/%d bytes)", offset, n, len(buf))
	}
	return nil
}

// WriteAt writes all of buf starting at offset. A length-zero request
// succeeds without touching the device.
func (d *Device) WriteAt(offset int64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	n, err := d.f.WriteAt(buf, offset)
	if err != nil || n != len(buf) {
		return dogeerr.Wrap(dogeerr.IoError, "device: short write at %d (%d/%d bytes)", offset, n, len(buf))
	}
	return nil
}

// zeroChunkSize bounds the size of the scratch buffer ZeroAt reuses across
// its chunked writes so zeroing a large region (e.g. the journal at mkfs time) doesn't
// allocate one zero buffer the size of the whole region.
const zeroChunkSize = 1 << 20 // 1 MiB

// ZeroAt fills length bytes with zero starting at offset.
func (d *Device) ZeroAt(offset int64, length int64) error {
	if length == 0 {
		return nil
	}
	chunk := make([]byte, minInt64(length, zeroChunkSize))
	for length > 0 {
		n := minInt64(length, int64(len(chunk)))
		if err := d.WriteAt(offset, chunk[:n]); err != nil {
			return err
		}
		offset += n
		length -= n
	}
	return nil
}

// Flush forces a durable write (fsync-equivalent) before clean unmount.
func (d *Device) Flush() error {
	if err := d.f.Sync(); err != nil {
		return dogeerr.Wrap(dogeerr.IoError, "device: fsync")
	}
	return nil
}

// Close releases the underlying file handle.
func (d *Device) Close() error {
	return d.f.Close()
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
