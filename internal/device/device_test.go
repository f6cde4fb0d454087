package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m13253/dogefs/internal/dogeerr"
)

func openTestDevice(t *testing.T, size int64) *Device {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	d, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestReadWriteRoundTrip(t *testing.T) {
	d := openTestDevice(t, 4096)
	want := []byte("hello, dogefs")
	require.NoError(t, d.WriteAt(100, want))
	got := make([]byte, len(want))
	require.NoError(t, d.ReadAt(100, got))
	require.Equal(t, want, got)
}

func TestZeroAt(t *testing.T) {
	d := openTestDevice(t, 4096)
	require.NoError(t, d.WriteAt(0, []byte("xxxxxxxxxx")))
	require.NoError(t, d.ZeroAt(2, 5))
	got := make([]byte, 10)
	require.NoError(t, d.ReadAt(0, got))
	require.Equal(t, []byte("xx\x00\x00\x00\x00\x00xxx"), got)
}

func TestZeroLengthRequestsSucceed(t *testing.T) {
	d := openTestDevice(t, 4096)
	require.NoError(t, d.ReadAt(0, nil))
	require.NoError(t, d.WriteAt(0, nil))
	require.NoError(t, d.ZeroAt(0, 0))
}

func TestShortReadIsIoError(t *testing.T) {
	d := openTestDevice(t, 4096)
	buf := make([]byte, 10)
	err := d.ReadAt(4090, buf)
	require.Error(t, err)
	require.True(t, dogeerr.Is(err, dogeerr.IoError))
}

func TestFlush(t *testing.T) {
	d := openTestDevice(t, 4096)
	require.NoError(t, d.Flush())
}
