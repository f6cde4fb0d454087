package geometry

import "testing"

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want uint64 }{
		{10, 2, 5},
		{11, 2, 6},
		{1, 1, 1},
		{4096, 2048, 2},
	}
	for _, c := range cases {
		if got := CeilDiv(c.a, c.b); got != c.want {
			t.Errorf("CeilDiv(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestNewAtBlockSize4096(t *testing.T) {
	g := New(4096)
	if g.EntriesPerSpaceMapBlock != 2048 {
		t.Errorf("EntriesPerSpaceMapBlock = %d, want 2048", g.EntriesPerSpaceMapBlock)
	}
	if g.InodesPerInodeBlock != 32 {
		t.Errorf("InodesPerInodeBlock = %d, want 32", g.InodesPerInodeBlock)
	}
	if g.ItemsPerDirBlock != 64 {
		t.Errorf("ItemsPerDirBlock = %d, want 64", g.ItemsPerDirBlock)
	}
	if g.IndicesPerIndexBlock != 512 {
		t.Errorf("IndicesPerIndexBlock = %d, want 512", g.IndicesPerIndexBlock)
	}
}

func TestOffsets(t *testing.T) {
	g := New(4096)
	if got := g.BlockOffset(3); got != 3*4096 {
		t.Errorf("BlockOffset(3) = %d, want %d", got, 3*4096)
	}
	if got := g.InodeOffset(5); got != 5*128 {
		t.Errorf("InodeOffset(5) = %d, want %d", got, 5*128)
	}
	if got := g.DirItemOffset(10); got != 10*64 {
		t.Errorf("DirItemOffset(10) = %d, want %d", got, 10*64)
	}
}

func TestSpaceMapBlockCount(t *testing.T) {
	g := New(4096)
	if got := g.SpaceMapBlockCount(4096); got != 2 {
		t.Errorf("SpaceMapBlockCount(4096) = %d, want 2", got)
	}
	if got := g.SpaceMapBlockCount(1); got != 1 {
		t.Errorf("SpaceMapBlockCount(1) = %d, want 1", got)
	}
}
