package geom

import (
	"errors"
	"math"
	"testing"
)

func TestBoxExtents_Truncates(t *testing.T) {
	cases := []struct {
		box  Box
		want Vec3i
	}{
		{box: Box{MaxX: 3, MaxY: 2, MaxZ: 1}, want: Vec3i{X: 3, Y: 2, Z: 1}},
		{box: Box{MaxX: 2.9, MaxY: 1.999, MaxZ: 0.5}, want: Vec3i{X: 2, Y: 1, Z: 0}},
		{box: Box{MinX: 1.5, MaxX: 4, MinY: 0, MaxY: 1, MinZ: -2, MaxZ: -2}, want: Vec3i{X: 2, Y: 1, Z: 0}},
	}
	for _, c := range cases {
		got, err := c.box.Extents()
		if err != nil {
			t.Fatalf("Extents(%+v): %v", c.box, err)
		}
		if got != c.want {
			t.Fatalf("Extents(%+v)=%v want %v", c.box, got, c.want)
		}
	}
}

func TestBoxExtents_RejectsNegative(t *testing.T) {
	_, err := Box{MinX: 2, MaxX: 1, MaxY: 1, MaxZ: 1}.Extents()
	if !errors.Is(err, ErrNegativeExtent) {
		t.Fatalf("expected ErrNegativeExtent, got %v", err)
	}
}

func TestBoxExtents_RejectsNonFinite(t *testing.T) {
	boxes := []Box{
		{MaxX: math.NaN(), MaxY: 1, MaxZ: 1},
		{MaxX: 1, MaxY: math.Inf(1), MaxZ: 1},
		{MinZ: math.Inf(-1), MaxX: 1, MaxY: 1, MaxZ: 1},
		{MinX: math.Inf(1), MaxX: math.Inf(1), MaxY: 1, MaxZ: 1},
	}
	for _, b := range boxes {
		if _, err := b.Extents(); !errors.Is(err, ErrNegativeExtent) {
			t.Fatalf("Extents(%+v): expected ErrNegativeExtent, got %v", b, err)
		}
	}
}

func TestBoxExtents_RejectsOverflowingVolume(t *testing.T) {
	_, err := Box{MaxX: 1 << 21, MaxY: 1 << 21, MaxZ: 1 << 21}.Extents()
	if !errors.Is(err, ErrVolumeOverflow) {
		t.Fatalf("expected ErrVolumeOverflow, got %v", err)
	}
	_, err = Box{MaxX: 1e300, MaxY: 1, MaxZ: 1}.Extents()
	if !errors.Is(err, ErrVolumeOverflow) {
		t.Fatalf("expected ErrVolumeOverflow for 1e300, got %v", err)
	}
}

func TestCheckedVolume(t *testing.T) {
	if n, err := (Vec3i{X: 1 << 20, Y: 1 << 20, Z: 1 << 20}).CheckedVolume(); err != nil || n != 1<<60 {
		t.Fatalf("CheckedVolume=%d,%v", n, err)
	}
	if _, err := (Vec3i{X: math.MaxInt, Y: 2, Z: 1}).CheckedVolume(); !errors.Is(err, ErrVolumeOverflow) {
		t.Fatalf("expected ErrVolumeOverflow, got %v", err)
	}
	if n, err := (Vec3i{X: -1, Y: 2, Z: 2}).CheckedVolume(); err != nil || n != 0 {
		t.Fatalf("negative axis CheckedVolume=%d,%v", n, err)
	}
}

func TestBoxOrigin_TruncatesTowardZero(t *testing.T) {
	b := Box{MinX: 1.7, MinY: -1.7, MinZ: 0.2}
	if got := b.Origin(); got != (Vec3i{X: 1, Y: -1, Z: 0}) {
		t.Fatalf("Origin=%v", got)
	}
}

func TestFloorDivMod(t *testing.T) {
	if FloorDiv(-1, 16) != -1 || Mod(-1, 16) != 15 {
		t.Fatalf("FloorDiv/Mod(-1,16)=%d,%d", FloorDiv(-1, 16), Mod(-1, 16))
	}
	if FloorDiv(31, 16) != 1 || Mod(31, 16) != 15 {
		t.Fatalf("FloorDiv/Mod(31,16)=%d,%d", FloorDiv(31, 16), Mod(31, 16))
	}
}

func TestVolume(t *testing.T) {
	if (Vec3i{X: 2, Y: 3, Z: 4}).Volume() != 24 {
		t.Fatalf("volume")
	}
	if (Vec3i{X: 2, Y: 0, Z: 4}).Volume() != 0 {
		t.Fatalf("zero axis volume")
	}
}
