package geom

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

// Volume is X*Y*Z; zero when any axis is zero.
func (v Vec3i) Volume() int {
	if v.X <= 0 || v.Y <= 0 || v.Z <= 0 {
		return 0
	}
	return v.X * v.Y * v.Z
}

// CheckedVolume is Volume, failing with ErrVolumeOverflow when X*Y*Z does
// not fit in an int.
func (v Vec3i) CheckedVolume() (int, error) {
	if v.X <= 0 || v.Y <= 0 || v.Z <= 0 {
		return 0, nil
	}
	hi, xy := bits.Mul64(uint64(v.X), uint64(v.Y))
	if hi != 0 || xy > math.MaxInt {
		return 0, fmt.Errorf("%w: %v", ErrVolumeOverflow, v)
	}
	hi, xyz := bits.Mul64(xy, uint64(v.Z))
	if hi != 0 || xyz > math.MaxInt {
		return 0, fmt.Errorf("%w: %v", ErrVolumeOverflow, v)
	}
	return int(xyz), nil
}

func (v Vec3i) String() string { return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z) }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

var (
	ErrNegativeExtent = errors.New("box has negative extent")
	ErrVolumeOverflow = errors.New("box volume overflows")
)

// Box is an axis-aligned region in absolute grid coordinates. Bounds are
// fractional; conversion to block granularity truncates.
type Box struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

func BoxOf(min, max Vec3i) Box {
	return Box{
		MinX: float64(min.X), MinY: float64(min.Y), MinZ: float64(min.Z),
		MaxX: float64(max.X), MaxY: float64(max.Y), MaxZ: float64(max.Z),
	}
}

// Origin truncates Min toward zero.
func (b Box) Origin() Vec3i {
	return Vec3i{X: int(b.MinX), Y: int(b.MinY), Z: int(b.MinZ)}
}

// Extents truncates max-min toward zero on each axis. A fractional remainder
// is discarded, not rounded: a box spanning 2.9 blocks is 2 blocks wide.
// Non-finite or out-of-range bounds are rejected with ErrNegativeExtent, and
// extents whose volume does not fit in an int with ErrVolumeOverflow.
func (b Box) Extents() (Vec3i, error) {
	for _, m := range [...]float64{b.MinX, b.MinY, b.MinZ} {
		if math.IsNaN(m) || math.IsInf(m, 0) || math.Abs(m) >= math.MaxInt32 {
			return Vec3i{}, fmt.Errorf("%w: origin (%g,%g,%g)", ErrNegativeExtent, b.MinX, b.MinY, b.MinZ)
		}
	}
	dx, dy, dz := b.MaxX-b.MinX, b.MaxY-b.MinY, b.MaxZ-b.MinZ
	for _, d := range [...]float64{dx, dy, dz} {
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return Vec3i{}, fmt.Errorf("%w: (%g,%g,%g)", ErrNegativeExtent, dx, dy, dz)
		}
		if d >= math.MaxInt {
			return Vec3i{}, fmt.Errorf("%w: (%g,%g,%g)", ErrVolumeOverflow, dx, dy, dz)
		}
	}
	ext := Vec3i{X: int(dx), Y: int(dy), Z: int(dz)}
	if _, err := ext.CheckedVolume(); err != nil {
		return Vec3i{}, err
	}
	return ext, nil
}

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
