package structure

import (
	"math/rand"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/geom"
)

// Reader is the read side of a block grid.
type Reader interface {
	BlockState(p geom.Vec3i) (blockstate.State, error)
	// ContainerAt returns the container attached at p, if any. The value is
	// one of the shapes understood by inventory.Adapt.
	ContainerAt(p geom.Vec3i) (any, bool)
}

// World is a block grid that can be reconstructed into.
type World interface {
	Reader
	SetBlockState(p geom.Vec3i, st blockstate.State) error
	Rand() *rand.Rand
}
