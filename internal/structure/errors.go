package structure

import (
	"errors"
	"fmt"
	"strings"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/sim/ids"
	"voxelforge.ai/internal/sim/loot"
)

// Decode error kinds.
var (
	ErrMissingField         = errors.New("missing field")
	ErrMalformedIdentifier  = ids.ErrMalformed
	ErrMalformedShape       = errors.New("malformed blocks shape")
	ErrMalformedDocument    = errors.New("malformed document")
	ErrInvalidField         = errors.New("invalid field")
	ErrUnknownProperty      = blockstate.ErrUnknownProperty
	ErrUnknownPropertyValue = blockstate.ErrUnknownPropertyValue
	ErrMissingProperty      = blockstate.ErrMissingProperty
)

// Generate error kinds.
var (
	ErrUnknownBlock     = errors.New("unknown block")
	ErrUnknownItem      = errors.New("unknown item")
	ErrUnknownLootTable = loot.ErrUnknownTable
)

// ErrInvalidBox is returned by Capture for a box with a negative or
// non-finite extent.
var ErrInvalidBox = geom.ErrNegativeExtent

// ErrBoxTooLarge is returned by Capture when the box volume overflows int.
var ErrBoxTooLarge = geom.ErrVolumeOverflow

// DecodeError reports why a document could not be turned into a Snapshot.
// Path locates the offending value, e.g. "blocks[0][2][1].inventory[3].item".
type DecodeError struct {
	Kind   error
	Path   string
	Detail string
	Err    error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode structure: ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	if e.Err != nil && errors.Is(e.Err, e.Kind) {
		b.WriteString(e.Err.Error())
		return b.String()
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// GenerateError reports a cell that could not be reconstructed. Rel is the
// offset inside the snapshot and Pos the absolute destination.
type GenerateError struct {
	Kind       error
	Rel        geom.Vec3i
	Pos        geom.Vec3i
	ID         string
	Suggestion string
	Err        error
}

func (e *GenerateError) Error() string {
	msg := fmt.Sprintf("generate cell %v at %v: ", e.Rel, e.Pos)
	if e.Err != nil && errors.Is(e.Err, e.Kind) {
		return msg + e.Err.Error()
	}
	msg += e.Kind.Error()
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerateError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// propertyKind maps a codec error onto its sentinel kind.
func propertyKind(err error) error {
	var pe *blockstate.PropertyError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return ErrInvalidField
}
