package sosi

import (
	"github.com/paulmach/orb"
)

// Record is one raw record produced by a Source. The attribute keys are not
// fixed: every record may carry its own subset.
type Record struct {
	Attributes map[string]string
	Geometry   orb.Geometry
}

// Source is a forward-only producer of records read from a file.
// A Source is owned by whoever opened it and must be closed by that owner.
type Source interface {
	// Next returns the next record, or io.EOF once the source is exhausted.
	Next() (*Record, error)

	// CoordinateSystemCode returns the authority code of the source's
	// coordinate system, e.g. "EPSG:25832". Empty when unknown.
	CoordinateSystemCode() string

	// Bounds returns the extent reported by the file itself, or ErrNoBounds.
	Bounds() (orb.Bound, error)

	Close() error
}

// Opener opens a fresh Source for a path. Openers must tolerate being called
// repeatedly for the same path; every call yields an independent scan.
type Opener func(path string) (Source, error)
