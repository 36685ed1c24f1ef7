// Package fgb serves FlatGeobuf files as record sources for the feature
// store and exports any feature reader to FlatGeobuf.
package fgb

import (
	"errors"

	sosi "github.com/tingold/orb-sosi"
)

// Common errors returned by this package.
var (
	ErrUnsupportedType = errors.New("fgb: unsupported type")
	ErrInvalidData     = errors.New("fgb: invalid data")
	ErrNoIndex         = errors.New("fgb: file has no spatial index")
	ErrNoFeatures      = errors.New("fgb: no features with geometry")
	ErrClosed          = errors.New("fgb: source closed")
)

// Extension is the file extension of FlatGeobuf files.
const Extension = ".fgb"

// ColumnInfo describes a property column in a FlatGeobuf file.
type ColumnInfo struct {
	Name     string
	Type     string // "Bool", "Int", "String", ...
	Nullable bool
}

// Header contains metadata about a FlatGeobuf file.
type Header struct {
	Name          string
	Description   string
	GeometryType  string
	FeaturesCount uint64
	Envelope      [4]float64 // minX, minY, maxX, maxY
	CRSCode       int        // EPSG code, 0 when absent
	HasIndex      bool
	Columns       []ColumnInfo
}

// Factory returns a store factory for FlatGeobuf files.
func Factory() *sosi.Factory {
	return &sosi.Factory{
		Name:        "FlatGeobuf",
		Description: "FlatGeobuf binary feature format",
		Extension:   Extension,
		Opener:      OpenSource,
	}
}
