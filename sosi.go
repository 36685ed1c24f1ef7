// Package sosi exposes SOSI geodata files (the Norwegian national geodata
// exchange format) as a read-only feature store built on orb geometries.
//
// Records come from a forward-only Source. The store infers a single
// attribute schema from a full scan, caches it together with the record
// count, and hands out FeatureReaders that turn raw records into
// geojson.Feature values with sequential identities.
package sosi

import (
	"errors"
	"fmt"
)

// Common errors returned by this package.
var (
	ErrEmptySource          = errors.New("sosi: source contains no records")
	ErrEndOfStream          = errors.New("sosi: no more features")
	ErrReaderClosed         = errors.New("sosi: reader is closed")
	ErrUnsupportedOperation = errors.New("sosi: store is read only")
	ErrUnknownType          = errors.New("sosi: unknown feature type")
	ErrUnknownCRS           = errors.New("sosi: unknown coordinate reference system")
	ErrNoBounds             = errors.New("sosi: source has no bounds")
)

// SchemaInferenceError reports a failure while scanning a source to infer
// its schema.
type SchemaInferenceError struct {
	Path string
	Err  error
}

func (e *SchemaInferenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("sosi: schema inference: %v", e.Err)
	}
	return fmt.Sprintf("sosi: schema inference for %s: %v", e.Path, e.Err)
}

func (e *SchemaInferenceError) Unwrap() error {
	return e.Err
}

// IOError reports a read failure of the underlying source during iteration.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("sosi: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// GeometryField is the reserved schema field holding the feature geometry.
const GeometryField = "Geometry"

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 25833 for ETRS89 / UTM zone 33N)
	Name        string // CRS name
	Description string // CRS description
	WKT         string // Well-Known Text representation
}

// ID returns the authority identifier, e.g. "EPSG:25833".
func (c *CRS) ID() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("EPSG:%d", c.Code)
}

// String returns the identifier and name, e.g. "EPSG:ETRS89 / UTM zone 33N".
func (c *CRS) String() string {
	if c == nil {
		return "unresolved"
	}
	return "EPSG:" + c.Name
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}
