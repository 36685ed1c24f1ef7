package sosi

import (
	"errors"
	"io"
	"slices"
)

// Schema is the unified attribute schema of a source: the union of all
// attribute keys seen across its records, in first-occurrence order, plus
// the reserved geometry field.
type Schema struct {
	Attributes    []string // Attribute names, all string valued
	GeometryField string   // Name of the geometry field

	index map[string]int
}

func newSchema(attributes []string) *Schema {
	s := &Schema{
		Attributes:    attributes,
		GeometryField: GeometryField,
		index:         make(map[string]int, len(attributes)),
	}
	for i, name := range attributes {
		s.index[name] = i
	}
	return s
}

// Has reports whether name is an attribute of the schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Fields returns all field names: the attributes followed by the geometry field.
func (s *Schema) Fields() []string {
	fields := make([]string, 0, len(s.Attributes)+1)
	fields = append(fields, s.Attributes...)
	return append(fields, s.GeometryField)
}

// FeatureType describes the single feature collection of a store.
type FeatureType struct {
	Name   string  // Type name, derived from the file name
	Schema *Schema // Inferred attribute schema
	CRS    *CRS    // Coordinate reference system, nil when unresolved
}

// InferSchema scans every record of a freshly opened source and returns the
// union of the attribute keys together with the number of records.
//
// The source is closed on every path. A source without records yields
// ErrEmptySource; read failures are returned as *SchemaInferenceError.
func InferSchema(path string, open Opener) (*Schema, int, error) {
	schema, count, _, err := inferSchema(path, open)
	return schema, count, err
}

// inferSchema also returns the source's coordinate system code so the store
// can describe its feature type from a single scan.
func inferSchema(path string, open Opener) (schema *Schema, count int, code string, err error) {
	src, err := open(path)
	if err != nil {
		return nil, 0, "", &SchemaInferenceError{Path: path, Err: err}
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			schema, count, code = nil, 0, ""
			err = &SchemaInferenceError{Path: path, Err: cerr}
		}
	}()

	first, err := src.Next()
	if errors.Is(err, io.EOF) {
		return nil, 0, "", ErrEmptySource
	}
	if err != nil {
		return nil, 0, "", &SchemaInferenceError{Path: path, Err: err}
	}

	seen := make(map[string]bool, len(first.Attributes))
	names := make([]string, 0, len(first.Attributes))
	collect := func(rec *Record) {
		keys := make([]string, 0, len(rec.Attributes))
		for k := range rec.Attributes {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, name := range keys {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	collect(first)
	count = 1
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, "", &SchemaInferenceError{Path: path, Err: err}
		}
		collect(rec)
		count++
	}

	return newSchema(names), count, src.CoordinateSystemCode(), nil
}
