package sosi

import (
	"errors"
	"io"
	"strconv"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureReader turns the records of a Source into geojson.Features
// following a feature type. It buffers at most one record so HasNext can be
// called any number of times without consuming input.
//
// A FeatureReader owns its Source and is not safe for concurrent use.
type FeatureReader struct {
	src         Source
	featureType *FeatureType
	limit       int

	next      *Record
	exhausted bool
	row       int

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// NewFeatureReader creates a reader over src. A positive limit caps the
// number of features returned.
func NewFeatureReader(src Source, ft *FeatureType, limit int) *FeatureReader {
	return &FeatureReader{
		src:         src,
		featureType: ft,
		limit:       limit,
	}
}

// FeatureType returns the feature type the reader builds features for.
func (r *FeatureReader) FeatureType() *FeatureType {
	return r.featureType
}

// HasNext reports whether another feature is available.
func (r *FeatureReader) HasNext() (bool, error) {
	if r.closed {
		return false, ErrReaderClosed
	}
	if r.next != nil {
		return true, nil
	}

	rec, err := r.read()
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	r.next = rec
	return true, nil
}

// Next returns the next feature, or ErrEndOfStream when none is left.
func (r *FeatureReader) Next() (*geojson.Feature, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}

	rec := r.next
	r.next = nil
	if rec == nil {
		var err error
		rec, err = r.read()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, ErrEndOfStream
		}
	}

	return r.buildFeature(rec), nil
}

// Close releases the underlying source. Calling Close more than once is a no-op.
func (r *FeatureReader) Close() error {
	r.closeOnce.Do(func() {
		r.closed = true
		r.next = nil
		r.closeErr = r.src.Close()
	})
	return r.closeErr
}

// read pulls one record from the source, returning nil once it is exhausted
// or the limit is reached.
func (r *FeatureReader) read() (*Record, error) {
	if r.exhausted || (r.limit > 0 && r.row >= r.limit) {
		return nil, nil
	}

	rec, err := r.src.Next()
	if errors.Is(err, io.EOF) {
		r.exhausted = true
		return nil, nil
	}
	if err != nil {
		return nil, &IOError{Op: "read record", Err: err}
	}
	return rec, nil
}

// buildFeature assigns the next identity and copies the schema attributes
// present on the record. Missing attributes stay absent.
func (r *FeatureReader) buildFeature(rec *Record) *geojson.Feature {
	r.row++

	geom := rec.Geometry
	if geom == nil {
		geom = orb.Collection{}
	}

	feature := geojson.NewFeature(geom)
	feature.ID = r.featureType.Name + "." + strconv.Itoa(r.row)
	for _, name := range r.featureType.Schema.Attributes {
		if value, ok := rec.Attributes[name]; ok {
			feature.Properties[name] = value
		}
	}

	return feature
}
