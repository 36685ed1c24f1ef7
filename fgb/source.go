package fgb

import (
	"fmt"
	"io"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"

	sosi "github.com/tingold/orb-sosi"
)

// Source reads the features of a FlatGeobuf file as records.
//
// The FlatGeobuf Go library only exposes features through its spatial
// index, so files written without an index cannot be iterated.
type Source struct {
	fgb    *flatgeobuf.FlatGeoBuf
	header *flattypes.Header
	cols   []column

	features []*flattypes.Feature
	loaded   bool
	pos      int
}

// Open opens the FlatGeobuf file at path.
func Open(path string) (*Source, error) {
	f, err := flatgeobuf.New(path)
	if err != nil {
		return nil, fmt.Errorf("fgb: open %s: %w", path, err)
	}
	return newSource(f)
}

// OpenSource is Open as a sosi.Opener.
func OpenSource(path string) (sosi.Source, error) {
	return Open(path)
}

// NewSourceFromData reads a FlatGeobuf file held in memory.
func NewSourceFromData(data []byte) (*Source, error) {
	f, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return newSource(f)
}

func newSource(f *flatgeobuf.FlatGeoBuf) (*Source, error) {
	h := f.Header()
	if h == nil {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidData)
	}
	return &Source{fgb: f, header: h, cols: headerColumns(h)}, nil
}

// Header returns metadata about the file.
func (s *Source) Header() *Header {
	h := s.header
	out := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
		CRSCode:       s.crsCode(),
	}
	if b, ok := s.envelope(); ok {
		out.Envelope = [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	}

	n := h.ColumnsLength()
	for i := 0; i < n; i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			out.Columns = append(out.Columns, ColumnInfo{
				Name:     string(col.Name()),
				Type:     flattypes.EnumNamesColumnType[col.Type()],
				Nullable: col.Nullable(),
			})
		}
	}
	return out
}

// Next returns the next feature as a record, or io.EOF.
func (s *Source) Next() (*sosi.Record, error) {
	if s.fgb == nil {
		return nil, ErrClosed
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.features) {
		return nil, io.EOF
	}

	f := s.features[s.pos]
	s.pos++
	return s.record(f)
}

// load runs a search over the full envelope on first use.
func (s *Source) load() error {
	if s.loaded {
		return nil
	}
	s.loaded = true

	if s.header.FeaturesCount() == 0 {
		return nil
	}
	if s.header.IndexNodeSize() == 0 {
		return ErrNoIndex
	}
	b, ok := s.envelope()
	if !ok {
		return fmt.Errorf("%w: indexed file without envelope", ErrInvalidData)
	}

	features, err := s.fgb.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		return fmt.Errorf("fgb: search: %w", err)
	}
	s.features = features
	return nil
}

func (s *Source) record(f *flattypes.Feature) (*sosi.Record, error) {
	rec := &sosi.Record{Attributes: map[string]string{}}

	var g flattypes.Geometry
	if geom := f.Geometry(&g); geom != nil {
		rec.Geometry = decodeGeometry(geom, s.header.GeometryType())
	}
	if rec.Geometry == nil {
		rec.Geometry = orb.Collection{}
	}

	if n := f.PropertiesLength(); n > 0 && len(s.cols) > 0 {
		data := make([]byte, n)
		for i := 0; i < n; i++ {
			data[i] = byte(f.Properties(i))
		}
		attrs, err := decodeProperties(data, s.cols)
		if err != nil {
			return nil, err
		}
		rec.Attributes = attrs
	}
	return rec, nil
}

// CoordinateSystemCode returns "EPSG:<code>" when the header carries a CRS.
func (s *Source) CoordinateSystemCode() string {
	if code := s.crsCode(); code > 0 {
		return fmt.Sprintf("EPSG:%d", code)
	}
	return ""
}

func (s *Source) crsCode() int {
	var crs flattypes.Crs
	if s.header.Crs(&crs) == nil {
		return 0
	}
	return int(crs.Code())
}

// Bounds returns the envelope stored in the header, or sosi.ErrNoBounds.
func (s *Source) Bounds() (orb.Bound, error) {
	b, ok := s.envelope()
	if !ok {
		return orb.Bound{}, sosi.ErrNoBounds
	}
	return b, nil
}

func (s *Source) envelope() (orb.Bound, bool) {
	h := s.header
	if h.EnvelopeLength() < 4 {
		return orb.Bound{}, false
	}
	return orb.Bound{
		Min: orb.Point{h.Envelope(0), h.Envelope(1)},
		Max: orb.Point{h.Envelope(2), h.Envelope(3)},
	}, true
}

// Close releases the file. The library keeps no open handle, so dropping
// the reference is enough for the data to be collected.
func (s *Source) Close() error {
	s.fgb = nil
	s.features = nil
	return nil
}
