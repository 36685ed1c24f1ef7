// Package sosifile reads SOSI text files into records for the sosi feature
// store.
//
// The whole file is decoded on open so that FLATE groups can reference
// curves that appear later in the file; records are then handed out one at
// a time in file order.
package sosifile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	sosi "github.com/tingold/orb-sosi"
)

// Common errors returned by this package.
var (
	ErrInvalidData        = errors.New("sosifile: invalid data")
	ErrMissingHeader      = errors.New("sosifile: missing .HODE")
	ErrUnsupportedCharset = errors.New("sosifile: unsupported character set")
	ErrClosed             = errors.New("sosifile: reader is closed")
)

// Extension is the file extension of SOSI files.
const Extension = ".sos"

// nonFeatures are top-level groups that do not describe features.
var nonFeatures = map[string]bool{
	"HODE":   true,
	"SLUTT":  true,
	"DEF":    true,
	"OBJDEF": true,
}

// curveGroups are the groups a FLATE may reference.
var curveGroups = map[string]bool{
	"KURVE":    true,
	"LINJE":    true,
	"BUEP":     true,
	"BUE":      true,
	"KLOTOIDE": true,
	"SIRKELP":  true,
}

// Header contains the metadata of a SOSI file.
type Header struct {
	Charset  string    // Declared character set, "" when absent
	Version  string    // SOSI-VERSJON
	Koordsys int       // KOORDSYS code, 0 when absent
	Origo    orb.Point // ORIGO-NØ as (east, north)
	Unit     float64   // ENHET
	Bound    orb.Bound // OMRÅDE as (east, north) corners
	HasBound bool      // Whether OMRÅDE was present
}

// Reader yields the features of a SOSI file as records.
type Reader struct {
	header *Header
	groups []*node
	curves map[int][]orb.Point
	pos    int
	closed bool
}

// Open reads and decodes the SOSI file at path.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewReaderFromData(data)
}

// OpenSource opens path as a sosi.Source. It is the Opener used by Factory.
func OpenSource(path string) (sosi.Source, error) {
	return Open(path)
}

// NewReader reads a SOSI file from r.
func NewReader(r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewReaderFromData(data)
}

// NewReaderFromData creates a reader from the raw bytes of a SOSI file.
func NewReaderFromData(data []byte) (*Reader, error) {
	charset := detectCharset(data)
	text, err := decode(data, charset)
	if err != nil {
		return nil, err
	}

	groups := parse(strings.TrimPrefix(text, "\ufeff"))
	if len(groups) == 0 || groups[0].name != "HODE" {
		return nil, ErrMissingHeader
	}

	header, err := parseHeader(groups[0])
	if err != nil {
		return nil, err
	}
	header.Charset = charset

	r := &Reader{
		header: header,
		curves: make(map[int][]orb.Point),
	}
	for _, g := range groups[1:] {
		if nonFeatures[g.name] {
			continue
		}
		r.groups = append(r.groups, g)

		if !curveGroups[g.name] {
			continue
		}
		id, ok := groupID(g.value)
		if !ok {
			continue
		}
		points, err := header.coordinates(g)
		if err != nil {
			return nil, err
		}
		r.curves[id] = points
	}

	return r, nil
}

// Factory returns the store factory for SOSI files.
func Factory() *sosi.Factory {
	return &sosi.Factory{
		Name:        "SOSI",
		Description: "Norwegian national standard geodata format",
		Extension:   Extension,
		Opener:      OpenSource,
	}
}

// Header returns the file header.
func (r *Reader) Header() *Header {
	return r.header
}

// Len returns the number of feature groups in the file.
func (r *Reader) Len() int {
	return len(r.groups)
}

// Next returns the next feature as a record, or io.EOF.
func (r *Reader) Next() (*sosi.Record, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if r.pos >= len(r.groups) {
		return nil, io.EOF
	}

	g := r.groups[r.pos]
	r.pos++

	geom, err := r.geometry(g)
	if err != nil {
		return nil, err
	}

	attrs := make(map[string]string)
	collectAttributes(g.children, attrs)

	return &sosi.Record{Attributes: attrs, Geometry: geom}, nil
}

// CoordinateSystemCode returns the EPSG code for the file's KOORDSYS.
func (r *Reader) CoordinateSystemCode() string {
	return EPSGCode(r.header.Koordsys)
}

// Bounds returns the OMRÅDE of the header.
func (r *Reader) Bounds() (orb.Bound, error) {
	if !r.header.HasBound {
		return orb.Bound{}, sosi.ErrNoBounds
	}
	return r.header.Bound, nil
}

// Close releases the decoded file. Calling Close more than once is a no-op.
func (r *Reader) Close() error {
	r.closed = true
	r.groups = nil
	r.curves = nil
	return nil
}

// collectAttributes flattens attribute lines into attrs. Nested attributes
// are stored under their own name; a repeated name keeps all values,
// separated by commas.
func collectAttributes(children []*node, attrs map[string]string) {
	for _, c := range children {
		switch c.name {
		case "NØ", "NØH", "REF":
			continue
		}

		if c.value != "" || len(c.children) == 0 {
			value := unquote(c.value)
			if prev, ok := attrs[c.name]; ok {
				value = prev + "," + value
			}
			attrs[c.name] = value
		}
		collectAttributes(c.children, attrs)
	}
}

func parseHeader(hode *node) (*Header, error) {
	h := &Header{Unit: 1}

	if v := hode.child("SOSI-VERSJON"); v != nil {
		h.Version = unquote(v.value)
	}

	if t := hode.child("TRANSPAR"); t != nil {
		if k := t.child("KOORDSYS"); k != nil {
			field, _, _ := strings.Cut(k.value, " ")
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("%w: KOORDSYS %q", ErrInvalidData, k.value)
			}
			h.Koordsys = n
		}
		if o := t.child("ORIGO-NØ"); o != nil {
			v, err := numbers(o.value)
			if err != nil || len(v) < 2 {
				return nil, fmt.Errorf("%w: ORIGO-NØ %q", ErrInvalidData, o.value)
			}
			h.Origo = orb.Point{v[1], v[0]}
		}
		if e := t.child("ENHET"); e != nil {
			u, err := strconv.ParseFloat(strings.TrimSpace(e.value), 64)
			if err != nil || u <= 0 {
				return nil, fmt.Errorf("%w: ENHET %q", ErrInvalidData, e.value)
			}
			h.Unit = u
		}
	}

	if a := hode.child("OMRÅDE"); a != nil {
		minNE, errMin := cornerOf(a.child("MIN-NØ"))
		maxNE, errMax := cornerOf(a.child("MAX-NØ"))
		if errMin == nil && errMax == nil {
			h.Bound = orb.Bound{Min: minNE, Max: maxNE}
			h.HasBound = true
		}
	}

	return h, nil
}

func cornerOf(n *node) (orb.Point, error) {
	if n == nil {
		return orb.Point{}, ErrInvalidData
	}
	v, err := numbers(n.value)
	if err != nil || len(v) < 2 {
		return orb.Point{}, fmt.Errorf("%w: %s %q", ErrInvalidData, n.name, n.value)
	}
	return orb.Point{v[1], v[0]}, nil
}
