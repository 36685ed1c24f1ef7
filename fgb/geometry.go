package fgb

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// geometryType returns the FlatGeobuf type for an orb geometry.
func geometryType(geom orb.Geometry) flattypes.GeometryType {
	switch geom.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Ring, orb.Polygon, orb.Bound:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// commonGeometryType returns the shared type of geoms, or Unknown when they differ.
func commonGeometryType(geoms []orb.Geometry) flattypes.GeometryType {
	if len(geoms) == 0 {
		return flattypes.GeometryTypeUnknown
	}

	t := geometryType(geoms[0])
	for _, g := range geoms[1:] {
		if geometryType(g) != t {
			return flattypes.GeometryTypeUnknown
		}
	}
	return t
}

// isEmpty reports whether geom has no coordinates.
func isEmpty(geom orb.Geometry) bool {
	switch g := geom.(type) {
	case nil:
		return true
	case orb.Point, orb.Bound:
		return false
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) == 0
	case orb.Ring:
		return len(g) == 0
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.MultiPolygon:
		for _, p := range g {
			if !isEmpty(p) {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range g {
			if !isEmpty(c) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// encodeGeometry converts an orb geometry to a FlatGeobuf writer geometry.
func encodeGeometry(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	if geom == nil {
		return nil
	}

	g := writer.NewGeometry(builder)
	g.SetType(geometryType(geom))

	switch v := geom.(type) {
	case orb.Point:
		g.SetXY([]float64{v[0], v[1]})

	case orb.MultiPoint:
		g.SetXY(flatten(v))

	case orb.LineString:
		g.SetXY(flatten(v))

	case orb.Ring:
		g.SetXY(flatten(v))
		g.SetEnds([]uint32{uint32(len(v))})

	case orb.MultiLineString:
		parts := make([][]orb.Point, len(v))
		for i, ls := range v {
			parts[i] = ls
		}
		xy, ends := flattenParts(parts)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.Polygon:
		xy, ends := polygonXY(v)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.Bound:
		xy, ends := polygonXY(v.ToPolygon())
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.MultiPolygon:
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			if part := encodeGeometry(poly, builder); part != nil {
				parts = append(parts, *part)
			}
		}
		g.SetParts(parts)

	case orb.Collection:
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			if part := encodeGeometry(child, builder); part != nil {
				parts = append(parts, *part)
			}
		}
		g.SetParts(parts)

	default:
		return nil
	}

	return g
}

func flatten(points []orb.Point) []float64 {
	xy := make([]float64, 0, len(points)*2)
	for _, p := range points {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

// flattenParts concatenates parts into one coordinate array with cumulative
// end offsets, the layout FlatGeobuf uses for rings and line parts.
func flattenParts(parts [][]orb.Point) ([]float64, []uint32) {
	total := 0
	for _, p := range parts {
		total += len(p)
	}

	xy := make([]float64, 0, total*2)
	ends := make([]uint32, 0, len(parts))
	for _, p := range parts {
		xy = append(xy, flatten(p)...)
		ends = append(ends, uint32(len(xy)/2))
	}
	return xy, ends
}

func polygonXY(poly orb.Polygon) ([]float64, []uint32) {
	parts := make([][]orb.Point, len(poly))
	for i, ring := range poly {
		parts[i] = ring
	}
	return flattenParts(parts)
}

// decodeGeometry converts a FlatGeobuf geometry to an orb geometry. Files
// with a typed header may leave the per-feature type unset, so headerType
// is used as a fallback.
func decodeGeometry(g *flattypes.Geometry, headerType flattypes.GeometryType) orb.Geometry {
	if g == nil {
		return nil
	}

	t := g.Type()
	if t == flattypes.GeometryTypeUnknown {
		t = headerType
	}

	switch t {
	case flattypes.GeometryTypePoint:
		if g.XyLength() < 2 {
			return orb.MultiPoint{}
		}
		return orb.Point{g.Xy(0), g.Xy(1)}

	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(readPoints(g, 0, g.XyLength()/2))

	case flattypes.GeometryTypeLineString:
		return orb.LineString(readPoints(g, 0, g.XyLength()/2))

	case flattypes.GeometryTypeMultiLineString:
		parts := readParts(g)
		mls := make(orb.MultiLineString, len(parts))
		for i, p := range parts {
			mls[i] = orb.LineString(p)
		}
		return mls

	case flattypes.GeometryTypePolygon:
		return readPolygon(g)

	case flattypes.GeometryTypeMultiPolygon:
		n := g.PartsLength()
		if n == 0 {
			if poly := readPolygon(g); len(poly) > 0 {
				return orb.MultiPolygon{poly}
			}
			return orb.MultiPolygon{}
		}
		mp := make(orb.MultiPolygon, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if poly := readPolygon(&part); len(poly) > 0 {
					mp = append(mp, poly)
				}
			}
		}
		return mp

	case flattypes.GeometryTypeGeometryCollection:
		n := g.PartsLength()
		coll := make(orb.Collection, 0, n)
		for i := 0; i < n; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if child := decodeGeometry(&part, flattypes.GeometryTypeUnknown); child != nil {
					coll = append(coll, child)
				}
			}
		}
		return coll

	default:
		return nil
	}
}

// readPoints reads points [start, end) of the xy array.
func readPoints(g *flattypes.Geometry, start, end int) []orb.Point {
	if max := g.XyLength() / 2; end > max {
		end = max
	}
	if start >= end {
		return []orb.Point{}
	}

	points := make([]orb.Point, 0, end-start)
	for i := start; i < end; i++ {
		points = append(points, orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)})
	}
	return points
}

// readParts splits the xy array at the ends offsets. Without ends the whole
// array is one part.
func readParts(g *flattypes.Geometry) [][]orb.Point {
	n := g.EndsLength()
	if n == 0 {
		if g.XyLength() < 2 {
			return nil
		}
		return [][]orb.Point{readPoints(g, 0, g.XyLength()/2)}
	}

	parts := make([][]orb.Point, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := int(g.Ends(i))
		parts = append(parts, readPoints(g, start, end))
		start = end
	}
	return parts
}

func readPolygon(g *flattypes.Geometry) orb.Polygon {
	parts := readParts(g)
	poly := make(orb.Polygon, len(parts))
	for i, p := range parts {
		poly[i] = orb.Ring(p)
	}
	return poly
}
