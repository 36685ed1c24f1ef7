package fgb

import (
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

func TestGeometryType(t *testing.T) {
	tests := []struct {
		name     string
		geom     orb.Geometry
		expected flattypes.GeometryType
	}{
		{"Point", orb.Point{1, 2}, flattypes.GeometryTypePoint},
		{"MultiPoint", orb.MultiPoint{{1, 2}, {3, 4}}, flattypes.GeometryTypeMultiPoint},
		{"LineString", orb.LineString{{0, 0}, {1, 1}}, flattypes.GeometryTypeLineString},
		{"MultiLineString", orb.MultiLineString{{{0, 0}, {1, 1}}}, flattypes.GeometryTypeMultiLineString},
		{"Ring", orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, flattypes.GeometryTypePolygon},
		{"Polygon", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, flattypes.GeometryTypePolygon},
		{"MultiPolygon", orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, flattypes.GeometryTypeMultiPolygon},
		{"Collection", orb.Collection{orb.Point{1, 2}}, flattypes.GeometryTypeGeometryCollection},
		{"Bound", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, flattypes.GeometryTypePolygon},
		{"nil", nil, flattypes.GeometryTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := geometryType(tt.geom); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCommonGeometryType(t *testing.T) {
	same := []orb.Geometry{orb.Point{1, 2}, orb.Point{3, 4}}
	if got := commonGeometryType(same); got != flattypes.GeometryTypePoint {
		t.Errorf("expected Point, got %v", got)
	}

	mixed := []orb.Geometry{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}}
	if got := commonGeometryType(mixed); got != flattypes.GeometryTypeUnknown {
		t.Errorf("expected Unknown, got %v", got)
	}

	if got := commonGeometryType(nil); got != flattypes.GeometryTypeUnknown {
		t.Errorf("expected Unknown for no geometries, got %v", got)
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		geom  orb.Geometry
		empty bool
	}{
		{"nil", nil, true},
		{"point", orb.Point{0, 0}, false},
		{"empty multipoint", orb.MultiPoint{}, true},
		{"empty collection", orb.Collection{}, true},
		{"nested empty collection", orb.Collection{orb.MultiPoint{}}, true},
		{"empty polygon", orb.Polygon{}, true},
		{"polygon with empty ring", orb.Polygon{orb.Ring{}}, true},
		{"line", orb.LineString{{0, 0}, {1, 1}}, false},
		{"multipolygon", orb.MultiPolygon{{{{0, 0}, {1, 0}, {0, 0}}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEmpty(tt.geom); got != tt.empty {
				t.Errorf("expected %v, got %v", tt.empty, got)
			}
		})
	}
}

func TestEncodeGeometry(t *testing.T) {
	geoms := []orb.Geometry{
		orb.Point{1.5, 2.5},
		orb.LineString{{0, 0}, {1, 1}, {2, 2}},
		orb.Polygon{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}},
		},
		orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}},
		orb.Collection{orb.Point{1, 2}, orb.LineString{{0, 0}, {1, 1}}},
		orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}},
	}

	for _, g := range geoms {
		builder := flatbuffers.NewBuilder(256)
		if encodeGeometry(g, builder) == nil {
			t.Errorf("expected non-nil geometry for %T", g)
		}
	}

	if encodeGeometry(nil, flatbuffers.NewBuilder(256)) != nil {
		t.Error("expected nil for nil geometry")
	}
}

func TestFlattenParts(t *testing.T) {
	xy, ends := flattenParts([][]orb.Point{
		{{0, 0}, {10, 0}, {10, 10}, {0, 0}},
		{{2, 2}, {4, 2}, {2, 2}},
	})

	if len(xy) != 14 {
		t.Errorf("expected 14 coordinates, got %d", len(xy))
	}
	if len(ends) != 2 || ends[0] != 4 || ends[1] != 7 {
		t.Errorf("expected ends [4 7], got %v", ends)
	}
	if xy[8] != 2 || xy[9] != 2 {
		t.Errorf("expected hole to start at (2, 2), got (%v, %v)", xy[8], xy[9])
	}
}
