package fgb

import (
	"fmt"
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"

	sosi "github.com/tingold/orb-sosi"
)

// Options configures FlatGeobuf export.
type Options struct {
	Name         string // Layer name (default: the feature type name)
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (default: true)
}

// DefaultOptions returns default options for writing FlatGeobuf files.
func DefaultOptions() *Options {
	return &Options{
		IncludeIndex: true,
	}
}

// Stats reports what an export wrote.
type Stats struct {
	Written int // features written
	Skipped int // features without coordinates
}

type pending struct {
	geom  orb.Geometry
	attrs map[string]string
}

// Export drains r and writes its features to w. Every schema attribute
// becomes a nullable string column, and the feature type's CRS, when
// resolved, is written to the header. Features with empty geometries are
// skipped since FlatGeobuf cannot index them. Export does not close r.
func Export(w io.Writer, r *sosi.FeatureReader, opts *Options) (Stats, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	var (
		stats    Stats
		features []pending
		geoms    []orb.Geometry
	)
	for {
		ok, err := r.HasNext()
		if err != nil {
			return stats, err
		}
		if !ok {
			break
		}
		f, err := r.Next()
		if err != nil {
			return stats, err
		}
		if isEmpty(f.Geometry) {
			stats.Skipped++
			continue
		}

		attrs := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			if s, ok := v.(string); ok {
				attrs[k] = s
			} else if v != nil {
				attrs[k] = fmt.Sprint(v)
			}
		}
		features = append(features, pending{geom: f.Geometry, attrs: attrs})
		geoms = append(geoms, f.Geometry)
	}
	if len(features) == 0 {
		return stats, ErrNoFeatures
	}

	ft := r.FeatureType()
	var columns []string
	if ft != nil && ft.Schema != nil {
		columns = ft.Schema.Attributes
	}

	builder := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(builder)
	header.SetGeometryType(commonGeometryType(geoms))

	name := opts.Name
	if name == "" && ft != nil {
		name = ft.Name
	}
	if name != "" {
		header.SetName(name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	if len(columns) > 0 {
		header.SetColumns(stringColumns(columns, builder))
	}
	if ft != nil && ft.CRS != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		crs.SetCode(int32(ft.CRS.Code))
		if ft.CRS.Name != "" {
			crs.SetName(ft.CRS.Name)
		}
		if ft.CRS.Description != "" {
			crs.SetDescription(ft.CRS.Description)
		}
		header.SetCrs(crs)
	}

	gen := &featureGenerator{features: features, columns: columns}
	if _, err := writer.NewWriter(header, opts.IncludeIndex, gen, nil).Write(w); err != nil {
		return stats, fmt.Errorf("fgb: write: %w", err)
	}
	stats.Written = gen.written
	stats.Skipped += gen.skipped
	return stats, nil
}

// featureGenerator feeds buffered features to the FlatGeobuf writer.
type featureGenerator struct {
	features []pending
	columns  []string
	index    int

	written int
	skipped int
}

func (g *featureGenerator) Generate() *writer.Feature {
	for g.index < len(g.features) {
		p := g.features[g.index]
		g.index++

		builder := flatbuffers.NewBuilder(1024)
		geom := encodeGeometry(p.geom, builder)
		if geom == nil {
			g.skipped++
			continue
		}

		feature := writer.NewFeature(builder)
		feature.SetGeometry(geom)
		if props := encodeProperties(p.attrs, g.columns); len(props) > 0 {
			feature.SetProperties(props)
		}
		g.written++
		return feature
	}
	return nil
}
