package fgb

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	sosi "github.com/tingold/orb-sosi"
)

func addressRecords() []*sosi.Record {
	return []*sosi.Record{
		record(orb.Point{253673.99, 6645919.76}, "OBJTYPE", "Adresse", "GATENAVN", "Hans Hanssens vei"),
		record(orb.Point{253674.00, 6645920.00}, "OBJTYPE", "Adresse"),
		record(orb.Point{253680.00, 6645930.00}, "OBJTYPE", "Adresse", "HUSNR", "4"),
	}
}

func TestExport_MagicBytes(t *testing.T) {
	data, stats := exportRecords(t, nil, addressRecords()...)

	expectedMagic := []byte{0x66, 0x67, 0x62, 0x03, 0x66, 0x67, 0x62, 0x00}
	if len(data) < len(expectedMagic) {
		t.Fatal("output too short")
	}
	for i, b := range expectedMagic {
		if data[i] != b {
			t.Errorf("magic byte %d: expected 0x%02x, got 0x%02x", i, b, data[i])
		}
	}

	if stats.Written != 3 || stats.Skipped != 0 {
		t.Errorf("expected 3 written and 0 skipped, got %+v", stats)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	data, _ := exportRecords(t, &Options{Description: "addresses", IncludeIndex: true}, addressRecords()...)

	src, err := NewSourceFromData(data)
	if err != nil {
		t.Fatalf("NewSourceFromData failed: %v", err)
	}
	defer func() { _ = src.Close() }()

	h := src.Header()
	if h.Name != "Adresser" {
		t.Errorf("expected layer name 'Adresser', got %q", h.Name)
	}
	if h.Description != "addresses" {
		t.Errorf("expected description 'addresses', got %q", h.Description)
	}
	if h.GeometryType != "Point" {
		t.Errorf("expected geometry type 'Point', got %q", h.GeometryType)
	}
	if h.FeaturesCount != 3 {
		t.Errorf("expected 3 features, got %d", h.FeaturesCount)
	}
	if !h.HasIndex {
		t.Error("expected HasIndex to be true")
	}
	if h.CRSCode != 25833 {
		t.Errorf("expected CRS code 25833, got %d", h.CRSCode)
	}
	if got := src.CoordinateSystemCode(); got != "EPSG:25833" {
		t.Errorf("expected EPSG:25833, got %q", got)
	}
	if len(h.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(h.Columns))
	}
	for _, c := range h.Columns {
		if c.Type != "String" || !c.Nullable {
			t.Errorf("expected nullable string column, got %+v", c)
		}
	}

	records := readRecords(t, src)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	var withStreet, withNumber int
	for _, rec := range records {
		if _, ok := rec.Geometry.(orb.Point); !ok {
			t.Errorf("expected point, got %T", rec.Geometry)
		}
		if rec.Attributes["OBJTYPE"] != "Adresse" {
			t.Errorf("expected OBJTYPE 'Adresse', got %q", rec.Attributes["OBJTYPE"])
		}
		if _, ok := rec.Attributes["GATENAVN"]; ok {
			withStreet++
		}
		if rec.Attributes["HUSNR"] == "4" {
			withNumber++
		}
	}
	if withStreet != 1 || withNumber != 1 {
		t.Errorf("expected one street name and one house number, got %d and %d", withStreet, withNumber)
	}

	b, err := src.Bounds()
	if err != nil {
		t.Fatalf("Bounds failed: %v", err)
	}
	if b.Min[0] > 253673.99 || b.Max[1] < 6645930.00 {
		t.Errorf("envelope %v does not cover the features", b)
	}
}

func TestExport_SkipsEmptyGeometries(t *testing.T) {
	records := append(addressRecords(),
		record(orb.MultiPoint{}, "OBJTYPE", "Skrivemåte", "STRENG", "Fønhuskoia"),
		record(nil, "OBJTYPE", "Skrivemåte"),
	)

	_, stats := exportRecords(t, nil, records...)
	if stats.Written != 3 || stats.Skipped != 2 {
		t.Errorf("expected 3 written and 2 skipped, got %+v", stats)
	}
}

func TestExport_NoFeatures(t *testing.T) {
	opts := sosi.DefaultOptions()
	opts.Opener = func(string) (sosi.Source, error) {
		return &sliceSource{records: []*sosi.Record{record(orb.MultiPoint{}, "STRENG", "x")}}, nil
	}
	store, err := sosi.NewStore("text.sos", opts)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	r, err := store.Reader(sosi.Query{})
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	var buf bytes.Buffer
	if _, err := Export(&buf, r, nil); !errors.Is(err, ErrNoFeatures) {
		t.Errorf("expected ErrNoFeatures, got %v", err)
	}
}

func TestExport_MixedGeometries(t *testing.T) {
	data, _ := exportRecords(t, nil,
		record(orb.Point{1, 2}, "OBJTYPE", "Punkt"),
		record(orb.LineString{{0, 0}, {5, 5}}, "OBJTYPE", "Veglenke"),
		record(orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}, "OBJTYPE", "ÅpentOmråde"),
	)

	src, err := NewSourceFromData(data)
	if err != nil {
		t.Fatalf("NewSourceFromData failed: %v", err)
	}
	if got := src.Header().GeometryType; got != "Unknown" {
		t.Errorf("expected geometry type 'Unknown', got %q", got)
	}

	kinds := map[string]bool{}
	for _, rec := range readRecords(t, src) {
		kinds[rec.Geometry.GeoJSONType()] = true
	}
	for _, k := range []string{"Point", "LineString", "Polygon"} {
		if !kinds[k] {
			t.Errorf("expected a %s after round trip, got %v", k, kinds)
		}
	}
}

func TestSource_NoIndex(t *testing.T) {
	data, _ := exportRecords(t, &Options{IncludeIndex: false}, addressRecords()...)

	src, err := NewSourceFromData(data)
	if err != nil {
		t.Fatalf("NewSourceFromData failed: %v", err)
	}
	if _, err := src.Next(); !errors.Is(err, ErrNoIndex) {
		t.Errorf("expected ErrNoIndex, got %v", err)
	}
}

func TestSource_StoreOverFile(t *testing.T) {
	data, _ := exportRecords(t, nil, addressRecords()...)
	path := filepath.Join(t.TempDir(), "Adresser.fgb")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	f := Factory()
	if !f.CanProcess(path) || f.CanProcess("Adresser.sos") {
		t.Error("factory should accept only .fgb files")
	}

	store, err := f.CreateStore(sosi.Params{File: path}, nil)
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 features, got %d", count)
	}

	ext, err := store.Bounds()
	if err != nil {
		t.Fatalf("Bounds failed: %v", err)
	}
	if !ext.Resolved() || ext.CRS.Code != 25833 {
		t.Errorf("expected resolved extent in EPSG:25833, got %+v", ext)
	}
}

func TestSource_InvalidData(t *testing.T) {
	if _, err := NewSourceFromData([]byte("not a flatgeobuf")); err == nil {
		t.Error("expected error for invalid data")
	}
	if _, err := Open("/nonexistent/file.fgb"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSource_Close(t *testing.T) {
	data, _ := exportRecords(t, nil, addressRecords()...)
	src, err := NewSourceFromData(data)
	if err != nil {
		t.Fatalf("NewSourceFromData failed: %v", err)
	}

	if err := src.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, err := src.Next(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestFeatureGenerator_CountsWhatItEmits(t *testing.T) {
	gen := &featureGenerator{
		features: []pending{
			{geom: orb.Point{1, 2}, attrs: map[string]string{"OBJTYPE": "Adresse"}},
			{geom: nil},
			{geom: orb.LineString{{0, 0}, {1, 1}}},
		},
		columns: []string{"OBJTYPE"},
	}

	emitted := 0
	for gen.Generate() != nil {
		emitted++
	}
	if emitted != 2 {
		t.Fatalf("expected 2 features, got %d", emitted)
	}
	if gen.written != 2 || gen.skipped != 1 {
		t.Errorf("expected 2 written and 1 skipped, got %d and %d", gen.written, gen.skipped)
	}
}
