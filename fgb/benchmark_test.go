package fgb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"

	sosi "github.com/tingold/orb-sosi"
)

// generateRecords creates n records spread over a UTM zone 33 tile.
func generateRecords(r *rand.Rand, n int, kind string) []*sosi.Record {
	const minX, minY, span = 250000.0, 6640000.0, 10000.0

	records := make([]*sosi.Record, n)
	for i := range records {
		x := minX + r.Float64()*span
		y := minY + r.Float64()*span

		var geom orb.Geometry
		switch kind {
		case "point":
			geom = orb.Point{x, y}
		case "curve":
			ls := make(orb.LineString, 16)
			for j := range ls {
				ls[j] = orb.Point{x + float64(j)*2.5, y + float64(j)*1.5}
			}
			geom = ls
		case "flate":
			ring := make(orb.Ring, 33)
			for j := 0; j < 32; j++ {
				a := 2 * math.Pi * float64(j) / 32
				ring[j] = orb.Point{x + 20*math.Cos(a), y + 20*math.Sin(a)}
			}
			ring[32] = ring[0]
			geom = orb.Polygon{ring}
		}

		records[i] = record(geom,
			"OBJTYPE", "Adresse",
			"GATENAVN", fmt.Sprintf("Gate %d", r.Intn(500)),
			"HUSNR", fmt.Sprint(i%200),
			"KOMM", "0219",
		)
	}
	return records
}

func newBenchReader(b *testing.B, records []*sosi.Record) *sosi.FeatureReader {
	b.Helper()

	opts := sosi.DefaultOptions()
	opts.Opener = func(string) (sosi.Source, error) {
		return &sliceSource{records: records}, nil
	}
	store, err := sosi.NewStore("bench.sos", opts)
	if err != nil {
		b.Fatal(err)
	}
	r, err := store.Reader(sosi.Query{})
	if err != nil {
		b.Fatal(err)
	}
	return r
}

func benchmarkExport(b *testing.B, n int, kind string, index bool) {
	records := generateRecords(rand.New(rand.NewSource(42)), n, kind)
	opts := &Options{IncludeIndex: index}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := newBenchReader(b, records)
		var buf bytes.Buffer
		if _, err := Export(&buf, r, opts); err != nil {
			b.Fatal(err)
		}
		_ = r.Close()
		b.SetBytes(int64(buf.Len()))
	}
}

func benchmarkGeoJSON(b *testing.B, n int, kind string) {
	records := generateRecords(rand.New(rand.NewSource(42)), n, kind)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		opts := sosi.DefaultOptions()
		opts.Opener = func(string) (sosi.Source, error) {
			return &sliceSource{records: records}, nil
		}
		store, err := sosi.NewStore("bench.sos", opts)
		if err != nil {
			b.Fatal(err)
		}
		fc, err := store.Features(sosi.Query{})
		if err != nil {
			b.Fatal(err)
		}
		data, err := json.Marshal(fc)
		if err != nil {
			b.Fatal(err)
		}
		b.SetBytes(int64(len(data)))
	}
}

func BenchmarkExport_Points_1000(b *testing.B)      { benchmarkExport(b, 1000, "point", true) }
func BenchmarkExport_PointsNoIdx_1000(b *testing.B) { benchmarkExport(b, 1000, "point", false) }
func BenchmarkExport_Curves_1000(b *testing.B)      { benchmarkExport(b, 1000, "curve", true) }
func BenchmarkExport_Flater_1000(b *testing.B)      { benchmarkExport(b, 1000, "flate", true) }

func BenchmarkGeoJSON_Points_1000(b *testing.B) { benchmarkGeoJSON(b, 1000, "point") }
func BenchmarkGeoJSON_Curves_1000(b *testing.B) { benchmarkGeoJSON(b, 1000, "curve") }
func BenchmarkGeoJSON_Flater_1000(b *testing.B) { benchmarkGeoJSON(b, 1000, "flate") }

func BenchmarkSource_Points_10000(b *testing.B) {
	records := generateRecords(rand.New(rand.NewSource(7)), 10000, "point")
	r := newBenchReader(b, records)
	var buf bytes.Buffer
	if _, err := Export(&buf, r, nil); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src, err := NewSourceFromData(data)
		if err != nil {
			b.Fatal(err)
		}
		n := 0
		for {
			if _, err := src.Next(); err != nil {
				break
			}
			n++
		}
		if n != len(records) {
			b.Fatalf("read %d of %d records", n, len(records))
		}
	}
}
