package fgb

import (
	"bytes"
	"io"
	"testing"

	"github.com/paulmach/orb"

	sosi "github.com/tingold/orb-sosi"
)

// sliceSource serves fixed records.
type sliceSource struct {
	records []*sosi.Record
	pos     int
}

func (s *sliceSource) Next() (*sosi.Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

func (s *sliceSource) CoordinateSystemCode() string { return "EPSG:25833" }
func (s *sliceSource) Bounds() (orb.Bound, error)   { return orb.Bound{}, sosi.ErrNoBounds }
func (s *sliceSource) Close() error                 { return nil }

func record(geom orb.Geometry, kv ...string) *sosi.Record {
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return &sosi.Record{Attributes: attrs, Geometry: geom}
}

// exportRecords writes records through a store and returns the file bytes.
func exportRecords(t *testing.T, opts *Options, records ...*sosi.Record) ([]byte, Stats) {
	t.Helper()

	storeOpts := sosi.DefaultOptions()
	storeOpts.Opener = func(string) (sosi.Source, error) {
		return &sliceSource{records: records}, nil
	}
	store, err := sosi.NewStore("Adresser.sos", storeOpts)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	r, err := store.Reader(sosi.Query{})
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	var buf bytes.Buffer
	stats, err := Export(&buf, r, opts)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	return buf.Bytes(), stats
}

func readRecords(t *testing.T, src *Source) []*sosi.Record {
	t.Helper()

	var out []*sosi.Record
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, rec)
	}
}
