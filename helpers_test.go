package sosi

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"
)

// memSource is an in-memory Source that records how it is used.
type memSource struct {
	records []*Record
	code    string
	bound   *orb.Bound
	failAt  int // index of the record whose read fails, -1 for none
	failErr error

	pos    int
	reads  int
	closes int
	closed bool
}

func (s *memSource) Next() (*Record, error) {
	if s.closed {
		return nil, errors.New("memSource: read after close")
	}
	s.reads++
	if s.failAt >= 0 && s.pos == s.failAt {
		return nil, s.failErr
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func (s *memSource) CoordinateSystemCode() string { return s.code }

func (s *memSource) Bounds() (orb.Bound, error) {
	if s.bound == nil {
		return orb.Bound{}, ErrNoBounds
	}
	return *s.bound, nil
}

func (s *memSource) Close() error {
	s.closes++
	s.closed = true
	return nil
}

// memOpener hands out fresh memSources over the same records and keeps
// every source it opened.
type memOpener struct {
	records []*Record
	code    string
	bound   *orb.Bound
	failAt  int
	failErr error
	openErr error
	gate    chan struct{} // when set, opens block until it is closed

	mu      sync.Mutex
	sources []*memSource
	opens   atomic.Int32
}

func newMemOpener(records ...*Record) *memOpener {
	return &memOpener{records: records, code: "EPSG:25833", failAt: -1}
}

func (o *memOpener) Open(string) (Source, error) {
	o.opens.Add(1)
	if o.gate != nil {
		<-o.gate
	}
	if o.openErr != nil {
		return nil, o.openErr
	}

	src := &memSource{
		records: o.records,
		code:    o.code,
		bound:   o.bound,
		failAt:  o.failAt,
		failErr: o.failErr,
	}
	o.mu.Lock()
	o.sources = append(o.sources, src)
	o.mu.Unlock()
	return src, nil
}

func (o *memOpener) allClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range o.sources {
		if s.closes != 1 {
			return false
		}
	}
	return true
}

func rec(geom orb.Geometry, kv ...string) *Record {
	attrs := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = kv[i+1]
	}
	return &Record{Attributes: attrs, Geometry: geom}
}

// addressRecords is three records where only the first carries GATENAVN
// and only the third carries HUSNR.
func addressRecords() []*Record {
	return []*Record{
		rec(orb.Point{253673.99, 6645919.76}, "GATENAVN", "Hans Hanssens vei", "OBJTYPE", "Adresse"),
		rec(orb.Point{253700, 6645950}, "OBJTYPE", "Adresse"),
		rec(orb.Point{253710, 6645960}, "OBJTYPE", "Adresse", "HUSNR", "4"),
	}
}
