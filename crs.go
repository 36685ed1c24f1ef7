package sosi

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// CRSResolver resolves an authority code such as "EPSG:25833" to a CRS.
// Unknown codes yield an error wrapping ErrUnknownCRS.
type CRSResolver interface {
	Resolve(code string) (*CRS, error)
}

// Registry is an in-memory CRSResolver keyed by EPSG code.
type Registry struct {
	mu      sync.RWMutex
	entries map[int]CRS
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int]CRS)}
}

// DefaultRegistry returns a registry preloaded with the reference systems
// used by SOSI files: NGO1948, ED50, EUREF89/ETRS89 and WGS84 in their
// geographic and projected variants.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CRS{Code: 4326, Name: "WGS 84"})
	r.Register(CRS{Code: 4258, Name: "ETRS89"})
	r.Register(CRS{Code: 4230, Name: "ED50"})
	r.Register(CRS{Code: 4273, Name: "NGO 1948"})
	r.Register(CRS{Code: 3857, Name: "WGS 84 / Pseudo-Mercator"})

	for zone := 31; zone <= 36; zone++ {
		r.Register(CRS{Code: 25800 + zone, Name: fmt.Sprintf("ETRS89 / UTM zone %dN", zone)})
		r.Register(CRS{Code: 23000 + zone, Name: fmt.Sprintf("ED50 / UTM zone %dN", zone)})
		r.Register(CRS{Code: 32600 + zone, Name: fmt.Sprintf("WGS 84 / UTM zone %dN", zone)})
	}

	for i, zone := range []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII"} {
		r.Register(CRS{Code: 27391 + i, Name: "NGO 1948 (Oslo) / NGO zone " + zone})
	}

	return r
}

// Register adds or replaces an entry.
func (r *Registry) Register(crs CRS) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[crs.Code] = crs
}

// Resolve looks up code. Accepted forms are "EPSG:25833" and "25833".
func (r *Registry) Resolve(code string) (*CRS, error) {
	n, err := ParseEPSG(code)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	crs, ok := r.entries[n]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCRS, code)
	}

	return &crs, nil
}

// ParseEPSG extracts the numeric part of an EPSG authority code.
func ParseEPSG(code string) (int, error) {
	s := strings.TrimSpace(code)
	if len(s) > 5 && strings.EqualFold(s[:5], "EPSG:") {
		s = s[5:]
	}

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCRS, code)
	}
	return n, nil
}
