package sosifile

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// coordinates collects the ..NØ and ..NØH blocks of a group in file order.
// SOSI stores northing before easting, in units of ..ENHET from ..ORIGO-NØ.
func (h *Header) coordinates(g *node) ([]orb.Point, error) {
	var points []orb.Point

	for _, c := range g.children {
		stride := 0
		switch c.name {
		case "NØ":
			stride = 2
		case "NØH":
			stride = 3
		default:
			continue
		}

		values, err := numbers(c.value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrInvalidData, g.name, c.name, err)
		}
		if len(values)%stride != 0 {
			return nil, fmt.Errorf("%w: %s %s: %d values", ErrInvalidData, g.name, c.name, len(values))
		}

		for i := 0; i < len(values); i += stride {
			points = append(points, orb.Point{
				h.Origo[0] + values[i+1]*h.Unit,
				h.Origo[1] + values[i]*h.Unit,
			})
		}
	}

	return points, nil
}

// geometry builds the orb geometry of a group. Groups without coordinates
// get an empty geometry of their natural type.
func (r *Reader) geometry(g *node) (orb.Geometry, error) {
	if g.name == "FLATE" {
		return r.polygon(g)
	}

	points, err := r.header.coordinates(g)
	if err != nil {
		return nil, err
	}

	switch {
	case curveGroups[g.name]:
		return orb.LineString(points), nil
	case g.name == "SVERM":
		return orb.MultiPoint(points), nil
	}

	switch len(points) {
	case 0:
		return orb.MultiPoint{}, nil
	case 1:
		return points[0], nil
	default:
		return orb.MultiPoint(points), nil
	}
}

// polygon assembles a FLATE from the curves listed in its ..REF. References
// outside parentheses form the outer ring, each parenthesised list a hole,
// and a negative reference walks the curve backwards.
func (r *Reader) polygon(g *node) (orb.Polygon, error) {
	ref := g.child("REF")
	if ref == nil {
		return orb.Polygon{}, nil
	}

	var (
		rings [][]int
		outer []int
		hole  []int
		inner bool
	)

	spaced := strings.NewReplacer("(", " ( ", ")", " ) ").Replace(ref.value)
	for _, tok := range strings.Fields(spaced) {
		switch tok {
		case "(":
			inner, hole = true, nil
			continue
		case ")":
			if len(hole) > 0 {
				rings = append(rings, hole)
			}
			inner, hole = false, nil
			continue
		}

		id, err := parseRef(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: FLATE %s: %v", ErrInvalidData, g.value, err)
		}
		if inner {
			hole = append(hole, id)
		} else {
			outer = append(outer, id)
		}
	}

	if len(outer) == 0 {
		return orb.Polygon{}, nil
	}

	poly := make(orb.Polygon, 0, len(rings)+1)
	ring, err := r.ring(outer)
	if err != nil {
		return nil, err
	}
	poly = append(poly, ring)

	for _, ids := range rings {
		ring, err := r.ring(ids)
		if err != nil {
			return nil, err
		}
		poly = append(poly, ring)
	}

	return poly, nil
}

// ring concatenates referenced curves, dropping the shared point at every
// joint, and closes the result.
func (r *Reader) ring(ids []int) (orb.Ring, error) {
	var ring orb.Ring
	for _, id := range ids {
		key := id
		if key < 0 {
			key = -key
		}

		curve, ok := r.curves[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing curve %d", ErrInvalidData, key)
		}

		points := make([]orb.Point, len(curve))
		copy(points, curve)
		if id < 0 {
			for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
				points[i], points[j] = points[j], points[i]
			}
		}

		if len(ring) > 0 && len(points) > 0 && ring[len(ring)-1].Equal(points[0]) {
			points = points[1:]
		}
		ring = append(ring, points...)
	}

	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// parseRef parses ":12" or "-:12".
func parseRef(tok string) (int, error) {
	sign := 1
	if strings.HasPrefix(tok, "-") {
		sign, tok = -1, tok[1:]
	}
	if !strings.HasPrefix(tok, ":") {
		return 0, fmt.Errorf("bad reference %q", tok)
	}

	id, ok := groupID(tok[1:])
	if !ok {
		return 0, fmt.Errorf("bad reference %q", tok)
	}
	return sign * id, nil
}
