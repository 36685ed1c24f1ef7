package sosi

import (
	"errors"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// Extent is a bounding box in a resolved coordinate reference system.
// The zero value is the unresolved extent.
type Extent struct {
	Bound orb.Bound
	CRS   *CRS
}

// Resolved reports whether the extent carries a reference system.
func (e Extent) Resolved() bool {
	return e.CRS != nil
}

// Envelope returns the bounding box as [minX, minY, maxX, maxY].
func (e Extent) Envelope() [4]float64 {
	return [4]float64{e.Bound.Min[0], e.Bound.Min[1], e.Bound.Max[0], e.Bound.Max[1]}
}

// ResolveExtent opens a source and combines its reported bounds with its
// resolved coordinate system. Bounds are advisory: a missing extent or an
// unknown coordinate system yields the unresolved Extent rather than an error.
// Only a failure to open the source is returned.
func ResolveExtent(path string, open Opener, resolver CRSResolver, logger *zap.Logger) (Extent, error) {
	if logger == nil {
		logger = zap.L()
	}
	src, err := open(path)
	if err != nil {
		return Extent{}, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("close source", zap.String("path", path), zap.Error(cerr))
		}
	}()

	bound, err := src.Bounds()
	if err != nil {
		if !errors.Is(err, ErrNoBounds) {
			logger.Warn("read source bounds", zap.String("path", path), zap.Error(err))
		}
		return Extent{}, nil
	}

	code := src.CoordinateSystemCode()
	crs, err := resolver.Resolve(code)
	if err != nil {
		logger.Warn("unresolved coordinate system",
			zap.String("path", path),
			zap.String("code", code),
			zap.Error(err))
		return Extent{}, nil
	}

	return Extent{Bound: bound, CRS: crs}, nil
}
