package sosi

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// Options configures a Store.
type Options struct {
	Opener   Opener         // Opens record sources (required)
	Resolver CRSResolver    // Resolves coordinate system codes (default: DefaultRegistry)
	Cache    *MetadataCache // Metadata cache, may be shared between stores (default: a private cache)
	Logger   *zap.Logger    // Logger (default: zap.L())
}

// DefaultOptions returns options with every optional field filled in.
// The Opener must still be set by the caller.
func DefaultOptions() *Options {
	return &Options{
		Resolver: DefaultRegistry(),
		Cache:    NewMetadataCache(),
		Logger:   zap.L(),
	}
}

// Query selects features from a store.
type Query struct {
	TypeName    string // Feature type name; empty selects the store's only type
	MaxFeatures int    // Maximum number of features, 0 for no limit
}

// Store is a read-only feature store over a single file holding exactly one
// feature type, named after the file.
type Store struct {
	path string
	key  string
	name string

	open     Opener
	resolver CRSResolver
	cache    *MetadataCache
	logger   *zap.Logger
}

// NewStore creates a store for the file at path. Nothing is read until the
// first operation.
func NewStore(path string, opts *Options) (*Store, error) {
	if opts == nil || opts.Opener == nil {
		return nil, errors.New("sosi: store needs an opener")
	}

	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("sosi: resolve path: %w", err)
	}

	s := &Store{
		path:     path,
		key:      filepath.Clean(key),
		name:     TypeName(path),
		open:     opts.Opener,
		resolver: opts.Resolver,
		cache:    opts.Cache,
		logger:   opts.Logger,
	}
	if s.resolver == nil {
		s.resolver = DefaultRegistry()
	}
	if s.cache == nil {
		s.cache = NewMetadataCache()
	}
	if s.logger == nil {
		s.logger = zap.L()
	}
	s.logger = s.logger.With(zap.String("store", s.name))

	return s, nil
}

// TypeName derives a feature type name from a file path: the base name
// without its extension.
func TypeName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Name returns the store's feature type name.
func (s *Store) Name() string { return s.name }

// Path returns the file the store reads.
func (s *Store) Path() string { return s.path }

// Key returns the identity the store uses in its metadata cache.
func (s *Store) Key() string { return s.key }

// TypeNames returns the names of the store's feature types. There is always
// exactly one.
func (s *Store) TypeNames() []string {
	return []string{s.name}
}

// FeatureType describes the store's feature type. The first call scans the
// whole file; later calls are served from the metadata cache.
func (s *Store) FeatureType() (*FeatureType, error) {
	ft, _, err := s.metadata()
	return ft, err
}

// Count returns the number of features in the store.
func (s *Store) Count() (int, error) {
	_, count, err := s.metadata()
	return count, err
}

// Bounds returns the extent reported by the file. It is not cached.
func (s *Store) Bounds() (Extent, error) {
	return ResolveExtent(s.path, s.open, s.resolver, s.logger)
}

// Reader opens a FeatureReader over a fresh source. The caller must close it.
func (s *Store) Reader(q Query) (*FeatureReader, error) {
	if q.TypeName != "" && q.TypeName != s.name {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, q.TypeName)
	}

	ft, err := s.FeatureType()
	if err != nil {
		return nil, err
	}

	src, err := s.open(s.path)
	if err != nil {
		return nil, &IOError{Op: "open " + s.path, Err: err}
	}

	return NewFeatureReader(src, ft, q.MaxFeatures), nil
}

// Features reads all features selected by q into a FeatureCollection.
func (s *Store) Features(q Query) (*geojson.FeatureCollection, error) {
	r, err := s.Reader(q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	fc := geojson.NewFeatureCollection()
	for {
		ok, err := r.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		f, err := r.Next()
		if err != nil {
			return nil, err
		}
		fc.Append(f)
	}

	return fc, nil
}

// Insert is not supported.
func (s *Store) Insert(...*geojson.Feature) error { return ErrUnsupportedOperation }

// Update is not supported.
func (s *Store) Update(*geojson.Feature) error { return ErrUnsupportedOperation }

// Delete is not supported.
func (s *Store) Delete(...string) error { return ErrUnsupportedOperation }

// CreateSchema is not supported.
func (s *Store) CreateSchema(*FeatureType) error { return ErrUnsupportedOperation }

// RemoveSchema is not supported.
func (s *Store) RemoveSchema(string) error { return ErrUnsupportedOperation }

func (s *Store) metadata() (*FeatureType, int, error) {
	return s.cache.GetOrCompute(s.key, s.describe)
}

func (s *Store) describe() (*FeatureType, int, error) {
	s.logger.Debug("inferring schema", zap.String("path", s.path))

	schema, count, code, err := inferSchema(s.path, s.open)
	if err != nil {
		return nil, 0, err
	}

	ft := &FeatureType{Name: s.name, Schema: schema}
	if code != "" {
		crs, err := s.resolver.Resolve(code)
		if err != nil {
			s.logger.Warn("unresolved coordinate system", zap.String("code", code), zap.Error(err))
		} else {
			ft.CRS = crs
		}
	}

	s.logger.Info("schema inferred",
		zap.Int("attributes", len(schema.Attributes)),
		zap.Int("count", count),
		zap.String("crs", ft.CRS.String()))

	return ft, count, nil
}
