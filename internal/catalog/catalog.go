// Package catalog serves every supported file in a directory as a
// feature store. Stores share one metadata cache. A changed file gets a
// new store, and the replaced store's metadata is dropped with it.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	sosi "github.com/tingold/orb-sosi"
	"github.com/tingold/orb-sosi/internal/metrics"
)

// ErrNotFound is returned for an unknown collection name.
var ErrNotFound = errors.New("catalog: collection not found")

// Options configures a Catalog.
type Options struct {
	Factories []*sosi.Factory    // Accepted formats, tried in order (required)
	Resolver  sosi.CRSResolver   // default: sosi.DefaultRegistry
	Logger    *zap.Logger        // default: zap.L()
	Metrics   *metrics.Collector // optional
}

// Catalog maps collection names to stores over the files of one directory.
type Catalog struct {
	dir       string
	factories []*sosi.Factory
	storeOpts *sosi.Options
	metrics   *metrics.Collector
	logger    *zap.Logger

	mu     sync.RWMutex
	stores map[string]*sosi.Store

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}
}

// New creates a catalog over dir and scans it once.
func New(dir string, opts Options) (*Catalog, error) {
	if len(opts.Factories) == 0 {
		return nil, errors.New("catalog: no factories")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: resolve dir: %w", err)
	}

	storeOpts := sosi.DefaultOptions()
	if opts.Resolver != nil {
		storeOpts.Resolver = opts.Resolver
	}
	if opts.Logger != nil {
		storeOpts.Logger = opts.Logger
	}

	c := &Catalog{
		dir:       abs,
		storeOpts: storeOpts,
		metrics:   opts.Metrics,
		logger:    storeOpts.Logger.With(zap.String("dir", abs)),
		stores:    map[string]*sosi.Store{},
	}

	for _, f := range opts.Factories {
		if !f.Available() {
			c.logger.Warn("format unavailable", zap.String("format", f.DisplayName()))
			continue
		}
		if c.metrics != nil {
			instrumented := *f
			instrumented.Opener = c.metrics.Instrument(f.DisplayName(), f.Opener)
			f = &instrumented
		}
		c.factories = append(c.factories, f)
	}

	if err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the absolute directory served.
func (c *Catalog) Dir() string { return c.dir }

// Cache returns the metadata cache shared by all stores.
func (c *Catalog) Cache() *sosi.MetadataCache { return c.storeOpts.Cache }

// Refresh rescans the directory. Stores for files that are still present
// are kept together with their cached metadata.
func (c *Catalog) Refresh() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("catalog: read dir: %w", err)
	}

	c.mu.RLock()
	previous := c.stores
	c.mu.RUnlock()

	stores := make(map[string]*sosi.Store)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		f := c.factoryFor(path)
		if f == nil {
			continue
		}

		name := sosi.TypeName(path)
		if existing, ok := stores[name]; ok {
			c.logger.Warn("duplicate collection name, keeping first file",
				zap.String("collection", name),
				zap.String("kept", existing.Path()),
				zap.String("ignored", path))
			continue
		}

		if s, ok := previous[name]; ok && s.Path() == path {
			stores[name] = s
			continue
		}

		s, err := f.CreateStore(sosi.Params{File: path}, c.storeOpts)
		if err != nil {
			c.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
			continue
		}
		stores[name] = s
	}

	c.mu.Lock()
	c.stores = stores
	c.mu.Unlock()

	for name, s := range previous {
		if cur, ok := stores[name]; !ok || cur != s {
			c.Cache().Forget(s.Key())
		}
	}

	if c.metrics != nil {
		c.metrics.Collections.Set(float64(len(stores)))
		c.metrics.CatalogReloads.Inc()
	}
	c.logger.Info("catalog scanned", zap.Int("collections", len(stores)))
	return nil
}

func (c *Catalog) factoryFor(path string) *sosi.Factory {
	for _, f := range c.factories {
		if f.CanProcess(path) {
			return f
		}
	}
	return nil
}

// Names returns the collection names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.stores))
	for name := range c.stores {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Store returns the store for a collection name.
func (c *Catalog) Store(name string) (*sosi.Store, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// Reload replaces the store serving the file at path with a fresh one and
// drops the replaced store's cached metadata. Readers already open on the
// old store keep their source. Paths the catalog does not serve are ignored.
func (c *Catalog) Reload(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("catalog: resolve path: %w", err)
	}
	f := c.factoryFor(abs)
	if f == nil {
		return nil
	}

	name := sosi.TypeName(abs)
	c.mu.RLock()
	old, ok := c.stores[name]
	c.mu.RUnlock()
	if !ok || old.Path() != abs {
		return nil
	}

	s, err := f.CreateStore(sosi.Params{File: abs}, c.storeOpts)
	if err != nil {
		return fmt.Errorf("catalog: reload %s: %w", abs, err)
	}

	c.mu.Lock()
	if cur, ok := c.stores[name]; ok && cur == old {
		c.stores[name] = s
	}
	c.mu.Unlock()

	c.Cache().Forget(old.Key())
	if c.metrics != nil {
		c.metrics.CacheEvictions.Inc()
	}
	c.logger.Debug("store replaced", zap.String("collection", name), zap.String("path", abs))
	return nil
}

// Watch starts watching the directory. Modified files get a new store, and
// created, removed or renamed files trigger a rescan.
func (c *Catalog) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("catalog: watch dir: %w", err)
	}

	c.watcher = watcher
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	go c.watchLoop()

	c.logger.Info("watching directory for changes")
	return nil
}

// Stop stops watching. It is a no-op when Watch was not called.
func (c *Catalog) Stop() {
	if c.watcher == nil {
		return
	}
	close(c.stopCh)
	c.watcher.Close()
	<-c.done
	c.watcher = nil
}

func (c *Catalog) watchLoop() {
	defer close(c.done)

	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.handle(event)

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Error("file watcher error", zap.Error(err))

		case <-c.stopCh:
			return
		}
	}
}

func (c *Catalog) handle(event fsnotify.Event) {
	if c.factoryFor(event.Name) == nil {
		return
	}

	c.logger.Debug("file changed",
		zap.String("event", event.Op.String()),
		zap.String("file", event.Name))

	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		if err := c.Refresh(); err != nil {
			c.logger.Error("catalog rescan failed", zap.Error(err))
		}
	}
	// A file created over an existing path keeps its store through Refresh.
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		if err := c.Reload(event.Name); err != nil {
			c.logger.Warn("store reload failed", zap.String("file", event.Name), zap.Error(err))
		}
	}
}
