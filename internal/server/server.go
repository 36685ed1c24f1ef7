// Package server exposes a catalog of feature stores over HTTP as GeoJSON
// and FlatGeobuf.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	sosi "github.com/tingold/orb-sosi"
	"github.com/tingold/orb-sosi/fgb"
	"github.com/tingold/orb-sosi/internal/catalog"
	"github.com/tingold/orb-sosi/internal/metrics"
)

// Config configures the HTTP server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MetricsPath  string // empty disables the metrics endpoint
	IncludeIndex bool   // spatial index in FlatGeobuf responses
}

// Options carries the server's collaborators.
type Options struct {
	Metrics  *metrics.Collector  // optional
	Gatherer prometheus.Gatherer // default: prometheus.DefaultGatherer
	Logger   *zap.Logger         // default: zap.L()
}

// Server serves the collections of a catalog.
type Server struct {
	catalog  *catalog.Catalog
	cfg      Config
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	router   chi.Router
}

// New creates a server for cat.
func New(cat *catalog.Catalog, cfg Config, opts Options) *Server {
	s := &Server{
		catalog:  cat,
		cfg:      cfg,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		logger:   opts.Logger,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = zap.L()
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/collections", s.handleCollections)
	r.Route("/collections/{name}", func(r chi.Router) {
		r.Get("/", s.handleCollection)
		r.Get("/items", s.handleItems)
		r.Get("/items.fgb", s.handleItemsFGB)
	})

	if s.cfg.MetricsPath != "" {
		r.Method(http.MethodGet, s.cfg.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// observe records request metrics and logs each request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)

		if s.metrics != nil {
			status := strconv.Itoa(ww.Status())
			s.metrics.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			s.metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		}
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

type collectionSummary struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type collectionInfo struct {
	Name          string      `json:"name"`
	Attributes    []string    `json:"attributes"`
	GeometryField string      `json:"geometryField"`
	Count         int         `json:"count"`
	CRS           *string     `json:"crs"`
	BBox          *[4]float64 `json:"bbox"`
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	names := s.catalog.Names()
	out := make([]collectionSummary, 0, len(names))
	for _, name := range names {
		st, err := s.catalog.Store(name)
		if err != nil {
			continue // removed since Names
		}
		out = append(out, collectionSummary{Name: name, Path: st.Path()})
	}
	s.writeJSON(w, map[string]any{"collections": out})
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}

	ft, err := st.FeatureType()
	if err != nil {
		s.writeError(w, err)
		return
	}
	count, err := st.Count()
	if err != nil {
		s.writeError(w, err)
		return
	}
	ext, err := st.Bounds()
	if err != nil {
		s.writeError(w, err)
		return
	}

	info := collectionInfo{
		Name:          ft.Name,
		Attributes:    ft.Schema.Attributes,
		GeometryField: ft.Schema.GeometryField,
		Count:         count,
	}
	if ft.CRS != nil {
		id := ft.CRS.ID()
		info.CRS = &id
	}
	if ext.Resolved() {
		env := ext.Envelope()
		info.BBox = &env
	}
	s.writeJSON(w, info)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}

	fc, err := st.Features(sosi.Query{MaxFeatures: limit})
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := json.Marshal(fc)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.FeaturesServed.WithLabelValues(st.Name(), "geojson").Add(float64(len(fc.Features)))
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func (s *Server) handleItemsFGB(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}

	reader, err := st.Reader(sosi.Query{MaxFeatures: limit})
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer reader.Close()

	var buf bytes.Buffer
	stats, err := fgb.Export(&buf, reader, &fgb.Options{IncludeIndex: s.cfg.IncludeIndex})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.FeaturesServed.WithLabelValues(st.Name(), "flatgeobuf").Add(float64(stats.Written))
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Disposition", `attachment; filename="`+st.Name()+fgb.Extension+`"`)
	w.Write(buf.Bytes())
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) (*sosi.Store, bool) {
	st, err := s.catalog.Store(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return st, true
}

func (s *Server) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		s.writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	s.writeJSONStatus(w, http.StatusOK, data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps err to a status: unknown collections are 404, empty
// sources 422, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, sosi.ErrUnknownType):
		status = http.StatusNotFound
	case errors.Is(err, sosi.ErrEmptySource), errors.Is(err, fgb.ErrNoFeatures):
		status = http.StatusUnprocessableEntity
	default:
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeJSONStatus(w, status, map[string]string{"error": err.Error()})
}
