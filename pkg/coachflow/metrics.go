package coachflow

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Metrics is the application's Prometheus registry and collectors. Each App owns
// its own registry so tests can build several apps in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	storeOps *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coachflow",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coachflow",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coachflow",
			Name:      "store_operations_total",
			Help:      "Record store calls by table, operation and outcome.",
		}, []string{"table", "op", "outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.storeOps,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// outcome names the error class of err for the store operation counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrReadOnly):
		return "read_only"
	case store.IsNotFound(err):
		return "not_found"
	case store.IsValidation(err):
		return "validation"
	case store.IsTransport(err):
		return "transport"
	default:
		return "error"
	}
}

func (m *Metrics) observeStore(table, op string, err error) {
	m.storeOps.WithLabelValues(table, op, outcome(err)).Inc()
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// routeTemplate returns the mux path template of r, so that ids do not explode
// label cardinality.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// instrument records request metrics and writes one log line per request.
func (a *App) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := routeTemplate(r)
		a.metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		a.metrics.duration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		event := a.log.Info()
		if rec.status >= http.StatusInternalServerError {
			event = a.log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("request")
	})
}

// meteredStore counts every store call by table, operation and outcome.
type meteredStore struct {
	store.Store
	metrics *Metrics
}

func newMeteredStore(s store.Store, m *Metrics) store.Store {
	return &meteredStore{Store: s, metrics: m}
}

func (s *meteredStore) Blocks() store.Table[models.Block, models.BlockID] {
	return meter(s.metrics, "blocks", s.Store.Blocks())
}

func (s *meteredStore) Pages() store.Table[models.Page, models.PageID] {
	return meter(s.metrics, "pages", s.Store.Pages())
}

func (s *meteredStore) Portals() store.Table[models.Portal, models.PortalID] {
	return meter(s.metrics, "portals", s.Store.Portals())
}

func (s *meteredStore) PortalMembers() store.Table[models.PortalMember, models.PortalMemberID] {
	return meter(s.metrics, "portal_members", s.Store.PortalMembers())
}

func (s *meteredStore) Clients() store.Table[models.Client, models.ClientID] {
	return meter(s.metrics, "clients", s.Store.Clients())
}

func (s *meteredStore) Deliverables() store.Table[models.Deliverable, models.DeliverableID] {
	return meter(s.metrics, "deliverables", s.Store.Deliverables())
}

func (s *meteredStore) Resources() store.Table[models.Resource, models.ResourceID] {
	return meter(s.metrics, "resources", s.Store.Resources())
}

func (s *meteredStore) Notifications() store.Table[models.Notification, models.NotificationID] {
	return meter(s.metrics, "notifications", s.Store.Notifications())
}

func (s *meteredStore) ReorderBlocks(ctx context.Context, pageID models.PageID, blockIDs []models.BlockID) error {
	err := s.Store.ReorderBlocks(ctx, pageID, blockIDs)
	s.metrics.observeStore("blocks", "reorder", err)
	return err
}

type meteredTable[T any, I store.Identifier] struct {
	store.Table[T, I]
	name    string
	metrics *Metrics
}

func meter[T any, I store.Identifier](m *Metrics, name string, t store.Table[T, I]) store.Table[T, I] {
	return &meteredTable[T, I]{Table: t, name: name, metrics: m}
}

func (t *meteredTable[T, I]) FetchMany(ctx context.Context, q store.Query) ([]*T, error) {
	out, err := t.Table.FetchMany(ctx, q)
	t.metrics.observeStore(t.name, "fetch_many", err)
	return out, err
}

func (t *meteredTable[T, I]) FetchOne(ctx context.Context, id I) (*T, error) {
	out, err := t.Table.FetchOne(ctx, id)
	t.metrics.observeStore(t.name, "fetch_one", err)
	return out, err
}

func (t *meteredTable[T, I]) Create(ctx context.Context, rec *T) error {
	err := t.Table.Create(ctx, rec)
	t.metrics.observeStore(t.name, "create", err)
	return err
}

func (t *meteredTable[T, I]) Update(ctx context.Context, id I, patch store.Patch) (*T, error) {
	out, err := t.Table.Update(ctx, id, patch)
	t.metrics.observeStore(t.name, "update", err)
	return out, err
}

func (t *meteredTable[T, I]) Delete(ctx context.Context, id I) error {
	err := t.Table.Delete(ctx, id)
	t.metrics.observeStore(t.name, "delete", err)
	return err
}
