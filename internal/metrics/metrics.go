// Package metrics собирает счётчики prometheus для задач, подписок и HTTP-запросов.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — набор метрик сервиса.
type Metrics struct {
	TodosCreated          prometheus.Counter
	TodosDeleted          prometheus.Counter
	QuotaRejections       prometheus.Counter
	SubscriptionActivated prometheus.Counter
	SubscriptionExpired   prometheus.Counter
	UsersProvisioned      *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
}

// New регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TodosCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "todos_created_total",
			Help: "Number of created todos.",
		}),
		TodosDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "todos_deleted_total",
			Help: "Number of deleted todos.",
		}),
		QuotaRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "todo_quota_rejections_total",
			Help: "Number of todo creations refused by the free plan limit.",
		}),
		SubscriptionActivated: f.NewCounter(prometheus.CounterOpts{
			Name: "subscription_activations_total",
			Help: "Number of subscription activations.",
		}),
		SubscriptionExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "subscription_expirations_total",
			Help: "Number of subscriptions reverted after their window ended.",
		}),
		UsersProvisioned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "provisioned_users_total",
			Help: "Number of users created by provisioning, by source.",
		}, []string{"source"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// Middleware замеряет длительность запросов. Маршрут берётся из шаблона chi,
// чтобы идентификаторы в пути не раздували число серий.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
