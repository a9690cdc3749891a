// Package todoservice собирает HTTP- и gRPC-серверы сервиса задач.
package todoservice

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация swagger-спецификации.
	_ "github.com/magabrotheeeer/todo-subscription/docs"

	"github.com/magabrotheeeer/todo-subscription/internal/http/handlers/health"
	"github.com/magabrotheeeer/todo-subscription/internal/http/handlers/subscription/activate"
	"github.com/magabrotheeeer/todo-subscription/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/todo-subscription/internal/http/handlers/todo/create"
	"github.com/magabrotheeeer/todo-subscription/internal/http/handlers/todo/list"
	"github.com/magabrotheeeer/todo-subscription/internal/http/handlers/todo/remove"
	"github.com/magabrotheeeer/todo-subscription/internal/http/handlers/todo/rename"
	"github.com/magabrotheeeer/todo-subscription/internal/http/handlers/webhook/register"
	"github.com/magabrotheeeer/todo-subscription/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/clock"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/signature"
	"github.com/magabrotheeeer/todo-subscription/internal/metrics"
	"github.com/magabrotheeeer/todo-subscription/internal/services/provisioning"
	"github.com/magabrotheeeer/todo-subscription/internal/services/subscription"
	"github.com/magabrotheeeer/todo-subscription/internal/services/todo"
)

// Deps — зависимости маршрутов.
type Deps struct {
	Subscriptions  *subscription.Manager
	Todos          *todo.Service
	Provisioning   *provisioning.Service
	Tokens         middlewarectx.TokenParser
	Verifier       *signature.Verifier
	Limiters       *middlewarectx.Limiters
	DB             health.Pinger
	Metrics        *metrics.Metrics
	Registry       *prometheus.Registry
	Clock          clock.Clock
	// RequestTimeout ограничивает обработку одного запроса; 0 отключает ограничение.
	RequestTimeout time.Duration
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		d.Metrics.Middleware,
	)
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Вебхук провайдера идентичности, проверяется подписью
		r.Post("/webhooks/register", register.New(logger, d.Provisioning, d.Verifier, d.Clock).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))
			r.Use(middlewarectx.RateLimitMiddleware(d.Limiters, logger))
			r.Post("/subscription", activate.New(logger, d.Subscriptions).ServeHTTP)
			r.Get("/subscription", status.New(logger, d.Subscriptions).ServeHTTP)
			r.Get("/todos", list.New(logger, d.Todos).ServeHTTP)
			r.Post("/todos", create.New(logger, d.Todos).ServeHTTP)
			r.Delete("/todos/{id}", remove.New(logger, d.Todos).ServeHTTP)
			r.Patch("/todos/{id}", rename.New(logger, d.Todos).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, d.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

