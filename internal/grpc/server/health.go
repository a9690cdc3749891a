// Package server поднимает gRPC-сервер с протоколом проверки здоровья.
//
// Статус сервиса выставляется по результату периодической проверки базы данных.
package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/todo-subscription/internal/lib/sl"
)

// ServiceName — имя сервиса в протоколе проверки здоровья.
const ServiceName = "todo.TodoService"

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer — gRPC-сервер, отвечающий на health-запросы.
type HealthServer struct {
	grpc     *grpc.Server
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	log      *slog.Logger
}

// NewHealthServer создаёт сервер. До первой проверки сервис считается NOT_SERVING.
func NewHealthServer(pinger Pinger, interval time.Duration, logger *slog.Logger) *HealthServer {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		grpc:     gs,
		health:   hs,
		pinger:   pinger,
		interval: interval,
		log:      logger,
	}
}

// Check выполняет одну проверку и обновляет статус.
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	const op = "server.Check"
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.pinger.Ping(ctx); err != nil {
		s.log.Warn("dependency check failed", slog.String("op", op), sl.Err(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch проверяет зависимость каждые interval, пока не отменён ctx.
func (s *HealthServer) Watch(ctx context.Context) {
	s.Check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, s.interval)
			s.Check(checkCtx)
			cancel()
		}
	}
}

// Serve принимает соединения на lis. Блокирует до остановки.
func (s *HealthServer) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop переводит сервис в NOT_SERVING и дожидается завершения активных вызовов.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
