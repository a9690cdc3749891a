package middlewarectx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/todo-subscription/internal/http/response"
	"github.com/magabrotheeeer/todo-subscription/internal/lib/clock"
)

// Limiters хранит отдельный ограничитель на каждого пользователя.
// Ограничители, к которым давно не обращались, удаляет Sweep.
type Limiters struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	clock    clock.Clock
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLimiters создаёт набор ограничителей с частотой rps и запасом burst.
func NewLimiters(rps float64, burst int, clk clock.Clock) *Limiters {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Limiters{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		clock:    clk,
	}
}

// Allow сообщает, можно ли пропустить ещё один запрос key.
func (l *Limiters) Allow(key string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = e
	}
	e.seen = now
	l.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

// Len возвращает число отслеживаемых ключей.
func (l *Limiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Sweep удаляет ограничители, простаивающие дольше idle, и возвращает их число.
// За время простоя корзина успевает наполниться, поэтому удаление не меняет поведение.
func (l *Limiters) Sweep(idle time.Duration) int {
	cutoff := l.clock.Now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, e := range l.limiters {
		if e.seen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// RunSweeper вызывает Sweep каждые interval до отмены ctx.
func (l *Limiters) RunSweeper(ctx context.Context, interval, idle time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(idle); n > 0 {
				log.Debug("idle rate limiters evicted", slog.Int("count", n))
			}
		}
	}
}

// RateLimitMiddleware ограничивает частоту запросов каждого пользователя.
// Без идентификатора в контексте ключом служит адрес клиента.
func RateLimitMiddleware(limiters *Limiters, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := UserIDFrom(r.Context())
			if !ok {
				key = clientIP(r)
			}
			if !limiters.Allow(key) {
				log.Warn("too many requests",
					slog.String("key", key),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Response{
					Status: response.StatusError,
					Kind:   response.KindRateLimited,
					Error:  "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
