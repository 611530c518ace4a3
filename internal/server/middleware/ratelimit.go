package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/server/handlers"
)

// ErrRateLimited is returned when a client exceeds the configured limit
var ErrRateLimited = fail.TooManyRequests("Too many login attempts, please try again later")

// RateLimiter ограничивает частоту запросов по ключу (обычно IP адрес).
// Для каждого ключа создается свой token bucket.
type RateLimiter struct {
	visitors map[string]*visitor
	logger   *slog.Logger
	cleanupC chan struct{}
	now      func() time.Time
	limit    rate.Limit
	burst    int
	window   time.Duration
	stopOnce sync.Once
	mu       sync.Mutex
}

// visitor - bucket конкретного ключа
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter создает новый rate limiter
// count - максимальное количество запросов за window
// count <= 0 отключает ограничение
func NewRateLimiter(count int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		logger:   logger,
		cleanupC: make(chan struct{}),
		now:      time.Now,
		limit:    rate.Inf,
		burst:    count,
		window:   window,
	}
	if count > 0 && window > 0 {
		rl.limit = rate.Every(window / time.Duration(count))
	}
	if rl.window <= 0 {
		rl.window = time.Minute
	}

	// Запускаем периодическую очистку старых visitors
	go rl.cleanup()

	return rl
}

// cleanup периодически удаляет неактивные visitors
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupVisitors()
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupVisitors удаляет visitors, которые не появлялись дольше 2*window.
// За это время bucket полностью восстанавливается, так что удаление ничего не меняет.
func (rl *RateLimiter) cleanupVisitors() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.window*2 {
			delete(rl.visitors, key)
		}
	}
}

// Stop останавливает cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.cleanupC)
	})
}

// Len возвращает количество отслеживаемых ключей
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit == rate.Inf {
		return true
	}

	now := rl.now()

	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Middleware возвращает middleware, отклоняющий запросы сверх лимита с 429.
// onLimited вызывается на каждый отклоненный запрос, может быть nil.
func (rl *RateLimiter) Middleware(onLimited func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			if !rl.Allow(key) {
				rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
					slog.String("ip", key),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				if onLimited != nil {
					onLimited()
				}
				handlers.WriteError(rl.logger, w, r, ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP извлекает IP адрес клиента из RemoteAddr.
// Заголовки прокси уже учтены chi middleware.RealIP в роутере.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
