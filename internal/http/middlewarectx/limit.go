package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/datesantiere/internal/http/response"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimiter ограничивает частоту запросов отдельно для каждого клиента.
// Лимитер клиента живёт limiterIdleTTL с последнего запроса, затем его убирает janitor go-cache.
type RateLimiter struct {
	visitors *gocache.Cache
	rps      rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter создает RateLimiter с rps запросами в секунду и запасом burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return newRateLimiter(rps, burst, limiterIdleTTL)
}

func newRateLimiter(rps float64, burst int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: gocache.New(idle, idle),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := l.visitors.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.visitors.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	if err := l.visitors.Add(key, lim, gocache.DefaultExpiration); err != nil {
		// параллельный запрос того же клиента успел создать лимитер
		if v, ok := l.visitors.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func (l *RateLimiter) allow(key string) bool {
	return l.limiter(key).AllowN(l.now(), 1)
}

// ClientKey возвращает ключ клиента: пользователь для аутентифицированных запросов, иначе IP.
func ClientKey(r *http.Request) string {
	if id, ok := IdentityFrom(r.Context()); ok {
		return "user:" + id.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// Middleware возвращает middleware, отвечающий 429 при превышении лимита.
func (l *RateLimiter) Middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			if !l.allow(key) {
				log.Warn("too many requests", slog.String("client", key))
				response.Send(w, r, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
