package api

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// clientLimiter rate limits grant requests per client IP. Grants are an
// operator action and never arrive in bulk.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newClientLimiter() *clientLimiter {
	return &clientLimiter{
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(1), // 1 req/s sustained
		burst:   5,
	}
}

func (l *clientLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.clients[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.clients[ip] = lim
	}
	return lim
}

func (l *clientLimiter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !l.limiterFor(c.RealIP()).Allow() {
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "too many requests",
			})
		}
		return next(c)
	}
}
