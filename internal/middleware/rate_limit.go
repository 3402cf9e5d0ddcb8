package middleware

import (
	"net/http"
	"sync"

	"go-attendance/internal/shared/apperror"
	"go-attendance/internal/shared/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  *sync.RWMutex
	r   rate.Limit // requests per second
	b   int        // burst
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		mu:  &sync.RWMutex{},
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) GetLimiter(key string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.ips[key]
	i.mu.RUnlock()
	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if limiter, exists = i.ips[key]; !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[key] = limiter
	}
	return limiter
}

// RateLimitByIP limits every request per client IP except the exempt routes,
// given as "METHOD /full/path".
func RateLimitByIP(r rate.Limit, b int, exempt ...string) gin.HandlerFunc {
	skip := routeSet(exempt)
	return limitByIP(NewIPRateLimiter(r, b), func(route string) bool {
		return !skip[route]
	})
}

// RateLimitRoutesByIP limits only the listed routes, with a bucket of their own.
func RateLimitRoutesByIP(r rate.Limit, b int, routes ...string) gin.HandlerFunc {
	only := routeSet(routes)
	return limitByIP(NewIPRateLimiter(r, b), func(route string) bool {
		return only[route]
	})
}

func limitByIP(limiter *IPRateLimiter, applies func(route string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !applies(c.Request.Method + " " + c.FullPath()) {
			c.Next()
			return
		}
		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			response.Abort(c, http.StatusTooManyRequests, apperror.CodeTooManyRequests, "Too many requests from this IP")
			return
		}
		c.Next()
	}
}

func routeSet(routes []string) map[string]bool {
	set := make(map[string]bool, len(routes))
	for _, r := range routes {
		set[r] = true
	}
	return set
}
