package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	"openbee/internal/offline"
)

// getLimiter returns a rate limiter for the given key (usually client IP).
func (app *App) getLimiter(key string) *rate.Limiter {
	app.LimiterMutex.Lock()
	defer app.LimiterMutex.Unlock()
	if lim, ok := app.LimiterMap[key]; ok {
		return lim
	}

	if key == "" || key == "::1" {
		logWarn("Rate limiter key is empty or loopback: %q", key)
	}
	lim := rate.NewLimiter(rate.Every(time.Second/time.Duration(app.Config.rateLimitRPS)), app.Config.rateLimitBurst)
	app.LimiterMap[key] = lim
	return lim
}

// rateLimitMiddleware returns a Gin middleware that enforces per-client rate limiting.
func (app *App) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !app.getLimiter(key).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": ErrorRateLimited})
			return
		}
		c.Next()
	}
}

// requestIDMiddleware injects a request ID into the context for each request.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.Request.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), requestIDKey, reqID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, reqID)
		c.Next()
	}
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// accessLogMiddleware logs one line per request with its request ID.
func (app *App) accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		app.Log.Debugw("request",
			"id", requestID(c.Request.Context()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"route", c.Writer.Header().Get(HeaderRoute),
			"duration", time.Since(start),
		)
	}
}

// noStore marks a response as never cacheable by the client.
var noStore = cachecontrol.New(cachecontrol.Config{
	NoStore:        true,
	NoCache:        true,
	MustRevalidate: true,
})

// applyCacheHeaders sets Cache-Control for a proxied response. Composed
// pages change daily and are never client-cached; assets served from the
// offline cache may be cached for StaticCacheAge in production.
func (app *App) applyCacheHeaders(c *gin.Context, route offline.Route) {
	if app.Config.production && route == offline.RouteCache {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(app.Config.staticCacheAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
		return
	}
	noStore(c)
}

// apiCacheMiddleware disables client caching for every API and health route.
func apiCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.URL.Path == RouteHealth {
			noStore(c)
		}
		c.Next()
	}
}
