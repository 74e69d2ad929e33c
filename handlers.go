package main

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"openbee/internal/puzzle"
)

// hopHeaders are connection-scoped and never copied from a stored response.
var hopHeaders = []string{
	"Connection",
	"Content-Length",
	"Keep-Alive",
	"Proxy-Connection",
	"Transfer-Encoding",
	"Upgrade",
}

// targetURL is the absolute URL a request is for. Absolute-form requests
// keep their own URL; origin-form requests are resolved against the origin.
func (app *App) targetURL(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		u := *r.URL
		return &u
	}
	return app.Config.originURL.ResolveReference(&url.URL{
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	})
}

// proxyHandler answers every request that no API route claims.
func (app *App) proxyHandler(c *gin.Context) {
	ctx := c.Request.Context()
	target := app.targetURL(c.Request)

	req := c.Request.Clone(ctx)
	req.URL = target
	req.Host = target.Host

	entry, route, err := app.Proxy.Serve(ctx, req)
	c.Header(HeaderRoute, route.String())
	app.applyCacheHeaders(c, route)
	if err != nil {
		status, msg := errorStatus(err)
		logWarn("Serving %s %s (%s) failed [%s]: %v", c.Request.Method, target, route, requestID(ctx), err)
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}

	header := c.Writer.Header()
	for k, vs := range entry.Header {
		if k == "Cache-Control" {
			continue
		}
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		header.Del(h)
	}
	c.Data(entry.Status, entry.Header.Get("Content-Type"), entry.Body)
}

// guessHandler submits a word for today's puzzle.
func (app *App) guessHandler(c *gin.Context) {
	var body GuessRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrorBadGuess})
		return
	}

	ctx := c.Request.Context()
	n := app.Game.Submit(ctx, body.Word)
	progress, err := app.Game.Progress(ctx)
	if err != nil {
		status, msg := errorStatus(err)
		logWarn("Progress after guess failed [%s]: %v", requestID(ctx), err)
		c.JSON(status, gin.H{"error": msg, "notification": n})
		return
	}
	c.JSON(http.StatusOK, GuessResponse{Notification: n, Progress: progress})
}

// guessesHandler returns the stored words for the day key in ?t, or today.
func (app *App) guessesHandler(c *gin.Context) {
	ctx := c.Request.Context()
	day := puzzle.Today(app.Now())
	if raw := strings.TrimSpace(c.Query("t")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrorBadDay})
			return
		}
		day = d
	}

	words, err := app.Guesses.Get(ctx, day)
	if err != nil {
		logWarn("Reading guesses for %d failed [%s]: %v", day, requestID(ctx), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)})
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{Day: day, Words: words})
}

// puzzleHandler returns today's and yesterday's puzzles.
func (app *App) puzzleHandler(c *gin.Context) {
	data, err := app.Composer.Puzzles(c.Request.Context())
	if err != nil {
		status, msg := errorStatus(err)
		logWarn("Preparing puzzles failed [%s]: %v", requestID(c.Request.Context()), err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, data)
}

// progressHandler reports today's score.
func (app *App) progressHandler(c *gin.Context) {
	progress, err := app.Game.Progress(c.Request.Context())
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	uptime := time.Since(app.StartTime)
	names, err := app.Storage.Names(c.Request.Context())
	status := "ok"
	if err != nil {
		status = "degraded"
		logWarn("Health check could not list cache namespaces: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           status,
		"env":              app.Config.env(),
		"static_version":   app.Config.staticVersion,
		"corpus_version":   app.Config.corpusVersion,
		"cache_namespaces": len(names),
		"corpus_fetches":   app.Loader.Fetches(),
		"day":              puzzle.Today(app.Now()),
		"uptime":           formatUptime(uptime),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}
