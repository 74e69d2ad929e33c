package main

import "time"

// Generation defaults
const (
	DefaultStaticVersion = "open-spelling-bee-1.4.9"
	DefaultCorpusVersion = "open-spelling-bee-words/en-1.0.0"
	DefaultCorpusPath    = "/words/en"
	DefaultDevHost       = "localhost"
)

// DefaultManifest is the third-party assets the page loads from a CDN.
var DefaultManifest = []string{
	"https://cdn.jsdelivr.net/npm/alpinejs@3.x.x/dist/module.esm.js/+esm",
	"https://cdn.jsdelivr.net/npm/@tsparticles/confetti@3.0.3/tsparticles.confetti.bundle.min.js/+esm",
}

// Cache backends
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Route constants
const (
	RouteGuess    = "/api/guess"
	RouteGuesses  = "/api/guesses"
	RoutePuzzle   = "/api/puzzle"
	RouteProgress = "/api/progress"
	RouteSocket   = "/ws"
	RouteHealth   = "/healthz"
)

// Error message constants
const (
	ErrorBadGuess       = "Request body must be JSON with a word."
	ErrorBadDay         = "Query parameter t must be a day key."
	ErrorRateLimited    = "Too many requests. Please slow down."
	ErrorUnknownEvent   = "Unrecognized event."
	ErrorUpstream       = "The origin could not be reached."
	ErrorUnavailable    = "The puzzle could not be prepared."
	ErrorUnsupportedURL = "Only http and https requests can be served."
)

// Header names
const (
	HeaderRequestID = "X-Request-Id"
	HeaderRoute     = "X-Openbee-Route"
)

// Websocket timing
const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 4096
)

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)
