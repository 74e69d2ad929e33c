package main

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"openbee/internal/cache"
	"openbee/internal/corpus"
	"openbee/internal/events"
	"openbee/internal/game"
	"openbee/internal/guesses"
	"openbee/internal/offline"
)

// App holds the shared handles every handler works with. Storage handles
// are opened once in run and injected here.
type App struct {
	Config    *Config
	Storage   cache.Storage
	Guesses   *guesses.Store
	Loader    *corpus.Loader
	Composer  *offline.Composer
	Proxy     *offline.Proxy
	Gen       *offline.Generation
	Game      *game.Manager
	Log       *zap.SugaredLogger
	StartTime time.Time
	Now       func() time.Time

	LimiterMap   map[string]*rate.Limiter
	LimiterMutex sync.Mutex
}

type contextKey string

// GuessRequest is the body of a guess submission.
type GuessRequest struct {
	Word string `json:"word" binding:"required"`
}

// GuessResponse reports the outcome of a guess and the day's progress.
type GuessResponse struct {
	Notification events.Notification `json:"notification"`
	Progress     game.Progress       `json:"progress"`
}

// HistoryResponse lists the words found on a day.
type HistoryResponse struct {
	Day   int      `json:"day"`
	Words []string `json:"words"`
}
