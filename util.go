package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"openbee/internal/corpus"
	"openbee/internal/fetch"
	"openbee/internal/offline"
	"openbee/internal/puzzle"
)

// newLogger builds the process logger: JSON in production, console otherwise.
func newLogger(production, verbose bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	if production {
		config = zap.NewProductionConfig()
	}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// errorStatus maps a failure to the HTTP status and message the client sees.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, offline.ErrUnsupportedScheme):
		return http.StatusBadRequest, ErrorUnsupportedURL
	case errors.Is(err, fetch.ErrTransport):
		return http.StatusBadGateway, ErrorUpstream
	case errors.Is(err, corpus.ErrMalformed),
		errors.Is(err, offline.ErrTemplateMarker),
		errors.Is(err, puzzle.ErrEmptyCorpus),
		errors.Is(err, puzzle.ErrNoCenterLetter),
		errors.Is(err, puzzle.ErrMalformedLetterSet):
		return http.StatusInternalServerError, ErrorUnavailable
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// formatUptime returns a human-readable string for a duration.
func formatUptime(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())
	switch {
	case hours > 0:
		return fmt.Sprintf("%d hour%s, %d minute%s, %d second%s",
			hours, plural(hours),
			minutes, plural(minutes),
			seconds, plural(seconds))
	case minutes > 0:
		return fmt.Sprintf("%d minute%s, %d second%s",
			minutes, plural(minutes),
			seconds, plural(seconds))
	default:
		return fmt.Sprintf("%d second%s", seconds, plural(seconds))
	}
}

// plural returns "s" if n != 1, otherwise "".
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// logInfo logs an info-level message.
func logInfo(format string, v ...any) {
	zap.S().Infof(format, v...)
}

// logWarn logs a warning-level message.
func logWarn(format string, v ...any) {
	zap.S().Warnf(format, v...)
}
