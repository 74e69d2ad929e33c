package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"openbee/internal/events"
)

func (app *App) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     app.checkOrigin,
	}
}

// checkOrigin accepts same-host pages and pages served from the origin.
func (app *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host) || strings.EqualFold(u.Hostname(), app.Config.originURL.Hostname())
}

// socketHandler bridges one client to its own event bus. Client frames are
// {"type": ..., "detail": ...} events published on the bus; notifications
// published on the bus are written back as frames of the same shape.
func (app *App) socketHandler(c *gin.Context) {
	conn, err := app.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logWarn("Websocket upgrade failed: %v", err)
		return
	}
	session := uuid.NewString()
	log := app.Log.With("session", session)
	log.Debugf("Websocket connected from %s", c.ClientIP())

	ctx, cancel := context.WithCancel(c.Request.Context())
	bus := events.NewBus()
	notes, stop := bus.Subscribe(events.NotifyName)
	wait := app.Game.Start(ctx, bus)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// A dead writer must unblock publishers waiting on the bus.
		defer cancel()
		writePump(ctx, conn, notes)
	}()

	readPump(ctx, conn, bus)

	cancel()
	stop()
	bus.Close()
	conn.Close()
	wg.Wait()
	if err := wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warnf("Guess loop ended: %v", err)
	}
	log.Debugf("Websocket closed")
}

func readPump(ctx context.Context, conn *websocket.Conn, bus *events.Bus) {
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		e, err := events.Decode(data)
		if err != nil {
			e = events.NewNotification(events.Notification{Message: ErrorUnknownEvent, Status: events.StatusError})
		}
		if err := bus.Publish(ctx, e); err != nil {
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, notes <-chan events.Event) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case e, ok := <-notes:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
