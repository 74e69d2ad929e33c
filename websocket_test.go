package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"openbee/internal/events"
)

func dialSocket(t *testing.T) *websocket.Conn {
	t.Helper()
	router, _, _ := setupTestRouter(t)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + RouteSocket
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("handshake status = %d", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNotification(t *testing.T, conn *websocket.Conn) (string, events.Notification) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame struct {
		Type   string              `json:"type"`
		Detail events.Notification `json:"detail"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame.Type, frame.Detail
}

// TestSocketGuess checks a guess frame is answered with a notify frame
func TestSocketGuess(t *testing.T) {
	conn := dialSocket(t)

	if err := conn.WriteJSON(events.NewGuess("bored")); err != nil {
		t.Fatal(err)
	}
	kind, n := readNotification(t, conn)
	if kind != string(events.NotifyName) {
		t.Errorf("frame type = %q, want %q", kind, events.NotifyName)
	}
	if n.Message != "+5" || n.Status != events.StatusSuccess {
		t.Errorf("notification = %+v, want +5 success", n)
	}

	if err := conn.WriteJSON(events.NewGuess("bor")); err != nil {
		t.Fatal(err)
	}
	_, n = readNotification(t, conn)
	if n.Message != "Word must be at least 4 letters long." || n.Status != events.StatusError {
		t.Errorf("notification = %+v, want too-short error", n)
	}
}

// TestSocketUnknownEvent checks unknown frames get an error notification
func TestSocketUnknownEvent(t *testing.T) {
	conn := dialSocket(t)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"osb:shuffle"}`)); err != nil {
		t.Fatal(err)
	}
	_, n := readNotification(t, conn)
	if n.Message != ErrorUnknownEvent || n.Status != events.StatusError {
		t.Errorf("notification = %+v", n)
	}
}

// TestCheckOrigin checks cross-site pages cannot open a socket
func TestCheckOrigin(t *testing.T) {
	app, _ := setupTestApp(t)
	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://openbee.local:8080", true},
		{"https://bee.example.com", true},
		{"https://evil.example.org", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "http://openbee.local:8080/ws", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := app.checkOrigin(req); got != tc.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}
