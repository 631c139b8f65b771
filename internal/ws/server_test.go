package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ndsl6211/nvim-gemini-cli/internal/mcp"
	"github.com/ndsl6211/nvim-gemini-cli/internal/notify"
)

func newWSTestServer(t *testing.T) (*httptest.Server, *notify.Fanout) {
	t.Helper()
	fanout := notify.NewFanout(64)
	mux := http.NewServeMux()
	NewServer("test-token", fanout).SetupRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, fanout
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func waitForSubscriber(t *testing.T, fanout *notify.Fanout) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for fanout.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWSDeliversNotifications(t *testing.T) {
	srv, fanout := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=test-token"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForSubscriber(t, fanout)
	fanout.Publish(notify.Event{
		Method: notify.MethodDiffAccepted,
		Params: map[string]any{"filePath": "/a.txt", "content": "x"},
	})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame mcp.Notification
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Method != notify.MethodDiffAccepted {
		t.Errorf("method = %s, want %s", frame.Method, notify.MethodDiffAccepted)
	}
	if frame.Params["filePath"] != "/a.txt" {
		t.Errorf("filePath = %v", frame.Params["filePath"])
	}
}

func TestWSAuthViaBearerHeader(t *testing.T) {
	srv, _ := newWSTestServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer test-token")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	if err != nil {
		t.Fatalf("dial with bearer header: %v", err)
	}
	conn.Close()
}

func TestWSRejectsBadToken(t *testing.T) {
	srv, fanout := newWSTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"wrong token", "?token=wrong"},
		{"no token", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tt.query), nil)
			if err == nil {
				t.Fatal("dial succeeded without valid token")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("handshake response = %+v, want 401", resp)
			}
		})
	}

	if fanout.SubscriberCount() != 0 {
		t.Error("rejected client registered a subscriber")
	}
}

func TestWSDisconnectDeregisters(t *testing.T) {
	srv, fanout := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?token=test-token"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForSubscriber(t, fanout)
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for fanout.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not deregistered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"https://evil.example.com", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
