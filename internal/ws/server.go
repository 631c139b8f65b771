// Package ws streams server notifications over a websocket, for local
// clients (dashboards, plugin frontends) that prefer a socket to SSE.
// Delivery semantics match the SSE stream: each client has a bounded
// queue in the fanout and slow clients lose events.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/ndsl6211/nvim-gemini-cli/internal/mcp"
	"github.com/ndsl6211/nvim-gemini-cli/internal/notify"
)

type Server struct {
	authToken string
	events    *notify.Fanout
}

func NewServer(authToken string, events *notify.Fanout) *Server {
	return &Server{authToken: authToken, events: events}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	sub := s.events.Subscribe()
	log.Printf("ws: client connected: %s", r.RemoteAddr)

	go writePump(conn, sub)

	// Reads are discarded; the read loop only notices disconnection.
	go func() {
		defer func() {
			sub.Close()
			conn.Close()
			log.Printf("ws: client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writePump(conn *websocket.Conn, sub *notify.Subscriber) {
	defer conn.Close()
	for evt := range sub.C {
		frame := mcp.Notification{
			JSONRPC: "2.0",
			Method:  evt.Method,
			Params:  evt.Params,
		}
		data, err := json.Marshal(frame)
		if err != nil {
			log.Printf("ws: marshal notification: %v", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (s *Server) authorize(r *http.Request) bool {
	if r.Header.Get("Authorization") == "Bearer "+s.authToken {
		return true
	}
	// Browser websocket clients cannot set headers; accept the token as
	// a query parameter too.
	return r.URL.Query().Get("token") == s.authToken
}

// checkOrigin admits non-browser clients (no Origin header) and loopback
// origins only; the listener itself is loopback-bound.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	return host == "localhost" || strings.HasPrefix(host, "127.")
}
