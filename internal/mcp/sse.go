package mcp

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// HandleSSE serves the event stream. Headers go out before the auth
// check so a rejected client still sees an event-stream content type and
// can parse the terminal error frame.
func (s *Server) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+s.authToken {
		// One terminal error frame, no subscriber registered.
		fmt.Fprintf(w, "event: error\ndata: {\"error\":\"Unauthorized\"}\n\n")
		flusher.Flush()
		return
	}

	sub := s.events.Subscribe()
	defer sub.Close()

	log.Printf("mcp: event stream client connected")
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			log.Printf("mcp: event stream client disconnected")
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(Notification{
				JSONRPC: "2.0",
				Method:  evt.Method,
				Params:  evt.Params,
			})
			if err != nil {
				log.Printf("mcp: marshal notification: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
