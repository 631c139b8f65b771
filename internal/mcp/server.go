// Package mcp is the authenticated network surface of the server: a
// JSON-RPC request/response endpoint for tool calls and a server-sent
// event stream for notifications.
package mcp

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ndsl6211/nvim-gemini-cli/internal/notify"
	"github.com/ndsl6211/nvim-gemini-cli/internal/session"
)

// Server routes authenticated MCP requests to the diff session manager
// and exposes the notification stream.
type Server struct {
	authToken string
	sessions  *session.Manager
	events    *notify.Fanout
	tools     map[string]Tool
	toolOrder []string
}

// Tool is one operation in the closed tool set.
type Tool struct {
	Name        string
	Description string
	Handler     func(path string, args map[string]any) (*ToolCallResult, *RPCError)
	// Properties beyond the always-required filePath.
	ExtraProps map[string]any
}

func NewServer(authToken string, sessions *session.Manager, events *notify.Fanout) *Server {
	s := &Server{
		authToken: authToken,
		sessions:  sessions,
		events:    events,
		tools:     make(map[string]Tool),
	}
	s.registerTools()
	return s
}

// SetupRoutes mounts the server's endpoints. /health carries no auth so
// it can serve as a bare liveness probe.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/call", s.AuthMiddleware(s.HandleCall))
	mux.HandleFunc("/mcp", s.AuthMiddleware(s.HandleCall))
	mux.HandleFunc("/events", s.HandleSSE)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// AuthMiddleware rejects any request whose bearer credential does not
// match the session token, before the wrapped handler runs.
func (s *Server) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Cache-Control")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// HandleCall serves the request/response half of the protocol. A GET that
// asks for an event stream is handed to the SSE handler, matching clients
// that reconnect their stream against the call endpoint.
func (s *Server) HandleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.HandleSSE(w, r)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	log.Printf("mcp: %s (id=%v)", req.Method, req.ID)

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, &req)
	case "tools/list":
		s.handleToolsList(w, &req)
	case "tools/call":
		s.handleToolsCall(w, &req)
	case "notifications/initialized":
		// Signals the client to establish its event stream next.
		w.WriteHeader(http.StatusAccepted)
	default:
		s.sendError(w, req.ID, codeMethodNotFound, "Method not found")
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, req *Request) {
	s.sendResult(w, req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"serverInfo": map[string]string{
			"name":    "nvim-gemini-cli",
			"version": "0.2.0",
		},
		"capabilities": map[string]any{
			"tools": map[string]bool{"listChanged": false},
		},
	})
}

func (s *Server) handleToolsList(w http.ResponseWriter, req *Request) {
	tools := make([]map[string]any, 0, len(s.toolOrder))
	for _, name := range s.toolOrder {
		tool := s.tools[name]
		props := map[string]any{
			"filePath": map[string]string{
				"type":        "string",
				"description": "Absolute path to the file",
			},
		}
		for k, v := range tool.ExtraProps {
			props[k] = v
		}
		tools = append(tools, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": props,
				"required":   []string{"filePath"},
			},
		})
	}
	s.sendResult(w, req.ID, map[string]any{"tools": tools})
}

func (s *Server) handleToolsCall(w http.ResponseWriter, req *Request) {
	name, ok := req.Params["name"].(string)
	if !ok {
		s.sendError(w, req.ID, codeInvalidParams, "Missing tool name")
		return
	}

	tool, exists := s.tools[name]
	if !exists {
		s.sendError(w, req.ID, codeInvalidParams, "Tool not found: "+name)
		return
	}

	args, ok := req.Params["arguments"].(map[string]any)
	if !ok {
		args = make(map[string]any)
	}

	// Every tool operates on one file; the path is validated here, before
	// any session state is touched.
	path, ok := args["filePath"].(string)
	if !ok || path == "" {
		s.sendError(w, req.ID, codeInvalidParams, "filePath is required")
		return
	}
	if !filepath.IsAbs(path) {
		s.sendError(w, req.ID, codeInvalidParams, "filePath must be absolute")
		return
	}

	result, rpcErr := tool.Handler(filepath.Clean(path), args)
	if rpcErr != nil {
		s.sendError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	s.sendResult(w, req.ID, result)
}

func (s *Server) sendResult(w http.ResponseWriter, id, result any) {
	_ = json.NewEncoder(w).Encode(Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) sendError(w http.ResponseWriter, id any, code int, message string) {
	_ = json.NewEncoder(w).Encode(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	})
}
