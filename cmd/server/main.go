// Command server is the editor-side coordination server: it bridges an
// AI agent's proposed file edits into diff views inside a running Neovim
// session and streams review outcomes back to the agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	nvimclient "github.com/neovim/go-client/nvim"

	"github.com/ndsl6211/nvim-gemini-cli/internal/config"
	"github.com/ndsl6211/nvim-gemini-cli/internal/discovery"
	"github.com/ndsl6211/nvim-gemini-cli/internal/editor"
	"github.com/ndsl6211/nvim-gemini-cli/internal/mcp"
	"github.com/ndsl6211/nvim-gemini-cli/internal/notify"
	nvimbridge "github.com/ndsl6211/nvim-gemini-cli/internal/nvim"
	"github.com/ndsl6211/nvim-gemini-cli/internal/session"
	"github.com/ndsl6211/nvim-gemini-cli/internal/ws"
)

func main() {
	nvimAddr := flag.String("nvim", "", "Neovim address (socket path)")
	workspacePath := flag.String("workspace", "", "Workspace path(s), colon-separated")
	pid := flag.Int("pid", 0, "Editor PID owning this server")
	configPath := flag.String("config", "", "Path to config file")
	standalone := flag.Bool("standalone", false, "Run without an editor (in-memory bridge)")
	flag.Parse()

	if !*standalone && (*nvimAddr == "" || *workspacePath == "" || *pid == 0) {
		log.Fatal("Usage: server -nvim=<addr> -workspace=<path> -pid=<pid>")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownChan := make(chan string, 1)
	fanout := notify.NewFanout(cfg.Events.QueueSize)

	var bridge editor.Bridge
	var nvClient *nvimbridge.Client
	if *standalone {
		bridge = editor.NewMemory()
		if *workspacePath == "" {
			cwd, _ := os.Getwd()
			*workspacePath = cwd
		}
	} else {
		conn, err := net.Dial("unix", *nvimAddr)
		if err != nil {
			log.Fatalf("Failed to connect to Neovim: %v", err)
		}
		defer func() { _ = conn.Close() }()

		v, err := nvimclient.New(conn, conn, conn, nil)
		if err != nil {
			log.Fatalf("Failed to create Neovim client: %v", err)
		}

		go func() {
			if err := v.Serve(); err != nil &&
				!strings.Contains(err.Error(), "use of closed network connection") {
				log.Printf("Neovim client serve ended with error: %v", err)
			}
			shutdownChan <- "nvim-connection-closed"
		}()

		nvClient = nvimbridge.NewClient(v)
		bridge = nvClient
	}

	manager := session.NewManager(bridge, fanout, cfg.Session.TombstoneRetention)
	defer manager.Stop()

	if nvClient != nil {
		err := nvClient.RegisterCallbacks(
			func(ctx *editor.IdeContext) {
				fanout.Publish(notify.Event{
					Method: notify.MethodContextUpdate,
					Params: map[string]any{"workspaceState": ctx.WorkspaceState},
				})
			},
			func(path, content string) {
				if err := manager.AcceptLocal(path, content); err != nil {
					log.Printf("local accept for %s: %v", path, err)
				}
			},
			func(path string) {
				if err := manager.RejectLocal(path); err != nil {
					log.Printf("local reject for %s: %v", path, err)
				}
			},
		)
		if err != nil {
			log.Fatalf("Failed to register callbacks: %v", err)
		}
	}

	authToken := uuid.New().String()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to create listener: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	log.Printf("Server listening on port %d", port)

	if nvClient != nil {
		if err := nvClient.NotifyReady(port, authToken, *workspacePath); err != nil {
			log.Printf("Warning: failed to notify Neovim: %v", err)
		}
	}

	ownerPid := *pid
	if ownerPid == 0 {
		ownerPid = os.Getpid()
	}

	engine := discovery.NewEngine(cfg.Discovery.Dir, cfg.Discovery.EditorPattern)
	if err := engine.Publish(ownerPid, port, authToken, *workspacePath); err != nil {
		log.Fatalf("Failed to publish discovery descriptors: %v", err)
	}

	if *standalone {
		for _, kv := range discovery.AgentEnv(port, authToken, *workspacePath) {
			fmt.Printf("export %s\n", kv)
		}
	}

	mux := http.NewServeMux()
	mcpServer := mcp.NewServer(authToken, manager, fanout)
	mcpServer.SetupRoutes(mux)
	wsServer := ws.NewServer(authToken, fanout)
	wsServer.SetupRoutes(mux)

	// Watchdog: if the owning editor process dies without a clean RPC
	// teardown, shut down anyway so descriptors do not go stale.
	if !*standalone {
		go func() {
			ticker := time.NewTicker(cfg.Discovery.Heartbeat)
			defer ticker.Stop()
			for range ticker.C {
				if !discovery.PidAlive(ownerPid) {
					shutdownChan <- "editor-process-dead"
					return
				}
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		shutdownChan <- "os-signal"
	}()

	httpServer := &http.Server{Handler: mux}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			shutdownChan <- "http-server-error"
		}
	}()

	reason := <-shutdownChan
	log.Printf("Shutting down (reason: %s)...", reason)

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(cleanupCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	engine.Retract()
	log.Println("Server shutdown complete")
}
