// Command foodmaze starts the Food Maze server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the REST API, WebSocket, and an /mcp endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the levels and sessions directories, debug logging,
// version output, and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/foodmaze/api"
	"github.com/wricardo/foodmaze/game/config"
	"github.com/wricardo/foodmaze/game/service"
	"github.com/wricardo/foodmaze/game/session"
	"github.com/wricardo/foodmaze/telemetry"
	"github.com/wricardo/foodmaze/transport/mcp"
	"github.com/wricardo/foodmaze/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Food Maze Server"
)

const (
	sessionMaxAge       = 24 * time.Hour
	sessionCleanupEvery = time.Hour
	filesystemSyncEvery = 5 * time.Second
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	levelsDir    = flag.String("levels-dir", "levels", "Directory containing level packs (or LEVELS_DIR env var)")
	sessionsDir  = flag.String("sessions-dir", "sessions", "Directory for persisted sessions, empty keeps sessions in memory (or SESSIONS_DIR env var)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// envOr returns the environment variable key, or fallback when it is unset
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// flagOrEnv resolves a flag after .env has been loaded: a value given on the
// command line wins, then the environment variable key, then the flag default.
func flagOrEnv(fs *flag.FlagSet, name, key string) string {
	f := fs.Lookup(name)
	if f == nil {
		return os.Getenv(key)
	}
	set := false
	fs.Visit(func(v *flag.Flag) {
		if v.Name == name {
			set = true
		}
	})
	if set {
		return f.Value.String()
	}
	return envOr(key, f.DefValue)
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio, mcp   Aliases for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  LOG_FORMAT=json                 JSON log lines\n")
		fmt.Fprintf(os.Stderr, "  OTEL_EXPORTER_OTLP_ENDPOINT     export traces over OTLP/HTTP\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090         # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
	}
}

// setupLogging configures the global logrus logger
func setupLogging(debug bool, format string) {
	log.SetOutput(os.Stderr)
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// a missing .env file is fine
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	setupLogging(*debug, os.Getenv("LOG_FORMAT"))
	switch {
	case envErr == nil:
		log.Debug("Loaded environment variables from .env file")
	case !os.IsNotExist(envErr):
		log.WithError(envErr).Warn("Error loading .env file")
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, Version)
	if err != nil {
		log.WithError(err).Warn("Tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.WithError(err).Warn("Tracer shutdown failed")
		}
	}()

	log.WithFields(log.Fields{
		"version": Version,
		"mode":    mode,
		"tracing": telemetry.Enabled(),
	}).Infof("Starting %s", AppName)

	gameService, sessions, err := initializeServices(ctx,
		flagOrEnv(flag.CommandLine, "levels-dir", "LEVELS_DIR"),
		flagOrEnv(flag.CommandLine, "sessions-dir", "SESSIONS_DIR"))
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize services")
	}
	defer func() {
		if err := sessions.SaveAllSessions(); err != nil {
			log.WithError(err).Warn("Failed to save sessions on shutdown")
		}
	}()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(ctx, gameService)
	case "server", "http":
		runHTTPServer(ctx, gameService)
	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// newRouter mounts the REST API at the root and the MCP streamable HTTP
// endpoint at /mcp
func newRouter(gameService service.GameService, hub *websocket.Hub, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(gameService, hub))
	mainRouter.Handle("/mcp", server.NewStreamableHTTPServer(mcpClient.GetMCPServer()))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and /mcp endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
// It returns once ctx is cancelled and the servers have shut down.
func runHTTPServer(ctx context.Context, gameService service.GameService) {
	hub := websocket.NewHub()
	go hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	handler := newRouter(gameService, hub, mcpClient)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: websocket and MCP streams stay open
		IdleTimeout: 60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.WithFields(log.Fields{
			"rest":      fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("HTTP server listening on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	if settings := ngrokFromEnv(); settings.enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, settings, handler)
		}()
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info("Server stopped")
}

// ngrokSettings holds the tunnel configuration merged from flags and environment
type ngrokSettings struct {
	enabled   bool
	authToken string
	domain    string
}

// ngrokFromEnv merges ngrok flags with NGROK_ENABLED, NGROK_AUTHTOKEN,
// NGROK_AUTH_TOKEN and NGROK_DOMAIN. Flags win.
func ngrokFromEnv() ngrokSettings {
	s := ngrokSettings{
		enabled:   *ngrokEnabled,
		authToken: *ngrokAuth,
		domain:    *ngrokDomain,
	}
	if !s.enabled {
		if v := os.Getenv("NGROK_ENABLED"); v == "true" || v == "1" {
			s.enabled = true
		}
	}
	if s.authToken == "" {
		s.authToken = os.Getenv("NGROK_AUTHTOKEN")
		if s.authToken == "" {
			s.authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if s.domain == "" {
		s.domain = os.Getenv("NGROK_DOMAIN")
	}
	return s
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is cancelled
func runNgrokTunnel(ctx context.Context, settings ngrokSettings, handler http.Handler) {
	if settings.authToken == "" {
		log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if settings.domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.domain))
		log.WithField("domain", settings.domain).Info("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.authToken))
	if err != nil {
		log.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}

	// closing the tunnel ends http.Serve below
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithFields(log.Fields{
		"rest":      ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Infof("Ngrok tunnel established: %s", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Error("Ngrok server error")
	}
	log.Info("Ngrok tunnel closed")
}

// initializeServices wires the level catalog, the session manager and the
// game service. With a sessions directory, sessions are persisted as JSON
// files and reloaded on startup. Background routines stop with ctx.
func initializeServices(ctx context.Context, levelsDir, sessionsDir string) (service.GameService, *session.Manager, error) {
	levels, err := config.NewManager(levelsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create level catalog: %w", err)
	}
	defaultID, _ := levels.GetDefault()
	log.WithFields(log.Fields{"dir": levelsDir, "default": defaultID}).Info("Level catalog ready")

	var sessionManager *session.Manager
	var persistence session.SessionPersistence
	if sessionsDir == "" {
		sessionManager = session.NewManager()
	} else {
		fp, err := session.NewFilePersistence(sessionsDir, levels)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		persistence = fp
		sessionManager = session.NewManagerWithPersistence(fp)

		if err := sessionManager.LoadPersistedSessions(); err != nil {
			log.WithError(err).Warn("Failed to load persisted sessions")
		}
	}

	gameService := service.NewGameService(sessionManager, levels)

	go sessionCleanupRoutine(ctx, sessionManager, sessionCleanupEvery, sessionMaxAge)
	if persistence != nil {
		go filesystemSyncRoutine(ctx, sessionManager, persistence, filesystemSyncEvery)
	}

	return gameService, sessionManager, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within maxAge
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.WithField("removed", removed).Info("Cleaned up expired sessions")
			}
		}
	}
}

// filesystemSyncRoutine drops sessions from memory once their files are deleted
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphanedSessions(manager, persistence)
		}
	}
}

// pruneOrphanedSessions removes in-memory sessions without a backing file
// and returns how many were removed
func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.WithField("session_id", sess.ID).Debug("Pruned session from memory (file deleted)")
		}
	}
	if pruned > 0 {
		log.WithField("pruned", pruned).Info("Filesystem sync pruned orphaned sessions")
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:<port>; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, gameService service.GameService) {
	externalURL := fmt.Sprintf("http://localhost:%d", *port)
	baseURL := externalURL

	if !apiAvailable(externalURL) {
		log.Info("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.WithError(err).Fatal("Failed to get available port")
		}

		hub := websocket.NewHub()
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
	}

	log.WithField("api", baseURL).Info("MCP stdio server ready")

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.WithError(err).Error("MCP stdio server error")
	}
}

// apiAvailable reports whether a food maze API answers at baseURL
func apiAvailable(baseURL string) bool {
	log.WithField("url", baseURL).Debug("Checking for external API server")
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
