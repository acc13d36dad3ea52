package main

import (
	"context"
	"crypto/rand"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "boardgame-connector-session"

	// cacheTTL matches the upstream guidance of not re-requesting play
	// exports more often than necessary.
	cacheTTL = 12 * time.Hour

	shutdownTimeout = 10 * time.Second
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

var (
	store *sessions.CookieStore
	tpl   *template.Template
	svc   StatsProvider
)

// Run initializes global state and starts the HTTP server on the given
// port. It blocks until the process receives SIGINT or SIGTERM, then shuts
// the server down gracefully.
func Run(port int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		// Sessions only remember the last viewed username, so an ephemeral
		// key is acceptable when none is configured.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generating session secret: %w", err)
		}
		secret = string(buf)
		slog.Warn("SESSION_SECRET not set; sessions will not survive restarts")
	}
	store = sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{HttpOnly: true, Secure: false, Path: "/"}

	cachePath := os.Getenv("CACHE_DB_PATH")
	if cachePath == "" {
		cachePath = "bgg-cache.db"
	}
	cache, err := NewResponseCache(cachePath, cacheTTL)
	if err != nil {
		return fmt.Errorf("initializing response cache: %w", err)
	}
	defer cache.Close()
	if err := cache.Purge(ctx); err != nil {
		slog.Warn("purging expired cache rows failed", "err", err)
	}

	client := NewBGGClient(BaseURL, cache)
	svc = NewStatsService(client)

	tpl = template.Must(template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/*.html"))

	mux, err := newMux()
	if err != nil {
		return err
	}

	if port == 0 {
		port = 8080
		if v := os.Getenv("PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid PORT value %q: %w", v, err)
			}
			port = p
		}
	}

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:    addr,
		Handler: loggingMiddleware(mux),
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped cleanly")
	return nil
}

// newMux builds the route table. Separated from Run so handler tests can
// exercise the exact routing the server uses.
func newMux() (*http.ServeMux, error) {
	subStaticFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("preparing static filesystem: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleIndex)
	mux.HandleFunc("/plays/latestgames", handleLatestGames)
	mux.HandleFunc("/plays/statistics", handleStatistics)
	mux.HandleFunc("/healthz", handleHealthz)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(subStaticFS))))
	return mux, nil
}
