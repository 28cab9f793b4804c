// Package ui provides the web review surface for LeapImport.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapimport/internal/engine"
	"github.com/leapstack-labs/leapimport/internal/source"
	"github.com/leapstack-labs/leapimport/internal/ui/live"
	"github.com/leapstack-labs/leapimport/internal/ui/notifier"
	"github.com/leapstack-labs/leapimport/internal/ui/router"
)

// inboxDebounce is how long a file must stay quiet before it is decoded.
const inboxDebounce = 100 * time.Millisecond

// Server is the main UI server.
type Server struct {
	engine       *engine.Engine
	registry     *live.Registry
	sessionStore *sessions.CookieStore
	port         int
	columnWidth  int
	watch        bool
	inbox        string
	isDev        bool
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Engine        *engine.Engine
	Port          int
	ColumnWidth   int
	Watch         bool
	Inbox         string
	SessionSecret string
	Dev           bool
	Logger        *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	notify := notifier.New()
	return &Server{
		engine:       cfg.Engine,
		registry:     live.NewRegistry(cfg.Engine, notify, nil),
		sessionStore: sessionStore,
		port:         cfg.Port,
		columnWidth:  cfg.ColumnWidth,
		watch:        cfg.Watch && cfg.Inbox != "",
		inbox:        cfg.Inbox,
		isDev:        cfg.Dev,
		logger:       logger,
		notifier:     notify,
	}
}

// Handler builds the routed HTTP handler.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
	)

	inbox := ""
	if s.watch {
		inbox = s.inbox
	}
	if err := router.SetupRoutes(r, router.Deps{
		Registry:     s.registry,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		ColumnWidth:  s.columnWidth,
		Inbox:        inbox,
		IsDev:        s.isDev,
		Logger:       s.logger,
	}); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	defer s.registry.Close()

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchInbox(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Registry returns the live session registry.
func (s *Server) Registry() *live.Registry {
	return s.registry
}

// watchInbox starts a session for every supported file written to the inbox.
func (s *Server) watchInbox(ctx context.Context) error {
	if err := os.MkdirAll(s.inbox, 0o750); err != nil {
		return fmt.Errorf("failed to create inbox %s: %w", s.inbox, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.inbox); err != nil {
		s.logger.Error("failed to watch inbox", "dir", s.inbox, "error", err)
		// Don't fail - uploads still work without the inbox
		<-ctx.Done()
		return nil
	}
	s.logger.Info("watching inbox", "dir", s.inbox)

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range pending {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !source.Supported(event.Name) {
				continue
			}

			// Debounce per file: editors and copies write in bursts.
			path := event.Name
			mu.Lock()
			if t, ok := pending[path]; ok {
				t.Stop()
			}
			pending[path] = time.AfterFunc(inboxDebounce, func() {
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
				s.ingest(path)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// ingest decodes an inbox file and starts a session for it.
func (s *Server) ingest(path string) {
	res, err := source.DecodeFile(path, s.engine.SourceOptions())
	if err != nil {
		s.logger.Error("failed to decode inbox file", "file", path, "error", err)
		return
	}
	for _, w := range res.Warnings {
		s.logger.Warn("decode warning", "file", path, "row", w.Row, "message", w.Message)
	}
	res.Table.FileName = filepath.Base(path)

	ls, err := s.registry.Start(res)
	if err != nil {
		s.logger.Error("failed to start session for inbox file", "file", path, "error", err)
		return
	}
	s.logger.Info("inbox file opened", "file", path, "session", ls.ID())
}
