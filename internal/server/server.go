// Package server exposes the chat over HTTP: JSON endpoints for auth, groups and
// profile images, and a websocket endpoint that runs one chat session per map view.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"map-chat/internal/chat"
)

// Deps are the collaborators the handlers work with
type Deps struct {
	Auth     Authenticator
	Groups   chat.GroupStore
	Profiles Profiles
	Prefs    chat.Prefs
}

// Server defines fields used in HTTP processing
type Server struct {
	logger        *zap.SugaredLogger
	httpServer    *http.Server
	afterShutdown []func()
}

// NewServer returns new Server with handlers bound to deps
func NewServer(logger *zap.SugaredLogger, deps Deps, opts ...Option) (*Server, error) {
	if deps.Auth == nil || deps.Groups == nil || deps.Profiles == nil || deps.Prefs == nil {
		return nil, fmt.Errorf("server: incomplete dependencies")
	}

	h := &handler{
		logger:   logger,
		auth:     deps.Auth,
		groups:   deps.Groups,
		profiles: deps.Profiles,
		prefs:    deps.Prefs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	c := &config{
		httpServer: &http.Server{Addr: "0.0.0.0:9000"},
		jsonHandlers: map[string]http.Handler{
			"/auth/signup":       http.HandlerFunc(h.signUp),
			"/auth/signin":       http.HandlerFunc(h.signIn),
			"/auth/signout":      h.requireAuth(http.HandlerFunc(h.signOut)),
			"/groups/get":        h.requireAuth(http.HandlerFunc(h.groupMarkers)),
			"/messages/add":      h.requireAuth(http.HandlerFunc(h.addMessage)),
			"/profile/image/get": h.requireAuth(http.HandlerFunc(h.profileImage)),
			"/profile/image/set": h.requireAuth(http.HandlerFunc(h.setProfileImage)),
		},
		plainHandlers: map[string]http.Handler{
			"/map/config": http.HandlerFunc(h.mapView),
			"/metrics":    promhttp.Handler(),
			"/ws":         h.requireAuth(http.HandlerFunc(h.serveWS)),
		},
		mapConfig:   DefaultMapConfig(),
		placeholder: chat.DefaultProfileImage,
	}

	for _, opt := range opts {
		opt.apply(c)
	}

	internal := []Option{
		applyEnforcePostJson(),
		applyLog(logger.Desugar()),
		registerHandlers(),
	}
	for _, opt := range internal {
		opt.apply(c)
	}

	h.mapConfig = c.mapConfig
	h.placeholder = c.placeholder
	if len(c.allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = checkOrigin(c.allowedOrigins)
	}

	return &Server{
		logger:        logger,
		httpServer:    c.httpServer,
		afterShutdown: c.afterShutdown,
	}, nil
}

// Handler returns the root http.Handler, used by tests and embedding servers
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	for _, f := range s.afterShutdown {
		f()
	}

	return nil
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
