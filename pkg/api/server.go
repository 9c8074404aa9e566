package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cbodonnell/manhunt/pkg/api/handlers"
	"github.com/cbodonnell/manhunt/pkg/api/middleware"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/gorilla/mux"
)

const (
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultQueryTimeout bounds how long a REST request waits on the game loop
	DefaultQueryTimeout = 5 * time.Second
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port int
	TLS  *TLSConfig
	// Rooms answers the REST room queries
	Rooms handlers.RoomDirectory
	// WebSocket serves the player connections on /ws
	WebSocket    http.Handler
	QueryTimeout time.Duration
}

// NewAPIServer creates the HTTP server for the REST endpoints and the WebSocket upgrade.
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// NewRouter builds the request router. The WebSocket route is kept out of the
// compression and tracing middleware since the connection is hijacked.
func NewRouter(opts NewAPIServerOptions) *mux.Router {
	queryTimeout := opts.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)
	if opts.WebSocket != nil {
		r.Handle("/ws", opts.WebSocket)
	}

	rest := r.NewRoute().Subrouter()
	rest.Use(middleware.CORS, middleware.Tracing, middleware.Compress, middleware.Timeout(queryTimeout))
	rest.HandleFunc("/healthz", handlers.HandleHealthz(opts.Rooms)).Methods(http.MethodGet, http.MethodOptions)
	rest.HandleFunc("/rooms", handlers.HandleListRooms(opts.Rooms)).Methods(http.MethodGet, http.MethodOptions)
	rest.HandleFunc("/rooms/{roomId}", handlers.HandleGetRoom(opts.Rooms)).Methods(http.MethodGet, http.MethodOptions)
	return r
}

// Start serves until Stop is called. A graceful stop is not an error.
func (s *APIServer) Start() error {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return nil
		}
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
