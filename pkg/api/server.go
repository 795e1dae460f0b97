package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/skirmish/pkg/api/handlers"
	"github.com/cbodonnell/skirmish/pkg/api/middleware"
	"github.com/cbodonnell/skirmish/pkg/game"
	"github.com/cbodonnell/skirmish/pkg/identity"
	"github.com/cbodonnell/skirmish/pkg/log"
	"github.com/cbodonnell/skirmish/pkg/notifications"
	"github.com/gorilla/mux"
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
	Port     int
	TLS      *TLSConfig
	Identity identity.Provider
	Manager  *game.Manager
	Hub      *notifications.Hub
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	authMiddleware := middleware.NewAuthMiddleware(opts.Identity)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// the websocket stream is read-only and skips bearer auth: browsers
	// cannot set the Authorization header on websocket requests
	router.Handle("/games/{gameID}/regions", handlers.HandleStreamRegions(opts.Manager, opts.Hub)).Methods(http.MethodGet)

	router.Handle("/games", authMiddleware(handlers.HandleListGames(opts.Manager))).Methods(http.MethodGet)
	router.Handle("/games", authMiddleware(handlers.HandleCreateGame(opts.Manager))).Methods(http.MethodPost)
	router.Handle("/games/join", authMiddleware(handlers.HandleJoinGame(opts.Manager))).Methods(http.MethodPost)
	router.Handle("/games/current", authMiddleware(handlers.HandleGetCurrentGame(opts.Manager))).Methods(http.MethodGet)
	router.Handle("/games/{gameID}", authMiddleware(handlers.HandleGetGame(opts.Manager))).Methods(http.MethodGet)
	router.Handle("/games/{gameID}/leave", authMiddleware(handlers.HandleLeaveGame(opts.Manager))).Methods(http.MethodPost)
	router.Handle("/games/{gameID}/location", authMiddleware(handlers.HandleUpdateLocation(opts.Manager))).Methods(http.MethodPost)
	router.Handle("/games/{gameID}/troops", authMiddleware(handlers.HandleTransferTroops(opts.Manager))).Methods(http.MethodPost)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start starts the APIServer
func (s *APIServer) Start() {
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
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
