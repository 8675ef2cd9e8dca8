package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/partyroom/go/internal/party/reconciler"
	"github.com/mcdev12/partyroom/go/internal/party/service"
)

// Service is the transport front of the party server: it owns the
// WebSocket connection manager, the action router, and the HTTP surface.
type Service struct {
	cm         *ConnectionManager
	router     *Router
	svc        *service.Service
	reconciler *reconciler.Reconciler
}

// NewService wires the gateway together, registering the router as the
// connection manager's message handler.
func NewService(cm *ConnectionManager, router *Router, svc *service.Service, rec *reconciler.Reconciler) *Service {
	cm.SetHandler(router)
	return &Service{cm: cm, router: router, svc: svc, reconciler: rec}
}

// Start runs the connection manager until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting party gateway service")

	go s.cm.Start(ctx)

	<-ctx.Done()

	log.Info().Msg("party gateway service shutting down")
	s.reconciler.Shutdown()
	return nil
}

// RegisterRoutes mounts the WebSocket endpoint and the health surface.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/info", s.handleInfo)
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.cm.UpgradeConnection(w, r); err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Service) handleInfo(w http.ResponseWriter, r *http.Request) {
	conns, activeRooms := s.cm.Stats()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"service":"partyroom","rooms":%d,"rooms_with_connections":%d,"connections":%d,"pending_disconnects":%d}`,
		s.svc.Store().Count(), activeRooms, conns, s.reconciler.PendingCount())
}
