package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine with every route registered
func NewRouter(h *Handler, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		Logger(log),
		CORS(),
		Metrics(),
	)

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/user/:address", h.GetUser)
	api.POST("/validate-energy-purchase", h.ValidatePurchase)
	api.POST("/update-game-data", h.UpdateGameData)
	api.GET("/contract-stats", h.ContractStats)

	return r
}

// Server serves the API until its context is cancelled
type Server struct {
	handler http.Handler
	log     *slog.Logger

	server *http.Server
}

// NewServer creates a new API server
func NewServer(handler http.Handler, log *slog.Logger) *Server {
	return &Server{
		handler: handler,
		log:     log,
	}
}

// Start listens on port and blocks until ctx is done or the listener fails
func (s *Server) Start(ctx context.Context, port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		// validation waits on toncenter, which is throttled without an API key
		WriteTimeout: 60 * time.Second,
	}

	s.log.Info("starting api server", "port", port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Error("shutdown api server", "error", err)
		}
	}()

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
