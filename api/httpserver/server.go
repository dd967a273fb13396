// Package httpserver exposes the engine over REST. It is a thin adapter:
// decode, call the service, map domain errors to status codes.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kestrel/service"
)

type Server struct {
	svc  *service.OrderService
	log  *zap.Logger
	http *http.Server
}

func New(addr string, svc *service.OrderService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{svc: svc, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/orders", s.handlePlace).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id:[0-9]+}", s.handleModify).Methods(http.MethodPut)
	r.HandleFunc("/orders/{id:[0-9]+}", s.handleCancel).Methods(http.MethodDelete)
	r.HandleFunc("/book/depth", s.handleDepth).Methods(http.MethodGet)
	r.HandleFunc("/book/best", s.handleBest).Methods(http.MethodGet)
	r.HandleFunc("/book/uncross", s.handleUncross).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.http.Handler
}

func (s *Server) ListenAndServe() error {
	s.log.Info("http listening", zap.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
