package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"MarketLens/internal/analysis"
	"MarketLens/internal/model"
)

const maxBodyBytes = 8 << 20

// Service is the part of analysis.Service the HTTP surface depends on.
type Service interface {
	GetChartData(ctx context.Context, ticker string, period model.Period) ([]model.IndicatorPoint, error)
	GetAnalysis(ctx context.Context, req analysis.AnalysisRequest) (*model.ModelResponse, error)
}

// Server exposes chart data and analyses over HTTP.
type Server struct {
	addr      string
	svc       Service
	metrics   http.Handler
	staticDir string
	srv       *http.Server
}

// NewServer creates a Server. metrics and staticDir are optional.
func NewServer(addr string, svc Service, metrics http.Handler, staticDir string) *Server {
	return &Server{addr: addr, svc: svc, metrics: metrics, staticDir: staticDir}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chartdata", s.handleChartData)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] http shutdown: %v", err)
		}
	}()

	log.Printf("[INFO] http server listening on %s", s.addr)
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	points, err := s.svc.GetChartData(r.Context(), q.Get("ticker"), model.Period(q.Get("period")))
	if err != nil {
		s.writeError(w, err, analysis.FetchFailedMessage)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analysis.AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	resp, err := s.svc.GetAnalysis(r.Context(), req)
	if err != nil {
		s.writeError(w, err, analysis.AnalyzeFailedMessage)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error, generic string) {
	switch {
	case errors.Is(err, analysis.ErrInvalidPeriod), errors.Is(err, analysis.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		log.Printf("[ERROR] %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: generic})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] encode response: %v", err)
	}
}
