package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"error-match/internal/logger"
	"error-match/internal/metrics"
	"error-match/internal/models"
	"error-match/internal/service"
	"error-match/internal/sysinfo"
)

// Server wraps the HTTP API server.
type Server struct {
	httpServer *http.Server
}

type handler struct {
	cfg *models.Config
	svc *service.QueryService
	sys *sysinfo.Collector
}

// NewServer builds the HTTP server for extension/API consumption.
func NewServer(cfg *models.Config, svc *service.QueryService, sys *sysinfo.Collector) *Server {
	h := &handler{cfg: cfg, svc: svc, sys: sys}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/match", h.match)
	mux.HandleFunc("/api/match/refined", h.matchRefined)
	mux.HandleFunc("/api/kb/status", h.kbStatus)
	mux.HandleFunc("/api/kb/refresh", h.kbRefresh)
	mux.HandleFunc("/api/health", h.health)
	mux.HandleFunc("/metrics", h.metrics)

	srv := &http.Server{
		Addr:         cfg.APIBind,
		Handler:      withCORS(withRecover(mux)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return &Server{httpServer: srv}
}

// Start boots the API server asynchronously.
func (s *Server) Start() {
	go func() {
		logger.Info("API 服务监听 %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API 服务异常退出: %v", err)
		}
	}()
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	snapshot := models.HealthSnapshot{}
	if h.sys != nil {
		snapshot = h.sys.Snapshot()
	}
	status := models.KBStatus{}
	if h.svc != nil {
		status = h.svc.Status(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"system": snapshot,
		"kb":     status,
	})
}

func (h *handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(metrics.Global().RenderPrometheus()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRecover 把任何未预期的内部错误转换为结构化失败响应
// 调用方只会看到 ok:false 而不是连接被异常中断
func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("请求处理发生未预期错误: %v (%s %s)", rec, r.Method, r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, map[string]any{
					"ok":    false,
					"error": "internal error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
