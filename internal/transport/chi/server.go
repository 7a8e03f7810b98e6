// Package chi is the HTTP transport: routing, request decoding and the
// mapping of domain errors to status codes.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/domain"
	adminuc "github.com/kailas-cloud/ragstore/internal/usecase/admin"
	healthuc "github.com/kailas-cloud/ragstore/internal/usecase/health"
)

const maxTextsPerRequest = 100

type embeddingService interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error)
}

type searchService interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
}

type adminService interface {
	PurgeTenant(ctx context.Context, tenantID string) (adminuc.PurgeReport, error)
	PurgeTenantModel(ctx context.Context, tenantID, model string) (adminuc.PurgeReport, error)
	PurgeTenantDocument(ctx context.Context, tenantID, documentID string) (adminuc.PurgeReport, error)
	InvalidateResponseCache(ctx context.Context, tenantID, pattern string) (int, error)
	Stats(ctx context.Context) (adminuc.Stats, error)
}

type modelCatalog interface {
	Models() []domain.ModelDescriptor
	DefaultName() string
}

type healthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the embedding, search and admin use cases over HTTP.
type Server struct {
	embeddings    embeddingService
	search        searchService
	admin         adminService
	models        modelCatalog
	health        healthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	embeddings embeddingService,
	search searchService,
	admin adminService,
	models modelCatalog,
	health healthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		embeddings: embeddings,
		search:     search,
		admin:      admin,
		models:     models,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusConflict, codeVectorDimMismatch),
		sentinelHandler(domain.ErrCircuitOpen, http.StatusServiceUnavailable, codeServiceUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderErr),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/embeddings/generate", s.GenerateEmbeddings)
		r.Post("/embeddings/search", s.SearchEmbeddings)
		r.Get("/embeddings/models", s.ListModels)

		r.Delete("/vectors/tenants/{tenantId}", s.PurgeTenant)
		r.Delete("/vectors/tenants/{tenantId}/models/{model}", s.PurgeTenantModel)
		r.Delete("/vectors/tenants/{tenantId}/documents/{documentId}", s.PurgeTenantDocument)

		r.Delete("/cache/tenants/{tenantId}", s.InvalidateCache)

		r.Get("/stats", s.GetStats)
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// GenerateEmbeddings handles POST /api/v1/embeddings/generate.
func (s *Server) GenerateEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Texts) > maxTextsPerRequest {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"texts count must not exceed "+strconv.Itoa(maxTextsPerRequest))
		return
	}

	resp, err := s.embeddings.Generate(r.Context(), domain.GenerateRequest{
		TenantID:   req.TenantID,
		DocumentID: req.DocumentID,
		Texts:      req.Texts,
		ChunkIDs:   req.ChunkIDs,
		ModelName:  req.ModelName,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if resp.Status != domain.RequestSuccess {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, generateToDTO(resp, req.IncludeEmbeddings))
}

// SearchEmbeddings handles POST /api/v1/embeddings/search.
func (s *Server) SearchEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListModels handles GET /api/v1/embeddings/models.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	descriptors := s.models.Models()
	items := make([]modelItem, len(descriptors))
	for i, d := range descriptors {
		items[i] = modelItem{Name: d.Name, Kind: string(d.Kind), Dimensions: d.Dimensions}
	}

	writeJSON(w, http.StatusOK, modelsResponse{
		Models:  items,
		Default: s.models.DefaultName(),
	})
}

// PurgeTenant handles DELETE /api/v1/vectors/tenants/{tenantId}.
func (s *Server) PurgeTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "tenant id is required")
		return
	}

	report, err := s.admin.PurgeTenant(r.Context(), tenantID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// PurgeTenantModel handles DELETE /api/v1/vectors/tenants/{tenantId}/models/{model}.
func (s *Server) PurgeTenantModel(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	model := chi.URLParam(r, "model")
	if tenantID == "" || model == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "tenant id and model are required")
		return
	}

	report, err := s.admin.PurgeTenantModel(r.Context(), tenantID, model)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// PurgeTenantDocument handles DELETE /api/v1/vectors/tenants/{tenantId}/documents/{documentId}.
func (s *Server) PurgeTenantDocument(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	documentID := chi.URLParam(r, "documentId")
	if tenantID == "" || documentID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "tenant id and document id are required")
		return
	}

	report, err := s.admin.PurgeTenantDocument(r.Context(), tenantID, documentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// InvalidateCache handles DELETE /api/v1/cache/tenants/{tenantId}.
// An optional pattern query parameter narrows the invalidation.
func (s *Server) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantId")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "tenant id is required")
		return
	}

	removed, err := s.admin.InvalidateResponseCache(r.Context(), tenantID, r.URL.Query().Get("pattern"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, invalidateCacheResponse{Invalidated: removed})
}

// GetStats handles GET /api/v1/stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.admin.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrCircuitOpen,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
