package chi

import (
	"context"
	"net/http"
	"net/http/httptest"

	chiRouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/domain"
	adminuc "github.com/kailas-cloud/ragstore/internal/usecase/admin"
	healthuc "github.com/kailas-cloud/ragstore/internal/usecase/health"
)

type mockEmbeddingService struct {
	GenerateFunc func(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error)
}

func (m *mockEmbeddingService) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	return m.GenerateFunc(ctx, req)
}

type mockSearchService struct {
	SearchFunc func(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
}

func (m *mockSearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	return m.SearchFunc(ctx, req)
}

type mockAdminService struct {
	PurgeTenantFunc             func(ctx context.Context, tenantID string) (adminuc.PurgeReport, error)
	PurgeTenantModelFunc        func(ctx context.Context, tenantID, model string) (adminuc.PurgeReport, error)
	PurgeTenantDocumentFunc     func(ctx context.Context, tenantID, documentID string) (adminuc.PurgeReport, error)
	InvalidateResponseCacheFunc func(ctx context.Context, tenantID, pattern string) (int, error)
	StatsFunc                   func(ctx context.Context) (adminuc.Stats, error)
}

func (m *mockAdminService) PurgeTenant(ctx context.Context, tenantID string) (adminuc.PurgeReport, error) {
	return m.PurgeTenantFunc(ctx, tenantID)
}

func (m *mockAdminService) PurgeTenantModel(ctx context.Context, tenantID, model string) (adminuc.PurgeReport, error) {
	return m.PurgeTenantModelFunc(ctx, tenantID, model)
}

func (m *mockAdminService) PurgeTenantDocument(ctx context.Context, tenantID, documentID string) (adminuc.PurgeReport, error) {
	return m.PurgeTenantDocumentFunc(ctx, tenantID, documentID)
}

func (m *mockAdminService) InvalidateResponseCache(ctx context.Context, tenantID, pattern string) (int, error) {
	return m.InvalidateResponseCacheFunc(ctx, tenantID, pattern)
}

func (m *mockAdminService) Stats(ctx context.Context) (adminuc.Stats, error) {
	return m.StatsFunc(ctx)
}

type mockModelCatalog struct {
	ModelsFunc      func() []domain.ModelDescriptor
	DefaultNameFunc func() string
}

func (m *mockModelCatalog) Models() []domain.ModelDescriptor { return m.ModelsFunc() }
func (m *mockModelCatalog) DefaultName() string              { return m.DefaultNameFunc() }

type mockHealthService struct {
	CheckFunc func(ctx context.Context) healthuc.Report
}

func (m *mockHealthService) Check(ctx context.Context) healthuc.Report {
	return m.CheckFunc(ctx)
}

type serverMocks struct {
	embeddings *mockEmbeddingService
	search     *mockSearchService
	admin      *mockAdminService
	models     *mockModelCatalog
	health     *mockHealthService
}

func newTestServer() (http.Handler, *serverMocks) {
	mocks := &serverMocks{
		embeddings: &mockEmbeddingService{},
		search:     &mockSearchService{},
		admin:      &mockAdminService{},
		models:     &mockModelCatalog{},
		health:     &mockHealthService{},
	}

	srv := NewServer(mocks.embeddings, mocks.search, mocks.admin, mocks.models, mocks.health, zap.NewNop())

	r := chiRouter.NewRouter()
	srv.Register(r)
	return r, mocks
}

func doRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
