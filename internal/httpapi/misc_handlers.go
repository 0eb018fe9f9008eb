package httpapi

import (
	"context"
	"net/http"
	"time"

	"fastpay-backend/internal/domain"

	"go.uber.org/zap"
)

// CompaniesRepo lists the white-label brands.
type CompaniesRepo interface {
	List(ctx context.Context) ([]domain.Company, error)
}

// CompaniesHandler serves the company list.
type CompaniesHandler struct {
	companies CompaniesRepo
	logger    *zap.Logger
}

func NewCompaniesHandler(companies CompaniesRepo, logger *zap.Logger) *CompaniesHandler {
	return &CompaniesHandler{companies: companies, logger: logger}
}

func (h *CompaniesHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.logger.Error("list companies failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to list companies"))
		return
	}
	items := make([]map[string]any, 0, len(companies))
	for i := range companies {
		items = append(items, companies[i].ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// Pinger is a health-checkable dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports dependency health.
type HealthHandler struct {
	deps   map[string]Pinger
	logger *zap.Logger
}

func NewHealthHandler(deps map[string]Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, logger: logger}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := true
	checks := map[string]string{}
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			healthy = false
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": healthy,
		"checks":  checks,
		"time":    time.Now().UTC(),
	})
}
