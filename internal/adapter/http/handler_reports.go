package http

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/source"
	"github.com/devlens/devlens/internal/usecase"
	"github.com/devlens/devlens/pkg/apperror"
)

// reportFunc is the shared shape of every report operation on the service.
type reportFunc func(ctx context.Context, tenant string, opts usecase.QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, usecase.ScopeStatus, error)

// reportEnvelope wraps the paginated payload with request-scope metadata.
type reportEnvelope struct {
	domain.PaginatedResponse
	Metadata *usecase.ScopeStatus `json:"_metadata,omitempty"`
}

// ReportsHandler exposes the aggregation endpoints.
type ReportsHandler struct {
	service *usecase.ReportService
	logger  *logrus.Logger
}

// NewReportsHandler creates the report endpoint handler.
func NewReportsHandler(service *usecase.ReportService, logger *logrus.Logger) *ReportsHandler {
	return &ReportsHandler{service: service, logger: logger}
}

// RegisterRoutes mounts every report endpoint on the given router. All
// endpoints are POST: the filter request travels in the body.
func (h *ReportsHandler) RegisterRoutes(router *mux.Router) {
	routes := map[string]reportFunc{
		"/job_runs/aggregate":         h.service.JobRunsAggregate,
		"/job_runs/values":            h.service.JobRunsValues,
		"/job_runs/change_volume":     h.service.JobChangeVolume,
		"/issues/aggregate":           h.service.IssuesAggregate,
		"/issues/list":                h.service.IssuesList,
		"/issues/values":              h.service.IssuesValues,
		"/issues/custom_field_values": h.service.IssueCustomFieldValues,
		"/issues/sprint_metrics":      h.service.SprintMetrics,
		"/issues/stage_times":         h.service.StageTimes,
		"/commits/aggregate":          h.service.CommitsAggregate,
		"/commits/values":             h.service.CommitsValues,
		"/tickets/aggregate":          h.service.TicketsAggregate,
		"/tickets/values":             h.service.TicketsValues,
	}
	for path, fn := range routes {
		router.HandleFunc(path, h.handle(fn)).Methods(http.MethodPost)
	}
}

func (h *ReportsHandler) handle(fn reportFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := TenantFrom(r.Context())
		if tenant == "" {
			writeUnauthorized(w, "authorization required")
			return
		}

		var req domain.ListRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, apperror.NewBadRequest("invalid request body"))
				return
			}
		}

		opts := usecase.QueryOptions{
			DisableCache: r.URL.Query().Get("there_is_no_cache") == "true",
			ForceSource:  source.ParseOverride(r.URL.Query().Get("force_source")),
		}

		resp, scope, err := fn(r.Context(), tenant, opts, req)
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"tenant": tenant,
				"path":   r.URL.Path,
				"error":  err.Error(),
			}).Warn("report request failed")
			writeError(w, err)
			return
		}

		envelope := reportEnvelope{PaginatedResponse: resp}
		if scope.Applied || scope.Degraded {
			envelope.Metadata = &scope
		}
		writeJSON(w, http.StatusOK, envelope)
	}
}
