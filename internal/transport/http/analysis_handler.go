package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"metrolog/internal/compare"
	apierrors "metrolog/internal/errors"
	mw "metrolog/internal/middleware"
	api "metrolog/pkg/contracts/api/v1"
)

// AnalysisHandler handles angular, positional, group and comparison requests
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// SessionRoutes registers the analysis routes of one session
func (h *AnalysisHandler) SessionRoutes(r chi.Router) {
	r.Get("/angular", h.GetAngular)
	r.Get("/angular/deviations", h.GetDeviations)
	r.Get("/positions", h.GetPositional)

	jsonOnly := mw.ContentTypeValidator(h.errorHandler, "application/json")

	r.Route("/groups", func(r chi.Router) {
		r.Get("/", h.ListGroups)
		r.With(jsonOnly).Post("/", h.Link)
		r.Delete("/", h.ResetGroups)
		r.Get("/{gid}/radar", h.GetRadar)
	})

	r.With(jsonOnly).Post("/compare", h.Compare)
}

// GetAngular handles GET /api/sessions/{id}/angular?of=
func (h *AnalysisHandler) GetAngular(w http.ResponseWriter, r *http.Request) {
	agg, err := h.service.Angular(r.Context(), chi.URLParam(r, "id"), mw.QueryOptional(r, "of"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, agg)
}

func (h *AnalysisHandler) angleQuery(r *http.Request) (api.RadarQuery, error) {
	angle, err := mw.QueryFloat(r, "angle", 0, 360, 0)
	if err != nil {
		return api.RadarQuery{}, err
	}
	query := api.RadarQuery{Angle: angle, OF: mw.QueryOptional(r, "of")}
	return query, h.validator.Struct(query)
}

// GetDeviations handles GET /api/sessions/{id}/angular/deviations?angle=&of=
func (h *AnalysisHandler) GetDeviations(w http.ResponseWriter, r *http.Request) {
	query, err := h.angleQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	points, err := h.service.Deviations(r.Context(), chi.URLParam(r, "id"), query.Angle, query.OF)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondList(w, r, points, len(points))
}

// GetPositional handles GET /api/sessions/{id}/positions?of=
func (h *AnalysisHandler) GetPositional(w http.ResponseWriter, r *http.Request) {
	series, err := h.service.Positional(r.Context(), chi.URLParam(r, "id"), mw.QueryOptional(r, "of"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondList(w, r, series, len(series))
}

// ListGroups handles GET /api/sessions/{id}/groups
func (h *AnalysisHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.Groups(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondList(w, r, groups, len(groups))
}

// Link handles POST /api/sessions/{id}/groups
func (h *AnalysisHandler) Link(w http.ResponseWriter, r *http.Request) {
	var req api.LinkRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	group, err := h.service.Link(r.Context(), chi.URLParam(r, "id"), req.Members)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, group)
}

// ResetGroups handles DELETE /api/sessions/{id}/groups
func (h *AnalysisHandler) ResetGroups(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetGroups(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRadar handles GET /api/sessions/{id}/groups/{gid}/radar?angle=&of=
func (h *AnalysisHandler) GetRadar(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.Atoi(chi.URLParam(r, "gid"))
	if err != nil || groupID < 1 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("gid", "group id must be a positive integer"))
		return
	}
	query, err := h.angleQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	radar, err := h.service.GroupRadar(r.Context(), chi.URLParam(r, "id"), groupID, query.Angle, query.OF)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, radar)
}

// Compare handles POST /api/sessions/{id}/compare
func (h *AnalysisHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req api.CompareRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	opts := compare.Options{Prefix: req.Prefix, LabelA: req.LabelA, LabelB: req.LabelB}
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}

	result, err := h.service.Compare(r.Context(), chi.URLParam(r, "id"), req.BatchA, req.BatchB, opts)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "batches compared",
		slog.String("session_id", chi.URLParam(r, "id")),
		slog.Int("dimensions", len(result.Summaries)),
		slog.Int("flagged", len(compare.Flagged(result))))

	respond(w, r, http.StatusOK, result)
}
