package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "metrolog/internal/errors"
	mw "metrolog/internal/middleware"
	"metrolog/internal/registry"
	"metrolog/internal/services"
	api "metrolog/pkg/contracts/api/v1"
	"metrolog/pkg/contracts/domain"
)

// RegistryHandler handles dimension registry requests and registry snapshots
type RegistryHandler struct {
	service      AnalysisServiceInterface
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRegistryHandler creates a new registry handler
func NewRegistryHandler(service AnalysisServiceInterface, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RegistryHandler {
	return &RegistryHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "registry_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the session independent registry routes
func (h *RegistryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/schema", h.GetSchema)
	r.Get("/catalog", h.GetCatalog)
	r.Get("/snapshots", h.ListSnapshots)
	return r
}

// SessionRoutes registers the registry routes of one session
func (h *RegistryHandler) SessionRoutes(r chi.Router) {
	jsonOnly := mw.ContentTypeValidator(h.errorHandler, "application/json")

	r.Route("/registry", func(r chi.Router) {
		r.Get("/", h.ListProfiles)
		r.Get("/export.csv", h.Export(services.RegistryFormatCSV))
		r.Get("/export.json", h.Export(services.RegistryFormatJSON))
		r.With(jsonOnly).Post("/import", h.Import)

		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", h.ListSnapshots)
			r.With(jsonOnly).Post("/", h.SaveSnapshot)
			r.With(jsonOnly).Post("/{key}/restore", h.RestoreSnapshot)
		})

		r.With(jsonOnly).Patch("/{name}", h.UpdateProfile)
		r.With(jsonOnly).Put("/{name}/angular", h.SetAngular)
		r.Get("/{name}/slots", h.AvailableSlots)
	})
}

// GetSchema handles GET /api/registry/schema
func (h *RegistryHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := registry.DocumentSchema()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(schema)
}

// GetCatalog handles GET /api/registry/catalog
func (h *RegistryHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := registry.Catalog()
	respondList(w, r, catalog, len(catalog))
}

// ListProfiles handles GET /api/sessions/{id}/registry
func (h *RegistryHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.Profiles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondList(w, r, profiles, len(profiles))
}

// UpdateProfile handles PATCH /api/sessions/{id}/registry/{name}
func (h *RegistryHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileUpdateRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	update := registry.ProfileUpdate{
		GPSTags:       req.GPSTags,
		Position:      req.Position,
		ClearPosition: req.ClearPosition,
	}
	if req.Type != nil {
		t, err := domain.ParseFunctionalType(*req.Type)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("functional_type", err.Error()))
			return
		}
		update.Type = &t
	}

	profile, err := h.service.UpdateProfile(r.Context(), chi.URLParam(r, "id"), pathParam(r, "name"), update)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, profile)
}

// SetAngular handles PUT /api/sessions/{id}/registry/{name}/angular
func (h *RegistryHandler) SetAngular(w http.ResponseWriter, r *http.Request) {
	var req api.AngularRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	in := registry.AngularInput{Slot: req.Slot, Degrees: req.Degrees, Clear: req.Clear}
	profile, err := h.service.SetAngular(r.Context(), chi.URLParam(r, "id"), pathParam(r, "name"), in)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, profile)
}

// AvailableSlots handles GET /api/sessions/{id}/registry/{name}/slots
func (h *RegistryHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.service.AvailableSlots(r.Context(), chi.URLParam(r, "id"), pathParam(r, "name"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondList(w, r, slots, len(slots))
}

// Export returns a handler downloading the session registry in format
func (h *RegistryHandler) Export(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := h.service.ExportRegistry(r.Context(), chi.URLParam(r, "id"), format, &buf); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		contentType := "application/json"
		if format == services.RegistryFormatCSV {
			contentType = "text/csv; charset=utf-8"
		}
		attachment(w, contentType, "registre_cotes."+format)
		_, _ = buf.WriteTo(w)
	}
}

// Import handles POST /api/sessions/{id}/registry/import?mode=merge|replace.
// The body is a registry JSON document.
func (h *RegistryHandler) Import(w http.ResponseWriter, r *http.Request) {
	query := api.ImportQuery{Mode: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode")))}
	if err := h.validator.Struct(query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	mode, err := registry.ParseImportMode(query.Mode)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("mode", err.Error()))
		return
	}

	result, err := h.service.ImportRegistry(r.Context(), chi.URLParam(r, "id"), r.Body, mode)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

// ListSnapshots handles GET /api/registry/snapshots and its session alias
func (h *RegistryHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := h.service.Snapshots(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondList(w, r, infos, len(infos))
}

// SaveSnapshot handles POST /api/sessions/{id}/registry/snapshots
func (h *RegistryHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req api.SnapshotRequest
	if r.ContentLength != 0 {
		if err := h.validator.DecodeJSON(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	info, err := h.service.SaveSnapshot(r.Context(), chi.URLParam(r, "id"), req.Label)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, info)
}

// RestoreSnapshot handles POST /api/sessions/{id}/registry/snapshots/{key}/restore
func (h *RegistryHandler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	var req api.RestoreRequest
	if r.ContentLength != 0 {
		if err := h.validator.DecodeJSON(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}
	mode, err := registry.ParseImportMode(req.Mode)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("mode", err.Error()))
		return
	}

	result, err := h.service.RestoreSnapshot(r.Context(), chi.URLParam(r, "id"), pathParam(r, "key"), mode)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}
