package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "metrolog/internal/errors"
	"metrolog/internal/exporter"
	mw "metrolog/internal/middleware"
	"metrolog/internal/stats"
	api "metrolog/pkg/contracts/api/v1"
)

// uploadMemory is the part of a multipart upload kept in memory; the rest
// spills to temporary files.
const uploadMemory = 8 << 20

// SessionHandler handles session lifecycle, measurement and statistics requests
type SessionHandler struct {
	service      AnalysisServiceInterface
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service AnalysisServiceInterface, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "session_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the session routes. Each extra function registers more
// routes under /{id}.
func (h *SessionHandler) Routes(sessionRoutes ...func(r chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListSessions)
	r.Post("/", h.CreateSession)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)

		r.Post("/measurements", h.Ingest)
		r.Post("/measurements/upload", h.Upload)
		r.Get("/measurements", h.GetMeasurements)

		r.Get("/stats", h.GetStats)
		r.Get("/stats.csv", h.ExportStats)

		for _, register := range sessionRoutes {
			register(r)
		}
	})

	return r
}

// ListSessions handles GET /api/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.service.Sessions(r.Context())
	respondList(w, r, sessions, len(sessions))
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.CreateSession(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "session created",
		slog.String("session_id", info.ID),
		slog.String("request_id", middleware.GetReqID(r.Context())))

	w.Header().Set("Location", "/api/sessions/"+info.ID)
	respond(w, r, http.StatusCreated, info)
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, info)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ingest handles POST /api/sessions/{id}/measurements. The body is either
// the pasted text itself or a JSON {"text": ...} object.
func (h *SessionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var text string
	if mw.IsJSON(r) {
		var req api.IngestRequest
		if err := h.validator.DecodeJSON(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		text = req.Text
	} else {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			h.errorHandler.HandleError(w, r, readError(err))
			return
		}
		text = string(body)
	}

	result, err := h.service.Ingest(r.Context(), chi.URLParam(r, "id"), text)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

// Upload handles POST /api/sessions/{id}/measurements/upload with a
// multipart "file" field.
func (h *SessionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		h.errorHandler.HandleError(w, r, readError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "a file field is required"))
		return
	}
	defer file.Close()

	h.logger.InfoContext(r.Context(), "measurement file received",
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size))

	result, err := h.service.IngestFile(r.Context(), chi.URLParam(r, "id"), header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

// GetMeasurements handles GET /api/sessions/{id}/measurements?of=&format=
func (h *SessionHandler) GetMeasurements(w http.ResponseWriter, r *http.Request) {
	var query api.MeasurementsQuery
	query.OF = mw.QueryOptional(r, "of")
	query.Format = strings.ToLower(r.URL.Query().Get("format"))
	if err := h.validator.Struct(query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, err := exporter.ParseFormat(query.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	id := chi.URLParam(r, "id")
	table, err := h.service.Table(r.Context(), id, query.OF)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if format == exporter.FormatJSON {
		respondList(w, r, table, table.Len())
		return
	}

	// Encode before writing headers so a failure still yields a problem response.
	var buf bytes.Buffer
	switch format {
	case exporter.FormatCSV:
		err = exporter.WriteMeasurementsCSV(&buf, table.Rows, table.HasPosition)
	case exporter.FormatTSV:
		err = exporter.WriteMeasurementsTSV(&buf, table.Rows, table.HasPosition)
	case exporter.FormatArrow:
		err = exporter.WriteTableArrow(&buf, table)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	attachment(w, format.ContentType(), fmt.Sprintf("measurements.%s", format.Extension()))
	_, _ = buf.WriteTo(w)
}

// statsRequest reads the stats query parameters into service options.
func (h *SessionHandler) statsRequest(r *http.Request) (stats.Options, bool, error) {
	var query api.StatsQuery
	query.OF = mw.QueryOptional(r, "of")

	byOrder, err := mw.QueryBool(r, "by_order")
	if err != nil {
		return stats.Options{}, false, err
	}
	query.ByOrder = byOrder
	query.Bounds = strings.ToLower(strings.TrimSpace(r.URL.Query().Get("bounds")))
	if err := h.validator.Struct(query); err != nil {
		return stats.Options{}, false, err
	}

	bounds, err := stats.ParseBoundsPolicy(query.Bounds)
	if err != nil {
		return stats.Options{}, false, apierrors.ErrValidation("bounds", err.Error())
	}
	return stats.Options{Order: query.OF, Bounds: bounds}, query.ByOrder, nil
}

// GetStats handles GET /api/sessions/{id}/stats?of=&by_order=&bounds=
func (h *SessionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	opts, byOrder, err := h.statsRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	summaries, err := h.service.Summaries(r.Context(), chi.URLParam(r, "id"), opts, byOrder)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respondList(w, r, summaries, len(summaries))
}

// ExportStats handles GET /api/sessions/{id}/stats.csv
func (h *SessionHandler) ExportStats(w http.ResponseWriter, r *http.Request) {
	opts, byOrder, err := h.statsRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	summaries, err := h.service.Summaries(r.Context(), chi.URLParam(r, "id"), opts, byOrder)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.WriteStatsCSV(&buf, summaries); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	attachment(w, exporter.FormatCSV.ContentType(), "statistics.csv")
	_, _ = buf.WriteTo(w)
}

// readError maps body read failures, chiefly the body size limit.
func readError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apierrors.ErrPayloadTooLarge
	}
	return apierrors.InvalidRequestWithError(err)
}
