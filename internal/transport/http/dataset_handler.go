package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	apierrors "plotpilot/internal/errors"
	mw "plotpilot/internal/middleware"
	"plotpilot/internal/services"
	"plotpilot/pkg/contracts/domain"
)

type contextKey string

const datasetIDKey contextKey = "dataset_id"

// maxPreviewRows bounds the ?preview parameter of the summary endpoint
const maxPreviewRows = 1000

// DatasetHandler serves the dataset API under /api/datasets
type DatasetHandler struct {
	service        DatasetServiceInterface
	validation     *mw.ValidationMiddleware
	query          *mw.QueryParamValidator
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewDatasetHandler creates a dataset handler. maxUploadBytes bounds the multipart body.
func NewDatasetHandler(service DatasetServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		validation:     mw.NewValidationMiddleware(logger, errorHandler),
		query:          mw.NewQueryParamValidator(logger, errorHandler),
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "dataset_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.Upload)

	r.Route("/{datasetID}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Use(h.validation.ValidateRequest)

		r.Get("/", h.GetDataset)
		r.Delete("/", h.DeleteDataset)
		r.Post("/revert", h.Revert)
		r.Get("/summary", h.Summary)
		r.Get("/export", h.Export)

		r.Get("/charts", h.ChartCatalog)
		r.Get("/charts/{kind}/options", h.ChartOptions)
		r.Delete("/charts/selection", h.ClearChart)

		r.Group(func(r chi.Router) {
			r.Use(h.validation.RequireContentType("application/json"))
			r.Post("/clean", h.Clean)
			r.Put("/active", h.SelectTable)
			r.Post("/charts", h.GenerateChart)
			r.Put("/charts/selection", h.SelectChart)
		})
	})

	return r
}

// DatasetCtx rejects malformed dataset IDs and stores the ID in the context
func (h *DatasetHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "datasetID")
		if _, err := uuid.Parse(id); err != nil {
			h.errorHandler.HandleError(w, r, datasetNotFound(id))
			return
		}
		ctx := context.WithValue(r.Context(), datasetIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func datasetID(r *http.Request) string {
	if id, ok := r.Context().Value(datasetIDKey).(string); ok {
		return id
	}
	return chi.URLParam(r, "datasetID")
}

// Upload handles POST /api/datasets (multipart field "file")
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.errorHandler.HandleError(w, r, err)
		case errors.Is(err, http.ErrMissingFile):
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "file is required"))
		default:
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		}
		return
	}
	defer file.Close()

	h.logger.InfoContext(ctx, "dataset upload received",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size))

	view, err := h.service.Upload(ctx, header.Filename, file)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/datasets/"+view.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, view)
}

// GetDataset handles GET /api/datasets/{datasetID}
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), datasetID(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// DeleteDataset handles DELETE /api/datasets/{datasetID}
func (h *DatasetHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), datasetID(r)); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clean handles POST /api/datasets/{datasetID}/clean
func (h *DatasetHandler) Clean(w http.ResponseWriter, r *http.Request) {
	req := &CleanRequest{}
	if err := bindOptional(r, req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.Clean(r.Context(), datasetID(r), req.Config(h.service.DefaultCleaningConfig()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// Revert handles POST /api/datasets/{datasetID}/revert
func (h *DatasetHandler) Revert(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Revert(r.Context(), datasetID(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// SelectTable handles PUT /api/datasets/{datasetID}/active
func (h *DatasetHandler) SelectTable(w http.ResponseWriter, r *http.Request) {
	req := &SelectTableRequest{}
	if err := render.Bind(r, req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.SelectTable(r.Context(), datasetID(r), req.Table == TableCleaned)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// Summary handles GET /api/datasets/{datasetID}/summary?preview=N
func (h *DatasetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	preview, ok := h.query.ValidateInt(w, r, "preview", 1, maxPreviewRows, 0)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), datasetID(r), preview)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// ChartCatalog handles GET /api/datasets/{datasetID}/charts
func (h *DatasetHandler) ChartCatalog(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Get(r.Context(), datasetID(r)); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, h.service.ChartCatalog())
}

// ChartOptions handles GET /api/datasets/{datasetID}/charts/{kind}/options
func (h *DatasetHandler) ChartOptions(w http.ResponseWriter, r *http.Request) {
	kind := domain.ChartKind(chi.URLParam(r, "kind"))
	options, err := h.service.ChartOptions(r.Context(), datasetID(r), kind)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"kind":    kind,
		"options": options,
	})
}

// SelectChart handles PUT /api/datasets/{datasetID}/charts/selection
func (h *DatasetHandler) SelectChart(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bindChart(w, r)
	if !ok {
		return
	}
	if req.Kind == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("kind", "kind is required"))
		return
	}

	view, err := h.service.SelectChart(r.Context(), datasetID(r), req.Spec())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// ClearChart handles DELETE /api/datasets/{datasetID}/charts/selection
func (h *DatasetHandler) ClearChart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ClearChart(r.Context(), datasetID(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// GenerateChart handles POST /api/datasets/{datasetID}/charts. An empty
// body renders the stored selection.
func (h *DatasetHandler) GenerateChart(w http.ResponseWriter, r *http.Request) {
	req, ok := h.bindChart(w, r)
	if !ok {
		return
	}

	result, err := h.service.GenerateChart(r.Context(), datasetID(r), req.Spec())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *DatasetHandler) bindChart(w http.ResponseWriter, r *http.Request) (*ChartRequest, bool) {
	req := &ChartRequest{}
	if err := bindOptional(r, req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return nil, false
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return req, true
}

// Export handles GET /api/datasets/{datasetID}/export?format=csv|xlsx. The
// file is buffered so that a failure still produces a problem response.
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	result, err := h.service.Export(r.Context(), datasetID(r), r.URL.Query().Get("format"), &buf)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export download interrupted",
			slog.String("dataset_id", datasetID(r)),
			slog.String("error", err.Error()))
	}
}

// handleServiceError maps service errors to problem responses
func (h *DatasetHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr error
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		apiErr = datasetNotFound(datasetID(r))
	case errors.Is(err, services.ErrNoCleanedTable):
		apiErr = apierrors.NewWithDetails(http.StatusConflict, apierrors.CodeConflict, "The dataset has not been cleaned", err.Error())
	case errors.Is(err, services.ErrNoChartSelected):
		apiErr = apierrors.ErrValidation("kind", "kind is required when no chart is selected")
	case errors.Is(err, services.ErrInvalidInput):
		apiErr = apierrors.InvalidDataError(err)
	case errors.Is(err, services.ErrUnsupportedExport):
		apiErr = apierrors.NewWithDetails(http.StatusUnsupportedMediaType, apierrors.CodeUnsupportedFormat, "Unsupported export format", err.Error())
	case errors.Is(err, services.ErrTooManySessions):
		apiErr = apierrors.NewWithDetails(http.StatusServiceUnavailable, apierrors.CodeUnavailable, "Too many open datasets, retry later", err.Error())
	default:
		apiErr = err
	}
	h.errorHandler.HandleError(w, r, apiErr)
}

func datasetNotFound(id string) *apierrors.APIError {
	return apierrors.NewWithDetails(http.StatusNotFound, apierrors.CodeDatasetNotFound, "Dataset not found or expired", map[string]string{"dataset_id": id})
}
