package v1alpha1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/api/v1alpha1"
	"github.com/unique-Sachin/CounselPro-AI/internal/handlers/validator"
	"github.com/unique-Sachin/CounselPro-AI/internal/service"
	"github.com/unique-Sachin/CounselPro-AI/pkg/requestid"
)

type ServiceHandler struct {
	sessionSrv  *service.SessionService
	analysisSrv *service.AnalysisService
	sessionV    *validator.Validator
	analysisV   *validator.Validator
}

func NewServiceHandler(sessionService *service.SessionService, analysisService *service.AnalysisService) *ServiceHandler {
	return &ServiceHandler{
		sessionSrv:  sessionService,
		analysisSrv: analysisService,
		sessionV:    validator.NewSessionValidator(),
		analysisV:   validator.NewAnalysisValidator(),
	}
}

// Register mounts the /api/v1 routes on the router.
func (h *ServiceHandler) Register(router chi.Router) {
	router.Post("/api/v1/sessions", h.CreateSession)
	router.Get("/api/v1/sessions/{id}", h.GetSession)
	router.Post("/api/v1/sessions/{id}/analysis", h.TriggerAnalysis)
	router.Get("/api/v1/sessions/{id}/analysis", h.GetAnalysisStatus)
	router.Get("/api/v1/sessions/{id}/transcript", h.GetTranscript)
	router.Get("/api/v1/analysis", h.ListAnalysisStatuses)
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func renderJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func renderMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	renderJSON(w, r, status, v1alpha1.Error{Message: message})
}

// renderError maps service errors to status codes. Unknown errors are logged and hidden behind a 500.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound    *service.ErrResourceNotFound
		invalid     *service.ErrInvalidRequest
		unavailable *service.ErrAnalysisUnavailable
	)

	switch {
	case errors.As(err, &notFound):
		renderMessage(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &invalid):
		renderMessage(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &unavailable):
		w.Header().Set("Retry-After", "30")
		renderMessage(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		requestid.Logger(r.Context(), "handler").Errorw("request failed", "path", r.URL.Path, "error", err)
		renderMessage(w, r, http.StatusInternalServerError, "internal error")
	}
}
