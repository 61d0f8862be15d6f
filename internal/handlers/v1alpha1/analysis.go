package v1alpha1

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/api/v1alpha1"
	"github.com/unique-Sachin/CounselPro-AI/internal/handlers/v1alpha1/mappers"
)

const maxListedSessions = 100

// (POST /api/v1/sessions/{id}/analysis)
func (h *ServiceHandler) TriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		renderMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req v1alpha1.TriggerRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		renderMessage(w, r, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	if err := h.analysisV.Struct(req); err != nil {
		renderMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.analysisSrv.Trigger(r.Context(), id, mappers.RecordingRefApi(&req))
	if err != nil {
		renderError(w, r, err)
		return
	}

	renderJSON(w, r, http.StatusAccepted, mappers.TriggerResultToApi(result))
}

// (GET /api/v1/sessions/{id}/analysis)
func (h *ServiceHandler) GetAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		renderMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.analysisSrv.GetStatus(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	renderJSON(w, r, http.StatusOK, mappers.AnalysisStatusToApi(*status))
}

// (GET /api/v1/analysis)
func (h *ServiceHandler) ListAnalysisStatuses(w http.ResponseWriter, r *http.Request) {
	ids, err := parseSessionIDs(r.URL.Query()["sessionIds"])
	if err != nil {
		renderMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	statuses, err := h.analysisSrv.ListStatuses(r.Context(), ids)
	if err != nil {
		renderError(w, r, err)
		return
	}

	renderJSON(w, r, http.StatusOK, mappers.AnalysisStatusListToApi(statuses))
}

// (GET /api/v1/sessions/{id}/transcript)
func (h *ServiceHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		renderMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	transcript, err := h.analysisSrv.GetTranscript(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	renderJSON(w, r, http.StatusOK, mappers.TranscriptToApi(*transcript))
}

// parseSessionIDs accepts both comma separated and repeated values. Duplicates are dropped.
func parseSessionIDs(values []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	ids := []uuid.UUID{}
	for _, v := range values {
		for _, raw := range strings.Split(v, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid session id %q", raw)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return nil, errors.New("sessionIds is required")
	}
	if len(ids) > maxListedSessions {
		return nil, fmt.Errorf("at most %d session ids can be requested", maxListedSessions)
	}
	return ids, nil
}
