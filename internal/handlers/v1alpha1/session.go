package v1alpha1

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/unique-Sachin/CounselPro-AI/api/v1alpha1"
	"github.com/unique-Sachin/CounselPro-AI/internal/handlers/v1alpha1/mappers"
)

// (POST /api/v1/sessions)
func (h *ServiceHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var form v1alpha1.SessionCreate
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		renderMessage(w, r, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	if err := h.sessionV.Struct(form); err != nil {
		renderMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, trigger, err := h.sessionSrv.CreateSession(r.Context(), mappers.SessionFormApi(form))
	if err != nil {
		renderError(w, r, err)
		return
	}

	renderJSON(w, r, http.StatusCreated, mappers.SessionToApi(*session, trigger))
}

// (GET /api/v1/sessions/{id})
func (h *ServiceHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		renderMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessionSrv.GetSession(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	renderJSON(w, r, http.StatusOK, mappers.SessionToApi(*session, nil))
}
