package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/LukasGX/Untis-App-API/internal/middleware"
	"github.com/LukasGX/Untis-App-API/internal/models"
	"github.com/LukasGX/Untis-App-API/internal/notify"
	"github.com/LukasGX/Untis-App-API/internal/store"
	"github.com/LukasGX/Untis-App-API/internal/validate"
)

type RequestHandler struct {
	Store     store.Store
	Validator *validate.Validator
	Notifier  *notify.Notifier
}

// NewRequestPayload is the body of POST /new_request. Status is accepted for
// compatibility but new requests always start as pending.
type NewRequestPayload struct {
	School   string `json:"school" validate:"required,max=100"`
	Username string `json:"username" validate:"required,max=100"`
	Status   string `json:"status"`
}

type UpdateRequestPayload struct {
	Status string `json:"status"`
}

type ContactPayload struct {
	School       string `json:"school" validate:"required,max=100"`
	Username     string `json:"username" validate:"required,max=100"`
	ContactInfos string `json:"contact_infos" validate:"required"`
}

type ContactLookupPayload struct {
	School   string `json:"school" validate:"required"`
	Username string `json:"username" validate:"required"`
}

func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Store.GetRequestByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeError(w, r, err, "None", "")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, req)
}

func (h *RequestHandler) NewRequest(w http.ResponseWriter, r *http.Request) {
	var payload NewRequestPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "", "")
		return
	}
	if err := h.Validator.Struct(payload); err != nil {
		writeError(w, r, err, "", "")
		return
	}

	req, err := h.Store.CreateRequest(r.Context(), payload.School, payload.Username, models.StatusPending)
	if err != nil {
		writeError(w, r, err, "", "Username already exists")
		return
	}
	h.Notifier.NotifyNewRequest(req)

	middleware.JSONResponse(w, http.StatusCreated, map[string]interface{}{
		"message":  "Request created",
		"id":       req.ID,
		"username": req.Username,
	})
}

func (h *RequestHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	var payload UpdateRequestPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "", "")
		return
	}
	status := models.Status(payload.Status)
	if !status.Valid() {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Status must be 'pending', 'denied' or 'approved'")
		return
	}

	if err := h.Store.UpdateRequestStatus(r.Context(), id, status); err != nil {
		writeError(w, r, err, "Request not found", "")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Request %d updated to '%s'", id, status),
	})
}

func (h *RequestHandler) NewContact(w http.ResponseWriter, r *http.Request) {
	var payload ContactPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "", "")
		return
	}
	if err := h.Validator.Struct(payload); err != nil {
		writeError(w, r, err, "", "")
		return
	}

	contact, err := h.Store.CreateContact(r.Context(), payload.School, payload.Username, payload.ContactInfos)
	if err != nil {
		writeError(w, r, err, "", "Contact already exists")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, contact)
}

func (h *RequestHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	var payload ContactLookupPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "", "")
		return
	}
	if err := h.Validator.Struct(payload); err != nil {
		writeError(w, r, err, "", "")
		return
	}

	contact, err := h.Store.GetContact(r.Context(), payload.School, payload.Username)
	if err != nil {
		writeError(w, r, err, "Contact not found", "")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, contact)
}
