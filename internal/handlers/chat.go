package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/LukasGX/Untis-App-API/internal/chat"
	"github.com/LukasGX/Untis-App-API/internal/middleware"
	"github.com/LukasGX/Untis-App-API/internal/validate"
)

type ChatHandler struct {
	Chat         *chat.Service
	Validator    *validate.Validator
	HistoryLimit int
}

type SendMessagePayload struct {
	School   string `json:"school" validate:"required"`
	Username string `json:"username" validate:"required"`
	Message  string `json:"message"`
}

// SchoolPayload carries the school of form or JSON encoded lookups.
type SchoolPayload struct {
	School string `json:"school" validate:"required"`
}

type banEntry struct {
	ID       int    `json:"id"`
	School   string `json:"school"`
	Username string `json:"username"`
	Active   bool   `json:"active"`
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var payload SendMessagePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, err, "", "")
		return
	}
	if err := h.Validator.Struct(payload); err != nil {
		writeError(w, r, err, "", "")
		return
	}

	msg, err := h.Chat.Send(r.Context(), payload.School, payload.Username, payload.Message)
	if err != nil {
		writeError(w, r, err, "", "")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, map[string]interface{}{
		"message": "Message sent",
		"id":      msg.ID,
	})
}

// readSchool accepts the school as a form field, the way the original
// clients send it, or as a JSON body.
func (h *ChatHandler) readSchool(r *http.Request) (string, error) {
	var payload SchoolPayload
	if isJSON(r) {
		if err := decodeJSON(r, &payload); err != nil {
			return "", err
		}
	} else {
		payload.School = r.FormValue("school")
	}
	if err := h.Validator.Struct(payload); err != nil {
		return "", err
	}
	return payload.School, nil
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	school, err := h.readSchool(r)
	if err != nil {
		writeError(w, r, err, "", "")
		return
	}

	messages, err := h.Chat.ListMessages(r.Context(), school, h.HistoryLimit)
	if err != nil {
		writeError(w, r, err, "", "")
		return
	}
	for i := range messages {
		messages[i].School = ""
	}
	middleware.JSONResponse(w, http.StatusOK, messages)
}

func (h *ChatHandler) GetBans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.Chat.ListBans(r.Context())
	if err != nil {
		writeError(w, r, err, "", "")
		return
	}
	out := make([]banEntry, 0, len(bans))
	for _, b := range bans {
		out = append(out, banEntry{ID: b.ID, School: b.School, Username: b.Username, Active: b.Active})
	}
	middleware.JSONResponse(w, http.StatusOK, out)
}

func (h *ChatHandler) CheckBan(w http.ResponseWriter, r *http.Request) {
	school, err := h.readSchool(r)
	if err != nil {
		writeError(w, r, err, "", "")
		return
	}

	status, err := h.Chat.CheckBan(r.Context(), school, mux.Vars(r)["username"])
	if err != nil {
		writeError(w, r, err, "", "")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, status)
}
