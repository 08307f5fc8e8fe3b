package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/LukasGX/Untis-App-API/internal/chat"
	"github.com/LukasGX/Untis-App-API/internal/middleware"
	"github.com/LukasGX/Untis-App-API/internal/moderation"
	"github.com/LukasGX/Untis-App-API/internal/store"
	"github.com/LukasGX/Untis-App-API/internal/validate"
)

var errBadBody = errors.New("request body must be valid JSON")

var forbiddenMessages = map[moderation.Reason]string{
	moderation.ReasonNotApproved: "User not approved",
	moderation.ReasonBanned:      "User banned from chat",
}

// writeError maps domain and store errors to API responses. notFound is the
// message used for store.ErrNotFound, conflict the one for store.ErrConflict.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound, conflict string) {
	var (
		verr      *validate.Error
		forbidden *chat.ForbiddenError
	)
	switch {
	case errors.Is(err, errBadBody):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &verr):
		middleware.ErrorResponse(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, chat.ErrInvalidLength):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrContentRejected):
		middleware.ErrorResponse(w, http.StatusForbidden, "Message contains disallowed content")
	case errors.As(err, &forbidden):
		middleware.ErrorResponse(w, http.StatusForbidden, forbiddenMessages[forbidden.Reason])
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrConflict):
		middleware.ErrorResponse(w, http.StatusConflict, conflict)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadBody
	}
	return nil
}
