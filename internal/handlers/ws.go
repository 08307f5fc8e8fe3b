package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/LukasGX/Untis-App-API/internal/auth"
	"github.com/LukasGX/Untis-App-API/internal/ws"
)

type WSHandler struct {
	Registry *ws.Registry
	Tokens   auth.Tokens
	Options  ws.Options
}

// ServeWs joins the connection to the school in the path. The API token is
// passed as the token query parameter; a bad token still upgrades so the
// client receives a policy violation close frame.
func (h *WSHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	school := mux.Vars(r)["school"]
	authorized := h.Tokens.CheckAPIKey(r.URL.Query().Get("token"))
	ws.ServeWs(h.Registry, h.Options, w, r, school, authorized)
}
