package handlers

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/LukasGX/Untis-App-API/internal/auth"
	"github.com/LukasGX/Untis-App-API/internal/chat"
	"github.com/LukasGX/Untis-App-API/internal/models"
	"github.com/LukasGX/Untis-App-API/internal/store"
	"github.com/LukasGX/Untis-App-API/internal/ws"
)

//go:embed templates/*.html
var templateFS embed.FS

var adminTemplates = template.Must(template.New("admin").Funcs(template.FuncMap{
	"since": humanize.Time,
}).ParseFS(templateFS, "templates/*.html"))

type AdminHandler struct {
	Store        store.Store
	Chat         *chat.Service
	Sessions     *auth.AdminSessions
	Registry     *ws.Registry
	HistoryLimit int
}

type page struct {
	Title         string
	Authenticated bool
	Error         string
	Data          interface{}
}

type schoolSummary struct {
	Name        string
	Connections int
}

type dashboardData struct {
	PendingCount int
	Schools      []schoolSummary
}

type chatData struct {
	School   string
	Messages []models.ChatMessage
}

type bansData struct {
	Bans    []models.ChatBan
	Schools []string
}

func render(w http.ResponseWriter, status int, name string, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := adminTemplates.ExecuteTemplate(w, name, p); err != nil {
		slog.Error("rendering template", "template", name, "error", err)
	}
}

func adminError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, chat.ErrInvalidLength):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("admin request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	return id, err == nil
}

func chatURL(school string) string {
	return "/admin/chats/" + url.PathEscape(school)
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	schools, err := h.Store.ListSchools(r.Context())
	if err != nil {
		adminError(w, r, err)
		return
	}
	pending, err := h.Store.CountPendingRequests(r.Context())
	if err != nil {
		adminError(w, r, err)
		return
	}

	live := h.Registry.Stats()
	data := dashboardData{PendingCount: pending}
	for _, s := range schools {
		data.Schools = append(data.Schools, schoolSummary{Name: s, Connections: live[s]})
	}
	render(w, http.StatusOK, "dashboard", page{Title: "Dashboard", Authenticated: true, Data: data})
}

func (h *AdminHandler) Requests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.ListRequests(r.Context())
	if err != nil {
		adminError(w, r, err)
		return
	}
	render(w, http.StatusOK, "requests", page{Title: "Requests", Authenticated: true, Data: requests})
}

func (h *AdminHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid request id", http.StatusBadRequest)
		return
	}
	status := models.Status(r.FormValue("status"))
	if !status.Valid() {
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	if err := h.Store.UpdateRequestStatus(r.Context(), id, status); err != nil {
		adminError(w, r, err)
		return
	}
	slog.Info("request status changed", "id", id, "status", status)
	http.Redirect(w, r, "/admin/requests", http.StatusSeeOther)
}

func (h *AdminHandler) ChatView(w http.ResponseWriter, r *http.Request) {
	school := mux.Vars(r)["school"]
	messages, err := h.Chat.History(r.Context(), school, h.HistoryLimit)
	if err != nil {
		adminError(w, r, err)
		return
	}
	render(w, http.StatusOK, "chat", page{
		Title:         fmt.Sprintf("Chat %s", school),
		Authenticated: true,
		Data:          chatData{School: school, Messages: messages},
	})
}

func (h *AdminHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	school := mux.Vars(r)["school"]
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid message id", http.StatusBadRequest)
		return
	}
	if err := h.Chat.DeleteMessage(r.Context(), school, id); err != nil {
		adminError(w, r, err)
		return
	}
	http.Redirect(w, r, chatURL(school), http.StatusSeeOther)
}

func (h *AdminHandler) RestoreMessage(w http.ResponseWriter, r *http.Request) {
	school := mux.Vars(r)["school"]
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid message id", http.StatusBadRequest)
		return
	}
	if err := h.Chat.RestoreMessage(r.Context(), school, id); err != nil {
		adminError(w, r, err)
		return
	}
	http.Redirect(w, r, chatURL(school), http.StatusSeeOther)
}

func (h *AdminHandler) Announce(w http.ResponseWriter, r *http.Request) {
	school := mux.Vars(r)["school"]
	if _, err := h.Chat.SystemAnnounce(r.Context(), school, r.FormValue("message")); err != nil {
		adminError(w, r, err)
		return
	}
	http.Redirect(w, r, chatURL(school), http.StatusSeeOther)
}

func (h *AdminHandler) Bans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.Chat.ListBans(r.Context())
	if err != nil {
		adminError(w, r, err)
		return
	}
	schools, err := h.Store.ListSchools(r.Context())
	if err != nil {
		adminError(w, r, err)
		return
	}
	render(w, http.StatusOK, "bans", page{Title: "Bans", Authenticated: true, Data: bansData{Bans: bans, Schools: schools}})
}

func (h *AdminHandler) NewBan(w http.ResponseWriter, r *http.Request) {
	school, username := r.FormValue("school"), r.FormValue("username")
	if school == "" || username == "" {
		http.Error(w, "school and username are required", http.StatusBadRequest)
		return
	}
	if err := h.Chat.Ban(r.Context(), school, username); err != nil {
		adminError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin/bans", http.StatusSeeOther)
}

func (h *AdminHandler) ToggleBan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ban id", http.StatusBadRequest)
		return
	}
	ban, err := h.Chat.ToggleBan(r.Context(), id)
	if err != nil {
		adminError(w, r, err)
		return
	}
	slog.Info("ban toggled", "school", ban.School, "username", ban.Username, "active", ban.Active)
	http.Redirect(w, r, "/admin/bans", http.StatusSeeOther)
}
