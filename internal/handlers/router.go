package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/LukasGX/Untis-App-API/internal/auth"
	"github.com/LukasGX/Untis-App-API/internal/chat"
	"github.com/LukasGX/Untis-App-API/internal/middleware"
	"github.com/LukasGX/Untis-App-API/internal/notify"
	"github.com/LukasGX/Untis-App-API/internal/store"
	"github.com/LukasGX/Untis-App-API/internal/validate"
	"github.com/LukasGX/Untis-App-API/internal/ws"
)

type Deps struct {
	Store     store.Store
	Chat      *chat.Service
	Registry  *ws.Registry
	Tokens    auth.Tokens
	Sessions  *auth.AdminSessions
	Validator *validate.Validator
	Notifier  *notify.Notifier

	WSOptions         ws.Options
	HistoryLimit      int
	AdminHistoryLimit int
}

// NewRouter wires every route of the service.
func NewRouter(d Deps) http.Handler {
	requestHandler := &RequestHandler{Store: d.Store, Validator: d.Validator, Notifier: d.Notifier}
	chatHandler := &ChatHandler{Chat: d.Chat, Validator: d.Validator, HistoryLimit: d.HistoryLimit}
	wsHandler := &WSHandler{Registry: d.Registry, Tokens: d.Tokens, Options: d.WSOptions}
	adminHandler := &AdminHandler{
		Store:        d.Store,
		Chat:         d.Chat,
		Sessions:     d.Sessions,
		Registry:     d.Registry,
		HistoryLimit: d.AdminHistoryLimit,
	}

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	// Public
	r.HandleFunc("/requests/{username}", requestHandler.GetRequest).Methods("GET")
	r.HandleFunc("/health", healthHandler(d.Store, d.Registry)).Methods("GET")
	r.HandleFunc("/ws/{school}", wsHandler.ServeWs).Methods("GET")

	// API token
	api := r.NewRoute().Subrouter()
	api.Use(middleware.RequireAPIKey(d.Tokens))
	api.HandleFunc("/new_request", requestHandler.NewRequest).Methods("POST")
	api.HandleFunc("/new_contact", requestHandler.NewContact).Methods("POST")
	api.HandleFunc("/get_contact", requestHandler.GetContact).Methods("POST")
	api.HandleFunc("/send_message", chatHandler.SendMessage).Methods("POST")
	api.HandleFunc("/get_messages", chatHandler.GetMessages).Methods("POST")
	api.HandleFunc("/get_bans", chatHandler.GetBans).Methods("POST")
	api.HandleFunc("/ban/{username}", chatHandler.CheckBan).Methods("POST")

	// Admin token
	adminAPI := r.NewRoute().Subrouter()
	adminAPI.Use(middleware.RequireAdminKey(d.Tokens))
	adminAPI.HandleFunc("/update_request/{id:[0-9]+}", requestHandler.UpdateRequest).Methods("PATCH")

	// Admin dashboard
	r.HandleFunc("/admin", adminHandler.LoginPage).Methods("GET")
	r.HandleFunc("/admin/login", adminHandler.Login).Methods("POST")
	r.HandleFunc("/admin/logout", adminHandler.Logout).Methods("POST")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdminSession(d.Sessions))
	admin.HandleFunc("/dashboard", adminHandler.Dashboard).Methods("GET")
	admin.HandleFunc("/requests", adminHandler.Requests).Methods("GET")
	admin.HandleFunc("/requests/{id:[0-9]+}/update", adminHandler.UpdateRequest).Methods("POST")
	admin.HandleFunc("/chats/{school}", adminHandler.ChatView).Methods("GET")
	admin.HandleFunc("/chats/{school}/announce", adminHandler.Announce).Methods("POST")
	admin.HandleFunc("/chats/{school}/{id:[0-9]+}/delete", adminHandler.DeleteMessage).Methods("POST")
	admin.HandleFunc("/chats/{school}/{id:[0-9]+}/restore", adminHandler.RestoreMessage).Methods("POST")
	admin.HandleFunc("/bans", adminHandler.Bans).Methods("GET")
	admin.HandleFunc("/bans/new", adminHandler.NewBan).Methods("POST")
	admin.HandleFunc("/bans/{id:[0-9]+}/toggle", adminHandler.ToggleBan).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Not Found")
	})

	return middleware.TrimTrailingSlash(r)
}

func healthHandler(s store.Store, registry *ws.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.Ping(ctx); err != nil {
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		middleware.JSONResponse(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"connections": registry.Stats(),
		})
	}
}
