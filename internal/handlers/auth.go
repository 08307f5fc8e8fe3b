package handlers

import (
	"log/slog"
	"net/http"
)

func (h *AdminHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.Sessions.Verify(r) == nil {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	render(w, http.StatusOK, "login", page{Title: "Login"})
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	cookie, err := h.Sessions.Login(r.FormValue("token"))
	if err != nil {
		slog.Warn("admin login failed", "remote", r.RemoteAddr)
		render(w, http.StatusUnauthorized, "login", page{Title: "Login", Error: "Invalid Admin Token"})
		return
	}

	http.SetCookie(w, cookie)
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.Sessions.Logout())
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
