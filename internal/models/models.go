package models

import "time"

// Status is the admission state of an AccessRequest.
type Status string

const (
	StatusPending  Status = "pending"
	StatusDenied   Status = "denied"
	StatusApproved Status = "approved"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDenied, StatusApproved:
		return true
	}
	return false
}

// SystemUsername is the author recorded for administrator announcements.
const SystemUsername = "[SYSTEM]"

type AccessRequest struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	School    string    `json:"school"`
	Username  string    `json:"username"`
	Status    Status    `json:"status"`
}

type ContactRecord struct {
	ID           int       `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	School       string    `json:"school"`
	Username     string    `json:"username"`
	ContactInfos string    `json:"contact_infos"` // opaque, stored verbatim
}

type ChatMessage struct {
	ID       int       `json:"id"`
	SentAt   time.Time `json:"sent_at"`
	School   string    `json:"school,omitempty"`
	Username string    `json:"username"`
	Body     string    `json:"message"`
	Deleted  bool      `json:"deleted"`
}

type ChatBan struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	School    string    `json:"school"`
	Username  string    `json:"username"`
	Active    bool      `json:"active"`
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
