package chat

import (
	"time"

	"github.com/LukasGX/Untis-App-API/internal/models"
)

const (
	EventMessageNew      = "message_new"
	EventMessageDeleted  = "message_deleted"
	EventMessageRestored = "message_restored"
)

// MessageNewEvent is pushed for every persisted message, announcements
// included.
type MessageNewEvent struct {
	Type      string    `json:"type"`
	School    string    `json:"school"`
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"` // same encoding as ChatMessage.SentAt
	Username  string    `json:"username"`
	Body      string    `json:"message"`
	Deleted   bool      `json:"deleted"`
}

type MessageDeletedEvent struct {
	Type   string `json:"type"`
	ID     int    `json:"id"`
	School string `json:"school"`
}

type MessageRestoredEvent struct {
	Type     string `json:"type"`
	ID       int    `json:"id"`
	Username string `json:"username"`
	Body     string `json:"message"`
	School   string `json:"school"`
}

func newMessageEvent(msg *models.ChatMessage) MessageNewEvent {
	return MessageNewEvent{
		Type:      EventMessageNew,
		School:    msg.School,
		ID:        msg.ID,
		Timestamp: msg.SentAt.UTC(),
		Username:  msg.Username,
		Body:      msg.Body,
		Deleted:   msg.Deleted,
	}
}
