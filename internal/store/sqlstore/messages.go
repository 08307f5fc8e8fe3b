package sqlstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/LukasGX/Untis-App-API/internal/models"
)

func (s *SQLStore) SaveMessage(ctx context.Context, school, username, body string) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{School: school, Username: username, Body: body}
	sentAt := s.timestamp()
	query := s.rebind("INSERT INTO messages (sent_at, school, username, message, deleted) VALUES (?, ?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRowContext(ctx, query, sentAt, school, username, body, false).Scan(&msg.ID); err != nil {
		return nil, translate(err, "insert message")
	}
	msg.SentAt = parseTimestamp(sentAt)
	return msg, nil
}

func (s *SQLStore) GetMessage(ctx context.Context, school string, id int) (*models.ChatMessage, error) {
	query := s.rebind("SELECT id, sent_at, school, username, message, deleted FROM messages WHERE id = ? AND school = ?")
	var (
		msg    models.ChatMessage
		sentAt string
	)
	err := s.db.QueryRowContext(ctx, query, id, school).Scan(&msg.ID, &sentAt, &msg.School, &msg.Username, &msg.Body, &msg.Deleted)
	if err != nil {
		return nil, translate(err, "get message")
	}
	msg.SentAt = parseTimestamp(sentAt)
	return &msg, nil
}

// GetMessages returns up to limit messages of a school, newest first. Bodies
// are returned unmasked; masking deleted messages is up to the caller.
func (s *SQLStore) GetMessages(ctx context.Context, school string, limit int) ([]models.ChatMessage, error) {
	query := s.rebind(`
		SELECT id, sent_at, school, username, message, deleted
		FROM messages
		WHERE school = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT ?
	`)
	rows, err := s.db.QueryContext(ctx, query, school, limit)
	if err != nil {
		return nil, translate(err, "get messages")
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var (
			m      models.ChatMessage
			sentAt string
		)
		if err := rows.Scan(&m.ID, &sentAt, &m.School, &m.Username, &m.Body, &m.Deleted); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		m.SentAt = parseTimestamp(sentAt)
		messages = append(messages, m)
	}
	return messages, errors.Wrap(rows.Err(), "get messages")
}

// SetMessageDeleted flips the soft-delete flag. A mismatched id/school pair
// updates nothing and is not an error.
func (s *SQLStore) SetMessageDeleted(ctx context.Context, school string, id int, deleted bool) error {
	query := s.rebind("UPDATE messages SET deleted = ? WHERE id = ? AND school = ?")
	_, err := s.db.ExecContext(ctx, query, deleted, id, school)
	return translate(err, "set message deleted")
}
