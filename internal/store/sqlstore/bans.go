package sqlstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/LukasGX/Untis-App-API/internal/models"
)

func (s *SQLStore) CreateBan(ctx context.Context, school, username string) (*models.ChatBan, error) {
	ban := &models.ChatBan{School: school, Username: username, Active: true}
	createdAt := s.timestamp()
	query := s.rebind("INSERT INTO chat_bans (created_at, school, username, active) VALUES (?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRowContext(ctx, query, createdAt, school, username, true).Scan(&ban.ID); err != nil {
		return nil, translate(err, "insert ban")
	}
	ban.CreatedAt = parseTimestamp(createdAt)
	return ban, nil
}

func (s *SQLStore) GetBan(ctx context.Context, school, username string) (*models.ChatBan, error) {
	query := s.rebind("SELECT id, created_at, school, username, active FROM chat_bans WHERE school = ? AND username = ?")
	ban, err := scanBan(s.db.QueryRowContext(ctx, query, school, username))
	return ban, translate(err, "get ban")
}

// ToggleBan flips the active flag of a ban inside one transaction and returns
// the updated row.
func (s *SQLStore) ToggleBan(ctx context.Context, id int) (*models.ChatBan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin toggle ban")
	}
	defer func() { _ = tx.Rollback() }()

	ban, err := scanBan(tx.QueryRowContext(ctx, s.rebind("SELECT id, created_at, school, username, active FROM chat_bans WHERE id = ?"), id))
	if err != nil {
		return nil, translate(err, "get ban")
	}
	ban.Active = !ban.Active
	if _, err := tx.ExecContext(ctx, s.rebind("UPDATE chat_bans SET active = ? WHERE id = ?"), ban.Active, id); err != nil {
		return nil, translate(err, "toggle ban")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit toggle ban")
	}
	return ban, nil
}

func (s *SQLStore) ListBans(ctx context.Context) ([]models.ChatBan, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, created_at, school, username, active FROM chat_bans ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, translate(err, "list bans")
	}
	defer rows.Close()

	var bans []models.ChatBan
	for rows.Next() {
		ban, err := scanBan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan ban")
		}
		bans = append(bans, *ban)
	}
	return bans, errors.Wrap(rows.Err(), "list bans")
}

// scanBan returns raw scan errors so callers can translate sql.ErrNoRows.
func scanBan(row scanner) (*models.ChatBan, error) {
	var (
		ban       models.ChatBan
		createdAt string
	)
	if err := row.Scan(&ban.ID, &createdAt, &ban.School, &ban.Username, &ban.Active); err != nil {
		return nil, err
	}
	ban.CreatedAt = parseTimestamp(createdAt)
	return &ban, nil
}
