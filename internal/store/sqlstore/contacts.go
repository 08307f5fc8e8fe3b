package sqlstore

import (
	"context"

	"github.com/LukasGX/Untis-App-API/internal/models"
)

func (s *SQLStore) CreateContact(ctx context.Context, school, username, contactInfos string) (*models.ContactRecord, error) {
	rec := &models.ContactRecord{School: school, Username: username, ContactInfos: contactInfos}
	createdAt := s.timestamp()
	query := s.rebind("INSERT INTO contacts (created_at, school, username, contact_infos) VALUES (?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRowContext(ctx, query, createdAt, school, username, contactInfos).Scan(&rec.ID); err != nil {
		return nil, translate(err, "insert contact")
	}
	rec.CreatedAt = parseTimestamp(createdAt)
	return rec, nil
}

func (s *SQLStore) GetContact(ctx context.Context, school, username string) (*models.ContactRecord, error) {
	var (
		rec       models.ContactRecord
		createdAt string
	)
	query := s.rebind("SELECT id, created_at, school, username, contact_infos FROM contacts WHERE school = ? AND username = ?")
	err := s.db.QueryRowContext(ctx, query, school, username).Scan(&rec.ID, &createdAt, &rec.School, &rec.Username, &rec.ContactInfos)
	if err != nil {
		return nil, translate(err, "get contact")
	}
	rec.CreatedAt = parseTimestamp(createdAt)
	return &rec, nil
}
