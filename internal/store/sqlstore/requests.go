package sqlstore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/LukasGX/Untis-App-API/internal/models"
	"github.com/LukasGX/Untis-App-API/internal/store"
)

func (s *SQLStore) CreateRequest(ctx context.Context, school, username string, status models.Status) (*models.AccessRequest, error) {
	req := &models.AccessRequest{School: school, Username: username, Status: status}
	createdAt := s.timestamp()
	query := s.rebind("INSERT INTO requests (created_at, school, username, status) VALUES (?, ?, ?, ?) RETURNING id")
	if err := s.db.QueryRowContext(ctx, query, createdAt, school, username, string(status)).Scan(&req.ID); err != nil {
		return nil, translate(err, "insert request")
	}
	req.CreatedAt = parseTimestamp(createdAt)
	return req, nil
}

func (s *SQLStore) GetRequestByUsername(ctx context.Context, username string) (*models.AccessRequest, error) {
	query := s.rebind("SELECT id, created_at, school, username, status FROM requests WHERE username = ?")
	return scanRequest(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLStore) GetRequest(ctx context.Context, school, username string) (*models.AccessRequest, error) {
	query := s.rebind("SELECT id, created_at, school, username, status FROM requests WHERE school = ? AND username = ?")
	return scanRequest(s.db.QueryRowContext(ctx, query, school, username))
}

func (s *SQLStore) UpdateRequestStatus(ctx context.Context, id int, status models.Status) error {
	query := s.rebind("UPDATE requests SET status = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return translate(err, "update request status")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update request status")
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListRequests(ctx context.Context) ([]models.AccessRequest, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, created_at, school, username, status FROM requests ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, translate(err, "list requests")
	}
	defer rows.Close()

	var requests []models.AccessRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, errors.Wrap(rows.Err(), "list requests")
}

func (s *SQLStore) ListSchools(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT school FROM requests ORDER BY school")
	if err != nil {
		return nil, translate(err, "list schools")
	}
	defer rows.Close()

	var schools []string
	for rows.Next() {
		var school string
		if err := rows.Scan(&school); err != nil {
			return nil, errors.Wrap(err, "scan school")
		}
		schools = append(schools, school)
	}
	return schools, errors.Wrap(rows.Err(), "list schools")
}

func (s *SQLStore) CountPendingRequests(ctx context.Context) (int, error) {
	var count int
	query := s.rebind("SELECT COUNT(*) FROM requests WHERE status = ?")
	err := s.db.QueryRowContext(ctx, query, string(models.StatusPending)).Scan(&count)
	return count, translate(err, "count pending requests")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*models.AccessRequest, error) {
	var (
		req       models.AccessRequest
		createdAt string
		status    string
	)
	if err := row.Scan(&req.ID, &createdAt, &req.School, &req.Username, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan request")
	}
	req.CreatedAt = parseTimestamp(createdAt)
	req.Status = models.Status(status)
	return &req, nil
}
