package store

import (
	"context"
	"errors"

	"github.com/LukasGX/Untis-App-API/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

type Store interface {
	// Access requests. Usernames are unique across all schools.
	CreateRequest(ctx context.Context, school, username string, status models.Status) (*models.AccessRequest, error)
	GetRequestByUsername(ctx context.Context, username string) (*models.AccessRequest, error)
	GetRequest(ctx context.Context, school, username string) (*models.AccessRequest, error)
	UpdateRequestStatus(ctx context.Context, id int, status models.Status) error
	ListRequests(ctx context.Context) ([]models.AccessRequest, error)
	ListSchools(ctx context.Context) ([]string, error)
	CountPendingRequests(ctx context.Context) (int, error)

	// Contact records
	CreateContact(ctx context.Context, school, username, contactInfos string) (*models.ContactRecord, error)
	GetContact(ctx context.Context, school, username string) (*models.ContactRecord, error)

	// Chat messages
	SaveMessage(ctx context.Context, school, username, body string) (*models.ChatMessage, error)
	GetMessage(ctx context.Context, school string, id int) (*models.ChatMessage, error)
	GetMessages(ctx context.Context, school string, limit int) ([]models.ChatMessage, error)
	SetMessageDeleted(ctx context.Context, school string, id int, deleted bool) error

	// Bans
	CreateBan(ctx context.Context, school, username string) (*models.ChatBan, error)
	GetBan(ctx context.Context, school, username string) (*models.ChatBan, error)
	ToggleBan(ctx context.Context, id int) (*models.ChatBan, error)
	ListBans(ctx context.Context) ([]models.ChatBan, error)

	Ping(ctx context.Context) error
	Close() error
}
