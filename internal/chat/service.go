package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/LukasGX/Untis-App-API/internal/filter"
	"github.com/LukasGX/Untis-App-API/internal/models"
	"github.com/LukasGX/Untis-App-API/internal/moderation"
	"github.com/LukasGX/Untis-App-API/internal/store"
)

// Message length limits, counted in characters after trimming.
const (
	MinMessageLength  = 2
	MaxMessageLength  = 500
	MinAnnounceLength = 1
	MaxAnnounceLength = 200

	DefaultHistoryLimit = 100
)

var (
	ErrContentRejected = errors.New("message contains disallowed content")
	ErrInvalidLength   = errors.New("invalid message length")
)

// ForbiddenError is returned by Send when the moderation gate denies a post.
type ForbiddenError struct {
	Reason moderation.Reason
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + string(e.Reason)
}

// Publisher delivers events to the live channels of a school. Publish must
// not block the caller.
type Publisher interface {
	Publish(school string, event any)
}

type Service struct {
	store     store.Store
	filter    *filter.Filter
	gate      *moderation.Gate
	publisher Publisher
}

func NewService(s store.Store, f *filter.Filter, g *moderation.Gate, p Publisher) *Service {
	return &Service{store: s, filter: f, gate: g, publisher: p}
}

func checkLength(body string, min, max int) error {
	n := utf8.RuneCountInString(body)
	if n < min || n > max {
		return fmt.Errorf("%w: message must be between %d and %d characters", ErrInvalidLength, min, max)
	}
	return nil
}

// Send posts a message on behalf of username. The message is persisted
// before the message_new event is handed to the publisher.
func (s *Service) Send(ctx context.Context, school, username, body string) (*models.ChatMessage, error) {
	if s.filter.ContainsDisallowed(body) {
		return nil, ErrContentRejected
	}

	decision, err := s.gate.MayPost(ctx, school, username)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &ForbiddenError{Reason: decision.Reason}
	}

	body = strings.TrimSpace(body)
	if err := checkLength(body, MinMessageLength, MaxMessageLength); err != nil {
		return nil, err
	}

	msg, err := s.store.SaveMessage(ctx, school, username, body)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(school, newMessageEvent(msg))
	return msg, nil
}

// SystemAnnounce posts an administrator announcement as [SYSTEM].
func (s *Service) SystemAnnounce(ctx context.Context, school, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if err := checkLength(body, MinAnnounceLength, MaxAnnounceLength); err != nil {
		return nil, err
	}

	msg, err := s.store.SaveMessage(ctx, school, models.SystemUsername, body)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(school, newMessageEvent(msg))
	return msg, nil
}

// DeleteMessage soft-deletes a message. A mismatched id/school pair is not
// an error and the event is published either way.
func (s *Service) DeleteMessage(ctx context.Context, school string, id int) error {
	if err := s.store.SetMessageDeleted(ctx, school, id, true); err != nil {
		return err
	}
	s.publisher.Publish(school, MessageDeletedEvent{Type: EventMessageDeleted, ID: id, School: school})
	return nil
}

// RestoreMessage undoes a soft delete. Restoring an unknown message does
// nothing and publishes nothing.
func (s *Service) RestoreMessage(ctx context.Context, school string, id int) error {
	msg, err := s.store.GetMessage(ctx, school, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.SetMessageDeleted(ctx, school, id, false); err != nil {
		return err
	}
	s.publisher.Publish(school, MessageRestoredEvent{
		Type:     EventMessageRestored,
		ID:       msg.ID,
		Username: msg.Username,
		Body:     msg.Body,
		School:   school,
	})
	return nil
}

// ListMessages returns the most recent messages of a school, newest first,
// with the bodies of deleted messages blanked out.
func (s *Service) ListMessages(ctx context.Context, school string, limit int) ([]models.ChatMessage, error) {
	messages, err := s.History(ctx, school, limit)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].Deleted {
			messages[i].Body = ""
		}
	}
	return messages, nil
}

// History is ListMessages without masking, for moderators.
func (s *Service) History(ctx context.Context, school string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	messages, err := s.store.GetMessages(ctx, school, limit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// BanStatus distinguishes "never banned" (Active nil) from an inactive ban.
type BanStatus struct {
	Banned bool  `json:"banned"`
	Active *bool `json:"active,omitempty"`
}

func (s *Service) CheckBan(ctx context.Context, school, username string) (BanStatus, error) {
	ban, err := s.store.GetBan(ctx, school, username)
	if errors.Is(err, store.ErrNotFound) {
		return BanStatus{}, nil
	}
	if err != nil {
		return BanStatus{}, err
	}
	active := ban.Active
	return BanStatus{Banned: true, Active: &active}, nil
}

func (s *Service) ListBans(ctx context.Context) ([]models.ChatBan, error) {
	bans, err := s.store.ListBans(ctx)
	if err != nil {
		return nil, err
	}
	if bans == nil {
		bans = []models.ChatBan{}
	}
	return bans, nil
}

// Ban creates an active ban for the pair. Banning a pair that already has a
// ban row leaves that row untouched.
func (s *Service) Ban(ctx context.Context, school, username string) error {
	_, err := s.store.CreateBan(ctx, school, username)
	if errors.Is(err, store.ErrConflict) {
		return nil
	}
	return err
}

func (s *Service) ToggleBan(ctx context.Context, id int) (*models.ChatBan, error) {
	return s.store.ToggleBan(ctx, id)
}
