package moderation

import (
	"context"
	"errors"

	"github.com/LukasGX/Untis-App-API/internal/models"
	"github.com/LukasGX/Untis-App-API/internal/store"
)

// Reason explains why a user may not post.
type Reason string

const (
	ReasonNotApproved Reason = "not approved"
	ReasonBanned      Reason = "banned"
)

// Decision is the outcome of a Gate check. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Lookup is the read-only part of the store the gate needs.
type Lookup interface {
	GetRequest(ctx context.Context, school, username string) (*models.AccessRequest, error)
	GetBan(ctx context.Context, school, username string) (*models.ChatBan, error)
}

// Gate decides whether a (school, username) pair may post. It always reads
// current state from the store.
type Gate struct {
	store Lookup
}

func NewGate(s Lookup) *Gate {
	return &Gate{store: s}
}

func (g *Gate) MayPost(ctx context.Context, school, username string) (Decision, error) {
	req, err := g.store.GetRequest(ctx, school, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return Decision{Reason: ReasonNotApproved}, nil
	case err != nil:
		return Decision{}, err
	case req.Status != models.StatusApproved:
		return Decision{Reason: ReasonNotApproved}, nil
	}

	ban, err := g.store.GetBan(ctx, school, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return Decision{}, err
	case ban.Active:
		return Decision{Reason: ReasonBanned}, nil
	}
	return Decision{Allowed: true}, nil
}
