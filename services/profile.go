package services

import (
	apperrors "arstate-chat/errors"

	"arstate-chat/auth"
	"arstate-chat/domain"
	"arstate-chat/repositories"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// GoogleIdentity is the subset of an OAuth profile the engine cares
// about. Token validation happens upstream.
type GoogleIdentity struct {
	Subject string
	Name    string
	Picture string
}

// Session is a logged-in participant plus their signed session token.
type Session struct {
	Participant domain.Participant
	Token       string
}

// ProfileService owns participant lifecycle: Google sign-in, guest
// accounts, renames, deletion, and session token issuance.
type ProfileService struct {
	users    *repositories.UserRepository
	tokens   *auth.TokenService
	validate *validator.Validate
	log      *slog.Logger
}

func NewProfileService(users *repositories.UserRepository, tokens *auth.TokenService, log *slog.Logger) *ProfileService {
	return &ProfileService{
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
		log:      log,
	}
}

// SaveGoogleUser registers a participant from a Google identity. The
// participant id is a fresh UUID; the Google subject is only kept as a
// stored attribute.
func (s *ProfileService) SaveGoogleUser(ctx context.Context, identity GoogleIdentity) (Session, error) {
	name := identity.Name
	if name == "" {
		name = "Anonymous User"
	}
	if err := s.validate.Var(name, "min=2,max=48"); err != nil {
		return Session{}, fmt.Errorf("invalid display name %q: %w", name, err)
	}
	id := uuid.NewString()
	avatar := identity.Picture
	if avatar == "" {
		avatar = pravatar(id)
	}
	p := domain.Participant{ID: id, Name: name, Avatar: avatar}
	if err := s.users.Put(ctx, p, identity.Subject); err != nil {
		return Session{}, err
	}
	return s.openSession(p)
}

// CreateGuest registers a throwaway account named after the first four
// characters of its id.
func (s *ProfileService) CreateGuest(ctx context.Context) (Session, error) {
	id := uuid.NewString()
	p := domain.Participant{
		ID:     id,
		Name:   "Guest-" + id[:4],
		Avatar: pravatar(id),
		Guest:  true,
	}
	if err := s.users.Put(ctx, p, ""); err != nil {
		return Session{}, err
	}
	return s.openSession(p)
}

// FindByID resolves a participant with a keyed point read.
func (s *ProfileService) FindByID(ctx context.Context, id string) (domain.Participant, error) {
	return s.users.FindByID(ctx, id)
}

// List returns every participant, for the peer-selection page.
func (s *ProfileService) List(ctx context.Context) ([]domain.Participant, error) {
	return s.users.List(ctx)
}

// Rename changes a display name, enforcing global uniqueness.
func (s *ProfileService) Rename(ctx context.Context, id, name string) error {
	if err := s.validate.Var(name, "min=2,max=48"); err != nil {
		return fmt.Errorf("invalid display name %q: %w", name, err)
	}
	return s.users.Rename(ctx, id, name)
}

// Delete removes the account. Message history stays in the logs; that
// gap is documented, not accidental.
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// Authenticate validates a session token and resolves its participant.
func (s *ProfileService) Authenticate(ctx context.Context, token string) (domain.Participant, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return domain.Participant{}, err
	}
	p, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("%w: stale session", apperrors.ErrUnknownParticipant)
	}
	return p, nil
}

func (s *ProfileService) openSession(p domain.Participant) (Session, error) {
	token, err := s.tokens.Generate(p.ID, p.Guest)
	if err != nil {
		return Session{}, err
	}
	return Session{Participant: p, Token: token}, nil
}

func pravatar(id string) string {
	return "https://i.pravatar.cc/40?u=" + id
}
