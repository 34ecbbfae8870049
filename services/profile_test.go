package services

import (
	apperrors "arstate-chat/errors"

	"arstate-chat/auth"
	"arstate-chat/repositories"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newProfileService(t *testing.T) *ProfileService {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db, slog.Default())
	tokens := auth.NewTokenService("test-secret", time.Hour)
	return NewProfileService(users, tokens, slog.Default())
}

func Test_SaveGoogleUser(t *testing.T) {
	req := require.New(t)
	profiles := newProfileService(t)

	session, err := profiles.SaveGoogleUser(context.Background(), GoogleIdentity{
		Subject: "google-sub-1",
		Name:    "Alice",
		Picture: "https://example.com/alice.jpg",
	})
	req.NoError(err)
	req.NotEmpty(session.Participant.ID)
	req.NotEmpty(session.Token)
	req.Equal("Alice", session.Participant.Name)
	req.False(session.Participant.Guest)

	found, err := profiles.FindByID(context.Background(), session.Participant.ID)
	req.NoError(err)
	req.Equal(session.Participant, found)
}

func Test_SaveGoogleUser_Defaults(t *testing.T) {
	req := require.New(t)
	profiles := newProfileService(t)

	session, err := profiles.SaveGoogleUser(context.Background(), GoogleIdentity{Subject: "google-sub-2"})
	req.NoError(err)
	req.Equal("Anonymous User", session.Participant.Name)
	req.Contains(session.Participant.Avatar, "pravatar.cc")
}

func Test_CreateGuest(t *testing.T) {
	req := require.New(t)
	profiles := newProfileService(t)

	session, err := profiles.CreateGuest(context.Background())
	req.NoError(err)
	req.True(session.Participant.Guest)
	req.True(strings.HasPrefix(session.Participant.Name, "Guest-"))
	req.Len(session.Participant.Name, len("Guest-")+4)
	req.Contains(session.Participant.Avatar, session.Participant.ID)
}

func Test_Rename_Validation(t *testing.T) {
	req := require.New(t)
	profiles := newProfileService(t)

	session, err := profiles.CreateGuest(context.Background())
	req.NoError(err)
	id := session.Participant.ID

	req.Error(profiles.Rename(context.Background(), id, "x"))
	req.Error(profiles.Rename(context.Background(), id, strings.Repeat("x", 49)))

	req.NoError(profiles.Rename(context.Background(), id, "Alice"))
	found, err := profiles.FindByID(context.Background(), id)
	req.NoError(err)
	req.Equal("Alice", found.Name)
}

func Test_Authenticate(t *testing.T) {
	req := require.New(t)
	profiles := newProfileService(t)

	session, err := profiles.CreateGuest(context.Background())
	req.NoError(err)

	authed, err := profiles.Authenticate(context.Background(), session.Token)
	req.NoError(err)
	req.Equal(session.Participant, authed)

	_, err = profiles.Authenticate(context.Background(), "garbage")
	req.Error(err)

	// A valid token for a deleted account is a stale session.
	req.NoError(profiles.Delete(context.Background(), session.Participant.ID))
	_, err = profiles.Authenticate(context.Background(), session.Token)
	req.ErrorIs(err, apperrors.ErrUnknownParticipant)
}
