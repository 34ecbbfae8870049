package repositories

import (
	apperrors "arstate-chat/errors"

	"arstate-chat/domain"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_User_PutAndFind(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t), slog.Default())

	alice := domain.Participant{ID: "u1", Name: "Alice", Avatar: "https://i.pravatar.cc/40?u=u1"}
	req.NoError(users.Put(context.Background(), alice, "google-sub-1"))

	found, err := users.FindByID(context.Background(), "u1")
	req.NoError(err)
	req.Equal(alice, found)
}

func Test_User_FindUnknown(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t), slog.Default())

	_, err := users.FindByID(context.Background(), "ghost")
	req.ErrorIs(err, apperrors.ErrUnknownParticipant)
}

func Test_User_NameUniqueness(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t), slog.Default())

	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u1", Name: "Alice"}, ""))

	// Case-insensitive: "alice" collides with "Alice".
	err := users.Put(context.Background(), domain.Participant{ID: "u2", Name: "alice"}, "")
	req.ErrorIs(err, apperrors.ErrNameTaken)

	// Re-claiming your own name is fine.
	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u1", Name: "Alice"}, ""))
}

func Test_User_Rename(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t), slog.Default())

	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u1", Name: "Alice"}, ""))
	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u2", Name: "Bob"}, ""))

	req.ErrorIs(users.Rename(context.Background(), "u1", "Bob"), apperrors.ErrNameTaken)
	req.ErrorIs(users.Rename(context.Background(), "ghost", "Clara"), apperrors.ErrUnknownParticipant)

	req.NoError(users.Rename(context.Background(), "u1", "Alicia"))
	found, err := users.FindByID(context.Background(), "u1")
	req.NoError(err)
	req.Equal("Alicia", found.Name)

	// The old name is released for someone else.
	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u3", Name: "Alice"}, ""))
}

func Test_User_CaseOnlyRenameKeepsNameClaimed(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t), slog.Default())

	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u1", Name: "Alice"}, ""))
	req.NoError(users.Rename(context.Background(), "u1", "ALICE"))

	found, err := users.FindByID(context.Background(), "u1")
	req.NoError(err)
	req.Equal("ALICE", found.Name)

	// The rename touched a single index key; the claim must survive it.
	err = users.Put(context.Background(), domain.Participant{ID: "u2", Name: "alice"}, "")
	req.ErrorIs(err, apperrors.ErrNameTaken)
	req.NoError(users.Rename(context.Background(), "u1", "alice"))
	err = users.Put(context.Background(), domain.Participant{ID: "u2", Name: "Alice"}, "")
	req.ErrorIs(err, apperrors.ErrNameTaken)
}

func Test_User_ReplaceReleasesOldName(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t), slog.Default())

	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u1", Name: "Alice"}, ""))
	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u1", Name: "Alicia"}, ""))

	// The new name is claimed, the replaced one is free again.
	err := users.Put(context.Background(), domain.Participant{ID: "u2", Name: "alicia"}, "")
	req.ErrorIs(err, apperrors.ErrNameTaken)
	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u3", Name: "Alice"}, ""))
}

func Test_User_Delete(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t), slog.Default())

	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u1", Name: "Alice"}, ""))
	req.NoError(users.Delete(context.Background(), "u1"))

	_, err := users.FindByID(context.Background(), "u1")
	req.ErrorIs(err, apperrors.ErrUnknownParticipant)

	// The name is freed alongside the profile.
	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u2", Name: "Alice"}, ""))

	// Deleting a missing profile is a no-op.
	req.NoError(users.Delete(context.Background(), "ghost"))
}

func Test_User_List(t *testing.T) {
	req := require.New(t)
	users := NewUserRepository(openTestDB(t), slog.Default())

	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u1", Name: "Alice"}, ""))
	req.NoError(users.Put(context.Background(), domain.Participant{ID: "u2", Name: "Bob", Guest: true}, ""))

	all, err := users.List(context.Background())
	req.NoError(err)
	req.Len(all, 2)
}
