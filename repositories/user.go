//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	apperrors "arstate-chat/errors"

	"arstate-chat/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// UserRepository stores participant profiles under "users/{id}" and a
// display-name index under "usernames/{lowercased name}". The index is
// what keeps peer lookup and uniqueness checks keyed point reads rather
// than full-table scans.
type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

type diskUser struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	GoogleID string `json:"google_id,omitempty"`
	Guest    bool   `json:"guest,omitempty"`
}

func userKey(id string) []byte {
	return []byte("users/" + id)
}

func nameKey(name string) []byte {
	return []byte("usernames/" + strings.ToLower(name))
}

// Put creates or replaces a profile and claims its display name. A
// replaced profile releases its previous name first, so overwriting
// never orphans an index entry.
// Fails with ErrNameTaken when another participant owns the name.
func (u *UserRepository) Put(ctx context.Context, p domain.Participant, googleID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	value, err := json.Marshal(diskUser{Name: p.Name, Avatar: p.Avatar, GoogleID: googleID, Guest: p.Guest})
	if err != nil {
		return err
	}
	err = u.db.Update(func(txn *badger.Txn) error {
		if err := u.releaseName(txn, p.ID, p.Name); err != nil {
			return err
		}
		if err := u.claimName(txn, p.Name, p.ID); err != nil {
			return err
		}
		return txn.Set(userKey(p.ID), value)
	})
	switch {
	case errors.Is(err, apperrors.ErrNameTaken):
		return apperrors.ErrNameTaken
	case err != nil:
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// FindByID resolves a single participant with a keyed point read.
func (u *UserRepository) FindByID(ctx context.Context, id string) (domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return domain.Participant{}, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	var du diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &du)
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return domain.Participant{}, apperrors.ErrUnknownParticipant
	case err != nil:
		return domain.Participant{}, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return domain.Participant{ID: id, Name: du.Name, Avatar: du.Avatar, Guest: du.Guest}, nil
}

// List returns every registered participant, for the peer-selection
// page only. Point lookups must go through FindByID.
func (u *UserRepository) List(ctx context.Context) ([]domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	var participants []domain.Participant
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("users/")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), "users/")
			err := item.Value(func(value []byte) error {
				var du diskUser
				if err := json.Unmarshal(value, &du); err != nil {
					return err
				}
				participants = append(participants, domain.Participant{
					ID: id, Name: du.Name, Avatar: du.Avatar, Guest: du.Guest,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return participants, nil
}

// Rename changes a display name, releasing the old index entry and
// claiming the new one in the same transaction. The release runs
// before the claim: a case-only rename hits the same lowercased index
// key, and deleting after claiming would wipe the fresh entry.
func (u *UserRepository) Rename(ctx context.Context, id, newName string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	err := u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		var du diskUser
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &du)
		}); err != nil {
			return err
		}
		if err := txn.Delete(nameKey(du.Name)); err != nil {
			return err
		}
		if err := u.claimName(txn, newName, id); err != nil {
			return err
		}
		du.Name = newName
		value, err := json.Marshal(du)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), value)
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return apperrors.ErrUnknownParticipant
	case errors.Is(err, apperrors.ErrNameTaken):
		return apperrors.ErrNameTaken
	case err != nil:
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// Delete removes a profile and its name index entry. Message history is
// deliberately left in place; log deletion is out of the engine's scope.
func (u *UserRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	err := u.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var du diskUser
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &du)
		}); err != nil {
			return err
		}
		if err := txn.Delete(nameKey(du.Name)); err != nil {
			return err
		}
		return txn.Delete(userKey(id))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// releaseName drops the index entry of id's current name when it maps
// to a different index key than newName. A missing profile is fine;
// Put also serves first-time creation.
func (u *UserRepository) releaseName(txn *badger.Txn, id, newName string) error {
	item, err := txn.Get(userKey(id))
	if err == badger.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	var prev diskUser
	if err := item.Value(func(value []byte) error {
		return json.Unmarshal(value, &prev)
	}); err != nil {
		return err
	}
	if strings.ToLower(prev.Name) == strings.ToLower(newName) {
		return nil
	}
	return txn.Delete(nameKey(prev.Name))
}

// claimName reserves name for owner unless somebody else holds it.
func (u *UserRepository) claimName(txn *badger.Txn, name, owner string) error {
	item, err := txn.Get(nameKey(name))
	switch {
	case err == badger.ErrKeyNotFound:
		// free, claim below
	case err != nil:
		return err
	default:
		var holder string
		if err := item.Value(func(value []byte) error {
			holder = string(value)
			return nil
		}); err != nil {
			return err
		}
		if holder != owner {
			return apperrors.ErrNameTaken
		}
	}
	return txn.Set(nameKey(name), []byte(owner))
}
