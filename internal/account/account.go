// Package account stores user records, verifies credentials, and manages
// session tokens, all backed by JSON documents under the data root.
package account

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"sync"

	"github.com/gitden/gitden/internal/models"
	"github.com/gitden/gitden/internal/storage"
)

var validUsername = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Store owns all account state. Token-set and record mutations for one
// user are serialized by a per-user mutex; the atomic rename in the
// record store covers crash consistency, the mutex covers concurrent
// in-process writers.
type Store struct {
	layout storage.Layout

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(layout storage.Layout) *Store {
	return &Store{
		layout: layout,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) userLock(user string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[user]
	if !ok {
		l = &sync.Mutex{}
		s.locks[user] = l
	}
	return l
}

// Exists reports whether the account record exists. Directory presence of
// user.json is the sole existence check; there is no separate index.
func (s *Store) Exists(user string) bool {
	_, err := os.Stat(s.layout.UserFile(user))
	return err == nil
}

// Create registers a new account. It returns (false, nil) when the
// account already exists, leaving the stored record untouched.
func (s *Store) Create(user, password, description string, private, admin bool) (bool, error) {
	if !validUsername.MatchString(user) {
		return false, fmt.Errorf("invalid username: %q", user)
	}

	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	if s.Exists(user) {
		return false, nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}

	if err := os.MkdirAll(s.layout.UserDir(user), 0o755); err != nil {
		return false, fmt.Errorf("create user dir: %w", err)
	}
	if err := os.MkdirAll(s.layout.UserReposDir(user), 0o755); err != nil {
		return false, fmt.Errorf("create repos dir: %w", err)
	}

	err = storage.WriteRecord(s.layout.UserFile(user), models.Account{
		Username:    user,
		Password:    hash,
		Description: description,
		Private:     private,
		Admin:       admin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Load returns the stored account record.
func (s *Store) Load(user string) (models.Account, error) {
	return storage.ReadRecord[models.Account](s.layout.UserFile(user))
}

// Save atomically overwrites the account record. The username field must
// match the directory the record lives in.
func (s *Store) Save(info models.Account) error {
	lock := s.userLock(info.Username)
	lock.Lock()
	defer lock.Unlock()
	return storage.WriteRecord(s.layout.UserFile(info.Username), info)
}

// VerifyPassword checks candidate against the stored hash. A mismatch or
// missing account yields (false, nil) so callers cannot tell the two
// apart; storage faults are errors.
func (s *Store) VerifyPassword(user, candidate string) (bool, error) {
	info, err := s.Load(user)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return verifyPassword(candidate, info.Password)
}

// ChangePassword rehashes, saves the record, and revokes every session
// token the user holds.
func (s *Store) ChangePassword(user, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	lock := s.userLock(user)
	lock.Lock()
	info, err := storage.ReadRecord[models.Account](s.layout.UserFile(user))
	if err != nil {
		lock.Unlock()
		return err
	}
	info.Password = hash
	err = storage.WriteRecord(s.layout.UserFile(user), info)
	lock.Unlock()
	if err != nil {
		return err
	}

	return s.RevokeAll(user)
}

// Visible reports whether owner's profile may be shown to requester:
// owners always see themselves, everyone else only non-private accounts.
func (s *Store) Visible(requester, owner string) (bool, error) {
	if requester == owner {
		return true, nil
	}
	info, err := s.Load(owner)
	if err != nil {
		return false, err
	}
	return !info.Private, nil
}

// ListVisible enumerates all accounts the requester may see, sorted by
// name.
func (s *Store) ListVisible(requester string) ([]string, error) {
	entries, err := os.ReadDir(s.layout.UsersDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !s.Exists(name) {
			continue
		}
		visible, err := s.Visible(requester, name)
		if err != nil {
			return nil, err
		}
		if visible {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListAll enumerates every account regardless of visibility. Used by
// admin cascades (signing-key reset revokes all sessions everywhere).
func (s *Store) ListAll() ([]string, error) {
	entries, err := os.ReadDir(s.layout.UsersDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if s.Exists(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
