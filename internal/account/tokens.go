package account

import (
	"errors"

	"github.com/google/uuid"

	"github.com/gitden/gitden/internal/storage"
)

// tokenSet is the persisted set of live session tokens for one user,
// stored as a JSON array in tokens.json.
type tokenSet []uuid.UUID

func (t tokenSet) contains(token uuid.UUID) bool {
	for _, have := range t {
		if have == token {
			return true
		}
	}
	return false
}

// IssueToken mints a fresh random token and adds it to the user's set.
func (s *Store) IssueToken(user string) (uuid.UUID, error) {
	token := uuid.New()
	err := s.editTokens(user, func(tokens tokenSet) tokenSet {
		if tokens.contains(token) {
			return tokens
		}
		return append(tokens, token)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return token, nil
}

// VerifyToken reports membership of token in the user's persisted set. A
// user with no token file simply has no valid tokens.
func (s *Store) VerifyToken(user string, token uuid.UUID) (bool, error) {
	tokens, err := storage.ReadRecord[tokenSet](s.layout.UserTokensFile(user))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tokens.contains(token), nil
}

// RevokeToken removes a single token (logout).
func (s *Store) RevokeToken(user string, token uuid.UUID) error {
	return s.editTokens(user, func(tokens tokenSet) tokenSet {
		out := tokens[:0]
		for _, have := range tokens {
			if have != token {
				out = append(out, have)
			}
		}
		return out
	})
}

// RevokeAll drops every token the user holds.
func (s *Store) RevokeAll(user string) error {
	return s.editTokens(user, func(tokenSet) tokenSet {
		return tokenSet{}
	})
}

// editTokens performs the read-modify-write cycle on the token set under
// the user's lock: load the existing set (empty when absent), apply the
// edit, and commit atomically.
func (s *Store) editTokens(user string, edit func(tokenSet) tokenSet) error {
	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	path := s.layout.UserTokensFile(user)
	tokens, err := storage.ReadRecord[tokenSet](path)
	if errors.Is(err, storage.ErrNotFound) {
		tokens = tokenSet{}
	} else if err != nil {
		return err
	}

	return storage.WriteRecord(path, edit(tokens))
}
