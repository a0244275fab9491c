// Package repository manages per-user git repositories: the metadata
// record and bare repository directory on disk, and read access to
// branches, trees, and blobs through go-git.
package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/gitden/gitden/internal/jobs"
	"github.com/gitden/gitden/internal/models"
	"github.com/gitden/gitden/internal/storage"
)

// ErrBranchNotFound reports that a named local branch does not exist.
var ErrBranchNotFound = errors.New("branch not found")

var validRepoName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidName reports whether name is acceptable as a repository name. The
// rule rejects anything that could escape the repos directory or collide
// with the bare repo.git folder.
func ValidName(name string) bool {
	if name == "." || name == ".." || strings.HasSuffix(name, ".git") {
		return false
	}
	return validRepoName.MatchString(name)
}

// Store provides all repository operations, scoped per call to an
// (owner, repo) pair resolved through the path layout. Blocking git and
// disk work runs on the shared jobs pool.
type Store struct {
	layout storage.Layout
	pool   *jobs.Pool
}

func NewStore(layout storage.Layout, pool *jobs.Pool) *Store {
	return &Store{layout: layout, pool: pool}
}

// Exists requires both the metadata record and the bare repository
// directory. A partially created repository counts as nonexistent.
func (s *Store) Exists(owner, repo string) bool {
	if _, err := os.Stat(s.layout.RepoFile(owner, repo)); err != nil {
		return false
	}
	if _, err := os.Stat(s.layout.RepoGitDir(owner, repo)); err != nil {
		return false
	}
	return true
}

// Create sets up the repository directory, metadata record, and an empty
// bare git repository with HEAD on main. Returns (false, nil) when the
// repository already exists.
func (s *Store) Create(ctx context.Context, owner, repo, description string, private bool) (bool, error) {
	if !ValidName(repo) {
		return false, fmt.Errorf("invalid repository name: %q", repo)
	}
	if s.Exists(owner, repo) {
		return false, nil
	}

	if err := os.MkdirAll(s.layout.RepoDir(owner, repo), 0o755); err != nil {
		return false, fmt.Errorf("create repo dir: %w", err)
	}
	err := storage.WriteRecord(s.layout.RepoFile(owner, repo), models.RepoMeta{
		Name:        repo,
		Description: description,
		Private:     private,
	})
	if err != nil {
		return false, err
	}

	gitDir := s.layout.RepoGitDir(owner, repo)
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		return false, fmt.Errorf("create repo git dir: %w", err)
	}

	err = s.pool.Run(ctx, func() error {
		_, err := git.PlainInitWithOptions(gitDir, &git.PlainInitOptions{
			Bare: true,
			InitOptions: git.InitOptions{
				DefaultBranch: plumbing.Main,
			},
		})
		if err != nil {
			return fmt.Errorf("init bare repo: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the repository directory, taking the metadata record and
// bare repository with it in one step. Returns (false, nil) when the
// repository does not exist.
func (s *Store) Delete(owner, repo string) (bool, error) {
	if !s.Exists(owner, repo) {
		return false, nil
	}
	if err := os.RemoveAll(s.layout.RepoDir(owner, repo)); err != nil {
		return false, fmt.Errorf("remove repo dir: %w", err)
	}
	return true, nil
}

// Visible applies the same rule as accounts: the owner always sees their
// repository, everyone else only non-private ones.
func (s *Store) Visible(requester, owner, repo string) (bool, error) {
	if requester == owner {
		return true, nil
	}
	meta, err := s.LoadMeta(owner, repo)
	if err != nil {
		return false, err
	}
	return !meta.Private, nil
}

// LoadMeta returns the stored metadata record.
func (s *Store) LoadMeta(owner, repo string) (models.RepoMeta, error) {
	return storage.ReadRecord[models.RepoMeta](s.layout.RepoFile(owner, repo))
}

// SaveMeta atomically overwrites the metadata record.
func (s *Store) SaveMeta(owner string, meta models.RepoMeta) error {
	return storage.WriteRecord(s.layout.RepoFile(owner, meta.Name), meta)
}

// List enumerates the owner's repositories visible to the requester,
// skipping partially created ones.
func (s *Store) List(owner, requester string) ([]models.RepoMeta, error) {
	entries, err := os.ReadDir(s.layout.UserReposDir(owner))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}

	var repos []models.RepoMeta
	for _, entry := range entries {
		name := entry.Name()
		if !s.Exists(owner, name) {
			continue
		}
		visible, err := s.Visible(requester, owner, name)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		meta, err := s.LoadMeta(owner, name)
		if err != nil {
			return nil, err
		}
		repos = append(repos, meta)
	}
	return repos, nil
}

// open opens the bare repository for read access.
func (s *Store) open(owner, repo string) (*git.Repository, error) {
	r, err := git.PlainOpen(s.layout.RepoGitDir(owner, repo))
	if err != nil {
		return nil, fmt.Errorf("open repo %s/%s: %w", owner, repo, err)
	}
	return r, nil
}
