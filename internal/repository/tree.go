package repository

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/gitden/gitden/internal/models"
)

// ListBranches returns the local branch names. A repository with no
// commits has no branch refs yet; in that case the single conventional
// name HEAD points at is returned instead.
func (s *Store) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	var branches []string
	err := s.pool.Run(ctx, func() error {
		r, err := s.open(owner, repo)
		if err != nil {
			return err
		}

		iter, err := r.Branches()
		if err != nil {
			return fmt.Errorf("list branches: %w", err)
		}
		err = iter.ForEach(func(ref *plumbing.Reference) error {
			branches = append(branches, ref.Name().Short())
			return nil
		})
		if err != nil {
			return fmt.Errorf("list branches: %w", err)
		}

		if len(branches) == 0 {
			name, err := headBranchName(r)
			if err != nil {
				return err
			}
			branches = []string{name}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(branches)
	return branches, nil
}

// CurrentBranch resolves the branch HEAD points at. The symbolic ref is
// read without resolving it, so an unborn HEAD still yields the default
// branch name instead of an error.
func (s *Store) CurrentBranch(ctx context.Context, owner, repo string) (string, error) {
	var name string
	err := s.pool.Run(ctx, func() error {
		r, err := s.open(owner, repo)
		if err != nil {
			return err
		}
		name, err = headBranchName(r)
		return err
	})
	return name, err
}

// SetBranch repoints HEAD at the named local branch. The branch must
// exist; otherwise ErrBranchNotFound is returned.
func (s *Store) SetBranch(ctx context.Context, owner, repo, branch string) error {
	return s.pool.Run(ctx, func() error {
		r, err := s.open(owner, repo)
		if err != nil {
			return err
		}

		target := plumbing.NewBranchReferenceName(branch)
		if _, err := r.Reference(target, false); err != nil {
			if errors.Is(err, plumbing.ErrReferenceNotFound) {
				return fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
			}
			return fmt.Errorf("resolve branch %s: %w", branch, err)
		}

		return r.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, target))
	})
}

// GetReadme returns the decoded content of the top-level README or
// README.md (case-insensitive) on HEAD, reporting ok=false when HEAD is
// unborn, no such entry exists, or the content is not valid UTF-8.
func (s *Store) GetReadme(ctx context.Context, owner, repo string) (string, bool, error) {
	var (
		content string
		ok      bool
	)
	err := s.pool.Run(ctx, func() error {
		r, err := s.open(owner, repo)
		if err != nil {
			return err
		}
		tree, err := headTree(r)
		if err != nil || tree == nil {
			return err
		}

		for _, entry := range tree.Entries {
			if entry.Mode == filemode.Dir || entry.Mode == filemode.Submodule {
				continue
			}
			if !strings.EqualFold(entry.Name, "README") && !strings.EqualFold(entry.Name, "README.md") {
				continue
			}
			f, err := tree.File(entry.Name)
			if err != nil {
				return fmt.Errorf("read readme: %w", err)
			}
			text, err := f.Contents()
			if err != nil {
				return fmt.Errorf("read readme: %w", err)
			}
			if utf8.ValidString(text) {
				content, ok = text, true
			}
			return nil
		}
		return nil
	})
	return content, ok, err
}

// ListFiles returns the top-level tree entries of HEAD, directories
// before files. An unborn HEAD yields an empty list.
func (s *Store) ListFiles(ctx context.Context, owner, repo string) ([]models.RepoFile, error) {
	var files []models.RepoFile
	err := s.pool.Run(ctx, func() error {
		r, err := s.open(owner, repo)
		if err != nil {
			return err
		}
		tree, err := headTree(r)
		if err != nil || tree == nil {
			return err
		}
		files = listEntries(tree)
		return nil
	})
	return files, err
}

// GetTree resolves relPath (slash-separated, "" for the root) within the
// named branch. It returns nil when the branch has no commits or the path
// does not resolve to a tree or blob. Submodule entries are skipped at
// this boundary, not surfaced as a node kind.
func (s *Store) GetTree(ctx context.Context, owner, repo, branch, relPath string) (*models.TreeNode, error) {
	var node *models.TreeNode
	err := s.pool.Run(ctx, func() error {
		r, err := s.open(owner, repo)
		if err != nil {
			return err
		}

		ref, err := r.Reference(plumbing.NewBranchReferenceName(branch), true)
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve branch %s: %w", branch, err)
		}
		commit, err := r.CommitObject(ref.Hash())
		if err != nil {
			return fmt.Errorf("read commit: %w", err)
		}
		tree, err := commit.Tree()
		if err != nil {
			return fmt.Errorf("read tree: %w", err)
		}

		relPath = strings.Trim(relPath, "/")
		if relPath == "" {
			node = &models.TreeNode{
				Kind:    models.NodeDirectory,
				Entries: listEntries(tree),
			}
			return nil
		}

		entry, err := tree.FindEntry(relPath)
		if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve path %s: %w", relPath, err)
		}

		name := path.Base(relPath)
		switch entry.Mode {
		case filemode.Dir:
			sub, err := tree.Tree(relPath)
			if err != nil {
				return fmt.Errorf("read subtree %s: %w", relPath, err)
			}
			node = &models.TreeNode{
				Name:    name,
				Kind:    models.NodeDirectory,
				Entries: listEntries(sub),
			}
		case filemode.Submodule:
			// Not a tree and not a blob we can read.
		default:
			f, err := tree.File(relPath)
			if err != nil {
				return fmt.Errorf("read blob %s: %w", relPath, err)
			}
			node, err = classifyBlob(name, f)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// classifyBlob builds a Text or Binary node for a resolved file. MIME
// inference from the file name decides first; unknown types fall back to
// a UTF-8 validity check on the content.
func classifyBlob(name string, f *object.File) (*models.TreeNode, error) {
	if binaryByName(name) {
		return &models.TreeNode{Name: name, Kind: models.NodeBinary, Size: f.Size}, nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", name, err)
	}
	if !utf8.ValidString(content) {
		return &models.TreeNode{Name: name, Kind: models.NodeBinary, Size: f.Size}, nil
	}
	return &models.TreeNode{Name: name, Kind: models.NodeText, Content: content}, nil
}

// listEntries converts a tree's direct children to the listing model,
// directories first, each group sorted by name. Entries that are neither
// trees nor blobs (submodule links) are dropped.
func listEntries(tree *object.Tree) []models.RepoFile {
	files := make([]models.RepoFile, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		var kind models.FileKind
		switch entry.Mode {
		case filemode.Dir:
			kind = models.FileKindDirectory
		case filemode.Submodule:
			continue
		default:
			kind = models.FileKindFile
		}
		files = append(files, models.RepoFile{Name: entry.Name, Kind: kind})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Kind != files[j].Kind {
			return files[i].Kind < files[j].Kind
		}
		return files[i].Name < files[j].Name
	})
	return files
}

// headBranchName reads HEAD without resolving it, returning the branch
// name it points at even when the branch has no commits yet.
func headBranchName(r *git.Repository) (string, error) {
	ref, err := r.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if ref.Type() != plumbing.SymbolicReference {
		return "", fmt.Errorf("HEAD is detached")
	}
	return ref.Target().Short(), nil
}

// headTree returns the tree of the commit HEAD resolves to, or nil when
// HEAD is unborn.
func headTree(r *git.Repository) (*object.Tree, error) {
	ref, err := r.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := r.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("read head commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read head tree: %w", err)
	}
	return tree, nil
}
