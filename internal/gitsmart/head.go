package gitsmart

import (
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// AdjustHead repairs an unborn HEAD after the first push: when HEAD still
// points at a branch no push ever created, it is retargeted to main,
// master, or failing those the first local branch. A repository that
// remains empty is left alone.
func AdjustHead(repoPath string) error {
	r, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}

	if _, err := r.Head(); err == nil {
		return nil
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	target, err := firstBranch(r)
	if err != nil || target == "" {
		return err
	}
	return r.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, target))
}

func firstBranch(r *git.Repository) (plumbing.ReferenceName, error) {
	for _, name := range []plumbing.ReferenceName{plumbing.Main, plumbing.Master} {
		if _, err := r.Reference(name, false); err == nil {
			return name, nil
		}
	}

	iter, err := r.Branches()
	if err != nil {
		return "", fmt.Errorf("list branches: %w", err)
	}
	var first plumbing.ReferenceName
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		first = ref.Name()
		return storer.ErrStop
	})
	if err != nil {
		return "", fmt.Errorf("list branches: %w", err)
	}
	return first, nil
}
