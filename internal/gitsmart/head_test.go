package gitsmart

import (
	"path/filepath"
	"strings"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// initBare creates a bare repository whose unborn HEAD points at head,
// then adds a hash ref for each named branch. HEAD adjustment only reads
// references, so the refs point at a made-up hash and no objects are
// ever written.
func initBare(t *testing.T, head string, branches ...string) (string, *git.Repository) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "repo.git")
	r, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		Bare: true,
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(head),
		},
	})
	if err != nil {
		t.Fatalf("PlainInitWithOptions: %v", err)
	}

	hash := plumbing.NewHash(strings.Repeat("ab", 20))
	for _, name := range branches {
		ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
		if err := r.Storer.SetReference(ref); err != nil {
			t.Fatalf("set ref %s: %v", name, err)
		}
	}
	return dir, r
}

func headTarget(t *testing.T, r *git.Repository) plumbing.ReferenceName {
	t.Helper()
	ref, err := r.Reference(plumbing.HEAD, false)
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}
	return ref.Target()
}

func TestAdjustHeadNoopWhenHeadResolves(t *testing.T) {
	dir, r := initBare(t, "main", "main", "other")

	if err := AdjustHead(dir); err != nil {
		t.Fatalf("AdjustHead: %v", err)
	}
	if got := headTarget(t, r); got != plumbing.Main {
		t.Fatalf("HEAD target = %s, want %s", got, plumbing.Main)
	}
}

func TestAdjustHeadPrefersMain(t *testing.T) {
	dir, r := initBare(t, "trunk", "feature", "main", "master")

	if err := AdjustHead(dir); err != nil {
		t.Fatalf("AdjustHead: %v", err)
	}
	if got := headTarget(t, r); got != plumbing.Main {
		t.Fatalf("HEAD target = %s, want %s", got, plumbing.Main)
	}
}

func TestAdjustHeadFallsBackToMaster(t *testing.T) {
	dir, r := initBare(t, "main", "master")

	if err := AdjustHead(dir); err != nil {
		t.Fatalf("AdjustHead: %v", err)
	}
	if got := headTarget(t, r); got != plumbing.Master {
		t.Fatalf("HEAD target = %s, want %s", got, plumbing.Master)
	}
}

func TestAdjustHeadFallsBackToFirstBranch(t *testing.T) {
	dir, r := initBare(t, "main", "feature")

	if err := AdjustHead(dir); err != nil {
		t.Fatalf("AdjustHead: %v", err)
	}
	want := plumbing.NewBranchReferenceName("feature")
	if got := headTarget(t, r); got != want {
		t.Fatalf("HEAD target = %s, want %s", got, want)
	}
}

func TestAdjustHeadEmptyRepoIsNoop(t *testing.T) {
	dir, r := initBare(t, "main")

	if err := AdjustHead(dir); err != nil {
		t.Fatalf("AdjustHead: %v", err)
	}
	if got := headTarget(t, r); got != plumbing.Main {
		t.Fatalf("HEAD target = %s, want %s untouched", got, plumbing.Main)
	}
}
