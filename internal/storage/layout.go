// Package storage provides the on-disk layout of the data directory and
// crash-consistent persistence for the JSON records stored in it.
package storage

import "path/filepath"

// Layout maps user and repository identifiers to canonical filesystem
// locations under a single data root. It performs no I/O; every other
// component goes through it instead of building paths by hand.
//
//	<root>/settings.json
//	<root>/users/<user>/user.json
//	<root>/users/<user>/tokens.json
//	<root>/users/<user>/repos/<repo>/repo.json
//	<root>/users/<user>/repos/<repo>/repo.git/
type Layout struct {
	root string
}

func NewLayout(root string) Layout {
	return Layout{root: root}
}

func (l Layout) Root() string { return l.root }

func (l Layout) SettingsFile() string {
	return filepath.Join(l.root, "settings.json")
}

func (l Layout) UsersDir() string {
	return filepath.Join(l.root, "users")
}

func (l Layout) UserDir(user string) string {
	return filepath.Join(l.UsersDir(), user)
}

func (l Layout) UserFile(user string) string {
	return filepath.Join(l.UserDir(user), "user.json")
}

func (l Layout) UserTokensFile(user string) string {
	return filepath.Join(l.UserDir(user), "tokens.json")
}

func (l Layout) UserReposDir(user string) string {
	return filepath.Join(l.UserDir(user), "repos")
}

func (l Layout) RepoDir(user, repo string) string {
	return filepath.Join(l.UserReposDir(user), repo)
}

func (l Layout) RepoFile(user, repo string) string {
	return filepath.Join(l.RepoDir(user, repo), "repo.json")
}

func (l Layout) RepoGitDir(user, repo string) string {
	return filepath.Join(l.RepoDir(user, repo), "repo.git")
}

// TempSibling returns the temporary path the record store writes to
// before renaming over path: the same directory, with a "~" prefix on the
// file name.
func TempSibling(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "~"+base)
}
