package account

import (
	"os"
	"reflect"
	"testing"

	"github.com/gitden/gitden/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.NewLayout(t.TempDir()))
}

func mustCreate(t *testing.T, s *Store, user, password string, private bool) {
	t.Helper()
	created, err := s.Create(user, password, "", private, false)
	if err != nil {
		t.Fatalf("Create(%q): %v", user, err)
	}
	if !created {
		t.Fatalf("Create(%q) = false, want true", user)
	}
}

func TestCreateAndLoad(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "alice", "hunter2", false)

	if !s.Exists("alice") {
		t.Fatalf("Exists(alice) = false after Create")
	}
	info, err := s.Load("alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.Username != "alice" || info.Private || info.Admin {
		t.Fatalf("Load = %+v, want public non-admin alice", info)
	}
	if info.Password == "hunter2" {
		t.Fatalf("password stored in the clear")
	}
	if _, err := os.Stat(s.layout.UserReposDir("alice")); err != nil {
		t.Fatalf("repos dir not created: %v", err)
	}
}

func TestCreateExistingIsNoop(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "alice", "first", true)

	created, err := s.Create("alice", "second", "new description", false, true)
	if err != nil {
		t.Fatalf("Create again: %v", err)
	}
	if created {
		t.Fatalf("Create again = true, want false")
	}

	info, err := s.Load("alice")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !info.Private || info.Admin || info.Description != "" {
		t.Fatalf("existing record was modified: %+v", info)
	}
	ok, err := s.VerifyPassword("alice", "first")
	if err != nil || !ok {
		t.Fatalf("VerifyPassword(first) = %v, %v, want true", ok, err)
	}
}

func TestCreateRejectsInvalidUsername(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", "Alice", "../etc", "a b", "-lead", ".hidden"} {
		if _, err := s.Create(name, "pw", "", false, false); err == nil {
			t.Errorf("Create(%q) accepted invalid username", name)
		}
	}
}

func TestVerifyPassword(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "alice", "hunter2", false)

	ok, err := s.VerifyPassword("alice", "hunter2")
	if err != nil || !ok {
		t.Fatalf("correct password: got %v, %v, want true", ok, err)
	}
	ok, err = s.VerifyPassword("alice", "wrong")
	if err != nil || ok {
		t.Fatalf("wrong password: got %v, %v, want false", ok, err)
	}
	ok, err = s.VerifyPassword("nobody", "hunter2")
	if err != nil || ok {
		t.Fatalf("unknown user: got %v, %v, want false without error", ok, err)
	}
}

func TestChangePasswordRevokesTokens(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "alice", "old", false)
	token, err := s.IssueToken("alice")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if err := s.ChangePassword("alice", "new"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	ok, _ := s.VerifyPassword("alice", "old")
	if ok {
		t.Fatalf("old password still verifies")
	}
	ok, _ = s.VerifyPassword("alice", "new")
	if !ok {
		t.Fatalf("new password does not verify")
	}
	ok, _ = s.VerifyToken("alice", token)
	if ok {
		t.Fatalf("token survived a password change")
	}
}

func TestVisible(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "pub", "pw", false)
	mustCreate(t, s, "priv", "pw", true)

	tests := []struct {
		requester, owner string
		want             bool
	}{
		{"", "pub", true},
		{"", "priv", false},
		{"pub", "priv", false},
		{"priv", "priv", true},
		{"priv", "pub", true},
	}
	for _, tt := range tests {
		got, err := s.Visible(tt.requester, tt.owner)
		if err != nil {
			t.Fatalf("Visible(%q, %q): %v", tt.requester, tt.owner, err)
		}
		if got != tt.want {
			t.Errorf("Visible(%q, %q) = %v, want %v", tt.requester, tt.owner, got, tt.want)
		}
	}
}

func TestListVisible(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "zed", "pw", false)
	mustCreate(t, s, "ann", "pw", false)
	mustCreate(t, s, "hid", "pw", true)

	got, err := s.ListVisible("")
	if err != nil {
		t.Fatalf("ListVisible: %v", err)
	}
	if want := []string{"ann", "zed"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ListVisible(anonymous) = %v, want %v", got, want)
	}

	got, err = s.ListVisible("hid")
	if err != nil {
		t.Fatalf("ListVisible: %v", err)
	}
	if want := []string{"ann", "hid", "zed"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ListVisible(hid) = %v, want %v", got, want)
	}
}

func TestListVisibleEmptyRoot(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListVisible("")
	if err != nil {
		t.Fatalf("ListVisible: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("ListVisible on empty root = %v, want empty", got)
	}
}

func TestListAllIgnoresStrayDirectories(t *testing.T) {
	s := newTestStore(t)

	mustCreate(t, s, "alice", "pw", true)
	if err := os.MkdirAll(s.layout.UserDir("stray"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	got, err := s.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if want := []string{"alice"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ListAll = %v, want %v", got, want)
	}
}
