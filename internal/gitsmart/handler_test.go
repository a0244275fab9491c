package gitsmart

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/gitden/gitden/internal/account"
	"github.com/gitden/gitden/internal/jobs"
	"github.com/gitden/gitden/internal/repository"
	"github.com/gitden/gitden/internal/storage"
)

type handlerFixture struct {
	mux      *http.ServeMux
	accounts *account.Store
	repos    *repository.Store
}

// newHandlerFixture wires the smart HTTP handler against a fresh data
// root, with the given script standing in for the git binary.
func newHandlerFixture(t *testing.T, gitScript string) *handlerFixture {
	t.Helper()

	layout := storage.NewLayout(t.TempDir())
	logger := discardLogger()
	pool := jobs.NewPool(2, logger)
	accounts := account.NewStore(layout)
	repos := repository.NewStore(layout, pool)
	bridge := NewBridge(fakeGit(t, gitScript), logger)

	mux := http.NewServeMux()
	NewHandler(bridge, accounts, repos, layout, pool, logger).RegisterRoutes(mux)

	return &handlerFixture{mux: mux, accounts: accounts, repos: repos}
}

func (f *handlerFixture) addUser(t *testing.T, name, password string) {
	t.Helper()
	created, err := f.accounts.Create(name, password, "", false, false)
	if err != nil || !created {
		t.Fatalf("create account %s: %v, %v", name, created, err)
	}
}

func (f *handlerFixture) addRepo(t *testing.T, owner, name string, private bool) {
	t.Helper()
	created, err := f.repos.Create(context.Background(), owner, name, "", private)
	if err != nil || !created {
		t.Fatalf("create repo %s/%s: %v, %v", owner, name, created, err)
	}
}

func (f *handlerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestInfoRefsAdvertisement(t *testing.T) {
	f := newHandlerFixture(t, `printf 'REFS'`)
	f.addUser(t, "alice", "pw")
	f.addRepo(t, "alice", "proj", false)

	rec := f.do(httptest.NewRequest("GET", "/alice/proj/info/refs?service=git-upload-pack", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/x-git-upload-pack-advertisement" {
		t.Fatalf("Content-Type = %q", got)
	}
	want := "001e# service=git-upload-pack\n0000REFS"
	if got := rec.Body.String(); got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
}

func TestInfoRefsStripsDotGitSuffix(t *testing.T) {
	f := newHandlerFixture(t, `printf 'REFS'`)
	f.addUser(t, "alice", "pw")
	f.addRepo(t, "alice", "proj", false)

	rec := f.do(httptest.NewRequest("GET", "/alice/proj.git/info/refs?service=git-upload-pack", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestInfoRefsUnsupportedService(t *testing.T) {
	f := newHandlerFixture(t, `printf 'REFS'`)
	f.addUser(t, "alice", "pw")
	f.addRepo(t, "alice", "proj", false)

	for _, query := range []string{"", "?service=git-shell", "?service=upload-pack"} {
		rec := f.do(httptest.NewRequest("GET", "/alice/proj/info/refs"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status for %q = %d, want 400", query, rec.Code)
		}
	}
}

// A request for a repository that does not exist must be answered from
// the handler's own checks. The stand-in git binary aborts, so a spawn
// would surface as a 500.
func TestInfoRefsUnknownRepo(t *testing.T) {
	f := newHandlerFixture(t, `exit 70`)
	f.addUser(t, "alice", "pw")

	rec := f.do(httptest.NewRequest("GET", "/alice/ghost/info/refs?service=git-upload-pack", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestInfoRefsPrivateRepo(t *testing.T) {
	f := newHandlerFixture(t, `printf 'REFS'`)
	f.addUser(t, "alice", "pw")
	f.addUser(t, "bob", "pw")
	f.addRepo(t, "alice", "secret", true)

	// Anonymous clients are asked to authenticate.
	rec := f.do(httptest.NewRequest("GET", "/alice/secret/info/refs?service=git-upload-pack", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Basic") {
		t.Fatalf("WWW-Authenticate = %q, want a basic auth challenge", got)
	}

	// An authenticated non-owner learns nothing about the repository.
	req := httptest.NewRequest("GET", "/alice/secret/info/refs?service=git-upload-pack", nil)
	req.SetBasicAuth("bob", "pw")
	if rec := f.do(req); rec.Code != http.StatusNotFound {
		t.Fatalf("non-owner status = %d, want 404", rec.Code)
	}

	// The owner gets the advertisement.
	req = httptest.NewRequest("GET", "/alice/secret/info/refs?service=git-upload-pack", nil)
	req.SetBasicAuth("alice", "pw")
	if rec := f.do(req); rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d, want 200", rec.Code)
	}
}

func TestInfoRefsWrongPassword(t *testing.T) {
	f := newHandlerFixture(t, `printf 'REFS'`)
	f.addUser(t, "alice", "pw")
	f.addRepo(t, "alice", "proj", false)

	req := httptest.NewRequest("GET", "/alice/proj/info/refs?service=git-upload-pack", nil)
	req.SetBasicAuth("alice", "wrong")
	if rec := f.do(req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestReceivePackRequiresOwner(t *testing.T) {
	f := newHandlerFixture(t, `exec cat`)
	f.addUser(t, "alice", "pw")
	f.addUser(t, "bob", "pw")
	f.addRepo(t, "alice", "proj", false)

	// Anonymous pushes get the auth challenge.
	rec := f.do(httptest.NewRequest("POST", "/alice/proj/git-receive-pack", strings.NewReader("")))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	// Authenticated non-owners are denied without acknowledgment.
	req := httptest.NewRequest("POST", "/alice/proj/git-receive-pack", strings.NewReader(""))
	req.SetBasicAuth("bob", "pw")
	if rec := f.do(req); rec.Code != http.StatusNotFound {
		t.Fatalf("non-owner status = %d, want 404", rec.Code)
	}
}

func TestUploadPackStreamsExchange(t *testing.T) {
	f := newHandlerFixture(t, `exec cat`)
	f.addUser(t, "alice", "pw")
	f.addRepo(t, "alice", "proj", false)

	rec := f.do(httptest.NewRequest("POST", "/alice/proj/git-upload-pack", strings.NewReader("0009want\n0000")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/x-git-upload-pack-result" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := rec.Body.String(); got != "0009want\n0000" {
		t.Fatalf("body = %q, want the echoed request", got)
	}
}

func TestUploadPackGzipRequestBody(t *testing.T) {
	f := newHandlerFixture(t, `exec cat`)
	f.addUser(t, "alice", "pw")
	f.addRepo(t, "alice", "proj", false)

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write([]byte("0009want\n0000")); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	req := httptest.NewRequest("POST", "/alice/proj/git-upload-pack", &compressed)
	req.Header.Set("Content-Encoding", "gzip")
	rec := f.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "0009want\n0000" {
		t.Fatalf("body = %q, want the decompressed request echoed back", got)
	}
}
