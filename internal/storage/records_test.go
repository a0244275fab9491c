package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteAndReadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")

	want := testRecord{Name: "alpha", Count: 3}
	if err := WriteRecord(path, want); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	got, err := ReadRecord[testRecord](path)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if got != want {
		t.Fatalf("ReadRecord = %+v, want %+v", got, want)
	}
}

func TestWriteRecordLeavesNoTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")

	if err := WriteRecord(path, testRecord{Name: "beta"}); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if _, err := os.Stat(TempSibling(path)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp sibling still exists after commit")
	}
}

func TestReadRecordNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	_, err := ReadRecord[testRecord](path)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReadRecord error = %v, want ErrNotFound", err)
	}
}

func TestReadRecordCorruptIsNotNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := ReadRecord[testRecord](path)
	if err == nil {
		t.Fatalf("ReadRecord succeeded on corrupt file")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("corrupt record reported as NotFound")
	}
}

// A crash between the temp write and the rename must leave the previous
// record intact. Simulate by dropping a half-written temp sibling next to
// a committed record.
func TestCrashBeforeRenameKeepsOldRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")

	want := testRecord{Name: "stable", Count: 1}
	if err := WriteRecord(path, want); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := os.WriteFile(TempSibling(path), []byte(`{"name":"par`), 0o600); err != nil {
		t.Fatalf("WriteFile temp: %v", err)
	}

	got, err := ReadRecord[testRecord](path)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if got != want {
		t.Fatalf("ReadRecord = %+v, want %+v", got, want)
	}
}

func TestWriteRecordReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")

	if err := WriteRecord(path, testRecord{Name: "old"}); err != nil {
		t.Fatalf("WriteRecord old: %v", err)
	}
	if err := WriteRecord(path, testRecord{Name: "new", Count: 2}); err != nil {
		t.Fatalf("WriteRecord new: %v", err)
	}

	got, err := ReadRecord[testRecord](path)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if got.Name != "new" || got.Count != 2 {
		t.Fatalf("ReadRecord = %+v, want the replacement record", got)
	}
}
