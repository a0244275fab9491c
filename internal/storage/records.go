package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound reports that no record exists at the given path. Callers
// that can create on first use (token sets, settings) match it with
// errors.Is; every other read/parse failure indicates storage-layer
// inconsistency and is propagated as-is.
var ErrNotFound = errors.New("record not found")

// WriteRecord serializes record as pretty-printed JSON and commits it to
// path with an atomic replace: the bytes go to a "~"-prefixed sibling
// first and are renamed over the target, so a crash leaves either the old
// or the new content, never a torn file.
//
// No locking happens here. Callers must serialize concurrent writers to
// the same path.
func WriteRecord(path string, record any) error {
	buf, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	buf = append(buf, '\n')

	tmp := TempSibling(path)
	if err := os.WriteFile(tmp, buf, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadRecord loads and decodes the JSON record at path. A missing file
// yields ErrNotFound; anything else is a hard error.
func ReadRecord[T any](path string) (T, error) {
	var rec T

	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return rec, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(buf, &rec); err != nil {
		return rec, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}
