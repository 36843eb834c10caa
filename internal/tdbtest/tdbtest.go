// Package tdbtest provides fixture helpers for building trees of files with
// precise, settable modification times, the way the seed scenarios in
// spec.md §8 require. Adapted from distr1/distri's internal/distritest,
// keeping its fail-the-test-on-cleanup-error RemoveAll and dropping the
// distri-export-process helper that package also had, which has no
// equivalent in a generic build engine.
package tdbtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// RemoveAll wraps os.RemoveAll and fails the test on failure.
func RemoveAll(t testing.TB, path string) {
	t.Helper()
	if err := os.RemoveAll(path); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

// TouchFile creates path (and any missing parent directories) with the
// given content, then sets its mtime to the given number of Unix
// milliseconds, so tests can set up exact freshness scenarios.
func TouchFile(t testing.TB, path string, content string, mtimeMillis int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	SetMtime(t, path, mtimeMillis)
}

// SetMtime sets path's access and modification time to the given number of
// Unix milliseconds.
func SetMtime(t testing.TB, path string, mtimeMillis int64) {
	t.Helper()
	mt := time.UnixMilli(mtimeMillis)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("setting mtime of %s: %v", path, err)
	}
}
