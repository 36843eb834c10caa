package tdbuild

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/distr1/tdbuild/internal/tdbtest"
)

func TestFreshnessOracleDirectoryRecursion(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	tdbtest.TouchFile(t, filepath.Join(dir, "a"), "a", 100)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	tdbtest.TouchFile(t, filepath.Join(sub, "b"), "b", 500)
	tdbtest.SetMtime(t, dir, 200)
	tdbtest.SetMtime(t, sub, 300)

	o := newFreshnessOracle(nil)
	m, err := o.mtime(dir, onNotFoundReturn(NegInf), PosInf)
	if err != nil {
		t.Fatalf("mtime: %v", err)
	}
	if m != Mtime(500) {
		t.Errorf("mtime = %v, want 500 (deepest nested file wins)", m)
	}
}

func TestFreshnessOracleNotFoundPolicy(t *testing.T) {
	o := newFreshnessOracle(nil)
	m, err := o.mtime(filepath.Join(t.TempDir(), "missing"), onNotFoundReturn(NegInf), PosInf)
	if err != nil {
		t.Fatalf("mtime: %v", err)
	}
	if m != NegInf {
		t.Errorf("mtime = %v, want NegInf", m)
	}

	_, err = o.mtime(filepath.Join(t.TempDir(), "missing"), onNotFoundError(), PosInf)
	if err == nil {
		t.Error("expected an error with onNotFoundError policy")
	}
}

func TestFreshnessOracleAlternate(t *testing.T) {
	called := false
	alt := func(path string) (Mtime, bool, error) {
		called = true
		return Mtime(42), true, nil
	}
	o := newFreshnessOracle(alt)
	m, err := o.mtime("/nonexistent/path", onNotFoundReturn(NegInf), PosInf)
	if err != nil {
		t.Fatalf("mtime: %v", err)
	}
	if !called {
		t.Error("alternate oracle was not consulted")
	}
	if m != Mtime(42) {
		t.Errorf("mtime = %v, want 42", m)
	}
}
