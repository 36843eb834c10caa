package tdbuild

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/distr1/tdbuild/internal/tdbtest"
	"github.com/google/go-cmp/cmp"
)

func writeRule(target string, content string, prereqs ...string) *Rule {
	return &Rule{
		Type:    File,
		Prereqs: StaticPrereqs(prereqs...),
		Invoke: func(ctx context.Context, bc *BuildContext) error {
			return os.WriteFile(bc.Target, []byte(content), 0o644)
		},
	}
}

func TestHappyRebuild(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	c := filepath.Join(dir, "c.txt")
	tdbtest.TouchFile(t, a, "A", 100)
	tdbtest.TouchFile(t, b, "B", 200)
	tdbtest.TouchFile(t, c, "stale", 150)

	coord := NewCoordinator(Config{
		Rules: map[TargetName]*Rule{
			c: writeRule(c, "C", a, b),
		},
	})
	res, err := coord.Build(context.Background(), c, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Mtime == NegInf {
		t.Fatalf("expected a finite mtime, got NegInf")
	}
	got, err := os.ReadFile(c)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("C", string(got)); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
}

func TestAlreadyUpToDate(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	c := filepath.Join(dir, "c.txt")
	tdbtest.TouchFile(t, a, "A", 100)
	tdbtest.TouchFile(t, b, "B", 200)
	tdbtest.TouchFile(t, c, "already-built", 300)

	var invoked int32
	coord := NewCoordinator(Config{
		Rules: map[TargetName]*Rule{
			c: {
				Type:    File,
				Prereqs: StaticPrereqs(a, b),
				Invoke: func(ctx context.Context, bc *BuildContext) error {
					atomic.AddInt32(&invoked, 1)
					return os.WriteFile(bc.Target, []byte("C"), 0o644)
				},
			},
		},
	})
	res, err := coord.Build(context.Background(), c, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if invoked != 0 {
		t.Errorf("callable invoked %d times, want 0", invoked)
	}
	if res.Mtime != Mtime(300) {
		t.Errorf("mtime = %v, want 300", res.Mtime)
	}
}

func TestSidecarMtimeOverride(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	c := filepath.Join(dir, "c.txt")
	os.WriteFile(a, []byte("A"), 0o644)
	os.WriteFile(b, []byte("B"), 0o644)
	os.WriteFile(c, []byte("C is NOT built!"), 0o644)

	sidecar := map[string]int64{a: 100, b: 200, c: 300}
	oracle := func(path string) (Mtime, bool, error) {
		if m, ok := sidecar[path]; ok {
			return Mtime(m), true, nil
		}
		return 0, false, nil
	}

	newCoord := func() *Coordinator {
		return NewCoordinator(Config{
			Oracle: oracle,
			Rules: map[TargetName]*Rule{
				c: writeRule(c, "C is built!", a, b),
			},
		})
	}

	if _, err := newCoord().Build(context.Background(), c, nil); err != nil {
		t.Fatalf("Build (not stale): %v", err)
	}
	got, _ := os.ReadFile(c)
	if diff := cmp.Diff("C is NOT built!", string(got)); diff != "" {
		t.Errorf("unexpected rebuild (-want +got):\n%s", diff)
	}

	sidecar[c] = 50
	if _, err := newCoord().Build(context.Background(), c, nil); err != nil {
		t.Fatalf("Build (stale): %v", err)
	}
	got, _ = os.ReadFile(c)
	if diff := cmp.Diff("C is built!", string(got)); diff != "" {
		t.Errorf("expected rebuild (-want +got):\n%s", diff)
	}
}

func TestMissingTargetWithoutRule(t *testing.T) {
	coord := NewCoordinator(Config{Rules: map[TargetName]*Rule{}})
	_, err := coord.Build(context.Background(), "nope.txt", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	trace, ok := Trace(err)
	if !ok {
		t.Fatalf("error has no trace: %v", err)
	}
	if diff := cmp.Diff([]string{"root", "nope.txt"}, trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if te, ok := err.(*TracedError); ok {
		if _, ok := te.Err.(*MissingTargetError); !ok {
			t.Errorf("underlying error = %T, want *MissingTargetError", te.Err)
		}
	} else {
		t.Errorf("err = %T, want *TracedError", err)
	}
}

func TestFailureKeepPolicy(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "partial.auto")

	failingRule := func(typ TargetType) *Rule {
		return &Rule{
			Type: typ,
			Invoke: func(ctx context.Context, bc *BuildContext) error {
				if err := os.WriteFile(bc.Target, []byte("partial"), 0o644); err != nil {
					return err
				}
				return errBoom
			},
		}
	}

	coord := NewCoordinator(Config{Rules: map[TargetName]*Rule{target: failingRule(Auto)}})
	if _, err := coord.Build(context.Background(), target, nil); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("auto-typed target should be kept on failure: %v", err)
	}
	os.Remove(target)

	coord2 := NewCoordinator(Config{Rules: map[TargetName]*Rule{target: failingRule(File)}})
	if _, err := coord2.Build(context.Background(), target, nil); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("file-typed target should be deleted on failure, stat err = %v", err)
	}
}

func TestConcurrentSharedPrereq(t *testing.T) {
	dir := t.TempDir()
	shared := filepath.Join(dir, "shared.txt")
	e1 := filepath.Join(dir, "e1.txt")
	e2 := filepath.Join(dir, "e2.txt")
	d := filepath.Join(dir, "d.txt")

	var sharedBuilds int32
	coord := NewCoordinator(Config{
		Parallel: true,
		Rules: map[TargetName]*Rule{
			shared: {
				Type: File,
				Invoke: func(ctx context.Context, bc *BuildContext) error {
					atomic.AddInt32(&sharedBuilds, 1)
					return os.WriteFile(bc.Target, []byte("shared"), 0o644)
				},
			},
			e1: {Type: File, Prereqs: StaticPrereqs(shared), Invoke: writeFile("e1")},
			e2: {Type: File, Prereqs: StaticPrereqs(shared), Invoke: writeFile("e2")},
			d:  {Type: File, Prereqs: StaticPrereqs(e1, e2), Invoke: writeFile("d")},
		},
	})
	if _, err := coord.Build(context.Background(), d, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if sharedBuilds != 1 {
		t.Errorf("shared built %d times, want 1", sharedBuilds)
	}
}

func writeFile(content string) BuildFunc {
	return func(ctx context.Context, bc *BuildContext) error {
		return os.WriteFile(bc.Target, []byte(content), 0o644)
	}
}

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom = boomError{}
