package tdbuild

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryGeneratedOverwritesStatic(t *testing.T) {
	calls := 0
	r := newRegistry(
		map[TargetName]*Rule{
			"a": {Description: "static a"},
			"b": {Description: "static b"},
		},
		func() (map[TargetName]*Rule, error) {
			calls++
			return map[TargetName]*Rule{
				"a": {Description: "generated a"},
				"c": {Description: "generated c"},
			}, nil
		},
	)

	merged, order, err := r.materialize()
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if diff := cmp.Diff("generated a", merged["a"].Description); diff != "" {
		t.Errorf("generated should overwrite static (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("static b", merged["b"].Description); diff != "" {
		t.Errorf("static-only rule should survive (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	// A second materialize call must not invoke the generated-rules hook
	// again: it is resolved once and cached forever.
	if _, _, err := r.materialize(); err != nil {
		t.Fatalf("materialize (2nd): %v", err)
	}
	if calls != 1 {
		t.Errorf("generated-rules hook called %d times, want 1", calls)
	}
}

func TestRegistryLookupMissing(t *testing.T) {
	r := newRegistry(map[TargetName]*Rule{"a": {}}, nil)
	if _, ok, err := r.lookup("missing"); err != nil || ok {
		t.Errorf("lookup(missing) = (_, %v, %v), want (_, false, nil)", ok, err)
	}
}
