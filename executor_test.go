package tdbuild

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRewriteArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		prereqs []string
		want    []string
		wantErr bool
	}{
		{
			name:    "literal escape hatch",
			args:    []string{"cc", "tdb:literal:tdb:target", "-o", "tdb:target"},
			prereqs: []string{"main.c"},
			want:    []string{"cc", "tdb:target", "-o", "out"},
		},
		{
			name:    "prereq splice",
			args:    []string{"ld", "tdb:prereqs", "-o", "tdb:target"},
			prereqs: []string{"a.o", "b.o"},
			want:    []string{"ld", "a.o", "b.o", "-o", "out"},
		},
		{
			name:    "single prereq",
			args:    []string{"cc", "-c", "tdb:prereq"},
			prereqs: []string{"main.c", "extra.h"},
			want:    []string{"cc", "-c", "main.c"},
		},
		{
			name:    "prereq with none available",
			args:    []string{"cc", "tdb:prereq"},
			prereqs: nil,
			wantErr: true,
		},
		{
			name:    "unknown directive",
			args:    []string{"cc", "tdb:bogus"},
			prereqs: nil,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewriteArgs("out", tt.prereqs, tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("rewriteArgs: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveCallableConfigConflict(t *testing.T) {
	rule := &Rule{
		Invoke: func(ctx context.Context, bc *BuildContext) error { return nil },
		Cmd:    []string{"true"},
	}
	_, err := resolveCallable(rule, "t", []string{"root", "t"})
	if err == nil {
		t.Fatal("expected a configuration error")
	}
	var ce *ConfigError
	if te, ok := err.(*TracedError); ok {
		var ok2 bool
		ce, ok2 = te.Err.(*ConfigError)
		if !ok2 {
			t.Fatalf("underlying error = %T, want *ConfigError", te.Err)
		}
	} else {
		t.Fatalf("err = %T, want *TracedError", err)
	}
	_ = ce
}
