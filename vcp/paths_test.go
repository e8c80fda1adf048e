package vcp

import (
	"errors"
	"testing"
)

func TestGetNestedValue(t *testing.T) {
	root := map[string]any{
		"call": map[string]any{
			"meta": map[string]any{"id": "abc"},
		},
	}
	v, ok := Get(root, "call.meta.id")
	if !ok {
		t.Fatalf("expected path to resolve")
	}
	if v != "abc" {
		t.Fatalf("expected abc, got %v", v)
	}
}

func TestGetMissingSegment(t *testing.T) {
	root := map[string]any{"call": map[string]any{}}
	if _, ok := Get(root, "call.meta.id"); ok {
		t.Fatalf("expected missing path to report not ok")
	}
}

func TestGetThroughNonMap(t *testing.T) {
	root := map[string]any{"call": "not a map"}
	if _, ok := Get(root, "call.meta"); ok {
		t.Fatalf("expected traversal through scalar to report not ok")
	}
}

func TestSetCreatesIntermediates(t *testing.T) {
	root := map[string]any{}
	if err := Set(root, "a.b.c", 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := Get(root, "a.b.c")
	if !ok || v != 42 {
		t.Fatalf("expected 42 at a.b.c, got %v ok=%v", v, ok)
	}
}

func TestSetConflictWithScalar(t *testing.T) {
	root := map[string]any{"a": "scalar"}
	err := Set(root, "a.b", 1)
	if !errors.Is(err, ErrPathConflict) {
		t.Fatalf("expected ErrPathConflict, got %v", err)
	}
}

func TestSetLastWriteWins(t *testing.T) {
	root := map[string]any{}
	if err := Set(root, "x.y", "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Set(root, "x.y", "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := Get(root, "x.y")
	if v != "second" {
		t.Fatalf("expected last write to win, got %v", v)
	}
}
