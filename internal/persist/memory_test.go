package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/types"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	slots := types.SlotContents{
		"main": {
			{ID: "w1", Type: "text", Config: json.RawMessage(`{"title":"a"}`)},
			{ID: "w2", Type: "image"},
		},
	}
	if err := b.SaveEntity(ctx, "page-1", "page", slots); err != nil {
		t.Fatalf("SaveEntity: %v", err)
	}

	got, err := b.LoadEntity(ctx, "page-1")
	if err != nil {
		t.Fatalf("LoadEntity: %v", err)
	}
	if len(got["main"]) != 2 || got["main"][0].ID != "w1" {
		t.Fatalf("unexpected contents: %+v", got)
	}

	entityType, err := b.EntityType(ctx, "page-1")
	if err != nil || entityType != "page" {
		t.Fatalf("EntityType = %q, %v", entityType, err)
	}
}

func TestMemoryBackendUnknownEntity(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	if _, err := b.LoadEntity(ctx, "nope"); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
	if _, err := b.EntityType(ctx, "nope"); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestMemoryBackendApplyAbsentIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	if err := b.SaveEntity(ctx, "page-1", "page", types.SlotContents{"main": {}}); err != nil {
		t.Fatal(err)
	}

	// Removing an id the backend never saw must not surface an error.
	if err := b.Apply(ctx, op.NewRemove("page-1", "ghost")); err != nil {
		t.Fatalf("remove of absent id: %v", err)
	}
}

func TestMemoryBackendFailureInjection(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	boom := errors.New("disk full")
	b.FailWith(boom)

	w := types.Widget{ID: "w1", Type: "text"}
	if err := b.Apply(ctx, op.NewAdd("page-1", w, "main", 0)); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	errs := b.ApplyBatch(ctx, []op.Operation{op.NewRemove("page-1", "w1")})
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Fatalf("expected injected batch error, got %v", errs)
	}

	b.FailWith(nil)
	if err := b.Apply(ctx, op.NewAdd("page-1", w, "main", 0)); err != nil {
		t.Fatalf("apply after heal: %v", err)
	}
}
