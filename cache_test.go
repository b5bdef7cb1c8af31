package spinebox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestCache(t *testing.T) *BoltCache {
	t.Helper()
	c := NewBoltCache(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testRecord(t *testing.T, id string, at time.Time) CacheRecord {
	t.Helper()
	rec, err := RecordFromBundle(fixtureBundle(t, id, FormatJSON), at)
	if err != nil {
		t.Fatalf("RecordFromBundle: %v", err)
	}
	return rec
}

func TestBoltCache_SetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := testRecord(t, "a", at)
	if err := c.Set(ctx, rec); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fixtureBundle(t, "a", FormatJSON), got.Bundle()); diff != "" {
		t.Errorf("bundle roundtrip (-want +got):\n%s", diff)
	}

	_, err = c.Get(ctx, "missing")
	if !errors.Is(err, ErrNotCached) {
		t.Errorf("Get(missing) = %v, want ErrNotCached", err)
	}
	var ce *CacheError
	if !errors.As(err, &ce) || ce.Op != "get" {
		t.Errorf("Get(missing) error type = %T", err)
	}
}

func TestBoltCache_ListOrder(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, r := range []CacheRecord{
		testRecord(t, "late", base.Add(time.Hour)),
		testRecord(t, "b", base),
		testRecord(t, "a", base),
	} {
		if err := c.Set(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	list, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "late"}, ids); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestBoltCache_RemoveAndClear(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"x", "y", "z"} {
		c.Set(ctx, testRecord(t, id, now))
	}

	if err := c.Remove(ctx, "y"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := c.Remove(ctx, "never"); err != nil {
		t.Errorf("Remove(unknown) = %v, want nil", err)
	}
	list, _ := c.List(ctx)
	if len(list) != 2 {
		t.Errorf("after remove: %d records", len(list))
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	list, _ = c.List(ctx)
	if len(list) != 0 {
		t.Errorf("after clear: %d records", len(list))
	}
	// The bucket is usable after a clear.
	if err := c.Set(ctx, testRecord(t, "again", now)); err != nil {
		t.Errorf("Set after Clear: %v", err)
	}
}

func TestBoltCache_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	c := NewBoltCache(path)
	if err := c.Init(ctx); err != nil {
		t.Fatal(err)
	}
	c.Set(ctx, testRecord(t, "keep", time.Now()))
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := NewBoltCache(path)
	if err := reopened.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(ctx, "keep"); err != nil {
		t.Errorf("record lost across reopen: %v", err)
	}
}

func TestBoltCache_Errors(t *testing.T) {
	ctx := context.Background()
	var ce *CacheError

	uninit := NewBoltCache(filepath.Join(t.TempDir(), "c.db"))
	if err := uninit.Set(ctx, CacheRecord{ID: "a"}); !errors.As(err, &ce) {
		t.Errorf("Set before Init = %v", err)
	}

	c := newTestCache(t)
	if err := c.Set(ctx, CacheRecord{}); !errors.As(err, &ce) {
		t.Errorf("Set without id = %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := c.List(canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("List(canceled) = %v", err)
	}
}

func TestRecordFromBundle_RejectsReference(t *testing.T) {
	b := NewReferenceBundle("s", "a.atlas", "a.json", "a.png")
	if _, err := RecordFromBundle(b, time.Now()); err == nil {
		t.Error("reference bundles are not cacheable")
	}
}
