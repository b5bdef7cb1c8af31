package spinebox

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"
)

func testConfig() Config {
	c := DefaultConfig()
	c.Samples = nil
	c.CachePath = ""
	return c
}

func newTestSandbox(t *testing.T, cache Cache) *Sandbox {
	t.Helper()
	sb := NewSandbox(testConfig(), cache, discardLogger(), rand.New(rand.NewPCG(1, 2)))
	if err := sb.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sb.Wait()
	t.Cleanup(func() { sb.Close() })
	return sb
}

func badDrop(t *testing.T) []DroppedFile {
	return []DroppedFile{
		{Name: "bad.json", Data: []byte("{")},
		{Name: "bad.atlas", Data: []byte(fixtureAtlas)},
		{Name: "bad.png", Data: fixturePNG(t)},
	}
}

func mustDrop(t *testing.T, sb *Sandbox, files []DroppedFile) {
	t.Helper()
	if err := sb.Drop(context.Background(), files); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	sb.Wait()
}

func mustSelect(t *testing.T, sb *Sandbox, i int) {
	t.Helper()
	if err := sb.Select(context.Background(), i); err != nil {
		t.Fatalf("Select(%d): %v", i, err)
	}
	sb.Wait()
}

func TestSandbox_DropAndSelect(t *testing.T) {
	sb := newTestSandbox(t, nil)
	if len(sb.Assets()) != 0 || sb.Selected() != -1 {
		t.Fatalf("fresh sandbox: %d assets, selected %d", len(sb.Assets()), sb.Selected())
	}

	mustDrop(t, sb, fixtureDrop(t))
	if len(sb.Assets()) != 1 || sb.Assets()[0].Name != "fixture" {
		t.Fatalf("assets after drop = %v", sb.Assets())
	}

	mustSelect(t, sb, 0)
	if sb.Current() == nil {
		t.Fatal("no decoded selection")
	}
	if sb.Pool.Preview() == nil || sb.EntityCount() != 1 {
		t.Errorf("entity count = %d, want a single preview", sb.EntityCount())
	}
	if sb.Selector.Animation() != "walk" || sb.Selector.Skin() != "alt" {
		t.Errorf("selection = %q/%q", sb.Selector.Animation(), sb.Selector.Skin())
	}
	if sb.Busy() {
		t.Error("Busy after Wait")
	}
}

func TestSandbox_DropWrongArity(t *testing.T) {
	sb := newTestSandbox(t, nil)
	err := sb.Drop(context.Background(), fixtureDrop(t)[:2])
	var wa *WrongArityError
	if !errors.As(err, &wa) || wa.Got != 2 {
		t.Fatalf("Drop(2 files) = %v", err)
	}
	sb.Wait()
	if len(sb.Assets()) != 0 {
		t.Error("rejected drop added an asset")
	}
}

func TestSandbox_StaleDecodeDiscarded(t *testing.T) {
	sb := newTestSandbox(t, nil)
	mustDrop(t, sb, fixtureDrop(t))
	mustDrop(t, sb, fixtureDrop(t))

	ctx := context.Background()
	sb.Select(ctx, 0)
	sb.Select(ctx, 1)
	sb.Wait()

	if sb.Selected() != 1 {
		t.Fatalf("selected = %d", sb.Selected())
	}
	if sb.Current() == nil || sb.Current().Bundle != sb.Assets()[1] {
		t.Error("current selection is not the latest request")
	}
	if sb.EntityCount() != 1 {
		t.Errorf("entity count = %d, want one preview", sb.EntityCount())
	}
}

func TestSandbox_DecodeFailureKeepsEntities(t *testing.T) {
	sb := newTestSandbox(t, nil)
	mustDrop(t, sb, fixtureDrop(t))
	mustDrop(t, sb, badDrop(t))
	mustSelect(t, sb, 0)
	good := sb.Current()

	if err := sb.AddBulk(); err != nil {
		t.Fatalf("AddBulk: %v", err)
	}
	if sb.EntityCount() != DefaultBulkCount {
		t.Fatalf("entity count = %d", sb.EntityCount())
	}

	mustSelect(t, sb, 1)
	if sb.EntityCount() != DefaultBulkCount {
		t.Errorf("failed decode changed entity count to %d", sb.EntityCount())
	}
	if sb.Current() != good {
		t.Error("failed decode replaced the selection")
	}
}

func TestSandbox_NoSelection(t *testing.T) {
	sb := newTestSandbox(t, nil)
	for name, err := range map[string]error{
		"AddBulk":         sb.AddBulk(),
		"ChangeAnimation": sb.ChangeAnimation(0),
		"ChangeSkin":      sb.ChangeSkin(0),
	} {
		if !errors.Is(err, ErrNoSelection) {
			t.Errorf("%s = %v, want ErrNoSelection", name, err)
		}
	}
	if err := sb.Select(context.Background(), 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Select(0) on empty list = %v", err)
	}
	if sb.ToggleMove() {
		t.Error("ToggleMove without bulk entities should stay off")
	}
}

func TestSandbox_ToggleMoveScrolls(t *testing.T) {
	sb := newTestSandbox(t, nil)
	mustDrop(t, sb, fixtureDrop(t))
	mustSelect(t, sb, 0)
	sb.AddBulk()
	e := sb.Pool.Entities()[0]
	y := e.Node().Y

	if !sb.ToggleMove() {
		t.Fatal("ToggleMove should turn scrolling on")
	}
	sb.Update(0.01)
	if e.Node().Y == y {
		t.Error("bulk entity did not move")
	}
	if sb.ToggleMove() {
		t.Error("second ToggleMove should turn scrolling off")
	}
}

func TestSandbox_PersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	first := NewSandbox(testConfig(), NewBoltCache(path), discardLogger(), nil)
	if err := first.Start(ctx); err != nil {
		t.Fatal(err)
	}
	mustDrop(t, first, fixtureDrop(t))
	id := first.Assets()[0].ID
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := NewSandbox(testConfig(), NewBoltCache(path), discardLogger(), nil)
	if err := second.Start(ctx); err != nil {
		t.Fatal(err)
	}
	second.Wait()
	defer second.Close()
	if len(second.Assets()) != 1 || second.Assets()[0].ID != id {
		t.Fatalf("restored assets = %v", second.Assets())
	}
	if second.Selected() != 0 || second.Current() == nil {
		t.Error("first asset not selected on start")
	}
}

func TestSandbox_RemoveAndClearCache(t *testing.T) {
	sb := newTestSandbox(t, NewBoltCache(filepath.Join(t.TempDir(), "cache.db")))
	ctx := context.Background()
	mustDrop(t, sb, fixtureDrop(t))
	mustDrop(t, sb, fixtureDrop(t))
	mustSelect(t, sb, 0)
	sb.AddBulk()

	if err := sb.RemoveCached(ctx, sb.Assets()[0].ID); err != nil {
		t.Fatal(err)
	}
	sb.Wait()
	if len(sb.Assets()) != 1 {
		t.Fatalf("assets after remove = %d", len(sb.Assets()))
	}
	if sb.Selected() != 0 || sb.EntityCount() != 1 {
		t.Errorf("after reload: selected %d, %d entities", sb.Selected(), sb.EntityCount())
	}

	if err := sb.ClearCache(ctx); err != nil {
		t.Fatal(err)
	}
	sb.Wait()
	if len(sb.Assets()) != 0 || sb.EntityCount() != 0 {
		t.Errorf("after clear: %d assets, %d entities", len(sb.Assets()), sb.EntityCount())
	}
	if sb.Current() != nil || len(sb.Selector.Animations()) != 0 {
		t.Errorf("selection survived clear: %v, clips %v", sb.Current(), sb.Selector.Animations())
	}
	if err := sb.AddBulk(); !errors.Is(err, ErrNoSelection) {
		t.Errorf("AddBulk after clear = %v, want ErrNoSelection", err)
	}
	if err := sb.ChangeSkin(0); !errors.Is(err, ErrNoSelection) {
		t.Errorf("ChangeSkin after clear = %v, want ErrNoSelection", err)
	}
	if sb.EntityCount() != 0 {
		t.Errorf("%d entities spawned after clear", sb.EntityCount())
	}
}

func TestSandbox_ClearCacheDropsPendingDecode(t *testing.T) {
	sb := newTestSandbox(t, NewBoltCache(filepath.Join(t.TempDir(), "cache.db")))
	ctx := context.Background()
	mustDrop(t, sb, fixtureDrop(t))

	if err := sb.Select(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := sb.ClearCache(ctx); err != nil {
		t.Fatal(err)
	}
	sb.Wait()
	if sb.Current() != nil || sb.EntityCount() != 0 {
		t.Errorf("selection survived the clear: current %v, %d entities", sb.Current(), sb.EntityCount())
	}
}

func TestSandbox_CacheDisabled(t *testing.T) {
	sb := newTestSandbox(t, nil)
	var ce *CacheError
	if err := sb.RemoveCached(context.Background(), "x"); !errors.As(err, &ce) {
		t.Errorf("RemoveCached = %v", err)
	}
	if err := sb.ClearCache(context.Background()); !errors.As(err, &ce) {
		t.Errorf("ClearCache = %v", err)
	}
}

// failingCache accepts Init and List but fails every write.
type failingCache struct{ Cache }

var errDiskFull = errors.New("disk full")

func (failingCache) Init(context.Context) error                  { return nil }
func (failingCache) List(context.Context) ([]CacheRecord, error) { return nil, nil }
func (failingCache) Close() error                                { return nil }
func (failingCache) Set(_ context.Context, rec CacheRecord) error {
	return &CacheError{Op: "set", ID: rec.ID, Err: errDiskFull}
}

func TestSandbox_PersistFailureIsNonFatal(t *testing.T) {
	sb := NewSandbox(testConfig(), failingCache{}, discardLogger(), nil)
	var reported []error
	sb.OnError = func(err error) { reported = append(reported, err) }
	if err := sb.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer sb.Close()

	mustDrop(t, sb, fixtureDrop(t))
	if len(sb.Assets()) != 1 {
		t.Errorf("asset not added when persistence fails")
	}
	if len(reported) != 1 || !errors.Is(reported[0], errDiskFull) {
		t.Errorf("reported = %v", reported)
	}
}

// brokenCache fails to open.
type brokenCache struct{ failingCache }

func (brokenCache) Init(context.Context) error {
	return &CacheError{Op: "init", Err: errDiskFull}
}

func TestSandbox_CacheInitFailureDisablesPersistence(t *testing.T) {
	sb := NewSandbox(testConfig(), brokenCache{}, discardLogger(), nil)
	var reported int
	sb.OnError = func(error) { reported++ }
	if err := sb.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sb.Cache != nil || reported != 1 {
		t.Errorf("cache = %v, reported %d", sb.Cache, reported)
	}
}
