package spinebox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Sandbox is the application context: it owns the selectable asset list,
// the entity pool, the selection and the viewport. Every exported method
// except Wait must be called from the game goroutine. Blocking work runs on
// goroutines and hands its result back as a completion that Update runs.
type Sandbox struct {
	Config   Config
	Logger   *slog.Logger
	Cache    Cache
	Ingestor *Ingestor
	Decoder  *Decoder
	Viewport *Viewport
	Pool     *Pool
	Selector *Selector
	// OnError receives failures of detached work such as persistence. It
	// runs on the game goroutine. Nil logs them.
	OnError func(error)

	root      *Node
	container *Node
	samples   []*AssetBundle
	assets    []*AssetBundle
	selected  int
	current   *DecodedSkeleton
	moving    bool
	// generation is bumped by every selection; decodes carrying an older
	// value are stale and discarded.
	generation uint64
	now        func() time.Time

	mu       sync.Mutex
	pending  []func()
	wg       sync.WaitGroup
	inflight atomic.Int32
}

// NewSandbox wires a sandbox from cfg. cache may be nil to disable
// persistence; logger nil uses slog.Default. rng seeds bulk placement and
// may be nil.
func NewSandbox(cfg Config, cache Cache, logger *slog.Logger, rng *rand.Rand) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	canvas := Rect{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	root := NewContainer("root")
	container := NewContainer("entities")
	root.AddChild(container)

	sel := &Selector{}
	pool := NewPool(container, canvas, sel, rng)
	pool.PreviewScale = cfg.PreviewScale
	pool.BulkScale = cfg.BulkScale
	pool.MixDuration = float32(cfg.MixDuration)

	vp := NewViewport(canvas)
	vp.WheelFactor = cfg.WheelFactor

	var assetsFS fs.FS
	if cfg.AssetsDir != "" {
		assetsFS = os.DirFS(cfg.AssetsDir)
	}

	s := &Sandbox{
		Config:    cfg,
		Logger:    logger,
		Cache:     cache,
		Ingestor:  &Ingestor{Logger: logger},
		Decoder:   &Decoder{Fetcher: NewMultiFetcher(assetsFS), Logger: logger},
		Viewport:  vp,
		Pool:      pool,
		Selector:  sel,
		root:      root,
		container: container,
		samples:   cfg.SampleBundles(),
		selected:  -1,
		now:       time.Now,
	}
	s.assets = append([]*AssetBundle(nil), s.samples...)
	return s
}

// Root is the scene root to render. The entity container is its only child.
func (s *Sandbox) Root() *Node { return s.root }

// Container is the node the viewport transforms.
func (s *Sandbox) Container() *Node { return s.container }

// Assets returns the selectable bundles: samples first, then cached and
// dropped bundles in arrival order.
func (s *Sandbox) Assets() []*AssetBundle { return s.assets }

// Selected returns the index of the selected asset, or -1.
func (s *Sandbox) Selected() int { return s.selected }

// Current returns the decoded selection, or nil while none is live.
func (s *Sandbox) Current() *DecodedSkeleton { return s.current }

// Moving reports whether bulk entities scroll.
func (s *Sandbox) Moving() bool { return s.moving }

// EntityCount is the number of live entities.
func (s *Sandbox) EntityCount() int { return s.Pool.Count() }

// goAsync runs fn on a goroutine; the func it returns is queued to run on the
// game goroutine during the next Update.
func (s *Sandbox) goAsync(fn func() func()) {
	s.wg.Add(1)
	s.inflight.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inflight.Add(-1)
		done := fn()
		if done == nil {
			return
		}
		s.mu.Lock()
		s.pending = append(s.pending, done)
		s.mu.Unlock()
	}()
}

// Busy reports whether background work or unrun completions remain.
func (s *Sandbox) Busy() bool {
	if s.inflight.Load() > 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// drain runs queued completions and reports whether any ran.
func (s *Sandbox) drain() bool {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
	return len(batch) > 0
}

// Wait blocks until no background work is in flight and every completion
// has run. Completions may start more work, which is waited for too.
func (s *Sandbox) Wait() {
	for {
		s.wg.Wait()
		if !s.drain() {
			return
		}
	}
}

func (s *Sandbox) report(err error) {
	if s.OnError != nil {
		s.OnError(err)
		return
	}
	var ce *CacheError
	if errors.As(err, &ce) {
		s.Logger.Error("cache failure", "op", ce.Op, "id", ce.ID, "error", err)
		return
	}
	s.Logger.Warn("background task failed", "error", err)
}

// Start opens the cache, loads the asset list and selects the first asset.
// A cache that fails to open is logged and persistence is disabled.
func (s *Sandbox) Start(ctx context.Context) error {
	if s.Cache != nil {
		if err := s.Cache.Init(ctx); err != nil {
			s.report(err)
			s.Cache = nil
		}
	}
	s.assets = s.loadAssets(ctx)
	if len(s.assets) == 0 {
		return nil
	}
	return s.Select(ctx, 0)
}

// loadAssets returns samples followed by every cached bundle. Cache
// failures leave only the samples.
func (s *Sandbox) loadAssets(ctx context.Context) []*AssetBundle {
	out := append([]*AssetBundle(nil), s.samples...)
	if s.Cache == nil {
		return out
	}
	recs, err := s.Cache.List(ctx)
	if err != nil {
		s.report(err)
		return out
	}
	for _, r := range recs {
		out = append(out, r.Bundle())
	}
	s.Logger.Debug("loaded asset list", "samples", len(s.samples), "cached", len(recs))
	return out
}

// Drop ingests a drop in the background. A drop that is not exactly
// DropArity files is rejected with *WrongArityError before anything
// happens. Once ingested, the bundle is appended to the asset list and
// persisted without waiting; persistence failures go to OnError.
func (s *Sandbox) Drop(ctx context.Context, files []DroppedFile) error {
	if len(files) != DropArity {
		err := &WrongArityError{Got: len(files)}
		s.Logger.Warn("drop rejected", "error", err)
		return err
	}
	s.goAsync(func() func() {
		b, err := s.Ingestor.Ingest(ctx, files)
		return func() {
			if err != nil {
				s.Logger.Warn("ingestion failed", "error", err)
				return
			}
			s.assets = append(s.assets, b)
			s.Logger.Info("asset added", "id", b.ID, "name", b.Name, "index", len(s.assets)-1)
			s.persistAsync(ctx, b)
		}
	})
	return nil
}

// persistAsync writes b to the cache on a detached goroutine.
func (s *Sandbox) persistAsync(ctx context.Context, b *AssetBundle) {
	if s.Cache == nil {
		return
	}
	rec, err := RecordFromBundle(b, s.now())
	if err != nil {
		s.report(&CacheError{Op: "set", ID: b.ID, Err: err})
		return
	}
	cache := s.Cache
	s.goAsync(func() func() {
		if err := cache.Set(ctx, rec); err != nil {
			return func() { s.report(err) }
		}
		return nil
	})
}

// Select makes asset i the selection and decodes it in the background.
// On success every live entity is destroyed, the selection and viewport are
// reset and a preview is spawned. A decode failure leaves the live entities
// untouched. Selecting again before a decode finishes makes that decode
// stale; its result is dropped.
func (s *Sandbox) Select(ctx context.Context, i int) error {
	if i < 0 || i >= len(s.assets) {
		return fmt.Errorf("spinebox: asset %d of %d: %w", i, len(s.assets), ErrIndexOutOfRange)
	}
	s.generation++
	gen := s.generation
	s.selected = i
	b := s.assets[i]
	s.goAsync(func() func() {
		skel, err := s.Decoder.Decode(ctx, b)
		return func() { s.finishSelect(gen, b, skel, err) }
	})
	return nil
}

func (s *Sandbox) finishSelect(gen uint64, b *AssetBundle, skel *DecodedSkeleton, err error) {
	if gen != s.generation {
		s.Logger.Debug("discarding stale decode", "name", b.Name, "generation", gen, "current", s.generation)
		if skel != nil {
			releaseTextures(skel)
		}
		return
	}
	if err != nil {
		s.Logger.Warn("decode failed", "name", b.Name, "error", err)
		return
	}
	s.Pool.ResetAll()
	if s.current != nil && s.current != skel {
		releaseTextures(s.current)
	}
	s.Viewport.Reset()
	s.Viewport.Apply(s.container)
	s.moving = false
	s.current = skel
	s.Selector.Reset(skel)
	if _, err := s.Pool.SpawnPreview(skel); err != nil {
		s.Logger.Warn("spawn preview failed", "name", b.Name, "error", err)
		return
	}
	s.Logger.Info("selected asset", "name", b.Name, "animations", len(s.Selector.Animations()), "skins", len(s.Selector.Skins()))
}

func releaseTextures(skel *DecodedSkeleton) {
	seen := make(map[*ebiten.Image]bool)
	for _, p := range skel.Atlas.Pages {
		if p.Texture != nil && !seen[p.Texture] {
			seen[p.Texture] = true
			p.Texture.Deallocate()
		}
	}
}

// AddBulk spawns Config.BulkCount entities of the selection, replacing the
// preview.
func (s *Sandbox) AddBulk() error {
	if s.current == nil {
		return ErrNoSelection
	}
	added, err := s.Pool.SpawnBulk(s.current, s.Config.BulkCount)
	s.Logger.Debug("bulk spawn", "added", len(added), "live", s.Pool.Count())
	return err
}

// ChangeAnimation selects clip i on every live entity.
func (s *Sandbox) ChangeAnimation(i int) error {
	if s.current == nil {
		return ErrNoSelection
	}
	return s.Selector.ChangeAnimation(i, s.Pool.Live())
}

// ChangeSkin selects skin i on every live entity.
func (s *Sandbox) ChangeSkin(i int) error {
	if s.current == nil {
		return ErrNoSelection
	}
	return s.Selector.ChangeSkin(i, s.Pool.Live())
}

// ToggleMove flips bulk scrolling. It has no effect until bulk entities
// exist. It returns the new state.
func (s *Sandbox) ToggleMove() bool {
	if len(s.Pool.Entities()) == 0 {
		s.moving = false
		return false
	}
	s.moving = !s.moving
	return s.moving
}

// RemoveCached deletes the cached bundle id in the background, then reloads
// the asset list and selects the first asset.
func (s *Sandbox) RemoveCached(ctx context.Context, id string) error {
	if s.Cache == nil {
		return &CacheError{Op: "remove", ID: id, Err: errors.New("persistence disabled")}
	}
	cache := s.Cache
	s.goAsync(func() func() {
		err := cache.Remove(ctx, id)
		return func() {
			if err != nil {
				s.report(err)
			}
			s.reload(ctx)
		}
	})
	return nil
}

// ClearCache deletes every cached bundle in the background, then reloads
// the asset list.
func (s *Sandbox) ClearCache(ctx context.Context) error {
	if s.Cache == nil {
		return &CacheError{Op: "clear", Err: errors.New("persistence disabled")}
	}
	cache := s.Cache
	s.goAsync(func() func() {
		err := cache.Clear(ctx)
		return func() {
			if err != nil {
				s.report(err)
			}
			s.reload(ctx)
		}
	})
	return nil
}

// reload rebuilds the asset list from the cache. Live entities and the
// current selection may belong to a removed bundle, so both are dropped
// and the first asset, if any, is reselected.
func (s *Sandbox) reload(ctx context.Context) {
	s.Pool.ResetAll()
	s.moving = false
	s.generation++
	if s.current != nil {
		releaseTextures(s.current)
		s.current = nil
	}
	s.Selector.Clear()
	s.assets = s.loadAssets(ctx)
	s.selected = -1
	if len(s.assets) > 0 {
		if err := s.Select(ctx, 0); err != nil {
			s.Logger.Warn("reselect failed", "error", err)
		}
	}
}

// Update runs finished background work, then advances the viewport and
// every entity by dt seconds.
func (s *Sandbox) Update(dt float64) {
	s.drain()
	s.Viewport.Update(dt)
	s.Viewport.Apply(s.container)
	if s.moving {
		s.Pool.MoveBulk(dt, s.Config.MoveSpeed, float64(s.Config.Height))
	}
	s.Pool.Update(dt)
}

// Close waits for background work, destroys every entity and closes the
// cache.
func (s *Sandbox) Close() error {
	s.Wait()
	s.Pool.ResetAll()
	if s.current != nil {
		releaseTextures(s.current)
		s.current = nil
	}
	if s.Cache != nil {
		return s.Cache.Close()
	}
	return nil
}
