package spinebox

import (
	"math/rand/v2"
)

// Pool defaults.
const (
	DefaultBulkCount = 100
	PreviewScale     = 0.5
	BulkScale        = 0.2
)

// BulkAreaFor returns where bulk entities are scattered on canvas: an
// inset of 1/16 of the width and 1/24 of the height on each side, which is
// (50, 25, 700, 500) on an 800x600 canvas.
func BulkAreaFor(canvas Rect) Rect {
	return Rect{
		X:      canvas.X + canvas.Width/16,
		Y:      canvas.Y + canvas.Height/24,
		Width:  canvas.Width * 7 / 8,
		Height: canvas.Height * 5 / 6,
	}
}

// PoolEventKind says what happened to an entity.
type PoolEventKind uint8

const (
	EntitySpawned PoolEventKind = iota
	EntityDestroyed
)

func (k PoolEventKind) String() string {
	if k == EntityDestroyed {
		return "destroyed"
	}
	return "spawned"
}

// PoolEvent is one entity lifecycle change.
type PoolEvent struct {
	Kind     PoolEventKind
	EntityID uint32
	Role     EntityRole
	Bundle   string
	X, Y     float64
}

// EntityStore receives pool lifecycle events.
type EntityStore interface {
	Record(PoolEvent)
}

// Pool owns every live entity: at most one preview and any number of bulk
// entities. All methods run on the game goroutine.
type Pool struct {
	// Container is the node entities are attached to. The viewport
	// transforms it.
	Container *Node
	// Canvas is the visible area; the preview is centered in it.
	Canvas Rect
	// BulkArea bounds bulk spawn positions. NewPool derives it from Canvas.
	BulkArea Rect
	// PreviewScale and BulkScale are the uniform entity scales.
	PreviewScale float64
	BulkScale    float64
	// MixDuration is the crossfade given to every spawned entity.
	MixDuration float32
	Selector    *Selector
	// Store, if set, is told about every spawn and destroy.
	Store EntityStore

	rng      *rand.Rand
	preview  *Entity
	entities []*Entity
}

// NewPool returns an empty pool attached to container. rng drives bulk
// placement; nil uses a randomly seeded source.
func NewPool(container *Node, canvas Rect, sel *Selector, rng *rand.Rand) *Pool {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Pool{
		Container:    container,
		Canvas:       canvas,
		BulkArea:     BulkAreaFor(canvas),
		PreviewScale: PreviewScale,
		BulkScale:    BulkScale,
		MixDuration:  DefaultMixDuration,
		Selector:     sel,
		rng:          rng,
	}
}

// Preview returns the preview entity, or nil.
func (p *Pool) Preview() *Entity {
	return p.preview
}

// Entities returns the bulk entities. The slice must not be mutated.
func (p *Pool) Entities() []*Entity {
	return p.entities
}

// Live returns the preview (if any) followed by the bulk entities.
func (p *Pool) Live() []*Entity {
	out := make([]*Entity, 0, len(p.entities)+1)
	if p.preview != nil {
		out = append(out, p.preview)
	}
	return append(out, p.entities...)
}

// Count is the number of live entities, preview included.
func (p *Pool) Count() int {
	n := len(p.entities)
	if p.preview != nil {
		n++
	}
	return n
}

func (p *Pool) spawn(skel *DecodedSkeleton, role EntityRole, x, y, scale float64) (*Entity, error) {
	e := NewEntity(skel, role)
	e.State.MixDuration = p.MixDuration
	e.SetPosition(x, y)
	e.SetScale(scale)
	if p.Selector != nil {
		if err := p.Selector.ApplyTo(e); err != nil {
			e.Destroy()
			return nil, err
		}
	}
	e.Update(0)
	p.Container.AddChild(e.Node())
	p.record(EntitySpawned, e)
	return e, nil
}

func (p *Pool) destroy(e *Entity) {
	if e == nil || e.Destroyed() {
		return
	}
	p.record(EntityDestroyed, e)
	e.Destroy()
}

func (p *Pool) record(kind PoolEventKind, e *Entity) {
	if p.Store == nil {
		return
	}
	p.Store.Record(PoolEvent{
		Kind:     kind,
		EntityID: e.ID(),
		Role:     e.Role,
		Bundle:   e.Source().Bundle.ID,
		X:        e.X(),
		Y:        e.Y(),
	})
}

// SpawnPreview replaces the preview with a new entity of skel centered in
// the canvas.
func (p *Pool) SpawnPreview(skel *DecodedSkeleton) (*Entity, error) {
	p.DestroyPreview()
	c := p.Canvas.Center()
	e, err := p.spawn(skel, RolePreview, c.X, c.Y, p.PreviewScale)
	if err != nil {
		return nil, err
	}
	p.preview = e
	return e, nil
}

// DestroyPreview removes the preview entity, if any.
func (p *Pool) DestroyPreview() {
	p.destroy(p.preview)
	p.preview = nil
}

// SpawnBulk adds count entities of skel at random positions inside
// BulkArea. count <= 0 means DefaultBulkCount. The preview is removed first
// so the pool holds only bulk entities.
func (p *Pool) SpawnBulk(skel *DecodedSkeleton, count int) ([]*Entity, error) {
	if count <= 0 {
		count = DefaultBulkCount
	}
	p.DestroyPreview()
	added := make([]*Entity, 0, count)
	a := p.BulkArea
	for i := 0; i < count; i++ {
		x := a.X + p.rng.Float64()*a.Width
		y := a.Y + p.rng.Float64()*a.Height
		e, err := p.spawn(skel, RolePool, x, y, p.BulkScale)
		if err != nil {
			return added, err
		}
		p.entities = append(p.entities, e)
		added = append(added, e)
	}
	return added, nil
}

// ResetAll destroys every entity.
func (p *Pool) ResetAll() {
	p.DestroyPreview()
	for i, e := range p.entities {
		p.destroy(e)
		p.entities[i] = nil
	}
	p.entities = p.entities[:0]
}

// Update advances every live entity's animation by dt seconds.
func (p *Pool) Update(dt float64) {
	if p.preview != nil {
		p.preview.Update(dt)
	}
	for _, e := range p.entities {
		e.Update(dt)
	}
}

// MoveBulk moves bulk entities down by speed*dt, wrapping those that pass
// height back to the top.
func (p *Pool) MoveBulk(dt, speed, height float64) {
	for _, e := range p.entities {
		y := e.Y() + speed*dt
		if y > height {
			y = 0
		}
		e.SetPosition(e.X(), y)
	}
}
