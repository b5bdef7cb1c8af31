package spinebox

// Entity is a live, posed instance of a decoded skeleton attached to a
// scene node. Entities are created and destroyed by the Pool.
type Entity struct {
	Role     EntityRole
	Skeleton *Skeleton
	State    *AnimationState

	node      *Node
	source    *DecodedSkeleton
	animation string
	skin      string
}

// NewEntity creates an entity in the setup pose of skel.
func NewEntity(skel *DecodedSkeleton, role EntityRole) *Entity {
	e := &Entity{
		Role:     role,
		Skeleton: NewSkeleton(skel.Data),
		State:    NewAnimationState(skel.Data),
		source:   skel,
	}
	n := NewContainer(skel.Bundle.Name)
	n.entity = e
	e.node = n
	e.Skeleton.UpdateWorldTransform()
	return e
}

// ID is the entity's node id. It is zero once destroyed.
func (e *Entity) ID() uint32 {
	return e.node.ID
}

// Node returns the scene node carrying the entity.
func (e *Entity) Node() *Node {
	return e.node
}

// Source returns the decoded skeleton the entity was built from.
func (e *Entity) Source() *DecodedSkeleton {
	return e.source
}

// X returns the entity's position along x in container space.
func (e *Entity) X() float64 { return e.node.X }

// Y returns the entity's position along y in container space.
func (e *Entity) Y() float64 { return e.node.Y }

// SetPosition moves the entity within its container.
func (e *Entity) SetPosition(x, y float64) {
	e.node.SetPosition(x, y)
}

// SetScale sets a uniform scale.
func (e *Entity) SetScale(s float64) {
	e.node.SetScale(s, s)
}

// Scale returns the entity's uniform scale.
func (e *Entity) Scale() float64 {
	return e.node.ScaleX
}

// SetAnimation plays the named clip on track.
func (e *Entity) SetAnimation(track int, name string, loop bool) error {
	if _, err := e.State.SetAnimation(track, name, loop); err != nil {
		return err
	}
	if track == 0 {
		e.animation = name
	}
	return nil
}

// SetSkinByName switches the entity's skin and re-poses its slots.
func (e *Entity) SetSkinByName(name string) error {
	if err := e.Skeleton.SetSkinByName(name); err != nil {
		return err
	}
	e.Skeleton.SetSlotsToSetupPose()
	e.skin = name
	return nil
}

// CurrentAnimation returns the clip playing on track 0, or "".
func (e *Entity) CurrentAnimation() string {
	return e.animation
}

// CurrentSkin returns the active skin name, or "".
func (e *Entity) CurrentSkin() string {
	return e.skin
}

// Update advances the animation by dt seconds and recomputes the pose.
func (e *Entity) Update(dt float64) {
	if e.Destroyed() {
		return
	}
	e.State.Update(dt)
	e.State.Apply(e.Skeleton)
	e.Skeleton.UpdateWorldTransform()
}

// Destroy detaches the entity from the scene. Safe to call twice.
func (e *Entity) Destroy() {
	if e.node.IsDisposed() {
		return
	}
	e.State.ClearTracks()
	e.node.Dispose()
}

// Destroyed reports whether Destroy has run.
func (e *Entity) Destroyed() bool {
	return e.node.IsDisposed()
}
