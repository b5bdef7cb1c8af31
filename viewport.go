package spinebox

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Viewport scale limits.
const (
	MinScale = 0.05
	MaxScale = 20.0
)

// DefaultWheelFactor converts wheel delta units into a zoom ratio.
const DefaultWheelFactor = 0.001

// ViewportState is the pan and uniform zoom applied to the entity container.
// A container point p lands on screen at Offset + p*Scale.
type ViewportState struct {
	OffsetX, OffsetY float64
	Scale            float64
}

// resetAnim tweens the state back to identity.
type resetAnim struct {
	x, y, s *gween.Tween
}

// Viewport turns wheel, drag and pinch gestures into pan and zoom. Every
// zoom keeps the screen point under its anchor fixed.
type Viewport struct {
	// Canvas is the screen rectangle; wheel zoom anchors at its center.
	Canvas Rect
	// WheelFactor scales wheel deltas. Zero means DefaultWheelFactor.
	WheelFactor float64

	state        ViewportState
	pinching     bool
	pinchCenter  Vec2
	lastDistance float64

	reset *resetAnim
}

// NewViewport returns an identity viewport over canvas.
func NewViewport(canvas Rect) *Viewport {
	return &Viewport{Canvas: canvas, WheelFactor: DefaultWheelFactor, state: ViewportState{Scale: 1}}
}

// State returns the current pan and zoom.
func (v *Viewport) State() ViewportState {
	return v.state
}

// zoomAt scales by ratio keeping the screen point c fixed.
func (v *Viewport) zoomAt(c Vec2, ratio float64) {
	if ratio <= 0 {
		return
	}
	next := v.state.Scale * ratio
	if next < MinScale {
		next = MinScale
	} else if next > MaxScale {
		next = MaxScale
	}
	w := v.ScreenToWorld(c)
	v.state.Scale = next
	moved := v.WorldToScreen(w)
	v.state.OffsetX += c.X - moved.X
	v.state.OffsetY += c.Y - moved.Y
	v.reset = nil
}

// Wheel zooms around the canvas center. Positive deltaY zooms out.
func (v *Viewport) Wheel(deltaY float64) {
	k := v.WheelFactor
	if k == 0 {
		k = DefaultWheelFactor
	}
	v.zoomAt(v.Canvas.Center(), 1-deltaY*k)
}

// PinchStart records the two touch points a pinch begins with.
func (v *Viewport) PinchStart(a, b Vec2) {
	v.pinching = true
	v.pinchCenter = a.Mid(b)
	v.lastDistance = a.Dist(b)
}

// PinchMove zooms by the change in distance between the touches, anchored
// at the pinch center. Samples with no previous distance are ignored.
func (v *Viewport) PinchMove(a, b Vec2) {
	if !v.pinching {
		v.PinchStart(a, b)
		return
	}
	d := a.Dist(b)
	if v.lastDistance == 0 {
		v.lastDistance = d
		return
	}
	v.zoomAt(v.pinchCenter, d/v.lastDistance)
	v.lastDistance = d
}

// PinchEnd finishes the current pinch.
func (v *Viewport) PinchEnd() {
	v.pinching = false
	v.lastDistance = 0
}

// Pinching reports whether a pinch is in progress.
func (v *Viewport) Pinching() bool {
	return v.pinching
}

// Drag pans by a screen-space delta.
func (v *Viewport) Drag(dx, dy float64) {
	v.state.OffsetX += dx
	v.state.OffsetY += dy
	v.reset = nil
}

// Reset returns to identity immediately.
func (v *Viewport) Reset() {
	v.state = ViewportState{Scale: 1}
	v.pinching = false
	v.lastDistance = 0
	v.reset = nil
}

// AnimateReset tweens back to identity over duration seconds. Update drives
// it; any gesture cancels it.
func (v *Viewport) AnimateReset(duration float32, fn ease.TweenFunc) {
	if duration <= 0 {
		v.Reset()
		return
	}
	s := v.state
	v.reset = &resetAnim{
		x: gween.New(float32(s.OffsetX), 0, duration, fn),
		y: gween.New(float32(s.OffsetY), 0, duration, fn),
		s: gween.New(float32(s.Scale), 1, duration, fn),
	}
}

// Update advances an animated reset.
func (v *Viewport) Update(dt float64) {
	if v.reset == nil {
		return
	}
	x, doneX := v.reset.x.Update(float32(dt))
	y, doneY := v.reset.y.Update(float32(dt))
	s, doneS := v.reset.s.Update(float32(dt))
	v.state = ViewportState{OffsetX: float64(x), OffsetY: float64(y), Scale: float64(s)}
	if doneX && doneY && doneS {
		v.Reset()
	}
}

// Apply copies the state onto the container node.
func (v *Viewport) Apply(container *Node) {
	container.SetPosition(v.state.OffsetX, v.state.OffsetY)
	container.SetScale(v.state.Scale, v.state.Scale)
}

// matrix is the container's local transform under the current state.
func (v *Viewport) matrix() [6]float64 {
	s := v.state
	return [6]float64{s.Scale, 0, 0, s.Scale, s.OffsetX, s.OffsetY}
}

// ScreenToWorld maps a screen point into container space.
func (v *Viewport) ScreenToWorld(p Vec2) Vec2 {
	x, y := transformPoint(invertAffine(v.matrix()), p.X, p.Y)
	return Vec2{x, y}
}

// WorldToScreen maps a container point onto the screen.
func (v *Viewport) WorldToScreen(p Vec2) Vec2 {
	x, y := transformPoint(v.matrix(), p.X, p.Y)
	return Vec2{x, y}
}
