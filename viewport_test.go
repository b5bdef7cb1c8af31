package spinebox

import (
	"testing"

	"github.com/tanema/gween/ease"
)

var testCanvas = Rect{Width: 800, Height: 600}

func assertFixedPoint(t *testing.T, v *Viewport, world, screen Vec2) {
	t.Helper()
	got := v.WorldToScreen(world)
	if !approxEqual(got.X, screen.X, 1e-6) || !approxEqual(got.Y, screen.Y, 1e-6) {
		t.Errorf("anchor moved: %v -> %v", screen, got)
	}
}

func TestViewport_WheelAnchorsCanvasCenter(t *testing.T) {
	v := NewViewport(testCanvas)
	v.Drag(30, -20)
	c := testCanvas.Center()
	w := v.ScreenToWorld(c)

	v.Wheel(-1000) // zoom in 2x
	assertNear(t, "scale", v.State().Scale, 2)
	assertFixedPoint(t, v, w, c)

	v.Wheel(250) // zoom out by 0.75
	assertNear(t, "scale", v.State().Scale, 1.5)
	assertFixedPoint(t, v, w, c)
}

func TestViewport_PinchRatioTwo(t *testing.T) {
	v := NewViewport(testCanvas)
	a, b := Vec2{300, 200}, Vec2{500, 200}
	center := a.Mid(b)
	w := v.ScreenToWorld(center)

	v.PinchStart(a, b)
	if !v.Pinching() {
		t.Fatal("PinchStart should begin a pinch")
	}
	v.PinchMove(Vec2{200, 200}, Vec2{600, 200})
	assertNear(t, "scale", v.State().Scale, 2)
	assertFixedPoint(t, v, w, center)

	v.PinchEnd()
	if v.Pinching() {
		t.Error("PinchEnd should finish the pinch")
	}
}

func TestViewport_PinchMoveWithoutStart(t *testing.T) {
	v := NewViewport(testCanvas)
	v.PinchMove(Vec2{0, 0}, Vec2{100, 0})
	if !v.Pinching() {
		t.Fatal("first move should start a pinch")
	}
	assertNear(t, "scale", v.State().Scale, 1)
	v.PinchMove(Vec2{0, 0}, Vec2{50, 0})
	assertNear(t, "scale", v.State().Scale, 0.5)
}

func TestViewport_ScaleClamped(t *testing.T) {
	v := NewViewport(testCanvas)
	v.PinchStart(Vec2{399, 300}, Vec2{401, 300})
	v.PinchMove(Vec2{0, 300}, Vec2{800, 300})
	assertNear(t, "max scale", v.State().Scale, MaxScale)

	v.Reset()
	v.PinchStart(Vec2{0, 300}, Vec2{800, 300})
	v.PinchMove(Vec2{399.9, 300}, Vec2{400.1, 300})
	assertNear(t, "min scale", v.State().Scale, MinScale)

	// Degenerate ratios are ignored.
	before := v.State()
	v.Wheel(1e6)
	if v.State() != before {
		t.Errorf("non-positive ratio changed state: %+v", v.State())
	}
}

func TestViewport_DragAndApply(t *testing.T) {
	v := NewViewport(testCanvas)
	v.Drag(10, 20)
	v.Drag(-5, 5)
	s := v.State()
	if s.OffsetX != 5 || s.OffsetY != 25 {
		t.Errorf("offset = %v,%v, want 5,25", s.OffsetX, s.OffsetY)
	}
	n := NewContainer("c")
	v.Wheel(-1000)
	v.Apply(n)
	if n.X != v.State().OffsetX || n.Y != v.State().OffsetY || n.ScaleX != 2 || n.ScaleY != 2 {
		t.Errorf("container = %v,%v x%v", n.X, n.Y, n.ScaleX)
	}
}

func TestViewport_AnimateReset(t *testing.T) {
	v := NewViewport(testCanvas)
	v.Drag(100, 50)
	v.Wheel(-1000)
	v.AnimateReset(0.5, ease.Linear)

	v.Update(0.25)
	mid := v.State()
	if mid.Scale <= 1 || mid.Scale >= 2 {
		t.Errorf("mid-reset scale = %v, want between 1 and 2", mid.Scale)
	}
	v.Update(0.5)
	if v.State() != (ViewportState{Scale: 1}) {
		t.Errorf("after reset = %+v", v.State())
	}
}

func TestViewport_GestureCancelsReset(t *testing.T) {
	v := NewViewport(testCanvas)
	v.Drag(100, 0)
	v.AnimateReset(1, ease.Linear)
	v.Drag(1, 0)
	v.Update(2)
	if got := v.State().OffsetX; got != 101 {
		t.Errorf("offset = %v, want drag to win over the reset", got)
	}
}

func TestViewport_AnimateResetZeroDuration(t *testing.T) {
	v := NewViewport(testCanvas)
	v.Drag(3, 4)
	v.AnimateReset(0, ease.Linear)
	if v.State() != (ViewportState{Scale: 1}) {
		t.Errorf("state = %+v", v.State())
	}
}

func TestViewport_ScreenMappingMatchesContainer(t *testing.T) {
	v := NewViewport(testCanvas)
	v.Drag(-40, 25)
	v.Wheel(-500)
	root := NewContainer("root")
	container := NewContainer("entities")
	root.AddChild(container)
	v.Apply(container)
	updateWorldTransform(root, identityTransform, 1, false)

	p := Vec2{120, -35}
	sx, sy := transformPoint(container.worldTransform, p.X, p.Y)
	got := v.WorldToScreen(p)
	assertNear(t, "screen x", got.X, sx)
	assertNear(t, "screen y", got.Y, sy)

	back := v.ScreenToWorld(got)
	assertNear(t, "world x", back.X, p.X)
	assertNear(t, "world y", back.Y, p.Y)
}
