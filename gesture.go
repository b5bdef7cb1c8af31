package spinebox

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// wheelPixelsPerNotch converts ebiten wheel notches into the pixel deltas
// the Viewport wheel factor is tuned for. Positive notches scroll up.
const wheelPixelsPerNotch = 100

// maxTouches bounds how many simultaneous touches are tracked.
const maxTouches = 10

// touchPoint is one active touch in an input frame.
type touchPoint struct {
	ID  int
	Pos Vec2
}

// inputFrame is a snapshot of pointer input for one tick.
type inputFrame struct {
	Mouse     Vec2
	MouseDown bool
	// WheelY is the vertical wheel delta in pixels, positive scrolling down.
	WheelY  float64
	Touches []touchPoint
}

// gestureTracker turns successive input frames into Viewport calls: mouse
// or single-touch drag pans, two touches pinch, the wheel zooms.
type gestureTracker struct {
	// DragDeadZone is the distance a press must travel before it pans.
	DragDeadZone float64

	mouseDown  bool
	pressPos   Vec2
	lastPos    Vec2
	dragging   bool
	touchDrag  int
	pinchIDs   [2]int
	pinching   bool
	touchIDBuf []ebiten.TouchID

	injectQueue []inputFrame
}

func newGestureTracker() *gestureTracker {
	return &gestureTracker{DragDeadZone: 4, touchDrag: -1}
}

// readInputFrame samples ebiten's input state.
func (g *gestureTracker) readInputFrame() inputFrame {
	mx, my := ebiten.CursorPosition()
	_, wy := ebiten.Wheel()
	f := inputFrame{
		Mouse:     Vec2{float64(mx), float64(my)},
		MouseDown: ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		WheelY:    -wy * wheelPixelsPerNotch,
	}
	g.touchIDBuf = ebiten.AppendTouchIDs(g.touchIDBuf[:0])
	for i, id := range g.touchIDBuf {
		if i >= maxTouches {
			break
		}
		tx, ty := ebiten.TouchPosition(id)
		f.Touches = append(f.Touches, touchPoint{ID: int(id), Pos: Vec2{float64(tx), float64(ty)}})
	}
	return f
}

// next returns the oldest injected frame if any, else live input.
func (g *gestureTracker) next() inputFrame {
	if len(g.injectQueue) > 0 {
		f := g.injectQueue[0]
		copy(g.injectQueue, g.injectQueue[1:])
		g.injectQueue = g.injectQueue[:len(g.injectQueue)-1]
		return f
	}
	return g.readInputFrame()
}

// feed runs the gesture state machine for one frame.
func (g *gestureTracker) feed(f inputFrame, v *Viewport) {
	if f.WheelY != 0 {
		v.Wheel(f.WheelY)
	}

	if len(f.Touches) >= 2 {
		a, b := f.Touches[0], f.Touches[1]
		if !g.pinching || g.pinchIDs != [2]int{a.ID, b.ID} {
			g.pinching = true
			g.pinchIDs = [2]int{a.ID, b.ID}
			v.PinchStart(a.Pos, b.Pos)
		} else {
			v.PinchMove(a.Pos, b.Pos)
		}
		// A pinch suppresses any drag in progress.
		g.dragging = false
		g.touchDrag = -1
		g.mouseDown = false
		return
	}
	if g.pinching {
		g.pinching = false
		v.PinchEnd()
	}

	// One touch drags like a mouse.
	down, pos := f.MouseDown, f.Mouse
	if len(f.Touches) == 1 {
		t := f.Touches[0]
		if g.touchDrag != t.ID {
			g.touchDrag = t.ID
			g.mouseDown = false
		}
		down, pos = true, t.Pos
	} else {
		g.touchDrag = -1
	}

	switch {
	case down && !g.mouseDown:
		g.mouseDown = true
		g.dragging = false
		g.pressPos = pos
		g.lastPos = pos
	case down && g.mouseDown:
		if !g.dragging && pos.Dist(g.pressPos) >= g.DragDeadZone {
			g.dragging = true
		}
		if g.dragging {
			v.Drag(pos.X-g.lastPos.X, pos.Y-g.lastPos.Y)
		}
		g.lastPos = pos
	case !down && g.mouseDown:
		g.mouseDown = false
		g.dragging = false
	}
}

// update feeds the next frame, injected or live.
func (g *gestureTracker) update(v *Viewport) {
	g.feed(g.next(), v)
}
