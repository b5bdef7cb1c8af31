package spinebox

// Synthetic input for scripted runs and tests. Each queued frame is consumed
// by one gestureTracker.update call instead of live input.

// injectWheel queues a single wheel step. Positive deltaY zooms out.
func (g *gestureTracker) injectWheel(deltaY float64) {
	g.injectQueue = append(g.injectQueue, inputFrame{WheelY: deltaY})
}

// injectDrag queues a mouse drag: press at from, frames-2 moves ending at
// to, then a release. Minimum frames is 3.
func (g *gestureTracker) injectDrag(from, to Vec2, frames int) {
	if frames < 3 {
		frames = 3
	}
	g.injectQueue = append(g.injectQueue, inputFrame{Mouse: from, MouseDown: true})
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		g.injectQueue = append(g.injectQueue, inputFrame{
			Mouse:     Vec2{from.X + (to.X-from.X)*t, from.Y + (to.Y-from.Y)*t},
			MouseDown: true,
		})
	}
	g.injectQueue = append(g.injectQueue, inputFrame{Mouse: to})
}

// injectPinch queues a horizontal two-finger pinch around center whose
// finger spacing goes from startDist to endDist over frames moves, followed
// by a release frame.
func (g *gestureTracker) injectPinch(center Vec2, startDist, endDist float64, frames int) {
	if frames < 1 {
		frames = 1
	}
	at := func(d float64) inputFrame {
		return inputFrame{Touches: []touchPoint{
			{ID: 1, Pos: Vec2{center.X - d/2, center.Y}},
			{ID: 2, Pos: Vec2{center.X + d/2, center.Y}},
		}}
	}
	g.injectQueue = append(g.injectQueue, at(startDist))
	for i := 1; i <= frames; i++ {
		t := float64(i) / float64(frames)
		g.injectQueue = append(g.injectQueue, at(startDist+(endDist-startDist)*t))
	}
	g.injectQueue = append(g.injectQueue, inputFrame{})
}

// pendingInjected reports how many synthetic frames remain.
func (g *gestureTracker) pendingInjected() int {
	return len(g.injectQueue)
}
