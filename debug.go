package spinebox

import (
	"fmt"
	"os"
	"time"
)

// debugStats holds per-frame timing and draw metrics.
// Only printed when Renderer.Debug is true.
type debugStats struct {
	transformTime time.Duration
	submitTime    time.Duration
	entityCount   int
	triangleCount int
	drawCallCount int
}

// debugLog prints timing and draw stats to stderr.
func (r *Renderer) debugLog() {
	if !r.Debug {
		return
	}
	s := r.stats
	_, _ = fmt.Fprintf(os.Stderr,
		"[spinebox] transform: %v | submit: %v | total: %v\n",
		s.transformTime, s.submitTime, s.transformTime+s.submitTime)
	_, _ = fmt.Fprintf(os.Stderr,
		"[spinebox] entities: %d | triangles: %d | draw calls: %d\n",
		s.entityCount, s.triangleCount, s.drawCallCount)
}

// DrawCalls returns the number of draws the last DrawFrame submitted.
func (r *Renderer) DrawCalls() int {
	return r.stats.drawCallCount
}
