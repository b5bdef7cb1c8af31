package spinebox

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestDebugStats_CountsFrame(t *testing.T) {
	ds := decodeFixture(t)
	r, _, _ := newTestRenderer()
	root := NewContainer("root")
	spawnEntities(root, ds, 3)

	r.DrawFrame(nil, root)
	s := r.stats
	if s.entityCount != 3 {
		t.Errorf("entityCount = %d, want 3", s.entityCount)
	}
	// Two region quads per entity.
	if s.triangleCount != 12 {
		t.Errorf("triangleCount = %d, want 12", s.triangleCount)
	}
	if s.drawCallCount != 1 || r.DrawCalls() != 1 {
		t.Errorf("drawCallCount = %d", s.drawCallCount)
	}

	r.DrawFrame(nil, NewContainer("empty"))
	if r.stats.entityCount != 0 || r.DrawCalls() != 0 {
		t.Error("stats not reset between frames")
	}
}

func TestDebugLog_WritesStderr(t *testing.T) {
	ds := decodeFixture(t)
	r, _, _ := newTestRenderer()
	root := NewContainer("root")
	spawnEntities(root, ds, 1)

	oldStderr := os.Stderr
	rd, w, _ := os.Pipe()
	os.Stderr = w

	r.DrawFrame(nil, root)
	r.Debug = true
	r.DrawFrame(nil, root)

	w.Close()
	os.Stderr = oldStderr

	var buf bytes.Buffer
	buf.ReadFrom(rd)
	output := buf.String()

	if strings.Count(output, "[spinebox] entities: 1") != 1 {
		t.Errorf("expected one stats line from the debug frame, got: %q", output)
	}
	if !strings.Contains(output, "draw calls: 1") {
		t.Errorf("missing draw call count: %q", output)
	}
}
