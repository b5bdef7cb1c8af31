package spinebox

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// testStep represents a single action in a test script.
type testStep struct {
	Action    string   `json:"action"`
	Label     string   `json:"label,omitempty"`
	Command   Command  `json:"command,omitempty"`
	X         float64  `json:"x,omitempty"`
	Y         float64  `json:"y,omitempty"`
	FromX     float64  `json:"fromX,omitempty"`
	FromY     float64  `json:"fromY,omitempty"`
	ToX       float64  `json:"toX,omitempty"`
	ToY       float64  `json:"toY,omitempty"`
	Delta     float64  `json:"delta,omitempty"`
	StartDist float64  `json:"startDist,omitempty"`
	EndDist   float64  `json:"endDist,omitempty"`
	Files     []string `json:"files,omitempty"`
	Frames    int      `json:"frames,omitempty"`
}

// testScript is the top-level JSON structure for a test script.
type testScript struct {
	Steps []testStep `json:"steps"`
}

// TestRunner sequences injected input, commands, drops and screenshots
// across frames for automated runs. Attach to a Game via SetTestRunner.
//
// Actions: screenshot, wait, settle (wait for background work), wheel,
// drag, pinch, command and drop.
type TestRunner struct {
	steps     []testStep
	cursor    int
	waitCount int
	settling  bool
	done      bool
}

// LoadTestScript parses a JSON test script and returns a TestRunner ready
// to be attached to a Game via SetTestRunner.
func LoadTestScript(jsonData []byte) (*TestRunner, error) {
	var script testScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("spinebox: parse test script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("spinebox: parse test script: no steps")
	}
	for i, st := range script.Steps {
		switch st.Action {
		case "screenshot", "wait", "settle", "wheel", "drag", "pinch", "command", "drop":
		default:
			return nil, fmt.Errorf("spinebox: parse test script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &TestRunner{steps: script.Steps}, nil
}

// Done reports whether all steps in the test script have been executed.
func (r *TestRunner) Done() bool {
	return r.done
}

// step advances the test runner by one frame. Called from Game.Update.
func (r *TestRunner) step(g *Game) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if g.gestures.pendingInjected() > 0 {
		return
	}
	if r.settling {
		if g.Sandbox.Busy() {
			return
		}
		r.settling = false
	}
	// Count down wait frames.
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "screenshot":
		g.Screenshot(st.Label)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "settle":
		r.settling = true
	case "wheel":
		g.gestures.injectWheel(st.Delta)
	case "drag":
		g.gestures.injectDrag(Vec2{st.FromX, st.FromY}, Vec2{st.ToX, st.ToY}, st.Frames)
	case "pinch":
		g.gestures.injectPinch(Vec2{st.X, st.Y}, st.StartDist, st.EndDist, max(st.Frames, 1))
	case "command":
		g.execLogged(st.Command)
	case "drop":
		if err := g.Sandbox.Drop(g.ctx, droppedFilesFromPaths(st.Files)); err != nil {
			g.Sandbox.Logger.Warn("scripted drop rejected", "error", err)
		}
	}

	// Check if we've reached the end after executing.
	if r.cursor >= len(r.steps) && r.waitCount == 0 && !r.settling && g.gestures.pendingInjected() == 0 {
		r.done = true
	}
}

// droppedFilesFromPaths turns file paths into lazily opened DroppedFiles.
func droppedFilesFromPaths(paths []string) []DroppedFile {
	files := make([]DroppedFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, DroppedFile{
			Name:     filepath.Base(p),
			MIMEType: mimeFromName(p),
			Open:     func() (io.ReadCloser, error) { return os.Open(p) },
		})
	}
	return files
}
