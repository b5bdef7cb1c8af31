package spinebox

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// hudRefresh is how often, in seconds, the HUD text is redrawn.
const hudRefresh = 0.5

// hud is the counter overlay in the top-left corner. It draws straight to
// the screen, outside the probed renderer, so it is never counted.
type hud struct {
	img      *ebiten.Image
	elapsed  float64
	entities int
	draws    int
	dirty    bool
}

func newHUD() *hud {
	// 160x48 fits three DebugPrint lines.
	return &hud{img: ebiten.NewImage(160, 48), dirty: true}
}

// hudText formats the overlay lines.
func hudText(entities, drawCalls int, fps float64) string {
	return fmt.Sprintf("%d Spine Objects\n%d Draw Calls\nFPS: %.1f", entities, drawCalls, fps)
}

func (h *hud) update(dt float64, entities, drawCalls int) {
	h.elapsed += dt
	if entities != h.entities || drawCalls != h.draws {
		h.entities, h.draws = entities, drawCalls
		h.dirty = true
	}
	if !h.dirty && h.elapsed < hudRefresh {
		return
	}
	h.elapsed = 0
	h.dirty = false

	h.img.Clear()
	// Semi-transparent background for readability
	h.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(h.img, hudText(h.entities, h.draws, ebiten.ActualFPS()))
}

func (h *hud) draw(screen *ebiten.Image) {
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(4, 4)
	screen.DrawImage(h.img, &op)
}
