package spinebox

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// ClearMask selects which buffers a Clear resets. The bit values match the
// GL constants they stand for.
type ClearMask uint32

const (
	DepthBufferBit   ClearMask = 0x0100
	StencilBufferBit ClearMask = 0x0400
	ColorBufferBit   ClearMask = 0x4000

	// FullClearMask marks the start of a frame.
	FullClearMask = ColorBufferBit | DepthBufferBit | StencilBufferBit
)

// GraphicsContext is the narrow drawing surface the Renderer submits to.
type GraphicsContext interface {
	// DrawIndexed submits one indexed triangle list.
	DrawIndexed(dst *ebiten.Image, vertices []ebiten.Vertex, indices []uint32, src *ebiten.Image, opts *ebiten.DrawTrianglesOptions)
	// Clear resets the buffers named by mask.
	Clear(dst *ebiten.Image, mask ClearMask)
}

// ebitenContext draws straight to ebiten images. Ebiten exposes no depth or
// stencil buffers, so only the color bit has an effect.
type ebitenContext struct {
	clearColor color.Color
}

// NewEbitenContext returns a GraphicsContext backed by ebiten. Clearing the
// color buffer fills dst with clearColor; nil means transparent.
func NewEbitenContext(clearColor color.Color) GraphicsContext {
	return &ebitenContext{clearColor: clearColor}
}

func (c *ebitenContext) DrawIndexed(dst *ebiten.Image, vertices []ebiten.Vertex, indices []uint32, src *ebiten.Image, opts *ebiten.DrawTrianglesOptions) {
	dst.DrawTriangles32(vertices, indices, src, opts)
}

func (c *ebitenContext) Clear(dst *ebiten.Image, mask ClearMask) {
	if mask&ColorBufferBit == 0 {
		return
	}
	if c.clearColor == nil {
		dst.Clear()
		return
	}
	dst.Fill(c.clearColor)
}
