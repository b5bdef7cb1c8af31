package spinebox

import "github.com/hajimehoshi/ebiten/v2"

// DrawCallProbe wraps a GraphicsContext and counts indexed draws between
// full-frame clears. The count belongs to the probe, not to the process, so
// several contexts can be measured side by side.
type DrawCallProbe struct {
	inner    GraphicsContext
	observer func(int)
	count    int
	last     int
}

// NewDrawCallProbe decorates inner. observer, if non-nil, receives the number
// of draws issued since the previous full clear each time a full clear
// happens.
func NewDrawCallProbe(inner GraphicsContext, observer func(int)) *DrawCallProbe {
	return &DrawCallProbe{inner: inner, observer: observer}
}

// DrawIndexed counts the draw and forwards it.
func (p *DrawCallProbe) DrawIndexed(dst *ebiten.Image, vertices []ebiten.Vertex, indices []uint32, src *ebiten.Image, opts *ebiten.DrawTrianglesOptions) {
	p.count++
	p.inner.DrawIndexed(dst, vertices, indices, src, opts)
}

// Clear forwards the clear. Only FullClearMask reports and resets the
// counter; partial clears leave it untouched.
func (p *DrawCallProbe) Clear(dst *ebiten.Image, mask ClearMask) {
	if mask == FullClearMask {
		p.last = p.count
		p.count = 0
		if p.observer != nil {
			p.observer(p.last)
		}
	}
	p.inner.Clear(dst, mask)
}

// Last returns the most recently reported count.
func (p *DrawCallProbe) Last() int {
	return p.last
}

// Pending returns the draws counted since the last full clear.
func (p *DrawCallProbe) Pending() int {
	return p.count
}
