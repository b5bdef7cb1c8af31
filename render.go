package spinebox

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// maxBatchVertices caps a single submission. Larger runs are split.
const maxBatchVertices = 65535

// batchKey groups attachments that can be submitted in a single draw call.
type batchKey struct {
	src   *ebiten.Image
	blend BlendMode
}

// Renderer walks a node tree and submits every visible entity's attachments
// as indexed triangles through a GraphicsContext. Consecutive attachments
// sharing a texture page and blend mode are coalesced into one draw.
type Renderer struct {
	// Debug prints per-frame timing and draw stats to stderr.
	Debug bool

	ctx GraphicsContext

	key        batchKey
	verts      []ebiten.Vertex
	inds       []uint32
	worldVerts []float64

	stats debugStats
}

// NewRenderer returns a renderer submitting through ctx. Pass a
// DrawCallProbe to count draws.
func NewRenderer(ctx GraphicsContext) *Renderer {
	return &Renderer{ctx: ctx}
}

// DrawFrame clears dst, updates world transforms under root and draws every
// entity in tree order.
func (r *Renderer) DrawFrame(dst *ebiten.Image, root *Node) {
	r.stats = debugStats{}
	start := time.Now()

	r.ctx.Clear(dst, FullClearMask)
	updateWorldTransform(root, identityTransform, 1, false)
	r.stats.transformTime = time.Since(start)

	t := time.Now()
	r.key = batchKey{}
	r.verts = r.verts[:0]
	r.inds = r.inds[:0]
	r.drawNode(dst, root)
	r.flush(dst)
	r.stats.submitTime = time.Since(t)

	r.debugLog()
}

func (r *Renderer) drawNode(dst *ebiten.Image, n *Node) {
	if !n.Visible {
		return
	}
	if e := n.entity; e != nil {
		r.stats.entityCount++
		r.drawEntity(dst, e, n.worldTransform, n.worldAlpha)
	}
	for _, c := range n.children {
		r.drawNode(dst, c)
	}
}

func (r *Renderer) drawEntity(dst *ebiten.Image, e *Entity, m [6]float64, alpha float64) {
	skel := e.Skeleton
	for _, slot := range skel.DrawOrder {
		var (
			uvs       []float64
			triangles []uint16
			tint      Color
			region    *AtlasRegion
		)
		switch a := slot.Attachment.(type) {
		case *RegionAttachment:
			if a.Region == nil {
				continue
			}
			r.worldVerts = growFloats(r.worldVerts, 8)
			a.computeWorldVertices(slot.Bone, r.worldVerts)
			uvs = a.uvs[:]
			triangles = quadTriangles
			tint = a.Color
			region = a.Region
		case *MeshAttachment:
			if a.Region == nil || len(a.Triangles) == 0 {
				continue
			}
			n := a.WorldVerticesLength
			r.worldVerts = growFloats(r.worldVerts, n)
			a.computeWorldVertices(slot, 0, n, r.worldVerts)
			uvs = a.UVs
			triangles = a.Triangles
			tint = a.Color
			region = a.Region
		default:
			continue
		}
		src := region.Page.Texture
		if src == nil {
			continue
		}

		c := skel.Color.Mul(slot.Color).Mul(tint)
		c.A *= alpha
		if c.A <= 0 {
			continue
		}
		r.appendTriangles(dst, batchKey{src: src, blend: slot.Data.Blend}, m, uvs, triangles, c, region.Page)
	}
}

// appendTriangles adds one attachment's geometry to the batch, flushing first
// if the batch key changes or the batch would overflow.
func (r *Renderer) appendTriangles(dst *ebiten.Image, key batchKey, m [6]float64, uvs []float64, triangles []uint16, c Color, page *AtlasPage) {
	count := len(uvs) / 2
	if key != r.key || len(r.verts)+count > maxBatchVertices {
		r.flush(dst)
		r.key = key
	}

	a := float32(c.A)
	cr, cg, cb := float32(c.R)*a, float32(c.G)*a, float32(c.B)*a
	pw, ph := float64(page.Width), float64(page.Height)
	base := uint32(len(r.verts))
	for i := 0; i < count; i++ {
		x, y := r.worldVerts[i*2], r.worldVerts[i*2+1]
		r.verts = append(r.verts, ebiten.Vertex{
			DstX:   float32(m[0]*x + m[2]*y + m[4]),
			DstY:   float32(m[1]*x + m[3]*y + m[5]),
			SrcX:   float32(uvs[i*2] * pw),
			SrcY:   float32(uvs[i*2+1] * ph),
			ColorR: cr,
			ColorG: cg,
			ColorB: cb,
			ColorA: a,
		})
	}
	for _, idx := range triangles {
		r.inds = append(r.inds, base+uint32(idx))
	}
	r.stats.triangleCount += len(triangles) / 3
}

// flush submits the accumulated batch as a single draw.
func (r *Renderer) flush(dst *ebiten.Image) {
	if len(r.inds) == 0 || r.key.src == nil {
		r.verts = r.verts[:0]
		r.inds = r.inds[:0]
		return
	}
	var op ebiten.DrawTrianglesOptions
	op.Blend = r.key.blend.EbitenBlend()
	op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
	op.Filter = ebiten.FilterLinear
	r.ctx.DrawIndexed(dst, r.verts, r.inds, r.key.src, &op)
	r.stats.drawCallCount++
	r.verts = r.verts[:0]
	r.inds = r.inds[:0]
}

func growFloats(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
