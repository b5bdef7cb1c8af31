package spinebox

import (
	"fmt"
	"strconv"
)

// TransformMode controls how a bone inherits its parent's transform.
type TransformMode uint8

const (
	TransformNormal TransformMode = iota
	TransformOnlyTranslation
	TransformNoRotationOrReflection
	TransformNoScale
	TransformNoScaleOrReflection
)

var transformModeNames = map[string]TransformMode{
	"normal":                 TransformNormal,
	"onlyTranslation":        TransformOnlyTranslation,
	"noRotationOrReflection": TransformNoRotationOrReflection,
	"noScale":                TransformNoScale,
	"noScaleOrReflection":    TransformNoScaleOrReflection,
}

// BoneData is the setup pose of a bone.
type BoneData struct {
	Index         int
	Name          string
	Parent        *BoneData
	Length        float64
	X, Y          float64
	Rotation      float64
	ScaleX        float64
	ScaleY        float64
	ShearX        float64
	ShearY        float64
	TransformMode TransformMode
	SkinRequired  bool
}

func newBoneData(index int, name string, parent *BoneData) *BoneData {
	return &BoneData{Index: index, Name: name, Parent: parent, ScaleX: 1, ScaleY: 1}
}

// SlotData is the setup pose of a slot.
type SlotData struct {
	Index          int
	Name           string
	Bone           *BoneData
	Color          Color
	DarkColor      *Color
	AttachmentName string
	Blend          BlendMode
}

// EventData is a named event with default payload values.
type EventData struct {
	Name      string
	Int       int
	Float     float64
	String    string
	AudioPath string
	Volume    float64
	Balance   float64
}

// IkConstraintData is parsed for completeness. Constraints are not solved
// when posing.
type IkConstraintData struct {
	Name          string
	Order         int
	SkinRequired  bool
	Bones         []*BoneData
	Target        *BoneData
	Mix           float64
	Softness      float64
	BendDirection int
	Compress      bool
	Stretch       bool
	Uniform       bool
}

// TransformConstraintData is parsed for completeness.
type TransformConstraintData struct {
	Name           string
	Order          int
	SkinRequired   bool
	Bones          []*BoneData
	Target         *BoneData
	Local          bool
	Relative       bool
	OffsetRotation float64
	OffsetX        float64
	OffsetY        float64
	OffsetScaleX   float64
	OffsetScaleY   float64
	OffsetShearY   float64
	MixRotate      float64
	MixX           float64
	MixY           float64
	MixScaleX      float64
	MixScaleY      float64
	MixShearY      float64
}

// PathConstraintData is parsed for completeness.
type PathConstraintData struct {
	Name           string
	Order          int
	SkinRequired   bool
	Bones          []*BoneData
	Target         *SlotData
	PositionMode   int
	SpacingMode    int
	RotateMode     int
	OffsetRotation float64
	Position       float64
	Spacing        float64
	MixRotate      float64
	MixX           float64
	MixY           float64
}

// Path constraint position and spacing modes that carry pixel units.
const (
	pathPositionFixed = 0
	pathSpacingLength = 0
	pathSpacingFixed  = 1
)

// --- Attachments ---

// Attachment is anything a skin can place in a slot.
type Attachment interface {
	Name() string
}

type attachmentBase struct {
	name string
}

func (a *attachmentBase) Name() string { return a.name }

// VertexAttachment holds vertices that are either local to the slot's bone
// or weighted across several bones. Weighted vertices store, per vertex, a
// bone count followed by that many bone indices in Bones, and bx, by,
// weight triples in Vertices.
type VertexAttachment struct {
	Bones               []int
	Vertices            []float64
	WorldVerticesLength int
}

// Weighted reports whether the vertices are bound to several bones.
func (v *VertexAttachment) Weighted() bool {
	return v.Bones != nil
}

// validate checks that the vertex data matches WorldVerticesLength and that
// weighted runs stay inside Bones and name existing bones.
func (v *VertexAttachment) validate(boneCount int) error {
	if v.WorldVerticesLength < 0 || v.WorldVerticesLength%2 != 0 {
		return fmt.Errorf("bad vertex length %d", v.WorldVerticesLength)
	}
	if v.Bones == nil {
		if len(v.Vertices) != v.WorldVerticesLength {
			return fmt.Errorf("have %d vertex values, want %d", len(v.Vertices), v.WorldVerticesLength)
		}
		return nil
	}
	vertices, weights := 0, 0
	for i := 0; i < len(v.Bones); vertices++ {
		n := v.Bones[i]
		if n < 0 || n > len(v.Bones)-i-1 {
			return fmt.Errorf("vertex %d: bad bone count %d", vertices, n)
		}
		for _, b := range v.Bones[i+1 : i+1+n] {
			if b < 0 || b >= boneCount {
				return fmt.Errorf("vertex %d: bone index %d out of range", vertices, b)
			}
		}
		i += n + 1
		weights += n
	}
	if vertices*2 != v.WorldVerticesLength || weights*3 != len(v.Vertices) {
		return fmt.Errorf("weighted data does not describe %d vertices", v.WorldVerticesLength/2)
	}
	return nil
}

// computeWorldVertices writes count floats (x, y pairs) starting at the
// given vertex float offset into out.
func (v *VertexAttachment) computeWorldVertices(slot *Slot, start, count int, out []float64) {
	skel := slot.Bone.skeleton
	deform := slot.Deform
	vertices := v.Vertices
	if v.Bones == nil {
		if len(deform) > 0 {
			vertices = deform
		}
		b := slot.Bone
		for i := start; i < start+count; i += 2 {
			vx, vy := vertices[i], vertices[i+1]
			out[i-start] = vx*b.A + vy*b.B + b.WorldX
			out[i-start+1] = vx*b.C + vy*b.D + b.WorldY
		}
		return
	}

	// Skip to the first requested vertex.
	vi, bi := 0, 0
	for i := 0; i < start; i += 2 {
		n := v.Bones[vi]
		vi += n + 1
		bi += n
	}
	bones := skel.Bones
	for w := 0; w < count; w += 2 {
		var wx, wy float64
		n := v.Bones[vi]
		vi++
		for end := vi + n; vi < end; vi, bi = vi+1, bi+1 {
			b := bones[v.Bones[vi]]
			f := bi * 3
			vx, vy, weight := vertices[f], vertices[f+1], vertices[f+2]
			if len(deform) > 0 {
				vx += deform[bi*2]
				vy += deform[bi*2+1]
			}
			wx += (vx*b.A + vy*b.B + b.WorldX) * weight
			wy += (vx*b.C + vy*b.D + b.WorldY) * weight
		}
		out[w] = wx
		out[w+1] = wy
	}
}

// RegionAttachment is a textured quad.
type RegionAttachment struct {
	attachmentBase
	Path     string
	X, Y     float64
	Rotation float64
	ScaleX   float64
	ScaleY   float64
	Width    float64
	Height   float64
	Color    Color
	Region   *AtlasRegion

	// offset holds the bone-local quad corners BL, UL, UR, BR.
	offset [8]float64
	uvs    [8]float64
}

// UpdateRegion recomputes the quad corners and texture coordinates from
// Region. Called once the attachment has been bound to the atlas.
func (r *RegionAttachment) UpdateRegion() {
	reg := r.Region
	if reg == nil {
		return
	}
	ow, oh := float64(reg.OriginalWidth), float64(reg.OriginalHeight)
	if ow == 0 || oh == 0 {
		ow, oh = float64(reg.Width), float64(reg.Height)
	}
	regionScaleX := r.Width / ow * r.ScaleX
	regionScaleY := r.Height / oh * r.ScaleY
	localX := -r.Width/2*r.ScaleX + reg.OffsetX*regionScaleX
	localY := -r.Height/2*r.ScaleY + reg.OffsetY*regionScaleY
	localX2 := localX + float64(reg.Width)*regionScaleX
	localY2 := localY + float64(reg.Height)*regionScaleY

	sin, cos := sinCosDeg(r.Rotation)
	x, y := r.X, r.Y
	localXCos := localX*cos + x
	localXSin := localX * sin
	localYCos := localY*cos + y
	localYSin := localY * sin
	localX2Cos := localX2*cos + x
	localX2Sin := localX2 * sin
	localY2Cos := localY2*cos + y
	localY2Sin := localY2 * sin

	r.offset = [8]float64{
		localXCos - localYSin, localYCos + localXSin,
		localXCos - localY2Sin, localY2Cos + localXSin,
		localX2Cos - localY2Sin, localY2Cos + localX2Sin,
		localX2Cos - localYSin, localYCos + localX2Sin,
	}

	u, v, u2, v2 := reg.UVs()
	if reg.Rotated() {
		r.uvs = [8]float64{u2, v2, u, v2, u, v, u2, v}
	} else {
		r.uvs = [8]float64{u, v2, u, v, u2, v, u2, v2}
	}
}

// computeWorldVertices writes the four transformed corners into out.
func (r *RegionAttachment) computeWorldVertices(b *Bone, out []float64) {
	for i := 0; i < 8; i += 2 {
		ox, oy := r.offset[i], r.offset[i+1]
		out[i] = ox*b.A + oy*b.B + b.WorldX
		out[i+1] = ox*b.C + oy*b.D + b.WorldY
	}
}

// quadTriangles indexes the BL, UL, UR, BR corners of a region quad.
var quadTriangles = []uint16{0, 1, 2, 2, 3, 0}

// MeshAttachment is a textured, optionally weighted polygon mesh.
type MeshAttachment struct {
	attachmentBase
	VertexAttachment
	Path       string
	Color      Color
	RegionUVs  []float64
	UVs        []float64
	Triangles  []uint16
	HullLength int
	Edges      []uint16
	Width      float64
	Height     float64
	Region     *AtlasRegion

	parentMesh *MeshAttachment
	// timelineAttachment is the attachment deform timelines target. Linked
	// meshes that inherit timelines point at their parent.
	timelineAttachment Attachment
}

// ParentMesh returns the mesh this linked mesh shares geometry with.
func (m *MeshAttachment) ParentMesh() *MeshAttachment {
	return m.parentMesh
}

// SetParentMesh makes m a linked mesh sharing p's geometry.
func (m *MeshAttachment) SetParentMesh(p *MeshAttachment) {
	m.parentMesh = p
	if p == nil {
		return
	}
	m.Bones = p.Bones
	m.Vertices = p.Vertices
	m.WorldVerticesLength = p.WorldVerticesLength
	m.RegionUVs = p.RegionUVs
	m.Triangles = p.Triangles
	m.HullLength = p.HullLength
	m.Edges = p.Edges
	m.Width = p.Width
	m.Height = p.Height
}

// UpdateRegion maps RegionUVs into page texture coordinates.
func (m *MeshAttachment) UpdateRegion() {
	n := len(m.RegionUVs)
	if len(m.UVs) != n {
		m.UVs = make([]float64, n)
	}
	reg := m.Region
	if reg == nil {
		copy(m.UVs, m.RegionUVs)
		return
	}
	tw, th := float64(reg.Page.Width), float64(reg.Page.Height)
	if tw == 0 || th == 0 {
		copy(m.UVs, m.RegionUVs)
		return
	}
	u, v, _, _ := reg.UVs()
	ow, oh := float64(reg.OriginalWidth), float64(reg.OriginalHeight)
	rw, rh := float64(reg.Width), float64(reg.Height)

	if reg.Degrees == 90 {
		u -= (oh - reg.OffsetY - rh) / tw
		v -= (ow - reg.OffsetX - rw) / th
		width := oh / tw
		height := ow / th
		for i := 0; i < n; i += 2 {
			m.UVs[i] = u + m.RegionUVs[i+1]*width
			m.UVs[i+1] = v + (1-m.RegionUVs[i])*height
		}
		return
	}

	u -= reg.OffsetX / tw
	v -= (oh - reg.OffsetY - rh) / th
	width := ow / tw
	height := oh / th
	for i := 0; i < n; i += 2 {
		m.UVs[i] = u + m.RegionUVs[i]*width
		m.UVs[i+1] = v + m.RegionUVs[i+1]*height
	}
}

// BoundingBoxAttachment is a hit polygon. It is never drawn.
type BoundingBoxAttachment struct {
	attachmentBase
	VertexAttachment
	Color Color
}

// ClippingAttachment is a clip polygon. It is never drawn and does not clip.
type ClippingAttachment struct {
	attachmentBase
	VertexAttachment
	EndSlot int
	Color   Color
}

// PathAttachment is a bezier path used by path constraints.
type PathAttachment struct {
	attachmentBase
	VertexAttachment
	Closed        bool
	ConstantSpeed bool
	Lengths       []float64
	Color         Color
}

// PointAttachment is a single oriented point.
type PointAttachment struct {
	attachmentBase
	X, Y     float64
	Rotation float64
	Color    Color
}

// --- Skins ---

type skinKey struct {
	slot int
	name string
}

// SkinEntry is one attachment placement in a skin.
type SkinEntry struct {
	SlotIndex  int
	Name       string
	Attachment Attachment
}

// Skin maps (slot, placeholder name) to attachments.
type Skin struct {
	Name  string
	Bones []*BoneData

	attachments map[skinKey]Attachment
	order       []skinKey
}

// NewSkin returns an empty skin.
func NewSkin(name string) *Skin {
	return &Skin{Name: name, attachments: make(map[skinKey]Attachment)}
}

// SetAttachment places a in slot under name, replacing any existing entry.
func (s *Skin) SetAttachment(slot int, name string, a Attachment) {
	k := skinKey{slot, name}
	if _, ok := s.attachments[k]; !ok {
		s.order = append(s.order, k)
	}
	s.attachments[k] = a
}

// Attachment returns the attachment for slot under name, or nil.
func (s *Skin) Attachment(slot int, name string) Attachment {
	return s.attachments[skinKey{slot, name}]
}

// Entries returns every placement in insertion order.
func (s *Skin) Entries() []SkinEntry {
	out := make([]SkinEntry, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, SkinEntry{SlotIndex: k.slot, Name: k.name, Attachment: s.attachments[k]})
	}
	return out
}

// --- Skeleton data ---

// SkeletonData is the immutable result of parsing a skeleton descriptor.
// Every list keeps the order of the source file.
type SkeletonData struct {
	Name       string
	Hash       string
	Version    string
	X, Y       float64
	Width      float64
	Height     float64
	FPS        float64
	ImagesPath string
	AudioPath  string

	Bones                []*BoneData
	Slots                []*SlotData
	Skins                []*Skin
	DefaultSkin          *Skin
	Events               []*EventData
	Animations           []*Animation
	IkConstraints        []*IkConstraintData
	TransformConstraints []*TransformConstraintData
	PathConstraints      []*PathConstraintData
}

// FindBone returns the bone named name, or nil.
func (d *SkeletonData) FindBone(name string) *BoneData {
	for _, b := range d.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// FindSlot returns the slot named name, or nil.
func (d *SkeletonData) FindSlot(name string) *SlotData {
	for _, s := range d.Slots {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// FindSkin returns the skin named name, or nil.
func (d *SkeletonData) FindSkin(name string) *Skin {
	for _, s := range d.Skins {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// FindEvent returns the event named name, or nil.
func (d *SkeletonData) FindEvent(name string) *EventData {
	for _, e := range d.Events {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindAnimation returns the animation named name, or nil.
func (d *SkeletonData) FindAnimation(name string) *Animation {
	for _, a := range d.Animations {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AnimationNames lists animation names in source order.
func (d *SkeletonData) AnimationNames() []string {
	out := make([]string, len(d.Animations))
	for i, a := range d.Animations {
		out[i] = a.Name
	}
	return out
}

// SkinNames lists skin names in source order. The default skin, when
// present, comes first.
func (d *SkeletonData) SkinNames() []string {
	out := make([]string, len(d.Skins))
	for i, s := range d.Skins {
		out[i] = s.Name
	}
	return out
}

// BindAtlas resolves every region and mesh attachment against atlas by its
// path. Missing regions are reported together.
func (d *SkeletonData) BindAtlas(atlas *Atlas) error {
	var missing []string
	seen := make(map[string]bool)
	for _, skin := range d.Skins {
		for _, e := range skin.Entries() {
			switch a := e.Attachment.(type) {
			case *RegionAttachment:
				reg, ok := atlas.Region(a.Path)
				if !ok {
					if !seen[a.Path] {
						seen[a.Path] = true
						missing = append(missing, a.Path)
					}
					continue
				}
				a.Region = reg
				a.UpdateRegion()
			case *MeshAttachment:
				reg, ok := atlas.Region(a.Path)
				if !ok {
					if !seen[a.Path] {
						seen[a.Path] = true
						missing = append(missing, a.Path)
					}
					continue
				}
				a.Region = reg
				a.UpdateRegion()
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("spinebox: atlas is missing regions %q", missing)
	}
	return nil
}

// linkedMesh is a mesh whose parent is resolved after all skins are read.
type linkedMesh struct {
	mesh            *MeshAttachment
	skin            string
	slot            int
	parent          string
	inheritTimeline bool
}

func resolveLinkedMeshes(d *SkeletonData, links []linkedMesh) error {
	for _, l := range links {
		skin := d.DefaultSkin
		if l.skin != "" {
			skin = d.FindSkin(l.skin)
		}
		if skin == nil {
			return fmt.Errorf("spinebox: linked mesh %q: skin %q not found", l.mesh.Name(), l.skin)
		}
		parent, ok := skin.Attachment(l.slot, l.parent).(*MeshAttachment)
		if !ok {
			return fmt.Errorf("spinebox: linked mesh %q: parent mesh %q not found", l.mesh.Name(), l.parent)
		}
		if l.inheritTimeline {
			l.mesh.timelineAttachment = parent
		} else {
			l.mesh.timelineAttachment = l.mesh
		}
		l.mesh.SetParentMesh(parent)
	}
	return nil
}

// --- Colors ---

// colorFromRGBA8888 unpacks a 0xRRGGBBAA value.
func colorFromRGBA8888(v uint32) Color {
	return Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}
}

// colorFromRGB888 unpacks a 0x00RRGGBB value.
func colorFromRGB888(v uint32) Color {
	return Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
		A: 1,
	}
}

// parseHexColor parses "RRGGBB" or "RRGGBBAA".
func parseHexColor(s string) (Color, error) {
	switch len(s) {
	case 6:
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return Color{}, fmt.Errorf("spinebox: bad color %q: %w", s, err)
		}
		return colorFromRGB888(uint32(v)), nil
	case 8:
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return Color{}, fmt.Errorf("spinebox: bad color %q: %w", s, err)
		}
		return colorFromRGBA8888(uint32(v)), nil
	}
	return Color{}, fmt.Errorf("spinebox: bad color %q", s)
}

// validate checks the mesh's vertices, UVs and triangle indices.
func (m *MeshAttachment) validate(boneCount int) error {
	if err := m.VertexAttachment.validate(boneCount); err != nil {
		return err
	}
	if len(m.RegionUVs) != m.WorldVerticesLength {
		return fmt.Errorf("have %d uvs, want %d", len(m.RegionUVs), m.WorldVerticesLength)
	}
	if len(m.Triangles)%3 != 0 {
		return fmt.Errorf("triangle index count %d is not a multiple of 3", len(m.Triangles))
	}
	n := m.WorldVerticesLength / 2
	for _, t := range m.Triangles {
		if int(t) >= n {
			return fmt.Errorf("triangle index %d out of range for %d vertices", t, n)
		}
	}
	return nil
}

// validateGeometry rejects attachments whose vertex data would index
// outside its own arrays or the skeleton's bones when posed.
func (d *SkeletonData) validateGeometry() error {
	for _, skin := range d.Skins {
		for _, e := range skin.Entries() {
			var err error
			switch a := e.Attachment.(type) {
			case *MeshAttachment:
				err = a.validate(len(d.Bones))
			default:
				if va := vertexAttachmentOf(a); va != nil {
					err = va.validate(len(d.Bones))
				}
			}
			if err != nil {
				return fmt.Errorf("skin %q attachment %q: %w", skin.Name, e.Name, err)
			}
		}
	}
	return nil
}
