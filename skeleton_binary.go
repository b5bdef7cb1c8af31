package spinebox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Binary timeline and attachment type tags.
const (
	binSlotAttachment = 0
	binSlotRGBA       = 1
	binSlotRGB        = 2
	binSlotRGBA2      = 3
	binSlotRGB2       = 4
	binSlotAlpha      = 5

	binAttachmentDeform   = 0
	binAttachmentSequence = 1

	binPathPosition = 0
	binPathSpacing  = 1
	binPathMix      = 2

	binCurveLinear  = 0
	binCurveStepped = 1
	binCurveBezier  = 2

	binAttRegion      = 0
	binAttBoundingBox = 1
	binAttMesh        = 2
	binAttLinkedMesh  = 3
	binAttPath        = 4
	binAttPoint       = 5
	binAttClipping    = 6
)

var (
	errBinaryEOF   = errors.New("unexpected end of data")
	errBinaryCount = errors.New("count exceeds remaining data")
)

// binaryInput reads Spine's big-endian binary primitives. Reads past the end
// latch err and return zero values so callers can check once.
type binaryInput struct {
	data    []byte
	pos     int
	err     error
	strings []string
}

func (in *binaryInput) need(n int) bool {
	if in.err != nil {
		return false
	}
	if n < 0 || n > len(in.data)-in.pos {
		in.err = errBinaryEOF
		return false
	}
	return true
}

// readCount reads an element count. Every element takes at least one byte,
// so a count larger than the unread data latches an error and returns 0.
func (in *binaryInput) readCount() int {
	n := in.readVarint(true)
	if in.err != nil {
		return 0
	}
	if n < 0 || n > len(in.data)-in.pos {
		in.err = fmt.Errorf("%w: %d", errBinaryCount, n)
		return 0
	}
	return n
}

func (in *binaryInput) readByte() int8 {
	if !in.need(1) {
		return 0
	}
	b := in.data[in.pos]
	in.pos++
	return int8(b)
}

func (in *binaryInput) readUnsignedByte() uint8 {
	return uint8(in.readByte())
}

func (in *binaryInput) readBool() bool {
	return in.readByte() != 0
}

func (in *binaryInput) readShort() int16 {
	if !in.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(in.data[in.pos:])
	in.pos += 2
	return int16(v)
}

func (in *binaryInput) readInt32() int32 {
	if !in.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(in.data[in.pos:])
	in.pos += 4
	return int32(v)
}

// readVarint reads a 1-5 byte variable length int. With optimizePositive
// false the value is zigzag decoded.
func (in *binaryInput) readVarint(optimizePositive bool) int {
	var result uint32
	for shift := uint(0); shift <= 28; shift += 7 {
		b := in.readUnsignedByte()
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
	}
	if optimizePositive {
		return int(int32(result))
	}
	return int(int32(result>>1) ^ -int32(result&1))
}

func (in *binaryInput) readFloat() float64 {
	return float64(math.Float32frombits(uint32(in.readInt32())))
}

// readString returns "" for both null and empty strings; ok is false for
// null.
func (in *binaryInput) readString() (s string, ok bool) {
	n := in.readCount()
	switch n {
	case 0:
		return "", false
	case 1:
		return "", true
	}
	n--
	if !in.need(n) {
		return "", false
	}
	s = string(in.data[in.pos : in.pos+n])
	in.pos += n
	return s, true
}

func (in *binaryInput) readStringRef() string {
	i := in.readVarint(true)
	if i <= 0 || i > len(in.strings) {
		return ""
	}
	return in.strings[i-1]
}

// ParseSkeletonBinary parses a Spine 4.0 or 4.1 binary (.skel) export.
func ParseSkeletonBinary(data []byte) (*SkeletonData, error) {
	p := &binarySkeletonParser{in: &binaryInput{data: data}, data: &SkeletonData{FPS: 30}}
	if err := p.parse(); err != nil {
		return nil, fmt.Errorf("spinebox: skeleton binary: %w", err)
	}
	if p.in.err != nil {
		return nil, fmt.Errorf("spinebox: skeleton binary: %w at offset %d", p.in.err, p.in.pos)
	}
	if err := p.data.validateGeometry(); err != nil {
		return nil, fmt.Errorf("spinebox: skeleton binary: %w", err)
	}
	return p.data, nil
}

type binarySkeletonParser struct {
	in           *binaryInput
	data         *SkeletonData
	nonessential bool
	sequences    bool
	linked       []linkedMesh
}

func (p *binarySkeletonParser) parse() error {
	in, d := p.in, p.data

	low, high := uint32(in.readInt32()), uint32(in.readInt32())
	if low != 0 || high != 0 {
		d.Hash = strconv.FormatUint(uint64(high), 16) + strconv.FormatUint(uint64(low), 16)
	}
	d.Version, _ = in.readString()
	switch {
	case strings.HasPrefix(d.Version, "4.1"):
		p.sequences = true
	case strings.HasPrefix(d.Version, "4.0"):
	default:
		if in.err != nil {
			return in.err
		}
		return fmt.Errorf("unsupported binary version %q (4.0 and 4.1 are supported)", d.Version)
	}
	d.X = in.readFloat()
	d.Y = in.readFloat()
	d.Width = in.readFloat()
	d.Height = in.readFloat()
	p.nonessential = in.readBool()
	if p.nonessential {
		d.FPS = in.readFloat()
		d.ImagesPath, _ = in.readString()
		d.AudioPath, _ = in.readString()
	}

	n := in.readCount()
	for i := 0; i < n && in.err == nil; i++ {
		s, _ := in.readString()
		in.strings = append(in.strings, s)
	}

	n = in.readCount()
	for i := 0; i < n && in.err == nil; i++ {
		name, _ := in.readString()
		var parent *BoneData
		if i > 0 {
			pi := in.readVarint(true)
			if pi < 0 || pi >= len(d.Bones) {
				return fmt.Errorf("bone %q: bad parent index %d", name, pi)
			}
			parent = d.Bones[pi]
		}
		b := newBoneData(i, name, parent)
		b.Rotation = in.readFloat()
		b.X = in.readFloat()
		b.Y = in.readFloat()
		b.ScaleX = in.readFloat()
		b.ScaleY = in.readFloat()
		b.ShearX = in.readFloat()
		b.ShearY = in.readFloat()
		b.Length = in.readFloat()
		b.TransformMode = TransformMode(in.readVarint(true))
		b.SkinRequired = in.readBool()
		if p.nonessential {
			in.readInt32() // editor color
		}
		d.Bones = append(d.Bones, b)
	}

	n = in.readCount()
	for i := 0; i < n && in.err == nil; i++ {
		name, _ := in.readString()
		bone, err := p.bone(in.readVarint(true))
		if err != nil {
			return fmt.Errorf("slot %q: %w", name, err)
		}
		s := &SlotData{Index: i, Name: name, Bone: bone}
		s.Color = colorFromRGBA8888(uint32(in.readInt32()))
		if dark := in.readInt32(); dark != -1 {
			c := colorFromRGB888(uint32(dark))
			s.DarkColor = &c
		}
		s.AttachmentName = in.readStringRef()
		s.Blend = BlendMode(in.readVarint(true))
		d.Slots = append(d.Slots, s)
	}

	if err := p.readConstraints(); err != nil {
		return err
	}

	def, err := p.readSkin(true)
	if err != nil {
		return err
	}
	if def != nil {
		d.DefaultSkin = def
		d.Skins = append(d.Skins, def)
	}
	n = in.readCount()
	for i := 0; i < n && in.err == nil; i++ {
		skin, err := p.readSkin(false)
		if err != nil {
			return err
		}
		d.Skins = append(d.Skins, skin)
	}
	if in.err != nil {
		return in.err
	}
	if err := resolveLinkedMeshes(d, p.linked); err != nil {
		return err
	}

	n = in.readCount()
	for i := 0; i < n && in.err == nil; i++ {
		e := &EventData{Name: in.readStringRef()}
		e.Int = in.readVarint(false)
		e.Float = in.readFloat()
		e.String, _ = in.readString()
		e.AudioPath, _ = in.readString()
		if e.AudioPath != "" {
			e.Volume = in.readFloat()
			e.Balance = in.readFloat()
		}
		d.Events = append(d.Events, e)
	}

	n = in.readCount()
	for i := 0; i < n && in.err == nil; i++ {
		name, _ := in.readString()
		a, err := p.readAnimation(name)
		if err != nil {
			return fmt.Errorf("animation %q: %w", name, err)
		}
		d.Animations = append(d.Animations, a)
	}
	return in.err
}

func (p *binarySkeletonParser) bone(i int) (*BoneData, error) {
	if i < 0 || i >= len(p.data.Bones) {
		return nil, fmt.Errorf("bone index %d out of range", i)
	}
	return p.data.Bones[i], nil
}

func (p *binarySkeletonParser) boneList() ([]*BoneData, error) {
	n := p.in.readCount()
	out := make([]*BoneData, 0, n)
	for i := 0; i < n && p.in.err == nil; i++ {
		b, err := p.bone(p.in.readVarint(true))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (p *binarySkeletonParser) readConstraints() error {
	in, d := p.in, p.data
	var err error

	n := in.readCount()
	for i := 0; i < n && in.err == nil; i++ {
		c := &IkConstraintData{}
		c.Name, _ = in.readString()
		c.Order = in.readVarint(true)
		c.SkinRequired = in.readBool()
		if c.Bones, err = p.boneList(); err != nil {
			return fmt.Errorf("ik %q: %w", c.Name, err)
		}
		if c.Target, err = p.bone(in.readVarint(true)); err != nil {
			return fmt.Errorf("ik %q: %w", c.Name, err)
		}
		c.Mix = in.readFloat()
		c.Softness = in.readFloat()
		c.BendDirection = int(in.readByte())
		c.Compress = in.readBool()
		c.Stretch = in.readBool()
		c.Uniform = in.readBool()
		d.IkConstraints = append(d.IkConstraints, c)
	}

	n = in.readCount()
	for i := 0; i < n && in.err == nil; i++ {
		c := &TransformConstraintData{}
		c.Name, _ = in.readString()
		c.Order = in.readVarint(true)
		c.SkinRequired = in.readBool()
		if c.Bones, err = p.boneList(); err != nil {
			return fmt.Errorf("transform %q: %w", c.Name, err)
		}
		if c.Target, err = p.bone(in.readVarint(true)); err != nil {
			return fmt.Errorf("transform %q: %w", c.Name, err)
		}
		c.Local = in.readBool()
		c.Relative = in.readBool()
		c.OffsetRotation = in.readFloat()
		c.OffsetX = in.readFloat()
		c.OffsetY = in.readFloat()
		c.OffsetScaleX = in.readFloat()
		c.OffsetScaleY = in.readFloat()
		c.OffsetShearY = in.readFloat()
		c.MixRotate = in.readFloat()
		c.MixX = in.readFloat()
		c.MixY = in.readFloat()
		c.MixScaleX = in.readFloat()
		c.MixScaleY = in.readFloat()
		c.MixShearY = in.readFloat()
		d.TransformConstraints = append(d.TransformConstraints, c)
	}

	n = in.readCount()
	for i := 0; i < n && in.err == nil; i++ {
		c := &PathConstraintData{}
		c.Name, _ = in.readString()
		c.Order = in.readVarint(true)
		c.SkinRequired = in.readBool()
		if c.Bones, err = p.boneList(); err != nil {
			return fmt.Errorf("path %q: %w", c.Name, err)
		}
		si := in.readVarint(true)
		if si < 0 || si >= len(d.Slots) {
			return fmt.Errorf("path %q: slot index %d out of range", c.Name, si)
		}
		c.Target = d.Slots[si]
		c.PositionMode = in.readVarint(true)
		c.SpacingMode = in.readVarint(true)
		c.RotateMode = in.readVarint(true)
		c.OffsetRotation = in.readFloat()
		c.Position = in.readFloat()
		c.Spacing = in.readFloat()
		c.MixRotate = in.readFloat()
		c.MixX = in.readFloat()
		c.MixY = in.readFloat()
		d.PathConstraints = append(d.PathConstraints, c)
	}
	return in.err
}

// readSkin returns nil for an empty default skin.
func (p *binarySkeletonParser) readSkin(isDefault bool) (*Skin, error) {
	in := p.in
	var skin *Skin
	var slotCount int
	if isDefault {
		slotCount = in.readCount()
		if slotCount == 0 {
			return nil, in.err
		}
		skin = NewSkin("default")
	} else {
		skin = NewSkin(in.readStringRef())
		var err error
		if skin.Bones, err = p.boneList(); err != nil {
			return nil, fmt.Errorf("skin %q: %w", skin.Name, err)
		}
		// Constraint index lists.
		for k := 0; k < 3; k++ {
			for j, m := 0, in.readCount(); j < m && in.err == nil; j++ {
				in.readVarint(true)
			}
		}
		slotCount = in.readCount()
	}

	for i := 0; i < slotCount && in.err == nil; i++ {
		slot := in.readVarint(true)
		if slot < 0 || slot >= len(p.data.Slots) {
			return nil, fmt.Errorf("skin %q: slot index %d out of range", skin.Name, slot)
		}
		for j, m := 0, in.readCount(); j < m && in.err == nil; j++ {
			name := in.readStringRef()
			a, err := p.readAttachment(skin, slot, name)
			if err != nil {
				return nil, fmt.Errorf("skin %q attachment %q: %w", skin.Name, name, err)
			}
			if a != nil {
				skin.SetAttachment(slot, name, a)
			}
		}
	}
	return skin, in.err
}

func (p *binarySkeletonParser) readColor() Color {
	return colorFromRGBA8888(uint32(p.in.readInt32()))
}

func (p *binarySkeletonParser) readSequence() {
	if !p.sequences {
		return
	}
	if p.in.readBool() {
		// count, start, digits, setup index
		for i := 0; i < 4; i++ {
			p.in.readVarint(true)
		}
	}
}

func (p *binarySkeletonParser) readAttachment(skin *Skin, slot int, placeholder string) (Attachment, error) {
	in := p.in
	name := in.readStringRef()
	if name == "" {
		name = placeholder
	}
	base := attachmentBase{name: name}

	switch typ := in.readByte(); typ {
	case binAttRegion:
		path := in.readStringRef()
		if path == "" {
			path = name
		}
		r := &RegionAttachment{attachmentBase: base, Path: path}
		r.Rotation = in.readFloat()
		r.X = in.readFloat()
		r.Y = in.readFloat()
		r.ScaleX = in.readFloat()
		r.ScaleY = in.readFloat()
		r.Width = in.readFloat()
		r.Height = in.readFloat()
		r.Color = p.readColor()
		p.readSequence()
		return r, nil

	case binAttBoundingBox:
		bb := &BoundingBoxAttachment{attachmentBase: base, Color: ColorWhite}
		p.readVertices(&bb.VertexAttachment, in.readCount())
		if p.nonessential {
			bb.Color = p.readColor()
		}
		return bb, nil

	case binAttMesh:
		path := in.readStringRef()
		if path == "" {
			path = name
		}
		m := &MeshAttachment{attachmentBase: base, Path: path}
		m.timelineAttachment = m
		m.Color = p.readColor()
		vertexCount := in.readCount()
		m.RegionUVs = p.readFloats(vertexCount * 2)
		m.Triangles = p.readShorts()
		p.readVertices(&m.VertexAttachment, vertexCount)
		m.HullLength = in.readVarint(true) * 2
		p.readSequence()
		if p.nonessential {
			m.Edges = p.readShorts()
			m.Width = in.readFloat()
			m.Height = in.readFloat()
		}
		return m, nil

	case binAttLinkedMesh:
		path := in.readStringRef()
		if path == "" {
			path = name
		}
		m := &MeshAttachment{attachmentBase: base, Path: path}
		m.Color = p.readColor()
		skinName := in.readStringRef()
		parent := in.readStringRef()
		inherit := in.readBool()
		p.readSequence()
		if p.nonessential {
			m.Width = in.readFloat()
			m.Height = in.readFloat()
		}
		p.linked = append(p.linked, linkedMesh{mesh: m, skin: skinName, slot: slot, parent: parent, inheritTimeline: inherit})
		return m, nil

	case binAttPath:
		pa := &PathAttachment{attachmentBase: base, Color: ColorWhite}
		pa.Closed = in.readBool()
		pa.ConstantSpeed = in.readBool()
		vertexCount := in.readCount()
		p.readVertices(&pa.VertexAttachment, vertexCount)
		pa.Lengths = p.readFloats(vertexCount / 3)
		if p.nonessential {
			pa.Color = p.readColor()
		}
		return pa, nil

	case binAttPoint:
		pt := &PointAttachment{attachmentBase: base, Color: ColorWhite}
		pt.Rotation = in.readFloat()
		pt.X = in.readFloat()
		pt.Y = in.readFloat()
		if p.nonessential {
			pt.Color = p.readColor()
		}
		return pt, nil

	case binAttClipping:
		cl := &ClippingAttachment{attachmentBase: base, Color: ColorWhite}
		cl.EndSlot = in.readVarint(true)
		p.readVertices(&cl.VertexAttachment, in.readCount())
		if p.nonessential {
			cl.Color = p.readColor()
		}
		return cl, nil

	default:
		if in.err != nil {
			return nil, in.err
		}
		return nil, fmt.Errorf("unknown attachment type %d", typ)
	}
}

func (p *binarySkeletonParser) readFloats(n int) []float64 {
	out := make([]float64, 0, n)
	for i := 0; i < n && p.in.err == nil; i++ {
		out = append(out, p.in.readFloat())
	}
	return out
}

func (p *binarySkeletonParser) readShorts() []uint16 {
	n := p.in.readCount()
	out := make([]uint16, 0, n)
	for i := 0; i < n && p.in.err == nil; i++ {
		out = append(out, uint16(p.in.readShort()))
	}
	return out
}

func (p *binarySkeletonParser) readVertices(va *VertexAttachment, vertexCount int) {
	in := p.in
	va.WorldVerticesLength = vertexCount * 2
	if !in.readBool() {
		va.Vertices = p.readFloats(vertexCount * 2)
		return
	}
	var weights []float64
	var bones []int
	for i := 0; i < vertexCount && in.err == nil; i++ {
		n := in.readCount()
		bones = append(bones, n)
		for j := 0; j < n && in.err == nil; j++ {
			bones = append(bones, in.readVarint(true))
			weights = append(weights, in.readFloat(), in.readFloat(), in.readFloat())
		}
	}
	va.Bones = bones
	va.Vertices = weights
}

// readCurve reads the curve tag after a key and, for beziers, one control
// point set per channel.
func (p *binarySkeletonParser) readCurve(ct *curveTimeline, frame int) {
	switch p.in.readByte() {
	case binCurveStepped:
		ct.setStepped(frame)
	case binCurveBezier:
		for ch := 0; ch < ct.Channels; ch++ {
			cx1, cy1 := p.in.readFloat(), p.in.readFloat()
			cx2, cy2 := p.in.readFloat(), p.in.readFloat()
			ct.setBezier(frame, ch, cx1, cy1, cx2, cy2)
		}
	}
}

// readKeys reads frameCount keys of ct.Channels float values each. Every
// key after the first is followed by the curve of the segment ending at it.
func (p *binarySkeletonParser) readKeys(ct *curveTimeline, frameCount int) {
	for f := 0; f < frameCount && p.in.err == nil; f++ {
		time := p.in.readFloat()
		vals := p.readFloats(ct.Channels)
		if f > 0 {
			p.readCurve(ct, f-1)
		}
		ct.addFrame(time, vals...)
	}
}

func (p *binarySkeletonParser) readAnimation(name string) (*Animation, error) {
	in, d := p.in, p.data
	var timelines []Timeline
	in.readVarint(true) // timeline count

	// Slot timelines.
	for i, n := 0, in.readCount(); i < n && in.err == nil; i++ {
		slot := in.readVarint(true)
		if slot < 0 || slot >= len(d.Slots) {
			return nil, fmt.Errorf("slot index %d out of range", slot)
		}
		for j, m := 0, in.readCount(); j < m && in.err == nil; j++ {
			typ := in.readByte()
			frameCount := in.readCount()
			if typ == binSlotAttachment {
				t := &AttachmentTimeline{Slot: slot}
				for f := 0; f < frameCount && in.err == nil; f++ {
					t.Times = append(t.Times, in.readFloat())
					t.Names = append(t.Names, in.readStringRef())
				}
				timelines = append(timelines, t)
				continue
			}
			in.readVarint(true) // bezier count
			var prop SlotColorProperty
			switch typ {
			case binSlotRGBA:
				prop = SlotRGBA
			case binSlotRGB:
				prop = SlotRGB
			case binSlotRGBA2:
				prop = SlotRGBA2
			case binSlotRGB2:
				prop = SlotRGB2
			case binSlotAlpha:
				prop = SlotAlpha
			default:
				return nil, fmt.Errorf("unknown slot timeline type %d", typ)
			}
			t := newSlotColorTimeline(prop, slot, frameCount)
			p.readColorKeys(&t.curveTimeline, frameCount)
			timelines = append(timelines, t)
		}
	}

	// Bone timelines.
	for i, n := 0, in.readCount(); i < n && in.err == nil; i++ {
		bone := in.readVarint(true)
		if bone < 0 || bone >= len(d.Bones) {
			return nil, fmt.Errorf("bone index %d out of range", bone)
		}
		for j, m := 0, in.readCount(); j < m && in.err == nil; j++ {
			typ := in.readByte()
			frameCount := in.readCount()
			in.readVarint(true) // bezier count
			if typ < 0 || typ > int8(BoneShearY) {
				return nil, fmt.Errorf("unknown bone timeline type %d", typ)
			}
			t := newBoneTimeline(BoneProperty(typ), bone, frameCount)
			p.readKeys(&t.curveTimeline, frameCount)
			timelines = append(timelines, t)
		}
	}

	// IK constraint timelines: mix and softness are curved, bend direction,
	// compress and stretch are per key.
	for i, n := 0, in.readCount(); i < n && in.err == nil; i++ {
		index := in.readVarint(true)
		frameCount := in.readCount()
		in.readVarint(true) // bezier count
		t := &ConstraintTimeline{curveTimeline: newCurveTimeline(2, frameCount), Property: ConstraintIk, Constraint: index}
		for f := 0; f < frameCount && in.err == nil; f++ {
			time, mix, softness := in.readFloat(), in.readFloat(), in.readFloat()
			if f > 0 {
				p.readCurve(&t.curveTimeline, f-1)
			}
			t.addFrame(time, mix, softness)
			in.readByte() // bend direction
			in.readBool() // compress
			in.readBool() // stretch
		}
		timelines = append(timelines, t)
	}

	// Transform constraint timelines.
	for i, n := 0, in.readCount(); i < n && in.err == nil; i++ {
		index := in.readVarint(true)
		frameCount := in.readCount()
		in.readVarint(true) // bezier count
		t := &ConstraintTimeline{curveTimeline: newCurveTimeline(6, frameCount), Property: ConstraintTransform, Constraint: index}
		p.readKeys(&t.curveTimeline, frameCount)
		timelines = append(timelines, t)
	}

	// Path constraint timelines.
	for i, n := 0, in.readCount(); i < n && in.err == nil; i++ {
		index := in.readVarint(true)
		for j, m := 0, in.readCount(); j < m && in.err == nil; j++ {
			typ := in.readByte()
			frameCount := in.readCount()
			in.readVarint(true) // bezier count
			var t *ConstraintTimeline
			switch typ {
			case binPathPosition:
				t = &ConstraintTimeline{curveTimeline: newCurveTimeline(1, frameCount), Property: ConstraintPathPosition, Constraint: index}
			case binPathSpacing:
				t = &ConstraintTimeline{curveTimeline: newCurveTimeline(1, frameCount), Property: ConstraintPathSpacing, Constraint: index}
			case binPathMix:
				t = &ConstraintTimeline{curveTimeline: newCurveTimeline(3, frameCount), Property: ConstraintPathMix, Constraint: index}
			default:
				return nil, fmt.Errorf("unknown path timeline type %d", typ)
			}
			p.readKeys(&t.curveTimeline, frameCount)
			timelines = append(timelines, t)
		}
	}

	// Attachment (deform, sequence) timelines.
	for i, n := 0, in.readCount(); i < n && in.err == nil; i++ {
		si := in.readVarint(true)
		if si < 0 || si >= len(d.Skins) {
			return nil, fmt.Errorf("skin index %d out of range", si)
		}
		skin := d.Skins[si]
		for j, m := 0, in.readCount(); j < m && in.err == nil; j++ {
			slot := in.readVarint(true)
			if slot < 0 || slot >= len(d.Slots) {
				return nil, fmt.Errorf("deform slot index %d out of range", slot)
			}
			for k, o := 0, in.readCount(); k < o && in.err == nil; k++ {
				attName := in.readStringRef()
				att := skin.Attachment(slot, attName)
				typ := int8(binAttachmentDeform)
				if p.sequences {
					typ = in.readByte()
				}
				frameCount := in.readCount()
				switch typ {
				case binAttachmentDeform:
					va := vertexAttachmentOf(att)
					if va == nil {
						return nil, fmt.Errorf("deform attachment %q not found", attName)
					}
					in.readVarint(true) // bezier count
					timelines = append(timelines, p.readDeform(slot, att, va, frameCount))
				case binAttachmentSequence:
					for f := 0; f < frameCount && in.err == nil; f++ {
						in.readFloat()
						in.readInt32()
						in.readFloat()
					}
				default:
					return nil, fmt.Errorf("unknown attachment timeline type %d", typ)
				}
			}
		}
	}

	// Draw order timeline.
	if n := in.readCount(); n > 0 {
		t := &DrawOrderTimeline{}
		slotCount := len(d.Slots)
		for i := 0; i < n && in.err == nil; i++ {
			t.Times = append(t.Times, in.readFloat())
			offsetCount := in.readCount()
			order := make([]int, slotCount)
			for j := range order {
				order[j] = -1
			}
			unchanged := make([]int, 0, slotCount)
			orig := 0
			for j := 0; j < offsetCount && in.err == nil; j++ {
				slot := in.readVarint(true)
				if slot < orig || slot >= slotCount {
					return nil, fmt.Errorf("draw order slot index %d out of range", slot)
				}
				for orig != slot {
					unchanged = append(unchanged, orig)
					orig++
				}
				to := orig + in.readVarint(true)
				if to < 0 || to >= slotCount {
					return nil, fmt.Errorf("draw order offset out of range")
				}
				order[to] = orig
				orig++
			}
			for orig < slotCount {
				unchanged = append(unchanged, orig)
				orig++
			}
			u := len(unchanged)
			for j := slotCount - 1; j >= 0; j-- {
				if order[j] == -1 && u > 0 {
					u--
					order[j] = unchanged[u]
				}
			}
			t.Orders = append(t.Orders, order)
		}
		timelines = append(timelines, t)
	}

	// Event timeline.
	if n := in.readCount(); n > 0 {
		t := &EventTimeline{}
		for i := 0; i < n && in.err == nil; i++ {
			time := in.readFloat()
			ei := in.readVarint(true)
			if ei < 0 || ei >= len(d.Events) {
				return nil, fmt.Errorf("event index %d out of range", ei)
			}
			ed := d.Events[ei]
			e := Event{Time: time, Data: ed}
			e.Int = in.readVarint(false)
			e.Float = in.readFloat()
			e.String = ed.String
			if in.readBool() {
				e.String, _ = in.readString()
			}
			if ed.AudioPath != "" {
				e.Volume = in.readFloat()
				e.Balance = in.readFloat()
			}
			t.Events = append(t.Events, e)
		}
		timelines = append(timelines, t)
	}

	return newAnimation(name, timelines), in.err
}

// readColorKeys reads slot color keys stored as unsigned bytes.
func (p *binarySkeletonParser) readColorKeys(ct *curveTimeline, frameCount int) {
	in := p.in
	readVals := func() []float64 {
		vals := make([]float64, ct.Channels)
		for i := range vals {
			vals[i] = float64(in.readUnsignedByte()) / 255
		}
		return vals
	}
	for f := 0; f < frameCount && in.err == nil; f++ {
		time := in.readFloat()
		vals := readVals()
		if f > 0 {
			p.readCurve(ct, f-1)
		}
		ct.addFrame(time, vals...)
	}
}

func (p *binarySkeletonParser) readDeform(slot int, att Attachment, va *VertexAttachment, frameCount int) *DeformTimeline {
	in := p.in
	weighted := va.Weighted()
	deformLength := len(va.Vertices)
	if weighted {
		deformLength = len(va.Vertices) / 3 * 2
	}
	t := newDeformTimeline(slot, att, frameCount)
	for f := 0; f < frameCount && in.err == nil; f++ {
		time := in.readFloat()
		if f > 0 {
			// Bezier values are in the 0..1 percentage space.
			p.readCurve(&t.curveTimeline, f-1)
		}
		deform := make([]float64, deformLength)
		end := in.readVarint(true)
		if end == 0 {
			if !weighted {
				copy(deform, va.Vertices)
			}
		} else {
			start := in.readVarint(true)
			end += start
			for v := start; v < end && in.err == nil; v++ {
				val := in.readFloat()
				if v >= 0 && v < deformLength {
					deform[v] = val
				}
			}
			if !weighted {
				for v := range deform {
					deform[v] += va.Vertices[v]
				}
			}
		}
		t.addDeform(time, deform)
	}
	return t
}
