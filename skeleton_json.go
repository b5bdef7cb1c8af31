package spinebox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("invalid JSON document")

// ParseSkeletonJSON parses a Spine JSON export. Both 3.x and 4.x files are
// accepted. Bones, skins and animations keep the member order of the file.
func ParseSkeletonJSON(data []byte) (*SkeletonData, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("spinebox: skeleton json: %w", errInvalidJSON)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("spinebox: skeleton json: root is not an object")
	}
	p := &jsonSkeletonParser{data: &SkeletonData{FPS: 30}}
	if err := p.parse(root); err != nil {
		return nil, fmt.Errorf("spinebox: skeleton json: %w", err)
	}
	if err := p.data.validateGeometry(); err != nil {
		return nil, fmt.Errorf("spinebox: skeleton json: %w", err)
	}
	return p.data, nil
}

// jsonMember is one key/value pair of a JSON object, in document order.
type jsonMember struct {
	key   string
	value gjson.Result
}

// jsonMembers returns the members of an object in document order, or nil when
// r is not an object.
func jsonMembers(r gjson.Result) []jsonMember {
	if !r.IsObject() {
		return nil
	}
	var out []jsonMember
	r.ForEach(func(k, v gjson.Result) bool {
		out = append(out, jsonMember{k.String(), v})
		return true
	})
	return out
}

// jsonItems returns the elements of an array, or nil when r is not an array.
func jsonItems(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

// jsonFirst returns the first present member among keys. Used where 3.x and
// 4.x spell a field differently.
func jsonFirst(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func floatOr(r gjson.Result, key string, def float64) float64 {
	v := r.Get(key)
	if v.Type != gjson.Number {
		return def
	}
	return v.Float()
}

func intOr(r gjson.Result, key string, def int) int {
	return int(floatOr(r, key, float64(def)))
}

func stringOr(r gjson.Result, key, def string) string {
	v := r.Get(key)
	if v.Type != gjson.String {
		return def
	}
	return v.Str
}

func boolOr(r gjson.Result, key string, def bool) bool {
	v := r.Get(key)
	if !v.IsBool() {
		return def
	}
	return v.Bool()
}

// jsonFloats decodes an array of numbers, or returns nil when r is not an
// array.
func jsonFloats(r gjson.Result) []float64 {
	if !r.IsArray() {
		return nil
	}
	arr := r.Array()
	out := make([]float64, len(arr))
	for i, it := range arr {
		out[i] = it.Float()
	}
	return out
}

type jsonSkeletonParser struct {
	data   *SkeletonData
	v3     bool
	linked []linkedMesh
}

func (p *jsonSkeletonParser) parse(root gjson.Result) error {
	d := p.data
	if s := root.Get("skeleton"); s.IsObject() {
		d.Hash = stringOr(s, "hash", "")
		d.Version = stringOr(s, "spine", "")
		d.X = floatOr(s, "x", 0)
		d.Y = floatOr(s, "y", 0)
		d.Width = floatOr(s, "width", 0)
		d.Height = floatOr(s, "height", 0)
		d.FPS = floatOr(s, "fps", 30)
		d.ImagesPath = stringOr(s, "images", "")
		d.AudioPath = stringOr(s, "audio", "")
	}
	p.v3 = strings.HasPrefix(d.Version, "3.")

	for _, bm := range jsonItems(root.Get("bones")) {
		var parent *BoneData
		if pn := stringOr(bm, "parent", ""); pn != "" {
			if parent = d.FindBone(pn); parent == nil {
				return fmt.Errorf("bone %q: parent %q not found", stringOr(bm, "name", ""), pn)
			}
		}
		b := newBoneData(len(d.Bones), stringOr(bm, "name", ""), parent)
		b.Length = floatOr(bm, "length", 0)
		b.X = floatOr(bm, "x", 0)
		b.Y = floatOr(bm, "y", 0)
		b.Rotation = floatOr(bm, "rotation", 0)
		b.ScaleX = floatOr(bm, "scaleX", 1)
		b.ScaleY = floatOr(bm, "scaleY", 1)
		b.ShearX = floatOr(bm, "shearX", 0)
		b.ShearY = floatOr(bm, "shearY", 0)
		b.TransformMode = transformModeNames[stringOr(bm, "transform", "normal")]
		b.SkinRequired = boolOr(bm, "skin", false)
		d.Bones = append(d.Bones, b)
	}

	for _, sm := range jsonItems(root.Get("slots")) {
		name := stringOr(sm, "name", "")
		bone := d.FindBone(stringOr(sm, "bone", ""))
		if bone == nil {
			return fmt.Errorf("slot %q: bone %q not found", name, stringOr(sm, "bone", ""))
		}
		s := &SlotData{Index: len(d.Slots), Name: name, Bone: bone, Color: ColorWhite}
		if c := stringOr(sm, "color", ""); c != "" {
			col, err := parseHexColor(c)
			if err != nil {
				return err
			}
			s.Color = col
		}
		if c := stringOr(sm, "dark", ""); c != "" {
			col, err := parseHexColor(c)
			if err != nil {
				return err
			}
			s.DarkColor = &col
		}
		s.AttachmentName = stringOr(sm, "attachment", "")
		s.Blend = blendModeNames[stringOr(sm, "blend", "normal")]
		d.Slots = append(d.Slots, s)
	}

	if err := p.readConstraints(root); err != nil {
		return err
	}

	if err := p.readSkins(root.Get("skins")); err != nil {
		return err
	}
	if err := resolveLinkedMeshes(d, p.linked); err != nil {
		return err
	}

	for _, em := range jsonMembers(root.Get("events")) {
		v := em.value
		e := &EventData{
			Name:      em.key,
			Int:       intOr(v, "int", 0),
			Float:     floatOr(v, "float", 0),
			String:    stringOr(v, "string", ""),
			AudioPath: stringOr(v, "audio", ""),
		}
		if e.AudioPath != "" {
			e.Volume = floatOr(v, "volume", 1)
			e.Balance = floatOr(v, "balance", 0)
		}
		d.Events = append(d.Events, e)
	}

	for _, am := range jsonMembers(root.Get("animations")) {
		a, err := p.readAnimation(am.key, am.value)
		if err != nil {
			return fmt.Errorf("animation %q: %w", am.key, err)
		}
		d.Animations = append(d.Animations, a)
	}
	return nil
}

func (p *jsonSkeletonParser) bones(v gjson.Result) ([]*BoneData, error) {
	var out []*BoneData
	for _, it := range jsonItems(v) {
		b := p.data.FindBone(it.String())
		if b == nil {
			return nil, fmt.Errorf("bone %q not found", it.String())
		}
		out = append(out, b)
	}
	return out, nil
}

func (p *jsonSkeletonParser) readConstraints(root gjson.Result) error {
	d := p.data
	for _, m := range jsonItems(root.Get("ik")) {
		c := &IkConstraintData{
			Name:          stringOr(m, "name", ""),
			Order:         intOr(m, "order", 0),
			SkinRequired:  boolOr(m, "skin", false),
			Mix:           floatOr(m, "mix", 1),
			Softness:      floatOr(m, "softness", 0),
			BendDirection: 1,
			Compress:      boolOr(m, "compress", false),
			Stretch:       boolOr(m, "stretch", false),
			Uniform:       boolOr(m, "uniform", false),
		}
		if !boolOr(m, "bendPositive", true) {
			c.BendDirection = -1
		}
		var err error
		if c.Bones, err = p.bones(m.Get("bones")); err != nil {
			return fmt.Errorf("ik %q: %w", c.Name, err)
		}
		if c.Target = d.FindBone(stringOr(m, "target", "")); c.Target == nil {
			return fmt.Errorf("ik %q: target not found", c.Name)
		}
		d.IkConstraints = append(d.IkConstraints, c)
	}

	for _, m := range jsonItems(root.Get("transform")) {
		c := &TransformConstraintData{
			Name:           stringOr(m, "name", ""),
			Order:          intOr(m, "order", 0),
			SkinRequired:   boolOr(m, "skin", false),
			Local:          boolOr(m, "local", false),
			Relative:       boolOr(m, "relative", false),
			OffsetRotation: floatOr(m, "rotation", 0),
			OffsetX:        floatOr(m, "x", 0),
			OffsetY:        floatOr(m, "y", 0),
			OffsetScaleX:   floatOr(m, "scaleX", 0),
			OffsetScaleY:   floatOr(m, "scaleY", 0),
			OffsetShearY:   floatOr(m, "shearY", 0),
		}
		c.MixRotate = firstFloat(m, 1, "mixRotate", "rotateMix")
		c.MixX = firstFloat(m, 1, "mixX", "translateMix")
		c.MixY = firstFloat(m, c.MixX, "mixY", "translateMix")
		c.MixScaleX = firstFloat(m, 1, "mixScaleX", "scaleMix")
		c.MixScaleY = firstFloat(m, c.MixScaleX, "mixScaleY", "scaleMix")
		c.MixShearY = firstFloat(m, 1, "mixShearY", "shearMix")
		var err error
		if c.Bones, err = p.bones(m.Get("bones")); err != nil {
			return fmt.Errorf("transform %q: %w", c.Name, err)
		}
		if c.Target = d.FindBone(stringOr(m, "target", "")); c.Target == nil {
			return fmt.Errorf("transform %q: target not found", c.Name)
		}
		d.TransformConstraints = append(d.TransformConstraints, c)
	}

	for _, m := range jsonItems(root.Get("path")) {
		c := &PathConstraintData{
			Name:           stringOr(m, "name", ""),
			Order:          intOr(m, "order", 0),
			SkinRequired:   boolOr(m, "skin", false),
			PositionMode:   indexOf([]string{"fixed", "percent"}, stringOr(m, "positionMode", "percent")),
			SpacingMode:    indexOf([]string{"length", "fixed", "percent", "proportional"}, stringOr(m, "spacingMode", "length")),
			RotateMode:     indexOf([]string{"tangent", "chain", "chainScale"}, stringOr(m, "rotateMode", "tangent")),
			OffsetRotation: floatOr(m, "rotation", 0),
			Position:       floatOr(m, "position", 0),
			Spacing:        floatOr(m, "spacing", 0),
		}
		c.MixRotate = firstFloat(m, 1, "mixRotate", "rotateMix")
		c.MixX = firstFloat(m, 1, "mixX", "translateMix")
		c.MixY = firstFloat(m, c.MixX, "mixY", "translateMix")
		var err error
		if c.Bones, err = p.bones(m.Get("bones")); err != nil {
			return fmt.Errorf("path %q: %w", c.Name, err)
		}
		if c.Target = d.FindSlot(stringOr(m, "target", "")); c.Target == nil {
			return fmt.Errorf("path %q: target slot not found", c.Name)
		}
		d.PathConstraints = append(d.PathConstraints, c)
	}
	return nil
}

func firstFloat(v gjson.Result, def float64, keys ...string) float64 {
	m := jsonFirst(v, keys...)
	if m.Type != gjson.Number {
		return def
	}
	return m.Float()
}

func indexOf(names []string, s string) int {
	for i, n := range names {
		if n == s {
			return i
		}
	}
	return 0
}

// readSkins accepts the 4.x array form and the 3.x object form.
func (p *jsonSkeletonParser) readSkins(v gjson.Result) error {
	d := p.data
	type skinJSON struct {
		name        string
		attachments gjson.Result
		bones       gjson.Result
	}
	var skins []skinJSON
	switch {
	case v.IsArray():
		for _, it := range v.Array() {
			skins = append(skins, skinJSON{stringOr(it, "name", ""), it.Get("attachments"), it.Get("bones")})
		}
	case v.IsObject():
		for _, m := range jsonMembers(v) {
			skins = append(skins, skinJSON{m.key, m.value, gjson.Result{}})
		}
	}
	for _, sj := range skins {
		skin := NewSkin(sj.name)
		var err error
		if skin.Bones, err = p.bones(sj.bones); err != nil {
			return fmt.Errorf("skin %q: %w", sj.name, err)
		}
		for _, sm := range jsonMembers(sj.attachments) {
			slot := d.FindSlot(sm.key)
			if slot == nil {
				return fmt.Errorf("skin %q: slot %q not found", sj.name, sm.key)
			}
			for _, am := range jsonMembers(sm.value) {
				a, err := p.readAttachment(am.value, skin, slot.Index, am.key)
				if err != nil {
					return fmt.Errorf("skin %q attachment %q: %w", sj.name, am.key, err)
				}
				if a != nil {
					skin.SetAttachment(slot.Index, am.key, a)
				}
			}
		}
		d.Skins = append(d.Skins, skin)
		if skin.Name == "default" {
			d.DefaultSkin = skin
		}
	}
	return nil
}

func (p *jsonSkeletonParser) readAttachment(m gjson.Result, skin *Skin, slot int, placeholder string) (Attachment, error) {
	name := stringOr(m, "name", placeholder)
	base := attachmentBase{name: name}
	color := func() (Color, error) {
		if c := stringOr(m, "color", ""); c != "" {
			return parseHexColor(c)
		}
		return ColorWhite, nil
	}
	col, err := color()
	if err != nil {
		return nil, err
	}

	switch typ := stringOr(m, "type", "region"); typ {
	case "region":
		return &RegionAttachment{
			attachmentBase: base,
			Path:           stringOr(m, "path", name),
			X:              floatOr(m, "x", 0),
			Y:              floatOr(m, "y", 0),
			Rotation:       floatOr(m, "rotation", 0),
			ScaleX:         floatOr(m, "scaleX", 1),
			ScaleY:         floatOr(m, "scaleY", 1),
			Width:          floatOr(m, "width", 32),
			Height:         floatOr(m, "height", 32),
			Color:          col,
		}, nil

	case "mesh", "linkedmesh", "skinnedmesh":
		mesh := &MeshAttachment{
			attachmentBase: base,
			Path:           stringOr(m, "path", name),
			Color:          col,
			Width:          floatOr(m, "width", 0),
			Height:         floatOr(m, "height", 0),
		}
		mesh.timelineAttachment = mesh
		if parent := stringOr(m, "parent", ""); parent != "" {
			inherit := boolOr(m, "timelines", boolOr(m, "deform", true))
			p.linked = append(p.linked, linkedMesh{
				mesh:            mesh,
				skin:            stringOr(m, "skin", ""),
				slot:            slot,
				parent:          parent,
				inheritTimeline: inherit,
			})
			return mesh, nil
		}
		uvs := jsonFloats(m.Get("uvs"))
		readJSONVertices(m, &mesh.VertexAttachment, len(uvs))
		mesh.RegionUVs = uvs
		for _, t := range jsonItems(m.Get("triangles")) {
			mesh.Triangles = append(mesh.Triangles, uint16(t.Int()))
		}
		for _, e := range jsonItems(m.Get("edges")) {
			mesh.Edges = append(mesh.Edges, uint16(e.Int()))
		}
		mesh.HullLength = intOr(m, "hull", 0) * 2
		return mesh, nil

	case "boundingbox":
		bb := &BoundingBoxAttachment{attachmentBase: base, Color: col}
		readJSONVertices(m, &bb.VertexAttachment, intOr(m, "vertexCount", 0)*2)
		return bb, nil

	case "path":
		pa := &PathAttachment{
			attachmentBase: base,
			Closed:         boolOr(m, "closed", false),
			ConstantSpeed:  boolOr(m, "constantSpeed", true),
			Lengths:        jsonFloats(m.Get("lengths")),
			Color:          col,
		}
		readJSONVertices(m, &pa.VertexAttachment, intOr(m, "vertexCount", 0)*2)
		return pa, nil

	case "point":
		return &PointAttachment{
			attachmentBase: base,
			X:              floatOr(m, "x", 0),
			Y:              floatOr(m, "y", 0),
			Rotation:       floatOr(m, "rotation", 0),
			Color:          col,
		}, nil

	case "clipping":
		cl := &ClippingAttachment{attachmentBase: base, Color: col, EndSlot: -1}
		if end := stringOr(m, "end", ""); end != "" {
			if s := p.data.FindSlot(end); s != nil {
				cl.EndSlot = s.Index
			}
		}
		readJSONVertices(m, &cl.VertexAttachment, intOr(m, "vertexCount", 0)*2)
		return cl, nil

	default:
		return nil, fmt.Errorf("unknown attachment type %q", typ)
	}
}

// readJSONVertices decodes unweighted vertices when the array length equals
// verticesLength, and weighted (count, bone, x, y, weight...) runs otherwise.
func readJSONVertices(m gjson.Result, va *VertexAttachment, verticesLength int) {
	vertices := jsonFloats(m.Get("vertices"))
	va.WorldVerticesLength = verticesLength
	if len(vertices) == verticesLength {
		va.Vertices = vertices
		return
	}
	var weights []float64
	var bones []int
	for i := 0; i < len(vertices); {
		n := int(vertices[i])
		i++
		if n < 0 || n > (len(vertices)-i)/4 {
			// Leaves bones short of the vertex count so validation rejects it.
			break
		}
		bones = append(bones, n)
		for end := i + n*4; i < end; i += 4 {
			bones = append(bones, int(vertices[i]))
			weights = append(weights, vertices[i+1], vertices[i+2], vertices[i+3])
		}
	}
	va.Bones = bones
	va.Vertices = weights
}

// readCurves reads the "curve" of each frame but the last. unit marks
// timelines whose segments interpolate a 0..1 percentage.
func (p *jsonSkeletonParser) readCurves(ct *curveTimeline, frames []gjson.Result, unit bool) {
	for i := 0; i+1 < len(frames) && i+1 < len(ct.Frames); i++ {
		c := frames[i].Get("curve")
		if !c.Exists() {
			continue
		}
		t0, t1 := ct.Frames[i].Time, ct.Frames[i+1].Time
		normalized := func(c1, c2, c3, c4 float64) {
			if unit {
				ct.setBezier(i, 0, t0+c1*(t1-t0), c2, t0+c3*(t1-t0), c4)
				return
			}
			ct.setNormalizedCurve(i, c1, c2, c3, c4)
		}
		switch {
		case c.Type == gjson.String:
			if c.Str == "stepped" {
				ct.setStepped(i)
			}
		case c.Type == gjson.Number:
			normalized(c.Float(), floatOr(frames[i], "c2", 0), floatOr(frames[i], "c3", 1), floatOr(frames[i], "c4", 1))
		case c.IsArray():
			vals := jsonFloats(c)
			if p.v3 && len(vals) == 4 {
				normalized(vals[0], vals[1], vals[2], vals[3])
				continue
			}
			for ch := 0; ch < ct.Channels && ch*4+3 < len(vals); ch++ {
				ct.setBezier(i, ch, vals[ch*4], vals[ch*4+1], vals[ch*4+2], vals[ch*4+3])
			}
		}
	}
}

// readValues builds a curve timeline from frames, pulling each channel from
// the first present key in keys[ch] with defaults[ch].
func (p *jsonSkeletonParser) readValues(ct *curveTimeline, frames []gjson.Result, keys [][]string, defaults []float64) {
	for _, f := range frames {
		vals := make([]float64, ct.Channels)
		for ch := range vals {
			vals[ch] = firstFloat(f, defaults[ch], keys[ch]...)
		}
		ct.addFrame(floatOr(f, "time", 0), vals...)
	}
	p.readCurves(ct, frames, false)
}

func (p *jsonSkeletonParser) readAnimation(name string, m gjson.Result) (*Animation, error) {
	d := p.data
	var timelines []Timeline

	for _, sm := range jsonMembers(m.Get("slots")) {
		slot := d.FindSlot(sm.key)
		if slot == nil {
			return nil, fmt.Errorf("slot %q not found", sm.key)
		}
		for _, tm := range jsonMembers(sm.value) {
			frames := jsonItems(tm.value)
			if len(frames) == 0 {
				continue
			}
			switch tm.key {
			case "attachment":
				t := &AttachmentTimeline{Slot: slot.Index}
				for _, f := range frames {
					t.Times = append(t.Times, floatOr(f, "time", 0))
					t.Names = append(t.Names, stringOr(f, "name", ""))
				}
				timelines = append(timelines, t)
			case "rgba", "color", "rgb", "alpha", "rgba2", "twoColor", "rgb2":
				t, err := p.readSlotColor(tm.key, slot.Index, frames)
				if err != nil {
					return nil, err
				}
				timelines = append(timelines, t)
			}
		}
	}

	for _, bm := range jsonMembers(m.Get("bones")) {
		bone := d.FindBone(bm.key)
		if bone == nil {
			return nil, fmt.Errorf("bone %q not found", bm.key)
		}
		for _, tm := range jsonMembers(bm.value) {
			frames := jsonItems(tm.value)
			if len(frames) == 0 {
				continue
			}
			prop, ok := boneTimelineNames[tm.key]
			if !ok {
				continue
			}
			t := newBoneTimeline(prop, bone.Index, len(frames))
			switch prop {
			case BoneRotate:
				p.readValues(&t.curveTimeline, frames, [][]string{{"value", "angle"}}, []float64{0})
			case BoneTranslate, BoneShear:
				p.readValues(&t.curveTimeline, frames, [][]string{{"x"}, {"y"}}, []float64{0, 0})
			case BoneScale:
				p.readValues(&t.curveTimeline, frames, [][]string{{"x"}, {"y"}}, []float64{1, 1})
			case BoneScaleX, BoneScaleY:
				p.readValues(&t.curveTimeline, frames, [][]string{{"value"}}, []float64{1})
			default:
				p.readValues(&t.curveTimeline, frames, [][]string{{"value"}}, []float64{0})
			}
			timelines = append(timelines, t)
		}
	}

	for _, cm := range jsonMembers(m.Get("ik")) {
		idx := p.constraintIndex(cm.key, ConstraintIk)
		t := &ConstraintTimeline{curveTimeline: newCurveTimeline(2, 0), Property: ConstraintIk, Constraint: idx}
		p.readValues(&t.curveTimeline, jsonItems(cm.value), [][]string{{"mix"}, {"softness"}}, []float64{1, 0})
		timelines = append(timelines, t)
	}
	for _, cm := range jsonMembers(m.Get("transform")) {
		idx := p.constraintIndex(cm.key, ConstraintTransform)
		t := &ConstraintTimeline{curveTimeline: newCurveTimeline(6, 0), Property: ConstraintTransform, Constraint: idx}
		p.readValues(&t.curveTimeline, jsonItems(cm.value),
			[][]string{{"mixRotate", "rotateMix"}, {"mixX", "translateMix"}, {"mixY", "translateMix"},
				{"mixScaleX", "scaleMix"}, {"mixScaleY", "scaleMix"}, {"mixShearY", "shearMix"}},
			[]float64{1, 1, 1, 1, 1, 1})
		timelines = append(timelines, t)
	}
	for _, cm := range jsonMembers(jsonFirst(m, "path", "paths")) {
		idx := p.constraintIndex(cm.key, ConstraintPathPosition)
		for _, tm := range jsonMembers(cm.value) {
			frames := jsonItems(tm.value)
			switch tm.key {
			case "position":
				t := &ConstraintTimeline{curveTimeline: newCurveTimeline(1, 0), Property: ConstraintPathPosition, Constraint: idx}
				p.readValues(&t.curveTimeline, frames, [][]string{{"value", "position"}}, []float64{0})
				timelines = append(timelines, t)
			case "spacing":
				t := &ConstraintTimeline{curveTimeline: newCurveTimeline(1, 0), Property: ConstraintPathSpacing, Constraint: idx}
				p.readValues(&t.curveTimeline, frames, [][]string{{"value", "spacing"}}, []float64{0})
				timelines = append(timelines, t)
			case "mix":
				t := &ConstraintTimeline{curveTimeline: newCurveTimeline(3, 0), Property: ConstraintPathMix, Constraint: idx}
				p.readValues(&t.curveTimeline, frames,
					[][]string{{"mixRotate", "rotateMix"}, {"mixX", "translateMix"}, {"mixY", "translateMix"}},
					[]float64{1, 1, 1})
				timelines = append(timelines, t)
			}
		}
	}

	deforms, err := p.readDeforms(m)
	if err != nil {
		return nil, err
	}
	timelines = append(timelines, deforms...)

	if frames := jsonItems(jsonFirst(m, "drawOrder", "draworder")); len(frames) > 0 {
		t, err := p.readDrawOrder(frames)
		if err != nil {
			return nil, err
		}
		timelines = append(timelines, t)
	}

	if frames := jsonItems(m.Get("events")); len(frames) > 0 {
		t := &EventTimeline{}
		for _, f := range frames {
			ed := d.FindEvent(stringOr(f, "name", ""))
			if ed == nil {
				return nil, fmt.Errorf("event %q not found", stringOr(f, "name", ""))
			}
			e := Event{
				Time:   floatOr(f, "time", 0),
				Data:   ed,
				Int:    intOr(f, "int", ed.Int),
				Float:  floatOr(f, "float", ed.Float),
				String: stringOr(f, "string", ed.String),
			}
			if ed.AudioPath != "" {
				e.Volume = floatOr(f, "volume", 1)
				e.Balance = floatOr(f, "balance", 0)
			}
			t.Events = append(t.Events, e)
		}
		timelines = append(timelines, t)
	}

	return newAnimation(name, timelines), nil
}

var boneTimelineNames = map[string]BoneProperty{
	"rotate":     BoneRotate,
	"translate":  BoneTranslate,
	"translatex": BoneTranslateX,
	"translatey": BoneTranslateY,
	"scale":      BoneScale,
	"scalex":     BoneScaleX,
	"scaley":     BoneScaleY,
	"shear":      BoneShear,
	"shearx":     BoneShearX,
	"sheary":     BoneShearY,
}

func (p *jsonSkeletonParser) constraintIndex(name string, kind ConstraintProperty) int {
	d := p.data
	switch kind {
	case ConstraintIk:
		for i, c := range d.IkConstraints {
			if c.Name == name {
				return i
			}
		}
	case ConstraintTransform:
		for i, c := range d.TransformConstraints {
			if c.Name == name {
				return i
			}
		}
	default:
		for i, c := range d.PathConstraints {
			if c.Name == name {
				return i
			}
		}
	}
	return -1
}

func (p *jsonSkeletonParser) readSlotColor(key string, slot int, frames []gjson.Result) (*SlotColorTimeline, error) {
	var prop SlotColorProperty
	switch key {
	case "rgba", "color":
		prop = SlotRGBA
	case "rgb":
		prop = SlotRGB
	case "alpha":
		prop = SlotAlpha
	case "rgba2", "twoColor":
		prop = SlotRGBA2
	case "rgb2":
		prop = SlotRGB2
	}
	t := newSlotColorTimeline(prop, slot, len(frames))
	for _, f := range frames {
		time := floatOr(f, "time", 0)
		if prop == SlotAlpha {
			t.addFrame(time, floatOr(f, "value", 1))
			continue
		}
		lightKey := "color"
		if prop == SlotRGBA2 || prop == SlotRGB2 {
			lightKey = "light"
		}
		light, err := parseHexColor(stringOr(f, lightKey, "ffffffff"))
		if err != nil {
			return nil, err
		}
		vals := []float64{light.R, light.G, light.B}
		if prop == SlotRGBA || prop == SlotRGBA2 {
			vals = append(vals, light.A)
		}
		if prop == SlotRGBA2 || prop == SlotRGB2 {
			dark, err := parseHexColor(stringOr(f, "dark", "000000"))
			if err != nil {
				return nil, err
			}
			vals = append(vals, dark.R, dark.G, dark.B)
		}
		t.addFrame(time, vals...)
	}
	p.readCurves(&t.curveTimeline, frames, false)
	return t, nil
}

// readDeforms handles the 4.x "attachments" map and the 3.x "deform" map.
func (p *jsonSkeletonParser) readDeforms(m gjson.Result) ([]Timeline, error) {
	d := p.data
	var out []Timeline
	read := func(skinName, slotName, attName string, frames []gjson.Result) error {
		skin := d.FindSkin(skinName)
		if skin == nil {
			return fmt.Errorf("deform skin %q not found", skinName)
		}
		slot := d.FindSlot(slotName)
		if slot == nil {
			return fmt.Errorf("deform slot %q not found", slotName)
		}
		att := skin.Attachment(slot.Index, attName)
		va := vertexAttachmentOf(att)
		if va == nil {
			return fmt.Errorf("deform attachment %q not found", attName)
		}
		weighted := va.Weighted()
		deformLength := len(va.Vertices)
		if weighted {
			deformLength = len(va.Vertices) / 3 * 2
		}
		t := newDeformTimeline(slot.Index, att, len(frames))
		for _, f := range frames {
			deform := make([]float64, deformLength)
			verts := jsonFloats(f.Get("vertices"))
			if verts == nil {
				if !weighted {
					copy(deform, va.Vertices)
				}
			} else {
				offset := intOr(f, "offset", 0)
				if offset < 0 || offset+len(verts) > deformLength {
					return fmt.Errorf("deform %q: offset %d out of range", attName, offset)
				}
				copy(deform[offset:], verts)
				if !weighted {
					for i := range deform {
						deform[i] += va.Vertices[i]
					}
				}
			}
			t.addDeform(floatOr(f, "time", 0), deform)
		}
		p.readCurves(&t.curveTimeline, frames, true)
		out = append(out, t)
		return nil
	}

	if m.Get("attachments").Exists() {
		for _, sk := range jsonMembers(m.Get("attachments")) {
			for _, sl := range jsonMembers(sk.value) {
				for _, at := range jsonMembers(sl.value) {
					frames := jsonItems(at.value.Get("deform"))
					if len(frames) == 0 {
						continue
					}
					if err := read(sk.key, sl.key, at.key, frames); err != nil {
						return nil, err
					}
				}
			}
		}
		return out, nil
	}
	for _, sk := range jsonMembers(m.Get("deform")) {
		for _, sl := range jsonMembers(sk.value) {
			for _, at := range jsonMembers(sl.value) {
				if err := read(sk.key, sl.key, at.key, jsonItems(at.value)); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

func vertexAttachmentOf(a Attachment) *VertexAttachment {
	switch v := a.(type) {
	case *MeshAttachment:
		return &v.VertexAttachment
	case *BoundingBoxAttachment:
		return &v.VertexAttachment
	case *ClippingAttachment:
		return &v.VertexAttachment
	case *PathAttachment:
		return &v.VertexAttachment
	}
	return nil
}

func (p *jsonSkeletonParser) readDrawOrder(frames []gjson.Result) (*DrawOrderTimeline, error) {
	d := p.data
	slotCount := len(d.Slots)
	t := &DrawOrderTimeline{}
	for _, f := range frames {
		t.Times = append(t.Times, floatOr(f, "time", 0))
		offsets := jsonItems(f.Get("offsets"))
		if offsets == nil {
			t.Orders = append(t.Orders, nil)
			continue
		}
		order := make([]int, slotCount)
		for i := range order {
			order[i] = -1
		}
		unchanged := make([]int, 0, slotCount)
		orig := 0
		for _, o := range offsets {
			slot := d.FindSlot(stringOr(o, "slot", ""))
			if slot == nil {
				return nil, fmt.Errorf("draw order slot %q not found", stringOr(o, "slot", ""))
			}
			if slot.Index < orig {
				return nil, fmt.Errorf("draw order slot %q out of order", slot.Name)
			}
			for orig != slot.Index {
				unchanged = append(unchanged, orig)
				orig++
			}
			to := orig + intOr(o, "offset", 0)
			if to < 0 || to >= slotCount {
				return nil, fmt.Errorf("draw order offset out of range for slot %q", slot.Name)
			}
			order[to] = orig
			orig++
		}
		for orig < slotCount {
			unchanged = append(unchanged, orig)
			orig++
		}
		u := len(unchanged)
		for i := slotCount - 1; i >= 0; i-- {
			if order[i] == -1 {
				u--
				order[i] = unchanged[u]
			}
		}
		t.Orders = append(t.Orders, order)
	}
	return t, nil
}
