package spinebox

import (
	"math"
	"sort"
)

// Animation is a named set of timelines.
type Animation struct {
	Name      string
	Timelines []Timeline
	Duration  float64
}

// newAnimation derives the duration from the last key of every timeline.
func newAnimation(name string, timelines []Timeline) *Animation {
	a := &Animation{Name: name, Timelines: timelines}
	for _, t := range timelines {
		if d := t.Duration(); d > a.Duration {
			a.Duration = d
		}
	}
	return a
}

// Apply poses s at time. alpha blends each property from its current value
// toward the keyed value; 1 replaces it.
func (a *Animation) Apply(s *Skeleton, time float64, loop bool, alpha float64) {
	if loop && a.Duration > 0 {
		time = modFloat(time, a.Duration)
	}
	for _, t := range a.Timelines {
		t.apply(s, time, alpha)
	}
}

// Events returns the events fired in (last, now], handling loop wrap.
func (a *Animation) Events(last, now float64, loop bool) []Event {
	var out []Event
	for _, t := range a.Timelines {
		et, ok := t.(*EventTimeline)
		if !ok {
			continue
		}
		if !loop || a.Duration <= 0 {
			out = et.collect(out, last, now)
			continue
		}
		from, to := modFloat(last, a.Duration), modFloat(now, a.Duration)
		if to < from || now-last >= a.Duration {
			out = et.collect(out, from, a.Duration)
			out = et.collect(out, -1, to)
		} else {
			out = et.collect(out, from, to)
		}
	}
	return out
}

// Timeline keys one property over time.
type Timeline interface {
	// Duration is the time of the last key.
	Duration() float64
	apply(s *Skeleton, time, alpha float64)
}

// --- Curves ---

type curveKind uint8

const (
	curveLinear curveKind = iota
	curveStepped
	curveBezier
)

// keyframe is one key of a curve timeline. bezier holds cx1, cy1, cx2, cy2
// per channel in absolute time/value units, describing the segment from
// this key to the next.
type keyframe struct {
	Time   float64
	Values []float64
	curve  curveKind
	bezier []float64
}

// curveTimeline is the shared keyed storage of numeric timelines.
type curveTimeline struct {
	Channels int
	Frames   []keyframe
}

func newCurveTimeline(channels, frames int) curveTimeline {
	return curveTimeline{Channels: channels, Frames: make([]keyframe, 0, frames)}
}

func (c *curveTimeline) addFrame(time float64, values ...float64) {
	c.Frames = append(c.Frames, keyframe{Time: time, Values: values})
}

func (c *curveTimeline) setStepped(frame int) {
	c.Frames[frame].curve = curveStepped
}

// setBezier stores the control points for channel of the segment starting
// at frame.
func (c *curveTimeline) setBezier(frame, channel int, cx1, cy1, cx2, cy2 float64) {
	f := &c.Frames[frame]
	if f.bezier == nil {
		f.bezier = make([]float64, 4*c.Channels)
		// Channels without explicit curves stay linear.
		for ch := 0; ch < c.Channels; ch++ {
			f.bezier[ch*4] = -1
		}
	}
	f.curve = curveBezier
	copy(f.bezier[channel*4:], []float64{cx1, cy1, cx2, cy2})
}

// setNormalizedCurve converts a 3.x style curve, given as control points in
// the unit square, into absolute control points for every channel.
func (c *curveTimeline) setNormalizedCurve(frame int, c1, c2, c3, c4 float64) {
	if frame+1 >= len(c.Frames) {
		return
	}
	f, next := c.Frames[frame], c.Frames[frame+1]
	dt := next.Time - f.Time
	for ch := 0; ch < c.Channels; ch++ {
		v0, v1 := f.Values[ch], next.Values[ch]
		c.setBezier(frame, ch, f.Time+c1*dt, v0+c2*(v1-v0), f.Time+c3*dt, v0+c4*(v1-v0))
	}
}

func (c *curveTimeline) Duration() float64 {
	if len(c.Frames) == 0 {
		return 0
	}
	return c.Frames[len(c.Frames)-1].Time
}

// search returns the index of the last frame with Time <= time, or -1.
func (c *curveTimeline) search(time float64) int {
	i := sort.Search(len(c.Frames), func(i int) bool { return c.Frames[i].Time > time })
	return i - 1
}

// sample interpolates all channels at time into out. It returns false
// before the first key.
func (c *curveTimeline) sample(time float64, out []float64) bool {
	i := c.search(time)
	if i < 0 {
		return false
	}
	f := c.Frames[i]
	if i == len(c.Frames)-1 || f.curve == curveStepped {
		copy(out, f.Values)
		return true
	}
	next := c.Frames[i+1]
	for ch := 0; ch < c.Channels; ch++ {
		out[ch] = segmentValue(f, next, ch, time)
	}
	return true
}

// segmentValue evaluates channel ch between keys a and b at time.
func segmentValue(a, b keyframe, ch int, time float64) float64 {
	v0, v1 := a.Values[ch], b.Values[ch]
	if a.curve == curveBezier && a.bezier[ch*4] >= 0 {
		bz := a.bezier[ch*4 : ch*4+4]
		return bezierValue(a.Time, v0, bz[0], bz[1], bz[2], bz[3], b.Time, v1, time)
	}
	dt := b.Time - a.Time
	if dt <= 0 {
		return v0
	}
	return v0 + (v1-v0)*(time-a.Time)/dt
}

// bezierValue evaluates the cubic bezier (t0,v0) (cx1,cy1) (cx2,cy2)
// (t1,v1) at time by bisecting its x polynomial.
func bezierValue(t0, v0, cx1, cy1, cx2, cy2, t1, v1, time float64) float64 {
	if time <= t0 {
		return v0
	}
	if time >= t1 {
		return v1
	}
	lo, hi := 0.0, 1.0
	s := 0.5
	for i := 0; i < 32; i++ {
		s = (lo + hi) / 2
		if cubic(t0, cx1, cx2, t1, s) < time {
			lo = s
		} else {
			hi = s
		}
	}
	return cubic(v0, cy1, cy2, v1, s)
}

func cubic(p0, p1, p2, p3, s float64) float64 {
	u := 1 - s
	return u*u*u*p0 + 3*u*u*s*p1 + 3*u*s*s*p2 + s*s*s*p3
}

// --- Bone timelines ---

// BoneProperty is the bone channel a BoneTimeline keys.
type BoneProperty uint8

const (
	BoneRotate BoneProperty = iota
	BoneTranslate
	BoneTranslateX
	BoneTranslateY
	BoneScale
	BoneScaleX
	BoneScaleY
	BoneShear
	BoneShearX
	BoneShearY
)

// BoneTimeline keys a bone transform channel relative to the setup pose.
// Rotation, translation and shear add to the setup value; scale multiplies
// it.
type BoneTimeline struct {
	curveTimeline
	Property BoneProperty
	Bone     int
}

func newBoneTimeline(prop BoneProperty, bone, frames int) *BoneTimeline {
	ch := 1
	switch prop {
	case BoneTranslate, BoneScale, BoneShear:
		ch = 2
	}
	return &BoneTimeline{curveTimeline: newCurveTimeline(ch, frames), Property: prop, Bone: bone}
}

func (t *BoneTimeline) apply(s *Skeleton, time, alpha float64) {
	var v [2]float64
	if !t.sample(time, v[:t.Channels]) {
		return
	}
	b := s.Bones[t.Bone]
	d := b.Data
	mix := func(cur *float64, target float64) {
		*cur += (target - *cur) * alpha
	}
	switch t.Property {
	case BoneRotate:
		target := d.Rotation + v[0]
		r := target - b.Rotation
		r -= float64(int((r+180)/360)) * 360
		if r < -180 {
			r += 360
		}
		b.Rotation += r * alpha
	case BoneTranslate:
		mix(&b.X, d.X+v[0])
		mix(&b.Y, d.Y+v[1])
	case BoneTranslateX:
		mix(&b.X, d.X+v[0])
	case BoneTranslateY:
		mix(&b.Y, d.Y+v[0])
	case BoneScale:
		mix(&b.ScaleX, d.ScaleX*v[0])
		mix(&b.ScaleY, d.ScaleY*v[1])
	case BoneScaleX:
		mix(&b.ScaleX, d.ScaleX*v[0])
	case BoneScaleY:
		mix(&b.ScaleY, d.ScaleY*v[0])
	case BoneShear:
		mix(&b.ShearX, d.ShearX+v[0])
		mix(&b.ShearY, d.ShearY+v[1])
	case BoneShearX:
		mix(&b.ShearX, d.ShearX+v[0])
	case BoneShearY:
		mix(&b.ShearY, d.ShearY+v[0])
	}
}

// --- Slot timelines ---

// SlotColorProperty selects which color channels a SlotColorTimeline keys.
type SlotColorProperty uint8

const (
	SlotRGBA SlotColorProperty = iota
	SlotRGB
	SlotRGBA2
	SlotRGB2
	SlotAlpha
)

// SlotColorTimeline keys a slot's light color (and dark color for the two
// color variants). Values are absolute.
type SlotColorTimeline struct {
	curveTimeline
	Property SlotColorProperty
	Slot     int
}

func newSlotColorTimeline(prop SlotColorProperty, slot, frames int) *SlotColorTimeline {
	ch := map[SlotColorProperty]int{SlotRGBA: 4, SlotRGB: 3, SlotRGBA2: 7, SlotRGB2: 6, SlotAlpha: 1}[prop]
	return &SlotColorTimeline{curveTimeline: newCurveTimeline(ch, frames), Property: prop, Slot: slot}
}

func (t *SlotColorTimeline) apply(s *Skeleton, time, alpha float64) {
	var v [7]float64
	if !t.sample(time, v[:t.Channels]) {
		return
	}
	slot := s.Slots[t.Slot]
	c := &slot.Color
	mix := func(cur *float64, target float64) {
		*cur += (target - *cur) * alpha
	}
	switch t.Property {
	case SlotRGBA, SlotRGBA2:
		mix(&c.R, v[0])
		mix(&c.G, v[1])
		mix(&c.B, v[2])
		mix(&c.A, v[3])
		if t.Property == SlotRGBA2 && slot.DarkColor != nil {
			mix(&slot.DarkColor.R, v[4])
			mix(&slot.DarkColor.G, v[5])
			mix(&slot.DarkColor.B, v[6])
		}
	case SlotRGB, SlotRGB2:
		mix(&c.R, v[0])
		mix(&c.G, v[1])
		mix(&c.B, v[2])
		if t.Property == SlotRGB2 && slot.DarkColor != nil {
			mix(&slot.DarkColor.R, v[3])
			mix(&slot.DarkColor.G, v[4])
			mix(&slot.DarkColor.B, v[5])
		}
	case SlotAlpha:
		mix(&c.A, v[0])
	}
}

// AttachmentTimeline switches a slot's attachment by name. An empty name
// clears the slot.
type AttachmentTimeline struct {
	Slot  int
	Times []float64
	Names []string
}

func (t *AttachmentTimeline) Duration() float64 {
	if len(t.Times) == 0 {
		return 0
	}
	return t.Times[len(t.Times)-1]
}

func (t *AttachmentTimeline) apply(s *Skeleton, time, alpha float64) {
	if alpha < 0.5 {
		return
	}
	i := sort.SearchFloat64s(t.Times, time)
	if i == len(t.Times) || t.Times[i] > time {
		i--
	}
	if i < 0 {
		return
	}
	s.setSlotAttachment(t.Slot, t.Names[i])
}

// DeformTimeline keys mesh vertex offsets. Frames carry a single curve
// channel running from 0 to 1 across each segment.
type DeformTimeline struct {
	curveTimeline
	Slot       int
	Attachment Attachment
	Deforms    [][]float64
}

func newDeformTimeline(slot int, a Attachment, frames int) *DeformTimeline {
	return &DeformTimeline{curveTimeline: newCurveTimeline(1, frames), Slot: slot, Attachment: a}
}

func (t *DeformTimeline) addDeform(time float64, deform []float64) {
	t.addFrame(time, 0)
	t.Deforms = append(t.Deforms, deform)
}

func (t *DeformTimeline) apply(s *Skeleton, time, alpha float64) {
	slot := s.Slots[t.Slot]
	if !deformTargets(slot.Attachment, t.Attachment) {
		return
	}
	i := t.search(time)
	if i < 0 {
		return
	}
	n := len(t.Deforms[i])
	if len(slot.Deform) != n {
		// No current deform to blend from.
		if cap(slot.Deform) < n {
			slot.Deform = make([]float64, n)
		}
		slot.Deform = slot.Deform[:n]
		alpha = 1
	}

	cur := t.Deforms[i]
	if i == len(t.Frames)-1 || t.Frames[i].curve == curveStepped {
		for j := range cur {
			slot.Deform[j] += (cur[j] - slot.Deform[j]) * alpha
		}
		return
	}
	a, b := t.Frames[i], t.Frames[i+1]
	var p float64
	if a.curve == curveBezier && a.bezier[0] >= 0 {
		p = bezierValue(a.Time, 0, a.bezier[0], a.bezier[1], a.bezier[2], a.bezier[3], b.Time, 1, time)
	} else if dt := b.Time - a.Time; dt > 0 {
		p = (time - a.Time) / dt
	}
	next := t.Deforms[i+1]
	for j := range cur {
		target := cur[j] + (next[j]-cur[j])*p
		slot.Deform[j] += (target - slot.Deform[j]) * alpha
	}
}

// deformTargets reports whether a deform keyed for target applies to the
// attachment currently in the slot.
func deformTargets(current, target Attachment) bool {
	if current == nil {
		return false
	}
	if current == target {
		return true
	}
	if m, ok := current.(*MeshAttachment); ok && m.timelineAttachment == target {
		return true
	}
	return false
}

// DrawOrderTimeline keys slot draw order. A nil order restores setup order.
type DrawOrderTimeline struct {
	Times  []float64
	Orders [][]int
}

func (t *DrawOrderTimeline) Duration() float64 {
	if len(t.Times) == 0 {
		return 0
	}
	return t.Times[len(t.Times)-1]
}

func (t *DrawOrderTimeline) apply(s *Skeleton, time, alpha float64) {
	if alpha < 0.5 {
		return
	}
	i := sort.SearchFloat64s(t.Times, time)
	if i == len(t.Times) || t.Times[i] > time {
		i--
	}
	if i < 0 {
		return
	}
	order := t.Orders[i]
	if order == nil {
		copy(s.DrawOrder, s.Slots)
		return
	}
	for j, slot := range order {
		s.DrawOrder[j] = s.Slots[slot]
	}
}

// Event is a fired event instance.
type Event struct {
	Time    float64
	Data    *EventData
	Int     int
	Float   float64
	String  string
	Volume  float64
	Balance float64
}

// EventTimeline keys events. It does not pose the skeleton.
type EventTimeline struct {
	Events []Event
}

func (t *EventTimeline) Duration() float64 {
	if len(t.Events) == 0 {
		return 0
	}
	return t.Events[len(t.Events)-1].Time
}

func (t *EventTimeline) apply(*Skeleton, float64, float64) {}

func (t *EventTimeline) collect(out []Event, after, upTo float64) []Event {
	for _, e := range t.Events {
		if e.Time > after && e.Time <= upTo {
			out = append(out, e)
		}
	}
	return out
}

// ConstraintProperty names a keyed constraint channel group.
type ConstraintProperty uint8

const (
	ConstraintIk ConstraintProperty = iota
	ConstraintTransform
	ConstraintPathPosition
	ConstraintPathSpacing
	ConstraintPathMix
)

// ConstraintTimeline keys constraint mixes. Constraints are not solved, so
// applying it leaves the pose untouched; it still counts toward the
// animation's duration.
type ConstraintTimeline struct {
	curveTimeline
	Property   ConstraintProperty
	Constraint int
}

func (t *ConstraintTimeline) apply(*Skeleton, float64, float64) {}

func modFloat(v, m float64) float64 {
	r := math.Mod(v, m)
	if r < 0 {
		r += m
	}
	return r
}
