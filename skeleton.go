package spinebox

import (
	"fmt"
	"math"
)

const degRad = math.Pi / 180

func sinCosDeg(deg float64) (sin, cos float64) {
	return math.Sincos(deg * degRad)
}

// Bone is the posed instance of a BoneData. A, B, C, D and WorldX, WorldY
// form its world matrix after UpdateWorldTransform:
//
//	world.x = A*x + B*y + WorldX
//	world.y = C*x + D*y + WorldY
type Bone struct {
	Data     *BoneData
	Parent   *Bone
	Children []*Bone

	X, Y     float64
	Rotation float64
	ScaleX   float64
	ScaleY   float64
	ShearX   float64
	ShearY   float64

	A, B, C, D     float64
	WorldX, WorldY float64

	skeleton *Skeleton
}

// SetToSetupPose resets the local transform to the bone's setup values.
func (b *Bone) SetToSetupPose() {
	d := b.Data
	b.X, b.Y = d.X, d.Y
	b.Rotation = d.Rotation
	b.ScaleX, b.ScaleY = d.ScaleX, d.ScaleY
	b.ShearX, b.ShearY = d.ShearX, d.ShearY
}

func (b *Bone) updateWorldTransform() {
	s := b.skeleton
	rotation, shearX, shearY := b.Rotation, b.ShearX, b.ShearY
	scaleX, scaleY := b.ScaleX, b.ScaleY

	if b.Parent == nil {
		sx, sy := s.ScaleX, s.ScaleY
		sinR, cosR := sinCosDeg(rotation + shearX)
		sinY, cosY := sinCosDeg(rotation + 90 + shearY)
		b.A = cosR * scaleX * sx
		b.B = cosY * scaleY * sx
		b.C = sinR * scaleX * sy
		b.D = sinY * scaleY * sy
		b.WorldX = b.X*sx + s.X
		b.WorldY = b.Y*sy + s.Y
		return
	}

	p := b.Parent
	pa, pb, pc, pd := p.A, p.B, p.C, p.D
	b.WorldX = pa*b.X + pb*b.Y + p.WorldX
	b.WorldY = pc*b.X + pd*b.Y + p.WorldY

	switch b.Data.TransformMode {
	case TransformNormal:
		sinR, cosR := sinCosDeg(rotation + shearX)
		sinY, cosY := sinCosDeg(rotation + 90 + shearY)
		la, lb := cosR*scaleX, cosY*scaleY
		lc, ld := sinR*scaleX, sinY*scaleY
		b.A = pa*la + pb*lc
		b.B = pa*lb + pb*ld
		b.C = pc*la + pd*lc
		b.D = pc*lb + pd*ld
		return

	case TransformOnlyTranslation:
		sinR, cosR := sinCosDeg(rotation + shearX)
		sinY, cosY := sinCosDeg(rotation + 90 + shearY)
		b.A, b.B = cosR*scaleX, cosY*scaleY
		b.C, b.D = sinR*scaleX, sinY*scaleY

	case TransformNoRotationOrReflection:
		sq := pa*pa + pc*pc
		var prx float64
		if sq > 0.0001 {
			sq = math.Abs(pa*pd-pb*pc) / sq
			pa /= s.ScaleX
			pc /= s.ScaleY
			pb = pc * sq
			pd = pa * sq
			prx = math.Atan2(pc, pa) / degRad
		} else {
			pa, pc = 0, 0
			prx = 90 - math.Atan2(pd, pb)/degRad
		}
		sinX, cosX := sinCosDeg(rotation + shearX - prx)
		sinY, cosY := sinCosDeg(rotation + shearY - prx + 90)
		la, lb := cosX*scaleX, cosY*scaleY
		lc, ld := sinX*scaleX, sinY*scaleY
		b.A = pa*la - pb*lc
		b.B = pa*lb - pb*ld
		b.C = pc*la + pd*lc
		b.D = pc*lb + pd*ld

	case TransformNoScale, TransformNoScaleOrReflection:
		sin, cos := sinCosDeg(rotation)
		za := (pa*cos + pb*sin) / s.ScaleX
		zc := (pc*cos + pd*sin) / s.ScaleY
		l := math.Sqrt(za*za + zc*zc)
		if l > 0.00001 {
			l = 1 / l
		}
		za *= l
		zc *= l
		l = math.Sqrt(za*za + zc*zc)
		if b.Data.TransformMode == TransformNoScale &&
			(pa*pd-pb*pc < 0) != ((s.ScaleX < 0) != (s.ScaleY < 0)) {
			l = -l
		}
		r := math.Pi/2 + math.Atan2(zc, za)
		zb := math.Cos(r) * l
		zd := math.Sin(r) * l
		sinX, cosX := sinCosDeg(shearX)
		sinY, cosY := sinCosDeg(90 + shearY)
		la, lb := cosX*scaleX, cosY*scaleY
		lc, ld := sinX*scaleX, sinY*scaleY
		b.A = za*la + zb*lc
		b.B = za*lb + zb*ld
		b.C = zc*la + zd*lc
		b.D = zc*lb + zd*ld
	}
	b.A *= s.ScaleX
	b.B *= s.ScaleX
	b.C *= s.ScaleY
	b.D *= s.ScaleY
}

// Slot is the posed instance of a SlotData.
type Slot struct {
	Data       *SlotData
	Bone       *Bone
	Color      Color
	DarkColor  *Color
	Attachment Attachment
	// Deform holds keyed mesh vertices for the current attachment. Empty
	// means the setup vertices.
	Deform []float64
}

// SetToSetupPose resets color and attachment to the setup values.
func (sl *Slot) SetToSetupPose() {
	d := sl.Data
	sl.Color = d.Color
	if d.DarkColor != nil {
		c := *d.DarkColor
		sl.DarkColor = &c
	}
	sl.Attachment = nil
	if d.AttachmentName != "" {
		sl.Attachment = sl.Bone.skeleton.attachment(d.Index, d.AttachmentName)
	}
	sl.Deform = sl.Deform[:0]
}

// Skeleton is a posable instance of SkeletonData.
type Skeleton struct {
	Data      *SkeletonData
	Bones     []*Bone
	Slots     []*Slot
	DrawOrder []*Slot
	Skin      *Skin
	Color     Color

	X, Y   float64
	ScaleX float64
	ScaleY float64
}

// NewSkeleton builds a skeleton in its setup pose. ScaleY is -1 so that
// Spine's y-up coordinates render upright on a y-down screen.
func NewSkeleton(data *SkeletonData) *Skeleton {
	s := &Skeleton{Data: data, Color: ColorWhite, ScaleX: 1, ScaleY: -1}
	s.Bones = make([]*Bone, len(data.Bones))
	for i, bd := range data.Bones {
		b := &Bone{Data: bd, skeleton: s}
		if bd.Parent != nil {
			b.Parent = s.Bones[bd.Parent.Index]
			b.Parent.Children = append(b.Parent.Children, b)
		}
		s.Bones[i] = b
	}
	s.Slots = make([]*Slot, len(data.Slots))
	for i, sd := range data.Slots {
		s.Slots[i] = &Slot{Data: sd, Bone: s.Bones[sd.Bone.Index]}
	}
	s.DrawOrder = make([]*Slot, len(s.Slots))
	s.SetToSetupPose()
	return s
}

// SetToSetupPose resets bones, slots and draw order.
func (s *Skeleton) SetToSetupPose() {
	s.SetBonesToSetupPose()
	s.SetSlotsToSetupPose()
}

// SetBonesToSetupPose resets every bone's local transform.
func (s *Skeleton) SetBonesToSetupPose() {
	for _, b := range s.Bones {
		b.SetToSetupPose()
	}
}

// SetSlotsToSetupPose resets draw order, slot colors and attachments.
func (s *Skeleton) SetSlotsToSetupPose() {
	copy(s.DrawOrder, s.Slots)
	for _, sl := range s.Slots {
		sl.SetToSetupPose()
	}
}

// UpdateWorldTransform computes every bone's world matrix. Bones are stored
// parents first.
func (s *Skeleton) UpdateWorldTransform() {
	for _, b := range s.Bones {
		b.updateWorldTransform()
	}
}

// SetSkin switches skins. Attachments from the old skin are swapped for the
// new skin's attachments under the same names; with no old skin, setup
// attachments are looked up in the new skin.
func (s *Skeleton) SetSkin(skin *Skin) {
	if skin == s.Skin {
		return
	}
	if skin != nil {
		if s.Skin != nil {
			for _, e := range s.Skin.Entries() {
				sl := s.Slots[e.SlotIndex]
				if sl.Attachment == e.Attachment {
					if a := skin.Attachment(e.SlotIndex, e.Name); a != nil {
						sl.Attachment = a
						sl.Deform = sl.Deform[:0]
					}
				}
			}
		} else {
			for i, sl := range s.Slots {
				name := sl.Data.AttachmentName
				if name == "" {
					continue
				}
				if a := skin.Attachment(i, name); a != nil {
					sl.Attachment = a
					sl.Deform = sl.Deform[:0]
				}
			}
		}
	}
	s.Skin = skin
}

// SetSkinByName switches to the named skin.
func (s *Skeleton) SetSkinByName(name string) error {
	skin := s.Data.FindSkin(name)
	if skin == nil {
		return fmt.Errorf("spinebox: skin %q not found", name)
	}
	s.SetSkin(skin)
	return nil
}

// attachment looks name up in the current skin, then the default skin.
func (s *Skeleton) attachment(slot int, name string) Attachment {
	if s.Skin != nil {
		if a := s.Skin.Attachment(slot, name); a != nil {
			return a
		}
	}
	if d := s.Data.DefaultSkin; d != nil {
		return d.Attachment(slot, name)
	}
	return nil
}

func (s *Skeleton) setSlotAttachment(slot int, name string) {
	sl := s.Slots[slot]
	var a Attachment
	if name != "" {
		a = s.attachment(slot, name)
	}
	if a != sl.Attachment {
		sl.Attachment = a
		sl.Deform = sl.Deform[:0]
	}
}
