package spinebox

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// skeletonSummary is the comparable projection of SkeletonData used to
// check that both encodings describe the same rig.
type skeletonSummary struct {
	Version    string
	Bounds     [4]float64
	Bones      []boneSummary
	Slots      []slotSummary
	Skins      []skinSummary
	Events     []string
	Animations []animationSummary
}

type boneSummary struct {
	Name, Parent string
	X, Y, Length float64
}

type slotSummary struct {
	Name, Bone, Attachment string
	Color                  Color
	Dark                   bool
}

type skinSummary struct {
	Name    string
	Entries []string
}

type animationSummary struct {
	Name      string
	Duration  float64
	Timelines int
}

func summarize(d *SkeletonData) skeletonSummary {
	s := skeletonSummary{Version: d.Version, Bounds: [4]float64{d.X, d.Y, d.Width, d.Height}}
	for _, b := range d.Bones {
		bs := boneSummary{Name: b.Name, X: b.X, Y: b.Y, Length: b.Length}
		if b.Parent != nil {
			bs.Parent = b.Parent.Name
		}
		s.Bones = append(s.Bones, bs)
	}
	for _, sl := range d.Slots {
		s.Slots = append(s.Slots, slotSummary{
			Name: sl.Name, Bone: sl.Bone.Name, Attachment: sl.AttachmentName,
			Color: sl.Color, Dark: sl.DarkColor != nil,
		})
	}
	for _, sk := range d.Skins {
		ss := skinSummary{Name: sk.Name}
		for _, e := range sk.Entries() {
			r := e.Attachment.(*RegionAttachment)
			ss.Entries = append(ss.Entries, d.Slots[e.SlotIndex].Name+"/"+e.Name+"="+r.Path)
		}
		s.Skins = append(s.Skins, ss)
	}
	for _, e := range d.Events {
		s.Events = append(s.Events, e.Name)
	}
	for _, a := range d.Animations {
		s.Animations = append(s.Animations, animationSummary{a.Name, a.Duration, len(a.Timelines)})
	}
	return s
}

func TestParseSkeletonJSON(t *testing.T) {
	d := mustParseJSONFixture(t)
	if d.Version != "4.1.24" {
		t.Errorf("Version = %q", d.Version)
	}
	if d.FPS != 30 {
		t.Errorf("FPS = %v, want default 30", d.FPS)
	}
	if got := d.AnimationNames(); !cmp.Equal(got, []string{"walk", "idle"}) {
		t.Errorf("AnimationNames = %v, want declared order", got)
	}
	if got := d.SkinNames(); !cmp.Equal(got, []string{"default", "alt"}) {
		t.Errorf("SkinNames = %v", got)
	}
	if d.DefaultSkin == nil || d.DefaultSkin.Name != "default" {
		t.Errorf("DefaultSkin = %v", d.DefaultSkin)
	}
	head := d.FindSlot("head")
	if head == nil || head.Color != (Color{1, 0, 0, 1}) {
		t.Errorf("head slot = %+v", head)
	}
	r, ok := d.DefaultSkin.Attachment(head.Index, "head").(*RegionAttachment)
	if !ok {
		t.Fatal("head attachment is not a region")
	}
	if r.Width != 16 || r.Height != 16 || r.Y != 20 || r.ScaleX != 1 {
		t.Errorf("head region = %+v", r)
	}
	alt := d.FindSkin("alt").Attachment(head.Index, "head").(*RegionAttachment)
	if alt.Name() != "head-alt" || alt.Path != "head-alt" {
		t.Errorf("alt head = %q path %q", alt.Name(), alt.Path)
	}
}

func TestParseSkeletonJSON_AnimationOrder(t *testing.T) {
	// Object member order is preserved, not sorted.
	src := `{"bones":[{"name":"root"}],"animations":{"zeta":{},"alpha":{},"mid":{}}}`
	d, err := ParseSkeletonJSON([]byte(src))
	if err != nil {
		t.Fatalf("ParseSkeletonJSON: %v", err)
	}
	if got := d.AnimationNames(); !cmp.Equal(got, []string{"zeta", "alpha", "mid"}) {
		t.Errorf("AnimationNames = %v", got)
	}
}

func TestParseSkeletonJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"not json", `{"bones":`, "skeleton json"},
		{"array root", `[]`, "root is not an object"},
		{"missing parent", `{"bones":[{"name":"a","parent":"nope"}]}`, "parent"},
		{"missing slot bone", `{"bones":[{"name":"a"}],"slots":[{"name":"s","bone":"b"}]}`, "bone"},
		{"bad color", `{"bones":[{"name":"a"}],"slots":[{"name":"s","bone":"a","color":"xyz"}]}`, "color"},
		{"unknown event", `{"bones":[{"name":"a"}],"animations":{"x":{"events":[{"name":"nope"}]}}}`, "event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSkeletonJSON([]byte(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseSkeletonBinary(t *testing.T) {
	d, err := ParseSkeletonBinary(fixtureSkeletonBinary())
	if err != nil {
		t.Fatalf("ParseSkeletonBinary: %v", err)
	}
	if got := d.AnimationNames(); !cmp.Equal(got, []string{"walk", "idle"}) {
		t.Errorf("AnimationNames = %v", got)
	}
	walk := d.FindAnimation("walk")
	var events *EventTimeline
	for _, tl := range walk.Timelines {
		if et, ok := tl.(*EventTimeline); ok {
			events = et
		}
	}
	if events == nil || len(events.Events) != 1 || events.Events[0].Data.Name != "step" || events.Events[0].Time != 0.5 {
		t.Errorf("walk events = %+v", events)
	}
}

func TestParseSkeleton_EncodingsAgree(t *testing.T) {
	fromJSON := mustParseJSONFixture(t)
	fromBinary, err := ParseSkeletonBinary(fixtureSkeletonBinary())
	if err != nil {
		t.Fatalf("ParseSkeletonBinary: %v", err)
	}
	if diff := cmp.Diff(summarize(fromJSON), summarize(fromBinary)); diff != "" {
		t.Errorf("encodings disagree (-json +binary):\n%s", diff)
	}
}

func TestParseSkeletonBinary_Errors(t *testing.T) {
	full := fixtureSkeletonBinary()

	if _, err := ParseSkeletonBinary(full[:len(full)/2]); err == nil {
		t.Error("truncated data should fail")
	}

	w := &binaryWriter{}
	w.int32(0)
	w.int32(0)
	w.str("3.8.99")
	_, err := ParseSkeletonBinary(w.Bytes())
	if err == nil || !strings.Contains(err.Error(), "unsupported binary version") {
		t.Errorf("3.8 binary error = %v", err)
	}

	if _, err := ParseSkeletonBinary(nil); err == nil {
		t.Error("empty data should fail")
	}
}

func TestBinaryInput_Varint(t *testing.T) {
	for _, v := range []int{0, 1, 63, 64, 127, 128, 300, 1 << 20, -1, -64, -65, -100000} {
		w := &binaryWriter{}
		w.varint(v, false)
		in := &binaryInput{data: w.Bytes()}
		if got := in.readVarint(false); got != v || in.err != nil {
			t.Errorf("zigzag %d: got %d err %v", v, got, in.err)
		}
		if v < 0 {
			continue
		}
		w = &binaryWriter{}
		w.varint(v, true)
		in = &binaryInput{data: w.Bytes()}
		if got := in.readVarint(true); got != v {
			t.Errorf("positive %d: got %d", v, got)
		}
	}
}

func TestBinaryInput_Strings(t *testing.T) {
	w := &binaryWriter{}
	w.varint(0, true) // null
	w.str("")
	w.str("héllo")
	in := &binaryInput{data: w.Bytes()}
	if s, ok := in.readString(); s != "" || ok {
		t.Errorf("null = %q %v", s, ok)
	}
	if s, ok := in.readString(); s != "" || !ok {
		t.Errorf("empty = %q %v", s, ok)
	}
	if s, _ := in.readString(); s != "héllo" {
		t.Errorf("string = %q", s)
	}
	in.readByte()
	if in.err == nil {
		t.Error("read past end should latch an error")
	}
}

// --- Posing ---

func TestSkeleton_SetupPose(t *testing.T) {
	s := NewSkeleton(mustParseJSONFixture(t))
	s.UpdateWorldTransform()
	torso := s.Bones[1]
	// y is flipped for screen space.
	assertNear(t, "torso.WorldX", torso.WorldX, 0)
	assertNear(t, "torso.WorldY", torso.WorldY, -10)
	assertNear(t, "torso.A", torso.A, 1)
	assertNear(t, "torso.D", torso.D, -1)

	if got := s.Slots[1].Attachment; got == nil || got.Name() != "head" {
		t.Errorf("head attachment = %v", got)
	}
	if s.Slots[1].Color != (Color{1, 0, 0, 1}) {
		t.Errorf("head color = %v", s.Slots[1].Color)
	}
}

func TestSkeleton_SetSkin(t *testing.T) {
	s := NewSkeleton(mustParseJSONFixture(t))
	if err := s.SetSkinByName("alt"); err != nil {
		t.Fatalf("SetSkinByName: %v", err)
	}
	if got := s.Slots[1].Attachment.Name(); got != "head-alt" {
		t.Errorf("head after alt = %q, want head-alt", got)
	}
	// Body is only in the default skin and falls back to it.
	if got := s.Slots[0].Attachment.Name(); got != "body" {
		t.Errorf("body after alt = %q", got)
	}
	if err := s.SetSkinByName("nope"); err == nil {
		t.Error("unknown skin should fail")
	}
}

func TestSkeletonData_BindAtlas(t *testing.T) {
	d := mustParseJSONFixture(t)
	a, err := ParseAtlas([]byte(fixtureAtlas))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.BindAtlas(a); err != nil {
		t.Fatalf("BindAtlas: %v", err)
	}
	head := d.DefaultSkin.Attachment(1, "head").(*RegionAttachment)
	if head.Region == nil || head.Region.Name != "head" {
		t.Errorf("head region = %v", head.Region)
	}

	short, _ := ParseAtlas([]byte("p.png\nbody\nbounds: 0,0,1,1\n"))
	err = mustParseJSONFixture(t).BindAtlas(short)
	if err == nil || !strings.Contains(err.Error(), "head-alt") {
		t.Errorf("missing regions error = %v", err)
	}
}

func TestBinaryInput_RejectsBadLengths(t *testing.T) {
	// A 5-byte varint of 0xFFFFFFFF decodes to -1.
	in := &binaryInput{data: []byte{0xff, 0xff, 0xff, 0xff, 0x0f, 'a', 'b'}}
	if s, ok := in.readString(); s != "" || ok || in.err == nil {
		t.Errorf("negative length: s=%q ok=%v err=%v", s, ok, in.err)
	}

	w := &binaryWriter{}
	w.varint(1<<20, true)
	w.byte(0)
	in = &binaryInput{data: w.Bytes()}
	if n := in.readCount(); n != 0 || !errors.Is(in.err, errBinaryCount) {
		t.Errorf("oversized count: n=%d err=%v", n, in.err)
	}

	in = &binaryInput{data: []byte{1, 2, 3}}
	if in.need(-1) || in.err == nil {
		t.Error("need(-1) should fail")
	}
}

func TestParseSkeletonBinary_CorruptCounts(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"negative version length", []byte{0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 0x0f}},
		{"huge bone count", func() []byte {
			w := &binaryWriter{}
			w.int32(0)
			w.int32(0)
			w.str("4.1.24")
			for i := 0; i < 4; i++ {
				w.float(0)
			}
			w.bool(false)
			w.varint(0, true)     // strings
			w.varint(1<<28, true) // bones
			return w.Bytes()
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSkeletonBinary(tt.data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// TestParseSkeletonBinary_MutatedFixture flips and truncates every byte of
// a valid export. Each variant must parse or fail, never panic.
func TestParseSkeletonBinary_MutatedFixture(t *testing.T) {
	full := fixtureSkeletonBinary()
	for i := range full {
		for _, b := range []byte{0x00, 0x7f, 0x80, 0xff} {
			data := append([]byte(nil), full...)
			data[i] = b
			ParseSkeletonBinary(data)
		}
		ParseSkeletonBinary(full[:i])
	}
}

func FuzzParseSkeletonBinary(f *testing.F) {
	f.Add(fixtureSkeletonBinary())
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 0x0f})
	f.Fuzz(func(t *testing.T, data []byte) {
		d, err := ParseSkeletonBinary(data)
		if err == nil && d == nil {
			t.Fatal("nil data without error")
		}
	})
}

func TestParseSkeletonJSON_RejectsBadGeometry(t *testing.T) {
	const rig = `"bones":[{"name":"root"}],"slots":[{"name":"s","bone":"root"}]`
	mesh := func(triangles string) string {
		return `{"type":"mesh","uvs":[0,0,1,0,1,1],"vertices":[0,0,10,0,10,10],"hull":3,"triangles":` + triangles + `}`
	}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"triangle index",
			`{` + rig + `,"skins":[{"name":"default","attachments":{"s":{"m":` + mesh("[0,1,3]") + `}}}]}`,
			"triangle index 3",
		},
		{
			"weighted bone index",
			`{` + rig + `,"skins":[{"name":"default","attachments":{"s":{"b":{"type":"boundingbox","vertexCount":1,"vertices":[1,5,0,0,1]}}}}]}`,
			"bone index 5",
		},
		{
			"deform offset",
			`{` + rig + `,"skins":[{"name":"default","attachments":{"s":{"m":` + mesh("[0,1,2]") + `}}}],` +
				`"animations":{"a":{"attachments":{"default":{"s":{"m":{"deform":[{"time":0,"offset":4,"vertices":[1,1,1]}]}}}}}}}`,
			"offset 4",
		},
		{"trailing data", `{} {}`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSkeletonJSON([]byte(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseSkeletonJSON_ValidMesh(t *testing.T) {
	src := `{"bones":[{"name":"root"}],"slots":[{"name":"s","bone":"root","attachment":"m"}],` +
		`"skins":[{"name":"default","attachments":{"s":{"m":{"type":"mesh","uvs":[0,0,1,0,1,1],"vertices":[0,0,10,0,10,10],"hull":3,"triangles":[0,1,2]}}}}]}`
	d, err := ParseSkeletonJSON([]byte(src))
	if err != nil {
		t.Fatalf("ParseSkeletonJSON: %v", err)
	}
	m, ok := d.DefaultSkin.Attachment(0, "m").(*MeshAttachment)
	if !ok {
		t.Fatalf("attachment = %T", d.DefaultSkin.Attachment(0, "m"))
	}
	if m.WorldVerticesLength != 6 || m.HullLength != 6 || !cmp.Equal(m.Triangles, []uint16{0, 1, 2}) {
		t.Errorf("mesh = %+v", m)
	}
}
