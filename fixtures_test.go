package spinebox

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"testing"
)

// --- Test fixtures ---
//
// One small rig in three encodings: a 4.x atlas, a JSON skeleton and the
// equivalent 4.1 binary skeleton. Both skeletons declare the bones root and
// torso, the slots body and head, the skins default and alt, the event step
// and the animations walk and idle, in that order.

const fixtureAtlas = `
fixture.png
size: 32,32
format: RGBA8888
filter: Linear,Linear
repeat: none
body
bounds: 0,0,20,30
head
bounds: 20,0,12,12
offsets: 2,2,16,16
head-alt
bounds: 20,12,12,12
rotate: 90
`

// fixtureAtlas3 is the same page in the 3.x dialect.
const fixtureAtlas3 = `fixture.png
size: 32,32
format: RGBA8888
filter: Linear,Linear
repeat: none
body
  rotate: false
  xy: 0, 0
  size: 20, 30
  orig: 20, 30
  offset: 0, 0
  index: -1
head
  rotate: false
  xy: 20, 0
  size: 12, 12
  orig: 16, 16
  offset: 2, 2
  index: -1
head-alt
  rotate: true
  xy: 20, 12
  size: 12, 12
  orig: 12, 12
  offset: 0, 0
  index: -1
`

const fixtureSkeletonJSON = `{
  "skeleton": {"spine": "4.1.24", "x": -20, "y": -10, "width": 40, "height": 60},
  "bones": [
    {"name": "root"},
    {"name": "torso", "parent": "root", "y": 10, "length": 20}
  ],
  "slots": [
    {"name": "body", "bone": "torso", "attachment": "body"},
    {"name": "head", "bone": "torso", "color": "ff0000ff", "attachment": "head"}
  ],
  "skins": [
    {
      "name": "default",
      "attachments": {
        "body": {"body": {"width": 20, "height": 30}},
        "head": {"head": {"y": 20, "width": 16, "height": 16}}
      }
    },
    {
      "name": "alt",
      "attachments": {
        "head": {"head": {"name": "head-alt", "y": 20, "width": 16, "height": 16}}
      }
    }
  ],
  "events": {"step": {}},
  "animations": {
    "walk": {
      "bones": {
        "torso": {"rotate": [{"time": 0, "value": 0}, {"time": 1, "value": 90}]}
      },
      "events": [{"time": 0.5, "name": "step"}]
    },
    "idle": {
      "slots": {
        "head": {"rgba": [{"time": 0, "color": "ff0000ff"}, {"time": 1, "color": "ffffffff"}]}
      }
    }
  }
}`

// binaryWriter encodes the primitives read by binaryInput.
type binaryWriter struct {
	bytes.Buffer
	strings []string
}

func (w *binaryWriter) byte(b byte) { w.WriteByte(b) }

func (w *binaryWriter) bool(v bool) {
	if v {
		w.byte(1)
		return
	}
	w.byte(0)
}

func (w *binaryWriter) int32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

func (w *binaryWriter) varint(v int, optimizePositive bool) {
	u := uint32(int32(v))
	if !optimizePositive {
		u = uint32((int32(v) << 1) ^ (int32(v) >> 31))
	}
	for u >= 0x80 {
		w.byte(byte(u&0x7f) | 0x80)
		u >>= 7
	}
	w.byte(byte(u))
}

func (w *binaryWriter) float(f float64) {
	w.int32(math.Float32bits(float32(f)))
}

func (w *binaryWriter) str(s string) {
	w.varint(len(s)+1, true)
	w.WriteString(s)
}

// ref writes a string table reference; "" is null.
func (w *binaryWriter) ref(s string) {
	if s == "" {
		w.varint(0, true)
		return
	}
	for i, t := range w.strings {
		if t == s {
			w.varint(i+1, true)
			return
		}
	}
	panic("fixture: string " + s + " not in table")
}

// region writes a region attachment entry after its placeholder name.
func (w *binaryWriter) region(name string, y, width, height float64) {
	w.ref(name)
	w.byte(binAttRegion)
	w.ref("") // path defaults to name
	w.float(0)
	w.float(0)
	w.float(y)
	w.float(1)
	w.float(1)
	w.float(width)
	w.float(height)
	w.int32(0xffffffff)
	w.bool(false) // sequence
}

// fixtureSkeletonBinary encodes fixtureSkeletonJSON as a 4.1 binary export.
func fixtureSkeletonBinary() []byte {
	w := &binaryWriter{strings: []string{"body", "head", "head-alt", "alt", "step"}}

	w.int32(0)
	w.int32(0)
	w.str("4.1.24")
	w.float(-20)
	w.float(-10)
	w.float(40)
	w.float(60)
	w.bool(false) // nonessential

	w.varint(len(w.strings), true)
	for _, s := range w.strings {
		w.str(s)
	}

	// Bones.
	w.varint(2, true)
	bone := func(name string, parent int, y, length float64) {
		w.str(name)
		if parent >= 0 {
			w.varint(parent, true)
		}
		for _, v := range []float64{0, 0, y, 1, 1, 0, 0, length} {
			w.float(v)
		}
		w.varint(int(TransformNormal), true)
		w.bool(false)
	}
	bone("root", -1, 0, 0)
	bone("torso", 0, 10, 20)

	// Slots.
	w.varint(2, true)
	w.str("body")
	w.varint(1, true)
	w.int32(0xffffffff)
	w.int32(0xffffffff) // no dark color
	w.ref("body")
	w.varint(int(BlendNormal), true)
	w.str("head")
	w.varint(1, true)
	w.int32(0xff0000ff)
	w.int32(0xffffffff)
	w.ref("head")
	w.varint(int(BlendNormal), true)

	// Ik, transform and path constraints.
	w.varint(0, true)
	w.varint(0, true)
	w.varint(0, true)

	// Default skin.
	w.varint(2, true)
	w.varint(0, true)
	w.varint(1, true)
	w.ref("body")
	w.region("", 0, 20, 30)
	w.varint(1, true)
	w.varint(1, true)
	w.ref("head")
	w.region("", 20, 16, 16)

	// Named skins.
	w.varint(1, true)
	w.ref("alt")
	w.varint(0, true) // bones
	w.varint(0, true) // ik
	w.varint(0, true) // transform
	w.varint(0, true) // path
	w.varint(1, true)
	w.varint(1, true)
	w.varint(1, true)
	w.ref("head")
	w.region("head-alt", 20, 16, 16)

	// Events.
	w.varint(1, true)
	w.ref("step")
	w.varint(0, false)
	w.float(0)
	w.varint(0, true) // string
	w.varint(0, true) // audio

	// Animations.
	w.varint(2, true)

	w.str("walk")
	w.varint(2, true) // timeline count
	w.varint(0, true) // slots
	w.varint(1, true) // bones
	w.varint(1, true)
	w.varint(1, true)
	w.byte(byte(BoneRotate))
	w.varint(2, true) // frames
	w.varint(0, true) // beziers
	w.float(0)
	w.float(0)
	w.float(1)
	w.float(90)
	w.byte(binCurveLinear)
	w.varint(0, true) // ik
	w.varint(0, true) // transform
	w.varint(0, true) // path
	w.varint(0, true) // attachments
	w.varint(0, true) // draw order
	w.varint(1, true) // events
	w.float(0.5)
	w.varint(0, true)
	w.varint(0, false)
	w.float(0)
	w.bool(false)

	w.str("idle")
	w.varint(1, true)
	w.varint(1, true) // slots
	w.varint(1, true)
	w.varint(1, true)
	w.byte(binSlotRGBA)
	w.varint(2, true)
	w.varint(0, true)
	w.float(0)
	w.Write([]byte{0xff, 0x00, 0x00, 0xff})
	w.float(1)
	w.Write([]byte{0xff, 0xff, 0xff, 0xff})
	w.byte(binCurveLinear)
	w.varint(0, true) // bones
	w.varint(0, true) // ik
	w.varint(0, true) // transform
	w.varint(0, true) // path
	w.varint(0, true) // attachments
	w.varint(0, true) // draw order
	w.varint(0, true) // events

	return w.Bytes()
}

// fixturePNG encodes a solid 32x32 texture.
func fixturePNG(t testing.TB) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}
	return buf.Bytes()
}

// fixtureBundle builds a complete inline bundle.
func fixtureBundle(t testing.TB, id string, format SkeletonFormat) *AssetBundle {
	t.Helper()
	skel := []byte(fixtureSkeletonJSON)
	if format == FormatBinary {
		skel = fixtureSkeletonBinary()
	}
	return &AssetBundle{
		ID:     id,
		Name:   "fixture",
		Source: SourceInline,
		Atlas:  Payload{Data: []byte(fixtureAtlas)},
		Skeleton: SkeletonPayload{
			Format:  format,
			Payload: Payload{Data: skel},
		},
		Texture: Payload{Data: fixturePNG(t), MIMEType: "image/png"},
	}
}

// fixtureDrop returns the three files of a fixture drop.
func fixtureDrop(t testing.TB) []DroppedFile {
	t.Helper()
	return []DroppedFile{
		{Name: "fixture.json", MIMEType: "application/json", Data: []byte(fixtureSkeletonJSON)},
		{Name: "fixture.atlas", Data: []byte(fixtureAtlas)},
		{Name: "fixture.png", MIMEType: "image/png", Data: fixturePNG(t)},
	}
}

func mustParseJSONFixture(t testing.TB) *SkeletonData {
	t.Helper()
	d, err := ParseSkeletonJSON([]byte(fixtureSkeletonJSON))
	if err != nil {
		t.Fatalf("ParseSkeletonJSON: %v", err)
	}
	return d
}

// fixtureDecoded wraps parsed fixture data without a texture.
func fixtureDecoded(t testing.TB) *DecodedSkeleton {
	t.Helper()
	return &DecodedSkeleton{
		Bundle: &AssetBundle{ID: "fixture", Name: "fixture", Source: SourceInline},
		Data:   mustParseJSONFixture(t),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
