package spinebox

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hajimehoshi/ebiten/v2"
)

func TestParseAtlas_Page(t *testing.T) {
	a, err := ParseAtlas([]byte(fixtureAtlas))
	if err != nil {
		t.Fatalf("ParseAtlas: %v", err)
	}
	if len(a.Pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(a.Pages))
	}
	want := &AtlasPage{
		Name:      "fixture.png",
		Width:     32,
		Height:    32,
		Format:    "RGBA8888",
		MinFilter: "Linear",
		MagFilter: "Linear",
	}
	if diff := cmp.Diff(want, a.Pages[0]); diff != "" {
		t.Errorf("page mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAtlas_Regions(t *testing.T) {
	a, err := ParseAtlas([]byte(fixtureAtlas))
	if err != nil {
		t.Fatalf("ParseAtlas: %v", err)
	}
	if len(a.Regions) != 3 {
		t.Fatalf("regions = %d, want 3", len(a.Regions))
	}

	body, ok := a.Region("body")
	if !ok {
		t.Fatal("body region missing")
	}
	if body.Width != 20 || body.Height != 30 {
		t.Errorf("body size = %dx%d, want 20x30", body.Width, body.Height)
	}
	if body.OriginalWidth != 20 || body.OriginalHeight != 30 {
		t.Errorf("body orig = %dx%d, want packed size", body.OriginalWidth, body.OriginalHeight)
	}
	if body.Index != -1 {
		t.Errorf("body index = %d, want -1", body.Index)
	}

	head, _ := a.Region("head")
	if head.X != 20 || head.Y != 0 {
		t.Errorf("head xy = %d,%d, want 20,0", head.X, head.Y)
	}
	if head.OffsetX != 2 || head.OffsetY != 2 || head.OriginalWidth != 16 || head.OriginalHeight != 16 {
		t.Errorf("head offsets = %v,%v %dx%d", head.OffsetX, head.OffsetY, head.OriginalWidth, head.OriginalHeight)
	}

	alt, _ := a.Region("head-alt")
	if !alt.Rotated() {
		t.Error("head-alt should be rotated")
	}
	if _, ok := a.Region("missing"); ok {
		t.Error("missing region should not resolve")
	}
}

func TestParseAtlas_DialectsAgree(t *testing.T) {
	a4, err := ParseAtlas([]byte(fixtureAtlas))
	if err != nil {
		t.Fatalf("4.x: %v", err)
	}
	a3, err := ParseAtlas([]byte(fixtureAtlas3))
	if err != nil {
		t.Fatalf("3.x: %v", err)
	}
	opt := cmpopts.IgnoreFields(AtlasRegion{}, "Page")
	if diff := cmp.Diff(a4.Regions, a3.Regions, opt); diff != "" {
		t.Errorf("dialects disagree (-4.x +3.x):\n%s", diff)
	}
}

func TestParseAtlas_CRLF(t *testing.T) {
	a, err := ParseAtlas([]byte(strings.ReplaceAll(fixtureAtlas, "\n", "\r\n")))
	if err != nil {
		t.Fatalf("ParseAtlas: %v", err)
	}
	if _, ok := a.Region("head-alt"); !ok {
		t.Error("head-alt missing with CRLF line endings")
	}
}

func TestParseAtlas_PMA(t *testing.T) {
	src := strings.Replace(fixtureAtlas, "repeat: none", "repeat: none\npma: true", 1)
	a, err := ParseAtlas([]byte(src))
	if err != nil {
		t.Fatalf("ParseAtlas: %v", err)
	}
	if !a.Pages[0].PMA {
		t.Error("pma flag not read")
	}
	if !atlasIsPMA(a) {
		t.Error("atlasIsPMA = false")
	}
}

func TestParseAtlas_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"blank lines", "\n\n\n"},
		{"bad bounds", "p.png\nsize: 4,4\nr\nbounds: 0,0,x,1\n"},
		{"short bounds", "p.png\nsize: 4,4\nr\nbounds: 0,0\n"},
		{"bad rotate", "p.png\nsize: 4,4\nr\nbounds: 0,0,1,1\nrotate: sideways\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAtlas([]byte(tt.src)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAtlasRegion_UVs(t *testing.T) {
	a, _ := ParseAtlas([]byte(fixtureAtlas))
	body, _ := a.Region("body")
	u, v, u2, v2 := body.UVs()
	if !approxEqual(u, 0, epsilon) || !approxEqual(v, 0, epsilon) ||
		!approxEqual(u2, 20.0/32, epsilon) || !approxEqual(v2, 30.0/32, epsilon) {
		t.Errorf("body UVs = %v %v %v %v", u, v, u2, v2)
	}

	// Rotated regions cover height x width on the page.
	alt, _ := a.Region("head-alt")
	u, v, u2, v2 = alt.UVs()
	if !approxEqual(u2-u, 12.0/32, epsilon) || !approxEqual(v2-v, 12.0/32, epsilon) {
		t.Errorf("head-alt UV extent = %v x %v", u2-u, v2-v)
	}
}

func TestAtlas_BindTexture(t *testing.T) {
	a, _ := ParseAtlas([]byte("p.png\nr\nbounds: 0,0,2,2\n"))
	img := ebiten.NewImage(8, 4)
	if err := a.BindTexture(img); err != nil {
		t.Fatalf("BindTexture: %v", err)
	}
	p := a.Pages[0]
	if p.Texture != img {
		t.Error("texture not bound")
	}
	if p.Width != 8 || p.Height != 4 {
		t.Errorf("sizeless page = %dx%d, want image size 8x4", p.Width, p.Height)
	}
	if err := a.BindTexture(nil); err == nil {
		t.Error("binding nil should fail")
	}
}
