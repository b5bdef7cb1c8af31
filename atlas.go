package spinebox

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// AtlasPage is one texture page of a Spine text atlas.
type AtlasPage struct {
	Name      string
	Width     int
	Height    int
	Format    string
	MinFilter string
	MagFilter string
	RepeatX   bool
	RepeatY   bool
	PMA       bool

	// Texture is nil until BindTexture runs.
	Texture *ebiten.Image
}

// AtlasRegion describes a packed sub-rectangle of a page.
//
// Width and Height are the packed size in the region's unrotated
// orientation. When Degrees is 90 the region occupies Height x Width pixels
// on the page. Offsets follow Spine's convention: measured from the
// bottom-left of the original (untrimmed) image.
type AtlasRegion struct {
	Name           string
	Page           *AtlasPage
	X, Y           int
	Width, Height  int
	OffsetX        float64
	OffsetY        float64
	OriginalWidth  int
	OriginalHeight int
	Degrees        int
	Index          int
}

// Rotated reports whether the region is stored rotated 90 degrees.
func (r *AtlasRegion) Rotated() bool {
	return r.Degrees == 90
}

// UVs returns the normalized texture coordinates of the packed rect.
func (r *AtlasRegion) UVs() (u, v, u2, v2 float64) {
	pw, ph := float64(r.Page.Width), float64(r.Page.Height)
	if pw == 0 || ph == 0 {
		return 0, 0, 0, 0
	}
	u = float64(r.X) / pw
	v = float64(r.Y) / ph
	if r.Rotated() {
		u2 = float64(r.X+r.Height) / pw
		v2 = float64(r.Y+r.Width) / ph
	} else {
		u2 = float64(r.X+r.Width) / pw
		v2 = float64(r.Y+r.Height) / ph
	}
	return u, v, u2, v2
}

// Atlas holds the pages and named regions of a Spine text atlas.
type Atlas struct {
	Pages   []*AtlasPage
	Regions []*AtlasRegion
	byName  map[string]*AtlasRegion
}

// Region returns the region with the given name.
func (a *Atlas) Region(name string) (*AtlasRegion, bool) {
	r, ok := a.byName[name]
	return r, ok
}

// BindTexture attaches img to every page. Pages that declared no size take
// the image's size.
func (a *Atlas) BindTexture(img *ebiten.Image) error {
	if img == nil {
		return fmt.Errorf("spinebox: bind nil texture")
	}
	if len(a.Pages) == 0 {
		return fmt.Errorf("spinebox: atlas has no pages to bind")
	}
	b := img.Bounds()
	for _, p := range a.Pages {
		if p.Width == 0 || p.Height == 0 {
			p.Width, p.Height = b.Dx(), b.Dy()
		}
		p.Texture = img
	}
	return nil
}

// ParseAtlas parses Spine's libGDX-style text atlas. Both the 3.x dialect
// (xy/size/orig/offset) and the 4.x dialect (bounds/offsets) are accepted.
func ParseAtlas(data []byte) (*Atlas, error) {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("spinebox: read atlas: %w", err)
	}

	atlas := &Atlas{byName: make(map[string]*AtlasRegion)}
	var page *AtlasPage
	i := 0

	// Skip leading blank lines.
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}

	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			page = nil
			i++
			continue
		}
		if page == nil {
			page = &AtlasPage{Name: strings.TrimSpace(line), MinFilter: "Nearest", MagFilter: "Nearest"}
			i++
			for i < len(lines) {
				key, vals, ok := atlasEntry(lines[i])
				if !ok {
					break
				}
				if err := page.setField(key, vals); err != nil {
					return nil, fmt.Errorf("spinebox: atlas page %q line %d: %w", page.Name, i+1, err)
				}
				i++
			}
			atlas.Pages = append(atlas.Pages, page)
			continue
		}

		region := &AtlasRegion{Name: strings.TrimSpace(line), Page: page, Index: -1}
		i++
		for i < len(lines) {
			key, vals, ok := atlasEntry(lines[i])
			if !ok {
				break
			}
			if err := region.setField(key, vals); err != nil {
				return nil, fmt.Errorf("spinebox: atlas region %q line %d: %w", region.Name, i+1, err)
			}
			i++
		}
		if region.OriginalWidth == 0 && region.OriginalHeight == 0 {
			region.OriginalWidth = region.Width
			region.OriginalHeight = region.Height
		}
		atlas.Regions = append(atlas.Regions, region)
		if _, dup := atlas.byName[region.Name]; !dup {
			atlas.byName[region.Name] = region
		}
	}

	if len(atlas.Pages) == 0 {
		return nil, fmt.Errorf("spinebox: atlas has no pages")
	}
	return atlas, nil
}

// atlasEntry splits "key: v1, v2" into its key and trimmed values. Lines
// without a colon are not entries.
func atlasEntry(line string) (string, []string, bool) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return "", nil, false
	}
	key := strings.TrimSpace(line[:colon])
	parts := strings.Split(line[colon+1:], ",")
	vals := make([]string, 0, len(parts))
	for _, p := range parts {
		vals = append(vals, strings.TrimSpace(p))
	}
	return key, vals, true
}

func (p *AtlasPage) setField(key string, vals []string) error {
	switch key {
	case "size":
		n, err := atlasInts(vals, 2)
		if err != nil {
			return err
		}
		p.Width, p.Height = n[0], n[1]
	case "format":
		p.Format = vals[0]
	case "filter":
		if len(vals) < 2 {
			return fmt.Errorf("filter wants 2 values, got %d", len(vals))
		}
		p.MinFilter, p.MagFilter = vals[0], vals[1]
	case "repeat":
		p.RepeatX = strings.Contains(vals[0], "x")
		p.RepeatY = strings.Contains(vals[0], "y")
	case "pma":
		p.PMA = vals[0] == "true"
	}
	return nil
}

func (r *AtlasRegion) setField(key string, vals []string) error {
	switch key {
	case "xy":
		n, err := atlasInts(vals, 2)
		if err != nil {
			return err
		}
		r.X, r.Y = n[0], n[1]
	case "size":
		n, err := atlasInts(vals, 2)
		if err != nil {
			return err
		}
		r.Width, r.Height = n[0], n[1]
	case "bounds":
		n, err := atlasInts(vals, 4)
		if err != nil {
			return err
		}
		r.X, r.Y, r.Width, r.Height = n[0], n[1], n[2], n[3]
	case "offset":
		n, err := atlasInts(vals, 2)
		if err != nil {
			return err
		}
		r.OffsetX, r.OffsetY = float64(n[0]), float64(n[1])
	case "orig":
		n, err := atlasInts(vals, 2)
		if err != nil {
			return err
		}
		r.OriginalWidth, r.OriginalHeight = n[0], n[1]
	case "offsets":
		n, err := atlasInts(vals, 4)
		if err != nil {
			return err
		}
		r.OffsetX, r.OffsetY = float64(n[0]), float64(n[1])
		r.OriginalWidth, r.OriginalHeight = n[2], n[3]
	case "rotate":
		switch vals[0] {
		case "true":
			r.Degrees = 90
		case "false":
			r.Degrees = 0
		default:
			d, err := strconv.Atoi(vals[0])
			if err != nil {
				return fmt.Errorf("rotate: %w", err)
			}
			r.Degrees = d
		}
	case "index":
		n, err := atlasInts(vals, 1)
		if err != nil {
			return err
		}
		r.Index = n[0]
	}
	return nil
}

func atlasInts(vals []string, want int) ([]int, error) {
	if len(vals) < want {
		return nil, fmt.Errorf("want %d values, got %d", want, len(vals))
	}
	out := make([]int, want)
	for i := 0; i < want; i++ {
		n, err := strconv.Atoi(vals[i])
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
