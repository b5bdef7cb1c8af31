package spinebox

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// PayloadSource says where the three payloads of a bundle live.
type PayloadSource uint8

const (
	SourceInline    PayloadSource = iota // payload bytes are embedded in the bundle
	SourceReference                      // payloads are locators resolved through a Fetcher
)

func (s PayloadSource) String() string {
	if s == SourceReference {
		return "reference"
	}
	return "inline"
}

// SkeletonFormat tags which skeleton parser a payload needs.
type SkeletonFormat uint8

const (
	FormatJSON   SkeletonFormat = iota // Spine JSON export
	FormatBinary                       // Spine binary (.skel) export
)

func (f SkeletonFormat) String() string {
	if f == FormatBinary {
		return "binary"
	}
	return "json"
}

// Payload is one artifact of a bundle. Inline payloads set Data, reference
// payloads set Locator.
type Payload struct {
	Data    []byte
	Locator string
	// MIMEType is only meaningful for textures.
	MIMEType string
}

// IsSet reports whether the payload carries anything.
func (p Payload) IsSet() bool {
	return len(p.Data) > 0 || p.Locator != ""
}

// SkeletonPayload is a skeleton descriptor tagged with its format.
type SkeletonPayload struct {
	Format SkeletonFormat
	Payload
}

// AssetBundle is one selectable spine asset: atlas, skeleton and texture.
// Bundles are not mutated after ingestion.
type AssetBundle struct {
	ID       string
	Name     string
	Source   PayloadSource
	Atlas    Payload
	Skeleton SkeletonPayload
	Texture  Payload
}

// Complete reports whether all three payload slots are filled.
func (b *AssetBundle) Complete() bool {
	return b.Atlas.IsSet() && b.Skeleton.IsSet() && b.Texture.IsSet()
}

// Validate checks that every set payload matches the bundle's source mode.
// Mixed bundles are rejected.
func (b *AssetBundle) Validate() error {
	check := func(slot string, p Payload) error {
		switch b.Source {
		case SourceInline:
			if p.Locator != "" {
				return fmt.Errorf("spinebox: inline bundle %q has a %s locator", b.Name, slot)
			}
		case SourceReference:
			if len(p.Data) > 0 {
				return fmt.Errorf("spinebox: reference bundle %q has inline %s data", b.Name, slot)
			}
		}
		return nil
	}
	return errors.Join(
		check("atlas", b.Atlas),
		check("skeleton", b.Skeleton.Payload),
		check("texture", b.Texture),
	)
}

// NewReferenceBundle builds a reference-mode bundle. The skeleton format is
// inferred from the skeleton locator's extension.
func NewReferenceBundle(name, atlas, skeleton, texture string) *AssetBundle {
	format := FormatJSON
	if isBinarySkeletonName(skeleton) {
		format = FormatBinary
	}
	return &AssetBundle{
		ID:     "sample:" + name,
		Name:   name,
		Source: SourceReference,
		Atlas:  Payload{Locator: atlas},
		Skeleton: SkeletonPayload{
			Format:  format,
			Payload: Payload{Locator: skeleton},
		},
		Texture: Payload{Locator: texture, MIMEType: mimeFromName(texture)},
	}
}

// CacheRecord is the persisted projection of an inline AssetBundle.
type CacheRecord struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Format      SkeletonFormat `json:"format"`
	Atlas       []byte         `json:"atlas"`
	Skeleton    []byte         `json:"skeleton"`
	Texture     []byte         `json:"texture"`
	TextureMIME string         `json:"textureMime,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// RecordFromBundle projects an inline bundle for persistence.
func RecordFromBundle(b *AssetBundle, now time.Time) (CacheRecord, error) {
	if b.Source != SourceInline {
		return CacheRecord{}, fmt.Errorf("spinebox: only inline bundles are cached, %q is %s", b.Name, b.Source)
	}
	return CacheRecord{
		ID:          b.ID,
		Name:        b.Name,
		Format:      b.Skeleton.Format,
		Atlas:       b.Atlas.Data,
		Skeleton:    b.Skeleton.Data,
		Texture:     b.Texture.Data,
		TextureMIME: b.Texture.MIMEType,
		CreatedAt:   now,
	}, nil
}

// Bundle rebuilds the inline bundle a record was made from.
func (r CacheRecord) Bundle() *AssetBundle {
	return &AssetBundle{
		ID:     r.ID,
		Name:   r.Name,
		Source: SourceInline,
		Atlas:  Payload{Data: r.Atlas},
		Skeleton: SkeletonPayload{
			Format:  r.Format,
			Payload: Payload{Data: r.Skeleton},
		},
		Texture: Payload{Data: r.Texture, MIMEType: r.TextureMIME},
	}
}

// bundleName derives a display name from a file name: the base name up to
// its first dot.
func bundleName(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}
