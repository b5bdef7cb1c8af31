package spinebox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// DecodedSkeleton is a bundle parsed into renderable form. It is rebuilt on
// every selection.
type DecodedSkeleton struct {
	Bundle *AssetBundle
	Data   *SkeletonData
	Atlas  *Atlas
}

// Animations lists clip names in the order the skeleton declares them.
func (d *DecodedSkeleton) Animations() []string {
	return d.Data.AnimationNames()
}

// Skins lists skin names in the order the skeleton declares them.
func (d *DecodedSkeleton) Skins() []string {
	return d.Data.SkinNames()
}

// Decoder resolves and parses bundles.
type Decoder struct {
	// Fetcher resolves reference payloads. Nil means NewMultiFetcher(nil).
	Fetcher Fetcher
	Logger  *slog.Logger
}

func (d *Decoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Decoder) resolve(ctx context.Context, src PayloadSource, p Payload) ([]byte, error) {
	if src == SourceInline {
		if len(p.Data) == 0 {
			return nil, errors.New("payload is empty")
		}
		return p.Data, nil
	}
	if p.Locator == "" {
		return nil, errors.New("payload has no locator")
	}
	f := d.Fetcher
	if f == nil {
		f = NewMultiFetcher(nil)
	}
	return f.Fetch(ctx, p.Locator)
}

// Decode resolves the atlas, skeleton and texture of b concurrently, then
// binds the texture to the atlas and the atlas to the skeleton. Any failure
// is a *DecodeError naming the stage and no result is returned.
func (d *Decoder) Decode(ctx context.Context, b *AssetBundle) (*DecodedSkeleton, error) {
	if b == nil {
		return nil, &DecodeError{Stage: StageAtlas, Err: errors.New("nil bundle")}
	}
	if err := b.Validate(); err != nil {
		return nil, &DecodeError{Stage: StageAtlas, Err: err}
	}
	start := time.Now()

	var (
		atlas *Atlas
		data  *SkeletonData
		img   image.Image
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := d.resolve(gctx, b.Source, b.Atlas)
		if err == nil {
			atlas, err = ParseAtlas(raw)
		}
		if err != nil {
			return &DecodeError{Stage: StageAtlas, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		raw, err := d.resolve(gctx, b.Source, b.Skeleton.Payload)
		if err == nil {
			switch b.Skeleton.Format {
			case FormatBinary:
				data, err = ParseSkeletonBinary(raw)
			case FormatJSON:
				data, err = ParseSkeletonJSON(raw)
			default:
				err = fmt.Errorf("unknown skeleton format %d", b.Skeleton.Format)
			}
		}
		if err != nil {
			return &DecodeError{Stage: StageSkeleton, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		raw, err := d.resolve(gctx, b.Source, b.Texture)
		if err == nil {
			img, _, err = image.Decode(bytes.NewReader(raw))
		}
		if err != nil {
			return &DecodeError{Stage: StageTexture, Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tex := ebiten.NewImageFromImage(textureSource(img, atlasIsPMA(atlas)))
	if err := atlas.BindTexture(tex); err != nil {
		tex.Deallocate()
		return nil, &DecodeError{Stage: StageBind, Err: err}
	}
	if err := data.BindAtlas(atlas); err != nil {
		tex.Deallocate()
		return nil, &DecodeError{Stage: StageBind, Err: err}
	}
	if data.Name == "" {
		data.Name = b.Name
	}

	d.logger().Debug("decoded bundle",
		"id", b.ID,
		"name", b.Name,
		"format", b.Skeleton.Format,
		"animations", len(data.Animations),
		"skins", len(data.Skins),
		"elapsed", time.Since(start),
	)
	return &DecodedSkeleton{Bundle: b, Data: data, Atlas: atlas}, nil
}

func atlasIsPMA(a *Atlas) bool {
	for _, p := range a.Pages {
		if p.PMA {
			return true
		}
	}
	return false
}

// textureSource returns the image ebiten should upload. ebiten premultiplies
// non-premultiplied sources itself, so a PMA texture decoded as NRGBA is
// relabelled as RGBA to avoid multiplying twice.
func textureSource(img image.Image, pma bool) image.Image {
	if !pma {
		return img
	}
	switch src := img.(type) {
	case *image.NRGBA:
		return &image.RGBA{Pix: src.Pix, Stride: src.Stride, Rect: src.Rect}
	case *image.RGBA:
		return src
	}
	nrgba := image.NewNRGBA(img.Bounds())
	draw.Draw(nrgba, nrgba.Rect, img, img.Bounds().Min, draw.Src)
	return &image.RGBA{Pix: nrgba.Pix, Stride: nrgba.Stride, Rect: nrgba.Rect}
}
