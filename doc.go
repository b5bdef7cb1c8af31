// Package spinebox is a sandbox for loading and stress-rendering Spine
// skeletons on [Ebitengine].
//
// A [Sandbox] owns a list of selectable asset bundles (configured samples,
// bundles restored from the [BoltCache] and bundles dropped onto the
// window), decodes the selected one in the background and spawns entities
// of it. The [Renderer] batches every entity's attachments into as few
// draw calls as the texture pages and blend modes allow, and a
// [DrawCallProbe] reports how many were submitted per frame.
//
// # Quick start
//
// The simplest way to get started is [Run], which opens a window sized from
// the sandbox config:
//
//	cfg := spinebox.DefaultConfig()
//	sb := spinebox.NewSandbox(cfg, spinebox.NewBoltCache(cfg.CachePath), nil, nil)
//	if err := sb.Start(ctx); err != nil {
//		return err
//	}
//	defer sb.Close()
//	return spinebox.Run(spinebox.NewGame(ctx, sb))
//
// For full control, drive the sandbox yourself: call [Sandbox.Update] every
// tick and [Renderer.DrawFrame] with [Sandbox.Root] every frame.
//
// # Assets
//
// An [AssetBundle] holds an atlas, a skeleton (JSON or binary) and a
// texture, either inline or as locators resolved by a [Fetcher]. Dropping
// exactly three files produces an inline bundle through the [Ingestor]; the
// [Decoder] turns any bundle into a [DecodedSkeleton].
//
// Reference samples come from sample blocks in the HCL config (see
// [SampleConfig]); none are listed by default.
//
// # Entities
//
// The [Pool] spawns one preview entity or bulk batches of small entities.
// Every [Entity] carries its own [Skeleton] and [AnimationState]. The
// [Selector] keeps the chosen animation and skin applied to all of them.
// Crossfades between clips are tweened with [gween].
//
// # Viewport
//
// The [Viewport] pans and zooms the entity container around a fixed anchor
// from wheel, drag and two-finger pinch input.
//
// Pool lifecycle events can be mirrored into a [Donburi] world with the
// adapter in spinebox/ecs.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package spinebox
