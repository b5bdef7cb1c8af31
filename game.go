package spinebox

import (
	"context"
	"errors"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/tanema/gween/ease"
)

// Command is a sandbox action bound to a key or issued by a test script.
type Command string

const (
	CmdNextAsset     Command = "next-asset"
	CmdPrevAsset     Command = "prev-asset"
	CmdNextAnimation Command = "next-animation"
	CmdPrevAnimation Command = "prev-animation"
	CmdNextSkin      Command = "next-skin"
	CmdAddBulk       Command = "add"
	CmdToggleMove    Command = "move"
	CmdRemoveCached  Command = "remove"
	CmdClearCache    Command = "clear"
	CmdResetView     Command = "reset-view"
)

var keyCommands = []struct {
	key ebiten.Key
	cmd Command
}{
	{ebiten.KeyDown, CmdNextAsset},
	{ebiten.KeyUp, CmdPrevAsset},
	{ebiten.KeyRight, CmdNextAnimation},
	{ebiten.KeyLeft, CmdPrevAnimation},
	{ebiten.KeyS, CmdNextSkin},
	{ebiten.KeyA, CmdAddBulk},
	{ebiten.KeyM, CmdToggleMove},
	{ebiten.KeyDelete, CmdRemoveCached},
	{ebiten.KeyC, CmdClearCache},
	{ebiten.KeyR, CmdResetView},
}

// resetViewDuration is how long CmdResetView takes to tween home.
const resetViewDuration = 0.35

// Game runs a Sandbox inside ebiten: it feeds input and drops, renders the
// entity tree through a draw-call probe and overlays the HUD.
type Game struct {
	Sandbox  *Sandbox
	Renderer *Renderer
	Probe    *DrawCallProbe
	// ScreenshotDir receives F12 and scripted screenshots.
	ScreenshotDir string
	// ExitWhenScriptDone ends the game loop once an attached test runner
	// has finished and its last frame was drawn.
	ExitWhenScriptDone bool

	ctx             context.Context
	gestures        *gestureTracker
	hud             *hud
	runner          *TestRunner
	screenshotQueue []string
}

// NewGame wraps sb. The probe is built once over the ebiten context and
// handed to the renderer; every frame's full clear reports its count.
func NewGame(ctx context.Context, sb *Sandbox) *Game {
	probe := NewDrawCallProbe(NewEbitenContext(color.RGBA{R: 0x1e, G: 0x1e, B: 0x24, A: 0xff}), nil)
	return &Game{
		Sandbox:       sb,
		Renderer:      NewRenderer(probe),
		Probe:         probe,
		ScreenshotDir: "screenshots",
		ctx:           ctx,
		gestures:      newGestureTracker(),
		hud:           newHUD(),
	}
}

// SetTestRunner attaches a scripted runner, stepped once per Update.
func (g *Game) SetTestRunner(r *TestRunner) {
	g.runner = r
}

// Screenshot queues a labeled capture of the next rendered frame.
func (g *Game) Screenshot(label string) {
	g.screenshotQueue = append(g.screenshotQueue, label)
}

// Exec runs one command. Errors are logged by the caller.
func (g *Game) Exec(cmd Command) error {
	sb := g.Sandbox
	switch cmd {
	case CmdNextAsset, CmdPrevAsset:
		n := len(sb.Assets())
		if n == 0 {
			return ErrNoSelection
		}
		step := 1
		if cmd == CmdPrevAsset {
			step = -1
		}
		return sb.Select(g.ctx, wrapIndex(sb.Selected()+step, n))
	case CmdNextAnimation, CmdPrevAnimation:
		n := len(sb.Selector.Animations())
		if n == 0 {
			return ErrNoSelection
		}
		step := 1
		if cmd == CmdPrevAnimation {
			step = -1
		}
		return sb.ChangeAnimation(wrapIndex(sb.Selector.AnimationIndex+step, n))
	case CmdNextSkin:
		n := len(sb.Selector.Skins())
		if n == 0 {
			return ErrNoSelection
		}
		return sb.ChangeSkin(wrapIndex(sb.Selector.SkinIndex+1, n))
	case CmdAddBulk:
		return sb.AddBulk()
	case CmdToggleMove:
		sb.ToggleMove()
		return nil
	case CmdRemoveCached:
		i := sb.Selected()
		if i < 0 {
			return ErrNoSelection
		}
		b := sb.Assets()[i]
		if b.Source != SourceInline {
			return fmt.Errorf("spinebox: %q is a built-in sample and cannot be removed", b.Name)
		}
		return sb.RemoveCached(g.ctx, b.ID)
	case CmdClearCache:
		return sb.ClearCache(g.ctx)
	case CmdResetView:
		sb.Viewport.AnimateReset(resetViewDuration, ease.OutQuad)
		return nil
	}
	return fmt.Errorf("spinebox: unknown command %q", cmd)
}

func wrapIndex(i, n int) int {
	return ((i % n) + n) % n
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	dt := 1.0 / float64(ebiten.TPS())

	if g.runner != nil {
		if g.runner.Done() && g.ExitWhenScriptDone {
			return ebiten.Termination
		}
		g.runner.step(g)
	}

	if dropped := ebiten.DroppedFiles(); dropped != nil {
		files, err := DroppedFilesFromFS(dropped)
		if err != nil {
			g.Sandbox.Logger.Warn("reading drop failed", "error", err)
		} else {
			// Arity failures are logged by Drop.
			_ = g.Sandbox.Drop(g.ctx, files)
		}
	}

	for _, kc := range keyCommands {
		if inpututil.IsKeyJustPressed(kc.key) {
			g.execLogged(kc.cmd)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		g.Screenshot("f12")
	}

	g.gestures.update(g.Sandbox.Viewport)
	g.Sandbox.Update(dt)
	g.hud.update(dt, g.Sandbox.EntityCount(), g.Probe.Last())
	return nil
}

func (g *Game) execLogged(cmd Command) {
	err := g.Exec(cmd)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoSelection):
		g.Sandbox.Logger.Debug("command ignored", "command", cmd, "error", err)
	default:
		g.Sandbox.Logger.Warn("command failed", "command", cmd, "error", err)
	}
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	g.Renderer.DrawFrame(screen, g.Sandbox.Root())
	g.hud.draw(screen)
	g.flushScreenshots(screen)
}

// Layout implements ebiten.Game.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.Sandbox.Config.Width, g.Sandbox.Config.Height
}

// Run opens a window sized from the sandbox config and runs g until the
// window closes.
func Run(g *Game) error {
	cfg := g.Sandbox.Config
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(g)
}
