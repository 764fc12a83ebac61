// Package game composes the character scene: engine, scene, ground, the
// imported player and its camera and controller.
package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/charscene/internal/assets"
	"github.com/Faultbox/charscene/internal/config"
	"github.com/Faultbox/charscene/internal/engine"
	"github.com/Faultbox/charscene/internal/engine/camera"
	"github.com/Faultbox/charscene/internal/engine/debug"
	"github.com/Faultbox/charscene/internal/engine/input"
	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/internal/game/character"
	"github.com/Faultbox/charscene/internal/game/locomotion"
	"github.com/Faultbox/charscene/internal/game/world"
	"github.com/Faultbox/charscene/internal/logger"
	"github.com/Faultbox/charscene/pkg/math"
)

// Player asset location, relative to an asset root.
const (
	PlayerBasePath = "assets/player/"
	PlayerFile     = "Vincent.babylon"
)

// Scene colors.
var (
	ClearColor   = math.Color4{R: 0.75, G: 0.75, B: 0.75, A: 1}
	AmbientColor = math.Color3{R: 1, G: 1, B: 1}
)

// FramebufferReader is implemented by backends that can read back a frame.
type FramebufferReader interface {
	ReadFramebuffer() (pixels []byte, width, height int)
}

// TextureInvalidator is implemented by backends that cache decoded
// textures by URL.
type TextureInvalidator interface {
	InvalidateTexture(url string)
}

// stateReporter is implemented by controllers that expose their state.
type stateReporter interface {
	State() character.State
}

// Option configures an App.
type Option func(*App)

// WithControllerFactory replaces the locomotion controller.
func WithControllerFactory(f character.Factory) Option {
	return func(a *App) { a.factory = f }
}

// WithCharacterConfig replaces the controller configuration.
func WithCharacterConfig(cfg character.Config) Option {
	return func(a *App) { a.charConfig = cfg }
}

// App owns the engine and scene for one surface.
type App struct {
	cfg     *config.Config
	engine  *engine.Engine
	scene   *scene.Scene
	backend engine.Backend
	log     *zap.Logger

	assets     *assets.Manager
	importer   *assets.Importer
	watcher    *assets.Watcher
	playerTask *assets.ImportTask
	playerRes  *assets.ImportResult

	factory    character.Factory
	charConfig character.Config

	player     *scene.Mesh
	camera     *camera.ArcRotateCamera
	controller character.Controller

	screenshots *debug.Screenshots
	memory      *debug.MemStats
	wantShot    bool
	cancel      context.CancelFunc
	closed      bool
}

// New creates the engine on surface, builds the scene and starts the
// player import. The player, camera and controller appear once the import
// completes on the engine thread.
//
// The app owns surface and backend from this call on, including when New
// fails: both are closed before the error is returned.
func New(cfg *config.Config, surface engine.Surface, backend engine.Backend, opts ...Option) (*App, error) {
	a := &App{
		cfg:         cfg,
		backend:     backend,
		log:         logger.Named("game"),
		factory:     locomotion.New,
		charConfig:  character.DefaultConfig(),
		screenshots: debug.NewScreenshots(cfg.Debug.ScreenshotDir, "charscene"),
		memory:      debug.NewMemStats(),
	}
	for _, opt := range opts {
		opt(a)
	}

	var err error
	a.engine, err = engine.New(surface, backend)
	if err != nil {
		if backend != nil {
			backend.Close()
		}
		if surface != nil {
			surface.Close()
		}
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	a.scene = scene.New(a.engine)

	// Re-fit on every resize, before the next frame renders.
	a.engine.OnSurfaceResize(func(int, int) { a.engine.Resize() })

	a.assets = assets.NewManager()
	for _, root := range cfg.Assets.Roots {
		if err := a.assets.AddRoot(root); err != nil {
			a.engine.Close()
			return nil, fmt.Errorf("failed to add asset root: %w", err)
		}
	}
	if cfg.Assets.Watch {
		a.watcher, err = assets.NewWatcher(a.assets)
		if err != nil {
			a.log.Warn("asset watching disabled", zap.Error(err))
		} else {
			go a.forwardAssetChanges(a.watcher.Events)
		}
	}
	a.importer = assets.NewImporter(a.assets)

	a.engine.Input().Subscribe(a.handleKey)
	a.createScene()
	a.addDebugWatches()

	a.log.Info("app initialized",
		zap.Strings("asset_roots", cfg.Assets.Roots),
		zap.Bool("watch", a.watcher != nil),
	)
	return a, nil
}

func (a *App) createScene() {
	sc := a.scene
	sc.ClearColor = ClearColor
	sc.AmbientColor = AmbientColor

	sc.CreateDefaultEnvironment()
	sc.CreateDefaultLight()

	world.BuildGround(sc)

	a.startPlayerImport()
}

func (a *App) startPlayerImport() {
	a.playerTask = a.importer.ImportMesh(a.scene, PlayerBasePath, PlayerFile, a.onPlayerImported, a.onPlayerFailed)
}

// onPlayerImported wires the imported player. A returned error fails the
// import task, which then removes everything the import added.
func (a *App) onPlayerImported(res *assets.ImportResult) error {
	player, skeleton, err := character.PlayerFromImport(res)
	if err != nil {
		return err
	}
	if err := a.charConfig.Validate(); err != nil {
		return err
	}

	character.ConfigurePlayer(player, skeleton)
	cam := character.AttachCamera(player, a.scene, a.engine.Input())

	cc, err := character.Bind(a.factory, player, cam, a.scene, a.charConfig)
	if err != nil {
		cam.DetachControl()
		a.scene.RemoveCamera(cam)
		return fmt.Errorf("failed to bind character controller: %w", err)
	}
	cc.Start()

	a.player, a.camera, a.controller = player, cam, cc
	a.playerRes = res
	a.engine.RunRenderLoop(a.renderFrame)

	a.log.Info("player ready",
		zap.String("mesh", player.Name),
		zap.Strings("animations", skeleton.RangeNames()),
	)
	return nil
}

func (a *App) onPlayerFailed(err error) {
	a.log.Error("failed to import player asset", zap.Error(err))
}

// forwardAssetChanges hands watcher events to the engine thread.
func (a *App) forwardAssetChanges(events <-chan string) {
	for p := range events {
		a.engine.Post(func() { a.onAssetChanged(p) })
	}
}

// onAssetChanged reloads whatever depends on the changed asset path p.
// Runs on the engine thread.
func (a *App) onAssetChanged(p string) {
	if a.closed {
		return
	}
	a.log.Debug("asset changed", zap.String("path", p))

	if p == assets.Clean(PlayerBasePath+PlayerFile) {
		a.reloadPlayer()
		return
	}

	inv, ok := a.backend.(TextureInvalidator)
	if !ok {
		return
	}
	for _, m := range a.scene.Materials() {
		if m.HasDiffuseTexture() && assets.Clean(m.DiffuseTexture.URL) == p {
			inv.InvalidateTexture(m.DiffuseTexture.URL)
		}
	}
}

// reloadPlayer tears down the current player and imports it again.
func (a *App) reloadPlayer() {
	select {
	case <-a.playerTask.Done():
	default:
		a.log.Debug("player import in flight, reload skipped")
		return
	}

	a.engine.StopRenderLoop()
	if a.controller != nil {
		a.controller.Stop()
	}
	if a.camera != nil {
		a.camera.DetachControl()
		a.scene.RemoveCamera(a.camera)
	}
	a.playerRes.Dispose()
	a.player, a.camera, a.controller, a.playerRes = nil, nil, nil, nil

	a.log.Info("reloading player")
	a.startPlayerImport()
}

func (a *App) renderFrame(dt float64) {
	a.scene.Render(dt)
	if a.scene.DebugLayer().IsVisible() {
		a.memory.Update(dt)
	}
	if a.wantShot {
		a.wantShot = false
		a.captureScreenshot()
	}
}

func (a *App) handleKey(e input.Event) {
	if e.Type != input.EventKeyDown {
		return
	}
	switch e.Key {
	case input.KeyF1:
		a.SetDebugOverlay(!a.scene.DebugLayer().IsVisible())
	case input.KeyF12:
		a.wantShot = true
	case input.KeyEscape:
		if a.cancel != nil {
			a.cancel()
		}
	}
}

func (a *App) captureScreenshot() {
	r, ok := a.backend.(FramebufferReader)
	if !ok {
		a.log.Warn("backend cannot capture screenshots")
		return
	}
	pixels, w, h := r.ReadFramebuffer()
	path, err := a.screenshots.SaveFramebuffer(pixels, w, h)
	if err != nil {
		a.log.Error("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", path))
}

func (a *App) addDebugWatches() {
	dl := a.scene.DebugLayer()
	dl.Watch("Player", func() string {
		if a.player == nil {
			return a.importStatus()
		}
		p := a.player.Position
		return fmt.Sprintf("%.2f %.2f %.2f", p.X, p.Y, p.Z)
	})
	dl.Watch("Orbit", func() string {
		if a.camera == nil {
			return "-"
		}
		return fmt.Sprintf("a=%.2f b=%.2f r=%.2f", a.camera.Alpha, a.camera.Beta, a.camera.Radius)
	})
	dl.Watch("State", func() string {
		if sr, ok := a.controller.(stateReporter); ok {
			return string(sr.State())
		}
		return "-"
	})
	dl.Watch("Memory", a.memory.Line)
}

func (a *App) importStatus() string {
	select {
	case <-a.playerTask.Done():
		if a.playerTask.Err() != nil {
			return "import failed"
		}
		return "no player"
	default:
		return "loading"
	}
}

// SetDebugOverlay shows or hides the debug layer. It never changes the
// scene graph.
func (a *App) SetDebugOverlay(enabled bool) {
	dl := a.scene.DebugLayer()
	if enabled {
		dl.Show(true)
	} else {
		dl.Hide()
	}
	a.log.Debug("debug overlay", zap.Bool("visible", enabled))
}

// Run shows the overlay if configured and runs the engine loop until ctx
// is cancelled, Escape is pressed or the surface closes.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	a.SetDebugOverlay(a.cfg.Debug.Overlay)

	if err := a.engine.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Scene returns the app's scene.
func (a *App) Scene() *scene.Scene { return a.scene }

// Engine returns the app's engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Player returns the player mesh, or nil before the import completes.
func (a *App) Player() *scene.Mesh { return a.player }

// Camera returns the orbit camera, or nil before the import completes.
func (a *App) Camera() *camera.ArcRotateCamera { return a.camera }

// Controller returns the character controller, or nil before the import completes.
func (a *App) Controller() character.Controller { return a.controller }

// Assets returns the asset manager the scene loads from.
func (a *App) Assets() *assets.Manager { return a.assets }

// PlayerImport returns the player import task.
func (a *App) PlayerImport() *assets.ImportTask { return a.playerTask }

// Close stops the controller and releases everything the app owns. It is
// safe to call more than once.
func (a *App) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.log.Info("closing app")

	if a.controller != nil {
		a.controller.Stop()
	}
	if a.camera != nil {
		a.camera.DetachControl()
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	a.scene.Dispose()
	a.assets.Close()
	a.engine.Close()
}
