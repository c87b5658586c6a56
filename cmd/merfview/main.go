// merfview is an interactive MERF scene viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/merfbake/internal/config"
	"github.com/Faultbox/merfbake/internal/engine/camera"
	"github.com/Faultbox/merfbake/internal/engine/framebuffer"
	"github.com/Faultbox/merfbake/internal/engine/input"
	"github.com/Faultbox/merfbake/internal/engine/raymarch"
	"github.com/Faultbox/merfbake/internal/engine/renderer"
	"github.com/Faultbox/merfbake/internal/engine/window"
	"github.com/Faultbox/merfbake/internal/imagecodec"
	"github.com/Faultbox/merfbake/internal/importer"
	"github.com/Faultbox/merfbake/internal/logger"
	"github.com/Faultbox/merfbake/internal/scene"
	"github.com/Faultbox/merfbake/internal/shadergen"
)

const windowTitle = "merfview"

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: merfview [options] <scene>")
		os.Exit(1)
	}

	if err := run(cfg, args[0]); err != nil {
		logger.Error("viewer failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, target string) error {
	s, k, err := importer.Open(context.Background(), cfg.Import, target)
	if err != nil {
		return err
	}
	if k == nil {
		opts := shadergen.DefaultOptions(s.Params)
		opts.LargerStepsWhenOccluded = cfg.Render.LargerSteps
		if k, err = shadergen.Generate(s.Params, s.Network, opts); err != nil {
			return err
		}
	}

	win, err := window.New(windowTitle+" - "+s.Name, cfg.Viewer)
	if err != nil {
		return err
	}
	defer win.Close()

	if err := renderer.Init(); err != nil {
		return err
	}
	r, err := renderer.New(s, k)
	if err != nil {
		return err
	}
	defer r.Close()

	mode, err := raymarch.ParseDisplayMode(cfg.Render.DisplayMode)
	if err != nil {
		return err
	}
	cam := camera.NewOrbitCamera()
	cam.FovY = cfg.Render.FovY
	cam.FitToBounds(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})
	ctrl := input.NewController(cam)
	ctrl.DisplayMode = mode

	v := &viewer{
		win:    win,
		r:      r,
		scene:  s,
		ctrl:   ctrl,
		step:   cfg.Render.StepMultiplier,
		events: input.New(),
	}
	return v.loop()
}

type viewer struct {
	win    *window.Window
	r      *renderer.Renderer
	scene  *scene.Scene
	ctrl   *input.Controller
	step   int
	events *input.Input
}

func (v *viewer) view() renderer.View {
	w, h := v.win.DrawableSize()
	return renderer.View{
		Camera:         v.ctrl.Camera,
		Width:          w,
		Height:         h,
		DisplayMode:    v.ctrl.DisplayMode,
		StepMultiplier: v.step,
	}
}

func (v *viewer) loop() error {
	frames := 0
	last := time.Now()
	for {
		quit := v.events.Update()
		for _, e := range v.events.Events() {
			switch v.ctrl.Apply(e) {
			case input.ActionQuit:
				quit = true
			case input.ActionDisplayMode:
				logger.Info("display mode", zap.Stringer("mode", v.ctrl.DisplayMode))
			case input.ActionScreenshot:
				if err := v.screenshot(); err != nil {
					logger.Warn("screenshot failed", zap.Error(err))
				}
			}
		}
		if quit {
			return nil
		}
		v.ctrl.Tick()

		if err := v.r.Draw(v.view()); err != nil {
			return err
		}
		v.win.SwapBuffers()

		frames++
		if dt := time.Since(last); dt >= time.Second {
			fps := float64(frames) / dt.Seconds()
			v.win.SetTitle(fmt.Sprintf("%s - %s [%s] %.0f fps", windowTitle, v.scene.Name, v.ctrl.DisplayMode, fps))
			frames = 0
			last = time.Now()
		}
	}
}

// screenshot renders the current view offscreen and writes it as a PNG.
func (v *viewer) screenshot() error {
	view := v.view()
	fb, err := framebuffer.New(int32(view.Width), int32(view.Height))
	if err != nil {
		return err
	}
	defer fb.Destroy()

	restore := fb.Bind()
	err = v.r.Draw(view)
	pix := fb.ReadRGB()
	restore()
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s-%s.png", v.scene.Name, time.Now().Format("20060102-150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := imagecodec.EncodeRGB(f, view.Width, view.Height, pix); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("screenshot saved", zap.String("file", name))
	return nil
}
