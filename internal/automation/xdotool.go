package automation

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/nidhogg/deskpet/internal/geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const restoreTimeout = 2 * time.Second

// Runner executes one external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// XdotoolConfig tunes the X11 backend.
type XdotoolConfig struct {
	Intensity int           // max shake offset in pixels
	ShakeStep time.Duration // spacing between shake moves
	DragStep  time.Duration // spacing between drag moves
	DragSteps int           // interpolation points on the way to the destination
	Seed      int64
}

// DefaultXdotoolConfig returns the stock prank tuning.
func DefaultXdotoolConfig() XdotoolConfig {
	return XdotoolConfig{
		Intensity: 15,
		ShakeStep: 50 * time.Millisecond,
		DragStep:  200 * time.Millisecond,
		DragSteps: 5,
		Seed:      time.Now().UnixNano(),
	}
}

// Xdotool drives an X11 desktop through the xdotool command.
type Xdotool struct {
	run    Runner
	cfg    XdotoolConfig
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
	logger *zap.Logger
}

// NewXdotool creates the backend. A nil runner uses ExecRunner.
func NewXdotool(run Runner, cfg XdotoolConfig, logger *zap.Logger) *Xdotool {
	if run == nil {
		run = ExecRunner
	}
	alpha, beta, n := 2.0, 2.0, int32(3)
	return &Xdotool{
		run:    run,
		cfg:    cfg,
		noiseX: perlin.NewPerlin(alpha, beta, n, cfg.Seed),
		noiseY: perlin.NewPerlin(alpha, beta, n, cfg.Seed+1),
		logger: logger,
	}
}

func (x *Xdotool) Name() string { return "xdotool" }

// ShakeEnvironment jiggles the active window for d and puts it back where
// it was, even when ctx is cancelled midway.
func (x *Xdotool) ShakeEnvironment(ctx context.Context, d time.Duration) (err error) {
	out, err := x.run(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return fmt.Errorf("find active window: %w", err)
	}
	win := strings.TrimSpace(string(out))
	if win == "" {
		return ErrTargetNotFound
	}
	out, err = x.run(ctx, "xdotool", "getwindowgeometry", "--shell", win)
	if err != nil {
		return fmt.Errorf("window geometry: %w", err)
	}
	origin, err := parseShellPoint(out)
	if err != nil {
		return err
	}

	defer func() {
		rctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()
		if _, rerr := x.run(rctx, "xdotool", "windowmove", win, itoa(origin.X), itoa(origin.Y)); rerr != nil {
			x.logger.Warn("restore window position failed", zap.String("window", win), zap.Error(rerr))
			if err == nil {
				err = fmt.Errorf("restore window: %w", rerr)
			}
		}
	}()

	limiter := rate.NewLimiter(rate.Every(x.cfg.ShakeStep), 1)
	deadline := time.Now().Add(d)
	for step := 0; time.Now().Before(deadline); step++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		p := origin.Add(x.jitter(step))
		if _, err := x.run(ctx, "xdotool", "windowmove", win, itoa(p.X), itoa(p.Y)); err != nil {
			return fmt.Errorf("move window: %w", err)
		}
	}
	x.logger.Debug("shake finished", zap.String("window", win))
	return nil
}

// jitter maps smooth noise onto [-Intensity, Intensity] per axis.
func (x *Xdotool) jitter(step int) geom.Point {
	t := float64(step) * 0.37
	return geom.Point{
		X: geom.Clamp(int(x.noiseX.Noise1D(t)*float64(x.cfg.Intensity)*2), -x.cfg.Intensity, x.cfg.Intensity),
		Y: geom.Clamp(int(x.noiseY.Noise1D(t)*float64(x.cfg.Intensity)*2), -x.cfg.Intensity, x.cfg.Intensity),
	}
}

// DragIconNear presses on the icon at at, drags it by offset in a few
// interpolated moves and lets go. The pointer always goes back to where it
// started.
func (x *Xdotool) DragIconNear(ctx context.Context, at, offset geom.Point) (err error) {
	out, err := x.run(ctx, "xdotool", "getmouselocation", "--shell")
	if err != nil {
		return fmt.Errorf("pointer location: %w", err)
	}
	home, err := parseShellPoint(out)
	if err != nil {
		return err
	}

	pressed := false
	defer func() {
		rctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()
		if pressed {
			x.run(rctx, "xdotool", "mouseup", "1")
		}
		if _, rerr := x.run(rctx, "xdotool", "mousemove", itoa(home.X), itoa(home.Y)); rerr != nil {
			x.logger.Warn("restore pointer failed", zap.Error(rerr))
			if err == nil {
				err = fmt.Errorf("restore pointer: %w", rerr)
			}
		}
	}()

	limiter := rate.NewLimiter(rate.Every(x.cfg.DragStep), 1)
	do := func(args ...string) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := x.run(ctx, "xdotool", args...)
		return err
	}

	if err := do("mousemove", itoa(at.X), itoa(at.Y)); err != nil {
		return fmt.Errorf("reach icon: %w", err)
	}
	if err := do("click", "1"); err != nil {
		return fmt.Errorf("select icon: %w", err)
	}
	if err := do("mousedown", "1"); err != nil {
		return fmt.Errorf("press icon: %w", err)
	}
	pressed = true

	steps := x.cfg.DragSteps
	if steps <= 0 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		p := geom.Point{X: at.X + offset.X*i/steps, Y: at.Y + offset.Y*i/steps}
		if err := do("mousemove", itoa(p.X), itoa(p.Y)); err != nil {
			return fmt.Errorf("drag icon: %w", err)
		}
	}
	if err := do("mouseup", "1"); err != nil {
		return fmt.Errorf("drop icon: %w", err)
	}
	pressed = false
	return nil
}

// parseShellPoint reads X= and Y= from xdotool's --shell output.
func parseShellPoint(out []byte) (geom.Point, error) {
	var p geom.Point
	var gotX, gotY bool
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		switch k {
		case "X":
			p.X, gotX = n, true
		case "Y":
			p.Y, gotY = n, true
		}
	}
	if !gotX || !gotY {
		return geom.Point{}, fmt.Errorf("unexpected xdotool output %q", out)
	}
	return p, nil
}

func itoa(n int) string { return strconv.Itoa(n) }

// Detect picks a backend. "auto" uses xdotool when it is installed and an X
// display is set, "xdotool" forces it, anything else disables automation.
func Detect(backend string, logger *zap.Logger) Service {
	switch backend {
	case "xdotool":
		return NewXdotool(nil, DefaultXdotoolConfig(), logger)
	case "", "auto":
		if _, err := exec.LookPath("xdotool"); err == nil && os.Getenv("DISPLAY") != "" {
			logger.Info("desktop automation enabled", zap.String("backend", "xdotool"))
			return NewXdotool(nil, DefaultXdotoolConfig(), logger)
		}
	}
	logger.Info("desktop automation unavailable, pranks will only be announced")
	return Unsupported{}
}
