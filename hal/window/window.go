//go:build !tinygo && cgo

// Package window runs the host HAL inside a desktop window.
package window

import (
	"errors"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"ringos/hal"
	"ringos/internal/buildinfo"
)

// Config controls the window runner.
type Config struct {
	Scale int
	TPS   int
	// StepBudget is the number of step calls per frame.
	StepBudget int
	Host       hal.HostOptions
}

// Run opens a window that displays the framebuffer. The space key fires the button
// interrupt. It blocks until the window closes and returns the first step error, if any.
func Run(newApp func(hal.HAL) (func() error, error), cfg Config) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	if cfg.TPS <= 0 {
		cfg.TPS = 60
	}
	if cfg.StepBudget <= 0 {
		cfg.StepBudget = 1
	}

	h, err := hal.NewHost(cfg.Host)
	if err != nil {
		return err
	}
	defer h.Close()

	step, err := newApp(h)
	if err != nil {
		return err
	}

	fb := h.Display().Framebuffer()
	g := &game{h: h, fb: fb, step: step, budget: cfg.StepBudget}
	ebiten.SetWindowTitle("ringos (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(fb.Width()*cfg.Scale, fb.Height()*cfg.Scale)
	ebiten.SetTPS(cfg.TPS)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return g.err
}

type game struct {
	h      *hal.Host
	fb     hal.Framebuffer
	step   func() error
	budget int
	err    error

	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.h.PressButton()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if g.step == nil {
		return nil
	}
	for i := 0; i < g.budget; i++ {
		if err := g.step(); err != nil {
			// Keep the window up so the halted screen stays visible.
			g.err = err
			g.step = nil
			break
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	w, h := g.fb.Width(), g.fb.Height()
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, w, h))
		g.scratch = make([]byte, g.fb.StrideBytes()*h)
		g.fbImg = ebiten.NewImage(w, h)
	}

	g.h.SnapshotFramebuffer(g.scratch)

	src := g.scratch
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := hal.RGB888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)

	status := "space: button  esc: quit"
	if g.err != nil {
		status = "halted: " + g.err.Error()
	}
	ebitenutil.DebugPrintAt(screen, status, 4, h-16)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.fb.Width(), g.fb.Height()
}
