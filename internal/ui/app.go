// Package ui presents a running machine's text page in a window.
package ui

import (
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/projectacorn/acorn86/internal/machine"
	"github.com/projectacorn/acorn86/internal/video"
)

// stepsPerFrame approximates a usable machine speed at 60 FPS without a
// cycle counter.
const stepsPerFrame = 20000

type Config struct {
	Title string
	Scale int
}

type App struct {
	cfg    Config
	m      *machine.Machine
	paused bool
	fault  error
}

func NewApp(cfg Config, m *machine.Machine) *App {
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(video.Columns*8*cfg.Scale/2, video.Rows*16*cfg.Scale/2)
	return &App{cfg: cfg, m: m}
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	// Pause toggle (P), single instruction while paused (N)
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	if a.paused {
		if inpututil.IsKeyJustPressed(ebiten.KeyN) {
			a.step(1)
		}
		return nil
	}
	a.step(stepsPerFrame)
	return nil
}

func (a *App) step(n int) {
	if a.fault != nil || a.m.CPU.Halted() {
		return
	}
	_, err := a.m.Run(n)
	a.fault = err
}

func (a *App) Draw(screen *ebiten.Image) {
	for i, line := range video.Page(a.m.Mem) {
		ebitenutil.DebugPrintAt(screen, line, 4, 4+i*16)
	}
	var status []string
	if a.paused {
		status = append(status, "[paused: N steps once, P resumes]")
	}
	if a.m.CPU.Halted() {
		status = append(status, "[halted]")
	}
	if a.fault != nil {
		status = append(status, "["+a.fault.Error()+"]")
	}
	if len(status) > 0 {
		ebitenutil.DebugPrintAt(screen, strings.Join(status, " "), 4, 4+video.Rows*16)
	}
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return video.Columns * 8, (video.Rows + 2) * 16
}
