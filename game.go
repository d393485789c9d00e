package main

import (
	"context"
	"fmt"
	"image/color"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	dark "github.com/thiagokokada/dark-mode-go"

	"acdplay/player"
)

const audioSampleRate = 44100

// Game hosts the playback widget in a standalone window.
type Game struct {
	widget   *player.Widget
	backdrop color.RGBA
	w, h     int
}

func (g *Game) Update() error {
	// Escape winds the character down through its exit branches instead
	// of cutting it off mid-gesture.
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.widget.Stop()
	}
	g.widget.Update()
	if g.widget.Done() {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(g.backdrop)
	g.widget.Draw(screen, nil)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.w, g.h
}

type playOptions struct {
	scale  float64
	volume float64
	cycles int
	speed  float64
	linear bool
	mute   bool
}

// runPlayer opens the character, starts the requested queue and runs the
// window until playback finishes or the window closes.
func runPlayer(ctx context.Context, path string, names []string, opts playOptions) error {
	var actx *audio.Context
	if !opts.mute {
		actx = audio.NewContext(audioSampleRate)
	}

	widget, err := player.NewWidget(path, actx, player.Options{
		Scale:  opts.scale,
		Volume: opts.volume,
		Cycles: opts.cycles,
		Speed:  opts.speed,
		Linear: opts.linear,
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if gs.Precache {
		widget.Player().Precache()
	}
	widget.Start(names)

	if gs.DiscordRPC {
		initDiscordRPC(ctx, widget.Archive().Name())
	}

	title := widget.Archive().Name()
	if title == "" {
		title = "acdplay"
	}
	g := &Game{widget: widget, backdrop: backdropColor()}
	g.w, g.h = widget.Size()
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(g.w, g.h)
	ebiten.SetVsyncEnabled(gs.Vsync)

	if err := ebiten.RunGame(g); err != nil && err != ebiten.Termination {
		return fmt.Errorf("ebiten: %w", err)
	}

	n, b := widget.Player().CacheStats()
	logDebug("frame cache: %d bitmaps (%s)", n, humanize.Bytes(uint64(b)))
	return nil
}

// backdropColor follows the OS theme so the color-keyed character sits on a
// comfortable background.
func backdropColor() color.RGBA {
	darkMode, err := dark.IsDarkMode()
	if err != nil {
		darkMode = true
	}
	if darkMode {
		return color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	}
	return color.RGBA{R: 0xe8, G: 0xe8, B: 0xe8, A: 0xff}
}
