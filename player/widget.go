package player

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"

	"acdplay/acd"
)

// fallback widget size for characters that omit Width/Height.
const defaultCharSize = 128

// Widget is the embeddable playback surface: a host game calls Update from
// its update loop and Draw from its draw pass. The standalone app uses the
// same type.
type Widget struct {
	player *Player
	arch   *acd.Archive
}

// NewWidget loads the character definition at path and prepares it for
// playback. actx may be nil to disable sound.
func NewWidget(path string, actx *audio.Context, opts Options) (*Widget, error) {
	arch, err := acd.Load(path)
	if err != nil {
		return nil, err
	}
	return &Widget{player: New(arch, actx, opts), arch: arch}, nil
}

// Archive exposes the loaded catalog, e.g. for listing animation names.
func (w *Widget) Archive() *acd.Archive { return w.arch }

// Player exposes the underlying scheduler.
func (w *Widget) Player() *Player { return w.player }

// Start queues the named animations.
func (w *Widget) Start(names []string) { w.player.Start(names) }

// Stop winds down playback through the character's exit branches.
func (w *Widget) Stop() { w.player.Stop() }

// Done reports whether the animation queue has drained.
func (w *Widget) Done() bool { return w.player.Done() }

// Update advances playback; call once per host update tick.
func (w *Widget) Update() { w.player.Update() }

// Size returns the widget's scaled pixel dimensions for host layout.
func (w *Widget) Size() (int, int) {
	cw, ch := w.arch.Size()
	if cw <= 0 || ch <= 0 {
		cw, ch = defaultCharSize, defaultCharSize
	}
	s := w.player.opts.Scale
	return int(float64(cw) * s), int(float64(ch) * s)
}

// Draw paints the current frame at the widget origin, scaled by the
// configured factor. Pass a translated GeoM through op to position the
// widget inside a larger scene; op may be nil.
func (w *Widget) Draw(screen *ebiten.Image, op *ebiten.DrawImageOptions) {
	img := w.player.CurrentImage()
	if img == nil {
		return
	}
	var o ebiten.DrawImageOptions
	if op != nil {
		o = *op
	}
	if w.player.opts.Linear {
		o.Filter = ebiten.FilterLinear
	} else {
		o.Filter = ebiten.FilterNearest
	}
	s := w.player.opts.Scale
	geo := ebiten.GeoM{}
	geo.Scale(s, s)
	geo.Concat(o.GeoM)
	o.GeoM = geo
	screen.DrawImage(img, &o)
}
