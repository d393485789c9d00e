// Package player steps a character's animations frame by frame, firing
// sound cues and exposing the current image for a host to draw.
package player

import (
	"log"
	"math/rand"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"golang.org/x/time/rate"

	"acdplay/acd"
	"acdplay/acdimg"
)

// Options carries the playback parameters shared by the CLI and the widget.
type Options struct {
	Scale  float64 // display scale factor, > 0
	Volume float64 // sound volume, clamped to [0,1]
	Cycles int     // repeats per animation, -1 for infinite
	Speed  float64 // duration divisor, > 0
	Linear bool    // bilinear filtering when scaling
}

// DefaultOptions matches the legacy player's defaults.
func DefaultOptions() Options {
	return Options{Scale: 1, Volume: 1, Cycles: 1, Speed: 1}
}

// FrameSource resolves a frame's composed image.
type FrameSource interface {
	Frame(fr acd.Frame) (*ebiten.Image, error)
}

// BranchPicker supplies the roll used to resolve a branching frame: a value
// in [0,100) tested against the cumulative branch probabilities. The default
// is a uniform roll; tests substitute deterministic pickers.
type BranchPicker func() int

// Durations shorter than this play at this length, matching the original
// player's floor.
const minStepTime = 10 * time.Millisecond

// session is the state of one in-progress animation run.
type session struct {
	name       string
	anim       *acd.Animation
	step       int
	enteredAt  time.Time
	cyclesLeft int
}

// Player schedules animation playback. All methods must be called from the
// host's update loop; nothing here is safe for concurrent use.
type Player struct {
	arch   *acd.Archive
	frames FrameSource
	opts   Options

	pick    BranchPicker
	now     func() time.Time
	playCue func(name string)

	queue    []string
	cur      *session
	img      *ebiten.Image
	stopping bool
	done     bool

	decodeLog *rate.Limiter
}

// New creates a Player for arch. actx may be nil, which disables sound.
func New(arch *acd.Archive, actx *audio.Context, opts Options) *Player {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.Volume < 0 {
		opts.Volume = 0
	} else if opts.Volume > 1 {
		opts.Volume = 1
	}
	p := &Player{
		arch:      arch,
		frames:    acdimg.NewCache(arch.Dir()),
		opts:      opts,
		pick:      func() int { return rand.Intn(100) },
		now:       time.Now,
		decodeLog: rate.NewLimiter(rate.Every(time.Second), 1),
		done:      true,
	}
	if actx != nil {
		pool := newSoundPool(actx, arch.Dir())
		p.playCue = func(name string) { pool.play(name, p.opts.Volume) }
	} else {
		p.playCue = func(string) {}
	}
	return p
}

// Start queues the named animations for playback, replacing any current
// queue. Unknown names are skipped with a logged error when their turn
// comes; the rest of the queue still plays.
func (p *Player) Start(names []string) {
	p.queue = append([]string(nil), names...)
	p.cur = nil
	p.stopping = false
	p.done = len(p.queue) == 0
}

// Stop requests a graceful wind-down: the current animation exits through
// its frames' exit branches and the rest of the queue is dropped.
func (p *Player) Stop() {
	if p.cur == nil {
		p.done = true
		return
	}
	p.stopping = true
	p.queue = nil
}

// Done reports whether the queue has fully drained.
func (p *Player) Done() bool { return p.done }

// CurrentImage returns the image for the active frame, or nil before the
// first frame is shown. The last good image is held across decode faults.
func (p *Player) CurrentImage() *ebiten.Image { return p.img }

// Options returns the effective playback parameters after clamping.
func (p *Player) Options() Options { return p.opts }

// Precache decodes every bitmap the catalog references so playback never
// stalls on first use. Individual decode faults surface later, per frame.
func (p *Player) Precache() {
	if c, ok := p.frames.(*acdimg.Cache); ok {
		c.Precache(p.arch.ImageFilenames())
	}
}

// CacheStats reports the decoded-bitmap count and pixel bytes held by the
// frame cache.
func (p *Player) CacheStats() (count, bytes int) {
	if c, ok := p.frames.(*acdimg.Cache); ok {
		return c.Stats()
	}
	return 0, 0
}

// Update is the scheduler tick; the host calls it once per update. It
// advances the session when the active frame's effective duration has
// elapsed and starts queued animations as earlier ones complete.
func (p *Player) Update() {
	if p.done {
		return
	}
	if p.cur == nil {
		p.startNext()
		return
	}
	fr := p.cur.anim.Frames[p.cur.step]
	if p.now().Sub(p.cur.enteredAt) < p.stepTime(fr) {
		return
	}
	p.advance(fr)
}

// startNext pops queue entries until one resolves, then begins its session.
func (p *Player) startNext() {
	for len(p.queue) > 0 {
		name := p.queue[0]
		p.queue = p.queue[1:]
		anim, err := p.arch.Animation(name)
		if err != nil {
			log.Printf("skipping animation: %v", err)
			continue
		}
		p.cur = &session{name: name, anim: anim, cyclesLeft: p.opts.Cycles}
		p.enterStep(0)
		return
	}
	p.done = true
}

// advance resolves the step that follows fr and moves the session there.
func (p *Player) advance(fr acd.Frame) {
	next := p.cur.step + 1
	switch {
	case p.stopping:
		if fr.ExitBranch >= 0 {
			next = fr.ExitBranch
		}
	case len(fr.Branches) > 0:
		roll := p.pick()
		cum := 0
		for _, br := range fr.Branches {
			cum += br.Probability
			if roll < cum {
				next = br.Target
				break
			}
		}
	}

	if next >= len(p.cur.anim.Frames) {
		p.endCycle()
		return
	}
	if next < 0 {
		// Validated at load time; a hit here means corrupt in-memory state.
		log.Printf("playback error: animation %q frame %d: bad step target %d",
			p.cur.name, p.cur.step+1, next)
		p.cur = nil
		p.startNext()
		return
	}
	p.enterStep(next)
}

// endCycle handles running off the end of the frame list.
func (p *Player) endCycle() {
	if p.stopping {
		p.cur = nil
		p.done = true
		return
	}
	if p.cur.cyclesLeft > 0 {
		p.cur.cyclesLeft--
	}
	if p.cur.cyclesLeft == 0 {
		// The next queued animation starts on the same tick.
		p.cur = nil
		p.startNext()
		return
	}
	p.enterStep(0)
}

// enterStep makes the given frame current, resolving its image and firing
// its sound cue.
func (p *Player) enterStep(i int) {
	p.cur.step = i
	p.cur.enteredAt = p.now()

	fr := p.cur.anim.Frames[i]
	img, err := p.frames.Frame(fr)
	if err != nil {
		// Keep showing the last good frame.
		if p.decodeLog.Allow() {
			log.Printf("frame decode: %v", err)
		}
	} else if img != nil {
		p.img = img
	}
	if fr.SoundEffect != "" {
		p.playCue(fr.SoundEffect)
	}
}

// stepTime is fr's display time after the speed divisor.
func (p *Player) stepTime(fr acd.Frame) time.Duration {
	cs := fr.Duration
	if cs <= 0 {
		cs = p.arch.DefaultDuration()
	}
	d := time.Duration(float64(cs) * 10 * float64(time.Millisecond) / p.opts.Speed)
	if d < minStepTime {
		d = minStepTime
	}
	return d
}
