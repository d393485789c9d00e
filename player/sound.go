package player

import (
	"log"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"

	"acdplay/wavsnd"
)

// maxSounds caps the number of live audio players so a fast animation
// cannot pile up cues.
const maxSounds = 16

// soundPool plays wav cues through the shared audio context. PCM is
// resampled to the context rate once and cached per filename.
type soundPool struct {
	ctx  *audio.Context
	snds *wavsnd.Cache

	mu      sync.Mutex
	pcm     map[string][]byte
	players map[*audio.Player]struct{}
}

func newSoundPool(ctx *audio.Context, dir string) *soundPool {
	return &soundPool{
		ctx:     ctx,
		snds:    wavsnd.NewCache(dir),
		pcm:     make(map[string][]byte),
		players: make(map[*audio.Player]struct{}),
	}
}

// play fires the named cue without blocking. Frame timing never waits on
// audio, so failures only log.
func (sp *soundPool) play(name string, volume float64) {
	pcm := sp.load(name)
	if pcm == nil {
		return
	}

	p := sp.ctx.NewPlayerFromBytes(pcm)
	p.SetVolume(volume)

	sp.mu.Lock()
	for old := range sp.players {
		if !old.IsPlaying() {
			old.Close()
			delete(sp.players, old)
		}
	}
	if len(sp.players) >= maxSounds {
		sp.mu.Unlock()
		p.Close()
		return
	}
	sp.players[p] = struct{}{}
	sp.mu.Unlock()

	p.Play()
}

// load retrieves a sound by filename, resamples it to the context rate and
// caches the interleaved stereo PCM bytes. Failed names cache nil so a
// looping animation logs each bad cue once.
func (sp *soundPool) load(name string) []byte {
	sp.mu.Lock()
	if pcm, ok := sp.pcm[name]; ok {
		sp.mu.Unlock()
		return pcm
	}
	sp.mu.Unlock()

	s, err := sp.snds.Get(name)
	if err != nil {
		log.Printf("sound: %v", err)
		sp.mu.Lock()
		sp.pcm[name] = nil
		sp.mu.Unlock()
		return nil
	}

	samples := s.Samples
	if s.SampleRate != sp.ctx.SampleRate() {
		samples = resampleSinc(samples, s.SampleRate, sp.ctx.SampleRate())
	}

	// Interleave mono to 16-bit stereo, the context's PCM layout.
	pcm := make([]byte, len(samples)*4)
	for i, v := range samples {
		pcm[4*i] = byte(v)
		pcm[4*i+1] = byte(v >> 8)
		pcm[4*i+2] = byte(v)
		pcm[4*i+3] = byte(v >> 8)
	}

	sp.mu.Lock()
	sp.pcm[name] = pcm
	sp.mu.Unlock()
	return pcm
}

// resampleSinc resamples the given 16-bit samples from srcRate to dstRate
// using a windowed-sinc (Lanczos) filter for high quality.
func resampleSinc(src []int16, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(src) == 0 {
		return append([]int16(nil), src...)
	}
	n := int(math.Round(float64(len(src)) * float64(dstRate) / float64(srcRate)))
	dst := make([]int16, n)
	ratio := float64(srcRate) / float64(dstRate)
	const a = 3 // filter width
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		idx := int(math.Floor(pos))
		var sum float64
		var wsum float64
		for j := idx - a + 1; j <= idx+a; j++ {
			if j < 0 || j >= len(src) {
				continue
			}
			x := float64(j) - pos
			w := sinc(x) * sinc(x/float64(a))
			sum += float64(src[j]) * w
			wsum += w
		}
		if wsum != 0 {
			sum /= wsum
		}
		if sum > math.MaxInt16 {
			sum = math.MaxInt16
		} else if sum < math.MinInt16 {
			sum = math.MinInt16
		}
		dst[i] = int16(math.Round(sum))
	}
	return dst
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	x *= math.Pi
	return math.Sin(x) / x
}
