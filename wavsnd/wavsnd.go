// Package wavsnd loads the RIFF/WAVE sound effects a character references.
package wavsnd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrDecode marks a sound file that could not be parsed.
var ErrDecode = errors.New("sound decode failed")

// Sound holds decoded PCM samples and parameters. Samples are mono 16-bit;
// stereo sources are downmixed.
type Sound struct {
	Samples    []int16
	SampleRate int
}

// Cache provides access to the wav files stored beside the character
// definition. Sounds are decoded on demand and cached by filename.
type Cache struct {
	dir   string
	mu    sync.Mutex
	cache map[string]*Sound
}

// NewCache creates a cache resolving filenames against dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir, cache: make(map[string]*Sound)}
}

// Get returns the decoded sound for the given filename.
func (c *Cache) Get(name string) (*Sound, error) {
	c.mu.Lock()
	if s, ok := c.cache[name]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	c.mu.Lock()
	c.cache[name] = s
	c.mu.Unlock()
	return s, nil
}

// ClearCache discards all decoded sound data.
func (c *Cache) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]*Sound)
	c.mu.Unlock()
}

const wavFormatPCM = 1

// decode parses a RIFF/WAVE container holding uncompressed PCM.
func decode(data []byte) (*Sound, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a wave file")
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bits       int
		pcm        []byte
		haveFmt    bool
	)
	r := data[12:]
	for len(r) >= 8 {
		id := string(r[0:4])
		size := int(binary.LittleEndian.Uint32(r[4:8]))
		r = r[8:]
		if size < 0 || size > len(r) {
			return nil, fmt.Errorf("truncated %q chunk", id)
		}
		body := r[:size]
		// Chunks are word aligned.
		adv := size + size%2
		if adv > len(r) {
			adv = len(r)
		}
		r = r[adv:]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("short fmt chunk")
			}
			format = binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			pcm = body
		}
	}
	if !haveFmt || pcm == nil {
		return nil, fmt.Errorf("missing fmt or data chunk")
	}
	if format != wavFormatPCM {
		return nil, fmt.Errorf("unsupported format %d", format)
	}
	if channels < 1 || channels > 2 || sampleRate <= 0 {
		return nil, fmt.Errorf("bad fmt parameters")
	}

	var samples []int16
	switch bits {
	case 8:
		samples = make([]int16, len(pcm))
		for i, b := range pcm {
			samples[i] = (int16(b) - 0x80) << 8
		}
	case 16:
		if len(pcm)%2 != 0 {
			return nil, fmt.Errorf("odd pcm length")
		}
		samples = make([]int16, len(pcm)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i : 2*i+2]))
		}
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bits)
	}

	if channels == 2 {
		mono := make([]int16, len(samples)/2)
		for i := range mono {
			mono[i] = int16((int(samples[2*i]) + int(samples[2*i+1])) / 2)
		}
		samples = mono
	}

	return &Sound{Samples: samples, SampleRate: sampleRate}, nil
}
