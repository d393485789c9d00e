// Package acdimg decodes and composites the bitmap frames referenced by a
// character definition.
package acdimg

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/remeh/sizedwaitgroup"
	"golang.org/x/image/bmp"

	"acdplay/acd"
)

// ErrDecode marks a frame whose bitmap data could not be decoded. The fault
// is limited to that frame; other lookups are unaffected.
var ErrDecode = errors.New("frame decode failed")

const precacheWorkers = 4

// Cache decodes frame bitmaps on demand and retains the results. Layer
// bitmaps are cached by filename, composed frames by their layer signature.
type Cache struct {
	dir    string
	mu     sync.Mutex
	layers map[string]*image.RGBA
	frames map[string]*ebiten.Image
}

// NewCache creates a cache resolving filenames against dir.
func NewCache(dir string) *Cache {
	return &Cache{
		dir:    dir,
		layers: make(map[string]*image.RGBA),
		frames: make(map[string]*ebiten.Image),
	}
}

// Frame returns the composed image for fr, decoding and caching it on first
// use. Frames without image layers yield nil with no error.
func (c *Cache) Frame(fr acd.Frame) (*ebiten.Image, error) {
	if len(fr.Images) == 0 {
		return nil, nil
	}
	key := frameKey(fr)
	c.mu.Lock()
	if img, ok := c.frames[key]; ok {
		c.mu.Unlock()
		return img, nil
	}
	c.mu.Unlock()

	rgba, err := c.Compose(fr)
	if err != nil {
		return nil, err
	}
	img := ebiten.NewImageFromImage(rgba)
	c.mu.Lock()
	c.frames[key] = img
	c.mu.Unlock()
	return img, nil
}

// Compose decodes fr's layers and flattens them into a single RGBA image.
// Layers listed later in the file sit below earlier ones.
func (c *Cache) Compose(fr acd.Frame) (*image.RGBA, error) {
	bounds := image.Rectangle{}
	layers := make([]*image.RGBA, len(fr.Images))
	for i, ref := range fr.Images {
		l, err := c.layer(ref.Filename)
		if err != nil {
			return nil, err
		}
		layers[i] = l
		r := l.Bounds().Add(image.Pt(ref.OffsetX, ref.OffsetY))
		bounds = bounds.Union(r)
	}

	out := image.NewRGBA(bounds)
	for i := len(fr.Images) - 1; i >= 0; i-- {
		ref := fr.Images[i]
		r := layers[i].Bounds().Add(image.Pt(ref.OffsetX, ref.OffsetY))
		draw.Draw(out, r, layers[i], layers[i].Bounds().Min, draw.Over)
	}
	return out, nil
}

// layer loads and color-keys a single bitmap, caching the result.
func (c *Cache) layer(name string) (*image.RGBA, error) {
	c.mu.Lock()
	if l, ok := c.layers[name]; ok {
		c.mu.Unlock()
		return l, nil
	}
	c.mu.Unlock()

	f, err := os.Open(filepath.Join(c.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	defer f.Close()
	src, err := bmp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}

	l := applyColorKey(src)
	c.mu.Lock()
	c.layers[name] = l
	c.mu.Unlock()
	return l, nil
}

// applyColorKey converts src to RGBA and knocks out pure magenta, the
// transparency color of the legacy format.
func applyColorKey(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	clear := color.RGBA{}
	for y := 0; y < dst.Bounds().Dy(); y++ {
		for x := 0; x < dst.Bounds().Dx(); x++ {
			r, g, bl, _ := dst.At(x, y).RGBA()
			if r == 0xffff && g == 0 && bl == 0xffff {
				dst.SetRGBA(x, y, clear)
			}
		}
	}
	return dst
}

// Precache decodes the named layer bitmaps with a bounded worker pool.
// Individual failures are reported once playback touches the frame, so they
// are ignored here.
func (c *Cache) Precache(names []string) {
	swg := sizedwaitgroup.New(precacheWorkers)
	for _, name := range names {
		swg.Add()
		go func(n string) {
			defer swg.Done()
			c.layer(n)
		}(name)
	}
	swg.Wait()
}

// Stats reports the number of cached layer bitmaps and their pixel bytes.
func (c *Cache) Stats() (count int, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.layers {
		count++
		bytes += len(l.Pix)
	}
	return
}

// ClearCache discards all decoded images.
func (c *Cache) ClearCache() {
	c.mu.Lock()
	c.layers = make(map[string]*image.RGBA)
	c.frames = make(map[string]*ebiten.Image)
	c.mu.Unlock()
}

func frameKey(fr acd.Frame) string {
	var b strings.Builder
	for _, img := range fr.Images {
		fmt.Fprintf(&b, "%s@%d,%d|", img.Filename, img.OffsetX, img.OffsetY)
	}
	return b.String()
}
