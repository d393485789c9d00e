package acdimg

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"acdplay/acd"
)

var (
	magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	red     = color.RGBA{R: 255, A: 255}
	blue    = color.RGBA{B: 255, A: 255}
)

// writeBMP encodes a bitmap filled row-major with the given colors.
func writeBMP(t *testing.T, dir, name string, w, h int, colors []color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, c := range colors {
		img.SetRGBA(i%w, i/w, c)
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func frameWith(layers ...acd.ImageLayer) acd.Frame {
	return acd.Frame{Images: layers, ExitBranch: -1}
}

func TestComposeColorKey(t *testing.T) {
	dir := t.TempDir()
	writeBMP(t, dir, "a.bmp", 2, 1, []color.RGBA{magenta, red})
	c := NewCache(dir)

	out, err := c.Compose(frameWith(acd.ImageLayer{Filename: "a.bmp"}))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if _, _, _, a := out.At(0, 0).RGBA(); a != 0 {
		t.Errorf("magenta pixel not keyed out, alpha = %d", a)
	}
	if got := out.RGBAAt(1, 0); got != red {
		t.Errorf("pixel (1,0) = %+v, want red", got)
	}
}

func TestComposeLayerOrder(t *testing.T) {
	dir := t.TempDir()
	writeBMP(t, dir, "top.bmp", 1, 1, []color.RGBA{red})
	writeBMP(t, dir, "bottom.bmp", 1, 1, []color.RGBA{blue})
	c := NewCache(dir)

	// Layers listed first sit on top.
	out, err := c.Compose(frameWith(
		acd.ImageLayer{Filename: "top.bmp"},
		acd.ImageLayer{Filename: "bottom.bmp"},
	))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if got := out.RGBAAt(0, 0); got != red {
		t.Errorf("pixel = %+v, want red on top", got)
	}
}

func TestComposeShowThrough(t *testing.T) {
	dir := t.TempDir()
	writeBMP(t, dir, "top.bmp", 1, 1, []color.RGBA{magenta})
	writeBMP(t, dir, "bottom.bmp", 1, 1, []color.RGBA{blue})
	c := NewCache(dir)

	// A keyed-out top pixel reveals the layer underneath.
	out, err := c.Compose(frameWith(
		acd.ImageLayer{Filename: "top.bmp"},
		acd.ImageLayer{Filename: "bottom.bmp"},
	))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if got := out.RGBAAt(0, 0); got != blue {
		t.Errorf("pixel = %+v, want blue showing through", got)
	}
}

func TestComposeOffsets(t *testing.T) {
	dir := t.TempDir()
	writeBMP(t, dir, "a.bmp", 1, 1, []color.RGBA{red})
	writeBMP(t, dir, "b.bmp", 1, 1, []color.RGBA{blue})
	c := NewCache(dir)

	out, err := c.Compose(frameWith(
		acd.ImageLayer{Filename: "a.bmp"},
		acd.ImageLayer{Filename: "b.bmp", OffsetX: 2, OffsetY: 1},
	))
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("bounds = %v, want 3x2", b)
	}
	if got := out.RGBAAt(0, 0); got != red {
		t.Errorf("pixel (0,0) = %+v, want red", got)
	}
	if got := out.RGBAAt(2, 1); got != blue {
		t.Errorf("pixel (2,1) = %+v, want blue", got)
	}
}

func TestComposeDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeBMP(t, dir, "a.bmp", 2, 2, []color.RGBA{red, blue, magenta, red})
	c := NewCache(dir)
	fr := frameWith(acd.ImageLayer{Filename: "a.bmp"})

	first, err := c.Compose(fr)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Compose(fr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("repeated compose produced different pixels")
	}
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.bmp"), []byte("not a bitmap"), 0644); err != nil {
		t.Fatal(err)
	}
	c := NewCache(dir)

	if _, err := c.Compose(frameWith(acd.ImageLayer{Filename: "bad.bmp"})); !errors.Is(err, ErrDecode) {
		t.Errorf("corrupt bitmap: err = %v, want ErrDecode", err)
	}
	if _, err := c.Compose(frameWith(acd.ImageLayer{Filename: "missing.bmp"})); !errors.Is(err, ErrDecode) {
		t.Errorf("missing bitmap: err = %v, want ErrDecode", err)
	}

	// A bad frame must not poison lookups of good ones.
	writeBMP(t, dir, "good.bmp", 1, 1, []color.RGBA{red})
	if _, err := c.Compose(frameWith(acd.ImageLayer{Filename: "good.bmp"})); err != nil {
		t.Errorf("good bitmap after failures: %v", err)
	}
}

func TestEmptyFrame(t *testing.T) {
	c := NewCache(t.TempDir())
	img, err := c.Frame(acd.Frame{ExitBranch: -1})
	if err != nil {
		t.Fatalf("empty frame: %v", err)
	}
	if img != nil {
		t.Error("empty frame should yield no image")
	}
}

func TestPrecacheAndStats(t *testing.T) {
	dir := t.TempDir()
	writeBMP(t, dir, "a.bmp", 2, 2, []color.RGBA{red, red, red, red})
	writeBMP(t, dir, "b.bmp", 1, 1, []color.RGBA{blue})
	c := NewCache(dir)

	c.Precache([]string{"a.bmp", "b.bmp", "missing.bmp"})
	count, size := c.Stats()
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if want := 2*2*4 + 1*1*4; size != want {
		t.Errorf("size = %d, want %d", size, want)
	}

	c.ClearCache()
	if count, _ := c.Stats(); count != 0 {
		t.Errorf("count after clear = %d", count)
	}
}
