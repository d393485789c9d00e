package player

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeWidgetACD(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "c.acd")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWidgetSize(t *testing.T) {
	path := writeWidgetACD(t, `
DefineCharacter
	Name = "Testy"
	Width = 32
	Height = 48
EndCharacter
DefineAnimation "Wave"
	DefineFrame
		Duration = 10
	EndFrame
EndAnimation
`)
	w, err := NewWidget(path, nil, Options{Scale: 2, Volume: 1, Cycles: 1, Speed: 1})
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}
	if ww, wh := w.Size(); ww != 64 || wh != 96 {
		t.Errorf("size = %dx%d, want 64x96", ww, wh)
	}
}

func TestWidgetSizeFallback(t *testing.T) {
	path := writeWidgetACD(t, `
DefineAnimation "Wave"
	DefineFrame
		Duration = 10
	EndFrame
EndAnimation
`)
	w, err := NewWidget(path, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}
	if ww, wh := w.Size(); ww != defaultCharSize || wh != defaultCharSize {
		t.Errorf("size = %dx%d, want %dx%d", ww, wh, defaultCharSize, defaultCharSize)
	}
}

func TestWidgetLoadFailure(t *testing.T) {
	if _, err := NewWidget(filepath.Join(t.TempDir(), "nope.acd"), nil, DefaultOptions()); err == nil {
		t.Error("expected load error")
	}
}

func TestWidgetPlaysThrough(t *testing.T) {
	path := writeWidgetACD(t, `
DefineAnimation "Wave"
	DefineFrame
		Duration = 1
	EndFrame
EndAnimation
`)
	w, err := NewWidget(path, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("new widget: %v", err)
	}
	clk := &testClock{}
	w.player.now = clk.now
	w.player.frames = nilFrames{}

	w.Start([]string{"Wave"})
	if w.Done() {
		t.Fatal("done before playback")
	}
	for i := 0; i < 100 && !w.Done(); i++ {
		w.Update()
		clk.advance(5 * time.Millisecond)
	}
	if !w.Done() {
		t.Error("widget never finished")
	}
}
