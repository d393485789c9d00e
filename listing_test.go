package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"acdplay/acd"
)

func TestListCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.acd")
	err := os.WriteFile(path, []byte(`
DefineCharacter
	Name = "Testy"
EndCharacter
DefineAnimation "Wave"
	DefineFrame
		Duration = 50
		DefineImage
			Filename = "0001.bmp"
		EndImage
	EndFrame
EndAnimation
DefineAnimation "Blink"
	DefineFrame
		Duration = 10
	EndFrame
EndAnimation
`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "0001.bmp"), make([]byte, 1024), 0644); err != nil {
		t.Fatal(err)
	}

	arch, err := acd.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var sb strings.Builder
	listCatalog(&sb, arch)
	out := sb.String()

	if !strings.Contains(out, "Testy: 2 animations") {
		t.Errorf("missing header:\n%s", out)
	}
	// Sorted order: Blink before Wave.
	if strings.Index(out, "Blink") > strings.Index(out, "Wave") {
		t.Errorf("catalog not sorted:\n%s", out)
	}
	if !strings.Contains(out, "500ms") {
		t.Errorf("missing wave duration:\n%s", out)
	}
	if !strings.Contains(out, "1.0 kB") {
		t.Errorf("missing image payload:\n%s", out)
	}
}
