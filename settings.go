package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
)

// Settings are the sticky display preferences; per-run CLI flags override
// them without being written back.
type Settings struct {
	Scale       float64 `json:"scale"`
	Volume      float64 `json:"volume"`
	Speed       float64 `json:"speed"`
	Linear      bool    `json:"linear"`
	Vsync       bool    `json:"vsync"`
	Precache    bool    `json:"precache"`
	DiscordRPC  bool    `json:"discordRPC"`
	LastArchive string  `json:"lastArchive"`
}

var gs = Settings{
	Scale:    1,
	Volume:   1,
	Speed:    1,
	Vsync:    true,
	Precache: true,
}

func loadSettings() bool {
	path := filepath.Join(baseDir, "settings.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return false
	}
	if s.Scale <= 0 {
		s.Scale = 1
	}
	if s.Speed <= 0 {
		s.Speed = 1
	}
	if s.Volume < 0 || s.Volume > 1 {
		s.Volume = 1
	}
	gs = s
	return true
}

func saveSettings() {
	data, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		log.Printf("save settings: %v", err)
		return
	}
	path := filepath.Join(baseDir, "settings.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("save settings: %v", err)
	}
}
