package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sqweek/dialog"

	"acdplay/acd"
)

var (
	baseDir string
	debug   bool
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(),
		"usage: acdplay [flags] <character.acd> [anim1,anim2,...]\n\n"+
			"With no animation list the catalog is printed instead.\n\n")
	flag.PrintDefaults()
}

func main() {
	baseDir = os.Getenv("PWD")
	if baseDir == "" {
		var err error
		if baseDir, err = os.Getwd(); err != nil {
			fmt.Fprintf(os.Stderr, "get working directory: %v\n", err)
			os.Exit(1)
		}
	}
	loadSettings()

	scale := flag.Float64("scale", gs.Scale, "display scale factor, must be > 0")
	volume := flag.Float64("volume", gs.Volume, "sound volume; values outside [0,1] are clamped")
	cycles := flag.Int("cycles", 1, "times each animation repeats, -1 for infinite")
	speed := flag.Float64("speed", gs.Speed, "playback speed multiplier, must be > 0")
	linear := flag.Bool("linear", gs.Linear, "bilinear filtering when scaling")
	mute := flag.Bool("mute", false, "disable sound playback")
	flag.BoolVar(&debug, "debug", false, "verbose/debug logging")
	flag.Usage = usage
	flag.Parse()

	setupLogging(debug)

	if *scale <= 0 {
		fmt.Fprintln(os.Stderr, "scale must be > 0")
		os.Exit(2)
	}
	if *speed <= 0 {
		fmt.Fprintln(os.Stderr, "speed must be > 0")
		os.Exit(2)
	}

	path := flag.Arg(0)
	if path == "" {
		// No path on the command line; offer a native file picker so the
		// binary is usable from a double-click.
		startDir := baseDir
		if gs.LastArchive != "" {
			startDir = filepath.Dir(gs.LastArchive)
		}
		var err error
		path, err = dialog.File().Filter("ACD character files", "acd").
			SetStartDir(startDir).Title("Open Character").Load()
		if err != nil {
			if err != dialog.Cancelled {
				flag.Usage()
				os.Exit(2)
			}
			return
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	var names []string
	if arg := flag.Arg(1); arg != "" {
		for _, n := range strings.Split(arg, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	if len(names) == 0 {
		arch, err := acd.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", path, err)
			os.Exit(1)
		}
		listCatalog(os.Stdout, arch)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runPlayer(ctx, path, names, playOptions{
		scale:  *scale,
		volume: *volume,
		cycles: *cycles,
		speed:  *speed,
		linear: *linear,
		mute:   *mute,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	gs.LastArchive = path
	saveSettings()
}
