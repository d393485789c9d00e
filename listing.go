package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"acdplay/acd"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

// listCatalog prints the animation catalog: one line per animation with its
// frame count and nominal length, then the image payload total.
func listCatalog(w io.Writer, arch *acd.Archive) {
	name := arch.Name()
	if name == "" {
		name = "(unnamed character)"
	}
	names := arch.AnimationNames()
	fmt.Fprintf(w, "%s: %d animations\n", name, len(names))

	for _, n := range names {
		anim, err := arch.Animation(n)
		if err != nil {
			// Catalog names always resolve; defensive only.
			continue
		}
		d := anim.TotalDuration(arch.DefaultDuration())
		fmt.Fprintf(w, "  %-24s %4d frames  %s\n",
			n, len(anim.Frames), durafmt.Parse(d).LimitFirstN(2).Format(shortUnits))
	}

	files := arch.ImageFilenames()
	var total uint64
	for _, f := range files {
		if fi, err := os.Stat(filepath.Join(arch.Dir(), f)); err == nil {
			total += uint64(fi.Size())
		}
	}
	fmt.Fprintf(w, "Images: %d (%s)\n", len(files), humanize.Bytes(total))
}
