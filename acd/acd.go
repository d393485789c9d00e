package acd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// Sentinel errors callers can match with errors.Is.
var (
	ErrFormat   = errors.New("invalid acd data")
	ErrNotFound = errors.New("animation not found")
)

// ImageLayer is one bitmap layer of a frame. Layers listed later in the
// file are drawn first; pure magenta pixels are transparent.
type ImageLayer struct {
	Filename string
	OffsetX  int
	OffsetY  int
}

// Branch is one weighted candidate for the step that follows a frame.
// Target is a zero-based frame index; Probability is a percentage.
type Branch struct {
	Target      int
	Probability int
}

// Frame is a single step of an animation.
type Frame struct {
	Images      []ImageLayer
	Duration    int // centiseconds; 0 means the character default applies
	SoundEffect string
	ExitBranch  int // zero-based frame index, -1 when absent
	Branches    []Branch
}

// Animation is a named, ordered frame sequence.
type Animation struct {
	Name           string
	TransitionType int
	Return         string
	Frames         []Frame
}

// Archive is a fully parsed character definition.
type Archive struct {
	name            string
	dir             string
	width           int
	height          int
	defaultDuration int
	anims           map[string]*Animation
	names           []string
}

const defaultFrameDuration = 10 // centiseconds

var (
	startBlockRe = regexp.MustCompile(`^Define(\w+)(?:\s+(.*))?$`)
	endBlockRe   = regexp.MustCompile(`^End\w+$`)
	propertyRe   = regexp.MustCompile(`^(\w+)\s*=\s*(.*)$`)
)

// Load parses the character definition located at path.
func Load(path string) (*Archive, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// The legacy decompiler writes Latin-1 text.
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	a, err := parse(string(text))
	if err != nil {
		return nil, err
	}
	a.dir = filepath.Dir(path)
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func parse(text string) (*Archive, error) {
	a := &Archive{
		defaultDuration: defaultFrameDuration,
		anims:           make(map[string]*Animation),
	}

	var (
		curAnim   *Animation
		curFrame  *Frame
		curImage  *ImageLayer
		inChar    bool
		branching bool
		branchTo  = -1 // pending BranchTo waiting for its Probability
		skipDepth int  // depth inside an unrecognized block
	)
	sawBlock := false

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if m := startBlockRe.FindStringSubmatch(line); m != nil {
			sawBlock = true
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			switch m[1] {
			case "Character":
				inChar = true
			case "Animation":
				if curAnim != nil {
					return nil, fmt.Errorf("%w: nested DefineAnimation", ErrFormat)
				}
				curAnim = &Animation{Name: parseString(m[2])}
			case "Frame":
				if curAnim == nil || curFrame != nil {
					return nil, fmt.Errorf("%w: DefineFrame outside animation", ErrFormat)
				}
				curFrame = &Frame{ExitBranch: -1}
			case "Image":
				if curFrame == nil {
					return nil, fmt.Errorf("%w: DefineImage outside frame", ErrFormat)
				}
				curImage = &ImageLayer{}
			case "Branching":
				if curFrame == nil {
					return nil, fmt.Errorf("%w: DefineBranching outside frame", ErrFormat)
				}
				branching = true
				branchTo = -1
			default:
				// Balloon, voice and TTS blocks are not needed for playback.
				skipDepth = 1
			}
			continue
		}

		if endBlockRe.MatchString(line) {
			switch {
			case skipDepth > 0:
				skipDepth--
			case branching:
				branching = false
			case curImage != nil:
				curFrame.Images = append(curFrame.Images, *curImage)
				curImage = nil
			case curFrame != nil:
				curAnim.Frames = append(curAnim.Frames, *curFrame)
				curFrame = nil
			case curAnim != nil:
				if _, dup := a.anims[curAnim.Name]; dup {
					return nil, fmt.Errorf("%w: duplicate animation %q", ErrFormat, curAnim.Name)
				}
				a.anims[curAnim.Name] = curAnim
				a.names = append(a.names, curAnim.Name)
				curAnim = nil
			case inChar:
				inChar = false
			}
			continue
		}

		m := propertyRe.FindStringSubmatch(line)
		if m == nil || skipDepth > 0 {
			continue
		}
		key, val := m[1], m[2]
		switch {
		case branching:
			switch key {
			case "BranchTo":
				branchTo = parseInt(val, -1)
			case "Probability":
				if branchTo > 0 {
					curFrame.Branches = append(curFrame.Branches, Branch{
						Target:      branchTo - 1,
						Probability: parseInt(val, 0),
					})
				}
				branchTo = -1
			}
		case curImage != nil:
			switch key {
			case "Filename":
				curImage.Filename = parseString(val)
			case "OffsetX":
				curImage.OffsetX = parseInt(val, 0)
			case "OffsetY":
				curImage.OffsetY = parseInt(val, 0)
			}
		case curFrame != nil:
			switch key {
			case "Duration":
				curFrame.Duration = parseInt(val, 0)
			case "SoundEffect":
				curFrame.SoundEffect = parseString(val)
			case "ExitBranch":
				if n := parseInt(val, 0); n > 0 {
					curFrame.ExitBranch = n - 1
				}
			}
		case curAnim != nil:
			switch key {
			case "TransitionType":
				curAnim.TransitionType = parseInt(val, 0)
			case "Return":
				curAnim.Return = parseString(val)
			}
		case inChar:
			switch key {
			case "Name":
				a.name = parseString(val)
			case "Width":
				a.width = parseInt(val, 0)
			case "Height":
				a.height = parseInt(val, 0)
			case "DefaultFrameDuration":
				if n := parseInt(val, 0); n > 0 {
					a.defaultDuration = n
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if !sawBlock {
		return nil, fmt.Errorf("%w: no Define blocks", ErrFormat)
	}
	if curAnim != nil || curFrame != nil || curImage != nil || inChar || skipDepth > 0 {
		return nil, fmt.Errorf("%w: unterminated block", ErrFormat)
	}

	sort.Strings(a.names)
	return a, nil
}

func (a *Archive) validate() error {
	if len(a.anims) == 0 {
		return fmt.Errorf("%w: no animations", ErrFormat)
	}
	for _, an := range a.anims {
		if len(an.Frames) == 0 {
			return fmt.Errorf("%w: animation %q has no frames", ErrFormat, an.Name)
		}
		for i, fr := range an.Frames {
			if fr.Duration < 0 {
				return fmt.Errorf("%w: animation %q frame %d: negative duration", ErrFormat, an.Name, i+1)
			}
			if fr.ExitBranch >= len(an.Frames) {
				return fmt.Errorf("%w: animation %q frame %d: exit branch out of range", ErrFormat, an.Name, i+1)
			}
			for _, br := range fr.Branches {
				if br.Target < 0 || br.Target >= len(an.Frames) {
					return fmt.Errorf("%w: animation %q frame %d: branch target out of range", ErrFormat, an.Name, i+1)
				}
				if br.Probability < 0 || br.Probability > 100 {
					return fmt.Errorf("%w: animation %q frame %d: branch probability out of range", ErrFormat, an.Name, i+1)
				}
			}
		}
	}
	return nil
}

// Name returns the character's display name, if the file declared one.
func (a *Archive) Name() string { return a.name }

// Dir returns the directory frame bitmaps and sounds resolve against.
func (a *Archive) Dir() string { return a.dir }

// Size returns the character's declared frame dimensions, or zeros when the
// file omits them.
func (a *Archive) Size() (w, h int) { return a.width, a.height }

// DefaultDuration returns the fallback frame duration in centiseconds.
func (a *Archive) DefaultDuration() int { return a.defaultDuration }

// AnimationNames lists the catalog in sorted order.
func (a *Archive) AnimationNames() []string {
	return append([]string(nil), a.names...)
}

// Animation looks up a named animation.
func (a *Archive) Animation(name string) (*Animation, error) {
	an, ok := a.anims[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return an, nil
}

// ImageFilenames returns every bitmap referenced by any frame, deduplicated,
// in catalog order.
func (a *Archive) ImageFilenames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range a.names {
		for _, fr := range a.anims[name].Frames {
			for _, img := range fr.Images {
				if img.Filename != "" && !seen[img.Filename] {
					seen[img.Filename] = true
					out = append(out, img.Filename)
				}
			}
		}
	}
	return out
}

// TotalDuration is the nominal length of one cycle at normal speed,
// ignoring branches. defaultCS fills in frames without a Duration.
func (an *Animation) TotalDuration(defaultCS int) time.Duration {
	var cs int
	for _, fr := range an.Frames {
		d := fr.Duration
		if d <= 0 {
			d = defaultCS
		}
		cs += d
	}
	return time.Duration(cs) * 10 * time.Millisecond
}

func parseString(v string) string {
	return strings.Trim(strings.TrimSpace(v), `"`)
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}
