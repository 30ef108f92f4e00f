// Package annotate draws landmarks and gesture status on frames and encodes them as JPEG.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/ayusman/handrehab/internal/detector"
	"github.com/ayusman/handrehab/internal/engine"
	"github.com/ayusman/handrehab/internal/gesture"
	"gocv.io/x/gocv"
)

// Colors used for skeletons and status text.
var (
	ColorOpen     = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	ColorHalf     = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	ColorClosed   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	ColorRotation = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	ColorTap      = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	ColorNeutral  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Config holds the drawing options.
type Config struct {
	// Mirror flips the frame horizontally before drawing, so the picture behaves
	// like a mirror for the person in front of the camera.
	Mirror      bool
	Quality     int
	FontScale   float64
	Thickness   int
	PointRadius int
}

// DefaultConfig returns the default drawing options.
func DefaultConfig() Config {
	return Config{
		Mirror:      true,
		Quality:     80,
		FontScale:   0.7,
		Thickness:   2,
		PointRadius: 4,
	}
}

// Annotator draws onto frames. It holds no per-frame state and is safe for
// concurrent use.
type Annotator struct {
	config Config
}

// New creates an Annotator.
func New(config Config) *Annotator {
	if config.FontScale <= 0 {
		config.FontScale = 0.7
	}
	if config.Thickness <= 0 {
		config.Thickness = 2
	}
	if config.PointRadius <= 0 {
		config.PointRadius = 4
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = 80
	}
	return &Annotator{config: config}
}

// Draw renders the subjects' skeletons and one status line per event onto img.
func (a *Annotator) Draw(img *gocv.Mat, subjects []detector.Snapshot, snap engine.Snapshot) {
	if img == nil || img.Empty() {
		return
	}
	if a.config.Mirror {
		gocv.Flip(*img, img, 1)
	}

	width, height := img.Cols(), img.Rows()
	for i := range subjects {
		s := &subjects[i]
		c := SkeletonColor(snap, s.Subject)
		a.drawSkeleton(img, s, width, height, c)
		a.drawTapTarget(img, s, snap, width, height)
	}

	lines := StatusLines(snap)
	for i, line := range lines {
		origin := image.Pt(10, 30+i*int(32*a.config.FontScale+8))
		gocv.PutText(img, line.Text, origin, gocv.FontHersheySimplex, a.config.FontScale, line.Color, a.config.Thickness)
	}
}

func (a *Annotator) drawSkeleton(img *gocv.Mat, s *detector.Snapshot, width, height int, c color.RGBA) {
	connections := detector.HandConnections
	if s.Taxonomy == detector.TaxonomyPose {
		connections = detector.PoseConnections
	}

	for _, conn := range connections {
		p1, ok1 := a.point(s, conn[0], width, height)
		p2, ok2 := a.point(s, conn[1], width, height)
		if ok1 && ok2 {
			gocv.Line(img, p1, p2, c, a.config.Thickness)
		}
	}
	for id := range s.Points {
		if p, ok := a.point(s, id, width, height); ok {
			gocv.Circle(img, p, a.config.PointRadius, c, -1)
		}
	}
}

// drawTapTarget rings the fingertip the tap sequencer is waiting for.
func (a *Annotator) drawTapTarget(img *gocv.Mat, s *detector.Snapshot, snap engine.Snapshot, width, height int) {
	if s.Taxonomy != detector.TaxonomyHand {
		return
	}
	ev, ok := snap.Event(s.Subject, gesture.KindFingerTap)
	if !ok {
		return
	}
	for i, name := range gesture.TapTargets {
		if !strings.HasSuffix(ev.Label, name) {
			continue
		}
		if p, ok := a.point(s, detector.FingerTips[i], width, height); ok {
			gocv.Circle(img, p, a.config.PointRadius*3, ColorTap, a.config.Thickness)
		}
	}
}

// point maps a normalized landmark to pixel coordinates of the drawn image.
func (a *Annotator) point(s *detector.Snapshot, id detector.ID, width, height int) (image.Point, bool) {
	p, ok := s.Point(id)
	if !ok {
		return image.Point{}, false
	}
	x := p.X
	if a.config.Mirror {
		x = 1 - x
	}
	return image.Pt(int(x*float64(width)), int(p.Y*float64(height))), true
}

// Encode returns img as JPEG bytes.
func (a *Annotator) Encode(img *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *img, []int{gocv.IMWriteJpegQuality, a.config.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close.
	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Line is one line of status text.
type Line struct {
	Text  string
	Color color.RGBA
}

// StatusLines renders one line per event of the snapshot, e.g.
// "open-close: Fully Open (cycles 3)".
func StatusLines(snap engine.Snapshot) []Line {
	lines := make([]Line, 0, len(snap.Events))
	for _, ev := range snap.Events {
		text := ev.Label
		if ev.Subject > 0 {
			text = fmt.Sprintf("#%d %s", ev.Subject, text)
		}
		if counters := formatCounters(ev); counters != "" {
			text += " (" + counters + ")"
		}
		lines = append(lines, Line{Text: text, Color: EventColor(ev)})
	}
	return lines
}

func formatCounters(ev engine.Event) string {
	var names []string
	switch ev.Kind {
	case gesture.KindOpenClose:
		names = []string{gesture.CounterCycles}
	case gesture.KindFingerTap:
		names = []string{gesture.CounterTaps, gesture.CounterSequences}
	case gesture.KindArmRaise:
		names = []string{gesture.CounterRaises}
	default:
		// The rotation label already carries its count.
		return ""
	}

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s %d", n, ev.Counters[n]))
	}
	return strings.Join(parts, ", ")
}

// EventColor picks the text color of an event.
func EventColor(ev engine.Event) color.RGBA {
	switch ev.Kind {
	case gesture.KindOpenClose:
		switch ev.Label {
		case gesture.StateFullyOpen.String():
			return ColorOpen
		case gesture.StateHalfClosed.String():
			return ColorHalf
		case gesture.StateFullyClosed.String():
			return ColorClosed
		}
	case gesture.KindRotation:
		return ColorRotation
	case gesture.KindFingerTap:
		return ColorTap
	case gesture.KindArmRaise:
		if ev.Counters[gesture.CounterRaises] > 0 && strings.Contains(ev.Label, "Raise") {
			return ColorOpen
		}
	}
	return ColorNeutral
}

// SkeletonColor is the color of the first event of the subject that has one.
func SkeletonColor(snap engine.Snapshot, subject int) color.RGBA {
	for _, ev := range snap.Events {
		if ev.Subject != subject {
			continue
		}
		if c := EventColor(ev); c != ColorNeutral {
			return c
		}
	}
	return ColorNeutral
}
