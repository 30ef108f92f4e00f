package detector

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// maxRecordLine bounds one JSON line of a landmark recording.
const maxRecordLine = 1 << 20

// FrameReader reads landmark recordings: one JSON encoded Frame per line.
type FrameReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewFrameReader creates a FrameReader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRecordLine)
	return &FrameReader{scanner: sc}
}

// Next returns the next frame, or io.EOF at the end of the recording. Blank lines are
// skipped.
func (r *FrameReader) Next() (Frame, error) {
	for r.scanner.Scan() {
		r.line++
		data := bytes.TrimSpace(r.scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			return Frame{}, errors.Wrapf(err, "line %d", r.line)
		}
		for i := range f.Subjects {
			if f.Subjects[i].Timestamp.IsZero() {
				f.Subjects[i].Timestamp = f.Timestamp
			}
		}
		return f, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Frame{}, errors.Wrapf(err, "line %d", r.line+1)
	}
	return Frame{}, io.EOF
}

// ReadFrames reads a whole recording.
func ReadFrames(r io.Reader) ([]Frame, error) {
	fr := NewFrameReader(r)
	var frames []Frame
	for {
		f, err := fr.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
}

// ReplayDetector plays back a landmark recording, one frame per Detect call, ignoring
// the image. Once the recording ends it detects nothing unless looping.
type ReplayDetector struct {
	mu     sync.Mutex
	frames []Frame
	next   int
	loop   bool
}

// NewReplayDetector creates a ReplayDetector over frames.
func NewReplayDetector(frames []Frame, loop bool) *ReplayDetector {
	return &ReplayDetector{frames: frames, loop: loop}
}

// Detect returns the subjects of the next recorded frame.
func (d *ReplayDetector) Detect(frame *gocv.Mat) ([]Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.next >= len(d.frames) {
		if !d.loop || len(d.frames) == 0 {
			return nil, nil
		}
		d.next = 0
	}
	f := d.frames[d.next]
	d.next++

	out := make([]Snapshot, len(f.Subjects))
	copy(out, f.Subjects)
	if d.loop {
		// Looping would replay old timestamps; restamp so durations stay positive.
		now := time.Now()
		for i := range out {
			out[i].Timestamp = now
		}
	}
	return out, nil
}

// Remaining returns how many recorded frames have not been played yet.
func (d *ReplayDetector) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames) - d.next
}

// Close is a no-op.
func (d *ReplayDetector) Close() error {
	return nil
}
