package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection tunables.
const (
	// BlurSize is the Gaussian kernel applied before differencing.
	BlurSize = 21
	// PixelDelta is the per-pixel gray-level change that counts as changed.
	PixelDelta = 25
)

// Pacing defaults.
const (
	DefaultIdleFPS         = 5
	DefaultActiveFPS       = 15
	DefaultMotionThreshold = 1.0 // percent of changed pixels
	DefaultCooldown        = 2 * time.Second
)

// MotionDetector compares consecutive frames and reports the share of changed pixels.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewMotionDetector creates a detector that reports motion once more than threshold
// percent of the pixels change between two frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect returns whether frame moved relative to the previous one, and the changed
// pixel percentage. The first frame only primes the detector.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)

	if !m.primed {
		blurred.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, PixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0
	blurred.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset forgets the previous frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the stored frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.primed = false
}

// SetThreshold ignores values <= 0.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// PacerConfig holds the frame pacing settings of a session.
type PacerConfig struct {
	IdleFPS         int           `json:"idle_fps"`
	ActiveFPS       int           `json:"active_fps"`
	MotionThreshold float64       `json:"motion_threshold"`
	Cooldown        time.Duration `json:"cooldown"`
}

// DefaultPacerConfig returns the default pacing settings.
func DefaultPacerConfig() PacerConfig {
	return PacerConfig{
		IdleFPS:         DefaultIdleFPS,
		ActiveFPS:       DefaultActiveFPS,
		MotionThreshold: DefaultMotionThreshold,
		Cooldown:        DefaultCooldown,
	}
}

// Pacer picks the capture interval. It runs at ActiveFPS while there is motion or a
// subject in view, and drops to IdleFPS once neither has been seen for Cooldown.
// Pacing only changes how often frames are read; every read frame is still processed.
type Pacer struct {
	config     PacerConfig
	motion     *MotionDetector
	lastActive time.Time
	active     bool
}

// NewPacer creates a Pacer.
func NewPacer(config PacerConfig) *Pacer {
	if config.IdleFPS <= 0 {
		config.IdleFPS = DefaultIdleFPS
	}
	if config.ActiveFPS <= 0 {
		config.ActiveFPS = DefaultActiveFPS
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultCooldown
	}
	return &Pacer{
		config: config,
		motion: NewMotionDetector(config.MotionThreshold),
	}
}

// Observe records one processed frame and whether any subject was detected in it.
// It returns the interval to wait before reading the next frame.
func (p *Pacer) Observe(frame *gocv.Mat, subjects bool, now time.Time) time.Duration {
	moved, _ := p.motion.Detect(frame)
	return p.observe(moved || subjects, now)
}

func (p *Pacer) observe(activity bool, now time.Time) time.Duration {
	if activity {
		p.lastActive = now
		p.active = true
	} else if p.active && now.Sub(p.lastActive) >= p.config.Cooldown {
		p.active = false
	}
	return p.Interval()
}

// Active reports whether the pacer is at the active rate.
func (p *Pacer) Active() bool {
	return p.active
}

// Interval returns the current frame interval.
func (p *Pacer) Interval() time.Duration {
	fps := p.config.IdleFPS
	if p.active {
		fps = p.config.ActiveFPS
	}
	return time.Second / time.Duration(fps)
}

// Close releases the motion detector.
func (p *Pacer) Close() {
	p.motion.Close()
}
