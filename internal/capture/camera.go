// Package capture reads frames from a camera device or a video file using GoCV.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrExhausted is returned when a finite source has no more frames.
	ErrExhausted = errors.New("capture source exhausted")
)

// Camera is a source of BGR frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller must close it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config describes a capture source.
type Config struct {
	// DeviceID selects a camera when File is empty.
	DeviceID int    `json:"device_id"`
	File     string `json:"file,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FPS      int    `json:"fps"`
}

// DefaultConfig returns the settings for the first camera at 640x480.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FPS:      DefaultFPS,
	}
}

// Key identifies the underlying device, so two sessions never share one camera.
func (c Config) Key() string {
	if c.File != "" {
		return "file:" + c.File
	}
	return fmt.Sprintf("device:%d", c.DeviceID)
}

// videoSource reads from a camera device or a video file.
type videoSource struct {
	config  Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	open    bool
}

// NewCamera creates a Camera for a device.
func NewCamera(deviceID int) Camera {
	cfg := DefaultConfig()
	cfg.DeviceID = deviceID
	return New(cfg)
}

// New creates a Camera from a Config. A non-empty File opens a finite video file
// whose end is reported as ErrExhausted.
func New(config Config) Camera {
	if config.Width <= 0 {
		config.Width = DefaultWidth
	}
	if config.Height <= 0 {
		config.Height = DefaultHeight
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	return &videoSource{config: config}
}

func (c *videoSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return nil
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if c.config.File != "" {
		vc, err = gocv.VideoCaptureFile(c.config.File)
	} else {
		vc, err = gocv.OpenVideoCapture(c.config.DeviceID)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", c.config.Key(), err)
	}

	if c.config.File == "" {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
		vc.Set(gocv.VideoCaptureFPS, float64(c.config.FPS))
	}

	c.capture = vc
	c.open = true
	return nil
}

func (c *videoSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open || c.capture == nil {
		c.open = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.open = false
	return err
}

func (c *videoSource) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if c.config.File != "" {
			return nil, ErrExhausted
		}
		return nil, fmt.Errorf("read frame from %s", c.config.Key())
	}

	return &mat, nil
}

// SetFPS ignores values <= 0.
func (c *videoSource) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.config.FPS = fps
	if c.capture != nil && c.config.File == "" {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *videoSource) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.FPS
}

func (c *videoSource) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
