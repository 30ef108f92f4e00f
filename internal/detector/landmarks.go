// Package detector provides the landmark snapshot contract consumed by the gesture
// engine and the detector implementations that produce it.
package detector

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Taxonomy identifies which landmark model produced a snapshot.
type Taxonomy string

const (
	TaxonomyHand Taxonomy = "hand"
	TaxonomyPose Taxonomy = "pose"
	TaxonomyFace Taxonomy = "face"
)

// ID names a landmark within a taxonomy.
type ID int

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist     ID = 0
	ThumbCMC  ID = 1
	ThumbMCP  ID = 2
	ThumbIP   ID = 3
	ThumbTip  ID = 4
	IndexMCP  ID = 5
	IndexPIP  ID = 6
	IndexDIP  ID = 7
	IndexTip  ID = 8
	MiddleMCP ID = 9
	MiddlePIP ID = 10
	MiddleDIP ID = 11
	MiddleTip ID = 12
	RingMCP   ID = 13
	RingPIP   ID = 14
	RingDIP   ID = 15
	RingTip   ID = 16
	PinkyMCP  ID = 17
	PinkyPIP  ID = 18
	PinkyDIP  ID = 19
	PinkyTip  ID = 20

	NumHandLandmarks = 21
)

// Pose landmark indices (MediaPipe BlazePose). Only the joints the engine reads are named.
const (
	Nose          ID = 0
	LeftShoulder  ID = 11
	RightShoulder ID = 12
	LeftElbow     ID = 13
	RightElbow    ID = 14
	LeftWrist     ID = 15
	RightWrist    ID = 16
	LeftHip       ID = 23
	RightHip      ID = 24

	NumPoseLandmarks = 33
)

// Default frame size used to scale normalized coordinates when a snapshot does not
// carry its own.
const (
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 480
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Snapshot holds the landmarks of one detected subject in one frame.
type Snapshot struct {
	Taxonomy   Taxonomy       `json:"taxonomy"`
	Subject    int            `json:"subject"`
	Handedness string         `json:"handedness,omitempty"` // "Left" or "Right"
	Score      float64        `json:"score"`
	Points     map[ID]Point3D `json:"points"`
	Width      int            `json:"width,omitempty"`
	Height     int            `json:"height,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Frame is everything the detector found in one captured image.
type Frame struct {
	Seq       uint64     `json:"seq"`
	Timestamp time.Time  `json:"timestamp"`
	Subjects  []Snapshot `json:"subjects"`
}

// Point returns the landmark with the given ID.
func (s *Snapshot) Point(id ID) (Point3D, bool) {
	if s == nil || s.Points == nil {
		return Point3D{}, false
	}
	p, ok := s.Points[id]
	return p, ok
}

// Has reports whether every listed landmark is present.
func (s *Snapshot) Has(ids ...ID) bool {
	for _, id := range ids {
		if _, ok := s.Point(id); !ok {
			return false
		}
	}
	return true
}

// Size returns the frame dimensions the coordinates are relative to.
func (s *Snapshot) Size() (int, int) {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = DefaultFrameWidth
	}
	if h <= 0 {
		h = DefaultFrameHeight
	}
	return w, h
}

// Pixel returns a landmark in image pixel space.
func (s *Snapshot) Pixel(id ID) (r2.Vec, bool) {
	p, ok := s.Point(id)
	if !ok {
		return r2.Vec{}, false
	}
	w, h := s.Size()
	return r2.Vec{X: p.X * float64(w), Y: p.Y * float64(h)}, true
}

// Distance returns the Euclidean distance between two 2D points.
func Distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// AngleDeg returns the direction of the vector from pivot to ref in degrees,
// in the range (-180, 180].
func AngleDeg(pivot, ref Point3D) float64 {
	angle := math.Atan2(ref.Y-pivot.Y, ref.X-pivot.X) * 180 / math.Pi
	if angle <= -180 {
		angle += 360
	}
	return angle
}

// JointAngle returns the angle at vertex b formed by a-b-c, in degrees within [0, 180].
func JointAngle(a, b, c Point3D) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180 / math.Pi)
	if angle > 180 {
		angle = 360 - angle
	}
	return angle
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize returns a copy of a hand snapshot translated so the wrist is at the
// origin and scaled so the wrist to middle-finger MCP distance is 1.0.
// Snapshots of other taxonomies, or hands missing either anchor, are copied unchanged.
func (s *Snapshot) Normalize() *Snapshot {
	if s == nil {
		return nil
	}

	normalized := *s
	normalized.Points = make(map[ID]Point3D, len(s.Points))
	for id, p := range s.Points {
		normalized.Points[id] = p
	}

	if s.Taxonomy != TaxonomyHand || !s.Has(Wrist, MiddleMCP) {
		return &normalized
	}

	wrist := s.Points[Wrist]
	for id, p := range normalized.Points {
		normalized.Points[id] = Point3D{X: p.X - wrist.X, Y: p.Y - wrist.Y, Z: p.Z - wrist.Z}
	}

	scale := distance3D(Point3D{}, normalized.Points[MiddleMCP])
	if scale < 1e-10 {
		return &normalized
	}

	for id, p := range normalized.Points {
		normalized.Points[id] = Point3D{X: p.X / scale, Y: p.Y / scale, Z: p.Z / scale}
	}

	return &normalized
}

// FingerTips lists the four non-thumb fingertips in order.
var FingerTips = []ID{IndexTip, MiddleTip, RingTip, PinkyTip}

// HandConnections lists the bone segments of the hand skeleton.
var HandConnections = [][2]ID{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

// PoseConnections lists the upper-body segments drawn for pose subjects.
var PoseConnections = [][2]ID{
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip}, {LeftHip, RightHip},
}
