package gesture

import (
	"strings"
	"testing"

	"github.com/ayusman/handrehab/internal/detector"
)

func TestArmRaise_Update(t *testing.T) {
	d := NewArmRaise(0)

	if r := d.Result(); r.Label != "No Pose Detected" {
		t.Errorf("initial Label = %q", r.Label)
	}

	down := detector.ArmPose(false)
	up := detector.ArmPose(true)

	d.Update(&down)
	if r := d.Result(); r.Label != "Lowered" {
		t.Errorf("Label = %q, want Lowered", r.Label)
	}

	d.Update(&up)
	d.Update(&up)
	r := d.Result()
	if !strings.HasPrefix(r.Label, "Side Raise | Angle: ") {
		t.Errorf("Label = %q, want side raise", r.Label)
	}
	if d.Count() != 1 {
		t.Errorf("Count() = %d, want 1", d.Count())
	}
	if d.Angle() <= 90 {
		t.Errorf("Angle() = %f, want > 90 for a raised arm", d.Angle())
	}

	d.Update(&down)
	d.Update(&up)
	if d.Count() != 2 {
		t.Errorf("Count() = %d, want 2", d.Count())
	}
}

func TestArmRaise_FrontRaise(t *testing.T) {
	d := NewArmRaise(0)
	s := detector.ArmPose(true)
	shoulder := s.Points[detector.LeftShoulder]
	s.Points[detector.LeftWrist] = detector.Point3D{X: shoulder.X, Y: 0.2, Z: -0.4}

	d.Update(&s)
	if r := d.Result(); !strings.HasPrefix(r.Label, "Front Raise") {
		t.Errorf("Label = %q, want front raise", r.Label)
	}
}

func TestArmRaise_LostDoesNotRecount(t *testing.T) {
	d := NewArmRaise(0)
	up := detector.ArmPose(true)

	d.Update(&up)
	d.Lost()
	d.Update(&up)

	if d.Count() != 1 {
		t.Errorf("Count() = %d, want 1", d.Count())
	}

	d.Reset()
	if d.Count() != 0 {
		t.Errorf("Count() after Reset = %d, want 0", d.Count())
	}
}

func TestNew(t *testing.T) {
	cfg := DefaultConfig()
	for _, kind := range Kinds {
		d, err := New(kind, cfg)
		if err != nil {
			t.Fatalf("New(%q) error = %v", kind, err)
		}
		if d.Kind() != kind {
			t.Errorf("New(%q).Kind() = %q", kind, d.Kind())
		}
		if len(d.Required()) == 0 {
			t.Errorf("New(%q).Required() is empty", kind)
		}
	}

	if _, err := New("wave", cfg); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("finger-tap")
	if err != nil || k != KindFingerTap {
		t.Errorf("ParseKind(finger-tap) = %q, %v", k, err)
	}
	if _, err := ParseKind("nope"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
