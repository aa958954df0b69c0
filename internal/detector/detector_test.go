package detector

import (
	"errors"
	"math"
	"testing"
)

func pointsOf(h HandLandmarks) []Point3D {
	return append([]Point3D(nil), h.Points[:]...)
}

func TestNewKeypointSet(t *testing.T) {
	t.Run("accepts 21 finite points", func(t *testing.T) {
		ks, err := NewKeypointSet(pointsOf(OpenPalmLandmarks()), 640, 480)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ks.Width != 640 || ks.Height != 480 {
			t.Errorf("expected 640x480, got %dx%d", ks.Width, ks.Height)
		}
		if ks.Points[IndexTip] != OpenPalmLandmarks().Points[IndexTip] {
			t.Errorf("index tip not copied: %+v", ks.Points[IndexTip])
		}
	})

	tests := []struct {
		name   string
		points []Point3D
		width  int
		height int
	}{
		{name: "no points", points: nil},
		{name: "too few points", points: make([]Point3D, 20)},
		{name: "too many points", points: make([]Point3D, 22)},
		{name: "negative width", points: make([]Point3D, NumLandmarks), width: -1},
		{
			name: "NaN coordinate",
			points: func() []Point3D {
				p := make([]Point3D, NumLandmarks)
				p[7].Y = math.NaN()
				return p
			}(),
		},
		{
			name: "infinite coordinate",
			points: func() []Point3D {
				p := make([]Point3D, NumLandmarks)
				p[0].X = math.Inf(1)
				return p
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks, err := NewKeypointSet(tt.points, tt.width, tt.height)
			if !errors.Is(err, ErrInvalidKeypoints) {
				t.Errorf("expected ErrInvalidKeypoints, got %v", err)
			}
			if ks != nil {
				t.Errorf("expected nil keypoints, got %+v", ks)
			}
		})
	}
}

func TestPointsFromPairs(t *testing.T) {
	t.Run("converts pairs and triples", func(t *testing.T) {
		points, err := PointsFromPairs([][]float64{{0.1, 0.2}, {0.3, 0.4, -0.5}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []Point3D{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4, Z: -0.5}}
		for i := range want {
			if points[i] != want[i] {
				t.Errorf("point %d = %+v, want %+v", i, points[i], want[i])
			}
		}
	})

	t.Run("rejects single coordinates", func(t *testing.T) {
		_, err := PointsFromPairs([][]float64{{0.1}})
		if !errors.Is(err, ErrInvalidKeypoints) {
			t.Errorf("expected ErrInvalidKeypoints, got %v", err)
		}
	})
}

func TestHandLandmarks_Keypoints(t *testing.T) {
	t.Run("nil hand returns nil", func(t *testing.T) {
		var hand *HandLandmarks
		if hand.Keypoints(640, 480) != nil {
			t.Error("expected nil result for nil input")
		}
	})

	t.Run("carries frame size", func(t *testing.T) {
		hand := FistLandmarks()
		ks := hand.Keypoints(320, 240)
		if ks.Width != 320 || ks.Height != 240 {
			t.Errorf("expected 320x240, got %dx%d", ks.Width, ks.Height)
		}
		if ks.Points != hand.Points {
			t.Error("expected points to be copied unchanged")
		}
	})
}

func TestPrimary(t *testing.T) {
	if Primary(nil, nil) != nil {
		t.Error("expected nil keypoints without hands")
	}

	ks := Primary([]HandLandmarks{FistLandmarks(), OpenPalmLandmarks()}, nil)
	if ks == nil {
		t.Fatal("expected keypoints for the first hand")
	}
	if ks.Points != FistLandmarks().Points {
		t.Error("expected the first detected hand to be used")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands(FistLandmarks(), OpenPalmLandmarks())

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestFixtures(t *testing.T) {
	t.Run("fist curls every finger below its PIP", func(t *testing.T) {
		lm := FistLandmarks()
		for _, f := range []int{1, 2, 3, 4} {
			tip, pip := lm.Points[FingerTips[f]], lm.Points[FingerPIPs[f]]
			if tip.Y < pip.Y {
				t.Errorf("finger %d tip above PIP (tip %f, pip %f)", f, tip.Y, pip.Y)
			}
		}
	})

	t.Run("index up extends only the index finger", func(t *testing.T) {
		lm := IndexUpLandmarks()
		if lm.Points[IndexTip].Y >= lm.Points[IndexPIP].Y {
			t.Error("index tip should be above index PIP")
		}
		if lm.Points[MiddleTip].Y < lm.Points[MiddlePIP].Y {
			t.Error("middle finger should stay curled")
		}
	})

	t.Run("open palm fingers are ordered left to right", func(t *testing.T) {
		lm := OpenPalmLandmarks()
		if lm.Points[PinkyMCP].X >= lm.Points[RingMCP].X {
			t.Error("pinky should be to the left of ring finger")
		}
		if lm.Points[RingMCP].X >= lm.Points[MiddleMCP].X {
			t.Error("ring should be to the left of middle finger")
		}
		if lm.Points[MiddleMCP].X >= lm.Points[IndexMCP].X {
			t.Error("middle should be to the left of index finger")
		}
	})
}
