package provider

import (
	"testing"
)

func newReadySim(t *testing.T, cfg SimConfig, geom Geometry, format BufferFormat) (*Sim, []byte) {
	t.Helper()

	s := NewSim(cfg)
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Configure(geom, false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	buf, err := s.Setup(format)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return s, buf
}

func TestSimGrabAdvancesFrames(t *testing.T) {
	geom := Geometry{Width: 16, Height: 8}
	s, buf := newReadySim(t, SimConfig{}, geom, FormatRGB)

	if len(buf) != geom.Width*geom.Height*3 {
		t.Fatalf("buffer size %d, want %d", len(buf), geom.Width*geom.Height*3)
	}

	info1, err := s.Grab(GrabBlocking)
	if err != nil {
		t.Fatalf("Grab: %v", err)
	}
	first := buf[0]

	info2, err := s.Grab(GrabBlocking)
	if err != nil {
		t.Fatalf("Grab: %v", err)
	}
	if info2.FrameID != info1.FrameID+1 {
		t.Errorf("frame ids %d, %d: not consecutive", info1.FrameID, info2.FrameID)
	}
	// The pattern shifts with the frame id, so the same buffer position
	// must change between grabs.
	if buf[0] == first {
		t.Error("buffer content unchanged across grabs")
	}
}

func TestSimFailGrabAt(t *testing.T) {
	s, _ := newReadySim(t, SimConfig{FailGrabAt: 2}, Geometry{Width: 4, Height: 4}, FormatRGB)

	if _, err := s.Grab(GrabBlocking); err != nil {
		t.Fatalf("first Grab: %v", err)
	}
	if _, err := s.Grab(GrabBlocking); err == nil {
		t.Fatal("second Grab succeeded, want injected failure")
	}
	if s.LastError() == "" {
		t.Error("LastError empty after failed grab")
	}
}

func TestSimLifecycleGuards(t *testing.T) {
	s := NewSim(SimConfig{})

	if err := s.Configure(Geometry{Width: 4, Height: 4}, false); err == nil {
		t.Error("Configure before Open succeeded")
	}
	if _, err := s.Setup(FormatRGB); err == nil {
		t.Error("Setup before Configure succeeded")
	}
	if _, err := s.Grab(GrabBlocking); err == nil {
		t.Error("Grab before Setup succeeded")
	}

	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Open(); err == nil {
		t.Error("second Open succeeded")
	}

	if _, err := s.Setup(FormatRGB); err == nil {
		t.Error("Setup before Configure succeeded after Open")
	}
}

func TestSimTeardownResetsSetup(t *testing.T) {
	s, _ := newReadySim(t, SimConfig{}, Geometry{Width: 4, Height: 4}, FormatRGBA)

	if err := s.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if _, err := s.Grab(GrabBlocking); err == nil {
		t.Error("Grab after Teardown succeeded")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Open(); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}

func TestParseBufferFormat(t *testing.T) {
	cases := []struct {
		in   string
		want BufferFormat
		ok   bool
	}{
		{"rgb", FormatRGB, true},
		{"rgba", FormatRGBA, true},
		{"bgra", FormatBGRA, true},
		{"yuv420", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseBufferFormat(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseBufferFormat(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseBufferFormat(%q) succeeded, want error", tc.in)
		}
	}
}

func TestGeometry(t *testing.T) {
	if s := (Geometry{Width: 1920, Height: 1080}).String(); s != "1920x1080" {
		t.Errorf("String() = %q", s)
	}
	if !(Geometry{}).Empty() {
		t.Error("zero geometry not empty")
	}
	if (Geometry{Width: 1, Height: 1}).Empty() {
		t.Error("1x1 geometry reported empty")
	}
}
