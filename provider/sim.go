package provider

import (
	"fmt"
	"sync"
	"time"
)

// SimConfig tunes the simulated backend.
type SimConfig struct {
	// FrameDelay is the simulated wait for a new frame under GrabBlocking.
	// Zero means frames are always immediately available.
	FrameDelay time.Duration
	// FailGrabAt makes the grab of the given frame id fail (0 = never).
	// The session stays in a releasable state after the failure.
	FailGrabAt uint64
}

// Sim is a display-less Provider producing deterministic synthetic frames.
// Frame ids are monotonic and the pixel pattern shifts every frame, so a
// consumer can verify that consecutive grabs yield distinct content.
type Sim struct {
	mu sync.Mutex

	cfg        SimConfig
	open       bool
	configured bool
	ready      bool

	geom       Geometry
	withCursor bool
	format     BufferFormat
	buf        []byte

	frameID uint64
	lastErr string
}

// NewSim creates a simulated provider.
func NewSim(cfg SimConfig) *Sim {
	return &Sim{cfg: cfg}
}

func (s *Sim) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return s.fail("simulated display already open")
	}
	s.open = true
	return nil
}

func (s *Sim) Configure(geom Geometry, withCursor bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return s.fail("simulated display not open")
	}
	if geom.Empty() {
		return s.fail("invalid geometry %s", geom)
	}
	s.geom = geom
	s.withCursor = withCursor
	s.configured = true
	return nil
}

func (s *Sim) Setup(format BufferFormat) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configured {
		return nil, s.fail("capture session not configured")
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, s.fail("unsupported buffer format %d", int(format))
	}
	s.format = format
	s.buf = make([]byte, s.geom.Width*s.geom.Height*bpp)
	s.ready = true
	return s.buf, nil
}

func (s *Sim) Grab(mode GrabMode) (FrameInfo, error) {
	s.mu.Lock()
	if !s.ready {
		err := s.fail("capture session not set up")
		s.mu.Unlock()
		return FrameInfo{}, err
	}
	delay := s.cfg.FrameDelay
	s.mu.Unlock()

	// Simulated wait for the next display refresh.
	if mode == GrabBlocking && delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return FrameInfo{}, s.fail("capture session torn down during grab")
	}

	id := s.frameID + 1
	if s.cfg.FailGrabAt != 0 && id == s.cfg.FailGrabAt {
		return FrameInfo{}, s.fail("simulated grab failure at frame %d", id)
	}
	s.frameID = id
	s.renderPattern(id)

	return FrameInfo{FrameID: id, Width: s.geom.Width, Height: s.geom.Height}, nil
}

func (s *Sim) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return s.fail("capture session not set up")
	}
	s.ready = false
	s.configured = false
	s.buf = nil
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return s.fail("simulated display not open")
	}
	s.open = false
	s.frameID = 0
	return nil
}

func (s *Sim) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// renderPattern fills the buffer with a gradient shifted by the frame id.
// Callers hold s.mu.
func (s *Sim) renderPattern(id uint64) {
	bpp := s.format.BytesPerPixel()
	for y := 0; y < s.geom.Height; y++ {
		row := y * s.geom.Width * bpp
		for x := 0; x < s.geom.Width; x++ {
			px := row + x*bpp
			s.buf[px] = byte(x + int(id))
			s.buf[px+1] = byte(y + int(id))
			s.buf[px+2] = byte(id)
			if bpp == 4 {
				s.buf[px+3] = 0xff
			}
		}
	}
}

// fail records and returns the provider's last error. Callers hold s.mu.
func (s *Sim) fail(format string, args ...interface{}) error {
	s.lastErr = fmt.Sprintf(format, args...)
	return fmt.Errorf("provider: %s", s.lastErr)
}
