package provider

import (
	"fmt"
	"hash/fnv"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/vova616/screenshot"
)

// x11PollInterval is the sleep between content checks while a blocking
// grab waits for the screen to change.
const x11PollInterval = 15 * time.Millisecond

// X11 is a Provider backed by the screenshot library. The X protocol has
// no push notification for framebuffer updates at this level, so blocking
// grabs poll the capture rectangle and hash the pixel content until it
// differs from the previous grab.
type X11 struct {
	mu sync.Mutex

	open  bool
	ready bool

	geom       Geometry
	withCursor bool
	format     BufferFormat
	buf        []byte

	frameID uint64
	lastSum uint64
	lastErr string
}

// NewX11 creates an X11 polling provider.
func NewX11() *X11 {
	return &X11{}
}

func (p *X11) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return p.fail("display already open")
	}
	// Probe the display connection; also verifies capture is possible now.
	if _, err := screenshot.ScreenRect(); err != nil {
		return p.fail("unable to open display: %v", err)
	}
	p.open = true
	return nil
}

func (p *X11) Configure(geom Geometry, withCursor bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return p.fail("display not open")
	}
	if geom.Empty() {
		return p.fail("invalid geometry %s", geom)
	}
	if withCursor {
		// XGetImage does not composite the cursor into the capture.
		slog.Warn("provider: x11 backend cannot overlay the cursor, capturing without it")
	}
	p.geom = geom
	p.withCursor = false
	return nil
}

func (p *X11) Setup(format BufferFormat) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.geom.Empty() {
		return nil, p.fail("capture session not configured")
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, p.fail("unsupported buffer format %d", int(format))
	}
	p.format = format
	p.buf = make([]byte, p.geom.Width*p.geom.Height*bpp)
	p.ready = true
	p.lastSum = 0
	return p.buf, nil
}

func (p *X11) Grab(mode GrabMode) (FrameInfo, error) {
	p.mu.Lock()
	if !p.ready {
		err := p.fail("capture session not set up")
		p.mu.Unlock()
		return FrameInfo{}, err
	}
	rect := image.Rect(0, 0, p.geom.Width, p.geom.Height)
	last := p.lastSum
	p.mu.Unlock()

	for {
		img, err := screenshot.CaptureRect(rect)
		if err != nil {
			p.mu.Lock()
			defer p.mu.Unlock()
			return FrameInfo{}, p.fail("screen capture failed: %v", err)
		}

		sum := pixSum(img.Pix)
		if sum != last || last == 0 {
			p.mu.Lock()
			defer p.mu.Unlock()
			if !p.ready {
				return FrameInfo{}, p.fail("capture session torn down during grab")
			}
			p.convertInto(img)
			p.lastSum = sum
			p.frameID++
			return FrameInfo{FrameID: p.frameID, Width: p.geom.Width, Height: p.geom.Height}, nil
		}

		if mode == GrabNoWait {
			return FrameInfo{}, ErrNoNewFrame
		}
		time.Sleep(x11PollInterval)
	}
}

func (p *X11) Teardown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return p.fail("capture session not set up")
	}
	p.ready = false
	p.buf = nil
	p.geom = Geometry{}
	return nil
}

func (p *X11) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return p.fail("display not open")
	}
	p.open = false
	p.frameID = 0
	p.lastSum = 0
	return nil
}

func (p *X11) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// convertInto copies the captured RGBA image into the session buffer in the
// configured format. Callers hold p.mu.
func (p *X11) convertInto(img *image.RGBA) {
	n := p.geom.Width * p.geom.Height
	switch p.format {
	case FormatRGBA:
		copy(p.buf, img.Pix[:n*4])
	case FormatRGB:
		for i := 0; i < n; i++ {
			p.buf[i*3+0] = img.Pix[i*4+0]
			p.buf[i*3+1] = img.Pix[i*4+1]
			p.buf[i*3+2] = img.Pix[i*4+2]
		}
	case FormatBGRA:
		for i := 0; i < n; i++ {
			p.buf[i*4+0] = img.Pix[i*4+2]
			p.buf[i*4+1] = img.Pix[i*4+1]
			p.buf[i*4+2] = img.Pix[i*4+0]
			p.buf[i*4+3] = img.Pix[i*4+3]
		}
	}
}

// fail records and returns the provider's last error. Callers hold p.mu.
func (p *X11) fail(format string, args ...interface{}) error {
	p.lastErr = fmt.Sprintf(format, args...)
	return fmt.Errorf("provider: %s", p.lastErr)
}

// pixSum hashes pixel content to detect screen changes between polls.
func pixSum(pix []byte) uint64 {
	h := fnv.New64a()
	h.Write(pix)
	return h.Sum64()
}
