package provider

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/MacroScale/macroscale-game-capture/provider/internal/gstpipe"
)

// GSTConfig tunes the GStreamer backend.
type GSTConfig struct {
	// Display is the X display name ("" = default from the environment).
	Display string
}

// GST is a Provider backed by a GStreamer ximagesrc pipeline. Damage
// tracking makes the source emit a frame only when screen content changes,
// so blocking grabs wait on the sample channel instead of polling.
//
// The pipeline delivers RGB; Setup rejects other formats.
type GST struct {
	mu sync.Mutex

	cfg  GSTConfig
	open bool

	geom       Geometry
	withCursor bool
	buf        []byte

	elements *gstpipe.Elements
	samples  chan gstpipe.Sample
	stopped  chan struct{}
	seq      uint64

	lastErr string
}

// NewGST creates a GStreamer display-capture provider.
func NewGST(cfg GSTConfig) *GST {
	return &GST{cfg: cfg}
}

func (p *GST) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return p.fail("display already open")
	}
	if err := checkGStreamerAvailable(); err != nil {
		return p.fail("GStreamer not available: %v", err)
	}
	p.open = true
	return nil
}

func (p *GST) Configure(geom Geometry, withCursor bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return p.fail("display not open")
	}
	if geom.Empty() {
		return p.fail("invalid geometry %s", geom)
	}
	p.geom = geom
	p.withCursor = withCursor
	return nil
}

func (p *GST) Setup(format BufferFormat) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.geom.Empty() {
		return nil, p.fail("capture session not configured")
	}
	if format != FormatRGB {
		return nil, p.fail("unsupported buffer format %s (pipeline delivers rgb)", format)
	}

	elements, err := gstpipe.Create(gstpipe.Config{
		Display:     p.cfg.Display,
		Width:       p.geom.Width,
		Height:      p.geom.Height,
		ShowPointer: p.withCursor,
		UseDamage:   true,
	})
	if err != nil {
		return nil, p.fail("failed to create pipeline: %v", err)
	}

	p.samples = make(chan gstpipe.Sample, 2)
	p.stopped = make(chan struct{})
	p.seq = 0

	callbackCtx := &gstpipe.CallbackContext{
		SampleChan:   p.samples,
		FrameCounter: &p.seq,
	}
	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return gstpipe.OnNewSample(sink, callbackCtx)
		},
	})

	if err := gstpipe.Start(elements); err != nil {
		_ = gstpipe.Destroy(elements)
		return nil, p.fail("failed to start pipeline: %v", err)
	}
	p.elements = elements
	p.buf = make([]byte, p.geom.Width*p.geom.Height*FormatRGB.BytesPerPixel())

	slog.Info("provider: gst capture pipeline playing",
		"geometry", p.geom.String(),
		"show_pointer", p.withCursor,
	)
	return p.buf, nil
}

func (p *GST) Grab(mode GrabMode) (FrameInfo, error) {
	p.mu.Lock()
	if p.elements == nil {
		err := p.fail("capture session not set up")
		p.mu.Unlock()
		return FrameInfo{}, err
	}
	samples := p.samples
	stopped := p.stopped
	p.mu.Unlock()

	var sample gstpipe.Sample
	if mode == GrabNoWait {
		select {
		case sample = <-samples:
		default:
			return FrameInfo{}, ErrNoNewFrame
		}
	} else {
		select {
		case sample = <-samples:
		case <-stopped:
			p.mu.Lock()
			defer p.mu.Unlock()
			return FrameInfo{}, p.fail("capture session torn down during grab")
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buf == nil {
		return FrameInfo{}, p.fail("capture session torn down during grab")
	}
	if len(sample.Data) != len(p.buf) {
		return FrameInfo{}, p.fail("pipeline delivered %d bytes, want %d", len(sample.Data), len(p.buf))
	}
	copy(p.buf, sample.Data)

	return FrameInfo{FrameID: sample.Seq, Width: p.geom.Width, Height: p.geom.Height}, nil
}

func (p *GST) Teardown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.elements == nil {
		return p.fail("capture session not set up")
	}
	close(p.stopped)
	if err := gstpipe.Destroy(p.elements); err != nil {
		slog.Error("provider: failed to destroy pipeline", "error", err)
	}
	p.elements = nil
	p.samples = nil
	p.buf = nil
	p.geom = Geometry{}
	return nil
}

func (p *GST) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return p.fail("display not open")
	}
	p.open = false
	return nil
}

func (p *GST) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// fail records and returns the provider's last error. Callers hold p.mu.
func (p *GST) fail(format string, args ...interface{}) error {
	p.lastErr = fmt.Sprintf(format, args...)
	return fmt.Errorf("provider: %s", p.lastErr)
}

// checkGStreamerAvailable verifies GStreamer is working at Open time.
func checkGStreamerAvailable() error {
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}
