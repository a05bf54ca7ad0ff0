package gstpipe

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Sample is one captured frame handed from the GStreamer callback to the
// provider's grab path.
type Sample struct {
	Seq       uint64
	Timestamp time.Time
	Data      []byte
}

// CallbackContext holds state needed by the appsink callback.
type CallbackContext struct {
	SampleChan   chan<- Sample
	FrameCounter *uint64 // Atomic counter for sequence numbers
}

// OnNewSample is called by GStreamer when a new frame is available.
//
// This callback:
//  1. Pulls the sample from the appsink
//  2. Maps the buffer to read pixel data
//  3. Copies data (GStreamer will reuse the buffer)
//  4. Sends the sample to the channel (non-blocking - drops if full)
//
// Returns gst.FlowOK to continue processing.
func OnNewSample(sink *app.Sink, ctx *CallbackContext) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		// A single corrupted frame should not kill the pipeline.
		slog.Warn("gstpipe: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstpipe: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("gstpipe: empty buffer received")
		return gst.FlowOK
	}

	// Copy frame data (GStreamer will reuse the buffer).
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	seq := atomic.AddUint64(ctx.FrameCounter, 1)

	s := Sample{
		Seq:       seq,
		Timestamp: time.Now(),
		Data:      frameData,
	}

	select {
	case ctx.SampleChan <- s:
	default:
		// A blocked consumer means the grab loop is behind; keep only
		// the flow alive and let the appsink drop policy do its work.
		slog.Debug("gstpipe: dropping sample, channel full", "seq", seq)
	}

	return gst.FlowOK
}
