// Package gstpipe builds and drives the GStreamer display-capture pipeline
// used by the GST provider.
package gstpipe

import (
	"fmt"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Config describes the capture pipeline to build.
type Config struct {
	// Display is the X display name ("" = default from the environment).
	Display string
	// Width and Height are the output frame dimensions; ximagesrc output
	// is scaled to this size.
	Width  int
	Height int
	// ShowPointer composites the cursor into captured frames.
	ShowPointer bool
	// UseDamage makes ximagesrc emit frames only when screen content
	// changes, which gives blocking grabs their "genuinely new frame"
	// guarantee.
	UseDamage bool
}

// Elements holds references to the pipeline elements needed for lifecycle
// control and cleanup.
type Elements struct {
	Pipeline *gst.Pipeline
	Src      *gst.Element
	AppSink  *app.Sink
}

// Create builds the capture pipeline:
//
//	ximagesrc → videoconvert → videoscale → capsfilter(RGB,WxH) → appsink
//
// The pipeline is configured but NOT started (state remains NULL).
// Caller must call Start to move it to PLAYING.
func Create(cfg Config) (*Elements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	src, err := gst.NewElement("ximagesrc")
	if err != nil {
		return nil, fmt.Errorf("failed to create ximagesrc: %w", err)
	}
	if cfg.Display != "" {
		src.SetProperty("display-name", cfg.Display)
	}
	src.SetProperty("show-pointer", cfg.ShowPointer)
	src.SetProperty("use-damage", cfg.UseDamage)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsStr := fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d", cfg.Width, cfg.Height)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)    // No sync with clock (real-time)
	appsink.SetProperty("max-buffers", 1) // Keep only latest frame
	appsink.SetProperty("drop", true)     // Drop old frames

	pipeline.AddMany(src, converter, scaler, capsfilter, appsink.Element)

	if err := gst.ElementLinkMany(src, converter, scaler, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("failed to link pipeline elements: %w", err)
	}

	return &Elements{
		Pipeline: pipeline,
		Src:      src,
		AppSink:  appsink,
	}, nil
}

// Start moves the pipeline to PLAYING and waits briefly for the state
// change to land so the first Grab does not race pipeline startup.
func Start(elements *Elements) error {
	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	bus := elements.Pipeline.GetPipelineBus()
	msg := bus.TimedPop(5 * time.Second)
	if msg != nil && msg.Type() == gst.MessageError {
		gerr := msg.ParseError()
		return fmt.Errorf("pipeline error on startup: %s", gerr.Error())
	}

	return nil
}

// Destroy sets the pipeline to NULL and releases all resources.
// Safe to call even if the pipeline is already destroyed.
func Destroy(elements *Elements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}
	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}
