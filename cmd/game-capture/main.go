package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MacroScale/macroscale-game-capture/capture"
	"github.com/MacroScale/macroscale-game-capture/eventloop"
	"github.com/MacroScale/macroscale-game-capture/internal/config"
	"github.com/MacroScale/macroscale-game-capture/internal/emitter"
	"github.com/MacroScale/macroscale-game-capture/provider"
	"github.com/MacroScale/macroscale-game-capture/sink"
)

// Version information
const version = "v0.1.0"

// fail reports a stage failure and exits non-zero. Every lifecycle stage
// names itself so a failed run can be diagnosed from a single log line.
func fail(stage string, err error) {
	slog.Error("capture run failed", "stage", stage, "error", err)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	frames := flag.Uint("frames", 0, "Number of frames to grab (overrides config)")
	providerName := flag.String("provider", "", "Capture provider: sim, x11, gst (overrides config)")
	outputDir := flag.String("output", "", "Directory to save captured frames (overrides config)")
	outputFormat := flag.String("format", "", "Output format: png, jpeg (overrides config)")
	withCursor := flag.Bool("cursor", false, "Include mouse cursor in captured frames")
	display := flag.String("display", "", "X display to capture, e.g. :0 (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("game-capture %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration, flags override file values
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fail("config", err)
		}
	} else {
		cfg = config.Default()
	}
	if *frames > 0 {
		cfg.Frames = *frames
	}
	if *providerName != "" {
		cfg.Provider = *providerName
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *outputFormat != "" {
		cfg.Output.Format = *outputFormat
	}
	if *withCursor {
		cfg.Capture.WithCursor = true
	}
	if *display != "" {
		cfg.Capture.Display = *display
	}
	if err := config.Validate(cfg); err != nil {
		fail("config", err)
	}

	// Resolve capture geometry: zero dimensions mean full display
	geom := provider.Geometry{Width: cfg.Capture.Width, Height: cfg.Capture.Height}
	if geom.Empty() && cfg.Provider != "sim" {
		geom, err = provider.DisplayGeometry(cfg.Capture.Display)
		if err != nil {
			fail("display", err)
		}
	}
	if geom.Empty() {
		geom = provider.Geometry{Width: 1280, Height: 720}
	}

	format, err := provider.ParseBufferFormat(cfg.Capture.BufferFormat)
	if err != nil {
		fail("config", err)
	}

	// Print banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║              Game Capture - MacroScale                    ║\n")
	fmt.Printf("║                   Version %s                          ║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Provider:      %s\n", cfg.Provider)
	fmt.Printf("  Geometry:      %s\n", geom)
	fmt.Printf("  Format:        %s\n", format)
	fmt.Printf("  Frames:        %d\n", cfg.Frames)
	fmt.Printf("  Cursor:        %v\n", cfg.Capture.WithCursor)
	fmt.Printf("  Output Dir:    %s (%s)\n", cfg.Output.Dir, cfg.Output.Format)
	if cfg.MQTT.Broker != "" {
		fmt.Printf("  MQTT Broker:   %s\n", cfg.MQTT.Broker)
	}
	fmt.Printf("\n")

	prov, err := newProvider(cfg)
	if err != nil {
		fail("provider", err)
	}

	fileSink, err := sink.NewFileSink(cfg.Output.Dir, cfg.Output.Format, cfg.Output.JPEGQuality)
	if err != nil {
		fail("sink", err)
	}

	// Optional MQTT telemetry
	var mq *emitter.MQTTEmitter
	if cfg.MQTT.Broker != "" {
		mq = emitter.NewMQTTEmitter(cfg)
		if err := mq.Connect(); err != nil {
			// Telemetry is best-effort, a run never fails on broker absence.
			slog.Warn("mqtt unavailable, continuing without telemetry", "error", err)
			mq = nil
		} else {
			defer mq.Disconnect()
		}
	}

	// Session lifecycle: the main goroutine opens and configures, then
	// hands the capture context to the worker and takes it back for
	// teardown once the worker is done.
	sess := capture.New(prov)

	if err := sess.Open(); err != nil {
		fail("open", err)
	}

	b, err := sess.Bind()
	if err != nil {
		fail("bind", err)
	}
	if err := b.Configure(geom, cfg.Capture.WithCursor); err != nil {
		fail("configure", err)
	}
	if err := b.Setup(format); err != nil {
		fail("setup", err)
	}
	if err := b.Release(); err != nil {
		fail("release", err)
	}

	events := eventloop.Instance()
	if err := events.Start(func(e eventloop.Event) {
		slog.Debug("frame ready",
			"frame_id", e.FrameID,
			"geometry", fmt.Sprintf("%dx%d", e.Width, e.Height),
			"trace_id", e.TraceID,
		)
	}); err != nil {
		fail("eventloop", err)
	}

	fmt.Printf("Starting frame capture (%d frames)...\n", cfg.Frames)
	fmt.Printf("═══════════════════════════════════════════════════════════\n\n")

	startTime := time.Now()
	worker := capture.NewWorker(sess, capture.WorkerConfig{
		Iterations: cfg.Frames,
		Sink:       fileSink,
		Events:     events,
	})

	done := make(chan error, 1)
	go func() {
		done <- worker.Run()
	}()
	workerErr := <-done

	// Teardown runs even after a worker failure so the provider session
	// is always closed out.
	b, err = sess.Bind()
	if err != nil {
		fail("rebind", err)
	}
	if err := b.Teardown(); err != nil {
		fail("teardown", err)
	}
	if err := b.Close(); err != nil {
		fail("close", err)
	}
	if err := b.Release(); err != nil {
		fail("release", err)
	}

	events.End()

	// Final stats
	wstats := worker.Stats()
	saved, failed := fileSink.Stats()
	uptime := time.Since(startTime)

	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("                     Final Statistics                      \n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("  Total Uptime:       %s\n", uptime.Round(time.Millisecond))
	fmt.Printf("  Frames Captured:    %d frames\n", wstats.Iterations)
	fmt.Printf("  Frames Saved:       %d frames\n", saved)
	fmt.Printf("  Frames Failed:      %d frames\n", failed)
	fmt.Printf("  Last Frame ID:      %d\n", wstats.LastFrameID)
	if wstats.Iterations > 0 {
		fmt.Printf("  Avg Grab Latency:   %s\n",
			(wstats.GrabTotal / time.Duration(wstats.Iterations)).Round(time.Microsecond))
		fmt.Printf("  Avg Sink Latency:   %s\n",
			(wstats.SinkTotal / time.Duration(wstats.Iterations)).Round(time.Microsecond))
	}
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("\n")

	if mq != nil {
		report := emitter.Report{
			InstanceID:   cfg.InstanceID,
			Provider:     cfg.Provider,
			Geometry:     geom.String(),
			Frames:       wstats.Iterations,
			FramesFailed: failed,
			LastFrameID:  wstats.LastFrameID,
			GrabTotalMs:  wstats.GrabTotal.Milliseconds(),
			SinkTotalMs:  wstats.SinkTotal.Milliseconds(),
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
		}
		if workerErr != nil {
			report.Error = workerErr.Error()
		}
		if err := mq.PublishReport(report); err != nil {
			slog.Warn("failed to publish run report", "error", err)
		}
	}

	if workerErr != nil {
		fail("worker", workerErr)
	}

	slog.Info("capture run completed successfully",
		"frames", wstats.Iterations,
		"uptime", uptime.Round(time.Millisecond).String(),
	)
}

// newProvider builds the configured capture provider.
func newProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider {
	case "sim":
		return provider.NewSim(provider.SimConfig{FrameDelay: 16 * time.Millisecond}), nil
	case "x11":
		return provider.NewX11(), nil
	case "gst":
		return provider.NewGST(provider.GSTConfig{Display: cfg.Capture.Display}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
