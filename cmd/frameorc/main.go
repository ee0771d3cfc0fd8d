// Command frameorc is the reference CLI harness used to exercise the
// orchestrator: it registers a small set of demo modules, runs a fixed
// number of frames at a target frame rate, and reports on completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	_ "go.uber.org/automaxprocs"

	"github.com/lixenwraith/frameorc/config"
	"github.com/lixenwraith/frameorc/core"
	"github.com/lixenwraith/frameorc/demo"
	"github.com/lixenwraith/frameorc/framecontext"
	"github.com/lixenwraith/frameorc/graphics"
	"github.com/lixenwraith/frameorc/observability"
	"github.com/lixenwraith/frameorc/orchestrator"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("frameorc", flag.ContinueOnError)
	frames := fs.Int("frames", 5, "number of frames to simulate")
	fs.IntVar(frames, "f", 5, "number of frames to simulate (shorthand)")
	fps := fs.Int("fps", 60, "target frames per second (0 = uncapped)")
	fs.IntVar(fps, "r", 60, "target frames per second (shorthand)")
	configPath := fs.String("config", "", "path to an OrchestratorConfig TOML file")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Println("frameorc", version)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("config: %v", err)
		return 2
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "fps" || f.Name == "r" {
			cfg.TargetFPS = *fps
		}
	})

	sink := core.NewSink(func(d core.Diagnostic) {
		log.Printf("[%s] %s: %s %v", d.Severity, d.Code, d.Message, d.RelatedModules)
	})

	facade := graphics.NewSimulated(cfg.SafetyDelay)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	obsServer := observability.NewServer(cfg.MetricsAddr, reg)
	obsCtx, obsCancel := context.WithCancel(context.Background())
	core.Go(func() { obsServer.Start(obsCtx) })
	defer obsCancel()

	var orch *orchestrator.Orchestrator
	orch = orchestrator.New(orchestrator.Options{
		Immutable: framecontext.Immutable{
			EngineName:  "frameorc",
			TargetFPS:   cfg.TargetFPS,
			SafetyDelay: cfg.SafetyDelay,
		},
		Facade:         facade,
		Sink:           sink,
		TargetFPS:      cfg.TargetFPS,
		ThreadPoolSize: cfg.ThreadPoolSize,
		AsyncPerTick:   cfg.AsyncPerTickCap,
		Metrics:        metrics,
		OnFrameEnd: func(frameIndex uint64, elapsedMs float64) {
			metrics.FrameDuration.Observe(elapsedMs / 1000)
			metrics.FrameIndex.Set(float64(frameIndex))
			stats := orch.Stats()
			metrics.ReclaimPending.Set(float64(stats.Ints.Get("reclaim_pending").Load()))
			metrics.AsyncInFlight.Set(float64(stats.Ints.Get("async_in_flight").Load()))
			log.Printf("frame %d completed in %.2fms", frameIndex, elapsedMs)
		},
	})

	if err := orch.RegisterModule(demo.NewCounter("counter", 100)); err != nil {
		log.Printf("register: %v", err)
		return 1
	}
	if err := orch.RegisterModule(demo.NewSnapshotReader("reader", 100, "counter_view")); err != nil {
		log.Printf("register: %v", err)
		return 1
	}
	if err := orch.RegisterModule(demo.NewSurfacePresenter("presenter", 100, "main")); err != nil {
		log.Printf("register: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := make(chan struct{})
	core.Go(func() { orch.StartAsync(ctx, started) })
	<-started

	orch.Run(ctx, *frames)

	select {
	case err := <-orch.Completed():
		orch.Stop(ctx)
		if err != nil {
			log.Printf("orchestrator error: %v", err)
			return 1
		}
		log.Printf("completed %d frames, %d diagnostics", *frames, sink.Len())
		return 0
	case <-ctx.Done():
		orch.Stop(ctx)
		return 1
	}
}
