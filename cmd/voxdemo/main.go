// Command voxdemo streams a perlin-noise world around a viewer walking
// along +x, drops a rigid body in front of it and writes a top-down map of
// the loaded chunks when it stops. No window is opened; meshes go to a
// renderer that only counts them.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gekko3d/voxworld"
	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/gekko3d/voxworld/engine/store"
	"github.com/gekko3d/voxworld/engine/terraingen"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to $"+voxworld.ConfigEnv+")")
	duration := flag.Duration("duration", 10*time.Second, "how long to run; 0 runs until interrupted")
	speed := flag.Float64("speed", 12, "viewer speed along +x in voxels per second")
	out := flag.String("out", "chunkmap.png", "where to write the chunk map")
	metricsAddr := flag.String("metrics", "", "serve prometheus metrics on this address, e.g. :9090")
	flag.Parse()

	if err := run(*configPath, *duration, *speed, *out, *metricsAddr); err != nil {
		log.Fatalf("voxdemo: %v", err)
	}
}

func run(configPath string, duration time.Duration, speed float64, out, metricsAddr string) error {
	cfg, err := voxworld.LoadConfig(configPath)
	if err != nil {
		return err
	}

	reg, palette, err := newRegistry()
	if err != nil {
		return err
	}
	topts := cfg.TerrainOptions()
	topts.Palette = palette
	gen := terraingen.New(topts)

	promReg := prometheus.NewRegistry()
	wopts := cfg.WorldOptions()
	wopts.Registry = reg
	wopts.Generator = gen
	wopts.Metrics = chunks.NewMetrics(promReg)
	renderer := &countingRenderer{}
	wopts.Renderer = renderer

	var st *store.Store
	if so, ok := cfg.StoreOptions(); ok {
		if st, err = store.Open(so); err != nil {
			return err
		}
		defer st.Close()
	}

	app := voxworld.NewAppBuilder().
		WithTickRate(cfg.App.TickRate).
		WithMaxTicksPerFrame(cfg.App.MaxTicksPerFrame).
		UseModule(
			voxworld.LoggingModule{Prefix: cfg.Log.Prefix, Debug: cfg.Log.Debug},
			voxworld.TimeModule{},
			voxworld.WorldModule{Options: wopts, Store: st},
			voxworld.PhysicsModule{Options: cfg.PhysicsOptions()},
			voxworld.LifecycleModule{},
			demoModule{Gen: gen, Speed: speed, MapPath: out, Renderer: renderer},
		).
		Build()
	logger := app.Logger()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		logger.Infof("serving metrics on %s", metricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	logger.Infof("streaming world %q at %.0f ticks/s", wopts.WorldName, cfg.App.TickRate)
	err = app.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(unwrapJoined(err)...)
	}
	return err
}

// unwrapJoined drops context errors from an errors.Join result.
func unwrapJoined(err error) []error {
	var rest []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !errors.Is(e, context.Canceled) && !errors.Is(e, context.DeadlineExceeded) {
				rest = append(rest, e)
			}
		}
	}
	return rest
}
