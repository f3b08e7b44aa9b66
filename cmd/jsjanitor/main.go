package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/wdm0006/jsjanitor/internal/config"
	"github.com/wdm0006/jsjanitor/internal/logging"
	"github.com/wdm0006/jsjanitor/internal/telemetry"
	j "github.com/wdm0006/jsjanitor/pkg/janitor"
	"github.com/wdm0006/jsjanitor/pkg/profile"
)

var (
	version = "0.1.0-dev"
)

// usageError exits with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

type options struct {
	configPath  string
	chunkSize   int
	validate    bool
	metricsAddr string
}

func main() {
	logging.InitFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jsjanitor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opt options
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.StringVar(&opt.configPath, "config", "", "Path to job config (YAML, TOML or JSON)")
	fs.IntVar(&opt.chunkSize, "chunk-size", 0, "Enable streaming with chunk size (rows per chunk). 0 uses the config value.")
	fs.BoolVar(&opt.validate, "validate", false, "Compile every script step and exit")
	fs.StringVar(&opt.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.listen)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, "jsjanitor", version)
		return 0
	}

	err := execute(ctx, opt, stdout, stderr)
	var uerr usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &uerr):
		fmt.Fprintln(stderr, err)
		return 2
	default:
		fmt.Fprintln(stderr, err)
		return 1
	}
}

func execute(ctx context.Context, opt options, stdout, stderr io.Writer) error {
	if opt.configPath == "" {
		return usageError{"no config provided; nothing to do. try --config <file> or --version"}
	}
	runID := uuid.NewString()
	log := logging.L().With("job", runID)

	cfg, err := config.Load(opt.configPath)
	if err != nil {
		return err
	}
	steps, err := cfg.DecodeSteps()
	if err != nil {
		if !errors.Is(err, config.ErrUnknownStep) {
			return err
		}
		log.Warn("skipping unsupported steps", "err", err)
	}

	if opt.validate {
		return validateSteps(steps, stdout)
	}

	metrics, err := telemetry.New()
	if err != nil {
		return err
	}
	addr := opt.metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Listen
	}
	if addr != "" {
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(serveCtx, addr); err != nil {
				log.Error("metrics server", "addr", addr, "err", err)
			}
		}()
		log.Info("serving metrics", "addr", addr)
	}

	chunk := cfg.ChunkSize
	if opt.chunkSize > 0 {
		chunk = opt.chunkSize
	}
	src, err := openSource(cfg.Input, chunk)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = src.Close() }()

	p, err := buildPipeline(steps, src.Schema(), stageEnv{logger: log, out: stderr, observer: metrics})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	sink, err := openSink(cfg.Output)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	observers := []j.ChunkObserver{metrics.ObserveChunk}
	var prof *profile.Collector
	if cfg.Profile.Enabled {
		prof = profile.NewCollector(cfg.Profile.TopK)
		observers = append(observers, prof.ConsumeFrame)
	}

	var input j.ChunkSource = src
	if chunk <= 0 {
		input = &batchSource{r: src}
	}
	log.Info("run started", "input", cfg.Input.Path, "output", cfg.Output.Path, "steps", len(p.Steps()), "chunk_size", chunk)
	if err := j.RunStream(ctx, p, input, sink, observers...); err != nil {
		return err
	}
	if w, ok := src.(interface{ Warnings() string }); ok && w.Warnings() != "" {
		log.Warn("input repaired", "warnings", w.Warnings())
	}

	if prof != nil {
		if err := writeProfile(prof, cfg.Profile, stderr); err != nil {
			return fmt.Errorf("profile: %w", err)
		}
	}
	if cfg.Metrics.Pushgateway != "" {
		if err := metrics.Push(cfg.Metrics.Pushgateway, cfg.Metrics.Job, runID); err != nil {
			log.Warn("metrics push failed", "gateway", cfg.Metrics.Pushgateway, "err", err)
		}
	}
	log.Info("run finished")
	return nil
}

func writeProfile(c *profile.Collector, cfg config.Profile, fallback io.Writer) error {
	if cfg.Path == "" {
		return c.Write(fallback, cfg.Format)
	}
	f, err := os.Create(cfg.Path)
	if err != nil {
		return err
	}
	if err := c.Write(f, cfg.Format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
