package main

import (
	"context"
	"fmt"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"slices"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/meigma/nus3free/cache/disk"
	"github.com/meigma/nus3free/catalog"
	nus3 "github.com/meigma/nus3free/core"
)

const (
	benchEstimate    = "estimate"
	benchFetch       = "fetch"
	benchFetchCached = "fetch-cached"
)

type benchConfig struct {
	mode        string
	dirs        int
	files       int
	fileSize    int
	pattern     string
	duration    time.Duration
	iterations  int
	concurrency int
	cpuProfile  string
	memProfile  string
	traceFile   string
	tempDir     string
	keepTemp    bool
	seed        int64
}

type benchStats struct {
	ops     int
	bytes   uint64
	elapsed time.Duration
}

func benchCmd() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "measure estimate and build throughput on a generated source tree",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: benchFetch, Usage: "mode: estimate, fetch, fetch-cached"},
			&cli.IntFlag{Name: "dirs", Value: 16, Usage: "number of source directories"},
			&cli.IntFlag{Name: "files", Value: 32, Usage: "files per source directory"},
			&cli.IntFlag{Name: "file-size", Value: 16 << 10, Usage: "file size in bytes"},
			&cli.StringFlag{Name: "pattern", Value: "compressible", Usage: "pattern: compressible or random"},
			&cli.DurationFlag{Name: "duration", Value: 10 * time.Second, Usage: "duration to run (ignored if iterations > 0)"},
			&cli.IntFlag{Name: "iterations", Usage: "number of iterations to run"},
			&cli.IntFlag{Name: "read-concurrency", Value: 4, Usage: "payload reads in parallel per fetch"},
			&cli.StringFlag{Name: "cpuprofile", Usage: "write CPU profile to file"},
			&cli.StringFlag{Name: "memprofile", Usage: "write heap profile to file"},
			&cli.StringFlag{Name: "trace", Usage: "write trace to file"},
			&cli.StringFlag{Name: "temp-dir", Usage: "directory to use for the dataset"},
			&cli.BoolFlag{Name: "keep-temp", Usage: "keep temp dir after run"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed"},
		},
		Action: benchAction,
	}
}

func benchAction(c *cli.Context) error {
	cfg := benchConfig{
		mode:        c.String("mode"),
		dirs:        c.Int("dirs"),
		files:       c.Int("files"),
		fileSize:    c.Int("file-size"),
		pattern:     c.String("pattern"),
		duration:    c.Duration("duration"),
		iterations:  c.Int("iterations"),
		concurrency: c.Int("read-concurrency"),
		cpuProfile:  c.String("cpuprofile"),
		memProfile:  c.String("memprofile"),
		traceFile:   c.String("trace"),
		tempDir:     c.String("temp-dir"),
		keepTemp:    c.Bool("keep-temp"),
		seed:        c.Int64("seed"),
	}
	stats, err := runBench(c.Context, &cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "mode=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
	return nil
}

func runBench(ctx context.Context, cfg *benchConfig) (benchStats, error) {
	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		return benchStats{}, err
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in bench
	}

	if err := makeSources(dir, cfg); err != nil {
		return benchStats{}, err
	}
	cat, err := catalog.Discover(ctx, os.DirFS(dir))
	if err != nil {
		return benchStats{}, err
	}
	dirs := slices.Collect(cat.Directories())

	ropts := []catalog.ResolverOption{catalog.ResolverWithReadConcurrency(max(cfg.concurrency, 1))}
	switch cfg.mode {
	case benchEstimate, benchFetch:
	case benchFetchCached:
		dc, err := disk.New(filepath.Join(dir, "cache"))
		if err != nil {
			return benchStats{}, err
		}
		ropts = append(ropts, catalog.ResolverWithCache(dc))
	default:
		return benchStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}
	r := catalog.NewResolver(cat, ropts...)

	stop, err := startProfiles(cfg)
	if err != nil {
		return benchStats{}, err
	}
	defer stop()

	start := time.Now()
	var stats benchStats
	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return stats.ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	for shouldContinue() {
		d := dirs[stats.ops%len(dirs)]
		switch cfg.mode {
		case benchEstimate:
			stats.bytes += nus3.EstimateSize(d.Manifest.Sizes())
		default:
			data, err := r.Fetch(ctx, d.Key)
			if err != nil {
				return benchStats{}, err
			}
			stats.bytes += uint64(len(data))
		}
		stats.ops++
	}
	stats.elapsed = time.Since(start)

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			return benchStats{}, err
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return benchStats{}, err
		}
	}
	return stats, nil
}

func startProfiles(cfg *benchConfig) (func(), error) {
	var stops []func()
	stop := func() {
		for _, fn := range slices.Backward(stops) {
			fn()
		}
	}

	if cfg.cpuProfile != "" {
		cpuFile, err := os.Create(cfg.cpuProfile)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			_ = cpuFile.Close()
			return nil, err
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		})
	}

	if cfg.traceFile != "" {
		traceFile, err := os.Create(cfg.traceFile)
		if err != nil {
			stop()
			return nil, err
		}
		if err := trace.Start(traceFile); err != nil {
			_ = traceFile.Close()
			stop()
			return nil, err
		}
		stops = append(stops, func() {
			trace.Stop()
			_ = traceFile.Close()
		})
	}
	return stop, nil
}

func setupTempDir(cfg *benchConfig) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for bench temp dirs
	}
	dir, err := os.MkdirTemp("", "nus3free-bench-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

// makeSources writes cfg.dirs source directories of cfg.files files each.
func makeSources(dir string, cfg *benchConfig) error {
	rng := rand.New(rand.NewSource(cfg.seed)) //nolint:gosec // intentional use for reproducible benchmarks
	for d := range max(cfg.dirs, 1) {
		src := filepath.Join(dir, fmt.Sprintf("se_bench%02d%s", d, catalog.SourceSuffix))
		if err := os.MkdirAll(src, 0o755); err != nil { //nolint:gosec // 0o755 is intentional for bench
			return err
		}
		for i := range cfg.files {
			content := make([]byte, cfg.fileSize)
			switch cfg.pattern {
			case "random":
				if _, err := rng.Read(content); err != nil {
					return err
				}
			default:
				fillByte := byte('a' + (i % 26))
				for j := range content {
					content[j] = fillByte
				}
				if len(content) > 0 {
					content[0] = byte(i)
				}
			}

			name := filepath.Join(src, fmt.Sprintf("track%04d.idsp", i))
			if err := os.WriteFile(name, content, 0o644); err != nil { //nolint:gosec // 0o644 is intentional for bench files
				return err
			}
		}
	}
	return nil
}
