package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"giftetl/internal/config"
	"giftetl/internal/metrics"
	"giftetl/internal/metrics/datadog"
	"giftetl/internal/metrics/prompush"
	"giftetl/internal/pipeline"

	// register all sink backends with the storage factory.
	// config picks which to use but the binary supports all of them.
	_ "giftetl/internal/storage/all"
)

// Exit codes. A validation-gate rejection is its own code so callers can
// tell "the data was bad" apart from "something broke".
const (
	exitOK          = 0
	exitError       = 1
	exitBadConfig   = 2
	exitDataInvalid = 3
)

// main loads the pipeline config, lints it, picks a metrics backend, and
// executes one run.
func main() {
	var (
		cfgPath        string
		metricsBackend string
		pushgatewayURL string
		datadogAddr    string
		validateOnly   bool
		printConfig    bool
	)

	flag.StringVar(&cfgPath, "config", "configs/sample.json", "pipeline config path (.json, .yaml, or .toml)")
	flag.StringVar(&metricsBackend, "metrics-backend", "none", "metrics backend (pushgateway, datadog, none)")
	flag.StringVar(&pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&datadogAddr, "datadog-addr", "", "DogStatsD address, e.g. 127.0.0.1:8125 (overrides env DD_AGENT_ADDR)")
	flag.BoolVar(&validateOnly, "validate", false, "lint the configuration and exit")
	flag.BoolVar(&printConfig, "print-config", false, "print the linted configuration as canonical JSON and exit")
	verbose := flag.Bool("v", false, "enable debug logs")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	p, err := config.Load(cfgPath)
	if err != nil {
		log.Error("loading config", "path", cfgPath, "err", err)
		os.Exit(exitBadConfig)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Error("configuration is invalid", "path", cfgPath)
		os.Exit(exitBadConfig)
	}
	if printConfig {
		out, err := config.Marshal(p)
		if err != nil {
			log.Error("rendering config", "err", err)
			os.Exit(exitError)
		}
		fmt.Println(string(out))
		os.Exit(exitOK)
	}
	if validateOnly {
		log.Info("configuration is valid", "path", cfgPath)
		os.Exit(exitOK)
	}

	rec := buildRecorder(metricsBackend, pushgatewayURL, datadogAddr, p.Job, log)
	defer func() {
		if err := rec.Flush(); err != nil {
			log.Warn("flushing metrics", "err", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	sum, err := pipeline.New(p, log, rec).Run(ctx)
	if err != nil {
		if errors.Is(err, pipeline.ErrValidationFailed) {
			for name, out := range sum.Validations {
				for _, v := range out.Violations {
					fmt.Fprintf(os.Stderr, "%s: %s\n", name, v)
				}
			}
			log.Error("run aborted, master table rejected", "job", p.Job)
			rec.Flush()
			os.Exit(exitDataInvalid)
		}
		log.Error("run failed", "job", p.Job, "state", string(sum.State), "err", err)
		rec.Flush()
		os.Exit(exitError)
	}

	log.Info("run finished",
		"job", p.Job,
		"rows_merged", sum.RowsMerged,
		"sinks", len(sum.RowsLoaded),
		"elapsed", time.Since(start).Truncate(time.Millisecond))
}

// buildRecorder resolves the metrics backend from flag then env. Any init
// failure degrades to the nop recorder; metrics never block a run.
func buildRecorder(backend, gwURL, ddAddr, job string, log *slog.Logger) *metrics.Recorder {
	if job == "" {
		job = "giftetl"
	}
	switch backend {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Warn("metrics init failed, disabling", "backend", backend, "err", err)
			return metrics.Nop()
		}
		log.Info("metrics enabled", "backend", backend, "url", gwURL, "job", job)
		return metrics.NewRecorder(job, b)

	case "datadog":
		if ddAddr == "" {
			ddAddr = os.Getenv("DD_AGENT_ADDR")
		}
		if ddAddr == "" {
			ddAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: ddAddr, Namespace: "giftetl"})
		if err != nil {
			log.Warn("metrics init failed, disabling", "backend", backend, "err", err)
			return metrics.Nop()
		}
		log.Info("metrics enabled", "backend", backend, "addr", ddAddr, "job", job)
		return metrics.NewRecorder(job, b)

	case "", "none":
		return metrics.Nop()

	default:
		log.Warn("unknown metrics backend, disabling", "backend", backend)
		return metrics.Nop()
	}
}
