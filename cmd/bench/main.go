package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rhyrak/localsearch/internal/config"
	"github.com/rhyrak/localsearch/internal/csvio"
	"github.com/rhyrak/localsearch/internal/logger"
	"github.com/rhyrak/localsearch/internal/scheduler"
)

func main() {
	var (
		configFile  = flag.String("config", "", "path to a yaml, json or env config file")
		out         = flag.String("out", "artifacts/bench.csv", "path of the results CSV")
		strategies  = flag.String("strategies", "HillClimbing,SimulatedAnnealing,RandomRestart", "comma separated strategies to compare")
		runs        = flag.Int("runs", 0, "runs per strategy with consecutive seeds (0 keeps ensemble.runs)")
		parallelism = flag.Int("parallelism", 0, "concurrent runs (0 keeps ensemble.parallelism)")
		perRunTO    = flag.Duration("per_run_timeout", 0, "time budget of one run; 0 keeps search.time_budget_ms")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if *runs > 0 {
		cfg.Ensemble.Runs = *runs
	}
	if *parallelism > 0 {
		cfg.Ensemble.Parallelism = *parallelism
	}
	if *perRunTO > 0 {
		cfg.Search.TimeBudgetMs = perRunTO.Milliseconds()
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	inst, err := csvio.LoadInstance(csvio.Files{
		Events:    cfg.Data.Events,
		Resources: cfg.Data.Resources,
		Conflicts: cfg.Data.Conflicts,
		Rules:     cfg.Data.Rules,
	}, cfg.Data.Delimiter, cfg.Weights)
	if err != nil {
		log.Fatal("failed to load instance", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var records []*csvio.BenchRecord
	for _, name := range splitList(*strategies) {
		search := cfg.Search
		search.Strategy = scheduler.StrategyKind(name)

		fmt.Printf("Running %s: %d events %d resources (runs=%d, parallelism=%d)...\n",
			name, len(inst.Events), len(inst.Resources), cfg.Ensemble.Runs, cfg.Ensemble.Parallelism)

		start := time.Now()
		res, err := scheduler.RunEnsemble(ctx, inst, search, cfg.Ensemble.Runs, cfg.Ensemble.Parallelism)
		if err != nil {
			log.Fatal("ensemble failed", zap.String("strategy", name), zap.Error(err))
		}
		st := res.Stats
		fmt.Printf("  feasible=%d/%d hard: best=%d mean=%.2f std=%.2f | soft: best=%d mean=%.2f std=%.2f | time: mean=%.2fms total=%s\n",
			st.Feasible, st.Runs,
			st.BestHard, st.MeanHard, st.StdHard,
			st.BestSoft, st.MeanSoft, st.StdSoft,
			float64(st.MeanElapsed.Microseconds())/1000.0, time.Since(start).Round(time.Millisecond),
		)
		records = append(records, csvio.NewBenchRecord(search.Strategy, st))

		if ctx.Err() != nil {
			break
		}
	}

	if err := csvio.ExportBench(*out, records); err != nil {
		log.Fatal("failed to write results", zap.Error(err))
	}
	fmt.Println("Saved:", *out)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
