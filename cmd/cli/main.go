package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/rhyrak/localsearch/internal/config"
	"github.com/rhyrak/localsearch/internal/csvio"
	"github.com/rhyrak/localsearch/internal/export"
	"github.com/rhyrak/localsearch/internal/logger"
	"github.com/rhyrak/localsearch/internal/scheduler"
	"github.com/rhyrak/localsearch/pkg/model"
)

func main() {
	var (
		configFile = flag.String("config", "", "path to a yaml, json or env config file")
		events     = flag.String("events", "", "events CSV (overrides data.events)")
		resources  = flag.String("resources", "", "resources CSV (overrides data.resources)")
		conflicts  = flag.String("conflicts", "", "conflicts CSV (overrides data.conflicts)")
		rules      = flag.String("rules", "", "rules CSV (overrides data.rules)")
		delimiter  = flag.String("delimiter", "", "CSV separator, e.g. ';' or tab (overrides data.delimiter)")
		out        = flag.String("out", "", "export the best schedule; .csv, .ics, .xlsx or .pdf by extension (overrides data.output)")
		strategy   = flag.String("strategy", "", "HillClimbing, SimulatedAnnealing or RandomRestart")
		seed       = flag.Int64("seed", 0, "random seed (0 keeps the configured seed)")
		iterations = flag.Int("iterations", 0, "iteration limit (0 keeps the configured limit)")
		verbose    = flag.Bool("verbose", false, "print the whole schedule and the validation report")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	override(&cfg.Data.Events, *events)
	override(&cfg.Data.Resources, *resources)
	override(&cfg.Data.Conflicts, *conflicts)
	override(&cfg.Data.Rules, *rules)
	override(&cfg.Data.Output, *out)
	if *delimiter != "" {
		d, err := config.ParseDelimiter(*delimiter)
		if err != nil {
			fmt.Fprintln(os.Stderr, "delimiter:", err)
			os.Exit(2)
		}
		cfg.Data.Delimiter = d
	}
	if *strategy != "" {
		cfg.Search.Strategy = scheduler.StrategyKind(*strategy)
	}
	if *seed != 0 {
		cfg.Search.Seed = *seed
	}
	if *iterations > 0 {
		cfg.Search.MaxIterations = *iterations
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

	controller, err := scheduler.NewController(inst, cfg.Search, scheduler.WithLogger(log))
	if err != nil {
		log.Fatal("invalid search configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	search := controller.Configuration()
	log.Info("searching",
		zap.Int("events", len(inst.Events)),
		zap.Int("resources", len(inst.Resources)),
		zap.String("strategy", string(search.Strategy)),
		zap.Int64("seed", search.Seed),
	)
	report := controller.Run(ctx, func(s scheduler.Snapshot) {
		log.Debug("progress",
			zap.Int("iteration", s.Iteration),
			zap.String("best", s.Best.String()),
			zap.String("current", s.Current.String()),
			zap.Float64("temperature", s.Temperature),
		)
	})

	if *verbose {
		csvio.PrintSchedule(os.Stdout, inst, report.Placements)
		fmt.Println()
		printResources(report)
		fmt.Println()
		fmt.Print(report.Validation)
		fmt.Println()
	} else if report.Valid {
		fmt.Println("Passed all tests")
	} else {
		fmt.Println("Invalid schedule:")
		fmt.Print(report.Validation)
	}

	fmt.Printf("Strategy: %s\n", report.Strategy)
	fmt.Printf("Reason: %s\n", report.Reason)
	fmt.Printf("Cost: %s\n", report.Cost)
	fmt.Printf("Iteration: %d\n", report.Iterations)
	if report.Restarts > 0 {
		fmt.Printf("Restarts: %d\n", report.Restarts)
	}
	fmt.Printf("Timer: %f ms\n", float64(report.Elapsed.Microseconds())/1000.0)

	if cfg.Data.Output != "" {
		opts := export.Options{
			Delimiter: cfg.Data.Delimiter,
			Calendar:  export.Calendar(cfg.Calendar),
			Title:     fmt.Sprintf("%s schedule", report.Strategy),
		}
		if err := export.WriteFile(cfg.Data.Output, inst, report.Placements, opts); err != nil {
			log.Fatal("failed to export schedule", zap.Error(err))
		}
		fmt.Println("Exported output to: " + cfg.Data.Output)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func printResources(report *scheduler.Report) {
	ids := make([]string, 0, len(report.ByResource))
	for id := range report.ByResource {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%s:", id)
		for _, e := range report.ByResource[model.ResourceID(id)] {
			fmt.Printf(" %s", e)
		}
		fmt.Println()
	}
}
