package scheduler

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rhyrak/localsearch/pkg/model"
)

// EnsembleStats summarises the best costs of independent runs. Feasible
// counts runs that ended without hard violations.
type EnsembleStats struct {
	Runs        int           `json:"runs"`
	Feasible    int           `json:"feasible"`
	BestHard    int           `json:"bestHard"`
	MeanHard    float64       `json:"meanHard"`
	StdHard     float64       `json:"stdHard"`
	BestSoft    int64         `json:"bestSoft"`
	MeanSoft    float64       `json:"meanSoft"`
	StdSoft     float64       `json:"stdSoft"`
	MeanElapsed time.Duration `json:"meanElapsedNs"`
}

type EnsembleResult struct {
	Reports []*Report     `json:"reports"`
	Best    *Report       `json:"best"`
	Stats   EnsembleStats `json:"stats"`
}

// RunEnsemble runs cfg with seeds cfg.Seed, cfg.Seed+1, ... on up to
// parallelism goroutines. Each run owns its schedule; only inst is shared.
// Reports are ordered by seed.
func RunEnsemble(ctx context.Context, inst *model.Instance, cfg Configuration, runs, parallelism int, opts ...Option) (*EnsembleResult, error) {
	if runs <= 0 {
		return nil, &ConfigurationError{Field: "runs", Reason: "must be > 0"}
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	if parallelism > runs {
		parallelism = runs
	}

	controllers := make([]*Controller, runs)
	for i := range controllers {
		runCfg := cfg
		runCfg.Seed = cfg.Seed + int64(i)
		c, err := NewController(inst, runCfg, opts...)
		if err != nil {
			return nil, err
		}
		controllers[i] = c
	}

	reports := make([]*Report, runs)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				reports[i] = controllers[i].Run(ctx, nil)
			}
		}()
	}
	for i := range controllers {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	res := &EnsembleResult{Reports: reports}
	for _, r := range reports {
		if res.Best == nil || r.Cost.Less(res.Best.Cost) {
			res.Best = r
		}
	}
	res.Stats = ensembleStats(reports)
	return res, nil
}

func ensembleStats(reports []*Report) EnsembleStats {
	st := EnsembleStats{Runs: len(reports)}
	if st.Runs == 0 {
		return st
	}
	hard := make([]float64, len(reports))
	soft := make([]float64, len(reports))
	var elapsed time.Duration
	for i, r := range reports {
		hard[i] = float64(r.Cost.Hard)
		soft[i] = float64(r.Cost.Soft)
		elapsed += r.Elapsed
		if r.Cost.Hard == 0 {
			st.Feasible++
		}
		if i == 0 || r.Cost.Hard < st.BestHard {
			st.BestHard = r.Cost.Hard
		}
		if i == 0 || r.Cost.Soft < st.BestSoft {
			st.BestSoft = r.Cost.Soft
		}
	}
	st.MeanHard, st.StdHard = meanStd(hard)
	st.MeanSoft, st.StdSoft = meanStd(soft)
	st.MeanElapsed = elapsed / time.Duration(len(reports))
	return st
}

// meanStd returns the mean and the sample standard deviation.
func meanStd(values []float64) (float64, float64) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	if len(values) >= 2 {
		for _, v := range values {
			d := v - mean
			variance += d * d
		}
		variance /= float64(len(values) - 1)
	}
	return mean, math.Sqrt(variance)
}
