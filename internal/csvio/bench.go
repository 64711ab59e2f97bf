package csvio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/rhyrak/localsearch/internal/scheduler"
)

// BenchRecord is one row of an ensemble benchmark: a strategy run many times
// with consecutive seeds.
type BenchRecord struct {
	Strategy      string  `csv:"strategy"`
	Runs          int     `csv:"runs"`
	Feasible      int     `csv:"feasible"`
	BestHard      int     `csv:"hard_best"`
	MeanHard      float64 `csv:"hard_mean"`
	StdHard       float64 `csv:"hard_std"`
	BestSoft      int64   `csv:"soft_best"`
	MeanSoft      float64 `csv:"soft_mean"`
	StdSoft       float64 `csv:"soft_std"`
	MeanElapsedMs float64 `csv:"time_mean_ms"`
}

func NewBenchRecord(strategy scheduler.StrategyKind, st scheduler.EnsembleStats) *BenchRecord {
	return &BenchRecord{
		Strategy:      string(strategy),
		Runs:          st.Runs,
		Feasible:      st.Feasible,
		BestHard:      st.BestHard,
		MeanHard:      st.MeanHard,
		StdHard:       st.StdHard,
		BestSoft:      st.BestSoft,
		MeanSoft:      st.MeanSoft,
		StdSoft:       st.StdSoft,
		MeanElapsedMs: float64(st.MeanElapsed.Microseconds()) / 1000.0,
	}
}

// ExportBench writes records to path, creating parent directories.
func ExportBench(path string, records []*BenchRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if err := gocsv.MarshalFile(&records, out); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
