package scheduler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// StrategyKind selects the acceptance strategy of a run.
type StrategyKind string

const (
	HillClimbing       StrategyKind = "HillClimbing"
	SimulatedAnnealing StrategyKind = "SimulatedAnnealing"
	RandomRestart      StrategyKind = "RandomRestart"
)

// FillKind selects how the initial assignment is built.
type FillKind string

const (
	FillRandom FillKind = "random"
	FillGreedy FillKind = "greedy"
)

// ConfigurationError reports an inconsistent search configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

type Configuration struct {
	Strategy      StrategyKind `json:"strategy" validate:"required,oneof=HillClimbing SimulatedAnnealing RandomRestart"`
	MaxIterations int          `json:"maxIterations" validate:"gt=0"`
	// TimeBudgetMs of 0 expires at the first check; negative disables the budget.
	TimeBudgetMs int64 `json:"timeBudgetMs"`
	Seed         int64 `json:"seed"`

	InitialTemperature float64 `json:"initialTemperature" validate:"gt=0"`
	CoolingRate        float64 `json:"coolingRate" validate:"gt=0,lt=1"`
	MinTemperature     float64 `json:"minTemperature" validate:"gt=0,ltfield=InitialTemperature"`
	HardWeight         float64 `json:"hardWeight" validate:"gt=0"`

	AcceptPlateau bool `json:"acceptPlateau"`
	PlateauLimit  int  `json:"plateauLimit" validate:"gte=0"`
	MaxRestarts   int  `json:"maxRestarts" validate:"gte=0"`
	SampleSize    int  `json:"sampleSize" validate:"gte=0"`

	SwapRate       float64 `json:"swapRate" validate:"gte=0,lte=1"`
	ConflictBias   float64 `json:"conflictBias" validate:"gte=0,lte=1"`
	TournamentSize int     `json:"tournamentSize" validate:"gte=1"`

	TargetPenalty int64    `json:"targetPenalty" validate:"gte=0"`
	InitialFill   FillKind `json:"initialFill" validate:"required,oneof=random greedy"`
	ProgressEvery int      `json:"progressEvery" validate:"gte=0"`
	RecordTrace   bool     `json:"recordTrace"`
	VerifyDelta   bool     `json:"verifyDelta"`
}

func NewDefaultConfiguration() *Configuration {
	return &Configuration{
		Strategy:           SimulatedAnnealing,
		MaxIterations:      100000,
		TimeBudgetMs:       30000,
		Seed:               1,
		InitialTemperature: 50.0,
		CoolingRate:        0.9995,
		MinTemperature:     0.01,
		HardWeight:         100.0,
		AcceptPlateau:      false,
		PlateauLimit:       50,
		MaxRestarts:        10,
		SampleSize:         0,
		SwapRate:           0.3,
		ConflictBias:       0.7,
		TournamentSize:     3,
		TargetPenalty:      0,
		InitialFill:        FillRandom,
		ProgressEvery:      1000,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate returns a *ConfigurationError describing the first inconsistent field.
func (c Configuration) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := fmt.Sprintf("failed %q", fe.Tag())
		if fe.Param() != "" {
			reason = fmt.Sprintf("failed %q %s", fe.Tag(), fe.Param())
		}
		return &ConfigurationError{Field: fe.Field(), Reason: fmt.Sprintf("%s (got %v)", reason, fe.Value())}
	}
	return &ConfigurationError{Reason: err.Error()}
}

// TimeBudget returns the wall-clock budget and whether one applies.
func (c Configuration) TimeBudget() (time.Duration, bool) {
	if c.TimeBudgetMs < 0 {
		return 0, false
	}
	return time.Duration(c.TimeBudgetMs) * time.Millisecond, true
}
