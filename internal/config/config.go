package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rhyrak/localsearch/internal/scheduler"
	"github.com/rhyrak/localsearch/pkg/model"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env      string
	Log      LogConfig
	Server   ServerConfig
	Database DatabaseConfig
	Data     DataConfig
	Weights  model.Weights
	Search   scheduler.Configuration
	Ensemble EnsembleConfig
	Calendar CalendarConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	// MaxRuns bounds how many finished runs the server keeps in memory.
	MaxRuns int
}

// DatabaseConfig enables persistence of finished runs when DSN is set.
type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	Migrate      bool
}

// DataConfig points at the CSV inputs and the optional auto-save output.
type DataConfig struct {
	Events    string
	Resources string
	Conflicts string
	Rules     string
	Output    string
	Delimiter rune
}

// CalendarConfig lays periods out as PeriodsPerDay slots of PeriodLength a day
// from Start. Only exports that need wall-clock times use it.
type CalendarConfig struct {
	Start         time.Time
	PeriodLength  time.Duration
	PeriodsPerDay int
}

type EnsembleConfig struct {
	Runs        int
	Parallelism int
}

// Load reads defaults, then the optional config file at path (yaml, json or
// env by extension), then .env and process environment. Environment keys are
// the dotted keys upper-cased with '.' replaced by '_', e.g. SEARCH_STRATEGY.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	cfg.Env = v.GetString("env")
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Server = ServerConfig{
		Port:            v.GetInt("server.port"),
		ShutdownTimeout: parseDuration(v.GetString("server.shutdown_timeout"), 5*time.Second),
		MaxRuns:         v.GetInt("server.max_runs"),
	}
	cfg.Database = DatabaseConfig{
		DSN:          v.GetString("database.dsn"),
		MaxOpenConns: v.GetInt("database.max_open_conns"),
		Migrate:      v.GetBool("database.migrate"),
	}

	delim, err := ParseDelimiter(v.GetString("data.delimiter"))
	if err != nil {
		return nil, err
	}
	cfg.Data = DataConfig{
		Events:    v.GetString("data.events"),
		Resources: v.GetString("data.resources"),
		Conflicts: v.GetString("data.conflicts"),
		Rules:     v.GetString("data.rules"),
		Output:    v.GetString("data.output"),
		Delimiter: delim,
	}
	cfg.Weights = model.Weights{
		Preference:  v.GetInt64("weights.preference"),
		LoadBalance: v.GetInt64("weights.load_balance"),
	}
	cfg.Search = scheduler.Configuration{
		Strategy:           scheduler.StrategyKind(v.GetString("search.strategy")),
		MaxIterations:      v.GetInt("search.max_iterations"),
		TimeBudgetMs:       v.GetInt64("search.time_budget_ms"),
		Seed:               v.GetInt64("search.seed"),
		InitialTemperature: v.GetFloat64("search.initial_temperature"),
		CoolingRate:        v.GetFloat64("search.cooling_rate"),
		MinTemperature:     v.GetFloat64("search.min_temperature"),
		HardWeight:         v.GetFloat64("search.hard_weight"),
		AcceptPlateau:      v.GetBool("search.accept_plateau"),
		PlateauLimit:       v.GetInt("search.plateau_limit"),
		MaxRestarts:        v.GetInt("search.max_restarts"),
		SampleSize:         v.GetInt("search.sample_size"),
		SwapRate:           v.GetFloat64("search.swap_rate"),
		ConflictBias:       v.GetFloat64("search.conflict_bias"),
		TournamentSize:     v.GetInt("search.tournament_size"),
		TargetPenalty:      v.GetInt64("search.target_penalty"),
		InitialFill:        scheduler.FillKind(v.GetString("search.initial_fill")),
		ProgressEvery:      v.GetInt("search.progress_every"),
		RecordTrace:        v.GetBool("search.record_trace"),
		VerifyDelta:        v.GetBool("search.verify_delta"),
	}
	cfg.Ensemble = EnsembleConfig{
		Runs:        v.GetInt("ensemble.runs"),
		Parallelism: v.GetInt("ensemble.parallelism"),
	}
	start, err := time.Parse(time.RFC3339, v.GetString("calendar.start"))
	if err != nil {
		return nil, fmt.Errorf("invalid calendar.start: %w", err)
	}
	cfg.Calendar = CalendarConfig{
		Start:         start,
		PeriodLength:  parseDuration(v.GetString("calendar.period_length"), time.Hour),
		PeriodsPerDay: v.GetInt("calendar.periods_per_day"),
	}

	if err := cfg.Search.Validate(); err != nil {
		return nil, err
	}
	if cfg.Weights.Preference < 0 || cfg.Weights.LoadBalance < 0 {
		return nil, fmt.Errorf("invalid weights: must be >= 0")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := scheduler.NewDefaultConfiguration()

	v.SetDefault("env", EnvDevelopment)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.max_runs", 100)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.migrate", true)

	v.SetDefault("data.events", "./data/events.csv")
	v.SetDefault("data.resources", "./data/resources.csv")
	v.SetDefault("data.conflicts", "")
	v.SetDefault("data.rules", "")
	v.SetDefault("data.output", "")
	v.SetDefault("data.delimiter", ",")

	v.SetDefault("weights.preference", 1)
	v.SetDefault("weights.load_balance", 1)

	v.SetDefault("search.strategy", string(d.Strategy))
	v.SetDefault("search.max_iterations", d.MaxIterations)
	v.SetDefault("search.time_budget_ms", d.TimeBudgetMs)
	v.SetDefault("search.seed", d.Seed)
	v.SetDefault("search.initial_temperature", d.InitialTemperature)
	v.SetDefault("search.cooling_rate", d.CoolingRate)
	v.SetDefault("search.min_temperature", d.MinTemperature)
	v.SetDefault("search.hard_weight", d.HardWeight)
	v.SetDefault("search.accept_plateau", d.AcceptPlateau)
	v.SetDefault("search.plateau_limit", d.PlateauLimit)
	v.SetDefault("search.max_restarts", d.MaxRestarts)
	v.SetDefault("search.sample_size", d.SampleSize)
	v.SetDefault("search.swap_rate", d.SwapRate)
	v.SetDefault("search.conflict_bias", d.ConflictBias)
	v.SetDefault("search.tournament_size", d.TournamentSize)
	v.SetDefault("search.target_penalty", d.TargetPenalty)
	v.SetDefault("search.initial_fill", string(d.InitialFill))
	v.SetDefault("search.progress_every", d.ProgressEvery)
	v.SetDefault("search.record_trace", d.RecordTrace)
	v.SetDefault("search.verify_delta", d.VerifyDelta)

	v.SetDefault("calendar.start", "2024-09-02T09:00:00Z")
	v.SetDefault("calendar.period_length", "1h")
	v.SetDefault("calendar.periods_per_day", 9)

	v.SetDefault("ensemble.runs", 10)
	v.SetDefault("ensemble.parallelism", 4)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

// ParseDelimiter accepts a single character, "tab" or `\t`. Empty means comma.
func ParseDelimiter(raw string) (rune, error) {
	switch raw {
	case "", ",":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(raw) != 1 {
		return 0, fmt.Errorf("invalid data.delimiter %q: want a single character", raw)
	}
	r, _ := utf8.DecodeRuneInString(raw)
	return r, nil
}
