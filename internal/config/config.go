// Package config builds the immutable run configuration from the process
// environment. No other component reads the environment; everything receives
// a RunConfig by value.
package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// DateLayout is the strict reservation date format: MM/DD/YYYY.
const DateLayout = "01/02/2006"

// DefaultStartHour is substituted in lenient mode when START_HOUR is unset.
const DefaultStartHour = 11

// Env mirrors the raw environment. START_HOUR and RESERVE_DATE stay strings
// here so "unset" and "zero" remain distinguishable until Resolve runs.
type Env struct {
	ManualRun   bool   `env:"MANUAL_RUN"`
	Accounts    string `env:"BL_ACCOUNTS"`
	StartHour   string `env:"START_HOUR"`
	ReserveDate string `env:"RESERVE_DATE"`
	Strict      bool   `env:"STRICT_VALIDATION,default=true"`
	Headless    bool   `env:"HEADLESS,default=true"`
	ArtifactDir string `env:"ARTIFACT_DIR,default=."`
	HistoryDB   string `env:"HISTORY_DB"`
	ChromePath  string `env:"CHROME_PATH"`
	Profile     string `env:"PORTAL_PROFILE"`
}

// RunConfig is the validated, immutable configuration for one run.
type RunConfig struct {
	ManualRun   bool
	ReserveDate time.Time
	StartHour   int
	Strict      bool
	Headless    bool
	ArtifactDir string
	HistoryDB   string
	ChromePath  string
	Profile     string

	// RawAccounts is handed to the accounts package untouched.
	RawAccounts string
}

// LoadEnv reads the raw environment. Callers may adjust it (flag overrides)
// before handing it to Resolve.
func LoadEnv(ctx context.Context) (Env, error) {
	var env Env
	if err := envconfig.Process(ctx, &env); err != nil {
		return Env{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// Resolve validates Env into a RunConfig. In strict mode a missing
// RESERVE_DATE or START_HOUR is fatal; in lenient mode the date defaults to
// now's calendar date and the hour to DefaultStartHour. A present value is
// validated the same way in both modes.
func Resolve(env Env, now time.Time) (RunConfig, error) {
	cfg := RunConfig{
		ManualRun:   env.ManualRun,
		Strict:      env.Strict,
		Headless:    env.Headless,
		ArtifactDir: env.ArtifactDir,
		HistoryDB:   env.HistoryDB,
		ChromePath:  env.ChromePath,
		Profile:     env.Profile,
		RawAccounts: env.Accounts,
	}

	switch {
	case env.ReserveDate != "":
		date, err := time.Parse(DateLayout, env.ReserveDate)
		if err != nil {
			return RunConfig{}, fmt.Errorf("invalid RESERVE_DATE %q, expected MM/DD/YYYY: %w", env.ReserveDate, err)
		}
		cfg.ReserveDate = date
	case env.Strict:
		return RunConfig{}, fmt.Errorf("RESERVE_DATE was not provided")
	default:
		cfg.ReserveDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	switch {
	case env.StartHour != "":
		hour, err := strconv.Atoi(env.StartHour)
		if err != nil {
			return RunConfig{}, fmt.Errorf("invalid START_HOUR %q: %w", env.StartHour, err)
		}
		if hour < 0 || hour > 23 {
			return RunConfig{}, fmt.Errorf("START_HOUR %d out of range 0-23", hour)
		}
		cfg.StartHour = hour
	case env.Strict:
		return RunConfig{}, fmt.Errorf("START_HOUR was not provided")
	default:
		cfg.StartHour = DefaultStartHour
	}

	return cfg, nil
}

// DateParam renders the reservation date the way the portal's query string
// expects it: MM/DD/YYYY.
func (c RunConfig) DateParam() string {
	return c.ReserveDate.Format(DateLayout)
}
