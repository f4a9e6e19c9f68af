package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryan-qiu/bl-auto/internal/accounts"
	"github.com/bryan-qiu/bl-auto/internal/config"
	"github.com/bryan-qiu/bl-auto/internal/gate"
	"github.com/bryan-qiu/bl-auto/internal/history"
	"github.com/bryan-qiu/bl-auto/internal/portal"
	"github.com/bryan-qiu/bl-auto/internal/runner"
)

var (
	flagManual   bool
	flagLenient  bool
	flagHeadless bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reservation batch for all configured accounts",
	RunE:  runBatch,
}

func init() {
	runCmd.Flags().BoolVar(&flagManual, "manual", false, "bypass the weekly time gate (same as MANUAL_RUN=true)")
	runCmd.Flags().BoolVar(&flagLenient, "lenient", false, "substitute defaults for missing RESERVE_DATE/START_HOUR instead of failing")
	runCmd.Flags().BoolVar(&flagHeadless, "headless", true, "run the browser headless")
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		// Fatal configuration error, before any browser work.
		return fmt.Errorf("configuration: %w", err)
	}

	g, err := gate.New()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	now := time.Now()
	if !g.Open(now, cfg.ManualRun) {
		// Not an error: scheduled invocation outside the window.
		logger.Info().
			Str("eastern_time", now.In(g.Location()).Format(time.RFC1123)).
			Msg("outside the Sunday 00:00 Eastern window, skipping scheduled run")
		return nil
	}
	logger.Info().
		Str("reserve_date", cfg.DateParam()).
		Int("start_hour", cfg.StartHour).
		Bool("manual", cfg.ManualRun).
		Msg("gate open, proceeding")

	accts, err := accounts.Parse(cfg.RawAccounts)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	prof, err := portal.LoadProfile(cfg.Profile)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	var store *history.Store
	if cfg.HistoryDB != "" {
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
		defer store.Close()
	}

	r := runner.New(cfg, prof, logger, store)

	// Partial failures still exit 0; they are reported through logs,
	// screenshots and history. Only a batch where nothing succeeded exits
	// non-zero, so external monitoring notices a fully broken run.
	_, err = r.Run(cmd.Context(), accts)
	return err
}

// loadConfig reads the environment, applies flag overrides, and validates.
// Flags win over env only when set on the command line.
func loadConfig(cmd *cobra.Command) (config.RunConfig, error) {
	env, err := config.LoadEnv(cmd.Context())
	if err != nil {
		return config.RunConfig{}, err
	}

	if cmd.Flags().Changed("manual") {
		env.ManualRun = flagManual
	}
	if cmd.Flags().Changed("lenient") {
		env.Strict = !flagLenient
	}
	if cmd.Flags().Changed("headless") {
		env.Headless = flagHeadless
	}

	return config.Resolve(env, time.Now())
}
