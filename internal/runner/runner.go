// Package runner drives the whole batch: one isolated browser session per
// account, strictly sequential, with failures contained to the account that
// hit them.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bryan-qiu/bl-auto/internal/accounts"
	"github.com/bryan-qiu/bl-auto/internal/config"
	"github.com/bryan-qiu/bl-auto/internal/history"
	"github.com/bryan-qiu/bl-auto/internal/portal"
	"github.com/bryan-qiu/bl-auto/internal/timepicker"
)

// ErrAllFailed is returned when every account in a non-empty batch failed.
// Partial failures are reported through logs and history only.
var ErrAllFailed = errors.New("all accounts failed")

// Outcome classifies one account's result.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// Result is the immutable record of one account's session.
type Result struct {
	Username     string
	Outcome      Outcome
	Reason       string
	ArtifactPath string
}

// session is the per-account browser surface the runner drives. It exists
// so tests can substitute a fake for the real portal.Session.
type session interface {
	Login(ac accounts.Account) error
	OpenReservation(url string) error
	ApplyWindow(date time.Time, win timepicker.Window) error
	AcceptWaiver() error
	Submit() error
	Capture(path string) error
	Close()
}

type sessionFactory func(ctx context.Context) (session, error)

// Runner iterates accounts and collects results.
type Runner struct {
	cfg        config.RunConfig
	prof       *portal.Profile
	log        zerolog.Logger
	store      *history.Store // nil disables history
	newSession sessionFactory
}

// New builds a Runner backed by real browser sessions. store may be nil.
func New(cfg config.RunConfig, prof *portal.Profile, logger zerolog.Logger, store *history.Store) *Runner {
	r := &Runner{
		cfg:   cfg,
		prof:  prof,
		log:   logger,
		store: store,
	}
	r.newSession = func(ctx context.Context) (session, error) {
		return portal.NewSession(ctx, prof, portal.Options{
			Headless:   cfg.Headless,
			ChromePath: cfg.ChromePath,
			Logger:     logger,
		})
	}
	return r
}

// Run processes every account in order and returns all results. A single
// account's failure never stops the batch; ErrAllFailed is returned only
// when the batch was non-empty and nothing succeeded.
func (r *Runner) Run(ctx context.Context, accts []accounts.Account) ([]Result, error) {
	runID := uuid.NewString()
	r.log.Info().
		Str("run_id", runID).
		Int("accounts", len(accts)).
		Str("reserve_date", r.cfg.DateParam()).
		Int("start_hour", r.cfg.StartHour).
		Bool("manual", r.cfg.ManualRun).
		Msg("starting run")

	if r.store != nil {
		run := history.Run{
			ID:          runID,
			StartedAt:   time.Now(),
			Manual:      r.cfg.ManualRun,
			ReserveDate: r.cfg.DateParam(),
			StartHour:   r.cfg.StartHour,
		}
		if err := r.store.BeginRun(ctx, run); err != nil {
			r.log.Warn().Err(err).Msg("failed to record run start")
		}
	}

	results := make([]Result, 0, len(accts))
	failed := 0
	for _, ac := range accts {
		res := r.runAccount(ctx, ac)
		results = append(results, res)

		if res.Outcome == OutcomeOK {
			r.log.Info().
				Str("username", res.Username).
				Str("artifact", res.ArtifactPath).
				Msg("account completed")
		} else {
			failed++
			r.log.Error().
				Str("username", res.Username).
				Str("reason", res.Reason).
				Str("artifact", res.ArtifactPath).
				Msg("account failed")
		}

		if r.store != nil {
			rec := history.Result{
				RunID:      runID,
				Username:   res.Username,
				Outcome:    string(res.Outcome),
				Reason:     res.Reason,
				Artifact:   res.ArtifactPath,
				FinishedAt: time.Now(),
			}
			if err := r.store.RecordResult(ctx, rec); err != nil {
				r.log.Warn().Err(err).Str("username", res.Username).Msg("failed to record result")
			}
		}
	}

	r.log.Info().
		Str("run_id", runID).
		Int("succeeded", len(results)-failed).
		Int("failed", failed).
		Msg("run finished")

	if len(accts) > 0 && failed == len(accts) {
		return results, ErrAllFailed
	}
	return results, nil
}

// runAccount runs the full reservation flow for one account. The session is
// always closed, and a screenshot is always attempted, no matter where the
// flow stopped.
func (r *Runner) runAccount(ctx context.Context, ac accounts.Account) Result {
	res := Result{
		Username: ac.Username,
		Outcome:  OutcomeOK,
	}
	artifact := filepath.Join(r.cfg.ArtifactDir, ac.Username+".png")

	sess, err := r.newSession(ctx)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Reason = fmt.Sprintf("open browser: %v", err)
		return res
	}
	defer sess.Close()

	win := timepicker.NewWindow(r.cfg.StartHour)
	steps := []struct {
		name string
		fn   func() error
	}{
		{"login", func() error { return sess.Login(ac) }},
		{"open reservation", func() error {
			return sess.OpenReservation(r.prof.ReservationURL(r.cfg.DateParam()))
		}},
		{"apply time window", func() error {
			return sess.ApplyWindow(r.cfg.ReserveDate, win)
		}},
		{"accept waiver", func() error { return sess.AcceptWaiver() }},
		{"submit", func() error { return sess.Submit() }},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			res.Outcome = OutcomeFailed
			res.Reason = fmt.Sprintf("%s: %v", step.name, err)
			break
		}
	}

	// Capture whatever the page looks like now; the screenshot is the proof
	// artifact for successes and failures alike.
	if err := sess.Capture(artifact); err != nil {
		if res.Outcome == OutcomeOK {
			res.Outcome = OutcomeFailed
			res.Reason = fmt.Sprintf("capture screenshot: %v", err)
		} else {
			r.log.Warn().Err(err).Str("username", ac.Username).Msg("failed to capture failure screenshot")
		}
		return res
	}
	res.ArtifactPath = artifact
	return res
}
