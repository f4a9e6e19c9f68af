package portal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/bryan-qiu/bl-auto/internal/accounts"
	"github.com/bryan-qiu/bl-auto/internal/timepicker"
)

const (
	loginTimeout  = 60 * time.Second
	pickerTimeout = 15 * time.Second
	actionTimeout = 30 * time.Second

	// The portal navigates on login and again on save; give each postback a
	// moment to land before the next wait.
	settleDelay = 3 * time.Second
	clickDelay  = 500 * time.Millisecond
)

// Session is one isolated browser context for one account. Sessions are
// opened and torn down strictly sequentially; no browser state survives
// between accounts.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	prof   *Profile
	log    zerolog.Logger
}

// Options configure the browser for a session.
type Options struct {
	Headless   bool
	ChromePath string
	Logger     zerolog.Logger
}

// NewSession launches a fresh browser context against prof.
func NewSession(parent context.Context, prof *Profile, opts Options) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}

	return &Session{
		ctx:    ctx,
		cancel: cancel,
		prof:   prof,
		log:    opts.Logger,
	}, nil
}

// Close tears down the browser context. Safe to call after any failure.
func (s *Session) Close() {
	s.cancel()
}

// Login loads the portal login page, fills the credential form and submits
// it. The click and the wait for the resulting navigation run inside one
// chromedp.Run so the navigation is never missed. Cookies are cleared first
// so nothing leaks in from a previous account.
//
// The portal shows no reliable error marker on bad credentials, so the login
// form disappearing is the success signal: on a good login the portal
// navigates away, on a bad one it re-renders the form. Waiting out the full
// timeout with the form still present therefore means the login was
// rejected, while a slow navigation simply finishes the wait late.
func (s *Session) Login(ac accounts.Account) error {
	s.log.Info().Str("username", ac.Username).Msg("logging in")

	ctx, cancel := context.WithTimeout(s.ctx, loginTimeout)
	defer cancel()

	err := chromedp.Run(ctx,
		network.ClearBrowserCookies(),
		chromedp.Navigate(s.prof.LoginURL),
		chromedp.WaitVisible(s.prof.Selectors.Username, chromedp.ByQuery),
		chromedp.WaitVisible(s.prof.Selectors.Password, chromedp.ByQuery),
		chromedp.SendKeys(s.prof.Selectors.Username, ac.Username, chromedp.ByQuery),
		chromedp.SendKeys(s.prof.Selectors.Password, ac.Password, chromedp.ByQuery),
		chromedp.Sleep(clickDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to fill login form: %w", err)
	}

	err = chromedp.Run(ctx,
		chromedp.Click(s.prof.Selectors.LoginButton, chromedp.ByQuery),
		chromedp.WaitNotPresent(s.prof.Selectors.Username, chromedp.ByQuery),
	)
	if err := loginWaitError(err, s.ctx); err != nil {
		return err
	}

	s.log.Info().Str("username", ac.Username).Msg("login successful")
	return nil
}

// loginWaitError classifies the result of the post-submit wait. The bounded
// wait expiring with the session itself still alive means the login form
// never went away: the portal rejected the credentials. Any other failure is
// a browser-level error.
func loginWaitError(err error, sessionCtx context.Context) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && sessionCtx.Err() == nil {
		return fmt.Errorf("login rejected: login form still present after submit")
	}
	return fmt.Errorf("failed to wait for post-login navigation: %w", err)
}

// OpenReservation navigates to the reservation form and waits for the start
// picker's visible input, bounded by pickerTimeout.
func (s *Session) OpenReservation(url string) error {
	s.log.Info().Str("url", url).Msg("opening reservation form")

	ctx, cancel := context.WithTimeout(s.ctx, actionTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to open reservation page: %w", err)
	}

	waitCtx, cancelWait := context.WithTimeout(s.ctx, pickerTimeout)
	defer cancelWait()
	err := chromedp.Run(waitCtx,
		chromedp.WaitVisible("#"+s.prof.Selectors.StartPicker+"_dateInput", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("time picker did not appear: %w", err)
	}
	return nil
}

// ApplyWindow writes the reservation window into both time pickers. Each
// picker gets one injected script that updates its visible text and both
// hidden state blobs as a unit; see the timepicker package.
func (s *Session) ApplyWindow(date time.Time, win timepicker.Window) error {
	ctx, cancel := context.WithTimeout(s.ctx, actionTimeout)
	defer cancel()

	fields := []struct {
		baseID string
		state  timepicker.FieldState
	}{
		{s.prof.Selectors.StartPicker, timepicker.Field(date, win.StartHour)},
		{s.prof.Selectors.EndPicker, timepicker.Field(date, win.EndHour)},
	}

	for _, f := range fields {
		script := timepicker.UpdateScript(f.baseID, f.state)
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, nil)); err != nil {
			return fmt.Errorf("failed to update picker %s: %w", f.baseID, err)
		}
		s.log.Debug().
			Str("picker", f.baseID).
			Str("display", f.state.DisplayText).
			Str("value", f.state.ValidationValue).
			Msg("picker state applied")
	}

	s.log.Info().Msg("time window set")
	return nil
}

// AcceptWaiver scrolls the liability waiver into view and activates it. The
// short pause lets the portal's click listener attach before the click.
func (s *Session) AcceptWaiver() error {
	ctx, cancel := context.WithTimeout(s.ctx, actionTimeout)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.WaitVisible(s.prof.Selectors.Waiver, chromedp.ByQuery),
		chromedp.ScrollIntoView(s.prof.Selectors.Waiver, chromedp.ByQuery),
		chromedp.Sleep(clickDelay),
		chromedp.Click(s.prof.Selectors.Waiver, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to accept waiver: %w", err)
	}

	s.log.Info().Msg("waiver accepted")
	return nil
}

// Submit clicks the save control and lets the resulting postback land.
func (s *Session) Submit() error {
	ctx, cancel := context.WithTimeout(s.ctx, actionTimeout)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.WaitVisible(s.prof.Selectors.Save, chromedp.ByQuery),
		chromedp.Sleep(clickDelay),
		chromedp.Click(s.prof.Selectors.Save, chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to submit reservation: %w", err)
	}

	s.log.Info().Msg("reservation submitted")
	return nil
}

// Capture screenshots the current page to path, whatever state the flow is
// in; a failure screenshot is as useful as a success one.
func (s *Session) Capture(path string) error {
	ctx, cancel := context.WithTimeout(s.ctx, actionTimeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}

	s.log.Info().Str("path", path).Msg("screenshot saved")
	return nil
}
