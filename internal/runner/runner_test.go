package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryan-qiu/bl-auto/internal/accounts"
	"github.com/bryan-qiu/bl-auto/internal/config"
	"github.com/bryan-qiu/bl-auto/internal/portal"
	"github.com/bryan-qiu/bl-auto/internal/timepicker"
)

// fakeSession records the calls made against it and fails on demand.
type fakeSession struct {
	loginErr  error
	submitErr error

	calls  *[]string
	name   string
	closed bool

	reservationURL string
	appliedDate    time.Time
	appliedWindow  timepicker.Window
	capturedPath   string
}

func (f *fakeSession) record(step string) {
	*f.calls = append(*f.calls, f.name+":"+step)
}

func (f *fakeSession) Login(ac accounts.Account) error {
	f.record("login")
	return f.loginErr
}

func (f *fakeSession) OpenReservation(url string) error {
	f.record("open")
	f.reservationURL = url
	return nil
}

func (f *fakeSession) ApplyWindow(date time.Time, win timepicker.Window) error {
	f.record("apply")
	f.appliedDate = date
	f.appliedWindow = win
	return nil
}

func (f *fakeSession) AcceptWaiver() error {
	f.record("waiver")
	return nil
}

func (f *fakeSession) Submit() error {
	f.record("submit")
	return f.submitErr
}

func (f *fakeSession) Capture(path string) error {
	f.record("capture")
	f.capturedPath = path
	return nil
}

func (f *fakeSession) Close() {
	f.record("close")
	f.closed = true
}

func testConfig(t *testing.T) config.RunConfig {
	t.Helper()
	cfg, err := config.Resolve(config.Env{
		ReserveDate: "11/20/2025",
		StartHour:   "11",
		Strict:      true,
		ArtifactDir: t.TempDir(),
	}, time.Now())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return cfg
}

// newTestRunner wires a Runner to fakes. sessions are handed out in call
// order, one per account.
func newTestRunner(t *testing.T, sessions []*fakeSession) (*Runner, *[]string) {
	t.Helper()
	calls := &[]string{}
	for _, s := range sessions {
		s.calls = calls
	}

	r := New(testConfig(t), portal.Default(), zerolog.Nop(), nil)
	next := 0
	r.newSession = func(ctx context.Context) (session, error) {
		if next >= len(sessions) {
			t.Fatal("more sessions requested than provided")
		}
		s := sessions[next]
		next++
		return s, nil
	}
	return r, calls
}

func TestRun_HappyPath(t *testing.T) {
	sess := &fakeSession{name: "a"}
	r, _ := newTestRunner(t, []*fakeSession{sess})

	results, err := r.Run(context.Background(), []accounts.Account{
		{Username: "alice", Password: "pw"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	res := results[0]
	if res.Outcome != OutcomeOK {
		t.Errorf("outcome = %v (%s), want ok", res.Outcome, res.Reason)
	}
	if want := filepath.Join(r.cfg.ArtifactDir, "alice.png"); res.ArtifactPath != want {
		t.Errorf("artifact = %q, want %q", res.ArtifactPath, want)
	}

	wantURL := "https://harbourviewestates.buildinglink.com/v2/tenant/Amenities/NewReservation.aspx" +
		"?amenityId=61232&from=0&selectedDate=11/20/2025"
	if sess.reservationURL != wantURL {
		t.Errorf("reservation URL = %q, want %q", sess.reservationURL, wantURL)
	}
	if sess.appliedWindow != (timepicker.Window{StartHour: 11, EndHour: 12}) {
		t.Errorf("window = %+v, want {11 12}", sess.appliedWindow)
	}
	if sess.appliedDate.Format(config.DateLayout) != "11/20/2025" {
		t.Errorf("applied date = %v", sess.appliedDate)
	}
	if !sess.closed {
		t.Error("session not closed")
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	failing := &fakeSession{name: "a", loginErr: errors.New("login rejected")}
	healthy := &fakeSession{name: "b"}
	r, calls := newTestRunner(t, []*fakeSession{failing, healthy})

	results, err := r.Run(context.Background(), []accounts.Account{
		{Username: "alice", Password: "pw"},
		{Username: "bob", Password: "pw"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if results[0].Outcome != OutcomeFailed {
		t.Errorf("alice outcome = %v, want failed", results[0].Outcome)
	}
	if results[0].Reason == "" {
		t.Error("failed result has no reason")
	}
	if results[1].Outcome != OutcomeOK {
		t.Errorf("bob outcome = %v (%s), want ok", results[1].Outcome, results[1].Reason)
	}

	// The failing account still gets a screenshot and its session closed
	// before bob's session does anything.
	if !failing.closed || !healthy.closed {
		t.Error("sessions not closed")
	}
	sawBClose := false
	for _, call := range *calls {
		if call == "a:close" {
			break
		}
		if call[:2] == "b:" {
			sawBClose = true
		}
	}
	if sawBClose {
		t.Errorf("b's session started before a's closed: %v", *calls)
	}
	if failing.capturedPath == "" {
		t.Error("no screenshot attempted for failed account")
	}
}

func TestRun_FailedStepSkipsRest(t *testing.T) {
	sess := &fakeSession{name: "a", loginErr: errors.New("timeout")}
	r, calls := newTestRunner(t, []*fakeSession{sess})

	if _, err := r.Run(context.Background(), []accounts.Account{{Username: "alice", Password: "pw"}}); err == nil {
		t.Fatal("want ErrAllFailed for a fully failed batch")
	}

	for _, call := range *calls {
		switch call {
		case "a:open", "a:apply", "a:waiver", "a:submit":
			t.Errorf("step %s ran after login failed", call)
		}
	}
}

func TestRun_AllFailed(t *testing.T) {
	a := &fakeSession{name: "a", loginErr: errors.New("x")}
	b := &fakeSession{name: "b", submitErr: errors.New("y")}
	r, _ := newTestRunner(t, []*fakeSession{a, b})

	accts := []accounts.Account{
		{Username: "alice", Password: "pw"},
		{Username: "bob", Password: "pw"},
	}
	results, err := r.Run(context.Background(), accts)
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2 even when all failed", len(results))
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	r, _ := newTestRunner(t, nil)

	results, err := r.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed on empty batch: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
