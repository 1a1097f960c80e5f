package generation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T, cfg Config, creds Credentials, opener *fakeOpener) (*Service, *fakeClock, *fakeRecorder) {
	t.Helper()
	clock := newFakeClock()
	rec := &fakeRecorder{}
	svc, err := NewService(cfg, creds, opener, WithClock(clock), WithRecorder(rec))
	require.NoError(t, err)
	return svc, clock, rec
}

// previewPage signs in on the first try and exposes a preview anchor.
func previewPage() *fakePage {
	p := withGenerator(loginPage(1))
	p.attrs[DefaultSelectors().PreviewLink] = []string{"https://xyz.examplehost.app"}
	return p
}

func TestNewService_Validation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 0
	_, err := NewService(cfg, testCreds, &fakeOpener{})
	assert.Error(t, err)

	_, err = NewService(testConfig(), testCreds, nil)
	assert.Error(t, err)

	svc, err := NewService(testConfig(), testCreds, &fakeOpener{})
	require.NoError(t, err)
	assert.Equal(t, 3, svc.Config().MaxAttempts)
}

func TestGenerate_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"empty identity", Credentials{Secret: "hunter2"}},
		{"empty secret", Credentials{Identity: "dev@example.com"}},
		{"both empty", Credentials{}},
		{"blank identity", Credentials{Identity: "   ", Secret: "hunter2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &fakeOpener{page: previewPage()}
			svc, _, rec := newTestService(t, testConfig(), tt.creds, opener)

			result := svc.Generate(context.Background(), NewRequest("req-1", "Build a portfolio site", ModeHeadless))

			assert.False(t, result.Success)
			assert.Nil(t, result.PreviewURL)
			require.NotNil(t, result.Error)
			assert.Equal(t, "credentials not provided", *result.Error)
			assert.Equal(t, KindMissingCredentials.String(), result.ErrorKind)
			assert.Zero(t, opener.opens, "no session may be opened")
			assert.Zero(t, result.Attempts)
			assert.Empty(t, rec.attempts)
			assert.Equal(t, []string{"false/missing_credentials"}, rec.requests)
		})
	}
}

func TestGenerate_SucceedsOnThirdLogin(t *testing.T) {
	page := withGenerator(loginPage(3))
	page.attrs[DefaultSelectors().PreviewLink] = []string{"https://xyz.examplehost.app"}
	opener := &fakeOpener{page: page}
	cfg := testConfig()
	svc, clock, rec := newTestService(t, cfg, testCreds, opener)
	start := clock.Now()

	result := svc.Generate(context.Background(), NewRequest("req-e2e", "Build a portfolio site", ModeHeadless))

	require.True(t, result.Success, "error: %s", result.ErrorMessage())
	require.NotNil(t, result.PreviewURL)
	assert.Equal(t, "https://xyz.examplehost.app", *result.PreviewURL)
	assert.Nil(t, result.Error)
	assert.Empty(t, result.ErrorKind)
	assert.Equal(t, SourceAnchor, result.PreviewSource)
	assert.False(t, result.Speculative)
	assert.Equal(t, "req-e2e", result.CorrelationID)

	// exactly 3 login attempts over one reused session
	assert.Len(t, page.fillsTo(cfg.Selectors.Identity[0]), 3)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 1, opener.opens)
	assert.Equal(t, 1, page.closes)

	assert.Equal(t, []string{"login_failure", "login_failure", "success"}, rec.attempts)
	assert.Equal(t, []string{"true/"}, rec.requests)

	assert.Equal(t, start, result.StartedAt)
	assert.Equal(t, clock.Now(), result.CompletedAt)
	assert.Equal(t, clock.Now().Sub(start), result.Duration())
	assert.Equal(t, []string{"Build a portfolio site"}, page.fillsTo(cfg.Selectors.PromptInput[0]))
}

func TestGenerate_NoSignInAffordance(t *testing.T) {
	page := newFakePage()
	opener := &fakeOpener{page: page}
	cfg := testConfig()
	svc, clock, rec := newTestService(t, cfg, testCreds, opener)

	result := svc.Generate(context.Background(), NewRequest("req-2", "p", ModeHeadless))

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, "maximum retry attempts reached", *result.Error)
	assert.Equal(t, KindRetryBudgetExhausted.String(), result.ErrorKind)
	assert.Contains(t, result.LastError, ReasonUnsupportedLoginFlow)

	assert.Equal(t, cfg.MaxAttempts, result.Attempts)
	assert.Len(t, page.gotos, cfg.MaxAttempts)
	assert.Equal(t, []time.Duration{
		cfg.HomeSettleDelay, cfg.RetryDelay,
		cfg.HomeSettleDelay, cfg.RetryDelay,
		cfg.HomeSettleDelay,
	}, clock.sleeps)
	assert.Equal(t, []string{"unsupported_login_flow", "unsupported_login_flow", "unsupported_login_flow"}, rec.attempts)
	assert.Equal(t, 1, page.closes)
}

func TestGenerate_SingleAttemptBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 1
	opener := &fakeOpener{page: newFakePage()}
	svc, clock, _ := newTestService(t, cfg, testCreds, opener)

	result := svc.Generate(context.Background(), NewRequest("req", "p", ModeHeadless))

	assert.Equal(t, ReasonRetryBudgetExhausted, result.ErrorMessage())
	assert.Equal(t, 1, result.Attempts)
	assert.NotContains(t, clock.sleeps, cfg.RetryDelay)
}

func TestGenerate_SessionClosedExactlyOnce(t *testing.T) {
	sel := DefaultSelectors()

	tests := []struct {
		name     string
		setup    func(p *fakePage, cfg *Config, cancel context.CancelFunc)
		wantKind string
	}{
		{
			name:     "success",
			setup:    func(p *fakePage, cfg *Config, cancel context.CancelFunc) {},
			wantKind: "",
		},
		{
			name: "navigation fault",
			setup: func(p *fakePage, cfg *Config, cancel context.CancelFunc) {
				p.gotoErr = errors.New("net::ERR_CONNECTION_RESET")
			},
			wantKind: "retry_budget_exhausted",
		},
		{
			name: "unsupported login flow",
			setup: func(p *fakePage, cfg *Config, cancel context.CancelFunc) {
				p.counts[sel.Identity[0]] = 0
			},
			wantKind: "retry_budget_exhausted",
		},
		{
			name: "login failure",
			setup: func(p *fakePage, cfg *Config, cancel context.CancelFunc) {
				p.onClick = nil
			},
			wantKind: "retry_budget_exhausted",
		},
		{
			name: "input not found",
			setup: func(p *fakePage, cfg *Config, cancel context.CancelFunc) {
				p.counts[sel.PromptInput[0]] = 0
			},
			wantKind: "retry_budget_exhausted",
		},
		{
			name: "preview timeout",
			setup: func(p *fakePage, cfg *Config, cancel context.CancelFunc) {
				cfg.PreviewTimeout = 6 * time.Second
				cfg.SpeculativePreview = false
				p.attrs = map[string][]string{}
			},
			wantKind: "retry_budget_exhausted",
		},
		{
			name: "panic in page query",
			setup: func(p *fakePage, cfg *Config, cancel context.CancelFunc) {
				p.panicOn = "Count"
			},
			wantKind: "environment_fault",
		},
		{
			name: "panic in fill",
			setup: func(p *fakePage, cfg *Config, cancel context.CancelFunc) {
				p.panicOn = "FillFirst"
			},
			wantKind: "environment_fault",
		},
		{
			name: "canceled mid-request",
			setup: func(p *fakePage, cfg *Config, cancel context.CancelFunc) {
				p.onGoto = func(*fakePage, string) { cancel() }
			},
			wantKind: "canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			cfg := testConfig()
			page := previewPage()
			tt.setup(page, &cfg, cancel)
			opener := &fakeOpener{page: page}
			svc, _, rec := newTestService(t, cfg, testCreds, opener)

			result := svc.Generate(ctx, NewRequest("req", "p", ModeVisible))

			require.NotNil(t, result)
			assert.Equal(t, 1, opener.opens)
			assert.Equal(t, 1, page.closes, "session must be closed exactly once")
			assert.Equal(t, tt.wantKind, result.ErrorKind)
			assert.Equal(t, tt.wantKind == "", result.Success)
			assert.Len(t, rec.requests, 1)
		})
	}
}

func TestGenerate_PanicIsReported(t *testing.T) {
	page := previewPage()
	page.panicOn = "Goto"
	svc, _, _ := newTestService(t, testConfig(), testCreds, &fakeOpener{page: page})

	var result *Result
	require.NotPanics(t, func() {
		result = svc.Generate(context.Background(), NewRequest("req", "p", ModeHeadless))
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage(), "Goto exploded")
	assert.Equal(t, 1, result.Attempts)
	assert.False(t, result.CompletedAt.IsZero())
}

func TestGenerate_CanceledBeforeStart(t *testing.T) {
	opener := &fakeOpener{page: previewPage()}
	svc, _, _ := newTestService(t, testConfig(), testCreds, opener)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := svc.Generate(ctx, NewRequest("req", "p", ModeHeadless))

	assert.False(t, result.Success)
	assert.Equal(t, "canceled", result.ErrorKind)
	assert.Zero(t, opener.opens)
}

func TestGenerate_LaunchFailure(t *testing.T) {
	opener := &fakeOpener{err: errors.New("executable doesn't exist")}
	cfg := testConfig()
	svc, clock, _ := newTestService(t, cfg, testCreds, opener)

	result := svc.Generate(context.Background(), NewRequest("req", "p", ModeHeadless))

	assert.False(t, result.Success)
	assert.Equal(t, ReasonRetryBudgetExhausted, result.ErrorMessage())
	assert.Contains(t, result.LastError, "browser launch failed")
	// each attempt tries to open again since none succeeded
	assert.Equal(t, cfg.MaxAttempts, opener.opens)
	assert.Equal(t, []time.Duration{cfg.RetryDelay, cfg.RetryDelay}, clock.sleeps)
}

func TestGenerate_ScreenshotOnHeadlessSuccess(t *testing.T) {
	cfg := testConfig()
	cfg.ScreenshotDir = filepath.Join(t.TempDir(), "shots")
	page := previewPage()
	opener := &fakeOpener{page: page}
	svc, _, _ := newTestService(t, cfg, testCreds, opener)

	result := svc.Generate(context.Background(), NewRequest("batch/7", "p", ModeHeadless))

	require.True(t, result.Success)
	want := filepath.Join(cfg.ScreenshotDir, "preview_batch_7.png")
	assert.Equal(t, []string{want}, page.screenshots)
	assert.Equal(t, want, result.Screenshot)
	assert.Equal(t, []string{"screenshot", "close"}, page.events)
	assert.DirExists(t, cfg.ScreenshotDir)
	assert.True(t, opener.opts[0].Headless)
}

func TestGenerate_NoScreenshotInVisibleMode(t *testing.T) {
	cfg := testConfig()
	cfg.ScreenshotDir = t.TempDir()
	page := previewPage()
	opener := &fakeOpener{page: page}
	svc, _, _ := newTestService(t, cfg, testCreds, opener)

	result := svc.Generate(context.Background(), NewRequest("req", "p", ModeVisible))

	require.True(t, result.Success)
	assert.Empty(t, page.screenshots)
	assert.Empty(t, result.Screenshot)
	assert.False(t, opener.opts[0].Headless)
}

func TestGenerate_ScreenshotFailureKeepsSuccess(t *testing.T) {
	cfg := testConfig()
	cfg.ScreenshotDir = t.TempDir()
	page := previewPage()
	page.screenshotErr = errors.New("target closed")
	svc, _, _ := newTestService(t, cfg, testCreds, &fakeOpener{page: page})

	result := svc.Generate(context.Background(), NewRequest("req", "p", ModeHeadless))

	assert.True(t, result.Success)
	assert.Empty(t, result.Screenshot)
}

func TestGenerate_SpeculativeResultIsFlagged(t *testing.T) {
	page := withGenerator(loginPage(1))
	page.url = "https://lovable.dev/project/p-42"
	svc, _, _ := newTestService(t, testConfig(), testCreds, &fakeOpener{page: page})

	result := svc.Generate(context.Background(), NewRequest("req", "p", ModeVisible))

	require.True(t, result.Success)
	assert.Equal(t, "https://p-42.lovableproject.com", result.URL())
	assert.True(t, result.Speculative)
	assert.Equal(t, SourceSpeculative, result.PreviewSource)
}

func TestGenerate_EachRequestOwnsItsSession(t *testing.T) {
	page := previewPage()
	opener := &fakeOpener{page: page}
	svc, _, _ := newTestService(t, testConfig(), testCreds, opener)

	first := svc.Generate(context.Background(), NewRequest("a", "p", ModeVisible))
	second := svc.Generate(context.Background(), NewRequest("b", "p", ModeVisible))

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Equal(t, 2, opener.opens)
	assert.Equal(t, 2, page.closes)
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "a_b_c_d", safeFileName(`a/b\c:d`))
	assert.Equal(t, "plain-id", safeFileName("plain-id"))
}
