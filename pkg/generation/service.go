package generation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/sitegen/pkg/browser"
	"github.com/entrhq/sitegen/pkg/logging"
)

// Opener starts a browser session. *browser.Launcher satisfies it.
type Opener interface {
	Open(ctx context.Context, opts browser.SessionOptions) (*browser.Session, error)
}

// Recorder receives pipeline measurements.
type Recorder interface {
	AttemptFinished(outcome string)
	RequestFinished(success bool, kind string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) AttemptFinished(string) {}

func (nopRecorder) RequestFinished(bool, string, time.Duration) {}

// Service turns prompts into preview URLs. It is safe for concurrent use; every
// call to Generate owns its own browser session.
type Service struct {
	cfg         Config
	creds       Credentials
	opener      Opener
	sessionOpts browser.SessionOptions
	clock       Clock
	log         *logging.Logger
	recorder    Recorder

	auth    *Authenticator
	submit  *Submitter
	preview *PreviewResolver
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSessionOptions sets the browser options; Headless is overridden per request.
func WithSessionOptions(opts browser.SessionOptions) Option {
	return func(s *Service) {
		s.sessionOpts = opts
	}
}

// NewService validates cfg and wires the pipeline stages.
func NewService(cfg Config, creds Credentials, opener Opener, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation config: %w", err)
	}
	if opener == nil {
		return nil, fmt.Errorf("session opener is required")
	}

	s := &Service{
		cfg:      cfg,
		creds:    creds,
		opener:   opener,
		clock:    RealClock(),
		log:      logging.Nop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.auth = NewAuthenticator(&s.cfg, s.clock, s.log)
	s.submit = NewSubmitter(&s.cfg, s.clock, s.log)
	preview, err := NewPreviewResolver(&s.cfg, s.clock, s.log)
	if err != nil {
		return nil, err
	}
	s.preview = preview
	return s, nil
}

// Config returns a copy of the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Generate runs the pipeline for req and always returns exactly one Result.
// It never panics; the browser session, if one was opened, is closed before it
// returns.
func (s *Service) Generate(ctx context.Context, req Request) (result *Result) {
	log := s.log.With("correlation_id", req.CorrelationID)
	result = &Result{
		CorrelationID: req.CorrelationID,
		StartedAt:     s.clock.Now(),
	}
	run := &pipelineRun{svc: s, req: req, log: log}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic during generation: %v", r)
			s.finish(result, Preview{}, newError(KindEnvironmentFault, "unexpected failure", fmt.Errorf("panic: %v", r)))
		}
		run.closeSession()
		result.Attempts = run.attempts
		result.CompletedAt = s.clock.Now()
		s.recorder.RequestFinished(result.Success, result.ErrorKind, result.Duration())

		if result.Success {
			log.Infof("generation succeeded after %d attempt(s): %s", result.Attempts, result.URL())
		} else {
			log.Warnf("generation failed after %d attempt(s): %s", result.Attempts, result.ErrorMessage())
		}
	}()

	log.Infof("starting generation (mode=%s, prompt=%d chars)", req.Mode, len(req.Prompt))
	preview, err := run.execute(ctx)
	s.finish(result, preview, err)

	if result.Success && req.Mode.Headless() {
		run.screenshot(result)
	}
	return result
}

// finish records the terminal state on result.
func (s *Service) finish(result *Result, preview Preview, err error) {
	if err == nil {
		url := preview.URL
		result.Success = true
		result.PreviewURL = &url
		result.PreviewSource = preview.Source
		result.Speculative = preview.Speculative
		result.Error = nil
		result.ErrorKind = ""
		return
	}

	e := classify(err)
	msg := e.Reason
	if e.Kind == KindEnvironmentFault || e.Kind == KindCanceled {
		msg = e.Error()
	}
	result.Success = false
	result.PreviewURL = nil
	result.Error = &msg
	result.ErrorKind = e.Kind.String()
	if e.Kind == KindRetryBudgetExhausted && e.Err != nil {
		result.LastError = e.Err.Error()
	}
}

// pipelineRun is the state of one Generate call: the request, its session and
// the attempt counter. It is never shared between requests.
type pipelineRun struct {
	svc      *Service
	req      Request
	log      *logging.Logger
	session  *browser.Session
	attempts int
}

// execute is the retry loop.
func (r *pipelineRun) execute(ctx context.Context) (Preview, error) {
	if !r.svc.creds.Present() {
		return Preview{}, newError(KindMissingCredentials, ReasonMissingCredentials, nil)
	}

	maxAttempts := r.svc.cfg.MaxAttempts
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		r.attempts = attempt
		r.log.Infof("attempt %d/%d", attempt, maxAttempts)

		outcome := outcomeOf(r.attempt(ctx))
		r.svc.recorder.AttemptFinished(outcome.Label())

		switch outcome.Status {
		case OutcomeSuccess:
			return outcome.Preview, nil
		case OutcomeFatal:
			return Preview{}, outcome.Err
		}

		lastErr = outcome.Err
		r.log.Warnf("attempt %d/%d failed: %v", attempt, maxAttempts, outcome.Err)

		if attempt < maxAttempts {
			if err := r.svc.clock.Sleep(ctx, r.svc.cfg.RetryDelay); err != nil {
				return Preview{}, classify(err)
			}
		}
	}

	return Preview{}, newError(KindRetryBudgetExhausted, ReasonRetryBudgetExhausted, lastErr)
}

// attempt runs one pass: open (first time only), authenticate, submit, resolve.
func (r *pipelineRun) attempt(ctx context.Context) (Preview, error) {
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}

	if r.session == nil {
		opts := r.svc.sessionOpts
		opts.Headless = r.req.Mode.Headless()
		session, err := r.svc.opener.Open(ctx, opts)
		if err != nil {
			return Preview{}, environmentFault("browser launch", err)
		}
		if session == nil || session.Page == nil {
			session.Close()
			return Preview{}, environmentFault("browser launch", fmt.Errorf("no page available"))
		}
		r.session = session
	}
	page := r.session.Page

	state, err := r.svc.auth.Authenticate(ctx, page, r.svc.creds)
	if err != nil {
		return Preview{}, err
	}
	r.log.Infof("signed in (%s)", state)

	if err := r.svc.submit.Submit(ctx, page, r.req.Prompt); err != nil {
		return Preview{}, err
	}

	return r.svc.preview.Resolve(ctx, page)
}

// screenshot saves the debugging screenshot for a successful request.
func (r *pipelineRun) screenshot(result *Result) {
	dir := r.svc.cfg.ScreenshotDir
	if dir == "" || r.session == nil || r.session.Page == nil {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		r.log.Warnf("failed to create screenshot directory: %v", err)
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("preview_%s.png", safeFileName(r.req.CorrelationID)))
	if err := r.session.Page.Screenshot(path); err != nil {
		r.log.Warnf("failed to save screenshot: %v", err)
		return
	}
	result.Screenshot = path
	r.log.Infof("screenshot saved to %s", path)
}

// closeSession releases the session if one was opened.
func (r *pipelineRun) closeSession() {
	if r.session == nil {
		return
	}
	r.session.Close()
	r.session = nil
}

// safeFileName keeps a correlation id from escaping the target directory.
func safeFileName(id string) string {
	return strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', ':', 0:
			return '_'
		}
		return c
	}, id)
}
