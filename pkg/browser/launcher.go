package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/entrhq/sitegen/pkg/logging"
	"github.com/playwright-community/playwright-go"
)

// Launcher owns the Playwright driver and opens one dedicated browser process
// per session. Sessions are tracked only so Shutdown can release stragglers;
// they are never pooled or handed to a second caller.
type Launcher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	active      map[*Session]struct{}
	launching   int
	maxSessions int
	initialized bool
	log         *logging.Logger
}

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithMaxSessions caps the number of concurrently open sessions.
func WithMaxSessions(n int) LauncherOption {
	return func(l *Launcher) {
		if n > 0 {
			l.maxSessions = n
		}
	}
}

// WithLogger sets the logger used by the launcher and its sessions.
func WithLogger(log *logging.Logger) LauncherOption {
	return func(l *Launcher) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLauncher creates a new launcher.
func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{
		active:      make(map[*Session]struct{}),
		maxSessions: DefaultMaxSessions,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize installs (if needed) and starts the Playwright driver.
// This must be called before opening any sessions.
func (l *Launcher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return nil
	}

	// Keep driver chatter out of the CLI output
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	l.log.Infof("playwright driver started")
	return nil
}

// Open launches a browser, creates one context with a fixed viewport and user
// agent, and creates one page. Handles created before a failure are released.
func (l *Launcher) Open(ctx context.Context, opts SessionOptions) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := l.reserve()
	if err != nil {
		return nil, err
	}
	// The slot is held, not the lock, while the browser starts
	registered := false
	defer func() {
		if !registered {
			l.unreserve(nil)
		}
	}()

	opts = opts.withDefaults()
	if opts.ExecutablePath == "" {
		opts.ExecutablePath = os.Getenv("PLAYWRIGHT_EXECUTABLE_PATH")
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
		l.log.Infof("using browser executable %s", opts.ExecutablePath)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		UserAgent: playwright.String(opts.UserAgent),
	})
	if err != nil {
		NewSession(browser, nil, nil, l.log).Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		NewSession(browser, bctx, nil, l.log).Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(milliseconds(opts.Timeout))

	session := NewSession(browser, bctx, WrapPage(page), l.log)
	session.Headless = opts.Headless
	session.onClose = l.release
	l.unreserve(session)
	registered = true

	l.log.Infof("browser session opened (headless=%t, viewport=%dx%d)", opts.Headless, opts.Viewport.Width, opts.Viewport.Height)
	return session, nil
}

// reserve claims a session slot. Slots being launched count against the cap.
func (l *Launcher) reserve() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil, fmt.Errorf("launcher not initialized")
	}
	if len(l.active)+l.launching >= l.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", l.maxSessions)
	}
	l.launching++
	return l.playwright, nil
}

// unreserve gives a slot back, registering s as active when it is not nil.
func (l *Launcher) unreserve(s *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launching--
	if s != nil {
		l.active[s] = struct{}{}
	}
}

// MaxSessions returns the effective session cap.
func (l *Launcher) MaxSessions() int {
	return l.maxSessions
}

// release forgets a closed session.
func (l *Launcher) release(s *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, s)
}

// ActiveSessions returns the number of open sessions.
func (l *Launcher) ActiveSessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// Shutdown closes any sessions still open and stops the Playwright driver.
func (l *Launcher) Shutdown() error {
	l.mu.Lock()
	remaining := make([]*Session, 0, len(l.active))
	for s := range l.active {
		remaining = append(remaining, s)
	}
	l.mu.Unlock()

	// Session.Close calls release, which takes the lock
	for _, s := range remaining {
		s.Close()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized && l.playwright != nil {
		if err := l.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		l.initialized = false
		l.playwright = nil
	}
	return nil
}
