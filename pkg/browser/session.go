package browser

import (
	"sync"
	"time"

	"github.com/entrhq/sitegen/pkg/logging"
	"github.com/playwright-community/playwright-go"
)

// Session is one browser process with one context and one page. It belongs to a
// single generation request and is released exactly once.
type Session struct {
	// Browser is the Playwright browser process
	Browser playwright.Browser

	// Context is the isolated browsing context
	Context playwright.BrowserContext

	// Page is the page every pipeline stage drives
	Page Page

	// Headless indicates if the browser is running without a window
	Headless bool

	// CreatedAt is the timestamp when the session was opened
	CreatedAt time.Time

	log       *logging.Logger
	onClose   func(*Session)
	closeOnce sync.Once
}

// NewSession wraps already-created handles. Any handle may be nil.
func NewSession(browser playwright.Browser, context playwright.BrowserContext, page Page, log *logging.Logger) *Session {
	if log == nil {
		log = logging.Nop()
	}
	return &Session{
		Browser:   browser,
		Context:   context,
		Page:      page,
		CreatedAt: time.Now(),
		log:       log,
	}
}

// Close releases the page, the context and the browser, in that order. It
// tolerates partially initialized sessions, never fails, and only acts on the
// first call. Teardown errors are logged.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		log := s.log
		if log == nil {
			log = logging.Nop()
		}
		defer func() {
			if s.onClose != nil {
				s.onClose(s)
			}
		}()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic during browser teardown: %v", r)
			}
		}()

		if s.Page != nil {
			if err := s.Page.Close(); err != nil {
				log.Warnf("failed to close page: %v", err)
			}
		}
		if s.Context != nil {
			if err := s.Context.Close(); err != nil {
				log.Warnf("failed to close browser context: %v", err)
			}
		}
		if s.Browser != nil {
			if err := s.Browser.Close(); err != nil {
				log.Warnf("failed to close browser: %v", err)
			}
		}

		log.Debugf("browser session closed after %s", time.Since(s.CreatedAt).Round(time.Millisecond))
	})
}
