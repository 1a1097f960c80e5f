package generation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Credentials is the identity/secret pair used to sign in to the host.
type Credentials struct {
	Identity string
	Secret   string
}

// Present reports whether both values are set.
func (c Credentials) Present() bool {
	return strings.TrimSpace(c.Identity) != "" && c.Secret != ""
}

// Mode selects whether the browser window is shown.
type Mode string

const (
	// ModeHeadless runs the browser without a window
	ModeHeadless Mode = "headless"
	// ModeVisible shows the browser window
	ModeVisible Mode = "visible"
)

// ParseMode converts user input to a Mode. An empty string means headless.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHeadless:
		return ModeHeadless, nil
	case ModeVisible:
		return ModeVisible, nil
	default:
		return "", fmt.Errorf("invalid mode: %s (must be 'headless' or 'visible')", s)
	}
}

// Headless reports whether the mode hides the browser window.
func (m Mode) Headless() bool {
	return m != ModeVisible
}

// Request is one prompt to turn into a preview. It is not modified after creation.
type Request struct {
	CorrelationID string `yaml:"id" json:"correlation_id"`
	Prompt        string `yaml:"prompt" json:"prompt"`
	Mode          Mode   `yaml:"mode" json:"mode"`
}

// NewRequest builds a request, assigning a random correlation ID when id is empty.
func NewRequest(id, prompt string, mode Mode) Request {
	if id == "" {
		id = uuid.New().String()
	}
	if mode == "" {
		mode = ModeHeadless
	}
	return Request{
		CorrelationID: id,
		Prompt:        prompt,
		Mode:          mode,
	}
}

// Result is the single terminal record produced for a Request.
type Result struct {
	CorrelationID string    `json:"correlation_id"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
	Success       bool      `json:"success"`
	PreviewURL    *string   `json:"preview_url"`
	Error         *string   `json:"error"`

	// ErrorKind names the failure class, empty on success
	ErrorKind string `json:"error_kind,omitempty"`
	// Attempts is the number of pipeline passes that ran
	Attempts int `json:"attempts"`
	// PreviewSource names the detection strategy that produced PreviewURL
	PreviewSource string `json:"preview_source,omitempty"`
	// Speculative is set when PreviewURL was synthesized rather than observed
	Speculative bool `json:"speculative,omitempty"`
	// LastError carries the cause behind a retry-budget failure
	LastError string `json:"last_error,omitempty"`
	// Screenshot is the path of the saved debugging screenshot, if any
	Screenshot string `json:"screenshot,omitempty"`
}

// Duration returns how long the request took.
func (r *Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// URL returns the preview URL or an empty string.
func (r *Result) URL() string {
	if r.PreviewURL == nil {
		return ""
	}
	return *r.PreviewURL
}

// ErrorMessage returns the error message or an empty string.
func (r *Result) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}
