package generation

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config controls the pipeline's retry budget, timing and UI heuristics.
type Config struct {
	// BaseURL is the root of the site builder
	BaseURL string `yaml:"base_url" json:"base_url"`
	// NewProjectPath is opened directly when no new-project control is found
	NewProjectPath string `yaml:"new_project_path" json:"new_project_path"`

	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"`

	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PreviewTimeout time.Duration `yaml:"preview_timeout" json:"preview_timeout"`

	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	ActionTimeout     time.Duration `yaml:"action_timeout" json:"action_timeout"`

	// Fixed waits for client-side rendering that has no load event
	HomeSettleDelay     time.Duration `yaml:"home_settle_delay" json:"home_settle_delay"`
	ClickSettleDelay    time.Duration `yaml:"click_settle_delay" json:"click_settle_delay"`
	LoginSettleDelay    time.Duration `yaml:"login_settle_delay" json:"login_settle_delay"`
	PromptSettleDelay   time.Duration `yaml:"prompt_settle_delay" json:"prompt_settle_delay"`
	GenerateSettleDelay time.Duration `yaml:"generate_settle_delay" json:"generate_settle_delay"`

	// PreviewHosts are glob patterns over the host of a candidate preview URL
	PreviewHosts []string `yaml:"preview_hosts" json:"preview_hosts"`

	// SpeculativePreview enables the last-resort detector that builds a preview
	// URL from the project id in the page address without verifying it
	SpeculativePreview   bool     `yaml:"speculative_preview" json:"speculative_preview"`
	SpeculativeTemplates []string `yaml:"speculative_templates" json:"speculative_templates"`

	// ScreenshotDir receives preview_<id>.png on headless success; empty disables it
	ScreenshotDir string `yaml:"screenshot_dir" json:"screenshot_dir"`

	Selectors Selectors `yaml:"selectors" json:"selectors"`
}

// Selectors holds the ordered locator strategies for every UI element the
// pipeline touches. Within each list the first selector that matches wins.
type Selectors struct {
	SignedIn     []string `yaml:"signed_in" json:"signed_in"`
	SignIn       []string `yaml:"sign_in" json:"sign_in"`
	Identity     []string `yaml:"identity" json:"identity"`
	Secret       []string `yaml:"secret" json:"secret"`
	Submit       []string `yaml:"submit" json:"submit"`
	NewProject   []string `yaml:"new_project" json:"new_project"`
	PromptInput  []string `yaml:"prompt_input" json:"prompt_input"`
	Generate     []string `yaml:"generate" json:"generate"`
	PreviewFrame string   `yaml:"preview_frame" json:"preview_frame"`
	PreviewLink  string   `yaml:"preview_link" json:"preview_link"`
	PreviewText  []string `yaml:"preview_text_links" json:"preview_text_links"`
}

// DefaultSelectors returns the locator strategies for the default host.
func DefaultSelectors() Selectors {
	return Selectors{
		SignedIn: []string{
			`button:has-text("New Project")`,
		},
		SignIn: []string{
			`button:has-text("Sign in")`,
			`button:has-text("Login")`,
			`a:has-text("Sign in")`,
			`a:has-text("Login")`,
		},
		Identity: []string{
			`input[type="email"]`,
			`input[name="email"]`,
			`input[placeholder*="email" i]`,
		},
		Secret: []string{
			`input[type="password"]`,
			`input[name="password"]`,
		},
		Submit: []string{
			`button[type="submit"]`,
			`button:has-text("Sign in")`,
			`button:has-text("Login")`,
		},
		NewProject: []string{
			`button:has-text("New Project")`,
			`button:has-text("New")`,
			`button:has-text("Create")`,
		},
		PromptInput: []string{
			`textarea`,
			`[contenteditable="true"]`,
			`input[type="text"][placeholder*="describe" i]`,
		},
		Generate: []string{
			`button:has-text("Generate")`,
			`button:has-text("Create")`,
			`button:has-text("Build")`,
			`button[type="submit"]`,
		},
		PreviewFrame: `iframe[src]`,
		PreviewLink:  `a[href]`,
		PreviewText: []string{
			`a:has-text("Preview")`,
			`a:has-text("View")`,
		},
	}
}

// DefaultConfig returns the configuration for the default host.
func DefaultConfig() Config {
	return Config{
		BaseURL:             "https://lovable.dev",
		NewProjectPath:      "/new",
		MaxAttempts:         3,
		RetryDelay:          5 * time.Second,
		PollInterval:        2 * time.Second,
		PreviewTimeout:      180 * time.Second,
		NavigationTimeout:   30 * time.Second,
		ActionTimeout:       10 * time.Second,
		HomeSettleDelay:     2 * time.Second,
		ClickSettleDelay:    2 * time.Second,
		LoginSettleDelay:    5 * time.Second,
		PromptSettleDelay:   1 * time.Second,
		GenerateSettleDelay: 3 * time.Second,
		PreviewHosts: []string{
			"*.lovableproject.com",
			"*.vercel.app",
			"*.netlify.app",
		},
		SpeculativePreview: true,
		SpeculativeTemplates: []string{
			"https://%s.lovableproject.com",
			"https://%s.vercel.app",
			"https://lovable-%s.netlify.app",
		},
		Selectors: DefaultSelectors(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", c.BaseURL)
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.PreviewTimeout <= 0 {
		return fmt.Errorf("preview_timeout must be positive")
	}
	if c.NavigationTimeout <= 0 || c.ActionTimeout <= 0 {
		return fmt.Errorf("navigation_timeout and action_timeout must be positive")
	}

	for name, d := range map[string]time.Duration{
		"retry_delay":           c.RetryDelay,
		"home_settle_delay":     c.HomeSettleDelay,
		"click_settle_delay":    c.ClickSettleDelay,
		"login_settle_delay":    c.LoginSettleDelay,
		"prompt_settle_delay":   c.PromptSettleDelay,
		"generate_settle_delay": c.GenerateSettleDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}

	if len(c.PreviewHosts) == 0 {
		return fmt.Errorf("at least one preview host pattern is required")
	}
	if _, err := NewHostMatcher(c.PreviewHosts); err != nil {
		return err
	}

	if c.SpeculativePreview {
		if len(c.SpeculativeTemplates) == 0 {
			return fmt.Errorf("speculative_preview requires at least one template")
		}
		for _, tmpl := range c.SpeculativeTemplates {
			if strings.Count(tmpl, "%s") != 1 {
				return fmt.Errorf("speculative template %q must contain exactly one %%s", tmpl)
			}
		}
	}

	return c.Selectors.validate()
}

func (s Selectors) validate() error {
	lists := map[string][]string{
		"signed_in":    s.SignedIn,
		"sign_in":      s.SignIn,
		"identity":     s.Identity,
		"secret":       s.Secret,
		"submit":       s.Submit,
		"new_project":  s.NewProject,
		"prompt_input": s.PromptInput,
		"generate":     s.Generate,
	}
	for name, list := range lists {
		if len(list) == 0 {
			return fmt.Errorf("selectors.%s must list at least one selector", name)
		}
	}
	if s.PreviewFrame == "" || s.PreviewLink == "" {
		return fmt.Errorf("selectors.preview_frame and selectors.preview_link are required")
	}
	return nil
}

// newProjectURL joins BaseURL and NewProjectPath.
func (c *Config) newProjectURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.NewProjectPath, "/")
}
