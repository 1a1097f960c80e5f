package generation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/entrhq/sitegen/pkg/browser"
	"github.com/entrhq/sitegen/pkg/logging"
)

// Detection strategy names, in priority order.
const (
	SourceFrame       = "frame"
	SourceAnchor      = "anchor"
	SourceText        = "text"
	SourceSpeculative = "speculative"
)

var (
	urlPattern       = regexp.MustCompile(`https?://[A-Za-z0-9][A-Za-z0-9\-.]*[A-Za-z0-9](?::\d+)?(?:/[^\s"'<>]*)?`)
	projectIDPattern = regexp.MustCompile(`project/([a-zA-Z0-9\-]+)`)
)

// trailingPunct is sentence punctuation that follows a URL in prose.
const trailingPunct = `.,;:!?)]}'"`

// Preview is a detected preview URL and where it came from.
type Preview struct {
	URL         string
	Source      string
	Speculative bool
}

// Detector is one independent heuristic for finding the preview URL. Detect
// returns "" when it finds nothing.
type Detector struct {
	Name   string
	Detect func(page browser.Page) (string, error)
}

// PreviewResolver polls a page until one of its detectors finds a preview URL
// or the time budget runs out.
type PreviewResolver struct {
	cfg         *Config
	clock       Clock
	log         *logging.Logger
	hosts       *HostMatcher
	builderHost string
	detectors   []Detector
}

// NewPreviewResolver builds a resolver with the detectors enabled by cfg.
func NewPreviewResolver(cfg *Config, clock Clock, log *logging.Logger) (*PreviewResolver, error) {
	if log == nil {
		log = logging.Nop()
	}
	hosts, err := NewHostMatcher(cfg.PreviewHosts)
	if err != nil {
		return nil, err
	}

	r := &PreviewResolver{cfg: cfg, clock: clock, log: log, hosts: hosts, builderHost: hostOf(cfg.BaseURL)}
	r.detectors = []Detector{
		{Name: SourceFrame, Detect: r.detectFrame},
		{Name: SourceAnchor, Detect: r.detectAnchor},
		{Name: SourceText, Detect: r.detectText},
	}
	if cfg.SpeculativePreview {
		r.detectors = append(r.detectors, Detector{Name: SourceSpeculative, Detect: r.detectSpeculative})
	}
	return r, nil
}

// Detectors returns the detectors in the order they run each poll.
func (r *PreviewResolver) Detectors() []Detector {
	return r.detectors
}

// Resolve polls until a detector matches. It returns a PreviewTimeout error
// once PreviewTimeout has elapsed without a match, and never before.
func (r *PreviewResolver) Resolve(ctx context.Context, page browser.Page) (Preview, error) {
	start := r.clock.Now()

	for poll := 1; ; poll++ {
		if preview, ok := r.poll(page); ok {
			r.log.Infof("preview found by %s detector on poll %d: %s", preview.Source, poll, preview.URL)
			return preview, nil
		}

		elapsed := r.clock.Now().Sub(start)
		if elapsed >= r.cfg.PreviewTimeout {
			return Preview{}, newError(KindPreviewTimeout, ReasonPreviewTimeout,
				fmt.Errorf("no detector matched in %d polls over %s", poll, elapsed))
		}

		wait := r.cfg.PollInterval
		if remaining := r.cfg.PreviewTimeout - elapsed; remaining < wait {
			wait = remaining
		}
		if err := r.clock.Sleep(ctx, wait); err != nil {
			return Preview{}, err
		}
	}
}

// poll runs every detector once in priority order. Detector errors are logged
// and treated as a miss.
func (r *PreviewResolver) poll(page browser.Page) (Preview, bool) {
	for _, d := range r.detectors {
		found, err := d.Detect(page)
		if err != nil {
			r.log.Debugf("%s detector error (will retry): %v", d.Name, err)
			continue
		}
		if found != "" {
			return Preview{
				URL:         found,
				Source:      d.Name,
				Speculative: d.Name == SourceSpeculative,
			}, true
		}
	}
	return Preview{}, false
}

// detectFrame looks for an embedded frame served from a preview host.
func (r *PreviewResolver) detectFrame(page browser.Page) (string, error) {
	sources, err := page.AttributeValues(r.cfg.Selectors.PreviewFrame, "src")
	if err != nil {
		return "", err
	}
	return r.firstHostMatch(sources), nil
}

// detectAnchor looks for a link to a preview host, then for a link whose text
// reads like a preview button. Links back to the builder itself are skipped.
func (r *PreviewResolver) detectAnchor(page browser.Page) (string, error) {
	hrefs, err := page.AttributeValues(r.cfg.Selectors.PreviewLink, "href")
	if err != nil {
		return "", err
	}
	if found := r.firstHostMatch(hrefs); found != "" {
		return found, nil
	}

	for _, selector := range r.cfg.Selectors.PreviewText {
		hrefs, err := page.AttributeValues(selector, "href")
		if err != nil {
			return "", err
		}
		for _, href := range hrefs {
			if isAbsoluteHTTP(href) && !strings.EqualFold(hostOf(href), r.builderHost) {
				return href, nil
			}
		}
	}
	return "", nil
}

// detectText scans the visible page text for a URL on a preview host.
func (r *PreviewResolver) detectText(page browser.Page) (string, error) {
	content, err := page.Content()
	if err != nil {
		return "", err
	}
	text, err := browser.VisibleText(content)
	if err != nil {
		return "", err
	}
	matches := urlPattern.FindAllString(text, -1)
	for i, m := range matches {
		matches[i] = strings.TrimRight(m, trailingPunct)
	}
	return r.firstHostMatch(matches), nil
}

// detectSpeculative builds a preview URL from the project id in the page
// address using the first configured naming template. The result is a guess:
// nothing checks that it resolves.
func (r *PreviewResolver) detectSpeculative(page browser.Page) (string, error) {
	m := projectIDPattern.FindStringSubmatch(page.URL())
	if m == nil {
		return "", nil
	}
	return fmt.Sprintf(r.cfg.SpeculativeTemplates[0], m[1]), nil
}

func (r *PreviewResolver) firstHostMatch(candidates []string) string {
	for _, c := range candidates {
		if r.hosts.Match(c) {
			return c
		}
	}
	return ""
}
