package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Page is the DOM surface the generation pipeline drives. Every call that can
// block carries its own timeout; selectors use Playwright selector syntax.
type Page interface {
	// Goto navigates to url and waits for the requested load state.
	Goto(url string, opts NavigateOptions) error

	// Count returns how many elements currently match selector.
	Count(selector string) (int, error)

	// ClickFirst clicks the first element matching selector.
	ClickFirst(selector string, timeout time.Duration) error

	// FillFirst replaces the value of the first element matching selector.
	FillFirst(selector, value string, timeout time.Duration) error

	// AttributeValues returns the named attribute of every element matching
	// selector, skipping elements without it.
	AttributeValues(selector, name string) ([]string, error)

	// Content returns the serialized DOM.
	Content() (string, error)

	// URL returns the current page address.
	URL() string

	// Screenshot writes a PNG of the viewport to path.
	Screenshot(path string) error

	// Close releases the page.
	Close() error
}

// playwrightPage implements Page over a Playwright page.
type playwrightPage struct {
	page playwright.Page
}

// WrapPage adapts a Playwright page to Page.
func WrapPage(page playwright.Page) Page {
	return &playwrightPage{page: page}
}

func (p *playwrightPage) Goto(url string, opts NavigateOptions) error {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	gotoOpts := playwright.PageGotoOptions{
		Timeout: playwright.Float(milliseconds(opts.Timeout)),
	}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}

	if _, err := p.page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (p *playwrightPage) Count(selector string) (int, error) {
	return p.page.Locator(selector).Count()
}

func (p *playwrightPage) ClickFirst(selector string, timeout time.Duration) error {
	err := p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(milliseconds(timeout)),
	})
	if err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

func (p *playwrightPage) FillFirst(selector, value string, timeout time.Duration) error {
	err := p.page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(milliseconds(timeout)),
	})
	if err != nil {
		return fmt.Errorf("fill %q failed: %w", selector, err)
	}
	return nil
}

func (p *playwrightPage) AttributeValues(selector, name string) ([]string, error) {
	locators, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}

	values := make([]string, 0, len(locators))
	for _, locator := range locators {
		value, err := locator.GetAttribute(name)
		if err != nil {
			return values, fmt.Errorf("read %s of %q failed: %w", name, selector, err)
		}
		if value != "" {
			values = append(values, value)
		}
	}
	return values, nil
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
