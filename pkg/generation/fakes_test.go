package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/sitegen/pkg/browser"
)

// fakePage is a scripted browser.Page. Counts and attribute values are looked
// up by selector; hooks let a test change the page in response to actions.
type fakePage struct {
	counts    map[string]int
	countErrs map[string]error
	attrs     map[string][]string
	attrErrs  map[string]error
	content   string
	url       string

	gotoErr       error
	clickErr      error
	fillErr       error
	screenshotErr error
	panicOn       string

	onGoto  func(p *fakePage, url string)
	onClick func(p *fakePage, selector string)

	gotos        []string
	countCalls   []string
	clicks       []string
	fills        []fill
	attrCalls    []string
	contentCalls int
	urlCalls     int
	screenshots  []string
	closes       int
	events       []string
}

type fill struct {
	selector string
	value    string
}

func newFakePage() *fakePage {
	return &fakePage{
		counts:    map[string]int{},
		countErrs: map[string]error{},
		attrs:     map[string][]string{},
		attrErrs:  map[string]error{},
	}
}

func (p *fakePage) maybePanic(method string) {
	if p.panicOn == method {
		panic(fmt.Sprintf("%s exploded", method))
	}
}

func (p *fakePage) Goto(url string, opts browser.NavigateOptions) error {
	p.maybePanic("Goto")
	p.gotos = append(p.gotos, url)
	if p.onGoto != nil {
		p.onGoto(p, url)
	}
	return p.gotoErr
}

func (p *fakePage) Count(selector string) (int, error) {
	p.maybePanic("Count")
	p.countCalls = append(p.countCalls, selector)
	if err := p.countErrs[selector]; err != nil {
		return 0, err
	}
	return p.counts[selector], nil
}

func (p *fakePage) ClickFirst(selector string, timeout time.Duration) error {
	p.maybePanic("ClickFirst")
	p.clicks = append(p.clicks, selector)
	if p.clickErr != nil {
		return p.clickErr
	}
	if p.onClick != nil {
		p.onClick(p, selector)
	}
	return nil
}

func (p *fakePage) FillFirst(selector, value string, timeout time.Duration) error {
	p.maybePanic("FillFirst")
	p.fills = append(p.fills, fill{selector: selector, value: value})
	return p.fillErr
}

func (p *fakePage) AttributeValues(selector, name string) ([]string, error) {
	p.maybePanic("AttributeValues")
	p.attrCalls = append(p.attrCalls, selector)
	if err := p.attrErrs[selector]; err != nil {
		return nil, err
	}
	return p.attrs[selector], nil
}

func (p *fakePage) Content() (string, error) {
	p.contentCalls++
	return p.content, nil
}

func (p *fakePage) URL() string {
	p.urlCalls++
	return p.url
}

func (p *fakePage) Screenshot(path string) error {
	p.screenshots = append(p.screenshots, path)
	p.events = append(p.events, "screenshot")
	return p.screenshotErr
}

func (p *fakePage) Close() error {
	p.closes++
	p.events = append(p.events, "close")
	return nil
}

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// fakeOpener hands out sessions over the same fake page.
type fakeOpener struct {
	page  *fakePage
	err   error
	opens int
	opts  []browser.SessionOptions
}

func (o *fakeOpener) Open(ctx context.Context, opts browser.SessionOptions) (*browser.Session, error) {
	o.opens++
	o.opts = append(o.opts, opts)
	if o.err != nil {
		return nil, o.err
	}
	return browser.NewSession(nil, nil, o.page, nil), nil
}

type fakeRecorder struct {
	attempts []string
	requests []string
}

func (r *fakeRecorder) AttemptFinished(outcome string) {
	r.attempts = append(r.attempts, outcome)
}

func (r *fakeRecorder) RequestFinished(success bool, kind string, d time.Duration) {
	r.requests = append(r.requests, fmt.Sprintf("%t/%s", success, kind))
}

// testConfig is DefaultConfig with a test preview host and a distinctive retry delay.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PreviewHosts = []string{"*.examplehost.app"}
	cfg.RetryDelay = 7 * time.Second
	return cfg
}

var testCreds = Credentials{Identity: "dev@example.com", Secret: "hunter2"}

// loginPage returns a page that shows a full sign-in form. The signed-in
// marker appears once the submit control has been clicked succeedOn times;
// zero means never.
func loginPage(succeedOn int) *fakePage {
	sel := DefaultSelectors()
	p := newFakePage()
	p.counts[sel.SignIn[0]] = 1
	p.counts[sel.Identity[0]] = 1
	p.counts[sel.Secret[0]] = 1
	p.counts[sel.Submit[0]] = 1

	submits := 0
	p.onClick = func(p *fakePage, selector string) {
		if selector != sel.Submit[0] {
			return
		}
		submits++
		if succeedOn > 0 && submits >= succeedOn {
			p.counts[sel.SignedIn[0]] = 1
		}
	}
	return p
}

// withGenerator makes the page accept a prompt.
func withGenerator(p *fakePage) *fakePage {
	sel := DefaultSelectors()
	p.counts[sel.PromptInput[0]] = 1
	p.counts[sel.Generate[0]] = 1
	return p
}

func (p *fakePage) fillsTo(selector string) []string {
	var values []string
	for _, f := range p.fills {
		if f.selector == selector {
			values = append(values, f.value)
		}
	}
	return values
}
