package generation

import (
	"context"

	"github.com/entrhq/sitegen/pkg/browser"
	"github.com/entrhq/sitegen/pkg/logging"
)

// Submitter opens a new project, enters the prompt and starts generation.
type Submitter struct {
	cfg   *Config
	clock Clock
	log   *logging.Logger
}

// NewSubmitter creates a submitter.
func NewSubmitter(cfg *Config, clock Clock, log *logging.Logger) *Submitter {
	if log == nil {
		log = logging.Nop()
	}
	return &Submitter{cfg: cfg, clock: clock, log: log}
}

// Submit enters prompt into a new project and clicks the generate control.
func (s *Submitter) Submit(ctx context.Context, page browser.Page, prompt string) error {
	sel := s.cfg.Selectors

	newProject, found, err := firstMatch(page, sel.NewProject)
	if found {
		s.log.Infof("opening new project via %s", newProject)
		if err := page.ClickFirst(newProject, s.cfg.ActionTimeout); err != nil {
			return environmentFault("new project click", err)
		}
	} else {
		queryErr(s.log, "new-project control", err)
		target := s.cfg.newProjectURL()
		s.log.Infof("no new-project control, navigating to %s", target)
		if err := page.Goto(target, browser.NavigateOptions{
			WaitUntil: browser.WaitNetworkIdle,
			Timeout:   s.cfg.NavigationTimeout,
		}); err != nil {
			return environmentFault("new project navigation", err)
		}
	}
	if err := s.clock.Sleep(ctx, s.cfg.ClickSettleDelay); err != nil {
		return err
	}

	input, found, err := firstMatch(page, sel.PromptInput)
	if !found {
		return newError(KindInputNotFound, ReasonInputNotFound, queryErr(s.log, "prompt input", err))
	}
	s.log.Infof("entering prompt (%d chars) into %s", len(prompt), input)
	if err := page.FillFirst(input, prompt, s.cfg.ActionTimeout); err != nil {
		return environmentFault("prompt entry", err)
	}
	if err := s.clock.Sleep(ctx, s.cfg.PromptSettleDelay); err != nil {
		return err
	}

	generate, found, err := firstMatch(page, sel.Generate)
	if !found {
		return newError(KindInputNotFound, "generate control not found", queryErr(s.log, "generate control", err))
	}
	s.log.Infof("submitting prompt via %s", generate)
	if err := page.ClickFirst(generate, s.cfg.ActionTimeout); err != nil {
		return environmentFault("generate click", err)
	}

	return s.clock.Sleep(ctx, s.cfg.GenerateSettleDelay)
}
