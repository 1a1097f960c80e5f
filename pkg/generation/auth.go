package generation

import (
	"context"

	"github.com/entrhq/sitegen/pkg/browser"
	"github.com/entrhq/sitegen/pkg/logging"
)

// AuthState is a state of the sign-in state machine.
type AuthState string

const (
	AuthStart                AuthState = "start"
	AuthHomeLoaded           AuthState = "home_loaded"
	AuthAlreadyAuthenticated AuthState = "already_authenticated"
	AuthNeedsCredentials     AuthState = "needs_credentials"
	AuthSignInUnavailable    AuthState = "sign_in_unavailable"
	AuthSubmitted            AuthState = "submitted"
	AuthAuthenticated        AuthState = "authenticated"
	AuthFailed               AuthState = "failed"
)

// SignedIn reports whether the state is a successful terminal state.
func (s AuthState) SignedIn() bool {
	return s == AuthAlreadyAuthenticated || s == AuthAuthenticated
}

// Authenticator drives a page from the host's home page to a signed-in state.
type Authenticator struct {
	cfg   *Config
	clock Clock
	log   *logging.Logger
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(cfg *Config, clock Clock, log *logging.Logger) *Authenticator {
	if log == nil {
		log = logging.Nop()
	}
	return &Authenticator{cfg: cfg, clock: clock, log: log}
}

// Authenticate runs the state machine and returns the terminal state. A nil
// error always comes with AlreadyAuthenticated or Authenticated; otherwise the
// state is Failed and the error is classified.
func (a *Authenticator) Authenticate(ctx context.Context, page browser.Page, creds Credentials) (AuthState, error) {
	state := AuthStart
	sel := a.cfg.Selectors

	// Start -> HomeLoaded
	if err := page.Goto(a.cfg.BaseURL, browser.NavigateOptions{
		WaitUntil: browser.WaitNetworkIdle,
		Timeout:   a.cfg.NavigationTimeout,
	}); err != nil {
		return AuthFailed, environmentFault("home navigation", err)
	}
	if err := a.clock.Sleep(ctx, a.cfg.HomeSettleDelay); err != nil {
		return AuthFailed, err
	}
	state = a.transition(state, AuthHomeLoaded)

	signedIn, err := anyMatch(page, sel.SignedIn)
	if err != nil {
		a.log.Debugf("signed-in query error: %v", err)
	}
	if signedIn {
		a.transition(state, AuthAlreadyAuthenticated)
		return AuthAlreadyAuthenticated, nil
	}

	signIn, found, err := firstMatch(page, sel.SignIn)
	if err != nil {
		a.log.Debugf("sign-in query error: %v", err)
	}
	if found {
		a.log.Infof("found sign-in control %s, clicking", signIn)
		if err := page.ClickFirst(signIn, a.cfg.ActionTimeout); err != nil {
			return a.fail(state, environmentFault("sign-in click", err))
		}
		if err := a.clock.Sleep(ctx, a.cfg.ClickSettleDelay); err != nil {
			return AuthFailed, err
		}
		state = a.transition(state, AuthNeedsCredentials)
	} else {
		// Some variants render the credential form inline on the home page
		state = a.transition(state, AuthSignInUnavailable)
	}

	identity, found, err := firstMatch(page, sel.Identity)
	if !found {
		return a.fail(state, newError(KindUnsupportedLoginFlow, ReasonUnsupportedLoginFlow,
			queryErr(a.log, "identity field", err)))
	}
	if err := page.FillFirst(identity, creds.Identity, a.cfg.ActionTimeout); err != nil {
		return a.fail(state, environmentFault("identity entry", err))
	}

	secret, found, err := firstMatch(page, sel.Secret)
	if !found {
		return a.fail(state, newError(KindUnsupportedLoginFlow, ReasonUnsupportedLoginFlow,
			queryErr(a.log, "secret field", err)))
	}
	if err := page.FillFirst(secret, creds.Secret, a.cfg.ActionTimeout); err != nil {
		return a.fail(state, environmentFault("secret entry", err))
	}

	submit, found, err := firstMatch(page, sel.Submit)
	if !found {
		return a.fail(state, newError(KindLoginFailure, ReasonLoginFailure,
			queryErr(a.log, "login submit", err)))
	}
	if err := page.ClickFirst(submit, a.cfg.ActionTimeout); err != nil {
		return a.fail(state, environmentFault("login submit", err))
	}
	state = a.transition(state, AuthSubmitted)

	if err := a.clock.Sleep(ctx, a.cfg.LoginSettleDelay); err != nil {
		return AuthFailed, err
	}

	signedIn, err = anyMatch(page, sel.SignedIn)
	if !signedIn {
		return a.fail(state, newError(KindLoginFailure, ReasonLoginFailure,
			queryErr(a.log, "signed-in", err)))
	}

	a.transition(state, AuthAuthenticated)
	return AuthAuthenticated, nil
}

func (a *Authenticator) transition(from, to AuthState) AuthState {
	a.log.Debugf("auth %s -> %s", from, to)
	return to
}

func (a *Authenticator) fail(from AuthState, err *Error) (AuthState, error) {
	a.log.Warnf("auth %s -> %s: %v", from, AuthFailed, err)
	return AuthFailed, err
}
