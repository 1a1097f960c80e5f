// Package generation drives a site-builder web application through its browser
// UI to turn a prompt into a published preview URL.
//
// A Service runs one sequential pipeline per Request:
//
//  1. open a browser session (once per request, reused across attempts)
//  2. Authenticator: sign in, trying ordered selector strategies for each control
//  3. Submitter: open a new project, enter the prompt, start generation
//  4. PreviewResolver: poll the page, running prioritized detectors each tick,
//     until a preview URL appears or the budget runs out
//
// Retryable failures repeat the pass after RetryDelay, up to MaxAttempts; fatal
// failures stop at once. Every failure is classified into an Error Kind and
// reported in the Result, which Generate always returns; it never returns a Go
// error and always closes the session it opened.
package generation
