// Package browser provides the Playwright-backed session handle used by the
// generation pipeline.
//
// A Launcher owns the Playwright driver. Each call to Open starts a dedicated
// Chromium process with a single context and a single page and returns it as a
// Session. A Session belongs to exactly one generation request; Close releases
// page, context and browser in that order, tolerates missing handles, and never
// fails.
//
// The pipeline talks to the page only through the Page interface, which keeps
// every blocking call bounded by an explicit timeout and lets tests substitute a
// scripted page.
//
// # Example Usage
//
//	launcher := browser.NewLauncher(browser.WithMaxSessions(2))
//	if err := launcher.Initialize(); err != nil {
//	    return err
//	}
//	defer launcher.Shutdown()
//
//	session, err := launcher.Open(ctx, browser.SessionOptions{Headless: true})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	err = session.Page.Goto("https://example.com", browser.NavigateOptions{
//	    WaitUntil: browser.WaitNetworkIdle,
//	})
package browser
