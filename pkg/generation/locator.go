package generation

import (
	"github.com/entrhq/sitegen/pkg/browser"
	"github.com/entrhq/sitegen/pkg/logging"
)

// firstMatch tries each selector in order and returns the first one that
// currently matches at least one element. Query errors count as a miss for that
// selector so a single malformed strategy cannot hide the ones after it; the
// last error is returned when nothing matched.
func firstMatch(page browser.Page, selectors []string) (string, bool, error) {
	var lastErr error
	for _, selector := range selectors {
		n, err := page.Count(selector)
		if err != nil {
			lastErr = err
			continue
		}
		if n > 0 {
			return selector, true, nil
		}
	}
	return "", false, lastErr
}

// anyMatch reports whether any selector matches.
func anyMatch(page browser.Page, selectors []string) (bool, error) {
	_, ok, err := firstMatch(page, selectors)
	return ok, err
}

// queryErr logs the error of a lookup that matched nothing and returns it as
// the cause for the classified failure.
func queryErr(log *logging.Logger, what string, err error) error {
	if err != nil {
		log.Debugf("%s query error: %v", what, err)
	}
	return err
}
