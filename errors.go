package bokchoy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tebeka/selenium"
)

// Error types.
var (
	// ErrNotVisitable is the error returned when Visit is called on a page
	// that declares no URL (for example a fragment reachable only through
	// another page's interactions).
	ErrNotVisitable = errors.New("page cannot be visited directly")

	// ErrBadLocator is the error returned when a Locator does not specify
	// exactly one selection strategy.
	ErrBadLocator = errors.New("locator must specify exactly one selection strategy")

	// ErrBadFilter is the error returned when Filter is given neither or
	// both of a predicate and an attribute map.
	ErrBadFilter = errors.New("filter requires either a predicate or attribute values, but not both")

	// ErrBrowserConfig is the error returned when the browser environment
	// variables are missing or inconsistent.
	ErrBrowserConfig = errors.New("browser configuration")
)

// BrokenPromiseError is returned when a promise exhausts its timeout or try
// limit without being satisfied.
type BrokenPromiseError struct {
	// Description identifies the condition that was awaited.
	Description string
}

// Error satisfies the error interface.
func (e *BrokenPromiseError) Error() string {
	return fmt.Sprintf("promise not satisfied: %s", e.Description)
}

// WrongPageError is returned when a guarded page object method is invoked
// while the browser is not on the page the object represents.
type WrongPageError struct {
	Page string
	URL  string
}

// Error satisfies the error interface.
func (e *WrongPageError) Error() string {
	return fmt.Sprintf("not on the correct page to use %s (url: %q)", e.Page, e.URL)
}

// PageLoadError is returned when navigating to a page fails, whether because
// the URL is malformed, the driver could not load it, or the page never
// verified within the load timeout.
type PageLoadError struct {
	Page string
	URL  string
	Err  error
}

// Error satisfies the error interface.
func (e *PageLoadError) Error() string {
	return fmt.Sprintf("could not load page %s at URL %q: %v", e.Page, e.URL, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *PageLoadError) Unwrap() error {
	return e.Err
}

// transientDriverErrors are the WebDriver error codes that indicate a timing
// problem with the live page rather than a test bug.
var transientDriverErrors = []string{
	"stale element reference",
	"no such element",
	"element not interactable",
	"element click intercepted",
	"invalid element state",
}

// IsTransientDriverError reports whether err is a driver error worth
// retrying, such as a stale element reference or an element that has not
// rendered yet. Query retry loops absorb these; everything else propagates.
func IsTransientDriverError(err error) bool {
	if err == nil {
		return false
	}

	var serr *selenium.Error
	if errors.As(err, &serr) {
		for _, code := range transientDriverErrors {
			if serr.Err == code {
				return true
			}
		}
		return false
	}

	// Legacy wire responses surface as plain error strings.
	msg := err.Error()
	for _, code := range transientDriverErrors {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}
