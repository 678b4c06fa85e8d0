package bokchoy

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Page is the contract a page object type fulfills: it knows how to
// recognize its page in the browser and where that page lives.
//
// IsBrowserOnPage must be side-effect-free and fast; it runs before every
// guarded operation. Typical checks are the browser title, the URL, or the
// presence of a marker element.
//
// URL returns the page's address, or "" for pages that cannot be navigated
// to directly (fragments reached through another page's interactions);
// visiting such a page fails with ErrNotVisitable.
type Page interface {
	IsBrowserOnPage() bool
	URL() string
}

// LogFunc is the common logging func type.
type LogFunc func(string, ...interface{})

// PageObject encapsulates user interactions with a specific part of a web
// application. It is meant to be embedded in a concrete Page type:
//
//	type SearchPage struct {
//		*bokchoy.PageObject
//	}
//
//	func NewSearchPage(drv bokchoy.Driver) *SearchPage {
//		p := &SearchPage{}
//		p.PageObject = bokchoy.NewPageObject(drv, p)
//		return p
//	}
//
// Page objects do their best to verify that they are only used while the
// browser is on the page containing the object. Methods of the concrete
// type should run through Guarded (or call VerifyPage first), which fails
// with *WrongPageError when the browser has wandered off. Identity methods
// (IsBrowserOnPage, URL) and explicit wait helpers stay unguarded.
type PageObject struct {
	drv         Driver
	page        Page
	ready       []Condition
	auditor     Auditor
	logf        LogFunc
	loadTimeout time.Duration
}

// PageOption is a page object configuration option.
type PageOption func(*PageObject)

// WithLogf is a page option to specify a func to receive advisory warnings.
func WithLogf(f LogFunc) PageOption {
	return func(po *PageObject) {
		po.logf = f
	}
}

// WithAuditor is a page option to attach an accessibility auditor, run at
// the end of a successful Visit when VERIFY_ACCESSIBILITY is enabled.
func WithAuditor(a Auditor) PageOption {
	return func(po *PageObject) {
		po.auditor = a
	}
}

// WithLoadTimeout is a page option to bound how long Visit waits for the
// page to verify after navigation. It defaults to DefaultTimeout.
func WithLoadTimeout(d time.Duration) PageOption {
	return func(po *PageObject) {
		po.loadTimeout = d
	}
}

// NewPageObject binds a page object to a driver and the concrete page
// implementation that embeds it.
func NewPageObject(drv Driver, page Page, opts ...PageOption) *PageObject {
	po := &PageObject{
		drv:         drv,
		page:        page,
		logf:        log.Printf,
		loadTimeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(po)
	}
	return po
}

// Driver exposes the underlying browser session, for page methods that need
// to run custom scripts.
func (po *PageObject) Driver() Driver {
	return po.drv
}

// pageName identifies a page for error messages.
func pageName(p Page) string {
	return fmt.Sprintf("%T", p)
}

// VerifyPage asks the page whether the browser is on it; if not, it returns
// a *WrongPageError. Guarded methods call this immediately before running.
func (po *PageObject) VerifyPage() error {
	if !po.page.IsBrowserOnPage() {
		return &WrongPageError{Page: pageName(po.page), URL: po.page.URL()}
	}
	return nil
}

// Guarded re-verifies page identity and only then runs fn. The verification
// happens on every call; there is no cached "on page" state.
func (po *PageObject) Guarded(fn func() error) error {
	if err := po.VerifyPage(); err != nil {
		return err
	}
	return fn()
}

// GuardedValue is Guarded for methods that produce a value.
func GuardedValue[T any](po *PageObject, fn func() (T, error)) (T, error) {
	if err := po.VerifyPage(); err != nil {
		var zero T
		return zero, err
	}
	return fn()
}

// Q builds an element query scoped to this page's browser session.
func (po *PageObject) Q(loc Locator) *ElementQuery {
	return NewElementQuery(po.drv, loc)
}

// Warning logs an advisory message. Page objects should never assert or
// swallow errors, but they can issue warnings to make tests easier to
// debug.
func (po *PageObject) Warning(msg string) {
	po.logf("%s: %s", pageName(po.page), msg)
}

// ValidateURL reports whether the URL has a scheme and a hostname, and, if
// a port is present, that it parses as an integer.
func ValidateURL(rawurl string) bool {
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	if u.Scheme == "" || u.Host == "" {
		return false
	}
	// url.Parse accepts a trailing colon; treat the empty port as malformed.
	if strings.HasSuffix(u.Host, ":") {
		return false
	}
	if port := u.Port(); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return false
		}
	}
	return true
}

// Visit opens the page in the browser and blocks until the page reports
// that it has loaded.
//
// Navigation failures, malformed URLs, and load-verification timeouts are
// all reported as *PageLoadError carrying the page identity and URL. Pages
// without a URL fail with ErrNotVisitable. When the page has declared
// readiness conditions they are awaited next, and when accessibility
// verification is enabled the attached auditor runs last.
func (po *PageObject) Visit() error {
	name := pageName(po.page)
	pageURL := po.page.URL()
	if pageURL == "" {
		return fmt.Errorf("%w: %s", ErrNotVisitable, name)
	}
	if !ValidateURL(pageURL) {
		return &PageLoadError{Page: name, URL: pageURL, Err: errors.New("invalid URL")}
	}

	if err := po.drv.Get(pageURL); err != nil {
		return &PageLoadError{Page: name, URL: pageURL, Err: err}
	}

	if err := po.WaitForPage(po.loadTimeout); err != nil {
		return &PageLoadError{Page: name, URL: pageURL, Err: err}
	}

	if err := po.WaitForJS(); err != nil {
		return err
	}

	if po.auditor != nil && verifyAccessibility() {
		return po.auditor.Check()
	}
	return nil
}

// verifyAccessibility reports whether visits should audit accessibility,
// controlled by the VERIFY_ACCESSIBILITY environment variable.
func verifyAccessibility() bool {
	v, err := strconv.ParseBool(os.Getenv("VERIFY_ACCESSIBILITY"))
	return err == nil && v
}

// WaitForPage blocks until this page becomes current, for example after an
// action on a different page is expected to navigate here. It is always
// unguarded.
func (po *PageObject) WaitForPage(timeout time.Duration) error {
	return Wait(po.page.IsBrowserOnPage,
		fmt.Sprintf("loaded page %s", pageName(po.page)),
		WithTimeout(timeout))
}

// WaitFor blocks until check reports true, with this page's identity in the
// failure diagnostics.
func (po *PageObject) WaitFor(check func() bool, desc string, opts ...PromiseOption) error {
	return Wait(check, desc, opts...)
}

// WaitForElementPresence blocks until an element matching the CSS selector
// is present in the DOM.
func (po *PageObject) WaitForElementPresence(css, desc string, opts ...PromiseOption) error {
	return po.WaitFor(func() bool {
		ok, err := NewElementQuery(po.drv, Locator{CSS: css}).Present()
		return err == nil && ok
	}, desc, opts...)
}

// WaitForElementAbsence blocks until no element matches the CSS selector.
func (po *PageObject) WaitForElementAbsence(css, desc string, opts ...PromiseOption) error {
	return po.WaitFor(func() bool {
		ok, err := NewElementQuery(po.drv, Locator{CSS: css}).Present()
		return err == nil && !ok
	}, desc, opts...)
}

// WaitForElementVisibility blocks until the elements matching the CSS
// selector are present and displayed.
func (po *PageObject) WaitForElementVisibility(css, desc string, opts ...PromiseOption) error {
	return po.WaitFor(func() bool {
		ok, err := NewElementQuery(po.drv, Locator{CSS: css}).Visible()
		return err == nil && ok
	}, desc, opts...)
}

// WaitForElementInvisibility blocks until the elements matching the CSS
// selector are present but not displayed.
func (po *PageObject) WaitForElementInvisibility(css, desc string, opts ...PromiseOption) error {
	return po.WaitFor(func() bool {
		ok, err := NewElementQuery(po.drv, Locator{CSS: css}).Invisible()
		return err == nil && ok
	}, desc, opts...)
}

// HandleAlert stubs the browser's confirm/alert dialogs to resolve with the
// given outcome, then runs action. This keeps dialog handling working
// uniformly across browsers.
func (po *PageObject) HandleAlert(accept bool, action func() error) error {
	if _, err := po.drv.ExecuteScript(stubAlertsJS, []interface{}{accept}); err != nil {
		return err
	}
	return action()
}

// ScrollTo scrolls the first element matching the CSS selector into view.
func (po *PageObject) ScrollTo(css string) error {
	_, err := po.drv.ExecuteScript(scrollToJS, []interface{}{css})
	return err
}

// DisableJQueryAnimations makes jQuery state changes take effect
// immediately, which removes a common source of timing flakiness.
func (po *PageObject) DisableJQueryAnimations() error {
	_, err := po.drv.ExecuteScript("jQuery.fx.off = true;", nil)
	return err
}
