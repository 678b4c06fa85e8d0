package bokchoy

import (
	"fmt"
	"time"

	"github.com/tebeka/selenium"
)

// Driver is the subset of selenium.WebDriver the framework drives. It is an
// interface so that tests can substitute a fake browser session.
type Driver interface {
	Get(url string) error
	Refresh() error
	Title() (string, error)
	CurrentURL() (string, error)
	PageSource() (string, error)
	FindElements(by, value string) ([]selenium.WebElement, error)
	ExecuteScript(script string, args []interface{}) (interface{}, error)
	ExecuteScriptAsync(script string, args []interface{}) (interface{}, error)
	SetAsyncScriptTimeout(timeout time.Duration) error
	AcceptAlert() error
	DismissAlert() error
}

// Locator selects elements on the page. Exactly one strategy must be set;
// anything else is a usage error surfaced when the query executes.
type Locator struct {
	CSS   string
	XPath string
	ID    string
}

// strategy maps the locator onto the WebDriver wire strategy.
func (l Locator) strategy() (by, value string, err error) {
	set := 0
	if l.CSS != "" {
		set, by, value = set+1, selenium.ByCSSSelector, l.CSS
	}
	if l.XPath != "" {
		set, by, value = set+1, selenium.ByXPATH, l.XPath
	}
	if l.ID != "" {
		set, by, value = set+1, selenium.ByID, l.ID
	}
	if set != 1 {
		return "", "", fmt.Errorf("%w: %s", ErrBadLocator, l)
	}
	return by, value, nil
}

// String renders the locator for diagnostics.
func (l Locator) String() string {
	switch {
	case l.CSS != "":
		return fmt.Sprintf("css=%q", l.CSS)
	case l.XPath != "":
		return fmt.Sprintf("xpath=%q", l.XPath)
	case l.ID != "":
		return fmt.Sprintf("id=%q", l.ID)
	}
	return "<empty locator>"
}

// ElementQuery is a Query over the DOM elements matching a locator,
// re-seeded from the live page on every execution. Transient WebDriver
// errors (stale references, elements not yet rendered) are absorbed and
// retried by its terminal operations.
type ElementQuery struct {
	drv Driver
	loc Locator
	q   *Query[selenium.WebElement]
}

// NewElementQuery builds a query matching loc against the whole page.
func NewElementQuery(drv Driver, loc Locator) *ElementQuery {
	seed := func() ([]selenium.WebElement, error) {
		by, value, err := loc.strategy()
		if err != nil {
			return nil, err
		}
		return drv.FindElements(by, value)
	}
	q := NewQuery(seed, fmt.Sprintf("q(%s)", loc))
	q.transient = IsTransientDriverError
	return &ElementQuery{drv: drv, loc: loc, q: q}
}

// wrap rebinds a derived element query to the same driver and locator.
func (eq *ElementQuery) wrap(q *Query[selenium.WebElement]) *ElementQuery {
	return &ElementQuery{drv: eq.drv, loc: eq.loc, q: q}
}

// Query exposes the underlying generic query for custom chains.
func (eq *ElementQuery) Query() *Query[selenium.WebElement] {
	return eq.q
}

// First selects only the first matched element; empty stays empty.
func (eq *ElementQuery) First() *ElementQuery {
	return eq.wrap(eq.q.First())
}

// Nth selects the matched element at index (0-based); out of range yields
// an empty result.
func (eq *ElementQuery) Nth(index int) *ElementQuery {
	return eq.wrap(eq.q.Nth(index))
}

// Filter keeps only elements matching pred, or, when attrs is given
// instead, only elements whose attributes all equal the given values.
// Supplying neither or both forms is a usage error.
func (eq *ElementQuery) Filter(pred func(selenium.WebElement) bool, attrs map[string]string) *ElementQuery {
	if (pred == nil) == (len(attrs) == 0) {
		bad := eq.q.Transform(func([]selenium.WebElement) ([]selenium.WebElement, error) {
			return nil, ErrBadFilter
		}, "filter(?)")
		return eq.wrap(bad)
	}

	if pred != nil {
		return eq.wrap(eq.q.Filter(pred, "fn"))
	}

	desc := fmt.Sprintf("filter(%v)", attrs)
	return eq.wrap(eq.q.Transform(func(xs []selenium.WebElement) ([]selenium.WebElement, error) {
		var out []selenium.WebElement
		for _, el := range xs {
			match := true
			for name, want := range attrs {
				got, err := el.GetAttribute(name)
				if err != nil {
					return nil, err
				}
				if got != want {
					match = false
					break
				}
			}
			if match {
				out = append(out, el)
			}
		}
		return out, nil
	}, desc))
}

// Within scopes a sub-query to the elements matched so far: child is
// located inside each matched element, in order.
func (eq *ElementQuery) Within(child Locator) *ElementQuery {
	sub := FlatMapErr(eq.q, func(el selenium.WebElement) ([]selenium.WebElement, error) {
		by, value, err := child.strategy()
		if err != nil {
			return nil, err
		}
		return el.FindElements(by, value)
	}, child.String())
	return &ElementQuery{drv: eq.drv, loc: eq.loc, q: sub}
}

// Execute runs the query with the supplied retry parameters.
func (eq *ElementQuery) Execute(opts ...PromiseOption) ([]selenium.WebElement, error) {
	return eq.q.Execute(opts...)
}

// Results runs the query with default retry parameters, memoizing the
// matched elements on this query value.
func (eq *ElementQuery) Results() ([]selenium.WebElement, error) {
	return eq.q.Results()
}

// Reset clears the memoized results.
func (eq *ElementQuery) Reset() {
	eq.q.Reset()
}

// Present reports whether the query matches any elements.
func (eq *ElementQuery) Present() (bool, error) {
	return eq.q.Present()
}

// Len returns the number of matched elements.
func (eq *ElementQuery) Len() (int, error) {
	return eq.q.Len()
}

// Text retrieves the text content of each matched element.
func (eq *ElementQuery) Text() ([]string, error) {
	return MapErr(eq.q, selenium.WebElement.Text, "text").Results()
}

// HTML retrieves the inner markup of each matched element.
func (eq *ElementQuery) HTML() ([]string, error) {
	return MapErr(eq.q, func(el selenium.WebElement) (string, error) {
		return el.GetAttribute("innerHTML")
	}, "html").Results()
}

// Attrs retrieves the named attribute's value from each matched element.
func (eq *ElementQuery) Attrs(name string) ([]string, error) {
	return MapErr(eq.q, func(el selenium.WebElement) (string, error) {
		return el.GetAttribute(name)
	}, fmt.Sprintf("attrs(%q)", name)).Results()
}

// Click clicks every matched element, immediately, with retries.
func (eq *ElementQuery) Click() error {
	_, err := MapErr(eq.q, func(el selenium.WebElement) (struct{}, error) {
		return struct{}{}, el.Click()
	}, "click()").Execute()
	return err
}

// Fill clears every matched element and types text into it. A retried fill
// is not rolled back; the last successful attempt wins.
func (eq *ElementQuery) Fill(text string) error {
	_, err := MapErr(eq.q, func(el selenium.WebElement) (struct{}, error) {
		if err := el.Clear(); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, el.SendKeys(text)
	}, fmt.Sprintf("fill(%q)", text)).Execute()
	return err
}

// Selected reports whether every matched element is selected; an empty
// match reports false.
func (eq *ElementQuery) Selected() (bool, error) {
	return eq.every(selenium.WebElement.IsSelected, "selected")
}

// Visible reports whether every matched element is displayed; an empty
// match reports false.
func (eq *ElementQuery) Visible() (bool, error) {
	return eq.every(selenium.WebElement.IsDisplayed, "visible")
}

// Invisible reports whether the matched elements are present but none of
// the visibility checks pass, i.e. present-but-not-displayed.
func (eq *ElementQuery) Invisible() (bool, error) {
	present, err := eq.Present()
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}
	visible, err := eq.Visible()
	if err != nil {
		return false, err
	}
	return !visible, nil
}

// every maps a boolean accessor over the match and ANDs the results.
func (eq *ElementQuery) every(fn func(selenium.WebElement) (bool, error), desc string) (bool, error) {
	states, err := MapErr(eq.q, fn, desc).Results()
	if err != nil {
		return false, err
	}
	if len(states) == 0 {
		return false, nil
	}
	for _, ok := range states {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Focused reports whether the document's currently focused element is among
// the elements this query matches. Chained narrowing (First, Nth, Filter,
// Within) applies: only the narrowed matches are compared against the
// active element.
func (eq *ElementQuery) Focused() (bool, error) {
	run := func() (bool, error) {
		els, err := eq.q.run()
		if err != nil {
			return false, err
		}
		for _, el := range els {
			res, err := eq.drv.ExecuteScript(focusedJS, []interface{}{el})
			if err != nil {
				return false, err
			}
			focused, ok := res.(bool)
			if !ok {
				return false, fmt.Errorf("focused check returned %T, want bool", res)
			}
			if focused {
				return true, nil
			}
		}
		return false, nil
	}

	p := NewPromise(noError(run, IsTransientDriverError),
		fmt.Sprintf("focused state of %s", eq.q), WithTryLimit(5))
	return p.Fulfill()
}
