package bokchoy

import (
	"sync"
	"time"

	"github.com/tebeka/selenium"
)

// fakeDriver is an in-memory Driver for exercising queries and page objects
// without a browser.
type fakeDriver struct {
	mu sync.Mutex

	title  string
	url    string
	source string

	gets      []string
	getErr    error
	refreshes int

	// elements maps "<by> <value>" to the matched elements.
	elements map[string][]selenium.WebElement

	// findFailures makes the next N FindElements calls fail with findErr.
	findFailures int
	findErr      error
	finds        int

	// script, when set, handles ExecuteScript calls; scriptAsync likewise.
	script      func(script string, args []interface{}) (interface{}, error)
	scriptAsync func(script string, args []interface{}) (interface{}, error)
	scripts     []string

	asyncTimeout time.Duration

	accepted  int
	dismissed int
}

func elementsKey(by, value string) string {
	return by + " " + value
}

func (d *fakeDriver) setElements(by, value string, els ...selenium.WebElement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.elements == nil {
		d.elements = map[string][]selenium.WebElement{}
	}
	d.elements[elementsKey(by, value)] = els
}

func (d *fakeDriver) Get(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gets = append(d.gets, url)
	if d.getErr != nil {
		return d.getErr
	}
	d.url = url
	return nil
}

func (d *fakeDriver) Refresh() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshes++
	return nil
}

func (d *fakeDriver) Title() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title, nil
}

func (d *fakeDriver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *fakeDriver) PageSource() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source, nil
}

func (d *fakeDriver) FindElements(by, value string) ([]selenium.WebElement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finds++
	if d.findFailures > 0 {
		d.findFailures--
		return nil, d.findErr
	}
	return d.elements[elementsKey(by, value)], nil
}

func (d *fakeDriver) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	d.mu.Lock()
	d.scripts = append(d.scripts, script)
	fn := d.script
	d.mu.Unlock()
	if fn != nil {
		return fn(script, args)
	}
	return nil, nil
}

func (d *fakeDriver) ExecuteScriptAsync(script string, args []interface{}) (interface{}, error) {
	d.mu.Lock()
	d.scripts = append(d.scripts, script)
	fn := d.scriptAsync
	d.mu.Unlock()
	if fn != nil {
		return fn(script, args)
	}
	return nil, nil
}

func (d *fakeDriver) SetAsyncScriptTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.asyncTimeout = timeout
	return nil
}

func (d *fakeDriver) AcceptAlert() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accepted++
	return nil
}

func (d *fakeDriver) DismissAlert() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dismissed++
	return nil
}

// fakeElement is an in-memory selenium.WebElement. The embedded interface
// panics for anything not overridden, which keeps misuse loud.
type fakeElement struct {
	selenium.WebElement

	text      string
	attrs     map[string]string
	displayed bool
	selected  bool

	// children maps "<by> <value>" to nested elements, for Within.
	children map[string][]selenium.WebElement

	// clickFailures makes the next N Click calls fail with a stale
	// reference, for retry tests.
	clickFailures int

	clicks int
	clears int
	typed  []string
}

func (e *fakeElement) Text() (string, error) {
	return e.text, nil
}

func (e *fakeElement) GetAttribute(name string) (string, error) {
	return e.attrs[name], nil
}

func (e *fakeElement) IsDisplayed() (bool, error) {
	return e.displayed, nil
}

func (e *fakeElement) IsSelected() (bool, error) {
	return e.selected, nil
}

func (e *fakeElement) Click() error {
	if e.clickFailures > 0 {
		e.clickFailures--
		return staleErr()
	}
	e.clicks++
	return nil
}

func (e *fakeElement) Clear() error {
	e.clears++
	return nil
}

func (e *fakeElement) SendKeys(keys string) error {
	e.typed = append(e.typed, keys)
	return nil
}

func (e *fakeElement) FindElements(by, value string) ([]selenium.WebElement, error) {
	return e.children[elementsKey(by, value)], nil
}

// staleErr builds the WebDriver error a stale element produces.
func staleErr() error {
	return &selenium.Error{
		Err:     "stale element reference",
		Message: "element is not attached to the page document",
	}
}
