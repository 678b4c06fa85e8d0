package bokchoy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tebeka/selenium"
)

// Condition is a named page-readiness predicate, checked through the
// promise primitive before a page is considered usable. Pages declare the
// conditions they depend on with DeclareReady; Visit awaits them after the
// on-page verification, and WaitForJS re-checks them on demand.
type Condition struct {
	Desc  string
	Check func(Driver) (bool, error)
	opts  []PromiseOption
}

// JSDefined is a readiness condition satisfied once every named JavaScript
// variable is defined on the current page. With no variables there is
// nothing to await and the condition is immediately satisfied.
func JSDefined(vars ...string) Condition {
	if len(vars) == 0 {
		return Condition{
			Desc:  "no JavaScript variables to await",
			Check: func(Driver) (bool, error) { return true, nil },
		}
	}

	checks := make([]string, len(vars))
	for i, v := range vars {
		checks[i] = fmt.Sprintf("!(typeof %s === 'undefined')", v)
	}
	script := "return " + strings.Join(checks, " && ")

	return Condition{
		Desc: "JavaScript variables defined: " + strings.Join(vars, ", "),
		Check: func(drv Driver) (bool, error) {
			res, err := drv.ExecuteScript(script, nil)
			if err != nil {
				// A not-yet-defined variable is the condition being awaited,
				// not a failure.
				msg := err.Error()
				if strings.Contains(msg, "is not defined") || strings.Contains(msg, "is undefined") {
					return false, nil
				}
				return false, err
			}
			defined, _ := res.(bool)
			return defined, nil
		},
	}
}

// RequireJSModules is a readiness condition satisfied once every named
// RequireJS module has loaded on the current page.
//
// The check hands control to the browser with an async script that installs
// a module depending on the awaited modules; the browser calls back when
// they resolve (or when RequireJS reports an error).
func RequireJSModules(modules ...string) Condition {
	deps := make([]interface{}, len(modules))
	for i, m := range modules {
		deps[i] = m
	}

	return Condition{
		Desc: "RequireJS dependencies loaded: " + strings.Join(modules, ", "),
		Check: func(drv Driver) (bool, error) {
			if err := drv.SetAsyncScriptTimeout(30 * time.Second); err != nil {
				return false, err
			}
			res, err := drv.ExecuteScriptAsync(waitForRequireJS, []interface{}{deps})
			if err != nil {
				// Script timeouts mean the modules have not loaded yet;
				// anything else is a real driver failure.
				if isScriptTimeout(err) {
					return false, nil
				}
				return false, err
			}
			return res == "Success", nil
		},
		opts: []PromiseOption{WithTryLimit(5)},
	}
}

// isScriptTimeout reports whether err is the driver's async-script timeout.
func isScriptTimeout(err error) bool {
	var serr *selenium.Error
	if errors.As(err, &serr) {
		return serr.Err == "script timeout"
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// DeclareReady appends readiness conditions to the page. Conditions are
// awaited in declaration order.
func (po *PageObject) DeclareReady(conds ...Condition) {
	po.ready = append(po.ready, conds...)
}

// WaitForJS blocks until every declared readiness condition is satisfied.
// Pages with no declared conditions return immediately.
func (po *PageObject) WaitForJS() error {
	for _, c := range po.ready {
		check := c.Check
		p := NewPromise(func() (bool, struct{}, error) {
			ok, err := check(po.drv)
			return ok, struct{}{}, err
		}, c.Desc, c.opts...)
		if _, err := p.Fulfill(); err != nil {
			return err
		}
	}
	return nil
}
