package bokchoy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Auditor audits the current page for accessibility issues. The ruleset
// JavaScript itself is an opaque payload; the framework only injects it,
// collects violation records, and reports them.
type Auditor interface {
	// Do runs the audit and returns the violations found.
	Do() ([]Violation, error)

	// Check runs the audit and converts violations into a single
	// *AccessibilityError; it returns nil when the page is clean.
	Check() error
}

// Violation is one accessibility rule violation reported by the ruleset.
type Violation struct {
	ID      string          `json:"id"`
	Impact  string          `json:"impact"`
	Help    string          `json:"help"`
	HelpURL string          `json:"helpUrl"`
	Nodes   []ViolationNode `json:"nodes"`
}

// ViolationNode is one DOM node implicated in a violation.
type ViolationNode struct {
	HTML    string           `json:"html"`
	Target  []string         `json:"target"`
	Message string           `json:"message"`
	Any     []ViolationCheck `json:"any"`
	All     []ViolationCheck `json:"all"`
	None    []ViolationCheck `json:"none"`
}

// ViolationCheck is one failed check within a violation node.
type ViolationCheck struct {
	Message string `json:"message"`
}

// messages collects the distinct non-empty check messages for a node.
func (n ViolationNode) messages() []string {
	seen := map[string]bool{}
	var out []string
	add := func(msg string) {
		if msg != "" && !seen[msg] {
			seen[msg] = true
			out = append(out, msg)
		}
	}
	add(n.Message)
	for _, group := range [][]ViolationCheck{n.Any, n.All, n.None} {
		for _, c := range group {
			add(c.Message)
		}
	}
	return out
}

// AccessibilityError is returned when a page violates one or more
// accessibility rules.
type AccessibilityError struct {
	URL        string
	Violations []Violation
}

// Error satisfies the error interface, rendering every violation with its
// rule, severity, and implicated nodes.
func (e *AccessibilityError) Error() string {
	total := 0
	for _, v := range e.Violations {
		total += len(v.Nodes)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL %q has %d accessibility errors:\n", e.URL, total)
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\nSeverity: %s\nRule ID: %s\nHelp URL: %s\n", v.Impact, v.ID, v.HelpURL)
		for _, n := range v.Nodes {
			fmt.Fprintf(&b, "\tMessage: %s\n", strings.Join(n.messages(), "; "))
			fmt.Fprintf(&b, "\tHtml: %s\n", n.HTML)
			fmt.Fprintf(&b, "\tTarget: %s\n", strings.Join(n.Target, ", "))
		}
	}
	return b.String()
}

// AxeRules selects which rules an axe-core audit runs. At most one of the
// three fields should be set: Ignore disables the named rules, Apply runs
// only the named rules, and Tags runs only rules of the named standards
// (e.g. "wcag2a"). Ignore takes precedence over Apply, which takes
// precedence over Tags.
type AxeRules struct {
	Ignore []string
	Apply  []string
	Tags   []string
}

// optionsJSON renders the axe-core options parameter.
func (r AxeRules) optionsJSON() (string, error) {
	options := map[string]interface{}{}
	switch {
	case len(r.Ignore) > 0:
		rules := map[string]interface{}{}
		for _, rule := range r.Ignore {
			rules[rule] = map[string]bool{"enabled": false}
		}
		options["rules"] = rules
	case len(r.Apply) > 0:
		options["runOnly"] = map[string]interface{}{"type": "rule", "values": r.Apply}
	case len(r.Tags) > 0:
		options["runOnly"] = map[string]interface{}{"type": "tag", "values": r.Tags}
	}
	b, err := json.Marshal(options)
	return string(b), err
}

// AxeScope restricts the part of the DOM an audit inspects, as lists of CSS
// selectors. With neither set, the whole document is audited.
type AxeScope struct {
	Include []string
	Exclude []string
}

// contextJSON renders the axe-core context parameter.
func (s AxeScope) contextJSON() (string, error) {
	context := map[string][][]string{}
	if len(s.Exclude) > 0 {
		for _, sel := range s.Exclude {
			context["exclude"] = append(context["exclude"], []string{sel})
		}
	}
	if len(s.Include) > 0 {
		for _, sel := range s.Include {
			context["include"] = append(context["include"], []string{sel})
		}
	}
	if len(context) == 0 {
		return "document", nil
	}
	b, err := json.Marshal(context)
	return string(b), err
}

// AxeAudit audits a page using Deque Labs' axe-core engine.
//
// The ruleset JavaScript is read from RulesFile (the BOKCHOY_A11Y_RULES_FILE
// environment variable by default). Custom rules may be appended from
// CustomRulesFile or the BOKCHOY_A11Y_CUSTOM_RULES_FILE environment
// variable; a custom rules file must declare "var customRules".
type AxeAudit struct {
	drv Driver
	url string

	RulesFile       string
	CustomRulesFile string
	Rules           AxeRules
	Scope           AxeScope
}

// NewAxeAudit configures an axe-core audit of the page at url.
func NewAxeAudit(drv Driver, url string) *AxeAudit {
	return &AxeAudit{
		drv:       drv,
		url:       url,
		RulesFile: os.Getenv("BOKCHOY_A11Y_RULES_FILE"),
	}
}

// rulesJS loads the ruleset JavaScript.
func (a *AxeAudit) rulesJS() (string, error) {
	if a.RulesFile == "" {
		return "", fmt.Errorf("no accessibility ruleset file configured (set BOKCHOY_A11Y_RULES_FILE)")
	}
	b, err := os.ReadFile(a.RulesFile)
	if err != nil {
		return "", fmt.Errorf("could not read accessibility ruleset: %w", err)
	}
	return string(b), nil
}

// customRulesJS loads the custom rules payload, defaulting to an empty set.
func (a *AxeAudit) customRulesJS() (string, error) {
	path := a.CustomRulesFile
	if path == "" {
		path = os.Getenv("BOKCHOY_A11Y_CUSTOM_RULES_FILE")
	}
	if path == "" {
		return "customRules={}", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read custom accessibility rules: %w", err)
	}
	if !strings.Contains(string(b), "var customRules") {
		return "", fmt.Errorf(`custom rules file %s must declare "var customRules"`, path)
	}
	return string(b), nil
}

// Do injects the ruleset, starts the audit, and polls for its results.
func (a *AxeAudit) Do() ([]Violation, error) {
	rules, err := a.rulesJS()
	if err != nil {
		return nil, err
	}
	custom, err := a.customRulesJS()
	if err != nil {
		return nil, err
	}
	options, err := a.Rules.optionsJSON()
	if err != nil {
		return nil, err
	}
	context, err := a.Scope.contextJSON()
	if err != nil {
		return nil, err
	}

	run := fmt.Sprintf(axeRunJS, rules, custom, context, options)
	if _, err := a.drv.ExecuteScript(run, nil); err != nil {
		return nil, err
	}

	// The audit callback stores its results on the window once complete.
	p := NewPromise(func() (bool, []Violation, error) {
		res, err := a.drv.ExecuteScript(axeResultsJS, nil)
		if err != nil {
			return false, nil, err
		}
		raw, ok := res.(string)
		if !ok || raw == "" {
			return false, nil, nil
		}
		var report struct {
			Violations []Violation `json:"violations"`
		}
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			return false, nil, nil
		}
		return true, report.Violations, nil
	}, "accessibility audit results", WithTimeout(5*time.Second))

	return p.Fulfill()
}

// Check runs the audit and reports violations as an *AccessibilityError.
func (a *AxeAudit) Check() error {
	violations, err := a.Do()
	if err != nil {
		return err
	}

	flagged := violations[:0:0]
	for _, v := range violations {
		if len(v.Nodes) > 0 {
			flagged = append(flagged, v)
		}
	}
	if len(flagged) > 0 {
		return &AccessibilityError{URL: a.url, Violations: flagged}
	}
	return nil
}

// NewAuditor builds the auditor selected by the BOKCHOY_A11Y_RULESET
// environment variable. axe_core is the only implemented ruleset and the
// default.
func NewAuditor(drv Driver, url string) (Auditor, error) {
	ruleset := os.Getenv("BOKCHOY_A11Y_RULESET")
	switch ruleset {
	case "", "axe_core":
		return NewAxeAudit(drv, url), nil
	default:
		return nil, fmt.Errorf("unsupported accessibility ruleset %q", ruleset)
	}
}
