package bokchoy

import (
	_ "embed"
)

var (
	// focusedJS is a javascript snippet that reports whether the element
	// passed as a script argument is the document's active element.
	//go:embed js/focused.js
	focusedJS string

	// stubAlertsJS is a javascript snippet that replaces window.confirm and
	// window.alert so that dialogs resolve without user interaction. The
	// confirm outcome is passed as a script argument.
	//go:embed js/stubAlerts.js
	stubAlertsJS string

	// scrollToJS is a javascript snippet that scrolls the first element
	// matching a CSS selector into view.
	//go:embed js/scrollTo.js
	scrollToJS string

	// waitForRequireJS is an async javascript snippet that installs a
	// RequireJS module depending on the awaited modules and calls back once
	// they have loaded.
	//go:embed js/waitForRequire.js
	waitForRequireJS string

	// axeRunJS is a javascript template that injects the ruleset and custom
	// rules, then starts an axe-core audit whose results are stored on the
	// window for later retrieval.
	//go:embed js/axeRun.js
	axeRunJS string

	// axeResultsJS is a javascript snippet that retrieves a completed
	// audit's results.
	//go:embed js/axeResults.js
	axeResultsJS string
)
