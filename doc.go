// Package bokchoy is a UI-level acceptance test framework that drives web
// browsers through Selenium WebDriver for testing live, dynamically
// rendered web applications.
//
// bokchoy encourages the page object pattern: tests interact with
// PageObject values that encapsulate the selectors, waits, and JavaScript
// of a single logical page, while the framework supplies the promise/retry
// synchronization, the lazy element Query abstraction, and the page guard
// machinery needed to make those interactions resilient to timing issues.
package bokchoy
