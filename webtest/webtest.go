// Package webtest provides helpers for writing browser acceptance tests
// with the standard testing package: per-test browser sessions with
// artifact capture on failure, a fixture page server, and screenshot
// comparison against PNG baselines.
package webtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/tebeka/selenium"

	bokchoy "github.com/openedx-unsupported/bok-choy"
)

// Start opens a fresh browser session for the test and registers cleanup
// that saves a screenshot, the page source, and the driver logs when the
// test fails, then quits the browser. The session is tagged with the test
// name.
func Start(t *testing.T, tags ...string) selenium.WebDriver {
	t.Helper()

	if err := bokchoy.LoadEnvFile(); err != nil {
		t.Fatalf("could not load environment: %v", err)
	}

	wd, err := bokchoy.NewBrowser(append(tags, t.Name())...)
	if err != nil {
		t.Fatalf("could not start browser: %v", err)
	}

	t.Cleanup(func() {
		if t.Failed() {
			saveArtifacts(t, wd)
		}
		if err := wd.Quit(); err != nil {
			t.Logf("could not quit browser: %v", err)
		}
	})
	return wd
}

// saveArtifacts captures failure diagnostics, logging rather than failing
// when capture itself goes wrong.
func saveArtifacts(t *testing.T, wd selenium.WebDriver) {
	t.Helper()

	name := artifactName(t)
	if err := bokchoy.SaveScreenshot(wd, name); err != nil {
		t.Logf("could not save screenshot: %v", err)
	}
	if err := bokchoy.SaveSource(wd, name); err != nil {
		t.Logf("could not save page source: %v", err)
	}
	if err := bokchoy.SaveDriverLogs(wd, name); err != nil {
		t.Logf("could not save driver logs: %v", err)
	}
}

// artifactName derives a filesystem-safe, unique artifact base name from
// the test name.
func artifactName(t *testing.T) string {
	safe := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return safe + "-" + UniqueID()[:8]
}

// UniqueID returns a fresh identifier, handy for generating distinct form
// values and artifact names within a test.
func UniqueID() string {
	return uuid.NewString()
}
