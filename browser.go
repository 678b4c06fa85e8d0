package bokchoy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tebeka/selenium"
	slog "github.com/tebeka/selenium/log"
	"golang.org/x/exp/slices"
)

// DefaultRemoteURL is the WebDriver endpoint used for local browsers when
// WEB_DRIVER_URL is not set.
const DefaultRemoteURL = "http://localhost:4444/wd/hub"

// Browsers supported by name through SELENIUM_BROWSER.
var browserNames = []string{"firefox", "chrome", "internet explorer", "safari"}

// requiredSauceEnvVars must all be set to run against Sauce Labs; these are
// the variables set by the Sauce Labs Jenkins plugin.
var requiredSauceEnvVars = []string{
	"SELENIUM_BROWSER",
	"SELENIUM_VERSION",
	"SELENIUM_PLATFORM",
	"SELENIUM_HOST",
	"SELENIUM_PORT",
	"SAUCE_USER_NAME",
	"SAUCE_API_KEY",
}

// LoadEnvFile loads environment variables from the named files (or ".env"
// when none are given), without overriding variables already set. A missing
// file is not an error.
func LoadEnvFile(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("%w: %v", ErrBrowserConfig, err)
		}
	}
	return nil
}

// NewBrowser interprets environment variables to start a WebDriver session,
// with validation and sensible defaults.
//
// There are two cases:
//
//  1. Local browsers: no Sauce Labs variables set. SELENIUM_BROWSER picks
//     the browser (default firefox) and WEB_DRIVER_URL the endpoint
//     (default a local Selenium server).
//
//  2. Sauce Labs: SELENIUM_BROWSER, SELENIUM_VERSION, SELENIUM_PLATFORM,
//     SELENIUM_HOST, SELENIUM_PORT, SAUCE_USER_NAME, and SAUCE_API_KEY all
//     set, optionally with JOB_NAME and BUILD_NUMBER to identify the job.
//
// tags annotate the Sauce Labs job and are ignored for local browsers.
func NewBrowser(tags ...string) (selenium.WebDriver, error) {
	if useLocalBrowser() {
		name := os.Getenv("SELENIUM_BROWSER")
		if name == "" {
			name = "firefox"
		}
		if !slices.Contains(browserNames, name) {
			return nil, fmt.Errorf("%w: invalid browser name %q, options are: %s",
				ErrBrowserConfig, name, strings.Join(browserNames, ", "))
		}

		caps := selenium.Capabilities{"browserName": name}
		caps.SetLogLevel(slog.Browser, slog.All)

		endpoint := os.Getenv("WEB_DRIVER_URL")
		if endpoint == "" {
			endpoint = DefaultRemoteURL
		}
		return selenium.NewRemote(caps, endpoint)
	}

	envs, err := requiredEnvs()
	if err != nil {
		return nil, err
	}
	optional, err := optionalEnvs()
	if err != nil {
		return nil, err
	}

	caps := sauceCapabilities(envs, optional, tags)
	endpoint := fmt.Sprintf("http://%s:%s/wd/hub", envs["SELENIUM_HOST"], envs["SELENIUM_PORT"])
	return selenium.NewRemote(caps, endpoint)
}

// useLocalBrowser reports whether no attempt was made to configure Sauce
// Labs (SELENIUM_BROWSER alone still selects a local browser).
func useLocalBrowser() bool {
	for _, key := range requiredSauceEnvVars {
		if key == "SELENIUM_BROWSER" {
			continue
		}
		if _, ok := os.LookupEnv(key); ok {
			return false
		}
	}
	return true
}

// requiredEnvs collects the Sauce Labs variables, failing when any is
// missing or the browser is unsupported.
func requiredEnvs() (map[string]string, error) {
	envs := make(map[string]string, len(requiredSauceEnvVars))
	var missing []string
	for _, key := range requiredSauceEnvVars {
		val, ok := os.LookupEnv(key)
		if !ok {
			missing = append(missing, key)
			continue
		}
		envs[key] = val
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: these environment variables must be set: %s",
			ErrBrowserConfig, strings.Join(missing, ", "))
	}
	if !slices.Contains(browserNames, envs["SELENIUM_BROWSER"]) {
		return nil, fmt.Errorf("%w: unsupported browser %q", ErrBrowserConfig, envs["SELENIUM_BROWSER"])
	}
	return envs, nil
}

// optionalEnvs collects the Jenkins job variables, which must be given as a
// pair or not at all.
func optionalEnvs() (map[string]string, error) {
	envs := map[string]string{}
	for _, key := range []string{"JOB_NAME", "BUILD_NUMBER"} {
		if val, ok := os.LookupEnv(key); ok {
			envs[key] = val
		}
	}
	if _, ok := envs["JOB_NAME"]; ok {
		if _, ok := envs["BUILD_NUMBER"]; !ok {
			return nil, fmt.Errorf("%w: missing BUILD_NUMBER environment variable", ErrBrowserConfig)
		}
	}
	if _, ok := envs["BUILD_NUMBER"]; ok {
		if _, ok := envs["JOB_NAME"]; !ok {
			return nil, fmt.Errorf("%w: missing JOB_NAME environment variable", ErrBrowserConfig)
		}
	}
	return envs, nil
}

// sauceCapabilities assembles the desired capabilities for a Sauce Labs
// session.
func sauceCapabilities(envs, optional map[string]string, tags []string) selenium.Capabilities {
	caps := selenium.Capabilities{
		"browserName":          envs["SELENIUM_BROWSER"],
		"platform":             envs["SELENIUM_PLATFORM"],
		"version":              envs["SELENIUM_VERSION"],
		"username":             envs["SAUCE_USER_NAME"],
		"accessKey":            envs["SAUCE_API_KEY"],
		"video-upload-on-pass": false,
		"sauce-advisor":        false,
		"capture-html":         true,
		"record-screenshots":   true,
		"max-duration":         600,
		"public":               "public restricted",
		"tags":                 tags,
	}
	if job, ok := optional["JOB_NAME"]; ok {
		caps["name"] = job
		caps["build"] = optional["BUILD_NUMBER"]
	}
	return caps
}

// artifactPath joins an output directory environment variable with a file
// name, creating the directory as needed.
func artifactPath(dirEnv, name string) (string, error) {
	dir := os.Getenv(dirEnv)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, name), nil
}

// SaveScreenshot writes a screenshot of the browser to SCREENSHOT_DIR (the
// working directory when unset), named name.png.
func SaveScreenshot(wd selenium.WebDriver, name string) error {
	img, err := wd.Screenshot()
	if err != nil {
		return err
	}
	path, err := artifactPath("SCREENSHOT_DIR", name+".png")
	if err != nil {
		return err
	}
	return os.WriteFile(path, img, 0o644)
}

// SaveSource writes the current page's source to SAVED_SOURCE_DIR, named
// name.html.
func SaveSource(wd selenium.WebDriver, name string) error {
	src, err := wd.PageSource()
	if err != nil {
		return err
	}
	path, err := artifactPath("SAVED_SOURCE_DIR", name+".html")
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(src), 0o644)
}

// SaveDriverLogs writes the accumulated driver logs to
// SELENIUM_DRIVER_LOG_DIR, one file per log type, named name_<type>.log.
// Log types a driver does not support are skipped.
func SaveDriverLogs(wd selenium.WebDriver, name string) error {
	for _, typ := range []slog.Type{slog.Browser, slog.Driver, slog.Client, slog.Server} {
		messages, err := wd.Log(typ)
		if err != nil {
			continue
		}
		var b strings.Builder
		for _, m := range messages {
			fmt.Fprintf(&b, "%s %s %s\n", m.Timestamp.Format("2006-01-02 15:04:05"), m.Level, m.Message)
		}
		path, err := artifactPath("SELENIUM_DRIVER_LOG_DIR", fmt.Sprintf("%s_%s.log", name, typ))
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return err
		}
	}
	return nil
}
