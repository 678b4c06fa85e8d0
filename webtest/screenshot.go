package webtest

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/orisano/pixelmatch"
	"github.com/tebeka/selenium"
)

// DefaultPixelThreshold is the per-pixel color distance below which pixels
// are considered matching.
const DefaultPixelThreshold = 0.1

// MismatchError is returned when a screenshot differs from its baseline.
type MismatchError struct {
	Baseline string
	Pixels   int
}

// Error satisfies the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("screenshot differs from baseline %s by %d pixels", e.Baseline, e.Pixels)
}

// CompareScreenshot captures the browser's current screenshot and compares
// it against the PNG baseline at baselinePath.
func CompareScreenshot(wd selenium.WebDriver, baselinePath string) error {
	shot, err := wd.Screenshot()
	if err != nil {
		return err
	}
	return ComparePNG(shot, baselinePath)
}

// ComparePNG compares PNG-encoded image data against the baseline at
// baselinePath, returning a *MismatchError when any pixels differ beyond
// the threshold.
func ComparePNG(data []byte, baselinePath string) error {
	got, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("could not decode screenshot: %w", err)
	}

	baseline, err := os.Open(baselinePath)
	if err != nil {
		return err
	}
	defer baseline.Close()

	want, err := png.Decode(baseline)
	if err != nil {
		return fmt.Errorf("could not decode baseline %s: %w", baselinePath, err)
	}

	diff, err := pixelmatch.MatchPixel(got, want, pixelmatch.Threshold(DefaultPixelThreshold))
	if err != nil {
		return err
	}
	if diff > 0 {
		return &MismatchError{Baseline: baselinePath, Pixels: diff}
	}
	return nil
}
