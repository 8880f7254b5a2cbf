//go:build nudgedebug

package nudger

import (
	"fmt"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

func init() {
	debugSnapshot = captureViaRod
}

// captureViaRod launches a headless browser, opens a blank page and saves
// a full-page screenshot of it to outPath; it does not attach to any
// browser or webview the Agent itself runs. Only built with
// -tags=nudgedebug; a launch or connect failure returns nil, since the
// snapshot is a diagnostic nicety, not a dependency of the kill decision
// itself.
func captureViaRod(session, outPath string) error {
	u, err := launcher.New().Launch()
	if err != nil {
		return nil
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(rod.TargetOptions{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("opening debug page for %s: %w", session, err)
	}
	img, err := page.Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("capturing snapshot for %s: %w", session, err)
	}
	return writeSnapshot(outPath, img)
}

func writeSnapshot(outPath string, img []byte) error {
	return os.WriteFile(outPath, img, 0644)
}
