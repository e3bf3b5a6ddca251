package flights

import (
	"context"

	"github.com/chromedp/chromedp"

	"github.com/mohammad-safakhou/voyager/config"
)

// newBrowserContext opens a chromedp tab against either a remote managed
// browser (Bright Data scraping browser over WSS) or a local instance,
// selected by configuration. The returned cancel releases the tab, the
// browser and the allocator; callers must invoke it on every exit path.
func newBrowserContext(parent context.Context, cfg config.BrowserConfig) (context.Context, context.CancelFunc) {
	if cfg.RemoteURL != "" {
		actx, cancelAlloc := chromedp.NewRemoteAllocator(parent, cfg.RemoteURL)
		bctx, cancelBrowser := chromedp.NewContext(actx)
		return bctx, func() {
			cancelBrowser()
			cancelAlloc()
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	bctx, cancelBrowser := chromedp.NewContext(actx)
	return bctx, func() {
		cancelBrowser()
		cancelAlloc()
	}
}
