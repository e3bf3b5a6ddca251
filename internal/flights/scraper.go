package flights

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/mohammad-safakhou/voyager/config"
	"github.com/mohammad-safakhou/voyager/models"
)

const flightsURL = "https://www.google.com/travel/flights"

// Scraper builds a canonical Google Flights search-results URL by driving
// the search form in a browser session: fill both airport fields through the
// type-then-confirm-from-dropdown interaction, then pick the two dates.
type Scraper struct {
	cfg    config.BrowserConfig
	logger *log.Logger
}

// NewScraper creates a Stage A scraper.
func NewScraper(cfg config.BrowserConfig, logger *log.Logger) *Scraper {
	if logger == nil {
		logger = log.New(log.Writer(), "[SCRAPE] ", log.LstdFlags)
	}
	return &Scraper{cfg: cfg, logger: logger}
}

// BuildSearchURL fills the flight search form and returns the resulting
// results URL. The browser session is released on every exit path.
func (s *Scraper) BuildSearchURL(ctx context.Context, q models.FlightQuery) (string, error) {
	if s.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PageTimeout)
		defer cancel()
	}
	bctx, release := newBrowserContext(ctx, s.cfg)
	defer release()

	s.logger.Printf("navigating to %s", flightsURL)
	if err := chromedp.Run(bctx,
		chromedp.Navigate(flightsURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("open flight search: %w", err)
	}

	// Destination first: filling it before the origin keeps the dropdown of
	// the origin field from covering the destination input.
	s.logger.Printf("filling in destination %q", q.Destination)
	if err := s.fillAndSelectAirport(bctx, `input[aria-label="Where to? "]`, q.Destination); err != nil {
		return "", err
	}

	s.logger.Printf("filling in origin %q", q.Origin)
	if err := s.fillAndSelectAirport(bctx, `input[aria-label="Where from?"]`, q.Origin); err != nil {
		return "", err
	}

	s.logger.Printf("selecting dates %q to %q", q.StartDate, q.EndDate)
	if err := s.selectDates(bctx, q.StartDate, q.EndDate); err != nil {
		return "", err
	}

	var loc string
	if err := chromedp.Run(bctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read results url: %w", err)
	}
	return loc, nil
}

// fillAndSelectAirport types the airport name into one of the search inputs
// and confirms a matching dropdown option, trying the fallback strategies in
// order. On failure it captures a diagnostic screenshot and returns a typed
// AirportSelectionError.
func (s *Scraper) fillAndSelectAirport(ctx context.Context, inputSel, name string) error {
	err := func() error {
		tctx, cancel := context.WithTimeout(ctx, s.cfg.ElementWait)
		defer cancel()
		return chromedp.Run(tctx,
			chromedp.WaitVisible(inputSel, chromedp.ByQuery),
			chromedp.Click(inputSel, chromedp.ByQuery),
			chromedp.Clear(inputSel, chromedp.ByQuery),
			chromedp.SendKeys(inputSel, name, chromedp.ByQuery),
		)
	}()
	if err != nil {
		s.captureScreenshot(ctx, name)
		return &AirportSelectionError{Airport: name, Err: classify(err, inputSel)}
	}

	_ = chromedp.Run(ctx, chromedp.Sleep(s.cfg.SettleWait))

	winner, err := firstSuccess(ctx, s.dropdownStrategies(name))
	if err != nil {
		s.captureScreenshot(ctx, name)
		return &AirportSelectionError{Airport: name, Err: err}
	}
	s.logger.Printf("selected %q via %s strategy", name, winner)

	_ = chromedp.Run(ctx, chromedp.Sleep(s.cfg.SettleWait))
	return nil
}

// dropdownStrategies is the ordered fallback list for confirming an airport
// from the suggestion dropdown. The aria-label match is the precise one and
// goes first; the text matches catch the inputs where the label text does
// not carry the typed name verbatim.
func (s *Scraper) dropdownStrategies(name string) []strategy {
	text := strings.ReplaceAll(name, `"`, "")
	return []strategy{
		{
			name: "aria-label",
			run:  s.clickUnique(fmt.Sprintf(`li[role="option"][aria-label*=%q]`, name), chromedp.ByQueryAll),
		},
		{
			name: "option-text",
			run:  s.clickFirst(fmt.Sprintf(`//li[@role="option"]//*[contains(normalize-space(.), "%s")]`, text), chromedp.BySearch),
		},
		{
			name: "suggestion-text",
			run:  s.clickFirst(fmt.Sprintf(`//*[contains(@class, "zsRT0d") and contains(normalize-space(.), "%s")]`, text), chromedp.BySearch),
		},
	}
}

// clickUnique waits for sel, requires exactly one match and clicks it.
func (s *Scraper) clickUnique(sel string, opt chromedp.QueryOption) func(context.Context) error {
	return func(ctx context.Context) error {
		nodes, err := s.waitNodes(ctx, sel, opt)
		if err != nil {
			return err
		}
		if len(nodes) > 1 {
			return fmt.Errorf("%d nodes match %s: %w", len(nodes), sel, ErrAmbiguousMatch)
		}
		return chromedp.Run(ctx, chromedp.MouseClickNode(nodes[0]))
	}
}

// clickFirst waits for sel and clicks the first match.
func (s *Scraper) clickFirst(sel string, opt chromedp.QueryOption) func(context.Context) error {
	return func(ctx context.Context) error {
		nodes, err := s.waitNodes(ctx, sel, opt)
		if err != nil {
			return err
		}
		return chromedp.Run(ctx, chromedp.MouseClickNode(nodes[0]))
	}
}

func (s *Scraper) waitNodes(ctx context.Context, sel string, opt chromedp.QueryOption) ([]*cdp.Node, error) {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.ElementWait)
	defer cancel()
	var nodes []*cdp.Node
	if err := chromedp.Run(tctx, chromedp.Nodes(sel, &nodes, opt)); err != nil {
		return nil, classify(err, sel)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", sel, ErrElementNotFound)
	}
	return nodes, nil
}

// selectDates opens the date picker and clicks both calendar days. The
// trailing "Done." control is only sometimes rendered; its absence is not a
// failure, while a missing calendar day is.
func (s *Scraper) selectDates(ctx context.Context, startDate, endDate string) error {
	if err := s.waitClick(ctx, `input[aria-label*="Departure"]`); err != nil {
		return fmt.Errorf("open date picker: %w", err)
	}
	_ = chromedp.Run(ctx, chromedp.Sleep(s.cfg.SettleWait))

	if err := s.waitClick(ctx, fmt.Sprintf(`div[aria-label*=%q]`, startDate)); err != nil {
		return fmt.Errorf("departure date %q: %w", startDate, err)
	}
	_ = chromedp.Run(ctx, chromedp.Sleep(s.cfg.SettleWait))

	if err := s.waitClick(ctx, fmt.Sprintf(`div[aria-label*=%q]`, endDate)); err != nil {
		return fmt.Errorf("return date %q: %w", endDate, err)
	}
	_ = chromedp.Run(ctx, chromedp.Sleep(s.cfg.SettleWait))

	if err := s.waitClick(ctx, `button[aria-label*="Done."]`); err != nil {
		s.logger.Printf("no Done button found, continuing")
	}
	return nil
}

func (s *Scraper) waitClick(ctx context.Context, sel string) error {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.ElementWait)
	defer cancel()
	if err := chromedp.Run(tctx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	); err != nil {
		return classify(err, sel)
	}
	return nil
}

func (s *Scraper) captureScreenshot(ctx context.Context, name string) {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.ElementWait)
	defer cancel()
	var buf []byte
	if err := chromedp.Run(tctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		s.logger.Printf("screenshot failed for %q: %v", name, err)
		return
	}
	file := filepath.Join(s.cfg.ScreenshotDir, "error_"+sanitizeName(name)+".png")
	if err := os.WriteFile(file, buf, 0o644); err != nil {
		s.logger.Printf("could not write screenshot %s: %v", file, err)
		return
	}
	s.logger.Printf("saved diagnostic screenshot to %s", file)
}

func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

func classify(err error, sel string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", sel, ErrTimeout)
	}
	return err
}
