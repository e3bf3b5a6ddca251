package flights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/voyager/config"
	"github.com/mohammad-safakhou/voyager/models"
	"github.com/mohammad-safakhou/voyager/provider"
)

// Extractor is the Stage B agent: it renders the results URL produced by the
// scraper, reduces the page to readable text and asks the LLM to pick the
// two legs per the caller's preferences.
type Extractor struct {
	llm    provider.Provider
	cfg    config.BrowserConfig
	logger *log.Logger
}

// NewExtractor creates a Stage B extractor on top of an LLM provider.
func NewExtractor(llm provider.Provider, cfg config.BrowserConfig, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.New(log.Writer(), "[AGENT] ", log.LstdFlags)
	}
	return &Extractor{llm: llm, cfg: cfg, logger: logger}
}

// ExtractResults produces the structured two-leg flight record for a
// results page. Any agent-level failure propagates as a pipeline failure.
func (e *Extractor) ExtractResults(ctx context.Context, pageURL, preferences string) (models.FlightRecord, error) {
	var rec models.FlightRecord

	text, err := e.fetchPageText(ctx, pageURL)
	if err != nil {
		return rec, fmt.Errorf("render results page: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return rec, errors.New("results page rendered empty")
	}
	e.logger.Printf("rendered %s (%d chars)", pageURL, len(text))

	prompt := flightTask(preferences) + "\n\nPage content:\n" + text
	out, err := e.llm.Complete(ctx, extractionSystem, prompt)
	if err != nil {
		return rec, fmt.Errorf("extraction agent: %w", err)
	}

	return parseFlightRecord(out)
}

// parseFlightRecord decodes the agent's reply into the output contract and
// applies the total-price rule.
func parseFlightRecord(out string) (models.FlightRecord, error) {
	var rec models.FlightRecord
	if err := json.Unmarshal([]byte(extractJSON(out)), &rec); err != nil {
		return rec, fmt.Errorf("parse agent output: %w", err)
	}
	if rec.Outbound == (models.FlightLeg{}) || rec.Return == (models.FlightLeg{}) {
		return rec, errors.New("agent output missing a flight leg")
	}
	rec.TotalPrice = totalPrice(rec.Outbound.Price, rec.Return.Price)
	return rec, nil
}

// fetchPageText renders the page in a browser session and extracts its
// readable text, capped at the configured character budget.
func (e *Extractor) fetchPageText(ctx context.Context, pageURL string) (string, error) {
	if e.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.PageTimeout)
		defer cancel()
	}
	bctx, release := newBrowserContext(ctx, e.cfg)
	defer release()

	var html string
	if err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(e.cfg.SettleWait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", err
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return truncateText(strings.TrimSpace(article.TextContent), e.cfg.MaxPageChars), nil
}

// truncateText caps s at max bytes without splitting a multi-byte rune.
func truncateText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// extractJSON strips markdown code fences and surrounding prose from a
// model reply, leaving the outermost JSON object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// totalPrice picks the larger of the two displayed leg prices, keeping the
// original formatting of the winning leg. Falls back to whichever price
// parses when the other does not.
func totalPrice(outbound, ret string) string {
	a, okA := parsePrice(outbound)
	b, okB := parsePrice(ret)
	switch {
	case okA && okB:
		if b > a {
			return ret
		}
		return outbound
	case okA:
		return outbound
	case okB:
		return ret
	}
	return ""
}

func parsePrice(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
