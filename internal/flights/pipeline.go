package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/voyager/config"
	"github.com/mohammad-safakhou/voyager/models"
	"github.com/mohammad-safakhou/voyager/provider"
)

// Pipeline chains the two stages of a flight search: build the results URL
// in a browser session, then hand it to the extraction agent. Stages run
// strictly in sequence; a Stage A failure means the search could not even
// be constructed and Stage B is never attempted.
type Pipeline struct {
	scraper   *Scraper
	extractor *Extractor
}

// NewPipeline wires Stage A and Stage B from shared configuration.
func NewPipeline(cfg config.BrowserConfig, llm provider.Provider, logger *log.Logger) *Pipeline {
	return &Pipeline{
		scraper:   NewScraper(cfg, logger),
		extractor: NewExtractor(llm, cfg, logger),
	}
}

// Search runs the full pipeline and returns the flight record as raw JSON
// for the job registry.
func (p *Pipeline) Search(ctx context.Context, q models.FlightQuery) (json.RawMessage, error) {
	url, err := p.scraper.BuildSearchURL(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to generate flight search URL: %w", err)
	}

	rec, err := p.extractor.ExtractResults(ctx, url, q.Preferences)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode flight record: %w", err)
	}
	return data, nil
}
