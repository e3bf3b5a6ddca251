package flights

import (
	"context"
	"fmt"
	"strings"
)

// strategy is one way of locating and confirming a page element. Strategies
// are tried in order because the target UI's matching behavior is not stable
// across inputs; robustness comes from the ordered fallback, not from any
// single selector.
type strategy struct {
	name string
	run  func(ctx context.Context) error
}

// firstSuccess runs strategies in order and returns the name of the first
// one that succeeds. When all fail it returns a single error naming every
// tried strategy and its failure.
func firstSuccess(ctx context.Context, strategies []strategy) (string, error) {
	if len(strategies) == 0 {
		return "", fmt.Errorf("no strategies to try: %w", ErrElementNotFound)
	}

	var failures []string
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := s.run(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.name, err))
			continue
		}
		return s.name, nil
	}
	return "", fmt.Errorf("all strategies failed (%s): %w", strings.Join(failures, "; "), ErrElementNotFound)
}
