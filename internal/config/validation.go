package config

import (
	"fmt"
	"net"
	"slices"
)

// knownProviders is the closed set of supported provider identifiers.
var knownProviders = []string{ProviderGroq, ProviderOpenAI, ProviderGoogleAI, ProviderOllama}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if !slices.Contains(knownProviders, c.Provider) {
		return fmt.Errorf("%w: %q (supported: %v)", ErrInvalidProvider, c.Provider, knownProviders)
	}

	if c.MaxHistoryTurns < 1 || c.MaxHistoryTurns > MaxAllowedHistoryTurns {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidHistoryLimit, MaxAllowedHistoryTurns, c.MaxHistoryTurns)
	}

	if c.Scraper.Parallelism < 1 || c.Scraper.Parallelism > 16 {
		return fmt.Errorf("%w: parallelism must be between 1 and 16, got %d",
			ErrInvalidScraper, c.Scraper.Parallelism)
	}
	if c.Scraper.TimeoutMs < 1 {
		return fmt.Errorf("%w: timeout_ms must be positive, got %d",
			ErrInvalidScraper, c.Scraper.TimeoutMs)
	}
	if c.Scraper.DelayMs < 0 {
		return fmt.Errorf("%w: delay_ms must not be negative, got %d",
			ErrInvalidScraper, c.Scraper.DelayMs)
	}

	if _, _, err := net.SplitHostPort(c.ServerAddr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidServerAddr, c.ServerAddr, err)
	}

	return nil
}
