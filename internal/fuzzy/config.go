package fuzzy

import "xppkb/internal/config"

// Config holds the thresholds and confidences of the suggestion engine.
type Config struct {
	TypoThreshold        float64
	TypoOneEditThreshold float64
	BroaderConfidence    float64
	WildcardConfidence   float64
	NarrowerConfidence   float64
	RelatedConfidence    float64
	MaxSuggestions       int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		TypoThreshold:        0.85,
		TypoOneEditThreshold: 0.75,
		BroaderConfidence:    0.7,
		WildcardConfidence:   0.6,
		NarrowerConfidence:   0.65,
		RelatedConfidence:    0.6,
		MaxSuggestions:       5,
	}
}

// FromConfig builds a Config from the [fuzzy] section, keeping defaults for
// unset values.
func FromConfig(fc config.FuzzyConfig) Config {
	c := DefaultConfig()
	setFloat := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	setFloat(&c.TypoThreshold, fc.TypoThreshold)
	setFloat(&c.TypoOneEditThreshold, fc.TypoOneEditThreshold)
	setFloat(&c.BroaderConfidence, fc.BroaderConfidence)
	setFloat(&c.WildcardConfidence, fc.WildcardConfidence)
	setFloat(&c.NarrowerConfidence, fc.NarrowerConfidence)
	setFloat(&c.RelatedConfidence, fc.RelatedConfidence)
	if fc.MaxSuggestions > 0 {
		c.MaxSuggestions = fc.MaxSuggestions
	}
	return c
}
