package fuzzy

import (
	"sort"
	"strings"
)

// SuggestionKind says how a suggestion was derived.
type SuggestionKind string

const (
	KindTypo     SuggestionKind = "typo"
	KindBroader  SuggestionKind = "broader"
	KindNarrower SuggestionKind = "narrower"
	KindRelated  SuggestionKind = "related"
)

// Suggestion is an alternative query offered when a search finds nothing.
type Suggestion struct {
	Query      string         `json:"query"`
	Kind       SuggestionKind `json:"kind"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason,omitempty"`
}

// GenerateSuggestions proposes alternatives for query, best first. Typo
// candidates come from names and from the graph vocabulary; graph may be
// nil. The result never contains query itself, holds each alternative once,
// and has at most c.MaxSuggestions entries.
func (c Config) GenerateSuggestions(query string, names []string, graph *TermGraph) []Suggestion {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var out []Suggestion
	out = append(out, c.typoSuggestions(query, names, graph)...)

	for _, b := range BroaderQueries(query) {
		conf, reason := c.BroaderConfidence, "without role suffix"
		if strings.HasSuffix(b, "*") {
			conf, reason = c.WildcardConfidence, "prefix match"
		}
		out = append(out, Suggestion{Query: b, Kind: KindBroader, Confidence: conf, Reason: reason})
	}
	for _, n := range NarrowerQueries(query) {
		out = append(out, Suggestion{Query: n, Kind: KindNarrower, Confidence: c.NarrowerConfidence, Reason: "with role suffix"})
	}
	for _, r := range graph.RelatedByRoot(query, c.limit()) {
		out = append(out, Suggestion{Query: r, Kind: KindRelated, Confidence: c.RelatedConfidence, Reason: "related term"})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})

	seen := map[string]bool{strings.ToLower(query): true}
	final := out[:0]
	for _, s := range out {
		key := strings.ToLower(s.Query)
		if seen[key] {
			continue
		}
		seen[key] = true
		final = append(final, s)
		if len(final) == c.limit() {
			break
		}
	}
	return final
}

func (c Config) limit() int {
	if c.MaxSuggestions <= 0 {
		return 5
	}
	return c.MaxSuggestions
}

// typoSuggestions returns near-miss spellings, most similar first, then by name.
func (c Config) typoSuggestions(query string, names []string, graph *TermGraph) []Suggestion {
	candidates := append(append([]string{}, names...), graph.Terms()...)

	seen := make(map[string]bool)
	var out []Suggestion
	for _, cand := range candidates {
		key := strings.ToLower(cand)
		if seen[key] {
			continue
		}
		seen[key] = true
		if !c.plausible(query, cand) || !c.IsTypo(query, cand) {
			continue
		}
		out = append(out, Suggestion{
			Query:      cand,
			Kind:       KindTypo,
			Confidence: Similarity(query, cand),
			Reason:     "similar spelling",
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Query < out[j].Query
	})
	return out
}
