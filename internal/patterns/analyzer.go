// Package patterns mines the store for recurring structure: which roles
// classes play, which methods peers of a class usually have, which methods
// resemble each other, and how an API is typically used.
package patterns

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"xppkb/internal/storage"
	"xppkb/internal/symbols"
)

const (
	defaultLimit = 10
	maxExamples  = 3

	// maxSampleClasses bounds how many classes one analysis inspects.
	maxSampleClasses = 50

	// maxPeers bounds the peer group of SuggestMissingMethods.
	maxPeers = 200
)

// Analyzer runs pattern queries against a store.
type Analyzer struct {
	store  *storage.DB
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(store *storage.DB, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{store: store, logger: logger}
}

// Frequency counts occurrences of a name.
type Frequency struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// PatternGroup counts classes sharing a pattern type.
type PatternGroup struct {
	PatternType string   `json:"patternType" yaml:"patternType"`
	Count       int      `json:"count" yaml:"count"`
	Examples    []string `json:"examples" yaml:"examples"`
}

// PatternAnalysis summarizes the classes relevant to a scenario.
type PatternAnalysis struct {
	Scenario           string         `json:"scenario" yaml:"scenario"`
	ClassFilter        string         `json:"classFilter,omitempty" yaml:"classFilter,omitempty"`
	TotalMatched       int            `json:"totalMatched" yaml:"totalMatched"`
	PatternGroups      []PatternGroup `json:"patternGroups" yaml:"patternGroups"`
	CommonMethods      []Frequency    `json:"commonMethods" yaml:"commonMethods"`
	CommonDependencies []Frequency    `json:"commonDependencies" yaml:"commonDependencies"`
	ExampleClasses     []string       `json:"exampleClasses" yaml:"exampleClasses"`
}

// AnalyzePatterns finds the classes matching scenario, optionally narrowed
// to names containing classFilter or carrying it as pattern type, and
// reports their pattern types, shared methods, and shared dependencies.
// Counts tie-break by first appearance.
func (a *Analyzer) AnalyzePatterns(ctx context.Context, scenario, classFilter string, limit int) (*PatternAnalysis, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	result := &PatternAnalysis{
		Scenario:           scenario,
		ClassFilter:        classFilter,
		PatternGroups:      []PatternGroup{},
		CommonMethods:      []Frequency{},
		CommonDependencies: []Frequency{},
		ExampleClasses:     []string{},
	}

	classes, err := a.relevantClasses(ctx, scenario, classFilter)
	if err != nil {
		return nil, err
	}
	result.TotalMatched = len(classes)
	if len(classes) == 0 {
		return result, nil
	}

	groups := newCounter()
	groupExamples := make(map[string][]string)
	methods := newCounter()
	deps := newCounter()

	for _, cls := range classes {
		pt := patternTypeOf(&cls)
		if pt == "" {
			pt = "Unclassified"
		}
		groups.add(pt)
		if len(groupExamples[pt]) < maxExamples {
			groupExamples[pt] = append(groupExamples[pt], cls.Name)
		}

		members, err := a.store.MethodsOf(ctx, cls.Name)
		if err != nil {
			return nil, err
		}
		seenMethod := make(map[string]bool)
		seenDep := make(map[string]bool)
		addDeps := func(types []string) {
			for _, t := range types {
				key := strings.ToLower(t)
				if seenDep[key] || strings.EqualFold(t, cls.Name) {
					continue
				}
				seenDep[key] = true
				deps.add(t)
			}
		}
		addDeps(cls.UsedTypes)
		for _, m := range members {
			if key := strings.ToLower(m.Name); !seenMethod[key] {
				seenMethod[key] = true
				methods.add(m.Name)
			}
			addDeps(m.UsedTypes)
		}

		if len(result.ExampleClasses) < limit {
			result.ExampleClasses = append(result.ExampleClasses, cls.Name)
		}
	}

	for _, f := range groups.top(limit) {
		result.PatternGroups = append(result.PatternGroups, PatternGroup{
			PatternType: f.Name,
			Count:       f.Count,
			Examples:    groupExamples[f.Name],
		})
	}
	result.CommonMethods = methods.top(limit)
	result.CommonDependencies = deps.top(limit)

	a.logger.Debug("Pattern analysis finished",
		"scenario", scenario,
		"classes", len(classes),
		"groups", len(result.PatternGroups),
	)
	return result, nil
}

// relevantClasses maps full-text hits for scenario to their owning classes,
// in rank order.
func (a *Analyzer) relevantClasses(ctx context.Context, scenario, classFilter string) ([]symbols.Symbol, error) {
	query := strings.TrimSpace(scenario)
	if query == "" {
		query = classFilter
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	hits, err := a.store.RankedLookup(ctx, query, nil, maxSampleClasses*4)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []symbols.Symbol
	for _, h := range hits {
		var cls *symbols.Symbol
		switch h.Symbol.Kind {
		case symbols.KindClass:
			s := h.Symbol
			cls = &s
		case symbols.KindMethod:
			if seen[strings.ToLower(h.Symbol.Parent)] {
				continue
			}
			cls, err = a.store.GetByName(ctx, h.Symbol.Parent, symbols.KindClass)
			if err != nil {
				return nil, err
			}
		}
		if cls == nil || seen[strings.ToLower(cls.Name)] {
			continue
		}
		seen[strings.ToLower(cls.Name)] = true
		if !matchesFilter(cls, classFilter) {
			continue
		}
		out = append(out, *cls)
		if len(out) >= maxSampleClasses {
			break
		}
	}
	return out, nil
}

func matchesFilter(cls *symbols.Symbol, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(cls.Name), strings.ToLower(filter)) ||
		strings.EqualFold(patternTypeOf(cls), filter)
}

// patternTypeOf returns the recorded pattern type or infers one from the name.
func patternTypeOf(s *symbols.Symbol) string {
	if s.PatternType != "" {
		return s.PatternType
	}
	return symbols.InferPatternType(s.Name)
}

// counter counts names case-insensitively, remembering first-seen order and
// the first spelling.
type counter struct {
	order  []string
	counts map[string]int
	names  map[string]string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int), names: make(map[string]string)}
}

func (c *counter) add(name string) {
	key := strings.ToLower(name)
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
		c.names[key] = name
	}
	c.counts[key]++
}

func (c *counter) top(limit int) []Frequency {
	out := make([]Frequency, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, Frequency{Name: c.names[key], Count: c.counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
