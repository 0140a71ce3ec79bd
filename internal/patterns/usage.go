package patterns

import (
	"context"
	"sort"
	"strings"

	"xppkb/internal/symbols"
)

const (
	maxReferences    = 500
	maxGroupClasses  = 5
	maxUsageExamples = 5
)

// SequenceGroup is one distinct statement sequence and who uses it.
type SequenceGroup struct {
	Steps   []string `json:"steps" yaml:"steps"`
	Count   int      `json:"count" yaml:"count"`
	Classes []string `json:"classes" yaml:"classes"`
}

// APIUsageReport describes how an API is set up and called.
type APIUsageReport struct {
	API             string          `json:"api" yaml:"api"`
	Found           bool            `json:"found" yaml:"found"`
	UsageCount      int             `json:"usageCount" yaml:"usageCount"`
	Initializations []SequenceGroup `json:"initializations" yaml:"initializations"`
	CallSequences   []SequenceGroup `json:"callSequences" yaml:"callSequences"`
	CommonCalls     []Frequency     `json:"commonCalls" yaml:"commonCalls"`
	Examples        []string        `json:"examples,omitempty" yaml:"examples,omitempty"`
	UsedBy          []string        `json:"usedBy" yaml:"usedBy"`
}

// GetAPIUsagePatterns aggregates the recorded usage of apiName across every
// symbol that references it: distinct initialization sequences, distinct
// call sequences, the calls made most often, and sample snippets.
func (a *Analyzer) GetAPIUsagePatterns(ctx context.Context, apiName string, limit int) (*APIUsageReport, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	apiName = strings.TrimSpace(apiName)
	report := &APIUsageReport{
		API:             apiName,
		Initializations: []SequenceGroup{},
		CallSequences:   []SequenceGroup{},
		CommonCalls:     []Frequency{},
		UsedBy:          []string{},
	}
	if apiName == "" {
		return report, nil
	}

	refs, err := a.store.FindReferencing(ctx, apiName, maxReferences)
	if err != nil {
		return nil, err
	}

	inits := newSequenceCounter()
	seqs := newSequenceCounter()
	calls := newCounter()
	usedBy := make(map[string]bool)
	examples := make(map[string]bool)

	for i := range refs {
		s := &refs[i]
		if !references(s, apiName) {
			continue
		}
		report.UsageCount++

		owner := s.Name
		if s.Parent != "" {
			owner = s.Parent
		}
		if key := strings.ToLower(owner); !usedBy[key] {
			usedBy[key] = true
			report.UsedBy = append(report.UsedBy, owner)
		}

		for _, u := range s.APIUsagePatterns {
			if !strings.EqualFold(u.API, apiName) {
				continue
			}
			if len(u.Initialization) > 0 {
				inits.add(u.Initialization, owner)
			}
			if len(u.Calls) > 0 {
				seqs.add(u.Calls, owner)
			}
			for _, c := range u.Calls {
				calls.add(c)
			}
		}
		for _, c := range s.MethodCalls {
			if callsAPI(c, apiName) {
				calls.add(strings.TrimSpace(c))
			}
		}

		for _, ex := range s.TypicalUsages {
			if len(examples) >= maxUsageExamples {
				break
			}
			if containsFold(ex, apiName) && !examples[ex] {
				examples[ex] = true
				report.Examples = append(report.Examples, ex)
			}
		}
	}

	if report.UsageCount == 0 {
		api, err := a.store.GetByName(ctx, apiName, "")
		if err != nil {
			return nil, err
		}
		report.Found = api != nil
		return report, nil
	}

	report.Found = true
	report.Initializations = inits.top(limit)
	report.CallSequences = seqs.top(limit)
	report.CommonCalls = calls.top(limit)
	if len(report.UsedBy) > limit {
		report.UsedBy = report.UsedBy[:limit]
	}
	return report, nil
}

// references confirms a textual match: the API is a used type or a call
// target, has a recorded usage pattern, or appears in a typical usage
// snippet.
func references(s *symbols.Symbol, api string) bool {
	for _, t := range s.UsedTypes {
		if strings.EqualFold(t, api) {
			return true
		}
	}
	for _, c := range s.MethodCalls {
		if callsAPI(c, api) {
			return true
		}
	}
	for _, u := range s.APIUsagePatterns {
		if strings.EqualFold(u.API, api) {
			return true
		}
	}
	for _, ex := range s.TypicalUsages {
		if containsFold(ex, api) {
			return true
		}
	}
	return false
}

// callsAPI reports whether call is api itself or a member of it, as in
// CustTable::find or custTable.find.
func callsAPI(call, api string) bool {
	call = strings.TrimSpace(call)
	if strings.EqualFold(call, api) {
		return true
	}
	if len(call) <= len(api) || !strings.EqualFold(call[:len(api)], api) {
		return false
	}
	rest := call[len(api):]
	return strings.HasPrefix(rest, "::") || strings.HasPrefix(rest, ".")
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// sequenceCounter groups identical step sequences, first-seen order.
type sequenceCounter struct {
	order  []string
	groups map[string]*SequenceGroup
	owners map[string]map[string]bool
}

func newSequenceCounter() *sequenceCounter {
	return &sequenceCounter{
		groups: make(map[string]*SequenceGroup),
		owners: make(map[string]map[string]bool),
	}
}

func (c *sequenceCounter) add(steps []string, owner string) {
	key := strings.Join(steps, "\n")
	g, ok := c.groups[key]
	if !ok {
		g = &SequenceGroup{Steps: append([]string(nil), steps...), Classes: []string{}}
		c.groups[key] = g
		c.owners[key] = make(map[string]bool)
		c.order = append(c.order, key)
	}
	g.Count++
	if ownerKey := strings.ToLower(owner); !c.owners[key][ownerKey] && len(g.Classes) < maxGroupClasses {
		c.owners[key][ownerKey] = true
		g.Classes = append(g.Classes, owner)
	}
}

func (c *sequenceCounter) top(limit int) []SequenceGroup {
	out := make([]SequenceGroup, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.groups[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
