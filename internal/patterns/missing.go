package patterns

import (
	"context"
	"sort"
	"strings"

	"xppkb/internal/symbols"
)

// MissingMethod is a method most peers of a class declare but it lacks.
type MissingMethod struct {
	Method     string  `json:"method" yaml:"method"`
	Frequency  int     `json:"frequency" yaml:"frequency"`
	Total      int     `json:"total" yaml:"total"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Signature  string  `json:"signature,omitempty" yaml:"signature,omitempty"`
}

// MissingMethodsReport is the result of SuggestMissingMethods.
type MissingMethodsReport struct {
	ClassName   string          `json:"className" yaml:"className"`
	Found       bool            `json:"found" yaml:"found"`
	PatternType string          `json:"patternType,omitempty" yaml:"patternType,omitempty"`
	PeerCount   int             `json:"peerCount" yaml:"peerCount"`
	Suggestions []MissingMethod `json:"suggestions" yaml:"suggestions"`
}

// SuggestMissingMethods compares className with the other classes of its
// pattern type and lists the methods they declare that it does not, most
// common first, then by name. Percentages are frequency over peer count.
func (a *Analyzer) SuggestMissingMethods(ctx context.Context, className string, limit int) (*MissingMethodsReport, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	report := &MissingMethodsReport{ClassName: className, Suggestions: []MissingMethod{}}

	target, err := a.store.GetByName(ctx, className, symbols.KindClass)
	if err != nil || target == nil {
		return report, err
	}
	report.Found = true
	report.ClassName = target.Name
	report.PatternType = patternTypeOf(target)
	if report.PatternType == "" {
		return report, nil
	}

	own, err := a.store.MethodsOf(ctx, target.Name)
	if err != nil {
		return nil, err
	}
	has := make(map[string]bool, len(own))
	for _, m := range own {
		has[strings.ToLower(m.Name)] = true
	}

	peers, err := a.store.FindByPatternType(ctx, report.PatternType, symbols.KindClass, maxPeers+1)
	if err != nil {
		return nil, err
	}

	freq := make(map[string]int)
	spelling := make(map[string]string)
	signature := make(map[string]string)
	for _, peer := range peers {
		if strings.EqualFold(peer.Name, target.Name) {
			continue
		}
		if report.PeerCount == maxPeers {
			break
		}
		report.PeerCount++

		methods, err := a.store.MethodsOf(ctx, peer.Name)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for _, m := range methods {
			key := strings.ToLower(m.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			freq[key]++
			if _, ok := spelling[key]; !ok {
				spelling[key] = m.Name
				signature[key] = m.Signature
			}
		}
	}

	for key, n := range freq {
		if has[key] {
			continue
		}
		report.Suggestions = append(report.Suggestions, MissingMethod{
			Method:     spelling[key],
			Frequency:  n,
			Total:      report.PeerCount,
			Percentage: float64(n) / float64(report.PeerCount) * 100,
			Signature:  signature[key],
		})
	}
	sort.Slice(report.Suggestions, func(i, j int) bool {
		si, sj := report.Suggestions[i], report.Suggestions[j]
		if si.Frequency != sj.Frequency {
			return si.Frequency > sj.Frequency
		}
		return si.Method < sj.Method
	})
	if len(report.Suggestions) > limit {
		report.Suggestions = report.Suggestions[:limit]
	}
	return report, nil
}
