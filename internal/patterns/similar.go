package patterns

import (
	"context"
	"sort"
	"strings"

	"xppkb/internal/fuzzy"
	"xppkb/internal/symbols"
)

// Composite score weights for FindSimilarMethods.
const (
	nameWeight    = 0.7
	contextWeight = 0.3

	minNameSimilarity = 0.5
	maxCandidates     = 200
)

// SimilarMethod is a method resembling the one asked about.
type SimilarMethod struct {
	Name           string   `json:"name" yaml:"name"`
	ClassName      string   `json:"className" yaml:"className"`
	Signature      string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	Excerpt        string   `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Complexity     int      `json:"complexity" yaml:"complexity"`
	Tags           []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	PatternType    string   `json:"patternType,omitempty" yaml:"patternType,omitempty"`
	NameSimilarity float64  `json:"nameSimilarity" yaml:"nameSimilarity"`
	Score          float64  `json:"score" yaml:"score"`
}

// FindSimilarMethods ranks methods by 0.7 x name similarity plus 0.3 x
// context overlap with className (same pattern type, shared tags). The
// method itself on className is excluded.
func (a *Analyzer) FindSimilarMethods(ctx context.Context, methodName, className string, limit int) ([]SimilarMethod, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	methodName = strings.TrimSpace(methodName)
	if methodName == "" {
		return []SimilarMethod{}, nil
	}

	var target *symbols.Symbol
	if className != "" {
		var err error
		if target, err = a.store.GetByName(ctx, className, symbols.KindClass); err != nil {
			return nil, err
		}
	}

	candidates, err := a.methodCandidates(ctx, methodName)
	if err != nil {
		return nil, err
	}

	owners := make(map[string]*symbols.Symbol)
	ownerOf := func(name string) (*symbols.Symbol, error) {
		key := strings.ToLower(name)
		if o, ok := owners[key]; ok {
			return o, nil
		}
		o, err := a.store.GetByName(ctx, name, symbols.KindClass)
		if err != nil {
			return nil, err
		}
		owners[key] = o
		return o, nil
	}

	out := []SimilarMethod{}
	for _, m := range candidates {
		if className != "" && strings.EqualFold(m.Parent, className) && strings.EqualFold(m.Name, methodName) {
			continue
		}
		nameSim := fuzzy.Similarity(methodName, m.Name)
		if nameSim < minNameSimilarity {
			continue
		}

		owner, err := ownerOf(m.Parent)
		if err != nil {
			return nil, err
		}
		pt := m.PatternType
		if pt == "" && owner != nil {
			pt = patternTypeOf(owner)
		}

		out = append(out, SimilarMethod{
			Name:           m.Name,
			ClassName:      m.Parent,
			Signature:      m.Signature,
			Excerpt:        m.SourceSnippet,
			Complexity:     m.Complexity,
			Tags:           m.Tags,
			PatternType:    pt,
			NameSimilarity: nameSim,
			Score:          nameWeight*nameSim + contextWeight*contextOverlap(target, owner),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].ClassName != out[j].ClassName {
			return out[i].ClassName < out[j].ClassName
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// methodCandidates gathers methods by full-text match and by shared prefix.
func (a *Analyzer) methodCandidates(ctx context.Context, methodName string) ([]symbols.Symbol, error) {
	methodKinds := []symbols.Kind{symbols.KindMethod}

	ranked, err := a.store.RankedLookup(ctx, methodName, methodKinds, maxCandidates)
	if err != nil {
		return nil, err
	}
	stem := methodName
	if r := []rune(stem); len(r) > 4 {
		stem = string(r[:4])
	}
	prefixed, err := a.store.PrefixLookup(ctx, stem, methodKinds, maxCandidates)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var out []symbols.Symbol
	for _, r := range ranked {
		if !seen[r.Symbol.ID] {
			seen[r.Symbol.ID] = true
			out = append(out, r.Symbol)
		}
	}
	for _, s := range prefixed {
		if !seen[s.ID] {
			seen[s.ID] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// contextOverlap scores how alike two classes are: half for a shared
// pattern type, half for the Jaccard overlap of their tags.
func contextOverlap(target, owner *symbols.Symbol) float64 {
	if target == nil || owner == nil {
		return 0
	}
	score := 0.0
	if pt := patternTypeOf(target); pt != "" && strings.EqualFold(pt, patternTypeOf(owner)) {
		score += 0.5
	}
	score += 0.5 * jaccard(target.Tags, owner.Tags)
	return score
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]int)
	for _, t := range a {
		set[strings.ToLower(t)] |= 1
	}
	for _, t := range b {
		set[strings.ToLower(t)] |= 2
	}
	inter := 0
	for _, v := range set {
		if v == 3 {
			inter++
		}
	}
	return float64(inter) / float64(len(set))
}
