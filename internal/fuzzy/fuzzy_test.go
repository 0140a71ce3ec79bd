package fuzzy

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"xppkb/internal/config"
	"xppkb/internal/symbols"
)

var words = []string{
	"", "a", "Cust", "CustHelper", "custhelper", "VendHelper", "CustTable",
	"DimensionAttribute", "DimnesionAttribute", "kitten", "sitting",
}

func TestDistanceProperties(t *testing.T) {
	for _, a := range words {
		if d := Distance(a, a); d != 0 {
			t.Errorf("Distance(%q, %q) = %d, want 0", a, a, d)
		}
		for _, b := range words {
			if Distance(a, b) != Distance(b, a) {
				t.Errorf("Distance not symmetric for %q, %q", a, b)
			}
			for _, c := range words {
				if Distance(a, c) > Distance(a, b)+Distance(b, c) {
					t.Errorf("triangle inequality violated for %q, %q, %q", a, b, c)
				}
			}
		}
	}

	if d := Distance("kitten", "sitting"); d != 3 {
		t.Errorf("Distance(kitten, sitting) = %d, want 3", d)
	}
	if d := Distance("CustHelper", "custhelper"); d != 0 {
		t.Errorf("Distance should ignore case, got %d", d)
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("", ""); s != 1 {
		t.Errorf("Similarity(\"\", \"\") = %v, want 1", s)
	}
	if s := Similarity("abc", ""); s != 0 {
		t.Errorf("Similarity(abc, \"\") = %v, want 0", s)
	}
	for _, a := range words {
		for _, b := range words {
			s := Similarity(a, b)
			if s < 0 || s > 1 {
				t.Errorf("Similarity(%q, %q) = %v out of range", a, b, s)
			}
		}
	}
	if s := Similarity("CustHelper", "VendHelper"); math.Abs(s-0.6) > 1e-9 {
		t.Errorf("Similarity(CustHelper, VendHelper) = %v, want 0.6", s)
	}
}

func TestIsTransposition(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"DimnesionAttribute", "DimensionAttribute", true},
		{"ab", "ba", true},
		{"abc", "abc", false},
		{"abcd", "badc", false},
		{"abc", "acd", false},
		{"abc", "abcd", false},
		{"CustTable", "CsutTable", true},
	}
	for _, tt := range tests {
		if got := IsTransposition(tt.a, tt.b); got != tt.want {
			t.Errorf("IsTransposition(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsTypo(t *testing.T) {
	c := DefaultConfig()
	tests := []struct {
		query, cand string
		want        bool
	}{
		{"DimnesionAttribute", "DimensionAttribute", true},
		{"CustTabel", "CustTable", true},
		{"CustTble", "CustTable", true},
		{"Cust", "Cest", true},
		{"CustHelper", "VendHelper", false},
		{"CustHelper", "CustHelper", false},
		{"ab", "ba", true},
		{"Cust", "CustTable", false},
	}
	for _, tt := range tests {
		if got := c.IsTypo(tt.query, tt.cand); got != tt.want {
			t.Errorf("IsTypo(%q, %q) = %v, want %v", tt.query, tt.cand, got, tt.want)
		}
	}
}

func TestBroaderQueries(t *testing.T) {
	tests := []struct {
		q    string
		want []string
	}{
		{"CustHelper", []string{"Cust", "CustHelper*"}},
		{"custtable", []string{"cust", "custtable*"}},
		{"Cust", []string{"Cust*"}},
		{"DP", nil},
		{"Helper", []string{"Helper*"}},
		{"ab", nil},
	}
	for _, tt := range tests {
		if got := BroaderQueries(tt.q); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("BroaderQueries(%q) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestNarrowerQueries(t *testing.T) {
	got := NarrowerQueries("Cust")
	if len(got) != len(ShortSuffixes) || got[0] != "CustHelper" {
		t.Errorf("NarrowerQueries(Cust) = %v", got)
	}
	if got := NarrowerQueries("CustHelper"); got != nil {
		t.Errorf("NarrowerQueries(CustHelper) = %v, want nil", got)
	}
	if got := NarrowerQueries("custdp"); got != nil {
		t.Errorf("suffix check should ignore case, got %v", got)
	}
}

func TestRootOf(t *testing.T) {
	if got := RootOf("CustHelper"); got != "cust" {
		t.Errorf("RootOf(CustHelper) = %q", got)
	}
	if got := RootOf("Helper"); got != "helper" {
		t.Errorf("RootOf(Helper) = %q", got)
	}
}

func graphFixture() *TermGraph {
	return Build([]symbols.Symbol{
		{Name: "CustTable", Kind: symbols.KindTable},
		{Name: "CustHelper", Kind: symbols.KindClass, UsedTypes: []string{"CustTable", "DimensionAttribute"}},
		{Name: "validate", Kind: symbols.KindMethod, Parent: "CustHelper", UsedTypes: []string{"CustTable"}},
		{Name: "VendHelper", Kind: symbols.KindClass, UsedTypes: []string{"VendTable"}, Extends: "CustHelper"},
		{Name: "CustService", Kind: symbols.KindClass, UsedTypes: []string{"CustTable"}},
	})
}

func TestTermGraph(t *testing.T) {
	g := graphFixture()

	if p := g.Popularity("custtable"); p != 3 {
		t.Errorf("Popularity(CustTable) = %d, want 3", p)
	}
	if p := g.Popularity("Unknown"); p != 0 {
		t.Errorf("Popularity(Unknown) = %d", p)
	}

	want := []RelatedTerm{{"CustHelper", 1}, {"CustService", 1}, {"validate", 1}}
	if got := g.RelatedTerms("CustTable", 0); !reflect.DeepEqual(got, want) {
		t.Errorf("RelatedTerms(CustTable) = %v, want %v", got, want)
	}
	if got := g.RelatedTerms("CustTable", 1); len(got) != 1 {
		t.Errorf("limit ignored: %v", got)
	}

	related := g.RelatedByRoot("CustHelper", 10)
	if len(related) == 0 || related[0] != "CustTable" {
		t.Errorf("RelatedByRoot(CustHelper) = %v", related)
	}
	for _, r := range related {
		if strings.EqualFold(r, "CustHelper") {
			t.Error("RelatedByRoot returned the query")
		}
	}

	terms := g.Terms()
	if !reflect.DeepEqual(terms[:2], []string{"CustHelper", "CustService"}) {
		t.Errorf("Terms() = %v", terms)
	}
}

func TestTermGraphMemberEdges(t *testing.T) {
	g := Build([]symbols.Symbol{
		{Name: "CustHelper", Kind: symbols.KindClass},
		{
			Name:           "run",
			Kind:           symbols.KindMethod,
			Parent:         "CustHelper",
			UsedTypes:      []string{"CustTable"},
			MethodCalls:    []string{"validateWrite", "CustTable::find"},
			RelatedMethods: []string{"insert", "validateWrite"},
		},
	})

	tests := []struct {
		term string
		want []RelatedTerm
	}{
		{"run", []RelatedTerm{
			{"CustHelper", 1}, {"CustTable", 1}, {"CustTable::find", 1}, {"insert", 1}, {"validateWrite", 1},
		}},
		{"validateWrite", []RelatedTerm{{"run", 1}}},
		{"insert", []RelatedTerm{{"run", 1}}},
		{"CustHelper", []RelatedTerm{{"run", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := g.RelatedTerms(tt.term, 0); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RelatedTerms(%s) = %v, want %v", tt.term, got, tt.want)
			}
		})
	}

	// Popularity is the sum of a term's co-occurrence counts.
	if p := g.Popularity("run"); p != 5 {
		t.Errorf("Popularity(run) = %d, want 5", p)
	}
	if p := g.Popularity("validateWrite"); p != 1 {
		t.Errorf("Popularity(validateWrite) = %d, want 1", p)
	}

	terms := g.Terms()
	for _, term := range terms {
		if term == "CustTable::find" {
			t.Errorf("call target %q should not be a spelling candidate", term)
		}
	}
	if again := g.Terms(); len(terms) == 0 || &again[0] != &terms[0] {
		t.Error("Terms() re-sorted instead of reusing the cached slice")
	}
}

func TestNilGraph(t *testing.T) {
	var g *TermGraph
	if g.Popularity("x") != 0 || g.RelatedTerms("x", 1) != nil || g.RelatedByRoot("x", 1) != nil || g.Terms() != nil {
		t.Error("nil graph should answer empty")
	}
}

func TestShared(t *testing.T) {
	var s Shared
	if s.Load() != nil {
		t.Error("Load() before Store should be nil")
	}
	g := graphFixture()
	s.Store(g)
	if s.Load() != g {
		t.Error("Load() did not return stored graph")
	}
	if s.Run() != "" {
		t.Errorf("Run() = %q after Store, want empty", s.Run())
	}

	next := graphFixture()
	s.StoreRun(next, "run-9")
	if s.Load() != next || s.Run() != "run-9" {
		t.Errorf("StoreRun() not published: run %q", s.Run())
	}
}

func TestSuggestionsForTypo(t *testing.T) {
	c := DefaultConfig()
	got := c.GenerateSuggestions("DimnesionAttribute", []string{"DimensionAttribute", "DimensionAttributeValue", "CustTable"}, nil)
	if len(got) == 0 {
		t.Fatal("no suggestions")
	}
	if got[0].Query != "DimensionAttribute" || got[0].Kind != KindTypo {
		t.Errorf("first suggestion = %+v, want typo DimensionAttribute", got[0])
	}
	if got[0].Confidence < 0.85 {
		t.Errorf("typo confidence = %v", got[0].Confidence)
	}
}

func TestSuggestionsBroaderAndNarrower(t *testing.T) {
	c := DefaultConfig()
	g := graphFixture()

	got := c.GenerateSuggestions("CustHelper", nil, g)
	if !containsSuggestion(got, "Cust", KindBroader) {
		t.Errorf("CustHelper suggestions %v lack broader Cust", got)
	}

	got = c.GenerateSuggestions("Cust", nil, g)
	if !containsSuggestion(got, "CustHelper", KindNarrower) {
		t.Errorf("Cust suggestions %v lack narrower CustHelper", got)
	}
}

func TestSuggestionOrdering(t *testing.T) {
	c := DefaultConfig()
	g := graphFixture()
	for _, q := range []string{"Cust", "CustHelper", "CustTabel", "VendHelpr", "x", "DimensionAttribute"} {
		got := c.GenerateSuggestions(q, []string{"CustTable", "VendHelper", "DimensionAttribute"}, g)
		if len(got) > c.MaxSuggestions {
			t.Errorf("%q: %d suggestions, max %d", q, len(got), c.MaxSuggestions)
		}
		seen := make(map[string]bool)
		for i, s := range got {
			if i > 0 && s.Confidence > got[i-1].Confidence {
				t.Errorf("%q: confidence increases at %d: %v", q, i, got)
			}
			if strings.EqualFold(s.Query, q) {
				t.Errorf("%q: suggestion repeats the query", q)
			}
			key := strings.ToLower(s.Query)
			if seen[key] {
				t.Errorf("%q: duplicate suggestion %s", q, s.Query)
			}
			seen[key] = true
		}
	}

	if got := c.GenerateSuggestions("   ", nil, g); got != nil {
		t.Errorf("blank query suggestions = %v", got)
	}
}

func TestFromConfigKeepsDefaults(t *testing.T) {
	c := FromConfig(config.FuzzyConfig{MaxSuggestions: 3})
	if c.MaxSuggestions != 3 || c.TypoThreshold != 0.85 {
		t.Errorf("FromConfig() = %+v", c)
	}
}

func containsSuggestion(list []Suggestion, query string, kind SuggestionKind) bool {
	for _, s := range list {
		if s.Query == query && s.Kind == kind {
			return true
		}
	}
	return false
}
