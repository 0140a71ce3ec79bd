package fuzzy

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"xppkb/internal/symbols"
)

// TermGraph counts co-occurrences between symbol names and the names they
// reference: every symbol is linked to each of its used types, method
// calls, related methods, parent, and base class. It also keeps the
// vocabulary of type and member names for typo candidates.
//
// A TermGraph is built once per index pass and read-only afterwards; swap
// in a new one through Shared rather than mutating a published graph.
type TermGraph struct {
	nodes map[string]*termNode
	vocab map[string]string

	mu    sync.Mutex
	terms []string
}

type termNode struct {
	name   string
	weight int
	edges  map[string]int
}

// RelatedTerm is a neighbour in the graph with its co-occurrence weight.
type RelatedTerm struct {
	Term   string `json:"term"`
	Weight int    `json:"weight"`
}

// NewTermGraph returns an empty graph.
func NewTermGraph() *TermGraph {
	return &TermGraph{
		nodes: make(map[string]*termNode),
		vocab: make(map[string]string),
	}
}

// Build constructs a graph from syms.
func Build(syms []symbols.Symbol) *TermGraph {
	g := NewTermGraph()
	for i := range syms {
		g.Add(&syms[i])
	}
	g.Terms()
	return g
}

// Add links s to every name it references, one count per pair.
func (g *TermGraph) Add(s *symbols.Symbol) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return
	}
	g.addVocab(name)
	g.node(name)

	// Call targets such as CustTable::find are graph terms but not
	// spellings worth proposing.
	vocab := make(map[string]bool)
	for _, ref := range s.UsedTypes {
		vocab[strings.ToLower(strings.TrimSpace(ref))] = true
	}
	vocab[strings.ToLower(s.Parent)] = true
	vocab[strings.ToLower(s.Extends)] = true

	for _, ref := range s.References() {
		if strings.EqualFold(ref, name) {
			continue
		}
		if vocab[strings.ToLower(ref)] {
			g.addVocab(ref)
		}
		g.link(name, ref)
	}

	g.mu.Lock()
	g.terms = nil
	g.mu.Unlock()
}

func (g *TermGraph) addVocab(name string) {
	key := strings.ToLower(name)
	if _, ok := g.vocab[key]; !ok {
		g.vocab[key] = name
	}
}

func (g *TermGraph) node(name string) *termNode {
	key := strings.ToLower(name)
	n, ok := g.nodes[key]
	if !ok {
		n = &termNode{name: name, edges: make(map[string]int)}
		g.nodes[key] = n
	}
	return n
}

func (g *TermGraph) link(a, b string) {
	na, nb := g.node(a), g.node(b)
	na.edges[strings.ToLower(b)]++
	nb.edges[strings.ToLower(a)]++
	na.weight++
	nb.weight++
}

// Popularity returns the sum of term's co-occurrence counts.
func (g *TermGraph) Popularity(term string) int {
	if g == nil {
		return 0
	}
	if n, ok := g.nodes[strings.ToLower(term)]; ok {
		return n.weight
	}
	return 0
}

// RelatedTerms returns the neighbours of term by descending weight, then name.
func (g *TermGraph) RelatedTerms(term string, limit int) []RelatedTerm {
	if g == nil {
		return nil
	}
	n, ok := g.nodes[strings.ToLower(term)]
	if !ok {
		return nil
	}

	out := make([]RelatedTerm, 0, len(n.edges))
	for key, w := range n.edges {
		out = append(out, RelatedTerm{Term: g.nodes[key].name, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Term < out[j].Term
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RelatedByRoot returns terms sharing query's root, most popular first, then
// the graph neighbours of query itself. query is never in the result.
func (g *TermGraph) RelatedByRoot(query string, limit int) []string {
	if g == nil {
		return nil
	}
	root := RootOf(query)
	if root == "" {
		return nil
	}

	type cand struct {
		name string
		pop  int
	}
	var sameRoot []cand
	for key, n := range g.nodes {
		if strings.EqualFold(key, query) {
			continue
		}
		if RootOf(n.name) == root {
			sameRoot = append(sameRoot, cand{n.name, n.weight})
		}
	}
	sort.Slice(sameRoot, func(i, j int) bool {
		if sameRoot[i].pop != sameRoot[j].pop {
			return sameRoot[i].pop > sameRoot[j].pop
		}
		return sameRoot[i].name < sameRoot[j].name
	})

	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		key := strings.ToLower(name)
		if seen[key] || strings.EqualFold(name, query) {
			return
		}
		seen[key] = true
		out = append(out, name)
	}
	for _, c := range sameRoot {
		add(c.name)
	}
	for _, r := range g.RelatedTerms(query, 0) {
		add(r.Term)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Terms returns the vocabulary in lexical order. The slice is computed once
// per graph and shared; callers must not modify it.
func (g *TermGraph) Terms() []string {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.terms == nil {
		g.terms = make([]string, 0, len(g.vocab))
		for _, name := range g.vocab {
			g.terms = append(g.terms, name)
		}
		sort.Strings(g.terms)
	}
	return g.terms
}

// Len returns the number of graph nodes.
func (g *TermGraph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Shared publishes the current graph to concurrent readers, together with
// the index run it was built from.
type Shared struct {
	p atomic.Pointer[snapshot]
}

type snapshot struct {
	graph *TermGraph
	run   string
}

// Load returns the current graph, or nil before the first Store.
func (s *Shared) Load() *TermGraph {
	if sn := s.p.Load(); sn != nil {
		return sn.graph
	}
	return nil
}

// Store replaces the current graph without naming its index run.
func (s *Shared) Store(g *TermGraph) {
	s.StoreRun(g, "")
}

// StoreRun replaces the current graph, recording the index run its
// symbols were read after.
func (s *Shared) StoreRun(g *TermGraph, run string) {
	s.p.Store(&snapshot{graph: g, run: run})
}

// Run returns the index run of the current graph, or "" if unknown.
func (s *Shared) Run() string {
	if sn := s.p.Load(); sn != nil {
		return sn.run
	}
	return ""
}
