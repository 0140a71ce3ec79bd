// Package symbols defines the indexed unit of the knowledge base: one
// declaration of a class, table, method, field, or enum in the AOT.
package symbols

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the structural category of a symbol.
type Kind string

const (
	KindClass  Kind = "class"
	KindTable  Kind = "table"
	KindMethod Kind = "method"
	KindField  Kind = "field"
	KindEnum   Kind = "enum"
)

// AllKinds lists every kind in display order.
var AllKinds = []Kind{KindClass, KindTable, KindEnum, KindMethod, KindField}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindClass, KindTable, KindMethod, KindField, KindEnum:
		return true
	}
	return false
}

// IsTopLevel reports whether symbols of this kind have no parent.
func (k Kind) IsTopLevel() bool {
	return k == KindClass || k == KindTable || k == KindEnum
}

// ChildKind returns the member kind a top-level kind owns: methods for
// classes, fields for tables. Enums and members own nothing.
func (k Kind) ChildKind() (Kind, bool) {
	switch k {
	case KindClass:
		return KindMethod, true
	case KindTable:
		return KindField, true
	}
	return "", false
}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown symbol kind %q", s)
	}
	return k, nil
}

// ParseKinds parses a comma-separated kind filter. Empty input means no filter.
func ParseKinds(csv string) ([]Kind, error) {
	var kinds []Kind
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := ParseKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// KindsKey renders a kind filter canonically: sorted, comma-joined, or "all".
func KindsKey(kinds []Kind) string {
	if len(kinds) == 0 {
		return "all"
	}
	parts := make([]string, 0, len(kinds))
	seen := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		if seen[k] {
			continue
		}
		seen[k] = true
		parts = append(parts, string(k))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// APIUsage records how a symbol uses one API: the statements that set it up
// and the calls made on it afterwards, in source order.
type APIUsage struct {
	API            string   `json:"api"`
	Initialization []string `json:"initialization,omitempty"`
	Calls          []string `json:"calls,omitempty"`
}

// Symbol is one indexed declaration.
type Symbol struct {
	ID             int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Name           string `json:"name" yaml:"name"`
	Kind           Kind   `json:"kind" yaml:"kind"`
	Parent         string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Signature      string `json:"signature,omitempty" yaml:"signature,omitempty"`
	SourceLocation string `json:"sourceLocation,omitempty" yaml:"sourceLocation,omitempty"`
	Model          string `json:"model" yaml:"model"`

	Tags             []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	UsedTypes        []string   `json:"usedTypes,omitempty" yaml:"usedTypes,omitempty"`
	MethodCalls      []string   `json:"methodCalls,omitempty" yaml:"methodCalls,omitempty"`
	RelatedMethods   []string   `json:"relatedMethods,omitempty" yaml:"relatedMethods,omitempty"`
	Extends          string     `json:"extends,omitempty" yaml:"extends,omitempty"`
	APIUsagePatterns []APIUsage `json:"apiUsagePatterns,omitempty" yaml:"apiUsagePatterns,omitempty"`
	TypicalUsages    []string   `json:"typicalUsages,omitempty" yaml:"typicalUsages,omitempty"`
	UsageFrequency   int        `json:"usageFrequency,omitempty" yaml:"usageFrequency,omitempty"`
	Complexity       int        `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	PatternType      string     `json:"patternType,omitempty" yaml:"patternType,omitempty"`
	SourceSnippet    string     `json:"sourceSnippet,omitempty" yaml:"sourceSnippet,omitempty"`
}

// ValidationError describes why a symbol record was rejected.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid symbol %q: %s", e.Name, e.Reason)
}

// Validate checks required fields and the parent invariant: members have a
// parent, top-level symbols do not.
func (s *Symbol) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Name: s.Name, Reason: "name is required"}
	}
	if !s.Kind.Valid() {
		return &ValidationError{Name: s.Name, Reason: fmt.Sprintf("unknown kind %q", s.Kind)}
	}
	if s.Kind.IsTopLevel() && s.Parent != "" {
		return &ValidationError{Name: s.Name, Reason: fmt.Sprintf("%s symbols cannot have a parent", s.Kind)}
	}
	if !s.Kind.IsTopLevel() && strings.TrimSpace(s.Parent) == "" {
		return &ValidationError{Name: s.Name, Reason: fmt.Sprintf("%s symbols require a parent", s.Kind)}
	}
	return nil
}

// QualifiedName returns Parent.Name for members and Name otherwise.
func (s *Symbol) QualifiedName() string {
	if s.Parent == "" {
		return s.Name
	}
	return s.Parent + "." + s.Name
}

// DedupKey identifies a symbol for merging result lists from different
// sources. Model is left out on purpose: a workspace copy of a class
// shadows the indexed one.
func (s *Symbol) DedupKey() string {
	return strings.ToLower(string(s.Kind) + "|" + s.Parent + "|" + s.Name)
}

// HasTag reports whether the symbol carries tag (case-insensitive).
func (s *Symbol) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// References returns every name the symbol points at through its
// relationship attributes, in attribute order, without duplicates.
func (s *Symbol) References() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" || seen[strings.ToLower(n)] {
				continue
			}
			seen[strings.ToLower(n)] = true
			out = append(out, n)
		}
	}
	add(s.UsedTypes...)
	add(s.MethodCalls...)
	add(s.RelatedMethods...)
	add(s.Parent, s.Extends)
	return out
}

// JoinList renders a name list the way the store keeps it.
func JoinList(items []string) string {
	return strings.Join(items, ",")
}

// SplitList parses a comma-joined name list, dropping blanks.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
