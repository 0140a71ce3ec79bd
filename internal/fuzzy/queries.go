package fuzzy

import "strings"

// LongSuffixes are role suffixes stripped to broaden a query.
var LongSuffixes = []string{
	"Helper", "Service", "Manager", "Controller", "Handler", "Builder",
	"Factory", "Provider", "Processor", "Engine", "Validator", "Converter",
	"Formatter", "Parser", "Writer", "Reader", "Client", "Server",
	"Contract", "Table", "Form", "Query", "DP",
}

// ShortSuffixes are appended to a bare root to narrow a query.
var ShortSuffixes = []string{
	"Helper", "Service", "Manager", "Controller", "Table",
	"Contract", "Builder", "DP", "Form", "Query",
}

// stripSuffix removes the first long-list suffix q ends with, matching
// case-insensitively. ok is false when no suffix applies or nothing would
// remain.
func stripSuffix(q string) (string, bool) {
	lower := strings.ToLower(q)
	for _, suffix := range LongSuffixes {
		ls := strings.ToLower(suffix)
		if strings.HasSuffix(lower, ls) && len(lower) > len(ls) {
			return q[:len(q)-len(suffix)], true
		}
	}
	return q, false
}

// BroaderQueries returns less specific forms of q: q without its role
// suffix, then a wildcard form when q has at least three characters.
func BroaderQueries(q string) []string {
	q = strings.TrimSpace(q)
	var out []string
	if root, ok := stripSuffix(q); ok {
		out = append(out, root)
	}
	if len([]rune(q)) >= 3 {
		out = append(out, q+"*")
	}
	return out
}

// NarrowerQueries returns q with each short-list suffix appended, or nothing
// when q already ends with one of them.
func NarrowerQueries(q string) []string {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	lower := strings.ToLower(q)
	for _, suffix := range ShortSuffixes {
		if strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return nil
		}
	}
	out := make([]string, 0, len(ShortSuffixes))
	for _, suffix := range ShortSuffixes {
		out = append(out, q+suffix)
	}
	return out
}

// RootOf returns the lower-cased term without its role suffix.
func RootOf(term string) string {
	root, _ := stripSuffix(strings.TrimSpace(term))
	return strings.ToLower(root)
}
