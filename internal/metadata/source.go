package metadata

import (
	"regexp"
	"strings"

	"xppkb/internal/symbols"
)

// X++ source heuristics. The parser never builds a syntax tree: every
// attribute below is read from the stripped source text with patterns.
var (
	noiseRe = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*|@?"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)

	declRe      = regexp.MustCompile(`\b([A-Z]\w*)\s+([a-z_]\w*)\s*(?:=|;|,|\))`)
	newRe       = regexp.MustCompile(`\bnew\s+([A-Za-z_]\w*)\s*\(`)
	staticRe    = regexp.MustCompile(`\b([A-Za-z_]\w*)::(\w+)`)
	intrinsicRe = regexp.MustCompile(`\b(?i:classStr|tableStr|formStr|enumStr|extendedTypeStr|tableNum|classNum|enumNum|tableMethodStr|classStaticMethodStr)\s*\(\s*(\w+)`)
	callRe      = regexp.MustCompile(`(?:\.|::)\s*(\w+)\s*\(`)
	nextRe      = regexp.MustCompile(`\bnext\s+(\w+)\s*\(`)
	varCallRe   = regexp.MustCompile(`\b(\w+)\.(\w+)\s*\(`)
	decisionRe  = regexp.MustCompile(`\b(?:if|while|for|case|catch)\b|&&|\|\||\?`)
	initRe      = regexp.MustCompile(`^(?:([A-Z]\w*)\s+)?(\w+)\s*=\s*(?:new\s+(\w+)|(\w+)::(\w+))\s*\(`)
	factoryRe   = regexp.MustCompile(`^(?i:construct|new\w*|find\w*|instance|create\w*)$`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// keywords are X++ words that the type patterns would otherwise pick up.
var keywords = map[string]bool{
	"if": true, "else": true, "while": true, "for": true, "do": true,
	"switch": true, "case": true, "default": true, "break": true,
	"continue": true, "return": true, "new": true, "select": true,
	"from": true, "where": true, "join": true, "exists": true,
	"notexists": true, "firstonly": true, "forupdate": true,
	"ttsbegin": true, "ttscommit": true, "ttsabort": true, "try": true,
	"catch": true, "throw": true, "retry": true, "finally": true,
	"using": true, "var": true, "public": true, "private": true,
	"protected": true, "internal": true, "static": true, "final": true,
	"abstract": true, "display": true, "edit": true, "server": true,
	"client": true, "void": true, "boolean": true, "int": true,
	"int64": true, "real": true, "str": true, "date": true,
	"utcdatetime": true, "container": true, "anytype": true, "guid": true,
	"super": true, "this": true, "next": true, "true": true,
	"false": true, "null": true, "element": true, "global": true,
	"exception": true, "info": true, "warning": true, "error": true,
}

// stripNoise removes comments and blanks out string literals.
func stripNoise(src string) string {
	return noiseRe.ReplaceAllStringFunc(src, func(m string) string {
		if strings.HasPrefix(m, "/") {
			return ""
		}
		return `""`
	})
}

// nameSet collects names case-insensitively in first-seen order.
type nameSet struct {
	seen map[string]bool
	list []string
}

func (s *nameSet) add(name string) {
	if name == "" || keywords[strings.ToLower(name)] {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	key := strings.ToLower(name)
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.list = append(s.list, name)
}

// usedTypes lists the types code declares, constructs, or names statically.
func usedTypes(code string) []string {
	var set nameSet
	for _, m := range declRe.FindAllStringSubmatch(code, -1) {
		set.add(m[1])
	}
	for _, m := range newRe.FindAllStringSubmatch(code, -1) {
		set.add(m[1])
	}
	for _, m := range staticRe.FindAllStringSubmatch(code, -1) {
		set.add(m[1])
	}
	for _, m := range intrinsicRe.FindAllStringSubmatch(code, -1) {
		set.add(m[1])
	}
	return set.list
}

// methodCalls lists the member and static methods code calls.
func methodCalls(code string) []string {
	var set nameSet
	for _, m := range callRe.FindAllStringSubmatch(code, -1) {
		set.add(m[1])
	}
	for _, m := range nextRe.FindAllStringSubmatch(code, -1) {
		set.add(m[1])
	}
	return set.list
}

// complexity is one plus the number of decision points.
func complexity(code string) int {
	return 1 + len(decisionRe.FindAllStringIndex(code, -1))
}

// statements splits code at semicolons, keeping only the text after the
// last brace of each piece, whitespace collapsed.
func statements(code string) []string {
	var out []string
	for _, part := range strings.Split(code, ";") {
		if i := strings.LastIndexAny(part, "{}"); i >= 0 {
			part = part[i+1:]
		}
		part = strings.TrimSpace(spaceRe.ReplaceAllString(part, " "))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

const maxCallsPerUsage = 10

// apiUsages finds variables initialized from a constructor or factory
// call and the statements that call them afterwards.
func apiUsages(code string) []symbols.APIUsage {
	declared := make(map[string]string)
	for _, m := range declRe.FindAllStringSubmatch(code, -1) {
		declared[strings.ToLower(m[2])] = m[1]
	}

	var order []*symbols.APIUsage
	byVar := make(map[string]*symbols.APIUsage)

	for _, stmt := range statements(code) {
		if m := initRe.FindStringSubmatch(stmt); m != nil {
			variable := strings.ToLower(m[2])
			api := m[3]
			if api == "" {
				typ := m[4]
				if factoryRe.MatchString(m[5]) || strings.EqualFold(typ, declared[variable]) || strings.EqualFold(typ, m[1]) {
					api = typ
				}
			}
			if api != "" && !keywords[strings.ToLower(api)] {
				u, ok := byVar[variable]
				if !ok || !strings.EqualFold(u.API, api) {
					u = &symbols.APIUsage{API: api}
					byVar[variable] = u
					order = append(order, u)
				}
				u.Initialization = append(u.Initialization, stmt+";")
				continue
			}
		}

		for _, m := range varCallRe.FindAllStringSubmatch(stmt, -1) {
			u, ok := byVar[strings.ToLower(m[1])]
			if !ok || len(u.Calls) >= maxCallsPerUsage {
				continue
			}
			u.Calls = append(u.Calls, stmt+";")
			break
		}
	}

	out := make([]symbols.APIUsage, 0, len(order))
	for _, u := range order {
		out = append(out, *u)
	}
	return out
}

// header returns the declaration line of a method or class: the code up
// to the first brace, attribute lines dropped, whitespace collapsed.
func header(code string) string {
	if i := strings.Index(code, "{"); i >= 0 {
		code = code[:i]
	}
	var parts []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		parts = append(parts, line)
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(strings.Join(parts, " "), " "))
}

// attributes returns the [Attribute] lines that precede the first brace.
func attributes(src string) []string {
	if i := strings.Index(src, "{"); i >= 0 {
		src = src[:i]
	}
	var out []string
	for _, line := range strings.Split(src, "\n") {
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "[") {
			out = append(out, line)
		}
	}
	return out
}

// snippet returns the first n lines of src.
func snippet(src string, n int) string {
	src = strings.Trim(src, "\r\n")
	lines := strings.Split(src, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.Join(lines, "\n")
}
