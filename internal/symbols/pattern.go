package symbols

import "strings"

// roleSuffixes maps class-name suffixes to the pattern type they imply.
// Longer suffixes come first so "EventHandler" wins over "Handler".
var roleSuffixes = []struct {
	suffix      string
	patternType string
}{
	{"EventHandler", "EventHandler"},
	{"_Extension", "Extension"},
	{"Controller", "Controller"},
	{"Contract", "DataContract"},
	{"Processor", "Processor"},
	{"Validator", "Validator"},
	{"Converter", "Converter"},
	{"Formatter", "Formatter"},
	{"Provider", "Provider"},
	{"Service", "Service"},
	{"Manager", "Manager"},
	{"Handler", "Handler"},
	{"Builder", "Builder"},
	{"Factory", "Factory"},
	{"Helper", "Helper"},
	{"Engine", "Engine"},
	{"Parser", "Parser"},
	{"Writer", "Writer"},
	{"Reader", "Reader"},
	{"Client", "Client"},
	{"Server", "Server"},
	{"Query", "Query"},
	{"Form", "Form"},
	{"DP", "DataProvider"},
}

// InferPatternType derives a role label from a class name suffix.
// Returns "" when no known suffix applies.
func InferPatternType(name string) string {
	for _, rs := range roleSuffixes {
		if len(name) > len(rs.suffix) && strings.HasSuffix(name, rs.suffix) {
			return rs.patternType
		}
	}
	return ""
}

// InferTags returns classification labels for a class: its pattern type,
// plus "Extension" and "Test" markers when the name shows them.
func InferTags(name string, patternType string) []string {
	var tags []string
	if patternType != "" {
		tags = append(tags, patternType)
	}
	if strings.HasSuffix(name, "_Extension") && patternType != "Extension" {
		tags = append(tags, "Extension")
	}
	if strings.HasSuffix(name, "Test") {
		tags = append(tags, "Test")
	}
	return tags
}
