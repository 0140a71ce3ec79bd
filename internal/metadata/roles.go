package metadata

import (
	"regexp"
	"strings"

	"xppkb/internal/symbols"
)

var (
	classNameRe    = regexp.MustCompile(`\b(?:class|interface)\s+(\w+)`)
	extendsRe      = regexp.MustCompile(`\bextends\s+(\w+)`)
	implementsRe   = regexp.MustCompile(`\bimplements\s+([\w\s,]+)`)
	interfaceRe    = regexp.MustCompile(`\binterface\s+\w+`)
	extensionRe    = regexp.MustCompile(`(?i)ExtensionOf\s*\(\s*\w+Str\s*\(\s*(\w+)`)
	staticMethodRe = regexp.MustCompile(`\bstatic\b`)
	ttsRe          = regexp.MustCompile(`(?i)\bttsbegin\b`)
)

// baseRoles assigns a pattern type from well-known framework base classes
// when the class name carries no role suffix.
var baseRoles = map[string]string{
	"runbase":                          "Batch",
	"runbasebatch":                     "Batch",
	"sysoperationservicecontroller":    "Controller",
	"sysoperationservicebase":          "Service",
	"srsreportdataproviderbase":        "DataProvider",
	"srsreportdataproviderprepostbase": "DataProvider",
	"sysoperationdatacontractbase":     "DataContract",
	"formletterservice":                "Service",
	"sysentitydatacontract":            "DataContract",
}

func classNameOf(code string) string {
	if m := classNameRe.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return ""
}

func extendsOf(code string) string {
	if m := extendsRe.FindStringSubmatch(header(code)); m != nil {
		return m[1]
	}
	return ""
}

func implementsOf(code string) []string {
	m := implementsRe.FindStringSubmatch(header(code))
	if m == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(m[1], ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isInterface(code string) bool {
	return interfaceRe.MatchString(header(code))
}

// extensionTarget returns the class named by an [ExtensionOf(...)]
// attribute line.
func extensionTarget(attr string) string {
	if m := extensionRe.FindStringSubmatch(attr); m != nil {
		return m[1]
	}
	return ""
}

// methodTags classifies a method by its name, modifiers, and body.
func methodTags(name, sig, code string, attrs []string, extension bool) []string {
	var tags []string
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "validate") || strings.HasPrefix(lower, "check"):
		tags = append(tags, "Validation")
	case lower == "find" || strings.HasPrefix(lower, "find") || lower == "exist" || strings.HasPrefix(lower, "lookup"):
		tags = append(tags, "Lookup")
	case lower == "construct" || lower == "new" || strings.HasPrefix(lower, "init") || strings.HasPrefix(lower, "newfrom"):
		tags = append(tags, "Initialization")
	case strings.HasPrefix(lower, "parm"):
		tags = append(tags, "Accessor")
	}
	if staticMethodRe.MatchString(sig) {
		tags = append(tags, "Static")
	}
	for _, a := range attrs {
		if strings.Contains(a, "EventHandler") || strings.Contains(a, "SubscribesTo") {
			tags = append(tags, "EventHandler")
			break
		}
	}
	if extension && nextRe.MatchString(code) {
		tags = append(tags, "ChainOfCommand")
	}
	if ttsRe.MatchString(code) {
		tags = append(tags, "Transaction")
	}
	return tags
}

const maxTypicalUsages = 3

// typicalUsages picks representative statements: each usage's first
// initialization, then calls, up to a small cap.
func typicalUsages(usages []symbols.APIUsage) []string {
	var out []string
	for _, u := range usages {
		if len(out) >= maxTypicalUsages {
			break
		}
		if len(u.Initialization) > 0 {
			out = append(out, u.Initialization[0])
		}
	}
	for _, u := range usages {
		for _, c := range u.Calls {
			if len(out) >= maxTypicalUsages {
				return out
			}
			out = append(out, c)
		}
	}
	return out
}
