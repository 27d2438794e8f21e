package flow

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	camelCasePattern     = regexp.MustCompile(`^([A-Z][a-z]+)`)
	alphaSequencePattern = regexp.MustCompile(`[A-Za-z]{3,}`)
	splitPattern         = regexp.MustCompile(`[_\s-]`)
)

// commonIdentifiers are short project codes that show up embedded in flow
// names without any separator convention.
var commonIdentifiers = []string{"AMZ", "AWS", "C2D", "AZ", "WF", "PS", "VP", "BI"}

// ExtractProject derives an automation project name from a flow name.
// Flow authors encode the project inconsistently, so a series of patterns is
// tried in order of reliability; "Unknown" is the last resort.
func ExtractProject(flowName string) string {
	name := strings.TrimSpace(flowName)
	if name == "" {
		return "Unknown"
	}

	// Text before " - " or "_" separators.
	if before, _, ok := strings.Cut(name, " - "); ok {
		return strings.TrimSpace(before)
	}
	if before, _, ok := strings.Cut(name, "_"); ok {
		return strings.TrimSpace(before)
	}

	// Leading CamelCase word.
	if m := camelCasePattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}

	// First word, when it looks like a name rather than filler.
	words := strings.Fields(name)
	if len(words) > 0 && len(words[0]) > 2 && unicode.IsUpper(rune(words[0][0])) {
		return words[0]
	}

	// Known project codes anywhere in the name.
	upper := strings.ToUpper(name)
	for _, id := range commonIdentifiers {
		if !strings.Contains(upper, id) {
			continue
		}
		for _, part := range splitPattern.Split(name, -1) {
			if strings.Contains(strings.ToUpper(part), id) {
				return part
			}
		}
	}

	// Any alphabetic sequence at all.
	if m := alphaSequencePattern.FindString(name); m != "" {
		return m
	}

	return "Unknown"
}
