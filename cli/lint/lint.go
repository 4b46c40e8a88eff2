// Package lint checks that uploaded function code has the shape the backend
// loads: a Function class with interactionUser and execute methods, where
// interactionUser returns a dict.
package lint

import (
	"regexp"
	"strings"

	"modpanel/cli/style"
)

type Requirement struct {
	Name string
	Met  bool
}

var (
	methodHeadRe = regexp.MustCompile(`(?i)def interactionUser\(.*?\):\s*`)
	returnDictRe = regexp.MustCompile(`return\s+\{.*\}|return\s+dict\(.*\)`)
)

// Check evaluates every requirement against code, in display order.
func Check(code string) []Requirement {
	hasInteraction := strings.Contains(code, "def interactionUser(")
	return []Requirement{
		{Name: "class Function", Met: strings.Contains(code, "class Function:") || strings.Contains(code, "class Function(")},
		{Name: "method interactionUser", Met: hasInteraction},
		{Name: "method execute", Met: strings.Contains(code, "def execute(")},
		{Name: "interactionUser returns a dict", Met: hasInteraction && returnsDict(code)},
	}
}

// OK reports whether every requirement holds.
func OK(reqs []Requirement) bool {
	for _, r := range reqs {
		if !r.Met {
			return false
		}
	}
	return true
}

func returnsDict(code string) bool {
	loc := methodHeadRe.FindStringIndex(code)
	if loc == nil {
		return false
	}
	body := code[loc[1]:]
	if i := nextDefinition(body); i >= 0 {
		body = body[:i]
	}
	if strings.Contains(body, "return {") || strings.Contains(body, "return dict(") {
		return true
	}
	return returnDictRe.MatchString(body)
}

func nextDefinition(s string) int {
	d, c := strings.Index(s, "def "), strings.Index(s, "class ")
	switch {
	case d < 0:
		return c
	case c < 0:
		return d
	default:
		return min(d, c)
	}
}

func Render(reqs []Requirement) string {
	var b strings.Builder
	for _, r := range reqs {
		if r.Met {
			b.WriteString(style.StepDone.Render("✓ ") + r.Name + "\n")
		} else {
			b.WriteString(style.StepFailed.Render("✗ ") + style.DimText.Render(r.Name) + "\n")
		}
	}
	return b.String()
}
