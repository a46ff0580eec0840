// Package sanitize renders user-supplied email HTML into plain text. The
// text form is used as the text/plain alternative of outgoing messages and
// as the default plain-text body of saved templates.
//
// The HTML itself is never rewritten here: message bodies are opaque
// content produced by the user or the AI collaborator.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy strips every element. bluemonday drops the content of script,
// style and title elements along with the tags.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// blockEndRe matches tags after which a line break is rendered.
var blockEndRe = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|h[1-6]|li|tr|table|blockquote|pre|section|article|header|footer)\s*>`)

// PlainText converts HTML into readable plain text: tags are removed,
// entities decoded, block boundaries become newlines, runs of whitespace
// inside a line collapse to one space and blank lines are dropped.
func PlainText(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	broken := blockEndRe.ReplaceAllStringFunc(input, func(tag string) string {
		return tag + "\n"
	})
	stripped := html.UnescapeString(getPolicy().Sanitize(broken))

	var lines []string
	for _, line := range strings.Split(stripped, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			lines = append(lines, strings.Join(fields, " "))
		}
	}
	return strings.Join(lines, "\n")
}

// Excerpt returns at most n runes of the plain-text rendering of input,
// with an ellipsis appended when truncated.
func Excerpt(input string, n int) string {
	text := strings.ReplaceAll(PlainText(input), "\n", " ")
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
