// Package requisite turns normalized catalog prose into the typed AST
// defined in catalog.Node, via a multi-strategy clause parser.
package requisite

import (
	"regexp"
	"strings"
)

var (
	reWhitespace  = regexp.MustCompile(`\s+`)
	rePrereqLabel = regexp.MustCompile(`(?i)^\s*prerequisite(?:\(s\)|s)?\s*:\s*`)
	reCoreqLabel  = regexp.MustCompile(`(?i)co-?requisite(?:\(s\)|s)?\s*:`)
	reAndOr       = regexp.MustCompile(`(?i)\band\s*/\s*or\b`)
	reCommaPad    = regexp.MustCompile(`\s*,\s*`)
	reParenOpen   = regexp.MustCompile(`\s*\(\s*`)
	reParenClose  = regexp.MustCompile(`\s*\)\s*`)

	// "X or Y, Z" -> "(X or Y) and Z" and "X or Y and ..." -> "(X or Y) and ..."
	// Each [A-Z0-9]+ operand matches a single bare word so the rewrite doesn't need
	// to understand course codes: it only needs to see the shape
	// "A or B" immediately followed by a hard separator.
	reOrCommaTail = regexp.MustCompile(`(?i)([A-Z0-9]+(?:\s+or\s+[A-Z0-9]+)+)\s*,\s*`)
	reOrAndTail   = regexp.MustCompile(`(?i)([A-Z0-9]+(?:\s+or\s+[A-Z0-9]+)+)\s+and\s+`)
)

// Normalize canonicalizes raw prerequisite prose: collapses whitespace,
// strips leading labels, marks co-requisite sections, regularizes bracket
// and operator spelling, and applies the comma-precedence rewrite. It is
// idempotent: Normalize(Normalize(t)) == Normalize(t).
func Normalize(text string) string {
	s := collapseWhitespace(text)
	s = rePrereqLabel.ReplaceAllString(s, "")
	s = reCoreqLabel.ReplaceAllString(s, "Co-requisite:")
	s = strings.NewReplacer("[", "(", "]", ")").Replace(s)
	s = reAndOr.ReplaceAllString(s, "or")
	s = strings.NewReplacer("+", " and ", "&", " and ").Replace(s)
	s = collapseWhitespace(s)
	s = reCommaPad.ReplaceAllString(s, ", ")
	s = reParenOpen.ReplaceAllString(s, " (")
	s = reParenClose.ReplaceAllString(s, ") ")
	s = collapseWhitespace(s)
	s = rewriteCommaPrecedence(s)
	s = collapseWhitespace(s)
	return s
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// rewriteCommaPrecedence encodes the catalog convention that a comma or
// semicolon separator binds tighter than a bare "or": "X or Y, Z" becomes
// "(X or Y) and Z", and a trailing bare "and" after an "or" run is
// likewise parenthesized. Both rewrites consume the separator that
// triggered them (", " or " and "), so a second pass over the output
// never finds the same bare separator again; the rewrite is idempotent.
func rewriteCommaPrecedence(s string) string {
	s = reOrCommaTail.ReplaceAllString(s, "($1) and ")
	s = reOrAndTail.ReplaceAllString(s, "($1) and ")
	return s
}
