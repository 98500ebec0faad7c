package requisite

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/hasan-ston/catalogx/internal/catalog"
)

var reCourseCode = regexp.MustCompile(`[A-Z]{4}[0-9]{4}[A-Z]?`)

// ParseBundle runs the full top-level algorithm over raw prerequisite
// prose: normalize, split into prereq/coreq parts at the first
// "Co-requisite:" marker, split each part into clauses, parse each
// clause, and AND the surviving clause nodes together.
func ParseBundle(raw string) catalog.RequisiteBundle {
	normalized := Normalize(raw)
	prereqPart, coreqPart := splitCoreq(normalized)
	return catalog.RequisiteBundle{
		Prereq: parsePart(prereqPart),
		Coreq:  parsePart(coreqPart),
		Raw:    raw,
	}
}

// ParseIncompat extracts course codes from raw incompatibility prose and
// builds a NONE_OF node, or the zero Node if no codes survive (including
// the case where every extracted code was level-7 and filtered out).
func ParseIncompat(raw string) catalog.Node {
	codes := extractCodes(Normalize(raw))
	nodes := courseNodes(codes)
	if len(nodes) == 0 {
		return catalog.Node{}
	}
	return catalog.NoneOf(nodes...)
}

var reCoreqMarker = regexp.MustCompile(`Co-requisite:`)

func splitCoreq(normalized string) (prereqPart, coreqPart string) {
	loc := reCoreqMarker.FindStringIndex(normalized)
	if loc == nil {
		return normalized, ""
	}
	return normalized[:loc[0]], normalized[loc[1]:]
}

var reClauseSplit = regexp.MustCompile(`[.;]\s+`)

func splitClauses(part string) []string {
	return reClauseSplit.Split(part, -1)
}

func parsePart(part string) catalog.Node {
	var nodes []catalog.Node
	for _, clause := range splitClauses(part) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		n := parseClause(clause)
		if !n.IsZero() {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) == 0 {
		return catalog.Node{}
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	return catalog.And(nodes...)
}

// parseClause dispatches a single clause through each strategy in order,
// returning the first that succeeds. The order is load-bearing:
// boolean-over-courses must run before units-from, since units-from
// clauses often contain codes and "and".
func parseClause(clause string) catalog.Node {
	if node, ok := parseBooleanOverCourses(clause); ok {
		return node
	}
	if node, ok := parseUnitsFrom(clause); ok {
		return node
	}
	if node, ok := parseCreditsAtLevel(clause); ok {
		return node
	}
	if node, ok := parseEnrolment(clause); ok {
		return node
	}
	if node, ok := parsePermission(clause); ok {
		return node
	}
	if node, ok := parseTextualCue(clause); ok {
		return node
	}
	if nodes := courseNodes(extractCodes(clause)); len(nodes) > 0 {
		return catalog.And(nodes...)
	}
	return catalog.Text(clause)
}

// --- (i) boolean-over-courses ------------------------------------------

type tokKind int

const (
	tokCode tokKind = iota
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type boolToken struct {
	kind tokKind
	code catalog.CourseCode
}

var reBoolToken = regexp.MustCompile(`(?i)\band\b|\bor\b|[A-Z]{4}[0-9]{4}[A-Z]?|\(|\)`)

func tokenizeBool(clause string) []boolToken {
	var toks []boolToken
	for _, m := range reBoolToken.FindAllString(clause, -1) {
		switch {
		case strings.EqualFold(m, "and"):
			toks = append(toks, boolToken{kind: tokAnd})
		case strings.EqualFold(m, "or"):
			toks = append(toks, boolToken{kind: tokOr})
		case m == "(":
			toks = append(toks, boolToken{kind: tokLParen})
		case m == ")":
			toks = append(toks, boolToken{kind: tokRParen})
		default:
			toks = append(toks, boolToken{kind: tokCode, code: catalog.CourseCode(m)})
		}
	}
	return toks
}

var errMalformedBoolean = errors.New("malformed boolean clause")

type boolParser struct {
	toks []boolToken
	pos  int
}

func (p *boolParser) peek() (boolToken, bool) {
	if p.pos >= len(p.toks) {
		return boolToken{}, false
	}
	return p.toks[p.pos], true
}

func (p *boolParser) next() (boolToken, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// parseExpr := term (OR term)*
func (p *boolParser) parseExpr() (catalog.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return catalog.Node{}, err
	}
	nodes := []catalog.Node{left}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOr {
			break
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return catalog.Node{}, err
		}
		nodes = append(nodes, right)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return catalog.Or(nodes...), nil
}

// parseTerm := factor (AND factor)*
func (p *boolParser) parseTerm() (catalog.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return catalog.Node{}, err
	}
	nodes := []catalog.Node{left}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokAnd {
			break
		}
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return catalog.Node{}, err
		}
		nodes = append(nodes, right)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return catalog.And(nodes...), nil
}

// parseFactor := CODE | LPAREN expr RPAREN
func (p *boolParser) parseFactor() (catalog.Node, error) {
	tok, ok := p.next()
	if !ok {
		return catalog.Node{}, errMalformedBoolean
	}
	switch tok.kind {
	case tokCode:
		return courseNodeOrZero(tok.code), nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return catalog.Node{}, err
		}
		closeTok, ok := p.next()
		if !ok || closeTok.kind != tokRParen {
			return catalog.Node{}, errMalformedBoolean
		}
		return inner, nil
	default:
		return catalog.Node{}, errMalformedBoolean
	}
}

// parseBooleanOverCourses requires at least one course code and at least
// one boolean operator among the clause's tokens, then runs a
// precedence-climbing parse (OR=1 < AND=2, left-associative, parens
// supported). Malformed sequences (two operators in a row, empty
// parens, unclosed groups, stray operands with no connecting operator)
// fail the strategy so dispatch falls through to the next one, notably
// units-from clauses that happen to contain "and".
func parseBooleanOverCourses(clause string) (catalog.Node, bool) {
	toks := tokenizeBool(clause)
	hasCode, hasOp := false, false
	for _, t := range toks {
		switch t.kind {
		case tokCode:
			hasCode = true
		case tokAnd, tokOr:
			hasOp = true
		}
	}
	if !hasCode || !hasOp {
		return catalog.Node{}, false
	}

	p := &boolParser{toks: toks}
	node, err := p.parseExpr()
	if err != nil || p.pos != len(toks) || node.IsZero() {
		// node is zero when every code in a well-formed expression was
		// level-7; fall through so the clause lands on a later strategy.
		return catalog.Node{}, false
	}
	return node, true
}

// --- (ii) units-from -----------------------------------------------------

var reUnitsFrom = regexp.MustCompile(`(?i)(\d+)\s*units?\s+from\b(.*)`)

func parseUnitsFrom(clause string) (catalog.Node, bool) {
	m := reUnitsFrom.FindStringSubmatch(clause)
	if m == nil {
		return catalog.Node{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return catalog.Node{}, false
	}
	codes := filterLevel7(extractCodes(m[2]))
	if len(codes) == 0 {
		return catalog.Node{}, false
	}
	return catalog.UnitsFrom(n, codes), true
}

// --- (iii) credits-at-level ------------------------------------------------

var reCreditsAtLevel = regexp.MustCompile(`(?i)at least\s+(\d+)\s*units?.*?\blevel\s+(\d+)`)

func parseCreditsAtLevel(clause string) (catalog.Node, bool) {
	m := reCreditsAtLevel.FindStringSubmatch(clause)
	if m == nil {
		return catalog.Node{}, false
	}
	n, err1 := strconv.Atoi(m[1])
	d, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return catalog.Node{}, false
	}
	return catalog.CreditsAtLevel(n, d), true
}

// --- (iv) enrolment ---------------------------------------------------------

var reEnrolment = regexp.MustCompile(`(?i)\benrol(?:led|ment)?\s+in\s+([^,.;]+)`)

func parseEnrolment(clause string) (catalog.Node, bool) {
	m := reEnrolment.FindStringSubmatch(clause)
	if m == nil {
		return catalog.Node{}, false
	}
	program := strings.TrimSpace(m[1])
	if program == "" {
		return catalog.Node{}, false
	}
	return catalog.Enrolled(program), true
}

// --- (v) permission -----------------------------------------------------

var rePermission = regexp.MustCompile(`(?i)permission of (?:the )?(course coordinator|head of school)`)

func parsePermission(clause string) (catalog.Node, bool) {
	m := rePermission.FindStringSubmatch(clause)
	if m == nil {
		return catalog.Node{}, false
	}
	return catalog.Permission(strings.ToLower(m[1])), true
}

// --- (vi) textual cue fallbacks --------------------------------------------

var (
	reOneOf   = regexp.MustCompile(`(?i)\b(one of|any of|either)\b`)
	reBothOf  = regexp.MustCompile(`(?i)\bboth of\b`)
	reBareOr  = regexp.MustCompile(`(?i)\bor\b`)
	reBareAnd = regexp.MustCompile(`(?i)\band\b`)
)

func parseTextualCue(clause string) (catalog.Node, bool) {
	codes := filterLevel7(extractCodes(clause))
	if len(codes) == 0 {
		return catalog.Node{}, false
	}
	nodes := courseNodes(codes)

	switch {
	case reOneOf.MatchString(clause):
		return catalog.NOf(1, nodes...), true
	case reBothOf.MatchString(clause):
		return catalog.NOf(2, nodes...), true
	case reBareOr.MatchString(clause):
		return catalog.Or(nodes...), true
	case reBareAnd.MatchString(clause):
		return catalog.And(nodes...), true
	}
	return catalog.Node{}, false
}

// --- shared helpers ----------------------------------------------------

func extractCodes(s string) []catalog.CourseCode {
	var out []catalog.CourseCode
	for _, m := range reCourseCode.FindAllString(s, -1) {
		out = append(out, catalog.CourseCode(m))
	}
	return out
}

func filterLevel7(codes []catalog.CourseCode) []catalog.CourseCode {
	var out []catalog.CourseCode
	for _, c := range codes {
		if !c.IsLevel7() {
			out = append(out, c)
		}
	}
	return out
}

func courseNodeOrZero(code catalog.CourseCode) catalog.Node {
	if code.IsLevel7() {
		return catalog.Node{}
	}
	return catalog.Course(code)
}

func courseNodes(codes []catalog.CourseCode) []catalog.Node {
	var out []catalog.Node
	for _, c := range filterLevel7(codes) {
		out = append(out, catalog.Course(c))
	}
	return out
}
