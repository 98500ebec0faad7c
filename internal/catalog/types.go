// Package catalog holds the data model shared by the crawler, the requisite
// parser, and the graph analyzer: course codes, fetched pages, and the sets
// the crawl driver accumulates as it runs.
package catalog

import "regexp"

// courseCodeRe matches AAAA9999 or AAAA9999A: four uppercase letters, four
// digits, optional trailing uppercase letter.
var courseCodeRe = regexp.MustCompile(`^[A-Z]{4}[0-9]{4}[A-Z]?$`)

// CourseCode is an opaque course identifier. Equality is exact-string.
type CourseCode string

// IsValid reports whether c matches the course code pattern.
func (c CourseCode) IsValid() bool {
	return courseCodeRe.MatchString(string(c))
}

// IsLevel7 reports whether c is a postgraduate (level-7) code, i.e. its fifth
// character is '7'. Level-7 codes are excluded everywhere in this system.
func (c CourseCode) IsLevel7() bool {
	if len(c) < 5 {
		return false
	}
	return c[4] == '7'
}

// Level returns the numeric level encoded in characters 5-8 (the four
// digits after the subject prefix), or -1 if c is not a well-formed code.
func (c CourseCode) Level() int {
	if len(c) < 8 {
		return -1
	}
	n := 0
	for i := 4; i < 8; i++ {
		if c[i] < '0' || c[i] > '9' {
			return -1
		}
		n = n*10 + int(c[i]-'0')
	}
	return n
}

// CoursePage is the fetched-and-extracted content of one course catalog
// page. It is created once per crawled code (with only Code and URL set when
// the fetch or the HTML parse fails) and never mutated again.
type CoursePage struct {
	Code        CourseCode
	URL         string
	Title       string
	PrereqRaw   string
	IncompatRaw string
	UnitsRaw    string
	Summary     string
}

// RequisiteBundle is the parsed-AST output for a single course.
type RequisiteBundle struct {
	Prereq Node
	Coreq  Node
	Raw    string
}

// Edge is a directed prerequisite edge: Prereq is a prerequisite of Course.
type Edge struct {
	Course CourseCode
	Prereq CourseCode
}

// ConflictPair is a canonical, ordered (Min, Max) representation of an
// unordered incompatibility pair.
type ConflictPair struct {
	Min CourseCode
	Max CourseCode
}

// NewConflictPair builds the canonical ordering for an unordered pair.
func NewConflictPair(a, b CourseCode) ConflictPair {
	if a <= b {
		return ConflictPair{Min: a, Max: b}
	}
	return ConflictPair{Min: b, Max: a}
}
