package catalog

import "sort"

// Op is the discriminator tag for a requisite AST node, preserved verbatim
// in the "op" field of the structured JSON output.
type Op string

const (
	OpCourse         Op = "COURSE"
	OpAnd            Op = "AND"
	OpOr             Op = "OR" // never appears in a built tree; canonicalized to NOf(1, ...)
	OpNOf            Op = "N_OF"
	OpUnitsFrom      Op = "UNITS_FROM"
	OpCreditsAtLevel Op = "CREDITS_AT_LEVEL"
	OpEnrolled       Op = "ENROLLED"
	OpPermission     Op = "PERMISSION"
	OpNoneOf         Op = "NONE_OF"
	OpText           Op = "TEXT"
)

// Node is a requisite AST node. Exactly one of the typed fields is
// meaningful for a given Op; the rest are zero. This mirrors the source
// system's heterogeneous discriminated map, re-expressed as a Go struct
// since Go has no native sum type.
type Node struct {
	Op Op

	// COURSE
	Code CourseCode

	// AND / N_OF / NONE_OF
	Args []Node

	// N_OF
	N int

	// UNITS_FROM / CREDITS_AT_LEVEL
	MinUnits int
	Courses  []CourseCode // UNITS_FROM only
	Level    int          // CREDITS_AT_LEVEL only

	// ENROLLED
	Program string

	// PERMISSION
	Who string

	// TEXT
	Text string
}

// IsZero reports whether n is the absent/None node.
func (n Node) IsZero() bool { return n.Op == "" }

// Course builds a COURSE leaf.
func Course(code CourseCode) Node {
	return Node{Op: OpCourse, Code: code}
}

// And builds an AND node, flattening nested ANDs and deduplicating COURSE
// children. A single remaining child collapses to that child.
func And(children ...Node) Node {
	flat := flattenDedup(OpAnd, children)
	if len(flat) == 0 {
		return Node{}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Node{Op: OpAnd, Args: flat}
}

// Or builds an OR node and immediately canonicalizes it to N_OF(1, ...),
// per the invariant that OR never survives into a built tree.
func Or(children ...Node) Node {
	flat := flattenDedup(OpOr, children)
	if len(flat) == 0 {
		return Node{}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return Node{Op: OpNOf, N: 1, Args: flat}
}

// NOf builds an N_OF node requiring at least n of the given children.
func NOf(n int, children ...Node) Node {
	flat := flattenDedup(OpNOf, children)
	if len(flat) == 0 {
		return Node{}
	}
	if len(flat) == 1 && n <= 1 {
		return flat[0]
	}
	return Node{Op: OpNOf, N: n, Args: flat}
}

// NoneOf builds a NONE_OF node, used exclusively for incompatibility sets.
func NoneOf(children ...Node) Node {
	flat := flattenDedup(OpNoneOf, children)
	if len(flat) == 0 {
		return Node{}
	}
	return Node{Op: OpNoneOf, Args: flat}
}

// UnitsFrom builds a UNITS_FROM node. Courses are sorted and deduplicated.
func UnitsFrom(minUnits int, courses []CourseCode) Node {
	return Node{Op: OpUnitsFrom, MinUnits: minUnits, Courses: sortUniqueCodes(courses)}
}

// CreditsAtLevel builds a CREDITS_AT_LEVEL node.
func CreditsAtLevel(minUnits, level int) Node {
	return Node{Op: OpCreditsAtLevel, MinUnits: minUnits, Level: level}
}

// Enrolled builds an ENROLLED node.
func Enrolled(program string) Node {
	return Node{Op: OpEnrolled, Program: program}
}

// Permission builds a PERMISSION node.
func Permission(who string) Node {
	return Node{Op: OpPermission, Who: who}
}

// Text builds the opaque TEXT fallback, preserving the source clause.
func Text(text string) Node {
	return Node{Op: OpText, Text: text}
}

// flattenDedup flattens same-op children into a single argument list and
// deduplicates COURSE leaves by code. Non-COURSE children are kept as-is
// (by position, not identity; Go values have no identity to dedup on).
func flattenDedup(op Op, children []Node) []Node {
	var flat []Node
	for _, c := range children {
		if c.IsZero() {
			continue
		}
		if c.Op == op && (op == OpAnd || op == OpOr || op == OpNOf || op == OpNoneOf) {
			flat = append(flat, c.Args...)
			continue
		}
		flat = append(flat, c)
	}

	seenCourse := make(map[CourseCode]bool)
	var out []Node
	for _, c := range flat {
		if c.Op == OpCourse {
			if seenCourse[c.Code] {
				continue
			}
			seenCourse[c.Code] = true
		}
		out = append(out, c)
	}
	return out
}

func sortUniqueCodes(codes []CourseCode) []CourseCode {
	seen := make(map[CourseCode]bool)
	var out []CourseCode
	for _, c := range codes {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CourseCodes recursively collects every COURSE.code reference and every
// UNITS_FROM.courses entry reachable from n.
func CourseCodes(n Node) []CourseCode {
	var out []CourseCode
	var walk func(Node)
	walk = func(n Node) {
		if n.IsZero() {
			return
		}
		switch n.Op {
		case OpCourse:
			out = append(out, n.Code)
		case OpUnitsFrom:
			out = append(out, n.Courses...)
		}
		for _, a := range n.Args {
			walk(a)
		}
	}
	walk(n)
	return sortUniqueCodes(out)
}
