package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAndFlattensNestedAnd(t *testing.T) {
	a, b, c := Course("CSSE1001"), Course("MATH1051"), Course("STAT1301")
	got := And(And(a, b), c)
	want := And(a, b, c)
	require.Equal(t, want, got)
	require.Len(t, got.Args, 3)
}

func TestAndDeduplicatesCourseLeaves(t *testing.T) {
	a := Course("CSSE1001")
	got := And(a, a, Course("MATH1051"))
	require.Len(t, got.Args, 2)
}

func TestOrCanonicalizesToNOf(t *testing.T) {
	a, b := Course("CSSE1001"), Course("MATH1051")
	got := Or(a, b)
	require.Equal(t, OpNOf, got.Op)
	require.Equal(t, 1, got.N)
}

func TestSingleChildAndCollapses(t *testing.T) {
	a := Course("CSSE1001")
	require.Equal(t, a, And(a))
}

func TestOperatorsCollapseWhenAllChildrenAbsent(t *testing.T) {
	require.True(t, And(Node{}, Node{}).IsZero())
	require.True(t, Or(Node{}).IsZero())
	require.True(t, NOf(1).IsZero())
	require.True(t, NoneOf().IsZero())
}

func TestCourseCodesCollectsFromUnitsFromAndNested(t *testing.T) {
	n := And(
		Course("CSSE1001"),
		UnitsFrom(2, []CourseCode{"MATH1051", "MATH1052"}),
		NOf(1, Course("STAT1301"), Course("CSSE1001")),
	)
	codes := CourseCodes(n)
	require.Equal(t, []CourseCode{"CSSE1001", "MATH1051", "MATH1052", "STAT1301"}, codes)
}

func TestLevel7Detection(t *testing.T) {
	require.True(t, CourseCode("CSSE7030").IsLevel7())
	require.False(t, CourseCode("CSSE1001").IsLevel7())
}

func TestCourseCodeValidity(t *testing.T) {
	require.True(t, CourseCode("CSSE1001").IsValid())
	require.True(t, CourseCode("CSSE1001A").IsValid())
	require.False(t, CourseCode("csse1001").IsValid())
	require.False(t, CourseCode("CSSE100").IsValid())
}

func TestNewConflictPairCanonicalOrdering(t *testing.T) {
	p1 := NewConflictPair("MATH1051", "CSSE1001")
	p2 := NewConflictPair("CSSE1001", "MATH1051")
	require.Equal(t, p1, p2)
	require.Equal(t, CourseCode("CSSE1001"), p1.Min)
}
