package requisite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStripsLeadingLabel(t *testing.T) {
	require.Equal(t, "CSSE1001 and MATH1051", Normalize("Prerequisite: CSSE1001 and MATH1051"))
	require.Equal(t, "CSSE1001", Normalize("Prerequisites:   CSSE1001"))
	require.Equal(t, "CSSE1001", Normalize("Prerequisite(s): CSSE1001"))
}

func TestNormalizeMarksCoRequisite(t *testing.T) {
	require.Equal(t, "CSSE2002. Co-requisite: MATH2000", Normalize("Prerequisite: CSSE2002. Co-requisite(s): MATH2000"))
}

func TestNormalizeBrackets(t *testing.T) {
	require.Equal(t, "(CSSE1001 or CSSE1000)", Normalize("[CSSE1001 or CSSE1000]"))
}

func TestNormalizeAndOr(t *testing.T) {
	require.Equal(t, "CSSE1001 or MATH1051", Normalize("CSSE1001 and/or MATH1051"))
}

func TestNormalizePlusAmpersand(t *testing.T) {
	require.Equal(t, "CSSE1001 and MATH1051", Normalize("CSSE1001 + MATH1051"))
	require.Equal(t, "CSSE1001 and MATH1051", Normalize("CSSE1001 & MATH1051"))
}

func TestNormalizeCommaOrPrecedence(t *testing.T) {
	require.Equal(t, "(CSSE1001 or CSSE1000) and MATH1051", Normalize("CSSE1001 or CSSE1000, MATH1051"))
}

func TestNormalizeOrAndPrecedence(t *testing.T) {
	require.Equal(t, "(CSSE1001 or CSSE1000) and MATH1051", Normalize("CSSE1001 or CSSE1000 and MATH1051"))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Prerequisite: CSSE1001 and MATH1051",
		"CSSE1001 or CSSE1000, MATH1051",
		"CSSE1001 or CSSE1000 and MATH1051",
		"Prerequisite: CSSE2002. Co-requisite(s): MATH2000",
		"[CSSE1001 or CSSE1000]",
		"2 units from MATH1051, MATH1052, STAT1301",
		"",
		"   just some prose with no codes   ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		require.Equal(t, once, twice, "not idempotent for %q", in)
	}
}
