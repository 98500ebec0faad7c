package htmlpage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseExtractsPrimaryFields(t *testing.T) {
	html := `
	<html><body>
	  <h1 id="course-title">Data Structures and Algorithms</h1>
	  <div id="course-prerequisite">CSSE1001 and MATH1051</div>
	  <p id="course-incompatible">CSSE7030, CSSE1001</p>
	  <span id="course-units">2</span>
	  <p id="course-summary">An introduction to data structures.</p>
	</body></html>`

	p, err := Parse(html)
	require.NoError(t, err)
	require.Equal(t, "Data Structures and Algorithms", p.Title)
	require.Equal(t, "CSSE1001 and MATH1051", p.PrereqRaw)
	require.Equal(t, "CSSE7030, CSSE1001", p.IncompatRaw)
	require.Equal(t, "2", p.UnitsRaw)
	require.Equal(t, "An introduction to data structures.", p.Summary)
}

func TestParseFallsBackToTypoID(t *testing.T) {
	html := `<html><body><div id="course-prequisite">CSSE1001</div></body></html>`
	p, err := Parse(html)
	require.NoError(t, err)
	require.Equal(t, "CSSE1001", p.PrereqRaw)
}

func TestParseFallsBackToPrefixMatch(t *testing.T) {
	html := `<html><body><section id="course-pre-special-requisite">MATH1051</section></body></html>`
	p, err := Parse(html)
	require.NoError(t, err)
	require.Equal(t, "MATH1051", p.PrereqRaw)
}

func TestParseFallsBackToHeadingSibling(t *testing.T) {
	html := `<html><body><h2>Prerequisites</h2><p>CSSE1001</p></body></html>`
	p, err := Parse(html)
	require.NoError(t, err)
	require.Equal(t, "CSSE1001", p.PrereqRaw)
}

func TestParseTitleFallsBackToHeading(t *testing.T) {
	html := `<html><body><h1>Fallback Title</h1></body></html>`
	p, err := Parse(html)
	require.NoError(t, err)
	require.Equal(t, "Fallback Title", p.Title)
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	require.Equal(t, "a b c", Normalize("  a   b\n\tc  "))
}
