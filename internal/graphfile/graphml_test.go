package graphfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hasan-ston/catalogx/internal/catalog"
	"github.com/hasan-ston/catalogx/internal/graphx"
)

func TestWritePrereqGraphContainsNodesAndEdges(t *testing.T) {
	g := graphx.BuildFromEdges([]catalog.Edge{
		{Course: "CSSE2002", Prereq: "CSSE1001"},
	})
	analysis := graphx.Analyze(g)
	path := filepath.Join(t.TempDir(), "prereq.graphml")

	info := map[catalog.CourseCode]PrereqNodeInfo{
		"CSSE1001": {Title: "Intro to CS", IncompatWith: []catalog.CourseCode{"CSSE1002"}},
	}
	require.NoError(t, WritePrereqGraph(path, g, analysis, info))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	require.Contains(t, out, `edgedefault="directed"`)
	require.Contains(t, out, `id="CSSE1001"`)
	require.Contains(t, out, `id="CSSE2002"`)
	require.Contains(t, out, "prereq")
}

func TestWriteIncompatGraphContainsComponentAndRelation(t *testing.T) {
	pairs := []catalog.ConflictPair{catalog.NewConflictPair("CSSE1001", "CSSE1002")}
	ig := graphx.BuildIncompatGraph(pairs)
	path := filepath.Join(t.TempDir(), "incompat.graphml")

	require.NoError(t, WriteIncompatGraph(path, ig, pairs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	require.Contains(t, out, `edgedefault="undirected"`)
	require.Contains(t, out, "incompat_component")
	require.Contains(t, out, "incompat")
}
