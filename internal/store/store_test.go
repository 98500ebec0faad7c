package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hasan-ston/catalogx/internal/catalog"
	"github.com/hasan-ston/catalogx/internal/graphx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalogx_test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycleAndLatestRunID(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.StartRun("run-1", "http://example.edu", "2026-01-01T00:00:00Z"))
	require.NoError(t, s.FinishRun("run-1", "2026-01-01T00:05:00Z", 2, 1, 0))

	latest, err := s.LatestRunID()
	require.NoError(t, err)
	require.Equal(t, "run-1", latest)
}

func TestSaveAndGetCourse(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StartRun("run-1", "http://example.edu", "2026-01-01T00:00:00Z"))

	page := catalog.CoursePage{
		Code:  "CSSE1001",
		URL:   "http://example.edu/course.html?course_code=CSSE1001",
		Title: "Intro to CS",
	}
	record := catalog.CourseRecord{
		Prereq: catalog.Course("MATH1051"),
		Units:  "4",
	}
	require.NoError(t, s.SaveCourse("run-1", page, record))

	got, err := s.GetCourse("run-1", "CSSE1001")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Intro to CS", got.Title)
	require.Equal(t, catalog.OpCourse, got.Record.Prereq.Op)
	require.Equal(t, catalog.CourseCode("MATH1051"), got.Record.Prereq.Code)

	missing, err := s.GetCourse("run-1", "NOPE0000")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestSaveEdgeAndConflictDeduplicate(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StartRun("run-1", "http://example.edu", "2026-01-01T00:00:00Z"))

	e := catalog.Edge{Course: "CSSE2002", Prereq: "CSSE1001"}
	require.NoError(t, s.SaveEdge("run-1", e))
	require.NoError(t, s.SaveEdge("run-1", e))

	var count int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM edges WHERE run_id = ?`, "run-1").Scan(&count))
	require.Equal(t, 1, count)

	pair := catalog.NewConflictPair("CSSE1001", "CSSE1002")
	require.NoError(t, s.SaveConflict("run-1", pair))
	require.NoError(t, s.SaveConflict("run-1", pair))
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM conflicts WHERE run_id = ?`, "run-1").Scan(&count))
	require.Equal(t, 1, count)
}

func TestSaveRanksReplacesPriorRows(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StartRun("run-1", "http://example.edu", "2026-01-01T00:00:00Z"))

	first := []graphx.Rank{{Course: "CSSE1001", Level: 0, PageRank: 0.5}}
	require.NoError(t, s.SaveRanks("run-1", first))

	second := []graphx.Rank{{Course: "CSSE2002", Level: 1, PageRank: 0.5}}
	require.NoError(t, s.SaveRanks("run-1", second))

	var count int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM ranks WHERE run_id = ?`, "run-1").Scan(&count))
	require.Equal(t, 1, count)
}

func TestListCoursesOrderedByCode(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.StartRun("run-1", "http://example.edu", "2026-01-01T00:00:00Z"))
	require.NoError(t, s.SaveCourse("run-1", catalog.CoursePage{Code: "MATH1051"}, catalog.CourseRecord{}))
	require.NoError(t, s.SaveCourse("run-1", catalog.CoursePage{Code: "CSSE1001"}, catalog.CourseRecord{}))

	rows, err := s.ListCourses("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "CSSE1001", rows[0].Code)
	require.Equal(t, "MATH1051", rows[1].Code)
}
