package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func coursePage(title, prereq, incompat string) string {
	return fmt.Sprintf(`
		<html><body>
		<div id="course-title">%s</div>
		<div id="course-prerequisite">%s</div>
		<div id="course-incompatible">%s</div>
		<div id="course-units">4</div>
		<div id="course-summary">summary text</div>
		</body></html>`, title, prereq, incompat)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/search.html", func(w http.ResponseWriter, r *http.Request) {
		kw := r.URL.Query().Get("keywords")
		if strings.Contains(kw, "1") {
			w.Write([]byte(`<a href="course.html?course_code=CSSE1001">x</a>`))
			return
		}
		w.Write([]byte(``))
	})

	mux.HandleFunc("/course.html", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("course_code")
		switch code {
		case "CSSE1001":
			w.Write([]byte(coursePage("Intro to CS", "Prerequisite: MATH1051", "CSSE7030")))
		case "MATH1051":
			w.Write([]byte(coursePage("Calculus", "", "")))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	return httptest.NewServer(mux)
}

func TestDriverRunEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	dir := t.TempDir()
	cfg := Config{
		BaseURL: srv.URL,
		Years:   []int{2024},
		Workers: 8,
		FullAST: true,
		Rate:    1000,
		Burst:   1000,
		OutDir:  dir,
	}

	d, err := New(cfg)
	require.NoError(t, err)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.Pages, 2)
	require.GreaterOrEqual(t, result.Edges, 1)

	raw, err := os.ReadFile(filepath.Join(dir, "courses_raw.csv"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "CSSE1001")
	require.Contains(t, string(raw), "MATH1051")

	edges, err := os.ReadFile(filepath.Join(dir, "edges_basic.csv"))
	require.NoError(t, err)
	require.Contains(t, string(edges), "CSSE1001,MATH1051")

	structured, err := os.ReadFile(filepath.Join(dir, "prereq_structured.json"))
	require.NoError(t, err)
	require.Contains(t, string(structured), `"CSSE1001"`)
	require.True(t, strings.HasPrefix(string(structured), "{"))
	require.True(t, strings.HasSuffix(strings.TrimSpace(string(structured)), "}"))

	all, err := os.ReadFile(filepath.Join(dir, "all_courses.txt"))
	require.NoError(t, err)
	require.Contains(t, string(all), "CSSE1001")
}

func TestDriverExcludesLevel7Conflicts(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	dir := t.TempDir()
	cfg := Config{
		BaseURL: srv.URL,
		Years:   []int{2024},
		Workers: 8,
		Rate:    1000,
		Burst:   1000,
		OutDir:  dir,
	}

	d, err := New(cfg)
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.NoError(t, err)

	conflicts, err := os.ReadFile(filepath.Join(dir, "conflicts.csv"))
	require.NoError(t, err)
	require.NotContains(t, string(conflicts), "CSSE7030")
}

func TestBatchCapAndConcurrencyClamping(t *testing.T) {
	cfg := Config{Workers: 2}
	require.Equal(t, 200, cfg.batchCap())
	require.Equal(t, 6, cfg.concurrency())

	cfg = Config{Workers: 1000}
	require.Equal(t, 800, cfg.batchCap())
	require.Equal(t, 32, cfg.concurrency())
}
