package webapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hasan-ston/catalogx/internal/authtoken"
	"github.com/hasan-ston/catalogx/internal/catalog"
	"github.com/hasan-ston/catalogx/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, err := store.Open(filepath.Join(t.TempDir(), "webapi_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.StartRun("run-1", "http://example.edu", "2026-01-01T00:00:00Z"))
	require.NoError(t, s.SaveCourse("run-1", catalog.CoursePage{
		Code:     "CSSE1001",
		Title:    "Intro to CS",
		UnitsRaw: "4",
		Summary:  "an intro course",
	}, catalog.CourseRecord{
		Prereq:   catalog.Course("MATH1051"),
		Incompat: catalog.NoneOf(catalog.Course("CSSE1002")),
		Units:    "4",
		Summary:  "an intro course",
	}))

	return New(s, "run-1"), s
}

func TestGetCourseJSONShape(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/courses/CSSE1001", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got courseJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "CSSE1001", got.Name)
	require.Equal(t, "an intro course", got.Description)
	require.Equal(t, 4, got.Units)
	require.Equal(t, []string{"CSSE1002"}, got.Incompatible)
	require.Equal(t, catalog.OpCourse, got.Prerequisites.Op)
}

func TestGetCourseNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/courses/NOPE0000", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body["error"])
}

func TestGetRequisitesRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/courses/CSSE1001/requisites", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "MATH1051")
}

func TestAdminReloadRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := authtoken.GenerateAdminToken()
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUnitsAsIntNonDigitFallsBackToZero(t *testing.T) {
	require.Equal(t, 0, unitsAsInt("variable"))
	require.Equal(t, 8, unitsAsInt("8"))
	require.Equal(t, 0, unitsAsInt(""))
}
