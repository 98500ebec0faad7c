// Package webapi is the external HTTP view over precomputed crawl output:
// a small gin-gonic server that reads course rows from the store and
// serves course JSON, plus an admin-gated maintenance endpoint for
// reloading the active run.
package webapi

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/hasan-ston/catalogx/internal/authtoken"
	"github.com/hasan-ston/catalogx/internal/catalog"
	"github.com/hasan-ston/catalogx/internal/store"
)

// Server wraps the store and the active run id behind the HTTP view.
type Server struct {
	store *store.Store

	mu    sync.RWMutex
	runID string
}

// New builds a Server bound to s. If runID is empty, every request resolves
// the latest run from the store at request time.
func New(s *store.Store, runID string) *Server {
	return &Server{store: s, runID: runID}
}

// Router builds the gin engine with every route wired.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/api/courses", s.listCourses)
	r.GET("/api/courses/:code", s.getCourse)
	r.GET("/api/courses/:code/requisites", s.getRequisites)

	admin := r.Group("/admin", authtoken.RequireAdmin())
	admin.POST("/reload", s.reload)

	return r
}

func (s *Server) resolveRunID() (string, error) {
	s.mu.RLock()
	runID := s.runID
	s.mu.RUnlock()
	if runID != "" {
		return runID, nil
	}
	return s.store.LatestRunID()
}

// courseJSON is the external course shape: name, description, an
// incompatible-code list, an integer units value (0 when the raw units
// string isn't purely digits), and the prerequisites AST.
type courseJSON struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Incompatible  []string      `json:"incompatible"`
	Units         int           `json:"units"`
	Prerequisites catalog.Node  `json:"prerequisites"`
	Coreq         *catalog.Node `json:"coreq,omitempty"`
}

func toCourseJSON(row store.CourseRow) courseJSON {
	cj := courseJSON{
		Name:          row.Code,
		Description:   row.Summary,
		Incompatible:  incompatibleCodes(row.Record.Incompat),
		Units:         unitsAsInt(row.Units),
		Prerequisites: row.Record.Prereq,
	}
	if !row.Record.Coreq.IsZero() {
		coreq := row.Record.Coreq
		cj.Coreq = &coreq
	}
	return cj
}

// incompatibleCodes selects COURSE codes directly out of the NONE_OF's
// argument list. Top-level args only, no recursion.
func incompatibleCodes(incompat catalog.Node) []string {
	out := []string{}
	if incompat.IsZero() {
		return out
	}
	for _, a := range incompat.Args {
		if a.Op == catalog.OpCourse {
			out = append(out, string(a.Code))
		}
	}
	return out
}

// unitsAsInt returns raw parsed as an integer when it is purely digits,
// else 0.
func unitsAsInt(raw string) int {
	if raw == "" {
		return 0
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) listCourses(c *gin.Context) {
	runID, err := s.resolveRunID()
	if err != nil || runID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no crawl data available"})
		return
	}
	rows, err := s.store.ListCourses(runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list courses"})
		return
	}
	out := make(map[string]courseJSON, len(rows))
	for _, row := range rows {
		out[row.Code] = toCourseJSON(row)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getCourse(c *gin.Context) {
	code := c.Param("code")
	runID, err := s.resolveRunID()
	if err != nil || runID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no crawl data available"})
		return
	}
	row, err := s.store.GetCourse(runID, code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load course"})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}
	c.JSON(http.StatusOK, toCourseJSON(*row))
}

func (s *Server) getRequisites(c *gin.Context) {
	code := c.Param("code")
	runID, err := s.resolveRunID()
	if err != nil || runID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no crawl data available"})
		return
	}
	row, err := s.store.GetCourse(runID, code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load course"})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"prereq":   row.Record.Prereq,
		"coreq":    row.Record.Coreq,
		"incompat": row.Record.Incompat,
	})
}

// reload re-resolves the latest run from the store, letting the server
// pick up a crawl that finished after it started without a restart.
func (s *Server) reload(c *gin.Context) {
	latest, err := s.store.LatestRunID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve latest run"})
		return
	}
	s.mu.Lock()
	s.runID = latest
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"run_id": latest})
}
