// Package store persists crawl output durably in SQLite, mirroring the
// flat-file outputs (courses_raw, edges_basic, conflicts, ranks) in queryable
// tables plus a crawl_runs table recording one row per crawl invocation.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hasan-ston/catalogx/internal/catalog"
	"github.com/hasan-ston/catalogx/internal/graphx"
)

type Store struct {
	DB *sql.DB
}

// Open opens (creating if absent) the SQLite database at dbPath in WAL mode
// and ensures the schema exists.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot connect to db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	s := &Store{DB: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS crawl_runs (
			run_id TEXT PRIMARY KEY,
			base_url TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			pages INTEGER DEFAULT 0,
			edges INTEGER DEFAULT 0,
			conflicts INTEGER DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running'
		)`,
		`CREATE TABLE IF NOT EXISTS courses (
			run_id TEXT NOT NULL,
			code TEXT NOT NULL,
			url TEXT,
			title TEXT,
			prereq_raw TEXT,
			incompat_raw TEXT,
			units_raw TEXT,
			summary TEXT,
			prereq_json TEXT,
			coreq_json TEXT,
			incompat_json TEXT,
			PRIMARY KEY (run_id, code)
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			run_id TEXT NOT NULL,
			course TEXT NOT NULL,
			prereq TEXT NOT NULL,
			PRIMARY KEY (run_id, course, prereq)
		)`,
		`CREATE TABLE IF NOT EXISTS conflicts (
			run_id TEXT NOT NULL,
			course_min TEXT NOT NULL,
			course_max TEXT NOT NULL,
			PRIMARY KEY (run_id, course_min, course_max)
		)`,
		`CREATE TABLE IF NOT EXISTS ranks (
			run_id TEXT NOT NULL,
			course TEXT NOT NULL,
			level INTEGER,
			in_degree INTEGER,
			out_degree INTEGER,
			pagerank REAL,
			scc_id INTEGER,
			scc_size INTEGER,
			PRIMARY KEY (run_id, course)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_courses_code ON courses(code)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// StartRun inserts a crawl_runs row with status "running".
func (s *Store) StartRun(runID, baseURL, startedAt string) error {
	_, err := s.DB.Exec(
		`INSERT INTO crawl_runs (run_id, base_url, started_at, status) VALUES (?, ?, ?, 'running')`,
		runID, baseURL, startedAt,
	)
	return err
}

// FinishRun marks a run complete with its final counts.
func (s *Store) FinishRun(runID, finishedAt string, pages, edges, conflicts int) error {
	_, err := s.DB.Exec(
		`UPDATE crawl_runs SET finished_at = ?, pages = ?, edges = ?, conflicts = ?, status = 'done' WHERE run_id = ?`,
		finishedAt, pages, edges, conflicts, runID,
	)
	return err
}

// SaveCourse upserts one course's page fields and structured AST JSON.
func (s *Store) SaveCourse(runID string, page catalog.CoursePage, record catalog.CourseRecord) error {
	prereqJSON, err := json.Marshal(record.Prereq)
	if err != nil {
		return err
	}
	coreqJSON, err := json.Marshal(record.Coreq)
	if err != nil {
		return err
	}
	incompatJSON, err := json.Marshal(record.Incompat)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(`
		INSERT INTO courses (run_id, code, url, title, prereq_raw, incompat_raw, units_raw, summary, prereq_json, coreq_json, incompat_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, code) DO UPDATE SET
			url=excluded.url, title=excluded.title, prereq_raw=excluded.prereq_raw,
			incompat_raw=excluded.incompat_raw, units_raw=excluded.units_raw, summary=excluded.summary,
			prereq_json=excluded.prereq_json, coreq_json=excluded.coreq_json, incompat_json=excluded.incompat_json`,
		runID, string(page.Code), page.URL, page.Title, page.PrereqRaw, page.IncompatRaw, page.UnitsRaw, page.Summary,
		string(prereqJSON), string(coreqJSON), string(incompatJSON),
	)
	return err
}

// SaveEdge inserts one deduplicated prereq edge for the run.
func (s *Store) SaveEdge(runID string, e catalog.Edge) error {
	_, err := s.DB.Exec(`INSERT OR IGNORE INTO edges (run_id, course, prereq) VALUES (?, ?, ?)`,
		runID, string(e.Course), string(e.Prereq))
	return err
}

// SaveConflict inserts one canonical conflict pair for the run.
func (s *Store) SaveConflict(runID string, p catalog.ConflictPair) error {
	_, err := s.DB.Exec(`INSERT OR IGNORE INTO conflicts (run_id, course_min, course_max) VALUES (?, ?, ?)`,
		runID, string(p.Min), string(p.Max))
	return err
}

// SaveRanks replaces the ranks table rows for a run with the given analysis.
func (s *Store) SaveRanks(runID string, ranks []graphx.Rank) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM ranks WHERE run_id = ?`, runID); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO ranks (run_id, course, level, in_degree, out_degree, pagerank, scc_id, scc_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, r := range ranks {
		if _, err := stmt.Exec(runID, string(r.Course), r.Level, r.InDegree, r.OutDegree, r.PageRank, r.SCCID, r.SCCSize); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CourseRow is the persisted view of one course, joined with its structured
// AST fields, for GetCourse/ListCourses.
type CourseRow struct {
	Code    string
	URL     string
	Title   string
	Units   string
	Summary string
	Record  catalog.CourseRecord
}

// GetCourse fetches one course's row for the given run, or (nil, nil) if
// not found.
func (s *Store) GetCourse(runID, code string) (*CourseRow, error) {
	row := s.DB.QueryRow(`
		SELECT code, url, title, units_raw, summary, prereq_json, coreq_json, incompat_json
		FROM courses WHERE run_id = ? AND code = ?`, runID, code)
	return scanCourseRow(row)
}

func scanCourseRow(row *sql.Row) (*CourseRow, error) {
	var c CourseRow
	var prereqJSON, coreqJSON, incompatJSON sql.NullString
	if err := row.Scan(&c.Code, &c.URL, &c.Title, &c.Units, &c.Summary, &prereqJSON, &coreqJSON, &incompatJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if prereqJSON.Valid {
		json.Unmarshal([]byte(prereqJSON.String), &c.Record.Prereq)
	}
	if coreqJSON.Valid {
		json.Unmarshal([]byte(coreqJSON.String), &c.Record.Coreq)
	}
	if incompatJSON.Valid {
		json.Unmarshal([]byte(incompatJSON.String), &c.Record.Incompat)
	}
	return &c, nil
}

// ListCourses returns every course row for a run, ordered by code.
func (s *Store) ListCourses(runID string) ([]CourseRow, error) {
	rows, err := s.DB.Query(`
		SELECT code, url, title, units_raw, summary, prereq_json, coreq_json, incompat_json
		FROM courses WHERE run_id = ? ORDER BY code`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CourseRow{}
	for rows.Next() {
		var c CourseRow
		var prereqJSON, coreqJSON, incompatJSON sql.NullString
		if err := rows.Scan(&c.Code, &c.URL, &c.Title, &c.Units, &c.Summary, &prereqJSON, &coreqJSON, &incompatJSON); err != nil {
			return nil, err
		}
		if prereqJSON.Valid {
			json.Unmarshal([]byte(prereqJSON.String), &c.Record.Prereq)
		}
		if coreqJSON.Valid {
			json.Unmarshal([]byte(coreqJSON.String), &c.Record.Coreq)
		}
		if incompatJSON.Valid {
			json.Unmarshal([]byte(incompatJSON.String), &c.Record.Incompat)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestRunID returns the run_id of the most recently started run that has
// been marked done by FinishRun, or "" if no such run exists.
func (s *Store) LatestRunID() (string, error) {
	var runID string
	err := s.DB.QueryRow(`SELECT run_id FROM crawl_runs WHERE status = 'done' ORDER BY started_at DESC LIMIT 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return runID, err
}
