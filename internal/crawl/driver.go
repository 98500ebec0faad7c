package crawl

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hasan-ston/catalogx/internal/catalog"
	"github.com/hasan-ston/catalogx/internal/fetch"
	"github.com/hasan-ston/catalogx/internal/htmlpage"
	"github.com/hasan-ston/catalogx/internal/ratelimit"
	"github.com/hasan-ston/catalogx/internal/requisite"
	"github.com/hasan-ston/catalogx/internal/streamio"
)

var (
	crawlLog = log.New(log.Writer(), "[crawl] ", log.LstdFlags)
	hbLog    = log.New(log.Writer(), "[hb] ", log.LstdFlags)
)

const heartbeatInterval = 5 * time.Second

// Driver owns every piece of crawl-wide mutable state: the visited set, the
// LIFO frontier, the accumulated pages, and the deduplicated edge and
// conflict sets. Only Run's goroutine mutates this state, and only between
// suspension points, so no partial mutation is ever observed.
type Driver struct {
	cfg Config

	mu        sync.Mutex
	seen      map[catalog.CourseCode]bool
	queue     []catalog.CourseCode
	results   map[catalog.CourseCode]catalog.CoursePage
	records   map[catalog.CourseCode]catalog.CourseRecord
	edgeSet   map[catalog.Edge]bool
	edges     []catalog.Edge
	conflicts map[catalog.ConflictPair]bool

	fetcher *fetch.Fetcher

	rawWriter     *streamio.RowWriter
	structWriter  *streamio.MapWriter
	edgeWriter    *streamio.RowWriter
	conflictWrite *streamio.RowWriter
	allCourses    *os.File
	heartbeat     *os.File
}

// Result is the summary Run returns once the crawl completes.
type Result struct {
	Pages     int
	Edges     int
	Conflicts int
}

// New builds a Driver against cfg, opening every output file under
// cfg.OutDir. An error on writer creation is fatal; append errors later
// in the crawl are not.
func New(cfg Config) (*Driver, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("crawl: create out dir: %w", err)
	}

	d := &Driver{
		cfg:       cfg,
		seen:      make(map[catalog.CourseCode]bool),
		results:   make(map[catalog.CourseCode]catalog.CoursePage),
		records:   make(map[catalog.CourseCode]catalog.CourseRecord),
		edgeSet:   make(map[catalog.Edge]bool),
		conflicts: make(map[catalog.ConflictPair]bool),
		fetcher:   fetch.New(ratelimit.New(cfg.Rate, cfg.Burst), cfg.BaseURL),
	}

	var err error
	if d.rawWriter, err = streamio.NewRowWriter(filepath.Join(cfg.OutDir, "courses_raw.csv"),
		[]string{"course_code", "url", "title", "prereq_raw", "incompat_raw"}); err != nil {
		return nil, fmt.Errorf("crawl: open courses_raw: %w", err)
	}
	if d.structWriter, err = streamio.NewMapWriter(filepath.Join(cfg.OutDir, "prereq_structured.json")); err != nil {
		return nil, fmt.Errorf("crawl: open prereq_structured: %w", err)
	}
	if d.edgeWriter, err = streamio.NewRowWriter(filepath.Join(cfg.OutDir, "edges_basic.csv"),
		[]string{"course", "prereq"}); err != nil {
		return nil, fmt.Errorf("crawl: open edges_basic: %w", err)
	}
	if d.conflictWrite, err = streamio.NewRowWriter(filepath.Join(cfg.OutDir, "conflicts.csv"),
		[]string{"course", "conflict_with"}); err != nil {
		return nil, fmt.Errorf("crawl: open conflicts: %w", err)
	}
	if d.allCourses, err = os.Create(filepath.Join(cfg.OutDir, "all_courses.txt")); err != nil {
		return nil, fmt.Errorf("crawl: open all_courses: %w", err)
	}
	if d.heartbeat, err = os.Create(filepath.Join(cfg.OutDir, "heartbeat.txt")); err != nil {
		return nil, fmt.Errorf("crawl: open heartbeat: %w", err)
	}

	return d, nil
}

// Run harvests seed codes, writes all_courses.txt, starts the heartbeat,
// and drives the main batch loop until the frontier is exhausted. It
// returns after every writer is flushed and closed and the heartbeat
// goroutine has been cancelled and awaited.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	seeds := harvestSeeds(ctx, d.fetcher, d.cfg)
	for _, s := range seeds {
		if _, err := fmt.Fprintln(d.allCourses, s); err != nil {
			crawlLog.Printf("all_courses write failed: %v", err)
		}
	}
	d.allCourses.Sync()
	d.enqueue(seeds)

	hbCtx, hbCancel := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go d.runHeartbeat(hbCtx, start, hbDone)

	for {
		batch := d.drainBatch()
		if len(batch) == 0 {
			break
		}
		d.dispatchBatch(ctx, batch)

		delay := 50*time.Millisecond + time.Duration(rand.Intn(100))*time.Millisecond
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			goto done
		}
	}

done:
	hbCancel()
	<-hbDone

	result := Result{Pages: len(d.results), Edges: len(d.edges), Conflicts: len(d.conflicts)}
	return result, d.closeWriters()
}

func (d *Driver) closeWriters() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(d.rawWriter.Close())
	record(d.structWriter.Close())
	record(d.edgeWriter.Close())
	record(d.conflictWrite.Close())
	record(d.allCourses.Close())
	record(d.heartbeat.Close())
	return firstErr
}

// enqueue pushes codes onto the LIFO frontier that aren't already seen,
// without marking them seen: seen is set at dispatch time.
func (d *Driver) enqueue(codes []catalog.CourseCode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range codes {
		if d.seen[c] {
			continue
		}
		d.queue = append(d.queue, c)
	}
}

// drainBatch pops up to batchCap codes off the LIFO queue, skipping any
// already seen, and marks every returned code seen before returning.
func (d *Driver) drainBatch() []catalog.CourseCode {
	d.mu.Lock()
	defer d.mu.Unlock()

	cap := d.cfg.batchCap()
	var batch []catalog.CourseCode
	for len(d.queue) > 0 && len(batch) < cap {
		n := len(d.queue) - 1
		c := d.queue[n]
		d.queue = d.queue[:n]
		if d.seen[c] {
			continue
		}
		d.seen[c] = true
		batch = append(batch, c)
	}
	return batch
}

type fetchOutcome struct {
	code     catalog.CourseCode
	page     catalog.CoursePage
	ast      catalog.RequisiteBundle
	incompat catalog.Node
	ok       bool
}

// dispatchBatch launches one fetch task per code, bounded by the crawl
// semaphore, and processes each completion's side effects atomically: no
// interleaving of one task's writes with another's.
func (d *Driver) dispatchBatch(ctx context.Context, batch []catalog.CourseCode) {
	sem := make(chan struct{}, d.cfg.concurrency())
	outcomes := make(chan fetchOutcome, len(batch))
	var wg sync.WaitGroup

	for _, code := range batch {
		wg.Add(1)
		go func(code catalog.CourseCode) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes <- d.fetchOne(ctx, code)
		}(code)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for oc := range outcomes {
		d.processOutcome(oc)
	}
}

func (d *Driver) fetchOne(ctx context.Context, code catalog.CourseCode) fetchOutcome {
	url := CourseURL(d.cfg.BaseURL, code, 0)
	body, ok := d.fetcher.GetText(ctx, url)
	if !ok {
		return fetchOutcome{code: code, page: catalog.CoursePage{Code: code, URL: url}}
	}

	parsed, err := htmlpage.Parse(body)
	if err != nil {
		crawlLog.Printf("parse failed for %s: %v", code, err)
		return fetchOutcome{code: code, page: catalog.CoursePage{Code: code, URL: url}}
	}

	page := catalog.CoursePage{
		Code:        code,
		URL:         url,
		Title:       parsed.Title,
		PrereqRaw:   parsed.PrereqRaw,
		IncompatRaw: parsed.IncompatRaw,
		UnitsRaw:    parsed.UnitsRaw,
		Summary:     parsed.Summary,
	}

	bundle := requisite.ParseBundle(page.PrereqRaw)
	incompat := requisite.ParseIncompat(page.IncompatRaw)

	return fetchOutcome{
		code:     code,
		page:     page,
		ast:      bundle,
		incompat: incompat,
		ok:       true,
	}
}

// processOutcome applies every side effect of one completed fetch: store
// the page, stream the raw row and (if enabled) the structured entry, walk
// the prereq/coreq/incompat nodes to discover new codes and edges/conflicts,
// and enqueue anything not yet seen. Called only from dispatchBatch's single
// consumer loop, so these writes never interleave across tasks.
func (d *Driver) processOutcome(o fetchOutcome) {
	if !o.ok {
		crawlLog.Printf("no content for %s, recording empty fields", o.code)
	}

	d.mu.Lock()
	d.results[o.code] = o.page
	d.mu.Unlock()

	if err := d.rawWriter.Append([]string{
		string(o.code), o.page.URL, o.page.Title, o.page.PrereqRaw, o.page.IncompatRaw,
	}); err != nil {
		crawlLog.Printf("raw row write failed for %s: %v", o.code, err)
	}

	record := catalog.CourseRecord{
		Prereq:   o.ast.Prereq,
		Coreq:    o.ast.Coreq,
		Raw:      o.ast.Raw,
		Incompat: o.incompat,
		Units:    o.page.UnitsRaw,
		Summary:  o.page.Summary,
	}
	d.mu.Lock()
	d.records[o.code] = record
	d.mu.Unlock()

	if d.cfg.FullAST {
		if err := d.structWriter.Put(string(o.code), record); err != nil {
			crawlLog.Printf("structured write failed for %s: %v", o.code, err)
		}
	}

	var discovered []catalog.CourseCode
	discovered = append(discovered, catalog.CourseCodes(o.ast.Prereq)...)
	discovered = append(discovered, catalog.CourseCodes(o.ast.Coreq)...)

	for _, ref := range discovered {
		if ref.IsLevel7() || ref == o.code {
			continue
		}
		d.addEdge(o.code, ref)
	}

	d.enqueueNew(discovered)

	for _, pair := range incompatPairs(o.code, o.incompat) {
		d.addConflict(pair)
	}
}

func incompatPairs(self catalog.CourseCode, incompat catalog.Node) []catalog.ConflictPair {
	if incompat.IsZero() {
		return nil
	}
	var pairs []catalog.ConflictPair
	for _, other := range catalog.CourseCodes(incompat) {
		if other.IsLevel7() || self.IsLevel7() || other == self {
			continue
		}
		pairs = append(pairs, catalog.NewConflictPair(self, other))
	}
	return pairs
}

func (d *Driver) addEdge(course, prereq catalog.CourseCode) {
	e := catalog.Edge{Course: course, Prereq: prereq}
	d.mu.Lock()
	if d.edgeSet[e] {
		d.mu.Unlock()
		return
	}
	d.edgeSet[e] = true
	d.edges = append(d.edges, e)
	d.mu.Unlock()

	if err := d.edgeWriter.Append([]string{string(course), string(prereq)}); err != nil {
		crawlLog.Printf("edge write failed for (%s,%s): %v", course, prereq, err)
	}
}

func (d *Driver) addConflict(pair catalog.ConflictPair) {
	d.mu.Lock()
	if d.conflicts[pair] {
		d.mu.Unlock()
		return
	}
	d.conflicts[pair] = true
	d.mu.Unlock()

	if err := d.conflictWrite.Append([]string{string(pair.Min), string(pair.Max)}); err != nil {
		crawlLog.Printf("conflict write failed for (%s,%s): %v", pair.Min, pair.Max, err)
	}
	if err := d.conflictWrite.Append([]string{string(pair.Max), string(pair.Min)}); err != nil {
		crawlLog.Printf("conflict write failed for (%s,%s): %v", pair.Max, pair.Min, err)
	}
}

func (d *Driver) enqueueNew(codes []catalog.CourseCode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range codes {
		if c.IsLevel7() || d.seen[c] {
			continue
		}
		d.queue = append(d.queue, c)
	}
}

// Edges returns the accumulated edge set in discovery order, for callers
// building the post-crawl graph.
func (d *Driver) Edges() []catalog.Edge {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]catalog.Edge(nil), d.edges...)
}

// Conflicts returns the accumulated conflict-pair set.
func (d *Driver) Conflicts() []catalog.ConflictPair {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]catalog.ConflictPair, 0, len(d.conflicts))
	for p := range d.conflicts {
		out = append(out, p)
	}
	return out
}

// Pages returns every fetched page accumulated so far.
func (d *Driver) Pages() map[catalog.CourseCode]catalog.CoursePage {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[catalog.CourseCode]catalog.CoursePage, len(d.results))
	for k, v := range d.results {
		out[k] = v
	}
	return out
}

// Records returns the structured requisite/incompatibility record derived
// for every fetched course, keyed the same way as Pages.
func (d *Driver) Records() map[catalog.CourseCode]catalog.CourseRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[catalog.CourseCode]catalog.CourseRecord, len(d.records))
	for k, v := range d.records {
		out[k] = v
	}
	return out
}

func (d *Driver) runHeartbeat(ctx context.Context, start time.Time, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.writeHeartbeat(start)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Driver) writeHeartbeat(start time.Time) {
	d.mu.Lock()
	line := fmt.Sprintf("t=%.0fs seen=%d results=%d queue=%d edges=%d conflicts=%d concurrency=%d rate=%.2f",
		time.Since(start).Seconds(), len(d.seen), len(d.results), len(d.queue),
		len(d.edges), len(d.conflicts), d.cfg.concurrency(), d.cfg.Rate)
	d.mu.Unlock()

	hbLog.Print(line)
	if _, err := fmt.Fprintln(d.heartbeat, line); err != nil {
		hbLog.Printf("heartbeat write failed: %v", err)
		return
	}
	d.heartbeat.Sync()
}
