package main

import (
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hasan-ston/catalogx/internal/catalog"
	"github.com/hasan-ston/catalogx/internal/crawl"
	"github.com/hasan-ston/catalogx/internal/graphfile"
	"github.com/hasan-ston/catalogx/internal/graphx"
	"github.com/hasan-ston/catalogx/internal/store"
	"github.com/hasan-ston/catalogx/internal/streamio"
)

var (
	rankLog  = log.New(log.Writer(), "[rank] ", log.LstdFlags)
	topoLog  = log.New(log.Writer(), "[topo] ", log.LstdFlags)
	graphLog = log.New(log.Writer(), "[graph] ", log.LstdFlags)
)

var (
	crawlBaseURL  string
	crawlYearsRaw string
	crawlPrefixes []string
	crawlWorkers  int
	crawlLevels   string
	crawlFullAST  bool
	crawlRate     float64
	crawlBurst    float64
	crawlOutDir   string
	crawlDBPath   string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Harvest a course catalog and derive its dependency graph",
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlBaseURL, "base-url", "", "Base URL of the course catalog (required)")
	crawlCmd.Flags().StringVar(&crawlYearsRaw, "years", "", "Comma-separated catalog years, e.g. 2024,2025 (required)")
	crawlCmd.Flags().StringSliceVar(&crawlPrefixes, "prefix", nil, "Subject prefixes to restrict the seed harvest to (repeatable)")
	crawlCmd.Flags().IntVar(&crawlWorkers, "workers", 16, "Worker count; batch size and concurrency scale from this")
	crawlCmd.Flags().StringVar(&crawlLevels, "levels", "", "Optional range lo-hi over a code's four-digit number, e.g. 1000-4999")
	crawlCmd.Flags().BoolVar(&crawlFullAST, "full-ast", true, "Stream the structured AST map alongside raw rows")
	crawlCmd.Flags().Float64Var(&crawlRate, "rate", 4.0, "Requests per second")
	crawlCmd.Flags().Float64Var(&crawlBurst, "burst", 8.0, "Token bucket burst capacity")
	crawlCmd.Flags().StringVar(&crawlOutDir, "out", "catalogx-output", "Output directory for crawl artifacts")
	crawlCmd.Flags().StringVar(&crawlDBPath, "db", "", "Optional SQLite database path to persist results durably")

	_ = crawlCmd.MarkFlagRequired("base-url")
	_ = crawlCmd.MarkFlagRequired("years")
}

func parseYears(raw string) ([]int, error) {
	var years []int
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		y, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q: %w", tok, err)
		}
		years = append(years, y)
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("--years must list at least one year")
	}
	return years, nil
}

func parseLevelRange(raw string) (lo, hi int, has bool, err error) {
	if raw == "" {
		return 0, 0, false, nil
	}
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false, fmt.Errorf("invalid --levels %q, expected lo-hi", raw)
	}
	lo, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid --levels lower bound: %w", err)
	}
	hi, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid --levels upper bound: %w", err)
	}
	return lo, hi, true, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	years, err := parseYears(crawlYearsRaw)
	if err != nil {
		return err
	}
	lo, hi, hasRange, err := parseLevelRange(crawlLevels)
	if err != nil {
		return err
	}

	cfg := crawl.Config{
		BaseURL:  crawlBaseURL,
		Years:    years,
		Prefixes: crawlPrefixes,
		Workers:  crawlWorkers,
		LevelLo:  lo,
		LevelHi:  hi,
		HasRange: hasRange,
		FullAST:  crawlFullAST,
		Rate:     crawlRate,
		Burst:    crawlBurst,
		OutDir:   crawlOutDir,
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	driver, err := crawl.New(cfg)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	cfgLog.Printf("starting crawl base=%s years=%v prefixes=%v workers=%d rate=%.2f burst=%.2f out=%s",
		cfg.BaseURL, cfg.Years, cfg.Prefixes, cfg.Workers, cfg.Rate, cfg.Burst, cfg.OutDir)

	result, err := driver.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	cfgLog.Printf("crawl complete: pages=%d edges=%d conflicts=%d", result.Pages, result.Edges, result.Conflicts)

	g := graphx.BuildFromEdges(driver.Edges())
	analysis := graphx.Analyze(g)

	if err := writeRanksAndTopo(cfg.OutDir, analysis); err != nil {
		return fmt.Errorf("writing ranks/topo: %w", err)
	}

	pages := driver.Pages()
	conflicts := driver.Conflicts()
	if err := writeGraphFiles(cfg.OutDir, g, analysis, pages, conflicts); err != nil {
		return fmt.Errorf("writing graph files: %w", err)
	}

	if crawlDBPath != "" {
		records := driver.Records()
		if err := persistToStore(crawlDBPath, cfg.BaseURL, pages, records, driver.Edges(), conflicts, analysis); err != nil {
			return fmt.Errorf("persisting to store: %w", err)
		}
	}

	return nil
}

func writeRanksAndTopo(outDir string, analysis graphx.Analysis) error {
	ranksWriter, err := streamio.NewRowWriter(filepath.Join(outDir, "ranks.csv"),
		[]string{"course", "level", "in_degree", "out_degree", "pagerank", "scc_id", "scc_size"})
	if err != nil {
		return err
	}
	defer ranksWriter.Close()
	for _, r := range analysis.Ranks {
		if err := ranksWriter.Append([]string{
			string(r.Course), strconv.Itoa(r.Level), strconv.Itoa(r.InDegree), strconv.Itoa(r.OutDegree),
			strconv.FormatFloat(r.PageRank, 'f', -1, 64), strconv.Itoa(r.SCCID), strconv.Itoa(r.SCCSize),
		}); err != nil {
			return err
		}
	}
	rankLog.Printf("wrote %d rank rows", len(analysis.Ranks))

	topoWriter, err := streamio.NewRowWriter(filepath.Join(outDir, "topo_order.csv"), []string{"course", "order"})
	if err != nil {
		return err
	}
	defer topoWriter.Close()
	for _, t := range analysis.Topo {
		if err := topoWriter.Append([]string{string(t.Course), strconv.Itoa(t.Order)}); err != nil {
			return err
		}
	}
	topoLog.Printf("wrote %d topo rows", len(analysis.Topo))
	return nil
}

func writeGraphFiles(outDir string, g *graphx.Graph, analysis graphx.Analysis, pages map[catalog.CourseCode]catalog.CoursePage, conflicts []catalog.ConflictPair) error {
	incompatBy := make(map[catalog.CourseCode][]catalog.CourseCode)
	for _, p := range conflicts {
		incompatBy[p.Min] = append(incompatBy[p.Min], p.Max)
		incompatBy[p.Max] = append(incompatBy[p.Max], p.Min)
	}

	info := make(map[catalog.CourseCode]graphfile.PrereqNodeInfo, len(pages))
	for code, page := range pages {
		info[code] = graphfile.PrereqNodeInfo{
			Title:        page.Title,
			URL:          page.URL,
			IncompatWith: incompatBy[code],
		}
	}

	if err := graphfile.WritePrereqGraph(filepath.Join(outDir, "prereqs.graphml"), g, analysis, info); err != nil {
		return err
	}

	ig := graphx.BuildIncompatGraph(conflicts)
	if err := graphfile.WriteIncompatGraph(filepath.Join(outDir, "incompat.graphml"), ig, conflicts); err != nil {
		return err
	}
	graphLog.Printf("wrote prereqs.graphml and incompat.graphml")
	return nil
}

func persistToStore(dbPath, baseURL string, pages map[catalog.CourseCode]catalog.CoursePage, records map[catalog.CourseCode]catalog.CourseRecord, edges []catalog.Edge, conflicts []catalog.ConflictPair, analysis graphx.Analysis) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	runID := uuid.New().String()
	startedAt := time.Now().UTC().Format(time.RFC3339)
	if err := s.StartRun(runID, baseURL, startedAt); err != nil {
		return err
	}

	for code, page := range pages {
		if err := s.SaveCourse(runID, page, records[code]); err != nil {
			return fmt.Errorf("save course %s: %w", code, err)
		}
	}
	for _, e := range edges {
		if err := s.SaveEdge(runID, e); err != nil {
			return err
		}
	}
	for _, p := range conflicts {
		if err := s.SaveConflict(runID, p); err != nil {
			return err
		}
	}
	if err := s.SaveRanks(runID, analysis.Ranks); err != nil {
		return err
	}

	finishedAt := time.Now().UTC().Format(time.RFC3339)
	return s.FinishRun(runID, finishedAt, len(pages), len(edges), len(conflicts))
}
