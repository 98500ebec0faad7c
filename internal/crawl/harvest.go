package crawl

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"

	"github.com/hasan-ston/catalogx/internal/catalog"
	"github.com/hasan-ston/catalogx/internal/fetch"
)

var harvestLog = log.New(log.Writer(), "[harvest] ", log.LstdFlags)

// reCourseLink extracts course codes from the course_code= query parameter
// of any course.html link found in a search results page.
var reCourseLink = regexp.MustCompile(`course_code=([A-Z]{4}[0-9]{4}[A-Z]?)`)

// SearchURL builds the search.html URL for one (year, keywords) pair.
func SearchURL(base string, year int, keywords string) string {
	return fmt.Sprintf("%s/search.html?searchType=coursecode&keywords=%s&year=%d",
		base, url.QueryEscape(keywords), year)
}

// CourseURL builds the course.html URL for one code, optionally pinned
// to a catalog year.
func CourseURL(base string, code catalog.CourseCode, year int) string {
	if year == 0 {
		return fmt.Sprintf("%s/course.html?course_code=%s", base, code)
	}
	return fmt.Sprintf("%s/course.html?course_code=%s&year=%d", base, code, year)
}

// harvestSeeds queries search.html for every (year, digit, prefix) tuple
// and unions the discovered course codes, filtering level-7 codes and
// any codes outside the configured level range.
func harvestSeeds(ctx context.Context, f *fetch.Fetcher, cfg Config) []catalog.CourseCode {
	seen := make(map[catalog.CourseCode]bool)
	var seeds []catalog.CourseCode

	prefixes := cfg.Prefixes
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}

	for _, year := range cfg.Years {
		for digit := 0; digit <= 9; digit++ {
			for _, prefix := range prefixes {
				keywords := fmt.Sprintf("%s%d***", prefix, digit)
				if prefix == "" {
					keywords = fmt.Sprintf("****%d***", digit)
				}
				searchURL := SearchURL(cfg.BaseURL, year, keywords)
				body, ok := f.GetText(ctx, searchURL)
				if !ok {
					harvestLog.Printf("search failed year=%d keywords=%s", year, keywords)
					continue
				}
				for _, m := range reCourseLink.FindAllStringSubmatch(body, -1) {
					code := catalog.CourseCode(m[1])
					if !acceptSeed(code, cfg) || seen[code] {
						continue
					}
					seen[code] = true
					seeds = append(seeds, code)
				}
			}
		}
	}

	harvestLog.Printf("harvested %d seed codes", len(seeds))
	return seeds
}

func acceptSeed(code catalog.CourseCode, cfg Config) bool {
	if code.IsLevel7() {
		return false
	}
	if !cfg.HasRange {
		return true
	}
	lvl := code.Level()
	if lvl < 0 {
		return false
	}
	return lvl >= cfg.LevelLo && lvl <= cfg.LevelHi
}
