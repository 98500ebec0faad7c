// Package htmlpage extracts the fields of a course catalog page (title,
// prerequisite and incompatibility prose, units, summary) from raw HTML.
package htmlpage

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var prereqPrimaryIDs = []string{
	"course-prerequisite",
	"course-prerequisites",
	"course-prequisite", // sic, matches the catalog's own typo
	"course-recommended-prerequisite",
	"course-recommended-prerequisites",
	"course-recommended-prequisite",
}

var incompatIDs = []string{
	"course-incompatible",
	"course-incompatable", // sic
}

var containerTags = []string{"div", "p", "section"}

var reWhitespace = regexp.MustCompile(`\s+`)

// Normalize collapses runs of whitespace to a single space and trims.
func Normalize(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// Page is the raw extracted content of one course page, before the text
// normalizer and requisite parser run over prereq/incompat.
type Page struct {
	Title       string
	PrereqRaw   string
	IncompatRaw string
	UnitsRaw    string
	Summary     string
}

// Parse extracts a Page from raw course-catalog HTML.
func Parse(html string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, err
	}

	return Page{
		Title:       extractTitle(doc),
		PrereqRaw:   extractPrereq(doc),
		IncompatRaw: extractByIDs(doc, incompatIDs),
		UnitsRaw:    Normalize(doc.Find("#course-units").First().Text()),
		Summary:     Normalize(doc.Find("#course-summary").First().Text()),
	}, nil
}

// extractTitle tries the course-title element, then falls back to the
// first top-level heading on the page.
func extractTitle(doc *goquery.Document) string {
	if t := doc.Find("#course-title").First(); t.Length() > 0 {
		return Normalize(t.Text())
	}
	for _, tag := range []string{"h1", "h2", "h3"} {
		if h := doc.Find(tag).First(); h.Length() > 0 {
			return Normalize(h.Text())
		}
	}
	return ""
}

// extractPrereq tries the known id list on div/p/section, then a
// "starts with course-pre, contains requisite" fallback, then a sibling
// block after a heading that mentions "Prerequisite".
func extractPrereq(doc *goquery.Document) string {
	if text := extractByIDs(doc, prereqPrimaryIDs); text != "" {
		return text
	}

	var found string
	doc.Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		idLower := strings.ToLower(id)
		if strings.HasPrefix(idLower, "course-pre") && strings.Contains(idLower, "requisite") {
			found = Normalize(s.Text())
			return found == ""
		}
		return true
	})
	if found != "" {
		return found
	}

	doc.Find("h1,h2,h3,h4,h5,h6").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(h.Text()), "prerequisite") {
			return true
		}
		next := h.Next()
		for next.Length() > 0 {
			tag := goquery.NodeName(next)
			if tag == "p" || tag == "div" || tag == "section" {
				if text := Normalize(next.Text()); text != "" {
					found = text
					return false
				}
			}
			next = next.Next()
		}
		return true
	})
	return found
}

// extractByIDs returns the normalized text of the first element matching
// any of ids on any of containerTags, in id-then-tag order.
func extractByIDs(doc *goquery.Document, ids []string) string {
	for _, id := range ids {
		for _, tag := range containerTags {
			sel := doc.Find(tag + "#" + id)
			if sel.Length() > 0 {
				if text := Normalize(sel.First().Text()); text != "" {
					return text
				}
			}
		}
	}
	return ""
}
