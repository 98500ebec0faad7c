// Package graphfile serializes the analyzed prerequisite and
// incompatibility graphs to GraphML.
package graphfile

import (
	"encoding/xml"
	"os"
	"sort"
	"strconv"

	"github.com/hasan-ston/catalogx/internal/catalog"
	"github.com/hasan-ston/catalogx/internal/graphx"
)

func itoa(n int) string     { return strconv.Itoa(n) }
func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

type graphmlKey struct {
	XMLName xml.Name `xml:"key"`
	ID      string   `xml:"id,attr"`
	For     string   `xml:"for,attr"`
	Name    string   `xml:"attr.name,attr"`
	Type    string   `xml:"attr.type,attr"`
}

type graphmlData struct {
	XMLName xml.Name `xml:"data"`
	Key     string   `xml:"key,attr"`
	Value   string   `xml:",chardata"`
}

type graphmlNode struct {
	XMLName xml.Name      `xml:"node"`
	ID      string        `xml:"id,attr"`
	Data    []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	XMLName xml.Name      `xml:"edge"`
	Source  string        `xml:"source,attr"`
	Target  string        `xml:"target,attr"`
	Data    []graphmlData `xml:"data"`
}

type graphmlGraph struct {
	XMLName     xml.Name      `xml:"graph"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	XMLNS   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

func attr(key, value string) graphmlData {
	return graphmlData{Key: key, Value: value}
}

// PrereqNodeInfo bundles the per-node attributes that go on the
// prereqs-only graph file.
type PrereqNodeInfo struct {
	Title        string
	URL          string
	IncompatWith []catalog.CourseCode
}

// WritePrereqGraph writes the directed prereq graph with relation="prereq"
// edges and per-node label, title, url, level, indegree, outdegree,
// pagerank, scc_id, scc_size, incompat_count, and incompat_with attributes.
func WritePrereqGraph(path string, g *graphx.Graph, analysis graphx.Analysis, info map[catalog.CourseCode]PrereqNodeInfo) error {
	byCourse := make(map[catalog.CourseCode]graphx.Rank, len(analysis.Ranks))
	for _, r := range analysis.Ranks {
		byCourse[r.Course] = r
	}

	doc := graphmlDoc{
		XMLNS: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: "label", For: "node", Name: "label", Type: "string"},
			{ID: "title", For: "node", Name: "title", Type: "string"},
			{ID: "url", For: "node", Name: "url", Type: "string"},
			{ID: "level", For: "node", Name: "level", Type: "int"},
			{ID: "indegree", For: "node", Name: "indegree", Type: "int"},
			{ID: "outdegree", For: "node", Name: "outdegree", Type: "int"},
			{ID: "pagerank", For: "node", Name: "pagerank", Type: "double"},
			{ID: "scc_id", For: "node", Name: "scc_id", Type: "int"},
			{ID: "scc_size", For: "node", Name: "scc_size", Type: "int"},
			{ID: "incompat_count", For: "node", Name: "incompat_count", Type: "int"},
			{ID: "incompat_with", For: "node", Name: "incompat_with", Type: "string"},
			{ID: "relation", For: "edge", Name: "relation", Type: "string"},
		},
		Graph: graphmlGraph{EdgeDefault: "directed"},
	}

	for _, code := range g.Nodes() {
		r := byCourse[code]
		ni := info[code]
		incompatWith := ""
		for i, c := range ni.IncompatWith {
			if i > 0 {
				incompatWith += ","
			}
			incompatWith += string(c)
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID: string(code),
			Data: []graphmlData{
				attr("label", string(code)),
				attr("title", ni.Title),
				attr("url", ni.URL),
				attr("level", itoa(r.Level)),
				attr("indegree", itoa(r.InDegree)),
				attr("outdegree", itoa(r.OutDegree)),
				attr("pagerank", ftoa(r.PageRank)),
				attr("scc_id", itoa(r.SCCID)),
				attr("scc_size", itoa(r.SCCSize)),
				attr("incompat_count", itoa(len(ni.IncompatWith))),
				attr("incompat_with", incompatWith),
			},
		})
		for _, prereq := range g.InNeighbors(code) {
			doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
				Source: string(prereq),
				Target: string(code),
				Data:   []graphmlData{attr("relation", "prereq")},
			})
		}
	}

	return writeDoc(path, doc)
}

// WriteIncompatGraph writes the undirected incompatibility graph with
// relation="incompat" edges and an incompat_component node attribute.
func WriteIncompatGraph(path string, ig *graphx.IncompatGraph, pairs []catalog.ConflictPair) error {
	comps := ig.ConnectedComponents()

	doc := graphmlDoc{
		XMLNS: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: "label", For: "node", Name: "label", Type: "string"},
			{ID: "incompat_component", For: "node", Name: "incompat_component", Type: "int"},
			{ID: "relation", For: "edge", Name: "relation", Type: "string"},
		},
		Graph: graphmlGraph{EdgeDefault: "undirected"},
	}

	codes := make([]catalog.CourseCode, 0, len(comps))
	for code := range comps {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	for _, code := range codes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID: string(code),
			Data: []graphmlData{
				attr("label", string(code)),
				attr("incompat_component", itoa(comps[code])),
			},
		})
	}
	for _, p := range pairs {
		if _, ok := comps[p.Min]; !ok {
			continue
		}
		if _, ok := comps[p.Max]; !ok {
			continue
		}
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: string(p.Min),
			Target: string(p.Max),
			Data:   []graphmlData{attr("relation", "incompat")},
		})
	}

	return writeDoc(path, doc)
}

func writeDoc(path string, doc graphmlDoc) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if _, err := f.WriteString(xml.Header); err != nil {
		return err
	}
	return enc.Encode(doc)
}
