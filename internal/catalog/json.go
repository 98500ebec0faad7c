package catalog

import "encoding/json"

// jsonNode is the wire shape of a Node: the "op" discriminator plus
// whichever fields that variant uses. Zero-value fields of variants that
// don't apply are simply omitted.
type jsonNode struct {
	Op       Op           `json:"op"`
	Code     CourseCode   `json:"code,omitempty"`
	Args     []jsonNode   `json:"args,omitempty"`
	N        int          `json:"n,omitempty"`
	MinUnits int          `json:"min_units,omitempty"`
	Courses  []CourseCode `json:"courses,omitempty"`
	Level    int          `json:"level,omitempty"`
	Program  string       `json:"program,omitempty"`
	Who      string       `json:"who,omitempty"`
	Text     string       `json:"text,omitempty"`
}

func toJSONNode(n Node) jsonNode {
	jn := jsonNode{
		Op:       n.Op,
		Code:     n.Code,
		N:        n.N,
		MinUnits: n.MinUnits,
		Courses:  n.Courses,
		Level:    n.Level,
		Program:  n.Program,
		Who:      n.Who,
		Text:     n.Text,
	}
	for _, a := range n.Args {
		jn.Args = append(jn.Args, toJSONNode(a))
	}
	return jn
}

func fromJSONNode(jn jsonNode) Node {
	n := Node{
		Op:       jn.Op,
		Code:     jn.Code,
		N:        jn.N,
		MinUnits: jn.MinUnits,
		Courses:  jn.Courses,
		Level:    jn.Level,
		Program:  jn.Program,
		Who:      jn.Who,
		Text:     jn.Text,
	}
	for _, a := range jn.Args {
		n.Args = append(n.Args, fromJSONNode(a))
	}
	return n
}

// MarshalJSON emits the node with its "op" discriminator, matching the
// structured output format consumed by the external HTTP view.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(toJSONNode(n))
}

// UnmarshalJSON restores a node from its "op"-tagged wire form.
func (n *Node) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Node{}
		return nil
	}
	var jn jsonNode
	if err := json.Unmarshal(data, &jn); err != nil {
		return err
	}
	*n = fromJSONNode(jn)
	return nil
}

// CourseRecord is the structured per-course record streamed to
// prereq_structured.json and served by the external HTTP view.
type CourseRecord struct {
	Prereq   Node   `json:"prereq"`
	Coreq    Node   `json:"coreq"`
	Raw      string `json:"raw"`
	Incompat Node   `json:"incompat"`
	Units    string `json:"units"`
	Summary  string `json:"summary"`
}
