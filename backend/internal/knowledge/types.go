package knowledge

import (
	"fmt"
	"strings"
	"time"

	"knowledge-weaver/backend/internal/constants"
)

// NodeType is the kind of a graph node
type NodeType string

const (
	NodeNote       NodeType = "note"
	NodeCategory   NodeType = "category"
	NodeDomain     NodeType = "domain"
	NodeURLContext NodeType = "url_context"
)

// EdgeType is the relationship an edge stands for
type EdgeType string

const (
	EdgeCategory     EdgeType = "category"
	EdgeDomain       EdgeType = "domain"
	EdgeURL          EdgeType = "url"
	EdgeSameDomain   EdgeType = "same_domain"
	EdgeSameCategory EdgeType = "same_category"
	EdgeTemporal     EdgeType = "temporal"
)

// Node is a graph vertex. Data holds a notes.Note for note nodes and
// *CategoryData, *DomainData or *URLData for the others.
type Node struct {
	ID          string   `json:"id"`
	Type        NodeType `json:"type"`
	Name        string   `json:"name"`
	Data        any      `json:"data"`
	Connections int      `json:"connections"`
}

// CategoryData is the payload of a category node
type CategoryData struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// DomainData is the payload of a domain node
type DomainData struct {
	Hostname  string `json:"hostname"`
	NoteCount int    `json:"noteCount"`
}

// URLData is the payload of a url_context node
type URLData struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Edge is an undirected, typed, weighted relation. Types is only populated
// under the merge policy and lists every relationship folded into the edge.
type Edge struct {
	Source   string     `json:"source"`
	Target   string     `json:"target"`
	Type     EdgeType   `json:"type"`
	Types    []EdgeType `json:"types,omitempty"`
	Strength float64    `json:"strength"`
}

// Graph is the builder output consumed by renderers and exporters
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Stats summarizes a graph
type Stats struct {
	Nodes       int              `json:"nodes"`
	Edges       int              `json:"edges"`
	NodesByType map[NodeType]int `json:"nodesByType"`
	EdgesByType map[EdgeType]int `json:"edgesByType"`
}

// Stats counts nodes and edges by type
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:       len(g.Nodes),
		Edges:       len(g.Edges),
		NodesByType: make(map[NodeType]int),
		EdgesByType: make(map[EdgeType]int),
	}
	for _, n := range g.Nodes {
		s.NodesByType[n.Type]++
	}
	for _, e := range g.Edges {
		s.EdgesByType[e.Type]++
	}
	return s
}

// Node returns the node with the given id, if any
func (g *Graph) Node(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// EdgePolicy decides what happens when a second relationship lands on a
// node pair that already has an edge.
type EdgePolicy string

const (
	// PolicyFirstWins keeps the first edge and drops later ones
	PolicyFirstWins EdgePolicy = "first_wins"
	// PolicyMerge folds later relationship types into the existing edge
	// and keeps the strongest strength
	PolicyMerge EdgePolicy = "merge"
	// PolicyParallel keeps one edge per pair per relationship type
	PolicyParallel EdgePolicy = "parallel"
)

// ParsePolicy maps a configuration value to an EdgePolicy
func ParsePolicy(s string) (EdgePolicy, error) {
	switch p := EdgePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyFirstWins:
		return PolicyFirstWins, nil
	case PolicyMerge, PolicyParallel:
		return p, nil
	default:
		return "", fmt.Errorf("unknown edge policy %q", s)
	}
}

// Options tunes a build
type Options struct {
	Policy         EdgePolicy
	TemporalWindow time.Duration
}

// DefaultOptions keeps the first edge per node pair and uses a one hour
// temporal window
func DefaultOptions() Options {
	return Options{
		Policy:         PolicyFirstWins,
		TemporalWindow: constants.DefaultTemporalWindow,
	}
}

func (o Options) withDefaults() Options {
	if o.Policy == "" {
		o.Policy = PolicyFirstWins
	}
	if o.TemporalWindow <= 0 {
		o.TemporalWindow = constants.DefaultTemporalWindow
	}
	return o
}
