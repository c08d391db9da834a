package knowledge

import (
	"sort"
	"strings"

	"knowledge-weaver/backend/internal/notes"
)

// RelatedNote is a note reachable from another through a direct edge or a
// shared category, domain or page node
type RelatedNote struct {
	Note  notes.Note `json:"note"`
	Score float64    `json:"score"`
	Via   []string   `json:"via"`
}

type neighbor struct {
	id   string
	edge *Edge
}

func adjacency(g *Graph) map[string][]neighbor {
	adj := make(map[string][]neighbor, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], neighbor{e.Target, e})
		adj[e.Target] = append(adj[e.Target], neighbor{e.Source, e})
	}
	return adj
}

func nodeIndex(g *Graph) map[string]*Node {
	idx := make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		idx[n.ID] = n
	}
	return idx
}

// Related ranks the notes connected to noteID. Direct note-to-note edges
// contribute their strength; a shared hub contributes the weaker of the two
// hub edges. The second return is false when noteID is not a note in g.
func Related(g *Graph, noteID string, limit int) ([]RelatedNote, bool) {
	idx := nodeIndex(g)
	if n, ok := idx[noteID]; !ok || n.Type != NodeNote {
		return nil, false
	}
	adj := adjacency(g)

	scores := make(map[string]*RelatedNote)
	var order []string
	credit := func(id string, score float64, via string) {
		r, ok := scores[id]
		if !ok {
			n, _ := idx[id].Data.(notes.Note)
			r = &RelatedNote{Note: n}
			scores[id] = r
			order = append(order, id)
		}
		r.Score += score
		for _, v := range r.Via {
			if v == via {
				return
			}
		}
		r.Via = append(r.Via, via)
	}

	for _, nb := range adj[noteID] {
		hub := idx[nb.id]
		if hub.Type == NodeNote {
			credit(nb.id, nb.edge.Strength, string(nb.edge.Type))
			continue
		}
		for _, other := range adj[nb.id] {
			if other.id == noteID || idx[other.id].Type != NodeNote {
				continue
			}
			credit(other.id, min(nb.edge.Strength, other.edge.Strength), hub.ID)
		}
	}

	out := make([]RelatedNote, 0, len(order))
	for _, id := range order {
		out = append(out, *scores[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Note.Timestamp > out[j].Note.Timestamp
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, true
}

// CategoryUsage is a category with the number of notes tagged with it
type CategoryUsage struct {
	Category string `json:"category"`
	Notes    int    `json:"notes"`
}

// Overview summarizes a graph for dashboards
type Overview struct {
	Stats         Stats           `json:"stats"`
	TopDomains    []DomainData    `json:"topDomains"`
	TopCategories []CategoryUsage `json:"topCategories"`
}

// Summarize returns counts plus the top n domains and categories
func Summarize(g *Graph, n int) Overview {
	ov := Overview{
		Stats:         g.Stats(),
		TopDomains:    []DomainData{},
		TopCategories: []CategoryUsage{},
	}

	usage := make(map[string]int)
	for _, e := range g.Edges {
		if e.Type == EdgeCategory {
			usage[e.Target]++
		}
	}

	for _, node := range g.Nodes {
		switch node.Type {
		case NodeDomain:
			if d, ok := node.Data.(*DomainData); ok {
				ov.TopDomains = append(ov.TopDomains, *d)
			}
		case NodeCategory:
			ov.TopCategories = append(ov.TopCategories, CategoryUsage{Category: node.Name, Notes: usage[node.ID]})
		}
	}

	sort.SliceStable(ov.TopDomains, func(i, j int) bool {
		return ov.TopDomains[i].NoteCount > ov.TopDomains[j].NoteCount
	})
	sort.SliceStable(ov.TopCategories, func(i, j int) bool {
		return ov.TopCategories[i].Notes > ov.TopCategories[j].Notes
	})
	if n > 0 {
		if len(ov.TopDomains) > n {
			ov.TopDomains = ov.TopDomains[:n]
		}
		if len(ov.TopCategories) > n {
			ov.TopCategories = ov.TopCategories[:n]
		}
	}
	return ov
}

// Search returns nodes whose name or text payload contains query,
// case-insensitively, in graph order. An empty types list matches every type.
func Search(g *Graph, query string, types []NodeType, limit int) []*Node {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	out := []*Node{}
	for _, n := range g.Nodes {
		if len(types) > 0 && !hasNodeType(types, n.Type) {
			continue
		}
		if !matches(n, q) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func matches(n *Node, q string) bool {
	fields := []string{n.Name}
	switch d := n.Data.(type) {
	case notes.Note:
		fields = append(fields, d.Content, d.Metadata.Title, d.Metadata.Summary)
	case *URLData:
		fields = append(fields, d.URL, d.Summary)
	case *CategoryData:
		fields = append(fields, d.Definition)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func hasNodeType(types []NodeType, t NodeType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
