// Package knowledge turns a snapshot of notes into a typed node/edge graph
// and answers simple queries over the result. Everything here is pure: the
// same input slice always yields the same graph.
package knowledge

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"knowledge-weaver/backend/internal/constants"
	"knowledge-weaver/backend/internal/notes"
)

// ID prefixes for derived nodes
const (
	CategoryPrefix = "category:"
	DomainPrefix   = "domain:"
	URLPrefix      = "url:"
)

type pairKey struct{ a, b string }

func keyOf(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

type builder struct {
	opts  Options
	g     *Graph
	nodes map[string]*Node
	pairs map[pairKey][]*Edge
}

// Build constructs the graph for ns and the explicit category list.
// Notes without an id, content or timestamp are skipped.
func Build(ns []notes.Note, categories []notes.Category, opts Options) *Graph {
	b := &builder{
		opts:  opts.withDefaults(),
		g:     &Graph{Nodes: []*Node{}, Edges: []*Edge{}},
		nodes: make(map[string]*Node),
		pairs: make(map[pairKey][]*Edge),
	}

	for _, c := range categories {
		if c.Category == "" {
			continue
		}
		b.category(c.Category, c.Definition)
	}

	ns = usable(ns)
	for _, n := range ns {
		b.addNote(n)
	}

	b.temporal(ns)

	for _, g := range GroupByKey(ns, DomainKey) {
		for _, p := range g.Pairs() {
			b.edge(p.A, p.B, EdgeSameDomain, constants.StrengthSameDomain)
		}
	}
	for _, g := range GroupByKey(ns, CategoryKeys) {
		for _, p := range g.Pairs() {
			b.edge(p.A, p.B, EdgeSameCategory, constants.StrengthSameCategory)
		}
	}

	return b.g
}

// BuildRecords normalizes stored or imported records and builds from them
func BuildRecords(records []notes.Record, categories []notes.Category, opts Options) *Graph {
	ns, _ := notes.NormalizeAll(records)
	return Build(ns, categories, opts)
}

// ContextKey is the url_context node id for a note, or "" when the note has
// no source URL. Notes on the same YouTube video share a key regardless of
// the timestamp in their URL.
func ContextKey(n notes.Note) string {
	u := noteURL(n)
	if u == "" {
		return ""
	}
	if n.IsYouTube() {
		return URLKey("youtube:" + n.Relationships.VideoID)
	}
	return URLKey(notes.NormalizeURL(u))
}

// URLKey hashes an identity string into a url_context node id
func URLKey(identity string) string {
	return fmt.Sprintf("%s%016x", URLPrefix, xxhash.Sum64String(identity))
}

func (b *builder) addNote(n notes.Note) {
	b.add(&Node{
		ID:   n.ID,
		Type: NodeNote,
		Name: notes.NameOf(n.Content, constants.NoteNameLength),
		Data: n,
	})

	for _, c := range noteCategories(n) {
		cat := b.category(c, "")
		b.edge(n.ID, cat.ID, EdgeCategory, constants.StrengthCategory)
	}

	if d := noteDomain(n); d != "" {
		dom := b.add(&Node{
			ID:   DomainPrefix + d,
			Type: NodeDomain,
			Name: d,
			Data: &DomainData{Hostname: d},
		})
		if dd, ok := dom.Data.(*DomainData); ok {
			dd.NoteCount++
		}
		b.edge(n.ID, dom.ID, EdgeDomain, constants.StrengthDomain)
	}

	if key := ContextKey(n); key != "" {
		page := b.add(&Node{
			ID:   key,
			Type: NodeURLContext,
			Name: "Untitled",
			Data: &URLData{URL: noteURL(n)},
		})
		if data, ok := page.Data.(*URLData); ok {
			if data.Title == "" && n.Metadata.Title != "" {
				data.Title = n.Metadata.Title
				page.Name = n.Metadata.Title
			}
			if data.Summary == "" {
				data.Summary = n.Metadata.Summary
			}
		}
		b.edge(n.ID, page.ID, EdgeURL, constants.StrengthURL)
	}
}

// temporal links notes that are adjacent in time order and closer than the
// window. Only consecutive pairs are linked.
func (b *builder) temporal(ns []notes.Note) {
	sorted := append([]notes.Note(nil), ns...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	window := b.opts.TemporalWindow.Milliseconds()
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp-sorted[i-1].Timestamp < window {
			b.edge(sorted[i-1].ID, sorted[i].ID, EdgeTemporal, constants.StrengthTemporal)
		}
	}
}

func (b *builder) category(name, definition string) *Node {
	return b.add(&Node{
		ID:   CategoryPrefix + name,
		Type: NodeCategory,
		Name: name,
		Data: &CategoryData{Name: name, Definition: definition},
	})
}

// add inserts n unless a node with its id exists, and returns the stored node
func (b *builder) add(n *Node) *Node {
	if existing, ok := b.nodes[n.ID]; ok {
		return existing
	}
	b.nodes[n.ID] = n
	b.g.Nodes = append(b.g.Nodes, n)
	return n
}

func (b *builder) edge(source, target string, t EdgeType, strength float64) {
	if source == target {
		return
	}
	k := keyOf(source, target)
	existing := b.pairs[k]

	switch b.opts.Policy {
	case PolicyMerge:
		if len(existing) > 0 {
			e := existing[0]
			if !hasType(e.Types, t) {
				e.Types = append(e.Types, t)
			}
			if strength > e.Strength {
				e.Strength = strength
			}
			return
		}
	case PolicyParallel:
		for _, e := range existing {
			if e.Type == t {
				return
			}
		}
	default:
		if len(existing) > 0 {
			return
		}
	}

	e := &Edge{Source: source, Target: target, Type: t, Strength: strength}
	if b.opts.Policy == PolicyMerge {
		e.Types = []EdgeType{t}
	}
	b.g.Edges = append(b.g.Edges, e)
	b.pairs[k] = append(existing, e)
	b.nodes[source].Connections++
	b.nodes[target].Connections++
}

func hasType(types []EdgeType, t EdgeType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
