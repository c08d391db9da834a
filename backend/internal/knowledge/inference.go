package knowledge

import (
	"strings"

	"knowledge-weaver/backend/internal/constants"
	"knowledge-weaver/backend/internal/notes"
)

// Group is the note ids sharing one key, in first-seen order
type Group struct {
	Key string
	IDs []string
}

// Pair is an unordered note pair, A before B in group order
type Pair struct {
	A, B string
}

// KeyFunc returns every group key a note belongs to
type KeyFunc func(n notes.Note) []string

// GroupByKey buckets note ids by key. A note returning several keys joins
// every one of those groups. Groups come back in order of first appearance.
func GroupByKey(ns []notes.Note, keyFn KeyFunc) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, n := range ns {
		for _, k := range keyFn(n) {
			if k == "" {
				continue
			}
			i, ok := index[k]
			if !ok {
				i = len(groups)
				index[k] = i
				groups = append(groups, Group{Key: k})
			}
			groups[i].IDs = append(groups[i].IDs, n.ID)
		}
	}
	return groups
}

// Pairs returns every (i<j) pair of the group's members
func (g Group) Pairs() []Pair {
	if len(g.IDs) < 2 {
		return nil
	}
	out := make([]Pair, 0, len(g.IDs)*(len(g.IDs)-1)/2)
	for i := 0; i < len(g.IDs)-1; i++ {
		for j := i + 1; j < len(g.IDs); j++ {
			if g.IDs[i] == g.IDs[j] {
				continue
			}
			out = append(out, Pair{A: g.IDs[i], B: g.IDs[j]})
		}
	}
	return out
}

// DomainKey groups a note under its hostname
func DomainKey(n notes.Note) []string {
	return []string{noteDomain(n)}
}

// CategoryKeys groups a note under each of its categories
func CategoryKeys(n notes.Note) []string {
	return noteCategories(n)
}

// Relationship is a note-to-note link as listed in exports
type Relationship struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Type     EdgeType `json:"type"`
	Strength float64  `json:"strength"`
}

// Relationships lists every same_domain pair followed by every same_category
// pair. Unlike Build it does not deduplicate across types.
func Relationships(ns []notes.Note) []Relationship {
	ns = usable(ns)
	var out []Relationship
	for _, g := range GroupByKey(ns, DomainKey) {
		for _, p := range g.Pairs() {
			out = append(out, Relationship{From: p.A, To: p.B, Type: EdgeSameDomain, Strength: constants.StrengthSameDomain})
		}
	}
	for _, g := range GroupByKey(ns, CategoryKeys) {
		for _, p := range g.Pairs() {
			out = append(out, Relationship{From: p.A, To: p.B, Type: EdgeSameCategory, Strength: constants.StrengthSameCategory})
		}
	}
	return out
}

// usable drops notes the graph cannot represent
func usable(ns []notes.Note) []notes.Note {
	out := make([]notes.Note, 0, len(ns))
	for _, n := range ns {
		if n.ID == "" || n.Timestamp <= 0 || strings.TrimSpace(n.Content) == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

func noteDomain(n notes.Note) string {
	if d := notes.DomainOf(n.Metadata.URL); d != "" {
		return d
	}
	if n.Metadata.Domain != "" {
		return strings.ToLower(n.Metadata.Domain)
	}
	return notes.DomainOf(n.URL)
}

func noteURL(n notes.Note) string {
	if n.Metadata.URL != "" {
		return n.Metadata.URL
	}
	return n.URL
}

func noteCategories(n notes.Note) []string {
	cats := n.Categories
	if len(cats) == 0 && n.Category != "" {
		cats = []string{n.Category}
	}
	return notes.CleanCategories(cats)
}
