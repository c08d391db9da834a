package knowledge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-weaver/backend/internal/notes"
)

func queryGraph(t *testing.T) *Graph {
	ns := []notes.Note{
		note(t, "note-1", t0, []string{"Machine Learning"}, "https://arxiv.org/abs/1"),
		note(t, "note-2", t0+10*time.Minute.Milliseconds(), []string{"Machine Learning"}, "https://arxiv.org/abs/2"),
		note(t, "note-3", t0+5*time.Hour.Milliseconds(), []string{"Cooking"}, "https://food.com/pasta"),
		note(t, "note-4", t0+9*time.Hour.Milliseconds(), []string{"Machine Learning"}, "https://blog.dev/post"),
	}
	ns[2].Content = "Carbonara without cream"
	cats := []notes.Category{{Category: "Machine Learning", Definition: "Statistical learning systems"}}
	return Build(ns, cats, DefaultOptions())
}

func TestRelated(t *testing.T) {
	g := queryGraph(t)

	related, ok := Related(g, "note-1", 0)
	require.True(t, ok)
	require.Len(t, related, 2)

	// temporal 0.4 + shared category 0.8 + shared domain 0.7
	assert.Equal(t, "note-2", related[0].Note.ID)
	assert.InDelta(t, 1.9, related[0].Score, 1e-9)
	assert.Equal(t, []string{"category:Machine Learning", "domain:arxiv.org", "temporal"}, related[0].Via)

	// shared category 0.8 + direct same_category 0.8
	assert.Equal(t, "note-4", related[1].Note.ID)
	assert.InDelta(t, 1.6, related[1].Score, 1e-9)
	assert.Equal(t, []string{"category:Machine Learning", "same_category"}, related[1].Via)

	limited, _ := Related(g, "note-1", 1)
	assert.Len(t, limited, 1)
}

func TestRelated_UnknownOrNonNote(t *testing.T) {
	g := queryGraph(t)

	_, ok := Related(g, "missing", 5)
	assert.False(t, ok)
	_, ok = Related(g, "category:Cooking", 5)
	assert.False(t, ok)

	related, ok := Related(g, "note-3", 5)
	require.True(t, ok)
	assert.Empty(t, related)
}

func TestSummarize(t *testing.T) {
	ov := Summarize(queryGraph(t), 1)

	assert.Equal(t, 4, ov.Stats.NodesByType[NodeNote])
	require.Len(t, ov.TopDomains, 1)
	assert.Equal(t, DomainData{Hostname: "arxiv.org", NoteCount: 2}, ov.TopDomains[0])
	require.Len(t, ov.TopCategories, 1)
	assert.Equal(t, CategoryUsage{Category: "Machine Learning", Notes: 3}, ov.TopCategories[0])
}

func TestSearch(t *testing.T) {
	g := queryGraph(t)

	hits := Search(g, "carbonara", nil, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "note-3", hits[0].ID)

	hits = Search(g, "statistical", nil, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "category:Machine Learning", hits[0].ID)

	hits = Search(g, "ARXIV", []NodeType{NodeDomain}, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, "domain:arxiv.org", hits[0].ID)

	assert.Len(t, Search(g, "content of", []NodeType{NodeNote}, 2), 2)
	assert.Nil(t, Search(g, "  ", nil, 0))
}
