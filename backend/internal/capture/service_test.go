package capture

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-weaver/backend/internal/categories"
	"knowledge-weaver/backend/internal/categorizer"
	"knowledge-weaver/backend/internal/notes"
	"knowledge-weaver/backend/internal/pagemeta"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

type countingCategorizer struct {
	calls int32
	names []string
}

func (c *countingCategorizer) Categorize(ctx context.Context, content string, md notes.Metadata) []string {
	atomic.AddInt32(&c.calls, 1)
	return c.names
}

type fakeFetcher struct {
	page pagemeta.Page
	err  error
}

func (f fakeFetcher) Fetch(ctx context.Context, rawURL string) (pagemeta.Page, error) {
	return f.page, f.err
}

func newTestService(c categorizer.Categorizer, opts ...Option) (*Service, *notes.MemoryStore) {
	store := notes.NewMemoryStore()
	return NewService(store, categories.NewRegistry(store), c, opts...), store
}

func TestCapture(t *testing.T) {
	svc, store := newTestService(categorizer.Static{"Machine Learning", "Research Methods"})
	ctx := context.Background()

	n, err := svc.Capture(ctx, Request{
		Content:  "  Attention is all you need  ",
		Metadata: &notes.Metadata{URL: "https://ArXiv.org/abs/1706.03762", Title: "Attention", Domain: "wrong.com"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(n.ID, "note-"))
	assert.Equal(t, notes.TimestampFromID(n.ID), n.Timestamp)
	assert.Equal(t, "Attention is all you need", n.Content)
	assert.Equal(t, []string{"Machine Learning", "Research Methods"}, n.Categories)
	assert.Equal(t, "Machine Learning", n.Category)
	assert.Equal(t, "arxiv.org", n.Metadata.Domain)
	assert.Equal(t, n.Metadata.URL, n.URL)
	require.NotNil(t, n.Relationships)
	assert.Equal(t, notes.SourceWebpage, n.Relationships.Type)

	stored, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored)
}

func TestCapture_LegacyURLAndSuppliedCategories(t *testing.T) {
	c := &countingCategorizer{names: []string{"Ignored"}}
	svc, _ := newTestService(c)

	n, err := svc.Capture(context.Background(), Request{
		Content:    "note",
		URL:        "https://go.dev/doc",
		Categories: []string{"Go", " Go "},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Go"}, n.Categories)
	assert.Equal(t, "go.dev", n.Metadata.Domain)
	assert.Equal(t, int32(0), atomic.LoadInt32(&c.calls))
}

func TestCapture_CategorizerFallback(t *testing.T) {
	svc, _ := newTestService(&countingCategorizer{})

	n, err := svc.Capture(context.Background(), Request{Content: "note"})
	require.NoError(t, err)
	assert.Equal(t, []string{"General"}, n.Categories)
}

func TestCapture_YouTube(t *testing.T) {
	svc, _ := newTestService(categorizer.Static{"Video"},
		WithPageFetcher(fakeFetcher{page: pagemeta.Page{Title: "Intro to Go", ChannelName: "GopherCon"}}))

	vt := 125.7
	n, err := svc.Capture(context.Background(), Request{
		Content:   "goroutines",
		URL:       "https://www.youtube.com/watch?v=abc123",
		VideoTime: &vt,
	})
	require.NoError(t, err)

	require.NotNil(t, n.Relationships)
	assert.Equal(t, notes.SourceYouTube, n.Relationships.Type)
	assert.Equal(t, "abc123", n.Relationships.VideoID)
	assert.Equal(t, "GopherCon", n.Relationships.ChannelName)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123&t=125s", n.Relationships.TimestampedURL)
	assert.Equal(t, "Intro to Go", n.Metadata.Title)
}

func TestCapture_FetcherErrorIsIgnored(t *testing.T) {
	svc, _ := newTestService(categorizer.Static{"A"}, WithPageFetcher(fakeFetcher{err: errors.New("offline")}))

	n, err := svc.Capture(context.Background(), Request{Content: "x", URL: "https://a.com"})
	require.NoError(t, err)
	assert.Empty(t, n.Metadata.Title)
}

func TestCapture_Invalid(t *testing.T) {
	svc, _ := newTestService(categorizer.Static{"A"})

	tests := []Request{
		{Content: ""},
		{Content: "   "},
		{Content: "x", URL: "not a url"},
	}
	for _, req := range tests {
		_, err := svc.Capture(context.Background(), req)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNote), "request %+v", req)
	}
}

func TestEdit(t *testing.T) {
	svc, _ := newTestService(categorizer.Static{"A"})
	ctx := context.Background()

	orig, err := svc.Capture(ctx, Request{Content: "first", URL: "https://a.com/x"})
	require.NoError(t, err)

	content := "second"
	edited, err := svc.Edit(ctx, orig.ID, EditRequest{Content: &content, Categories: []string{"B", "C"}})
	require.NoError(t, err)

	assert.Equal(t, orig.ID, edited.ID)
	assert.Equal(t, orig.Timestamp, edited.Timestamp)
	assert.Equal(t, orig.Metadata.URL, edited.Metadata.URL)
	assert.Equal(t, "second", edited.Content)
	assert.Equal(t, []string{"B", "C"}, edited.Categories)
	assert.Equal(t, "B", edited.Category)

	empty := " "
	_, err = svc.Edit(ctx, orig.ID, EditRequest{Content: &empty})
	assert.Error(t, err)

	_, err = svc.Edit(ctx, "note-missing", EditRequest{})
	var nf *apperrors.ErrNoteNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestRecategorizeAll(t *testing.T) {
	c := &countingCategorizer{names: []string{"Fresh"}}
	svc, store := newTestService(c, WithConcurrency(2))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Capture(ctx, Request{Content: "note", Categories: []string{"Old"}})
		require.NoError(t, err)
	}

	count, err := svc.RecategorizeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, int32(5), atomic.LoadInt32(&c.calls))

	all, err := store.List(ctx)
	require.NoError(t, err)
	for _, n := range all {
		assert.Equal(t, []string{"Fresh"}, n.Categories)
	}
}

func TestDelete(t *testing.T) {
	svc, store := newTestService(categorizer.Static{"A"})
	ctx := context.Background()

	n, err := svc.Capture(ctx, Request{Content: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, n.ID))

	_, err = store.Get(ctx, n.ID)
	assert.Error(t, err)
	assert.Error(t, svc.Delete(ctx, n.ID))
}

func TestImportRecords(t *testing.T) {
	svc, store := newTestService(categorizer.Static{"A"})
	ctx := context.Background()

	records := []notes.Record{
		{ID: "note-1700000000000", Content: "legacy", URL: "https://a.com/p", Category: "Old"},
		{ID: "note-1700000001000", Content: "modern", Timestamp: 1700000001000, Categories: []string{"New"}},
		{ID: "broken", Content: ""},
	}
	cats := []notes.Category{{Category: "Old", Definition: "old"}, {Category: "New", Definition: "new"}}

	result, err := svc.ImportRecords(ctx, records, cats)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 2, result.CategoriesAdded)
	assert.Empty(t, result.Failed)

	n, err := store.Get(ctx, "note-1700000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), n.Timestamp)
	assert.Equal(t, "a.com", n.Metadata.Domain)

	// Re-import adds no categories
	result, err = svc.ImportRecords(ctx, records, cats)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CategoriesAdded)
}

func TestImport_CollectsFailures(t *testing.T) {
	svc, _ := newTestService(categorizer.Static{"A"})

	ns := []notes.Note{
		{ID: "note-1", Content: "ok", Timestamp: 1, Categories: []string{"A"}, Category: "A"},
		{ID: "note-2", Content: "bad", Timestamp: 0, Categories: []string{"A"}, Category: "A"},
	}
	result, err := svc.Import(context.Background(), ns, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "note-2", result.Failed[0].ID)
}

func TestTimestampedURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=x&t=0s", TimestampedURL("x", 0.4))
	assert.Equal(t, "https://www.youtube.com/watch?v=x&t=61s", TimestampedURL("x", 61))
}
