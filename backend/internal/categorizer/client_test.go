package categorizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-weaver/backend/internal/notes"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

func testClient(url string) *Client {
	cfg := DefaultClientConfig(url)
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg)
}

func TestClient_Categorize_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"categories", `{"categories":["Machine Learning","Research Methods"]}`, []string{"Machine Learning", "Research Methods"}},
		{"legacy single", `{"category":"History","definition":"The past"}`, []string{"History"}},
		{"empty list", `{"categories":[]}`, []string{"General"}},
		{"blank names", `{"categories":[" ",""]}`, []string{"General"}},
		{"malformed", `not json`, []string{"General"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got := testClient(srv.URL).Categorize(context.Background(), "content", notes.Metadata{URL: "https://a.com"})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Categorize_SendsContext(t *testing.T) {
	var got categorizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/categorize", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"categories":["Go"]}`))
	}))
	defer srv.Close()

	md := notes.Metadata{URL: "https://go.dev/blog", Title: "The Go Blog", Domain: "go.dev"}
	testClient(srv.URL+"/").Categorize(context.Background(), "goroutines are cheap", md)

	assert.Equal(t, "goroutines are cheap", got.Content)
	assert.Equal(t, "https://go.dev/blog", got.URL)
	require.NotNil(t, got.Metadata)
	assert.Equal(t, "The Go Blog", got.Metadata.Title)
}

func TestClient_Categorize_Non2xxAndNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	assert.Equal(t, []string{"General"}, testClient(srv.URL).Categorize(context.Background(), "x", notes.Metadata{}))

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := dead.URL
	dead.Close()
	assert.Equal(t, []string{"General"}, testClient(url).Categorize(context.Background(), "x", notes.Metadata{}))
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for i := 0; i < 10; i++ {
		assert.Equal(t, []string{"General"}, c.Categorize(context.Background(), "x", notes.Metadata{}))
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "open", c.State())
}

func TestClient_CategoryManagement(t *testing.T) {
	cats := []notes.Category{{Category: "Go", Definition: "lang"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/categories":
			_ = json.NewEncoder(w).Encode(cats)
		case r.Method == http.MethodPost && r.URL.Path == "/categories":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Category already exists"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/categories/0":
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/categories/7":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Category not found"}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := testClient(srv.URL)

	require.NoError(t, c.Health(ctx))

	got, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, cats, got)

	err = c.AddCategory(ctx, notes.Category{Category: "go"})
	var failed *apperrors.ErrCategorizerFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, http.StatusBadRequest, failed.Status)
	assert.False(t, apperrors.IsRetryable(err))
	assert.Contains(t, err.Error(), "Category already exists")

	require.NoError(t, c.UpdateCategory(ctx, 0, notes.Category{Category: "Golang"}))

	err = c.DeleteCategory(ctx, 7)
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, http.StatusNotFound, failed.Status)
}

func TestStatic(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, Static{"A", "B", "A"}.Categorize(context.Background(), "", notes.Metadata{}))
	assert.Equal(t, []string{"General"}, Static(nil).Categorize(context.Background(), "", notes.Metadata{}))
}

func TestResponse_Introduced(t *testing.T) {
	r, err := ParseResponse([]byte(`{"categories":["A","B"],"new_categories":[{"category":"B","definition":"bee"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []notes.Category{{Category: "B", Definition: "bee"}}, r.Introduced())

	r, err = ParseResponse([]byte(`{"category":"History","definition":"The past"}`))
	require.NoError(t, err)
	assert.Equal(t, []notes.Category{{Category: "History", Definition: "The past"}}, r.Introduced())
}
