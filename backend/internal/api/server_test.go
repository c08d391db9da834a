package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-weaver/backend/internal/capture"
	"knowledge-weaver/backend/internal/categories"
	"knowledge-weaver/backend/internal/categorizer"
	"knowledge-weaver/backend/internal/classifier"
	"knowledge-weaver/backend/internal/graph"
	"knowledge-weaver/backend/internal/knowledge"
	"knowledge-weaver/backend/internal/notes"
)

type fakeCompleter struct{ reply string }

func (f fakeCompleter) CompleteJSON(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	return f.reply, nil
}

type fakeProjection struct {
	synced  *knowledge.Graph
	deleted []string
}

func (p *fakeProjection) SyncGraph(ctx context.Context, g *knowledge.Graph) (graph.SyncResult, error) {
	p.synced = g
	return graph.SyncResult{Nodes: len(g.Nodes), Edges: len(g.Edges)}, nil
}

func (p *fakeProjection) RelatedNotes(ctx context.Context, noteID string, limit int) ([]graph.RelatedEntity, error) {
	return []graph.RelatedEntity{{ID: "note-x", Score: 1}}, nil
}

func (p *fakeProjection) DeleteEntity(ctx context.Context, id string) (bool, error) {
	p.deleted = append(p.deleted, id)
	return true, nil
}

func (p *fakeProjection) EntityCounts(ctx context.Context) (map[string]int64, error) {
	return map[string]int64{"note": 1}, nil
}

type testEnv struct {
	router *gin.Engine
	store  *notes.MemoryStore
}

func newTestEnv(t *testing.T, projection Projection) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := notes.NewMemoryStore()
	reg := categories.NewRegistry(store)
	cls := classifier.NewService(fakeCompleter{reply: `{"categories":["Machine Learning"],"new_categories":[{"category":"Machine Learning","definition":"ML"}]}`}, reg)

	deps := Deps{
		Notes:      store,
		Registry:   reg,
		Classifier: cls,
		Capture:    capture.NewService(store, reg, categorizer.Static{"Machine Learning"}),
		Graphs:     knowledge.NewService(store, store, knowledge.DefaultOptions()),
	}
	if projection != nil {
		deps.Projection = projection
	}
	srv := NewServer(deps)
	srv.now = func() time.Time { return time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC) }

	return testEnv{router: srv.Router(), store: store}
}

func (e testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "Knowledge Weaver API is running", resp["message"])
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("OPTIONS", "/categorize", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCategorizeEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("POST", "/categorize", `{"content":"transformers","url":"https://arxiv.org/abs/1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, []interface{}{"Machine Learning"}, resp["categories"])

	cats, err := env.store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []notes.Category{{Category: "Machine Learning", Definition: "ML"}}, cats)
}

func TestCategorizeEndpoint_InvalidRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/categorize", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/categorize", `{"content":"   "}`).Code)
}

func TestCategoryCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("GET", "/categories", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do("POST", "/categories", `{"category":"Go","definition":"The language"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Category added successfully", decode(t, w)["message"])

	w = env.do("POST", "/categories", `{"category":"go","definition":"dup"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Category already exists", decode(t, w)["error"])

	env.do("POST", "/categories", `{"category":"Rust","definition":"Another"}`)

	w = env.do("PUT", "/categories/1", `{"category":"GO","definition":"clash"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Category name already exists", decode(t, w)["error"])

	w = env.do("PUT", "/categories/1", `{"category":"Zig","definition":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Category updated successfully", decode(t, w)["message"])

	w = env.do("PUT", "/categories/9", `{"category":"X","definition":""}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Category not found", decode(t, w)["error"])

	w = env.do("DELETE", "/categories/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "Category deleted successfully", resp["message"])
	assert.Equal(t, "Go", resp["deleted_category"].(map[string]interface{})["category"])

	assert.Equal(t, http.StatusNotFound, env.do("DELETE", "/categories/5", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do("DELETE", "/categories/abc", "").Code)

	w = env.do("GET", "/categories", "")
	assert.JSONEq(t, `[{"category":"Zig","definition":"Renamed"}]`, w.Body.String())
}

func TestNoteLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("POST", "/notes", `{"content":"Attention is all you need","metadata":{"url":"https://arxiv.org/abs/1706.03762","title":"Attention"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := created["id"].(string)
	assert.Equal(t, "Machine Learning", created["category"])
	assert.Equal(t, "arxiv.org", created["metadata"].(map[string]interface{})["domain"])

	w = env.do("GET", "/notes/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do("PUT", "/notes/"+id, `{"content":"edited","categories":["Research"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	edited := decode(t, w)
	assert.Equal(t, "edited", edited["content"])
	assert.Equal(t, created["timestamp"], edited["timestamp"])

	w = env.do("POST", "/notes/"+id+"/recategorize", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"Machine Learning"}, decode(t, w)["categories"])

	w = env.do("GET", "/notes", "")
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = env.do("DELETE", "/notes/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do("GET", "/notes/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["error"], "note not found")
}

func TestCreateNote_InvalidRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/notes", `{"content":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/notes", `{"content":"x","url":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/notes", `not json`).Code)
}

func seed(t *testing.T, env testEnv) {
	t.Helper()
	const t0 = int64(1700000000000)
	mk := func(id string, ts int64, url string, cats ...string) notes.Note {
		n := notes.Note{ID: id, Content: "note " + id, Timestamp: ts}
		n.Metadata = notes.Metadata{URL: url, Domain: notes.DomainOf(url)}
		n.URL = url
		n.SetCategories(cats)
		return n
	}
	for _, n := range []notes.Note{
		mk("note-1", t0, "https://arxiv.org/abs/1", "Machine Learning"),
		mk("note-2", t0+10*60*1000, "https://arxiv.org/abs/2", "Machine Learning"),
		mk("note-3", t0+5*60*60*1000, "https://react.dev/learn", "Web Development"),
	} {
		require.NoError(t, env.store.Upsert(context.Background(), n))
	}
}

func TestGraphEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	seed(t, env)

	w := env.do("GET", "/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	var g struct {
		Nodes []map[string]interface{} `json:"nodes"`
		Edges []map[string]interface{} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Len(t, g.Nodes, 3+2+2+3)

	w = env.do("GET", "/graph?policy=parallel", "")
	require.Equal(t, http.StatusOK, w.Code)
	var parallel struct {
		Edges []map[string]interface{} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parallel))
	assert.Greater(t, len(parallel.Edges), len(g.Edges))

	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/graph?policy=bogus", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/graph?window=-1h", "").Code)

	w = env.do("GET", "/graph/overview?top=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	ov := decode(t, w)
	domains := ov["topDomains"].([]interface{})
	require.Len(t, domains, 1)
	assert.Equal(t, "arxiv.org", domains[0].(map[string]interface{})["hostname"])

	w = env.do("GET", "/graph/search?q=react&type=url_context&type=domain", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["results"], 2)

	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/graph/search", "").Code)

	w = env.do("GET", "/notes/note-1/related", "")
	require.Equal(t, http.StatusOK, w.Code)
	related := decode(t, w)["related"].([]interface{})
	require.NotEmpty(t, related)
	first := related[0].(map[string]interface{})
	assert.Equal(t, "note-2", first["note"].(map[string]interface{})["id"])

	assert.Equal(t, http.StatusNotFound, env.do("GET", "/notes/missing/related", "").Code)
}

func TestGraphSync(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do("POST", "/graph/sync", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do("GET", "/graph/related/note-1", "").Code)

	proj := &fakeProjection{}
	env = newTestEnv(t, proj)
	seed(t, env)

	w = env.do("POST", "/graph/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, proj.synced)
	assert.Len(t, proj.synced.Nodes, 10)

	w = env.do("GET", "/graph/related/note-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do("DELETE", "/notes/note-3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"note-3"}, proj.deleted)
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do("GET", "/export", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No notes to export", decode(t, w)["error"])

	seed(t, env)

	w = env.do("GET", "/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="knowledge-weaver-notes-2024-03-05.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "ID,Content,Timestamp"))

	w = env.do("GET", "/export?format=markdown", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "# Knowledge Weaver Export"))

	w = env.do("GET", "/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "knowledge-weaver-complete-2024-03-05.json")
	assert.Equal(t, float64(3), decode(t, w)["metadata"].(map[string]interface{})["totalNotes"])

	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/export?format=xml", "").Code)
}

func TestImportEndpoint(t *testing.T) {
	src := newTestEnv(t, nil)
	seed(t, src)
	src.do("POST", "/categories", `{"category":"Machine Learning","definition":"ML"}`)
	exported := src.do("GET", "/export", "").Body.String()

	dst := newTestEnv(t, nil)
	w := dst.do("POST", "/import", exported)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, float64(3), resp["imported"])
	assert.Equal(t, float64(1), resp["categoriesAdded"])

	assert.JSONEq(t, src.do("GET", "/graph", "").Body.String(), dst.do("GET", "/graph", "").Body.String())

	w = dst.do("POST", "/import", `[{"id":"note-1700000000000","content":"legacy","url":"https://a.com","category":"Old"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["imported"])

	assert.Equal(t, http.StatusBadRequest, dst.do("POST", "/import", `garbage`).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do("GET", "/health", "")

	w := env.do("GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "knowledge_weaver_http_request_duration_seconds")
}
