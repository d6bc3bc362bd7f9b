package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/adapter/memstore"
	"medrag/internal/domain"
	"medrag/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAsker struct {
	err      error
	question string
	k        int
}

func (f *fakeAsker) Ask(ctx context.Context, question string, k int) (*usecase.AskResult, error) {
	f.question, f.k = question, k
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.AskResult{
		Question: question,
		K:        k,
		Elapsed:  1500 * time.Millisecond,
		Answer: &domain.Answer{
			Text:    "Metformin activates AMPK [Source 1].",
			Quality: 0.84,
			Citations: []domain.Citation{
				{Title: "AMPK", URL: "https://pubmed.example/0", Score: 0.91},
				{Title: "Gluconeogenesis", URL: "https://pubmed.example/5", Score: 0.77},
			},
		},
	}, nil
}

type fakeRetriever struct {
	hits []domain.RetrievalHit
	k    int
}

func (f *fakeRetriever) RetrieveTopK(ctx context.Context, question string, k int) ([]domain.RetrievalHit, error) {
	f.k = k
	return f.hits, nil
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAsk_OK(t *testing.T) {
	asker := &fakeAsker{}
	r := NewRouter(NewHandler(asker, &fakeRetriever{}, nil, 3, nil), false)

	w := do(t, r, http.MethodPost, "/v1/ask", `{"question":"What is the mechanism of action of metformin?","k":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	var resp AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.84, resp.Quality)
	assert.Equal(t, int64(1500), resp.ElapsedMs)
	require.Len(t, resp.Citations, 2)
	assert.Equal(t, 0.77, resp.Citations[1].Score)
	assert.Equal(t, 2, asker.k)
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{fmt.Errorf("%w: question is empty", domain.ErrValidation), http.StatusBadRequest, "validation"},
		{fmt.Errorf("%w: 503", domain.ErrEmbeddingProvider), http.StatusBadGateway, "embedding_provider"},
		{fmt.Errorf("%w: zero norm", domain.ErrInvalidEmbedding), http.StatusBadGateway, "invalid_embedding"},
		{fmt.Errorf("%w: 500", domain.ErrGeneration), http.StatusBadGateway, "generation"},
		{fmt.Errorf("%w: row 9", domain.ErrCorpusIndex), http.StatusInternalServerError, "corpus_index"},
		{domain.ErrStartupIntegrity, http.StatusServiceUnavailable, "startup_integrity"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		r := NewRouter(NewHandler(&fakeAsker{err: tt.err}, &fakeRetriever{}, nil, 3, nil), false)
		req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q"}`))
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, tt.status, w.Code, tt.kind)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tt.kind, resp.Error)
		assert.Equal(t, "req-123", resp.RequestID)
	}
}

func TestAsk_BadBody(t *testing.T) {
	asker := &fakeAsker{}
	r := NewRouter(NewHandler(asker, &fakeRetriever{}, nil, 3, nil), false)

	for _, body := range []string{`{`, `{"k":2}`, `{"question":""}`} {
		w := do(t, r, http.MethodPost, "/v1/ask", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, asker.question)
}

func TestRetrieve_DefaultK(t *testing.T) {
	ret := &fakeRetriever{hits: []domain.RetrievalHit{{Score: 0.9, Title: "t", Text: "x", URL: "u"}}}
	r := NewRouter(NewHandler(&fakeAsker{}, ret, nil, 3, nil), false)

	w := do(t, r, http.MethodPost, "/v1/retrieve", `{"question":"statins"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, ret.k)

	var resp RetrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Hits, 1)

	w = do(t, r, http.MethodPost, "/v1/retrieve", `{"question":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory(t *testing.T) {
	sink := memstore.NewMemoryLog()
	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Append(context.Background(), domain.Interaction{Question: fmt.Sprintf("q%d", i)}))
	}
	r := NewRouter(NewHandler(&fakeAsker{}, &fakeRetriever{}, sink, 3, nil), false)

	w := do(t, r, http.MethodGet, "/v1/history?n=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Interactions, 2)
	assert.Equal(t, "q2", resp.Interactions[1].Question)

	w = do(t, r, http.MethodGet, "/v1/history?n=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noHistory := NewRouter(NewHandler(&fakeAsker{}, &fakeRetriever{}, nil, 3, nil), false)
	w = do(t, noHistory, http.MethodGet, "/v1/history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthReadyMetrics(t *testing.T) {
	notReady := errors.New("assets not loaded")
	var readyErr error = notReady
	r := NewRouter(NewHandler(&fakeAsker{}, &fakeRetriever{}, nil, 3, func() error { return readyErr }), false)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/ready", "").Code)
	readyErr = nil
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/ready", "").Code)

	w := do(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "medrag_http_requests_total")
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := do(t, engine, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
