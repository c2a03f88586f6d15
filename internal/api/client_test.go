package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essayreview/internal/logger"
	"essayreview/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]Option{WithHTTPClient(server.Client()), WithLogger(logger.Nop())}, opts...)
	return NewClient(server.URL+"/", opts...)
}

func TestClient_GetAllTools(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get_all_tools", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.NotEmpty(t, r.Header.Get(requestIDHeader))
		w.Write([]byte(`{"tools":["MLA Citation","APA Citation","Site Fetcher"]}`))
	})

	tools, err := c.GetAllTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"MLA Citation", "APA Citation", "Site Fetcher"}, tools)
}

func TestClient_GetAllTools_MissingField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	tools, err := c.GetAllTools(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tools)
	assert.Empty(t, tools)
}

func TestClient_GetAllowedTools(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get_allowed_tools", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("aiLevel"))
		w.Write([]byte(`{"allowed":["Grammar Check"]}`))
	})

	allowed, err := c.GetAllowedTools(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Grammar Check"}, allowed)
}

func TestClient_GetAllowedTools_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusServiceUnavailable)
	})

	_, err := c.GetAllowedTools(context.Background(), 1)
	require.Error(t, err)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "get_allowed_tools", netErr.Op)
	assert.Equal(t, http.StatusServiceUnavailable, netErr.StatusCode)
	assert.Equal(t, "backend down", netErr.Detail)
	assert.Contains(t, err.Error(), "server error: 503 backend down")
}

func TestClient_RunAnalysis(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/run_analysis", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "My essay", body["text"])
		assert.Equal(t, float64(4), body["aiLevel"])
		assert.Equal(t, []any{"B", "A"}, body["tools"])
		assert.Equal(t, "be brief", body["instructions"])

		w.Write([]byte(`{
			"revised_text": "Better essay",
			"transcript": "[SYSTEM] done",
			"additional_downloadable_files": [
				{"name": "JSON_Works_Cited", "extension": "json", "data": "[]"},
				{"name": "TXT_Works_Cited", "extension": "txt", "data": "none"}
			]
		}`))
	})

	res, err := c.RunAnalysis(context.Background(), model.AnalysisRequest{
		Text: "My essay", Level: 4, Tools: []string{"B", "A"}, Instructions: "be brief",
	})
	require.NoError(t, err)
	require.NotNil(t, res.RevisedText)
	assert.Equal(t, "Better essay", *res.RevisedText)
	assert.Equal(t, "[SYSTEM] done", res.Transcript)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "JSON_Works_Cited", res.Files[0].Name)
	assert.Equal(t, "none", string(res.Files[1].Data))
}

func TestClient_RunAnalysis_NilToolsSentAsEmptyList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "[]", string(body["tools"]))
		w.Write([]byte(`{"transcript":""}`))
	})

	_, err := c.RunAnalysis(context.Background(), model.AnalysisRequest{Text: "x"})
	require.NoError(t, err)
}

func TestClient_RunAnalysis_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "server error: boom"}`))
	})

	res, err := c.RunAnalysis(context.Background(), model.AnalysisRequest{Text: "x"})
	assert.Nil(t, res)
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	assert.Contains(t, netErr.Detail, "boom")
}

func TestClient_RunAnalysis_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := c.RunAnalysis(context.Background(), model.AnalysisRequest{Text: "x"})
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestClient_RunAnalysis_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithAnalysisTimeout(50*time.Millisecond))
	defer close(release)

	_, err := c.RunAnalysis(context.Background(), model.AnalysisRequest{Text: "x"})
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewClient(url, WithLogger(logger.Nop()), WithRequestTimeout(time.Second))
	_, err := c.GetAllTools(context.Background())
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, 0, netErr.StatusCode)
}
