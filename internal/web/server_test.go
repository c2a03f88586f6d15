package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essayreview/internal/api"
	"essayreview/internal/artifact"
	"essayreview/internal/logger"
	"essayreview/internal/model"
	"essayreview/internal/permission"
	"essayreview/internal/session"
)

// fakeBackend mimics the review service.
func fakeBackend(t *testing.T, runStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/get_all_tools", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tools":["Grammar Check","Tone Analysis","Logic Flow"]}`))
	})
	mux.HandleFunc("/api/get_allowed_tools", func(w http.ResponseWriter, r *http.Request) {
		level, _ := strconv.Atoi(r.URL.Query().Get("aiLevel"))
		allowed := []string{}
		if level >= 3 {
			allowed = []string{"Grammar Check", "Tone Analysis"}
		}
		json.NewEncoder(w).Encode(map[string]any{"allowed": allowed})
	})
	mux.HandleFunc("/api/run_analysis", func(w http.ResponseWriter, r *http.Request) {
		if runStatus != http.StatusOK {
			http.Error(w, "backend exploded", runStatus)
			return
		}
		var req model.AnalysisRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(map[string]any{
			"revised_text": strings.ToUpper(req.Text),
			"transcript":   "[SYSTEM] Compilation complete.",
			"additional_downloadable_files": []map[string]any{
				{"name": "JSON_Works_Cited", "extension": "json", "data": `{"works":[]}`},
				{"name": "page", "extension": "html", "data": "<p>revised</p>"},
				{"name": "notes", "extension": "log", "data": "line one"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, runStatus int) *httptest.Server {
	t.Helper()
	backend := fakeBackend(t, runStatus)
	client := api.NewClient(backend.URL, api.WithLogger(logger.Nop()), api.WithHTTPClient(backend.Client()))

	downloads := artifact.NewStore(time.Hour)
	ctrl := session.New(client, permission.NewRemoteResolver(client),
		session.WithLogger(logger.Nop()),
		session.WithDownloads(downloads),
	)
	require.NoError(t, ctrl.Start(context.Background()))

	srv := httptest.NewServer(NewServer(ctrl, downloads, WithLogger(logger.Nop())).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func errCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestState(t *testing.T) {
	srv := newTestServer(t, http.StatusOK)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/state", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["tools"], 3)
	assert.Equal(t, false, body["processing"])
}

func TestLevels(t *testing.T) {
	srv := newTestServer(t, http.StatusOK)

	resp, err := http.Get(srv.URL + "/api/levels")
	require.NoError(t, err)
	defer resp.Body.Close()
	var levels []model.LevelInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&levels))
	assert.Len(t, levels, 7)

	resp2, body := doJSON(t, http.MethodGet, srv.URL+"/api/levels/4", nil)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, float64(4), body["level"])

	resp3, body := doJSON(t, http.MethodGet, srv.URL+"/api/levels/12", nil)
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
	assert.Equal(t, "invalid_level", errCode(body))
}

func TestCommitLevelAndToggle(t *testing.T) {
	srv := newTestServer(t, http.StatusOK)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/tools/toggle", map[string]string{"tool": "Grammar Check"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "tool_unavailable", errCode(body))

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/level", map[string]int{"level": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/tools/toggle", map[string]string{"tool": "Grammar Check"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"Grammar Check"}, body["selectedTools"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/level", map[string]int{"level": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["selectedTools"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/level", map[string]int{"level": 7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_level", errCode(body))
}

func TestRun_EmptyText(t *testing.T) {
	srv := newTestServer(t, http.StatusOK)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/run", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "empty_input", errCode(body))
}

func TestRun_SuccessAndDownload(t *testing.T) {
	srv := newTestServer(t, http.StatusOK)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/text", map[string]string{"text": "my essay"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MY ESSAY", body["text"])
	assert.Equal(t, true, body["transcriptOpen"])
	require.Len(t, body["artifacts"], 3)
	first := body["artifacts"].([]any)[0].(map[string]any)
	assert.Equal(t, "application/json", first["mimeType"])

	file, err := http.Get(srv.URL + "/api/files/JSON_Works_Cited.json")
	require.NoError(t, err)
	defer file.Body.Close()
	data, _ := io.ReadAll(file.Body)
	assert.Equal(t, http.StatusOK, file.StatusCode)
	assert.Equal(t, "application/json", file.Header.Get("Content-Type"))
	assert.Contains(t, file.Header.Get("Content-Disposition"), "JSON_Works_Cited.json")
	assert.Equal(t, `{"works":[]}`, string(data))

	for name, want := range map[string]string{"page.html": "text/html", "notes.log": "text/plain"} {
		resp, err := http.Get(srv.URL + "/api/files/" + name)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, name)
		assert.Equal(t, want, resp.Header.Get("Content-Type"), name)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/transcript", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["open"])
	require.Len(t, body["entries"], 1)
	entry := body["entries"].([]any)[0].(map[string]any)
	assert.Equal(t, "SYSTEM", entry["source"])
	assert.Equal(t, "Compilation complete.", entry["message"])

	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/api/transcript", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["transcriptOpen"])

	missing, _ := doJSON(t, http.MethodGet, srv.URL+"/api/files/Other.txt", nil)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestRun_BackendFailure(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError)

	doJSON(t, http.MethodPut, srv.URL+"/api/text", map[string]string{"text": "keep me"})
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/run", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "backend_error", errCode(body))

	_, state := doJSON(t, http.MethodGet, srv.URL+"/api/state", nil)
	assert.Equal(t, "keep me", state["text"])
	assert.Equal(t, false, state["processing"])
}

func upload(t *testing.T, url, name, contentType string, data []byte) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	part.Write(data)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/api/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestUpload(t *testing.T) {
	srv := newTestServer(t, http.StatusOK)

	resp, body := upload(t, srv.URL, "essay.txt", "text/plain", []byte("uploaded essay"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "uploaded essay", body["text"])
	assert.Equal(t, true, body["toolsVisible"])

	resp, body = upload(t, srv.URL, "photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, "unsupported_file_type", errCode(body))

	_, state := doJSON(t, http.MethodGet, srv.URL+"/api/state", nil)
	assert.Equal(t, "uploaded essay", state["text"])

	resp, body = upload(t, srv.URL, "broken.pdf", "application/pdf", []byte("not a pdf"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "unreadable_pdf", errCode(body))
}

func TestHelpAndIndex(t *testing.T) {
	srv := newTestServer(t, http.StatusOK)

	resp, err := http.Get(srv.URL + "/api/help")
	require.NoError(t, err)
	defer resp.Body.Close()
	text, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(text), model.Version)
	assert.NotContains(t, string(text), "{{VERSION}}")

	index, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer index.Body.Close()
	html, _ := io.ReadAll(index.Body)
	assert.Equal(t, http.StatusOK, index.StatusCode)
	assert.Contains(t, string(html), "<title>Essay Review</title>")
}
