package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memchat/memchat-go/pkg/chat"
	"github.com/memchat/memchat-go/pkg/core"
	"github.com/memchat/memchat-go/pkg/embedder/mock"
	"github.com/memchat/memchat-go/pkg/llm"
	"github.com/memchat/memchat-go/pkg/server"
	"github.com/memchat/memchat-go/pkg/storage/memstore"
)

// staticLLM returns a fixed reply for every generation call.
type staticLLM struct {
	reply string
}

func (s *staticLLM) Generate(_ context.Context, _ string, _ ...llm.GenerateOption) (string, error) {
	return s.reply, nil
}

func (s *staticLLM) GenerateWithMessages(_ context.Context, _ []llm.Message, _ ...llm.GenerateOption) (string, error) {
	return s.reply, nil
}

func (s *staticLLM) Close() error { return nil }

func setupServerTest(t *testing.T) (http.Handler, *core.Store) {
	t.Helper()

	config := &core.Config{
		LLM:            core.LLMConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
		Store:          core.StoreConfig{Provider: "memory"},
		RequestTimeout: 5 * time.Second,
	}

	store, err := core.NewStore(config,
		core.WithBackend(memstore.NewClient()),
		core.WithEmbedder(mock.New(64)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	chatSvc := chat.NewService(store, &staticLLM{reply: "Sure thing!"})
	return server.NewRouter(store, chatSvc), store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestChatEndpoint(t *testing.T) {
	router, store := setupServerTest(t)

	recorder := doJSON(t, router, http.MethodPost, "/chat", map[string]string{
		"message": "Hi, I'm Ana",
		"user_id": "user_001",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "Sure thing!", body["response"])
	assert.Equal(t, float64(0), body["memories_used"])

	// Both turns were written back to the user's namespace.
	listed, err := store.Namespace("user_001").ListMemories(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestChatEndpoint_BlankMessage(t *testing.T) {
	router, _ := setupServerTest(t)

	recorder := doJSON(t, router, http.MethodPost, "/chat", map[string]string{
		"message": "   ",
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "message is required", body["error"])
}

func TestChatEndpoint_InvalidJSON(t *testing.T) {
	router, _ := setupServerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetMemoriesEndpoint(t *testing.T) {
	router, store := setupServerTest(t)

	ns := store.Namespace("user_001")
	_, err := ns.AddMemory(context.Background(), "User prefers dark roast coffee")
	require.NoError(t, err)

	recorder := doJSON(t, router, http.MethodGet, "/memories/user_001", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Memories []map[string]any `json:"memories"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Memories, 1)
	assert.Equal(t, "User prefers dark roast coffee", body.Memories[0]["content"])
}

func TestGetMemoriesEndpoint_UnknownUserEmpty(t *testing.T) {
	router, _ := setupServerTest(t)

	recorder := doJSON(t, router, http.MethodGet, "/memories/nobody", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Memories []map[string]any `json:"memories"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Zero(t, body.Count)
	assert.NotNil(t, body.Memories)
	assert.Empty(t, body.Memories)
}

func TestGetMemoriesEndpoint_UserIsolation(t *testing.T) {
	router, store := setupServerTest(t)
	ctx := context.Background()

	_, err := store.Namespace("alice").AddMemory(ctx, "alice secret")
	require.NoError(t, err)
	_, err = store.Namespace("bob").AddMemory(ctx, "bob note")
	require.NoError(t, err)

	recorder := doJSON(t, router, http.MethodGet, "/memories/bob", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Memories []map[string]any `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Len(t, body.Memories, 1)
	assert.Equal(t, "bob note", body.Memories[0]["content"])
}

func uploadRequest(t *testing.T, content, userID, enableEmbeddings string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("document", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)

	if userID != "" {
		require.NoError(t, writer.WriteField("user_id", userID))
	}
	if enableEmbeddings != "" {
		require.NoError(t, writer.WriteField("enable_embeddings", enableEmbeddings))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadEndpoint(t *testing.T) {
	router, _ := setupServerTest(t)

	req := uploadRequest(t, "page one text\fpage two text", "user_001", "true")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		DocumentID     string `json:"document_id"`
		PagesProcessed int    `json:"pages_processed"`
		ChunksStored   int    `json:"chunks_stored"`
		EmbeddingsUsed bool   `json:"embeddings_used"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.NotEmpty(t, body.DocumentID)
	assert.Equal(t, 2, body.PagesProcessed)
	assert.Equal(t, 2, body.ChunksStored)
	assert.True(t, body.EmbeddingsUsed)
}

func TestUploadEndpoint_MissingFile(t *testing.T) {
	router, _ := setupServerTest(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("user_id", "user_001"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUploadEndpoint_EmptyDocument(t *testing.T) {
	router, _ := setupServerTest(t)

	req := uploadRequest(t, "   \f  ", "user_001", "")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupServerTest(t)

	recorder := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Status    string `json:"status"`
		Backend   string `json:"backend"`
		BackendOK bool   `json:"backend_ok"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "memory", body.Backend)
	assert.True(t, body.BackendOK)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := setupServerTest(t)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
}
