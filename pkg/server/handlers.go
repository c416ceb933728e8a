package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/memchat/memchat-go/pkg/chat"
	"github.com/memchat/memchat-go/pkg/chunker"
	"github.com/memchat/memchat-go/pkg/core"
)

// maxUploadBytes caps the multipart form size for document uploads.
const maxUploadBytes = 32 << 20

// memoriesListLimit is the number of records returned by GET /memories.
const memoriesListLimit = 10

// Handler carries the HTTP handlers for the service endpoints.
type Handler struct {
	store   *core.Store
	chatSvc *chat.Service
}

// NewHandler creates a new Handler.
func NewHandler(store *core.Store, chatSvc *chat.Service) *Handler {
	return &Handler{
		store:   store,
		chatSvc: chatSvc,
	}
}

// RegisterRoutes attaches the service endpoints to the router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/chat", h.Chat).Methods("POST")
	router.HandleFunc("/upload", h.Upload).Methods("POST")
	router.HandleFunc("/memories/{user_id}", h.GetMemories).Methods("GET")
	router.HandleFunc("/health", h.Health).Methods("GET")
}

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result, err := h.chatSvc.Chat(r.Context(), req.UserID, req.Message)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type uploadResponse struct {
	DocumentID     string `json:"document_id"`
	PagesProcessed int    `json:"pages_processed"`
	ChunksStored   int    `json:"chunks_stored"`
	EmbeddingsUsed bool   `json:"embeddings_used"`
}

// Upload handles POST /upload.
//
// The multipart form carries a "document" file (already-extracted text), an
// optional "user_id", and an optional "enable_embeddings" flag. The returned
// chunks_stored count is authoritative; a mid-batch backend failure surfaces
// as an error instead of a partial success response.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "document file is required")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read document")
		return
	}

	split := chunker.Split(string(content), chunker.DefaultSegmentSize)
	if len(split.Segments) == 0 {
		writeError(w, http.StatusBadRequest, "document contains no text")
		return
	}

	enableEmbeddings, _ := strconv.ParseBool(r.FormValue("enable_embeddings"))

	documentID := uuid.NewString()
	chunks := make([]*core.DocumentChunk, len(split.Segments))
	for i, segment := range split.Segments {
		chunks[i] = &core.DocumentChunk{
			DocumentID: documentID,
			Sequence:   i + 1,
			Content:    segment,
		}
	}

	ns := h.store.Namespace(r.FormValue("user_id"))
	stored, err := ns.AddDocumentChunks(r.Context(), chunks,
		core.WithChunkEmbeddings(enableEmbeddings))
	if err != nil {
		log.Printf("upload: stored %d/%d chunks before failure: %v", stored, len(chunks), err)
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		DocumentID:     documentID,
		PagesProcessed: split.Pages,
		ChunksStored:   stored,
		EmbeddingsUsed: enableEmbeddings,
	})
}

type memoriesResponse struct {
	Memories []*core.MemoryRecord `json:"memories"`
	Count    int                  `json:"count"`
}

// GetMemories handles GET /memories/{user_id}.
//
// An unknown user yields an empty list, not an error.
func (h *Handler) GetMemories(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	ns := h.store.Namespace(userID)
	memories, err := ns.ListMemories(r.Context(), memoriesListLimit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if memories == nil {
		memories = []*core.MemoryRecord{}
	}

	writeJSON(w, http.StatusOK, memoriesResponse{
		Memories: memories,
		Count:    len(memories),
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	BackendOK bool   `json:"backend_ok"`
}

// Health handles GET /health.
//
// Liveness is always reported; backend connectivity is a flag, so a broken
// backend degrades the health payload without making the probe itself fail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Backend:   h.store.BackendName(),
		BackendOK: true,
	}

	if err := h.store.Ping(r.Context()); err != nil {
		log.Printf("health: backend ping failed: %v", err)
		resp.Status = "degraded"
		resp.BackendOK = false
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps adapter errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, core.ErrBackendUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
