package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/internal/config"
	istorage "github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/internal/story"
	"github.com/jwebster45206/dialogue-engine/pkg/capability"
	"github.com/jwebster45206/dialogue-engine/pkg/session"
	"github.com/jwebster45206/dialogue-engine/pkg/stage"
	"github.com/jwebster45206/dialogue-engine/pkg/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/transcript"
	"github.com/redis/go-redis/v9"
)

// SessionRequest starts or resumes a headless run. Choices answer
// selections in order, 1-based. A selection with no answer left fails the run.
type SessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Script    string `json:"script,omitempty"`
	Player    string `json:"player,omitempty"`
	Choices   []int  `json:"choices,omitempty"`
}

type SessionResponse struct {
	Session *session.Session  `json:"session"`
	Phase   int               `json:"phase"`
	State   string            `json:"state"`
	Lines   []capability.Line `json:"lines"`
	Error   string            `json:"error,omitempty"`
}

type TranscriptResponse struct {
	SessionID string             `json:"session_id"`
	Entries   []transcript.Entry `json:"entries"`
}

type SessionHandler struct {
	manifest      *config.Manifest
	storage       storage.Storage
	transcripts   *istorage.TranscriptStore
	redisClient   *redis.Client
	defaultPlayer string
	logger        *slog.Logger
}

// NewSessionHandler serves sessions of the story in m. transcripts and
// redisClient may be nil.
func NewSessionHandler(m *config.Manifest, storage storage.Storage, transcripts *istorage.TranscriptStore, redisClient *redis.Client, defaultPlayer string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manifest:      m,
		storage:       storage,
		transcripts:   transcripts,
		redisClient:   redisClient,
		defaultPlayer: defaultPlayer,
		logger:        logger,
	}
}

// ServeHTTP handles HTTP requests for session operations
// Routes:
// POST /v1/sessions                 - Play a new or saved session headlessly
// GET /v1/sessions/{id}             - Read session by ID
// DELETE /v1/sessions/{id}          - Delete session and its transcript
// GET /v1/sessions/{id}/transcript  - Lines shown in the session
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/"), "/")

	if parts[0] == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handlePlay(w, r)
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "transcript" && r.Method == http.MethodGet:
		h.handleTranscript(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleRead(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case len(parts) > 2 || (len(parts) == 2 && parts[1] != "transcript"):
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SessionHandler) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	// Each run gets its own stage so concurrent sessions do not share state.
	st, err := story.Open(h.manifest, 0, nil, h.logger)
	if err != nil {
		h.logger.Error("Failed to open story", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to open story")
		return
	}
	runner := &story.Runner{
		Story:       st,
		Storage:     h.storage,
		Transcripts: h.transcripts,
		Redis:       h.redisClient,
		Logger:      h.logger,
	}

	reader := stage.NewStrictReader(nil, req.Choices...)
	sreq := story.Request{
		Script:     req.Script,
		PlayerName: req.Player,
		Display:    reader,
		Selector:   reader,
	}
	if sreq.PlayerName == "" && h.manifest.Player == "" {
		sreq.PlayerName = h.defaultPlayer
	}
	status := http.StatusCreated
	if req.SessionID != "" {
		if sreq.SessionID, err = uuid.Parse(req.SessionID); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		status = http.StatusOK
	}

	run, err := runner.Prepare(r.Context(), sreq)
	if err != nil {
		if errors.Is(err, story.ErrSessionNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("Failed to prepare session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to prepare session")
		return
	}

	playErr := run.Play(r.Context())
	res := SessionResponse{
		Session: run.Session,
		Phase:   run.Engine.Phase(),
		State:   run.Engine.State().String(),
		Lines:   reader.Lines(),
	}
	if res.Lines == nil {
		res.Lines = []capability.Line{}
	}
	if playErr != nil {
		h.logger.Warn("Session run failed", "session_id", run.Session.ID.String(), "error", playErr)
		res.Error = playErr.Error()
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, h.logger, status, res)
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, err := h.storage.LoadSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "error", err, "session_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if sess == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sess)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteSession(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete session", "error", err, "session_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	if h.transcripts != nil {
		if err := h.transcripts.Clear(r.Context(), id); err != nil {
			h.logger.Warn("Failed to clear transcript", "error", err, "session_id", id.String())
		}
	}
	h.logger.Info("Session deleted", "session_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleTranscript(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if h.transcripts == nil {
		writeError(w, h.logger, http.StatusNotImplemented, "Transcripts are not enabled")
		return
	}
	entries, err := h.transcripts.Entries(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to read transcript", "error", err, "session_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read transcript")
		return
	}
	if entries == nil {
		entries = []transcript.Entry{}
	}
	writeJSON(w, h.logger, http.StatusOK, TranscriptResponse{SessionID: id.String(), Entries: entries})
}
