package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dialogue-engine/pkg/asset"
	"github.com/jwebster45206/dialogue-engine/pkg/parser"
	"github.com/jwebster45206/dialogue-engine/pkg/storage"
)

type ScriptListResponse struct {
	Scripts []string `json:"scripts"`
}

// ScriptResponse is a script's source and its parse outcome for a host with
// every capability.
type ScriptResponse struct {
	Key          string `json:"key"`
	Text         string `json:"text"`
	Valid        bool   `json:"valid"`
	Line         int    `json:"line,omitempty"`
	Error        string `json:"error,omitempty"`
	Phases       int    `json:"phases"`
	Instructions int    `json:"instructions"`
}

type ScriptHandler struct {
	storage    storage.Storage
	extensions map[string]parser.ExtensionFunc
	logger     *slog.Logger
}

func NewScriptHandler(storage storage.Storage, extensions map[string]parser.ExtensionFunc, logger *slog.Logger) *ScriptHandler {
	return &ScriptHandler{
		storage:    storage,
		extensions: extensions,
		logger:     logger,
	}
}

// ServeHTTP handles script requests
// Routes:
// GET /v1/scripts       - List script keys
// GET /v1/scripts/{key} - Script source and parse result
func (h *ScriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scripts"), "/")
	if key == "" {
		h.handleList(w, r)
		return
	}
	if strings.Contains(key, "..") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid script key")
		return
	}
	h.handleGet(w, r, key)
}

func (h *ScriptHandler) handleList(w http.ResponseWriter, r *http.Request) {
	keys, err := h.storage.ListScripts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list scripts", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list scripts")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, h.logger, http.StatusOK, ScriptListResponse{Scripts: keys})
}

func (h *ScriptHandler) handleGet(w http.ResponseWriter, r *http.Request, key string) {
	text, err := h.storage.GetScript(r.Context(), key)
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Script not found")
			return
		}
		h.logger.Error("Failed to get script", "error", err, "key", key)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve script")
		return
	}

	res := ScriptResponse{Key: key, Text: text}
	table, err := parser.New(parser.WithExtensions(h.extensions), parser.WithLogger(h.logger)).Parse(text)
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			res.Line = pe.Line
		}
		res.Error = err.Error()
	} else {
		res.Valid = true
		res.Phases = len(table.Phases())
		res.Instructions = table.Len()
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}
