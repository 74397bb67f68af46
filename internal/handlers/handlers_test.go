package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/internal/events"
	istorage "github.com/jwebster45206/dialogue-engine/internal/storage"
	"github.com/jwebster45206/dialogue-engine/pkg/sheet"
	"github.com/jwebster45206/dialogue-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeting = "\tcharacter\talice\tAlice\n" +
	"alice\t\tHello {player}.\n" +
	"\tselect\tStay|Leave\t1,2\tsaveto:choice\n" +
	"\tphase\t1\n" +
	"alice\t\tGood.\n" +
	"\tphase\t2\n" +
	"alice\t\tBye.\n"

const loop = "\tcharacter\talice\tAlice\n" +
	"alice\t\tOnce more?\n" +
	"\tselect\tAgain|Stop\t0,1\n" +
	"\tphase\t1\n" +
	"alice\t\tDone.\n"

const spin = "\tcharacter\talice\tAlice\n" +
	"alice\t\tAround again.\n" +
	"\tnextphase\t0\n"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func writeManifest(t *testing.T, extra ...string) *config.Manifest {
	t.Helper()
	dir := t.TempDir()
	scripts := filepath.Join(dir, "scripts")
	require.NoError(t, os.MkdirAll(scripts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "greeting.dlg"), []byte(greeting), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "broken.dlg"), []byte("\tset\tmissing\t1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "loop.dlg"), []byte(loop), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "spin.dlg"), []byte(spin), 0o644))
	yml := "title: Test\nentry: greeting\nassets: " + dir + "\n" + strings.Join(extra, "")
	m, err := config.ParseManifest([]byte(yml))
	require.NoError(t, err)
	return m
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name            string
		pingErr         error
		expectedStatus  int
		expectedHealth  string
		expectedStorage string
	}{
		{
			name:            "healthy",
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedStorage: "healthy",
		},
		{
			name:            "unhealthy storage",
			pingErr:         errors.New("connection failed"),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockStorage()
			store.SetPingError(tt.pingErr)

			rec := serve(t, NewHealthHandler(store, quietLogger()), http.MethodGet, "/health", "")
			assert.Equal(t, tt.expectedStatus, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.expectedHealth, resp.Status)
			assert.Equal(t, tt.expectedStorage, resp.Components["storage"])
			assert.Equal(t, "dialogue-engine", resp.Service)
		})
	}
}

func TestScriptHandler(t *testing.T) {
	store := storage.NewMockStorage()
	store.AddScript("greeting", greeting)
	store.AddScript("bad", "\tselect\tA|B\t1\n")
	h := NewScriptHandler(store, sheet.New(nil).Extensions(), quietLogger())

	t.Run("list", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/v1/scripts", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ScriptListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, []string{"bad", "greeting"}, resp.Scripts)
	})

	t.Run("valid script", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/v1/scripts/greeting", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ScriptResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Valid)
		assert.Equal(t, 3, resp.Phases)
		assert.Equal(t, greeting, resp.Text)
	})

	t.Run("invalid script", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/v1/scripts/bad", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ScriptResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Valid)
		assert.Equal(t, 1, resp.Line)
		assert.NotEmpty(t, resp.Error)
	})

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"missing", http.MethodGet, "/v1/scripts/nope", http.StatusNotFound},
		{"traversal", http.MethodGet, "/v1/scripts/../secret", http.StatusBadRequest},
		{"wrong method", http.MethodPost, "/v1/scripts", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, tt.method, tt.path, "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestSessionHandler_PlayAndResume(t *testing.T) {
	m := writeManifest(t)
	store := storage.NewMockStorage()
	transcripts, err := istorage.OpenTranscriptStore(filepath.Join(t.TempDir(), "t.sqlite"), quietLogger())
	require.NoError(t, err)
	defer transcripts.Close()
	h := NewSessionHandler(m, store, transcripts, nil, "Sam", quietLogger())

	rec := serve(t, h, http.MethodPost, "/v1/sessions", `{"choices":[2]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Session)
	assert.Equal(t, "ended", resp.State)
	assert.Equal(t, 2, resp.Phase)
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "Hello Sam.", resp.Lines[0].Text)
	assert.Equal(t, "Bye.", resp.Lines[1].Text)

	id := resp.Session.ID
	saved, err := store.LoadSession(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Sam", saved.PlayerName)

	rec = serve(t, h, http.MethodGet, "/v1/sessions/"+id.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodGet, "/v1/sessions/"+id.String()+"/transcript", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tr TranscriptResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tr))
	require.Len(t, tr.Entries, 2)
	assert.Equal(t, "Alice", tr.Entries[0].Talker)

	// Resuming keeps the saved choice variable.
	rec = serve(t, h, http.MethodPost, "/v1/sessions", `{"session_id":"`+id.String()+`","choices":[1]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = SessionResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, id, resp.Session.ID)
	require.Len(t, resp.Session.Variables, 1)
	assert.Equal(t, "choice", resp.Session.Variables[0].Key)

	rec = serve(t, h, http.MethodDelete, "/v1/sessions/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(t, h, http.MethodGet, "/v1/sessions/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	entries, err := transcripts.Entries(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSessionHandler_Errors(t *testing.T) {
	m := writeManifest(t)
	h := NewSessionHandler(m, storage.NewMockStorage(), nil, nil, "Sam", quietLogger())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"bad json", http.MethodPost, "/v1/sessions", "{", http.StatusBadRequest},
		{"bad session id in body", http.MethodPost, "/v1/sessions", `{"session_id":"x"}`, http.StatusBadRequest},
		{"unknown session in body", http.MethodPost, "/v1/sessions", `{"session_id":"` + uuid.NewString() + `"}`, http.StatusNotFound},
		{"runtime failure", http.MethodPost, "/v1/sessions", `{"script":"broken"}`, http.StatusUnprocessableEntity},
		{"bad id", http.MethodGet, "/v1/sessions/nope", "", http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/v1/sessions/" + uuid.NewString(), "", http.StatusNotFound},
		{"list not supported", http.MethodGet, "/v1/sessions", "", http.StatusMethodNotAllowed},
		{"no transcripts", http.MethodGet, "/v1/sessions/" + uuid.NewString() + "/transcript", "", http.StatusNotImplemented},
		{"unknown subresource", http.MethodGet, "/v1/sessions/" + uuid.NewString() + "/other", "", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/v1/sessions/" + uuid.NewString(), "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSessionHandler_LoopingScriptEnds(t *testing.T) {
	tests := []struct {
		name     string
		manifest []string
		body     string
		status   int
		lines    int
		errPart  string
	}{
		{"loop without choices", nil, `{"script":"loop"}`, http.StatusUnprocessableEntity, 1, "no answers left"},
		{"loop until choices run out", nil, `{"script":"loop","choices":[1,1]}`, http.StatusUnprocessableEntity, 3, "no answers left"},
		{"loop then stop", nil, `{"script":"loop","choices":[1,2]}`, http.StatusCreated, 3, ""},
		{"jump loop with step limit", []string{"max_steps: 20\n"}, `{"script":"spin"}`, http.StatusUnprocessableEntity, 7, "step limit reached"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := writeManifest(t, tt.manifest...)
			h := NewSessionHandler(m, storage.NewMockStorage(), nil, nil, "Sam", quietLogger())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(tt.body)).WithContext(ctx)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.NoError(t, ctx.Err(), "run should end before the deadline")

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			var resp SessionResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Len(t, resp.Lines, tt.lines)
			assert.Equal(t, "ended", resp.State)
			if tt.errPart == "" {
				assert.Empty(t, resp.Error)
				return
			}
			assert.Contains(t, resp.Error, tt.errPart)
		})
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	srv := httptest.NewServer(NewEventsHandler(client, quietLogger()))
	defer srv.Close()

	id := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/sessions/"+id.String(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() string {
		for lines.Scan() {
			if name, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
				return name
			}
		}
		return ""
	}
	require.Equal(t, "connected", readEvent())

	// The subscription is live once connected was sent.
	events.NewBroadcaster(client, id, "intro", quietLogger()).PhaseChanged(ctx, 0, 3)
	assert.Equal(t, string(events.EventTypePhaseChanged), readEvent())
	require.True(t, lines.Scan())
	assert.Contains(t, lines.Text(), `"to":3`)
}

func TestEventsHandler_BadRequests(t *testing.T) {
	h := NewEventsHandler(nil, quietLogger())
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, h, http.MethodPost, "/v1/events/sessions/x", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodGet, "/v1/events/other/x", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, h, http.MethodGet, "/v1/events/sessions/nope", "").Code)
}

func TestRequestLogger(t *testing.T) {
	var buf strings.Builder
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestLogger(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := serve(t, h, http.MethodGet, "/brew", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/brew")
}
