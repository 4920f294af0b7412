package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"governomics/internal/app"
	"governomics/internal/backend"
	"governomics/internal/cache"
	"governomics/internal/chat"
	"governomics/internal/config"
	"governomics/internal/datasets"
	"governomics/internal/logger"
	"governomics/internal/queue"
	"governomics/internal/store"
)

// newTestDeps wires the gateway against a fake analysis backend.
func newTestDeps(t *testing.T, backendHandler http.HandlerFunc) app.Deps {
	t.Helper()
	be := httptest.NewServer(backendHandler)
	t.Cleanup(be.Close)

	deps, err := app.BuildWith(config.Config{
		BackendURL:    be.URL,
		ChatMode:      "api",
		StoreProvider: "memory",
		CacheProvider: "none",
		QueueProvider: "none",
	}, logger.Discard())
	require.NoError(t, err)
	return deps
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAskHandler(t *testing.T) {
	tests := []struct {
		name       string
		backend    http.HandlerFunc
		body       string
		wantStatus int
		want       backend.Outcome
	}{
		{
			name:       "success outcome",
			backend:    respond(http.StatusOK, `{"response":"El PIB creció 4.3%"}`),
			body:       `{"question":"¿Cómo creció el PIB?"}`,
			wantStatus: http.StatusOK,
			want:       backend.Success("El PIB creció 4.3%"),
		},
		{
			name:       "backend failure is still 200",
			backend:    respond(http.StatusNotFound, `{"detail":"not found"}`),
			body:       `{"question":"PIB","endpoint":"general_information"}`,
			wantStatus: http.StatusOK,
			want:       backend.Failure("not found"),
		},
		{
			name:       "missing question",
			backend:    respond(http.StatusOK, `{}`),
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown endpoint",
			backend:    respond(http.StatusOK, `{}`),
			body:       `{"question":"PIB","endpoint":"charts"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps(t, tt.backend)

			w := do(t, newRouter(deps), http.MethodPost, "/api/ask", tt.body)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got backend.Outcome
			require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAskHandlerTargetsEndpoint(t *testing.T) {
	var gotPath string
	deps := newTestDeps(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"response":"ok"}`)
	})
	h := newRouter(deps)

	do(t, h, http.MethodPost, "/api/ask", `{"question":"PIB"}`)
	assert.Equal(t, string(backend.EndpointReport), gotPath)

	do(t, h, http.MethodPost, "/api/ask", `{"question":"PIB","endpoint":"general_information"}`)
	assert.Equal(t, string(backend.EndpointGeneralInformation), gotPath)
}

func TestChatSessionFlow(t *testing.T) {
	deps := newTestDeps(t, respond(http.StatusOK, `{"response":"Servicios crecieron 6%"}`))
	h := newRouter(deps)

	w := do(t, h, http.MethodPost, "/api/chat/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess store.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sess))
	assert.Equal(t, store.ModeAPI, sess.Mode)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, chat.Greeting, sess.Messages[0].Content)

	path := "/api/chat/sessions/" + sess.ID.String()

	w = do(t, h, http.MethodPost, path+"/messages", `{"content":"¿Qué sector creció más con Arias?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var msg store.Message
	require.NoError(t, json.NewDecoder(w.Body).Decode(&msg))
	assert.Equal(t, "Servicios crecieron 6%", msg.Content)

	w = do(t, h, http.MethodPut, path+"/mode", `{"mode":"demo"}`)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, path+"/messages", `{"content":"validaciones de la serie trimestral"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.NewDecoder(w.Body).Decode(&msg))
	assert.Contains(t, msg.Content, "Validaciones visuales")

	w = do(t, h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sess))
	assert.Len(t, sess.Messages, 5)
	assert.False(t, sess.Busy)
}

func TestMessageHandlerErrors(t *testing.T) {
	deps := newTestDeps(t, respond(http.StatusOK, `{"response":"ok"}`))
	h := newRouter(deps)
	sess, err := deps.Chat.Create(context.Background(), store.ModeAPI)
	require.NoError(t, err)
	path := "/api/chat/sessions/" + sess.ID.String() + "/messages"

	tests := []struct {
		name       string
		path       string
		body       string
		setup      func()
		wantStatus int
	}{
		{"invalid session id", "/api/chat/sessions/abc/messages", `{"content":"PIB"}`, nil, http.StatusBadRequest},
		{"unknown session", "/api/chat/sessions/8f8b7d3e-6d0c-4d7e-9a43-0c4f4d3f6a11/messages", `{"content":"PIB"}`, nil, http.StatusNotFound},
		{"blank content", path, `{"content":"   "}`, nil, http.StatusBadRequest},
		{"missing content", path, `{}`, nil, http.StatusBadRequest},
		{"async without queue", path, `{"content":"PIB","async":true}`, nil, http.StatusServiceUnavailable},
		{
			name: "busy session",
			path: path,
			body: `{"content":"PIB"}`,
			setup: func() {
				require.NoError(t, deps.Store.AcquireBusy(context.Background(), sess.ID))
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			w := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestMessageHandlerAsync(t *testing.T) {
	st := store.NewMemory()
	q := new(queue.MockQueue)
	q.On("Enqueue", mock.Anything, mock.MatchedBy(func(task queue.Task) bool {
		return task.Type == queue.TaskTypeAsk
	})).Return(nil).Once()

	deps := app.Deps{
		Config: config.Config{ChatMode: "api"},
		Log:    logger.Discard(),
		Store:  st,
		Cache:  cache.NewNoOpCache(),
		Queue:  q,
		Chat: chat.NewService(chat.Options{
			Store: st,
			Asker: new(backend.MockAsker),
			Queue: q,
			Log:   logger.Discard(),
		}),
	}
	sess, err := deps.Chat.Create(context.Background(), store.ModeAPI)
	require.NoError(t, err)

	w := do(t, newRouter(deps), http.MethodPost, "/api/chat/sessions/"+sess.ID.String()+"/messages", `{"content":"PIB","async":true}`)

	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	q.AssertExpectations(t)
}

func TestDatasetHandler(t *testing.T) {
	deps := newTestDeps(t, respond(http.StatusOK, `{}`))
	h := newRouter(deps)

	w := do(t, h, http.MethodGet, "/api/datasets/pib-sectores", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Name string           `json:"name"`
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&body))
	assert.Equal(t, "pib-sectores", body.Name)
	assert.Len(t, body.Rows, 24)

	w = do(t, h, http.MethodGet, "/api/datasets/inflacion", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/api/datasets", "")
	assert.Equal(t, http.StatusOK, w.Code)
	for _, name := range datasets.Names() {
		assert.Contains(t, w.Body.String(), name)
	}
}

func TestDatasetHandlerYearlySeries(t *testing.T) {
	h := newRouter(app.Deps{Log: logger.Discard()})

	for _, name := range []string{datasets.NamePIBAnual, datasets.NameRegimen} {
		w := do(t, h, http.MethodGet, "/api/datasets/"+name, "")
		require.Equal(t, http.StatusOK, w.Code, name)
		var body struct {
			Rows []datasets.YearGrowth `json:"rows"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.Len(t, body.Rows, 32, name)
		assert.Equal(t, datasets.YearGrowth{Year: 1994, Growth: body.Rows[0].Growth, Admin: "Olsen"}, body.Rows[0])
	}
}

func TestDatasetHandlerSectorFilter(t *testing.T) {
	h := newRouter(app.Deps{Log: logger.Discard()})

	w := do(t, h, http.MethodGet, "/api/datasets/pib-sectores?sector=Agro", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Rows []datasets.SectorGrowth `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Rows, 8)
	assert.Equal(t, "Olsen", body.Rows[0].Admin)
	assert.Equal(t, 1, body.Rows[0].Rank)

	w = do(t, h, http.MethodGet, "/api/datasets/pib-sectores?sector=Turismo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/api/datasets/pib-anual?sector=Agro", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSessionWithEmptyChunkedBody(t *testing.T) {
	deps := newTestDeps(t, respond(http.StatusOK, `{}`))

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sessions", io.NopCloser(strings.NewReader("")))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	w := httptest.NewRecorder()
	newRouter(deps).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess store.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sess))
	assert.Equal(t, store.ModeAPI, sess.Mode)

	w = do(t, newRouter(deps), http.MethodPost, "/api/chat/sessions", `{"mode":"demo"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sess))
	assert.Equal(t, store.ModeDemo, sess.Mode)
}

func TestFlushCacheHandler(t *testing.T) {
	c := new(cache.MockCache)
	c.On("Flush", mock.Anything).Return(nil).Once()
	deps := app.Deps{Log: logger.Discard(), Cache: c}

	w := do(t, newRouter(deps), http.MethodDelete, "/api/cache", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	c.AssertExpectations(t)
}

func TestPromptsAndHealth(t *testing.T) {
	h := newRouter(app.Deps{Log: logger.Discard()})

	w := do(t, h, http.MethodGet, "/api/chat/prompts", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), chat.QuickPrompts[0])

	w = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
