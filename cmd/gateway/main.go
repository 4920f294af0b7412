package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"governomics/internal/app"
	"governomics/internal/backend"
	"governomics/internal/chat"
	"governomics/internal/datasets"
	"governomics/internal/httputil"
	"governomics/internal/store"
)

// requestTimeout bounds a whole request; report generation on the backend is slow.
const requestTimeout = 5 * time.Minute

type askRequest struct {
	Question string `json:"question" validate:"required"`
	Endpoint string `json:"endpoint" validate:"omitempty,oneof=report general_information"`
}

type createSessionRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=api demo"`
}

type setModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=api demo"`
}

type messageRequest struct {
	Content  string `json:"content" validate:"required"`
	Endpoint string `json:"endpoint" validate:"omitempty,oneof=report general_information"`
	Async    bool   `json:"async"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", deps.Config.Port),
		Handler: newRouter(deps),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	context.AfterFunc(ctx, stop)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Log.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("gateway stopped", "err", err)
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log, requestTimeout)

	r.Post("/api/ask", askHandler(deps))
	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/prompts", promptsHandler())
		r.Post("/sessions", createSessionHandler(deps))
		r.Get("/sessions/{id}", getSessionHandler(deps))
		r.Put("/sessions/{id}/mode", setModeHandler(deps))
		r.Post("/sessions/{id}/messages", messageHandler(deps))
	})
	r.Get("/api/datasets", datasetIndexHandler())
	r.Get("/api/datasets/{name}", datasetHandler(deps))
	r.Delete("/api/cache", flushCacheHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	return r
}

// askHandler is a stateless proxy to the backend. The Outcome is always
// returned with 200; a backend failure is data, not an HTTP error.
func askHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		endpoint, err := backend.ParseEndpoint(req.Endpoint)
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid endpoint", err, http.StatusBadRequest)
			return
		}
		outcome := deps.Backend.SubmitQuestion(r.Context(), req.Question, endpoint)
		httputil.WriteJSON(w, http.StatusOK, outcome)
	}
}

func promptsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"prompts": chat.QuickPrompts})
	}
}

func createSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		// An empty body, chunked or not, means the default mode.
		if err := httputil.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		mode := store.Mode(req.Mode)
		if mode == "" {
			mode = store.Mode(deps.Config.ChatMode)
		}
		sess, err := deps.Chat.Create(r.Context(), mode)
		if err != nil {
			fail(deps, w, "failed to create session", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, sess)
	}
}

func getSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(deps, w, r)
		if !ok {
			return
		}
		sess, err := deps.Chat.Get(r.Context(), id)
		if err != nil {
			fail(deps, w, "failed to load session", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, sess)
	}
}

func setModeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(deps, w, r)
		if !ok {
			return
		}
		var req setModeRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		if err := deps.Chat.SetMode(r.Context(), id, store.Mode(req.Mode)); err != nil {
			fail(deps, w, "failed to set mode", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func messageHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(deps, w, r)
		if !ok {
			return
		}
		var req messageRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		endpoint, err := backend.ParseEndpoint(req.Endpoint)
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid endpoint", err, http.StatusBadRequest)
			return
		}

		if req.Async {
			if err := deps.Chat.Enqueue(r.Context(), id, req.Content, endpoint); err != nil {
				fail(deps, w, "failed to queue question", err)
				return
			}
			httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
				"session_id": id,
				"status":     "queued",
			})
			return
		}

		msg, err := deps.Chat.Send(r.Context(), id, req.Content, endpoint)
		if err != nil {
			fail(deps, w, "failed to send question", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, msg)
	}
}

func datasetIndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"datasets": datasets.Names()})
	}
}

func datasetHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		data, err := datasets.Get(name)
		if err != nil {
			httputil.Fail(deps.Log, w, "dataset not found", err, http.StatusNotFound)
			return
		}
		if sector := r.URL.Query().Get("sector"); sector != "" {
			if name != datasets.NamePIBSectores {
				httputil.Fail(deps.Log, w, "sector filter only applies to "+datasets.NamePIBSectores, nil, http.StatusBadRequest)
				return
			}
			rows := datasets.Sector(sector)
			if len(rows) == 0 {
				httputil.Fail(deps.Log, w, "sector not found", datasets.ErrUnknownDataset, http.StatusNotFound)
				return
			}
			data = rows
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"name": name,
			"rows": data,
		})
	}
}

func flushCacheHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Cache.Flush(r.Context()); err != nil {
			httputil.Fail(deps.Log, w, "failed to flush cache", err, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionID(deps app.Deps, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(deps.Log, w, "invalid session id", err, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// fail maps chat and store errors onto HTTP statuses.
func fail(deps app.Deps, w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		httputil.Fail(deps.Log, w, "session not found", err, http.StatusNotFound)
	case errors.Is(err, chat.ErrBusy):
		httputil.Fail(deps.Log, w, "session is answering another question", err, http.StatusConflict)
	case errors.Is(err, chat.ErrEmptyQuestion), errors.Is(err, chat.ErrInvalidMode):
		httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
	case errors.Is(err, chat.ErrQueueUnavailable):
		httputil.Fail(deps.Log, w, err.Error(), err, http.StatusServiceUnavailable)
	default:
		httputil.Fail(deps.Log, w, message, err, http.StatusInternalServerError)
	}
}
