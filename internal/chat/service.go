package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"governomics/internal/backend"
	"governomics/internal/cache"
	"governomics/internal/queue"
	"governomics/internal/store"
)

// Greeting opens every new session.
const Greeting = "Hola 👋 Soy tu analista macro. Pregúntame sobre PIB, oferta/demanda, contribuciones, términos políticos y validaciones."

// ErrorPrefix precedes backend failure messages in the transcript.
const ErrorPrefix = "⚠️ Error al consultar el backend:\n\n"

var (
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrBusy             = store.ErrSessionBusy
	ErrInvalidMode      = errors.New("invalid chat mode")
	ErrQueueUnavailable = errors.New("async questions require a queue")
)

// AskTask is the queue payload for a question answered by the worker.
type AskTask struct {
	SessionID uuid.UUID        `json:"session_id"`
	Question  string           `json:"question"`
	Endpoint  backend.Endpoint `json:"endpoint"`
}

// Options configures a Service. Cache and Queue are optional.
type Options struct {
	Store    store.Store
	Asker    backend.Asker
	Cache    cache.Cache
	Queue    queue.Queue
	Log      *slog.Logger
	CacheTTL time.Duration
}

// Service runs chat sessions on top of the backend client. A session answers
// one question at a time; concurrent sends on the same session get ErrBusy.
type Service struct {
	store    store.Store
	asker    backend.Asker
	cache    cache.Cache
	queue    queue.Queue
	log      *slog.Logger
	cacheTTL time.Duration
}

func NewService(opts Options) *Service {
	s := &Service{
		store:    opts.Store,
		asker:    opts.Asker,
		cache:    opts.Cache,
		queue:    opts.Queue,
		log:      opts.Log,
		cacheTTL: opts.CacheTTL,
	}
	if s.cache == nil {
		s.cache = cache.NewNoOpCache()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Create opens a session in the given mode with the greeting message.
func (s *Service) Create(ctx context.Context, mode store.Mode) (store.Session, error) {
	if mode == "" {
		mode = store.ModeAPI
	}
	if !mode.Valid() {
		return store.Session{}, ErrInvalidMode
	}
	return s.store.CreateSession(ctx, mode, store.Message{Role: store.RoleAssistant, Content: Greeting})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (store.Session, error) {
	return s.store.GetSession(ctx, id)
}

func (s *Service) SetMode(ctx context.Context, id uuid.UUID, mode store.Mode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	return s.store.SetMode(ctx, id, mode)
}

// Send records the question, answers it and records the reply.
func (s *Service) Send(ctx context.Context, id uuid.UUID, text string, endpoint backend.Endpoint) (store.Message, error) {
	question, err := s.begin(ctx, id, text)
	if err != nil {
		return store.Message{}, err
	}
	return s.Complete(ctx, id, question, endpoint)
}

// Enqueue records the question and hands it to the worker. The session stays
// busy until the worker calls Complete.
func (s *Service) Enqueue(ctx context.Context, id uuid.UUID, text string, endpoint backend.Endpoint) error {
	if s.queue == nil {
		return ErrQueueUnavailable
	}
	question, err := s.begin(ctx, id, text)
	if err != nil {
		return err
	}

	body, err := json.Marshal(AskTask{SessionID: id, Question: question, Endpoint: endpoint})
	if err == nil {
		task := queue.Task{Type: queue.TaskTypeAsk, Payload: body}
		err = queue.EnqueueWithRetry(ctx, s.queue, task, 3, 200*time.Millisecond)
	}
	if err != nil {
		s.release(ctx, id)
		return fmt.Errorf("failed to enqueue question: %w", err)
	}
	return nil
}

// HandleTask is the worker entry point for queue.TaskTypeAsk. On error the
// session stays busy: the queue either retries the task or hands it to
// Abandon, which releases it.
func (s *Service) HandleTask(ctx context.Context, task queue.Task) error {
	var payload AskTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return err
	}
	_, err := s.complete(ctx, payload.SessionID, payload.Question, payload.Endpoint)
	if errors.Is(err, store.ErrSessionNotFound) {
		s.log.Warn("dropping question for unknown session", "id", task.ID, "session_id", payload.SessionID)
		return nil
	}
	if err != nil {
		return err
	}
	s.release(ctx, payload.SessionID)
	return nil
}

// Abandon is the queue failure handler: it closes out a session whose task
// ran out of attempts so the user is not left waiting.
func (s *Service) Abandon(ctx context.Context, task queue.Task, cause error) {
	var payload AskTask
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		s.log.Error("failed to decode abandoned task", "id", task.ID, "err", err)
		return
	}
	log := s.log.With("session_id", payload.SessionID)
	log.Warn("abandoning question", "err", cause)

	if err := s.store.AppendMessage(ctx, payload.SessionID, failureMessage(backend.UnreachableMessage)); err != nil {
		log.Error("failed to record abandoned question", "err", err)
	}
	s.release(ctx, payload.SessionID)
}

// Complete answers a question for a session that begin marked busy and
// always clears the busy flag.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, question string, endpoint backend.Endpoint) (store.Message, error) {
	defer s.release(ctx, id)
	return s.complete(ctx, id, question, endpoint)
}

func (s *Service) complete(ctx context.Context, id uuid.UUID, question string, endpoint backend.Endpoint) (store.Message, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return store.Message{}, err
	}

	outcome := s.answer(ctx, sess.Mode, question, endpoint)

	var msg store.Message
	if outcome.OK {
		msg = store.Message{Role: store.RoleAssistant, Content: outcome.Data}
	} else {
		msg = failureMessage(outcome.Error)
	}
	msg.CreatedAt = time.Now()
	if err := s.store.AppendMessage(ctx, id, msg); err != nil {
		return store.Message{}, fmt.Errorf("failed to record answer: %w", err)
	}
	return msg, nil
}

// begin validates the question, claims the session and records the question.
func (s *Service) begin(ctx context.Context, id uuid.UUID, text string) (string, error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	if err := s.store.AcquireBusy(ctx, id); err != nil {
		return "", err
	}
	msg := store.Message{Role: store.RoleUser, Content: question, CreatedAt: time.Now()}
	if err := s.store.AppendMessage(ctx, id, msg); err != nil {
		s.release(ctx, id)
		return "", fmt.Errorf("failed to record question: %w", err)
	}
	return question, nil
}

func (s *Service) answer(ctx context.Context, mode store.Mode, question string, endpoint backend.Endpoint) backend.Outcome {
	if mode == store.ModeDemo {
		return backend.Success(DemoAnswer(question))
	}
	if endpoint == "" {
		endpoint = backend.EndpointReport
	}

	key := cache.GenerateCacheKey(string(endpoint), question)
	if cached, err := s.cache.GetAnswer(ctx, key); err != nil {
		s.log.Warn("cache lookup failed", "err", err)
	} else if cached != nil {
		s.log.Info("cache hit", "endpoint", endpoint)
		return backend.Success(cached.Text)
	}

	start := time.Now()
	outcome := s.asker.SubmitQuestion(ctx, question, endpoint)
	s.log.Info("backend answered",
		"endpoint", endpoint,
		"ok", outcome.OK,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if !outcome.OK {
		return outcome
	}

	if err := s.cache.SetAnswer(ctx, key, &cache.Answer{
		Text:     outcome.Data,
		Endpoint: string(endpoint),
		CachedAt: time.Now(),
	}, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache answer", "err", err)
	}
	return outcome
}

func (s *Service) release(ctx context.Context, id uuid.UUID) {
	if err := s.store.ReleaseBusy(context.WithoutCancel(ctx), id); err != nil {
		s.log.Error("failed to release session", "session_id", id, "err", err)
	}
}

func failureMessage(reason string) store.Message {
	return store.Message{
		Role:      store.RoleAssistant,
		Content:   ErrorPrefix + reason,
		IsError:   true,
		CreatedAt: time.Now(),
	}
}
