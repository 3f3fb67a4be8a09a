package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/ports"
	"github.com/samirrijal/srimap/internal/pkg/metrics"
	"github.com/samirrijal/srimap/internal/pkg/retry"
	"github.com/samirrijal/srimap/internal/pkg/telemetry"
)

const (
	busyMessage = "Please wait, I'm still answering your previous message."
	errorPrefix = "Sorry, I encountered an error. "
)

// ChatConfig tunes the chat controller.
type ChatConfig struct {
	// MinInterval is the minimum gap between two answered messages.
	MinInterval time.Duration
	// Retry governs calls to the remote answer service.
	Retry retry.Policy
	// IdleTimeout is how long a session may go unused before Sweep closes
	// it. Zero keeps sessions until they are closed explicitly.
	IdleTimeout time.Duration
}

// DefaultChatConfig returns the stock chat settings.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		MinInterval: 2 * time.Second,
		IdleTimeout: 30 * time.Minute,
		Retry: retry.Policy{
			MaxRetries: 2,
			BaseDelay:  3 * time.Second,
			MaxDelay:   10 * time.Second,
			Retryable:  domain.IsRetryableRemote,
		},
	}
}

// ChatOption customises a ChatService.
type ChatOption func(*ChatService)

// WithRemote enables the remote fallback for unmatched questions.
func WithRemote(a ports.AnswerService) ChatOption {
	return func(s *ChatService) { s.remote = a }
}

// WithEvents publishes every answered turn.
func WithEvents(p ports.EventPublisher) ChatOption {
	return func(s *ChatService) { s.events = p }
}

// WithHistory persists every answered turn.
func WithHistory(r ports.ChatLogRepository) ChatOption {
	return func(s *ChatService) { s.history = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ChatOption {
	return func(s *ChatService) { s.now = now }
}

// ChatService owns the chat sessions and answers their messages.
type ChatService struct {
	answerer *Answerer
	remote   ports.AnswerService
	events   ports.EventPublisher
	history  ports.ChatLogRepository
	cfg      ChatConfig
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

// NewChatService creates a ChatService.
func NewChatService(answerer *Answerer, cfg ChatConfig, opts ...ChatOption) *ChatService {
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = domain.IsRetryableRemote
	}
	s := &ChatService{
		answerer: answerer,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*ChatSession),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open starts a new session. loc may be nil.
func (s *ChatService) Open(loc *domain.UserLocation) *ChatSession {
	sess := &ChatSession{id: uuid.NewString(), svc: s, lastActive: s.now()}
	if loc != nil {
		sess.SetLocation(*loc)
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	metrics.ActiveChatSessions.Inc()
	return sess
}

// Get returns an open session.
func (s *ChatService) Get(id string) (*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return sess, nil
}

// Close ends a session. Closing an unknown session is a no-op.
func (s *ChatService) Close(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		metrics.ActiveChatSessions.Dec()
	}
}

// Sweep closes every session that has been idle for longer than
// IdleTimeout and returns how many it closed. Sessions answering a message
// are never closed.
func (s *ChatService) Sweep() int {
	if s.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.cfg.IdleTimeout)

	n := 0
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	s.mu.Unlock()

	if n > 0 {
		metrics.ActiveChatSessions.Sub(float64(n))
		slog.Info("expired idle chat sessions", "count", n)
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *ChatService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// History returns the persisted turns of a session, oldest first.
func (s *ChatService) History(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error) {
	if s.history == nil {
		return []domain.ChatTurn{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.history.ListBySession(ctx, sessionID, limit)
}

// answer routes a message. ok is false when the remote path failed.
func (s *ChatService) answer(ctx context.Context, text string, loc *domain.UserLocation) (reply domain.Reply, ok bool) {
	cl := Analyze(text)
	if cl.Matched {
		return domain.Reply{
			Text:     s.answerer.Answer(ctx, cl, loc),
			Route:    domain.RouteLocal,
			Category: cl.Category,
			Nearby:   cl.Nearby,
		}, true
	}

	if s.remote == nil {
		return domain.Reply{Text: HelpMessage, Route: domain.RouteHelp}, true
	}

	ctx, span := tracer.Start(ctx, "ChatService.remote")
	defer span.End()

	prompt := BuildPrompt(text, s.answerer.BuildContext(ctx, loc))
	attempt := 0
	out, err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) (string, error) {
		attempt++
		return s.remote.Generate(ctx, prompt)
	}, func(err error, wait time.Duration) {
		metrics.RemoteRetries.Inc()
		slog.Warn("remote answer failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	})
	span.SetAttributes(telemetry.AttrAttempts.Int(attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RemoteCalls.WithLabelValues(remoteOutcome(err)).Inc()
		slog.Error("remote answer failed", "attempts", attempt, "error", err)
		return domain.Reply{Text: errorPrefix + remoteErrorMessage(err), Route: domain.RouteError}, false
	}

	metrics.RemoteCalls.WithLabelValues("ok").Inc()
	return domain.Reply{Text: out, Route: domain.RouteRemote}, true
}

func (s *ChatService) record(ctx context.Context, sessionID, question string, reply domain.Reply, started time.Time) {
	metrics.ChatTurns.WithLabelValues(string(reply.Route)).Inc()

	turn := &domain.ChatTurn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Question:  question,
		Answer:    reply.Text,
		Route:     reply.Route,
		Category:  reply.Category,
		LatencyMs: s.now().Sub(started).Milliseconds(),
		CreatedAt: started.UTC(),
	}

	if s.events != nil {
		if err := s.events.PublishChatTurn(ctx, turn); err != nil {
			slog.Warn("publish chat turn failed", "session", sessionID, "error", err)
		}
	}
	if s.history != nil {
		if err := s.history.Insert(ctx, turn); err != nil {
			slog.Warn("persist chat turn failed", "session", sessionID, "error", err)
		}
	}
}

func remoteOutcome(err error) string {
	var rerr *domain.RemoteServiceError
	if errors.As(err, &rerr) {
		return string(rerr.Kind)
	}
	return "error"
}

func remoteErrorMessage(err error) string {
	var rerr *domain.RemoteServiceError
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case domain.RemoteAuth:
			return "Authentication failed - the API key may be invalid."
		case domain.RemoteForbidden:
			return "Access denied - check API permissions."
		case domain.RemoteRateLimit:
			return "API rate limit exceeded. Please wait 30-60 seconds and try again."
		case domain.RemoteServer:
			return "API server error - please try again later."
		case domain.RemoteNetwork:
			return "Network error - check your connection."
		case domain.RemoteMalformed:
			return "Invalid API response - data format error."
		case domain.RemoteUnavailable:
			return "The answer service is not configured."
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The request was cancelled before an answer arrived."
	}
	return "Please try again later."
}

// ChatSession is one user's conversation. At most one message is answered
// at a time.
type ChatSession struct {
	id  string
	svc *ChatService

	mu          sync.Mutex
	location    *domain.UserLocation
	lastRequest time.Time
	lastActive  time.Time
	inFlight    bool
}

// ID returns the session identifier.
func (c *ChatSession) ID() string { return c.id }

// SetLocation records the user's position.
func (c *ChatSession) SetLocation(loc domain.UserLocation) {
	c.mu.Lock()
	c.location = &loc
	c.lastActive = c.svc.now()
	c.mu.Unlock()
}

// ClearLocation forgets the user's position.
func (c *ChatSession) ClearLocation() {
	c.mu.Lock()
	c.location = nil
	c.lastActive = c.svc.now()
	c.mu.Unlock()
}

func (c *ChatSession) idleSince(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inFlight && c.lastActive.Before(cutoff)
}

// Location returns a copy of the user's position, or nil.
func (c *ChatSession) Location() *domain.UserLocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.location == nil {
		return nil
	}
	loc := *c.location
	return &loc
}

// Ask answers one message. Messages sent while another is being answered,
// or sooner than the minimum interval after the last answer, are rejected
// with an explanatory reply and never reach the datasets or remote service.
func (c *ChatSession) Ask(ctx context.Context, text string) (domain.Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Reply{}, domain.ErrEmptyMessage
	}

	c.mu.Lock()
	c.lastActive = c.svc.now()
	if c.inFlight {
		c.mu.Unlock()
		metrics.ChatTurns.WithLabelValues(string(domain.RouteRejected)).Inc()
		return domain.Reply{Text: busyMessage, Route: domain.RouteRejected}, nil
	}
	started := c.svc.now()
	if !c.lastRequest.IsZero() {
		if wait := c.svc.cfg.MinInterval - started.Sub(c.lastRequest); wait > 0 {
			c.mu.Unlock()
			metrics.ChatTurns.WithLabelValues(string(domain.RouteRejected)).Inc()
			secs := int(math.Ceil(wait.Seconds()))
			return domain.Reply{
				Text:  fmt.Sprintf("Please wait %d seconds before sending another message.", secs),
				Route: domain.RouteRejected,
			}, nil
		}
	}
	c.inFlight = true
	var loc *domain.UserLocation
	if c.location != nil {
		l := *c.location
		loc = &l
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	ctx, span := tracer.Start(ctx, "ChatSession.Ask")
	defer span.End()

	reply, ok := c.svc.answer(ctx, text, loc)
	span.SetAttributes(
		telemetry.AttrRoute.String(string(reply.Route)),
		telemetry.AttrCategory.String(string(reply.Category)),
	)
	if ok {
		c.mu.Lock()
		c.lastRequest = c.svc.now()
		c.mu.Unlock()
	}

	c.svc.record(ctx, c.id, text, reply, started)
	return reply, nil
}
