package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"guadagni/internal/core"
)

// Local is an in-process authentication provider. It backs the login and
// registration flows when no external provider is wired in, and it is the
// provider the tests drive.
type Local struct {
	mu       sync.Mutex
	userID   string
	handlers []func(Event)
}

var _ Provider = (*Local)(nil)

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Subscribe(handler func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
}

// SignIn establishes a session for the given user and emits a present
// event to all subscribers.
func (l *Local) SignIn(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrEmptyUserID
	}

	l.mu.Lock()
	l.userID = userID
	handlers := l.snapshot()
	l.mu.Unlock()

	slog.InfoContext(ctx, "Session established", "user_id", userID)
	emit(handlers, Event{Present: true, UserID: userID})
	return nil
}

// SignOut ends the current session and emits an absent event. Signing out
// without a session is a no-op.
func (l *Local) SignOut(ctx context.Context) error {
	l.mu.Lock()
	if l.userID == "" {
		l.mu.Unlock()
		return nil
	}
	userID := l.userID
	l.userID = ""
	handlers := l.snapshot()
	l.mu.Unlock()

	slog.InfoContext(ctx, "Session ended", "user_id", userID)
	emit(handlers, Event{Present: false})
	return nil
}

func (l *Local) snapshot() []func(Event) {
	handlers := make([]func(Event), len(l.handlers))
	copy(handlers, l.handlers)
	return handlers
}

func emit(handlers []func(Event), e Event) {
	for _, h := range handlers {
		h(e)
	}
}
