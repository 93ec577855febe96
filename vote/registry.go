/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package vote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/filmvote/catalog"
)

var (
	ErrInvalidCode     = errors.New("invalid session code")
	ErrTooManySessions = errors.New("session limit reached")
)

// Options configure every session a Registry creates.
type Options struct {
	Catalog *catalog.Catalog
	Logger  *zap.Logger

	// Shuffle permutes films at start and between paired-group rounds.
	// Defaults to a uniform random shuffle.
	Shuffle Shuffler

	// CodeLength is used for minted session codes and reconnection tokens.
	CodeLength int

	// MaxSessions bounds the registry; zero means unbounded.
	MaxSessions int
}

// Registry maps session codes to sessions. Sessions are created on first
// contact and only removed by Reap.
type Registry struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = DefaultCodeLength
	}
	if opts.Shuffle == nil {
		opts.Shuffle = randomShuffle
	}

	return &Registry{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for code, creating it if this is the first
// contact. The connection that creates a session becomes its host.
func (r *Registry) Open(code string, c Conn) (*Session, error) {
	if !ValidCode(code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}

	r.mu.Lock()
	s, ok := r.sessions[code]
	if !ok {
		if r.opts.MaxSessions > 0 && len(r.sessions) >= r.opts.MaxSessions {
			r.mu.Unlock()
			return nil, fmt.Errorf("%w (%d)", ErrTooManySessions, r.opts.MaxSessions)
		}

		s = newSession(code, r.opts)
		r.sessions[code] = s
	}
	r.mu.Unlock()

	if !ok {
		r.opts.Logger.Info("session created", zap.String("session", code), zap.String("host_conn", c.ID()))
	}

	s.attach(c, !ok)

	return s, nil
}

func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]

	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// NewCode mints a code that is not currently in use.
func (r *Registry) NewCode() string {
	for {
		code := GenerateCode(r.opts.CodeLength)

		r.mu.Lock()
		_, exists := r.sessions[code]
		r.mu.Unlock()

		if !exists {
			return code
		}
	}
}

// Reap removes sessions idle since before cutoff and closes their
// connections. It returns the number of sessions removed.
func (r *Registry) Reap(cutoff time.Time) int {
	var reaped []*Session

	r.mu.Lock()
	for code, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			delete(r.sessions, code)
			reaped = append(reaped, s)
		}
	}
	r.mu.Unlock()

	for _, s := range reaped {
		r.opts.Logger.Info("session reaped", zap.String("session", s.Code()))
		s.closeAll()
	}

	return len(reaped)
}

// RunReaper reaps sessions idle for longer than idle until ctx is done.
// A non-positive idle disables reaping.
func (r *Registry) RunReaper(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}

	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Reap(now.Add(-idle))
		}
	}
}
