package app

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"sessq-service/internal/domain"
)

// SessionStore abstracts how the registry persists live sessions
// (in-memory, Redis liveness-marked, etc).
type SessionStore interface {
	// Insert stores a new session under code. It returns false when the
	// code is already taken.
	Insert(code string, session *Session) bool
	Get(code string) (*Session, bool)
	// MarkEnded lets the store drop any liveness tracking for code. The
	// session itself stays retrievable for summaries.
	MarkEnded(code string)
}

// codeAlphabet excludes 0/O and 1/I so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const maxCodeAttempts = 32

// Registry tracks active sessions by their shareable code and assigns
// participant IDs that stay resolvable across the whole process, since
// answer submissions carry only a participant ID.
type Registry struct {
	store    SessionStore
	codeLen  int
	lastID   int64
	mu       sync.RWMutex
	sessions map[int64]string
}

func NewRegistry(store SessionStore, codeLen int) *Registry {
	if codeLen <= 0 {
		codeLen = 6
	}
	return &Registry{
		store:    store,
		codeLen:  codeLen,
		sessions: make(map[int64]string),
	}
}

// Create builds a new PENDING session for quiz under a freshly generated
// code, retrying on collision.
func (r *Registry) Create(quiz domain.Quiz) (*Session, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode(r.codeLen)
		if err != nil {
			return nil, err
		}
		session := newSession(code, quiz)
		if r.store.Insert(code, session) {
			return session, nil
		}
	}
	return nil, fmt.Errorf("could not allocate a unique session code after %d attempts", maxCodeAttempts)
}

// Get resolves a session code. Codes are matched case-insensitively.
func (r *Registry) Get(code string) (*Session, error) {
	session, ok := r.store.Get(strings.ToUpper(code))
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Join adds a named participant to the session and returns the assigned ID.
func (r *Registry) Join(code, name string) (domain.Participant, error) {
	session, err := r.Get(code)
	if err != nil {
		return domain.Participant{}, err
	}
	id := atomic.AddInt64(&r.lastID, 1)
	participant, err := session.join(id, name)
	if err != nil {
		return domain.Participant{}, err
	}
	r.mu.Lock()
	r.sessions[id] = session.Code()
	r.mu.Unlock()
	return participant, nil
}

// SessionOf resolves the session a participant belongs to.
func (r *Registry) SessionOf(participantID int64) (*Session, error) {
	r.mu.RLock()
	code, ok := r.sessions[participantID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return r.Get(code)
}

// End transitions the session to ENDED. Ending twice is a no-op; the
// returned flag reports whether this call did the transition.
func (r *Registry) End(code string) (*Session, bool, error) {
	session, err := r.Get(code)
	if err != nil {
		return nil, false, err
	}
	alreadyEnded := session.end()
	if !alreadyEnded {
		r.store.MarkEnded(session.Code())
	}
	return session, !alreadyEnded, nil
}

func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
