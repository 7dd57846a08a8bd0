// Package session authenticates users by access code and keeps, for every
// logged-in user, the questionnaire state that is echoed to the tables
// backend on each interaction.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/gofrs/uuid"
	"github.com/mbolis/brand-survey/comparison"
	"github.com/mbolis/brand-survey/log"
	"github.com/mbolis/brand-survey/questionnaire"
	"github.com/mbolis/brand-survey/store"
	"github.com/pkg/errors"
)

const (
	MsgInvalidCode = "Invalid code. Please try again."
	MsgConnection  = "Error connecting to server. Please try again."
)

var (
	ErrInvalidCode = errors.New("invalid access code")
	ErrConnection  = errors.New("cannot reach the tables backend")
	ErrNoSession   = errors.New("no such session")
)

const (
	ClaimSession = "sid"
	ClaimUser    = "user_id"
	ClaimName    = "name"
	ClaimRole    = "role"
)

// Manager owns the live sessions. Sessions are kept in memory only.
type Manager struct {
	store  *store.Store
	tokens *jwtauth.JWTAuth
	ttl    time.Duration

	Now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(st *store.Store, tokens *jwtauth.JWTAuth, ttl time.Duration) *Manager {
	return &Manager{
		store:    st,
		tokens:   tokens,
		ttl:      ttl,
		Now:      time.Now,
		sessions: map[string]*Session{},
	}
}

// Login looks up the user owning code, loads the questionnaire and the
// user's previous answers, and opens a session. It returns ErrInvalidCode
// when no user matches and ErrConnection for any backend failure.
func (m *Manager) Login(ctx context.Context, code string) (*Session, string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, "", ErrInvalidCode
	}

	user, err := m.store.FindUserByCode(ctx, code)
	switch {
	case errors.Is(err, store.ErrNoUser):
		log.Debugf("session.login: unknown code")
		return nil, "", ErrInvalidCode
	case err != nil:
		log.Errorf("session.login.find_user: %s", err)
		return nil, "", ErrConnection
	}

	cat, err := m.LoadCatalog(ctx)
	if err != nil {
		log.Errorf("session.login.load_catalog: %s", err)
		return nil, "", ErrConnection
	}

	uas, err := m.store.ListUserAnswers(ctx, user.ID)
	if err != nil {
		log.Errorf("session.login.load_user_answers: %s", err)
		return nil, "", ErrConnection
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, "", errors.Wrap(err, "session id")
	}

	now := m.Now()
	sess := &Session{
		ID:         id.String(),
		User:       user,
		Catalog:    cat,
		store:      m.store,
		now:        m.Now,
		expires:    now.Add(m.ttl),
		state:      questionnaire.Hydrate(user.ID, uas),
		comparison: comparison.NewPanel(m.store, user.ID),
	}

	claims := map[string]interface{}{
		ClaimSession: sess.ID,
		ClaimUser:    user.ID,
		ClaimName:    user.Name,
		ClaimRole:    string(user.Role),
	}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, sess.expires)
	_, token, err := m.tokens.Encode(claims)
	if err != nil {
		return nil, "", errors.Wrap(err, "session token")
	}

	m.mu.Lock()
	m.sweep(now)
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	log.Infof("session.login: %s (%s) logged in, %d previous answers", user.Name, user.ID, len(uas))
	return sess, token, nil
}

// LoadCatalog fetches sections, questions and every page of answers.
func (m *Manager) LoadCatalog(ctx context.Context) (*questionnaire.Catalog, error) {
	sections, err := m.store.ListSections(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := m.store.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	answers, err := m.store.ListAnswers(ctx)
	if err != nil {
		return nil, err
	}
	log.Debugf("session.load_catalog: %d sections, %d questions, %d answers", len(sections), len(questions), len(answers))
	return questionnaire.NewCatalog(sections, questions, answers), nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNoSession
	}
	if !m.Now().Before(sess.expires) {
		m.Logout(id)
		return nil, ErrNoSession
	}
	return sess, nil
}

func (m *Manager) Logout(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// sweep drops expired sessions; callers hold m.mu.
func (m *Manager) sweep(now time.Time) {
	for id, sess := range m.sessions {
		if !now.Before(sess.expires) {
			delete(m.sessions, id)
		}
	}
}
