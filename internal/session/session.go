// Package session owns the authenticated identity and the pairing with the
// persisted access token. It is constructed once at startup and lives for the
// process; views read it synchronously and subscribe for transitions.
package session

import (
	"context"
	"sync"
	"time"

	"techblok-cli/internal/api"
	"techblok-cli/internal/model"

	"github.com/rs/zerolog"
)

// MinPasswordLen mirrors the backend's password policy so forms can reject
// obviously-invalid input before a round trip. The backend remains the
// authority (ValidationError on violation).
const MinPasswordLen = 8

type State int

const (
	StateUnauthenticated State = iota
	// StateRestoring means a persisted token exists and has not yet been
	// exchanged for an identity via "who am I".
	StateRestoring
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unauthenticated"
}

// TokenStore is the durable home of the access token (implemented by
// internal/store).
type TokenStore interface {
	AccessToken(ctx context.Context) (string, bool, error)
	SaveAccessToken(ctx context.Context, token string) error
	ClearAccessToken(ctx context.Context) error
}

type Store struct {
	mu      sync.Mutex
	client  *api.Client
	tokens  TokenStore
	log     zerolog.Logger
	state   State
	token   string
	ident   *model.Identity
	lastErr error

	subs    map[int]func()
	nextSub int
}

// New loads the persisted token. With a token present the store starts in
// StateRestoring; the caller must follow up with Restore once the API client
// is bound via SetClient.
func New(ctx context.Context, tokens TokenStore, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		tokens: tokens,
		log:    logger,
		subs:   map[int]func(){},
	}
	tok, ok, err := tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if ok && tok != "" {
		s.token = tok
		s.state = StateRestoring
	}
	return s, nil
}

// SetClient binds the API client. Split from New because the client's token
// source is this store.
func (s *Store) SetClient(c *api.Client) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

// AccessToken is the client's token source; safe on every request.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns a copy of the caller's identity, if authenticated.
func (s *Store) Identity() (model.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ident == nil {
		return model.Identity{}, false
	}
	return *s.ident, true
}

// LastError is the error retained from the most recent failed login or
// restore; cleared on the next successful transition.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// HasPermission reports whether the caller's role is one of roles. Pure and
// synchronous: false with no identity, no network, never panics, so views
// can gate rendering on every frame. The backend re-checks every mutation;
// this is a UX convenience, not a security boundary.
func (s *Store) HasPermission(roles ...model.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ident == nil {
		return false
	}
	for _, r := range roles {
		if s.ident.Role == r {
			return true
		}
	}
	return false
}

// Restore exchanges the persisted token for a fresh identity. Any failure
// discards the token and collapses to unauthenticated.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRestoring {
		s.mu.Unlock()
		return nil
	}
	client := s.client
	s.mu.Unlock()

	ident, err := client.Me(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session restore failed, clearing token")
		if cerr := s.tokens.ClearAccessToken(ctx); cerr != nil {
			s.log.Warn().Err(cerr).Msg("clear persisted token")
		}
		s.mu.Lock()
		s.state = StateUnauthenticated
		s.token = ""
		s.ident = nil
		s.lastErr = err
		s.mu.Unlock()
		s.notify()
		return err
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.ident = &ident
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()
	s.log.Info().Str("username", ident.Username).Str("role", string(ident.Role)).Msg("session restored")
	return nil
}

// Login authenticates and persists the token. Token and identity transition
// together; on any failure the session stays unauthenticated.
func (s *Store) Login(ctx context.Context, username, password string) (model.Identity, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	ident, token, err := client.Login(ctx, username, password)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return model.Identity{}, err
	}
	if err := s.tokens.SaveAccessToken(ctx, token); err != nil {
		return model.Identity{}, err
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.token = token
	s.ident = &ident
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()
	s.log.Info().Str("username", ident.Username).Msg("logged in")
	return ident, nil
}

// Logout clears the persisted token and identity unconditionally. Always
// succeeds and is idempotent: a second call is a no-op in the same terminal
// state.
func (s *Store) Logout() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.tokens.ClearAccessToken(ctx); err != nil {
		s.log.Warn().Err(err).Msg("clear persisted token")
	}

	s.mu.Lock()
	changed := s.state != StateUnauthenticated || s.token != "" || s.ident != nil
	s.state = StateUnauthenticated
	s.token = ""
	s.ident = nil
	s.mu.Unlock()
	if changed {
		s.notify()
		s.log.Info().Msg("logged out")
	}
}

// Invalidate is the cross-cutting reaction to an Unauthorized response from
// any call anywhere in the system. Same terminal state as Logout.
func (s *Store) Invalidate() { s.Logout() }

// ChangePassword changes the caller's own password. The session token is
// untouched and remains usable afterward.
func (s *Store) ChangePassword(ctx context.Context, current, next string) error {
	s.mu.Lock()
	client := s.client
	authed := s.state == StateAuthenticated
	s.mu.Unlock()
	if !authed {
		return &api.Error{Kind: api.KindUnauthorized, Op: "session.change-password"}
	}
	return client.ChangeOwnPassword(ctx, current, next)
}

func (s *Store) requireAdmin(op string) error {
	if !s.HasPermission(model.RoleAdmin) {
		return &api.Error{Kind: api.KindForbidden, Op: op}
	}
	return nil
}

// Administrative operations. Admin-gated client-side for responsiveness; the
// backend is the authorization truth source. None of these touch the
// caller's own identity.

func (s *Store) CreateUser(ctx context.Context, in api.CreateUserInput) (model.User, error) {
	if err := s.requireAdmin("users.create"); err != nil {
		return model.User{}, err
	}
	return s.client.CreateUser(ctx, in)
}

func (s *Store) UpdateUser(ctx context.Context, uid string, in api.UpdateUserInput) (model.User, error) {
	if err := s.requireAdmin("users.update"); err != nil {
		return model.User{}, err
	}
	return s.client.UpdateUser(ctx, uid, in)
}

func (s *Store) DeleteUser(ctx context.Context, uid string) error {
	if err := s.requireAdmin("users.delete"); err != nil {
		return err
	}
	return s.client.DeleteUser(ctx, uid)
}

func (s *Store) SetUserPassword(ctx context.Context, uid, password string) error {
	if err := s.requireAdmin("users.set-password"); err != nil {
		return err
	}
	return s.client.SetUserPassword(ctx, uid, password)
}

// Subscribe registers fn to run after every session transition. Returns an
// unsubscribe func. Callbacks run outside the store lock.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
