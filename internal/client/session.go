package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

// ErrNoSession is returned when the session was never established or has
// been invalidated by a 401.
var ErrNoSession = errors.New("not logged in")

// Session is the logged-in user plus reference data loaded once for the
// session. A zero Session is not valid; use Start.
type Session struct {
	mu    sync.RWMutex
	user  core.User
	valid bool

	refsMu sync.Mutex
	refs   *ReferenceData
}

// Start resolves the current user with GET /users/me.
func Start(ctx context.Context, c *Client) (*Session, error) {
	u, err := c.Me(ctx)
	if err != nil {
		if errors.Is(err, core.ErrUnauthenticated) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return &Session{user: u, valid: true}, nil
}

// User returns the session user, or ErrNoSession after Invalidate.
func (s *Session) User() (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.valid {
		return core.User{}, ErrNoSession
	}
	return s.user, nil
}

func (s *Session) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid
}

// Invalidate drops the user and cached reference data.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.user = core.User{}
	s.mu.Unlock()

	s.refsMu.Lock()
	s.refs = nil
	s.refsMu.Unlock()
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session carried by ctx, or nil.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// ReferenceData is what forms and filters are populated from.
type ReferenceData struct {
	Categories     []core.Category
	PaymentMethods []core.PaymentMethod
}

// Category finds a category by id or case-insensitive name.
func (r *ReferenceData) Category(idOrName string) (core.Category, bool) {
	for _, c := range r.Categories {
		if c.ID == idOrName || equalFold(c.Name, idOrName) {
			return c, true
		}
	}
	return core.Category{}, false
}

// Subcategory finds a subcategory of cat by id or case-insensitive name.
func (r *ReferenceData) Subcategory(cat core.Category, idOrName string) (core.Subcategory, bool) {
	for _, s := range cat.Subcategories {
		if s.ID == idOrName || equalFold(s.Name, idOrName) {
			return s, true
		}
	}
	return core.Subcategory{}, false
}

// PaymentMethod returns the canonical spelling of name.
func (r *ReferenceData) PaymentMethod(name string) (string, bool) {
	for _, m := range r.PaymentMethods {
		if equalFold(m.Name, name) {
			return m.Name, true
		}
	}
	return "", false
}

// LoadReferenceData fetches categories and payment methods concurrently.
func LoadReferenceData(ctx context.Context, c *Client) (*ReferenceData, error) {
	var refs ReferenceData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, err := c.Categories(gctx)
		refs.Categories = cats
		return err
	})
	g.Go(func() error {
		methods, err := c.PaymentMethods(gctx)
		refs.PaymentMethods = methods
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &refs, nil
}

// References returns the session's reference data, loading it on first use.
func (s *Session) References(ctx context.Context, c *Client) (*ReferenceData, error) {
	if !s.Valid() {
		return nil, ErrNoSession
	}
	s.refsMu.Lock()
	defer s.refsMu.Unlock()
	if s.refs != nil {
		return s.refs, nil
	}
	refs, err := LoadReferenceData(ctx, c)
	if err != nil {
		return nil, err
	}
	s.refs = refs
	return refs, nil
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
