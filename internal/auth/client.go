package auth

import (
	"context"
	"sync"

	"github.com/lalith-99/echocrm/internal/models"
)

// StateFunc is called with the signed-in user, or nil after sign-out.
type StateFunc func(user *models.User)

// Client holds at most one signed-in session.
//
// Subscribers registered with OnAuthStateChange are called once straight
// away with the current user, then once per transition. Callbacks run
// synchronously on the goroutine that caused the transition, outside the
// client's lock.
type Client struct {
	provider *Provider

	mu        sync.Mutex
	session   *Session
	listeners map[int]StateFunc
	nextID    int
}

func NewClient(provider *Provider) *Client {
	return &Client{provider: provider, listeners: make(map[int]StateFunc)}
}

// Resume adopts a session that was already verified elsewhere (a bearer
// token on a new request). It fires a transition only when the client had
// no session.
func (c *Client) Resume(s *Session) {
	c.transition(s)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	s, err := c.provider.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.transition(s)
	return &s.User, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	s, err := c.provider.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.transition(s)
	return &s.User, nil
}

// SignOut revokes the current token and clears the session. Signing out
// with no session is a no-op.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	if s.claims != nil {
		if err := c.provider.Revoke(ctx, s.claims); err != nil {
			return err
		}
	}
	c.transition(nil)
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (c *Client) CurrentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	u := c.session.User
	return &u
}

// Session returns the current session, or nil.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// OnAuthStateChange subscribes fn and returns a function that unsubscribes it.
func (c *Client) OnAuthStateChange(fn StateFunc) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	var current *models.User
	if c.session != nil {
		u := c.session.User
		current = &u
	}
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// transition swaps the session and notifies listeners when the signed-in
// user changes.
func (c *Client) transition(s *Session) {
	c.mu.Lock()
	prev := c.session
	c.session = s
	changed := (prev == nil) != (s == nil) || (prev != nil && s != nil && prev.User.ID != s.User.ID)
	fns := make([]StateFunc, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	if !changed {
		return
	}
	var user *models.User
	if s != nil {
		u := s.User
		user = &u
	}
	for _, fn := range fns {
		fn(user)
	}
}
