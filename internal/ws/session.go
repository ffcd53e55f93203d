package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/tkdhub/chatcore/internal/model"
)

// Connection policies. Changing any of them changes what clients observe.
const (
	// SilentCloseOnAuthFailure refuses a failed handshake with a bare 403,
	// never telling the client which check failed.
	SilentCloseOnAuthFailure = true

	// DropUnknownActions ignores unknown or malformed inbound frames instead
	// of answering with an error event.
	DropUnknownActions = true

	// EchoToSelf delivers every group event to the connection that caused it too.
	EchoToSelf = true
)

// SessionState is the lifecycle of one realtime connection
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthorized
	StateSubscribed
	StateActive
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthorized:
		return "authorized"
	case StateSubscribed:
		return "subscribed"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session tracks one connection scoped to one conversation
type Session struct {
	ConversationID int64
	Group          string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    SessionState
	identity *model.Identity
	client   *Client
}

func NewSession(conversationID int64) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ConversationID: conversationID,
		Group:          model.GroupName(conversationID),
		ctx:            ctx,
		cancel:         cancel,
		state:          StateConnecting,
	}
}

// Context is cancelled when the session closes; work done on behalf of the
// connection runs under it
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity is nil until the session is authorized
func (s *Session) Identity() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) Client() *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Authorize records the resolved principal
func (s *Session) Authorize(identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expectLocked(StateConnecting, StateAuthorized); err != nil {
		return err
	}
	s.identity = identity
	s.state = StateAuthorized
	return nil
}

// Subscribe registers the connection in the conversation's group
func (s *Session) Subscribe(b Broadcaster, c *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expectLocked(StateAuthorized, StateSubscribed); err != nil {
		return err
	}
	s.client = c
	b.Subscribe(s.Group, c)
	s.state = StateSubscribed
	return nil
}

// Activate starts accepting inbound events
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expectLocked(StateSubscribed, StateActive); err != nil {
		return err
	}
	s.state = StateActive
	return nil
}

// Active reports whether inbound events may be processed
func (s *Session) Active() bool {
	return s.State() == StateActive
}

// Close deregisters the connection from every group and closes it. It is
// idempotent and safe from any state, including a partially set up session.
func (s *Session) Close(b Broadcaster) {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosing
	c := s.client
	s.mu.Unlock()

	s.cancel()

	if c != nil {
		b.UnsubscribeAll(c)
		c.Close()
	}

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

func (s *Session) expectLocked(from, to SessionState) error {
	if s.state != from {
		return fmt.Errorf("session: cannot move to %s from %s", to, s.state)
	}
	return nil
}
