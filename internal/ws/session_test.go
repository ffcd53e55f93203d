package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkdhub/chatcore/internal/model"
)

func TestSession_Lifecycle(t *testing.T) {
	hub := NewHub()
	s := NewSession(10)
	assert.Equal(t, "conv_10", s.Group)
	assert.Equal(t, StateConnecting, s.State())

	require.Error(t, s.Activate())

	require.NoError(t, s.Authorize(&model.Identity{ID: 3, Username: "ana"}))
	c := testClient(3, 4)
	require.NoError(t, s.Subscribe(hub, c))
	assert.Equal(t, 1, hub.GroupSize("conv_10"))

	require.NoError(t, s.Activate())
	assert.True(t, s.Active())

	s.Close(hub)
	s.Close(hub)
	assert.Equal(t, StateClosed, s.State())
	assert.Zero(t, hub.GroupSize("conv_10"))
	select {
	case <-c.Done():
	default:
		t.Fatal("client not closed")
	}
}

func TestSession_CloseBeforeSubscribe(t *testing.T) {
	hub := NewHub()
	s := NewSession(10)
	require.NoError(t, s.Authorize(&model.Identity{ID: 3}))

	s.Close(hub)
	assert.Equal(t, StateClosed, s.State())
	assert.Error(t, s.Subscribe(hub, testClient(3, 1)))
	assert.Zero(t, hub.GroupSize("conv_10"))
}

func TestSession_ContextEndsOnClose(t *testing.T) {
	hub := NewHub()
	s := NewSession(10)
	require.NoError(t, s.Authorize(&model.Identity{ID: 3}))
	require.NoError(t, s.Subscribe(hub, testClient(3, 1)))
	require.NoError(t, s.Activate())

	ctx := s.Context()
	require.NoError(t, ctx.Err())

	s.Close(hub)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestSession_ContextEndsWhenClosedBeforeSubscribe(t *testing.T) {
	s := NewSession(10)
	s.Close(NewHub())
	assert.ErrorIs(t, s.Context().Err(), context.Canceled)
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "state(42)", SessionState(42).String())
}
