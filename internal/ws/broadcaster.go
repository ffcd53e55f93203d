package ws

import "context"

// Broadcaster is the publish/subscribe fan-out between connections.
// Subscriptions are local to the process; Publish may cross instances.
type Broadcaster interface {
	Subscribe(group string, c *Client)
	Unsubscribe(group string, c *Client)
	UnsubscribeAll(c *Client)
	Publish(ctx context.Context, group string, event any) error
}

type originKey struct{}

// WithOrigin tags ctx with the connection that caused an event
func WithOrigin(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, originKey{}, connID)
}

func originFrom(ctx context.Context) string {
	id, _ := ctx.Value(originKey{}).(string)
	return id
}
