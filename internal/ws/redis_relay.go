package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRelayChannel carries group events between server instances
const DefaultRelayChannel = "chatcore:groups"

// relayEnvelope is what travels over Redis Pub/Sub
type relayEnvelope struct {
	Group   string          `json:"group"`
	Origin  string          `json:"origin,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// RedisRelay is a Broadcaster for horizontally scaled deployments.
// Subscriptions stay in the local Hub; every instance receives each published
// event from Redis and delivers it to its own subscribers.
type RedisRelay struct {
	hub     *Hub
	rdb     *redis.Client
	channel string
}

// NewRedisRelay wraps hub with Redis Pub/Sub fan-out
func NewRedisRelay(hub *Hub, rdb *redis.Client, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{hub: hub, rdb: rdb, channel: channel}
}

func (r *RedisRelay) Subscribe(group string, c *Client)   { r.hub.Subscribe(group, c) }
func (r *RedisRelay) Unsubscribe(group string, c *Client) { r.hub.Unsubscribe(group, c) }
func (r *RedisRelay) UnsubscribeAll(c *Client)            { r.hub.UnsubscribeAll(c) }

// Publish sends the event through Redis. If Redis is unreachable the event is
// still delivered to this instance's subscribers.
func (r *RedisRelay) Publish(ctx context.Context, group string, event any) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	origin := originFrom(ctx)

	data, err := json.Marshal(relayEnvelope{Group: group, Origin: origin, Payload: payload})
	if err != nil {
		return errors.Wrap(err, "relay.Publish.encode")
	}
	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		log.Printf("⚠️  Redis publish failed, delivering locally: %v", err)
		r.hub.deliver(group, payload, origin)
	}
	return nil
}

// Start subscribes to the relay channel and delivers incoming events until
// ctx is cancelled. It returns once the subscription is confirmed.
func (r *RedisRelay) Start(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return errors.Wrap(err, "relay.Start.subscribe")
	}
	log.Printf("📡 Redis relay subscribed to %s", r.channel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env relayEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Printf("Error unmarshaling relay message: %v", err)
					continue
				}
				r.hub.deliver(env.Group, env.Payload, env.Origin)
			}
		}
	}()
	return nil
}
