// Package notify is the user-visible notification side channel. Every
// recoverable failure in the portal terminates here instead of propagating
// into the rendering layer.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/rentfolio/portal-server-go/internal/redis"
)

const HeartbeatInterval = 30 * time.Second

type Notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type Client struct {
	VisitorID string
	Events    chan Notification
	Done      chan struct{}
}

// Broker fans notifications out to a visitor's connected clients. With a
// redis client it also relays through pub/sub so every portal instance
// sees every notification; without one it is purely in-process.
type Broker struct {
	redis      *redisclient.Client
	relay      func(ctx context.Context, visitorID string)
	clients    map[string]map[*Client]bool   // visitorID -> set of clients
	relayStops map[string]context.CancelFunc // visitorID -> running relay
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		redis:      redisClient,
		clients:    make(map[string]map[*Client]bool),
		relayStops: make(map[string]context.CancelFunc),
		ctx:        ctx,
		cancel:     cancel,
	}
	if redisClient != nil {
		b.relay = b.relayFromRedis
	}
	return b
}

// Subscribe registers a client for a visitor's notifications. At most one
// pub/sub relay runs per visitor; it lives exactly as long as the visitor
// has connected clients, so reconnects never stack duplicate subscriptions.
func (b *Broker) Subscribe(visitorID string) *Client {
	client := &Client{
		VisitorID: visitorID,
		Events:    make(chan Notification, 100),
		Done:      make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[visitorID] == nil {
		b.clients[visitorID] = make(map[*Client]bool)
		if b.relay != nil {
			relayCtx, stop := context.WithCancel(b.ctx)
			b.relayStops[visitorID] = stop
			go b.relay(relayCtx, visitorID)
		}
	}
	b.clients[visitorID][client] = true
	clientCount := len(b.clients[visitorID])
	b.mu.Unlock()

	log.Debug().
		Str("visitorId", visitorID).
		Int("clientCount", clientCount).
		Msg("notification client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.VisitorID]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.VisitorID)
			if stop, ok := b.relayStops[client.VisitorID]; ok {
				stop()
				delete(b.relayStops, client.VisitorID)
			}
		}
	}
}

// Notify implements the session store's side channel.
func (b *Broker) Notify(ctx context.Context, visitorID, level, message string) {
	n := Notification{Level: level, Message: message, Time: time.Now()}

	if b.redis == nil {
		b.broadcast(visitorID, n)
		return
	}

	data, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal notification")
		return
	}
	channel := redisclient.NotificationChannel(visitorID)
	if err := b.redis.Publish(ctx, channel, data).Err(); err != nil {
		log.Error().Err(err).Str("visitorId", visitorID).Msg("failed to publish notification")
		// Still deliver locally so the visitor on this instance sees it.
		b.broadcast(visitorID, n)
	}
}

func (b *Broker) relayFromRedis(ctx context.Context, visitorID string) {
	channel := redisclient.NotificationChannel(visitorID)
	pubsub := b.redis.Subscribe(ctx, channel)
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

			var n Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal notification")
				continue
			}

			b.broadcast(visitorID, n)
		}
	}
}

func (b *Broker) broadcast(visitorID string, n Notification) {
	b.mu.RLock()
	clients := b.clients[visitorID]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- n:
		default:
			log.Warn().
				Str("visitorId", visitorID).
				Msg("client notification buffer full, dropping")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.relayStops = make(map[string]context.CancelFunc)
}

func (b *Broker) ClientCount(visitorID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[visitorID])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
