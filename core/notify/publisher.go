package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"bastion-icc/core/utils"
)

// Publisher announces incident changes to interested readers. Events are
// re-fetch signals only; consumers must not treat delivery order as the
// commit order across independent writers.
type Publisher interface {
	IncidentChanged(ctx context.Context, incidentID int64, action string)
	Close() error
}

type ChangeEvent struct {
	IncidentID int64     `json:"incident_id"`
	Action     string    `json:"action"`
	At         time.Time `json:"at"`
}

type redisPublisher struct {
	client  *redis.Client
	channel string
	logger  *utils.Logger
}

func NewRedisPublisher(addr, channel string, logger *utils.Logger) Publisher {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &redisPublisher{client: client, channel: channel, logger: logger}
}

func (p *redisPublisher) IncidentChanged(ctx context.Context, incidentID int64, action string) {
	raw, err := json.Marshal(ChangeEvent{IncidentID: incidentID, Action: action, At: time.Now().UTC()})
	if err != nil {
		return
	}
	// Best effort: a lost change event only delays a re-fetch.
	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil && p.logger != nil {
		p.logger.Errorf("notify publish: %v", err)
	}
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

type nopPublisher struct{}

// NewNopPublisher is used when redis is not configured.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) IncidentChanged(context.Context, int64, string) {}

func (nopPublisher) Close() error { return nil }
