package presence

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"codesync/internal/models"
	"codesync/internal/utils"
)

// Channel carries presence events for external monitors.
const Channel = "codesync:presence"

// Publisher pushes membership changes to Redis, best-effort. Publish
// failures are logged and dropped; the coordinator never waits on delivery
// and no subscriber feeds state back into this process.
type Publisher struct {
	rdb        *redis.Client
	instanceID string
	log        *utils.Logger
	ctx        context.Context
}

func NewPublisher(redisAddr string, log *utils.Logger) *Publisher {
	return &Publisher{
		rdb:        redis.NewClient(&redis.Options{Addr: redisAddr}),
		instanceID: uuid.New().String(),
		log:        log,
		ctx:        context.Background(),
	}
}

func (p *Publisher) Publish(event models.PresenceEvent) {
	event.InstanceID = p.instanceID
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error("failed to marshal presence event", "type", event.Type, "error", err.Error())
		return
	}
	if err := p.rdb.Publish(p.ctx, Channel, data).Err(); err != nil {
		p.log.Warn("failed to publish presence event", "type", event.Type, "error", err.Error())
	}
}

func (p *Publisher) Close() error {
	return p.rdb.Close()
}
