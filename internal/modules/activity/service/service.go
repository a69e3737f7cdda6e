package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel every mutation event is published to.
const Channel = "casetrack:activity"

const (
	CasoCreated      = "caso.created"
	CasoUpdated      = "caso.updated"
	CasoHistoryAdded = "caso.historyAppended"
	CasoDeleted      = "caso.deleted"
	EvidenciaCreated = "evidencia.created"
	EvidenciaUpdated = "evidencia.updated"
	EvidenciaDeleted = "evidencia.deleted"
)

type Event struct {
	Type     string    `json:"type"`
	EntityID uuid.UUID `json:"entityId"`
	CasoID   uuid.UUID `json:"casoId"`
	ActorID  uuid.UUID `json:"actorId"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type redisPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

// NewPublisher returns a publisher that drops events when client is nil.
func NewPublisher(client *redis.Client, log *zap.Logger) Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &redisPublisher{client: client, log: log}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) {
	if p.client == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("failed to encode activity event", zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		p.log.Warn("failed to publish activity event", zap.String("type", event.Type), zap.Error(err))
	}
}
