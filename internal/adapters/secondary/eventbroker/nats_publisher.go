package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// NatsPublisher publie les événements d'interaction du graphe social.
// Contrat implicite avec feed-service et notification-service : ils
// consomment follow.* pour recalculer timelines et notifs.
type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

// subjectFor mappe le type d'événement domaine vers le sujet NATS
func subjectFor(eventType string) string {
	switch eventType {
	case "follow":
		return "follow.created"
	case "unfollow":
		return "follow.removed"
	case "block":
		return "relationship.blocked"
	case "unblock":
		return "relationship.unblocked"
	case "mute":
		return "relationship.muted"
	case "unmute":
		return "relationship.unmuted"
	default:
		return "relationship." + eventType
	}
}

func (p *NatsPublisher) RecordFollowEvent(ctx context.Context, event domain.FollowEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	msg := &nats.Msg{
		Subject: subjectFor(event.EventType),
		Data:    data,
		Header:  nats.Header{},
	}
	// Injection du TraceID dans les headers NATS pour que les consumers
	// raccrochent leurs spans à la requête d'origine
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.Info("📢 Publishing interaction event", "subject", msg.Subject, "event_id", event.EventID)

	return p.nc.PublishMsg(msg)
}
