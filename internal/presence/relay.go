package presence

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/ramikart/ramikart-backend/pkg/logger"
)

// relayEnvelope is the wire form of a presence transition between instances.
type relayEnvelope struct {
	InstanceID string    `json:"instanceId"`
	UserID     uuid.UUID `json:"userId"`
	Online     bool      `json:"online"`
}

// Relay fans presence transitions out across instances through Pub/Sub.
// Users connected to one instance still see online state for users whose
// sockets landed on another.
type Relay struct {
	instanceID string
	publisher  *pubsub.Publisher
	subscriber *pubsub.Subscriber
	onRemote   func(userID uuid.UUID, online bool)
	logg       *logger.Logger
}

// NewRelay builds the cross-instance presence relay. onRemote is invoked for
// transitions announced by other instances; our own publishes are skipped.
func NewRelay(instanceID string, publisher *pubsub.Publisher, subscriber *pubsub.Subscriber, onRemote func(userID uuid.UUID, online bool), logg *logger.Logger) (*Relay, error) {
	if instanceID == "" {
		return nil, fmt.Errorf("instance id required")
	}
	if publisher == nil || subscriber == nil {
		return nil, fmt.Errorf("publisher and subscriber required")
	}
	if onRemote == nil {
		return nil, fmt.Errorf("remote handler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Relay{
		instanceID: instanceID,
		publisher:  publisher,
		subscriber: subscriber,
		onRemote:   onRemote,
		logg:       logg,
	}, nil
}

// PresenceChanged publishes a local transition. Delivery is best effort:
// presence is transient state and the next transition supersedes this one.
func (r *Relay) PresenceChanged(ctx context.Context, userID uuid.UUID, online bool) {
	data, err := json.Marshal(relayEnvelope{
		InstanceID: r.instanceID,
		UserID:     userID,
		Online:     online,
	})
	if err != nil {
		r.logg.Error(ctx, "marshal presence envelope", err)
		return
	}

	result := r.publisher.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		r.logg.Error(ctx, "publish presence transition", err)
	}
}

// Run consumes relayed transitions until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	return r.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var envelope relayEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			r.logg.Error(ctx, "decode presence envelope", err)
			msg.Ack()
			return
		}
		msg.Ack()
		if envelope.InstanceID == r.instanceID {
			return
		}
		r.onRemote(envelope.UserID, envelope.Online)
	})
}
