package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sushihentaime/blogsphere/internal/common"
)

const relayConsumerTag common.BindingKey = ""

// BrokerRelay fans hub deliveries out through the realtime exchange so that clients connected to any instance
// receive them.
type BrokerRelay struct {
	mb     *common.MessageBroker
	queue  common.Queue
	hub    *Hub
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBrokerRelay declares the exchange and this instance's queue, and installs the relay as the hub's publisher.
// Call Run to start consuming.
func NewBrokerRelay(mb *common.MessageBroker, hub *Hub, logger *slog.Logger) (*BrokerRelay, error) {
	queue, err := common.SetupRealtimeExchange(mb)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &BrokerRelay{
		mb:     mb,
		queue:  queue,
		hub:    hub,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	return r, nil
}

func (r *BrokerRelay) Publish(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return err
	}

	return r.mb.Publish(ctx, body, "", common.RealtimeExchange)
}

// Run consumes the instance queue and delivers every event to local clients. Once consuming has started the hub
// publishes through the relay.
func (r *BrokerRelay) Run() error {
	msgs, err := r.mb.Consume(relayConsumerTag, common.RealtimeExchange, r.queue)
	if err != nil {
		return err
	}

	r.hub.SetPublisher(r)

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					r.hub.SetPublisher(nil)
					return
				}

				var d Delivery
				if err := json.Unmarshal(msg.Body, &d); err != nil {
					r.logger.Error("could not unmarshal realtime delivery", slog.String("error", err.Error()))
					msg.Ack(false)
					continue
				}

				r.hub.Deliver(d)
				msg.Ack(false)

			case <-r.ctx.Done():
				r.hub.SetPublisher(nil)
				r.logger.Info("stopping realtime relay due to context cancellation")
				return
			}
		}
	}()

	return nil
}

func (r *BrokerRelay) Close() {
	r.cancel()
}
