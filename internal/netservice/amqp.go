package netservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/reactor-plant/internal/plant"
)

// AMQPTransport republishes typed messages arriving on a watermill
// subscription as Local-scope emissions, and publishes plant emissions back
// out onto an exchange. Grounded on the teacher's handler/amqp package
// (MessageHandler, bind[T], NewWatermillRouter): the panic-recovery,
// decode-or-ack, and fx-lifecycle-managed router shape survive unchanged;
// the teacher's per-user routing-key/locality filter is dropped (this
// runtime has no notion of "this node owns this user" — every subscriber
// reaction decides for itself via its own precondition words).
type AMQPTransport struct {
	plant     *plant.Plant
	logger    *slog.Logger
	router    *message.Router
	publisher message.Publisher
}

// NewAMQPTransport wraps an already-constructed watermill router and
// publisher (built the same way the teacher's infra/pubsub factory does)
// for use against p.
func NewAMQPTransport(p *plant.Plant, router *message.Router, publisher message.Publisher, logger *slog.Logger) *AMQPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPTransport{plant: p, logger: logger, router: router, publisher: publisher}
}

// NewRouter builds a watermill message.Router logging through logger via
// watermill.NewSlogLogger, identical to the teacher's NewWatermillRouter
// but without the fx.Lifecycle coupling — callers drive Run/Close
// themselves (cmd/fx.go's wireAMQP lifecycle hooks).
func NewRouter(logger *slog.Logger) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
}

// Subscribe registers a no-publisher handler on topic/queue via sub,
// decoding each message's payload as T and emitting it Local scope.
// Decode failures and panics are recovered and acked (poison-pill
// protection), exactly as the teacher's Bind[T] does.
func Subscribe[T any](t *AMQPTransport, queue, topic string, sub message.Subscriber) {
	t.router.AddNoPublisherHandler(queue+"_executor", topic, sub, func(msg *message.Message) (err error) {
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("AMQP_PANIC_RECOVERED",
					slog.Any("recovered", r),
					slog.String("stack", string(debug.Stack())),
					slog.String("msg_id", msg.UUID))
				err = nil
			}
		}()

		payload := new(T)
		if jsonErr := json.Unmarshal(msg.Payload, payload); jsonErr != nil {
			t.logger.Error("AMQP_DECODE_FAILED", "err", jsonErr, "msg_id", msg.UUID)
			return nil
		}

		plant.Emit(t.plant, *payload)
		return nil
	})
}

// Publish marshals value as JSON and publishes it to exchange, for
// reactions wanting to fan an emission back out across the cluster
// (scope Network/UDP in SPEC_FULL.md §6).
func (t *AMQPTransport) Publish(ctx context.Context, exchange string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("netservice: marshal publish payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	return t.publisher.Publish(exchange, msg)
}
