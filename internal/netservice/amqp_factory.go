package netservice

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewDurableAMQPPubSub builds a publisher and subscriber against a
// durable, topic-exchange-backed queue on amqpURI, grounded on
// watermill-amqp's own NewDurablePubSubConfig helper — the teacher's
// infra/pubsub/factory.BuildPublisher (durable topic exchange, one named
// queue) was referenced but not retrieved in the pack, so this goes
// straight to the underlying library's documented durable-config
// constructor instead of guessing at the missing factory's shape.
// queueName is shared by every Subscribe call against the returned
// subscriber, matching the teacher's "one queue per node" naming.
func NewDurableAMQPPubSub(amqpURI, queueName string, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	config := amqp.NewDurablePubSubConfig(amqpURI, func(topic string) string { return queueName })

	publisher, err := amqp.NewPublisher(config, logger)
	if err != nil {
		return nil, nil, err
	}
	subscriber, err := amqp.NewSubscriber(config, logger)
	if err != nil {
		return nil, nil, err
	}
	return publisher, subscriber, nil
}
