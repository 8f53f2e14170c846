package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// QueueConfig — очередь и ключ маршрутизации, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Topology — direct-обменник и привязанные к нему очереди.
type Topology struct {
	Exchange string
	Queues   []QueueConfig
}

// CredentialsTopology возвращает топологию очереди писем с кодами подтверждения.
func CredentialsTopology(exchange, queue, routingKey string) Topology {
	return Topology{
		Exchange: exchange,
		Queues:   []QueueConfig{{QueueName: queue, RoutingKey: routingKey}},
	}
}

// SetupChannel открывает канал и объявляет на нём топологию.
func SetupChannel(conn *amqp.Connection, topology Topology, prefetch int) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
		}
	}

	err = ch.ExchangeDeclare(
		topology.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range topology.Queues {
		_, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		err = ch.QueueBind(q.QueueName, q.RoutingKey, topology.Exchange, false, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
