package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

const (
	// TasksExchange is the topic exchange task events are published to.
	TasksExchange = "tasks"
	// TaskEventsQueue receives every task.* event.
	TaskEventsQueue   = "task_events"
	taskEventsBinding = "task.#"
)

// Task event names, also used as routing keys.
const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// TaskEvent is the JSON body of a task lifecycle message.
type TaskEvent struct {
	Event      string    `json:"event"`
	TaskID     string    `json:"taskId"`
	UserID     string    `json:"userId"`
	Status     string    `json:"status,omitempty"`
	Priority   string    `json:"priority,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// DecodeTaskEvent parses and checks a message body.
func DecodeTaskEvent(body []byte) (TaskEvent, error) {
	var ev TaskEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return TaskEvent{}, fmt.Errorf("failed to decode task event: %w", err)
	}
	if ev.Event == "" || ev.TaskID == "" {
		return TaskEvent{}, errors.New("task event is missing event or taskId")
	}
	return ev, nil
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the task exchange, queue and binding.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Println("RabbitMQ client connected and task_events declared.")

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		TasksExchange, // name
		"topic",       // kind
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", TasksExchange, err)
	}

	if _, err := ch.QueueDeclare(
		TaskEventsQueue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		nil,             // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s: %w", TaskEventsQueue, err)
	}

	if err := ch.QueueBind(TaskEventsQueue, taskEventsBinding, TasksExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s: %w", TaskEventsQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends a persistent JSON message.
func (c *Client) Publish(exchange, routingKey string, body []byte) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishTaskEvent publishes ev to the tasks exchange using ev.Event as routing key.
func (c *Client) PublishTaskEvent(ev TaskEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal task event: %w", err)
	}
	return c.Publish(TasksExchange, ev.Event, body)
}

// ConsumeTaskEvents delivers messages from task_events to handler in a
// goroutine. Messages are acked when handler returns nil and rejected without
// requeue otherwise, so a malformed body cannot loop forever.
func (c *Client) ConsumeTaskEvents(handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		TaskEventsQueue, // queue
		"",              // consumer tag
		false,           // auto-ack
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := handler(msg); err != nil {
				log.WithError(err).WithField("delivery_tag", msg.DeliveryTag).Warn("rejecting task event")
				if nackErr := msg.Nack(false, false); nackErr != nil {
					log.Printf("Error nacking message %d: %v", msg.DeliveryTag, nackErr)
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				log.Printf("Error acking message %d: %v", msg.DeliveryTag, ackErr)
			}
		}
	}()

	return nil
}
