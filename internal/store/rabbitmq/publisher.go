package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JobMessage is the body of a queued experiment job.
type JobMessage struct {
	JobID string `json:"job_id"`
	// deliveries so far, 0 on the first publish
	Attempt int `json:"attempt,omitempty"`
}

var ErrBadMessage = errors.New("bad job message")

func DecodeJobMessage(body []byte) (JobMessage, error) {
	var m JobMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return m, errors.Join(ErrBadMessage, err)
	}
	if m.JobID == "" {
		return m, ErrBadMessage
	}
	return m, nil
}

type Publisher struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queues     Queues
	retryDelay time.Duration
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	q := QueuesFor(queue)
	if err := q.Declare(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, ch: ch, queues: q, retryDelay: DefaultRetryDelay}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// PublishJob enqueues a freshly submitted job.
func (p *Publisher) PublishJob(ctx context.Context, jobID string) error {
	return p.publish(ctx, p.queues.Main, JobMessage{JobID: jobID}, "")
}

// PublishRetry parks m in the retry queue; it comes back to the main queue
// after the retry delay.
func (p *Publisher) PublishRetry(ctx context.Context, m JobMessage) error {
	ttl := strconv.FormatInt(p.retryDelay.Milliseconds(), 10)
	return p.publish(ctx, p.queues.Retry, m, ttl)
}

func (p *Publisher) publish(ctx context.Context, queue string, m JobMessage, expiration string) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",    // default exchange
		queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			Expiration:   expiration,
		},
	)
}
