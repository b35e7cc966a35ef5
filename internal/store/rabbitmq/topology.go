package rabbitmq

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queues names the three queues behind one job queue. Failed messages are
// parked in Retry until their TTL runs out and then flow back into Main;
// rejected ones land in DLQ.
type Queues struct {
	Main  string
	Retry string
	DLQ   string
}

func QueuesFor(queue string) Queues {
	return Queues{
		Main:  queue,
		Retry: queue + ".retry",
		DLQ:   queue + ".dlq",
	}
}

// DefaultRetryDelay is how long a message waits in the retry queue.
const DefaultRetryDelay = 5 * time.Second

type declarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

// Declare creates the queues. Publisher and worker both call it, and the
// arguments must match on both sides or the broker refuses the second
// declaration.
func (q Queues) Declare(ch declarer) error {
	if _, err := ch.QueueDeclare(q.DLQ, true, false, false, false, nil); err != nil {
		return err
	}

	// expired retries dead-letter back into the main queue
	if _, err := ch.QueueDeclare(q.Retry, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": q.Main,
	}); err != nil {
		return err
	}

	// nack(requeue=false) dead-letters into the DLQ
	_, err := ch.QueueDeclare(q.Main, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": q.DLQ,
	})
	return err
}
