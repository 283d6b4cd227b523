package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier queues templated emails for the worker process.
type Notifier struct {
	Client Enqueuer
	Queue  string
}

func NewNotifier(client Enqueuer, queue string) *Notifier {
	if queue == "" {
		queue = "emails"
	}
	return &Notifier{Client: client, Queue: queue}
}

func (n *Notifier) SendEmail(ctx context.Context, to, template string, data map[string]interface{}) error {
	task, err := NewEmailTask(EmailPayload{
		To:          to,
		Template:    template,
		Data:        data,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = n.Client.EnqueueContext(ctx, task, asynq.Queue(n.Queue), asynq.MaxRetry(5), asynq.Timeout(time.Minute))
	return err
}
