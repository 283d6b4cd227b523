package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

type Worker struct {
	Mailer Mailer
	Log    *logrus.Entry
}

func NewWorker(mailer Mailer, log *logrus.Entry) *Worker {
	return &Worker{Mailer: mailer, Log: log}
}

func (w *Worker) HandleEmailDelivery(ctx context.Context, t *asynq.Task) error {
	var p EmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if p.To == "" {
		return fmt.Errorf("email without recipient: %w", asynq.SkipRetry)
	}

	subject, body, err := Render(p.Template, p.Data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := w.Log.WithFields(logrus.Fields{"template": p.Template, "to": p.To})
	if err := w.Mailer.Send(p.To, subject, body); err != nil {
		log.WithError(err).Warn("email delivery failed")
		return err
	}
	log.Info("email delivered")
	return nil
}

// NewServeMux registers every task handler.
func (w *Worker) NewServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, w.HandleEmailDelivery)
	return mux
}

func StartWorker(redisOpt asynq.RedisClientOpt, mailer Mailer, log *logrus.Entry) error {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"emails":   3,
				"default":  3,
				"low":      1,
			},
			Logger:   log,
			LogLevel: asynq.InfoLevel,
		},
	)

	worker := NewWorker(mailer, log)
	return srv.Run(worker.NewServeMux())
}
