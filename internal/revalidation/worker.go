package revalidation

import (
	"context"
	"encoding/json"
	"fmt"

	"leadngn_backend/platform/config"
	"leadngn_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes queued revalidation tasks with bounded concurrency.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

// NewWorker creates an asynq worker bound to the revalidation queue.
func NewWorker(redisOpt asynq.RedisConnOpt, cfg config.SchedulerConfig, runner *Runner, log *logger.Logger) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
		Logger:      asynqLogger{log: log},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRevalidateLead, func(ctx context.Context, task *asynq.Task) error {
		var payload LeadTaskPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		leadID, err := uuid.Parse(payload.LeadID)
		if err != nil {
			return fmt.Errorf("parse lead id %q: %w", payload.LeadID, err)
		}
		return runner.Run(ctx, leadID)
	})

	return &Worker{server: server, mux: mux, log: log}
}

// Start runs the worker until Shutdown.
func (w *Worker) Start() error {
	w.log.Info("revalidation worker starting")
	return w.server.Start(w.mux)
}

// Shutdown drains in-flight runs and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
	w.log.Info("revalidation worker stopped")
}

// asynqLogger adapts the platform logger to asynq's logging interface.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
