package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job es una tarea periódica. Un error se loguea y se reintenta en el siguiente tick.
type Job func(ctx context.Context) error

// Worker ejecuta un Job cada intervalo hasta que se cancela el contexto.
type Worker struct {
	name     string
	job      Job
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewWorker(name string, job Job, interval time.Duration, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		name:     name,
		job:      job,
		interval: interval,
		timeout:  interval,
		log:      log.With(zap.String("worker", name)),
	}
}

// Start ejecuta el job una vez al arrancar y luego en cada tick. Bloquea.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("🚀 worker iniciado", zap.Duration("interval", w.interval))
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 worker detenido")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce ejecuta el job con un timeout igual al intervalo.
func (w *Worker) RunOnce(ctx context.Context) {
	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.job(jobCtx); err != nil {
		w.log.Warn("⚠️ worker job failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	w.log.Debug("worker job done", zap.Duration("took", time.Since(start)))
}
