package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DispatchOutcome is the terminal state of one delivery through the
// retry/dead-letter state machine.
type DispatchOutcome int

const (
	// Delivered: the handler succeeded (initially or on a retry).
	Delivered DispatchOutcome = iota
	// DeadLettered: retries exhausted, message republished to the DLQ.
	DeadLettered
	// Failed: handler failed and no retry or dead-letter applied, or the
	// dead-letter publish itself failed.
	Failed
)

func (o DispatchOutcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case DeadLettered:
		return "dead_lettered"
	default:
		return "failed"
	}
}

// PublishFunc republishes a message, used for dead-letter delivery through
// the owning adapter's own Publish.
type PublishFunc func(ctx context.Context, topic string, msg *EventMessage) error

// Dispatcher runs the per-message delivery state machine shared by every
// adapter: invoke -> retry with linear backoff -> dead-letter or fail.
// One Dispatcher is owned per adapter, alongside its metrics.
type Dispatcher struct {
	Publish PublishFunc
	Metrics *Metrics
	Logger  *logrus.Logger

	// Sleep waits between attempts; tests inject a fake. A nil Sleep waits
	// on a real timer, honoring context cancellation.
	Sleep func(ctx context.Context, d time.Duration)
}

// NewDispatcher wires a dispatcher for one adapter.
func NewDispatcher(publish PublishFunc, metrics *Metrics, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{Publish: publish, Metrics: metrics, Logger: logger}
}

// Dispatch delivers msg to handler, applying the handler's retry and
// dead-letter options. Handler failures are fully contained: the returned
// error reports the terminal failure but the delivery loop keeps running.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, handler EventHandler, msg *EventMessage) (DispatchOutcome, error) {
	opts := handler.Options.withDefaults()

	attempts := 0
	var lastErr error
	for {
		attempts++
		start := time.Now()
		err := handler.Handler(ctx, msg)
		if err == nil {
			d.Metrics.RecordConsumed(time.Since(start))
			return Delivered, nil
		}
		lastErr = err

		if !opts.Retry || attempts > opts.MaxRetries {
			break
		}
		d.Logger.WithFields(logrus.Fields{
			"topic":   topic,
			"type":    handler.EventType,
			"id":      msg.ID,
			"attempt": attempts,
		}).WithError(err).Warn("handler failed, retrying")
		d.wait(ctx, opts.RetryDelay*time.Duration(attempts))
		if ctx.Err() != nil {
			break
		}
	}

	d.Metrics.RecordFailed()
	herr := &HandlerError{EventType: handler.EventType, Attempts: attempts, Err: lastErr}

	if opts.Retry && opts.DeadLetterQueue != "" {
		if dlErr := d.deadLetter(ctx, opts.DeadLetterQueue, msg, lastErr); dlErr != nil {
			d.Logger.WithFields(logrus.Fields{
				"topic": topic,
				"dlq":   opts.DeadLetterQueue,
				"id":    msg.ID,
			}).WithError(dlErr).Error("dead-letter publish failed")
			return Failed, herr
		}
		return DeadLettered, herr
	}

	d.Logger.WithFields(logrus.Fields{
		"topic":    topic,
		"type":     handler.EventType,
		"id":       msg.ID,
		"attempts": attempts,
	}).WithError(lastErr).Error("handler failed permanently")
	return Failed, herr
}

// deadLetter republishes the message to the DLQ topic tagged with the
// failure metadata.
func (d *Dispatcher) deadLetter(ctx context.Context, queue string, msg *EventMessage, cause error) error {
	dl := msg.Clone()
	if dl.Metadata == nil {
		dl.Metadata = make(map[string]string, 2)
	}
	dl.Metadata[MetaOriginalError] = cause.Error()
	dl.Metadata[MetaDeadLetterReason] = DeadLetterReasonMaxRetries
	return d.Publish(ctx, queue, dl)
}

func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) {
	if d.Sleep != nil {
		d.Sleep(ctx, delay)
		return
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
