package runtime

import (
	"context"
	"log/slog"

	"chat-core/views"
)

// DeliveryWorker drains one subscriber's ordered delta queue into its
// sink. One worker per session: fan-out across sessions is concurrent,
// the stream within a session is not.
type DeliveryWorker struct {
	sub *views.Subscriber
	log *slog.Logger
}

func NewDeliveryWorker(sub *views.Subscriber, log *slog.Logger) *DeliveryWorker {
	return &DeliveryWorker{sub: sub, log: log}
}

func (w *DeliveryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case delta, ok := <-w.sub.Queue():
			if !ok {
				// Unsubscribed or evicted; nothing left to deliver.
				return nil
			}
			if err := w.sub.Sink.Consume(ctx, delta); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.log.Warn("Delta delivery failed",
					"session", w.sub.SessionID, "caller", w.sub.Caller, "error", err)
				return err
			}
		}
	}
}
