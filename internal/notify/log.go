package notify

import (
	"context"

	"github.com/JonMunkholm/canvass/internal/core"
	"github.com/JonMunkholm/canvass/internal/logging"
)

// LogPublisher writes events to the structured log. importctl uses it in
// place of a session registry.
type LogPublisher struct{}

var _ core.Notifier = LogPublisher{}

func (LogPublisher) Publish(ctx context.Context, ev core.Event) {
	logger := logging.WithFields(ctx, "event", ev.Type)

	switch ev.Type {
	case core.EventLeaderPendingMatches:
		logger.Info("leader has pending persons",
			"leader_key", ev.LeaderKey,
			"pending", len(ev.Persons),
		)
	case core.EventPendingResolved, core.EventPendingCleaned:
		logger.Info("pending relationships updated",
			"leader_key", ev.LeaderKey,
			"affected", ev.Affected,
		)
	case core.EventImportCompleted:
		if ev.Result == nil {
			logger.Info("import completed")
			return
		}
		logger.Info("import completed",
			"batch_id", ev.Result.BatchID,
			"entity", ev.Result.Entity,
			"success", ev.Result.SuccessCount,
			"errors", ev.Result.ErrorCount,
		)
	default:
		logger.Info("event")
	}
}

// Multi publishes to every notifier in order.
type Multi []core.Notifier

func (m Multi) Publish(ctx context.Context, ev core.Event) {
	for _, n := range m {
		n.Publish(ctx, ev)
	}
}
