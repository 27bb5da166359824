package app

import (
	"context"
	"log/slog"
	"time"

	"blog/cmd/internal/metrics"
)

type purger interface {
	Purge(ctx context.Context) (int, error)
}

// runJanitor purges expired revocation keys every interval until ctx is done.
func runJanitor(ctx context.Context, log *slog.Logger, p purger, m *metrics.Metrics, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()

	log.Info("janitor.start", "interval", every.String())
	for {
		select {
		case <-ctx.Done():
			log.Info("janitor.stop")
			return
		case <-t.C:
			purgeOnce(ctx, log, p, m)
		}
	}
}

func purgeOnce(ctx context.Context, log *slog.Logger, p purger, m *metrics.Metrics) {
	n, err := p.Purge(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("janitor.purge.fail", "err", err)
		}
		return
	}
	m.Purged(n)
	if n > 0 {
		log.Debug("janitor.purge.ok", "removed", n)
	}
}
